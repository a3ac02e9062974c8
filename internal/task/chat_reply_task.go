package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/generation"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
)

// chatHistoryLimit bounds how many earlier messages are sent with a question.
const chatHistoryLimit = 20

var (
	// ErrEmptySessionID is returned when a chat reply task has no session.
	ErrEmptySessionID = errors.New("session ID cannot be empty")
	// ErrEmptyMessageID is returned when a chat reply task names no question.
	ErrEmptyMessageID = errors.New("message ID cannot be empty")
)

// ChatPayload is the persisted form of a chat reply task.
type ChatPayload struct {
	SessionID uuid.UUID `json:"session_id"`
	ProjectID uuid.UUID `json:"project_id"`
	UserID    uuid.UUID `json:"user_id"`
	MessageID uuid.UUID `json:"message_id"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// ChatPipeline holds what a chat reply needs to run.
type ChatPipeline struct {
	Projects     ProjectReader
	Documents    DocumentReader
	Generator    generation.Generator
	Replies      ChatReplyRecorder
	ContextChars int
	Logger       *slog.Logger
}

// ChatReplyTask answers one USER message of a session.
type ChatReplyTask struct {
	id       uuid.UUID
	payload  ChatPayload
	pipeline *ChatPipeline
	status   TaskStatus
}

func (t *ChatReplyTask) ID() uuid.UUID      { return t.id }
func (t *ChatReplyTask) Type() string       { return TaskTypeChatReply }
func (t *ChatReplyTask) Status() TaskStatus { return t.status }

func (t *ChatReplyTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		t.pipeline.Logger.Error("failed to marshal task payload", "task_id", t.id, "error", err)
		return []byte{}
	}
	return data
}

// Execute generates and stores the reply to the posted message. A message
// that already has a reply was answered by an earlier run.
func (t *ChatReplyTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	log := logger.FromContextOrDefault(ctx, t.pipeline.Logger).With(
		"session_id", t.payload.SessionID,
		"project_id", t.payload.ProjectID,
		"message_id", t.payload.MessageID,
	)
	if t.payload.TraceID != "" {
		log = log.With("trace_id", t.payload.TraceID)
	}

	if err := t.reply(ctx, log); err != nil {
		t.status = TaskStatusFailed
		return err
	}
	t.status = TaskStatusCompleted
	return nil
}

func (t *ChatReplyTask) reply(ctx context.Context, log *slog.Logger) error {
	thread, err := t.pipeline.Replies.Thread(ctx, t.payload.SessionID, t.payload.MessageID, chatHistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to load chat history: %w", err)
	}
	if thread.Answered {
		log.Info("question already answered, skipping")
		return nil
	}

	project, err := t.pipeline.Projects.GetByID(ctx, t.payload.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	text, err := t.pipeline.Documents.ReadText(ctx, project.FileKey, t.pipeline.ContextChars)
	if err != nil {
		return fmt.Errorf("failed to read source document: %w", err)
	}

	answer, usage, err := t.pipeline.Generator.ChatReply(ctx, text, thread.History, thread.Question.Message)
	if err != nil {
		return fmt.Errorf("failed to generate chat reply: %w", err)
	}

	if err := t.pipeline.Replies.SaveReply(ctx, t.payload.UserID, t.payload.SessionID, t.payload.MessageID, answer, usage); err != nil {
		return fmt.Errorf("failed to save chat reply: %w", err)
	}
	log.Info("chat reply saved",
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens)
	return nil
}

// ChatTaskFactory builds chat reply tasks.
type ChatTaskFactory struct {
	pipeline *ChatPipeline
}

// NewChatTaskFactory creates a factory after checking the pipeline is complete.
func NewChatTaskFactory(pipeline *ChatPipeline) (*ChatTaskFactory, error) {
	if pipeline == nil || pipeline.Projects == nil || pipeline.Documents == nil ||
		pipeline.Generator == nil || pipeline.Replies == nil || pipeline.Logger == nil {
		return nil, ErrNilDependency
	}
	pipeline.Logger = pipeline.Logger.With("component", "chat_reply")
	return &ChatTaskFactory{pipeline: pipeline}, nil
}

// CreateTask returns a pending chat reply task.
func (f *ChatTaskFactory) CreateTask(id uuid.UUID, payload ChatPayload) (*ChatReplyTask, error) {
	if payload.SessionID == uuid.Nil {
		return nil, ErrEmptySessionID
	}
	if payload.UserID == uuid.Nil {
		return nil, ErrEmptyUserID
	}
	if payload.MessageID == uuid.Nil {
		return nil, ErrEmptyMessageID
	}
	return &ChatReplyTask{
		id:       id,
		payload:  payload,
		pipeline: f.pipeline,
		status:   TaskStatusPending,
	}, nil
}

// Restore rebuilds a persisted chat reply task.
func (f *ChatTaskFactory) Restore(id uuid.UUID, raw []byte) (Task, error) {
	var payload ChatPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", TaskTypeChatReply, err)
	}
	return f.CreateTask(id, payload)
}
