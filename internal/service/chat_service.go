package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/events"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
	"github.com/phrazzld/edumind-api/internal/store"
	"github.com/phrazzld/edumind-api/internal/task"
)

// ChatService stores project conversations and requests AI replies.
type ChatService struct {
	db       *sql.DB
	projects store.ProjectStore
	chats    store.ChatStore
	profiles store.ProfileStore
	balance  BalanceChecker
	emitter  events.EventEmitter
	pricing  Pricing
	logger   *slog.Logger
}

var _ task.ChatReplyRecorder = (*ChatService)(nil)

// NewChatService creates a ChatService.
func NewChatService(
	db *sql.DB,
	projects store.ProjectStore,
	chats store.ChatStore,
	profiles store.ProfileStore,
	balance BalanceChecker,
	emitter events.EventEmitter,
	pricing Pricing,
	log *slog.Logger,
) *ChatService {
	if log == nil {
		log = slog.Default()
	}
	return &ChatService{
		db:       db,
		projects: projects,
		chats:    chats,
		profiles: profiles,
		balance:  balance,
		emitter:  emitter,
		pricing:  pricing,
		logger:   log.With("component", "chat_service"),
	}
}

// PostMessage appends the caller's message to the project's session,
// creating the session on first use, and requests an AI reply.
func (s *ChatService) PostMessage(ctx context.Context, userID, projectID uuid.UUID, text string) (*domain.ChatSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("user_id", userID, "project_id", projectID)

	if _, err := s.projects.GetForUser(ctx, userID, projectID); err != nil {
		return nil, wrapError("chat", "post_message", "failed to load project", err)
	}
	if err := s.balance.RequireBalance(ctx, userID); err != nil {
		return nil, err
	}

	var session *domain.ChatSession
	var posted *domain.ChatMessage
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		chats := s.chats.WithTx(tx)
		sess, err := chats.GetOrCreateSession(ctx, projectID)
		if err != nil {
			return err
		}
		msg, err := domain.NewChatMessage(sess.ID, domain.SenderUser, text)
		if err != nil {
			return err
		}
		if err := chats.AddMessage(ctx, msg); err != nil {
			return err
		}
		sess.Messages = append(sess.Messages, *msg)
		session = sess
		posted = msg
		return nil
	})
	if err != nil {
		return nil, wrapError("chat", "post_message", "failed to store message", err)
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeChatReply, userID, task.ChatPayload{
		SessionID: session.ID,
		ProjectID: projectID,
		MessageID: posted.ID,
	})
	if err != nil {
		return nil, wrapError("chat", "post_message", "failed to create event", err)
	}
	event.WithTrace(logger.TraceID(ctx))

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		if !errors.Is(err, task.ErrQueueFull) {
			return nil, wrapError("chat", "post_message", "failed to enqueue reply", err)
		}
		log.Warn("task queue full, reply deferred", "session_id", session.ID, "task_id", event.ID)
	}

	log.Info("chat message posted", "session_id", session.ID, "task_id", event.ID)
	return session, nil
}

// ListSessions returns the caller's sessions with their messages, optionally
// for one project.
func (s *ChatService) ListSessions(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]*domain.ChatSession, error) {
	sessions, err := s.chats.ListSessionsForUser(ctx, userID, projectID)
	if err != nil {
		return nil, wrapError("chat", "list_sessions", "failed to list sessions", err)
	}
	return sessions, nil
}

// Thread returns the USER message messageID with up to historyLimit
// messages that precede it, and whether it already has a reply.
func (s *ChatService) Thread(ctx context.Context, sessionID, messageID uuid.UUID, historyLimit int) (*domain.ChatThread, error) {
	question, err := s.chats.GetMessage(ctx, sessionID, messageID)
	if err != nil {
		return nil, wrapError("chat", "thread", "failed to load message", err)
	}
	if question.Sender != domain.SenderUser {
		return nil, wrapError("chat", "thread", "message is not a question", domain.ErrInvalidSender)
	}
	answered, err := s.chats.HasReply(ctx, messageID)
	if err != nil {
		return nil, wrapError("chat", "thread", "failed to check reply", err)
	}
	history, err := s.chats.MessagesBefore(ctx, sessionID, question.CreatedAt, historyLimit)
	if err != nil {
		return nil, wrapError("chat", "thread", "failed to load history", err)
	}
	return &domain.ChatThread{Question: *question, History: history, Answered: answered}, nil
}

// SaveReply appends the AI answer to questionID and debits its cost in one
// transaction. If another run already answered the question nothing is
// stored or charged.
func (s *ChatService) SaveReply(ctx context.Context, userID, sessionID, questionID uuid.UUID, reply string, usage domain.Usage) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With("session_id", sessionID, "question_id", questionID)
	cost := s.pricing.Cost(usage)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		msg, err := domain.NewChatReply(sessionID, questionID, reply)
		if err != nil {
			return err
		}
		if err := s.chats.WithTx(tx).AddMessage(ctx, msg); err != nil {
			return err
		}
		_, err = s.profiles.WithTx(tx).Debit(ctx, userID, cost)
		return err
	})
	if errors.Is(err, store.ErrReplyExists) {
		log.Info("question already answered, reply discarded")
		return nil
	}
	if err != nil {
		return wrapError("chat", "save_reply", "failed to save reply", err)
	}
	log.Info("chat reply saved", "cost", cost)
	return nil
}
