package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/generation"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
	"github.com/phrazzld/edumind-api/internal/store"
)

// Common errors
var (
	ErrEmptyContentID = errors.New("content ID cannot be empty")
	ErrEmptyUserID    = errors.New("user ID cannot be empty")
	ErrNilDependency  = errors.New("task dependency cannot be nil")
)

// JobPayload is the persisted form of a generation job task.
type JobPayload struct {
	ContentID uuid.UUID `json:"content_id"`
	UserID    uuid.UUID `json:"user_id"`
	TraceID   string    `json:"trace_id,omitempty"`
}

func (p JobPayload) validate() error {
	if p.ContentID == uuid.Nil {
		return ErrEmptyContentID
	}
	if p.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	return nil
}

// ContentPipeline holds what a generation job needs to run.
type ContentPipeline struct {
	Contents     ContentReader
	Projects     ProjectReader
	Documents    DocumentReader
	Generator    generation.Generator
	Speech       generation.Synthesizer
	Artifacts    ArtifactStore
	Finalizer    ContentFinalizer
	ContextChars int
	Logger       *slog.Logger
}

func (p *ContentPipeline) validate() error {
	switch {
	case p.Contents == nil, p.Projects == nil, p.Documents == nil, p.Generator == nil,
		p.Speech == nil, p.Artifacts == nil, p.Finalizer == nil, p.Logger == nil:
		return ErrNilDependency
	}
	return nil
}

// ContentGenerationTask drives one GeneratedContent row from PENDING to a
// terminal status. The same type serves TaskTypeContentGeneration, which
// generates from the project's document, and TaskTypePodcastAudio, which
// narrates a client-supplied script.
type ContentGenerationTask struct {
	id       uuid.UUID
	taskType string
	payload  JobPayload
	pipeline *ContentPipeline
	status   TaskStatus
}

// ID returns the task's unique identifier
func (t *ContentGenerationTask) ID() uuid.UUID { return t.id }

// Type returns the task type identifier
func (t *ContentGenerationTask) Type() string { return t.taskType }

// Status returns the current task status
func (t *ContentGenerationTask) Status() TaskStatus { return t.status }

// Payload returns the task data as a byte slice
func (t *ContentGenerationTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		t.pipeline.Logger.Error("failed to marshal task payload", "task_id", t.id, "error", err)
		return []byte{}
	}
	return data
}

// artifact is a produced file ready for upload.
type artifact struct {
	data        []byte
	contentType string
	usage       domain.Usage
}

// Execute runs the job. A failure after the job row is loaded marks the row
// FAILURE; cancellation leaves it PENDING so recovery can run it again.
func (t *ContentGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	log := logger.FromContextOrDefault(ctx, t.pipeline.Logger).With(
		"content_id", t.payload.ContentID,
		"user_id", t.payload.UserID,
	)
	if t.payload.TraceID != "" {
		log = log.With("trace_id", t.payload.TraceID)
	}
	ctx = logger.WithLogger(ctx, log)

	content, err := t.pipeline.Contents.GetByID(ctx, t.payload.ContentID)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to load content: %w", err)
	}
	if content.Status.IsTerminal() {
		log.Info("content already finalized, skipping", "content_status", content.Status)
		t.status = TaskStatusCompleted
		return nil
	}

	key, url, usage, err := t.produce(ctx, content)
	if err != nil {
		return t.fail(ctx, log, content.ID, err)
	}

	err = t.pipeline.Finalizer.Complete(ctx, t.payload.UserID, content.ID, url, usage)
	switch {
	case err == nil:
		t.status = TaskStatusCompleted
		log.Info("content generated", "file_url", url,
			"prompt_tokens", usage.PromptTokens,
			"completion_tokens", usage.CompletionTokens)
		return nil
	case errors.Is(err, store.ErrAlreadyFinalized):
		t.status = TaskStatusCompleted
		log.Warn("content finalized by another run, discarding artifact")
		t.discard(ctx, log, key)
		return nil
	default:
		t.discard(ctx, log, key)
		return t.fail(ctx, log, content.ID, fmt.Errorf("failed to complete content: %w", err))
	}
}

// fail records cause on the job unless ctx was cancelled.
func (t *ContentGenerationTask) fail(ctx context.Context, log *slog.Logger, contentID uuid.UUID, cause error) error {
	if ctx.Err() != nil {
		t.status = TaskStatusPending
		return cause
	}
	t.status = TaskStatusFailed
	log.Error("content generation failed", "error", cause)
	if err := t.pipeline.Finalizer.Fail(ctx, contentID, cause); err != nil &&
		!errors.Is(err, store.ErrAlreadyFinalized) {
		log.Error("failed to mark content failed", "error", err)
	}
	return cause
}

func (t *ContentGenerationTask) discard(ctx context.Context, log *slog.Logger, key string) {
	if err := t.pipeline.Artifacts.Delete(ctx, key); err != nil {
		log.Warn("failed to delete discarded artifact", "key", key, "error", err)
	}
}

// produce builds and uploads the artifact, returning its key and URL.
func (t *ContentGenerationTask) produce(
	ctx context.Context,
	content *domain.GeneratedContent,
) (string, string, domain.Usage, error) {
	project, err := t.pipeline.Projects.GetByID(ctx, content.ProjectID)
	if err != nil {
		return "", "", domain.Usage{}, fmt.Errorf("failed to load project: %w", err)
	}

	var out *artifact
	if t.taskType == TaskTypePodcastAudio {
		out, err = t.narrate(ctx, content)
	} else {
		out, err = t.generate(ctx, content, project)
	}
	if err != nil {
		return "", "", domain.Usage{}, err
	}

	key := ArtifactKey(project.ID, content.ID, content.ContentType.ArtifactName())
	url, err := t.pipeline.Artifacts.Put(ctx, key, out.data, out.contentType)
	if err != nil {
		return "", "", domain.Usage{}, fmt.Errorf("failed to upload artifact: %w", err)
	}
	return key, url, out.usage, nil
}

func (t *ContentGenerationTask) generate(
	ctx context.Context,
	content *domain.GeneratedContent,
	project *domain.Project,
) (*artifact, error) {
	opts, err := domain.ParseOptions(content.ContentType, content.Options)
	if err != nil {
		return nil, err
	}

	text, err := t.pipeline.Documents.ReadText(ctx, project.FileKey, t.pipeline.ContextChars)
	if err != nil {
		return nil, fmt.Errorf("failed to read source document: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, generation.ErrEmptyInput
	}

	gen := t.pipeline.Generator
	var (
		result any
		usage  domain.Usage
	)
	switch o := opts.(type) {
	case *domain.PresentationOptions:
		result, usage, err = gen.GeneratePresentation(ctx, text, *o)
	case *domain.FlashcardOptions:
		result, usage, err = gen.GenerateFlashcards(ctx, text, *o)
	case *domain.QuizOptions:
		result, usage, err = gen.GenerateQuiz(ctx, text, *o)
	case *domain.PodcastOptions:
		return t.podcast(ctx, project, text, o)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidContentType, content.ContentType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", content.ContentType, err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifact: %w", err)
	}
	return &artifact{data: data, contentType: "application/json", usage: usage}, nil
}

func (t *ContentGenerationTask) podcast(
	ctx context.Context,
	project *domain.Project,
	text string,
	opts *domain.PodcastOptions,
) (*artifact, error) {
	script, usage, err := t.pipeline.Generator.GeneratePodcastScript(ctx, project.Name, text, opts.PodcastScriptOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to generate podcast script: %w", err)
	}

	audio, err := t.pipeline.Speech.Synthesize(ctx, script.Body, opts.VoiceOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize podcast: %w", err)
	}
	return &artifact{data: audio, contentType: "audio/mpeg", usage: usage}, nil
}

func (t *ContentGenerationTask) narrate(ctx context.Context, content *domain.GeneratedContent) (*artifact, error) {
	opts, err := domain.ParsePodcastAudioOptions(content.Options)
	if err != nil {
		return nil, err
	}

	audio, err := t.pipeline.Speech.Synthesize(ctx, opts.ScriptText, opts.VoiceOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize podcast: %w", err)
	}
	return &artifact{data: audio, contentType: "audio/mpeg"}, nil
}

// ContentTaskFactory builds generation job tasks.
type ContentTaskFactory struct {
	pipeline *ContentPipeline
}

// NewContentTaskFactory creates a factory after checking the pipeline is complete.
func NewContentTaskFactory(pipeline *ContentPipeline) (*ContentTaskFactory, error) {
	if pipeline == nil {
		return nil, ErrNilDependency
	}
	if err := pipeline.validate(); err != nil {
		return nil, err
	}
	pipeline.Logger = pipeline.Logger.With("component", "content_generation")
	return &ContentTaskFactory{pipeline: pipeline}, nil
}

// CreateTask returns a pending task of taskType for the given job.
func (f *ContentTaskFactory) CreateTask(id uuid.UUID, taskType string, payload JobPayload) (*ContentGenerationTask, error) {
	if taskType != TaskTypeContentGeneration && taskType != TaskTypePodcastAudio {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	return &ContentGenerationTask{
		id:       id,
		taskType: taskType,
		payload:  payload,
		pipeline: f.pipeline,
		status:   TaskStatusPending,
	}, nil
}

// Restorer returns the RestoreFunc for taskType.
func (f *ContentTaskFactory) Restorer(taskType string) RestoreFunc {
	return func(id uuid.UUID, raw []byte) (Task, error) {
		var payload JobPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", taskType, err)
		}
		return f.CreateTask(id, taskType, payload)
	}
}
