package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/events"
	"github.com/phrazzld/edumind-api/internal/generation"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
	"github.com/phrazzld/edumind-api/internal/redact"
	"github.com/phrazzld/edumind-api/internal/store"
	"github.com/phrazzld/edumind-api/internal/task"
)

// BalanceChecker rejects work for users below the generation minimum.
type BalanceChecker interface {
	RequireBalance(ctx context.Context, userID uuid.UUID) error
}

// DocumentReader returns the text of an uploaded source document.
type DocumentReader interface {
	ReadText(ctx context.Context, fileKey string, limit int) (string, error)
}

// Pricing converts generation usage into tokens debited from a balance.
type Pricing struct {
	InputTokenPrice  float64
	OutputTokenPrice float64
}

// Cost prices usage.
func (p Pricing) Cost(usage domain.Usage) float64 {
	return usage.Cost(p.InputTokenPrice, p.OutputTokenPrice)
}

// ContentDeps groups the collaborators of ContentService.
type ContentDeps struct {
	DB           *sql.DB
	Projects     store.ProjectStore
	Contents     store.ContentStore
	Profiles     store.ProfileStore
	Balance      BalanceChecker
	Emitter      events.EventEmitter
	Documents    DocumentReader
	Generator    generation.Generator
	Pricing      Pricing
	ContextChars int
	Logger       *slog.Logger
}

// ContentService submits generation jobs, serves their status and performs
// their terminal transition.
type ContentService struct {
	ContentDeps
	logger *slog.Logger
}

var _ task.ContentFinalizer = (*ContentService)(nil)

// NewContentService creates a ContentService.
func NewContentService(deps ContentDeps) (*ContentService, error) {
	if deps.DB == nil || deps.Projects == nil || deps.Contents == nil || deps.Profiles == nil ||
		deps.Balance == nil || deps.Emitter == nil || deps.Documents == nil || deps.Generator == nil {
		return nil, &OpError{Service: "content", Operation: "create_service", Message: "missing dependency"}
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &ContentService{ContentDeps: deps, logger: log.With("component", "content_service")}, nil
}

// Submit validates a generation request and creates a PENDING job for it.
// Unknown content types and out-of-range options are rejected before any
// row is written.
func (s *ContentService) Submit(ctx context.Context, userID, projectID uuid.UUID, contentType string, params json.RawMessage) (*domain.GeneratedContent, error) {
	ct, err := domain.ParseContentType(contentType)
	if err != nil {
		return nil, err
	}
	opts, err := domain.ParseOptions(ct, params)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, userID, projectID, ct, opts, task.TaskTypeContentGeneration)
}

// SubmitPodcastAudio creates a PODCAST job that narrates a client-supplied script.
func (s *ContentService) SubmitPodcastAudio(ctx context.Context, userID, projectID uuid.UUID, params json.RawMessage) (*domain.GeneratedContent, error) {
	opts, err := domain.ParsePodcastAudioOptions(params)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, userID, projectID, domain.ContentTypePodcast, opts, task.TaskTypePodcastAudio)
}

func (s *ContentService) submit(
	ctx context.Context,
	userID, projectID uuid.UUID,
	ct domain.ContentType,
	opts any,
	taskType string,
) (*domain.GeneratedContent, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		"user_id", userID,
		"project_id", projectID,
		"content_type", ct)

	if _, err := s.Projects.GetForUser(ctx, userID, projectID); err != nil {
		return nil, wrapError("content", "submit", "failed to load project", err)
	}
	if err := s.Balance.RequireBalance(ctx, userID); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(opts)
	if err != nil {
		return nil, wrapError("content", "submit", "failed to encode options", err)
	}
	content, err := domain.NewGeneratedContent(projectID, ct, raw)
	if err != nil {
		return nil, err
	}

	event, err := events.NewTaskRequestEvent(taskType, userID, task.JobPayload{ContentID: content.ID})
	if err != nil {
		return nil, wrapError("content", "submit", "failed to create event", err)
	}
	event.WithTrace(logger.TraceID(ctx))
	content.TaskID = event.ID

	err = store.RunInTransaction(ctx, s.DB, func(ctx context.Context, tx *sql.Tx) error {
		return s.Contents.WithTx(tx).Create(ctx, content)
	})
	if err != nil {
		log.Error("failed to create content", "error", err)
		return nil, wrapError("content", "submit", "failed to save content", err)
	}

	if err := s.Emitter.EmitEvent(ctx, event); err != nil {
		if errors.Is(err, task.ErrQueueFull) {
			// The task row exists; the runner's sweep enqueues it later.
			log.Warn("task queue full, job deferred", "content_id", content.ID, "task_id", event.ID)
			return content, nil
		}
		log.Error("failed to enqueue job", "error", err, "content_id", content.ID)
		if failErr := s.Fail(ctx, content.ID, fmt.Errorf("failed to enqueue job: %w", err)); failErr != nil {
			log.Error("failed to mark unqueued content failed", "error", failErr, "content_id", content.ID)
		}
		return nil, wrapError("content", "submit", "failed to enqueue job", err)
	}

	log.Info("content job submitted", "content_id", content.ID, "task_id", event.ID)
	return content, nil
}

// Get returns a job scoped to the caller's projects.
func (s *ContentService) Get(ctx context.Context, userID, contentID uuid.UUID) (*domain.GeneratedContent, error) {
	content, err := s.Contents.GetForUser(ctx, userID, contentID)
	if err != nil {
		return nil, wrapError("content", "get", "failed to load content", err)
	}
	return content, nil
}

// List returns the caller's jobs, optionally for one project.
func (s *ContentService) List(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]*domain.GeneratedContent, error) {
	contents, err := s.Contents.ListForUser(ctx, userID, store.ContentFilter{ProjectID: projectID})
	if err != nil {
		return nil, wrapError("content", "list", "failed to list content", err)
	}
	return contents, nil
}

// GeneratePodcastScript writes a podcast script for the project synchronously
// and debits its cost. The script is discarded when the balance cannot
// cover it.
func (s *ContentService) GeneratePodcastScript(ctx context.Context, userID, projectID uuid.UUID, params json.RawMessage) (*domain.PodcastScript, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("user_id", userID, "project_id", projectID)

	opts, err := domain.ParsePodcastScriptOptions(params)
	if err != nil {
		return nil, err
	}
	project, err := s.Projects.GetForUser(ctx, userID, projectID)
	if err != nil {
		return nil, wrapError("content", "podcast_script", "failed to load project", err)
	}
	if err := s.Balance.RequireBalance(ctx, userID); err != nil {
		return nil, err
	}

	text, err := s.Documents.ReadText(ctx, project.FileKey, s.ContextChars)
	if err != nil {
		return nil, wrapError("content", "podcast_script", "failed to read document", err)
	}
	script, usage, err := s.Generator.GeneratePodcastScript(ctx, project.Name, text, *opts)
	if err != nil {
		return nil, wrapError("content", "podcast_script", "failed to generate script", err)
	}

	cost := s.Pricing.Cost(usage)
	if _, err := s.Profiles.Debit(ctx, userID, cost); err != nil {
		log.Warn("podcast script not charged", "error", err, "cost", cost)
		return nil, wrapError("content", "podcast_script", "failed to debit tokens", err)
	}
	log.Info("podcast script generated", "cost", cost)
	return script, nil
}

// Complete marks the job SUCCESS with its artifact URL and debits the owner
// for usage, atomically.
func (s *ContentService) Complete(ctx context.Context, userID, contentID uuid.UUID, fileURL string, usage domain.Usage) error {
	cost := s.Pricing.Cost(usage)
	err := store.RunInTransaction(ctx, s.DB, func(ctx context.Context, tx *sql.Tx) error {
		contents := s.Contents.WithTx(tx)
		content, err := contents.GetByID(ctx, contentID)
		if err != nil {
			return err
		}
		if content.Status.IsTerminal() {
			return store.ErrAlreadyFinalized
		}
		if err := content.MarkSucceeded(fileURL, cost); err != nil {
			return err
		}
		if err := contents.Finalize(ctx, content); err != nil {
			return err
		}
		_, err = s.Profiles.WithTx(tx).Debit(ctx, userID, cost)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyFinalized) {
			return err
		}
		return wrapError("content", "complete", "failed to finalize content", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("content succeeded",
		"content_id", contentID,
		"cost", cost,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens)
	return nil
}

// Fail marks the job FAILURE with a redacted reason. Failed jobs are not charged.
func (s *ContentService) Fail(ctx context.Context, contentID uuid.UUID, cause error) error {
	message := redact.Message(cause)
	err := store.RunInTransaction(ctx, s.DB, func(ctx context.Context, tx *sql.Tx) error {
		contents := s.Contents.WithTx(tx)
		content, err := contents.GetByID(ctx, contentID)
		if err != nil {
			return err
		}
		if content.Status.IsTerminal() {
			return store.ErrAlreadyFinalized
		}
		if err := content.MarkFailed(message, 0); err != nil {
			return err
		}
		return contents.Finalize(ctx, content)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyFinalized) {
			return err
		}
		return wrapError("content", "fail", "failed to record failure", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("content failed",
		"content_id", contentID,
		"reason", message)
	return nil
}
