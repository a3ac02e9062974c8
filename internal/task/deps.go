package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
)

// ContentReader loads generation jobs.
type ContentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GeneratedContent, error)
}

// ProjectReader loads projects without owner scoping.
type ProjectReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
}

// DocumentReader returns the plain text of an uploaded source file,
// truncated to at most limit characters.
type DocumentReader interface {
	ReadText(ctx context.Context, fileKey string, limit int) (string, error)
}

// ArtifactStore holds generated artifacts.
type ArtifactStore interface {
	// Put stores data under key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ContentFinalizer performs the single terminal transition of a job.
type ContentFinalizer interface {
	// Complete marks the job SUCCESS and debits the owner for usage in one
	// transaction. It returns store.ErrInsufficientTokens without changing
	// anything when the balance cannot cover the cost, and
	// store.ErrAlreadyFinalized when the job is no longer PENDING.
	Complete(ctx context.Context, userID, contentID uuid.UUID, fileURL string, usage domain.Usage) error

	// Fail marks the job FAILURE with a redacted form of cause.
	Fail(ctx context.Context, contentID uuid.UUID, cause error) error
}

// ChatReplyRecorder stores assistant replies.
type ChatReplyRecorder interface {
	// Thread returns the question messageID, up to historyLimit messages
	// before it, and whether it has been answered.
	Thread(ctx context.Context, sessionID, messageID uuid.UUID, historyLimit int) (*domain.ChatThread, error)

	// SaveReply appends the AI answer to questionID and debits the owner for
	// usage in one transaction.
	SaveReply(ctx context.Context, userID, sessionID, questionID uuid.UUID, reply string, usage domain.Usage) error
}

// ArtifactKey returns the object key for a job's artifact.
func ArtifactKey(projectID, contentID uuid.UUID, name string) string {
	return fmt.Sprintf("generated/%s/%s_%s", projectID, contentID, name)
}
