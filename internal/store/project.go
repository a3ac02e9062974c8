package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
)

// ProjectStore defines the interface for project data persistence.
// Lookups are scoped to an owner; a project owned by someone else is reported
// as ErrProjectNotFound.
type ProjectStore interface {
	Create(ctx context.Context, project *domain.Project) error

	// GetByID returns the project regardless of owner. Workers use it.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Project, error)

	// ListByUser returns the user's projects, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error)

	// UpdateFile replaces the source file reference.
	UpdateFile(ctx context.Context, project *domain.Project) error

	// Delete removes the project; content, chat sessions and messages cascade.
	Delete(ctx context.Context, userID, id uuid.UUID) error

	WithTx(tx *sql.Tx) ProjectStore
}

// ContentFilter narrows content listings.
type ContentFilter struct {
	ProjectID *uuid.UUID
}

// ContentStore persists generation jobs and their results.
type ContentStore interface {
	// Create inserts a PENDING row.
	Create(ctx context.Context, content *domain.GeneratedContent) error

	// GetByID returns the row regardless of owner. Workers use it.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GeneratedContent, error)

	// GetForUser returns the row only if its project belongs to userID.
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.GeneratedContent, error)

	// ListForUser returns the user's content, newest first.
	ListForUser(ctx context.Context, userID uuid.UUID, filter ContentFilter) ([]*domain.GeneratedContent, error)

	// Finalize writes a terminal status. The update only applies while the row
	// is PENDING; otherwise ErrAlreadyFinalized is returned.
	Finalize(ctx context.Context, content *domain.GeneratedContent) error

	WithTx(tx *sql.Tx) ContentStore
}

// ChatStore persists chat sessions and messages.
type ChatStore interface {
	// GetOrCreateSession returns the project's session, creating it if needed.
	GetOrCreateSession(ctx context.Context, projectID uuid.UUID) (*domain.ChatSession, error)

	GetSession(ctx context.Context, id uuid.UUID) (*domain.ChatSession, error)

	// ListSessionsForUser returns sessions with their messages in chronological
	// order, optionally limited to one project.
	ListSessionsForUser(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]*domain.ChatSession, error)

	// AddMessage inserts msg. A second reply to the same message returns
	// ErrReplyExists.
	AddMessage(ctx context.Context, msg *domain.ChatMessage) error

	GetMessage(ctx context.Context, sessionID, messageID uuid.UUID) (*domain.ChatMessage, error)

	// HasReply reports whether an AI message answers messageID.
	HasReply(ctx context.Context, messageID uuid.UUID) (bool, error)

	// MessagesBefore returns up to limit of the latest messages created
	// before the given time, oldest first.
	MessagesBefore(ctx context.Context, sessionID uuid.UUID, before time.Time, limit int) ([]domain.ChatMessage, error)

	WithTx(tx *sql.Tx) ChatStore
}
