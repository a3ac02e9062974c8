package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user, hashing user.Password.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// WithTx returns a new UserStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}

// ProfileStore persists token balances.
type ProfileStore interface {
	// GetOrCreate returns the profile for userID, inserting one with
	// defaultBalance if none exists.
	GetOrCreate(ctx context.Context, userID uuid.UUID, defaultBalance float64) (*domain.UserProfile, error)

	// Debit subtracts amount from the balance in a single conditional update.
	// Returns ErrInsufficientTokens, leaving the balance unchanged, when the
	// balance is lower than amount, and ErrProfileNotFound if no profile exists.
	Debit(ctx context.Context, userID uuid.UUID, amount float64) (*domain.UserProfile, error)

	WithTx(tx *sql.Tx) ProfileStore
}
