package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
	"github.com/phrazzld/edumind-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// PostgresUserStore implements store.UserStore.
type PostgresUserStore struct {
	db         store.DBTX
	bcryptCost int
	logger     *slog.Logger
}

// NewPostgresUserStore creates a user store. bcryptCost outside bcrypt's
// accepted range falls back to bcrypt.DefaultCost.
func NewPostgresUserStore(db store.DBTX, bcryptCost int, logger *slog.Logger) *PostgresUserStore {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserStore{
		db:         db,
		bcryptCost: bcryptCost,
		logger:     logger.With("component", "user_store"),
	}
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// Create validates the user, hashes the plaintext password and inserts the row.
// The plaintext is cleared from user afterwards.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, string(hash), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrEmailExists
		}
		log.Error("failed to create user", "user_id", user.ID, "error", err)
		return MapError(err)
	}

	user.HashedPassword = string(hash)
	user.Password = ""
	log.Debug("user created", "user_id", user.ID)
	return nil
}

// GetByID implements store.UserStore.
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.get(ctx, `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
}

// GetByEmail looks the user up by normalized email.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.get(ctx, `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM users WHERE email = $1
	`, strings.TrimSpace(strings.ToLower(email)))
}

func (s *PostgresUserStore) get(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get user", "error", err)
		return nil, MapError(err)
	}
	return &u, nil
}

// WithTx implements store.UserStore.
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, bcryptCost: s.bcryptCost, logger: s.logger}
}

// PostgresProfileStore implements store.ProfileStore.
type PostgresProfileStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProfileStore creates a profile store.
func NewPostgresProfileStore(db store.DBTX, logger *slog.Logger) *PostgresProfileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProfileStore{db: db, logger: logger.With("component", "profile_store")}
}

var _ store.ProfileStore = (*PostgresProfileStore)(nil)

// GetOrCreate inserts a profile if none exists, then reads it back. Concurrent
// callers race on the primary key and both read the winner's row.
func (s *PostgresProfileStore) GetOrCreate(ctx context.Context, userID uuid.UUID, defaultBalance float64) (*domain.UserProfile, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, token_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, domain.RoundTokens(defaultBalance), now)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return nil, store.ErrUserNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create profile", "user_id", userID, "error", err)
		return nil, MapError(err)
	}

	var p domain.UserProfile
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id, token_balance, created_at, updated_at
		FROM user_profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.TokenBalance, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProfileNotFound
		}
		return nil, MapError(err)
	}
	return &p, nil
}

// Debit subtracts amount in one conditional update. When no row matches it
// distinguishes a missing profile from an insufficient balance.
func (s *PostgresProfileStore) Debit(ctx context.Context, userID uuid.UUID, amount float64) (*domain.UserProfile, error) {
	if amount < 0 {
		return nil, domain.ErrNegativeCost
	}
	amount = domain.RoundTokens(amount)

	var p domain.UserProfile
	err := s.db.QueryRowContext(ctx, `
		UPDATE user_profiles
		SET token_balance = token_balance - $1, updated_at = $2
		WHERE user_id = $3 AND token_balance >= $1
		RETURNING user_id, token_balance, created_at, updated_at
	`, amount, time.Now().UTC(), userID).Scan(&p.UserID, &p.TokenBalance, &p.CreatedAt, &p.UpdatedAt)
	if err == nil {
		logger.FromContextOrDefault(ctx, s.logger).Debug("tokens debited",
			"user_id", userID, "amount", amount, "balance", p.TokenBalance)
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, MapError(err)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_profiles WHERE user_id = $1)`, userID,
	).Scan(&exists); err != nil {
		return nil, MapError(err)
	}
	if !exists {
		return nil, store.ErrProfileNotFound
	}
	return nil, store.ErrInsufficientTokens
}

// WithTx implements store.ProfileStore.
func (s *PostgresProfileStore) WithTx(tx *sql.Tx) store.ProfileStore {
	return &PostgresProfileStore{db: tx, logger: s.logger}
}
