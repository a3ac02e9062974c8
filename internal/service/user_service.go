package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/config"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
	"github.com/phrazzld/edumind-api/internal/store"
)

// PasswordVerifier compares a stored hash with a plaintext password.
type PasswordVerifier interface {
	Compare(hashedPassword, password string) error
}

// Account is a user together with their token balance.
type Account struct {
	User    *domain.User
	Profile *domain.UserProfile
}

// UserService registers and authenticates users and manages token balances.
type UserService struct {
	db       *sql.DB
	users    store.UserStore
	profiles store.ProfileStore
	verifier PasswordVerifier
	billing  config.BillingConfig
	logger   *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(
	db *sql.DB,
	users store.UserStore,
	profiles store.ProfileStore,
	verifier PasswordVerifier,
	billing config.BillingConfig,
	log *slog.Logger,
) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{
		db:       db,
		users:    users,
		profiles: profiles,
		verifier: verifier,
		billing:  billing,
		logger:   log.With("component", "user_service"),
	}
}

// Register creates a user and their profile with the default balance in one
// transaction.
func (s *UserService) Register(ctx context.Context, email, password string) (*Account, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(email, password)
	if err != nil {
		return nil, err
	}

	var account *Account
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		profile, err := s.profiles.WithTx(tx).GetOrCreate(ctx, user.ID, s.billing.DefaultBalance)
		if err != nil {
			return err
		}
		account = &Account{User: user, Profile: profile}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("registration with existing email", "email", user.Email)
		} else {
			log.Error("failed to register user", "error", err)
		}
		return nil, wrapError("user", "register", "failed to create user", err)
	}

	log.Info("user registered", "user_id", user.ID)
	return account, nil
}

// Authenticate returns the user for email when password matches.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, wrapError("user", "authenticate", "failed to load user", err)
	}
	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Debug("password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Account returns the user and their profile, creating the profile with the
// default balance if it does not exist yet.
func (s *UserService) Account(ctx context.Context, userID uuid.UUID) (*Account, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapError("user", "account", "failed to load user", err)
	}
	profile, err := s.profiles.GetOrCreate(ctx, userID, s.billing.DefaultBalance)
	if err != nil {
		return nil, wrapError("user", "account", "failed to load profile", err)
	}
	return &Account{User: user, Profile: profile}, nil
}

// RequireBalance returns store.ErrInsufficientTokens unless the user's
// balance covers the minimum needed to start a generation.
func (s *UserService) RequireBalance(ctx context.Context, userID uuid.UUID) error {
	profile, err := s.profiles.GetOrCreate(ctx, userID, s.billing.DefaultBalance)
	if err != nil {
		return wrapError("user", "require_balance", "failed to load profile", err)
	}
	if !profile.CanAfford(s.billing.MinimumBalance) {
		logger.FromContextOrDefault(ctx, s.logger).Info("balance below generation minimum",
			"user_id", userID,
			"balance", profile.TokenBalance,
			"minimum", s.billing.MinimumBalance)
		return store.ErrInsufficientTokens
	}
	return nil
}
