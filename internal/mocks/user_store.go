package mocks

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// MockUserStore implements store.UserStore. Create hashes the plaintext
// password with bcrypt.MinCost.
type MockUserStore struct {
	mu          sync.Mutex
	Users       map[uuid.UUID]*domain.User
	CreateError error
	GetError    error
}

// NewMockUserStore creates an empty MockUserStore.
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{Users: make(map[uuid.UUID]*domain.User)}
}

func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	for _, u := range m.Users {
		if u.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	if user.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
		if err != nil {
			return err
		}
		user.HashedPassword = string(hash)
		user.Password = ""
	}
	stored := *user
	m.Users[user.ID] = &stored
	return nil
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.Users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *MockUserStore) WithTx(*sql.Tx) store.UserStore { return m }

// MockProfileStore implements store.ProfileStore over a balance map.
type MockProfileStore struct {
	mu         sync.Mutex
	Balances   map[uuid.UUID]float64
	Debits     []float64
	GetError   error
	DebitError error
}

// NewMockProfileStore creates an empty MockProfileStore.
func NewMockProfileStore() *MockProfileStore {
	return &MockProfileStore{Balances: make(map[uuid.UUID]float64)}
}

func (m *MockProfileStore) GetOrCreate(ctx context.Context, userID uuid.UUID, defaultBalance float64) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	balance, ok := m.Balances[userID]
	if !ok {
		balance = domain.RoundTokens(defaultBalance)
		m.Balances[userID] = balance
	}
	return &domain.UserProfile{UserID: userID, TokenBalance: balance}, nil
}

// Debit mirrors the conditional update: it never takes a balance below zero.
func (m *MockProfileStore) Debit(ctx context.Context, userID uuid.UUID, amount float64) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DebitError != nil {
		return nil, m.DebitError
	}
	if amount < 0 {
		return nil, domain.ErrNegativeCost
	}
	balance, ok := m.Balances[userID]
	if !ok {
		return nil, store.ErrProfileNotFound
	}
	amount = domain.RoundTokens(amount)
	if balance < amount {
		return nil, store.ErrInsufficientTokens
	}
	m.Balances[userID] = domain.RoundTokens(balance - amount)
	m.Debits = append(m.Debits, amount)
	return &domain.UserProfile{UserID: userID, TokenBalance: m.Balances[userID]}, nil
}

func (m *MockProfileStore) WithTx(*sql.Tx) store.ProfileStore { return m }

// Balance returns the stored balance for userID.
func (m *MockProfileStore) Balance(userID uuid.UUID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Balances[userID]
}
