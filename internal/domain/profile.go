package domain

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNegativeBalance = errors.New("token balance cannot be negative")
	ErrNegativeCost    = errors.New("cost cannot be negative")
)

// UserProfile holds the per-user token balance debited for generation usage.
// Balances are stored as NUMERIC(10,4); RoundTokens applies the same precision.
type UserProfile struct {
	UserID       uuid.UUID `json:"user_id"`
	TokenBalance float64   `json:"token_balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUserProfile creates a profile with the given starting balance.
func NewUserProfile(userID uuid.UUID, balance float64) (*UserProfile, error) {
	now := time.Now().UTC()
	p := &UserProfile{
		UserID:       userID,
		TokenBalance: RoundTokens(balance),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks if the UserProfile has valid data.
func (p *UserProfile) Validate() error {
	if p.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if p.TokenBalance < 0 {
		return ErrNegativeBalance
	}
	return nil
}

// CanAfford reports whether the balance covers at least minimum.
func (p *UserProfile) CanAfford(minimum float64) bool {
	return p.TokenBalance >= minimum
}

// RoundTokens rounds an amount to four decimal places.
func RoundTokens(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Usage is the token consumption reported by the generation service for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Add returns the sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
	}
}

// Cost prices the usage with per-token input and output rates.
func (u Usage) Cost(inputPrice, outputPrice float64) float64 {
	return RoundTokens(float64(u.PromptTokens)*inputPrice + float64(u.CompletionTokens)*outputPrice)
}
