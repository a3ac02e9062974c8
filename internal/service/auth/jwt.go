// Package auth issues and validates the bearer tokens that authenticate API
// requests, and verifies passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/config"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
)

// Token types carried in the "type" claim.
const (
	AccessToken  = "access"
	RefreshToken = "refresh"
)

const minSecretLength = 32

// Claims is the validated content of a token.
type Claims struct {
	UserID    uuid.UUID
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// TokenPair is returned on login, registration and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type tokenClaims struct {
	UserID    uuid.UUID `json:"uid"`
	TokenType string    `json:"type"`
	jwt.RegisteredClaims
}

// JWTService signs and validates HS256 tokens.
type JWTService struct {
	secret    []byte
	lifetimes map[string]time.Duration
	now       func() time.Time
	leeway    time.Duration
}

// NewJWTService creates a JWTService from cfg.
func NewJWTService(cfg config.AuthConfig) (*JWTService, error) {
	if len(cfg.JWTSecret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength)
	}
	return &JWTService{
		secret: []byte(cfg.JWTSecret),
		lifetimes: map[string]time.Duration{
			AccessToken:  time.Duration(cfg.TokenLifetimeMinutes) * time.Minute,
			RefreshToken: time.Duration(cfg.RefreshTokenLifetimeMinutes) * time.Minute,
		},
		now:    time.Now,
		leeway: 2 * time.Minute,
	}, nil
}

// IssuePair signs a new access and refresh token for userID.
func (s *JWTService) IssuePair(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
	access, expiresAt, err := s.sign(ctx, userID, AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.sign(ctx, userID, RefreshToken)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

// ValidateToken validates an access token.
func (s *JWTService) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	return s.validate(ctx, token, AccessToken)
}

// ValidateRefreshToken validates a refresh token.
func (s *JWTService) ValidateRefreshToken(ctx context.Context, token string) (*Claims, error) {
	return s.validate(ctx, token, RefreshToken)
}

func (s *JWTService) sign(ctx context.Context, userID uuid.UUID, tokenType string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.lifetimes[tokenType])
	claims := tokenClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		logger.FromContext(ctx).Error("failed to sign token",
			"error", err,
			"user_id", userID,
			"token_type", tokenType)
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, expiresAt, nil
}

func (s *JWTService) validate(ctx context.Context, tokenString, tokenType string) (*Claims, error) {
	log := logger.FromContext(ctx)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		log.Debug("token validation failed", "error", err, "token_type", tokenType)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		log.Debug("token has wrong type", "expected", tokenType, "actual", claims.TokenType)
		return nil, ErrWrongTokenType
	}

	return &Claims{
		UserID:    claims.UserID,
		TokenType: claims.TokenType,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}, nil
}
