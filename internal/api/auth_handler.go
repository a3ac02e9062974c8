package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/api/shared"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
	"github.com/phrazzld/edumind-api/internal/service"
	"github.com/phrazzld/edumind-api/internal/service/auth"
)

// AccountService registers, authenticates and describes users.
type AccountService interface {
	Register(ctx context.Context, email, password string) (*service.Account, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	Account(ctx context.Context, userID uuid.UUID) (*service.Account, error)
}

// TokenIssuer issues token pairs and validates refresh tokens.
type TokenIssuer interface {
	IssuePair(ctx context.Context, userID uuid.UUID) (*auth.TokenPair, error)
	ValidateRefreshToken(ctx context.Context, token string) (*auth.Claims, error)
}

// AuthHandler serves the authentication and account endpoints.
type AuthHandler struct {
	accounts AccountService
	tokens   TokenIssuer
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(accounts AccountService, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return
	}

	account, err := h.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create user")
		return
	}
	h.respondWithTokens(w, r, http.StatusCreated, account.User.ID)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to authenticate user")
		return
	}
	h.respondWithTokens(w, r, http.StatusOK, user.ID)
}

// RefreshToken handles POST /api/auth/refresh. It exchanges a refresh token
// for a new pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return
	}

	claims, err := h.tokens.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Refresh token expired", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid refresh token", err)
		return
	}
	h.respondWithTokens(w, r, http.StatusOK, claims.UserID)
}

// Me handles GET /api/users/me/.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.Account(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, UserResponse{
		ID:           account.User.ID,
		Email:        account.User.Email,
		TokenBalance: account.Profile.TokenBalance,
	})
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, status int, userID uuid.UUID) {
	pair, err := h.tokens.IssuePair(r.Context(), userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to issue tokens", "error", err, "user_id", userID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}
	shared.RespondWithJSON(w, r, status, AuthResponse{
		UserID:       userID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	})
}
