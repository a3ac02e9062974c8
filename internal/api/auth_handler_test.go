package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandlerRegisterLoginRefresh(t *testing.T) {
	f := newAPIFixture(t)
	creds := RegisterRequest{Email: "grace@example.com", Password: "a-very-long-password"}

	f.expectTx()
	w := f.do(t, http.MethodPost, "/api/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	registered := decodeBody[AuthResponse](t, w)
	assert.NotEqual(t, uuid.Nil, registered.UserID)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)

	f.expectRollback()
	w = f.do(t, http.MethodPost, "/api/auth/register", "", creds)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already exists", decodeBody[shared.ErrorResponse](t, w).Error)

	w = f.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: creds.Email, Password: creds.Password})
	require.Equal(t, http.StatusOK, w.Code)
	login := decodeBody[AuthResponse](t, w)
	assert.Equal(t, registered.UserID, login.UserID)

	w = f.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: creds.Email, Password: "wrong-password-here"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decodeBody[shared.ErrorResponse](t, w).Error)

	w = f.do(t, http.MethodPost, "/api/auth/refresh", "", RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, registered.UserID, decodeBody[AuthResponse](t, w).UserID)

	w = f.do(t, http.MethodPost, "/api/auth/refresh", "", RefreshTokenRequest{RefreshToken: login.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "access tokens cannot refresh")

	w = f.do(t, http.MethodGet, "/api/users/me/", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decodeBody[UserResponse](t, w)
	assert.Equal(t, "grace@example.com", me.Email)
	assert.Equal(t, 10.0, me.TokenBalance)

	require.NoError(t, f.sqlMock.ExpectationsWereMet())
}

func TestAuthHandlerValidation(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name string
		path string
		body any
		want string
	}{
		{"malformed json", "/api/auth/register", `{"email":`, "Invalid request format"},
		{"empty body", "/api/auth/login", nil, "Invalid request format"},
		{"bad email", "/api/auth/register", RegisterRequest{Email: "nope", Password: "a-very-long-password"}, "Invalid email: invalid email format"},
		{"short password", "/api/auth/register", RegisterRequest{Email: "a@b.co", Password: "short"}, "Invalid password: too short"},
		{"missing refresh token", "/api/auth/refresh", map[string]string{}, "Invalid refresh_token: required field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, decodeBody[shared.ErrorResponse](t, w).Error)
		})
	}
}

func TestAuthHandlerUnknownUser(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/api/users/me/", f.token(t, uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decodeBody[shared.ErrorResponse](t, w).Error)
}
