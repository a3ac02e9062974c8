package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/config"
	"github.com/phrazzld/edumind-api/internal/mocks"
	"github.com/phrazzld/edumind-api/internal/service"
	"github.com/phrazzld/edumind-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApplication(t *testing.T) *application {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080, LogLevel: "info", MaxUploadBytes: 1 << 20},
		Auth: config.AuthConfig{
			JWTSecret:                   "router-test-secret-that-is-32-chars!",
			TokenLifetimeMinutes:        15,
			RefreshTokenLifetimeMinutes: 60,
		},
		Billing: config.BillingConfig{DefaultBalance: 10, MinimumBalance: 0.1},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	jwtSvc, err := auth.NewJWTService(cfg.Auth)
	require.NoError(t, err)

	profiles := mocks.NewMockProfileStore()
	projects := mocks.NewMockProjectStore()
	contents := mocks.NewMockContentStore(projects)
	emitter := &mocks.MockEventEmitter{}
	users := service.NewUserService(db, mocks.NewMockUserStore(), profiles, auth.BcryptVerifier{}, cfg.Billing, log)
	contentSvc, err := service.NewContentService(service.ContentDeps{
		DB:        db,
		Projects:  projects,
		Contents:  contents,
		Profiles:  profiles,
		Balance:   users,
		Emitter:   emitter,
		Documents: &mocks.MockDocumentReader{Text: "text"},
		Generator: &mocks.MockGenerator{},
		Logger:    log,
	})
	require.NoError(t, err)

	return &application{
		config:         cfg,
		logger:         log,
		db:             db,
		jwtService:     jwtSvc,
		userService:    users,
		projectService: service.NewProjectService(db, projects, mocks.NewMockObjectStore("https://cdn.example"), cfg.Server.MaxUploadBytes, log),
		contentService: contentSvc,
		chatService:    service.NewChatService(db, projects, mocks.NewMockChatStore(projects), profiles, users, emitter, service.Pricing{}, log),
	}
}

func TestRouterHealth(t *testing.T) {
	router := newTestApplication(t).setupRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestRouterProtectsRoutes(t *testing.T) {
	router := newTestApplication(t).setupRouter()

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/users/me/"},
		{http.MethodGet, "/api/projects/"},
		{http.MethodPost, "/api/projects/upload_file/"},
		{http.MethodPost, "/api/projects/" + uuid.NewString() + "/generate_content/"},
		{http.MethodGet, "/api/content/"},
		{http.MethodPost, "/api/chat-sessions/post_message/"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(p.method, p.path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouterServesAuthenticatedRoutes(t *testing.T) {
	app := newTestApplication(t)
	router := app.setupRouter()

	pair, err := app.jwtService.IssuePair(context.Background(), uuid.New())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/projects/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRouterRejectsInvalidRegistration(t *testing.T) {
	router := newTestApplication(t).setupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"email":"not-an-email","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
