package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/api/middleware"
	"github.com/phrazzld/edumind-api/internal/config"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/mocks"
	"github.com/phrazzld/edumind-api/internal/service"
	"github.com/phrazzld/edumind-api/internal/service/auth"
	"github.com/stretchr/testify/require"
)

const testMaxUpload = 64

// apiFixture serves the handlers over real services backed by in-memory
// stores. The sqlmock database only sees transaction boundaries.
type apiFixture struct {
	db       *sql.DB
	sqlMock  sqlmock.Sqlmock
	jwt      *auth.JWTService
	profiles *mocks.MockProfileStore
	projects *mocks.MockProjectStore
	contents *mocks.MockContentStore
	objects  *mocks.MockObjectStore
	emitter  *mocks.MockEventEmitter
	router   http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	jwtSvc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   "test-secret-that-is-long-enough-1234",
		TokenLifetimeMinutes:        15,
		RefreshTokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := mocks.NewMockUserStore()
	f := &apiFixture{
		db:       db,
		sqlMock:  sqlMock,
		jwt:      jwtSvc,
		profiles: mocks.NewMockProfileStore(),
		projects: mocks.NewMockProjectStore(),
		objects:  mocks.NewMockObjectStore("https://cdn.example"),
		emitter:  &mocks.MockEventEmitter{},
	}
	f.contents = mocks.NewMockContentStore(f.projects)
	chats := mocks.NewMockChatStore(f.projects)
	pricing := service.Pricing{InputTokenPrice: 0.0001, OutputTokenPrice: 0.0002}

	userSvc := service.NewUserService(db, users, f.profiles, auth.BcryptVerifier{},
		config.BillingConfig{DefaultBalance: 10, MinimumBalance: 0.09}, log)
	projectSvc := service.NewProjectService(db, f.projects, f.objects, testMaxUpload, log)
	contentSvc, err := service.NewContentService(service.ContentDeps{
		DB:        db,
		Projects:  f.projects,
		Contents:  f.contents,
		Profiles:  f.profiles,
		Balance:   userSvc,
		Emitter:   f.emitter,
		Documents: &mocks.MockDocumentReader{Text: "Osmosis moves water across membranes."},
		Generator: &mocks.MockGenerator{Usage: domain.Usage{PromptTokens: 100, CompletionTokens: 50}},
		Pricing:   pricing,
		Logger:    log,
	})
	require.NoError(t, err)
	chatSvc := service.NewChatService(db, f.projects, chats, f.profiles, userSvc, f.emitter, pricing, log)

	authHandler := NewAuthHandler(userSvc, jwtSvc)
	projectHandler := NewProjectHandler(projectSvc, contentSvc, testMaxUpload)
	contentHandler := NewContentHandler(contentSvc)
	chatHandler := NewChatHandler(chatSvc)

	r := chi.NewRouter()
	r.Use(middleware.NewTraceMiddleware(log))
	r.Post("/api/auth/register", authHandler.Register)
	r.Post("/api/auth/login", authHandler.Login)
	r.Post("/api/auth/refresh", authHandler.RefreshToken)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(jwtSvc).Authenticate)
		r.Get("/api/users/me/", authHandler.Me)
		r.Post("/api/projects/upload_file/", projectHandler.UploadFile)
		r.Post("/api/projects/", projectHandler.Create)
		r.Get("/api/projects/", projectHandler.List)
		r.Get("/api/projects/{id}/", projectHandler.Get)
		r.Delete("/api/projects/{id}/", projectHandler.Delete)
		r.Put("/api/projects/{id}/update_file/", projectHandler.UpdateFile)
		r.Post("/api/projects/{id}/generate_content/", projectHandler.GenerateContent)
		r.Post("/api/projects/{id}/generate_podcast_script/", projectHandler.GeneratePodcastScript)
		r.Post("/api/projects/{id}/generate_podcast_audio/", projectHandler.GeneratePodcastAudio)
		r.Get("/api/content/", contentHandler.List)
		r.Get("/api/content/{id}/", contentHandler.Get)
		r.Get("/api/chat-sessions/", chatHandler.ListSessions)
		r.Post("/api/chat-sessions/post_message/", chatHandler.PostMessage)
	})
	f.router = r
	return f
}

func (f *apiFixture) expectTx() {
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectCommit()
}

func (f *apiFixture) expectRollback() {
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectRollback()
}

// token returns an access token for userID.
func (f *apiFixture) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	pair, err := f.jwt.IssuePair(context.Background(), userID)
	require.NoError(t, err)
	return pair.AccessToken
}

// project seeds a project owned by a new user with balance tokens.
func (f *apiFixture) project(t *testing.T, balance float64) (*domain.Project, string) {
	t.Helper()
	userID := uuid.New()
	f.profiles.Balances[userID] = balance
	key := "uploads/" + userID.String() + "/1_notes.txt"
	p, err := domain.NewProject(userID, "Membranes", key, f.objects.URL(key), "notes.txt")
	require.NoError(t, err)
	f.projects.Seed(p)
	return p, f.token(t, userID)
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func (f *apiFixture) upload(t *testing.T, method, path, token, fileName string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
