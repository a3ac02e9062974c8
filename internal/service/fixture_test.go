package service_test

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/config"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/mocks"
	"github.com/phrazzld/edumind-api/internal/service"
	"github.com/phrazzld/edumind-api/internal/service/auth"
	"github.com/stretchr/testify/require"
)

var testBilling = config.BillingConfig{DefaultBalance: 100, MinimumBalance: 1}

var testPricing = service.Pricing{InputTokenPrice: 0.0001, OutputTokenPrice: 0.0002}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture wires the services over in-memory stores and a sqlmock database
// that only sees transaction boundaries.
type fixture struct {
	db       *sql.DB
	sqlMock  sqlmock.Sqlmock
	users    *mocks.MockUserStore
	profiles *mocks.MockProfileStore
	projects *mocks.MockProjectStore
	contents *mocks.MockContentStore
	chats    *mocks.MockChatStore
	objects  *mocks.MockObjectStore
	emitter  *mocks.MockEventEmitter
	docs     *mocks.MockDocumentReader
	gen      *mocks.MockGenerator

	userSvc    *service.UserService
	projectSvc *service.ProjectService
	contentSvc *service.ContentService
	chatSvc    *service.ChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:       db,
		sqlMock:  sqlMock,
		users:    mocks.NewMockUserStore(),
		profiles: mocks.NewMockProfileStore(),
		projects: mocks.NewMockProjectStore(),
		objects:  mocks.NewMockObjectStore("https://cdn.example"),
		emitter:  &mocks.MockEventEmitter{},
		docs:     &mocks.MockDocumentReader{Text: "Photosynthesis converts light into chemical energy."},
		gen:      &mocks.MockGenerator{Usage: domain.Usage{PromptTokens: 1000, CompletionTokens: 200}},
	}
	f.contents = mocks.NewMockContentStore(f.projects)
	f.chats = mocks.NewMockChatStore(f.projects)

	log := discardLogger()
	f.userSvc = service.NewUserService(db, f.users, f.profiles, auth.BcryptVerifier{}, testBilling, log)
	f.projectSvc = service.NewProjectService(db, f.projects, f.objects, 1024, log)
	f.contentSvc, err = service.NewContentService(service.ContentDeps{
		DB:           db,
		Projects:     f.projects,
		Contents:     f.contents,
		Profiles:     f.profiles,
		Balance:      f.userSvc,
		Emitter:      f.emitter,
		Documents:    f.docs,
		Generator:    f.gen,
		Pricing:      testPricing,
		ContextChars: 5000,
		Logger:       log,
	})
	require.NoError(t, err)
	f.chatSvc = service.NewChatService(db, f.projects, f.chats, f.profiles, f.userSvc, f.emitter, testPricing, log)
	return f
}

// project seeds a project owned by a user with balance tokens.
func (f *fixture) project(t *testing.T, balance float64) *domain.Project {
	t.Helper()
	userID := uuid.New()
	f.profiles.Balances[userID] = balance
	key := "uploads/" + userID.String() + "/1_notes.pdf"
	p, err := domain.NewProject(userID, "Biology", key, f.objects.URL(key), "notes.pdf")
	require.NoError(t, err)
	f.projects.Seed(p)
	return p
}

func (f *fixture) expectTx() {
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectCommit()
}

func (f *fixture) expectRollback() {
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectRollback()
}

func (f *fixture) verify(t *testing.T) {
	t.Helper()
	require.NoError(t, f.sqlMock.ExpectationsWereMet())
}
