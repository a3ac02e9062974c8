//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/platform/postgres"
	"github.com/phrazzld/edumind-api/internal/store"
	"github.com/phrazzld/edumind-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// seedProject inserts a user with balance tokens and one project.
func seedProject(t *testing.T, tx *sql.Tx, balance float64) *domain.Project {
	t.Helper()
	ctx := context.Background()

	user, err := domain.NewUser(fmt.Sprintf("it-%s@example.com", uuid.NewString()[:8]), "integration-password")
	require.NoError(t, err)
	require.NoError(t, postgres.NewPostgresUserStore(tx, bcrypt.MinCost, discard).Create(ctx, user))
	_, err = postgres.NewPostgresProfileStore(tx, discard).GetOrCreate(ctx, user.ID, balance)
	require.NoError(t, err)

	key := "uploads/" + user.ID.String() + "/1_doc.txt"
	project, err := domain.NewProject(user.ID, "Integration", key, "https://cdn.example/doc.txt", "doc.txt")
	require.NoError(t, err)
	require.NoError(t, postgres.NewPostgresProjectStore(tx, discard).Create(ctx, project))
	return project
}

func TestIntegrationProfileDebit(t *testing.T) {
	db := testdb.Open(t)
	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		project := seedProject(t, tx, 1)
		profiles := postgres.NewPostgresProfileStore(tx, discard)

		p, err := profiles.Debit(ctx, project.UserID, 0.25)
		require.NoError(t, err)
		assert.InDelta(t, 0.75, p.TokenBalance, 1e-9)

		_, err = profiles.Debit(ctx, project.UserID, 5)
		assert.ErrorIs(t, err, store.ErrInsufficientTokens)

		_, err = profiles.Debit(ctx, uuid.New(), 0.1)
		assert.ErrorIs(t, err, store.ErrProfileNotFound)
	})
}

func TestIntegrationContentFinalizeOnce(t *testing.T) {
	db := testdb.Open(t)
	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		project := seedProject(t, tx, 1)
		contents := postgres.NewPostgresContentStore(tx, discard)

		content, err := domain.NewGeneratedContent(project.ID, domain.ContentTypeQuiz, nil)
		require.NoError(t, err)
		require.NoError(t, contents.Create(ctx, content))

		require.NoError(t, content.MarkSucceeded("https://cdn.example/mcqs.json", 0.02))
		require.NoError(t, contents.Finalize(ctx, content))
		assert.ErrorIs(t, contents.Finalize(ctx, content), store.ErrAlreadyFinalized)

		got, err := contents.GetForUser(ctx, project.UserID, content.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusSuccess, got.Status)
		assert.Equal(t, "https://cdn.example/mcqs.json", got.FileURL)

		_, err = contents.GetForUser(ctx, uuid.New(), content.ID)
		assert.ErrorIs(t, err, store.ErrContentNotFound)
	})
}

func TestIntegrationChatSessionPerProject(t *testing.T) {
	db := testdb.Open(t)
	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		project := seedProject(t, tx, 1)
		chats := postgres.NewPostgresChatStore(tx, discard)

		first, err := chats.GetOrCreateSession(ctx, project.ID)
		require.NoError(t, err)
		second, err := chats.GetOrCreateSession(ctx, project.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		base := time.Now().UTC().Add(-time.Minute)
		var posted []*domain.ChatMessage
		for i, text := range []string{"Q1", "Q2"} {
			msg, err := domain.NewChatMessage(first.ID, domain.SenderUser, text)
			require.NoError(t, err)
			msg.CreatedAt = base.Add(time.Duration(i) * time.Second)
			require.NoError(t, chats.AddMessage(ctx, msg))
			posted = append(posted, msg)
		}

		reply, err := domain.NewChatReply(first.ID, posted[0].ID, "A1")
		require.NoError(t, err)
		reply.CreatedAt = base.Add(2 * time.Second)
		require.NoError(t, chats.AddMessage(ctx, reply))

		answered, err := chats.HasReply(ctx, posted[0].ID)
		require.NoError(t, err)
		assert.True(t, answered)
		answered, err = chats.HasReply(ctx, posted[1].ID)
		require.NoError(t, err)
		assert.False(t, answered)

		history, err := chats.MessagesBefore(ctx, first.ID, posted[1].CreatedAt, 10)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "Q1", history[0].Message)

		got, err := chats.GetMessage(ctx, first.ID, reply.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ReplyTo)
		assert.Equal(t, posted[0].ID, *got.ReplyTo)
	})
}
