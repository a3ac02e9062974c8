package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubmitter struct {
	tasks []Task
	err   error
}

func (s *recordingSubmitter) Submit(ctx context.Context, task Task) error {
	s.tasks = append(s.tasks, task)
	return s.err
}

func TestTaskFactoryEventHandler(t *testing.T) {
	f := newPipelineFixture(t, domain.ContentTypeQuiz, `{}`)

	newHandler := func(sub *recordingSubmitter) *TaskFactoryEventHandler {
		h := NewTaskFactoryEventHandler(sub, testLogger())
		h.Register(TaskTypeContentGeneration, f.factory.ContentEventBuilder)
		return h
	}

	t.Run("builds task with event id, user and trace", func(t *testing.T) {
		sub := &recordingSubmitter{}
		userID := uuid.New()
		event, err := events.NewTaskRequestEvent(TaskTypeContentGeneration, userID,
			map[string]uuid.UUID{"content_id": f.content.ID})
		require.NoError(t, err)
		event.WithTrace("trace-1")

		require.NoError(t, newHandler(sub).HandleEvent(context.Background(), event))

		require.Len(t, sub.tasks, 1)
		task := sub.tasks[0].(*ContentGenerationTask)
		assert.Equal(t, event.ID, task.ID())
		assert.Equal(t, JobPayload{ContentID: f.content.ID, UserID: userID, TraceID: "trace-1"}, task.payload)
	})

	t.Run("ignores unknown types", func(t *testing.T) {
		sub := &recordingSubmitter{}
		event, err := events.NewTaskRequestEvent("something_else", uuid.New(), nil)
		require.NoError(t, err)

		require.NoError(t, newHandler(sub).HandleEvent(context.Background(), event))
		assert.Empty(t, sub.tasks)
	})

	t.Run("build error", func(t *testing.T) {
		sub := &recordingSubmitter{}
		event, err := events.NewTaskRequestEvent(TaskTypeContentGeneration, uuid.New(), map[string]string{})
		require.NoError(t, err)

		err = newHandler(sub).HandleEvent(context.Background(), event)
		assert.ErrorIs(t, err, ErrEmptyContentID)
		assert.Empty(t, sub.tasks)
	})

	t.Run("submit error keeps queue full sentinel", func(t *testing.T) {
		sub := &recordingSubmitter{err: ErrQueueFull}
		event, err := events.NewTaskRequestEvent(TaskTypeContentGeneration, uuid.New(),
			map[string]uuid.UUID{"content_id": f.content.ID})
		require.NoError(t, err)

		err = newHandler(sub).HandleEvent(context.Background(), event)
		assert.True(t, errors.Is(err, ErrQueueFull))
	})
}

func TestChatEventBuilder(t *testing.T) {
	factory, _, _, _ := newChatFixture(t)
	sessionID, projectID, userID, messageID := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	event, err := events.NewTaskRequestEvent(TaskTypeChatReply, userID,
		map[string]uuid.UUID{"session_id": sessionID, "project_id": projectID, "message_id": messageID})
	require.NoError(t, err)

	task, err := factory.ChatEventBuilder(event)
	require.NoError(t, err)
	reply := task.(*ChatReplyTask)
	assert.Equal(t, event.ID, reply.ID())
	assert.Equal(t, ChatPayload{SessionID: sessionID, ProjectID: projectID, UserID: userID, MessageID: messageID}, reply.payload)
}
