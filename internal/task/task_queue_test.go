package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue(t *testing.T) {
	t.Run("enqueue and consume", func(t *testing.T) {
		q := NewTaskQueue(2, testLogger())
		task := NewMockTask("test")

		require.NoError(t, q.Enqueue(task))
		assert.True(t, q.InFlight(task.ID()))

		got := <-q.GetChannel()
		assert.Equal(t, task.ID(), got.ID())
		assert.True(t, q.InFlight(task.ID()), "held until Done")

		q.Done(task.ID())
		assert.False(t, q.InFlight(task.ID()))
	})

	t.Run("rejects duplicates until done", func(t *testing.T) {
		q := NewTaskQueue(2, testLogger())
		task := NewMockTask("test")

		require.NoError(t, q.Enqueue(task))
		assert.ErrorIs(t, q.Enqueue(task), ErrAlreadyQueued)

		<-q.GetChannel()
		q.Done(task.ID())
		assert.NoError(t, q.Enqueue(task))
	})

	t.Run("full queue does not block", func(t *testing.T) {
		q := NewTaskQueue(1, testLogger())
		require.NoError(t, q.Enqueue(NewMockTask("test")))

		overflow := NewMockTask("test")
		assert.ErrorIs(t, q.Enqueue(overflow), ErrQueueFull)
		assert.False(t, q.InFlight(overflow.ID()))
	})

	t.Run("closed queue", func(t *testing.T) {
		q := NewTaskQueue(1, testLogger())
		q.Close()
		q.Close()

		assert.ErrorIs(t, q.Enqueue(NewMockTask("test")), ErrQueueClosed)
		_, open := <-q.GetChannel()
		assert.False(t, open)
	})
}
