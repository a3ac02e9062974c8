package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Common errors returned by the TaskQueue
var (
	ErrQueueClosed   = errors.New("task queue is closed")
	ErrQueueFull     = errors.New("task queue is full")
	ErrAlreadyQueued = errors.New("task already queued")
)

// TaskQueue is a buffered task queue that satisfies both TaskQueueReader and
// TaskQueueWriter. A task ID is held from Enqueue until Done so the same task
// is never buffered or running twice.
type TaskQueue struct {
	tasks    chan Task
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
	inFlight map[uuid.UUID]struct{}
}

// NewTaskQueue creates a new task queue with the specified buffer size
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	return &TaskQueue{
		tasks:    make(chan Task, size),
		logger:   logger,
		inFlight: make(map[uuid.UUID]struct{}),
	}
}

// Enqueue adds a task to the queue for processing.
// Returns ErrQueueFull, ErrQueueClosed or ErrAlreadyQueued without blocking.
func (q *TaskQueue) Enqueue(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if _, ok := q.inFlight[task.ID()]; ok {
		return ErrAlreadyQueued
	}

	select {
	case q.tasks <- task:
		q.inFlight[task.ID()] = struct{}{}
		q.logger.Debug("task enqueued",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"queue_len", len(q.tasks),
			"queue_cap", cap(q.tasks))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.tasks))
	}
}

// Done releases a task ID once a worker has finished with it.
func (q *TaskQueue) Done(id uuid.UUID) {
	q.mu.Lock()
	delete(q.inFlight, id)
	q.mu.Unlock()
}

// InFlight reports whether id is buffered or being executed.
func (q *TaskQueue) InFlight(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.inFlight[id]
	return ok
}

// Close closes the task queue, preventing further task submission
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
		q.logger.Info("task queue closed")
	}
}

// GetChannel returns a read-only channel for consuming tasks
func (q *TaskQueue) GetChannel() <-chan Task {
	return q.tasks
}
