package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
)

// ErrUnknownTaskType is returned when a stored task has no registered RestoreFunc.
var ErrUnknownTaskType = errors.New("unknown task type")

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks and
	// for pending tasks that could not be queued. If zero, defaults to 1 minute.
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: time.Minute,
	}
}

// TaskRunner persists submitted tasks, queues them for the worker pool and
// recovers unfinished tasks after a restart.
type TaskRunner struct {
	store     TaskStore
	queue     *TaskQueue
	pool      *WorkerPool
	config    TaskRunnerConfig
	logger    *slog.Logger
	restorers map[string]RestoreFunc
	mu        sync.RWMutex

	monitorStop chan struct{}
	monitorDone chan struct{}
	stopOnce    sync.Once
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval <= 0 {
		config.StuckTaskCheckInterval = time.Minute
	}
	logger = logger.With("component", "task_runner")

	queue := NewTaskQueue(config.QueueSize, logger)
	return &TaskRunner{
		store:       store,
		queue:       queue,
		pool:        NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger),
		config:      config,
		logger:      logger,
		restorers:   make(map[string]RestoreFunc),
		monitorStop: make(chan struct{}),
		monitorDone: make(chan struct{}),
	}
}

// Register sets the function used to rebuild persisted tasks of taskType.
func (r *TaskRunner) Register(taskType string, fn RestoreFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restorers[taskType] = fn
}

// Submit persists the task and adds it to the queue. When the queue is full
// the task stays persisted as pending, the returned error wraps ErrQueueFull,
// and the periodic sweep queues it later.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		logger.FromContextOrDefault(ctx, r.logger).Warn("task persisted but not queued",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
		return err
	}
	return nil
}

// Start recovers unfinished tasks, then starts the workers and the monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(context.Background()); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start(r.processTask)
	go r.monitor()
	return nil
}

// Stop gracefully shuts down the task runner. Tasks still running when ctx
// expires are cancelled and left in processing state for the next Recover.
func (r *TaskRunner) Stop(ctx context.Context) {
	r.stopOnce.Do(func() {
		close(r.monitorStop)
		<-r.monitorDone
		r.pool.Stop(ctx)
		r.queue.Close()
	})
}

// Recover requeues tasks left unfinished by a previous run. Tasks found in
// processing state were interrupted and are reset to pending first.
func (r *TaskRunner) Recover(ctx context.Context) error {
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	for _, rec := range processing {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, "Reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
		}
	}

	pending, err := r.store.GetPendingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec)
	}
	return nil
}

// requeue restores a stored task and queues it. Tasks that cannot be
// restored are marked failed.
func (r *TaskRunner) requeue(ctx context.Context, rec Record) {
	log := r.logger.With("task_id", rec.ID, "task_type", rec.Type)

	if r.queue.InFlight(rec.ID) {
		return
	}

	task, err := r.restore(rec)
	if err != nil {
		log.Error("failed to restore task", "error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to mark unrestorable task failed", "error", updateErr)
		}
		return
	}

	if err := r.queue.Enqueue(task); err != nil && !errors.Is(err, ErrAlreadyQueued) {
		log.Warn("failed to requeue task", "error", err)
		return
	}
	log.Debug("task requeued")
}

func (r *TaskRunner) restore(rec Record) (Task, error) {
	r.mu.RLock()
	fn, ok := r.restorers[rec.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, rec.Type)
	}
	return fn(rec.ID, rec.Payload)
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) {
	defer r.queue.Done(task.ID())

	log := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)
	ctx = logger.WithLogger(ctx, log)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		log.Error("failed to update task status to processing", "error", err)
		return
	}

	log.Info("processing task")
	started := time.Now()

	err := r.execute(ctx, task)

	switch {
	case err != nil && ctx.Err() != nil:
		// Shutdown interrupted the task; Recover picks it up on the next start.
		log.Warn("task interrupted by shutdown", "error", err)
	case err != nil:
		log.Error("task execution failed", "error", err, "duration", time.Since(started))
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to update task status to failed", "error", updateErr)
		}
	default:
		log.Info("task completed successfully", "duration", time.Since(started))
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusCompleted, ""); updateErr != nil {
			log.Error("failed to update task status to completed", "error", updateErr)
		}
	}
}

// execute runs the task, converting a panic into an error.
func (r *TaskRunner) execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task.Execute(ctx)
}

// monitor periodically resets tasks stuck in processing and queues pending
// tasks that were persisted while the queue was full.
func (r *TaskRunner) monitor() {
	defer close(r.monitorDone)

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.monitorStop:
			return
		case <-ticker.C:
			r.sweep(context.Background())
		}
	}
}

// sweep performs one monitor pass.
func (r *TaskRunner) sweep(ctx context.Context) {
	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
	}
	for _, rec := range stuck {
		if r.queue.InFlight(rec.ID) {
			// Still running here; slow rather than stuck.
			continue
		}
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending,
			"Reset after being stuck in processing state"); err != nil {
			r.logger.Error("failed to reset stuck task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		r.logger.Info("reset stuck task", "task_id", rec.ID, "task_type", rec.Type)
		r.requeue(ctx, rec)
	}

	pending, err := r.store.GetPendingTasks(ctx, r.config.StuckTaskCheckInterval)
	if err != nil {
		r.logger.Error("failed to check for unqueued tasks", "error", err)
		return
	}
	for _, rec := range pending {
		r.requeue(ctx, rec)
	}
}

// QueueLen reports the number of tasks waiting for a worker.
func (r *TaskRunner) QueueLen() int {
	return len(r.queue.GetChannel())
}

// IsQueued reports whether a task is waiting or running in this process.
func (r *TaskRunner) IsQueued(id uuid.UUID) bool {
	return r.queue.InFlight(id)
}
