package task

import (
	"context"
	"log/slog"
	"sync"
)

// ProcessFunc executes one task on behalf of a worker.
type ProcessFunc func(ctx context.Context, task Task, workerID int)

// WorkerPool manages a pool of worker goroutines that process tasks
// from a task queue. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	taskQueue   TaskQueueReader
	workerCount int
	wg          sync.WaitGroup

	// stopCtx stops workers from taking new tasks.
	stopCtx  context.Context
	stopFunc context.CancelFunc

	// execCtx is handed to running tasks; it is cancelled only when a
	// graceful stop runs out of time.
	execCtx    context.Context
	cancelExec context.CancelFunc

	logger *slog.Logger
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(taskQueue TaskQueueReader, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	stopCtx, stopFunc := context.WithCancel(context.Background())
	execCtx, cancelExec := context.WithCancel(context.Background())

	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		stopCtx:     stopCtx,
		stopFunc:    stopFunc,
		execCtx:     execCtx,
		cancelExec:  cancelExec,
		logger:      logger,
	}
}

// Start launches the workers. Each task received is passed to process.
func (p *WorkerPool) Start(process ProcessFunc) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, process)
	}
	p.logger.Info("worker pool started", "worker_count", p.workerCount)
}

// Stop stops taking new tasks and waits for running tasks to return.
// If ctx expires first, running tasks are cancelled and Stop waits for them
// to observe the cancellation.
func (p *WorkerPool) Stop(ctx context.Context) {
	p.stopFunc()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn("worker pool stop timed out, cancelling running tasks")
		p.cancelExec()
		<-done
	}
	p.cancelExec()
	p.logger.Info("worker pool stopped")
}

func (p *WorkerPool) worker(id int, process ProcessFunc) {
	defer p.wg.Done()
	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.stopCtx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return
		case task, ok := <-p.taskQueue.GetChannel():
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			process(p.execCtx, task, id)
		}
	}
}
