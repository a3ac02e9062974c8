package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/edumind-api/internal/events"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
)

// EventTaskBuilder turns a task request event into a task whose ID is the event ID.
type EventTaskBuilder func(event *events.TaskRequestEvent) (Task, error)

// Submitter accepts tasks for background execution.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements events.EventHandler by building a task
// for each event type it knows and submitting it to the runner.
type TaskFactoryEventHandler struct {
	mu       sync.RWMutex
	builders map[string]EventTaskBuilder
	runner   Submitter
	logger   *slog.Logger
}

// NewTaskFactoryEventHandler creates a handler with no registered types.
func NewTaskFactoryEventHandler(runner Submitter, logger *slog.Logger) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		builders: make(map[string]EventTaskBuilder),
		runner:   runner,
		logger:   logger.With("component", "task_factory_event_handler"),
	}
}

// Register sets the builder for eventType.
func (h *TaskFactoryEventHandler) Register(eventType string, builder EventTaskBuilder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.builders[eventType] = builder
}

// HandleEvent builds and submits the task for event. Events of unknown type
// are ignored. A submit error, including a wrapped ErrQueueFull, is returned.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	log := logger.FromContextOrDefault(ctx, h.logger).With(
		"event_id", event.ID,
		"event_type", event.Type,
	)

	h.mu.RLock()
	build, ok := h.builders[event.Type]
	h.mu.RUnlock()
	if !ok {
		log.Debug("ignoring event with unsupported type")
		return nil
	}

	task, err := build(event)
	if err != nil {
		log.Error("failed to create task", "error", err)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		return fmt.Errorf("failed to submit task: %w", err)
	}

	log.Info("task submitted", "task_id", task.ID())
	return nil
}

// ContentEventBuilder builds content generation and podcast audio tasks.
// The event payload carries the content ID; user and trace come from the event.
func (f *ContentTaskFactory) ContentEventBuilder(event *events.TaskRequestEvent) (Task, error) {
	var payload JobPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	payload.UserID = event.UserID
	payload.TraceID = event.TraceID
	return f.CreateTask(event.ID, event.Type, payload)
}

// ChatEventBuilder builds chat reply tasks.
func (f *ChatTaskFactory) ChatEventBuilder(event *events.TaskRequestEvent) (Task, error) {
	var payload ChatPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	payload.UserID = event.UserID
	payload.TraceID = event.TraceID
	return f.CreateTask(event.ID, payload)
}

var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
