package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/edumind-api/internal/events"
)

// MockEventEmitter records emitted events instead of dispatching them.
type MockEventEmitter struct {
	mu     sync.Mutex
	Events []*events.TaskRequestEvent
	Err    error
}

var _ events.EventEmitter = (*MockEventEmitter)(nil)

// EmitEvent records event and returns Err. The event is recorded even when
// Err is set.
func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return m.Err
}

// Emitted returns a copy of the recorded events.
func (m *MockEventEmitter) Emitted() []*events.TaskRequestEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*events.TaskRequestEvent(nil), m.Events...)
}
