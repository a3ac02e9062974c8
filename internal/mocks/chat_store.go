package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/store"
)

// MockChatStore implements store.ChatStore with one session per project.
type MockChatStore struct {
	mu           sync.Mutex
	Projects     *MockProjectStore
	Sessions     map[uuid.UUID]*domain.ChatSession
	Messages     map[uuid.UUID][]domain.ChatMessage
	SessionError error
	AddError     error
}

// NewMockChatStore creates an empty MockChatStore over projects.
func NewMockChatStore(projects *MockProjectStore) *MockChatStore {
	return &MockChatStore{
		Projects: projects,
		Sessions: make(map[uuid.UUID]*domain.ChatSession),
		Messages: make(map[uuid.UUID][]domain.ChatMessage),
	}
}

func (m *MockChatStore) GetOrCreateSession(ctx context.Context, projectID uuid.UUID) (*domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SessionError != nil {
		return nil, m.SessionError
	}
	for _, s := range m.Sessions {
		if s.ProjectID == projectID {
			copied := *s
			copied.Messages = []domain.ChatMessage{}
			return &copied, nil
		}
	}
	session, err := domain.NewChatSession(projectID)
	if err != nil {
		return nil, err
	}
	m.Sessions[session.ID] = session
	copied := *session
	return &copied, nil
}

func (m *MockChatStore) GetSession(ctx context.Context, id uuid.UUID) (*domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SessionError != nil {
		return nil, m.SessionError
	}
	s, ok := m.Sessions[id]
	if !ok {
		return nil, store.ErrChatSessionNotFound
	}
	copied := *s
	copied.Messages = []domain.ChatMessage{}
	return &copied, nil
}

// ListSessionsForUser loads every message of each session.
func (m *MockChatStore) ListSessionsForUser(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]*domain.ChatSession, error) {
	owned, err := m.Projects.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	mine := make(map[uuid.UUID]bool, len(owned))
	for _, p := range owned {
		mine[p.ID] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.ChatSession{}
	for _, s := range m.Sessions {
		if !mine[s.ProjectID] || (projectID != nil && s.ProjectID != *projectID) {
			continue
		}
		copied := *s
		copied.Messages = append([]domain.ChatMessage{}, m.Messages[s.ID]...)
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MockChatStore) AddMessage(ctx context.Context, msg *domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddError != nil {
		return m.AddError
	}
	if _, ok := m.Sessions[msg.SessionID]; !ok {
		return store.ErrChatSessionNotFound
	}
	if msg.ReplyTo != nil && m.hasReply(*msg.ReplyTo) {
		return store.ErrReplyExists
	}
	m.Messages[msg.SessionID] = append(m.Messages[msg.SessionID], *msg)
	return nil
}

func (m *MockChatStore) GetMessage(ctx context.Context, sessionID, messageID uuid.UUID) (*domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.Messages[sessionID] {
		if msg.ID == messageID {
			copied := msg
			return &copied, nil
		}
	}
	return nil, store.ErrChatMessageNotFound
}

func (m *MockChatStore) HasReply(ctx context.Context, messageID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasReply(messageID), nil
}

func (m *MockChatStore) hasReply(messageID uuid.UUID) bool {
	for _, msgs := range m.Messages {
		for _, msg := range msgs {
			if msg.ReplyTo != nil && *msg.ReplyTo == messageID {
				return true
			}
		}
	}
	return false
}

// MessagesBefore returns up to limit messages stored ahead of the first
// message created at or after before, oldest first.
func (m *MockChatStore) MessagesBefore(ctx context.Context, sessionID uuid.UUID, before time.Time, limit int) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChatMessage
	for _, msg := range m.Messages[sessionID] {
		if !msg.CreatedAt.Before(before) {
			break
		}
		out = append(out, msg)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]domain.ChatMessage{}, out...), nil
}

func (m *MockChatStore) WithTx(*sql.Tx) store.ChatStore { return m }
