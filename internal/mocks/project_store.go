package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/store"
)

// MockProjectStore implements store.ProjectStore.
type MockProjectStore struct {
	mu          sync.Mutex
	Projects    map[uuid.UUID]*domain.Project
	CreateError error
	GetError    error
	UpdateError error
	DeleteError error
}

// NewMockProjectStore creates an empty MockProjectStore.
func NewMockProjectStore() *MockProjectStore {
	return &MockProjectStore{Projects: make(map[uuid.UUID]*domain.Project)}
}

// Seed stores copies of the given projects.
func (m *MockProjectStore) Seed(projects ...*domain.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range projects {
		copied := *p
		m.Projects[p.ID] = &copied
	}
}

func (m *MockProjectStore) Create(ctx context.Context, project *domain.Project) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if err := project.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keyInUse(project.FileKey, project.ID) {
		return store.ErrFileKeyInUse
	}
	copied := *project
	m.Projects[project.ID] = &copied
	return nil
}

func (m *MockProjectStore) keyInUse(fileKey string, except uuid.UUID) bool {
	for id, p := range m.Projects {
		if id != except && p.FileKey == fileKey {
			return true
		}
	}
	return false
}

func (m *MockProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	p, ok := m.Projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	copied := *p
	return &copied, nil
}

// GetForUser reports foreign projects as not found.
func (m *MockProjectStore) GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Project, error) {
	p, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, store.ErrProjectNotFound
	}
	return p, nil
}

func (m *MockProjectStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	out := []*domain.Project{}
	for _, p := range m.Projects {
		if p.UserID == userID {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockProjectStore) UpdateFile(ctx context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	existing, ok := m.Projects[project.ID]
	if !ok || existing.UserID != project.UserID {
		return store.ErrProjectNotFound
	}
	if m.keyInUse(project.FileKey, project.ID) {
		return store.ErrFileKeyInUse
	}
	copied := *project
	m.Projects[project.ID] = &copied
	return nil
}

func (m *MockProjectStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteError != nil {
		return m.DeleteError
	}
	p, ok := m.Projects[id]
	if !ok || p.UserID != userID {
		return store.ErrProjectNotFound
	}
	delete(m.Projects, id)
	return nil
}

func (m *MockProjectStore) WithTx(*sql.Tx) store.ProjectStore { return m }

// MockContentStore implements store.ContentStore. It needs a project store
// to resolve ownership.
type MockContentStore struct {
	mu            sync.Mutex
	Projects      *MockProjectStore
	Contents      map[uuid.UUID]*domain.GeneratedContent
	CreateError   error
	GetError      error
	FinalizeError error
}

// NewMockContentStore creates an empty MockContentStore over projects.
func NewMockContentStore(projects *MockProjectStore) *MockContentStore {
	return &MockContentStore{Projects: projects, Contents: make(map[uuid.UUID]*domain.GeneratedContent)}
}

func (m *MockContentStore) Create(ctx context.Context, content *domain.GeneratedContent) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if err := content.Validate(); err != nil {
		return err
	}
	if _, err := m.Projects.GetByID(ctx, content.ProjectID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *content
	m.Contents[content.ID] = &copied
	return nil
}

func (m *MockContentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.GeneratedContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	c, ok := m.Contents[id]
	if !ok {
		return nil, store.ErrContentNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *MockContentStore) GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.GeneratedContent, error) {
	c, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := m.Projects.GetForUser(ctx, userID, c.ProjectID); err != nil {
		return nil, store.ErrContentNotFound
	}
	return c, nil
}

func (m *MockContentStore) ListForUser(ctx context.Context, userID uuid.UUID, filter store.ContentFilter) ([]*domain.GeneratedContent, error) {
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
	if m.GetError != nil {
		return nil, m.GetError
	}
	out := []*domain.GeneratedContent{}
	for _, c := range m.Contents {
		if !mine[c.ProjectID] {
			continue
		}
		if filter.ProjectID != nil && c.ProjectID != *filter.ProjectID {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Finalize only moves PENDING rows, like the conditional update.
func (m *MockContentStore) Finalize(ctx context.Context, content *domain.GeneratedContent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FinalizeError != nil {
		return m.FinalizeError
	}
	existing, ok := m.Contents[content.ID]
	if !ok || existing.Status != domain.TaskStatusPending {
		return store.ErrAlreadyFinalized
	}
	copied := *content
	m.Contents[content.ID] = &copied
	return nil
}

func (m *MockContentStore) WithTx(*sql.Tx) store.ContentStore { return m }

// Content returns a copy of the stored row, or nil.
func (m *MockContentStore) Content(id uuid.UUID) *domain.GeneratedContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Contents[id]
	if !ok {
		return nil
	}
	copied := *c
	return &copied
}
