package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/edumind-api/internal/platform/objectstore"
)

// MockObjectStore implements objectstore.Store in memory.
type MockObjectStore struct {
	mu          sync.Mutex
	BaseURL     string
	Objects     map[string][]byte
	Types       map[string]string
	Deleted     []string
	PutError    error
	DeleteError error
}

// NewMockObjectStore creates an empty store serving URLs under baseURL.
func NewMockObjectStore(baseURL string) *MockObjectStore {
	return &MockObjectStore{
		BaseURL: baseURL,
		Objects: make(map[string][]byte),
		Types:   make(map[string]string),
	}
}

var _ objectstore.Store = (*MockObjectStore)(nil)

func (m *MockObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutError != nil {
		return "", m.PutError
	}
	m.Objects[key] = append([]byte(nil), data...)
	m.Types[key] = contentType
	return m.BaseURL + "/" + key, nil
}

func (m *MockObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Objects[key]
	if !ok {
		return nil, objectstore.ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteError != nil {
		return m.DeleteError
	}
	delete(m.Objects, key)
	m.Deleted = append(m.Deleted, key)
	return nil
}

func (m *MockObjectStore) URL(key string) string {
	return m.BaseURL + "/" + key
}

// Has reports whether key is stored.
func (m *MockObjectStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Objects[key]
	return ok
}

// Keys returns the stored keys.
func (m *MockObjectStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.Objects))
	for k := range m.Objects {
		keys = append(keys, k)
	}
	return keys
}
