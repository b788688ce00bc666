package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"tagflow/internal/catalog"
	"tagflow/internal/database/sqlc"
	"tagflow/internal/storage"
)

// MockStorage is a StorageOpener serving in-memory adapters by library name.
type MockStorage struct {
	mu       sync.Mutex
	adapters map[string]*storage.MemoryAdapter
	openErr  error
	opens    int
}

var _ catalog.StorageOpener = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{adapters: make(map[string]*storage.MemoryAdapter)}
}

// Library returns the adapter for a library name, creating it on first use.
func (m *MockStorage) Library(name string) *storage.MemoryAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.adapters[name]
	if !ok {
		a = storage.NewMemoryAdapter()
		m.adapters[name] = a
	}
	return a
}

// FailOpen makes every subsequent Open return err.
func (m *MockStorage) FailOpen(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// Opens returns how many times Open was called.
func (m *MockStorage) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

func (m *MockStorage) Open(ctx context.Context, library *sqlc.Library) (catalog.StorageAdapter, error) {
	m.mu.Lock()
	m.opens++
	err := m.openErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if library.Protocol != storage.ProtocolMemory {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnsupportedProtocol, library.Protocol)
	}
	return m.Library(library.Name), nil
}

// NewTestLibrary registers a memory library called name.
func NewTestLibrary(t testing.TB, db catalog.Database, name string) *sqlc.Library {
	t.Helper()
	lib, err := db.UpsertLibrary(context.Background(), catalog.LibraryDefinition{
		Name:     name,
		Protocol: storage.ProtocolMemory,
		BasePath: name,
	})
	if err != nil {
		t.Fatalf("UpsertLibrary() error = %v", err)
	}
	return lib
}
