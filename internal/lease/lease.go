// Package lease provides exclusive per-library scan leases.
package lease

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"tagflow/internal/catalog"
)

// FileManager hands out leases backed by lock files in a directory, so two
// processes sharing a catalog never scan the same library at once.
type FileManager struct {
	dir string

	mu   sync.Mutex
	held map[string]bool
}

var _ catalog.LeaseManager = (*FileManager)(nil)

// NewFileManager creates dir if needed.
func NewFileManager(dir string) (*FileManager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &FileManager{dir: dir, held: make(map[string]bool)}, nil
}

// Acquire takes the scan lease for a library without waiting.
func (m *FileManager) Acquire(libraryID int64) (catalog.Lease, error) {
	l, err := m.AcquireName(fmt.Sprintf("library-%d", libraryID))
	if err != nil {
		return nil, fmt.Errorf("library %d: %w", libraryID, err)
	}
	return l, nil
}

// AcquireName takes the lease called name. It returns an error wrapping
// catalog.ErrScanInProgress when the lease is held by this or another process.
func (m *FileManager) AcquireName(name string) (catalog.Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held[name] {
		return nil, catalog.ErrScanInProgress
	}

	lock := flock.New(filepath.Join(m.dir, name+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, catalog.ErrScanInProgress
	}

	m.held[name] = true
	return &fileLease{manager: m, name: name, lock: lock}, nil
}

type fileLease struct {
	manager *FileManager
	name    string
	lock    *flock.Flock
	once    sync.Once
}

func (l *fileLease) Release() error {
	var err error
	l.once.Do(func() {
		err = l.lock.Unlock()
		l.manager.mu.Lock()
		delete(l.manager.held, l.name)
		l.manager.mu.Unlock()
	})
	return err
}

// MemoryManager is an in-process LeaseManager.
type MemoryManager struct {
	mu   sync.Mutex
	held map[int64]bool
}

var _ catalog.LeaseManager = (*MemoryManager)(nil)

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{held: make(map[int64]bool)}
}

func (m *MemoryManager) Acquire(libraryID int64) (catalog.Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[libraryID] {
		return nil, fmt.Errorf("library %d: %w", libraryID, catalog.ErrScanInProgress)
	}
	m.held[libraryID] = true
	return &memoryLease{manager: m, libraryID: libraryID}, nil
}

// Held reports whether the library's lease is currently taken.
func (m *MemoryManager) Held(libraryID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[libraryID]
}

type memoryLease struct {
	manager   *MemoryManager
	libraryID int64
	once      sync.Once
}

func (l *memoryLease) Release() error {
	l.once.Do(func() {
		l.manager.mu.Lock()
		delete(l.manager.held, l.libraryID)
		l.manager.mu.Unlock()
	})
	return nil
}
