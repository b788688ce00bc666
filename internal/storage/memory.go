package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"tagflow/internal/catalog"
)

// MemoryAdapter is an in-memory StorageAdapter. It is safe for concurrent use.
type MemoryAdapter struct {
	mu          sync.RWMutex
	files       map[string]memoryFile
	listErr     error
	unreachable bool
}

type memoryFile struct {
	data    []byte
	size    int64
	modTime int64
}

var _ catalog.StorageAdapter = (*MemoryAdapter)(nil)

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{files: make(map[string]memoryFile)}
}

// Put stores data at path with the given modification time.
func (m *MemoryAdapter) Put(p string, data []byte, modTime int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[cleanPath(p)] = memoryFile{data: data, size: int64(len(data)), modTime: modTime}
}

// SetStat stores a content-less file that reports the given size.
func (m *MemoryAdapter) SetStat(p string, size, modTime int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[cleanPath(p)] = memoryFile{size: size, modTime: modTime}
}

func (m *MemoryAdapter) Remove(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, cleanPath(p))
}

// FailListing makes the next listings end early with err after yielding
// every entry.
func (m *MemoryAdapter) FailListing(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// SetUnreachable makes Validate and ListRecursive fail.
func (m *MemoryAdapter) SetUnreachable(unreachable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreachable = unreachable
}

func (m *MemoryAdapter) Validate(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unreachable {
		return fmt.Errorf("%w: memory store marked unreachable", catalog.ErrConnectionFailed)
	}
	return nil
}

// ListRecursive lists directories and files in lexical order.
func (m *MemoryAdapter) ListRecursive(ctx context.Context) (catalog.EntryIterator, error) {
	if err := m.Validate(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	dirs := make(map[string]bool)
	var entries []catalog.Entry
	for p := range m.files {
		for dir := path.Dir(p); dir != "." && !dirs[dir]; dir = path.Dir(dir) {
			dirs[dir] = true
			entries = append(entries, catalog.Entry{Path: dir, IsDir: true})
		}
		entries = append(entries, catalog.Entry{Path: p})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	return &sliceIterator{entries: entries, err: m.listErr}, nil
}

func (m *MemoryAdapter) Stat(ctx context.Context, p string) (catalog.Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = cleanPath(p)
	if f, ok := m.files[p]; ok {
		return catalog.Metadata{Size: f.size, ModTime: f.modTime}, nil
	}
	prefix := p + "/"
	for k := range m.files {
		if strings.HasPrefix(k, prefix) {
			return catalog.Metadata{IsDir: true}, nil
		}
	}
	return catalog.Metadata{}, fmt.Errorf("stat %s: %w", p, fs.ErrNotExist)
}

// Materialize copies the content to a temporary file.
func (m *MemoryAdapter) Materialize(ctx context.Context, p string) (string, func(), error) {
	m.mu.RLock()
	f, ok := m.files[cleanPath(p)]
	m.mu.RUnlock()
	if !ok {
		return "", nil, fmt.Errorf("stat %s: %w", p, fs.ErrNotExist)
	}

	tmp, err := os.CreateTemp("", "tagflow-*"+path.Ext(p))
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer tmp.Close()
	if _, err := tmp.Write(f.data); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("writing temp file: %w", err)
	}
	name := tmp.Name()
	return name, func() { os.Remove(name) }, nil
}

func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}
