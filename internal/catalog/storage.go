package catalog

import (
	"context"

	"tagflow/internal/database/sqlc"
)

// Entry is one item produced by a recursive listing. Path is relative to
// the library root and uses forward slashes.
type Entry struct {
	Path  string
	IsDir bool
}

// Metadata is the stat of a single storage entry. ModTime is in Unix seconds.
type Metadata struct {
	Size    int64
	ModTime int64
	IsDir   bool
}

// EntryIterator yields entries lazily. Next returns false once the listing
// is exhausted or has failed; Err reports the failure, if any.
type EntryIterator interface {
	Next() (Entry, bool)
	Err() error
	Close() error
}

// StorageAdapter provides read access to a library's backing store.
type StorageAdapter interface {
	// ListRecursive walks every entry below the library root.
	ListRecursive(ctx context.Context) (EntryIterator, error)

	// Stat returns an error satisfying errors.Is(err, fs.ErrNotExist) when
	// the path does not exist.
	Stat(ctx context.Context, path string) (Metadata, error)

	// Materialize returns a local filesystem path holding the entry's
	// content. cleanup must be called once the caller is done with it.
	Materialize(ctx context.Context, path string) (local string, cleanup func(), err error)

	// Validate verifies the store is reachable. Failures wrap ErrConnectionFailed.
	Validate(ctx context.Context) error
}

// StorageOpener builds the adapter for a library's protocol. It returns an
// error wrapping ErrUnsupportedProtocol for protocols it cannot serve.
type StorageOpener interface {
	Open(ctx context.Context, library *sqlc.Library) (StorageAdapter, error)
}
