package catalog

import (
	"context"
	"database/sql"
	"time"

	"tagflow/internal/database/sqlc"
)

// Database provides an interface for catalog metadata storage.
// Write operations are expected to retry transient lock contention
// internally before surfacing an error.
type Database interface {
	// Library operations

	// FindLibraryByID returns nil, nil when no library has the id.
	FindLibraryByID(ctx context.Context, id int64) (*sqlc.Library, error)

	// FindLibraryByName returns nil, nil when no library has the name.
	FindLibraryByName(ctx context.Context, name string) (*sqlc.Library, error)

	ListLibraries(ctx context.Context) ([]*sqlc.Library, error)

	// UpsertLibrary creates the library or updates its protocol, base path
	// and options in place, keeping its id.
	UpsertLibrary(ctx context.Context, def LibraryDefinition) (*sqlc.Library, error)

	MarkLibraryScanned(ctx context.Context, libraryID int64, at time.Time) error

	// File operations

	// LoadFileSnapshot returns every file of a library keyed by its
	// library-relative path, regardless of status.
	LoadFileSnapshot(ctx context.Context, libraryID int64) (map[string]FileState, error)

	InsertFile(ctx context.Context, file NewFile) (*sqlc.File, error)

	// UpdateFileStat records a new size and mtime and marks the file Active.
	UpdateFileStat(ctx context.Context, libraryID int64, parentPath, filename string, size, mtime int64) error

	// MarkFileLost sets status Lost. It reports whether a row changed.
	MarkFileLost(ctx context.Context, libraryID int64, parentPath, filename string) (bool, error)

	FindFileByID(ctx context.Context, id int64) (*sqlc.File, error)

	// FindFileLocation returns nil, nil when the file does not exist.
	FindFileLocation(ctx context.Context, fileID int64) (*FileLocation, error)

	ListFiles(ctx context.Context, filter FileFilter) ([]*sqlc.File, error)

	// Tag operations

	// FindTag looks a tag up by name under parentID (invalid means root).
	FindTag(ctx context.Context, name string, parentID sql.NullInt64) (*sqlc.Tag, error)

	// CreateTag returns an error wrapping ErrAlreadyExists on a name collision.
	CreateTag(ctx context.Context, name, category string, parentID sql.NullInt64) (*sqlc.Tag, error)

	FindTagByID(ctx context.Context, id int64) (*sqlc.Tag, error)

	ListTags(ctx context.Context) ([]*sqlc.Tag, error)

	// LinkFileTag is a no-op if the pair is already linked.
	LinkFileTag(ctx context.Context, fileID, tagID int64, source string) error

	ListFileTags(ctx context.Context, fileID int64) ([]*sqlc.Tag, error)

	// Task operations

	CreateTask(ctx context.Context, fileID int64, taskType string, priority int64) (*sqlc.Task, error)

	// CountActiveTasks counts Pending and Running tasks for the pair.
	CountActiveTasks(ctx context.Context, fileID int64, taskType string) (int64, error)

	// NextPendingTask returns the highest priority, oldest Pending task or nil.
	NextPendingTask(ctx context.Context) (*sqlc.Task, error)

	// ClaimTask moves a task from Pending to Running. It reports false when
	// another worker claimed it first.
	ClaimTask(ctx context.Context, id int64, at time.Time) (bool, error)

	// TouchTask refreshes the heartbeat of a Running task.
	TouchTask(ctx context.Context, id int64, at time.Time) error

	// CompleteTask and FailTask only transition Running tasks and report
	// whether a row changed.
	CompleteTask(ctx context.Context, id int64, at time.Time) (bool, error)
	FailTask(ctx context.Context, id int64, message string, at time.Time) (bool, error)

	FindTaskByID(ctx context.Context, id int64) (*sqlc.Task, error)

	ListTasks(ctx context.Context, filter TaskFilter) ([]*sqlc.Task, error)

	// Close closes the database connection.
	Close() error
}
