package testutil

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"tagflow/internal/catalog"
	"tagflow/internal/config"
	"tagflow/internal/database"
	"tagflow/internal/database/sqlc"
)

// NewTestDatabase creates an in-memory catalog database with migrations
// applied. It is closed when the test completes.
func NewTestDatabase(t *testing.T) catalog.Database {
	t.Helper()
	return NewTestDatabaseWithClock(t, FixedClock())
}

// NewTestDatabaseWithClock is NewTestDatabase with a caller supplied clock
// for created_at and similar columns.
func NewTestDatabaseWithClock(t *testing.T, clock catalog.Clock) catalog.Database {
	t.Helper()

	db, err := database.NewDatabaseFromConfig(config.DatabaseConfig{Type: "memory"}, clock, nil)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// RecordingDatabase wraps a Database and counts write calls.
type RecordingDatabase struct {
	catalog.Database

	mu     sync.Mutex
	writes map[string]int
}

func NewRecordingDatabase(db catalog.Database) *RecordingDatabase {
	return &RecordingDatabase{Database: db, writes: make(map[string]int)}
}

func (r *RecordingDatabase) record(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes[op]++
}

// Writes returns the number of write calls made, excluding those listed in ignore.
func (r *RecordingDatabase) Writes(ignore ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	skip := make(map[string]bool, len(ignore))
	for _, op := range ignore {
		skip[op] = true
	}
	n := 0
	for op, count := range r.writes {
		if !skip[op] {
			n += count
		}
	}
	return n
}

// Reset clears the write counters.
func (r *RecordingDatabase) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = make(map[string]int)
}

func (r *RecordingDatabase) UpsertLibrary(ctx context.Context, def catalog.LibraryDefinition) (*sqlc.Library, error) {
	r.record("UpsertLibrary")
	return r.Database.UpsertLibrary(ctx, def)
}

func (r *RecordingDatabase) MarkLibraryScanned(ctx context.Context, libraryID int64, at time.Time) error {
	r.record("MarkLibraryScanned")
	return r.Database.MarkLibraryScanned(ctx, libraryID, at)
}

func (r *RecordingDatabase) InsertFile(ctx context.Context, file catalog.NewFile) (*sqlc.File, error) {
	r.record("InsertFile")
	return r.Database.InsertFile(ctx, file)
}

func (r *RecordingDatabase) UpdateFileStat(ctx context.Context, libraryID int64, parentPath, filename string, size, mtime int64) error {
	r.record("UpdateFileStat")
	return r.Database.UpdateFileStat(ctx, libraryID, parentPath, filename, size, mtime)
}

func (r *RecordingDatabase) MarkFileLost(ctx context.Context, libraryID int64, parentPath, filename string) (bool, error) {
	r.record("MarkFileLost")
	return r.Database.MarkFileLost(ctx, libraryID, parentPath, filename)
}

func (r *RecordingDatabase) CreateTag(ctx context.Context, name, category string, parentID sql.NullInt64) (*sqlc.Tag, error) {
	r.record("CreateTag")
	return r.Database.CreateTag(ctx, name, category, parentID)
}

func (r *RecordingDatabase) LinkFileTag(ctx context.Context, fileID, tagID int64, source string) error {
	r.record("LinkFileTag")
	return r.Database.LinkFileTag(ctx, fileID, tagID, source)
}

func (r *RecordingDatabase) CreateTask(ctx context.Context, fileID int64, taskType string, priority int64) (*sqlc.Task, error) {
	r.record("CreateTask")
	return r.Database.CreateTask(ctx, fileID, taskType, priority)
}

func (r *RecordingDatabase) ClaimTask(ctx context.Context, id int64, at time.Time) (bool, error) {
	r.record("ClaimTask")
	return r.Database.ClaimTask(ctx, id, at)
}

func (r *RecordingDatabase) TouchTask(ctx context.Context, id int64, at time.Time) error {
	r.record("TouchTask")
	return r.Database.TouchTask(ctx, id, at)
}

func (r *RecordingDatabase) CompleteTask(ctx context.Context, id int64, at time.Time) (bool, error) {
	r.record("CompleteTask")
	return r.Database.CompleteTask(ctx, id, at)
}

func (r *RecordingDatabase) FailTask(ctx context.Context, id int64, message string, at time.Time) (bool, error) {
	r.record("FailTask")
	return r.Database.FailTask(ctx, id, message, at)
}
