package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tagflow/internal/catalog"
	"tagflow/internal/database/sqlc"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const memoryPath = ":memory:"

// SQLiteDatabase implements catalog.Database using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	clock   catalog.Clock
	logger  catalog.Logger
}

var _ catalog.Database = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for an in-memory database.
// A nil clock or logger falls back to the real clock and a no-op logger.
func NewSQLiteDatabase(path string, clock catalog.Clock, logger catalog.Logger) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteDatabaseFromDB(db, clock, logger), nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock catalog.Clock, logger catalog.Logger) *SQLiteDatabase {
	if clock == nil {
		clock = catalog.RealClock{}
	}
	if logger == nil {
		logger = catalog.NewNopLogger()
	}
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		clock:   clock,
		logger:  logger,
	}
}

// OpenConnection opens and configures a SQLite database connection.
// Connection options are passed through the DSN so that every pooled
// connection gets them, not just the first.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	if path != memoryPath {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	if path == memoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// DB exposes the underlying connection for migrations.
func (s *SQLiteDatabase) DB() *sql.DB {
	return s.db
}

// Library operations

func (s *SQLiteDatabase) FindLibraryByID(ctx context.Context, id int64) (*sqlc.Library, error) {
	lib, err := s.queries.GetLibraryByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding library by id: %w", err)
	}
	return &lib, nil
}

func (s *SQLiteDatabase) FindLibraryByName(ctx context.Context, name string) (*sqlc.Library, error) {
	lib, err := s.queries.GetLibraryByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding library by name: %w", err)
	}
	return &lib, nil
}

func (s *SQLiteDatabase) ListLibraries(ctx context.Context) ([]*sqlc.Library, error) {
	libs, err := s.queries.ListLibraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing libraries: %w", err)
	}
	result := make([]*sqlc.Library, len(libs))
	for i := range libs {
		result[i] = &libs[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) UpsertLibrary(ctx context.Context, def catalog.LibraryDefinition) (*sqlc.Library, error) {
	configJSON := def.ConfigJSON
	if configJSON == "" {
		configJSON = "{}"
	}

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		qtx := s.queries.WithTx(tx)

		updated, err := qtx.UpdateLibraryDefinition(ctx, sqlc.UpdateLibraryDefinitionParams{
			Protocol:   def.Protocol,
			BasePath:   def.BasePath,
			ConfigJson: configJSON,
			Name:       def.Name,
		})
		if err != nil {
			return err
		}
		if updated == 0 {
			if _, err := qtx.InsertLibrary(ctx, sqlc.InsertLibraryParams{
				Name:       def.Name,
				Protocol:   def.Protocol,
				BasePath:   def.BasePath,
				ConfigJson: configJSON,
				CreatedAt:  s.clock.Now(),
			}); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("upserting library %s: %w", def.Name, err)
	}
	s.logger.Debug("library upserted", "name", def.Name, "protocol", def.Protocol)
	return s.FindLibraryByName(ctx, def.Name)
}

func (s *SQLiteDatabase) MarkLibraryScanned(ctx context.Context, libraryID int64, at time.Time) error {
	err := retryOnBusy(ctx, func() error {
		return s.queries.UpdateLibraryLastScanned(ctx, sqlc.UpdateLibraryLastScannedParams{
			LastScannedAt: sql.NullTime{Time: at, Valid: true},
			ID:            libraryID,
		})
	})
	if err != nil {
		return fmt.Errorf("marking library scanned: %w", err)
	}
	return nil
}

// File operations

func (s *SQLiteDatabase) LoadFileSnapshot(ctx context.Context, libraryID int64) (map[string]catalog.FileState, error) {
	rows, err := s.queries.ListFileStatesByLibrary(ctx, libraryID)
	if err != nil {
		return nil, fmt.Errorf("loading file snapshot: %w", err)
	}
	snapshot := make(map[string]catalog.FileState, len(rows))
	for _, row := range rows {
		snapshot[catalog.JoinRelativePath(row.ParentPath, row.Filename)] = catalog.FileState{
			Size:   row.Size,
			Mtime:  row.Mtime,
			Status: row.Status,
		}
	}
	return snapshot, nil
}

func (s *SQLiteDatabase) InsertFile(ctx context.Context, file catalog.NewFile) (*sqlc.File, error) {
	var id int64
	err := retryOnBusy(ctx, func() error {
		var err error
		id, err = s.queries.InsertFile(ctx, sqlc.InsertFileParams{
			LibraryID:  file.LibraryID,
			ParentPath: file.ParentPath,
			Filename:   file.Filename,
			Extension:  file.Extension,
			Size:       file.Size,
			Mtime:      file.Mtime,
			IndexedAt:  s.clock.Now(),
		})
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("inserting file %s%s: %w", file.ParentPath, file.Filename, catalog.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("inserting file: %w", err)
	}
	return s.FindFileByID(ctx, id)
}

func (s *SQLiteDatabase) UpdateFileStat(ctx context.Context, libraryID int64, parentPath, filename string, size, mtime int64) error {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		var err error
		affected, err = s.queries.UpdateFileStat(ctx, sqlc.UpdateFileStatParams{
			Size:       size,
			Mtime:      mtime,
			LibraryID:  libraryID,
			ParentPath: parentPath,
			Filename:   filename,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("updating file stat: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("updating file %s%s: %w", parentPath, filename, catalog.ErrNotFound)
	}
	return nil
}

func (s *SQLiteDatabase) MarkFileLost(ctx context.Context, libraryID int64, parentPath, filename string) (bool, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		var err error
		affected, err = s.queries.MarkFileLost(ctx, sqlc.MarkFileLostParams{
			LibraryID:  libraryID,
			ParentPath: parentPath,
			Filename:   filename,
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("marking file lost: %w", err)
	}
	return affected > 0, nil
}

func (s *SQLiteDatabase) FindFileByID(ctx context.Context, id int64) (*sqlc.File, error) {
	file, err := s.queries.GetFileByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding file by id: %w", err)
	}
	return &file, nil
}

func (s *SQLiteDatabase) FindFileLocation(ctx context.Context, fileID int64) (*catalog.FileLocation, error) {
	row, err := s.queries.GetFileLocation(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding file location: %w", err)
	}
	return &catalog.FileLocation{
		FileID:       row.ID,
		LibraryID:    row.LibraryID,
		LibraryName:  row.Name,
		Protocol:     row.Protocol,
		BasePath:     row.BasePath,
		ConfigJSON:   row.ConfigJson,
		RelativePath: catalog.JoinRelativePath(row.ParentPath, row.Filename),
	}, nil
}

func (s *SQLiteDatabase) ListFiles(ctx context.Context, filter catalog.FileFilter) ([]*sqlc.File, error) {
	status := int64(-1)
	if filter.Status != nil {
		status = *filter.Status
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}

	var (
		files []sqlc.File
		err   error
	)
	switch {
	case filter.TagID != 0 && filter.Recursive:
		files, err = s.queries.ListFilesByTagRecursive(ctx, sqlc.ListFilesByTagRecursiveParams{
			TagID:     filter.TagID,
			LibraryID: filter.LibraryID,
			Status:    status,
			Limit:     limit,
			Offset:    filter.Offset,
		})
	case filter.TagID != 0:
		files, err = s.queries.ListFilesByTag(ctx, sqlc.ListFilesByTagParams{
			TagID:     filter.TagID,
			LibraryID: filter.LibraryID,
			Status:    status,
			Limit:     limit,
			Offset:    filter.Offset,
		})
	default:
		files, err = s.queries.ListFiles(ctx, sqlc.ListFilesParams{
			LibraryID: filter.LibraryID,
			Status:    status,
			Limit:     limit,
			Offset:    filter.Offset,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	result := make([]*sqlc.File, len(files))
	for i := range files {
		result[i] = &files[i]
	}
	return result, nil
}

// Tag operations

func (s *SQLiteDatabase) FindTag(ctx context.Context, name string, parentID sql.NullInt64) (*sqlc.Tag, error) {
	tag, err := s.queries.GetTagByNameAndParent(ctx, sqlc.GetTagByNameAndParentParams{
		Name:     name,
		ParentID: parentID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding tag: %w", err)
	}
	return &tag, nil
}

func (s *SQLiteDatabase) CreateTag(ctx context.Context, name, category string, parentID sql.NullInt64) (*sqlc.Tag, error) {
	var id int64
	err := retryOnBusy(ctx, func() error {
		var err error
		id, err = s.queries.InsertTag(ctx, sqlc.InsertTagParams{
			Name:      name,
			ParentID:  parentID,
			Category:  category,
			CreatedAt: s.clock.Now(),
		})
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("creating tag %q: %w", name, catalog.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("creating tag %q: %w", name, err)
	}
	return s.FindTagByID(ctx, id)
}

func (s *SQLiteDatabase) FindTagByID(ctx context.Context, id int64) (*sqlc.Tag, error) {
	tag, err := s.queries.GetTagByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding tag by id: %w", err)
	}
	return &tag, nil
}

func (s *SQLiteDatabase) ListTags(ctx context.Context) ([]*sqlc.Tag, error) {
	tags, err := s.queries.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	result := make([]*sqlc.Tag, len(tags))
	for i := range tags {
		result[i] = &tags[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) LinkFileTag(ctx context.Context, fileID, tagID int64, source string) error {
	err := retryOnBusy(ctx, func() error {
		return s.queries.InsertFileTag(ctx, sqlc.InsertFileTagParams{
			FileID:    fileID,
			TagID:     tagID,
			Source:    source,
			CreatedAt: s.clock.Now(),
		})
	})
	if err != nil {
		return fmt.Errorf("linking file %d to tag %d: %w", fileID, tagID, err)
	}
	return nil
}

func (s *SQLiteDatabase) ListFileTags(ctx context.Context, fileID int64) ([]*sqlc.Tag, error) {
	tags, err := s.queries.ListTagsForFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("listing tags for file: %w", err)
	}
	result := make([]*sqlc.Tag, len(tags))
	for i := range tags {
		result[i] = &tags[i]
	}
	return result, nil
}

// Task operations

func (s *SQLiteDatabase) CreateTask(ctx context.Context, fileID int64, taskType string, priority int64) (*sqlc.Task, error) {
	var id int64
	err := retryOnBusy(ctx, func() error {
		var err error
		id, err = s.queries.InsertTask(ctx, sqlc.InsertTaskParams{
			FileID:    fileID,
			TaskType:  taskType,
			Priority:  priority,
			CreatedAt: s.clock.Now(),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return s.FindTaskByID(ctx, id)
}

func (s *SQLiteDatabase) CountActiveTasks(ctx context.Context, fileID int64, taskType string) (int64, error) {
	count, err := s.queries.CountActiveTasks(ctx, sqlc.CountActiveTasksParams{
		FileID:   fileID,
		TaskType: taskType,
	})
	if err != nil {
		return 0, fmt.Errorf("counting active tasks: %w", err)
	}
	return count, nil
}

func (s *SQLiteDatabase) NextPendingTask(ctx context.Context) (*sqlc.Task, error) {
	task, err := s.queries.GetNextPendingTask(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching next pending task: %w", err)
	}
	return &task, nil
}

func (s *SQLiteDatabase) ClaimTask(ctx context.Context, id int64, at time.Time) (bool, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		var err error
		affected, err = s.queries.ClaimTask(ctx, sqlc.ClaimTaskParams{
			StartedAt:   sql.NullTime{Time: at, Valid: true},
			HeartbeatAt: sql.NullTime{Time: at, Valid: true},
			ID:          id,
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("claiming task %d: %w", id, err)
	}
	return affected == 1, nil
}

func (s *SQLiteDatabase) TouchTask(ctx context.Context, id int64, at time.Time) error {
	err := retryOnBusy(ctx, func() error {
		return s.queries.TouchTask(ctx, sqlc.TouchTaskParams{
			HeartbeatAt: sql.NullTime{Time: at, Valid: true},
			ID:          id,
		})
	})
	if err != nil {
		return fmt.Errorf("refreshing heartbeat for task %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteDatabase) CompleteTask(ctx context.Context, id int64, at time.Time) (bool, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		var err error
		affected, err = s.queries.CompleteTask(ctx, sqlc.CompleteTaskParams{
			CompletedAt: sql.NullTime{Time: at, Valid: true},
			ID:          id,
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("completing task %d: %w", id, err)
	}
	return affected == 1, nil
}

func (s *SQLiteDatabase) FailTask(ctx context.Context, id int64, message string, at time.Time) (bool, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		var err error
		affected, err = s.queries.FailTask(ctx, sqlc.FailTaskParams{
			ErrorMessage: sql.NullString{String: message, Valid: true},
			CompletedAt:  sql.NullTime{Time: at, Valid: true},
			ID:           id,
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failing task %d: %w", id, err)
	}
	return affected == 1, nil
}

func (s *SQLiteDatabase) FindTaskByID(ctx context.Context, id int64) (*sqlc.Task, error) {
	task, err := s.queries.GetTaskByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding task by id: %w", err)
	}
	return &task, nil
}

func (s *SQLiteDatabase) ListTasks(ctx context.Context, filter catalog.TaskFilter) ([]*sqlc.Task, error) {
	status := int64(-1)
	if filter.Status != nil {
		status = *filter.Status
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	tasks, err := s.queries.ListTasks(ctx, sqlc.ListTasksParams{
		Status: status,
		FileID: filter.FileID,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	result := make([]*sqlc.Task, len(tasks))
	for i := range tasks {
		result[i] = &tasks[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}
