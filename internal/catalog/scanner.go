package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"tagflow/internal/database/sqlc"
)

// ThumbnailTaskType is the task type of thumbnail generation.
const ThumbnailTaskType = "thumb"

// ScanOptions control the side effects of a scan beyond the catalog itself.
type ScanOptions struct {
	// ThumbnailExtensions lists lowercased extensions that get a thumbnail
	// task when a file is first catalogued. Empty disables queueing.
	ThumbnailExtensions []string
	ThumbnailPriority   int64
	// ThumbnailTaskType defaults to ThumbnailTaskType.
	ThumbnailTaskType string
}

// ScanResult summarizes one scan of a library.
type ScanResult struct {
	RunID       string
	LibraryID   int64
	LibraryName string
	Inserted    int
	Updated     int
	Unchanged   int
	Lost        int
	TasksQueued int
	Duration    time.Duration
}

// Scanner reconciles the catalog with the contents of a library's storage.
type Scanner struct {
	database Database
	opener   StorageOpener
	resolver *TagResolver
	queue    *TaskQueue
	leases   LeaseManager
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	opts     ScanOptions
	thumbExt map[string]bool
}

func NewScanner(database Database, opener StorageOpener, resolver *TagResolver, queue *TaskQueue, leases LeaseManager, logger Logger, clock Clock, idgen IDGenerator, opts ScanOptions) *Scanner {
	if opts.ThumbnailTaskType == "" {
		opts.ThumbnailTaskType = ThumbnailTaskType
	}
	thumbExt := make(map[string]bool, len(opts.ThumbnailExtensions))
	for _, ext := range opts.ThumbnailExtensions {
		thumbExt[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Scanner{
		database: database,
		opener:   opener,
		resolver: resolver,
		queue:    queue,
		leases:   leases,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		opts:     opts,
		thumbExt: thumbExt,
	}
}

// ScanLibraryByName scans the library with the given name.
func (s *Scanner) ScanLibraryByName(ctx context.Context, name string) (*ScanResult, error) {
	library, err := s.database.FindLibraryByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("finding library: %w", err)
	}
	if library == nil {
		return nil, fmt.Errorf("library %s: %w", name, ErrNotFound)
	}
	return s.ScanLibrary(ctx, library)
}

// ScanLibrary lists every entry of the library once and brings the catalog
// in line with it: new files are inserted and tagged by path, files whose
// size or mtime changed are updated, and files no longer listed are marked
// Lost. Files are never deleted.
//
// If the listing fails or ctx is cancelled, the scan stops and returns the
// error. Changes already written are kept and no file is marked Lost.
func (s *Scanner) ScanLibrary(ctx context.Context, library *sqlc.Library) (*ScanResult, error) {
	lease, err := s.leases.Acquire(library.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(); err != nil {
			s.logger.Warn("releasing scan lease failed", "library", library.Name, "error", err)
		}
	}()

	started := s.clock.Now()
	result := &ScanResult{
		RunID:       s.idgen.New(),
		LibraryID:   library.ID,
		LibraryName: library.Name,
	}
	s.logger.Info("scan started", "library", library.Name, "run_id", result.RunID)

	adapter, err := s.opener.Open(ctx, library)
	if err != nil {
		return nil, fmt.Errorf("opening library %s: %w", library.Name, err)
	}

	tracked, err := s.database.LoadFileSnapshot(ctx, library.ID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	if err := s.reconcile(ctx, library, adapter, tracked, result); err != nil {
		s.logger.Error("scan aborted", "library", library.Name, "run_id", result.RunID,
			"inserted", result.Inserted, "updated", result.Updated, "error", err)
		return result, err
	}

	for rel, state := range tracked {
		if state.Status == FileStatusLost {
			continue
		}
		parent, filename := SplitRelativePath(rel)
		changed, err := s.database.MarkFileLost(ctx, library.ID, parent, filename)
		if err != nil {
			return result, fmt.Errorf("marking %s lost: %w", rel, err)
		}
		if changed {
			result.Lost++
		}
	}

	if err := s.database.MarkLibraryScanned(ctx, library.ID, s.clock.Now()); err != nil {
		return result, fmt.Errorf("recording scan time: %w", err)
	}

	result.Duration = s.clock.Now().Sub(started)
	s.logger.Info("scan complete",
		"library", library.Name,
		"run_id", result.RunID,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"lost", result.Lost,
		"tasks_queued", result.TasksQueued,
		"duration", result.Duration,
	)
	return result, nil
}

// reconcile consumes the listing, removing every listed path from tracked.
// Listed paths that normalize to one already reconciled in this pass, such
// as the S3 keys "x//y.jpg" and "x/y.jpg", are skipped.
func (s *Scanner) reconcile(ctx context.Context, library *sqlc.Library, adapter StorageAdapter, tracked map[string]FileState, result *ScanResult) error {
	it, err := adapter.ListRecursive(ctx)
	if err != nil {
		return fmt.Errorf("listing library %s: %w", library.Name, err)
	}
	defer it.Close()

	seen := make(map[string]bool)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, ok := it.Next()
		if !ok {
			break
		}
		if entry.IsDir {
			continue
		}

		parent, filename := SplitRelativePath(entry.Path)
		rel := JoinRelativePath(parent, filename)
		if seen[rel] {
			s.logger.Warn("skipping aliased path", "library", library.Name, "path", entry.Path, "normalized", rel)
			continue
		}
		seen[rel] = true

		if err := s.reconcileEntry(ctx, library, adapter, rel, tracked, result); err != nil {
			return err
		}
	}

	if err := it.Err(); err != nil {
		return fmt.Errorf("listing library %s: %w", library.Name, err)
	}
	return ctx.Err()
}

func (s *Scanner) reconcileEntry(ctx context.Context, library *sqlc.Library, adapter StorageAdapter, rel string, tracked map[string]FileState, result *ScanResult) error {
	parent, filename := SplitRelativePath(rel)
	rel = JoinRelativePath(parent, filename)

	meta, err := adapter.Stat(ctx, rel)
	if errors.Is(err, fs.ErrNotExist) {
		// Removed between listing and stat; treated as not listed.
		s.logger.Debug("file vanished during scan", "library", library.Name, "path", rel)
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}

	known, ok := tracked[rel]
	if ok {
		delete(tracked, rel)
		if known.Size == meta.Size && known.Mtime == meta.ModTime && known.Status == FileStatusActive {
			result.Unchanged++
			return nil
		}
		if err := s.database.UpdateFileStat(ctx, library.ID, parent, filename, meta.Size, meta.ModTime); err != nil {
			return fmt.Errorf("updating %s: %w", rel, err)
		}
		result.Updated++
		s.logger.Debug("file updated", "library", library.Name, "path", rel)
		return nil
	}

	file, err := s.database.InsertFile(ctx, NewFile{
		LibraryID:  library.ID,
		ParentPath: parent,
		Filename:   filename,
		Extension:  FileExtension(filename),
		Size:       meta.Size,
		Mtime:      meta.ModTime,
	})
	if err != nil {
		return fmt.Errorf("inserting %s: %w", rel, err)
	}
	result.Inserted++
	s.logger.Debug("file added", "library", library.Name, "path", rel)

	if segments := PathSegments(parent); len(segments) > 0 {
		tagID, err := s.resolver.EnsurePathTags(ctx, segments)
		if err != nil {
			return fmt.Errorf("tagging %s: %w", rel, err)
		}
		if err := s.resolver.LinkFileToTag(ctx, file.ID, tagID, TagSourceAuto); err != nil {
			return err
		}
	}

	queued, err := s.queueThumbnail(ctx, file)
	if err != nil {
		return fmt.Errorf("queueing thumbnail for %s: %w", rel, err)
	}
	if queued {
		result.TasksQueued++
	}
	return nil
}

func (s *Scanner) queueThumbnail(ctx context.Context, file *sqlc.File) (bool, error) {
	if s.queue == nil || !s.thumbExt[file.Extension] {
		return false, nil
	}
	pending, err := s.queue.HasPending(ctx, file.ID, s.opts.ThumbnailTaskType)
	if err != nil || pending {
		return false, err
	}
	if _, err := s.queue.Enqueue(ctx, file.ID, s.opts.ThumbnailTaskType, s.opts.ThumbnailPriority); err != nil {
		return false, err
	}
	return true, nil
}
