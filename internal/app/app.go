package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tagflow/internal/catalog"
	"tagflow/internal/config"
	"tagflow/internal/database"
	"tagflow/internal/database/sqlc"
	"tagflow/internal/lease"
	"tagflow/internal/secrets"
	"tagflow/internal/storage"
	"tagflow/internal/thumbnail"
)

// daemonLockName guards against two workers sharing one catalog.
const daemonLockName = "worker"

// ErrDaemonRunning is returned by RunDaemon and ProcessPending when another
// worker holds the lock.
var ErrDaemonRunning = errors.New("another tagflow worker is already running")

// App is the application layer between the CLI and the catalog services.
// It constructs all dependencies from config and owns the database and log
// file until Close.
type App struct {
	cfg       *config.Config
	db        catalog.Database
	opener    *storage.Opener
	leases    catalog.LeaseManager
	locks     *lease.FileManager
	workerMu  sync.Mutex
	queue     *catalog.TaskQueue
	resolver  *catalog.TagResolver
	scanner   *catalog.Scanner
	registry  *catalog.Registry
	thumbs    *thumbnail.Handler
	worker    *catalog.Worker
	scheduler *catalog.Scheduler
	logger    catalog.Logger
	logCloser io.Closer
}

// Options adjust how New builds an App.
type Options struct {
	// Stderr receives human readable logs. Defaults to os.Stderr.
	Stderr io.Writer
	// Generator overrides the ffmpeg thumbnail generator.
	Generator thumbnail.Generator
	// Memory stores registered for libraries with protocol "memory".
	Memory map[string]*storage.MemoryAdapter
}

// New creates a fully wired App from cfg and synchronizes the configured
// libraries into the catalog. operation names the CLI command being run.
// The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, operation string, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logCloser, err := newLogger(cfg.Log, cfg.LogDir, runID, opts.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("op", operation)}

	unsealer, err := loadUnsealer(cfg)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, catalog.RealClock{}, logger)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	a := &App{
		cfg:       cfg,
		db:        db,
		logger:    logger,
		logCloser: logCloser,
	}

	// A memory catalog cannot be shared with another process, so its scan
	// leases only need to exclude goroutines.
	if cfg.Database.Type == "memory" {
		a.leases = lease.NewMemoryManager()
	} else {
		a.locks, err = lease.NewFileManager(filepath.Join(cfg.Database.DataDir, "locks"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.leases = a.locks
	}

	a.opener = storage.NewOpener(storage.Options{Ignore: cfg.Scan.Ignore, Unsealer: unsealer})
	for name, m := range opts.Memory {
		a.opener.RegisterMemory(name, m)
	}

	generator := opts.Generator
	if generator == nil {
		generator = &thumbnail.FFmpegGenerator{
			Path:    cfg.Thumbnail.FFmpegPath,
			Size:    cfg.Thumbnail.Size,
			Quality: cfg.Thumbnail.Quality,
		}
	}
	a.thumbs = thumbnail.NewHandler(a.opener, generator, cfg.Cache.Dir, cfg.Thumbnail.Extension, logger)

	a.registry = catalog.NewRegistry()
	if err := a.registry.Register(catalog.ThumbnailTaskType, a.thumbs); err != nil {
		a.Close()
		return nil, err
	}

	a.queue = catalog.NewTaskQueue(db, logger)
	a.resolver = catalog.NewTagResolver(db, logger)
	a.scanner = catalog.NewScanner(db, a.opener, a.resolver, a.queue, a.leases, logger,
		catalog.RealClock{}, catalog.UUIDGenerator{}, catalog.ScanOptions{
			ThumbnailExtensions: cfg.Scan.ThumbnailExtensions,
			ThumbnailPriority:   cfg.Scan.ThumbnailPriority,
		})
	a.worker = catalog.NewWorker(db, a.queue, a.registry, catalog.RealClock{}, logger, catalog.WorkerConfig{
		PollInterval:       cfg.Worker.PollInterval.Duration,
		ErrorRetryInterval: cfg.Worker.ErrorRetryInterval.Duration,
		HandlerTimeout:     cfg.Worker.HandlerTimeout.Duration,
		HeartbeatInterval:  cfg.Worker.HeartbeatInterval.Duration,
		LeaseTimeout:       cfg.Worker.LeaseTimeout.Duration,
	})
	a.scheduler = catalog.NewScheduler(db, a.scanner, logger, cfg.Scan.Interval.Duration)

	if _, err := a.SyncLibraries(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// loadUnsealer reads the age identity when any library option is sealed.
func loadUnsealer(cfg *config.Config) (*secrets.Unsealer, error) {
	sealed := false
	for _, lib := range cfg.Libraries {
		if secrets.HasSealed(lib.Options) {
			sealed = true
			break
		}
	}
	if !sealed {
		return secrets.NewUnsealer(), nil
	}
	if cfg.Secrets.IdentityPath == "" {
		return nil, fmt.Errorf("library options are sealed but secrets.identity_path is not set: %w", secrets.ErrNoIdentity)
	}
	u, err := secrets.NewUnsealerFromFile(cfg.Secrets.IdentityPath)
	if err != nil {
		return nil, fmt.Errorf("loading age identity: %w", err)
	}
	return u, nil
}

// SyncLibraries upserts every configured library by name. Libraries removed
// from the config stay in the catalog.
func (a *App) SyncLibraries(ctx context.Context) ([]*sqlc.Library, error) {
	libs := make([]*sqlc.Library, 0, len(a.cfg.Libraries))
	for _, lc := range a.cfg.Libraries {
		options, err := storage.EncodeOptions(lc.Options)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", lc.Name, err)
		}
		lib, err := a.db.UpsertLibrary(ctx, catalog.LibraryDefinition{
			Name:       lc.Name,
			Protocol:   lc.Protocol,
			BasePath:   lc.BasePath,
			ConfigJSON: options,
		})
		if err != nil {
			return nil, fmt.Errorf("syncing library %s: %w", lc.Name, err)
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

// Libraries returns every library in the catalog.
func (a *App) Libraries(ctx context.Context) ([]*sqlc.Library, error) {
	return a.db.ListLibraries(ctx)
}

// TestLibrary opens a library's storage and checks that it is reachable.
func (a *App) TestLibrary(ctx context.Context, name string) error {
	lib, err := a.findLibrary(ctx, name)
	if err != nil {
		return err
	}
	adapter, err := a.opener.Open(ctx, lib)
	if err != nil {
		return err
	}
	return adapter.Validate(ctx)
}

// Scan scans the named libraries, or every library when names is empty.
// Each library is attempted; the errors of all failures are joined.
func (a *App) Scan(ctx context.Context, names []string) ([]*catalog.ScanResult, error) {
	var libs []*sqlc.Library
	if len(names) == 0 {
		all, err := a.db.ListLibraries(ctx)
		if err != nil {
			return nil, err
		}
		libs = all
	} else {
		for _, name := range names {
			lib, err := a.findLibrary(ctx, name)
			if err != nil {
				return nil, err
			}
			libs = append(libs, lib)
		}
	}

	var (
		results []*catalog.ScanResult
		errs    []error
	)
	for _, lib := range libs {
		result, err := a.scanner.ScanLibrary(ctx, lib)
		if err != nil {
			errs = append(errs, fmt.Errorf("library %s: %w", lib.Name, err))
			continue
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

// RunDaemon runs the worker and the scan scheduler until ctx is cancelled.
func (a *App) RunDaemon(ctx context.Context) error {
	release, err := a.lockWorker()
	if err != nil {
		return err
	}
	defer release()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.worker.Run(ctx) })
	g.Go(func() error { return a.scheduler.Run(ctx) })
	return g.Wait()
}

// lockWorker takes the worker lock shared by RunDaemon and ProcessPending,
// so that at most one process executes tasks.
func (a *App) lockWorker() (func(), error) {
	if !a.workerMu.TryLock() {
		return nil, ErrDaemonRunning
	}
	if a.locks == nil {
		return a.workerMu.Unlock, nil
	}
	l, err := a.locks.AcquireName(daemonLockName)
	if err != nil {
		a.workerMu.Unlock()
		if errors.Is(err, catalog.ErrScanInProgress) {
			return nil, ErrDaemonRunning
		}
		return nil, err
	}
	return func() {
		if err := l.Release(); err != nil {
			a.logger.Warn("releasing worker lock failed", "error", err)
		}
		a.workerMu.Unlock()
	}, nil
}

// ProcessPending runs queued tasks until the queue is empty.
// It returns the number of tasks processed, or ErrDaemonRunning when
// another worker holds the lock.
func (a *App) ProcessPending(ctx context.Context) (int, error) {
	release, err := a.lockWorker()
	if err != nil {
		return 0, err
	}
	defer release()

	n := 0
	for {
		processed, err := a.worker.RunOnce(ctx)
		if err != nil {
			return n, err
		}
		if !processed {
			return n, nil
		}
		n++
	}
}

// EnqueueTask queues a task for an existing file.
func (a *App) EnqueueTask(ctx context.Context, fileID int64, taskType string, priority int64) (int64, error) {
	file, err := a.db.FindFileByID(ctx, fileID)
	if err != nil {
		return 0, err
	}
	if file == nil {
		return 0, fmt.Errorf("file %d: %w", fileID, catalog.ErrNotFound)
	}
	return a.queue.Enqueue(ctx, fileID, taskType, priority)
}

func (a *App) HasPending(ctx context.Context, fileID int64, taskType string) (bool, error) {
	return a.queue.HasPending(ctx, fileID, taskType)
}

func (a *App) ListTasks(ctx context.Context, filter catalog.TaskFilter) ([]*sqlc.Task, error) {
	return a.queue.List(ctx, filter)
}

// RetryTask re-enqueues a failed task and returns the new task id.
func (a *App) RetryTask(ctx context.Context, id int64) (int64, error) {
	return a.queue.Requeue(ctx, id)
}

func (a *App) TagTree(ctx context.Context) (*catalog.TagTree, error) {
	return a.resolver.TagTree(ctx)
}

// ListFiles lists catalogued files, optionally restricted to a tag. page
// is 1-based and applies only when limit is positive.
func (a *App) ListFiles(ctx context.Context, tagID int64, recursive bool, limit, page int64) ([]*sqlc.File, error) {
	var offset int64
	if limit > 0 && page > 1 {
		offset = (page - 1) * limit
	}
	if tagID != 0 {
		return a.resolver.ListFilesByTag(ctx, tagID, recursive, limit, offset)
	}
	return a.db.ListFiles(ctx, catalog.FileFilter{Limit: limit, Offset: offset})
}

// ThumbnailPath returns where the thumbnail of a file is or will be stored.
func (a *App) ThumbnailPath(fileID int64) string {
	return a.thumbs.ArtifactPath(fileID)
}

func (a *App) findLibrary(ctx context.Context, name string) (*sqlc.Library, error) {
	lib, err := a.db.FindLibraryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if lib == nil {
		return nil, fmt.Errorf("library %s: %w", name, catalog.ErrNotFound)
	}
	return lib, nil
}

// Close closes the database and the log file.
func (a *App) Close() error {
	var firstErr error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
	return firstErr
}
