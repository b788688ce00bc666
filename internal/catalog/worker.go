package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tagflow/internal/database/sqlc"
)

// LeaseExpiredMessage is recorded on Running tasks whose heartbeat stopped.
const LeaseExpiredMessage = "worker lease expired"

// WorkerConfig tunes a Worker. Zero durations disable the related behaviour,
// except PollInterval and ErrorRetryInterval which fall back to defaults.
type WorkerConfig struct {
	PollInterval       time.Duration
	ErrorRetryInterval time.Duration
	HandlerTimeout     time.Duration
	HeartbeatInterval  time.Duration
	LeaseTimeout       time.Duration
}

// Worker claims tasks one at a time and dispatches them to registered handlers.
type Worker struct {
	database Database
	queue    *TaskQueue
	registry *Registry
	clock    Clock
	logger   Logger
	cfg      WorkerConfig
}

func NewWorker(database Database, queue *TaskQueue, registry *Registry, clock Clock, logger Logger, cfg WorkerConfig) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.ErrorRetryInterval <= 0 {
		cfg.ErrorRetryInterval = 5 * time.Second
	}
	return &Worker{
		database: database,
		queue:    queue,
		registry: registry,
		clock:    clock,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run processes tasks until ctx is cancelled. When the queue is empty it
// waits for an Enqueue in this process or for the poll interval to pass.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "handlers", w.registry.Types())
	defer w.logger.Info("worker stopped")

	for {
		processed, err := w.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			w.logger.Error("worker cycle failed", "error", err)
			if !sleepCtx(ctx, w.cfg.ErrorRetryInterval) {
				return nil
			}
			continue
		}
		if processed {
			continue
		}

		var wake <-chan struct{}
		if w.queue != nil {
			wake = w.queue.Notify()
		}
		timer := time.NewTimer(w.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// RunOnce expires stale tasks, then claims and executes at most one task.
// It reports whether a task was processed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	if err := w.ExpireStale(ctx); err != nil {
		return false, err
	}

	task, err := w.claim(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	handlerErr := w.execute(ctx, task)
	w.finish(ctx, task, handlerErr)
	return true, nil
}

// ExpireStale fails Running tasks whose heartbeat is older than the lease
// timeout. Expired tasks are not retried automatically.
func (w *Worker) ExpireStale(ctx context.Context) error {
	if w.cfg.LeaseTimeout <= 0 {
		return nil
	}
	running := TaskStatusRunning
	tasks, err := w.database.ListTasks(ctx, TaskFilter{Status: &running})
	if err != nil {
		return fmt.Errorf("listing running tasks: %w", err)
	}

	now := w.clock.Now()
	cutoff := now.Add(-w.cfg.LeaseTimeout)
	for _, task := range tasks {
		last := task.HeartbeatAt
		if !last.Valid {
			last = task.StartedAt
		}
		if last.Valid && !last.Time.Before(cutoff) {
			continue
		}
		changed, err := w.database.FailTask(ctx, task.ID, LeaseExpiredMessage, now)
		if err != nil {
			return fmt.Errorf("expiring task %d: %w", task.ID, err)
		}
		if changed {
			w.logger.Warn("task lease expired", "task_id", task.ID, "file_id", task.FileID, "type", task.TaskType)
		}
	}
	return nil
}

// claim selects the best Pending task and moves it to Running. A lost race
// against another worker selects again.
func (w *Worker) claim(ctx context.Context) (*sqlc.Task, error) {
	for {
		task, err := w.database.NextPendingTask(ctx)
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, nil
		}

		ok, err := w.database.ClaimTask(ctx, task.ID, w.clock.Now())
		if err != nil {
			return nil, err
		}
		if ok {
			task.Status = TaskStatusRunning
			return task, nil
		}
		w.logger.Debug("task claimed elsewhere", "task_id", task.ID)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}

func (w *Worker) execute(ctx context.Context, task *sqlc.Task) error {
	handler, ok := w.registry.Lookup(task.TaskType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTaskType, task.TaskType)
	}

	runCtx := ctx
	if w.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.cfg.HandlerTimeout)
		defer cancel()
	}

	stop := w.heartbeat(ctx, task.ID)
	defer stop()

	w.logger.Debug("task started", "task_id", task.ID, "file_id", task.FileID, "type", task.TaskType)
	err := handler.Handle(runCtx, task.FileID, w.database)
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("handler timed out after %s: %w", w.cfg.HandlerTimeout, err)
	}
	return err
}

// heartbeat refreshes the task's heartbeat until the returned func is called.
func (w *Worker) heartbeat(ctx context.Context, taskID int64) func() {
	if w.cfg.HeartbeatInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(w.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.database.TouchTask(ctx, taskID, w.clock.Now()); err != nil {
					w.logger.Warn("heartbeat failed", "task_id", taskID, "error", err)
				}
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

// finish records the outcome. Database errors are retried so the result is
// not lost; a shutdown gives up and leaves the task to lease expiry.
func (w *Worker) finish(ctx context.Context, task *sqlc.Task, handlerErr error) {
	writeCtx := context.WithoutCancel(ctx)
	for {
		err := w.transition(writeCtx, task, handlerErr)
		if err == nil {
			return
		}
		w.logger.Error("recording task result failed", "task_id", task.ID, "error", err)
		if !sleepCtx(ctx, w.cfg.ErrorRetryInterval) {
			return
		}
	}
}

func (w *Worker) transition(ctx context.Context, task *sqlc.Task, handlerErr error) error {
	now := w.clock.Now()
	if handlerErr == nil {
		changed, err := w.database.CompleteTask(ctx, task.ID, now)
		if err != nil {
			return err
		}
		if !changed {
			w.logger.Warn("task was no longer running when completed", "task_id", task.ID)
			return nil
		}
		w.logger.Info("task completed", "task_id", task.ID, "file_id", task.FileID, "type", task.TaskType)
		return nil
	}

	changed, err := w.database.FailTask(ctx, task.ID, handlerErr.Error(), now)
	if err != nil {
		return err
	}
	if !changed {
		w.logger.Warn("task was no longer running when failed", "task_id", task.ID)
		return nil
	}
	w.logger.Warn("task failed", "task_id", task.ID, "file_id", task.FileID, "type", task.TaskType, "error", handlerErr)
	return nil
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
