package catalog_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tagflow/internal/catalog"
	"tagflow/internal/database/sqlc"
	"tagflow/internal/testutil"
)

type workerFixture struct {
	db       catalog.Database
	clock    *testutil.StubClock
	queue    *catalog.TaskQueue
	registry *catalog.Registry
	fileID   int64
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	clock := testutil.FixedClock()
	db := testutil.NewTestDatabaseWithClock(t, clock)
	lib := testutil.NewTestLibrary(t, db, "lib")
	file, err := db.InsertFile(context.Background(), catalog.NewFile{LibraryID: lib.ID, Filename: "a.jpg", Extension: "jpg"})
	if err != nil {
		t.Fatalf("InsertFile() error = %v", err)
	}
	return &workerFixture{
		db:       db,
		clock:    clock,
		queue:    catalog.NewTaskQueue(db, catalog.NewNopLogger()),
		registry: catalog.NewRegistry(),
		fileID:   file.ID,
	}
}

func (f *workerFixture) worker(cfg catalog.WorkerConfig) *catalog.Worker {
	return catalog.NewWorker(f.db, f.queue, f.registry, f.clock, catalog.NewNopLogger(), cfg)
}

func (f *workerFixture) task(t *testing.T, id int64) *sqlc.Task {
	t.Helper()
	task, err := f.queue.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return task
}

func (f *workerFixture) enqueue(t *testing.T, taskType string, priority int64) int64 {
	t.Helper()
	id, err := f.queue.Enqueue(context.Background(), f.fileID, taskType, priority)
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	return id
}

func TestWorker_TaskLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newWorkerFixture(t)
		var pendingDuringRun bool
		f.registry.Register("thumb", catalog.HandlerFunc(func(ctx context.Context, fileID int64, db catalog.Database) error {
			pendingDuringRun, _ = f.queue.HasPending(ctx, fileID, "thumb")
			return nil
		}))

		id := f.enqueue(t, "thumb", 1)
		if task := f.task(t, id); task.Status != catalog.TaskStatusPending {
			t.Fatalf("status = %d, want Pending", task.Status)
		}
		if pending, _ := f.queue.HasPending(ctx, f.fileID, "thumb"); !pending {
			t.Error("HasPending() = false for Pending task")
		}

		processed, err := f.worker(catalog.WorkerConfig{}).RunOnce(ctx)
		if err != nil || !processed {
			t.Fatalf("RunOnce() = %v, %v", processed, err)
		}
		if !pendingDuringRun {
			t.Error("HasPending() = false while Running")
		}

		task := f.task(t, id)
		if task.Status != catalog.TaskStatusCompleted || !task.CompletedAt.Valid || !task.StartedAt.Valid {
			t.Errorf("task = %+v, want Completed with timestamps", task)
		}
		if pending, _ := f.queue.HasPending(ctx, f.fileID, "thumb"); pending {
			t.Error("HasPending() = true after completion")
		}
	})

	t.Run("failure", func(t *testing.T) {
		f := newWorkerFixture(t)
		f.registry.Register("thumb", catalog.HandlerFunc(func(ctx context.Context, fileID int64, db catalog.Database) error {
			return errors.New("decoder exploded")
		}))

		id := f.enqueue(t, "thumb", 0)
		if _, err := f.worker(catalog.WorkerConfig{}).RunOnce(ctx); err != nil {
			t.Fatalf("RunOnce() error = %v", err)
		}

		task := f.task(t, id)
		if task.Status != catalog.TaskStatusFailed || task.ErrorMessage.String != "decoder exploded" {
			t.Errorf("task = %+v, want Failed with handler error", task)
		}
		if pending, _ := f.queue.HasPending(ctx, f.fileID, "thumb"); pending {
			t.Error("HasPending() = true after failure")
		}
	})

	t.Run("unknown task type", func(t *testing.T) {
		f := newWorkerFixture(t)
		id := f.enqueue(t, "probe", 0)

		if _, err := f.worker(catalog.WorkerConfig{}).RunOnce(ctx); err != nil {
			t.Fatalf("RunOnce() error = %v", err)
		}
		task := f.task(t, id)
		if task.Status != catalog.TaskStatusFailed || task.ErrorMessage.String != "unknown task type: probe" {
			t.Errorf("task = %+v, want Failed with unknown type message", task)
		}
	})

	t.Run("empty queue", func(t *testing.T) {
		f := newWorkerFixture(t)
		processed, err := f.worker(catalog.WorkerConfig{}).RunOnce(ctx)
		if err != nil || processed {
			t.Errorf("RunOnce() = %v, %v; want false, nil", processed, err)
		}
	})
}

func TestWorker_ClaimOrder(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t)

	var order []int64
	f.registry.Register("thumb", catalog.HandlerFunc(func(ctx context.Context, fileID int64, db catalog.Database) error {
		return nil
	}))
	low := f.enqueue(t, "thumb", 1)
	high := f.enqueue(t, "thumb", 5)
	lowLater := f.enqueue(t, "thumb", 1)

	w := f.worker(catalog.WorkerConfig{})
	for {
		processed, err := w.RunOnce(ctx)
		if err != nil {
			t.Fatalf("RunOnce() error = %v", err)
		}
		if !processed {
			break
		}
		tasks, _ := f.queue.List(ctx, catalog.TaskFilter{})
		for _, task := range tasks {
			if task.Status == catalog.TaskStatusCompleted && !contains(order, task.ID) {
				order = append(order, task.ID)
			}
		}
	}

	want := []int64{high, low, lowLater}
	if len(order) != 3 || order[0] != want[0] || order[1] != want[1] || order[2] != want[2] {
		t.Errorf("processing order = %v, want %v", order, want)
	}
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestWorker_HandlerTimeout(t *testing.T) {
	f := newWorkerFixture(t)
	f.registry.Register("slow", catalog.HandlerFunc(func(ctx context.Context, fileID int64, db catalog.Database) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	id := f.enqueue(t, "slow", 0)

	w := f.worker(catalog.WorkerConfig{HandlerTimeout: 20 * time.Millisecond})
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	task := f.task(t, id)
	if task.Status != catalog.TaskStatusFailed || !strings.HasPrefix(task.ErrorMessage.String, "handler timed out") {
		t.Errorf("task = %+v, want Failed with timeout message", task)
	}
}

func TestWorker_Heartbeat(t *testing.T) {
	f := newWorkerFixture(t)
	release := make(chan struct{})
	var beats atomic.Int32
	f.registry.Register("thumb", catalog.HandlerFunc(func(ctx context.Context, fileID int64, db catalog.Database) error {
		<-release
		return nil
	}))
	id := f.enqueue(t, "thumb", 0)

	w := f.worker(catalog.WorkerConfig{HeartbeatInterval: 5 * time.Millisecond})
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.RunOnce(context.Background())
	}()

	claimed := f.clock.Now()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		f.clock.Advance(time.Second)
		task := f.task(t, id)
		if task.HeartbeatAt.Valid && task.HeartbeatAt.Time.After(claimed) {
			beats.Add(1)
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(release)
	<-done

	if beats.Load() == 0 {
		t.Error("heartbeat_at was never refreshed while the handler ran")
	}
	if task := f.task(t, id); task.Status != catalog.TaskStatusCompleted {
		t.Errorf("status = %d, want Completed", task.Status)
	}
}

func TestWorker_ExpireStale(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t)

	stale := f.enqueue(t, "thumb", 0)
	if ok, err := f.db.ClaimTask(ctx, stale, f.clock.Now()); err != nil || !ok {
		t.Fatalf("ClaimTask() = %v, %v", ok, err)
	}

	f.clock.Advance(9 * time.Minute)
	fresh := f.enqueue(t, "thumb", 0)
	if ok, err := f.db.ClaimTask(ctx, fresh, f.clock.Now()); err != nil || !ok {
		t.Fatalf("ClaimTask() = %v, %v", ok, err)
	}

	f.clock.Advance(2 * time.Minute)
	w := f.worker(catalog.WorkerConfig{LeaseTimeout: 10 * time.Minute})
	if err := w.ExpireStale(ctx); err != nil {
		t.Fatalf("ExpireStale() error = %v", err)
	}

	if task := f.task(t, stale); task.Status != catalog.TaskStatusFailed || task.ErrorMessage.String != catalog.LeaseExpiredMessage {
		t.Errorf("stale task = %+v, want Failed with %q", task, catalog.LeaseExpiredMessage)
	}
	if task := f.task(t, fresh); task.Status != catalog.TaskStatusRunning {
		t.Errorf("fresh task status = %d, want Running", task.Status)
	}
}

func TestWorker_RunWakesOnEnqueue(t *testing.T) {
	f := newWorkerFixture(t)
	handled := make(chan int64, 1)
	f.registry.Register("thumb", catalog.HandlerFunc(func(ctx context.Context, fileID int64, db catalog.Database) error {
		handled <- fileID
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	w := f.worker(catalog.WorkerConfig{PollInterval: time.Hour})
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	id := f.enqueue(t, "thumb", 0)
	select {
	case got := <-handled:
		if got != f.fileID {
			t.Errorf("handled file %d, want %d", got, f.fileID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not pick up the task without polling")
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if task := f.task(t, id); task.Status != catalog.TaskStatusCompleted {
		t.Errorf("status = %d, want Completed", task.Status)
	}
}

func TestTaskQueue_Requeue(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t)
	f.registry.Register("thumb", catalog.HandlerFunc(func(ctx context.Context, fileID int64, db catalog.Database) error {
		return errors.New("boom")
	}))

	id := f.enqueue(t, "thumb", 4)
	if _, err := f.queue.Requeue(ctx, id); err == nil {
		t.Error("Requeue() of a pending task expected error")
	}

	f.worker(catalog.WorkerConfig{}).RunOnce(ctx)

	newID, err := f.queue.Requeue(ctx, id)
	if err != nil {
		t.Fatalf("Requeue() error = %v", err)
	}
	if newID == id {
		t.Fatal("Requeue() returned the failed task's id")
	}

	old, retry := f.task(t, id), f.task(t, newID)
	if old.Status != catalog.TaskStatusFailed {
		t.Errorf("original status = %d, want Failed", old.Status)
	}
	if retry.Status != catalog.TaskStatusPending || retry.Priority != 4 || retry.FileID != f.fileID || retry.TaskType != "thumb" {
		t.Errorf("retry = %+v", retry)
	}

	if _, err := f.queue.Requeue(ctx, 9999); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Requeue(unknown) error = %v, want ErrNotFound", err)
	}

	failed := catalog.TaskStatusFailed
	tasks, _ := f.queue.List(ctx, catalog.TaskFilter{Status: &failed})
	if len(tasks) != 1 {
		t.Errorf("failed tasks = %d, want 1", len(tasks))
	}
}
