package catalog

import (
	"context"
	"fmt"

	"tagflow/internal/database/sqlc"
)

// TaskQueue is the producer side of the background task table.
type TaskQueue struct {
	database Database
	logger   Logger
	notify   chan struct{}
}

func NewTaskQueue(database Database, logger Logger) *TaskQueue {
	return &TaskQueue{
		database: database,
		logger:   logger,
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue creates a Pending task and wakes an idle worker in this process.
// Duplicate tasks are not rejected; callers check HasPending first.
func (q *TaskQueue) Enqueue(ctx context.Context, fileID int64, taskType string, priority int64) (int64, error) {
	task, err := q.database.CreateTask(ctx, fileID, taskType, priority)
	if err != nil {
		return 0, fmt.Errorf("enqueueing %s task for file %d: %w", taskType, fileID, err)
	}

	select {
	case q.notify <- struct{}{}:
	default:
	}

	q.logger.Debug("task enqueued", "task_id", task.ID, "file_id", fileID, "type", taskType, "priority", priority)
	return task.ID, nil
}

// HasPending reports whether the file has a Pending or Running task of the type.
func (q *TaskQueue) HasPending(ctx context.Context, fileID int64, taskType string) (bool, error) {
	n, err := q.database.CountActiveTasks(ctx, fileID, taskType)
	if err != nil {
		return false, fmt.Errorf("checking pending tasks: %w", err)
	}
	return n > 0, nil
}

// Get returns the task with id, or an error wrapping ErrNotFound.
func (q *TaskQueue) Get(ctx context.Context, id int64) (*sqlc.Task, error) {
	task, err := q.database.FindTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return task, nil
}

func (q *TaskQueue) List(ctx context.Context, filter TaskFilter) ([]*sqlc.Task, error) {
	return q.database.ListTasks(ctx, filter)
}

// Requeue creates a new Pending task with the file, type and priority of a
// Failed task. The failed task itself is left as it is.
func (q *TaskQueue) Requeue(ctx context.Context, id int64) (int64, error) {
	task, err := q.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if task.Status != TaskStatusFailed {
		return 0, fmt.Errorf("task %d is %s, only failed tasks can be retried", id, TaskStatusName(task.Status))
	}
	newID, err := q.Enqueue(ctx, task.FileID, task.TaskType, task.Priority)
	if err != nil {
		return 0, err
	}
	q.logger.Info("task requeued", "task_id", id, "new_task_id", newID)
	return newID, nil
}

// Notify is signalled after each Enqueue. Signals coalesce.
func (q *TaskQueue) Notify() <-chan struct{} {
	return q.notify
}
