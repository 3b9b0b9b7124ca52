package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dayloop/planner/internal/apperror"
	"github.com/dayloop/planner/internal/model"
	"github.com/dayloop/planner/internal/repository"
)

// compile-time check that *DB implements repository.TaskRepository
var _ repository.TaskRepository = (*DB)(nil)

// CreateTask inserts the task and fills in ID, CreatedAt, and UpdatedAt.
func (db *DB) CreateTask(ctx context.Context, task *model.Task) error {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, note, due_at, done, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.UserID,
		task.Title,
		task.Note,
		task.DueAt,
		task.Done,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new task id: %w", err)
	}
	task.ID = id
	return nil
}

// GetTaskByID returns apperror.ErrNotFound if no task exists with that ID.
func (db *DB) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	var t model.Task

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, note, due_at, done, created_at, updated_at
		 FROM tasks WHERE id = ?`,
		id,
	).Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Note,
		&t.DueAt,
		&t.Done,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("task", id)
		}
		return nil, fmt.Errorf("sqlite: getting task %d: %w", id, err)
	}

	return &t, nil
}

// ListTasksByUser returns the user's tasks, newest first.
func (db *DB) ListTasksByUser(ctx context.Context, userID int64, opts repository.ListOptions) ([]model.Task, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, title, note, due_at, done, created_at, updated_at
		 FROM tasks WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks for user %d: %w", userID, err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Title,
			&t.Note,
			&t.DueAt,
			&t.Done,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating task rows: %w", err)
	}

	return tasks, nil
}

// UpdateTask persists the given value as the latest state of the task.
func (db *DB) UpdateTask(ctx context.Context, task *model.Task) error {
	task.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE tasks SET title = ?, note = ?, due_at = ?, done = ?, updated_at = ?
		 WHERE id = ?`,
		task.Title,
		task.Note,
		task.DueAt,
		task.Done,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating task %d: %w", task.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of task %d: %w", task.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("task", task.ID)
	}
	return nil
}

// DeleteTask removes the task. Returns apperror.ErrNotFound if it does not
// exist.
func (db *DB) DeleteTask(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting task %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete of task %d: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("task", id)
	}
	return nil
}
