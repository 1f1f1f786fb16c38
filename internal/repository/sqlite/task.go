package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/studytrackr/internal/apperror"
	"github.com/sakif/studytrackr/internal/model"
	"github.com/sakif/studytrackr/internal/repository"
)

var _ repository.TaskRepository = (*TaskDB)(nil)

// TaskDB is the tasks table.
type TaskDB struct {
	conn *sql.DB
}

const taskColumns = `id, user_id, title, description, due_date, progress, created_at, updated_at`

func scanTask(s rowScanner) (*model.Task, error) {
	var (
		t        model.Task
		progress string
		due      sql.NullTime
	)
	if err := s.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description,
		&due, &progress, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Progress = model.Progress(progress)
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return &t, nil
}

// Create inserts task, assigning ID and timestamps in place. An empty
// Progress is stored as not-started.
func (d *TaskDB) Create(ctx context.Context, task *model.Task) error {
	task.ID = xid.New().String()
	if task.Progress == "" {
		task.Progress = model.ProgressNotStarted
	}

	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.DueDate,
		string(task.Progress),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating task: %w", err)
	}

	return nil
}

// GetByID retrieves a single task.
// Returns apperror.ErrNotFound if no task exists with that ID.
func (d *TaskDB) GetByID(ctx context.Context, id string) (*model.Task, error) {
	task, err := scanTask(d.conn.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("task", id)
		}
		return nil, fmt.Errorf("sqlite: getting task %s: %w", id, err)
	}
	return task, nil
}

// List returns every task owned by one of filter.OwnerIDs, newest first.
//
// The owner set is bound as an IN (...) list so the visible set is read in a
// single statement: a task created between two queries can never appear for
// one owner and be missing for another.
func (d *TaskDB) List(ctx context.Context, filter repository.TaskFilter) ([]model.Task, error) {
	tasks := make([]model.Task, 0)
	if len(filter.OwnerIDs) == 0 {
		return tasks, nil
	}

	args := make([]any, len(filter.OwnerIDs))
	for i, id := range filter.OwnerIDs {
		args[i] = id
	}

	rows, err := d.conn.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE user_id IN (`+placeholders(len(args))+`)
		 ORDER BY created_at DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning task row: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tasks: %w", err)
	}

	return tasks, nil
}

// Update writes the mutable fields of task (title, description, due date,
// progress) and bumps updated_at. user_id and created_at are never touched.
func (d *TaskDB) Update(ctx context.Context, task *model.Task) error {
	task.UpdatedAt = time.Now().UTC()

	result, err := d.conn.ExecContext(ctx,
		`UPDATE tasks
		 SET title = ?, description = ?, due_date = ?, progress = ?, updated_at = ?
		 WHERE id = ?`,
		task.Title,
		task.Description,
		task.DueDate,
		string(task.Progress),
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating task %s: %w", task.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("task", task.ID)
	}

	return nil
}

// Delete removes a task by ID.
func (d *TaskDB) Delete(ctx context.Context, id string) error {
	result, err := d.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting task %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("task", id)
	}

	return nil
}
