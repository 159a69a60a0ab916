package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const taskCols = "project_id, task_number, name, description, created_at, updated_at"

func scanTask(row interface{ Scan(...any) error }) (*Task, error) {
	var t Task
	err := row.Scan(&t.ProjectID, &t.TaskNumber, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &t, nil
}

// CreateTask inserts a task with the next task_number for the project. The
// number comes from the project's task_seq counter, bumped in the same
// transaction as the insert: it is strictly increasing per project and is not
// reused after a task is deleted. With no interleaved deletions it equals
// 1 + MAX(task_number). The composite primary key backs this up, so if two
// allocations ever race the loser gets ErrConflict instead of a silent
// duplicate.
func (d *DB) CreateTask(ctx context.Context, projectID int64, name, description string) (*Task, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var number int64
	err = tx.QueryRowContext(ctx,
		"UPDATE projects SET task_seq = task_seq + 1 WHERE id = ? RETURNING task_seq",
		projectID,
	).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("allocate task number: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO tasks (project_id, task_number, name, description) VALUES (?, ?, ?, ?)",
		projectID, number, name, description,
	)
	if err != nil {
		if isConstraint(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return d.GetTask(ctx, projectID, number)
}

func (d *DB) GetTask(ctx context.Context, projectID, taskNumber int64) (*Task, error) {
	row := d.conn.QueryRowContext(ctx,
		"SELECT "+taskCols+" FROM tasks WHERE project_id = ? AND task_number = ?",
		projectID, taskNumber)
	return scanTask(row)
}

func (d *DB) ListTasks(ctx context.Context, projectID int64) ([]Task, error) {
	rows, err := d.conn.QueryContext(ctx,
		"SELECT "+taskCols+" FROM tasks WHERE project_id = ? ORDER BY task_number",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (d *DB) UpdateTask(ctx context.Context, projectID, taskNumber int64, name, description *string) (*Task, error) {
	if name == nil && description == nil {
		return d.GetTask(ctx, projectID, taskNumber)
	}
	query := "UPDATE tasks SET updated_at = CURRENT_TIMESTAMP"
	args := []any{}
	if name != nil {
		query += ", name = ?"
		args = append(args, *name)
	}
	if description != nil {
		query += ", description = ?"
		args = append(args, *description)
	}
	query += " WHERE project_id = ? AND task_number = ?"
	args = append(args, projectID, taskNumber)

	res, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return d.GetTask(ctx, projectID, taskNumber)
}

// DeleteTask removes the task and, via cascading foreign keys, its todos and
// side records. The project's task_seq is left alone: the number stays spent.
func (d *DB) DeleteTask(ctx context.Context, projectID, taskNumber int64) error {
	res, err := d.conn.ExecContext(ctx,
		"DELETE FROM tasks WHERE project_id = ? AND task_number = ?",
		projectID, taskNumber)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
