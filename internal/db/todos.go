package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const todoCols = "project_id, task_number, todo_number, description, start, completed_at, created_at, updated_at"

func scanTodo(row interface{ Scan(...any) error }) (*Todo, error) {
	var t Todo
	err := row.Scan(&t.ProjectID, &t.TaskNumber, &t.TodoNumber, &t.Description,
		&t.Start, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan todo: %w", err)
	}
	return &t, nil
}

// CreateTodo allocates the next todo_number within (projectID, taskNumber)
// from the parent task's todo_seq counter, in the same transaction as the
// insert. Same guarantees as task numbering: strictly increasing per task,
// never reused, composite primary key as the backstop.
func (d *DB) CreateTodo(ctx context.Context, projectID, taskNumber int64, description string, start *time.Time) (*Todo, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var number int64
	err = tx.QueryRowContext(ctx,
		"UPDATE tasks SET todo_seq = todo_seq + 1 WHERE project_id = ? AND task_number = ? RETURNING todo_seq",
		projectID, taskNumber,
	).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("allocate todo number: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO todos (project_id, task_number, todo_number, description, start) VALUES (?, ?, ?, ?, ?)",
		projectID, taskNumber, number, description, start,
	)
	if err != nil {
		if isConstraint(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert todo: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return d.GetTodo(ctx, projectID, taskNumber, number)
}

func (d *DB) GetTodo(ctx context.Context, projectID, taskNumber, todoNumber int64) (*Todo, error) {
	row := d.conn.QueryRowContext(ctx,
		"SELECT "+todoCols+" FROM todos WHERE project_id = ? AND task_number = ? AND todo_number = ?",
		projectID, taskNumber, todoNumber)
	return scanTodo(row)
}

func (d *DB) ListTodos(ctx context.Context, projectID, taskNumber int64) ([]Todo, error) {
	rows, err := d.conn.QueryContext(ctx,
		"SELECT "+todoCols+" FROM todos WHERE project_id = ? AND task_number = ? ORDER BY todo_number",
		projectID, taskNumber)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *t)
	}
	return todos, rows.Err()
}

func (d *DB) UpdateTodo(ctx context.Context, projectID, taskNumber, todoNumber int64, description *string, start *time.Time) (*Todo, error) {
	if description == nil && start == nil {
		return d.GetTodo(ctx, projectID, taskNumber, todoNumber)
	}
	query := "UPDATE todos SET updated_at = CURRENT_TIMESTAMP"
	args := []any{}
	if description != nil {
		query += ", description = ?"
		args = append(args, *description)
	}
	if start != nil {
		query += ", start = ?"
		args = append(args, *start)
	}
	query += " WHERE project_id = ? AND task_number = ? AND todo_number = ?"
	args = append(args, projectID, taskNumber, todoNumber)

	res, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return d.GetTodo(ctx, projectID, taskNumber, todoNumber)
}

// CompleteTodo stamps the todo with the current time.
func (d *DB) CompleteTodo(ctx context.Context, projectID, taskNumber, todoNumber int64) (*Todo, error) {
	res, err := d.conn.ExecContext(ctx,
		`UPDATE todos SET completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE project_id = ? AND task_number = ? AND todo_number = ?`,
		projectID, taskNumber, todoNumber)
	if err != nil {
		return nil, fmt.Errorf("complete todo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return d.GetTodo(ctx, projectID, taskNumber, todoNumber)
}

func (d *DB) DeleteTodo(ctx context.Context, projectID, taskNumber, todoNumber int64) error {
	res, err := d.conn.ExecContext(ctx,
		"DELETE FROM todos WHERE project_id = ? AND task_number = ? AND todo_number = ?",
		projectID, taskNumber, todoNumber)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
