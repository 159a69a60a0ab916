package db

import (
	"context"
	"fmt"
)

func (d *DB) CreateProjectAssignment(ctx context.Context, projectID, userID int64) (*ProjectAssignment, error) {
	res, err := d.conn.ExecContext(ctx,
		"INSERT INTO project_assignments (project_id, user_id) VALUES (?, ?)",
		projectID, userID)
	if err != nil {
		if isConstraint(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert project assignment: %w", err)
	}
	id, _ := res.LastInsertId()
	var a ProjectAssignment
	err = d.conn.QueryRowContext(ctx,
		"SELECT id, project_id, user_id, created_at FROM project_assignments WHERE id = ?", id,
	).Scan(&a.ID, &a.ProjectID, &a.UserID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get project assignment: %w", err)
	}
	return &a, nil
}

func (d *DB) ListProjectAssignments(ctx context.Context, projectID int64) ([]ProjectAssignment, error) {
	rows, err := d.conn.QueryContext(ctx,
		"SELECT id, project_id, user_id, created_at FROM project_assignments WHERE project_id = ? ORDER BY id",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list project assignments: %w", err)
	}
	defer rows.Close()

	var out []ProjectAssignment
	for rows.Next() {
		var a ProjectAssignment
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.UserID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DB) DeleteProjectAssignment(ctx context.Context, id int64) error {
	return d.deleteByID(ctx, "project_assignments", id)
}

func (d *DB) CreateTaskAssignment(ctx context.Context, projectID, taskNumber, userID int64) (*TaskAssignment, error) {
	res, err := d.conn.ExecContext(ctx,
		"INSERT INTO task_assignments (project_id, task_number, user_id) VALUES (?, ?, ?)",
		projectID, taskNumber, userID)
	if err != nil {
		if isConstraint(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert task assignment: %w", err)
	}
	id, _ := res.LastInsertId()
	var a TaskAssignment
	err = d.conn.QueryRowContext(ctx,
		"SELECT id, project_id, task_number, user_id, created_at FROM task_assignments WHERE id = ?", id,
	).Scan(&a.ID, &a.ProjectID, &a.TaskNumber, &a.UserID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get task assignment: %w", err)
	}
	return &a, nil
}

func (d *DB) ListTaskAssignments(ctx context.Context, projectID, taskNumber int64) ([]TaskAssignment, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, project_id, task_number, user_id, created_at
		 FROM task_assignments WHERE project_id = ? AND task_number = ? ORDER BY id`,
		projectID, taskNumber)
	if err != nil {
		return nil, fmt.Errorf("list task assignments: %w", err)
	}
	defer rows.Close()

	var out []TaskAssignment
	for rows.Next() {
		var a TaskAssignment
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.TaskNumber, &a.UserID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DB) DeleteTaskAssignment(ctx context.Context, id int64) error {
	return d.deleteByID(ctx, "task_assignments", id)
}

func (d *DB) CreateTodoAssignment(ctx context.Context, projectID, taskNumber, todoNumber, userID int64) (*TodoAssignment, error) {
	res, err := d.conn.ExecContext(ctx,
		"INSERT INTO todo_assignments (project_id, task_number, todo_number, user_id) VALUES (?, ?, ?, ?)",
		projectID, taskNumber, todoNumber, userID)
	if err != nil {
		if isConstraint(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert todo assignment: %w", err)
	}
	id, _ := res.LastInsertId()
	var a TodoAssignment
	err = d.conn.QueryRowContext(ctx,
		"SELECT id, project_id, task_number, todo_number, user_id, created_at FROM todo_assignments WHERE id = ?", id,
	).Scan(&a.ID, &a.ProjectID, &a.TaskNumber, &a.TodoNumber, &a.UserID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get todo assignment: %w", err)
	}
	return &a, nil
}

func (d *DB) ListTodoAssignments(ctx context.Context, projectID, taskNumber, todoNumber int64) ([]TodoAssignment, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, project_id, task_number, todo_number, user_id, created_at
		 FROM todo_assignments WHERE project_id = ? AND task_number = ? AND todo_number = ? ORDER BY id`,
		projectID, taskNumber, todoNumber)
	if err != nil {
		return nil, fmt.Errorf("list todo assignments: %w", err)
	}
	defer rows.Close()

	var out []TodoAssignment
	for rows.Next() {
		var a TodoAssignment
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.TaskNumber, &a.TodoNumber, &a.UserID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan todo assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DB) DeleteTodoAssignment(ctx context.Context, id int64) error {
	return d.deleteByID(ctx, "todo_assignments", id)
}

func (d *DB) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := d.conn.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
