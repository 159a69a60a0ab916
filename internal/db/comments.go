package db

import (
	"context"
	"fmt"
)

func (d *DB) CreateTaskComment(ctx context.Context, projectID, taskNumber, userID int64, content string) (*TaskComment, error) {
	res, err := d.conn.ExecContext(ctx,
		"INSERT INTO task_comments (project_id, task_number, user_id, content) VALUES (?, ?, ?, ?)",
		projectID, taskNumber, userID, content)
	if err != nil {
		if isConstraint(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert task comment: %w", err)
	}
	id, _ := res.LastInsertId()
	var c TaskComment
	err = d.conn.QueryRowContext(ctx,
		"SELECT id, project_id, task_number, user_id, content, created_at FROM task_comments WHERE id = ?", id,
	).Scan(&c.ID, &c.ProjectID, &c.TaskNumber, &c.UserID, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, scanErr("task comment", err)
	}
	return &c, nil
}

func (d *DB) ListTaskComments(ctx context.Context, projectID, taskNumber int64) ([]TaskComment, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, project_id, task_number, user_id, content, created_at
		 FROM task_comments WHERE project_id = ? AND task_number = ? ORDER BY id`,
		projectID, taskNumber)
	if err != nil {
		return nil, fmt.Errorf("list task comments: %w", err)
	}
	defer rows.Close()

	var out []TaskComment
	for rows.Next() {
		var c TaskComment
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.TaskNumber, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) DeleteTaskComment(ctx context.Context, id int64) error {
	return d.deleteByID(ctx, "task_comments", id)
}

func (d *DB) CreateTodoComment(ctx context.Context, projectID, taskNumber, todoNumber, userID int64, content string) (*TodoComment, error) {
	res, err := d.conn.ExecContext(ctx,
		"INSERT INTO todo_comments (project_id, task_number, todo_number, user_id, content) VALUES (?, ?, ?, ?, ?)",
		projectID, taskNumber, todoNumber, userID, content)
	if err != nil {
		if isConstraint(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert todo comment: %w", err)
	}
	id, _ := res.LastInsertId()
	var c TodoComment
	err = d.conn.QueryRowContext(ctx,
		"SELECT id, project_id, task_number, todo_number, user_id, content, created_at FROM todo_comments WHERE id = ?", id,
	).Scan(&c.ID, &c.ProjectID, &c.TaskNumber, &c.TodoNumber, &c.UserID, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, scanErr("todo comment", err)
	}
	return &c, nil
}

func (d *DB) ListTodoComments(ctx context.Context, projectID, taskNumber, todoNumber int64) ([]TodoComment, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, project_id, task_number, todo_number, user_id, content, created_at
		 FROM todo_comments WHERE project_id = ? AND task_number = ? AND todo_number = ? ORDER BY id`,
		projectID, taskNumber, todoNumber)
	if err != nil {
		return nil, fmt.Errorf("list todo comments: %w", err)
	}
	defer rows.Close()

	var out []TodoComment
	for rows.Next() {
		var c TodoComment
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.TaskNumber, &c.TodoNumber, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan todo comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) DeleteTodoComment(ctx context.Context, id int64) error {
	return d.deleteByID(ctx, "todo_comments", id)
}
