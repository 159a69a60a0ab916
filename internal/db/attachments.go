package db

import (
	"context"
	"fmt"
)

const taskAttachmentCols = "id, project_id, task_number, user_id, file_id, directory_id, origin_name, title, icon, created_at"

func (d *DB) CreateTaskAttachment(ctx context.Context, a TaskAttachment) (*TaskAttachment, error) {
	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO task_attachments (project_id, task_number, user_id, file_id, directory_id, origin_name, title, icon)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ProjectID, a.TaskNumber, a.UserID, a.FileID, a.DirectoryID, a.OriginName, a.Title, a.Icon)
	if err != nil {
		if isConstraint(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert task attachment: %w", err)
	}
	id, _ := res.LastInsertId()
	row := d.conn.QueryRowContext(ctx,
		"SELECT "+taskAttachmentCols+" FROM task_attachments WHERE id = ?", id)
	var out TaskAttachment
	if err := row.Scan(&out.ID, &out.ProjectID, &out.TaskNumber, &out.UserID, &out.FileID,
		&out.DirectoryID, &out.OriginName, &out.Title, &out.Icon, &out.CreatedAt); err != nil {
		return nil, fmt.Errorf("get task attachment: %w", err)
	}
	return &out, nil
}

func (d *DB) GetTaskAttachment(ctx context.Context, id int64) (*TaskAttachment, error) {
	row := d.conn.QueryRowContext(ctx,
		"SELECT "+taskAttachmentCols+" FROM task_attachments WHERE id = ?", id)
	var a TaskAttachment
	err := row.Scan(&a.ID, &a.ProjectID, &a.TaskNumber, &a.UserID, &a.FileID,
		&a.DirectoryID, &a.OriginName, &a.Title, &a.Icon, &a.CreatedAt)
	if err != nil {
		return nil, scanErr("task attachment", err)
	}
	return &a, nil
}

func (d *DB) ListTaskAttachments(ctx context.Context, projectID, taskNumber int64) ([]TaskAttachment, error) {
	rows, err := d.conn.QueryContext(ctx,
		"SELECT "+taskAttachmentCols+" FROM task_attachments WHERE project_id = ? AND task_number = ? ORDER BY id",
		projectID, taskNumber)
	if err != nil {
		return nil, fmt.Errorf("list task attachments: %w", err)
	}
	defer rows.Close()

	var out []TaskAttachment
	for rows.Next() {
		var a TaskAttachment
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.TaskNumber, &a.UserID, &a.FileID,
			&a.DirectoryID, &a.OriginName, &a.Title, &a.Icon, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DB) DeleteTaskAttachment(ctx context.Context, id int64) error {
	return d.deleteByID(ctx, "task_attachments", id)
}

const todoAttachmentCols = "id, project_id, task_number, todo_number, user_id, file_id, directory_id, origin_name, title, icon, created_at"

func (d *DB) CreateTodoAttachment(ctx context.Context, a TodoAttachment) (*TodoAttachment, error) {
	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO todo_attachments (project_id, task_number, todo_number, user_id, file_id, directory_id, origin_name, title, icon)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ProjectID, a.TaskNumber, a.TodoNumber, a.UserID, a.FileID, a.DirectoryID, a.OriginName, a.Title, a.Icon)
	if err != nil {
		if isConstraint(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert todo attachment: %w", err)
	}
	id, _ := res.LastInsertId()
	return d.GetTodoAttachment(ctx, id)
}

func (d *DB) GetTodoAttachment(ctx context.Context, id int64) (*TodoAttachment, error) {
	row := d.conn.QueryRowContext(ctx,
		"SELECT "+todoAttachmentCols+" FROM todo_attachments WHERE id = ?", id)
	var a TodoAttachment
	err := row.Scan(&a.ID, &a.ProjectID, &a.TaskNumber, &a.TodoNumber, &a.UserID, &a.FileID,
		&a.DirectoryID, &a.OriginName, &a.Title, &a.Icon, &a.CreatedAt)
	if err != nil {
		return nil, scanErr("todo attachment", err)
	}
	return &a, nil
}

func (d *DB) ListTodoAttachments(ctx context.Context, projectID, taskNumber, todoNumber int64) ([]TodoAttachment, error) {
	rows, err := d.conn.QueryContext(ctx,
		"SELECT "+todoAttachmentCols+" FROM todo_attachments WHERE project_id = ? AND task_number = ? AND todo_number = ? ORDER BY id",
		projectID, taskNumber, todoNumber)
	if err != nil {
		return nil, fmt.Errorf("list todo attachments: %w", err)
	}
	defer rows.Close()

	var out []TodoAttachment
	for rows.Next() {
		var a TodoAttachment
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.TaskNumber, &a.TodoNumber, &a.UserID, &a.FileID,
			&a.DirectoryID, &a.OriginName, &a.Title, &a.Icon, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan todo attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DB) DeleteTodoAttachment(ctx context.Context, id int64) error {
	return d.deleteByID(ctx, "todo_attachments", id)
}
