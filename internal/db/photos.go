package db

import (
	"context"
	"fmt"
)

const photoCols = "id, project_id, task_number, todo_number, user_id, file_id, category, description, created_at"

func (d *DB) CreateProjectPhoto(ctx context.Context, p ProjectPhoto) (*ProjectPhoto, error) {
	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO project_photos (project_id, task_number, todo_number, user_id, file_id, category, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ProjectID, p.TaskNumber, p.TodoNumber, p.UserID, p.FileID, p.Category, p.Description)
	if err != nil {
		if isConstraint(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert project photo: %w", err)
	}
	id, _ := res.LastInsertId()
	return d.GetProjectPhoto(ctx, id)
}

func (d *DB) GetProjectPhoto(ctx context.Context, id int64) (*ProjectPhoto, error) {
	var p ProjectPhoto
	err := d.conn.QueryRowContext(ctx,
		"SELECT "+photoCols+" FROM project_photos WHERE id = ?", id,
	).Scan(&p.ID, &p.ProjectID, &p.TaskNumber, &p.TodoNumber, &p.UserID, &p.FileID, &p.Category, &p.Description, &p.CreatedAt)
	if err != nil {
		return nil, scanErr("project photo", err)
	}
	return &p, nil
}

// ListProjectPhotos returns the project's photos, optionally narrowed to a
// task or a todo.
func (d *DB) ListProjectPhotos(ctx context.Context, projectID int64, taskNumber, todoNumber *int64) ([]ProjectPhoto, error) {
	query := "SELECT " + photoCols + " FROM project_photos WHERE project_id = ?"
	args := []any{projectID}
	if taskNumber != nil {
		query += " AND task_number = ?"
		args = append(args, *taskNumber)
	}
	if todoNumber != nil {
		query += " AND todo_number = ?"
		args = append(args, *todoNumber)
	}
	query += " ORDER BY id"

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list project photos: %w", err)
	}
	defer rows.Close()

	var out []ProjectPhoto
	for rows.Next() {
		var p ProjectPhoto
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.TaskNumber, &p.TodoNumber, &p.UserID, &p.FileID, &p.Category, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project photo: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) DeleteProjectPhoto(ctx context.Context, id int64) error {
	return d.deleteByID(ctx, "project_photos", id)
}
