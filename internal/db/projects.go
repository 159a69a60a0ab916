package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const projectCols = `id, name, description, ship_id, owner_id, dock, yard,
	dock_in_date, dock_out_date, yard_decision, date_decision, completion,
	created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	var p Project
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.ShipID, &p.OwnerID, &p.Dock, &p.Yard,
		&p.DockInDate, &p.DockOutDate, &p.YardDecision, &p.DateDecision, &p.Completion,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}

type ProjectParams struct {
	Name         *string    `json:"name"`
	Description  *string    `json:"description"`
	ShipID       *int64     `json:"ship_id"`
	Dock         *bool      `json:"dock"`
	Yard         *string    `json:"yard"`
	DockInDate   *time.Time `json:"dock_in_date"`
	DockOutDate  *time.Time `json:"dock_out_date"`
	YardDecision *bool      `json:"yard_decision"`
	DateDecision *bool      `json:"date_decision"`
	Completion   *time.Time `json:"completion"`
}

func (d *DB) CreateProject(ctx context.Context, ownerID int64, p ProjectParams) (*Project, error) {
	name := ""
	if p.Name != nil {
		name = *p.Name
	}
	desc := ""
	if p.Description != nil {
		desc = *p.Description
	}
	res, err := d.conn.ExecContext(ctx, `
		INSERT INTO projects (name, description, ship_id, owner_id, dock, yard,
			dock_in_date, dock_out_date, yard_decision, date_decision, completion)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name, desc, p.ShipID, ownerID, p.Dock, p.Yard,
		p.DockInDate, p.DockOutDate, p.YardDecision, p.DateDecision, p.Completion,
	)
	if err != nil {
		if isConstraint(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("project id: %w", err)
	}
	return d.GetProject(ctx, id)
}

func (d *DB) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := d.conn.QueryRowContext(ctx,
		"SELECT "+projectCols+" FROM projects WHERE id = ?", id)
	return scanProject(row)
}

func (d *DB) ListProjects(ctx context.Context, skip, limit int) ([]Project, error) {
	return d.listProjects(ctx,
		"SELECT "+projectCols+" FROM projects ORDER BY id LIMIT ? OFFSET ?", limit, skip)
}

func (d *DB) ListProjectsByOwner(ctx context.Context, ownerID int64, skip, limit int) ([]Project, error) {
	return d.listProjects(ctx,
		"SELECT "+projectCols+" FROM projects WHERE owner_id = ? ORDER BY id LIMIT ? OFFSET ?",
		ownerID, limit, skip)
}

func (d *DB) listProjects(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// UpdateProject applies only the fields set in params, mirroring a partial
// update request body.
func (d *DB) UpdateProject(ctx context.Context, id int64, p ProjectParams) (*Project, error) {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.ShipID != nil {
		add("ship_id", *p.ShipID)
	}
	if p.Dock != nil {
		add("dock", *p.Dock)
	}
	if p.Yard != nil {
		add("yard", *p.Yard)
	}
	if p.DockInDate != nil {
		add("dock_in_date", *p.DockInDate)
	}
	if p.DockOutDate != nil {
		add("dock_out_date", *p.DockOutDate)
	}
	if p.YardDecision != nil {
		add("yard_decision", *p.YardDecision)
	}
	if p.DateDecision != nil {
		add("date_decision", *p.DateDecision)
	}
	if p.Completion != nil {
		add("completion", *p.Completion)
	}

	args = append(args, id)
	res, err := d.conn.ExecContext(ctx,
		"UPDATE projects SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return d.GetProject(ctx, id)
}

func (d *DB) DeleteProject(ctx context.Context, id int64) error {
	res, err := d.conn.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
