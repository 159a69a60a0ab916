package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Users, ships and roles are reference data owned by the fleet system. This
// service only reads them.

func (d *DB) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := d.conn.QueryRowContext(ctx,
		"SELECT id, email, name, ms_email, ms_id, created_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.MSEmail, &u.MSID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (d *DB) GetUserByMSID(ctx context.Context, msID string) (*User, error) {
	var u User
	err := d.conn.QueryRowContext(ctx,
		"SELECT id, email, name, ms_email, ms_id, created_at FROM users WHERE ms_id = ?", msID,
	).Scan(&u.ID, &u.Email, &u.Name, &u.MSEmail, &u.MSID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by ms id: %w", err)
	}
	return &u, nil
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := d.conn.QueryRowContext(ctx,
		"SELECT id, email, name, ms_email, ms_id, created_at FROM users WHERE email = ?", email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.MSEmail, &u.MSID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (d *DB) ListUsers(ctx context.Context, skip, limit int) ([]User, error) {
	rows, err := d.conn.QueryContext(ctx,
		"SELECT id, email, name, ms_email, ms_id, created_at FROM users ORDER BY id LIMIT ? OFFSET ?",
		limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.MSEmail, &u.MSID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (d *DB) GetShip(ctx context.Context, id int64) (*Ship, error) {
	var s Ship
	err := d.conn.QueryRowContext(ctx,
		`SELECT id, name, ex_name, yard, ship_no, delivered, expiry_date, gross_tonnage, mmsi
		 FROM ships WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.ExName, &s.Yard, &s.ShipNo, &s.Delivered, &s.ExpiryDate, &s.GrossTonnage, &s.MMSI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ship: %w", err)
	}
	return &s, nil
}

func (d *DB) ListShips(ctx context.Context, skip, limit int) ([]Ship, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, name, ex_name, yard, ship_no, delivered, expiry_date, gross_tonnage, mmsi
		 FROM ships ORDER BY id LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list ships: %w", err)
	}
	defer rows.Close()

	var ships []Ship
	for rows.Next() {
		var s Ship
		if err := rows.Scan(&s.ID, &s.Name, &s.ExName, &s.Yard, &s.ShipNo, &s.Delivered, &s.ExpiryDate, &s.GrossTonnage, &s.MMSI); err != nil {
			return nil, fmt.Errorf("scan ship: %w", err)
		}
		ships = append(ships, s)
	}
	return ships, rows.Err()
}

func (d *DB) ListRoles(ctx context.Context, skip, limit int) ([]Role, error) {
	rows, err := d.conn.QueryContext(ctx,
		"SELECT id, name, description FROM roles ORDER BY id LIMIT ? OFFSET ?", limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()
	return collectRoles(rows)
}

func (d *DB) ListUserRoles(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT r.id, r.name, r.description
		FROM roles r
		JOIN user_has_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
		ORDER BY r.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	defer rows.Close()
	return collectRoles(rows)
}

func collectRoles(rows *sql.Rows) ([]Role, error) {
	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}
