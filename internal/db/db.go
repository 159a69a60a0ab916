// Package db is the relational layer: projects, tasks and todos with their
// composite-key numbering, plus the assignment, attachment, comment and photo
// side tables. Task and todo numbers are allocated here, never by callers.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("db: not found")
	// ErrConflict is returned when an insert trips a uniqueness constraint,
	// which for tasks and todos means two writers raced on the same number.
	// The caller may retry the create.
	ErrConflict = errors.New("db: conflict")
)

type DB struct {
	conn *sql.DB
}

// Open opens (creating if needed) the sqlite database at path. Transactions
// take the write lock up front (_txlock=immediate) so concurrent creators of
// tasks and todos serialize instead of failing mid-transaction.
func Open(path string) (*DB, error) {
	dsn := path + "?_txlock=immediate&_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	d := &DB{conn: conn}
	if err := d.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Ping() error {
	return d.conn.Ping()
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func scanErr(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func (d *DB) migrate() error {
	migrations := []string{
		// Reference data owned by the fleet database. Created here too so a
		// fresh development database works without that schema attached.
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			ms_email TEXT NOT NULL DEFAULT '',
			ms_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS ships (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			ex_name TEXT NOT NULL DEFAULT '',
			yard TEXT NOT NULL DEFAULT '',
			ship_no TEXT NOT NULL DEFAULT '',
			delivered DATETIME,
			expiry_date DATETIME,
			gross_tonnage NUMERIC,
			mmsi TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_has_roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			role_id INTEGER NOT NULL REFERENCES roles(id),
			UNIQUE(user_id, role_id)
		)`,
		// task_seq is the high-water mark for task numbers in the project.
		// It only ever grows, so a deleted task's number is never reissued.
		`CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			ship_id INTEGER REFERENCES ships(id),
			owner_id INTEGER NOT NULL REFERENCES users(id),
			dock INTEGER,
			yard TEXT,
			dock_in_date DATETIME,
			dock_out_date DATETIME,
			yard_decision INTEGER,
			date_decision INTEGER,
			completion DATETIME,
			task_seq INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS project_assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(project_id, user_id)
		)`,
		// todo_seq plays the same role for todo numbers within the task.
		`CREATE TABLE IF NOT EXISTS tasks (
			project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			task_number INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			todo_seq INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (project_id, task_number)
		)`,
		`CREATE TABLE IF NOT EXISTS todos (
			project_id INTEGER NOT NULL,
			task_number INTEGER NOT NULL,
			todo_number INTEGER NOT NULL,
			description TEXT NOT NULL,
			start DATETIME,
			completed_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (project_id, task_number, todo_number),
			FOREIGN KEY (project_id, task_number)
				REFERENCES tasks(project_id, task_number) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS task_assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			task_number INTEGER NOT NULL,
			user_id INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(project_id, task_number, user_id),
			FOREIGN KEY (project_id, task_number)
				REFERENCES tasks(project_id, task_number) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS todo_assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			task_number INTEGER NOT NULL,
			todo_number INTEGER NOT NULL,
			user_id INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(project_id, task_number, todo_number, user_id),
			FOREIGN KEY (project_id, task_number, todo_number)
				REFERENCES todos(project_id, task_number, todo_number) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS task_attachments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			task_number INTEGER NOT NULL,
			user_id INTEGER NOT NULL REFERENCES users(id),
			file_id TEXT NOT NULL,
			directory_id TEXT NOT NULL DEFAULT '',
			origin_name TEXT NOT NULL,
			title TEXT NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (project_id, task_number)
				REFERENCES tasks(project_id, task_number) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS todo_attachments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			task_number INTEGER NOT NULL,
			todo_number INTEGER NOT NULL,
			user_id INTEGER NOT NULL REFERENCES users(id),
			file_id TEXT NOT NULL,
			directory_id TEXT NOT NULL DEFAULT '',
			origin_name TEXT NOT NULL,
			title TEXT NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (project_id, task_number, todo_number)
				REFERENCES todos(project_id, task_number, todo_number) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS task_comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			task_number INTEGER NOT NULL,
			user_id INTEGER NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (project_id, task_number)
				REFERENCES tasks(project_id, task_number) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS todo_comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			task_number INTEGER NOT NULL,
			todo_number INTEGER NOT NULL,
			user_id INTEGER NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (project_id, task_number, todo_number)
				REFERENCES todos(project_id, task_number, todo_number) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS project_photos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			task_number INTEGER,
			todo_number INTEGER,
			user_id INTEGER NOT NULL REFERENCES users(id),
			file_id TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := d.conn.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
