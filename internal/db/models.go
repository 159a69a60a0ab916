package db

import "time"

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	MSEmail   string    `json:"ms_email"`
	MSID      string    `json:"ms_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Ship struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	ExName       string     `json:"ex_name"`
	Yard         string     `json:"yard"`
	ShipNo       string     `json:"ship_no"`
	Delivered    *time.Time `json:"delivered"`
	ExpiryDate   *time.Time `json:"expiry_date"`
	GrossTonnage *float64   `json:"gross_tonnage"`
	MMSI         string     `json:"mmsi"`
}

type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Project struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	ShipID       *int64     `json:"ship_id"`
	OwnerID      int64      `json:"owner_id"`
	Dock         *bool      `json:"dock"`
	Yard         *string    `json:"yard"`
	DockInDate   *time.Time `json:"dock_in_date"`
	DockOutDate  *time.Time `json:"dock_out_date"`
	YardDecision *bool      `json:"yard_decision"`
	DateDecision *bool      `json:"date_decision"`
	Completion   *time.Time `json:"completion"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Task is identified by (project_id, task_number); TaskNumber is assigned by
// the store at creation time and never supplied by callers.
type Task struct {
	ProjectID   int64     `json:"project_id"`
	TaskNumber  int64     `json:"task_number"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Todo is identified by (project_id, task_number, todo_number); TodoNumber is
// assigned by the store at creation time.
type Todo struct {
	ProjectID   int64      `json:"project_id"`
	TaskNumber  int64      `json:"task_number"`
	TodoNumber  int64      `json:"todo_number"`
	Description string     `json:"description"`
	Start       *time.Time `json:"start"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ProjectAssignment struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type TaskAssignment struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"project_id"`
	TaskNumber int64     `json:"task_number"`
	UserID     int64     `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type TodoAssignment struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"project_id"`
	TaskNumber int64     `json:"task_number"`
	TodoNumber int64     `json:"todo_number"`
	UserID     int64     `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type TaskAttachment struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	TaskNumber  int64     `json:"task_number"`
	UserID      int64     `json:"user_id"`
	FileID      string    `json:"file_id"`
	DirectoryID string    `json:"directory_id"`
	OriginName  string    `json:"origin_name"`
	Title       string    `json:"title"`
	Icon        string    `json:"icon"`
	CreatedAt   time.Time `json:"created_at"`
}

type TodoAttachment struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	TaskNumber  int64     `json:"task_number"`
	TodoNumber  int64     `json:"todo_number"`
	UserID      int64     `json:"user_id"`
	FileID      string    `json:"file_id"`
	DirectoryID string    `json:"directory_id"`
	OriginName  string    `json:"origin_name"`
	Title       string    `json:"title"`
	Icon        string    `json:"icon"`
	CreatedAt   time.Time `json:"created_at"`
}

type TaskComment struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"project_id"`
	TaskNumber int64     `json:"task_number"`
	UserID     int64     `json:"user_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type TodoComment struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"project_id"`
	TaskNumber int64     `json:"task_number"`
	TodoNumber int64     `json:"todo_number"`
	UserID     int64     `json:"user_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type ProjectPhoto struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	TaskNumber  *int64    `json:"task_number"`
	TodoNumber  *int64    `json:"todo_number"`
	UserID      int64     `json:"user_id"`
	FileID      string    `json:"file_id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
