package model

import "time"

// Task is a single planner item owned by one user.
type Task struct {
	ID        int64      `json:"id"              db:"id"`
	UserID    int64      `json:"userId"          db:"user_id"`
	Title     string     `json:"title"           db:"title"`
	Note      string     `json:"note"            db:"note"`
	DueAt     *time.Time `json:"dueAt,omitempty" db:"due_at"`
	Done      bool       `json:"done"            db:"done"`
	CreatedAt time.Time  `json:"createdAt"       db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt"       db:"updated_at"`
}
