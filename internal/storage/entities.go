package storage

import "time"

// Todo is the stored row. Category is empty when the task has none.
type Todo struct {
	ID          string
	Title       string
	Description string
	Completed   bool
	Priority    string
	Category    string
	DueAt       *time.Time
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Category struct {
	Name      string
	CreatedAt time.Time
}

type TodoListFilter struct {
	Completed *bool
	Priority  string
	Category  string
	Limit     int
	Offset    int
}
