package store

import (
	"context"

	"github.com/sandeepkv93/todod/internal/model"
	"github.com/sandeepkv93/todod/internal/stats"
)

// Persistence is the collaborator that durably holds the collection. Any
// call may fail; the store never retries.
type Persistence interface {
	GetTodos(ctx context.Context, filter ListFilter) ([]model.Task, error)
	CreateTodo(ctx context.Context, in model.TaskInput) (model.Task, error)
	UpdateTodo(ctx context.Context, id string, in model.TaskInput) (model.Task, error)
	DeleteTodo(ctx context.Context, id string) error
	ToggleTodo(ctx context.Context, id string, completed bool) (model.Task, error)
	BulkDelete(ctx context.Context, ids []string) error
	// ReorderTodos is best effort; implementations may ignore it.
	ReorderTodos(ctx context.Context, ids []string) error
	GetCategories(ctx context.Context) ([]string, error)
	GetStats(ctx context.Context) (stats.Stats, error)
}

// ListFilter narrows GetTodos on the collaborator side. The zero value
// returns the full collection in stored order.
type ListFilter struct {
	Status   model.StatusFilter `json:"status,omitempty"`
	Priority model.Priority     `json:"priority,omitempty"`
	Category string             `json:"category,omitempty"`
}

func (f ListFilter) IsZero() bool {
	return f == ListFilter{}
}

// Session exposes the opaque credential obtained at sign-in.
type Session interface {
	Token() string
}

type StaticToken string

func (t StaticToken) Token() string { return string(t) }
