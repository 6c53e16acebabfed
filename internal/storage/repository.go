package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateTodo(ctx context.Context, in Todo) error
	GetTodo(ctx context.Context, id string) (Todo, error)
	UpdateTodo(ctx context.Context, in Todo) error
	DeleteTodo(ctx context.Context, id string) error
	DeleteTodos(ctx context.Context, ids []string) (int, error)
	ListTodos(ctx context.Context, filter TodoListFilter) ([]Todo, error)
	// Reorder assigns positions 0..n-1 in the order of ids.
	Reorder(ctx context.Context, ids []string) error

	EnsureCategory(ctx context.Context, name string, at time.Time) error
	ListCategories(ctx context.Context) ([]Category, error)
	DeleteCategory(ctx context.Context, name string) error
}
