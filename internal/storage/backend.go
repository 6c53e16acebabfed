package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/todod/internal/model"
	"github.com/sandeepkv93/todod/internal/stats"
	"github.com/sandeepkv93/todod/internal/store"
	"go.uber.org/zap"
)

// Backend serves the store's persistence contract from a Repository. It is
// used directly by the local TUI and behind the REST API.
type Backend struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

var _ store.Persistence = (*Backend)(nil)

type BackendOption func(*Backend)

func WithBackendLogger(l *zap.Logger) BackendOption {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithBackendClock(now func() time.Time) BackendOption {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

func WithIDGenerator(gen func() string) BackendOption {
	return func(b *Backend) {
		if gen != nil {
			b.newID = gen
		}
	}
}

func NewBackend(repo Repository, opts ...BackendOption) *Backend {
	b := &Backend{
		repo:   repo,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) GetTodos(ctx context.Context, filter store.ListFilter) ([]model.Task, error) {
	lf := TodoListFilter{Priority: string(filter.Priority), Category: filter.Category}
	if filter.Priority == model.PriorityAll {
		lf.Priority = ""
	}
	if filter.Category == model.CategoryAll {
		lf.Category = ""
	}
	switch filter.Status {
	case model.StatusActive:
		lf.Completed = boolPtr(false)
	case model.StatusCompleted:
		lf.Completed = boolPtr(true)
	}

	rows, err := b.repo.ListTodos(ctx, lf)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	out := make([]model.Task, len(rows))
	for i, row := range rows {
		out[i] = toTask(row)
	}
	return out, nil
}

func (b *Backend) CreateTodo(ctx context.Context, in model.TaskInput) (model.Task, error) {
	if err := in.Validate(); err != nil {
		return model.Task{}, err
	}
	task := model.NewTask(b.newID(), in, b.now())
	if err := b.repo.CreateTodo(ctx, fromTask(task)); err != nil {
		return model.Task{}, fmt.Errorf("create todo: %w", err)
	}
	b.rememberCategory(ctx, task)
	return b.get(ctx, task.ID)
}

func (b *Backend) UpdateTodo(ctx context.Context, id string, in model.TaskInput) (model.Task, error) {
	if err := in.Validate(); err != nil {
		return model.Task{}, err
	}
	current, err := b.get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	next := in.ApplyTo(current, b.now())
	if err := b.repo.UpdateTodo(ctx, fromTask(next)); err != nil {
		return model.Task{}, fmt.Errorf("update todo %q: %w", id, err)
	}
	b.rememberCategory(ctx, next)
	return b.get(ctx, id)
}

func (b *Backend) DeleteTodo(ctx context.Context, id string) error {
	if err := b.repo.DeleteTodo(ctx, id); err != nil {
		return fmt.Errorf("delete todo %q: %w", id, err)
	}
	return nil
}

func (b *Backend) ToggleTodo(ctx context.Context, id string, completed bool) (model.Task, error) {
	current, err := b.get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	current.Completed = completed
	current.UpdatedAt = model.Touch(current.CreatedAt, b.now())
	if err := b.repo.UpdateTodo(ctx, fromTask(current)); err != nil {
		return model.Task{}, fmt.Errorf("toggle todo %q: %w", id, err)
	}
	return b.get(ctx, id)
}

func (b *Backend) BulkDelete(ctx context.Context, ids []string) error {
	n, err := b.repo.DeleteTodos(ctx, ids)
	if err != nil {
		return fmt.Errorf("bulk delete: %w", err)
	}
	if n != len(ids) {
		b.logger.Debug("bulk delete skipped unknown ids", zap.Int("requested", len(ids)), zap.Int("count", n))
	}
	return nil
}

func (b *Backend) ReorderTodos(ctx context.Context, ids []string) error {
	if err := b.repo.Reorder(ctx, ids); err != nil {
		return fmt.Errorf("reorder todos: %w", err)
	}
	return nil
}

// GetCategories merges the remembered categories with those in use.
func (b *Backend) GetCategories(ctx context.Context) ([]string, error) {
	known, err := b.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	rows, err := b.repo.ListTodos(ctx, TodoListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	seen := make(map[string]bool, len(known))
	out := make([]string, 0, len(known))
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, c := range known {
		add(c.Name)
	}
	for _, row := range rows {
		add(row.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (b *Backend) GetStats(ctx context.Context) (stats.Stats, error) {
	tasks, err := b.GetTodos(ctx, store.ListFilter{})
	if err != nil {
		return stats.Stats{}, err
	}
	return stats.Compute(tasks, b.now()), nil
}

// ImportTasks upserts tasks keeping their ids and timestamps. New rows are
// inserted last to first so the collection keeps the given order on top.
func (b *Backend) ImportTasks(ctx context.Context, tasks []model.Task) (created, updated int, err error) {
	for i := len(tasks) - 1; i >= 0; i-- {
		t := tasks[i]
		if err := t.Validate(); err != nil {
			return created, updated, fmt.Errorf("import todo %q: %w", t.ID, err)
		}
		_, err := b.repo.GetTodo(ctx, t.ID)
		switch {
		case err == nil:
			if err := b.repo.UpdateTodo(ctx, fromTask(t)); err != nil {
				return created, updated, fmt.Errorf("import todo %q: %w", t.ID, err)
			}
			updated++
		case errors.Is(err, ErrNotFound):
			if err := b.repo.CreateTodo(ctx, fromTask(t)); err != nil {
				return created, updated, fmt.Errorf("import todo %q: %w", t.ID, err)
			}
			created++
		default:
			return created, updated, fmt.Errorf("import todo %q: %w", t.ID, err)
		}
		b.rememberCategory(ctx, t)
	}
	b.logger.Info("todos imported", zap.Int("created", created), zap.Int("updated", updated))
	return created, updated, nil
}

func (b *Backend) get(ctx context.Context, id string) (model.Task, error) {
	row, err := b.repo.GetTodo(ctx, id)
	if err != nil {
		return model.Task{}, fmt.Errorf("get todo %q: %w", id, err)
	}
	return toTask(row), nil
}

// rememberCategory is best effort; the todo row already carries the name.
func (b *Backend) rememberCategory(ctx context.Context, t model.Task) {
	if !t.HasCategory() {
		return
	}
	if err := b.repo.EnsureCategory(ctx, t.Category, b.now()); err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Warn("remember category failed", zap.String("category", t.Category), zap.Error(err))
	}
}

func toTask(row Todo) model.Task {
	return model.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Completed:   row.Completed,
		Priority:    model.Priority(row.Priority),
		Category:    row.Category,
		DueDate:     row.DueAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func fromTask(t model.Task) Todo {
	return Todo{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    string(t.Priority),
		Category:    t.Category,
		DueAt:       t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func boolPtr(v bool) *bool { return &v }
