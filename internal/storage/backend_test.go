package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sandeepkv93/todod/internal/model"
	"github.com/sandeepkv93/todod/internal/store"
)

func setupBackend(t *testing.T) (*Backend, *time.Time) {
	t.Helper()
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	seq := 0
	b := NewBackend(setupRepo(t),
		WithBackendClock(func() time.Time { return now }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("todo-%d", seq)
		}),
	)
	return b, &now
}

func TestBackendCreateAppliesDefaults(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	task, err := b.CreateTodo(ctx, model.TaskInput{Title: "  Buy milk ", Category: "Home"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID != "todo-1" || task.Title != "Buy milk" || task.Priority != model.PriorityMedium || task.Completed {
		t.Fatalf("unexpected created task: %#v", task)
	}

	if _, err := b.CreateTodo(ctx, model.TaskInput{Title: ""}); !errors.Is(err, model.ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}

	cats, err := b.GetCategories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 1 || cats[0] != "Home" {
		t.Fatalf("unexpected categories: %v", cats)
	}
}

func TestBackendUpdateToggleAndTimestamps(t *testing.T) {
	b, now := setupBackend(t)
	ctx := context.Background()

	task, err := b.CreateTodo(ctx, model.TaskInput{Title: "draft"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	*now = now.Add(time.Hour)
	updated, err := b.UpdateTodo(ctx, task.ID, model.TaskInput{Title: "final", Priority: "high"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "final" || updated.Priority != model.PriorityHigh {
		t.Fatalf("unexpected update: %#v", updated)
	}
	if !updated.CreatedAt.Equal(task.CreatedAt) || !updated.UpdatedAt.Equal(*now) {
		t.Fatalf("unexpected timestamps: created=%v updated=%v", updated.CreatedAt, updated.UpdatedAt)
	}

	*now = now.Add(time.Hour)
	toggled, err := b.ToggleTodo(ctx, task.ID, true)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.Completed || !toggled.UpdatedAt.Equal(*now) {
		t.Fatalf("unexpected toggle result: %#v", toggled)
	}

	if _, err := b.ToggleTodo(ctx, "ghost", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBackendListFilterAndStats(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		if _, err := b.CreateTodo(ctx, model.TaskInput{Title: title}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}
	if _, err := b.ToggleTodo(ctx, "todo-2", true); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	active, err := b.GetTodos(ctx, store.ListFilter{Status: model.StatusActive})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active, got %d", len(active))
	}

	all, err := b.GetTodos(ctx, store.ListFilter{Priority: model.PriorityAll, Category: model.CategoryAll})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 todos, got %d", len(all))
	}

	st, err := b.GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 3 || st.Completed != 1 || int(st.CompletionRate) != 33 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestBackendDrivesStoreReorder(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()
	for _, title := range []string{"A", "B", "C"} {
		if _, err := b.CreateTodo(ctx, model.TaskInput{Title: title}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	s := store.New(b)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	order := model.IDs(s.Tasks())
	reversed := []string{order[2], order[1], order[0]}

	res, err := s.Reorder(ctx, reversed)
	if err != nil || res != store.ReorderApplied {
		t.Fatalf("reorder: %v %v", res, err)
	}

	fresh := store.New(b)
	if err := fresh.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := model.IDs(fresh.Tasks())
	for i := range reversed {
		if got[i] != reversed[i] {
			t.Fatalf("expected persisted order %v, got %v", reversed, got)
		}
	}
}

func TestBackendBulkDelete(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		if _, err := b.CreateTodo(ctx, model.TaskInput{Title: title}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}
	if err := b.BulkDelete(ctx, []string{"todo-1", "todo-3", "missing"}); err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	left, err := b.GetTodos(ctx, store.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 1 || left[0].ID != "todo-2" {
		t.Fatalf("unexpected remaining todos: %#v", left)
	}
	if err := b.DeleteTodo(ctx, "todo-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBackendImportTasksUpserts(t *testing.T) {
	b, now := setupBackend(t)
	ctx := context.Background()

	existing, err := b.CreateTodo(ctx, model.TaskInput{Title: "old title"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	created := now.Add(-48 * time.Hour)
	imported := []model.Task{
		{ID: "imp-1", Title: "first", Priority: model.PriorityHigh, Category: "Errands", CreatedAt: created, UpdatedAt: created},
		{ID: existing.ID, Title: "new title", Priority: model.PriorityLow, Completed: true, CreatedAt: existing.CreatedAt, UpdatedAt: *now},
		{ID: "imp-2", Title: "second", Priority: model.PriorityMedium, CreatedAt: created, UpdatedAt: created},
	}
	c, u, err := b.ImportTasks(ctx, imported)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if c != 2 || u != 1 {
		t.Fatalf("expected 2 created 1 updated, got %d/%d", c, u)
	}

	all, err := b.GetTodos(ctx, store.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := model.IDs(all)
	if len(ids) != 3 || ids[0] != "imp-1" || ids[1] != "imp-2" {
		t.Fatalf("expected imported rows on top in file order, got %v", ids)
	}
	got, err := b.get(ctx, existing.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "new title" || !got.Completed || got.Priority != model.PriorityLow {
		t.Fatalf("expected existing row overwritten, got %#v", got)
	}
	if !all[0].CreatedAt.Equal(created) {
		t.Fatalf("expected created_at preserved, got %v", all[0].CreatedAt)
	}

	bad := []model.Task{{ID: "x", Title: "", Priority: model.PriorityLow, CreatedAt: created, UpdatedAt: created}}
	if _, _, err := b.ImportTasks(ctx, bad); !errors.Is(err, model.ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask, got %v", err)
	}
}
