// Package store owns the in-memory task collection and the active criteria.
// It mediates every call to the persistence collaborator and keeps the
// collection consistent with some real state when a call fails.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sandeepkv93/todod/internal/dates"
	"github.com/sandeepkv93/todod/internal/model"
	"github.com/sandeepkv93/todod/internal/query"
	"github.com/sandeepkv93/todod/internal/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const fetchKey = "todos"

type Store struct {
	backend Persistence
	logger  *zap.Logger
	now     func() time.Time
	session Session
	engine  query.Engine
	topN    int

	locks *keyedMutex
	group singleflight.Group

	mu       sync.RWMutex
	state    State
	lastErr  error
	tasks    []model.Task
	criteria model.FilterCriteria
	search   string
	version  uint64
	// gen counts collection swaps only; a shared read taken before a
	// write must not overwrite it.
	gen uint64
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithSession(sess Session) Option {
	return func(s *Store) { s.session = sess }
}

// WithDateFilters replaces the date bucket registry, e.g. to add buckets.
func WithDateFilters(f dates.Filters) Option {
	return func(s *Store) {
		if f != nil {
			s.engine = query.Engine{Buckets: f}
		}
	}
}

// WithCriteria seeds the active criteria, typically from saved preferences.
// Invalid criteria are ignored.
func WithCriteria(c model.FilterCriteria) Option {
	return func(s *Store) {
		if n, err := s.checkCriteria(c); err == nil {
			s.criteria = n
		}
	}
}

// WithTopCategories caps the category distribution returned by Stats.
// A negative n disables the cap.
func WithTopCategories(n int) Option {
	return func(s *Store) { s.topN = n }
}

func New(backend Persistence, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		logger:   zap.NewNop(),
		now:      time.Now,
		engine:   query.New(),
		topN:     stats.DefaultTopN,
		locks:    newKeyedMutex(),
		state:    StateIdle,
		criteria: model.DefaultCriteria(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastError is the most recent failure, cleared by the next successful fetch.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Version increases on every change to the collection or the criteria.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) Authenticated() bool {
	return s.session != nil && s.session.Token() != ""
}

// Tasks returns a copy of the full collection in stored order.
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneTasks(s.tasks)
}

func (s *Store) Criteria() model.FilterCriteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

func (s *Store) Search() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search
}

// Visible is the list the user sees: the full collection filtered and
// sorted by the active criteria, then narrowed by the search query.
func (s *Store) Visible() []model.Task {
	s.mu.RLock()
	tasks, criteria, q := s.tasks, s.criteria, s.search
	s.mu.RUnlock()
	return query.Search(s.engine.FilterAndSort(tasks, criteria, s.now()), q)
}

// Stats aggregates over the full collection, never the visible list.
func (s *Store) Stats() stats.Stats {
	s.mu.RLock()
	tasks := s.tasks
	s.mu.RUnlock()
	out := stats.Compute(tasks, s.now())
	if s.topN >= 0 {
		out.CategoryDistribution = stats.TopCategories(out.CategoryDistribution, s.topN)
	}
	return out
}

// ServerStats asks the collaborator and falls back to Stats on failure.
func (s *Store) ServerStats(ctx context.Context) stats.Stats {
	out, err := s.backend.GetStats(ctx)
	if err != nil {
		s.logger.Debug("server stats unavailable, computing locally", zap.Error(err))
		return s.Stats()
	}
	return out
}

// Categories lists known categories from the collaborator, or the distinct
// categories of the local collection when that call fails.
func (s *Store) Categories(ctx context.Context) []string {
	out, err := s.backend.GetCategories(ctx)
	if err == nil {
		return out
	}
	s.logger.Debug("categories unavailable, using local collection", zap.Error(err))

	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	local := make([]string, 0)
	for _, t := range s.tasks {
		if t.HasCategory() && !seen[t.Category] {
			seen[t.Category] = true
			local = append(local, t.Category)
		}
	}
	sort.Strings(local)
	return local
}

// Load performs the initial fetch. On a loaded store it behaves as Refresh.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Loaded() {
		s.mu.Unlock()
		return s.Refresh(ctx)
	}
	s.state = StateLoading
	gen := s.gen
	s.mu.Unlock()

	tasks, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateErrored
		s.lastErr = err
		s.logger.Warn("load failed", zap.Error(err))
		return err
	}
	s.applyFetchedLocked(tasks, gen)
	s.state = StateReady
	s.logger.Debug("collection loaded", zap.Int("count", len(tasks)))
	return nil
}

// Refresh re-reads the collection. A failed refresh keeps the current
// collection and returns to ready.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.Loaded() {
		s.mu.Unlock()
		return s.Load(ctx)
	}
	s.state = StateRefreshing
	gen := s.gen
	s.mu.Unlock()

	tasks, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateReady
	if err != nil {
		s.lastErr = err
		s.logger.Warn("refresh failed", zap.Error(err))
		return err
	}
	s.applyFetchedLocked(tasks, gen)
	return nil
}

// applyFetchedLocked installs a Load or Refresh result unless the collection
// changed while the read was in flight. The newer collection came from a
// write and its own fresh read, so the older result is dropped.
func (s *Store) applyFetchedLocked(tasks []model.Task, gen uint64) {
	if s.gen != gen {
		s.logger.Debug("discarding stale read", zap.Int("count", len(tasks)))
		return
	}
	s.setTasksLocked(tasks)
}

// read always calls the collaborator. Writes use it so they never join a
// shared read that started before the write landed.
func (s *Store) read(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.backend.GetTodos(ctx, ListFilter{})
	if err != nil {
		return nil, persistenceError("get todos", err)
	}
	return model.CloneTasks(tasks), nil
}

// fetch collapses concurrent Load and Refresh reads into one collaborator
// call.
func (s *Store) fetch(ctx context.Context) ([]model.Task, error) {
	v, err, _ := s.group.Do(fetchKey, func() (any, error) {
		tasks, err := s.backend.GetTodos(ctx, ListFilter{})
		if err != nil {
			return nil, persistenceError("get todos", err)
		}
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return model.CloneTasks(v.([]model.Task)), nil
}

// Create validates in, delegates, then re-reads the collection. When the
// re-read fails the returned record is prepended instead.
func (s *Store) Create(ctx context.Context, in model.TaskInput) (model.Task, error) {
	if err := in.Validate(); err != nil {
		return model.Task{}, validationError(err)
	}
	in = in.Normalize()

	created, err := s.backend.CreateTodo(ctx, in)
	if err != nil {
		return model.Task{}, s.fail(persistenceError("create todo", err))
	}
	s.logger.Debug("todo created", zap.String("task_id", created.ID))

	tasks, fetchErr := s.read(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if fetchErr != nil {
		s.logger.Warn("refresh after create failed, prepending record", zap.String("task_id", created.ID), zap.Error(fetchErr))
		next := make([]model.Task, 0, len(s.tasks)+1)
		next = append(next, created.Clone())
		for _, t := range s.tasks {
			if t.ID != created.ID {
				next = append(next, t)
			}
		}
		s.setTasksLocked(next)
		return created, nil
	}
	s.setTasksLocked(tasks)
	return created, nil
}

// Update replaces the local record with the collaborator's representation.
func (s *Store) Update(ctx context.Context, id string, in model.TaskInput) (model.Task, error) {
	if err := in.Validate(); err != nil {
		return model.Task{}, validationError(err)
	}
	in = in.Normalize()

	unlock := s.locks.Lock(id)
	defer unlock()
	if _, ok := s.lookup(id); !ok {
		return model.Task{}, &NotFoundError{ID: id}
	}

	updated, err := s.backend.UpdateTodo(ctx, id, in)
	if err != nil {
		return model.Task{}, s.fail(persistenceError("update todo", err))
	}
	s.replace(updated)
	s.logger.Debug("todo updated", zap.String("task_id", id))
	return updated, nil
}

// Toggle sends the inverse of the local completed flag.
func (s *Store) Toggle(ctx context.Context, id string) (model.Task, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	current, ok := s.lookup(id)
	if !ok {
		return model.Task{}, &NotFoundError{ID: id}
	}

	toggled, err := s.backend.ToggleTodo(ctx, id, !current.Completed)
	if err != nil {
		return model.Task{}, s.fail(persistenceError("toggle todo", err))
	}
	s.replace(toggled)
	s.logger.Debug("todo toggled", zap.String("task_id", id), zap.Bool("completed", toggled.Completed))
	return toggled, nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	if _, ok := s.lookup(id); !ok {
		return &NotFoundError{ID: id}
	}

	if err := s.backend.DeleteTodo(ctx, id); err != nil {
		return s.fail(persistenceError("delete todo", err))
	}
	s.drop([]string{id})
	s.logger.Debug("todo deleted", zap.String("task_id", id))
	return nil
}

// BulkRemove forwards every id and drops the ones held locally.
func (s *Store) BulkRemove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return &ValidationError{Field: "ids", Reason: "at least one id is required"}
	}
	unlock := s.locks.Lock(ids...)
	defer unlock()

	if err := s.backend.BulkDelete(ctx, ids); err != nil {
		return s.fail(persistenceError("bulk delete", err))
	}
	s.drop(ids)
	s.logger.Debug("todos deleted", zap.Int("count", len(ids)))
	return nil
}

// Reorder applies ids as the new collection order immediately, then asks
// the collaborator to record it. ids must be a permutation of the current
// collection.
func (s *Store) Reorder(ctx context.Context, ids []string) (ReorderResult, error) {
	s.mu.RLock()
	current := model.IDs(s.tasks)
	s.mu.RUnlock()
	if err := checkPermutation(current, ids); err != nil {
		return ReorderFailed, err
	}

	unlock := s.locks.Lock(ids...)
	defer unlock()

	s.mu.Lock()
	previous := model.IDs(s.tasks)
	s.setTasksLocked(arrange(s.tasks, ids))
	s.mu.Unlock()

	err := s.backend.ReorderTodos(ctx, ids)
	if err == nil {
		s.logger.Debug("todos reordered", zap.Int("count", len(ids)))
		return ReorderApplied, nil
	}
	perr := persistenceError("reorder todos", err)
	s.logger.Warn("reorder rejected, reconciling", zap.Error(err))

	tasks, fetchErr := s.read(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if fetchErr != nil {
		s.logger.Warn("reconcile failed, restoring previous order", zap.Error(fetchErr))
		s.setTasksLocked(arrange(s.tasks, previous))
		s.lastErr = perr
		return ReorderFailed, errors.Join(perr, fetchErr)
	}
	s.setTasksLocked(tasks)
	s.lastErr = perr
	return ReorderReconciling, perr
}

// SetFilters replaces the active criteria. It never calls the collaborator.
func (s *Store) SetFilters(c model.FilterCriteria) error {
	n, err := s.checkCriteria(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = n
	s.version++
	return nil
}

func (s *Store) SetSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = q
	s.version++
}

func (s *Store) checkCriteria(c model.FilterCriteria) (model.FilterCriteria, error) {
	n := c.Normalize()
	if err := n.Validate(); err != nil {
		return model.FilterCriteria{}, &ValidationError{Field: "criteria", Reason: err.Error(), Err: err}
	}
	if !s.engine.Buckets.Has(n.DateFilter) {
		err := fmt.Errorf("%w: dateFilter %q", model.ErrInvalidCriteria, n.DateFilter)
		return model.FilterCriteria{}, &ValidationError{Field: "criteria", Reason: err.Error(), Err: err}
	}
	return n, nil
}

func (s *Store) fail(err *PersistenceError) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.logger.Warn("persistence call failed", zap.String("op", err.Op), zap.Int("status", err.Status), zap.Error(err.Err))
	return err
}

func (s *Store) lookup(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return model.Task{}, false
}

func (s *Store) replace(t model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := model.CloneTasks(s.tasks)
	for i := range next {
		if next[i].ID == t.ID {
			next[i] = t.Clone()
		}
	}
	s.setTasksLocked(next)
}

func (s *Store) drop(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := slices.DeleteFunc(model.CloneTasks(s.tasks), func(t model.Task) bool {
		return slices.Contains(ids, t.ID)
	})
	s.setTasksLocked(next)
}

// setTasksLocked swaps in a new collection. The old slice is never written
// to, so readers holding it keep a consistent snapshot.
func (s *Store) setTasksLocked(tasks []model.Task) {
	s.tasks = tasks
	s.lastErr = nil
	s.version++
	s.gen++
}

func checkPermutation(current, ids []string) error {
	if len(current) != len(ids) {
		return &ValidationError{Field: "order", Reason: fmt.Sprintf("expected %d ids, got %d", len(current), len(ids))}
	}
	want := make(map[string]bool, len(current))
	for _, id := range current {
		want[id] = true
	}
	for _, id := range ids {
		if !want[id] {
			return &ValidationError{Field: "order", Reason: fmt.Sprintf("unknown or repeated id %q", id)}
		}
		delete(want, id)
	}
	return nil
}

// arrange orders tasks by ids. Tasks missing from ids keep their relative
// order after the listed ones.
func arrange(tasks []model.Task, ids []string) []model.Task {
	byID := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	out := make([]model.Task, 0, len(tasks))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t.Clone())
			delete(byID, id)
		}
	}
	for _, t := range tasks {
		if _, ok := byID[t.ID]; ok {
			out = append(out, t.Clone())
		}
	}
	return out
}
