package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandeepkv93/todod/internal/model"
	"github.com/sandeepkv93/todod/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	base    = time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	errDown = errors.New("backend unavailable")
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) StatusCode() int { return e.code }

// fakeBackend keeps tasks in stored order and fails any op named in fail.
type fakeBackend struct {
	mu    sync.Mutex
	tasks []model.Task
	next  int
	fail  map[string]error
	calls map[string]int
	clock time.Time
}

func newFake(tasks ...model.Task) *fakeBackend {
	return &fakeBackend{tasks: tasks, fail: map[string]error{}, calls: map[string]int{}, clock: base.Add(time.Hour)}
}

func (f *fakeBackend) hit(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeBackend) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) GetTodos(context.Context, ListFilter) ([]model.Task, error) {
	if err := f.hit("get"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.CloneTasks(f.tasks), nil
}

func (f *fakeBackend) CreateTodo(_ context.Context, in model.TaskInput) (model.Task, error) {
	if err := f.hit("create"); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	t := model.NewTask(fmt.Sprintf("new-%d", f.next), in, f.clock)
	f.tasks = append([]model.Task{t}, f.tasks...)
	return t, nil
}

func (f *fakeBackend) UpdateTodo(_ context.Context, id string, in model.TaskInput) (model.Task, error) {
	if err := f.hit("update"); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks[i] = in.ApplyTo(t, f.clock)
			return f.tasks[i], nil
		}
	}
	return model.Task{}, statusErr{404}
}

func (f *fakeBackend) DeleteTodo(_ context.Context, id string) error {
	if err := f.hit("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = slices.DeleteFunc(f.tasks, func(t model.Task) bool { return t.ID == id })
	return nil
}

func (f *fakeBackend) ToggleTodo(_ context.Context, id string, completed bool) (model.Task, error) {
	if err := f.hit("toggle"); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks[i].Completed = completed
			f.tasks[i].UpdatedAt = model.Touch(t.CreatedAt, f.clock)
			return f.tasks[i], nil
		}
	}
	return model.Task{}, statusErr{404}
}

func (f *fakeBackend) BulkDelete(_ context.Context, ids []string) error {
	if err := f.hit("bulk"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = slices.DeleteFunc(f.tasks, func(t model.Task) bool { return slices.Contains(ids, t.ID) })
	return nil
}

func (f *fakeBackend) ReorderTodos(_ context.Context, ids []string) error {
	if err := f.hit("reorder"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	byID := map[string]model.Task{}
	for _, t := range f.tasks {
		byID[t.ID] = t
	}
	out := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	f.tasks = out
	return nil
}

func (f *fakeBackend) GetCategories(context.Context) ([]string, error) {
	if err := f.hit("categories"); err != nil {
		return nil, err
	}
	return []string{"Server"}, nil
}

func (f *fakeBackend) GetStats(context.Context) (stats.Stats, error) {
	if err := f.hit("stats"); err != nil {
		return stats.Stats{}, err
	}
	return stats.Stats{Total: 99}, nil
}

func seed(id string, minute int) model.Task {
	at := base.Add(time.Duration(minute) * time.Minute)
	return model.Task{ID: id, Title: id, Priority: model.PriorityMedium, CreatedAt: at, UpdatedAt: at}
}

func loaded(t *testing.T, fb *fakeBackend, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return base.Add(2 * time.Hour) })}, opts...)
	s := New(fb, opts...)
	require.NoError(t, s.Load(context.Background()))
	require.Equal(t, StateReady, s.State())
	return s
}

func TestLoadStateTransitions(t *testing.T) {
	fb := newFake(seed("a", 1))
	fb.setFail("get", errDown)
	s := New(fb)
	assert.Equal(t, StateIdle, s.State())

	err := s.Load(context.Background())
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, errDown)
	assert.Equal(t, StateErrored, s.State())
	assert.Equal(t, err, s.LastError())

	fb.setFail("get", nil)
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, StateReady, s.State())
	assert.NoError(t, s.LastError())
	assert.Equal(t, []string{"a"}, model.IDs(s.Tasks()))
}

func TestRefreshFailureKeepsCollection(t *testing.T) {
	fb := newFake(seed("a", 1), seed("b", 2))
	s := loaded(t, fb)

	fb.setFail("get", errDown)
	require.ErrorIs(t, s.Refresh(context.Background()), ErrPersistence)
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, []string{"a", "b"}, model.IDs(s.Tasks()))
}

func TestReorderThenReadKeepsOrder(t *testing.T) {
	fb := newFake(seed("A", 1), seed("B", 2), seed("C", 3))
	s := loaded(t, fb)

	res, err := s.Reorder(context.Background(), []string{"C", "A", "B"})
	require.NoError(t, err)
	assert.Equal(t, ReorderApplied, res)
	assert.Equal(t, []string{"C", "A", "B"}, model.IDs(s.Tasks()))

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, []string{"C", "A", "B"}, model.IDs(s.Tasks()))
}

func TestReorderRejectedReconcilesFromServer(t *testing.T) {
	fb := newFake(seed("A", 1), seed("B", 2), seed("C", 3))
	s := loaded(t, fb)
	fb.setFail("reorder", statusErr{500})

	res, err := s.Reorder(context.Background(), []string{"C", "A", "B"})
	assert.Equal(t, ReorderReconciling, res)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 500, pe.Status)
	assert.Equal(t, "reorder todos", pe.Op)
	assert.Equal(t, []string{"A", "B", "C"}, model.IDs(s.Tasks()))
	assert.Equal(t, 2, fb.count("get"))
	assert.Equal(t, err, s.LastError())
}

func TestReorderFailedRestoresPreviousOrder(t *testing.T) {
	fb := newFake(seed("A", 1), seed("B", 2), seed("C", 3))
	s := loaded(t, fb)
	fb.setFail("reorder", errDown)
	fb.setFail("get", errDown)

	res, err := s.Reorder(context.Background(), []string{"B", "C", "A"})
	assert.Equal(t, ReorderFailed, res)
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, []string{"A", "B", "C"}, model.IDs(s.Tasks()))
}

func TestReorderRejectsNonPermutation(t *testing.T) {
	fb := newFake(seed("A", 1), seed("B", 2))
	s := loaded(t, fb)

	for _, ids := range [][]string{{"A"}, {"A", "A"}, {"A", "Z"}} {
		res, err := s.Reorder(context.Background(), ids)
		assert.Equal(t, ReorderFailed, res)
		require.ErrorIs(t, err, ErrValidation)
	}
	assert.Zero(t, fb.count("reorder"))
	assert.Equal(t, []string{"A", "B"}, model.IDs(s.Tasks()))
}

func TestCreateValidatesBeforeCallingBackend(t *testing.T) {
	fb := newFake()
	s := loaded(t, fb)

	_, err := s.Create(context.Background(), model.TaskInput{Title: "   "})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "title", ve.Field)
	assert.ErrorIs(t, err, model.ErrTitleRequired)
	assert.Zero(t, fb.count("create"))
	assert.Empty(t, s.Tasks())
}

func TestCreateMatchesFreshRead(t *testing.T) {
	fb := newFake(seed("a", 1))
	s := loaded(t, fb)

	created, err := s.Create(context.Background(), model.TaskInput{Title: " Ship it ", Priority: "high"})
	require.NoError(t, err)
	assert.Equal(t, "Ship it", created.Title)
	assert.Equal(t, model.PriorityHigh, created.Priority)

	fresh, err := fb.GetTodos(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, fresh, s.Tasks())
}

func TestCreatePrependsWhenRefreshFails(t *testing.T) {
	fb := newFake(seed("a", 1))
	s := loaded(t, fb)
	fb.setFail("get", errDown)

	created, err := s.Create(context.Background(), model.TaskInput{Title: "new"})
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID, "a"}, model.IDs(s.Tasks()))
}

func TestCreateFailureLeavesCollection(t *testing.T) {
	fb := newFake(seed("a", 1))
	s := loaded(t, fb)
	fb.setFail("create", errDown)

	_, err := s.Create(context.Background(), model.TaskInput{Title: "new"})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, []string{"a"}, model.IDs(s.Tasks()))
	assert.Equal(t, err, s.LastError())
}

func TestUpdateReplacesWithServerRecord(t *testing.T) {
	fb := newFake(seed("a", 1), seed("b", 2))
	s := loaded(t, fb)

	updated, err := s.Update(context.Background(), "b", model.TaskInput{Title: "renamed", Category: "Work"})
	require.NoError(t, err)
	got := s.Tasks()
	assert.Equal(t, updated, got[1])
	assert.Equal(t, "renamed", got[1].Title)
	assert.True(t, got[1].UpdatedAt.After(got[1].CreatedAt))
}

func TestUpdateUnknownIDIsNotFound(t *testing.T) {
	fb := newFake(seed("a", 1))
	s := loaded(t, fb)

	_, err := s.Update(context.Background(), "ghost", model.TaskInput{Title: "x"})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.ID)
	assert.Zero(t, fb.count("update"))
}

func TestToggle(t *testing.T) {
	fb := newFake(seed("a", 1))
	s := loaded(t, fb)

	toggled, err := s.Toggle(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	assert.True(t, s.Tasks()[0].Completed)

	toggled, err = s.Toggle(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	_, err = s.Toggle(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, fb.count("toggle"))
}

func TestToggleFailureLeavesCollection(t *testing.T) {
	fb := newFake(seed("a", 1))
	s := loaded(t, fb)
	fb.setFail("toggle", errDown)

	_, err := s.Toggle(context.Background(), "a")
	require.ErrorIs(t, err, ErrPersistence)
	assert.False(t, s.Tasks()[0].Completed)
}

func TestRemoveAndBulkRemove(t *testing.T) {
	fb := newFake(seed("a", 1), seed("b", 2), seed("c", 3), seed("d", 4))
	s := loaded(t, fb)

	require.NoError(t, s.Remove(context.Background(), "b"))
	assert.Equal(t, []string{"a", "c", "d"}, model.IDs(s.Tasks()))
	require.ErrorIs(t, s.Remove(context.Background(), "b"), ErrNotFound)

	fb.setFail("bulk", errDown)
	require.ErrorIs(t, s.BulkRemove(context.Background(), []string{"a", "c"}), ErrPersistence)
	assert.Equal(t, []string{"a", "c", "d"}, model.IDs(s.Tasks()))

	fb.setFail("bulk", nil)
	require.NoError(t, s.BulkRemove(context.Background(), []string{"a", "c"}))
	assert.Equal(t, []string{"d"}, model.IDs(s.Tasks()))

	require.ErrorIs(t, s.BulkRemove(context.Background(), nil), ErrValidation)
}

func TestSetFiltersIsLocal(t *testing.T) {
	a := seed("a", 1)
	a.Category = "Work"
	fb := newFake(a, seed("b", 2))
	s := loaded(t, fb)
	gets := fb.count("get")

	require.NoError(t, s.SetFilters(model.FilterCriteria{Category: "Work"}))
	assert.Equal(t, []string{"a"}, model.IDs(s.Visible()))
	assert.Equal(t, gets, fb.count("get"))

	require.NoError(t, s.SetFilters(model.FilterCriteria{Category: "Home"}))
	visible := s.Visible()
	require.NotNil(t, visible)
	assert.Empty(t, visible)

	require.ErrorIs(t, s.SetFilters(model.FilterCriteria{SortBy: "rank"}), ErrValidation)
	require.ErrorIs(t, s.SetFilters(model.FilterCriteria{DateFilter: "someday"}), ErrValidation)
	assert.Equal(t, "Home", s.Criteria().Category)
}

func TestVisibleDefaultIsNewestFirstWithSearch(t *testing.T) {
	fb := newFake(seed("a", 1), seed("b", 3), seed("c", 2))
	s := loaded(t, fb)
	assert.Equal(t, []string{"b", "c", "a"}, model.IDs(s.Visible()))

	s.SetSearch("C")
	assert.Equal(t, []string{"c"}, model.IDs(s.Visible()))
	s.SetSearch(" ")
	assert.Len(t, s.Visible(), 3)
}

func TestStatsUseFullCollection(t *testing.T) {
	done := seed("done", 1)
	done.Completed = true
	fb := newFake(done, seed("open", 2))
	s := loaded(t, fb)
	require.NoError(t, s.SetFilters(model.FilterCriteria{Status: model.StatusActive}))

	st := s.Stats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 50.0, st.CompletionRate)
}

func TestServerStatsAndCategoriesFallBack(t *testing.T) {
	a := seed("a", 1)
	a.Category = "Work"
	b := seed("b", 2)
	b.Category = "Home"
	fb := newFake(a, b, seed("c", 3))
	s := loaded(t, fb)

	assert.Equal(t, 99, s.ServerStats(context.Background()).Total)
	assert.Equal(t, []string{"Server"}, s.Categories(context.Background()))

	fb.setFail("stats", errDown)
	fb.setFail("categories", errDown)
	assert.Equal(t, 3, s.ServerStats(context.Background()).Total)
	assert.Equal(t, []string{"Home", "Work"}, s.Categories(context.Background()))
}

func TestAuthenticated(t *testing.T) {
	assert.False(t, New(newFake()).Authenticated())
	assert.False(t, New(newFake(), WithSession(StaticToken(""))).Authenticated())
	assert.True(t, New(newFake(), WithSession(StaticToken("secret"))).Authenticated())
}

// blockingBackend parks ToggleTodo until released so overlap can be observed.
type blockingBackend struct {
	*fakeBackend
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	release  chan struct{}
}

func (b *blockingBackend) ToggleTodo(ctx context.Context, id string, completed bool) (model.Task, error) {
	n := b.inFlight.Add(1)
	for {
		m := b.maxSeen.Load()
		if n <= m || b.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	<-b.release
	defer b.inFlight.Add(-1)
	return b.fakeBackend.ToggleTodo(ctx, id, completed)
}

func TestMutationsSerialisedPerID(t *testing.T) {
	bb := &blockingBackend{fakeBackend: newFake(seed("a", 1)), release: make(chan struct{})}
	s := New(bb)
	require.NoError(t, s.Load(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Toggle(context.Background(), "a")
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(bb.release)
	wg.Wait()

	assert.Equal(t, int32(1), bb.maxSeen.Load())
	// Two serialised toggles land back where they started.
	assert.False(t, s.Tasks()[0].Completed)
}

// gatedBackend captures the collection on the first GetTodos call and
// returns it only once gate is closed.
type gatedBackend struct {
	*fakeBackend
	armed   atomic.Bool
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedBackend) GetTodos(ctx context.Context, filter ListFilter) ([]model.Task, error) {
	if !g.armed.CompareAndSwap(true, false) {
		return g.fakeBackend.GetTodos(ctx, filter)
	}
	tasks, err := g.fakeBackend.GetTodos(ctx, filter)
	close(g.entered)
	<-g.gate
	return tasks, err
}

func TestCreateDuringRefreshKeepsNewTask(t *testing.T) {
	gb := &gatedBackend{
		fakeBackend: newFake(seed("a", 1)),
		entered:     make(chan struct{}),
		gate:        make(chan struct{}),
	}
	s := New(gb)
	require.NoError(t, s.Load(context.Background()))

	gb.armed.Store(true)
	refreshed := make(chan error, 1)
	go func() { refreshed <- s.Refresh(context.Background()) }()
	<-gb.entered

	created, err := s.Create(context.Background(), model.TaskInput{Title: "new"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new-1", "a"}, model.IDs(s.Tasks()))

	close(gb.gate)
	require.NoError(t, <-refreshed)

	fresh, err := gb.fakeBackend.GetTodos(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, model.IDs(fresh), model.IDs(s.Tasks()))
	assert.Contains(t, model.IDs(s.Tasks()), created.ID)
	assert.Equal(t, StateReady, s.State())
}

func TestReorderReconcileDuringRefreshUsesFreshRead(t *testing.T) {
	gb := &gatedBackend{
		fakeBackend: newFake(seed("a", 1), seed("b", 2)),
		entered:     make(chan struct{}),
		gate:        make(chan struct{}),
	}
	s := New(gb)
	require.NoError(t, s.Load(context.Background()))

	gb.armed.Store(true)
	refreshed := make(chan error, 1)
	go func() { refreshed <- s.Refresh(context.Background()) }()
	<-gb.entered

	// Another client deletes b, so the reorder is rejected and reconciled.
	require.NoError(t, gb.fakeBackend.DeleteTodo(context.Background(), "b"))
	gb.setFail("reorder", statusErr{409})
	res, err := s.Reorder(context.Background(), []string{"b", "a"})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, ReorderReconciling, res)
	assert.Equal(t, []string{"a"}, model.IDs(s.Tasks()))

	close(gb.gate)
	require.NoError(t, <-refreshed)
	assert.Equal(t, []string{"a"}, model.IDs(s.Tasks()))
}

func TestWithCriteriaSeedsValidOnly(t *testing.T) {
	s := New(newFake(), WithCriteria(model.FilterCriteria{Priority: "low"}))
	assert.Equal(t, model.PriorityLow, s.Criteria().Priority)

	s = New(newFake(), WithCriteria(model.FilterCriteria{Status: "archived"}))
	assert.Equal(t, model.DefaultCriteria(), s.Criteria())
}

func TestWithTopCategories(t *testing.T) {
	var tasks []model.Task
	for i := 0; i < 8; i++ {
		tk := seed(fmt.Sprintf("t%d", i), i)
		tk.Category = fmt.Sprintf("c%d", i)
		tasks = append(tasks, tk)
	}
	s := loaded(t, newFake(tasks...))
	assert.Len(t, s.Stats().CategoryDistribution, stats.DefaultTopN)

	s = loaded(t, newFake(tasks...), WithTopCategories(-1))
	assert.Len(t, s.Stats().CategoryDistribution, 8)
}
