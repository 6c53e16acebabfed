package update

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/todod/internal/model"
	"github.com/sandeepkv93/todod/internal/scheduler"
	"github.com/sandeepkv93/todod/internal/settings"
	"github.com/sandeepkv93/todod/internal/store"
	"github.com/sandeepkv93/todod/internal/views"
	"go.uber.org/zap"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadCmd(), m.loadSpinner.Tick}
	if m.scheduler != nil {
		cmds = append(cmds, waitForSchedulerCmd(m.scheduler.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	nm, ok := next.(Model)
	if !ok || len(nm.outbox) == 0 {
		return next, cmd
	}
	pending := nm.outbox
	nm.outbox = nil
	return nm, tea.Batch(cmd, desktopCmd(nm.notifier, nm.logger, pending))
}

func (m Model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		w := views.PanelWidth(typed.Width)
		m.taskList.SetSize(w, max(typed.Height-10, 5))
		m.detailView.Width = w - 2
		m.syncDetail()
		return m, nil
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}
		return m.handleKey(typed)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.loadSpinner, cmd = m.loadSpinner.Update(typed)
		return m, cmd
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.setError(typed.Err)
		return m, nil
	case LoadedMsg:
		m.busy = max(m.busy-1, 0)
		if typed.Err != nil {
			m.setError(typed.Err)
		} else {
			m.Status = StatusBar{Text: fmt.Sprintf("loaded %d todo(s)", len(m.store.Tasks()))}
		}
		m.syncFromStore()
		m.syncScheduler()
		return m, nil
	case MutationMsg:
		m.busy = max(m.busy-1, 0)
		if typed.Err != nil {
			m.setError(typed.Err)
		} else {
			m.Status = StatusBar{Text: typed.Message}
		}
		m.syncFromStore()
		m.syncScheduler()
		return m, nil
	case ReorderMsg:
		m.busy = max(m.busy-1, 0)
		switch typed.Result {
		case store.ReorderApplied:
			m.Status = StatusBar{Text: "order saved"}
		case store.ReorderReconciling:
			m.Status = StatusBar{Text: "order rejected, showing server order", IsError: true}
			m.LastError = typed.Err
		default:
			m.setError(typed.Err)
		}
		m.syncFromStore()
		return m, nil
	case SchedulerMsg:
		m.onSchedulerEvent(typed.Event)
		if m.scheduler != nil {
			return m, waitForSchedulerCmd(m.scheduler.C())
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", m.Keys.Quit:
		m.Quitting = true
		m.savePreferences()
		return m, tea.Quit
	case m.Keys.Palette:
		m.openPalette("")
		return m, nil
	case m.Keys.Add:
		m.openPalette("add ")
		return m, nil
	case m.Keys.Switch:
		if m.CurrentView == ViewList {
			m.CurrentView = ViewDashboard
		} else {
			m.CurrentView = ViewList
		}
		return m, nil
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case "D":
		m.cycleDensity()
		return m, nil
	case "r":
		m.busy++
		return m, m.loadCmd()
	}
	if m.CurrentView != ViewList {
		return m, nil
	}

	switch msg.String() {
	case "enter":
		m.ShowDetail = !m.ShowDetail
		return m, nil
	case " ", "x":
		if m.SelectedTaskID == "" {
			return m, nil
		}
		return m.startMutation(toggleOp(m.store, []string{m.SelectedTaskID}))
	case "d", "delete":
		if m.SelectedTaskID == "" {
			return m, nil
		}
		return m.startMutation(removeOp(m.store, []string{m.SelectedTaskID}))
	case "K", "shift+up":
		return m.moveSelected(-1)
	case "J", "shift+down":
		return m.moveSelected(1)
	case "s":
		return m.updateCriteria(func(c *model.FilterCriteria) { c.SortBy = next(sortKeys, c.SortBy) })
	case "o":
		return m.updateCriteria(func(c *model.FilterCriteria) {
			if c.SortOrder == model.SortAsc {
				c.SortOrder = model.SortDesc
			} else {
				c.SortOrder = model.SortAsc
			}
		})
	case "f":
		return m.updateCriteria(func(c *model.FilterCriteria) { c.Status = next(statuses, c.Status) })
	case "p":
		return m.updateCriteria(func(c *model.FilterCriteria) { c.Priority = next(priorities, c.Priority) })
	case "t":
		return m.updateCriteria(func(c *model.FilterCriteria) { c.DateFilter = next(dateFilters, c.DateFilter) })
	case "c":
		if err := m.store.SetFilters(model.DefaultCriteria()); err != nil {
			m.setError(err)
			return m, nil
		}
		m.store.SetSearch("")
		m.Status = StatusBar{Text: "filters cleared"}
		m.syncFromStore()
		return m, nil
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	m.syncSelectionFromList()
	return m, cmd
}

var (
	sortKeys    = []model.SortKey{model.SortCreated, model.SortUpdated, model.SortTitle, model.SortPriority, model.SortDueDate}
	statuses    = []model.StatusFilter{model.StatusAll, model.StatusActive, model.StatusCompleted}
	priorities  = []model.Priority{model.PriorityAll, model.PriorityHigh, model.PriorityMedium, model.PriorityLow}
	dateFilters = []model.DateFilter{model.DateAll, model.DateToday, model.DateTomorrow, model.DateThisWeek, model.DateOverdue, model.DateNoDate}
)

// next cycles through options, starting over after the last one.
func next[T comparable](options []T, cur T) T {
	i := slices.Index(options, cur)
	return options[(i+1)%len(options)]
}

func (m Model) updateCriteria(edit func(*model.FilterCriteria)) (tea.Model, tea.Cmd) {
	c := m.store.Criteria()
	edit(&c)
	if err := m.store.SetFilters(c); err != nil {
		m.setError(err)
		return m, nil
	}
	c = m.store.Criteria()
	m.Status = StatusBar{Text: fmt.Sprintf("status:%s priority:%s date:%s sort:%s %s", c.Status, c.Priority, c.DateFilter, c.SortBy, c.SortOrder)}
	m.syncFromStore()
	return m, nil
}

// moveSelected swaps the selected task with its visible neighbour in the
// stored order.
func (m Model) moveSelected(delta int) (tea.Model, tea.Cmd) {
	pos := indexOf(m.visibleIDs, m.SelectedTaskID)
	target := pos + delta
	if pos < 0 || target < 0 || target >= len(m.visibleIDs) {
		return m, nil
	}
	ids := model.IDs(m.store.Tasks())
	a := indexOf(ids, m.visibleIDs[pos])
	b := indexOf(ids, m.visibleIDs[target])
	if a < 0 || b < 0 {
		return m, nil
	}
	ids[a], ids[b] = ids[b], ids[a]

	st := m.store
	ctx, cancel := m.context()
	m.busy++
	return m, func() tea.Msg {
		defer cancel()
		res, err := st.Reorder(ctx, ids)
		return ReorderMsg{Result: res, Err: err}
	}
}

type storeOp func(ctx context.Context) (string, error)

func (m Model) startMutation(op storeOp) (tea.Model, tea.Cmd) {
	ctx, cancel := m.context()
	m.busy++
	return m, func() tea.Msg {
		defer cancel()
		text, err := op(ctx)
		return MutationMsg{Message: text, Err: err}
	}
}

func toggleOp(st *store.Store, ids []string) storeOp {
	return func(ctx context.Context) (string, error) {
		done := 0
		for _, id := range ids {
			t, err := st.Toggle(ctx, id)
			if err != nil {
				return "", err
			}
			if t.Completed {
				done++
			}
		}
		if len(ids) == 1 {
			if done == 1 {
				return "marked done", nil
			}
			return "marked active", nil
		}
		return fmt.Sprintf("toggled %d todo(s)", len(ids)), nil
	}
}

func removeOp(st *store.Store, ids []string) storeOp {
	return func(ctx context.Context) (string, error) {
		if len(ids) == 1 {
			if err := st.Remove(ctx, ids[0]); err != nil {
				return "", err
			}
			return "removed 1 todo", nil
		}
		if err := st.BulkRemove(ctx, ids); err != nil {
			return "", err
		}
		return fmt.Sprintf("removed %d todo(s)", len(ids)), nil
	}
}

func (m Model) loadCmd() tea.Cmd {
	if m.store == nil {
		return nil
	}
	st := m.store
	ctx, cancel := m.context()
	return func() tea.Msg {
		defer cancel()
		return LoadedMsg{Err: st.Load(ctx)}
	}
}

func waitForSchedulerCmd(ch <-chan scheduler.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return SchedulerMsg{Event: ev}
	}
}

func (m *Model) onSchedulerEvent(ev scheduler.Event) {
	switch ev.Kind {
	case scheduler.KindDue:
		text := fmt.Sprintf("due now: %s", ev.Title)
		m.Status = StatusBar{Text: text}
		m.notify("Todo due", text, "info")
	case scheduler.KindRollover:
		m.Status = StatusBar{Text: "new day, date filters refreshed"}
	}
	// Due and rollover events both move tasks between date buckets.
	m.syncFromStore()
}

func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	m.LastError = err
	text := err.Error()
	m.Status = StatusBar{Text: text, IsError: true}
	m.notify("Error", text, "error")
}

func (m *Model) savePreferences() {
	if m.settings == nil || m.store == nil {
		return
	}
	prefs := settings.Preferences{
		Criteria: m.store.Criteria(),
		Search:   m.store.Search(),
		Density:  m.Density,
	}
	if err := m.settings.Save(prefs); err != nil {
		m.logger.Warn("save preferences failed", zap.Error(err))
	}
}

func (m Model) View() string {
	if m.store == nil {
		return "todod: no store configured\n"
	}
	left := m.renderListView()
	if m.CurrentView == ViewDashboard {
		left = m.renderDashboardView()
	}
	status := m.Status.Text
	if status != "" && m.Status.IsError {
		status = "error: " + status
	}
	return views.RenderApp(views.AppData{
		Width:        m.width,
		Header:       m.header(),
		LeftPane:     left,
		RightPane:    m.renderRightPane(),
		StatusLine:   status,
		IsError:      m.Status.IsError,
		Notification: m.renderNotificationsView(),
		Footer:       fmt.Sprintf("keys: %s view | %s cmd | %s add | x done | d delete | J/K move | %s help | %s quit", m.Keys.Switch, m.Keys.Palette, m.Keys.Add, m.Keys.Help, m.Keys.Quit),
	})
}

func isKnownView(v View) bool {
	switch v {
	case ViewList, ViewDashboard:
		return true
	default:
		return false
	}
}
