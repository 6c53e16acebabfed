package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/todod/internal/dates"
	"github.com/sandeepkv93/todod/internal/model"
	"github.com/sandeepkv93/todod/internal/scheduler"
	"github.com/sandeepkv93/todod/internal/views"
	"go.uber.org/zap"
)

const dueLayout = "2006-01-02 15:04"

func rowData(t model.Task, now time.Time) views.TaskRowData {
	row := views.TaskRowData{
		Title:     t.Title,
		Priority:  string(t.Priority),
		Category:  t.Category,
		Completed: t.Completed,
	}
	if t.DueDate != nil {
		row.Due = t.DueDate.In(now.Location()).Format(dueLayout)
		row.Bucket = string(dates.Classify(t, now))
	}
	return row
}

// syncFromStore rebuilds the list from the store's visible tasks, keeping
// the selection on the same id when it survives.
func (m *Model) syncFromStore() {
	if m.store == nil {
		return
	}
	now := m.now()
	visible := m.store.Visible()
	items := make([]list.Item, len(visible))
	ids := make([]string, len(visible))
	for i, t := range visible {
		row := rowData(t, now)
		items[i] = listItem{id: t.ID, title: views.TaskTitle(row), description: views.TaskDescription(row)}
		ids[i] = t.ID
	}
	_ = m.taskList.SetItems(items)
	m.visibleIDs = ids

	idx := indexOf(ids, m.SelectedTaskID)
	if idx < 0 && len(ids) > 0 {
		idx = min(max(m.taskList.Index(), 0), len(ids)-1)
	}
	if idx >= 0 {
		m.taskList.Select(idx)
		m.SelectedTaskID = ids[idx]
	} else {
		m.SelectedTaskID = ""
	}
	m.syncDetail()
}

func (m *Model) syncSelectionFromList() {
	idx := m.taskList.Index()
	if idx >= 0 && idx < len(m.visibleIDs) {
		m.SelectedTaskID = m.visibleIDs[idx]
	}
	m.syncDetail()
}

func (m *Model) syncDetail() {
	t, ok := m.selectedTask()
	if !ok {
		m.detailView.SetContent("")
		return
	}
	m.detailView.SetContent(views.RenderMarkdown(t.Description, m.detailView.Width))
	m.detailView.GotoTop()
}

// syncScheduler re-arms due events after the collection changed.
func (m *Model) syncScheduler() {
	if m.scheduler == nil || m.store == nil {
		return
	}
	if err := m.scheduler.Sync(m.store.Tasks()); err != nil && err != scheduler.ErrStopped {
		m.logger.Warn("scheduler sync failed", zap.Error(err))
	}
}

func (m Model) selectedTask() (model.Task, bool) {
	if m.store == nil || m.SelectedTaskID == "" {
		return model.Task{}, false
	}
	for _, t := range m.store.Visible() {
		if t.ID == m.SelectedTaskID {
			return t, true
		}
	}
	return model.Task{}, false
}

func (m Model) renderListView() string {
	c := m.store.Criteria()
	loading := ""
	if m.busy > 0 || !m.store.State().Loaded() {
		loading = m.loadSpinner.View() + " " + string(m.store.State())
	}
	return views.RenderListPanel(views.ListPanelData{
		FilterBar: views.RenderFilterBar(views.FilterBarData{
			Status:    string(c.Status),
			Priority:  string(c.Priority),
			Category:  c.Category,
			Date:      string(c.DateFilter),
			SortBy:    string(c.SortBy),
			SortOrder: string(c.SortOrder),
			Search:    m.store.Search(),
			Visible:   len(m.visibleIDs),
			Total:     len(m.store.Tasks()),
		}),
		ListView: m.taskList.View(),
		Empty:    len(m.visibleIDs) == 0,
		Loading:  loading,
	})
}

func (m Model) renderDashboardView() string {
	st := m.store.Stats()
	data := views.DashboardData{
		Total:          st.Total,
		Completed:      st.Completed,
		Active:         st.Active,
		Overdue:        st.Overdue,
		CompletionRate: st.CompletionRate,
		ProgressView:   m.doneProgress.ViewAs(st.CompletionRate / 100),
		Streak:         st.CurrentStreak,
		Productivity:   st.ProductivityScore,
	}
	for _, c := range st.CategoryDistribution {
		data.Categories = append(data.Categories, views.CountRow{Label: c.Label, Count: c.Count, Percent: c.Percent})
	}
	for _, p := range st.PriorityDistribution {
		data.Priorities = append(data.Priorities, views.CountRow{Label: string(p.Priority), Count: p.Count, Percent: p.Percent})
	}
	for _, d := range st.WeeklyActivity {
		data.Week = append(data.Week, views.DayRow{Label: d.Label, Created: d.Created, Completed: d.Completed})
	}
	return views.RenderDashboard(data)
}

func (m Model) renderDetailPane() string {
	t, ok := m.selectedTask()
	if !ok {
		return views.RenderDetailPanel(views.DetailData{})
	}
	now := m.now()
	row := rowData(t, now)
	return views.RenderDetailPanel(views.DetailData{
		ID:              t.ID,
		Title:           t.Title,
		Priority:        string(t.Priority),
		Category:        t.Category,
		Bucket:          row.Bucket,
		Due:             row.Due,
		Created:         t.CreatedAt.In(now.Location()).Format(dueLayout),
		Updated:         t.UpdatedAt.In(now.Location()).Format(dueLayout),
		Completed:       t.Completed,
		DescriptionView: m.detailView.View(),
	})
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	return views.RenderNotification(n.Level, n.Body)
}

func (m Model) renderRightPane() string {
	parts := make([]string, 0, 3)
	if p := views.RenderCommandPalette(m.Palette.Active, m.commandInput.View()); p != "" {
		parts = append(parts, p)
	}
	if m.ShowDetail && m.CurrentView == ViewList {
		parts = append(parts, m.renderDetailPane())
	}
	if m.HelpVisible {
		parts = append(parts, m.renderHelpView())
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	n := Notification{
		Title: title,
		Body:  body,
		Level: level,
		At:    m.now(),
	}
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > 40 {
		m.Notifications = m.Notifications[len(m.Notifications)-40:]
	}
	if m.DesktopEnabled && m.notifier != nil {
		m.outbox = append(m.outbox, n)
	}
}

// desktopCmd delivers queued notifications off the UI loop.
func desktopCmd(notifier DesktopNotifier, logger *zap.Logger, pending []Notification) tea.Cmd {
	return func() tea.Msg {
		for _, n := range pending {
			if err := notifier.Send(n); err != nil {
				logger.Debug("desktop notification failed", zap.Error(err))
			}
		}
		return nil
	}
}

func (m Model) header() string {
	state := "no store"
	if m.store != nil {
		state = string(m.store.State())
	}
	return fmt.Sprintf("todod | view: %s | %s", m.CurrentView, state)
}
