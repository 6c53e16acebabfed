package update

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/todod/internal/commands"
	"github.com/sandeepkv93/todod/internal/model"
	"github.com/sandeepkv93/todod/internal/store"
)

func (m *Model) openPalette(prefill string) {
	m.Palette.Active = true
	m.Palette.Input = prefill
	m.commandInput.SetValue(prefill)
	m.commandInput.CursorEnd()
	m.commandInput.Focus()
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, cmd
}

// executePaletteCommand applies filter, sort and search changes in place and
// hands writes to a tea.Cmd so the UI never waits on the backend.
func (m Model) executePaletteCommand() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()

	cmd, err := commands.Parse(raw)
	if err != nil {
		m.setError(err)
		return m, nil
	}

	var op storeOp
	st := m.store
	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			in, err := m.addInput(a)
			if err != nil {
				return commands.Result{}, err
			}
			op = func(ctx context.Context) (string, error) {
				t, err := st.Create(ctx, in)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("added: %s", t.Title), nil
			}
			return commands.Result{Message: "adding..."}, nil
		},
		Filter: func(f commands.FilterArgs) (commands.Result, error) {
			c := st.Criteria()
			if f.Status != "" {
				c.Status = f.Status
			}
			if f.Priority != "" {
				c.Priority = f.Priority
			}
			if f.Category != "" {
				c.Category = f.Category
			}
			if f.Date != "" {
				c.DateFilter = f.Date
			}
			if err := st.SetFilters(c); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: "filters updated"}, nil
		},
		Sort: func(s commands.SortArgs) (commands.Result, error) {
			c := st.Criteria()
			c.SortBy = s.Key
			if s.Order != "" {
				c.SortOrder = s.Order
			}
			if err := st.SetFilters(c); err != nil {
				return commands.Result{}, err
			}
			c = st.Criteria()
			return commands.Result{Message: fmt.Sprintf("sorted by %s %s", c.SortBy, c.SortOrder)}, nil
		},
		Search: func(s commands.SearchArgs) (commands.Result, error) {
			st.SetSearch(s.Query)
			if st.Search() == "" {
				return commands.Result{Message: "search cleared"}, nil
			}
			return commands.Result{Message: fmt.Sprintf("searching %q", st.Search())}, nil
		},
		Clear: func() (commands.Result, error) {
			if err := st.SetFilters(model.DefaultCriteria()); err != nil {
				return commands.Result{}, err
			}
			st.SetSearch("")
			return commands.Result{Message: "filters cleared"}, nil
		},
		Done: func(t commands.TargetArgs) (commands.Result, error) {
			ids, err := m.resolveTargets(t.Targets)
			if err != nil {
				return commands.Result{}, err
			}
			op = toggleOp(st, ids)
			return commands.Result{Message: "updating..."}, nil
		},
		Remove: func(t commands.TargetArgs) (commands.Result, error) {
			ids, err := m.resolveTargets(t.Targets)
			if err != nil {
				return commands.Result{}, err
			}
			op = removeOp(st, ids)
			return commands.Result{Message: "removing..."}, nil
		},
	})
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.Status = StatusBar{Text: res.Message}
	m.notify("Command", res.Message, "info")
	m.syncFromStore()
	if op != nil {
		return m.startMutation(op)
	}
	return m, nil
}

func (m Model) addInput(a commands.AddArgs) (model.TaskInput, error) {
	in := model.TaskInput{
		Title:    a.Title,
		Priority: model.Priority(a.Priority),
		Category: a.Category,
	}
	due, err := resolveDue(a.Due, m.now())
	if err != nil {
		return model.TaskInput{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: err.Error()}
	}
	in.DueDate = due
	return in, nil
}

// resolveDue accepts today, tomorrow or anything model.ParseDueDate takes.
func resolveDue(raw string, now time.Time) (*time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case "today":
		d := model.EndOfDay(now)
		return &d, nil
	case "tomorrow":
		d := model.EndOfDay(now.AddDate(0, 0, 1))
		return &d, nil
	}
	return model.ParseDueDate(raw, now.Location())
}

// resolveTargets maps 1-based list positions to ids; anything else is taken
// as an id and left for the store to reject.
func (m Model) resolveTargets(targets []string) ([]string, error) {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		n, err := strconv.Atoi(t)
		if err != nil {
			out = append(out, t)
			continue
		}
		if n < 1 || n > len(m.visibleIDs) {
			return nil, &store.NotFoundError{ID: t}
		}
		out = append(out, m.visibleIDs[n-1])
	}
	return out, nil
}
