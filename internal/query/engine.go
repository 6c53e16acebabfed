// Package query turns the raw task collection plus the active criteria into
// the ordered list the user sees. Every function here is pure: inputs are
// never mutated and a fresh slice is returned on every call.
package query

import (
	"slices"
	"strings"
	"time"

	"github.com/sandeepkv93/todod/internal/dates"
	"github.com/sandeepkv93/todod/internal/model"
	"golang.org/x/text/cases"
)

type Engine struct {
	Buckets dates.Filters
}

func New() Engine {
	return Engine{Buckets: dates.DefaultFilters()}
}

// FilterAndSort runs the status, priority, category and date stages, then a
// stable sort. Ties keep their input order.
func FilterAndSort(tasks []model.Task, criteria model.FilterCriteria, now time.Time) []model.Task {
	return New().FilterAndSort(tasks, criteria, now)
}

func (e Engine) FilterAndSort(tasks []model.Task, criteria model.FilterCriteria, now time.Time) []model.Task {
	c := criteria.Normalize()
	buckets := e.Buckets
	if buckets == nil {
		buckets = dates.DefaultFilters()
	}

	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !matchStatus(t, c.Status) {
			continue
		}
		if c.Priority != model.PriorityAll && t.Priority != c.Priority {
			continue
		}
		if c.Category != model.CategoryAll && (!t.HasCategory() || t.Category != c.Category) {
			continue
		}
		if c.DateFilter != model.DateAll && !buckets.Match(c.DateFilter, t, now) {
			continue
		}
		out = append(out, t.Clone())
	}

	slices.SortStableFunc(out, Comparator(c.SortBy, c.SortOrder))
	return out
}

func matchStatus(t model.Task, status model.StatusFilter) bool {
	switch status {
	case model.StatusActive:
		return !t.Completed
	case model.StatusCompleted:
		return t.Completed
	default:
		return true
	}
}

// Comparator returns the three-way compare for key. Descending negates the
// result, except that tasks without a due date always trail when sorting by
// due date.
func Comparator(key model.SortKey, order model.SortOrder) func(a, b model.Task) int {
	dir := func(c int) int {
		if order == model.SortDesc {
			return -c
		}
		return c
	}
	switch key {
	case model.SortTitle:
		return func(a, b model.Task) int { return dir(strings.Compare(a.Title, b.Title)) }
	case model.SortUpdated:
		return func(a, b model.Task) int { return dir(a.UpdatedAt.Compare(b.UpdatedAt)) }
	case model.SortPriority:
		return func(a, b model.Task) int { return dir(a.Priority.Rank() - b.Priority.Rank()) }
	case model.SortDueDate:
		return func(a, b model.Task) int {
			switch {
			case a.DueDate == nil && b.DueDate == nil:
				return 0
			case a.DueDate == nil:
				return 1
			case b.DueDate == nil:
				return -1
			}
			return dir(a.DueDate.Compare(*b.DueDate))
		}
	default:
		return func(a, b model.Task) int { return dir(a.CreatedAt.Compare(b.CreatedAt)) }
	}
}

// Search keeps tasks whose title, description or category contains q,
// ignoring case. A blank q returns the input unchanged; otherwise q is
// matched as typed, surrounding spaces included.
func Search(tasks []model.Task, q string) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	if strings.TrimSpace(q) == "" {
		return append(out, tasks...)
	}

	fold := cases.Fold()
	needle := fold.String(q)
	for _, t := range tasks {
		if strings.Contains(fold.String(t.Title), needle) ||
			strings.Contains(fold.String(t.Description), needle) ||
			strings.Contains(fold.String(t.Category), needle) {
			out = append(out, t)
		}
	}
	return out
}

// View is the visible list: filter, sort, then search over the result.
func View(tasks []model.Task, criteria model.FilterCriteria, q string, now time.Time) []model.Task {
	return Search(FilterAndSort(tasks, criteria, now), q)
}
