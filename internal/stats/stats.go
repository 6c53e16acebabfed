// Package stats derives the dashboard aggregates from the full task
// collection. Callers must pass every task, never a filtered view.
package stats

import (
	"math"
	"slices"
	"time"

	"github.com/sandeepkv93/todod/internal/dates"
	"github.com/sandeepkv93/todod/internal/model"
)

const (
	UncategorizedLabel = "Uncategorized"
	DefaultTopN        = 6

	activityDays = 7
	cohortDays   = 7
	streakWindow = 30
)

type CategoryCount struct {
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
	// Absent marks the group of tasks that carry no category at all, as
	// opposed to a category literally named "Uncategorized".
	Absent bool `json:"absent,omitempty"`
}

type PriorityCount struct {
	Priority model.Priority `json:"priority"`
	Count    int            `json:"count"`
	Percent  int            `json:"percent"`
}

type DayActivity struct {
	Date      time.Time `json:"date"`
	Label     string    `json:"label"`
	Created   int       `json:"created"`
	Completed int       `json:"completed"`
}

type Stats struct {
	Total                int             `json:"total"`
	Completed            int             `json:"completed"`
	Active               int             `json:"active"`
	Overdue              int             `json:"overdue"`
	CompletionRate       float64         `json:"completionRate"`
	CategoryDistribution []CategoryCount `json:"categoryDistribution"`
	PriorityDistribution []PriorityCount `json:"priorityDistribution"`
	WeeklyActivity       []DayActivity   `json:"weeklyActivity"`
	CurrentStreak        int             `json:"currentStreak"`
	ProductivityScore    int             `json:"productivityScore"`
}

// Compute builds every aggregate in one call.
func Compute(tasks []model.Task, now time.Time) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
		if dates.IsOverdue(t, now) {
			s.Overdue++
		}
	}
	s.Active = s.Total - s.Completed
	s.CompletionRate = Rate(s.Completed, s.Total)
	s.CategoryDistribution = CategoryDistribution(tasks)
	s.PriorityDistribution = PriorityDistribution(tasks)
	s.WeeklyActivity = WeeklyActivity(tasks, now)
	s.CurrentStreak = CurrentStreak(tasks, now)
	s.ProductivityScore = ProductivityScore(tasks, now)
	return s
}

// Rate returns part/whole*100 without rounding, and 0 for an empty whole.
func Rate(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// Percent returns part/whole*100 rounded half up, and 0 for an empty whole.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Floor(float64(part)*100/float64(whole) + 0.5))
}

type categoryKey struct {
	label  string
	absent bool
}

// CategoryDistribution groups by category, descending by count. Equal
// counts keep the order in which each group first appeared.
func CategoryDistribution(tasks []model.Task) []CategoryCount {
	index := make(map[categoryKey]int)
	out := make([]CategoryCount, 0)
	for _, t := range tasks {
		key := categoryKey{label: t.Category, absent: !t.HasCategory()}
		if key.absent {
			key.label = UncategorizedLabel
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, CategoryCount{Label: key.label, Absent: key.absent})
		}
		out[i].Count++
	}
	for i := range out {
		out[i].Percent = Percent(out[i].Count, len(tasks))
	}
	slices.SortStableFunc(out, func(a, b CategoryCount) int { return b.Count - a.Count })
	return out
}

// TopCategories caps a distribution to its first n entries. Percentages are
// left as computed against the full total.
func TopCategories(dist []CategoryCount, n int) []CategoryCount {
	if n < 0 || n >= len(dist) {
		return slices.Clone(dist)
	}
	return slices.Clone(dist[:n])
}

// PriorityDistribution counts active tasks only, highest priority first.
// Percentages are against the active total and empty levels are omitted.
func PriorityDistribution(tasks []model.Task) []PriorityCount {
	counts := make(map[model.Priority]int, 3)
	active := 0
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		active++
		counts[t.Priority]++
	}

	out := make([]PriorityCount, 0, 3)
	for _, p := range []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
		if counts[p] == 0 {
			continue
		}
		out = append(out, PriorityCount{Priority: p, Count: counts[p], Percent: Percent(counts[p], active)})
	}
	return out
}

// WeeklyActivity returns seven days, oldest first and ending today. A
// completed task counts on the calendar day of its UpdatedAt.
func WeeklyActivity(tasks []model.Task, now time.Time) []DayActivity {
	loc := now.Location()
	today := dates.StartOfDay(now)
	out := make([]DayActivity, activityDays)
	for i := range out {
		day := today.AddDate(0, 0, i-(activityDays-1))
		out[i] = DayActivity{Date: day, Label: day.Format("Mon")}
	}

	slot := func(ts time.Time) (int, bool) {
		back := dates.DaysBetween(ts, now, loc)
		if back < 0 || back >= activityDays {
			return 0, false
		}
		return activityDays - 1 - back, true
	}
	for _, t := range tasks {
		if i, ok := slot(t.CreatedAt); ok {
			out[i].Created++
		}
		if !t.Completed {
			continue
		}
		if i, ok := slot(t.UpdatedAt); ok {
			out[i].Completed++
		}
	}
	return out
}

// CurrentStreak counts consecutive days with at least one completion,
// starting at today. A day without a completion ends the streak, including
// today itself. The lookback stops after 30 days.
func CurrentStreak(tasks []model.Task, now time.Time) int {
	loc := now.Location()
	days := make(map[int]bool)
	for _, t := range tasks {
		if !t.Completed {
			continue
		}
		back := dates.DaysBetween(t.UpdatedAt, now, loc)
		if back >= 0 && back < streakWindow {
			days[back] = true
		}
	}

	streak := 0
	for streak < streakWindow && days[streak] {
		streak++
	}
	return streak
}

// ProductivityScore is the share of tasks created in the last seven days
// (today included) that are completed now.
func ProductivityScore(tasks []model.Task, now time.Time) int {
	loc := now.Location()
	created, completed := 0, 0
	for _, t := range tasks {
		back := dates.DaysBetween(t.CreatedAt, now, loc)
		if back < 0 || back >= cohortDays {
			continue
		}
		created++
		if t.Completed {
			completed++
		}
	}
	return Percent(completed, created)
}
