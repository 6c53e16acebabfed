// Package dates classifies task due dates into calendar-day buckets relative
// to a caller-supplied "now". All comparisons use whole calendar days in the
// location of now, so time of day never changes the answer.
package dates

import (
	"time"

	"github.com/sandeepkv93/todod/internal/model"
)

const weekWindowDays = 7

// Predicate reports whether a task belongs to a bucket at the given instant.
type Predicate func(task model.Task, now time.Time) bool

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from a to b as seen in loc. DST
// transitions do not affect the count.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	a, b = a.In(loc), b.In(loc)
	ca := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	cb := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(cb.Sub(ca).Hours() / 24)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DaysBetween(a, b, loc) == 0
}

// DueOffset returns the due date's distance in days from today (negative
// means in the past). ok is false when the task has no due date.
func DueOffset(task model.Task, now time.Time) (days int, ok bool) {
	if task.DueDate == nil {
		return 0, false
	}
	return DaysBetween(now, *task.DueDate, now.Location()), true
}

func IsToday(task model.Task, now time.Time) bool {
	d, ok := DueOffset(task, now)
	return ok && d == 0
}

func IsTomorrow(task model.Task, now time.Time) bool {
	d, ok := DueOffset(task, now)
	return ok && d == 1
}

// IsThisWeek covers today through today+6.
func IsThisWeek(task model.Task, now time.Time) bool {
	d, ok := DueOffset(task, now)
	return ok && d >= 0 && d < weekWindowDays
}

// IsOverdue never holds for a completed task.
func IsOverdue(task model.Task, now time.Time) bool {
	if task.Completed {
		return false
	}
	d, ok := DueOffset(task, now)
	return ok && d < 0
}

func HasNoDate(task model.Task, _ time.Time) bool {
	return task.DueDate == nil
}

func matchAll(model.Task, time.Time) bool { return true }

// Filters maps a date filter key to its predicate. Adding a bucket means
// adding an entry; the query engine dispatches by key only.
type Filters map[model.DateFilter]Predicate

// DefaultFilters returns a fresh registry so callers may extend it safely.
func DefaultFilters() Filters {
	return Filters{
		model.DateAll:      matchAll,
		model.DateToday:    IsToday,
		model.DateTomorrow: IsTomorrow,
		model.DateThisWeek: IsThisWeek,
		model.DateOverdue:  IsOverdue,
		model.DateNoDate:   HasNoDate,
	}
}

func (f Filters) Has(key model.DateFilter) bool {
	_, ok := f[key]
	return ok
}

// Match applies the predicate for key. Unknown keys match everything.
func (f Filters) Match(key model.DateFilter, task model.Task, now time.Time) bool {
	pred, ok := f[key]
	if !ok {
		return true
	}
	return pred(task, now)
}

// Bucket is the single display label for a task's due date.
type Bucket string

const (
	BucketOverdue  Bucket = "Overdue"
	BucketToday    Bucket = "Today"
	BucketTomorrow Bucket = "Tomorrow"
	BucketThisWeek Bucket = "This week"
	BucketLater    Bucket = "Later"
	BucketEarlier  Bucket = "Earlier"
	BucketNoDate   Bucket = "No date"
)

// Classify picks the most specific bucket, checking overdue first.
func Classify(task model.Task, now time.Time) Bucket {
	d, ok := DueOffset(task, now)
	switch {
	case !ok:
		return BucketNoDate
	case IsOverdue(task, now):
		return BucketOverdue
	case d < 0:
		return BucketEarlier
	case d == 0:
		return BucketToday
	case d == 1:
		return BucketTomorrow
	case d < weekWindowDays:
		return BucketThisWeek
	default:
		return BucketLater
	}
}
