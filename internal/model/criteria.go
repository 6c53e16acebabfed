package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCriteria = errors.New("model: invalid filter criteria")

type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusActive    StatusFilter = "active"
	StatusCompleted StatusFilter = "completed"
)

func (s StatusFilter) IsValid() bool {
	switch s {
	case StatusAll, StatusActive, StatusCompleted:
		return true
	default:
		return false
	}
}

type DateFilter string

const (
	DateAll      DateFilter = "all"
	DateToday    DateFilter = "today"
	DateTomorrow DateFilter = "tomorrow"
	DateThisWeek DateFilter = "this-week"
	DateOverdue  DateFilter = "overdue"
	DateNoDate   DateFilter = "no-date"
)

type SortKey string

const (
	SortCreated  SortKey = "created"
	SortUpdated  SortKey = "updated"
	SortTitle    SortKey = "title"
	SortPriority SortKey = "priority"
	SortDueDate  SortKey = "dueDate"
)

func (k SortKey) IsValid() bool {
	switch k {
	case SortCreated, SortUpdated, SortTitle, SortPriority, SortDueDate:
		return true
	default:
		return false
	}
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (o SortOrder) IsValid() bool {
	return o == SortAsc || o == SortDesc
}

// CategoryAll disables the category stage. Categories are free text, so a
// category literally named "all" cannot be selected on its own.
const CategoryAll = "all"

type FilterCriteria struct {
	Status     StatusFilter `json:"status"`
	Priority   Priority     `json:"priority"`
	Category   string       `json:"category"`
	DateFilter DateFilter   `json:"dateFilter"`
	SortBy     SortKey      `json:"sortBy"`
	SortOrder  SortOrder    `json:"sortOrder"`
}

// DefaultCriteria reproduces the whole collection, newest first.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{
		Status:     StatusAll,
		Priority:   PriorityAll,
		Category:   CategoryAll,
		DateFilter: DateAll,
		SortBy:     SortCreated,
		SortOrder:  SortDesc,
	}
}

// Normalize fills empty fields with defaults and canonicalises priority casing.
func (c FilterCriteria) Normalize() FilterCriteria {
	def := DefaultCriteria()
	out := c
	if out.Status == "" {
		out.Status = def.Status
	}
	switch p := strings.TrimSpace(string(out.Priority)); {
	case p == "" || strings.EqualFold(p, string(PriorityAll)):
		out.Priority = PriorityAll
	default:
		out.Priority = Priority(strings.ToUpper(p))
	}
	if strings.TrimSpace(out.Category) == "" {
		out.Category = def.Category
	}
	if out.DateFilter == "" {
		out.DateFilter = def.DateFilter
	}
	if out.SortBy == "" {
		out.SortBy = def.SortBy
	}
	if out.SortOrder == "" {
		out.SortOrder = def.SortOrder
	}
	return out
}

// Validate checks the closed enums. Date filter keys are checked by the date
// bucketing registry since that set is open for extension.
func (c FilterCriteria) Validate() error {
	if !c.Status.IsValid() {
		return fmt.Errorf("%w: status %q", ErrInvalidCriteria, c.Status)
	}
	if c.Priority != PriorityAll && !c.Priority.IsValid() {
		return fmt.Errorf("%w: priority %q", ErrInvalidCriteria, c.Priority)
	}
	if !c.SortBy.IsValid() {
		return fmt.Errorf("%w: sortBy %q", ErrInvalidCriteria, c.SortBy)
	}
	if !c.SortOrder.IsValid() {
		return fmt.Errorf("%w: sortOrder %q", ErrInvalidCriteria, c.SortOrder)
	}
	return nil
}

func (c FilterCriteria) IsDefault() bool {
	return c.Normalize() == DefaultCriteria()
}
