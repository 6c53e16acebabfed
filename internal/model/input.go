package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000

	dueDateLayout = "2006-01-02"
)

var (
	ErrTitleRequired      = errors.New("model: title is required")
	ErrTitleTooLong       = errors.New("model: title is too long")
	ErrDescriptionTooLong = errors.New("model: description is too long")
	ErrInvalidDueDate     = errors.New("model: invalid due date")
)

// FieldError names the input field that failed boundary validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// TaskInput is the form data accepted by create and update.
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	Category    string     `json:"category,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

func (in TaskInput) Normalize() TaskInput {
	out := in
	out.Title = strings.TrimSpace(in.Title)
	out.Description = strings.TrimSpace(in.Description)
	out.Category = strings.TrimSpace(in.Category)
	if p, err := ParsePriority(string(in.Priority)); err == nil {
		out.Priority = p
	}
	return out
}

func (in TaskInput) Validate() error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return &FieldError{Field: "title", Err: ErrTitleRequired}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return &FieldError{Field: "title", Err: fmt.Errorf("%w: max %d characters", ErrTitleTooLong, MaxTitleLength)}
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Description)) > MaxDescriptionLength {
		return &FieldError{Field: "description", Err: fmt.Errorf("%w: max %d characters", ErrDescriptionTooLong, MaxDescriptionLength)}
	}
	if _, err := ParsePriority(string(in.Priority)); err != nil {
		return &FieldError{Field: "priority", Err: err}
	}
	return nil
}

// NewTask builds a fresh record with defaults applied. Callers validate first.
func NewTask(id string, in TaskInput, now time.Time) Task {
	in = in.Normalize()
	t := Task{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return in.ApplyTo(t, now)
}

// ApplyTo copies the editable fields onto t and refreshes UpdatedAt.
// ID, Completed and CreatedAt are never touched.
func (in TaskInput) ApplyTo(t Task, now time.Time) Task {
	in = in.Normalize()
	t.Title = in.Title
	t.Description = in.Description
	t.Priority = in.Priority
	t.Category = in.Category
	t.DueDate = nil
	if in.DueDate != nil {
		due := *in.DueDate
		t.DueDate = &due
	}
	t.UpdatedAt = Touch(t.CreatedAt, now)
	return t
}

// Touch returns now, clamped so it never precedes createdAt.
func Touch(createdAt, now time.Time) time.Time {
	if now.Before(createdAt) {
		return createdAt
	}
	return now
}

// InputFromTask returns the editable fields of t.
func InputFromTask(t Task) TaskInput {
	in := TaskInput{
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Category:    t.Category,
	}
	if t.DueDate != nil {
		due := *t.DueDate
		in.DueDate = &due
	}
	return in
}

// ParseDueDate accepts a date-only value (stored as 23:59:59 of that day in loc)
// or a full RFC 3339 timestamp. An empty string means no due date.
func ParseDueDate(raw string, loc *time.Location) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if day, err := time.ParseInLocation(dueDateLayout, trimmed, loc); err == nil {
		due := EndOfDay(day)
		return &due, nil
	}
	ts, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDueDate, raw)
	}
	return &ts, nil
}

func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
