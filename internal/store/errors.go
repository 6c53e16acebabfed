package store

import (
	"errors"
	"fmt"

	"github.com/sandeepkv93/todod/internal/model"
)

var (
	ErrValidation  = errors.New("store: validation failed")
	ErrNotFound    = errors.New("store: task not found")
	ErrPersistence = errors.New("store: persistence failed")
)

// ValidationError is returned before any collaborator call is made.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PersistenceError wraps a failed collaborator call. Status is the
// collaborator's classification when it offers one, otherwise 0.
type PersistenceError struct {
	Op     string
	Status int
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s failed (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

type statusCoder interface {
	StatusCode() int
}

func persistenceError(op string, err error) *PersistenceError {
	pe := &PersistenceError{Op: op, Err: err}
	var sc statusCoder
	if errors.As(err, &sc) {
		pe.Status = sc.StatusCode()
	}
	return pe
}

func validationError(err error) *ValidationError {
	var fe *model.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: fe.Field, Reason: fe.Err.Error(), Err: err}
	}
	return &ValidationError{Reason: err.Error(), Err: err}
}
