// Package transfer reads and writes the portable JSON export of a task
// collection.
package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sandeepkv93/todod/internal/model"
)

const Version = 1

var (
	ErrUnsupportedVersion = errors.New("transfer: unsupported export version")
	ErrDuplicateID        = errors.New("transfer: duplicate task id")
)

type Document struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exportedAt"`
	Todos      []model.Task `json:"todos"`
}

// Export writes tasks in their given order.
func Export(w io.Writer, tasks []model.Task, now time.Time) error {
	doc := Document{
		Version:    Version,
		ExportedAt: now.UTC(),
		Todos:      model.CloneTasks(tasks),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// Import decodes and validates an export. Priorities are accepted in any
// casing and stored canonically.
func Import(r io.Reader) ([]model.Task, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	seen := make(map[string]int, len(doc.Todos))
	out := make([]model.Task, 0, len(doc.Todos))
	for i, t := range doc.Todos {
		p, err := model.ParsePriority(string(t.Priority))
		if err != nil {
			return nil, fmt.Errorf("todo %d: %w", i, err)
		}
		t.Priority = p
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("todo %d: %w", i, err)
		}
		if first, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("%w: %q at %d and %d", ErrDuplicateID, t.ID, first, i)
		}
		seen[t.ID] = i
		out = append(out, t)
	}
	return out, nil
}
