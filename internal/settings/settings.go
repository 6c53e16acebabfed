// Package settings persists user preferences between sessions.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sandeepkv93/todod/internal/model"
)

type Density string

const (
	DensityComfortable Density = "comfortable"
	DensityCompact     Density = "compact"
)

func (d Density) IsValid() bool {
	return d == DensityComfortable || d == DensityCompact
}

type Preferences struct {
	Criteria model.FilterCriteria `json:"criteria"`
	Search   string               `json:"search,omitempty"`
	Density  Density              `json:"density"`
}

func Defaults() Preferences {
	return Preferences{
		Criteria: model.DefaultCriteria(),
		Density:  DensityComfortable,
	}
}

// Provider loads and saves preferences. Nothing is written implicitly.
type Provider interface {
	Load() (Preferences, error)
	Save(Preferences) error
}

// FileProvider keeps preferences in a JSON file. An empty Path disables
// persistence.
type FileProvider struct {
	Path string
}

var _ Provider = FileProvider{}

// Load returns defaults for a missing or empty file. Stored values that no
// longer validate fall back to their defaults individually.
func (p FileProvider) Load() (Preferences, error) {
	prefs := Defaults()
	path := strings.TrimSpace(p.Path)
	if path == "" {
		return prefs, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return prefs, nil
		}
		return prefs, fmt.Errorf("read settings: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return prefs, nil
	}
	var stored Preferences
	if err := json.Unmarshal(raw, &stored); err != nil {
		return prefs, fmt.Errorf("decode settings: %w", err)
	}
	return sanitize(stored), nil
}

func (p FileProvider) Save(prefs Preferences) error {
	path := strings.TrimSpace(p.Path)
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	payload, err := json.MarshalIndent(sanitize(prefs), "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, path)
}

func sanitize(in Preferences) Preferences {
	out := in
	out.Criteria = in.Criteria.Normalize()
	if err := out.Criteria.Validate(); err != nil {
		out.Criteria = model.DefaultCriteria()
	}
	if strings.TrimSpace(in.Search) == "" {
		out.Search = ""
	}
	if !out.Density.IsValid() {
		out.Density = DensityComfortable
	}
	return out
}
