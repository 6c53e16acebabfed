package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sandeepkv93/todod/internal/model"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	p := FileProvider{Path: filepath.Join(t.TempDir(), "missing.json")}
	prefs, err := p.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if prefs != Defaults() {
		t.Fatalf("expected defaults, got %+v", prefs)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	p := FileProvider{Path: path}

	want := Preferences{
		Criteria: model.FilterCriteria{
			Status:     model.StatusActive,
			Priority:   model.PriorityHigh,
			Category:   "Work",
			DateFilter: model.DateOverdue,
			SortBy:     model.SortDueDate,
			SortOrder:  model.SortAsc,
		},
		Search:  "report",
		Density: DensityCompact,
	}
	if err := p.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away, stat err=%v", err)
	}

	got, err := p.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestLoadSanitizesStaleValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	body := `{"criteria":{"status":"archived","sortBy":"title"},"search":"  x  ","density":"huge"}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	prefs, err := FileProvider{Path: path}.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if prefs.Criteria != model.DefaultCriteria() {
		t.Fatalf("expected default criteria for invalid status, got %+v", prefs.Criteria)
	}
	if prefs.Search != "  x  " || prefs.Density != DensityComfortable {
		t.Fatalf("unexpected sanitized prefs: %+v", prefs)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	prefs, err := FileProvider{Path: path}.Load()
	if err == nil {
		t.Fatal("expected decode error")
	}
	if prefs != Defaults() {
		t.Fatalf("expected defaults alongside error, got %+v", prefs)
	}
}

func TestEmptyPathDisablesPersistence(t *testing.T) {
	p := FileProvider{}
	if err := p.Save(Defaults()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := p.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}
