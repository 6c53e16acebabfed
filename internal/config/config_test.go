package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRuntimeConfigDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Backend != BackendSQLite || cfg.DBPath != "todod.db" {
		t.Fatalf("unexpected backend defaults: %+v", cfg)
	}
	if cfg.TopCategories != 6 || cfg.SchedulerBuffer != 64 {
		t.Fatalf("unexpected runtime defaults: %+v", cfg)
	}
	if cfg.SettingsPath != ".todod_settings.json" || cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("unexpected settings defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}
}

func TestRuntimeConfigFromEnv(t *testing.T) {
	t.Setenv("TODOD_DESKTOP_NOTIFICATIONS", "true")
	t.Setenv("TODOD_BACKEND", "REMOTE")
	t.Setenv("TODOD_API_URL", "https://todo.example.com")
	t.Setenv("TODOD_API_TOKEN", "abc")
	t.Setenv("TODOD_TOP_CATEGORIES", "4")
	t.Setenv("TODOD_SCHEDULER_BUFFER", "128")
	t.Setenv("TODOD_REQUEST_TIMEOUT", "3s")
	t.Setenv("TODOD_SETTINGS_FILE", "state/custom.json")

	cfg := FromEnv(Default())
	if !cfg.DesktopNotifications {
		t.Fatal("expected desktop notifications true from env")
	}
	if cfg.Backend != BackendRemote || cfg.APIURL != "https://todo.example.com" || cfg.APIToken != "abc" {
		t.Fatalf("unexpected remote config: %+v", cfg)
	}
	if cfg.TopCategories != 4 || cfg.SchedulerBuffer != 128 || cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("unexpected config overrides: %+v", cfg)
	}
	if cfg.SettingsPath != "state/custom.json" {
		t.Fatalf("unexpected settings path override: %+v", cfg)
	}
}

func TestRuntimeConfigFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("TODOD_SCHEDULER_BUFFER", "-3")
	t.Setenv("TODOD_DESKTOP_NOTIFICATIONS", "maybe")
	t.Setenv("TODOD_REQUEST_TIMEOUT", "soon")

	cfg := FromEnv(Default())
	if cfg != Default() {
		t.Fatalf("expected defaults to survive invalid env, got %+v", cfg)
	}
}

func TestLoadFileOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todod.yml")
	body := "backend: remote\napi_url: http://10.0.0.2:9000\nlog_development: true\ntop_categories: 3\nrequest_timeout: 2s\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path, Default())
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.Backend != BackendRemote || cfg.APIURL != "http://10.0.0.2:9000" || !cfg.LogDevelopment {
		t.Fatalf("unexpected overlay: %+v", cfg)
	}
	if cfg.TopCategories != 3 || cfg.RequestTimeout != 2*time.Second {
		t.Fatalf("unexpected numeric overlay: %+v", cfg)
	}
	if cfg.DBPath != Default().DBPath {
		t.Fatalf("expected untouched db path, got %q", cfg.DBPath)
	}

	missing, err := LoadFile(filepath.Join(t.TempDir(), "absent.yml"), Default())
	if err != nil || missing != Default() {
		t.Fatalf("expected defaults for missing file, got %+v %v", missing, err)
	}
}

func TestLoadFileRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("top_categories: [1, 2"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path, Default()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TODOD_API_TOKEN=from-file\nTODOD_LOG_FILE=dotenv.log\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("TODOD_API_TOKEN", "from-env")
	t.Setenv("TODOD_LOG_FILE", "")
	os.Unsetenv("TODOD_LOG_FILE")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	cfg := FromEnv(Default())
	if cfg.APIToken != "from-env" {
		t.Fatalf("expected process env to win, got %q", cfg.APIToken)
	}
	if cfg.LogFile != "dotenv.log" {
		t.Fatalf("expected value from .env, got %q", cfg.LogFile)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Backend = "postgres"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	cfg = Default()
	cfg.Backend = BackendRemote
	cfg.APIURL = ""
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
