package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
)

var ErrInvalidConfig = errors.New("config: invalid")

type RuntimeConfig struct {
	DBPath               string
	APIAddr              string
	APIURL               string
	APIToken             string
	Backend              string
	LogDevelopment       bool
	LogFile              string
	SettingsPath         string
	TopCategories        int
	SchedulerBuffer      int
	DesktopNotifications bool
	RequestTimeout       time.Duration
}

func Default() RuntimeConfig {
	return RuntimeConfig{
		DBPath:          "todod.db",
		APIAddr:         ":8080",
		APIURL:          "http://localhost:8080",
		Backend:         BackendSQLite,
		LogFile:         "todod.log",
		SettingsPath:    ".todod_settings.json",
		TopCategories:   6,
		SchedulerBuffer: 64,
		RequestTimeout:  10 * time.Second,
	}
}

// fileConfig mirrors RuntimeConfig for YAML. Absent keys leave the base
// value untouched.
type fileConfig struct {
	DBPath               *string        `yaml:"db_path"`
	APIAddr              *string        `yaml:"api_addr"`
	APIURL               *string        `yaml:"api_url"`
	APIToken             *string        `yaml:"api_token"`
	Backend              *string        `yaml:"backend"`
	LogDevelopment       *bool          `yaml:"log_development"`
	LogFile              *string        `yaml:"log_file"`
	SettingsPath         *string        `yaml:"settings_path"`
	TopCategories        *int           `yaml:"top_categories"`
	SchedulerBuffer      *int           `yaml:"scheduler_buffer"`
	DesktopNotifications *bool          `yaml:"desktop_notifications"`
	RequestTimeout       *time.Duration `yaml:"request_timeout"`
}

// LoadFile overlays the YAML file at path onto base. A missing file is not
// an error.
func LoadFile(path string, base RuntimeConfig) (RuntimeConfig, error) {
	cfg := base
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.APIAddr, fc.APIAddr)
	setString(&cfg.APIURL, fc.APIURL)
	setString(&cfg.APIToken, fc.APIToken)
	setString(&cfg.Backend, fc.Backend)
	setString(&cfg.LogFile, fc.LogFile)
	setString(&cfg.SettingsPath, fc.SettingsPath)
	if fc.LogDevelopment != nil {
		cfg.LogDevelopment = *fc.LogDevelopment
	}
	if fc.DesktopNotifications != nil {
		cfg.DesktopNotifications = *fc.DesktopNotifications
	}
	if fc.TopCategories != nil {
		cfg.TopCategories = *fc.TopCategories
	}
	if fc.SchedulerBuffer != nil && *fc.SchedulerBuffer > 0 {
		cfg.SchedulerBuffer = *fc.SchedulerBuffer
	}
	if fc.RequestTimeout != nil && *fc.RequestTimeout > 0 {
		cfg.RequestTimeout = *fc.RequestTimeout
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func FromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v, ok := getEnvString("TODOD_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := getEnvString("TODOD_API_ADDR"); ok {
		cfg.APIAddr = v
	}
	if v, ok := getEnvString("TODOD_API_URL"); ok {
		cfg.APIURL = v
	}
	if v, ok := getEnvString("TODOD_API_TOKEN"); ok {
		cfg.APIToken = v
	}
	if v, ok := getEnvString("TODOD_BACKEND"); ok {
		cfg.Backend = strings.ToLower(v)
	}
	if v, ok := getEnvBool("TODOD_LOG_DEVELOPMENT"); ok {
		cfg.LogDevelopment = v
	}
	if v, ok := getEnvString("TODOD_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := getEnvString("TODOD_SETTINGS_FILE"); ok {
		cfg.SettingsPath = v
	}
	if v, ok := getEnvInt("TODOD_TOP_CATEGORIES"); ok {
		cfg.TopCategories = v
	}
	if v, ok := getEnvInt("TODOD_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvBool("TODOD_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvDuration("TODOD_REQUEST_TIMEOUT"); ok && v > 0 {
		cfg.RequestTimeout = v
	}
	return cfg
}

// Load resolves defaults, then the YAML file, then .env, then the process
// environment. Later sources win.
func Load(path string) (RuntimeConfig, error) {
	cfg, err := LoadFile(path, Default())
	if err != nil {
		return cfg, err
	}
	if err := LoadDotEnv(".env"); err != nil {
		return cfg, err
	}
	cfg = FromEnv(cfg)
	return cfg, cfg.Validate()
}

func (c RuntimeConfig) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("%w: db path is required for the sqlite backend", ErrInvalidConfig)
		}
	case BackendRemote:
		if strings.TrimSpace(c.APIURL) == "" {
			return fmt.Errorf("%w: api url is required for the remote backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = strings.TrimSpace(*v)
	}
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvDuration(name string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
