// Package config loads taskflow.yaml, the .env file and environment
// overrides into one Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfig      = "TASKFLOW_CONFIG"
	EnvDatabaseURL = "TASKFLOW_DATABASE_URL"
	EnvLogLevel    = "TASKFLOW_LOG_LEVEL"

	DefaultPath = "taskflow.yaml"
)

// Locations are searched in order when no path is given.
var Locations = []string{"taskflow.yaml", "taskflow.yml", ".taskflow.yaml", ".taskflow.yml"}

// Config represents the taskflow.yaml configuration structure
type Config struct {
	Version string `yaml:"version"`

	Database struct {
		URL             string        `yaml:"url"`
		MaxConnections  int           `yaml:"max_connections"`
		MaxIdle         int           `yaml:"max_idle"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		Schema          string        `yaml:"schema"`
		MigrationsTable string        `yaml:"migrations_table"`
		SlowQuery       time.Duration `yaml:"slow_query"`
	} `yaml:"database"`

	Logging struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`

	Notifications struct {
		// Timezone decides where "today" starts for the due-soon sweep.
		Timezone  string        `yaml:"timezone"`
		Retention time.Duration `yaml:"retention"`
	} `yaml:"notifications"`

	Jobs struct {
		Overdue    time.Duration `yaml:"overdue"`
		DueSoon    time.Duration `yaml:"due_soon"`
		Recurrence time.Duration `yaml:"recurrence"`
		Retention  time.Duration `yaml:"retention"`
		DailyStats time.Duration `yaml:"daily_stats"`
		TeamStats  time.Duration `yaml:"team_stats"`
	} `yaml:"jobs"`
}

// Default returns a config with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 25
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Database.Schema == "" {
		c.Database.Schema = "public"
	}
	if c.Database.MigrationsTable == "" {
		c.Database.MigrationsTable = "schema_migrations"
	}
	if c.Database.SlowQuery == 0 {
		c.Database.SlowQuery = 500 * time.Millisecond
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Notifications.Timezone == "" {
		c.Notifications.Timezone = "UTC"
	}
	if c.Notifications.Retention == 0 {
		c.Notifications.Retention = 30 * 24 * time.Hour
	}

	day := 24 * time.Hour
	defaults := []struct {
		field *time.Duration
		value time.Duration
	}{
		{&c.Jobs.Overdue, time.Hour},
		{&c.Jobs.DueSoon, day},
		{&c.Jobs.Recurrence, day},
		{&c.Jobs.Retention, 7 * day},
		{&c.Jobs.DailyStats, day},
		{&c.Jobs.TeamStats, day},
	}
	for _, d := range defaults {
		if *d.field == 0 {
			*d.field = d.value
		}
	}
}

// applyEnv lets the environment override the file.
func (c *Config) applyEnv() {
	if url := os.Getenv(EnvDatabaseURL); url != "" {
		c.Database.URL = url
	} else if url := os.Getenv("DATABASE_URL"); url != "" && c.Database.URL == "" {
		c.Database.URL = url
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
}

// Validate rejects settings that would fail later at runtime.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Notifications.Timezone); err != nil {
		return fmt.Errorf("invalid notifications.timezone %q: %w", c.Notifications.Timezone, err)
	}
	intervals := map[string]time.Duration{
		"jobs.overdue":     c.Jobs.Overdue,
		"jobs.due_soon":    c.Jobs.DueSoon,
		"jobs.recurrence":  c.Jobs.Recurrence,
		"jobs.retention":   c.Jobs.Retention,
		"jobs.daily_stats": c.Jobs.DailyStats,
		"jobs.team_stats":  c.Jobs.TeamStats,
	}
	for name, d := range intervals {
		if d < 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// Location returns the notification timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Notifications.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Path resolves the config file: TASKFLOW_CONFIG first, then the standard
// locations in the working directory. It returns "" when nothing exists.
func Path() string {
	if path := os.Getenv(EnvConfig); path != "" {
		return path
	}
	for _, loc := range Locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Load reads the config at path, or the first one Path finds. A missing
// file is not an error: defaults and the environment still apply.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = Path()
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
