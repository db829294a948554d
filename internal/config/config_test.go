package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv("DATABASE_URL", "")
	return dir
}

func TestDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Database.MaxConnections)
	assert.Equal(t, "public", cfg.Database.Schema)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, 30*24*time.Hour, cfg.Notifications.Retention)

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"overdue", cfg.Jobs.Overdue, time.Hour},
		{"due soon", cfg.Jobs.DueSoon, 24 * time.Hour},
		{"recurrence", cfg.Jobs.Recurrence, 24 * time.Hour},
		{"retention", cfg.Jobs.Retention, 168 * time.Hour},
		{"daily stats", cfg.Jobs.DailyStats, 24 * time.Hour},
		{"team stats", cfg.Jobs.TeamStats, 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	content := `
database:
  url: postgres://localhost:5432/taskflow
  max_connections: 10
logging:
  level: DEBUG
notifications:
  timezone: Europe/Berlin
jobs:
  overdue: 30m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".taskflow.yml"), []byte(content), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432/taskflow", cfg.Database.URL)
	assert.Equal(t, 10, cfg.Database.MaxConnections)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, 30*time.Minute, cfg.Jobs.Overdue)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.DueSoon)
}

func TestEnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  url: postgres://file\n"), 0644))

	t.Run("config path from env", func(t *testing.T) {
		t.Setenv(EnvConfig, path)
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "postgres://file", cfg.Database.URL)
	})

	t.Run("DATABASE_URL only fills an empty url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://generic")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "postgres://file", cfg.Database.URL)

		cfg, err = Load("")
		require.NoError(t, err)
		assert.Equal(t, "postgres://generic", cfg.Database.URL)
	})

	t.Run("TASKFLOW_DATABASE_URL wins", func(t *testing.T) {
		t.Setenv(EnvDatabaseURL, "postgres://env")
		t.Setenv(EnvLogLevel, "warn")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "postgres://env", cfg.Database.URL)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("dotenv", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvLogLevel+"=error\n"), 0644))
		defer os.Remove(filepath.Join(dir, ".env"))
		// godotenv never overrides variables that are already set
		require.NoError(t, os.Unsetenv(EnvLogLevel))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "error", cfg.Logging.Level)
	})
}

func TestInvalidConfig(t *testing.T) {
	dir := isolate(t)

	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "database: [unclosed"},
		{"bad timezone", "notifications:\n  timezone: Mars/Olympus\n"},
		{"negative interval", "jobs:\n  overdue: -1h\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.Database.URL = "postgres://saved"
	cfg.Jobs.Overdue = 15 * time.Minute

	path := filepath.Join(dir, "nested", "taskflow.yaml")
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://saved", loaded.Database.URL)
	assert.Equal(t, 15*time.Minute, loaded.Jobs.Overdue)
}
