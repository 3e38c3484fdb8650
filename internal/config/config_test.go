package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yatube.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, &Storage{Driver: DriverMemory, MaxConns: 10}, cfg.Storage)
	assert.Equal(t, &Log{Level: "info", Format: "text"}, cfg.Log)
	assert.Equal(t, "-", cfg.Admin.EmptyValueDisplay)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: SQLite
  dsn: /tmp/yatube.db
  max_conns: 3
log:
  level: debug
  format: json
  sql: true
admin:
  empty_value_display: "(нет)"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, &Storage{Driver: DriverSQLite, DSN: "/tmp/yatube.db", MaxConns: 3}, cfg.Storage)
	assert.Equal(t, &Log{Level: "debug", Format: "json", SQL: true}, cfg.Log)
	assert.Equal(t, "(нет)", cfg.Admin.EmptyValueDisplay)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: sqlite\n  dsn: a.db\n")
	t.Setenv("YATUBE_STORAGE_DSN", "b.db")
	t.Setenv("YATUBE_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "b.db", cfg.Storage.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"unknown driver", "storage:\n  driver: mongo\n", `unknown storage.driver "mongo"`},
		{"missing dsn", "storage:\n  driver: postgres\n", `storage.dsn is required for driver "postgres"`},
		{"bad pool size", "storage:\n  max_conns: 0\n", "storage.max_conns must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
