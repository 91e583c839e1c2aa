package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrumboard/internal/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scrumboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "data/scrumboard.db", cfg.DBPath)
	assert.Equal(t, "Europe/Ljubljana", cfg.Timezone)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.Otel.Enabled)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "addr: \":9000\"\ndb_path: /tmp/file.db\nlog_level: warn\notel:\n  enabled: true\n")
	t.Setenv("SCRUMBOARD_DB_PATH", "/tmp/env.db")
	t.Setenv("SCRUMBOARD_OTEL_STDOUT", "true")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("addr", ":8080", "")
	require.NoError(t, fs.Parse([]string{"--addr", ":7000"}))

	cfg, err := config.Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "/tmp/env.db", cfg.DBPath)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.True(t, cfg.Otel.Enabled)
	assert.True(t, cfg.Otel.Stdout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "timezone", env: map[string]string{"SCRUMBOARD_TIMEZONE": "Mars/Olympus"}},
		{name: "log level", env: map[string]string{"SCRUMBOARD_LOG_LEVEL": "loud"}},
		{name: "empty addr", env: map[string]string{"SCRUMBOARD_ADDR": " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load("", nil)
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
