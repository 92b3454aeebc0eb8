package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 100, cfg.Logging.MaxSizeMB)
	assert.Equal(t, 5, cfg.Logging.MaxBackups)
	assert.Equal(t, 30, cfg.Logging.MaxAgeDays)
	assert.Equal(t, 9090, cfg.Prometheus.Port)
	assert.Equal(t, 10.0, cfg.API.RateLimit)
	assert.Equal(t, 20, cfg.API.Burst)
	assert.Equal(t, int64(1<<20), cfg.API.MaxBodyBytes)
	assert.Equal(t, 30, cfg.HistoryRetentionDays)
	assert.True(t, cfg.HistoryEnabled())
	assert.Equal(t, DefaultDatabasePath, *cfg.DatabasePath)
	assert.Zero(t, cfg.DefaultDelaySeconds)
}

func TestParseExplicitValues(t *testing.T) {
	yml := `
logging:
  level: debug
  pretty: true
  file: /tmp/reaper.log
prometheus:
  port: 9191
api:
  rate_limit: 2.5
  burst: 4
database_path: ""
default_delay_seconds: 1.5
history_retention_days: 7
`
	cfg, err := Parse(strings.NewReader(yml))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)
	assert.Equal(t, "/tmp/reaper.log", cfg.Logging.File)
	assert.Equal(t, ":9191", cfg.PrometheusAddress())
	assert.Equal(t, 2.5, cfg.API.RateLimit)
	assert.Equal(t, 4, cfg.API.Burst)
	assert.False(t, cfg.HistoryEnabled(), "empty database_path disables history")
	assert.Equal(t, 1.5, cfg.DefaultDelaySeconds)
	assert.Equal(t, 7, cfg.HistoryRetentionDays)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want error
	}{
		{"negative delay", "default_delay_seconds: -1", errNegativeDelay},
		{"negative retention", "history_retention_days: -3", errNegativeRetention},
		{"negative port", "prometheus:\n  port: -1", errNegativePort},
		{"unknown level", "logging:\n  level: verbose", errInvalidLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yml))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse(strings.NewReader("logging: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode yaml")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_delay_seconds: 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.DefaultDelaySeconds)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open config")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.HistoryEnabled())
}
