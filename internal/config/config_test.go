package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightpipe/internal/config"
	"insightpipe/internal/workflow"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 0.8, cfg.Engine.PartialThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Engine.LoadTimeout)
	assert.True(t, cfg.Engine.AttachHealthReport)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("INSIGHT_SERVER_PORT", "9090")
	t.Setenv("INSIGHT_ENGINE_PARTIAL_THRESHOLD", "0.6")
	t.Setenv("INSIGHT_LOGGING_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.6, cfg.Engine.PartialThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched fields keep their defaults.
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 7070
engine:
  partial_threshold: 0.5
  retry_max_attempts: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("INSIGHT_CONFIG_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 0.5, cfg.Engine.PartialThreshold)
	assert.Equal(t, 5, cfg.Engine.RetryMaxAttempts)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644))
	t.Setenv("INSIGHT_CONFIG_FILE", path)
	t.Setenv("INSIGHT_SERVER_PORT", "9999")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "INSIGHT_SERVER_PORT", "99999"},
		{"negative threshold", "INSIGHT_ENGINE_PARTIAL_THRESHOLD", "-0.1"},
		{"threshold above one", "INSIGHT_ENGINE_PARTIAL_THRESHOLD", "1.5"},
		{"zero retry attempts", "INSIGHT_ENGINE_RETRY_MAX_ATTEMPTS", "0"},
		{"unknown log format", "INSIGHT_LOGGING_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.PartialThreshold = 0.7
	cfg.Engine.RetryMaxAttempts = 4
	cfg.Engine.ReportTimeout = time.Minute

	engine := cfg.EngineConfig()

	assert.Equal(t, 0.7, engine.PartialThreshold)
	assert.Equal(t, 4, engine.RetryPolicy.MaxAttempts)
	assert.Equal(t, time.Minute, engine.TaskTimeout(workflow.TaskTypeReport))
	assert.Equal(t, 30*time.Minute, engine.TaskTimeout(workflow.TaskTypeLoadData))
	// Unlisted task types fall back to the default.
	assert.Equal(t, 10*time.Minute, engine.TaskTimeout(workflow.TaskTypeExplore))
}
