package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traceframe-dev/traceframe/pkg/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.False(t, cfg.Server.Enabled)
	assert.Equal(t, int64(config.DefaultColumnStoreCacheBudgetBytes), cfg.ColumnStore.CacheBudgetBytes)
	assert.True(t, cfg.ColumnStore.ForwardFillNaN)
	assert.Equal(t, 350*time.Millisecond, cfg.Orchestrator.DebounceWindow)
	assert.Equal(t, 0, cfg.Orchestrator.MaxConcurrentJobs)
	assert.Equal(t, "auto", cfg.Orchestrator.HibernateMode)
	assert.Equal(t, "zstd", cfg.Archive.CompressionAlgo)
	assert.Equal(t, 8, cfg.Cursor.SnapThresholdPx)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	content := `
server:
  port: 9000
  host: "0.0.0.0"
  enabled: true

orchestrator:
  debounce_window: "500ms"
  max_concurrent_jobs: 4

archive:
  directory: "/tmp/traceframe-archives"
  compression_algo: "zstd"
`

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Orchestrator.DebounceWindow)
	assert.Equal(t, 4, cfg.Orchestrator.MaxConcurrentJobs)
	assert.Equal(t, "/tmp/traceframe-archives", cfg.Archive.Directory)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("TRACEFRAME_SERVER_PORT", "9090")
	t.Setenv("TRACEFRAME_ORCHESTRATOR_MAX_CONCURRENT_JOBS", "6")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 6, cfg.Orchestrator.MaxConcurrentJobs)
}

func TestValidateConfigRejectsNonPositiveCacheBudget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("column_store:\n  cache_budget_bytes: 0\n"), 0o600))

	cfg, err := config.LoadConfig(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, config.ErrInvalidCacheBudget)
}

func TestValidateConfigRejectsInvalidPortWhenServerEnabled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  enabled: true\n  port: 0\n"), 0o600))

	cfg, err := config.LoadConfig(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, config.ErrInvalidPort)
}

func TestLoadConfigMalformedYAMLReturnsError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: [broken\n"), 0o600))

	cfg, err := config.LoadConfig(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfigExplicitPathNotFoundReturnsError(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestTimeDurationParsing(t *testing.T) {
	t.Parallel()

	content := `
server:
  read_timeout: "15s"
  write_timeout: "30s"
  idle_timeout: "2m"
archive:
  max_age: "48h"
`

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Server.IdleTimeout)
	assert.Equal(t, 48*time.Hour, cfg.Archive.MaxAge)
}
