package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the loader at a config path inside a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("TASKTIMER_CONFIG", path)
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, time.Second, cfg.TickInterval())
	assert.Equal(t, 30*time.Second, cfg.CacheMaxAgeDuration())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := isolate(t)
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  endpoint: https://tasks.example.com
  token: file-token
  timeout_ms: 2500
locale: es
tick_ms: 250
`), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://tasks.example.com", cfg.API.Endpoint)
	assert.Equal(t, "file-token", cfg.API.Token)
	assert.Equal(t, 2500, cfg.API.TimeoutMs)
	assert.Equal(t, 1, cfg.API.MaxRetries, "unset keys keep defaults")
	assert.Equal(t, "es", cfg.Locale)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, ":memory:", cfg.DB)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := isolate(t)
	require.NoError(t, os.WriteFile(path, []byte("api:\n  endpoint: https://file.example.com\n"), 0o600))

	t.Setenv("TASKTIMER_API_ENDPOINT", "https://env.example.com")
	t.Setenv("TASKTIMER_API_TOKEN", "env-token")
	t.Setenv("TASKTIMER_API_TIMEOUT_MS", "4000")
	t.Setenv("TASKTIMER_API_MAX_RETRIES", "0")
	t.Setenv("TASKTIMER_LOG_CALLS", "true")
	t.Setenv("TASKTIMER_DB", "/tmp/tasktimer.db")
	t.Setenv("TASKTIMER_LOCALE", "es-MX")
	t.Setenv("TASKTIMER_TICK_MS", "500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.API.Endpoint)
	assert.Equal(t, "env-token", cfg.API.Token)
	assert.Equal(t, 4000, cfg.API.TimeoutMs)
	assert.Equal(t, 0, cfg.API.MaxRetries)
	assert.True(t, cfg.API.LogCalls)
	assert.Equal(t, "/tmp/tasktimer.db", cfg.DB)
	assert.Equal(t, "es-MX", cfg.Locale)
	assert.Equal(t, 500, cfg.TickMs)
}

func TestLoad_InvalidEnvValuesIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("TASKTIMER_API_TIMEOUT_MS", "soon")
	t.Setenv("TASKTIMER_API_MAX_RETRIES", "-3")
	t.Setenv("TASKTIMER_LOG_CALLS", "maybe")
	t.Setenv("TASKTIMER_TICK_MS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10000, cfg.API.TimeoutMs)
	assert.Equal(t, 1, cfg.API.MaxRetries)
	assert.False(t, cfg.API.LogCalls)
	assert.Equal(t, 1000, cfg.TickMs)
}

func TestLoad_MalformedFileIsError(t *testing.T) {
	path := isolate(t)
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0o600))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestCacheMaxAgeDuration_NegativeDisablesExpiry(t *testing.T) {
	cfg := Default()
	cfg.CacheMaxAge = -1
	assert.Equal(t, time.Duration(0), cfg.CacheMaxAgeDuration())
}
