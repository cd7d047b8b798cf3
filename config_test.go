package cinebridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cinebridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadServerConfig(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
log_level: debug
auth_secret: sekrit
limiter:
  max_requests: 20
  window: 30s
  cleanup_interval: 2m
retry:
  max_retries: 4
  initial_delay: 250ms
  max_delay: 5s
  backoff_multiplier: 1.5
  timeout: 15s
provider:
  type: openai
  model: gpt-4o-mini
  requests_per_minute: 30
cache:
  backend: memory
  ttl: 10m
`)

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sekrit", cfg.AuthSecret)

	limiter := cfg.LimiterConfig()
	assert.Equal(t, 20, limiter.MaxRequests)
	assert.Equal(t, 30*time.Second, limiter.Window)
	assert.Equal(t, 2*time.Minute, limiter.CleanupInterval)

	retry := cfg.RetryPolicy()
	assert.Equal(t, 4, retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, retry.InitialDelay)
	assert.Equal(t, 5*time.Second, retry.MaxDelay)
	assert.Equal(t, 1.5, retry.BackoffMultiplier)
	assert.Equal(t, 15*time.Second, retry.Timeout)

	assert.Equal(t, "openai", cfg.Provider.Type)
	assert.Equal(t, 30, cfg.Provider.RequestsPerMinute)

	cacheCfg := cfg.CacheConfig()
	assert.Equal(t, "memory", cacheCfg.Backend)
	assert.Equal(t, 10*time.Minute, cacheCfg.TTL)
}

func TestLoadServerConfigDefaults(t *testing.T) {
	cfg, err := LoadServerConfig(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "catalog", cfg.Provider.Type)
	assert.Empty(t, cfg.CacheConfig().Backend, "cache disabled by default")
}

func TestLoadServerConfigBadDuration(t *testing.T) {
	_, err := LoadServerConfig(writeConfig(t, "limiter:\n  window: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	_, err := LoadServerConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
