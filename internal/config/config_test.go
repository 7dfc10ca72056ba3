package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.Equal(t, ":8081", cfg.HTTP.Addr())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Zero(t, cfg.RateLimit.StockPerMin)
	assert.Empty(t, cfg.Seed.DatabaseURL)
	assert.Equal(t, 5*time.Second, cfg.Seed.Timeout)

	assert.Equal(t, 10, cfg.Workload.Workers)
	assert.Equal(t, 100, cfg.Workload.WarmupRuns)
	assert.Equal(t, 500, cfg.Workload.ActualRuns)
	assert.Equal(t, 1000, cfg.Workload.InitialBooks)
	assert.Equal(t, 2, cfg.Workload.RarePercent)
	assert.Equal(t, 8, cfg.Workload.FrequentPercent)
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BOOKSTORE_HTTP_PORT", "9090")
	t.Setenv("BOOKSTORE_LOG_LEVEL", "debug")
	t.Setenv("BOOKSTORE_SEED_TIMEOUT", "250ms")
	t.Setenv("BOOKSTORE_WORKLOAD_WORKERS", "3")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Seed.Timeout)
	assert.Equal(t, 3, cfg.Workload.Workers)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: 7000
metrics:
  enabled: true
  token: abc
ratelimit:
  stock_per_min: 60
`), 0o600))
	t.Setenv("BOOKSTORE_CONFIG", path)
	t.Setenv("BOOKSTORE_HTTP_PORT", "7001")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.HTTP.Port, "env wins over file")
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "abc", cfg.Metrics.Token)
	assert.Equal(t, 60, cfg.RateLimit.StockPerMin)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	cases := map[string]map[string]string{
		"port":          {"BOOKSTORE_HTTP_PORT": "0"},
		"metrics token": {"BOOKSTORE_METRICS_ENABLED": "true"},
		"rate limit":    {"BOOKSTORE_RATELIMIT_STOCK_PER_MIN": "-1"},
		"workers":       {"BOOKSTORE_WORKLOAD_WORKERS": "0"},
		"mix":           {"BOOKSTORE_WORKLOAD_RARE_PERCENT": "60", "BOOKSTORE_WORKLOAD_FREQUENT_PERCENT": "50"},
		"buy count":     {"BOOKSTORE_WORKLOAD_NUM_BOOKS_TO_BUY": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(New())
			assert.Error(t, err)
		})
	}
}
