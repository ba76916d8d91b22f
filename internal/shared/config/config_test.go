package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Search.MinQueryLength)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.DebounceDelay)
	assert.Equal(t, "host=localhost port=5432 user=rbi password=rbi dbname=rbi sslmode=disable", cfg.Database.DSN())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SEARCH_DEBOUNCE_DELAY", "350")
	t.Setenv("SEARCH_CACHE_TTL", "1m")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 350*time.Millisecond, cfg.Search.DebounceDelay)
	assert.Equal(t, time.Minute, cfg.Search.CacheTTL)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadRejectsBadLimits(t *testing.T) {
	t.Setenv("SEARCH_DEFAULT_LIMIT", "50")
	t.Setenv("SEARCH_MAX_LIMIT", "10")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvDurationFallsBack(t *testing.T) {
	t.Setenv("X_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvDuration("X_DURATION", time.Second))
}
