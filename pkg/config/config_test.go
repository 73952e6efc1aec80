package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults apply when only the database URL is set", func(t *testing.T) {
		t.Setenv("ATELIER_POSTGRES_URL", "postgres://localhost/atelier")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "9090", cfg.Server.HealthPort)
		assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 1024, cfg.Activity.BufferSize)
		assert.Equal(t, "info", cfg.Observability.LogLevel)
		assert.True(t, cfg.Observability.MetricsEnabled)
		assert.False(t, cfg.Observability.OTelEnabled)
		assert.False(t, cfg.Redis.RateLimitEnabled)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("ATELIER_POSTGRES_URL", "postgres://localhost/atelier")
		t.Setenv("ATELIER_PORT", "3000")
		t.Setenv("ATELIER_READ_TIMEOUT", "5s")
		t.Setenv("ATELIER_LOG_LEVEL", "debug")
		t.Setenv("ATELIER_RATELIMIT_ENABLED", "true")
		t.Setenv("ATELIER_REDIS_ADDR", "localhost:6379")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "3000", cfg.Server.Port)
		assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, "debug", cfg.Observability.LogLevel)
		assert.True(t, cfg.Redis.RateLimitEnabled)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	})

	t.Run("missing database URL fails validation", func(t *testing.T) {
		t.Setenv("ATELIER_POSTGRES_URL", "")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rate limiting without a redis address fails validation", func(t *testing.T) {
		t.Setenv("ATELIER_POSTGRES_URL", "postgres://localhost/atelier")
		t.Setenv("ATELIER_RATELIMIT_ENABLED", "true")
		t.Setenv("ATELIER_REDIS_ADDR", "")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("identical ports fail validation", func(t *testing.T) {
		t.Setenv("ATELIER_POSTGRES_URL", "postgres://localhost/atelier")
		t.Setenv("ATELIER_PORT", "8080")
		t.Setenv("ATELIER_HEALTH_PORT", "8080")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("malformed numeric values fall back to defaults", func(t *testing.T) {
		t.Setenv("ATELIER_POSTGRES_URL", "postgres://localhost/atelier")
		t.Setenv("ATELIER_POSTGRES_MAX_CONNS", "not-a-number")
		t.Setenv("ATELIER_IDLE_TIMEOUT", "soon")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	})
}
