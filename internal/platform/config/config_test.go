package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DevJWTSecret, cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.RateLimit.LoginMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.LoginWindow)
	assert.Equal(t, 100, cfg.RateLimit.APIMax)
	assert.Equal(t, 50, cfg.RateLimit.WhitelistCheckMax)
	assert.Equal(t, 5*time.Second, cfg.Database.TxTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("GATEKEEPER_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RATELIMIT_API_MAX", "7")
	t.Setenv("RATELIMIT_API_WINDOW", "30s")
	t.Setenv("AUDIT_ASYNC_BUFFER", "0")
	t.Setenv("DATABASE_TX_TIMEOUT", "2s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 7, cfg.RateLimit.APIMax)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.APIWindow)
	assert.Equal(t, 0, cfg.Audit.AsyncBuffer)
	assert.Equal(t, 2*time.Second, cfg.Database.TxTimeout)
}

func TestFromEnv_Errors(t *testing.T) {
	t.Run("malformed values are reported", func(t *testing.T) {
		t.Setenv("RATELIMIT_LOGIN_MAX", "five")
		t.Setenv("REDIS_DIAL_TIMEOUT", "soon")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RATELIMIT_LOGIN_MAX")
		assert.Contains(t, err.Error(), "REDIS_DIAL_TIMEOUT")
	})

	t.Run("production requires a real secret", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})
}
