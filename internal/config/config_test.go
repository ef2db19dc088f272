package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("COORDINATOR_URL", "ws://coordinator:7070/gateway")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "quizgate", cfg.AppName)
	assert.Equal(t, "8090", cfg.AppPort)
	assert.Equal(t, "9090", cfg.MetricsPort)
	assert.Equal(t, "6379", cfg.RedisPort)
	assert.Equal(t, 5*time.Minute, cfg.ProfileCacheTTL)
	assert.NotEmpty(t, cfg.GatewayID, "gateway ID is generated when unset")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COORDINATOR_URL", "ws://coordinator:7070/gateway")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_PORT", "8181")
	t.Setenv("GATEWAY_ID", "gw-1")
	t.Setenv("PROFILE_CACHE_TTL", "90s")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8181", cfg.AppPort)
	assert.Equal(t, "gw-1", cfg.GatewayID)
	assert.Equal(t, 90*time.Second, cfg.ProfileCacheTTL)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("COORDINATOR_URL", "")
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadInvalidNumbers(t *testing.T) {
	t.Setenv("COORDINATOR_URL", "ws://coordinator:7070/gateway")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}
