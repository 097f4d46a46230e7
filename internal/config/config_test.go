package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresCredentials(t *testing.T) {
	t.Setenv("DB_USER", "")
	t.Setenv("DB_PASS", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_USER and DB_PASS")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_USER", "kuttalk")
	t.Setenv("DB_PASS", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.WSPort)
	assert.Equal(t, 8091, cfg.AdminPort)
	assert.Equal(t, "kuttalk_db", cfg.DBName)
	assert.Equal(t, 3*time.Second, cfg.PingInterval)
	assert.Equal(t, 3*time.Second, cfg.PongTimeout)
	assert.False(t, cfg.CacheEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_USER", "kuttalk")
	t.Setenv("DB_PASS", "secret")
	t.Setenv("WS_PORT", "9000")
	t.Setenv("PING_INTERVAL", "5s")
	t.Setenv("CACHE_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.WSPort)
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
	assert.True(t, cfg.CacheEnabled)
}
