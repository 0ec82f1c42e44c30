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

	assert.Equal(t, "helpdesk-core", cfg.App.Name)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, "migrations", cfg.Postgres.MigrationsDir)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, 2, cfg.Redis.MinIdleConns)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout())
	assert.Equal(t, 5*time.Minute, cfg.Cache.DashboardTTL())
	assert.Equal(t, time.Hour, cfg.Cache.StaticTTL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POSTGRES_MIGRATIONS_DIR", "/srv/helpdesk/migrations")
	t.Setenv("REDIS_POOL_SIZE", "32")
	t.Setenv("REDIS_DIAL_TIMEOUT_MS", "1500")
	t.Setenv("CACHE_BACKEND", "redis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/helpdesk/migrations", cfg.Postgres.MigrationsDir)
	assert.Equal(t, 32, cfg.Redis.PoolSize)
	assert.Equal(t, 1500*time.Millisecond, cfg.Redis.DialTimeout())
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
}

func TestLoadRejectsUnknownCacheBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")

	_, err := Load()
	assert.Error(t, err)
}
