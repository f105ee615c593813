package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/config"
)

func TestRedisDisabledWithoutAddress(t *testing.T) {
	r := NewRedis(config.RedisConfig{}, zap.NewNop())
	assert.Nil(t, r)
	assert.False(t, r.Enabled())
	assert.Error(t, r.Ping(context.Background()))

	ok, err := r.AcquireLock(context.Background(), "any", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	r.Close()
}

func TestRedisAcquireLock(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	r := NewRedis(config.RedisConfig{Addr: addr}, zap.NewNop())
	t.Cleanup(r.Close)
	ctx := context.Background()
	require.NoError(t, r.Ping(ctx))

	key := "test:lock:" + uuid.NewString()
	ok, err := r.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresDisabledWithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, pg.Enabled())
	assert.Nil(t, pg.PoolHandle())
	assert.Error(t, pg.Ping(context.Background()))
	assert.NoError(t, RunMigrations(context.Background(), pg.PoolHandle(), zap.NewNop()))
}
