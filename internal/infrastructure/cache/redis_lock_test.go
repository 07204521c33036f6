package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alexclassroom/woocommerce/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRedisLock(t *testing.T) *RedisLock {
	t.Helper()
	addr := os.Getenv("WC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WC_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLockWithClient(client, "test:"+uuid.NewString()+":")
}

func TestRedisLock_TryLockAndUnlock(t *testing.T) {
	lock := newTestRedisLock(t)
	ctx := context.Background()

	token, ok, err := lock.TryLock(ctx, "sweep", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.TryLock(ctx, "sweep", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, lock.Unlock(ctx, "sweep", "wrong-token"), ErrLockNotHeld)
	require.NoError(t, lock.Unlock(ctx, "sweep", token))

	_, ok, err = lock.TryLock(ctx, "sweep", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockFactory_CreateLock(t *testing.T) {
	t.Run("empty host selects in-memory lock", func(t *testing.T) {
		f := NewLockFactory(config.RedisConfig{}, WithLogger(zaptest.NewLogger(t)))
		lock, err := f.CreateLock()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLock{}, lock)
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		f := NewLockFactory(config.RedisConfig{Host: "127.0.0.1", Port: 1}, WithLogger(zaptest.NewLogger(t)))
		lock, err := f.CreateLock()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLock{}, lock)
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		f := NewLockFactory(config.RedisConfig{Host: "127.0.0.1", Port: 1}, WithInMemoryFallback(false))
		lock, err := f.CreateLock()
		assert.Nil(t, lock)
		assert.ErrorContains(t, err, "Redis required for sweep lock")
	})
}
