package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexclassroom/woocommerce/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockKeyPrefix = "woocommerce:lock:"

// ErrLockNotHeld is returned by Unlock when the lock expired or belongs to another owner
var ErrLockNotHeld = errors.New("lock not held")

// unlockScript deletes the key only when it still carries the caller's token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock implements a lease lock with SET NX PX.
// Suitable for deployments where several instances share the registry.
type RedisLock struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisLock connects to Redis and verifies the connection
func NewRedisLock(cfg config.RedisConfig) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLockWithClient(client, ""), nil
}

// NewRedisLockWithClient creates a lock on an existing client
func NewRedisLockWithClient(client redis.UniversalClient, keyPrefix string) *RedisLock {
	if keyPrefix == "" {
		keyPrefix = defaultLockKeyPrefix
	}
	return &RedisLock{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// TryLock acquires key for ttl. It returns the owner token and true on
// success, or false when another owner holds the lease.
func (l *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock releases key if token still owns it
func (l *RedisLock) Unlock(ctx context.Context, key, token string) error {
	n, err := unlockScript.Run(ctx, l.client, []string{l.keyPrefix + key}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Close closes the Redis client
func (l *RedisLock) Close() error {
	return l.client.Close()
}
