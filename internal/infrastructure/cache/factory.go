package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/alexclassroom/woocommerce/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Lock is a named lease lock
type Lock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Unlock(ctx context.Context, key, token string) error
	Close() error
}

// LockFactory creates locks based on configuration
type LockFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// LockFactoryOption is a functional option for configuring the factory
type LockFactoryOption func(*LockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LockFactoryOption {
	return func(f *LockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory lock when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) LockFactoryOption {
	return func(f *LockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLockFactory creates a new factory
func NewLockFactory(cfg config.RedisConfig, opts ...LockFactoryOption) *LockFactory {
	f := &LockFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateLock returns a Redis lock when Redis is configured and reachable.
// An empty redis host selects the in-memory lock directly.
func (f *LockFactory) CreateLock() (Lock, error) {
	if f.redisConfig.Host == "" {
		f.logger.Info("Redis not configured, using in-memory sweep lock")
		return NewInMemoryLock(), nil
	}

	lock, err := NewRedisLock(f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis sweep lock", zap.String("addr", f.redisConfig.Addr()))
		return lock, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for sweep lock but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory sweep lock. "+
		"Several instances may sweep concurrently.",
		zap.Error(err),
	)
	return NewInMemoryLock(), nil
}

var (
	_ Lock = (*RedisLock)(nil)
	_ Lock = (*InMemoryLock)(nil)
)
