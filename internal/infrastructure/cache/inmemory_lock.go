package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type lease struct {
	token     string
	expiresAt time.Time
}

// InMemoryLock implements the same lease semantics as RedisLock inside one
// process. Suitable for single-instance deployments and testing.
type InMemoryLock struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewInMemoryLock creates a new in-memory lock
func NewInMemoryLock() *InMemoryLock {
	return &InMemoryLock{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// TryLock acquires key for ttl unless an unexpired lease exists
func (l *InMemoryLock) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if current, held := l.leases[key]; held && now.Before(current.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Unlock releases key if token still owns an unexpired lease
func (l *InMemoryLock) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, held := l.leases[key]
	if !held || current.token != token || !l.now().Before(current.expiresAt) {
		return ErrLockNotHeld
	}
	delete(l.leases, key)
	return nil
}

// Close releases all leases
func (l *InMemoryLock) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.leases = make(map[string]lease)
	return nil
}
