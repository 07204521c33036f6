package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const sweepLockKey = "rendered-templates:sweep"

// Sweeper deletes expired rendered files in batches
type Sweeper interface {
	SweepExpired(ctx context.Context, asOf time.Time, limit int) (int64, error)
}

// SweepLock is a lease lock shared by all instances
type SweepLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// SweepSchedulerConfig holds configuration for the sweep scheduler
type SweepSchedulerConfig struct {
	Interval   time.Duration
	BatchLimit int
	MaxBatches int
	LockTTL    time.Duration
}

// DefaultSweepSchedulerConfig returns default sweep configuration
func DefaultSweepSchedulerConfig() SweepSchedulerConfig {
	return SweepSchedulerConfig{
		Interval:   time.Hour,
		BatchLimit: 1000,
		MaxBatches: 10,
		LockTTL:    10 * time.Minute,
	}
}

// Validate checks the configuration
func (c SweepSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.BatchLimit <= 0 {
		return fmt.Errorf("%w: batch limit must be positive", ErrInvalidConfig)
	}
	if c.MaxBatches <= 0 {
		return fmt.Errorf("%w: max batches must be positive", ErrInvalidConfig)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("%w: lock ttl must be positive", ErrInvalidConfig)
	}
	return nil
}

// SweepScheduler periodically removes expired rendered files
type SweepScheduler struct {
	config  SweepSchedulerConfig
	sweeper Sweeper
	lock    SweepLock
	logger  *zap.Logger
	now     func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweepScheduler creates a new sweep scheduler
func NewSweepScheduler(config SweepSchedulerConfig, sweeper Sweeper, lock SweepLock, logger *zap.Logger) (*SweepScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepScheduler{
		config:  config,
		sweeper: sweeper,
		lock:    lock,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Start starts the sweep loop
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Sweep scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_limit", s.config.BatchLimit),
		zap.Int("max_batches", s.config.MaxBatches),
	)

	return nil
}

// Stop stops the sweep loop, waiting for an in-flight sweep until ctx is done
func (s *SweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (s *SweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *SweepScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrSweepInProgress) && ctx.Err() == nil {
				s.logger.Error("Expired rendered file sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce takes the sweep lock and drains up to MaxBatches batches of
// expired records. It returns the number of records deleted.
func (s *SweepScheduler) RunOnce(ctx context.Context) (int64, error) {
	token, acquired, err := s.lock.TryLock(ctx, sweepLockKey, s.config.LockTTL)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !acquired {
		s.logger.Debug("Sweep lock held by another instance, skipping")
		return 0, ErrSweepInProgress
	}
	defer func() {
		// release on a fresh context so a cancelled tick still frees the lease
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.lock.Unlock(unlockCtx, sweepLockKey, token); err != nil {
			s.logger.Warn("Failed to release sweep lock", zap.Error(err))
		}
	}()

	asOf := s.now()
	var total int64
	for batch := 0; batch < s.config.MaxBatches; batch++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := s.sweeper.SweepExpired(ctx, asOf, s.config.BatchLimit)
		total += deleted
		if err != nil {
			return total, err
		}
		if deleted < int64(s.config.BatchLimit) {
			break
		}
	}

	if total > 0 {
		s.logger.Info("Expired rendered files swept",
			zap.Int64("deleted", total),
			zap.Time("as_of", asOf),
		)
	}
	return total, nil
}
