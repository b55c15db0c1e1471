package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nextplace/prediction-engine/internal/adapter"
	"github.com/nextplace/prediction-engine/internal/config"
	"github.com/nextplace/prediction-engine/internal/logger"
	"github.com/nextplace/prediction-engine/internal/store"
)

// retentionSweeper deletes properties whose listing date is older than the
// configured age. Predictions and the stats snapshot cascade at the
// database level.
type retentionSweeper struct {
	config    *config.RetentionConfig
	store     store.Store
	clock     adapter.Clock
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewRetentionSweeper creates a retention sweeper
func NewRetentionSweeper(cfg *config.RetentionConfig, st store.Store, clock adapter.Clock) Sweeper {
	return &retentionSweeper{
		config:    cfg,
		store:     st,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *retentionSweeper) Name() string {
	return "retention-sweeper"
}

// Start begins the retention loop. One tick deletes expired properties in
// batches until none remain; a failed tick is logged and retried only on the
// next scheduled tick.
func (s *retentionSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting retention sweeper",
		zap.Duration("max_property_age", s.config.MaxPropertyAge),
		zap.Int("batch_size", s.config.BatchSize),
		zap.Duration("interval", s.config.Interval),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Retention sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Retention sweeper stop requested")
			return nil
		default:
			if err := s.runCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
			if !s.sleep(ctx, s.config.Interval) {
				return nil
			}
		}
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *retentionSweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping retention sweeper")
	close(s.stopChan)

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Retention sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Retention sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runCycle deletes one tick's worth of expired properties
func (s *retentionSweeper) runCycle(ctx context.Context) error {
	startTime := s.clock.Now()
	cutoff := startTime.Add(-s.config.MaxPropertyAge)

	var totalDeleted int64
	for {
		// Cooperative cancellation between batches, never mid-batch
		if err := ctx.Err(); err != nil {
			return err
		}

		deleted, err := s.store.DeletePropertiesListedBefore(ctx, cutoff, s.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to delete expired properties: %w", err)
		}
		totalDeleted += deleted
		if deleted < int64(s.config.BatchSize) {
			break
		}
	}

	logger.InfoCtx(ctx, "Retention cycle completed",
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", totalDeleted),
		zap.Duration("duration", s.clock.Since(startTime)),
	)

	return nil
}

// sleep sleeps for the given duration but can be interrupted by context
// cancellation or a stop request. Returns false when interrupted.
func (s *retentionSweeper) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-s.clock.After(duration):
		return true
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	}
}
