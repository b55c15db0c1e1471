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

// dedupSweeper restores the single-active-per-key invariant that the
// permissive write path can violate when submission timestamps arrive
// out of order. For each key it keeps the row with the greatest
// (business timestamp, id) and deactivates the rest.
type dedupSweeper struct {
	config    *config.DedupConfig
	store     store.Store
	clock     adapter.Clock
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewDedupSweeper creates a dedup sweeper
func NewDedupSweeper(cfg *config.DedupConfig, st store.Store, clock adapter.Clock) Sweeper {
	return &dedupSweeper{
		config:    cfg,
		store:     st,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *dedupSweeper) Name() string {
	return "dedup-sweeper"
}

// Start begins the dedup loop. A failed tick is logged and retried only on
// the next scheduled tick.
func (s *dedupSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting dedup sweeper",
		zap.Duration("interval", s.config.Interval),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Dedup sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Dedup sweeper stop requested")
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
func (s *dedupSweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	logger.InfoCtx(ctx, "Stopping dedup sweeper")
	close(s.stopChan)

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Dedup sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Dedup sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runCycle deactivates duplicate predictions then duplicate scores.
// The two statements run independently; a prediction failure does not
// skip the score sweep.
func (s *dedupSweeper) runCycle(ctx context.Context) error {
	startTime := s.clock.Now()

	predictions, predErr := s.store.DeactivateDuplicatePredictions(ctx, startTime)
	if predErr != nil {
		predErr = fmt.Errorf("failed to deduplicate predictions: %w", predErr)
	}

	scores, scoreErr := s.store.DeactivateDuplicateScores(ctx, s.clock.Now())
	if scoreErr != nil {
		scoreErr = fmt.Errorf("failed to deduplicate scores: %w", scoreErr)
	}

	logger.InfoCtx(ctx, "Dedup cycle completed",
		zap.Int64("predictions_deactivated", predictions),
		zap.Int64("scores_deactivated", scores),
		zap.Duration("duration", s.clock.Since(startTime)),
	)

	return errors.Join(predErr, scoreErr)
}

// sleep sleeps for the given duration but can be interrupted by context
// cancellation or a stop request. Returns false when interrupted.
func (s *dedupSweeper) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-s.clock.After(duration):
		return true
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	}
}
