package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/nextplace/prediction-engine/internal/adapter"
	"github.com/nextplace/prediction-engine/internal/config"
	"github.com/nextplace/prediction-engine/internal/logger"
	"github.com/nextplace/prediction-engine/internal/store"
	"github.com/nextplace/prediction-engine/internal/sweeper"
)

// StatsAggregator runs the periodic aggregation loop and additionally
// exposes on-demand recomputation for a single property, which the API's
// refresh endpoint calls directly.
type StatsAggregator interface {
	sweeper.Sweeper

	// AggregateProperty recomputes one property's snapshot immediately
	AggregateProperty(ctx context.Context, propertyID int64) error
}

// statsAggregator periodically rebuilds the per-property stats snapshot from
// the currently-active predictions. Properties are independent, so each
// cycle fans out per-property work over a bounded pool.
type statsAggregator struct {
	config    *config.StatsAggregatorConfig
	store     store.Store
	clock     adapter.Clock
	json      adapter.JSON
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewStatsAggregator creates the stats aggregation sweeper
func NewStatsAggregator(cfg *config.StatsAggregatorConfig, st store.Store, clock adapter.Clock, jsonAdapter adapter.JSON) StatsAggregator {
	return &statsAggregator{
		config:    cfg,
		store:     st,
		clock:     clock,
		json:      jsonAdapter,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (a *statsAggregator) Name() string {
	return "stats-aggregator"
}

// Start begins the aggregation loop. Each cycle walks every property that
// has active predictions or a stale snapshot, then sleeps for the configured
// interval. A failed cycle is logged and retried on the next tick.
func (a *statsAggregator) Start(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		a.running.Store(false)
		close(a.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting stats aggregator",
		zap.Int("worker_pool_size", a.config.Worker.PoolSize),
		zap.Int("batch_size", a.config.BatchSize),
		zap.Duration("cycle_interval", a.config.CycleInterval),
		zap.Int("top_n", a.config.TopN),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Stats aggregator stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-a.stopChan:
			logger.InfoCtx(ctx, "Stats aggregator stop requested")
			return nil
		default:
			if err := a.runCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
			if !a.sleep(ctx, a.config.CycleInterval) {
				return nil
			}
		}
	}
}

// Stop gracefully stops the aggregator with timeout support
func (a *statsAggregator) Stop(ctx context.Context) error {
	if !a.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping stats aggregator")
	close(a.stopChan)

	select {
	case <-a.stoppedCh:
		logger.InfoCtx(ctx, "Stats aggregator stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Stats aggregator stop interrupted by context timeout")
		return ctx.Err()
	}
}

// aggregationCursorKey is the job bookkeeping key holding the last property
// id a cycle finished. A restart mid-cycle resumes from it instead of
// re-walking the whole table.
const aggregationCursorKey = "stats_aggregator:cursor"

// runCycle recomputes stats for every qualifying property once
func (a *statsAggregator) runCycle(ctx context.Context) error {
	startTime := a.clock.Now()
	logger.InfoCtx(ctx, "Starting aggregation cycle")

	var processed, failed atomic.Int64
	afterID := a.loadCursor(ctx)

	for {
		// Cooperative cancellation between batches
		if err := ctx.Err(); err != nil {
			return err
		}

		propertyIDs, err := a.store.ListPropertyIDsForAggregation(ctx, afterID, a.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to list properties for aggregation: %w", err)
		}
		if len(propertyIDs) == 0 {
			break
		}
		afterID = propertyIDs[len(propertyIDs)-1]

		pool := pond.NewPool(
			a.config.Worker.PoolSize,
			pond.WithQueueSize(a.config.Worker.QueueSize),
			pond.WithContext(ctx),
		)

		for _, propertyID := range propertyIDs {
			pool.Submit(func() {
				if err := a.AggregateProperty(ctx, propertyID); err != nil {
					failed.Add(1)
					logger.ErrorCtx(ctx, err, zap.Int64("property_id", propertyID))
					return
				}
				processed.Add(1)
			})
		}

		pool.StopAndWait()
		a.saveCursor(ctx, afterID)
	}

	// Drained: the next cycle starts over from the beginning
	a.saveCursor(ctx, 0)

	logger.InfoCtx(ctx, "Aggregation cycle completed",
		zap.Duration("duration", a.clock.Since(startTime)),
		zap.Int64("processed", processed.Load()),
		zap.Int64("failed", failed.Load()),
	)

	return nil
}

// loadCursor reads the persisted aggregation cursor. A missing, unreadable,
// or malformed value falls back to walking from the beginning.
func (a *statsAggregator) loadCursor(ctx context.Context) int64 {
	value, err := a.store.GetJobValue(ctx, aggregationCursorKey)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to load aggregation cursor, starting over", zap.Error(err))
		return 0
	}
	if value == "" {
		return 0
	}
	afterID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		logger.WarnCtx(ctx, "Malformed aggregation cursor, starting over",
			zap.String("value", value),
			zap.Error(err),
		)
		return 0
	}
	return afterID
}

// saveCursor persists the aggregation cursor. A write failure only costs
// resume granularity, so it is logged and not surfaced.
func (a *statsAggregator) saveCursor(ctx context.Context, afterID int64) {
	if err := a.store.SetJobValue(ctx, aggregationCursorKey, strconv.FormatInt(afterID, 10)); err != nil {
		logger.WarnCtx(ctx, "Failed to persist aggregation cursor",
			zap.Error(err),
			zap.Int64("after_id", afterID),
		)
	}
}

// AggregateProperty recomputes and persists one property's stats snapshot.
// A property with no active predictions has its snapshot deleted. The
// snapshot write is retried with backoff on transient failures.
func (a *statsAggregator) AggregateProperty(ctx context.Context, propertyID int64) error {
	rows, err := a.store.GetActivePredictionsWithIncentive(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("failed to load active predictions: %w", err)
	}

	stats, err := ComputeStats(propertyID, rows, a.config.TopN, a.clock.Now(), a.json)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	if stats == nil {
		if err := a.store.DeletePredictionStats(ctx, propertyID); err != nil {
			return fmt.Errorf("failed to delete empty stats snapshot: %w", err)
		}
		return nil
	}

	return a.upsertWithRetry(ctx, propertyID, func() error {
		return a.store.UpsertPredictionStats(ctx, stats)
	})
}

// upsertWithRetry retries a snapshot write with exponential backoff so a
// transient store failure does not fail the whole cycle.
func (a *statsAggregator) upsertWithRetry(ctx context.Context, propertyID int64, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		logger.WarnCtx(ctx, "Snapshot write failed, retrying",
			zap.Error(err),
			zap.Int64("property_id", propertyID),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notifyOnError); err != nil {
		return fmt.Errorf("failed to upsert stats after %d retries: %w", attemptCount, err)
	}
	return nil
}

// sleep sleeps for the given duration but can be interrupted by context
// cancellation or a stop request. Returns false when interrupted.
func (a *statsAggregator) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-a.clock.After(duration):
		return true
	case <-ctx.Done():
		return false
	case <-a.stopChan:
		return false
	}
}
