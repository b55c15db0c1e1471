package sweeper_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextplace/prediction-engine/internal/config"
	"github.com/nextplace/prediction-engine/internal/logger"
	"github.com/nextplace/prediction-engine/internal/mocks"
	"github.com/nextplace/prediction-engine/internal/sweeper"
)

func initTestLogger(t *testing.T) {
	err := logger.Initialize(logger.Config{Debug: true})
	require.NoError(t, err)
}

func TestRetentionSweeper(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("deletes expired properties in batches until drained", func(t *testing.T) {
		initTestLogger(t)
		st := &mocks.FakeStore{}
		clock := mocks.NewFakeClock(now)
		cfg := &config.RetentionConfig{
			MaxPropertyAge: 90 * 24 * time.Hour,
			BatchSize:      100,
			Interval:       time.Hour,
		}

		var batches atomic.Int32
		var cutoffSeen atomic.Value
		st.DeletePropertiesListedBeforeFn = func(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
			cutoffSeen.Store(cutoff)
			assert.Equal(t, 100, batchSize)
			// First batch full, second partial: the cycle must stop after
			// the partial batch
			if batches.Add(1) == 1 {
				return 100, nil
			}
			return 17, nil
		}

		s := sweeper.NewRetentionSweeper(cfg, st, clock)
		assert.Equal(t, "retention-sweeper", s.Name())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Start(ctx) }()

		require.Eventually(t, func() bool {
			return batches.Load() >= 2
		}, 5*time.Second, 10*time.Millisecond)
		cancel()

		require.NoError(t, <-done)
		assert.Equal(t, now.Add(-90*24*time.Hour), cutoffSeen.Load().(time.Time))
	})

	t.Run("failed tick does not stop the loop", func(t *testing.T) {
		initTestLogger(t)
		st := &mocks.FakeStore{}
		clock := mocks.NewFakeClock(now)
		cfg := &config.RetentionConfig{
			MaxPropertyAge: 24 * time.Hour,
			BatchSize:      10,
			Interval:       time.Millisecond,
		}

		var calls atomic.Int32
		st.DeletePropertiesListedBeforeFn = func(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
			if calls.Add(1) == 1 {
				return 0, errors.New("deadlock detected")
			}
			return 0, nil
		}

		s := sweeper.NewRetentionSweeper(cfg, st, clock)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- s.Start(ctx) }()

		// A second tick after the failed one proves the error stayed local
		require.Eventually(t, func() bool {
			return calls.Load() >= 2
		}, 5*time.Second, 10*time.Millisecond)

		stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
		defer stopCancel()
		require.NoError(t, s.Stop(stopCtx))
		require.NoError(t, <-done)
	})

	t.Run("start twice fails", func(t *testing.T) {
		initTestLogger(t)
		st := &mocks.FakeStore{}
		firstCycle := make(chan struct{})
		var once sync.Once
		st.DeletePropertiesListedBeforeFn = func(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
			once.Do(func() { close(firstCycle) })
			return 0, nil
		}
		cfg := &config.RetentionConfig{MaxPropertyAge: time.Hour, BatchSize: 10, Interval: time.Hour}
		s := sweeper.NewRetentionSweeper(cfg, st, mocks.NewFakeClock(now))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- s.Start(ctx) }()

		// Wait until the first Start is inside its loop, then the second
		// Start must be rejected
		select {
		case <-firstCycle:
		case <-time.After(5 * time.Second):
			t.Fatal("sweeper never ran its first cycle")
		}
		require.Error(t, s.Start(context.Background()))

		cancel()
		require.NoError(t, <-done)
	})
}

func TestDedupSweeper(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("deactivates duplicate predictions and scores each tick", func(t *testing.T) {
		initTestLogger(t)
		st := &mocks.FakeStore{}
		cfg := &config.DedupConfig{Interval: time.Hour}

		var predCalls, scoreCalls atomic.Int32
		st.DeactivateDuplicatePredictionsFn = func(ctx context.Context, ts time.Time) (int64, error) {
			predCalls.Add(1)
			return 3, nil
		}
		st.DeactivateDuplicateScoresFn = func(ctx context.Context, ts time.Time) (int64, error) {
			scoreCalls.Add(1)
			return 1, nil
		}

		s := sweeper.NewDedupSweeper(cfg, st, mocks.NewFakeClock(now))
		assert.Equal(t, "dedup-sweeper", s.Name())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Start(ctx) }()

		require.Eventually(t, func() bool {
			return predCalls.Load() >= 1 && scoreCalls.Load() >= 1
		}, 5*time.Second, 10*time.Millisecond)
		cancel()
		require.NoError(t, <-done)
	})

	t.Run("prediction failure does not skip the score sweep", func(t *testing.T) {
		initTestLogger(t)
		st := &mocks.FakeStore{}
		cfg := &config.DedupConfig{Interval: time.Hour}

		var scoreCalls atomic.Int32
		st.DeactivateDuplicatePredictionsFn = func(ctx context.Context, ts time.Time) (int64, error) {
			return 0, errors.New("lock timeout")
		}
		st.DeactivateDuplicateScoresFn = func(ctx context.Context, ts time.Time) (int64, error) {
			scoreCalls.Add(1)
			return 0, nil
		}

		s := sweeper.NewDedupSweeper(cfg, st, mocks.NewFakeClock(now))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Start(ctx) }()

		require.Eventually(t, func() bool {
			return scoreCalls.Load() >= 1
		}, 5*time.Second, 10*time.Millisecond)
		cancel()
		require.NoError(t, <-done)
	})
}
