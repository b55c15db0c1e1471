// Package mocks holds hand-maintained test doubles shared across test
// packages. Each fake dispatches to an optional function field; unset
// fields return zero values so tests only stub what they exercise.
package mocks

import (
	"context"
	"time"

	"github.com/nextplace/prediction-engine/internal/store"
	"github.com/nextplace/prediction-engine/internal/store/schema"
)

// FakeStore implements store.Store via per-method function fields.
type FakeStore struct {
	PingFn                             func(ctx context.Context) error
	GetPropertyByNextplaceIDFn         func(ctx context.Context, nextplaceID string) (*schema.Property, error)
	SearchPropertiesFn                 func(ctx context.Context, filter store.PropertyQueryFilter) ([]schema.Property, uint64, error)
	GetMinerByHotKeyFn                 func(ctx context.Context, hotKey string) (*schema.Miner, error)
	GetOrCreateMinerByHotKeyFn         func(ctx context.Context, hotKey, coldKey string) (*schema.Miner, error)
	GetActiveValidatorByIPFn           func(ctx context.Context, ip string) (*schema.Validator, error)
	InsertPredictionSupersedingFn      func(ctx context.Context, input store.InsertPredictionInput) (int, error)
	InsertScoreSupersedingFn           func(ctx context.Context, input store.InsertScoreInput) (int, error)
	GetActivePredictionsByPropertyIDFn func(ctx context.Context, propertyID int64, limit int, offset uint64) ([]schema.Prediction, uint64, error)
	GetActiveScoresByMinerIDFn         func(ctx context.Context, minerID int64) ([]schema.Score, error)
	GetPredictionStatsFn               func(ctx context.Context, propertyID int64) (*schema.PredictionStats, error)
	ListPropertyIDsForAggregationFn    func(ctx context.Context, afterID int64, limit int) ([]int64, error)
	GetActivePredictionsWithIncentiveFn func(ctx context.Context, propertyID int64) ([]store.ActivePredictionRow, error)
	UpsertPredictionStatsFn            func(ctx context.Context, stats *schema.PredictionStats) error
	DeletePredictionStatsFn            func(ctx context.Context, propertyID int64) error
	DeletePropertiesListedBeforeFn     func(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
	DeactivateDuplicatePredictionsFn   func(ctx context.Context, now time.Time) (int64, error)
	DeactivateDuplicateScoresFn        func(ctx context.Context, now time.Time) (int64, error)
	GetJobValueFn                      func(ctx context.Context, key string) (string, error)
	SetJobValueFn                      func(ctx context.Context, key, value string) error
}

var _ store.Store = (*FakeStore)(nil)

func (f *FakeStore) Ping(ctx context.Context) error {
	if f.PingFn == nil {
		return nil
	}
	return f.PingFn(ctx)
}

func (f *FakeStore) GetPropertyByNextplaceID(ctx context.Context, nextplaceID string) (*schema.Property, error) {
	if f.GetPropertyByNextplaceIDFn == nil {
		return nil, nil
	}
	return f.GetPropertyByNextplaceIDFn(ctx, nextplaceID)
}

func (f *FakeStore) SearchProperties(ctx context.Context, filter store.PropertyQueryFilter) ([]schema.Property, uint64, error) {
	if f.SearchPropertiesFn == nil {
		return nil, 0, nil
	}
	return f.SearchPropertiesFn(ctx, filter)
}

func (f *FakeStore) GetMinerByHotKey(ctx context.Context, hotKey string) (*schema.Miner, error) {
	if f.GetMinerByHotKeyFn == nil {
		return nil, nil
	}
	return f.GetMinerByHotKeyFn(ctx, hotKey)
}

func (f *FakeStore) GetOrCreateMinerByHotKey(ctx context.Context, hotKey, coldKey string) (*schema.Miner, error) {
	if f.GetOrCreateMinerByHotKeyFn == nil {
		return nil, nil
	}
	return f.GetOrCreateMinerByHotKeyFn(ctx, hotKey, coldKey)
}

func (f *FakeStore) GetActiveValidatorByIP(ctx context.Context, ip string) (*schema.Validator, error) {
	if f.GetActiveValidatorByIPFn == nil {
		return nil, nil
	}
	return f.GetActiveValidatorByIPFn(ctx, ip)
}

func (f *FakeStore) InsertPredictionSuperseding(ctx context.Context, input store.InsertPredictionInput) (int, error) {
	if f.InsertPredictionSupersedingFn == nil {
		return 0, nil
	}
	return f.InsertPredictionSupersedingFn(ctx, input)
}

func (f *FakeStore) InsertScoreSuperseding(ctx context.Context, input store.InsertScoreInput) (int, error) {
	if f.InsertScoreSupersedingFn == nil {
		return 0, nil
	}
	return f.InsertScoreSupersedingFn(ctx, input)
}

func (f *FakeStore) GetActivePredictionsByPropertyID(ctx context.Context, propertyID int64, limit int, offset uint64) ([]schema.Prediction, uint64, error) {
	if f.GetActivePredictionsByPropertyIDFn == nil {
		return nil, 0, nil
	}
	return f.GetActivePredictionsByPropertyIDFn(ctx, propertyID, limit, offset)
}

func (f *FakeStore) GetActiveScoresByMinerID(ctx context.Context, minerID int64) ([]schema.Score, error) {
	if f.GetActiveScoresByMinerIDFn == nil {
		return nil, nil
	}
	return f.GetActiveScoresByMinerIDFn(ctx, minerID)
}

func (f *FakeStore) GetPredictionStats(ctx context.Context, propertyID int64) (*schema.PredictionStats, error) {
	if f.GetPredictionStatsFn == nil {
		return nil, nil
	}
	return f.GetPredictionStatsFn(ctx, propertyID)
}

func (f *FakeStore) ListPropertyIDsForAggregation(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	if f.ListPropertyIDsForAggregationFn == nil {
		return nil, nil
	}
	return f.ListPropertyIDsForAggregationFn(ctx, afterID, limit)
}

func (f *FakeStore) GetActivePredictionsWithIncentive(ctx context.Context, propertyID int64) ([]store.ActivePredictionRow, error) {
	if f.GetActivePredictionsWithIncentiveFn == nil {
		return nil, nil
	}
	return f.GetActivePredictionsWithIncentiveFn(ctx, propertyID)
}

func (f *FakeStore) UpsertPredictionStats(ctx context.Context, stats *schema.PredictionStats) error {
	if f.UpsertPredictionStatsFn == nil {
		return nil
	}
	return f.UpsertPredictionStatsFn(ctx, stats)
}

func (f *FakeStore) DeletePredictionStats(ctx context.Context, propertyID int64) error {
	if f.DeletePredictionStatsFn == nil {
		return nil
	}
	return f.DeletePredictionStatsFn(ctx, propertyID)
}

func (f *FakeStore) DeletePropertiesListedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if f.DeletePropertiesListedBeforeFn == nil {
		return 0, nil
	}
	return f.DeletePropertiesListedBeforeFn(ctx, cutoff, batchSize)
}

func (f *FakeStore) DeactivateDuplicatePredictions(ctx context.Context, now time.Time) (int64, error) {
	if f.DeactivateDuplicatePredictionsFn == nil {
		return 0, nil
	}
	return f.DeactivateDuplicatePredictionsFn(ctx, now)
}

func (f *FakeStore) DeactivateDuplicateScores(ctx context.Context, now time.Time) (int64, error) {
	if f.DeactivateDuplicateScoresFn == nil {
		return 0, nil
	}
	return f.DeactivateDuplicateScoresFn(ctx, now)
}

func (f *FakeStore) GetJobValue(ctx context.Context, key string) (string, error) {
	if f.GetJobValueFn == nil {
		return "", nil
	}
	return f.GetJobValueFn(ctx, key)
}

func (f *FakeStore) SetJobValue(ctx context.Context, key, value string) error {
	if f.SetJobValueFn == nil {
		return nil
	}
	return f.SetJobValueFn(ctx, key, value)
}
