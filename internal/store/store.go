package store

import (
	"context"
	"time"

	"github.com/nextplace/prediction-engine/internal/store/schema"
)

// InsertPredictionInput carries one prediction through the superseding insert.
// Now is the system time stamped on both the deactivated rows and the new row;
// PredictionDate is caller-supplied business time and only drives ordering.
type InsertPredictionInput struct {
	PropertyID         int64
	MinerID            int64
	ValidatorID        *int64
	PredictedSalePrice float64
	PredictedSaleDate  time.Time
	PredictionDate     time.Time
	Now                time.Time
}

// InsertScoreInput carries one score through the superseding insert
type InsertScoreInput struct {
	MinerID          int64
	ValidatorID      *int64
	Score            float64
	NumPredictions   int
	TotalPredictions int
	GenerationDate   time.Time
	Now              time.Time
}

// PropertyQueryFilter filters the property search endpoint
type PropertyQueryFilter struct {
	Market   string
	City     string
	MinPrice *float64
	MaxPrice *float64
	// Sold filters on whether a sale outcome is recorded
	Sold   *bool
	Limit  int
	Offset uint64
}

// ActivePredictionRow is an active prediction joined with the miner's current
// identity and incentive, as the aggregator consumes it
type ActivePredictionRow struct {
	schema.Prediction
	MinerHotKey    string  `gorm:"column:miner_hot_key"`
	MinerIncentive float64 `gorm:"column:miner_incentive"`
}

// Store defines the interface for database operations
type Store interface {
	// Ping verifies database connectivity
	Ping(ctx context.Context) error

	// GetPropertyByNextplaceID retrieves a property by its external identifier; (nil, nil) when absent
	GetPropertyByNextplaceID(ctx context.Context, nextplaceID string) (*schema.Property, error)
	// SearchProperties retrieves properties matching the filter plus the total count
	SearchProperties(ctx context.Context, filter PropertyQueryFilter) ([]schema.Property, uint64, error)

	// GetMinerByHotKey retrieves a miner by hot key; (nil, nil) when absent
	GetMinerByHotKey(ctx context.Context, hotKey string) (*schema.Miner, error)
	// GetOrCreateMinerByHotKey resolves a miner, creating an inactive
	// zero-incentive placeholder row on first sight
	GetOrCreateMinerByHotKey(ctx context.Context, hotKey, coldKey string) (*schema.Miner, error)
	// GetActiveValidatorByIP resolves the ingestion caller; (nil, nil) when no
	// active validator carries that address
	GetActiveValidatorByIP(ctx context.Context, ip string) (*schema.Validator, error)

	// InsertPredictionSuperseding atomically deactivates all active predictions
	// for (miner, property) with an earlier PredictionDate and inserts the new
	// row as active. Returns the number of superseded rows.
	InsertPredictionSuperseding(ctx context.Context, input InsertPredictionInput) (int, error)
	// InsertScoreSuperseding is the score analogue, keyed on (miner, validator-or-null)
	// and ordered by GenerationDate
	InsertScoreSuperseding(ctx context.Context, input InsertScoreInput) (int, error)

	// GetActivePredictionsByPropertyID retrieves active predictions for a property
	GetActivePredictionsByPropertyID(ctx context.Context, propertyID int64, limit int, offset uint64) ([]schema.Prediction, uint64, error)
	// GetActiveScoresByMinerID retrieves active scores for a miner
	GetActiveScoresByMinerID(ctx context.Context, minerID int64) ([]schema.Score, error)
	// GetPredictionStats retrieves the stats snapshot for a property; (nil, nil) when absent
	GetPredictionStats(ctx context.Context, propertyID int64) (*schema.PredictionStats, error)

	// ListPropertyIDsForAggregation pages through property IDs that either have
	// active predictions or a (possibly stale) stats snapshot
	ListPropertyIDsForAggregation(ctx context.Context, afterID int64, limit int) ([]int64, error)
	// GetActivePredictionsWithIncentive loads a property's active predictions
	// joined with each miner's current incentive
	GetActivePredictionsWithIncentive(ctx context.Context, propertyID int64) ([]ActivePredictionRow, error)
	// UpsertPredictionStats replaces the property's snapshot wholesale
	UpsertPredictionStats(ctx context.Context, stats *schema.PredictionStats) error
	// DeletePredictionStats removes the property's snapshot
	DeletePredictionStats(ctx context.Context, propertyID int64) error

	// DeletePropertiesListedBefore deletes up to batchSize properties older
	// than the cutoff; predictions and stats cascade. Returns rows deleted.
	DeletePropertiesListedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
	// DeactivateDuplicatePredictions restores the single-active-per-key
	// invariant, keeping the row with the greatest (prediction_date, id) per
	// (miner, property). Returns rows deactivated.
	DeactivateDuplicatePredictions(ctx context.Context, now time.Time) (int64, error)
	// DeactivateDuplicateScores is the score analogue, keyed on (miner, validator-or-null)
	DeactivateDuplicateScores(ctx context.Context, now time.Time) (int64, error)

	// GetJobValue retrieves a job bookkeeping value; empty string when absent
	GetJobValue(ctx context.Context, key string) (string, error)
	// SetJobValue stores a job bookkeeping value
	SetJobValue(ctx context.Context, key, value string) error
}
