package schema

import (
	"time"

	"gorm.io/datatypes"
)

// TopPredictionsVersion is the current version of the serialized top-N payload
const TopPredictionsVersion = 1

// TopPredictionEntry is one entry of the serialized top-N payload.
// Field names are part of the persisted format; do not rename.
type TopPredictionEntry struct {
	MinerHotKey        string    `json:"miner_hot_key"`
	PredictedSalePrice float64   `json:"predicted_sale_price"`
	PredictedSaleDate  time.Time `json:"predicted_sale_date"`
	PredictionDate     time.Time `json:"prediction_date"`
}

// TopPredictionsPayload is the versioned top-N payload stored on the stats
// snapshot. It replaces the loosely-typed JSON the legacy pipeline carried.
type TopPredictionsPayload struct {
	Version     int                  `json:"version"`
	Predictions []TopPredictionEntry `json:"predictions"`
}

// PredictionStats represents the prediction_stats table - one denormalized
// snapshot per property, fully rebuilt from the currently-active predictions
// on every aggregation run. No history is retained.
type PredictionStats struct {
	// PropertyID is both primary key and foreign key: one snapshot per property
	PropertyID int64 `gorm:"column:property_id;primaryKey"`
	// NumPredictions is the count of active predictions at ComputedAt
	NumPredictions int64 `gorm:"column:num_predictions;not null"`
	// Price aggregates over active predictions
	MinPredictedPrice float64 `gorm:"column:min_predicted_price;not null"`
	AvgPredictedPrice float64 `gorm:"column:avg_predicted_price;not null"`
	MaxPredictedPrice float64 `gorm:"column:max_predicted_price;not null"`
	// TopPredictions is the serialized TopPredictionsPayload
	TopPredictions datatypes.JSON `gorm:"column:top_predictions;type:jsonb"`
	// ComputedAt is when this snapshot was produced
	ComputedAt time.Time `gorm:"column:computed_at;not null;type:timestamptz"`

	// Associations
	Property Property `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the PredictionStats model
func (PredictionStats) TableName() string {
	return "prediction_stats"
}
