package schema

import (
	"time"
)

// Miner represents the miners table - prediction submitters identified by a
// hot-key/cold-key pair. Unknown hot keys seen during ingestion create
// inactive placeholder rows so their predictions are not lost.
type Miner struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// HotKey uniquely identifies the miner on the network
	HotKey string `gorm:"column:hot_key;not null;uniqueIndex;type:text"`
	// ColdKey is the miner's cold key
	ColdKey string `gorm:"column:cold_key;type:text"`
	// Incentive is the miner's current network incentive. It is an external,
	// time-varying ranking signal; top-10 selection reads it at aggregation
	// time, not at prediction time.
	Incentive float64 `gorm:"column:incentive;not null;default:0"`
	// Active indicates whether the miner currently holds incentive on the network
	Active    bool      `gorm:"column:active;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Predictions []Prediction `gorm:"foreignKey:MinerID;constraint:OnDelete:CASCADE"`
	Scores      []Score      `gorm:"foreignKey:MinerID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Miner model
func (Miner) TableName() string {
	return "miners"
}
