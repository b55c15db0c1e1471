package schema

import (
	"time"
)

// Prediction represents the predictions table - one row per miner submission
// for a property. After a submission completes, at most one row per
// (miner_id, property_id) is active; prior rows are flipped inactive by the
// supersession path and retained for audit.
type Prediction struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// PropertyID references the subject property
	PropertyID int64 `gorm:"column:property_id;not null;index:idx_predictions_property_miner,priority:1;index:idx_predictions_property_active"`
	// MinerID references the submitting miner
	MinerID int64 `gorm:"column:miner_id;not null;index:idx_predictions_property_miner,priority:2"`
	// ValidatorID is the validator of record that relayed the submission (optional)
	ValidatorID *int64 `gorm:"column:validator_id"`
	// PredictedSalePrice is the miner's predicted sale price
	PredictedSalePrice float64 `gorm:"column:predicted_sale_price;not null"`
	// PredictedSaleDate is the miner's predicted sale date
	PredictedSaleDate time.Time `gorm:"column:predicted_sale_date;not null;type:timestamptz"`
	// PredictionDate is the caller-supplied business time of the submission.
	// Supersession compares this field, never the system timestamps.
	PredictionDate time.Time `gorm:"column:prediction_date;not null;type:timestamptz"`
	// Active marks the currently valid row for the (miner, property) key.
	// Flips to false only via supersession or retention cleanup.
	Active bool `gorm:"column:active;not null;default:true;index:idx_predictions_property_active"`
	// CreatedAt/UpdatedAt are system time, set at insert/supersession
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Property  Property   `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
	Miner     Miner      `gorm:"foreignKey:MinerID;constraint:OnDelete:CASCADE"`
	Validator *Validator `gorm:"foreignKey:ValidatorID"`
}

// TableName specifies the table name for the Prediction model
func (Prediction) TableName() string {
	return "predictions"
}
