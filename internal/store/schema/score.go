package schema

import (
	"time"
)

// Score represents the miner_scores table - a validator's assessment of a
// miner's accuracy over a time window. Supersession is keyed on
// (miner_id, validator_id-or-null) and compares GenerationDate.
type Score struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// MinerID references the scored miner
	MinerID int64 `gorm:"column:miner_id;not null;index:idx_scores_miner_validator,priority:1"`
	// ValidatorID references the scoring validator; nil for scores produced by
	// the platform's own scoring job
	ValidatorID *int64 `gorm:"column:validator_id;index:idx_scores_miner_validator,priority:2"`
	// Score is the accuracy score for the window
	Score float64 `gorm:"column:score;not null"`
	// NumPredictions is the number of scored predictions in the window
	NumPredictions int `gorm:"column:num_predictions;not null;default:0"`
	// TotalPredictions is the miner's lifetime prediction count at scoring time
	TotalPredictions int `gorm:"column:total_predictions;not null;default:0"`
	// GenerationDate is the caller-supplied time the score was generated
	GenerationDate time.Time `gorm:"column:generation_date;not null;type:timestamptz"`
	// Active marks the currently valid row for the (miner, validator) key
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Miner     Miner      `gorm:"foreignKey:MinerID;constraint:OnDelete:CASCADE"`
	Validator *Validator `gorm:"foreignKey:ValidatorID"`
}

// TableName specifies the table name for the Score model
func (Score) TableName() string {
	return "miner_scores"
}
