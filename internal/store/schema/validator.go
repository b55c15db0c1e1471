package schema

import (
	"time"
)

// Validator represents the validators table. The set of active validator IP
// addresses is the ingestion allow-list: a batch is only accepted when the
// caller IP resolves to exactly one active validator.
type Validator struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// HotKey uniquely identifies the validator on the network
	HotKey string `gorm:"column:hot_key;not null;uniqueIndex;type:text"`
	// ColdKey is the validator's cold key
	ColdKey string `gorm:"column:cold_key;type:text"`
	// IPAddress is the network address batches are authorized against
	IPAddress string `gorm:"column:ip_address;not null;type:text;index"`
	// Active indicates whether this validator may submit batches
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Validator model
func (Validator) TableName() string {
	return "validators"
}
