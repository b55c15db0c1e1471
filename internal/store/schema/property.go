package schema

import (
	"time"
)

// Property represents the properties table - listings synced from the upstream
// market feed. The aggregation core reads these; only the retention sweeper
// deletes them.
type Property struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// NextplaceID is the immutable externally-visible property identifier
	NextplaceID string `gorm:"column:nextplace_id;not null;uniqueIndex;type:text"`
	// Market is the market the listing belongs to (e.g. "Austin", "Denver")
	Market string `gorm:"column:market;not null;type:text;index"`
	// Address fields
	Address string `gorm:"column:address;type:text"`
	City    string `gorm:"column:city;type:text"`
	State   string `gorm:"column:state;type:text"`
	ZipCode string `gorm:"column:zip_code;type:text"`
	// Latitude/Longitude of the listing
	Latitude  *float64 `gorm:"column:latitude"`
	Longitude *float64 `gorm:"column:longitude"`
	// ListingPrice is the asking price at listing time
	ListingPrice float64 `gorm:"column:listing_price;not null"`
	// ListingDate is when the property was listed; retention age is measured from it
	ListingDate time.Time `gorm:"column:listing_date;not null;index;type:timestamptz"`
	// Sale outcome, set by the sync pipeline once the property sells
	SaleDate  *time.Time `gorm:"column:sale_date;type:timestamptz"`
	SalePrice *float64   `gorm:"column:sale_price"`
	// CreatedAt is the timestamp when this record was first synced
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Predictions []Prediction     `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
	Stats       *PredictionStats `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Property model
func (Property) TableName() string {
	return "properties"
}
