package dto

import (
	"time"

	"github.com/nextplace/prediction-engine/internal/adapter"
	"github.com/nextplace/prediction-engine/internal/store/schema"
)

// PropertyDTO is the wire representation of a property listing
type PropertyDTO struct {
	NextplaceID  string     `json:"nextplace_id"`
	Market       string     `json:"market"`
	Address      string     `json:"address,omitempty"`
	City         string     `json:"city,omitempty"`
	State        string     `json:"state,omitempty"`
	ZipCode      string     `json:"zip_code,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	ListingPrice float64    `json:"listing_price"`
	ListingDate  time.Time  `json:"listing_date"`
	SaleDate     *time.Time `json:"sale_date,omitempty"`
	SalePrice    *float64   `json:"sale_price,omitempty"`

	// Stats is the latest aggregation snapshot, when one exists
	Stats *PredictionStatsDTO `json:"stats,omitempty"`
}

// NewPropertyDTO maps a schema property onto the wire format
func NewPropertyDTO(p *schema.Property) PropertyDTO {
	return PropertyDTO{
		NextplaceID:  p.NextplaceID,
		Market:       p.Market,
		Address:      p.Address,
		City:         p.City,
		State:        p.State,
		ZipCode:      p.ZipCode,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		ListingPrice: p.ListingPrice,
		ListingDate:  p.ListingDate,
		SaleDate:     p.SaleDate,
		SalePrice:    p.SalePrice,
	}
}

// PredictionStatsDTO is the wire representation of a stats snapshot
type PredictionStatsDTO struct {
	NumPredictions    int64                        `json:"num_predictions"`
	MinPredictedPrice float64                      `json:"min_predicted_price"`
	AvgPredictedPrice float64                      `json:"avg_predicted_price"`
	MaxPredictedPrice float64                      `json:"max_predicted_price"`
	TopPredictions    schema.TopPredictionsPayload `json:"top_predictions"`
	ComputedAt        time.Time                    `json:"computed_at"`
}

// NewPredictionStatsDTO maps a snapshot, deserializing the top-N payload
func NewPredictionStatsDTO(stats *schema.PredictionStats, jsonAdapter adapter.JSON) (*PredictionStatsDTO, error) {
	var payload schema.TopPredictionsPayload
	if len(stats.TopPredictions) > 0 {
		if err := jsonAdapter.Unmarshal(stats.TopPredictions, &payload); err != nil {
			return nil, err
		}
	}

	return &PredictionStatsDTO{
		NumPredictions:    stats.NumPredictions,
		MinPredictedPrice: stats.MinPredictedPrice,
		AvgPredictedPrice: stats.AvgPredictedPrice,
		MaxPredictedPrice: stats.MaxPredictedPrice,
		TopPredictions:    payload,
		ComputedAt:        stats.ComputedAt,
	}, nil
}

// PredictionDTO is the wire representation of an active prediction
type PredictionDTO struct {
	PredictedSalePrice float64   `json:"predicted_sale_price"`
	PredictedSaleDate  time.Time `json:"predicted_sale_date"`
	PredictionDate     time.Time `json:"prediction_date"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewPredictionDTO maps a schema prediction onto the wire format
func NewPredictionDTO(p *schema.Prediction) PredictionDTO {
	return PredictionDTO{
		PredictedSalePrice: p.PredictedSalePrice,
		PredictedSaleDate:  p.PredictedSaleDate,
		PredictionDate:     p.PredictionDate,
		CreatedAt:          p.CreatedAt,
	}
}

// ScoreDTO is the wire representation of an active miner score
type ScoreDTO struct {
	Score            float64   `json:"score"`
	NumPredictions   int       `json:"num_predictions"`
	TotalPredictions int       `json:"total_predictions"`
	GenerationDate   time.Time `json:"generation_date"`
}

// NewScoreDTO maps a schema score onto the wire format
func NewScoreDTO(s *schema.Score) ScoreDTO {
	return ScoreDTO{
		Score:            s.Score,
		NumPredictions:   s.NumPredictions,
		TotalPredictions: s.TotalPredictions,
		GenerationDate:   s.GenerationDate,
	}
}

// ListResponse wraps a paginated collection
type ListResponse[T any] struct {
	Items  []T    `json:"items"`
	Total  uint64 `json:"total"`
	Limit  int    `json:"limit"`
	Offset uint64 `json:"offset"`
}
