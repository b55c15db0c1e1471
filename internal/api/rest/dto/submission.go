package dto

import (
	"time"

	"github.com/nextplace/prediction-engine/internal/domain"
)

// PredictionSubmissionDTO is one prediction record in a submission batch
type PredictionSubmissionDTO struct {
	NextplaceID        string    `json:"nextplace_id"`
	MinerHotKey        string    `json:"miner_hot_key"`
	MinerColdKey       string    `json:"miner_cold_key"`
	PredictedSalePrice float64   `json:"predicted_sale_price"`
	PredictedSaleDate  time.Time `json:"predicted_sale_date"`
	PredictionDate     time.Time `json:"prediction_date"`
}

// SubmitPredictionsRequest is the body of POST /api/v1/predictions
type SubmitPredictionsRequest struct {
	Predictions []PredictionSubmissionDTO `json:"predictions" binding:"required"`
}

// ToDomain converts the request into domain submissions
func (r *SubmitPredictionsRequest) ToDomain() []domain.PredictionSubmission {
	out := make([]domain.PredictionSubmission, 0, len(r.Predictions))
	for _, p := range r.Predictions {
		out = append(out, domain.PredictionSubmission{
			NextplaceID:        p.NextplaceID,
			MinerHotKey:        p.MinerHotKey,
			MinerColdKey:       p.MinerColdKey,
			PredictedSalePrice: p.PredictedSalePrice,
			PredictedSaleDate:  p.PredictedSaleDate,
			PredictionDate:     p.PredictionDate,
		})
	}
	return out
}

// ScoreSubmissionDTO is one score record in a submission batch
type ScoreSubmissionDTO struct {
	MinerHotKey      string    `json:"miner_hot_key"`
	MinerColdKey     string    `json:"miner_cold_key"`
	Score            float64   `json:"score"`
	NumPredictions   int       `json:"num_predictions"`
	TotalPredictions int       `json:"total_predictions"`
	GenerationDate   time.Time `json:"generation_date"`
}

// SubmitScoresRequest is the body of POST /api/v1/scores
type SubmitScoresRequest struct {
	Scores []ScoreSubmissionDTO `json:"scores" binding:"required"`
}

// ToDomain converts the request into domain submissions
func (r *SubmitScoresRequest) ToDomain() []domain.ScoreSubmission {
	out := make([]domain.ScoreSubmission, 0, len(r.Scores))
	for _, s := range r.Scores {
		out = append(out, domain.ScoreSubmission{
			MinerHotKey:      s.MinerHotKey,
			MinerColdKey:     s.MinerColdKey,
			Score:            s.Score,
			NumPredictions:   s.NumPredictions,
			TotalPredictions: s.TotalPredictions,
			GenerationDate:   s.GenerationDate,
		})
	}
	return out
}

// RecordResultDTO is the per-record outcome in a batch response
type RecordResultDTO struct {
	Index      int    `json:"index"`
	Outcome    string `json:"outcome"`
	Superseded int    `json:"superseded,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// BatchResultDTO is the body of a 201 submission response
type BatchResultDTO struct {
	OperationID string            `json:"operation_id"`
	Inserted    int               `json:"inserted"`
	Superseded  int               `json:"superseded"`
	Rejected    int               `json:"rejected"`
	Records     []RecordResultDTO `json:"records"`
}

// NewBatchResultDTO maps a domain batch result onto the wire format
func NewBatchResultDTO(result *domain.BatchResult) BatchResultDTO {
	records := make([]RecordResultDTO, 0, len(result.Records))
	for _, r := range result.Records {
		records = append(records, RecordResultDTO{
			Index:      r.Index,
			Outcome:    string(r.Outcome),
			Superseded: r.Superseded,
			Reason:     r.Reason,
		})
	}
	return BatchResultDTO{
		OperationID: result.OperationID,
		Inserted:    result.Inserted,
		Superseded:  result.Superseded,
		Rejected:    result.Rejected,
		Records:     records,
	}
}
