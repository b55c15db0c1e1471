package domain

import (
	"time"
)

// Market identifies the real-estate market a property belongs to
type Market string

// PredictionSubmission is a single miner prediction relayed by a validator
type PredictionSubmission struct {
	// NextplaceID is the externally-visible property identifier
	NextplaceID string `json:"nextplace_id"`
	// MinerHotKey identifies the submitting miner
	MinerHotKey string `json:"miner_hot_key"`
	// MinerColdKey is the miner's cold key (used when creating placeholder miners)
	MinerColdKey string `json:"miner_cold_key"`
	// PredictedSalePrice is the price the miner predicts the property will sell for
	PredictedSalePrice float64 `json:"predicted_sale_price"`
	// PredictedSaleDate is the date the miner predicts the property will sell on
	PredictedSaleDate time.Time `json:"predicted_sale_date"`
	// PredictionDate is the caller-supplied business time of the prediction.
	// It drives supersession ordering; it is not the system insert time.
	PredictionDate time.Time `json:"prediction_date"`
}

// ScoreSubmission is a validator's assessment of a miner's accuracy over a window
type ScoreSubmission struct {
	MinerHotKey      string    `json:"miner_hot_key"`
	MinerColdKey     string    `json:"miner_cold_key"`
	Score            float64   `json:"score"`
	NumPredictions   int       `json:"num_predictions"`
	TotalPredictions int       `json:"total_predictions"`
	// GenerationDate drives supersession ordering for scores
	GenerationDate time.Time `json:"generation_date"`
}

// OutcomeKind classifies the result of processing a single submission record
type OutcomeKind string

const (
	// OutcomeInserted means the record was inserted with no prior active record for its key
	OutcomeInserted OutcomeKind = "inserted"
	// OutcomeSuperseded means the record was inserted and one or more prior records were deactivated
	OutcomeSuperseded OutcomeKind = "superseded"
	// OutcomeRejected means the record was skipped; Reason carries the cause
	OutcomeRejected OutcomeKind = "rejected"
)

// Rejection reasons attached to OutcomeRejected records
const (
	ReasonInvalidTimestamp = "invalid_timestamp"
	ReasonMissingSubject   = "missing_subject"
	ReasonInvalidPrice     = "invalid_price"
	ReasonPropertyNotFound = "property_not_found"
	ReasonStoreError       = "store_error"
)

// RecordResult is the per-record outcome inside a batch result
type RecordResult struct {
	Index      int         `json:"index"`
	Outcome    OutcomeKind `json:"outcome"`
	Superseded int         `json:"superseded,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// BatchResult summarizes a processed submission batch.
// Each record commits independently, so a batch can be partially persisted.
type BatchResult struct {
	OperationID string         `json:"operation_id"`
	Inserted    int            `json:"inserted"`
	Superseded  int            `json:"superseded"`
	Rejected    int            `json:"rejected"`
	Records     []RecordResult `json:"records"`
}

// Add folds a single record result into the batch counters
func (b *BatchResult) Add(r RecordResult) {
	b.Records = append(b.Records, r)
	switch r.Outcome {
	case OutcomeInserted:
		b.Inserted++
	case OutcomeSuperseded:
		b.Inserted++
		b.Superseded += r.Superseded
	case OutcomeRejected:
		b.Rejected++
	}
}

// SubmissionType distinguishes prediction from score ingestion
type SubmissionType string

const (
	SubmissionTypePrediction SubmissionType = "prediction"
	SubmissionTypeScore      SubmissionType = "score"
)

// RecordOutcomeEvent is published to the message broker for every processed record
type RecordOutcomeEvent struct {
	OperationID string         `json:"operation_id"`
	Type        SubmissionType `json:"type"`
	MinerHotKey string         `json:"miner_hot_key"`
	NextplaceID string         `json:"nextplace_id,omitempty"`
	Outcome     OutcomeKind    `json:"outcome"`
	Superseded  int            `json:"superseded,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
