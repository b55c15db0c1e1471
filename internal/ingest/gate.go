package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/nextplace/prediction-engine/internal/adapter"
	"github.com/nextplace/prediction-engine/internal/domain"
	"github.com/nextplace/prediction-engine/internal/logger"
	"github.com/nextplace/prediction-engine/internal/messaging"
	"github.com/nextplace/prediction-engine/internal/store"
)

// Gate validates and persists submission batches relayed by validators.
//
// Batches are authorized wholesale by caller IP, then processed one record
// at a time: each record commits independently, so a mid-batch failure
// leaves earlier records persisted. Per-record outcomes are folded into the
// returned BatchResult and emitted as outcome events for observability.
type Gate struct {
	store     store.Store
	publisher messaging.Publisher
	clock     adapter.Clock

	maxBatchSize int

	// Positive authorization results are cached briefly so a validator
	// submitting many batches does not hit the store on every request.
	// Deactivating a validator takes effect within authCacheTTL.
	authMu    sync.Mutex
	authCache map[string]authCacheEntry
}

type authCacheEntry struct {
	validatorID int64
	expiresAt   time.Time
}

// authCacheTTL bounds how long a revoked validator can keep submitting
const authCacheTTL = 30 * time.Second

// NewGate creates an ingestion gate. publisher may be nil, in which case
// outcome events are not emitted.
func NewGate(s store.Store, publisher messaging.Publisher, clock adapter.Clock, maxBatchSize int) *Gate {
	return &Gate{
		store:        s,
		publisher:    publisher,
		clock:        clock,
		maxBatchSize: maxBatchSize,
		authCache:    make(map[string]authCacheEntry),
	}
}

// Authorize resolves the caller IP against the active validator allow-list.
// A nil result with a nil error never happens; unknown or inactive callers
// return domain.ErrUnauthorizedValidator.
func (g *Gate) Authorize(ctx context.Context, callerIP string) (int64, error) {
	now := g.clock.Now()

	g.authMu.Lock()
	entry, ok := g.authCache[callerIP]
	g.authMu.Unlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.validatorID, nil
	}

	validator, err := g.store.GetActiveValidatorByIP(ctx, callerIP)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve validator by IP: %w", err)
	}
	if validator == nil {
		return 0, domain.ErrUnauthorizedValidator
	}

	g.authMu.Lock()
	g.authCache[callerIP] = authCacheEntry{
		validatorID: validator.ID,
		expiresAt:   now.Add(authCacheTTL),
	}
	g.authMu.Unlock()

	return validator.ID, nil
}

// IngestPredictions processes a batch of prediction submissions on behalf of
// the validator identified by validatorID. Over-limit batches are rejected
// wholesale with domain.ErrBatchTooLarge and no records are persisted.
func (g *Gate) IngestPredictions(ctx context.Context, validatorID int64, batch []domain.PredictionSubmission) (*domain.BatchResult, error) {
	if len(batch) > g.maxBatchSize {
		return nil, fmt.Errorf("%w: %d records exceeds limit of %d", domain.ErrBatchTooLarge, len(batch), g.maxBatchSize)
	}

	result := &domain.BatchResult{
		OperationID: ulid.MustNewDefault(g.clock.Now()).String(),
	}

	logger.InfoCtx(ctx, "Prediction batch started",
		zap.String("operation_id", result.OperationID),
		zap.Int64("validator_id", validatorID),
		zap.Int("batch_size", len(batch)),
	)

	for i, submission := range batch {
		// Cancellation is cooperative between records, never mid-record
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch cancelled after %d records: %w", i, err)
		}

		record := g.processPrediction(ctx, validatorID, submission)
		record.Index = i
		result.Add(record)
		g.publishOutcome(ctx, result.OperationID, domain.SubmissionTypePrediction, submission.MinerHotKey, submission.NextplaceID, record)
	}

	logger.InfoCtx(ctx, "Prediction batch completed",
		zap.String("operation_id", result.OperationID),
		zap.Int("inserted", result.Inserted),
		zap.Int("superseded", result.Superseded),
		zap.Int("rejected", result.Rejected),
	)

	return result, nil
}

// processPrediction validates and commits a single prediction submission.
// Failures are folded into the returned record outcome, never propagated.
func (g *Gate) processPrediction(ctx context.Context, validatorID int64, submission domain.PredictionSubmission) domain.RecordResult {
	if reason := validatePrediction(submission); reason != "" {
		return domain.RecordResult{Outcome: domain.OutcomeRejected, Reason: reason}
	}

	property, err := g.store.GetPropertyByNextplaceID(ctx, submission.NextplaceID)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to look up property: %w", err),
			zap.String("nextplace_id", submission.NextplaceID))
		return domain.RecordResult{Outcome: domain.OutcomeRejected, Reason: domain.ReasonStoreError}
	}
	if property == nil {
		// Unknown properties are skipped; they are owned by the sync
		// pipeline and never created from the ingestion path
		return domain.RecordResult{Outcome: domain.OutcomeRejected, Reason: domain.ReasonPropertyNotFound}
	}

	miner, err := g.store.GetOrCreateMinerByHotKey(ctx, submission.MinerHotKey, submission.MinerColdKey)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to resolve miner: %w", err),
			zap.String("miner_hot_key", submission.MinerHotKey))
		return domain.RecordResult{Outcome: domain.OutcomeRejected, Reason: domain.ReasonStoreError}
	}

	superseded, err := g.store.InsertPredictionSuperseding(ctx, store.InsertPredictionInput{
		PropertyID:         property.ID,
		MinerID:            miner.ID,
		ValidatorID:        &validatorID,
		PredictedSalePrice: submission.PredictedSalePrice,
		PredictedSaleDate:  submission.PredictedSaleDate,
		PredictionDate:     submission.PredictionDate,
		Now:                g.clock.Now(),
	})
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to insert prediction: %w", err),
			zap.String("nextplace_id", submission.NextplaceID),
			zap.String("miner_hot_key", submission.MinerHotKey))
		return domain.RecordResult{Outcome: domain.OutcomeRejected, Reason: domain.ReasonStoreError}
	}

	if superseded > 0 {
		return domain.RecordResult{Outcome: domain.OutcomeSuperseded, Superseded: superseded}
	}
	return domain.RecordResult{Outcome: domain.OutcomeInserted}
}

// IngestScores processes a batch of score submissions. Scores are keyed on
// (miner, validator) and ordered by generation date; otherwise the batch
// semantics match IngestPredictions.
func (g *Gate) IngestScores(ctx context.Context, validatorID int64, batch []domain.ScoreSubmission) (*domain.BatchResult, error) {
	if len(batch) > g.maxBatchSize {
		return nil, fmt.Errorf("%w: %d records exceeds limit of %d", domain.ErrBatchTooLarge, len(batch), g.maxBatchSize)
	}

	result := &domain.BatchResult{
		OperationID: ulid.MustNewDefault(g.clock.Now()).String(),
	}

	logger.InfoCtx(ctx, "Score batch started",
		zap.String("operation_id", result.OperationID),
		zap.Int64("validator_id", validatorID),
		zap.Int("batch_size", len(batch)),
	)

	for i, submission := range batch {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch cancelled after %d records: %w", i, err)
		}

		record := g.processScore(ctx, validatorID, submission)
		record.Index = i
		result.Add(record)
		g.publishOutcome(ctx, result.OperationID, domain.SubmissionTypeScore, submission.MinerHotKey, "", record)
	}

	logger.InfoCtx(ctx, "Score batch completed",
		zap.String("operation_id", result.OperationID),
		zap.Int("inserted", result.Inserted),
		zap.Int("superseded", result.Superseded),
		zap.Int("rejected", result.Rejected),
	)

	return result, nil
}

func (g *Gate) processScore(ctx context.Context, validatorID int64, submission domain.ScoreSubmission) domain.RecordResult {
	if reason := validateScore(submission); reason != "" {
		return domain.RecordResult{Outcome: domain.OutcomeRejected, Reason: reason}
	}

	miner, err := g.store.GetOrCreateMinerByHotKey(ctx, submission.MinerHotKey, submission.MinerColdKey)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to resolve miner: %w", err),
			zap.String("miner_hot_key", submission.MinerHotKey))
		return domain.RecordResult{Outcome: domain.OutcomeRejected, Reason: domain.ReasonStoreError}
	}

	superseded, err := g.store.InsertScoreSuperseding(ctx, store.InsertScoreInput{
		MinerID:          miner.ID,
		ValidatorID:      &validatorID,
		Score:            submission.Score,
		NumPredictions:   submission.NumPredictions,
		TotalPredictions: submission.TotalPredictions,
		GenerationDate:   submission.GenerationDate,
		Now:              g.clock.Now(),
	})
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to insert score: %w", err),
			zap.String("miner_hot_key", submission.MinerHotKey))
		return domain.RecordResult{Outcome: domain.OutcomeRejected, Reason: domain.ReasonStoreError}
	}

	if superseded > 0 {
		return domain.RecordResult{Outcome: domain.OutcomeSuperseded, Superseded: superseded}
	}
	return domain.RecordResult{Outcome: domain.OutcomeInserted}
}

// publishOutcome emits a record outcome event. Publishing is best-effort;
// a broker failure never changes the record's outcome.
func (g *Gate) publishOutcome(ctx context.Context, operationID string, submissionType domain.SubmissionType, minerHotKey, nextplaceID string, record domain.RecordResult) {
	if g.publisher == nil {
		return
	}

	event := &domain.RecordOutcomeEvent{
		OperationID: operationID,
		Type:        submissionType,
		MinerHotKey: minerHotKey,
		NextplaceID: nextplaceID,
		Outcome:     record.Outcome,
		Superseded:  record.Superseded,
		Reason:      record.Reason,
		Timestamp:   g.clock.Now(),
	}

	if err := g.publisher.PublishOutcome(ctx, event); err != nil {
		logger.Warn("Failed to publish outcome event",
			zap.String("operation_id", operationID),
			zap.Error(err),
		)
	}
}

func validatePrediction(s domain.PredictionSubmission) string {
	if s.NextplaceID == "" || s.MinerHotKey == "" {
		return domain.ReasonMissingSubject
	}
	if s.PredictionDate.IsZero() {
		return domain.ReasonInvalidTimestamp
	}
	if s.PredictedSalePrice <= 0 {
		return domain.ReasonInvalidPrice
	}
	return ""
}

func validateScore(s domain.ScoreSubmission) string {
	if s.MinerHotKey == "" {
		return domain.ReasonMissingSubject
	}
	if s.GenerationDate.IsZero() {
		return domain.ReasonInvalidTimestamp
	}
	return ""
}
