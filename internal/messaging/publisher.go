package messaging

import (
	"context"

	"github.com/nextplace/prediction-engine/internal/domain"
)

// Publisher defines the interface for publishing ingestion outcome events to
// the message broker. Publishing is best-effort observability: a failed
// publish never fails the record it describes.
type Publisher interface {
	// PublishOutcome publishes one per-record outcome event
	PublishOutcome(ctx context.Context, event *domain.RecordOutcomeEvent) error
	// Close closes the connection
	Close()
}
