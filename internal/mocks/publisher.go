package mocks

import (
	"context"
	"sync"

	"github.com/nextplace/prediction-engine/internal/domain"
	"github.com/nextplace/prediction-engine/internal/messaging"
)

// FakePublisher implements messaging.Publisher and records every event.
type FakePublisher struct {
	mu     sync.Mutex
	events []*domain.RecordOutcomeEvent

	// Err, when set, is returned from every PublishOutcome call
	Err error
	// Closed records whether Close was called
	Closed bool
}

var _ messaging.Publisher = (*FakePublisher)(nil)

func (f *FakePublisher) PublishOutcome(ctx context.Context, event *domain.RecordOutcomeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *FakePublisher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
}

// Events returns a copy of the published events.
func (f *FakePublisher) Events() []*domain.RecordOutcomeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.RecordOutcomeEvent, len(f.events))
	copy(out, f.events)
	return out
}
