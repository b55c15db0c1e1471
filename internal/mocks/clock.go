package mocks

import (
	"time"

	"github.com/nextplace/prediction-engine/internal/adapter"
)

// FakeClock implements adapter.Clock with a settable current time.
type FakeClock struct {
	Current time.Time
}

var _ adapter.Clock = (*FakeClock)(nil)

// NewFakeClock creates a fake clock frozen at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{Current: t}
}

func (c *FakeClock) Now() time.Time {
	return c.Current
}

func (c *FakeClock) Since(t time.Time) time.Duration {
	return c.Current.Sub(t)
}

// After fires immediately regardless of d so periodic loops tick without
// real waiting.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Current.Add(d)
	return ch
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}
