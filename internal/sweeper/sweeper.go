package sweeper

import (
	"context"
)

// Sweeper defines the interface for periodic background jobs: the stats
// aggregation loop and the cleanup sweeps all run behind it.
type Sweeper interface {
	// Start begins the sweeper's main loop
	// This is a blocking call that runs until the context is canceled
	Start(ctx context.Context) error

	// Stop gracefully stops the sweeper
	// This should wait for any in-progress work to complete
	Stop(ctx context.Context) error

	// Name returns the sweeper's name for logging and identification
	Name() string
}
