package workflow

import (
	"context"
	"time"
)

// Host is the durable-execution boundary the orchestrator runs against. It
// dispatches named operations with a bounded wait, provides the suspend
// primitive for inter-step delays, and the clock for history timestamps.
// The orchestrator only ever calls this interface; retry-on-timeout is the
// host's business, not the orchestrator's.
type Host interface {
	// Execute dispatches the named operation with the given arguments and
	// abandons the invocation once timeout elapses. An abandoned invocation
	// is reported as an error and the caller treats it like any other
	// failure.
	Execute(ctx context.Context, name string, timeout time.Duration, args ...string) (string, error)

	// Sleep suspends the calling saga for d, returning early with ctx's
	// error if the context is cancelled.
	Sleep(ctx context.Context, d time.Duration) error

	// Now returns the host's clock reading, used for history timestamps.
	Now() time.Time
}
