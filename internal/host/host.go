// Package host provides an in-process implementation of the workflow's
// durable-execution boundary: a registry of named operations dispatched with
// a per-call timeout and an optional retry on timeout.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ActivityFunc is a named operation the host can dispatch. Arguments are
// positional strings (order ID first, item name second where required) and
// the result is a human-readable outcome message.
type ActivityFunc func(ctx context.Context, args ...string) (string, error)

// Config controls the host's dispatch behavior.
type Config struct {
	// MaxAttempts is the number of tries per Execute when an attempt ends in
	// a timeout. Failures reported by the operation itself are never
	// retried; a precondition violation does not heal on its own. Defaults
	// to 1 (no retry).
	MaxAttempts int
	// RetryDelay is the pause between timeout retries.
	RetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}

// LocalHost dispatches registered activities in-process. Many sagas may call
// Execute concurrently.
type LocalHost struct {
	cfg Config

	mu         sync.RWMutex
	activities map[string]ActivityFunc
}

// New constructs a LocalHost with an empty registry.
func New(cfg Config) *LocalHost {
	return &LocalHost{
		cfg:        cfg.withDefaults(),
		activities: make(map[string]ActivityFunc),
	}
}

// Register adds a named operation to the registry, replacing any previous
// registration under the same name.
func (h *LocalHost) Register(name string, fn ActivityFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activities[name] = fn
}

// Execute dispatches the named operation, abandoning an attempt once timeout
// elapses. A timed-out attempt is retried up to Config.MaxAttempts times;
// any other failure is returned as-is on the first occurrence.
func (h *LocalHost) Execute(ctx context.Context, name string, timeout time.Duration, args ...string) (string, error) {
	h.mu.RLock()
	fn, ok := h.activities[name]
	h.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("host: no activity registered under %q", name)
	}

	var lastErr error
	for attempt := 1; attempt <= h.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		result, err := h.invoke(ctx, fn, timeout, args)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !errors.Is(err, context.DeadlineExceeded) || attempt == h.cfg.MaxAttempts {
			break
		}
		slog.WarnContext(ctx, "activity timed out, retrying",
			"activity", name, "attempt", attempt, "timeout", timeout)
		if err := h.Sleep(ctx, h.cfg.RetryDelay); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("activity %s: %w", name, lastErr)
}

// invoke runs the activity on its own goroutine so a stuck handler can be
// abandoned when the deadline fires. The goroutine keeps the (cancelled)
// context and is expected to unwind on its own.
func (h *LocalHost) invoke(ctx context.Context, fn ActivityFunc, timeout time.Duration, args []string) (string, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := fn(callCtx, args...)
		done <- result{out: out, err: err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-callCtx.Done():
		return "", callCtx.Err()
	}
}

// Sleep suspends until d elapses or ctx is cancelled.
func (h *LocalHost) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Now returns the host clock in UTC.
func (h *LocalHost) Now() time.Time {
	return time.Now().UTC()
}
