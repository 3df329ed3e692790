package host

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecuteUnknownActivity(t *testing.T) {
	t.Parallel()

	h := New(Config{})
	_, err := h.Execute(context.Background(), "Nope", time.Second)
	if err == nil || !strings.Contains(err.Error(), "no activity registered") {
		t.Fatalf("expected registry error, got %v", err)
	}
}

func TestExecuteDispatchesWithArgs(t *testing.T) {
	t.Parallel()

	h := New(Config{})
	h.Register("Echo", func(_ context.Context, args ...string) (string, error) {
		return strings.Join(args, ","), nil
	})

	out, err := h.Execute(context.Background(), "Echo", time.Second, "o1", "Widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "o1,Widget" {
		t.Fatalf("out = %q, want %q", out, "o1,Widget")
	}
}

func TestExecuteAbandonsStuckActivity(t *testing.T) {
	t.Parallel()

	h := New(Config{})
	h.Register("Stuck", func(ctx context.Context, _ ...string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	start := time.Now()
	_, err := h.Execute(context.Background(), "Stuck", 20*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("execute blocked for %v, should abandon at the timeout", elapsed)
	}
}

func TestExecuteRetriesOnTimeoutOnly(t *testing.T) {
	t.Parallel()

	h := New(Config{MaxAttempts: 3})

	var calls atomic.Int32
	h.Register("SlowThenFast", func(ctx context.Context, _ ...string) (string, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "done", nil
	})

	out, err := h.Execute(context.Background(), "SlowThenFast", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "done" || calls.Load() != 2 {
		t.Fatalf("out=%q calls=%d, want done/2", out, calls.Load())
	}
}

func TestExecuteDoesNotRetryActivityFailure(t *testing.T) {
	t.Parallel()

	h := New(Config{MaxAttempts: 3})

	var calls atomic.Int32
	h.Register("Broken", func(_ context.Context, _ ...string) (string, error) {
		calls.Add(1)
		return "", errors.New("order o1 not in the proper state")
	})

	_, err := h.Execute(context.Background(), "Broken", time.Second)
	if err == nil || !strings.Contains(err.Error(), "not in the proper state") {
		t.Fatalf("expected activity failure, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("activity ran %d times, non-timeout failures must not retry", calls.Load())
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	t.Parallel()

	h := New(Config{MaxAttempts: 2})

	var calls atomic.Int32
	h.Register("AlwaysStuck", func(ctx context.Context, _ ...string) (string, error) {
		calls.Add(1)
		<-ctx.Done()
		return "", ctx.Err()
	})

	_, err := h.Execute(context.Background(), "AlwaysStuck", 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("activity ran %d times, want 2", calls.Load())
	}
}

func TestExecuteHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	h := New(Config{})
	h.Register("Noop", func(_ context.Context, _ ...string) (string, error) {
		return "ok", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Execute(ctx, "Noop", time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSleep(t *testing.T) {
	t.Parallel()

	h := New(Config{})

	if err := h.Sleep(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
	if err := h.Sleep(context.Background(), 5*time.Millisecond); err != nil {
		t.Fatalf("short sleep: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if err := h.Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled sleep: %v", err)
	}
}

func TestNowIsUTC(t *testing.T) {
	t.Parallel()

	h := New(Config{})
	if loc := h.Now().Location(); loc != time.UTC {
		t.Fatalf("Now location = %v, want UTC", loc)
	}
}
