package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"landmarkvector/internal/errs"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, JitterPct: 0.1}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), "test.op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("503 service unavailable: timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	calls := 0
	permErr := errs.Permanent("test.op", errors.New("400 bad request"))
	err := Do(context.Background(), fastPolicy(), "test.op", func(ctx context.Context) error {
		calls++
		return permErr
	})
	if calls != 1 {
		t.Fatalf("expected 1 call for a permanent error, got %d", calls)
	}
	if !errs.Is(err, errs.KindPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestDo_ExhaustedTransientBecomesPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), "test.op", func(ctx context.Context) error {
		calls++
		return errors.New("connection reset by peer")
	})
	if calls != fastPolicy().MaxAttempts {
		t.Fatalf("expected %d calls, got %d", fastPolicy().MaxAttempts, calls)
	}
	if !errs.Is(err, errs.KindPermanent) {
		t.Fatalf("expected exhausted retries to surface as permanent, got %v", err)
	}
}

func TestDo_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, fastPolicy(), "test.op", func(ctx context.Context) error {
		calls++
		return errors.New("timeout")
	})
	if err == nil {
		t.Fatalf("expected an error for a cancelled context")
	}
	if calls > 1 {
		t.Fatalf("expected at most one attempt after cancellation, got %d", calls)
	}
}

func TestDoValue_ReturnsValueOnSuccess(t *testing.T) {
	v, err := DoValue(context.Background(), fastPolicy(), "test.op", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("DoValue: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}
