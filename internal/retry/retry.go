// Package retry provides the single withRetry(op, policy) combinator used
// uniformly by every external call in the pipeline (catalog, fetchers,
// embedding provider, vector store). It replaces the ad-hoc retry decorators
// and rate-limiter/backoff pairs historically scattered across call sites
// with one exponential-backoff-with-jitter policy.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"landmarkvector/internal/config"
	"landmarkvector/internal/errs"
)

// Policy is the retry shape: exponential backoff with jitter, bounded by a
// maximum number of attempts and a maximum per-attempt delay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	JitterPct   float64
}

// FromConfig adapts the process-wide retry configuration into a Policy.
func FromConfig(c config.RetryPolicy) Policy {
	return Policy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.BaseDelay,
		MaxDelay:    c.MaxDelay,
		JitterPct:   c.JitterPct,
	}
}

// Default is the standard backoff used across the pipeline (spec.md §7):
// base 500ms, factor 2 (set explicitly in backOff), jitter ±20%, max 5
// attempts, max backoff 30s.
func Default() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		JitterPct:   0.2,
	}
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = p.JitterPct
	return b
}

// Do runs op, retrying on errors classified errs.KindTransient (or that
// LooksTransient) under the policy's exponential backoff. Any other kind of
// error is returned as-is to the caller (spec.md §7); a transient error that
// exhausts its retries is returned wrapped as errs.Permanent for the current
// operation, and a cancelled context yields errs.Cancelled.
func Do(ctx context.Context, p Policy, op string, fn func(context.Context) error) error {
	_, err := DoValue(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value alongside success/error.
func DoValue[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	operation := func() (T, error) {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return v, backoff.Permanent(errs.Cancelled(op, ctx.Err()))
		}
		if !errs.LooksTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(maxInt(p.MaxAttempts, 1))),
	)
	if err == nil {
		return result, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return result, permanent.Unwrap()
	}
	// Retries were exhausted on a transient error: it becomes Permanent for
	// the current operation per the propagation policy.
	return result, errs.Permanent(op, err)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
