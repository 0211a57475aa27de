// Package orchestrator implements the ingestion worker pool (spec.md §4.8):
// a bounded-concurrency dispatcher that runs a Processor over a sequence of
// landmark IDs, enforcing per-landmark and global timeouts and aggregating
// results into BatchStatistics. Concurrency is bounded by a weighted
// semaphore and goroutine lifecycle/cancellation is managed by an
// errgroup.Group, generalized from a message-queue reader loop to an
// in-memory landmark ID queue.
package orchestrator

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"landmarkvector/internal/domain"
	"landmarkvector/internal/observability"
)

const module = "orchestrator"

// Processor processes a single landmark for one source type. Implementations
// must be safe for reuse across landmarks by the single worker that owns
// them, but need not be safe for concurrent use by multiple workers.
type Processor interface {
	ProcessLandmark(ctx context.Context, landmarkID string) domain.ProcessingResult
}

// Config is the orchestrator's run configuration (spec.md §4.8).
type Config struct {
	Parallelism        int
	PerLandmarkTimeout time.Duration
	GlobalTimeout      time.Duration
}

type indexedResult struct {
	index  int
	result domain.ProcessingResult
}

// Run dispatches landmarkIDs across up to parallelism concurrent tasks,
// bounded by a weighted semaphore, with goroutine lifecycle and
// cancellation managed by an errgroup.Group: a per-landmark context
// deadline that expires still lets the group continue with remaining
// landmarks (Processor.ProcessLandmark never returns a Go error, only a
// domain.ProcessingResult, so it never trips errgroup's fail-fast
// cancellation), while an exhausted GlobalTimeout cancels the group's
// shared context and every in-flight Acquire/landmark unwinds promptly.
// Completion order is not guaranteed; the returned BatchStatistics.Results
// preserves input order for reporting only.
func Run(ctx context.Context, cfg Config, landmarkIDs []string, newProcessor func() Processor) domain.BatchStatistics {
	start := time.Now()
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.GlobalTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.GlobalTimeout)
		defer cancel()
	}

	observability.Event(ctx, module, "batch_start").
		Int("landmark_count", len(landmarkIDs)).
		Int("parallelism", parallelism).
		Msg("orchestrator batch starting")

	// processors is a free-list of up to parallelism reusable Processor
	// instances; the semaphore bounds how many are checked out at once.
	processors := make(chan Processor, parallelism)
	for i := 0; i < parallelism; i++ {
		processors <- newProcessor()
	}

	sem := semaphore.NewWeighted(int64(parallelism))
	g, gctx := errgroup.WithContext(runCtx)

	resultsCh := make(chan indexedResult, len(landmarkIDs))
	for i, id := range landmarkIDs {
		i, id := i, id
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			proc := <-processors
			defer func() { processors <- proc }()

			resultsCh <- indexedResult{index: i, result: runOne(gctx, cfg.PerLandmarkTimeout, proc, id)}
			return nil
		})
	}

	// g.Wait returns non-nil only when the shared context (GlobalTimeout
	// or an upstream cancellation) cut the batch short before every
	// landmark was dispatched; that's reported via stats.Attempted being
	// short of len(landmarkIDs) rather than surfaced as a Go error here.
	_ = g.Wait()
	close(resultsCh)

	var collected []indexedResult
	for r := range resultsCh {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	stats := domain.BatchStatistics{Duration: time.Since(start)}
	for _, r := range collected {
		stats.Attempted++
		stats.Results = append(stats.Results, r.result)
		if r.result.Success {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
		stats.ChunksEmbedded += r.result.Chunks
	}

	observability.Event(ctx, module, "batch_complete").
		Int("attempted", stats.Attempted).
		Int("succeeded", stats.Succeeded).
		Int("failed", stats.Failed).
		Msg("orchestrator batch complete")

	return stats
}

// runOne executes a single landmark within perLandmarkTimeout, translating a
// timeout specifically into Failed("timeout") as distinct from a
// global-cancellation Failed("cancelled") (spec.md §4.8).
func runOne(parent context.Context, perLandmarkTimeout time.Duration, proc Processor, landmarkID string) domain.ProcessingResult {
	itemCtx := parent
	var cancel context.CancelFunc
	if perLandmarkTimeout > 0 {
		itemCtx, cancel = context.WithTimeout(parent, perLandmarkTimeout)
		defer cancel()
	}

	result := proc.ProcessLandmark(itemCtx, landmarkID)
	if result.Success {
		return result
	}

	switch {
	case errors.Is(itemCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil:
		result.Outcome = domain.OutcomeFailed
		result.FailureReason = "timeout"
	case parent.Err() != nil:
		result.Outcome = domain.OutcomeFailed
		result.FailureReason = "cancelled"
	}
	return result
}
