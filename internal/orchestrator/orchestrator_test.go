package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landmarkvector/internal/domain"
)

type fakeProcessor struct {
	delay   time.Duration
	failIDs map[string]bool
	calls   int32
}

func (f *fakeProcessor) ProcessLandmark(ctx context.Context, landmarkID string) domain.ProcessingResult {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.ProcessingResult{LandmarkID: landmarkID, Success: false, Outcome: domain.OutcomeFailed}
		}
	}
	if f.failIDs[landmarkID] {
		return domain.ProcessingResult{LandmarkID: landmarkID, Success: false, Outcome: domain.OutcomeFailed, FailureReason: "boom"}
	}
	return domain.ProcessingResult{LandmarkID: landmarkID, Success: true, Outcome: domain.OutcomeOK, Chunks: 3}
}

func TestRunAggregatesResultsInInputOrder(t *testing.T) {
	ids := []string{"LP-00001", "LP-00002", "LP-00003"}
	stats := Run(t.Context(), Config{Parallelism: 2}, ids, func() Processor {
		return &fakeProcessor{failIDs: map[string]bool{"LP-00002": true}}
	})

	require.Len(t, stats.Results, 3)
	assert.Equal(t, "LP-00001", stats.Results[0].LandmarkID)
	assert.Equal(t, "LP-00002", stats.Results[1].LandmarkID)
	assert.Equal(t, "LP-00003", stats.Results[2].LandmarkID)
	assert.Equal(t, 3, stats.Attempted)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 6, stats.ChunksEmbedded)
}

func TestRunRespectsParallelismWorkerCount(t *testing.T) {
	var ids []string
	for i := 0; i < 20; i++ {
		ids = append(ids, "LP-00001")
	}
	var maxConcurrent int32
	var current int32
	stats := Run(t.Context(), Config{Parallelism: 4}, ids, func() Processor {
		return processorFunc(func(ctx context.Context, id string) domain.ProcessingResult {
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&maxConcurrent)
				if n <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return domain.ProcessingResult{LandmarkID: id, Success: true, Outcome: domain.OutcomeOK}
		})
	})
	assert.Equal(t, 20, stats.Attempted)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxConcurrent), int32(4))
}

func TestRunPerLandmarkTimeoutRecordsTimeoutFailure(t *testing.T) {
	stats := Run(t.Context(), Config{Parallelism: 1, PerLandmarkTimeout: 10 * time.Millisecond}, []string{"LP-00001"}, func() Processor {
		return &fakeProcessor{delay: 200 * time.Millisecond}
	})
	require.Len(t, stats.Results, 1)
	assert.False(t, stats.Results[0].Success)
	assert.Equal(t, "timeout", stats.Results[0].FailureReason)
}

func TestRunGlobalTimeoutStopsDispatchingNewItems(t *testing.T) {
	var ids []string
	for i := 0; i < 50; i++ {
		ids = append(ids, "LP-00001")
	}
	stats := Run(t.Context(), Config{Parallelism: 2, GlobalTimeout: 20 * time.Millisecond}, ids, func() Processor {
		return &fakeProcessor{delay: 15 * time.Millisecond}
	})
	assert.Less(t, stats.Attempted, 50)
}

type processorFunc func(ctx context.Context, id string) domain.ProcessingResult

func (f processorFunc) ProcessLandmark(ctx context.Context, id string) domain.ProcessingResult {
	return f(ctx, id)
}
