// Package processor implements the per-source Processors (spec.md §4.7):
// PdfProcessor and WikipediaProcessor, each composing a fetcher, the
// chunker, the metadata collector, the embedding generator, and the vector
// store adapter into a single process_landmark(id) operation.
package processor

import (
	"context"

	"landmarkvector/internal/domain"
	"landmarkvector/internal/errs"
)

// Processor processes a single landmark for one source type.
type Processor interface {
	ProcessLandmark(ctx context.Context, landmarkID string) domain.ProcessingResult
}

// failureReason derives the short reason string recorded on a Failed
// ProcessingResult from a classified error, matching the orchestrator's
// Failed("timeout")/Failed("cancelled") convention (spec.md §4.8, §5).
func failureReason(err error) string {
	switch errs.KindOf(err) {
	case errs.KindCancelled:
		return "cancelled"
	case errs.KindNotFound:
		return "not_found"
	case errs.KindValidation:
		return "validation"
	default:
		return err.Error()
	}
}
