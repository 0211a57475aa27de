package observability

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"landmarkvector/internal/corrid"
)

// Event returns a zerolog event pre-populated with the module/operation
// schema fields required of every structured log record emitted by the
// pipeline (timestamp and severity are added by zerolog itself), plus the
// ambient correlation ID when one is present in ctx. Call sites finish the
// event with operation-specific fields and a terminal Msg/Msgf call:
//
//	observability.Event(ctx, "catalog", "landmark_process_start").
//		Str("landmark_id", id).
//		Msg("starting landmark ingestion")
func Event(ctx context.Context, module, operation string) *zerolog.Event {
	ev := log.Info().Str("module", module).Str("operation", operation)
	if id := corrid.From(ctx); id != "" {
		ev = ev.Str("correlation_id", id)
	}
	return ev
}

// Warn is Event at warn severity.
func Warn(ctx context.Context, module, operation string) *zerolog.Event {
	ev := log.Warn().Str("module", module).Str("operation", operation)
	if id := corrid.From(ctx); id != "" {
		ev = ev.Str("correlation_id", id)
	}
	return ev
}

// ErrorEvent is Event at error severity, pre-populated with err.
func ErrorEvent(ctx context.Context, module, operation string, err error) *zerolog.Event {
	ev := log.Error().Str("module", module).Str("operation", operation).Err(err)
	if id := corrid.From(ctx); id != "" {
		ev = ev.Str("correlation_id", id)
	}
	return ev
}
