package observability

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"landmarkvector/internal/corrid"
)

// LoggerWithTrace returns a zerolog.Logger enriched with the ambient
// correlation ID (internal/corrid) and, where the context also carries an
// OTel span, trace_id/span_id. The correlation ID is the primary thread
// tying a landmark's fetch/chunk/embed/store steps together across workers;
// trace/span fields are additive when tracing happens to be active.
func LoggerWithTrace(ctx context.Context) *zerolog.Logger {
	l := log.Logger
	if ctx == nil {
		return &l
	}
	if id := corrid.From(ctx); id != "" {
		l = l.With().Str("correlation_id", id).Logger()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With().Str("trace_id", sc.TraceID().String()).Logger()
		if sc.HasSpanID() {
			l = l.With().Str("span_id", sc.SpanID().String()).Logger()
		}
		if sc.IsSampled() {
			l = l.With().Bool("trace_sampled", true).Logger()
		}
	}
	return &l
}
