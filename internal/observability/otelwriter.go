package observability

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

// OTelWriter implements io.Writer and bridges zerolog output to OpenTelemetry logs.
// It parses JSON log entries from zerolog and emits them as OTLP log records.
type OTelWriter struct {
	logger log.Logger
}

// NewOTelWriter creates a new OTelWriter that sends logs to the global OTLP log provider.
func NewOTelWriter(name string) *OTelWriter {
	return &OTelWriter{
		logger: global.GetLoggerProvider().Logger(name),
	}
}

// Write implements io.Writer. It parses a zerolog JSON line and emits an OTLP log record.
func (w *OTelWriter) Write(p []byte) (n int, err error) {
	n = len(p)

	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		// If we can't parse, emit raw message
		w.emitRaw(string(p))
		return n, nil
	}

	w.emitStructured(entry)
	return n, nil
}

func (w *OTelWriter) emitRaw(msg string) {
	ctx := context.Background()
	var rec log.Record
	rec.SetTimestamp(time.Now())
	rec.SetBody(log.StringValue(msg))
	rec.SetSeverity(log.SeverityInfo)
	w.logger.Emit(ctx, rec)
}

// emitStructured reads the timestamp/level/message fields under whatever
// names InitLogger configured them with (zerolog.TimestampFieldName etc.),
// since log_provider=google renames them to match Cloud Logging's
// conventions ("timestamp"/"severity") while the default keeps zerolog's
// own ("time"/"level").
func (w *OTelWriter) emitStructured(entry map[string]any) {
	ctx := context.Background()
	var rec log.Record

	tsField := zerolog.TimestampFieldName
	if ts, ok := entry[tsField].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.SetTimestamp(t)
		} else {
			rec.SetTimestamp(time.Now())
		}
		delete(entry, tsField)
	} else {
		rec.SetTimestamp(time.Now())
	}

	levelField := zerolog.LevelFieldName
	if lvl, ok := entry[levelField].(string); ok {
		rec.SetSeverity(zerologLevelToSeverity(lvl))
		rec.SetSeverityText(lvl)
		delete(entry, levelField)
	} else {
		rec.SetSeverity(log.SeverityInfo)
		rec.SetSeverityText("info")
	}

	msgField := zerolog.MessageFieldName
	if msg, ok := entry[msgField].(string); ok {
		rec.SetBody(log.StringValue(msg))
		delete(entry, msgField)
	} else if msg, ok := entry["msg"].(string); ok {
		rec.SetBody(log.StringValue(msg))
		delete(entry, "msg")
	}

	// Remaining fields become attributes
	attrs := make([]log.KeyValue, 0, len(entry))
	for k, v := range entry {
		attrs = append(attrs, log.KeyValue{Key: k, Value: anyToLogValue(v)})
	}
	rec.AddAttributes(attrs...)

	w.logger.Emit(ctx, rec)
}

// zerologLevelToSeverity accepts either zerolog's own lowercase level
// strings ("trace".."panic") or the Google Cloud Logging severity
// vocabulary ("DEBUG".."CRITICAL") InitLogger remaps them to when
// log_provider=google, since whichever one is in effect ends up in the
// level field read by emitStructured.
func zerologLevelToSeverity(level string) log.Severity {
	switch strings.ToLower(level) {
	case "trace":
		return log.SeverityTrace
	case "debug":
		return log.SeverityDebug
	case "info", "default":
		return log.SeverityInfo
	case "warn", "warning":
		return log.SeverityWarn
	case "error":
		return log.SeverityError
	case "fatal":
		return log.SeverityFatal
	case "panic", "critical":
		return log.SeverityFatal4
	default:
		return log.SeverityInfo
	}
}

func anyToLogValue(v any) log.Value {
	switch val := v.(type) {
	case string:
		return log.StringValue(val)
	case int:
		return log.IntValue(val)
	case int64:
		return log.Int64Value(val)
	case float64:
		return log.Float64Value(val)
	case bool:
		return log.BoolValue(val)
	case nil:
		return log.StringValue("")
	default:
		// For complex types, marshal to JSON string
		if b, err := json.Marshal(val); err == nil {
			return log.StringValue(string(b))
		}
		return log.StringValue("")
	}
}
