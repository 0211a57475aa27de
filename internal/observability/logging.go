package observability

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// googleSeverity maps zerolog's lowercase level strings to the severity
// vocabulary Google Cloud Logging expects in structured JSON entries
// (https://cloud.google.com/logging/docs/structured-logging): DEFAULT,
// DEBUG, INFO, WARNING, ERROR, CRITICAL.
var googleSeverity = map[string]string{
	zerolog.LevelTraceValue: "DEBUG",
	zerolog.LevelDebugValue: "DEBUG",
	zerolog.LevelInfoValue:  "INFO",
	zerolog.LevelWarnValue:  "WARNING",
	zerolog.LevelErrorValue: "ERROR",
	zerolog.LevelFatalValue: "CRITICAL",
	zerolog.LevelPanicValue: "CRITICAL",
}

// InitLogger initializes zerolog per spec.md §6's log_provider/log_name_prefix
// config: provider selects the field vocabulary ("google" remaps to Cloud
// Logging's timestamp/severity conventions; anything else, including "",
// keeps zerolog's defaults for local/stdout consumption). namePrefix, when
// set, is stamped on every record as "logger" so multi-process deployments
// (ingest vs. queryapi) are distinguishable in aggregated log output.
//
// If logPath is non-empty, logs are written only to that file (append mode),
// not to stdout.
// If opening the file fails, logs fall back to stdout, and an error is
// printed to stderr.
func InitLogger(logPath, level, provider, namePrefix string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "google":
		zerolog.TimestampFieldName = "timestamp"
		zerolog.LevelFieldName = "severity"
		zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
			if mapped, ok := googleSeverity[l.String()]; ok {
				return mapped
			}
			return "DEFAULT"
		}
	default:
		zerolog.TimestampFieldName = "time"
		zerolog.LevelFieldName = "level"
		zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string { return l.String() }
	}

	var w io.Writer = os.Stdout
	if logPath != "" {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			// When a log file is configured, write only to the file to avoid
			// interfering with interactive UIs (e.g., TUI) that use stdout.
			w = f
		} else {
			// best-effort; continue with stdout
			_, _ = fmt.Fprintf(os.Stderr, "failed to open log file %q: %v\n", logPath, err)
		}
	}

	ctx := log.Output(w).With().Timestamp()
	if namePrefix != "" {
		ctx = ctx.Str("logger", namePrefix)
	}
	log.Logger = ctx.Logger()

	// Parse level
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}
	zerolog.SetGlobalLevel(lvl)
	// Redirect the standard library logger so ALL logs are captured.
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}
