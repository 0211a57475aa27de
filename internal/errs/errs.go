// Package errs defines the error taxonomy shared by every component that
// talks to an external collaborator (catalog, fetchers, embedding provider,
// vector store). Components classify failures into one of a small set of
// kinds so retry and reporting logic can stay uniform across the pipeline.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a coarse failure category. It intentionally does not distinguish
// between external collaborators; that context belongs in the wrapped
// message, not the type.
type Kind int

const (
	// KindInternal indicates an invariant violation inside the pipeline
	// itself (bad vector dimension, non-flat metadata, malformed ID).
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindTransient
	KindPermanent
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindCancelled:
		return "cancelled"
	default:
		return "internal"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// failure category without string matching.
type Error struct {
	Kind Kind
	Op   string // component/operation that raised the error, e.g. "catalog.get_landmark"
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given kind and operation label. Returns nil if err
// is nil, so it can wrap the direct result of a call without an extra check.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, err error) error { return New(KindValidation, op, err) }
func NotFound(op string, err error) error   { return New(KindNotFound, op, err) }
func Transient(op string, err error) error  { return New(KindTransient, op, err) }
func Permanent(op string, err error) error  { return New(KindPermanent, op, err) }
func Cancelled(op string, err error) error  { return New(KindCancelled, op, err) }
func Internal(op string, err error) error   { return New(KindInternal, op, err) }

// KindOf extracts the Kind of err, defaulting to KindInternal for errors
// that were never classified (a programmer error lower in the stack).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err (or any error it wraps) has the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// transientSubstrings catches failures surfaced by libraries that don't use
// this package's Kind (stdlib net errors, HTTP client errors whose status
// code was not captured as structured data).
var transientSubstrings = []string{
	"timeout",
	"temporarily unavailable",
	"temporary failure",
	"connection reset",
	"connection refused",
	"too many requests",
	"rate limit",
	"i/o timeout",
	"eof",
}

// LooksTransient is a best-effort heuristic for errors that were not raised
// through this package (e.g. straight from net/http or a vendored client).
// Prefer explicit classification at the call site; this exists for the
// boundary where a third-party client only returns a plain error.
func LooksTransient(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, KindTransient) {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, sub := range transientSubstrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// HTTPStatusKind classifies an HTTP response status code per the catalog and
// source-fetcher failure model: 404 is NotFound (not an error condition),
// other 4xx are Permanent, 5xx are Transient.
func HTTPStatusKind(status int) Kind {
	switch {
	case status == 404:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindPermanent
	case status >= 500:
		return KindTransient
	default:
		return KindInternal
	}
}
