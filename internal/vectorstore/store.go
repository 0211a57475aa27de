// Package vectorstore implements the Vector Store Adapter (spec.md §4.6):
// the only component permitted to mutate the external index. It enforces
// ID/metadata invariants, batches upserts with retry, and exposes filtered
// similarity search with correlation-traced logging. Concrete backends
// (Qdrant, in-memory) implement the low-level Store interface; Adapter
// layers ID/metadata invariants and batching policy on top of whichever
// Store is configured.
package vectorstore

import (
	"context"

	"landmarkvector/internal/domain"
)

// Filter is an equality-match filter: every key/value pair must match a
// candidate's metadata for it to be included. Composition (AND of several
// optional constraints) happens in Adapter, not here.
type Filter map[string]string

// Store is the low-level contract a concrete vector index backend
// implements. IncludeValues controls whether Query populates Match.Values.
type Store interface {
	Upsert(ctx context.Context, records []domain.VectorRecord) error
	Delete(ctx context.Context, filter Filter) (int, error)
	Query(ctx context.Context, vector []float32, topK int, filter Filter, includeValues bool) ([]domain.Match, error)
	Get(ctx context.Context, id string) (*domain.Match, error)
	Dimension() int
	Close() error
}
