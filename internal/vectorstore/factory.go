package vectorstore

import (
	"landmarkvector/internal/config"
	"landmarkvector/internal/retry"
)

// NewFromConfig builds the configured Store backend (Qdrant for any
// non-empty DSN, in-memory otherwise — used in tests and local runs without
// a live index) and wraps it in an Adapter per the configured batch/retry
// policy.
func NewFromConfig(c config.Config) (*Adapter, error) {
	var store Store
	if c.VectorStore.DSN != "" {
		s, err := NewQdrantStore(c.VectorStore.DSN, c.VectorStore.IndexName, c.VectorStore.Dimension, c.VectorStore.Metric)
		if err != nil {
			return nil, err
		}
		store = s
	} else {
		store = NewMemoryStore(c.VectorStore.Dimension)
	}

	policy := retry.FromConfig(c.Retry)
	return New(store, c.VectorStore.UpsertBatchSize, c.VectorStore.UpsertMaxRetry, policy), nil
}
