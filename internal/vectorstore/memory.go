package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"landmarkvector/internal/domain"
)

// memoryStore is an in-process Store used by tests so internal/processor,
// internal/query, and this package's own adapter tests never need a live
// Qdrant instance. An in-memory cosine-similarity vector store.
type memoryStore struct {
	mu        sync.RWMutex
	vectors   map[string]storedVector
	dimension int
}

type storedVector struct {
	values   []float32
	metadata domain.FlatMetadata
}

// NewMemoryStore constructs an in-memory Store for the given dimension.
func NewMemoryStore(dimension int) Store {
	return &memoryStore{vectors: make(map[string]storedVector), dimension: dimension}
}

func (m *memoryStore) Upsert(_ context.Context, records []domain.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		cp := make([]float32, len(r.Values))
		copy(cp, r.Values)
		m.vectors[r.ID] = storedVector{values: cp, metadata: r.Metadata.Clone()}
	}
	return nil
}

func (m *memoryStore) Delete(_ context.Context, filter Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, v := range m.vectors {
		if matchesFilter(v.metadata, filter) {
			delete(m.vectors, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) Query(_ context.Context, vector []float32, topK int, filter Filter, includeValues bool) ([]domain.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 {
		topK = 10
	}

	type scored struct {
		domain.Match
		score float64
	}
	var results []scored

	if vector == nil {
		// Metadata-only listing, per spec.md §4.6: "If query_vector is nil,
		// perform a metadata-only listing up to top_k."
		ids := make([]string, 0, len(m.vectors))
		for id := range m.vectors {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			v := m.vectors[id]
			if !matchesFilter(v.metadata, filter) {
				continue
			}
			match := domain.Match{ID: id, Score: 0, Metadata: v.metadata.Clone()}
			if includeValues {
				match.Values = append([]float32(nil), v.values...)
			}
			results = append(results, scored{Match: match})
			if len(results) >= topK {
				break
			}
		}
		out := make([]domain.Match, len(results))
		for i, r := range results {
			out[i] = r.Match
		}
		return out, nil
	}

	qnorm := norm(vector)
	for id, v := range m.vectors {
		if !matchesFilter(v.metadata, filter) {
			continue
		}
		s := cosine(vector, v.values, qnorm)
		match := domain.Match{ID: id, Score: s, Metadata: v.metadata.Clone()}
		if includeValues {
			match.Values = append([]float32(nil), v.values...)
		}
		results = append(results, scored{Match: match, score: s})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].score > results[j].score })
	if len(results) > topK {
		results = results[:topK]
	}
	out := make([]domain.Match, len(results))
	for i, r := range results {
		out[i] = r.Match
	}
	return out, nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*domain.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vectors[id]
	if !ok {
		return nil, nil
	}
	return &domain.Match{ID: id, Metadata: v.metadata.Clone(), Values: append([]float32(nil), v.values...)}, nil
}

func (m *memoryStore) Dimension() int { return m.dimension }

func (m *memoryStore) Close() error { return nil }

func matchesFilter(md domain.FlatMetadata, f Filter) bool {
	if len(f) == 0 {
		return true
	}
	for k, v := range f {
		sv, ok := md[k]
		if !ok {
			return false
		}
		s, ok := sv.(string)
		if !ok || s != v {
			return false
		}
	}
	return true
}

func norm(a []float32) float64 {
	var s float64
	for _, x := range a {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func cosine(a, b []float32, anorm float64) float64 {
	if anorm == 0 {
		anorm = norm(a)
	}
	bnorm := norm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	return dot(a, b) / (anorm * bnorm)
}
