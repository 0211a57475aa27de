package embedding

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landmarkvector/internal/config"
	"landmarkvector/internal/retry"
)

func testConfig(url string) config.EmbeddingConfig {
	return config.EmbeddingConfig{
		BaseURL:   url,
		Path:      "/v1/embeddings",
		ModelID:   "test-model",
		Dimension: 4,
		Timeout:   5 * time.Second,
	}
}

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, JitterPct: 0}
}

func TestEmbedRetriesOn503ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := embedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range resp.Embeddings {
			resp.Embeddings[i] = []float32{0.1, 0.2, 0.3, 0.4}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := New(srv.Client(), testConfig(srv.URL), testPolicy(), 10)
	vecs, err := g.Embed(t.Context(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
	for _, v := range vecs {
		assert.Len(t, v, 4)
	}
}

func TestEmbedRejectsWrongDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1, 0.2}}})
	}))
	defer srv.Close()

	g := New(srv.Client(), testConfig(srv.URL), retry.Policy{MaxAttempts: 1}, 10)
	_, err := g.Embed(t.Context(), []string{"a"})
	require.Error(t, err)
}

func TestEmbedBatchesLargeInput(t *testing.T) {
	var maxBatch int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) > maxBatch {
			maxBatch = len(req.Input)
		}
		resp := embedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range resp.Embeddings {
			resp.Embeddings[i] = []float32{0, 0, 0, 0}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := New(srv.Client(), testConfig(srv.URL), testPolicy(), 2)
	texts := []string{"a", "b", "c", "d", "e"}
	vecs, err := g.Embed(t.Context(), texts)
	require.NoError(t, err)
	assert.Len(t, vecs, 5)
	assert.LessOrEqual(t, maxBatch, 2)
}

func TestEmbedEmptyInputReturnsEmpty(t *testing.T) {
	g := New(http.DefaultClient, testConfig("http://example.invalid"), testPolicy(), 10)
	vecs, err := g.Embed(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}
