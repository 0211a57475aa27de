package queryapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landmarkvector/internal/cache"
	"landmarkvector/internal/catalog"
	"landmarkvector/internal/config"
	"landmarkvector/internal/domain"
	"landmarkvector/internal/embedding"
	"landmarkvector/internal/query"
	"landmarkvector/internal/retry"
	"landmarkvector/internal/vectorstore"
)

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, JitterPct: 0}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dim := 4

	embedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		type resp struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		out := resp{Embeddings: make([][]float32, len(req.Input))}
		for i := range out.Embeddings {
			v := make([]float32, dim)
			for j := range v {
				v[j] = 0.01
			}
			out.Embeddings[i] = v
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(embedSrv.Close)
	embedder := embedding.New(embedSrv.Client(), config.EmbeddingConfig{BaseURL: embedSrv.URL, Path: "/embed", ModelID: "test", Dimension: dim, Timeout: 5 * time.Second}, fastPolicy(), 50)

	catMux := http.NewServeMux()
	catMux.HandleFunc("/api/LpcReport/LP-00123", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"lpNumber": "LP-00123", "name": "Flatiron Building", "borough": "Manhattan"})
	})
	catSrv := httptest.NewServer(catMux)
	t.Cleanup(catSrv.Close)
	catalogClient := catalog.New(catSrv.URL, catSrv.Client(), fastPolicy())

	adapter := vectorstore.New(vectorstore.NewMemoryStore(dim), 10, 2, fastPolicy())
	chunks := []domain.Chunk{{Index: 0, Text: "The Flatiron Building is a cast-iron landmark."}}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = 0.01
	}
	chunks[0].Embedding = vec
	chunks[0].Metadata = domain.NewFlatMetadata()
	_, err := adapter.StoreChunks(t.Context(), "LP-00123", domain.SourcePDF, "", chunks, domain.FlatMetadata{"name": "Flatiron Building"}, false)
	require.NoError(t, err)

	svc := query.New(embedder, adapter, catalogClient, cache.NewMemory(16, time.Hour))

	mux := http.NewServeMux()
	Register(mux, svc)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQueryEndpointHappyPath(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(map[string]any{"query_text": "cast iron landmark", "top_k": 5})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/query", bytes.NewReader(body))
	req.Header.Set("X-Correlation-ID", "test-corr-id")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out query.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "test-corr-id", out.CorrelationID)
	assert.Equal(t, "test-corr-id", resp.Header.Get("X-Correlation-ID"))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Flatiron Building", out.Matches[0].LandmarkName)
}

func TestQueryEndpointRejectsInvalidTopK(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(map[string]any{"query_text": "cast iron", "top_k": 100})
	resp, err := http.Post(srv.URL+"/api/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var envelope map[string]map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "validation_error", envelope["error"]["code"])
	assert.Equal(t, envelope["error"]["correlation_id"], resp.Header.Get("X-Correlation-ID"))
	assert.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}

func TestQueryEndpointRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/query", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueryLandmarkEndpointScopesToPathID(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(map[string]any{"query_text": "cast iron landmark"})
	resp, err := http.Post(srv.URL+"/api/query/landmark/LP-00123", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out query.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	for _, m := range out.Matches {
		assert.Equal(t, "LP-00123", m.LandmarkID)
	}
}

func TestQueryEndpointRejectsWrongMethod(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/query")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
