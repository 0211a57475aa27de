package processor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landmarkvector/internal/cache"
	"landmarkvector/internal/catalog"
	"landmarkvector/internal/chunker"
	"landmarkvector/internal/config"
	"landmarkvector/internal/domain"
	"landmarkvector/internal/embedding"
	"landmarkvector/internal/fetch"
	"landmarkvector/internal/metadata"
	"landmarkvector/internal/retry"
	"landmarkvector/internal/vectorstore"
)

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, JitterPct: 0}
}

func newEmbeddingServer(t *testing.T, dim int) *embedding.Generator {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
	t.Cleanup(srv.Close)
	cfg := config.EmbeddingConfig{BaseURL: srv.URL, Path: "/embed", ModelID: "test", Dimension: dim, Timeout: 5 * time.Second}
	return embedding.New(srv.Client(), cfg, fastPolicy(), 50)
}

func newTestAdapter(t *testing.T, dim int) *vectorstore.Adapter {
	t.Helper()
	return vectorstore.New(vectorstore.NewMemoryStore(dim), 50, 2, fastPolicy())
}

func newTestMetadataCollector(t *testing.T, catalogClient *catalog.Client) *metadata.Collector {
	t.Helper()
	return metadata.New(catalogClient, cache.NewMemory(64, time.Hour), time.Hour)
}

// catalogMux builds an httptest server answering the landmark-detail,
// buildings, and pluto endpoints the metadata collector and processors
// depend on.
func catalogMux(t *testing.T, pdfReportURL string, webContent []map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/LpcReport/LP-00123", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"lpNumber":     "LP-00123",
			"name":         "Flatiron Building",
			"borough":      "Manhattan",
			"pdfReportUrl": pdfReportURL,
			"photoStatus":  true,
		})
	})
	mux.HandleFunc("/api/LpcReport/landmark/50/1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/Pluto/LP-00123", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/WebContent/LP-00123", func(w http.ResponseWriter, r *http.Request) {
		if webContent == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(webContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPdfProcessorNoContentWhenReportURLAbsent(t *testing.T) {
	srv := catalogMux(t, "", nil)
	c := catalog.New(srv.URL, srv.Client(), fastPolicy())

	ch, err := chunker.New(500, 50)
	require.NoError(t, err)

	pdfFetcher := fetch.NewPdfFetcher(srv.Client(), fastPolicy(), 1<<20, 5*time.Second, nil)
	proc := NewPdfProcessor(c, pdfFetcher, ch, newEmbeddingServer(t, 4), newTestMetadataCollector(t, c), newTestAdapter(t, 4), true)

	result := proc.ProcessLandmark(t.Context(), "LP-00123")
	assert.True(t, result.Success)
	assert.Equal(t, domain.OutcomeNoContent, result.Outcome)
	assert.Equal(t, 0, result.Chunks)
}

func TestPdfProcessorHappyPath(t *testing.T) {
	pdfSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("This landmark was designated in 1989 and is a fine example of cast-iron architecture."))
	}))
	t.Cleanup(pdfSrv.Close)

	catSrv := catalogMux(t, pdfSrv.URL, nil)
	c := catalog.New(catSrv.URL, catSrv.Client(), fastPolicy())

	ch, err := chunker.New(500, 50)
	require.NoError(t, err)

	pdfFetcher := fetch.NewPdfFetcher(catSrv.Client(), fastPolicy(), 1<<20, 5*time.Second, fetch.WhitespaceNormalizingExtractor{})
	adapter := newTestAdapter(t, 4)
	proc := NewPdfProcessor(c, pdfFetcher, ch, newEmbeddingServer(t, 4), newTestMetadataCollector(t, c), adapter, true)

	result := proc.ProcessLandmark(t.Context(), "LP-00123")
	require.True(t, result.Success)
	assert.Equal(t, domain.OutcomeOK, result.Outcome)
	require.Equal(t, 1, result.Chunks)

	match, err := adapter.Get(t.Context(), "LP-00123-chunk-0")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "Flatiron Building", match.Metadata["name"])
}

func TestWikipediaProcessorNoContentWhenNoRefs(t *testing.T) {
	catSrv := catalogMux(t, "", nil)
	c := catalog.New(catSrv.URL, catSrv.Client(), fastPolicy())

	ch, err := chunker.New(500, 50)
	require.NoError(t, err)

	wikiFetcher := fetch.NewWikipediaFetcher(catSrv.Client(), fastPolicy())
	classifier := fetch.NewWikipediaQualityClassifier("", catSrv.Client(), fastPolicy())
	proc := NewWikipediaProcessor(c, wikiFetcher, classifier, ch, newEmbeddingServer(t, 4), newTestMetadataCollector(t, c), newTestAdapter(t, 4), true)

	result := proc.ProcessLandmark(t.Context(), "LP-00123")
	assert.True(t, result.Success)
	assert.Equal(t, domain.OutcomeNoContent, result.Outcome)
}

func TestWikipediaProcessorPartialFailureStillSucceeds(t *testing.T) {
	goodArticle := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>The Flatiron Building is a landmark.</p></body></html>"))
	}))
	t.Cleanup(goodArticle.Close)

	webContent := []map[string]string{
		{"lpNumber": "LP-00123", "url": goodArticle.URL, "title": "Flatiron Building", "recordType": "Wikipedia"},
		{"lpNumber": "LP-00123", "url": "http://127.0.0.1:1/does-not-resolve", "title": "Broken Ref", "recordType": "Wikipedia"},
	}
	catSrv := catalogMux(t, "", webContent)
	c := catalog.New(catSrv.URL, catSrv.Client(), fastPolicy())

	ch, err := chunker.New(500, 50)
	require.NoError(t, err)

	wikiFetcher := fetch.NewWikipediaFetcher(catSrv.Client(), fastPolicy())
	classifier := fetch.NewWikipediaQualityClassifier("", catSrv.Client(), fastPolicy())
	adapter := newTestAdapter(t, 4)
	proc := NewWikipediaProcessor(c, wikiFetcher, classifier, ch, newEmbeddingServer(t, 4), newTestMetadataCollector(t, c), adapter, true)

	result := proc.ProcessLandmark(t.Context(), "LP-00123")
	assert.True(t, result.Success)
	assert.Equal(t, domain.OutcomeOK, result.Outcome)
	assert.Equal(t, 1, result.ArticlesOrPages)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Broken Ref")
}

func TestWikipediaProcessorAllArticlesFailedIsFailure(t *testing.T) {
	webContent := []map[string]string{
		{"lpNumber": "LP-00123", "url": "http://127.0.0.1:1/does-not-resolve", "title": "Broken Ref", "recordType": "Wikipedia"},
	}
	catSrv := catalogMux(t, "", webContent)
	c := catalog.New(catSrv.URL, catSrv.Client(), fastPolicy())

	ch, err := chunker.New(500, 50)
	require.NoError(t, err)

	wikiFetcher := fetch.NewWikipediaFetcher(catSrv.Client(), fastPolicy())
	classifier := fetch.NewWikipediaQualityClassifier("", catSrv.Client(), fastPolicy())
	proc := NewWikipediaProcessor(c, wikiFetcher, classifier, ch, newEmbeddingServer(t, 4), newTestMetadataCollector(t, c), newTestAdapter(t, 4), true)

	result := proc.ProcessLandmark(t.Context(), "LP-00123")
	assert.False(t, result.Success)
	assert.Equal(t, domain.OutcomeFailed, result.Outcome)
	assert.Equal(t, "all_articles_failed", result.FailureReason)
}

func TestPdfProcessorFetchFailureIsFailed(t *testing.T) {
	catSrv := catalogMux(t, "http://127.0.0.1:1/unreachable-pdf", nil)
	c := catalog.New(catSrv.URL, catSrv.Client(), fastPolicy())

	ch, err := chunker.New(500, 50)
	require.NoError(t, err)

	pdfFetcher := fetch.NewPdfFetcher(catSrv.Client(), fastPolicy(), 1<<20, 2*time.Second, nil)
	proc := NewPdfProcessor(c, pdfFetcher, ch, newEmbeddingServer(t, 4), newTestMetadataCollector(t, c), newTestAdapter(t, 4), true)

	result := proc.ProcessLandmark(t.Context(), "LP-00123")
	assert.False(t, result.Success)
	assert.Equal(t, domain.OutcomeFailed, result.Outcome)
	require.Len(t, result.Errors, 1)
}
