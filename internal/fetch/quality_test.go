package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWikipediaQualityClassifierOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "123", req.RevisionID)
		_ = json.NewEncoder(w).Encode(predictResponse{
			Prediction:  "GA",
			Probability: map[string]float64{"GA": 0.87},
		})
	}))
	defer srv.Close()

	c := NewWikipediaQualityClassifier(srv.URL, srv.Client(), testPolicy())
	q := c.Classify(context.Background(), "123")
	require.NotNil(t, q)
	assert.Equal(t, "GA", q.Prediction)
	assert.InDelta(t, 0.87, q.Score, 0.0001)
	assert.Equal(t, "Good article", q.Description)
}

func TestWikipediaQualityClassifierBestEffortOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWikipediaQualityClassifier(srv.URL, srv.Client(), testPolicy())
	q := c.Classify(context.Background(), "123")
	assert.Nil(t, q)
}

func TestWikipediaQualityClassifierNilOrEmptyInputs(t *testing.T) {
	var c *WikipediaQualityClassifier
	assert.Nil(t, c.Classify(context.Background(), "123"))

	c2 := NewWikipediaQualityClassifier("", http.DefaultClient, testPolicy())
	assert.Nil(t, c2.Classify(context.Background(), "123"))

	c3 := NewWikipediaQualityClassifier("http://example.invalid", http.DefaultClient, testPolicy())
	assert.Nil(t, c3.Classify(context.Background(), ""))
}
