package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"landmarkvector/internal/domain"
	"landmarkvector/internal/observability"
	"landmarkvector/internal/retry"
)

const qualityModule = "fetch.quality"

// WikipediaQualityClassifier calls the external article-quality prediction
// API for a revision ID. Classification is best-effort: per spec.md §4.2 a
// failure returns nil, never an error, since quality is optional
// metadata and must never be fatal to ingestion.
type WikipediaQualityClassifier struct {
	baseURL string
	http    *http.Client
	retry   retry.Policy
}

// NewWikipediaQualityClassifier constructs a classifier against baseURL's
// /predict endpoint.
func NewWikipediaQualityClassifier(baseURL string, httpClient *http.Client, policy retry.Policy) *WikipediaQualityClassifier {
	return &WikipediaQualityClassifier{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, retry: policy}
}

type predictRequest struct {
	RevisionID string `json:"revision_id"`
}

type predictResponse struct {
	Prediction  string             `json:"prediction"`
	Probability map[string]float64 `json:"probability"`
}

// Classify returns the best-effort quality prediction for revisionID. A nil
// classifier (baseURL unset) or any failure yields nil — this call is
// single-shot (one attempt, whatever the configured policy's MaxAttempts)
// per spec.md §4.2 ("single-shot call").
func (c *WikipediaQualityClassifier) Classify(ctx context.Context, revisionID string) *domain.Quality {
	if c == nil || c.baseURL == "" || revisionID == "" {
		return nil
	}
	policy := c.retry
	policy.MaxAttempts = 1
	q, err := retry.DoValue(ctx, policy, qualityModule, func(ctx context.Context) (*domain.Quality, error) {
		reqBody, _ := json.Marshal(predictRequest{RevisionID: revisionID})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("quality classifier status %d", resp.StatusCode)
		}
		var pr predictResponse
		if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
			return nil, err
		}
		score := pr.Probability[pr.Prediction]
		return &domain.Quality{
			Prediction:  pr.Prediction,
			Score:       score,
			Description: describeQuality(pr.Prediction),
		}, nil
	})
	if err != nil {
		observability.Warn(ctx, qualityModule, "classify").Str("revision_id", revisionID).Err(err).Msg("quality classification failed; proceeding without it")
		return nil
	}
	return q
}

func describeQuality(prediction string) string {
	switch prediction {
	case "FA":
		return "Featured article"
	case "GA":
		return "Good article"
	case "B":
		return "B-class article"
	case "C":
		return "C-class article"
	case "Start":
		return "Start-class article"
	case "Stub":
		return "Stub-class article"
	default:
		return ""
	}
}
