// Package embedding implements the Embedding Generator (spec.md §4.4): a
// thin wrapper over an external embedding provider that batches inputs,
// retries transient failures under the standard backoff, and validates that
// every returned vector has the configured fixed dimension and finite
// values. Built around a standard OpenAI-compatible embeddings request
// shape, generalized into a batching, retrying, correlation-logging
// component.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"

	"landmarkvector/internal/config"
	"landmarkvector/internal/errs"
	"landmarkvector/internal/observability"
	"landmarkvector/internal/retry"
)

const module = "embedding"

// EmbeddingError is returned on a permanent failure, carrying the index of
// the offending input within the full texts slice passed to Embed (spec.md §4.4:
// "raises EmbeddingError carrying the offending input index").
type EmbeddingError struct {
	Index int
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding: input %d: %v", e.Index, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Generator wraps the external embedding provider.
type Generator struct {
	http      *http.Client
	cfg       config.EmbeddingConfig
	retry     retry.Policy
	batchSize int
}

// New constructs a Generator. batchSize bounds how many texts are sent to
// the provider per HTTP call; 0 uses a sensible default.
func New(httpClient *http.Client, cfg config.EmbeddingConfig, policy retry.Policy, batchSize int) *Generator {
	if batchSize <= 0 {
		batchSize = 96
	}
	return &Generator{http: httpClient, cfg: cfg, retry: policy, batchSize: batchSize}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse accepts either of two response shapes: a top-level
// "embeddings" array of vectors (spec.md §6), or an OpenAI-style "data"
// array of {embedding} objects. Exactly one of the two is populated by the
// provider; Vectors() picks whichever is present.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Data       []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (r embedResponse) Vectors() [][]float32 {
	if len(r.Embeddings) > 0 {
		return r.Embeddings
	}
	out := make([][]float32, len(r.Data))
	for i, d := range r.Data {
		out[i] = d.Embedding
	}
	return out
}

// Embed returns one vector per input text, preserving order. Inputs are
// batched up to the configured batch size; each batch is retried
// independently under the standard backoff.
func (g *Generator) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]
		vectors, err := g.embedBatch(ctx, batch, start)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedOne is a single-input convenience wrapper used by the query service.
func (g *Generator) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *Generator) embedBatch(ctx context.Context, batch []string, baseIndex int) ([][]float32, error) {
	observability.Event(ctx, module, "embedding_generation").Int("batch_size", len(batch)).Msg("embedding batch start")

	cctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	vectors, err := retry.DoValue(cctx, g.retry, module, func(ctx context.Context) ([][]float32, error) {
		reqBody, err := json.Marshal(embedRequest{Model: g.cfg.ModelID, Input: batch})
		if err != nil {
			return nil, errs.Internal(module, err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+g.cfg.Path, bytes.NewReader(reqBody))
		if err != nil {
			return nil, errs.Internal(module, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if g.cfg.APIHeader == "Authorization" {
			req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
		} else if g.cfg.APIHeader != "" {
			req.Header.Set(g.cfg.APIHeader, g.cfg.APIKey)
		}

		resp, err := g.http.Do(req)
		if err != nil {
			return nil, errs.Transient(module, err)
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, errs.Transient(module, readErr)
		}

		if resp.StatusCode == http.StatusRequestEntityTooLarge {
			return nil, errs.Permanent(module, fmt.Errorf("request too large for batch of %d inputs", len(batch)))
		}
		if resp.StatusCode/100 != 2 {
			return nil, errs.New(errs.HTTPStatusKind(resp.StatusCode), module, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200)))
		}

		var er embedResponse
		if err := json.Unmarshal(body, &er); err != nil {
			return nil, errs.Internal(module, fmt.Errorf("parse embedding response: %w", err))
		}
		vecs := er.Vectors()
		if len(vecs) != len(batch) {
			return nil, errs.Permanent(module, fmt.Errorf("unexpected embedding count: got %d, want %d", len(vecs), len(batch)))
		}
		for i, v := range vecs {
			if err := validateVector(v, g.cfg.Dimension); err != nil {
				return nil, &EmbeddingError{Index: baseIndex + i, Err: err}
			}
		}
		return vecs, nil
	})
	if err != nil {
		observability.ErrorEvent(ctx, module, "embedding_generation", err).Msg("embedding batch failed")
		return nil, err
	}
	observability.Event(ctx, module, "embedding_generation").Int("batch_size", len(batch)).Msg("embedding batch complete")
	return vectors, nil
}

func validateVector(v []float32, dim int) error {
	if len(v) != dim {
		return fmt.Errorf("expected %d dimensions, got %d", dim, len(v))
	}
	for _, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("non-finite vector component")
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
