// Package query implements the Query Service (spec.md §4.9): validates a
// search request, computes its embedding, delegates to the vector store
// adapter, and enriches each match with a cached landmark display name.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"landmarkvector/internal/cache"
	"landmarkvector/internal/catalog"
	"landmarkvector/internal/corrid"
	"landmarkvector/internal/domain"
	"landmarkvector/internal/embedding"
	"landmarkvector/internal/vectorstore"
)

const module = "query"

// Request is the inbound search request (spec.md §4.9).
type Request struct {
	QueryText  string
	TopK       int
	LandmarkID string
	SourceType string // "" | "pdf" | "wikipedia"
}

// Match is a single enriched search result.
type Match struct {
	ID           string
	Score        float64
	LandmarkID   string
	LandmarkName string
	SourceType   string
	Text         string
	Metadata     map[string]any
}

// Response is the query operation's return value.
type Response struct {
	Matches       []Match `json:"matches"`
	Count         int     `json:"count"`
	CorrelationID string  `json:"correlation_id"`
}

// ValidationError reports a malformed request (spec.md §4.9 step 1).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

// Service is the Query Service.
type Service struct {
	embedder *embedding.Generator
	store    *vectorstore.Adapter
	catalog  *catalog.Client
	cache    cache.Cache
}

// New constructs a Service from its collaborators.
func New(embedder *embedding.Generator, store *vectorstore.Adapter, catalogClient *catalog.Client, nameCache cache.Cache) *Service {
	return &Service{embedder: embedder, store: store, catalog: catalogClient, cache: nameCache}
}

func validateSourceType(s string) error {
	switch s {
	case "", string(domain.SourcePDF), string(domain.SourceWikipedia):
		return nil
	default:
		return &ValidationError{Field: "source_type", Message: fmt.Sprintf("unknown source_type %q", s)}
	}
}

// Query implements spec.md §4.9's query(request) operation.
func (s *Service) Query(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.QueryText) == "" {
		return Response{}, &ValidationError{Field: "query_text", Message: "must not be empty"}
	}
	if req.TopK < 1 || req.TopK > 25 {
		return Response{}, &ValidationError{Field: "top_k", Message: "must be between 1 and 25"}
	}
	if err := validateSourceType(req.SourceType); err != nil {
		return Response{}, err
	}

	ctx, correlationID := corrid.Ensure(ctx)

	vector, err := s.embedder.EmbedOne(ctx, req.QueryText)
	if err != nil {
		return Response{}, fmt.Errorf("%s: embed query: %w", module, err)
	}

	params := vectorstore.QueryParams{
		LandmarkID:    req.LandmarkID,
		SourceType:    domain.SourceType(req.SourceType),
		CorrelationID: correlationID,
		IncludeValues: false,
	}
	matches, err := s.store.Query(ctx, vector, req.TopK, nil, params)
	if err != nil {
		return Response{}, fmt.Errorf("%s: vector query: %w", module, err)
	}

	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		out = append(out, s.enrich(ctx, m))
	}

	return Response{Matches: out, Count: len(out), CorrelationID: correlationID}, nil
}

func (s *Service) enrich(ctx context.Context, m domain.Match) Match {
	landmarkID, _ := m.Metadata["landmark_id"].(string)
	sourceType, _ := m.Metadata["source_type"].(string)
	text, _ := m.Metadata["text"].(string)

	out := Match{
		ID:         m.ID,
		Score:      m.Score,
		LandmarkID: landmarkID,
		SourceType: sourceType,
		Text:       text,
		Metadata:   m.Metadata.StringsToAPI(),
	}
	if landmarkID == "" {
		return out
	}
	out.LandmarkName = s.landmarkName(ctx, landmarkID)
	return out
}

// landmarkName resolves a display name via a TTL-cached catalog lookup. A
// lookup failure leaves the name empty rather than failing the request
// (spec.md §4.9 step 6).
func (s *Service) landmarkName(ctx context.Context, landmarkID string) string {
	key := "landmark_name:" + landmarkID
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return string(raw)
		}
	}

	landmark, err := s.catalog.GetLandmark(ctx, landmarkID)
	if err != nil {
		// Best-effort: any lookup failure leaves the name empty without
		// failing the overall query.
		return ""
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, []byte(landmark.Name), 24*time.Hour)
	}
	return landmark.Name
}
