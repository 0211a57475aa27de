package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"landmarkvector/internal/domain"
	"landmarkvector/internal/errs"
	"landmarkvector/internal/observability"
	"landmarkvector/internal/retry"
)

const module = "vectorstore"

const defaultBatchSize = 100
const defaultMaxRetry = 3

// Adapter is the Vector Store Adapter (spec.md §4.6): the only component
// permitted to mutate the external index. It layers ID generation, metadata
// preparation, per-record validation, batched retrying upserts, and
// correlation-logged queries on top of a concrete Store backend.
type Adapter struct {
	store       Store
	batchSize   int
	maxRetry    int
	retryPolicy retry.Policy
}

// New constructs an Adapter over store. batchSize and maxRetry fall back to
// defaults (100, 3) when non-positive.
func New(store Store, batchSize, maxRetry int, policy retry.Policy) *Adapter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxRetry <= 0 {
		maxRetry = defaultMaxRetry
	}
	return &Adapter{store: store, batchSize: batchSize, maxRetry: maxRetry, retryPolicy: policy}
}

// ValidationReport is the result of Validate.
type ValidationReport struct {
	ID           string
	Found        bool
	IDValid      bool
	MissingKeys  []string
	HasValues    bool
	ValuesLength int
	Valid        bool
}

// StoreChunks implements store_chunks: builds a VectorRecord per chunk,
// optionally deleting any existing records scoped to (landmarkID,
// sourceType, articleTitle) first, then upserts in batches and returns the
// assigned IDs in chunk order.
func (a *Adapter) StoreChunks(ctx context.Context, landmarkID string, sourceType domain.SourceType, articleTitle string, chunks []domain.Chunk, landmarkMetadata domain.FlatMetadata, replaceExisting bool) ([]string, error) {
	if replaceExisting {
		f := Filter{"landmark_id": landmarkID, "source_type": string(sourceType)}
		if articleTitle != "" {
			f["article_title"] = articleTitle
		}
		if _, err := a.DeleteByFilter(ctx, f); err != nil {
			return nil, fmt.Errorf("%s: store_chunks: delete existing: %w", module, err)
		}
	}

	records := make([]domain.VectorRecord, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	now := time.Now().UTC().Format(time.RFC3339)

	for _, c := range chunks {
		var id string
		switch sourceType {
		case domain.SourceWikipedia:
			id = NewWikipediaVectorID(c.ArticleTitle, landmarkID, c.Index)
		default:
			id = NewPDFVectorID(landmarkID, c.Index)
		}

		md := domain.NewFlatMetadata()
		md.Merge(c.Metadata)
		md.Merge(landmarkMetadata)
		md.SetInt("chunk_index", c.Index)
		md.SetInt("total_chunks", c.Total)
		md.SetString("processing_date", now)
		md.SetString("source_type", string(sourceType))
		md.SetString("landmark_id", landmarkID)
		md.SetString("text", c.Text)
		if sourceType == domain.SourceWikipedia {
			md.SetString("article_title", c.ArticleTitle)
			md.SetString("article_url", c.ArticleURL)
			md.SetString("article_revision_id", c.ArticleRevisionID)
			if c.ArticleQuality != nil {
				md.SetString("article_quality", c.ArticleQuality.Prediction)
				md.SetFloat("article_quality_score", c.ArticleQuality.Score)
				md.SetString("article_quality_description", c.ArticleQuality.Description)
			}
		}

		if err := validateRecord(id, c.Embedding, md, a.store.Dimension()); err != nil {
			return nil, fmt.Errorf("%s: store_chunks: %w", module, errs.Validation("store_chunks", err))
		}

		records = append(records, domain.VectorRecord{ID: id, Values: c.Embedding, Metadata: md})
		ids = append(ids, id)
	}

	if err := a.upsertBatched(ctx, records); err != nil {
		return nil, err
	}
	return ids, nil
}

func validateRecord(id string, values []float32, md domain.FlatMetadata, dimension int) error {
	if !ValidID(id) {
		return fmt.Errorf("vector id %q does not match expected pattern", id)
	}
	if dimension > 0 && len(values) != dimension {
		return fmt.Errorf("vector %q has %d dimensions, want %d", id, len(values), dimension)
	}
	if err := md.Validate(); err != nil {
		return fmt.Errorf("vector %q: %w", id, err)
	}
	text, _ := md["text"].(string)
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("vector %q: text is empty", id)
	}
	return nil
}

// upsertBatched splits records into batchSize-sized batches and upserts each
// with retry. On a batch failure that survives retry, it splits the batch in
// half and retries each half once before giving up on that half.
func (a *Adapter) upsertBatched(ctx context.Context, records []domain.VectorRecord) error {
	for start := 0; start < len(records); start += a.batchSize {
		end := start + a.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]
		if err := a.upsertBatchWithSplit(ctx, batch, true); err != nil {
			return fmt.Errorf("%s: upsert batch [%d:%d]: %w", module, start, end, err)
		}
	}
	return nil
}

func (a *Adapter) upsertBatchWithSplit(ctx context.Context, batch []domain.VectorRecord, allowSplit bool) error {
	policy := a.retryPolicy
	policy.MaxAttempts = a.maxRetry
	err := retry.Do(ctx, policy, "vectorstore.upsert", func(ctx context.Context) error {
		return a.store.Upsert(ctx, batch)
	})
	if err == nil {
		return nil
	}
	if !allowSplit || len(batch) <= 1 {
		return err
	}

	mid := len(batch) / 2
	err1 := a.upsertBatchWithSplit(ctx, batch[:mid], false)
	err2 := a.upsertBatchWithSplit(ctx, batch[mid:], false)
	if err1 != nil {
		return err1
	}
	return err2
}

// DeleteByFilter implements delete_by_filter. An empty result set is a
// no-op, not an error.
func (a *Adapter) DeleteByFilter(ctx context.Context, filter Filter) (int, error) {
	var n int
	err := retry.Do(ctx, a.retryPolicy, "vectorstore.delete", func(ctx context.Context) error {
		var err error
		n, err = a.store.Delete(ctx, filter)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s: delete_by_filter: %w", module, err)
	}
	return n, nil
}

// QueryParams composes the optional constraints query accepts beyond the raw
// vector/top_k.
type QueryParams struct {
	LandmarkID    string
	SourceType    domain.SourceType
	IDPrefix      string
	IncludeValues bool
	CorrelationID string
}

// Query implements query: composes the AND filter from params.LandmarkID and
// params.SourceType, emits vector_query_start/vector_query_complete events,
// and applies an optional case-insensitive ID-prefix constraint to results
// after the backend call returns.
func (a *Adapter) Query(ctx context.Context, vector []float32, topK int, extra Filter, params QueryParams) ([]domain.Match, error) {
	filter := Filter{}
	for k, v := range extra {
		filter[k] = v
	}
	if params.LandmarkID != "" {
		filter["landmark_id"] = params.LandmarkID
	}
	if params.SourceType != "" {
		filter["source_type"] = string(params.SourceType)
	}

	startEvt := observability.Event(ctx, module, "vector_query_start").
		Int("top_k", topK).
		Bool("include_values", params.IncludeValues)
	if params.CorrelationID != "" {
		startEvt = startEvt.Str("correlation_id", params.CorrelationID)
	}
	startEvt.Msg("vector query starting")

	var matches []domain.Match
	err := retry.Do(ctx, a.retryPolicy, "vectorstore.query", func(ctx context.Context) error {
		var err error
		matches, err = a.store.Query(ctx, vector, topK, filter, params.IncludeValues)
		return err
	})

	completeEvt := observability.Event(ctx, module, "vector_query_complete").
		Int("top_k", topK).
		Int("result_count", len(matches))
	if params.CorrelationID != "" {
		completeEvt = completeEvt.Str("correlation_id", params.CorrelationID)
	}
	if err != nil {
		completeEvt.Bool("error", true).Msg("vector query failed")
		return nil, fmt.Errorf("%s: query: %w", module, err)
	}
	completeEvt.Msg("vector query complete")

	if params.IDPrefix == "" {
		return matches, nil
	}
	prefix := strings.ToLower(params.IDPrefix)
	filtered := matches[:0]
	for _, m := range matches {
		if strings.HasPrefix(strings.ToLower(m.ID), prefix) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// Get implements get.
func (a *Adapter) Get(ctx context.Context, id string) (*domain.Match, error) {
	m, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: get: %w", module, err)
	}
	return m, nil
}

// Validate implements validate: checks ID regex, required-key presence, and
// vector-values presence/length against a fetched record.
func (a *Adapter) Validate(ctx context.Context, id string) (ValidationReport, error) {
	report := ValidationReport{ID: id, IDValid: ValidID(id)}

	match, err := a.store.Get(ctx, id)
	if err != nil {
		return ValidationReport{}, fmt.Errorf("%s: validate: %w", module, err)
	}
	if match == nil {
		report.Valid = false
		return report, nil
	}
	report.Found = true

	required := append([]string{}, domain.RequiredKeysShared...)
	if SourceTypeFromID(id) == domain.SourceWikipedia {
		required = append(required, domain.RequiredKeysWikipedia...)
	}
	report.MissingKeys = match.Metadata.RequiredKeysPresent(required)

	report.HasValues = len(match.Values) > 0
	report.ValuesLength = len(match.Values)

	report.Valid = report.IDValid && len(report.MissingKeys) == 0 && report.HasValues &&
		(a.store.Dimension() <= 0 || report.ValuesLength == a.store.Dimension())
	return report, nil
}

// Close releases the underlying Store's resources.
func (a *Adapter) Close() error { return a.store.Close() }
