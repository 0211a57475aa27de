package processor

import (
	"context"
	"fmt"

	"landmarkvector/internal/catalog"
	"landmarkvector/internal/chunker"
	"landmarkvector/internal/domain"
	"landmarkvector/internal/embedding"
	"landmarkvector/internal/fetch"
	"landmarkvector/internal/metadata"
	"landmarkvector/internal/observability"
	"landmarkvector/internal/vectorstore"
)

const wikiModule = "processor.wikipedia"

// WikipediaProcessor implements spec.md §4.7's WikipediaProcessor.
// process_landmark. Safe for reuse by a single orchestrator worker across
// landmarks; not required to be safe for concurrent use by multiple
// workers.
type WikipediaProcessor struct {
	catalog           *catalog.Client
	fetcher           *fetch.WikipediaFetcher
	classifier        *fetch.WikipediaQualityClassifier
	chunker           *chunker.Chunker
	embedder          *embedding.Generator
	metadata          *metadata.Collector
	store             *vectorstore.Adapter
	deleteOnReprocess bool
}

// NewWikipediaProcessor constructs a WikipediaProcessor from its
// collaborators.
func NewWikipediaProcessor(c *catalog.Client, f *fetch.WikipediaFetcher, q *fetch.WikipediaQualityClassifier, ch *chunker.Chunker, e *embedding.Generator, m *metadata.Collector, s *vectorstore.Adapter, deleteOnReprocess bool) *WikipediaProcessor {
	return &WikipediaProcessor{catalog: c, fetcher: f, classifier: q, chunker: ch, embedder: e, metadata: m, store: s, deleteOnReprocess: deleteOnReprocess}
}

// ProcessLandmark implements spec.md §4.7's Wikipedia ingestion pipeline.
// An empty ref list is a success with zero articles, not a failure. A
// per-article fetch failure is recorded and the remaining articles are
// still processed; the landmark is only Failed if every article failed.
func (p *WikipediaProcessor) ProcessLandmark(ctx context.Context, landmarkID string) domain.ProcessingResult {
	observability.Event(ctx, wikiModule, "landmark_process_start").Str("landmark_id", landmarkID).Msg("wikipedia processing starting")

	refs, err := p.catalog.GetWikipediaRefs(ctx, landmarkID)
	if err != nil {
		return failedResult(landmarkID, err)
	}
	if len(refs) == 0 {
		return noContentResult(landmarkID)
	}

	landmarkMetadata, err := p.metadata.Collect(ctx, landmarkID)
	if err != nil {
		return failedResult(landmarkID, err)
	}

	var (
		errorsList   []string
		articlesDone int
		totalChunks  int
	)

	for _, ref := range refs {
		n, err := p.processArticle(ctx, landmarkID, ref, landmarkMetadata)
		if err != nil {
			errorsList = append(errorsList, fmt.Sprintf("%s: %v", ref.Title, err))
			continue
		}
		articlesDone++
		totalChunks += n
	}

	if articlesDone == 0 {
		return domain.ProcessingResult{
			LandmarkID:    landmarkID,
			Success:       false,
			Outcome:       domain.OutcomeFailed,
			FailureReason: "all_articles_failed",
			Errors:        errorsList,
		}
	}

	observability.Event(ctx, wikiModule, "landmark_process_complete").
		Str("landmark_id", landmarkID).Int("articles", articlesDone).Int("chunks", totalChunks).Msg("wikipedia processing complete")

	return domain.ProcessingResult{
		LandmarkID:      landmarkID,
		Success:         true,
		ArticlesOrPages: articlesDone,
		Chunks:          totalChunks,
		Outcome:         domain.OutcomeOK,
		Errors:          errorsList,
	}
}

// processArticle fetches, classifies, chunks, embeds, and stores a single
// article's chunks, returning the number of chunks stored.
func (p *WikipediaProcessor) processArticle(ctx context.Context, landmarkID string, ref domain.WikipediaArticleRef, landmarkMetadata domain.FlatMetadata) (int, error) {
	text, revisionID, err := p.fetcher.Fetch(ctx, ref.URL)
	if err != nil {
		return 0, err
	}

	quality := p.classifier.Classify(ctx, revisionID)

	chunks, err := p.chunker.Chunk(text, domain.SourceWikipedia)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		chunks[i].Metadata = domain.NewFlatMetadata()
		chunks[i].ArticleTitle = ref.Title
		chunks[i].ArticleURL = ref.URL
		chunks[i].ArticleRevisionID = revisionID
		chunks[i].ArticleQuality = quality
	}

	ids, err := p.store.StoreChunks(ctx, landmarkID, domain.SourceWikipedia, ref.Title, chunks, landmarkMetadata, p.deleteOnReprocess)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
