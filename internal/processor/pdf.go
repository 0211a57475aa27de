package processor

import (
	"context"
	"fmt"
	"strings"

	"landmarkvector/internal/catalog"
	"landmarkvector/internal/chunker"
	"landmarkvector/internal/domain"
	"landmarkvector/internal/embedding"
	"landmarkvector/internal/fetch"
	"landmarkvector/internal/metadata"
	"landmarkvector/internal/observability"
	"landmarkvector/internal/vectorstore"
)

const pdfModule = "processor.pdf"

// PdfProcessor implements spec.md §4.7's PdfProcessor.process_landmark.
// Safe for reuse by a single orchestrator worker across landmarks; not
// required to be safe for concurrent use by multiple workers.
type PdfProcessor struct {
	catalog           *catalog.Client
	fetcher           *fetch.PdfFetcher
	chunker           *chunker.Chunker
	embedder          *embedding.Generator
	metadata          *metadata.Collector
	store             *vectorstore.Adapter
	deleteOnReprocess bool
}

// NewPdfProcessor constructs a PdfProcessor from its collaborators.
func NewPdfProcessor(c *catalog.Client, f *fetch.PdfFetcher, ch *chunker.Chunker, e *embedding.Generator, m *metadata.Collector, s *vectorstore.Adapter, deleteOnReprocess bool) *PdfProcessor {
	return &PdfProcessor{catalog: c, fetcher: f, chunker: ch, embedder: e, metadata: m, store: s, deleteOnReprocess: deleteOnReprocess}
}

// ProcessLandmark implements spec.md §4.7's PDF ingestion pipeline:
// resolve report URL → fetch bytes → extract text → chunk → collect
// metadata → embed → store, with NoContent treated as a first-class
// success at every "nothing to do" branch.
func (p *PdfProcessor) ProcessLandmark(ctx context.Context, landmarkID string) domain.ProcessingResult {
	observability.Event(ctx, pdfModule, "landmark_process_start").Str("landmark_id", landmarkID).Msg("pdf processing starting")

	landmark, err := p.catalog.GetLandmark(ctx, landmarkID)
	if err != nil {
		return failedResult(landmarkID, err)
	}
	if strings.TrimSpace(landmark.PDFReportURL) == "" {
		return noContentResult(landmarkID)
	}

	raw, err := p.fetcher.Fetch(ctx, landmark.PDFReportURL)
	if err != nil {
		return failedResult(landmarkID, err)
	}

	text, err := p.fetcher.ExtractText(raw)
	if err != nil {
		return failedResult(landmarkID, err)
	}
	if strings.TrimSpace(text) == "" {
		return noContentResult(landmarkID)
	}

	chunks, err := p.chunker.Chunk(text, domain.SourcePDF)
	if err != nil {
		return failedResult(landmarkID, err)
	}

	landmarkMetadata, err := p.metadata.Collect(ctx, landmarkID)
	if err != nil {
		return failedResult(landmarkID, err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return failedResult(landmarkID, err)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		chunks[i].Metadata = domain.NewFlatMetadata()
	}

	ids, err := p.store.StoreChunks(ctx, landmarkID, domain.SourcePDF, "", chunks, landmarkMetadata, p.deleteOnReprocess)
	if err != nil {
		return failedResult(landmarkID, err)
	}

	observability.Event(ctx, pdfModule, "landmark_process_complete").
		Str("landmark_id", landmarkID).Int("chunks", len(ids)).Msg("pdf processing complete")

	return domain.ProcessingResult{
		LandmarkID:      landmarkID,
		Success:         true,
		ArticlesOrPages: 1,
		Chunks:          len(ids),
		Outcome:         domain.OutcomeOK,
	}
}

func noContentResult(landmarkID string) domain.ProcessingResult {
	return domain.ProcessingResult{LandmarkID: landmarkID, Success: true, Outcome: domain.OutcomeNoContent}
}

func failedResult(landmarkID string, err error) domain.ProcessingResult {
	reason := failureReason(err)
	return domain.ProcessingResult{
		LandmarkID:    landmarkID,
		Success:       false,
		Outcome:       domain.OutcomeFailed,
		FailureReason: reason,
		Errors:        []string{fmt.Sprintf("%v", err)},
	}
}
