// ingest is the batch ingestion CLI (spec.md §2, §7): it pages through the
// landmark catalog (or accepts an explicit ID list), runs the PDF and/or
// Wikipedia processors over every landmark through the orchestrator worker
// pool, and persists a BatchStatistics summary. Uses a run()-returns-error
// shape, adapted to return a process exit code instead of logging fatally
// since batch success is partial rather than all-or-nothing.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"landmarkvector/internal/cache"
	"landmarkvector/internal/catalog"
	"landmarkvector/internal/chunker"
	"landmarkvector/internal/config"
	"landmarkvector/internal/domain"
	"landmarkvector/internal/embedding"
	"landmarkvector/internal/fetch"
	"landmarkvector/internal/metadata"
	"landmarkvector/internal/observability"
	"landmarkvector/internal/orchestrator"
	"landmarkvector/internal/processor"
	"landmarkvector/internal/retry"
	"landmarkvector/internal/summary"
	"landmarkvector/internal/vectorstore"
)

// Exit codes per spec.md §7: 0 if at least one landmark succeeded and no
// fatal error occurred, 1 if every landmark failed, 2 on a configuration or
// validation error.
const (
	exitOK        = 0
	exitAllFailed = 1
	exitConfig    = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	sourceFlag := flag.String("source", "both", "source to ingest: pdf, wikipedia, or both")
	idsFlag := flag.String("ids", "", "comma-separated landmark IDs to ingest; overrides catalog enumeration")
	pageSizeFlag := flag.Int("page-size", 50, "catalog page size used when enumerating all landmark IDs")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest: load config: %v\n", err)
		return exitConfig
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel, cfg.LogProvider, cfg.LogNamePrefix)

	sourceTypes, err := resolveSourceTypes(*sourceFlag)
	if err != nil {
		log.Error().Err(err).Msg("ingest: invalid -source flag")
		return exitConfig
	}

	baseCtx := context.Background()

	shutdown, err := observability.InitOTel(baseCtx, cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("ingest: otel init failed, continuing without observability")
		shutdown = nil
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	deps, err := wireDependencies(cfg)
	if err != nil {
		log.Error().Err(err).Msg("ingest: failed to wire dependencies")
		return exitConfig
	}
	defer deps.store.Close()

	landmarkIDs, err := resolveLandmarkIDs(baseCtx, deps.catalog, *idsFlag, *pageSizeFlag)
	if err != nil {
		log.Error().Err(err).Msg("ingest: failed to enumerate landmark IDs")
		return exitConfig
	}
	if len(landmarkIDs) == 0 {
		log.Warn().Msg("ingest: no landmark IDs to process")
		return exitOK
	}

	orchCfg := orchestrator.Config{
		Parallelism:        cfg.Orchestrator.Parallelism,
		PerLandmarkTimeout: cfg.Orchestrator.PerLandmarkTimeout,
		GlobalTimeout:      cfg.Orchestrator.GlobalTimeout,
	}

	startedAt := time.Now()
	var combined domain.BatchStatistics
	for _, sourceType := range sourceTypes {
		stats := orchestrator.Run(baseCtx, orchCfg, landmarkIDs, newProcessorFactory(sourceType, cfg, deps))
		log.Info().Str("source_type", sourceType).Int("attempted", stats.Attempted).Int("succeeded", stats.Succeeded).Int("failed", stats.Failed).Msg("ingest: source batch complete")
		combined.Attempted += stats.Attempted
		combined.Succeeded += stats.Succeeded
		combined.Failed += stats.Failed
		combined.ChunksEmbedded += stats.ChunksEmbedded
		combined.Results = append(combined.Results, stats.Results...)
	}
	finishedAt := time.Now()
	combined.Duration = finishedAt.Sub(startedAt)

	persistSummary(baseCtx, cfg, uuid.NewString(), sourceTypes, startedAt, finishedAt, combined)

	if combined.Succeeded == 0 && combined.Attempted > 0 {
		return exitAllFailed
	}
	return exitOK
}

func resolveSourceTypes(flagValue string) ([]string, error) {
	switch strings.ToLower(flagValue) {
	case "pdf":
		return []string{"pdf"}, nil
	case "wikipedia":
		return []string{"wikipedia"}, nil
	case "both", "":
		return []string{"pdf", "wikipedia"}, nil
	default:
		return nil, fmt.Errorf("unknown -source value %q", flagValue)
	}
}

func persistSummary(ctx context.Context, cfg config.Config, runID string, sourceTypes []string, startedAt, finishedAt time.Time, stats domain.BatchStatistics) {
	sink, err := summary.NewFromConfig(ctx, cfg.Summary)
	if err != nil {
		log.Warn().Err(err).Msg("ingest: summary sink unavailable, skipping persistence")
		return
	}
	rec := summary.Record{
		RunID:      runID,
		SourceType: strings.Join(sourceTypes, "+"),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Stats:      stats,
	}
	if _, err := sink.Write(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("ingest: failed to persist run summary")
	}
}

func resolveLandmarkIDs(ctx context.Context, c *catalog.Client, idsFlag string, pageSize int) ([]string, error) {
	if idsFlag != "" {
		var ids []string
		for _, id := range strings.Split(idsFlag, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	var ids []string
	for page := 1; ; page++ {
		landmarks, _, err := c.ListLandmarks(ctx, pageSize, page)
		if err != nil {
			return nil, err
		}
		if len(landmarks) == 0 {
			break
		}
		for _, lm := range landmarks {
			ids = append(ids, lm.ID)
		}
	}
	return ids, nil
}

type dependencies struct {
	catalog    *catalog.Client
	pdfFetcher *fetch.PdfFetcher
	wikiHTTP   *fetch.WikipediaFetcher
	classifier *fetch.WikipediaQualityClassifier
	chunker    *chunker.Chunker
	embedder   *embedding.Generator
	metadata   *metadata.Collector
	store      *vectorstore.Adapter
}

func wireDependencies(cfg config.Config) (*dependencies, error) {
	policy := retry.FromConfig(cfg.Retry)

	pooled := fetch.NewPooledHTTPClient(cfg.Fetch.WikiConnectTimeout, cfg.Fetch.WikiReadTimeout, 16)
	instrumented := observability.NewHTTPClient(pooled)

	catalogHTTP := observability.NewHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout})
	catalogClient := catalog.New(cfg.Catalog.BaseURL, catalogHTTP, policy)

	ch, err := chunker.New(cfg.Chunking.SizeTokens, cfg.Chunking.OverlapTokens)
	if err != nil {
		return nil, fmt.Errorf("construct chunker: %w", err)
	}

	embedHTTP := instrumented
	if cfg.Embedding.APIKey != "" {
		embedHTTP = observability.WithHeaders(instrumented, map[string]string{cfg.Embedding.APIHeader: cfg.Embedding.APIKey})
	}
	embedder := embedding.New(embedHTTP, cfg.Embedding, policy, 96)

	metaCache, err := cache.NewFromConfig(cfg.Cache, "landmark_metadata")
	if err != nil {
		return nil, fmt.Errorf("construct metadata cache: %w", err)
	}
	collector := metadata.New(catalogClient, metaCache, cfg.Cache.TTL)

	store, err := vectorstore.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("construct vector store: %w", err)
	}

	pdfFetcher := fetch.NewPdfFetcher(instrumented, policy, cfg.Fetch.PDFMaxBytes, cfg.Fetch.PDFReadTimeout, nil)
	wikiFetcher := fetch.NewWikipediaFetcher(instrumented, policy)
	classifier := fetch.NewWikipediaQualityClassifier(cfg.Fetch.QualityAPIBaseURL, instrumented, policy)

	return &dependencies{
		catalog:    catalogClient,
		pdfFetcher: pdfFetcher,
		wikiHTTP:   wikiFetcher,
		classifier: classifier,
		chunker:    ch,
		embedder:   embedder,
		metadata:   collector,
		store:      store,
	}, nil
}

func newProcessorFactory(sourceType string, cfg config.Config, deps *dependencies) func() orchestrator.Processor {
	return func() orchestrator.Processor {
		switch sourceType {
		case "pdf":
			return processor.NewPdfProcessor(deps.catalog, deps.pdfFetcher, deps.chunker, deps.embedder, deps.metadata, deps.store, cfg.Orchestrator.DeleteOnReprocess)
		default:
			return processor.NewWikipediaProcessor(deps.catalog, deps.wikiHTTP, deps.classifier, deps.chunker, deps.embedder, deps.metadata, deps.store, cfg.Orchestrator.DeleteOnReprocess)
		}
	}
}
