// queryapi is the Query Service's HTTP entrypoint (spec.md §4.9, §6): a bare
// http.ServeMux, a listen goroutine, and SIGINT/SIGTERM-triggered graceful
// shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"landmarkvector/internal/cache"
	"landmarkvector/internal/catalog"
	"landmarkvector/internal/config"
	"landmarkvector/internal/embedding"
	"landmarkvector/internal/observability"
	"landmarkvector/internal/query"
	"landmarkvector/internal/queryapi"
	"landmarkvector/internal/retry"
	"landmarkvector/internal/vectorstore"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("queryapi")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel, cfg.LogProvider, cfg.LogNamePrefix)

	baseCtx := context.Background()

	shutdown, err := observability.InitOTel(baseCtx, cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("queryapi: otel init failed, continuing without observability")
		shutdown = nil
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	policy := retry.FromConfig(cfg.Retry)
	httpClient := observability.NewHTTPClient(nil)

	embedHTTP := httpClient
	if cfg.Embedding.APIKey != "" {
		embedHTTP = observability.WithHeaders(httpClient, map[string]string{cfg.Embedding.APIHeader: cfg.Embedding.APIKey})
	}
	embedder := embedding.New(embedHTTP, cfg.Embedding, policy, 96)

	catalogClient := catalog.New(cfg.Catalog.BaseURL, observability.NewHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}), policy)

	store, err := vectorstore.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("construct vector store: %w", err)
	}
	defer store.Close()

	nameCache, err := cache.NewFromConfig(cfg.Cache, "landmark_name")
	if err != nil {
		return fmt.Errorf("construct name cache: %w", err)
	}

	svc := query.New(embedder, store, catalogClient, nameCache)

	mux := http.NewServeMux()
	queryapi.Register(mux, svc)

	addr := cfg.HTTPAPI.Addr
	if addr == "" {
		addr = "0.0.0.0:8080"
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info().Str("addr", addr).Msg("queryapi listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("queryapi: listen failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("queryapi: shutdown error")
	} else {
		log.Info().Msg("queryapi stopped")
	}
	return nil
}
