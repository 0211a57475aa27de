// Package config loads runtime configuration for the ingestion and query
// pipeline from environment variables, with an optional YAML overlay for
// values that are awkward to express as env vars.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// VectorStoreConfig describes how to reach the external vector index.
type VectorStoreConfig struct {
	DSN             string // e.g. "host:6334?api_key=..."
	IndexName       string
	Namespace       string
	Dimension       int
	Metric          string // cosine | euclidean | dot | manhattan
	UpsertBatchSize int
	UpsertMaxRetry  int
}

// ChunkingConfig controls the text chunker.
type ChunkingConfig struct {
	SizeTokens    int
	OverlapTokens int
}

// EmbeddingConfig describes the external embedding provider.
type EmbeddingConfig struct {
	BaseURL   string
	Path      string
	ModelID   string
	Dimension int
	APIHeader string
	APIKey    string
	Timeout   time.Duration
}

// CatalogConfig describes the external landmark catalog provider.
type CatalogConfig struct {
	BaseURL string
	Timeout time.Duration
}

// FetchConfig controls PDF and Wikipedia source fetchers.
type FetchConfig struct {
	PDFMaxBytes        int64
	PDFReadTimeout     time.Duration
	WikiReadTimeout    time.Duration
	WikiConnectTimeout time.Duration
	QualityAPIBaseURL  string
	QualityAPITimeout  time.Duration
}

// OrchestratorConfig controls the ingestion worker pool.
type OrchestratorConfig struct {
	Parallelism        int
	PerLandmarkTimeout time.Duration
	GlobalTimeout      time.Duration
	DeleteOnReprocess  bool
}

// CacheConfig controls the metadata/catalog caches.
type CacheConfig struct {
	Backend string // memory | redis
	TTL     time.Duration
	RedisAddr string
	RedisDB   int
}

// SummaryConfig controls optional persistence of per-run batch summaries.
// S3AccessKeyID/S3SecretKey are optional; when unset the S3 sink falls back
// to the AWS SDK's default credential chain (environment, shared config,
// instance role).
type SummaryConfig struct {
	Dir           string
	S3Bucket      string
	S3Prefix      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
}

// ObsConfig configures OpenTelemetry tracing/metrics export.
type ObsConfig struct {
	OTLP           string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// HTTPAPIConfig controls the query HTTP server.
type HTTPAPIConfig struct {
	Addr string
}

// RetryPolicy is the shared exponential-backoff-with-jitter policy applied to
// every retryable external call.
type RetryPolicy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterPct    float64
}

// Config is the fully resolved runtime configuration.
type Config struct {
	LogLevel      string
	LogPath       string
	LogProvider   string // stdout | google
	LogNamePrefix string

	VectorStore  VectorStoreConfig
	Chunking     ChunkingConfig
	Embedding    EmbeddingConfig
	Catalog      CatalogConfig
	Fetch        FetchConfig
	Orchestrator OrchestratorConfig
	Cache        CacheConfig
	Summary      SummaryConfig
	Obs          ObsConfig
	HTTPAPI      HTTPAPIConfig
	Retry        RetryPolicy
}

// Load builds a Config from environment variables (optionally loaded from a
// .env file) with an optional YAML overlay named by CONFIG_FILE. Env vars
// always win over the YAML overlay so deployments can patch a checked-in
// config file with secrets at runtime.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayYAML(&cfg, path); err != nil {
			return Config{}, fmt.Errorf("config: load yaml overlay %q: %w", path, err)
		}
	}

	cfg.LogLevel = firstNonEmpty(os.Getenv("LOG_LEVEL"), cfg.LogLevel)
	cfg.LogPath = firstNonEmpty(os.Getenv("LOG_PATH"), cfg.LogPath)
	cfg.LogProvider = firstNonEmpty(os.Getenv("LOG_PROVIDER"), cfg.LogProvider)
	cfg.LogNamePrefix = firstNonEmpty(os.Getenv("LOG_NAME_PREFIX"), cfg.LogNamePrefix)

	cfg.VectorStore.DSN = firstNonEmpty(os.Getenv("VECTOR_STORE_DSN"), cfg.VectorStore.DSN)
	cfg.VectorStore.IndexName = firstNonEmpty(os.Getenv("VECTOR_INDEX_NAME"), cfg.VectorStore.IndexName)
	if v, ok := os.LookupEnv("VECTOR_NAMESPACE"); ok {
		cfg.VectorStore.Namespace = v
	}
	cfg.VectorStore.Metric = firstNonEmpty(os.Getenv("VECTOR_METRIC"), cfg.VectorStore.Metric)
	cfg.VectorStore.Dimension = intFromEnv("EMBEDDING_DIMENSION", cfg.VectorStore.Dimension)
	cfg.VectorStore.UpsertBatchSize = intFromEnv("UPSERT_BATCH_SIZE", cfg.VectorStore.UpsertBatchSize)
	cfg.VectorStore.UpsertMaxRetry = intFromEnv("UPSERT_MAX_RETRIES", cfg.VectorStore.UpsertMaxRetry)

	cfg.Chunking.SizeTokens = intFromEnv("CHUNK_SIZE_TOKENS", cfg.Chunking.SizeTokens)
	cfg.Chunking.OverlapTokens = intFromEnv("CHUNK_OVERLAP_TOKENS", cfg.Chunking.OverlapTokens)

	cfg.Embedding.BaseURL = firstNonEmpty(os.Getenv("EMBEDDING_BASE_URL"), cfg.Embedding.BaseURL)
	cfg.Embedding.Path = firstNonEmpty(os.Getenv("EMBEDDING_PATH"), cfg.Embedding.Path)
	cfg.Embedding.ModelID = firstNonEmpty(os.Getenv("EMBEDDING_MODEL_ID"), cfg.Embedding.ModelID)
	cfg.Embedding.Dimension = intFromEnv("EMBEDDING_DIMENSION", cfg.Embedding.Dimension)
	cfg.Embedding.APIHeader = firstNonEmpty(os.Getenv("EMBEDDING_API_HEADER"), cfg.Embedding.APIHeader)
	cfg.Embedding.APIKey = firstNonEmpty(os.Getenv("EMBEDDING_API_KEY"), cfg.Embedding.APIKey)
	cfg.Embedding.Timeout = durationFromEnv("EMBEDDING_TIMEOUT_S", cfg.Embedding.Timeout)

	cfg.Catalog.BaseURL = firstNonEmpty(os.Getenv("CATALOG_BASE_URL"), cfg.Catalog.BaseURL)
	cfg.Catalog.Timeout = durationFromEnv("CATALOG_TIMEOUT_S", cfg.Catalog.Timeout)

	cfg.Fetch.PDFMaxBytes = int64FromEnv("PDF_MAX_BYTES", cfg.Fetch.PDFMaxBytes)
	cfg.Fetch.PDFReadTimeout = durationFromEnv("PDF_READ_TIMEOUT_S", cfg.Fetch.PDFReadTimeout)
	cfg.Fetch.WikiReadTimeout = durationFromEnvFloat("WIKI_READ_TIMEOUT_S", cfg.Fetch.WikiReadTimeout)
	cfg.Fetch.WikiConnectTimeout = durationFromEnvFloat("WIKI_CONNECT_TIMEOUT_S", cfg.Fetch.WikiConnectTimeout)
	cfg.Fetch.QualityAPIBaseURL = firstNonEmpty(os.Getenv("QUALITY_API_BASE_URL"), cfg.Fetch.QualityAPIBaseURL)
	cfg.Fetch.QualityAPITimeout = durationFromEnv("QUALITY_API_TIMEOUT_S", cfg.Fetch.QualityAPITimeout)

	cfg.Orchestrator.Parallelism = intFromEnv("PARALLELISM", cfg.Orchestrator.Parallelism)
	cfg.Orchestrator.PerLandmarkTimeout = durationFromEnv("PER_LANDMARK_TIMEOUT_S", cfg.Orchestrator.PerLandmarkTimeout)
	cfg.Orchestrator.GlobalTimeout = durationFromEnv("GLOBAL_TIMEOUT_S", cfg.Orchestrator.GlobalTimeout)
	cfg.Orchestrator.DeleteOnReprocess = boolFromEnv("DELETE_EXISTING_ON_REPROCESS", cfg.Orchestrator.DeleteOnReprocess)

	cfg.Cache.Backend = firstNonEmpty(os.Getenv("CACHE_BACKEND"), cfg.Cache.Backend)
	cfg.Cache.TTL = durationFromEnv("CACHE_TTL_S", cfg.Cache.TTL)
	cfg.Cache.RedisAddr = firstNonEmpty(os.Getenv("REDIS_ADDR"), cfg.Cache.RedisAddr)
	cfg.Cache.RedisDB = intFromEnv("REDIS_DB", cfg.Cache.RedisDB)

	cfg.Summary.Dir = firstNonEmpty(os.Getenv("SUMMARY_DIR"), cfg.Summary.Dir)
	cfg.Summary.S3Bucket = firstNonEmpty(os.Getenv("SUMMARY_S3_BUCKET"), cfg.Summary.S3Bucket)
	cfg.Summary.S3Prefix = firstNonEmpty(os.Getenv("SUMMARY_S3_PREFIX"), cfg.Summary.S3Prefix)
	cfg.Summary.S3Region = firstNonEmpty(os.Getenv("SUMMARY_S3_REGION"), cfg.Summary.S3Region)
	cfg.Summary.S3AccessKeyID = firstNonEmpty(os.Getenv("SUMMARY_S3_ACCESS_KEY_ID"), cfg.Summary.S3AccessKeyID)
	cfg.Summary.S3SecretKey = firstNonEmpty(os.Getenv("SUMMARY_S3_SECRET_KEY"), cfg.Summary.S3SecretKey)

	cfg.Obs.OTLP = firstNonEmpty(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), cfg.Obs.OTLP)
	cfg.Obs.ServiceName = firstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), cfg.Obs.ServiceName)
	cfg.Obs.ServiceVersion = firstNonEmpty(os.Getenv("SERVICE_VERSION"), cfg.Obs.ServiceVersion)
	cfg.Obs.Environment = firstNonEmpty(os.Getenv("DEPLOYMENT_ENVIRONMENT"), cfg.Obs.Environment)

	cfg.HTTPAPI.Addr = firstNonEmpty(os.Getenv("HTTP_ADDR"), cfg.HTTPAPI.Addr)

	if cfg.VectorStore.IndexName == "" {
		return Config{}, fmt.Errorf("config: VECTOR_INDEX_NAME is required")
	}
	if cfg.Embedding.ModelID == "" {
		return Config{}, fmt.Errorf("config: EMBEDDING_MODEL_ID is required")
	}

	return cfg, nil
}

func defaults() Config {
	return Config{
		LogLevel:      "info",
		LogProvider:   "stdout",
		LogNamePrefix: "landmarkvector",
		VectorStore: VectorStoreConfig{
			Dimension:       1536,
			Metric:          "cosine",
			UpsertBatchSize: 100,
			UpsertMaxRetry:  3,
		},
		Chunking: ChunkingConfig{
			SizeTokens:    500,
			OverlapTokens: 50,
		},
		Embedding: EmbeddingConfig{
			Path:      "/v1/embeddings",
			Dimension: 1536,
			APIHeader: "Authorization",
			Timeout:   30 * time.Second,
		},
		Catalog: CatalogConfig{
			Timeout: 15 * time.Second,
		},
		Fetch: FetchConfig{
			PDFMaxBytes:        52428800,
			PDFReadTimeout:     60 * time.Second,
			WikiReadTimeout:    27 * time.Second,
			WikiConnectTimeout: 3050 * time.Millisecond,
			QualityAPITimeout:  10 * time.Second,
		},
		Orchestrator: OrchestratorConfig{
			Parallelism:        4,
			PerLandmarkTimeout: 5 * time.Minute,
			GlobalTimeout:      6 * time.Hour,
			DeleteOnReprocess:  true,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     24 * time.Hour,
		},
		Obs: ObsConfig{
			ServiceName:    "landmarkvector",
			ServiceVersion: "dev",
			Environment:    "development",
		},
		HTTPAPI: HTTPAPIConfig{
			Addr: ":8080",
		},
		Retry: RetryPolicy{
			MaxAttempts: 5,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    30 * time.Second,
			JitterPct:   0.2,
		},
	}
}

// yamlOverlay mirrors the subset of Config fields an operator is likely to
// want to check into a config file rather than set as env vars.
type yamlOverlay struct {
	VectorStore struct {
		IndexName string `yaml:"index_name"`
		Namespace string `yaml:"namespace"`
		Metric    string `yaml:"metric"`
	} `yaml:"vector_store"`
	Chunking struct {
		SizeTokens    int `yaml:"size_tokens"`
		OverlapTokens int `yaml:"overlap_tokens"`
	} `yaml:"chunking"`
	LogProvider   string `yaml:"log_provider"`
	LogNamePrefix string `yaml:"log_name_prefix"`
}

func overlayYAML(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var ov yamlOverlay
	if err := yaml.Unmarshal(b, &ov); err != nil {
		return err
	}
	if ov.VectorStore.IndexName != "" {
		cfg.VectorStore.IndexName = ov.VectorStore.IndexName
	}
	if ov.VectorStore.Namespace != "" {
		cfg.VectorStore.Namespace = ov.VectorStore.Namespace
	}
	if ov.VectorStore.Metric != "" {
		cfg.VectorStore.Metric = ov.VectorStore.Metric
	}
	if ov.Chunking.SizeTokens != 0 {
		cfg.Chunking.SizeTokens = ov.Chunking.SizeTokens
	}
	if ov.Chunking.OverlapTokens != 0 {
		cfg.Chunking.OverlapTokens = ov.Chunking.OverlapTokens
	}
	if ov.LogProvider != "" {
		cfg.LogProvider = ov.LogProvider
	}
	if ov.LogNamePrefix != "" {
		cfg.LogNamePrefix = ov.LogNamePrefix
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func intFromEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func int64FromEnv(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func boolFromEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func durationFromEnvFloat(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return time.Duration(secs * float64(time.Second))
}
