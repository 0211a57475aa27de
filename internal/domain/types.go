// Package domain holds the core entities shared across the ingestion and
// query pipeline: landmarks and their associated records, chunks, flattened
// metadata, vector identifiers, and per-run result/statistics types.
package domain

import "time"

// SourceType identifies which external document a chunk or vector was
// derived from. It is recoverable from a VectorID's prefix.
type SourceType string

const (
	SourcePDF       SourceType = "pdf"
	SourceWikipedia SourceType = "wikipedia"
)

// Landmark is the canonical per-landmark record returned by the catalog
// client. It is never mutated by any downstream component.
type Landmark struct {
	ID               string
	Name             string
	Borough          string
	Neighborhood     string
	ObjectType       string
	Architect        string
	Style            string
	DesignationDate  string
	Lat              *float64
	Lon              *float64
	PDFReportURL     string
	HasPhoto         bool
}

// Building is zero or more per Landmark.
type Building struct {
	BBL     string
	BIN     string
	Block   string
	Lot     string
	Address string
	Name    string
	Lat     *float64
	Lon     *float64
}

// PlutoRecord is zero or one per Landmark.
type PlutoRecord struct {
	YearBuilt        string
	LandUse          string
	HistoricDistrict string
	Zoning           string
	LotArea          string
}

// WikipediaArticleRef is a reference to an external Wikipedia article
// associated with a landmark, as returned by the catalog's web-content
// endpoint.
type WikipediaArticleRef struct {
	LandmarkID string
	URL        string
	Title      string
	RecordType string // expected "Wikipedia", compared case-insensitively
}

// Quality is an article-quality prediction from the external classifier.
type Quality struct {
	Prediction  string // FA | GA | B | C | Start | Stub
	Score       float64
	Description string
}

// WikipediaArticle is the fetched, cleaned article content plus the
// revision ID the classifier was called against.
type WikipediaArticle struct {
	LandmarkID string
	URL        string
	Title      string
	Content    string
	RevisionID string
	Quality    *Quality
}

// Chunk is a bounded, token-aware slice of a document ready for embedding.
// Invariant: Index < Total for every chunk produced by the same document,
// and chunks are assigned Total only once the full set is known.
type Chunk struct {
	Text       string
	Index      int
	Total      int
	TokenCount int
	SourceType SourceType
	Metadata   FlatMetadata

	// Embedding is populated by the Embedding Generator before the chunk
	// reaches the vector store adapter. Nil until then.
	Embedding []float32

	// Wikipedia-only annotations; zero value for PDF chunks.
	ArticleTitle      string
	ArticleURL        string
	ArticleRevisionID string
	ArticleQuality    *Quality
}

// Outcome is the tagged result of processing a single landmark for a single
// source type. NoContent is a first-class success, not a failure — it
// models spec's requirement that zero Wikipedia articles is a success.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNoContent
	OutcomeFailed
)

// ProcessingResult is the per-landmark summary returned by a Processor.
type ProcessingResult struct {
	LandmarkID      string
	Success         bool
	ArticlesOrPages int
	Chunks          int
	Errors          []string
	Outcome         Outcome
	FailureReason   string
}

// BatchStatistics aggregates ProcessingResults across an orchestrator run.
type BatchStatistics struct {
	Attempted      int
	Succeeded      int
	Failed         int
	ChunksEmbedded int
	Duration       time.Duration
	Results        []ProcessingResult
}

// VectorRecord is a fully prepared record ready for the vector store's
// upsert operation.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata FlatMetadata
}

// Match is the uniform shape returned by vector store query/get/list
// operations.
type Match struct {
	ID       string
	Score    float64
	Metadata FlatMetadata
	Values   []float32 // only populated when IncludeValues was requested
}
