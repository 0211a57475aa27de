package vectorstore

import (
	"fmt"
	"regexp"
	"strings"

	"landmarkvector/internal/domain"
)

var slugDisallowed = regexp.MustCompile(`[^A-Za-z0-9_\-]`)

// Slug renders title into the restricted character set a vector ID may
// contain: spaces become underscores, then every character outside
// [A-Za-z0-9_-] is stripped. Slug is idempotent: Slug(Slug(x)) == Slug(x).
func Slug(title string) string {
	s := strings.ReplaceAll(title, " ", "_")
	return slugDisallowed.ReplaceAllString(s, "")
}

// NewPDFVectorID builds the deterministic ID for a PDF-sourced chunk:
// "{landmark_id}-chunk-{index}".
func NewPDFVectorID(landmarkID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", landmarkID, index)
}

// NewWikipediaVectorID builds the deterministic ID for a Wikipedia-sourced
// chunk: "wiki-{slug(article_title)}-{landmark_id}-chunk-{index}".
// Regenerating for the same (landmarkID, articleTitle, index) always yields
// the same ID — this is the idempotency key upserts rely on.
func NewWikipediaVectorID(articleTitle, landmarkID string, index int) string {
	return fmt.Sprintf("wiki-%s-%s-chunk-%d", Slug(articleTitle), landmarkID, index)
}

// SourceTypeFromID recovers the source type from a vector ID's prefix: a
// "wiki-" prefix means wikipedia, anything else means pdf.
func SourceTypeFromID(id string) domain.SourceType {
	if strings.HasPrefix(id, "wiki-") {
		return domain.SourceWikipedia
	}
	return domain.SourcePDF
}

var (
	pdfIDPattern  = regexp.MustCompile(`^LP-\d{5}-chunk-\d+$`)
	wikiIDPattern = regexp.MustCompile(`^wiki-.+-LP-\d{5}-chunk-\d+$`)
)

// ValidID reports whether id matches the expected shape for its recovered
// source type.
func ValidID(id string) bool {
	if strings.HasPrefix(id, "wiki-") {
		return wikiIDPattern.MatchString(id)
	}
	return pdfIDPattern.MatchString(id)
}
