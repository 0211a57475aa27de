// Package chunker implements the Text Chunker (spec.md §4.3): a token-aware
// sliding-window splitter producing ordered (index, text, token_count)
// triples with a configurable overlap.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"landmarkvector/internal/domain"
	"landmarkvector/internal/util"
)

// countingTokenizer tokenizes the same way internal/util.CountTokens counts:
// a maximal run of non-space, non-punctuation runes is one word token, and
// each punctuation rune is its own token. spec.md §9 leaves the exact
// tokenizer implementation-defined; this is the one chosen and documented
// here, so that chunk.TokenCount always equals
// len(Tokenize(chunk.Text)) and a chunk boundary never lands mid-token.
type countingTokenizer struct{}

func (countingTokenizer) Tokenize(text string) []string {
	var tokens []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			word.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func (countingTokenizer) Detokenize(tokens []string) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && !isPunctToken(t) {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	return b.String()
}

func isPunctToken(t string) bool {
	if len([]rune(t)) != 1 {
		return false
	}
	r := []rune(t)[0]
	return unicode.IsPunct(r)
}

// Chunker splits a document into token-bounded, overlapping chunks via a
// sliding window: windows of chunkSize tokens step forward by
// (chunkSize - overlap) tokens, so adjacent chunks share exactly overlap
// tokens except at the document's tail.
type Chunker struct {
	chunkSize int
	overlap   int
	step      int
}

// New constructs a Chunker for the given chunk size and overlap, both
// measured in tokens per countingTokenizer. overlap must be strictly less
// than chunkSize so the sliding window always makes forward progress.
func New(chunkSizeTokens, overlapTokens int) (*Chunker, error) {
	if chunkSizeTokens <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be > 0, got %d", chunkSizeTokens)
	}
	if overlapTokens < 0 {
		return nil, fmt.Errorf("chunker: overlap must be >= 0, got %d", overlapTokens)
	}
	if overlapTokens >= chunkSizeTokens {
		return nil, fmt.Errorf("chunker: overlap (%d) must be less than chunk size (%d)", overlapTokens, chunkSizeTokens)
	}
	return &Chunker{chunkSize: chunkSizeTokens, overlap: overlapTokens, step: chunkSizeTokens - overlapTokens}, nil
}

// Chunk splits text into ordered chunks tagged with sourceType by sliding a
// chunkSize-token window forward by step tokens at a time. Empty input
// yields an empty slice. A document shorter than the chunk size yields a
// single chunk with Total=1.
func (c *Chunker) Chunk(text string, sourceType domain.SourceType) ([]domain.Chunk, error) {
	if text == "" {
		return nil, nil
	}

	tok := countingTokenizer{}
	tokens := tok.Tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	var texts []string
	for start := 0; start < len(tokens); start += c.step {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		if end <= start {
			break
		}
		chunkText := tok.Detokenize(tokens[start:end])
		if chunkText != "" {
			texts = append(texts, chunkText)
		}
		if end == len(tokens) {
			break
		}
	}

	total := len(texts)
	chunks := make([]domain.Chunk, 0, total)
	for i, t := range texts {
		chunks = append(chunks, domain.Chunk{
			Text:       t,
			Index:      i,
			Total:      total,
			TokenCount: util.CountTokens(t),
			SourceType: sourceType,
		})
	}
	return chunks, nil
}
