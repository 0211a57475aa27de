// Package fetch implements the source fetchers: PdfFetcher, WikipediaFetcher,
// and WikipediaQualityClassifier (spec.md §4.2).
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"landmarkvector/internal/errs"
	"landmarkvector/internal/retry"
)

const pdfModule = "fetch.pdf"

// PDFTextExtractor converts raw PDF bytes to UTF-8 text. The bytes→text
// contract boundary a parser plugs into (spec.md §4.2). The default,
// DocumentTextExtractor, decodes actual PDF binary via ledongthuc/pdf;
// WhitespaceNormalizingExtractor remains available for callers that hand
// PdfFetcher already-extracted plain text (e.g. a pre-OCR'd source).
type PDFTextExtractor interface {
	ExtractText(raw []byte) (string, error)
}

// PdfFetcher downloads PDF bytes from a URL, enforcing a size cap and read
// timeout, then delegates text extraction to an injected PDFTextExtractor.
type PdfFetcher struct {
	http      *http.Client
	retry     retry.Policy
	maxBytes  int64
	timeout   time.Duration
	extractor PDFTextExtractor
}

// NewPdfFetcher constructs a PdfFetcher. extractor may be nil to use the
// ledongthuc/pdf-backed default.
func NewPdfFetcher(httpClient *http.Client, policy retry.Policy, maxBytes int64, timeout time.Duration, extractor PDFTextExtractor) *PdfFetcher {
	if extractor == nil {
		extractor = DocumentTextExtractor{}
	}
	return &PdfFetcher{http: httpClient, retry: policy, maxBytes: maxBytes, timeout: timeout, extractor: extractor}
}

// Fetch streams the PDF at url, returning its raw bytes. A response body
// exceeding maxBytes is a Permanent error (spec.md §8: "PDF bytes exceeding
// pdf_max_bytes ⇒ Permanent, landmark Failed").
func (f *PdfFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	return retry.DoValue(cctx, f.retry, pdfModule, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, errs.Internal(pdfModule, err)
		}
		resp, err := f.http.Do(req)
		if err != nil {
			return nil, errs.Transient(pdfModule, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, errs.NotFound(pdfModule, fmt.Errorf("pdf not found: %s", url))
		}
		if resp.StatusCode/100 != 2 {
			return nil, errs.New(errs.HTTPStatusKind(resp.StatusCode), pdfModule, fmt.Errorf("status %d fetching %s", resp.StatusCode, url))
		}

		limited := io.LimitReader(resp.Body, f.maxBytes+1)
		body, err := io.ReadAll(limited)
		if err != nil {
			return nil, errs.Transient(pdfModule, err)
		}
		if int64(len(body)) > f.maxBytes {
			return nil, errs.Permanent(pdfModule, fmt.Errorf("pdf exceeds max size %d bytes: %s", f.maxBytes, url))
		}
		return body, nil
	})
}

// ExtractText converts raw to UTF-8 text via the configured extractor. An
// empty result is not an error — the caller treats empty text as "no
// content" (spec.md §4.2).
func (f *PdfFetcher) ExtractText(raw []byte) (string, error) {
	return f.extractor.ExtractText(raw)
}

var whitespaceRun = regexp.MustCompile(`[ \t\f\v]+`)
var blankLineRun = regexp.MustCompile(`\n{3,}`)

// WhitespaceNormalizingExtractor collapses horizontal whitespace runs and
// excess blank lines while preserving paragraph boundaries (\n\n), without
// attempting to decode PDF structure at all. Useful only when the bytes
// handed to PdfFetcher are already plain text.
type WhitespaceNormalizingExtractor struct{}

func (WhitespaceNormalizingExtractor) ExtractText(raw []byte) (string, error) {
	s := string(raw)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = blankLineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s), nil
}

// DocumentTextExtractor decodes real PDF binary with ledongthuc/pdf, walking
// every page's content stream and concatenating its plain text, then
// applying the same whitespace normalization as WhitespaceNormalizingExtractor
// to the result. A page that fails to yield text (e.g. an image-only scan)
// is skipped rather than failing the whole document.
type DocumentTextExtractor struct{}

func (DocumentTextExtractor) ExtractText(raw []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", errs.Permanent(pdfModule, fmt.Errorf("parse pdf: %w", err))
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	s := whitespaceRun.ReplaceAllString(b.String(), " ")
	s = blankLineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s), nil
}
