package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"

	"landmarkvector/internal/errs"
	"landmarkvector/internal/retry"
)

const wikiModule = "fetch.wikipedia"

// WikipediaFetcher downloads and cleans a Wikipedia article, returning
// plaintext and the revision ID embedded in the rendered page. It reuses a
// single pooled *http.Client across landmarks (keep-alive), matching
// spec.md §4.2's connection-reuse requirement; the caller is responsible
// for constructing that client with the configured connect/read timeouts.
type WikipediaFetcher struct {
	http  *http.Client
	retry retry.Policy
}

// NewWikipediaFetcher constructs a WikipediaFetcher over a shared pooled
// HTTP client.
func NewWikipediaFetcher(httpClient *http.Client, policy retry.Policy) *WikipediaFetcher {
	return &WikipediaFetcher{http: httpClient, retry: policy}
}

// Fetch downloads the article at url and returns its cleaned plaintext plus
// the revision ID extracted from the rendered page.
func (f *WikipediaFetcher) Fetch(ctx context.Context, articleURL string) (text string, revisionID string, err error) {
	type result struct {
		text string
		rev  string
	}
	r, err := retry.DoValue(ctx, f.retry, wikiModule, func(ctx context.Context) (result, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
		if err != nil {
			return result{}, errs.Internal(wikiModule, err)
		}
		req.Header.Set("Accept", "text/html")
		resp, err := f.http.Do(req)
		if err != nil {
			return result{}, errs.Transient(wikiModule, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return result{}, errs.NotFound(wikiModule, fmt.Errorf("article not found: %s", articleURL))
		}
		if resp.StatusCode/100 != 2 {
			return result{}, errs.New(errs.HTTPStatusKind(resp.StatusCode), wikiModule, fmt.Errorf("status %d fetching %s", resp.StatusCode, articleURL))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return result{}, errs.Transient(wikiModule, err)
		}
		html := string(body)

		finalURL := articleURL
		if resp.Request != nil && resp.Request.URL != nil {
			finalURL = resp.Request.URL.String()
		}

		plaintext, convErr := cleanArticleHTML(html, finalURL)
		if convErr != nil {
			return result{}, errs.Permanent(wikiModule, convErr)
		}
		return result{text: plaintext, rev: extractRevisionID(html)}, nil
	})
	if err != nil {
		return "", "", err
	}
	return r.text, r.rev, nil
}

// cleanArticleHTML strips navigation, references, infoboxes, and tables
// from the article body (via go-readability's main-content extraction) and
// converts the remainder to plain paragraph text (via html-to-markdown,
// then markdown syntax is stripped down to \n\n-joined prose).
func cleanArticleHTML(html, pageURL string) (string, error) {
	base, _ := url.Parse(pageURL)
	art, rerr := readability.FromReader(strings.NewReader(html), base)
	articleHTML := html
	if rerr == nil && strings.TrimSpace(art.Content) != "" {
		articleHTML = art.Content
	}

	md, err := htmltomarkdown.ConvertString(articleHTML,
		converter.WithDomain(baseOrigin(pageURL)),
	)
	if err != nil {
		return "", fmt.Errorf("wikipedia html to markdown: %w", err)
	}

	return markdownToParagraphs(md), nil
}

var (
	mdHeading   = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	mdLink      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdEmphasis  = regexp.MustCompile(`[*_` + "`" + `]+`)
	blankRunsRE = regexp.MustCompile(`\n{3,}`)
)

// markdownToParagraphs strips residual markdown syntax (headings, link
// targets, emphasis markers, tables) and collapses blank-line runs,
// preserving \n\n between paragraphs.
func markdownToParagraphs(md string) string {
	s := mdLink.ReplaceAllString(md, "$1")
	s = mdHeading.ReplaceAllString(s, "")
	s = mdEmphasis.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln)
		if strings.HasPrefix(trimmed, "|") {
			continue // table row
		}
		kept = append(kept, trimmed)
	}
	s = strings.Join(kept, "\n")
	s = blankRunsRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

var (
	revFromScript = regexp.MustCompile(`"wgRevisionId"\s*:\s*(\d+)`)
	revFromMeta   = regexp.MustCompile(`(?i)<meta[^>]+property="mw:RevisionId"[^>]+content="(\d+)"`)
	revFromQuery  = regexp.MustCompile(`[?&]oldid=(\d+)`)
)

// extractRevisionID pulls the MediaWiki revision ID out of a rendered
// article page, trying the embedded JS config object first, then the
// Wikimedia REST HTML output's meta tag, then a same-page oldid query
// param. Returns "" if none are present — revision ID absence is not fatal;
// the quality classifier is simply skipped for that article.
func extractRevisionID(html string) string {
	if m := revFromScript.FindStringSubmatch(html); len(m) == 2 {
		return m[1]
	}
	if m := revFromMeta.FindStringSubmatch(html); len(m) == 2 {
		return m[1]
	}
	if m := revFromQuery.FindStringSubmatch(html); len(m) == 2 {
		return m[1]
	}
	return ""
}

func baseOrigin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// NewPooledHTTPClient builds the keep-alive pooled client WikipediaFetcher
// (and the other fetchers) should share across landmarks within a run.
func NewPooledHTTPClient(connectTimeout, readTimeout time.Duration, maxConnsPerHost int) *http.Client {
	transport := &http.Transport{
		MaxConnsPerHost:       maxConnsPerHost,
		MaxIdleConnsPerHost:   maxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
	}
	return &http.Client{Transport: transport, Timeout: readTimeout}
}
