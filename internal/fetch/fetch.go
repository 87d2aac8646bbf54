// Package fetch retrieves full article text when a news provider only
// returned a truncated snippet.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the snippet length below which content is treated as
// truncated.
const minContentLength = 200

// truncatedMarker matches the "[+1234 chars]" suffix news APIs append to
// cut-off content.
var truncatedMarker = regexp.MustCompile(`\[\+\d+ chars\]\s*$`)

// NeedsFullText reports whether content looks like a truncated snippet.
func NeedsFullText(content string) bool {
	content = strings.TrimSpace(content)
	return truncatedMarker.MatchString(content) || utf8.RuneCountInString(content) < minContentLength
}

// Fetcher fetches article pages and extracts their readable text.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a new fetcher.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchText downloads articleURL and returns its main text. It fails when
// the page cannot be fetched or has no extractable text.
func (f *Fetcher) FetchText(ctx context.Context, articleURL string) (string, error) {
	parsedURL, err := url.Parse(articleURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsIntellect/1.0 (article reader)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", articleURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetching %s: %s", articleURL, resp.Status)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", articleURL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) <= 100 {
		return "", fmt.Errorf("no extractable content at %s", articleURL)
	}
	return text, nil
}
