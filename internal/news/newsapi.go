package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/TobiSchelling/NewsIntellect/internal/apperr"
)

const newsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPIClient searches NewsAPI's /everything endpoint.
type NewsAPIClient struct {
	BaseURL  string
	Language string
	apiKey   string
	max      int
	client   *http.Client
}

// NewNewsAPIClient creates a new NewsAPI client.
func NewNewsAPIClient(apiKey string, maxResults int) *NewsAPIClient {
	return &NewsAPIClient{
		BaseURL:  newsAPIBaseURL,
		Language: "en",
		apiKey:   apiKey,
		max:      maxResults,
		client:   newHTTPClient(),
	}
}

// Name returns the provider name used in error messages.
func (c *NewsAPIClient) Name() string { return "NewsAPI" }

// Search searches for articles matching a query. NewsAPI's /everything has
// no category filter, so the category is ignored.
func (c *NewsAPIClient) Search(ctx context.Context, q Query) ([]Article, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, apperr.Configuration("news.newsapi.api_key_env", "NewsAPI key not configured")
	}

	pageSize := min(c.max, 100)
	params := url.Values{
		"q":        {q.Text},
		"language": {c.Language},
		"pageSize": {strconv.Itoa(pageSize)},
		"sortBy":   {"publishedAt"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.BaseURL, "/")+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.External(c.Name(), 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperr.External(c.Name(), resp.StatusCode, strings.TrimSpace(string(body)), nil)
	}

	var result struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Content     string `json:"content"`
			URLToImage  string `json:"urlToImage"`
			PublishedAt string `json:"publishedAt"`
			Author      string `json:"author"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperr.External(c.Name(), resp.StatusCode, "decoding response", err)
	}
	if result.Status != "ok" {
		return nil, apperr.External(c.Name(), resp.StatusCode, result.Message, nil)
	}

	var articles []Article
	for _, a := range result.Articles {
		if a.URL == "" || a.Title == "" {
			continue
		}
		if a.Title == "[Removed]" || a.URL == "https://removed.com" {
			continue
		}
		articles = append(articles, Article{
			Title:       strings.TrimSpace(a.Title),
			Description: strings.TrimSpace(a.Description),
			Content:     firstNonEmpty(a.Content, a.Description),
			URL:         a.URL,
			URLToImage:  a.URLToImage,
			PublishedAt: a.PublishedAt,
			Source:      Source{Name: firstNonEmpty(a.Source.Name, c.Name())},
			Author:      a.Author,
		})
	}
	return articles, nil
}
