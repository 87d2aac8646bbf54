// Package news searches third-party news sources for articles.
package news

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/TobiSchelling/NewsIntellect/internal/apperr"
	"github.com/TobiSchelling/NewsIntellect/internal/config"
)

const defaultMaxResults = 10

// Source identifies the publisher of an article.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Article is a search result, shaped like the analyze payload so a client
// can post it back unchanged.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage,omitempty"`
	PublishedAt string `json:"publishedAt"`
	Source      Source `json:"source"`
	Author      string `json:"author,omitempty"`
}

// Query is a keyword search with an optional category.
type Query struct {
	Text     string `json:"query"`
	Category string `json:"category,omitempty"`
}

// Searcher finds articles matching a query.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Article, error)
	Name() string
}

// New creates the searcher selected by cfg.Provider. API keys are read
// from the environment variables the config names.
func New(cfg config.News, logger *slog.Logger) (Searcher, error) {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	switch strings.ToLower(cfg.Provider) {
	case "gnews":
		c := NewGNewsClient(os.Getenv(cfg.GNews.APIKeyEnv), maxResults)
		c.Language, c.Country = cfg.Language, cfg.Country
		return c, nil
	case "newsapi":
		c := NewNewsAPIClient(os.Getenv(cfg.NewsAPI.APIKeyEnv), maxResults)
		c.Language = cfg.Language
		return c, nil
	case "rss":
		return NewFeedSearcher(cfg.Feeds, maxResults, logger), nil
	default:
		return nil, apperr.Configuration("news.provider", fmt.Sprintf("unknown provider %q", cfg.Provider))
	}
}

func validateQuery(q Query) error {
	if strings.TrimSpace(q.Text) == "" {
		return apperr.Validation("query", "is required")
	}
	return nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
