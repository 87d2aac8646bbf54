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

const gnewsBaseURL = "https://gnews.io/api/v4"

// GNewsClient searches the GNews API.
type GNewsClient struct {
	BaseURL  string
	Language string
	Country  string
	apiKey   string
	max      int
	client   *http.Client
}

// NewGNewsClient creates a GNews client returning at most maxResults articles.
func NewGNewsClient(apiKey string, maxResults int) *GNewsClient {
	return &GNewsClient{
		BaseURL:  gnewsBaseURL,
		Language: "en",
		Country:  "us",
		apiKey:   apiKey,
		max:      maxResults,
		client:   newHTTPClient(),
	}
}

// Name returns the provider name used in error messages.
func (c *GNewsClient) Name() string { return "GNews" }

// Search queries /search, or /top-headlines when a category is given.
func (c *GNewsClient) Search(ctx context.Context, q Query) ([]Article, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, apperr.Configuration("news.gnews.api_key_env", "GNews API key not configured")
	}

	params := url.Values{
		"q":       {q.Text},
		"lang":    {c.Language},
		"country": {c.Country},
		"max":     {strconv.Itoa(c.max)},
		"apikey":  {c.apiKey},
	}
	endpoint := "/search"
	if q.Category != "" {
		endpoint = "/top-headlines"
		params.Set("category", q.Category)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.BaseURL, "/")+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.External(c.Name(), 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperr.External(c.Name(), resp.StatusCode, strings.TrimSpace(string(body)), nil)
	}

	var result struct {
		Articles []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Content     string `json:"content"`
			URL         string `json:"url"`
			Image       string `json:"image"`
			PublishedAt string `json:"publishedAt"`
			Source      struct {
				Name string `json:"name"`
				URL  string `json:"url"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperr.External(c.Name(), resp.StatusCode, "decoding response", err)
	}

	articles := make([]Article, 0, len(result.Articles))
	for _, a := range result.Articles {
		if a.URL == "" || a.Title == "" {
			continue
		}
		articles = append(articles, Article{
			Title:       strings.TrimSpace(a.Title),
			Description: strings.TrimSpace(a.Description),
			Content:     firstNonEmpty(a.Content, a.Description),
			URL:         a.URL,
			URLToImage:  a.Image,
			PublishedAt: a.PublishedAt,
			Source:      Source{Name: firstNonEmpty(a.Source.Name, c.Name()), URL: a.Source.URL},
		})
		if len(articles) == c.max {
			break
		}
	}
	return articles, nil
}
