package news

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/NewsIntellect/internal/apperr"
	"github.com/TobiSchelling/NewsIntellect/internal/config"
)

const maxConcurrentFeeds = 4

// FeedSearcher searches a fixed set of RSS/Atom feeds by keyword.
type FeedSearcher struct {
	feeds  []config.Feed
	max    int
	client *http.Client
	logger *slog.Logger
}

// NewFeedSearcher creates a searcher over feeds.
func NewFeedSearcher(feeds []config.Feed, maxResults int, logger *slog.Logger) *FeedSearcher {
	return &FeedSearcher{
		feeds:  feeds,
		max:    maxResults,
		client: newHTTPClient(),
		logger: logger.With("component", "feeds"),
	}
}

// Name returns the provider name used in error messages.
func (f *FeedSearcher) Name() string { return "RSS" }

// Search parses every feed and keeps the entries whose title or
// description contains all query terms, newest first. A feed that fails to
// parse is skipped; the search fails only when every feed fails.
func (f *FeedSearcher) Search(ctx context.Context, q Query) ([]Article, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	if len(f.feeds) == 0 {
		return nil, apperr.Configuration("news.feeds", "no feeds configured")
	}

	terms := strings.Fields(strings.ToLower(q.Text))
	fetched := time.Now().UTC()

	var (
		mu       sync.Mutex
		matches  []feedMatch
		failures int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFeeds)
	for _, fc := range f.feeds {
		g.Go(func() error {
			name := fc.Name
			if name == "" {
				name = extractSourceName(fc.URL)
			}

			// gofeed.Parser sets its translators lazily, so each feed gets its own.
			parser := gofeed.NewParser()
			parser.Client = f.client
			feed, err := parser.ParseURLWithContext(fc.URL, ctx)
			if err != nil {
				f.logger.Warn("failed to parse feed", "url", fc.URL, "error", err)
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}

			var found []feedMatch
			for _, item := range feed.Items {
				m, ok := parseItem(item, name, siteURL(feed, fc.URL), fetched)
				if ok && m.matches(terms) {
					found = append(found, m)
				}
			}
			f.logger.Debug("searched feed", "source", name, "entries", len(feed.Items), "matches", len(found))

			mu.Lock()
			matches = append(matches, found...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if failures == len(f.feeds) {
		return nil, apperr.External(f.Name(), 0, fmt.Sprintf("all %d feeds failed", failures), nil)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].published.After(matches[j].published)
	})

	seen := make(map[string]struct{})
	var articles []Article
	for _, m := range matches {
		if _, ok := seen[m.article.URL]; ok {
			continue
		}
		seen[m.article.URL] = struct{}{}
		articles = append(articles, m.article)
		if len(articles) == f.max {
			break
		}
	}
	return articles, nil
}

type feedMatch struct {
	article   Article
	published time.Time
}

func (m feedMatch) matches(terms []string) bool {
	haystack := strings.ToLower(m.article.Title + " " + m.article.Description)
	for _, t := range terms {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

// parseItem converts a feed entry. Entries without a date are stamped with
// fetched but still sort after dated ones.
func parseItem(item *gofeed.Item, source, sourceURL string, fetched time.Time) (feedMatch, bool) {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if itemURL == "" || title == "" {
		return feedMatch{}, false
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	description := stripHTML(item.Description)
	content := stripHTML(item.Content)
	if content == "" {
		content = description
	}

	stamp := published
	if stamp.IsZero() {
		stamp = fetched
	}

	a := Article{
		Title:       title,
		Description: description,
		Content:     content,
		URL:         itemURL,
		PublishedAt: stamp.UTC().Format(time.RFC3339),
		Source:      Source{Name: source, URL: sourceURL},
	}
	if item.Image != nil {
		a.URLToImage = item.Image.URL
	}
	if item.Author != nil {
		a.Author = item.Author.Name
	}
	return feedMatch{article: a, published: published}, true
}

func siteURL(feed *gofeed.Feed, feedURL string) string {
	if feed.Link != "" {
		return feed.Link
	}
	u, err := url.Parse(feedURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// stripHTML returns the visible text of an HTML fragment with whitespace
// collapsed.
func stripHTML(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return strings.Join(strings.Fields(text), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
