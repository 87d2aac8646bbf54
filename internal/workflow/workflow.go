// Package workflow implements article analysis: deduplicate by URL,
// summarize and classify sentiment concurrently, and persist the result.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/TobiSchelling/NewsIntellect/internal/database"
	"github.com/TobiSchelling/NewsIntellect/internal/fetch"
	"github.com/TobiSchelling/NewsIntellect/internal/sentiment"
)

// Summarizer turns article text into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SentimentAnalyzer classifies article text.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (*sentiment.Result, error)
}

// TextFetcher retrieves the full text of an article page.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Result is an analysis together with the article it belongs to.
type Result struct {
	Analysis *database.Analysis `json:"analysis"`
	Article  *database.Article  `json:"article"`
}

// Workflow analyzes articles at most once per URL.
type Workflow struct {
	store      database.Store
	summarizer Summarizer
	analyzer   SentimentAnalyzer
	fetcher    TextFetcher
	logger     *slog.Logger
	inflight   singleflight.Group
}

// New creates a workflow. fetcher may be nil to disable full-text
// enrichment.
func New(store database.Store, summarizer Summarizer, analyzer SentimentAnalyzer, fetcher TextFetcher, logger *slog.Logger) *Workflow {
	return &Workflow{
		store:      store,
		summarizer: summarizer,
		analyzer:   analyzer,
		fetcher:    fetcher,
		logger:     logger.With("component", "workflow"),
	}
}

// AnalyzeArticle returns the stored analysis for p.URL, creating the
// article and its analysis on first sight. A URL that already has an
// analysis is answered from storage without external calls.
//
// An article created by an attempt whose analysis then fails is kept; the
// next attempt for the same URL reuses it.
func (w *Workflow) AnalyzeArticle(ctx context.Context, p Payload) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	publishedAt, err := p.publishedTime()
	if err != nil {
		return nil, err
	}

	v, err, shared := w.inflight.Do(p.URL, func() (any, error) {
		return w.analyze(ctx, p, publishedAt)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		w.logger.Debug("joined in-flight analysis", "url", p.URL)
	}
	return v.(*Result), nil
}

func (w *Workflow) analyze(ctx context.Context, p Payload, publishedAt time.Time) (*Result, error) {
	article, err := w.findOrCreateArticle(ctx, p, publishedAt)
	if err != nil {
		return nil, err
	}

	existing, err := w.store.GetAnalysesByArticleID(ctx, article.ID)
	if err != nil {
		return nil, fmt.Errorf("looking up analyses: %w", err)
	}
	if len(existing) > 0 {
		w.logger.Info("returning stored analysis", "url", article.URL, "analysis", existing[0].ID)
		return &Result{Analysis: &existing[0], Article: article}, nil
	}

	text := article.Title + "\n\n" + w.content(ctx, article)

	var (
		summary string
		mood    *sentiment.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = w.summarizer.Summarize(gctx, text)
		return err
	})
	g.Go(func() error {
		var err error
		mood, err = w.analyzer.Analyze(gctx, text)
		return err
	})
	if err := g.Wait(); err != nil {
		w.logger.Warn("analysis failed", "url", article.URL, "error", err)
		return nil, err
	}

	analysis, err := w.store.CreateAnalysis(ctx, database.NewAnalysis{
		ArticleID:     article.ID,
		Summary:       summary,
		Sentiment:     mood.Sentiment,
		Confidence:    mood.Confidence,
		PositiveScore: mood.PositiveScore,
		NeutralScore:  mood.NeutralScore,
		NegativeScore: mood.NegativeScore,
	})
	if errors.Is(err, database.ErrDuplicate) {
		// Another process stored an analysis first; it wins.
		stored, lookupErr := w.store.GetAnalysesByArticleID(ctx, article.ID)
		if lookupErr != nil || len(stored) == 0 {
			return nil, fmt.Errorf("reading concurrent analysis: %w", errors.Join(err, lookupErr))
		}
		return &Result{Analysis: &stored[0], Article: article}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storing analysis: %w", err)
	}

	w.logger.Info("article analyzed",
		"url", article.URL,
		"analysis", analysis.ID,
		"sentiment", analysis.Sentiment,
		"confidence", analysis.Confidence,
	)
	return &Result{Analysis: analysis, Article: article}, nil
}

func (w *Workflow) findOrCreateArticle(ctx context.Context, p Payload, publishedAt time.Time) (*database.Article, error) {
	article, err := w.store.GetArticleByURL(ctx, p.URL)
	if err != nil {
		return nil, fmt.Errorf("looking up article: %w", err)
	}
	if article != nil {
		return article, nil
	}

	article, err = w.store.CreateArticle(ctx, p.newArticle(publishedAt))
	if errors.Is(err, database.ErrDuplicate) {
		article, err = w.store.GetArticleByURL(ctx, p.URL)
		if err == nil && article == nil {
			err = fmt.Errorf("article %s vanished after conflict", p.URL)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("creating article: %w", err)
	}
	return article, nil
}

// content returns the article text to analyze, replacing a truncated
// snippet with the fetched page text when a fetcher is configured.
func (w *Workflow) content(ctx context.Context, article *database.Article) string {
	if w.fetcher == nil || !fetch.NeedsFullText(article.Content) {
		return article.Content
	}
	full, err := w.fetcher.FetchText(ctx, article.URL)
	if err != nil {
		w.logger.Warn("full-text fetch failed, using provided content", "url", article.URL, "error", err)
		return article.Content
	}
	return full
}
