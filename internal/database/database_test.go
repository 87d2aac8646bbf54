package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/TobiSchelling/NewsIntellect/internal/apperr"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func sampleArticle(url string) NewArticle {
	return NewArticle{
		Title:       "Test Article",
		Description: "A description",
		Content:     "Test content here",
		URL:         url,
		PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Source:      Source{Name: "Example", URL: "https://example.com"},
	}
}

func sampleAnalysis(articleID, sentiment string) NewAnalysis {
	return NewAnalysis{
		ArticleID:     articleID,
		Summary:       "S",
		Sentiment:     sentiment,
		Confidence:    90,
		PositiveScore: 80,
		NeutralScore:  15,
		NegativeScore: 5,
	}
}

func TestCreateArticle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a, err := db.CreateArticle(ctx, sampleArticle("https://example.com/test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == "" {
		t.Error("expected generated article ID")
	}

	got, err := db.GetArticleByURL(ctx, "https://example.com/test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected article by url")
	}
	if got.ID != a.ID {
		t.Errorf("expected id %q, got %q", a.ID, got.ID)
	}
	if got.Source.Name != "Example" || got.Source.URL != "https://example.com" {
		t.Errorf("source not round-tripped: %+v", got.Source)
	}
	if !got.PublishedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected publishedAt %v", got.PublishedAt)
	}
	if got.Author != "" || got.URLToImage != "" {
		t.Error("expected empty optional fields to stay empty")
	}
}

func TestCreateDuplicateArticle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateArticle(ctx, sampleArticle("https://example.com/dup")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := db.CreateArticle(ctx, sampleArticle("https://example.com/dup"))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetArticleByURLMissing(t *testing.T) {
	db := openTestDB(t)
	a, err := db.GetArticleByURL(context.Background(), "https://nowhere.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Error("expected nil for unknown url")
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	article, _ := db.CreateArticle(ctx, sampleArticle("https://x.test/1"))
	analysis, err := db.CreateAnalysis(ctx, sampleAnalysis(article.ID, "positive"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, err := db.GetAnalysesByArticleID(ctx, article.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 analysis, got %d", len(list))
	}
	if list[0].ID != analysis.ID || list[0].Summary != "S" || list[0].Confidence != 90 {
		t.Errorf("unexpected analysis %+v", list[0])
	}

	got, err := db.GetAnalysis(ctx, analysis.ID)
	if err != nil || got == nil {
		t.Fatalf("expected analysis by id, err=%v", err)
	}
	if got.ArticleID != article.ID {
		t.Errorf("expected articleId %q, got %q", article.ID, got.ArticleID)
	}
}

func TestSecondAnalysisForArticleRejected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	article, _ := db.CreateArticle(ctx, sampleArticle("https://x.test/1"))
	if _, err := db.CreateAnalysis(ctx, sampleAnalysis(article.ID, "positive")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := db.CreateAnalysis(ctx, sampleAnalysis(article.ID, "negative"))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetAllAnalysesNewestFirst(t *testing.T) {
	db := openTestDB(t)
	db.now = stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	urls := []string{"https://a.test", "https://b.test", "https://c.test"}
	for _, u := range urls {
		a, _ := db.CreateArticle(ctx, sampleArticle(u))
		if _, err := db.CreateAnalysis(ctx, sampleAnalysis(a.ID, "neutral")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	all, err := db.GetAllAnalyses(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 analyses, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Errorf("analyses not ordered newest first at %d", i)
		}
	}
	if all[0].Article.URL != "https://c.test" {
		t.Errorf("expected newest article first, got %q", all[0].Article.URL)
	}
	if all[0].Article.ID != all[0].ArticleID {
		t.Error("expected joined article to match articleId")
	}
}

func TestListAnalysesSentimentFilter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for u, s := range map[string]string{
		"https://a.test": "positive",
		"https://b.test": "negative",
		"https://c.test": "positive",
	} {
		a, _ := db.CreateArticle(ctx, sampleArticle(u))
		db.CreateAnalysis(ctx, sampleAnalysis(a.ID, s))
	}

	positive, err := db.ListAnalyses(ctx, ListFilter{Sentiment: "POSITIVE"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positive) != 2 {
		t.Errorf("expected 2 positive analyses, got %d", len(positive))
	}

	all, _ := db.ListAnalyses(ctx, ListFilter{Sentiment: "all"})
	if len(all) != 3 {
		t.Errorf("expected 'all' to disable filtering, got %d", len(all))
	}
}

func TestDeleteAnalysisKeepsArticle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	article, _ := db.CreateArticle(ctx, sampleArticle("https://x.test/1"))
	analysis, _ := db.CreateAnalysis(ctx, sampleAnalysis(article.ID, "positive"))

	if err := db.DeleteAnalysis(ctx, analysis.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := db.GetAnalysis(ctx, analysis.ID)
	if got != nil {
		t.Error("expected analysis to be deleted")
	}
	kept, _ := db.GetArticleByID(ctx, article.ID)
	if kept == nil {
		t.Error("expected article to survive analysis deletion")
	}

	err := db.DeleteAnalysis(ctx, analysis.ID)
	if !apperr.IsNotFound(err) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a1, _ := db.CreateArticle(ctx, sampleArticle("https://a.test"))
	a2, _ := db.CreateArticle(ctx, sampleArticle("https://b.test"))
	db.CreateArticle(ctx, sampleArticle("https://c.test"))
	db.CreateAnalysis(ctx, sampleAnalysis(a1.ID, "positive"))
	db.CreateAnalysis(ctx, sampleAnalysis(a2.ID, "negative"))

	stats, err := db.GetStats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Articles != 3 {
		t.Errorf("expected 3 articles, got %d", stats.Articles)
	}
	if stats.Analyses != 2 || stats.Positive != 1 || stats.Negative != 1 || stats.Neutral != 0 {
		t.Errorf("unexpected analysis counts %+v", stats)
	}
	if stats.OrphanedArticles != 1 {
		t.Errorf("expected 1 orphaned article, got %d", stats.OrphanedArticles)
	}
}

func TestConnectUnknownDriver(t *testing.T) {
	if _, err := Connect("mongo", "whatever"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestPostgresQueriesUseDollarPlaceholders(t *testing.T) {
	query, _, err := Postgres.builder().Select("id").From("articles").Where("url = ?", "u").ToSql()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if query != "SELECT id FROM articles WHERE url = $1" {
		t.Errorf("unexpected postgres query %q", query)
	}
}

func TestTimestampScan(t *testing.T) {
	want := time.Date(2024, 5, 6, 7, 8, 9, 123, time.UTC)

	var ts timestamp
	if err := ts.Scan(SQLite.timeArg(want)); err != nil {
		t.Fatalf("scan text: %v", err)
	}
	if !ts.Equal(want) {
		t.Errorf("expected %v, got %v", want, ts.Time)
	}

	if err := ts.Scan(want); err != nil {
		t.Fatalf("scan time: %v", err)
	}
	if err := ts.Scan(42); err == nil {
		t.Error("expected error for unsupported type")
	}
}
