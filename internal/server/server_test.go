package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/NewsIntellect/internal/apperr"
	"github.com/TobiSchelling/NewsIntellect/internal/database"
	"github.com/TobiSchelling/NewsIntellect/internal/news"
	"github.com/TobiSchelling/NewsIntellect/internal/sentiment"
	"github.com/TobiSchelling/NewsIntellect/internal/workflow"
)

type fakeSearcher struct {
	articles []news.Article
	err      error
	lastQ    news.Query
}

func (f *fakeSearcher) Search(_ context.Context, q news.Query) ([]news.Article, error) {
	f.lastQ = q
	return f.articles, f.err
}

func (f *fakeSearcher) Name() string { return "Fake" }

type fakeSummarizer struct{ summary string }

func (f fakeSummarizer) Summarize(context.Context, string) (string, error) { return f.summary, nil }

type fakeAnalyzer struct {
	result *sentiment.Result
	err    error
}

func (f fakeAnalyzer) Analyze(context.Context, string) (*sentiment.Result, error) {
	return f.result, f.err
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	db       *database.DB
	searcher *fakeSearcher
	srv      *Server
}

func newTestEnv(t *testing.T, mood fakeAnalyzer) *testEnv {
	t.Helper()
	db := openTestDB(t)
	searcher := &fakeSearcher{}
	wf := workflow.New(db, fakeSummarizer{summary: "S"}, mood, nil, testLogger())

	srv, err := New(db, searcher, wf, Options{Logger: testLogger()})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	srv.now = func() time.Time { return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) }
	return &testEnv{db: db, searcher: searcher, srv: srv}
}

func positive() fakeAnalyzer {
	return fakeAnalyzer{result: &sentiment.Result{Sentiment: "positive", Confidence: 90, PositiveScore: 80, NeutralScore: 15, NegativeScore: 5}}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

const examplePayload = `{"title":"A","content":"B","url":"https://x.test/1","publishedAt":"2024-01-01T00:00:00Z","source":{"name":"X"}}`

func TestHealthRoute(t *testing.T) {
	env := newTestEnv(t, positive())
	rec := env.do("GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSearchRoute(t *testing.T) {
	env := newTestEnv(t, positive())
	env.searcher.articles = []news.Article{{Title: "Markets rally", URL: "https://n.test/1", Source: news.Source{Name: "N"}}}

	rec := env.do("POST", "/api/search", `{"query":"markets","category":"business"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Articles []news.Article `json:"articles"`
	}
	decodeBody(t, rec, &body)
	if len(body.Articles) != 1 || body.Articles[0].Title != "Markets rally" {
		t.Errorf("unexpected articles %+v", body.Articles)
	}
	if env.searcher.lastQ.Text != "markets" || env.searcher.lastQ.Category != "business" {
		t.Errorf("query not passed through: %+v", env.searcher.lastQ)
	}
}

func TestSearchRouteProviderError(t *testing.T) {
	env := newTestEnv(t, positive())
	env.searcher.err = apperr.External("GNews", 403, "quota exceeded", nil)

	rec := env.do("POST", "/api/search", `{"query":"markets"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Message != "GNews API error: 403 - quota exceeded" {
		t.Errorf("unexpected message %q", body.Message)
	}
}

func TestSearchRouteInvalidJSON(t *testing.T) {
	env := newTestEnv(t, positive())
	rec := env.do("POST", "/api/search", `{"query":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyzeRoute(t *testing.T) {
	env := newTestEnv(t, positive())

	rec := env.do("POST", "/api/analyze", examplePayload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Analysis database.Analysis `json:"analysis"`
		Article  database.Article  `json:"article"`
	}
	decodeBody(t, rec, &body)
	if body.Analysis.Summary != "S" || body.Analysis.Sentiment != "positive" || body.Analysis.Confidence != 90 {
		t.Errorf("unexpected analysis %+v", body.Analysis)
	}
	if body.Article.URL != "https://x.test/1" || body.Analysis.ArticleID != body.Article.ID {
		t.Errorf("unexpected article %+v", body.Article)
	}
}

func TestAnalyzeRouteValidationError(t *testing.T) {
	env := newTestEnv(t, positive())

	rec := env.do("POST", "/api/analyze", `{"title":"A","content":"B","url":"not a url","publishedAt":"2024-01-01","source":{"name":"X"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if !strings.HasPrefix(body.Message, "url:") {
		t.Errorf("expected message naming url, got %q", body.Message)
	}
}

func TestAnalyzeRouteMalformedSentiment(t *testing.T) {
	env := newTestEnv(t, fakeAnalyzer{err: apperr.External("OpenAI", 0, "invalid sentiment response", nil)})

	rec := env.do("POST", "/api/analyze", examplePayload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	stats, _ := env.db.GetStats(context.Background())
	if stats.Analyses != 0 || stats.Articles != 1 {
		t.Errorf("expected article kept and no analysis, got %+v", stats)
	}
}

func TestListAnalysesRoute(t *testing.T) {
	env := newTestEnv(t, positive())
	env.do("POST", "/api/analyze", examplePayload)

	rec := env.do("GET", "/api/analyses", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Analyses []database.AnalysisWithArticle `json:"analyses"`
	}
	decodeBody(t, rec, &body)
	if len(body.Analyses) != 1 || body.Analyses[0].Article.Title != "A" {
		t.Errorf("unexpected analyses %+v", body.Analyses)
	}

	rec = env.do("GET", "/api/analyses?sentiment=negative", "")
	body.Analyses = nil
	decodeBody(t, rec, &body)
	if body.Analyses == nil || len(body.Analyses) != 0 {
		t.Errorf("expected empty list for negative filter, got %+v", body.Analyses)
	}
}

func TestDeleteAnalysisRoute(t *testing.T) {
	env := newTestEnv(t, positive())
	rec := env.do("POST", "/api/analyze", examplePayload)
	var created struct {
		Analysis database.Analysis `json:"analysis"`
	}
	decodeBody(t, rec, &created)

	rec = env.do("DELETE", "/api/analyses/"+created.Analysis.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var msg map[string]string
	decodeBody(t, rec, &msg)
	if msg["message"] == "" {
		t.Error("expected a confirmation message")
	}

	rec = env.do("DELETE", "/api/analyses/"+created.Analysis.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}

	article, _ := env.db.GetArticleByURL(context.Background(), "https://x.test/1")
	if article == nil {
		t.Error("expected article to survive deletion")
	}
}

func TestExportCSVRoute(t *testing.T) {
	env := newTestEnv(t, positive())
	env.do("POST", "/api/analyze", examplePayload)

	rec := env.do("GET", "/api/analyses/export.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "news-analysis-2024-03-04.csv") {
		t.Errorf("unexpected content disposition %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "A,X,positive,90,S,") {
		t.Errorf("unexpected csv %q", rec.Body.String())
	}
}

func TestIndexRoute(t *testing.T) {
	env := newTestEnv(t, positive())
	env.do("POST", "/api/analyze", examplePayload)

	rec := env.do("GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Analysis History") {
		t.Error("expected page heading in response body")
	}
	if !strings.Contains(body, "<p>S</p>") {
		t.Error("expected summary rendered as markdown")
	}
	if !strings.Contains(body, "positive · 90%") {
		t.Error("expected sentiment badge")
	}
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, positive())
	rec := env.do("GET", "/static/style.css", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, positive())
	req := httptest.NewRequest("OPTIONS", "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS allow-origin header")
	}
}
