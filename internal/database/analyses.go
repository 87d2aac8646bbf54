package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/TobiSchelling/NewsIntellect/internal/apperr"
)

var analysisColumns = []string{
	"id", "article_id", "summary", "sentiment", "confidence",
	"positive_score", "neutral_score", "negative_score", "created_at",
}

// CreateAnalysis inserts an analysis. Returns ErrDuplicate if the article
// already has one.
func (db *DB) CreateAnalysis(ctx context.Context, in NewAnalysis) (*Analysis, error) {
	a := &Analysis{
		ID:            uuid.NewString(),
		ArticleID:     in.ArticleID,
		Summary:       in.Summary,
		Sentiment:     in.Sentiment,
		Confidence:    in.Confidence,
		PositiveScore: in.PositiveScore,
		NeutralScore:  in.NeutralScore,
		NegativeScore: in.NegativeScore,
		CreatedAt:     db.now().UTC(),
	}

	query, args, err := db.sb.Insert("analyses").
		Columns(analysisColumns...).
		Values(
			a.ID, a.ArticleID, a.Summary, a.Sentiment, a.Confidence,
			a.PositiveScore, a.NeutralScore, a.NegativeScore, db.dialect.timeArg(a.CreatedAt),
		).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		if db.dialect.isUniqueViolation(err) {
			return nil, fmt.Errorf("analysis for article %s: %w", in.ArticleID, ErrDuplicate)
		}
		return nil, fmt.Errorf("inserting analysis: %w", err)
	}
	return a, nil
}

// GetAnalysis returns a single analysis by ID, or nil.
func (db *DB) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	query, args, err := db.sb.Select(analysisColumns...).From("analyses").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	a, err := scanAnalysis(db.conn.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAnalysesByArticleID returns the analyses of an article, oldest first.
func (db *DB) GetAnalysesByArticleID(ctx context.Context, articleID string) ([]Analysis, error) {
	query, args, err := db.sb.Select(analysisColumns...).
		From("analyses").
		Where(sq.Eq{"article_id": articleID}).
		OrderBy("created_at ASC", "seq ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// GetAllAnalyses returns every analysis joined with its article, newest first.
func (db *DB) GetAllAnalyses(ctx context.Context) ([]AnalysisWithArticle, error) {
	return db.ListAnalyses(ctx, ListFilter{})
}

// ListAnalyses returns analyses joined with their articles, newest first,
// optionally restricted to one sentiment label (case-insensitive).
func (db *DB) ListAnalyses(ctx context.Context, f ListFilter) ([]AnalysisWithArticle, error) {
	cols := make([]string, 0, len(analysisColumns)+len(articleColumns))
	for _, c := range analysisColumns {
		cols = append(cols, "an."+c)
	}
	for _, c := range articleColumns {
		cols = append(cols, "ar."+c)
	}

	q := db.sb.Select(cols...).
		From("analyses an").
		Join("articles ar ON ar.id = an.article_id").
		OrderBy("an.created_at DESC", "an.seq DESC")
	if s := strings.TrimSpace(f.Sentiment); s != "" && !strings.EqualFold(s, "all") {
		q = q.Where(sq.Eq{"LOWER(an.sentiment)": strings.ToLower(s)})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnalysisWithArticle
	for rows.Next() {
		var item AnalysisWithArticle
		anDest, anFinish := analysisDest(&item.Analysis)
		arDest, arFinish := articleDest(&item.Article)
		if err := rows.Scan(append(anDest, arDest...)...); err != nil {
			return nil, err
		}
		anFinish()
		if err := arFinish(); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// DeleteAnalysis removes one analysis. The owning article is kept.
func (db *DB) DeleteAnalysis(ctx context.Context, id string) error {
	query, args, err := db.sb.Delete("analyses").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("analysis", id)
	}
	return nil
}

func analysisDest(a *Analysis) ([]any, func()) {
	var created timestamp
	dest := []any{
		&a.ID, &a.ArticleID, &a.Summary, &a.Sentiment, &a.Confidence,
		&a.PositiveScore, &a.NeutralScore, &a.NegativeScore, &created,
	}
	return dest, func() { a.CreatedAt = created.Time }
}

func scanAnalysis(row rowScanner) (*Analysis, error) {
	var a Analysis
	dest, finish := analysisDest(&a)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	finish()
	return &a, nil
}
