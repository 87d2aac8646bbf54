package database

import (
	"context"
	"errors"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint:
// a second article with the same URL, or a second analysis for one article.
var ErrDuplicate = errors.New("duplicate record")

// Store is the persistence capability set used by the analysis workflow
// and the HTTP layer. Lookups return (nil, nil) when nothing matches.
type Store interface {
	CreateArticle(ctx context.Context, a NewArticle) (*Article, error)
	GetArticleByURL(ctx context.Context, url string) (*Article, error)
	GetArticleByID(ctx context.Context, id string) (*Article, error)

	CreateAnalysis(ctx context.Context, a NewAnalysis) (*Analysis, error)
	GetAnalysis(ctx context.Context, id string) (*Analysis, error)
	GetAnalysesByArticleID(ctx context.Context, articleID string) ([]Analysis, error)
	GetAllAnalyses(ctx context.Context) ([]AnalysisWithArticle, error)
	ListAnalyses(ctx context.Context, f ListFilter) ([]AnalysisWithArticle, error)
	DeleteAnalysis(ctx context.Context, id string) error

	GetStats(ctx context.Context) (*Stats, error)
}

var _ Store = (*DB)(nil)
