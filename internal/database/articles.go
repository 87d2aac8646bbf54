package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var articleColumns = []string{
	"id", "url", "title", "description", "content", "url_to_image",
	"published_at", "source", "author", "created_at",
}

// CreateArticle inserts an article. Returns ErrDuplicate if the URL is
// already stored.
func (db *DB) CreateArticle(ctx context.Context, in NewArticle) (*Article, error) {
	source, err := json.Marshal(in.Source)
	if err != nil {
		return nil, fmt.Errorf("encoding source: %w", err)
	}

	a := &Article{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		URL:         in.URL,
		URLToImage:  in.URLToImage,
		PublishedAt: in.PublishedAt.UTC(),
		Source:      in.Source,
		Author:      in.Author,
		CreatedAt:   db.now().UTC(),
	}

	query, args, err := db.sb.Insert("articles").
		Columns(articleColumns...).
		Values(
			a.ID, a.URL, a.Title, nullable(a.Description), nullable(a.Content), nullable(a.URLToImage),
			db.dialect.timeArg(a.PublishedAt), string(source), nullable(a.Author), db.dialect.timeArg(a.CreatedAt),
		).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		if db.dialect.isUniqueViolation(err) {
			return nil, fmt.Errorf("article %s: %w", in.URL, ErrDuplicate)
		}
		return nil, fmt.Errorf("inserting article: %w", err)
	}
	return a, nil
}

// GetArticleByURL returns the article stored for url, or nil.
func (db *DB) GetArticleByURL(ctx context.Context, url string) (*Article, error) {
	return db.getArticle(ctx, sq.Eq{"url": url})
}

// GetArticleByID returns a single article by ID, or nil.
func (db *DB) GetArticleByID(ctx context.Context, id string) (*Article, error) {
	return db.getArticle(ctx, sq.Eq{"id": id})
}

func (db *DB) getArticle(ctx context.Context, where sq.Eq) (*Article, error) {
	query, args, err := db.sb.Select(articleColumns...).From("articles").Where(where).ToSql()
	if err != nil {
		return nil, err
	}

	a, err := scanArticle(db.conn.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// articleDest returns scan targets matching articleColumns, and a finish
// func that copies nullable columns into a.
func articleDest(a *Article) ([]any, func() error) {
	var description, content, image, author sql.NullString
	var published, created timestamp
	var source []byte

	dest := []any{
		&a.ID, &a.URL, &a.Title, &description, &content, &image,
		&published, &source, &author, &created,
	}
	finish := func() error {
		a.Description = description.String
		a.Content = content.String
		a.URLToImage = image.String
		a.Author = author.String
		a.PublishedAt = published.Time
		a.CreatedAt = created.Time
		if len(source) > 0 {
			if err := json.Unmarshal(source, &a.Source); err != nil {
				return fmt.Errorf("decoding source of article %s: %w", a.ID, err)
			}
		}
		return nil
	}
	return dest, finish
}

func scanArticle(row rowScanner) (*Article, error) {
	var a Article
	dest, finish := articleDest(&a)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return &a, nil
}
