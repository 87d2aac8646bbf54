package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB is a SQL-backed Store for SQLite or PostgreSQL.
type DB struct {
	conn    *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	path    string
	now     func() time.Time
	logger  *slog.Logger
}

// Connect opens the backend named by driver ("sqlite" or "postgres").
// For SQLite dsn is a file path; for PostgreSQL a connection string.
func Connect(driver, dsn string) (*DB, error) {
	switch strings.ToLower(driver) {
	case "", string(SQLite):
		return Open(dsn)
	case string(Postgres):
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// Open creates or opens a SQLite database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Pragmas go in the DSN so that every pooled connection gets them.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open(SQLite.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return newDB(conn, SQLite, dbPath)
}

// OpenPostgres connects to a PostgreSQL database and migrates its schema.
func OpenPostgres(dsn string) (*DB, error) {
	conn, err := sql.Open(Postgres.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return newDB(conn, Postgres, "")
}

func newDB(conn *sql.DB, d Dialect, path string) (*DB, error) {
	db := &DB{
		conn:    conn,
		dialect: d,
		sb:      d.builder(),
		path:    path,
		now:     time.Now,
		logger:  slog.Default().With("component", "database", "driver", string(d)),
	}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return db, nil
}

// SetLogger replaces the logger used for migration and conflict messages.
func (db *DB) SetLogger(l *slog.Logger) {
	db.logger = l.With("component", "database", "driver", string(db.dialect))
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path (empty for PostgreSQL).
func (db *DB) Path() string {
	return db.path
}

// Dialect returns the backend in use.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&s.Articles); err != nil {
		return nil, fmt.Errorf("counting articles: %w", err)
	}

	query, args, err := db.sb.Select(
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN sentiment = 'positive' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN sentiment = 'neutral' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN sentiment = 'negative' THEN 1 ELSE 0 END), 0)",
	).From("analyses").ToSql()
	if err != nil {
		return nil, err
	}
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&s.Analyses, &s.Positive, &s.Neutral, &s.Negative); err != nil {
		return nil, fmt.Errorf("counting analyses: %w", err)
	}

	query, args, err = db.sb.Select("COUNT(*)").
		From("articles ar").
		LeftJoin("analyses an ON an.article_id = ar.id").
		Where(sq.Eq{"an.id": nil}).
		ToSql()
	if err != nil {
		return nil, err
	}
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&s.OrphanedArticles); err != nil {
		return nil, fmt.Errorf("counting orphaned articles: %w", err)
	}
	return &s, nil
}
