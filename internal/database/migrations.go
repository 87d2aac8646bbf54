package database

// Migration represents a single schema migration step. Each step carries
// one idempotent DDL script per dialect.
type Migration struct {
	Version     int
	Description string
	SQLite      string
	Postgres    string
}

func (m Migration) statement(d Dialect) string {
	if d == Postgres {
		return m.Postgres
	}
	return m.SQLite
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		SQLite: `
CREATE TABLE IF NOT EXISTS articles (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT UNIQUE NOT NULL,
    url TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    content TEXT,
    url_to_image TEXT,
    published_at TEXT NOT NULL,
    source TEXT NOT NULL,
    author TEXT,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS analyses (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT UNIQUE NOT NULL,
    article_id TEXT UNIQUE NOT NULL REFERENCES articles(id),
    summary TEXT NOT NULL,
    sentiment TEXT NOT NULL,
    confidence INTEGER NOT NULL CHECK(confidence BETWEEN 0 AND 100),
    positive_score INTEGER NOT NULL CHECK(positive_score BETWEEN 0 AND 100),
    neutral_score INTEGER NOT NULL CHECK(neutral_score BETWEEN 0 AND 100),
    negative_score INTEGER NOT NULL CHECK(negative_score BETWEEN 0 AND 100),
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
`,
		Postgres: `
CREATE TABLE IF NOT EXISTS articles (
    seq BIGSERIAL PRIMARY KEY,
    id TEXT UNIQUE NOT NULL,
    url TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    content TEXT,
    url_to_image TEXT,
    published_at TIMESTAMPTZ NOT NULL,
    source JSONB NOT NULL,
    author TEXT,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS analyses (
    seq BIGSERIAL PRIMARY KEY,
    id TEXT UNIQUE NOT NULL,
    article_id TEXT UNIQUE NOT NULL REFERENCES articles(id),
    summary TEXT NOT NULL,
    sentiment TEXT NOT NULL,
    confidence INTEGER NOT NULL CHECK(confidence BETWEEN 0 AND 100),
    positive_score INTEGER NOT NULL CHECK(positive_score BETWEEN 0 AND 100),
    neutral_score INTEGER NOT NULL CHECK(neutral_score BETWEEN 0 AND 100),
    negative_score INTEGER NOT NULL CHECK(negative_score BETWEEN 0 AND 100),
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
`,
	},
	{
		Version:     2,
		Description: "index analyses by sentiment",
		SQLite:      `CREATE INDEX IF NOT EXISTS idx_analyses_sentiment ON analyses(sentiment);`,
		Postgres:    `CREATE INDEX IF NOT EXISTS idx_analyses_sentiment ON analyses(sentiment);`,
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
