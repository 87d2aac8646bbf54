package database

import "time"

// Source identifies the publisher of an article. It is stored as one
// JSON value alongside the article.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Article is a persisted news item, unique by URL.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content,omitempty"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      Source    `json:"source"`
	Author      string    `json:"author,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewArticle holds the fields needed to create an Article.
type NewArticle struct {
	Title       string
	Description string
	Content     string
	URL         string
	URLToImage  string
	PublishedAt time.Time
	Source      Source
	Author      string
}

// Analysis is the summary and sentiment breakdown stored for an article.
type Analysis struct {
	ID            string    `json:"id"`
	ArticleID     string    `json:"articleId"`
	Summary       string    `json:"summary"`
	Sentiment     string    `json:"sentiment"`
	Confidence    int       `json:"confidence"`
	PositiveScore int       `json:"positiveScore"`
	NeutralScore  int       `json:"neutralScore"`
	NegativeScore int       `json:"negativeScore"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewAnalysis holds the fields needed to create an Analysis.
type NewAnalysis struct {
	ArticleID     string
	Summary       string
	Sentiment     string
	Confidence    int
	PositiveScore int
	NeutralScore  int
	NegativeScore int
}

// AnalysisWithArticle is an Analysis joined with its owning Article.
type AnalysisWithArticle struct {
	Analysis
	Article Article `json:"article"`
}

// ListFilter narrows a history listing. Zero value lists everything.
type ListFilter struct {
	Sentiment string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Articles         int
	Analyses         int
	Positive         int
	Neutral          int
	Negative         int
	OrphanedArticles int
}
