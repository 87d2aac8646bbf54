// Package export writes analysis history as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/TobiSchelling/NewsIntellect/internal/database"
)

// Header is the CSV header row.
var Header = []string{
	"Article Title",
	"Source",
	"Sentiment",
	"Confidence (%)",
	"Summary",
	"Analyzed Date",
	"Article URL",
}

// FileName returns the download name for an export taken at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("news-analysis-%s.csv", t.Format("2006-01-02"))
}

// WriteCSV writes one row per analysis. Quoting follows RFC 4180, so
// quotes, commas and newlines in titles and summaries survive a round trip.
func WriteCSV(w io.Writer, analyses []database.AnalysisWithArticle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, a := range analyses {
		row := []string{
			a.Article.Title,
			a.Article.Source.Name,
			a.Sentiment,
			strconv.Itoa(a.Confidence),
			a.Summary,
			a.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			a.Article.URL,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row for %s: %w", a.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
