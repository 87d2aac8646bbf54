// Package sentiment classifies article text into a clamped
// positive/neutral/negative breakdown with an LLM.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/TobiSchelling/NewsIntellect/internal/apperr"
	"github.com/TobiSchelling/NewsIntellect/internal/llm"
)

// Sentiment labels.
const (
	Positive = "positive"
	Neutral  = "neutral"
	Negative = "negative"
)

const (
	defaultConfidence = 50
	defaultPositive   = 33
	defaultNeutral    = 34
	defaultNegative   = 33
)

const systemPrompt = `You are a sentiment analysis engine for news articles.
Respond with ONLY a JSON object, no markdown, in exactly this shape:
{
    "sentiment": "positive" | "neutral" | "negative",
    "confidence": 0-100,
    "positiveScore": 0-100,
    "neutralScore": 0-100,
    "negativeScore": 0-100
}
The three scores must sum to 100. "sentiment" is the dominant label.`

const userPrompt = `Analyze the sentiment of this news article:

%s`

// Result is a normalized sentiment breakdown.
type Result struct {
	Sentiment     string `json:"sentiment"`
	Confidence    int    `json:"confidence"`
	PositiveScore int    `json:"positiveScore"`
	NeutralScore  int    `json:"neutralScore"`
	NegativeScore int    `json:"negativeScore"`
}

type rawResult struct {
	Sentiment     string `json:"sentiment"`
	Confidence    number `json:"confidence"`
	PositiveScore number `json:"positiveScore"`
	NeutralScore  number `json:"neutralScore"`
	NegativeScore number `json:"negativeScore"`
}

// number is a score that models sometimes quote ("90"). Absent, null and
// non-numeric values leave it unset.
type number struct {
	value float64
	set   bool
}

func (n *number) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case float64:
		n.value, n.set = v, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			n.value, n.set = f, true
		}
	}
	return nil
}

// Analyzer runs sentiment analysis through an LLM provider.
type Analyzer struct {
	provider  llm.Provider
	maxTokens int
	logger    *slog.Logger
}

// NewAnalyzer creates a sentiment analyzer.
func NewAnalyzer(provider llm.Provider, maxTokens int, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		provider:  provider,
		maxTokens: maxTokens,
		logger:    logger.With("component", "sentiment"),
	}
}

// Analyze classifies text. A response that is not valid JSON is an
// ExternalServiceError; it is never replaced by a default breakdown.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Result, error) {
	out, err := a.provider.Generate(ctx, llm.Request{
		System:    systemPrompt,
		Prompt:    fmt.Sprintf(userPrompt, text),
		MaxTokens: a.maxTokens,
		JSON:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing sentiment: %w", err)
	}

	var raw rawResult
	if err := llm.ParseJSONResponse(out, &raw); err != nil {
		return nil, apperr.External(a.provider.Name(), 0, "invalid sentiment response", err)
	}

	r := normalize(raw)
	if sum := r.PositiveScore + r.NeutralScore + r.NegativeScore; sum != 100 {
		a.logger.Warn("sentiment scores do not sum to 100",
			"sum", sum,
			"positive", r.PositiveScore,
			"neutral", r.NeutralScore,
			"negative", r.NegativeScore,
		)
	}
	return r, nil
}

// normalize applies defaults to missing fields, rounds, and clamps every
// number to [0,100].
func normalize(raw rawResult) *Result {
	return &Result{
		Sentiment:     label(raw.Sentiment),
		Confidence:    score(raw.Confidence, defaultConfidence),
		PositiveScore: score(raw.PositiveScore, defaultPositive),
		NeutralScore:  score(raw.NeutralScore, defaultNeutral),
		NegativeScore: score(raw.NegativeScore, defaultNegative),
	}
}

func label(s string) string {
	switch l := strings.ToLower(strings.TrimSpace(s)); l {
	case Positive, Neutral, Negative:
		return l
	default:
		return Neutral
	}
}

func score(n number, def int) int {
	if !n.set || math.IsNaN(n.value) {
		return def
	}
	return max(0, min(100, int(math.Round(n.value))))
}
