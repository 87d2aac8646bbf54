// Package summarize produces short article summaries with an LLM.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/TobiSchelling/NewsIntellect/internal/llm"
)

// Fallback is returned when the model answers with an empty completion.
const Fallback = "Unable to generate summary"

const systemPrompt = "You are a news editor. You write short, factual summaries of news articles."

const summaryPrompt = `Summarize this news article in 2-3 sentences. Focus on the main facts and key message.

%s`

// Summarizer summarizes article text using an LLM provider.
type Summarizer struct {
	provider  llm.Provider
	maxTokens int
}

// NewSummarizer creates a summarizer. maxTokens bounds the completion length.
func NewSummarizer(provider llm.Provider, maxTokens int) *Summarizer {
	return &Summarizer{provider: provider, maxTokens: maxTokens}
}

// Summarize returns a 2-3 sentence summary of text. Provider failures are
// returned unchanged so callers can classify them.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	out, err := s.provider.Generate(ctx, llm.Request{
		System:    systemPrompt,
		Prompt:    fmt.Sprintf(summaryPrompt, text),
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarizing: %w", err)
	}

	summary := strings.TrimSpace(out)
	if summary == "" {
		return Fallback, nil
	}
	return summary, nil
}
