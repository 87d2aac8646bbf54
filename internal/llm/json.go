package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFence returns the body of the first markdown code block in
// text, or the trimmed text when there is none.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}

	rest := text[start+3:]
	// Drop the info string ("json") on the opening fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		rest = strings.TrimPrefix(rest, "json")
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// ParseJSONResponse decodes a JSON response from an LLM into v, handling
// markdown code blocks.
func ParseJSONResponse(text string, v any) error {
	body := StripCodeFence(text)
	if body == "" {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("parsing LLM response as JSON: %w", err)
	}
	return nil
}
