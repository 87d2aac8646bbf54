package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/TobiSchelling/NewsIntellect/internal/apperr"
)

// GeminiProvider generates text with Google's Gemini models.
type GeminiProvider struct {
	Model       string
	Temperature float64
	client      *genai.Client
}

// NewGeminiProvider creates a Gemini provider. With an empty apiKey the
// provider is returned unconfigured and fails on first use.
func NewGeminiProvider(ctx context.Context, model, apiKey string, temperature float64, opts ...option.ClientOption) (*GeminiProvider, error) {
	p := &GeminiProvider{Model: model, Temperature: temperature}
	if apiKey == "" {
		return p, nil
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, apperr.External(p.Name(), 0, "creating client", err)
	}
	p.client = client
	return p, nil
}

// Name returns the provider name used in error messages.
func (g *GeminiProvider) Name() string { return "Gemini" }

// IsConfigured reports whether a client was created.
func (g *GeminiProvider) IsConfigured() bool {
	return g.client != nil
}

// Generate sends a single-turn request and joins the text parts of the
// first candidate.
func (g *GeminiProvider) Generate(ctx context.Context, r Request) (string, error) {
	if g.client == nil {
		return "", apperr.Configuration(g.Name(), "API key not configured")
	}

	model := g.client.GenerativeModel(g.Model)
	model.SetTemperature(float32(g.Temperature))
	if r.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(r.MaxTokens))
	}
	if r.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(r.System))
	}
	if r.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(r.Prompt))
	if err != nil {
		return "", apperr.External(g.Name(), 0, "", err)
	}
	text, ok := candidateText(resp)
	if !ok {
		return "", apperr.External(g.Name(), 0, "no candidates in response", nil)
	}
	return text, nil
}

// candidateText joins the text parts of the first candidate with content.
func candidateText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range c.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		return sb.String(), true
	}
	return "", false
}

// Close releases the underlying client.
func (g *GeminiProvider) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
