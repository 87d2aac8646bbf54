package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/TobiSchelling/NewsIntellect/internal/apperr"
)

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

// Request is a single chat-style completion request.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
	// JSON asks the provider for a JSON object response where supported.
	JSON bool
}

// Provider is the interface for LLM providers.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	IsConfigured() bool
	Name() string
}

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	Model       string
	BaseURL     string
	Temperature float64
	client      *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string, temperature float64) *OllamaProvider {
	return &OllamaProvider{
		Model:       model,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Temperature: temperature,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name used in error messages.
func (o *OllamaProvider) Name() string { return "Ollama" }

// IsConfigured checks if Ollama is running and the model is available.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	return false
}

// Generate sends a chat request to Ollama and returns the response.
func (o *OllamaProvider) Generate(ctx context.Context, r Request) (string, error) {
	body := map[string]any{
		"model":    o.Model,
		"messages": messages(r),
		"stream":   false,
		"options": map[string]any{
			"num_predict": r.MaxTokens,
			"temperature": o.Temperature,
		},
	}
	if r.JSON {
		body["format"] = "json"
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := postJSON(ctx, o.client, o.Name(), o.BaseURL+"/api/chat", nil, body, &result); err != nil {
		return "", err
	}
	return result.Message.Content, nil
}

// OpenAIProvider talks to any OpenAI-compatible chat completions API
// (OpenAI itself, OpenRouter).
type OpenAIProvider struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	name        string
	headers     map[string]string
	client      *http.Client
}

// NewOpenAIProvider creates a provider for the OpenAI API. An empty
// baseURL selects the public endpoint.
func NewOpenAIProvider(model, apiKey, baseURL string, temperature float64) *OpenAIProvider {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAIProvider{
		Model:       model,
		APIKey:      apiKey,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Temperature: temperature,
		name:        "OpenAI",
		client:      &http.Client{Timeout: 120 * time.Second},
	}
}

// NewOpenRouterProvider creates a provider for OpenRouter, which speaks the
// OpenAI protocol plus attribution headers.
func NewOpenRouterProvider(model, apiKey, baseURL string, temperature float64) *OpenAIProvider {
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}
	p := NewOpenAIProvider(model, apiKey, baseURL, temperature)
	p.name = "OpenRouter"
	p.headers = map[string]string{
		"HTTP-Referer": "https://github.com/TobiSchelling/NewsIntellect",
		"X-Title":      "NewsIntellect AI Analysis",
	}
	return p
}

// Name returns the provider name used in error messages.
func (o *OpenAIProvider) Name() string { return o.name }

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends a chat completion request and returns the first choice.
func (o *OpenAIProvider) Generate(ctx context.Context, r Request) (string, error) {
	if o.APIKey == "" {
		return "", apperr.Configuration(o.name, "API key not configured")
	}

	body := map[string]any{
		"model":       o.Model,
		"messages":    messages(r),
		"temperature": o.Temperature,
	}
	if r.MaxTokens > 0 {
		body["max_tokens"] = r.MaxTokens
	}
	// OpenRouter models do not all honor response_format; the prompt asks for raw JSON instead.
	if r.JSON && o.name == "OpenAI" {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	headers := map[string]string{"Authorization": "Bearer " + o.APIKey}
	for k, v := range o.headers {
		headers[k] = v
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := postJSON(ctx, o.client, o.name, o.BaseURL+"/chat/completions", headers, body, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", apperr.External(o.name, 0, "no choices in response", nil)
	}
	return result.Choices[0].Message.Content, nil
}

func messages(r Request) []map[string]string {
	var msgs []map[string]string
	if r.System != "" {
		msgs = append(msgs, map[string]string{"role": "system", "content": r.System})
	}
	return append(msgs, map[string]string{"role": "user", "content": r.Prompt})
}

// postJSON posts body to url and decodes a 200 response into out. Every
// failure is reported as an ExternalServiceError for service.
func postJSON(ctx context.Context, client *http.Client, service, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperr.External(service, 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperr.External(service, resp.StatusCode, strings.TrimSpace(string(respBody)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.External(service, resp.StatusCode, "decoding response", err)
	}
	return nil
}

// Settings selects and configures a provider.
type Settings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	OllamaURL   string
	Temperature float64
}

// CreateProvider creates an LLM provider based on configuration. Missing
// credentials are not an error here; the provider reports a
// ConfigurationError on first use.
func CreateProvider(ctx context.Context, s Settings, logger *slog.Logger) (Provider, error) {
	switch strings.ToLower(s.Provider) {
	case "openai":
		logger.Info("using OpenAI", "model", s.Model)
		return NewOpenAIProvider(s.Model, s.APIKey, s.BaseURL, s.Temperature), nil
	case "openrouter":
		logger.Info("using OpenRouter", "model", s.Model)
		return NewOpenRouterProvider(s.Model, s.APIKey, s.BaseURL, s.Temperature), nil
	case "ollama":
		p := NewOllamaProvider(s.Model, s.OllamaURL, s.Temperature)
		if !p.IsConfigured() {
			logger.Warn("Ollama not reachable or model missing", "url", s.OllamaURL, "model", s.Model)
		}
		return p, nil
	case "gemini":
		logger.Info("using Gemini", "model", s.Model)
		return NewGeminiProvider(ctx, s.Model, s.APIKey, s.Temperature)
	default:
		return nil, apperr.Configuration("llm.provider", fmt.Sprintf("unknown provider %q", s.Provider))
	}
}
