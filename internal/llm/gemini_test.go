package llm

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/TobiSchelling/NewsIntellect/internal/apperr"
)

func TestGeminiWithoutKey(t *testing.T) {
	p, err := NewGeminiProvider(context.Background(), "gemini-1.5-flash", "", 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.IsConfigured() {
		t.Error("expected provider without key to be unconfigured")
	}
	if _, err := p.Generate(context.Background(), Request{Prompt: "hi", JSON: true}); !apperr.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("expected Close without client to succeed, got %v", err)
	}
}

func TestGeminiCandidateText(t *testing.T) {
	tests := []struct {
		name   string
		resp   *genai.GenerateContentResponse
		want   string
		wantOK bool
	}{
		{"nil response", nil, "", false},
		{"no candidates", &genai.GenerateContentResponse{}, "", false},
		{
			"joins text parts",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Blob{MIMEType: "image/png"}, genai.Text(`1}`)}}},
			}},
			`{"a":1}`, true,
		},
		{
			"skips empty candidate",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{},
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("second")}}},
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("third")}}},
			}},
			"second", true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := candidateText(tt.resp)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("candidateText() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
