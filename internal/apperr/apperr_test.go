package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestExternalErrorMessage(t *testing.T) {
	err := External("GNews", 403, "quota exceeded", nil)
	if got := err.Error(); got != "GNews API error: 403 - quota exceeded" {
		t.Errorf("unexpected message %q", got)
	}

	cause := errors.New("connection refused")
	err = External("OpenAI", 0, "", cause)
	if got := err.Error(); got != "OpenAI API error: connection refused" {
		t.Errorf("unexpected message %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected external error to unwrap to its cause")
	}

	err = External("Gemini", 502, "decoding response", errors.New("unexpected EOF"))
	if got := err.Error(); got != "Gemini API error: 502 - decoding response: unexpected EOF" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestClassifiersSeeThroughWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", Validation("url", "Valid URL is required"), IsValidation},
		{"external", External("NewsAPI", 500, "boom", nil), IsExternal},
		{"not found", NotFound("analysis", "abc"), IsNotFound},
		{"configuration", Configuration("GNEWS_API_KEY", "not set"), IsConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("classifier did not match wrapped %T", tt.err)
			}
		})
	}

	if IsNotFound(Validation("title", "Title is required")) {
		t.Error("validation error misclassified as not found")
	}
}

func TestValidationErrorNamesField(t *testing.T) {
	err := Validation("title", "Title is required")
	if err.Error() != "title: Title is required" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
