// Package llm wraps the two language model backends used for reports: a
// low-latency OpenAI-compatible endpoint and Gemini for deep analysis.
package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyCompletion is returned when a backend answers without content.
var ErrEmptyCompletion = errors.New("no completion returned")

// Completer turns a system prompt and a user payload into a JSON string.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, payload string) (string, error)
	// Model names the backing model for report metadata.
	Model() string
}

// StripFences removes a surrounding ```json ... ``` block if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.HasPrefix(strings.TrimSpace(s[:i]), "{") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
