package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/fetcher"
)

const (
	DefaultFastBaseURL = "https://api.groq.com/openai/v1"
	DefaultFastModel   = "llama-3.1-8b-instant"
	DefaultFastTimeout = 20 * time.Second

	fastMaxTokens   = 700
	fastTemperature = 0.2
)

// FastClient calls an OpenAI-compatible chat completions endpoint in JSON mode.
type FastClient struct {
	fetcher *fetcher.Fetcher
	apiKey  string
	baseURL string
	model   string

	Timeout time.Duration
}

// NewFastClient returns nil when no API key is configured.
func NewFastClient(f *fetcher.Fetcher, cfg models.LLMProvider) *FastClient {
	if cfg.APIKey == "" {
		return nil
	}
	c := &FastClient{
		fetcher: f,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		Timeout: DefaultFastTimeout,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultFastBaseURL
	}
	if c.model == "" {
		c.model = DefaultFastModel
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *FastClient) Complete(ctx context.Context, systemPrompt, payload string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: payload},
		},
		Temperature: fastTemperature,
		MaxTokens:   fastMaxTokens,
	}
	req.ResponseFormat.Type = "json_object"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)

	var resp chatResponse
	if err := c.fetcher.PostJSONWithHeader(ctx, c.baseURL+"/chat/completions", header, req, &resp, c.Timeout); err != nil {
		return "", fmt.Errorf("failed to call %s: %w", c.model, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

func (c *FastClient) Model() string { return c.model }
