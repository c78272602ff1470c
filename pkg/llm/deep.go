package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/web-audit/models"
	"google.golang.org/genai"
)

const (
	DefaultDeepModel   = "gemini-2.5-flash"
	DefaultDeepTimeout = 90 * time.Second

	deepMaxTokens = 8192
)

// DeepClient calls Gemini with a JSON response type.
type DeepClient struct {
	client *genai.Client
	model  string

	Timeout time.Duration
}

// NewDeepClient returns nil, nil when no API key is configured.
func NewDeepClient(ctx context.Context, cfg models.LLMProvider) (*DeepClient, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultDeepModel
	}
	return &DeepClient{client: client, model: model, Timeout: DefaultDeepTimeout}, nil
}

func (c *DeepClient) Complete(ctx context.Context, systemPrompt, payload string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(payload), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.2),
		MaxOutputTokens:   deepMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", c.model, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (c *DeepClient) Model() string { return c.model }
