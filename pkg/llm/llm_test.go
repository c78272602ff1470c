package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/fetcher"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```{\"a\":1}```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewClientsWithoutKey(t *testing.T) {
	if c := NewFastClient(fetcher.NewFetcher(), models.LLMProvider{}); c != nil {
		t.Errorf("NewFastClient() = %v, want nil", c)
	}
	c, err := NewDeepClient(context.Background(), models.LLMProvider{})
	if err != nil || c != nil {
		t.Errorf("NewDeepClient() = %v, %v, want nil, nil", c, err)
	}
}

func TestFastClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer k")
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != DefaultFastModel {
			t.Errorf("model = %q, want %q", req.Model, DefaultFastModel)
		}
		if req.ResponseFormat.Type != "json_object" || req.MaxTokens != 700 {
			t.Errorf("response_format = %q, max_tokens = %d", req.ResponseFormat.Type, req.MaxTokens)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "payload" {
			t.Errorf("messages = %+v", req.Messages)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" {\"ok\":true} "}}]}`))
	}))
	defer srv.Close()

	c := NewFastClient(fetcher.NewFetcher(), models.LLMProvider{APIKey: "k", BaseURL: srv.URL + "/v1/"})
	got, err := c.Complete(context.Background(), "system", "payload")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != `{"ok":true}` {
		t.Errorf("Complete() = %q, want %q", got, `{"ok":true}`)
	}
	if c.Model() != DefaultFastModel {
		t.Errorf("Model() = %q, want %q", c.Model(), DefaultFastModel)
	}
}

func TestFastClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		empty  bool
	}{
		{"no choices", http.StatusOK, `{"choices":[]}`, true},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, true},
		{"api error", http.StatusOK, `{"error":{"message":"bad model"}}`, false},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewFastClient(fetcher.NewFetcher(), models.LLMProvider{APIKey: "k", BaseURL: srv.URL})
			_, err := c.Complete(context.Background(), "s", "p")
			if err == nil {
				t.Fatal("Complete() error = nil, want error")
			}
			if tt.empty && !errors.Is(err, ErrEmptyCompletion) {
				t.Errorf("Complete() error = %v, want ErrEmptyCompletion", err)
			}
		})
	}
}
