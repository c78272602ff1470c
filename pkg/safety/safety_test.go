package safety

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/web-audit/pkg/fetcher"
)

func newTestChecker(t *testing.T, endpoint, key string) *Checker {
	t.Helper()
	c := NewChecker(fetcher.NewFetcher(), key, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.Endpoint = endpoint
	c.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }
	return c
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		wantSafe    bool
		wantThreats []string
	}{
		{
			name:        "no matches",
			response:    `{}`,
			wantSafe:    true,
			wantThreats: []string{},
		},
		{
			name:        "matches de-duplicated",
			response:    `{"matches":[{"threatType":"MALWARE"},{"threatType":"SOCIAL_ENGINEERING"},{"threatType":"MALWARE"}]}`,
			wantSafe:    false,
			wantThreats: []string{"MALWARE", "SOCIAL_ENGINEERING"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got findRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("key") != "secret" {
					t.Errorf("key = %q, want secret", r.URL.Query().Get("key"))
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			result, err := newTestChecker(t, srv.URL, "secret").Check(context.Background(), "https://example.com")
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if result.IsSafe != tt.wantSafe {
				t.Errorf("IsSafe = %v, want %v", result.IsSafe, tt.wantSafe)
			}
			if strings.Join(result.Threats, ",") != strings.Join(tt.wantThreats, ",") || result.Threats == nil {
				t.Errorf("Threats = %#v, want %#v", result.Threats, tt.wantThreats)
			}
			if !result.CheckedAt.Equal(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)) {
				t.Errorf("CheckedAt = %v", result.CheckedAt)
			}
			if len(got.ThreatInfo.ThreatTypes) != 4 {
				t.Errorf("ThreatTypes = %v, want 4 types", got.ThreatInfo.ThreatTypes)
			}
			if len(got.ThreatInfo.ThreatEntries) != 1 || got.ThreatInfo.ThreatEntries[0].URL != "https://example.com" {
				t.Errorf("ThreatEntries = %+v", got.ThreatInfo.ThreatEntries)
			}
		})
	}
}

func TestCheckNoAPIKey(t *testing.T) {
	c := newTestChecker(t, "http://unused", "")
	if _, err := c.Check(context.Background(), "https://example.com"); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Check() error = %v, want ErrNoAPIKey", err)
	}

	var nilChecker *Checker
	if _, err := nilChecker.Check(context.Background(), "https://example.com"); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("nil Check() error = %v, want ErrNoAPIKey", err)
	}
}

func TestCheckUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestChecker(t, srv.URL, "secret").Check(context.Background(), "https://example.com")
	var statusErr *fetcher.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Check() error = %v, want StatusError 429", err)
	}
}
