package diagnostics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dtnitsch/web-audit/pkg/fetcher"
)

func newTestFetcher() *Fetcher {
	return New(fetcher.NewFetcher(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSitemapURLs(t *testing.T) {
	robots := "User-agent: *\r\nDisallow: /admin\n  SITEMAP:   https://x.com/s1.xml  \nsitemap: https://x.com/s1.xml\nSitemap: https://x.com/s2.xml\nSitemap:\n# Sitemap: commented\n"

	got := SitemapURLs(robots)
	want := []string{"https://x.com/s1.xml", "https://x.com/s2.xml"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("SitemapURLs() = %v, want %v", got, want)
	}

	if got := SitemapURLs(""); got == nil || len(got) != 0 {
		t.Errorf("SitemapURLs(\"\") = %#v, want empty slice", got)
	}
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name         string
		files        map[string]string
		wantLLMs     int
		wantLocation string
	}{
		{
			name:         "root llms.txt",
			files:        map[string]string{"/robots.txt": "Sitemap: https://x.com/s1.xml", "/llms.txt": "# Site"},
			wantLLMs:     200,
			wantLocation: "/llms.txt",
		},
		{
			name:         "well-known fallback",
			files:        map[string]string{"/.well-known/llms.txt": "# Site"},
			wantLLMs:     200,
			wantLocation: "/.well-known/llms.txt",
		},
		{
			name:         "neither reports last attempt",
			files:        map[string]string{},
			wantLLMs:     404,
			wantLocation: "/.well-known/llms.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, ok := tt.files[r.URL.Path]
				if !ok {
					http.NotFound(w, r)
					return
				}
				w.Write([]byte(body))
			}))
			defer srv.Close()

			diag := newTestFetcher().Fetch(context.Background(), srv.URL+"/some/page")

			if diag.LLMsTxt == nil {
				t.Fatal("LLMsTxt = nil")
			}
			if diag.LLMsTxt.Status != tt.wantLLMs {
				t.Errorf("LLMsTxt.Status = %d, want %d", diag.LLMsTxt.Status, tt.wantLLMs)
			}
			if diag.LLMsTxt.Location != srv.URL+tt.wantLocation {
				t.Errorf("LLMsTxt.Location = %q, want %q", diag.LLMsTxt.Location, srv.URL+tt.wantLocation)
			}
			if tt.wantLLMs == 200 && diag.LLMsTxt.ContentPreview != "# Site" {
				t.Errorf("ContentPreview = %q", diag.LLMsTxt.ContentPreview)
			}
			if _, ok := tt.files["/robots.txt"]; ok {
				if diag.RobotsTxt.Status != 200 || len(diag.RobotsTxt.SitemapURLs) != 1 {
					t.Errorf("RobotsTxt = %+v", diag.RobotsTxt)
				}
			} else if diag.RobotsTxt.Status != 404 {
				t.Errorf("RobotsTxt.Status = %d, want 404", diag.RobotsTxt.Status)
			}
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	diag := newTestFetcher().Fetch(context.Background(), base)
	if diag.RobotsTxt.Status != 0 || diag.RobotsTxt.Error == "" {
		t.Errorf("RobotsTxt = %+v, want status 0 with error", diag.RobotsTxt)
	}
	if diag.LLMsTxt.Status != 0 || diag.LLMsTxt.Error == "" {
		t.Errorf("LLMsTxt = %+v, want status 0 with error", diag.LLMsTxt)
	}
}

func TestFetchPreviewTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 5000)))
	}))
	defer srv.Close()

	diag := newTestFetcher().Fetch(context.Background(), srv.URL)
	if n := len(diag.RobotsTxt.ContentPreview); n != 2000 {
		t.Errorf("len(ContentPreview) = %d, want 2000", n)
	}
}
