// Package diagnostics inspects the crawler-facing files of a site.
package diagnostics

import (
	"bufio"
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/dtnitsch/web-audit/internal/common"
	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/fetcher"
)

const (
	DefaultTimeout = 6 * time.Second
	previewLimit   = 2000
)

var sitemapDirective = regexp.MustCompile(`(?i)^sitemap:\s*`)

// llmsLocations are tried in order; the first 200 wins.
var llmsLocations = []string{"/llms.txt", "/.well-known/llms.txt"}

type Fetcher struct {
	fetcher *fetcher.Fetcher
	logger  *slog.Logger
	Timeout time.Duration
}

func New(f *fetcher.Fetcher, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{fetcher: f, logger: logger, Timeout: DefaultTimeout}
}

// Fetch reports robots.txt and llms.txt for the origin of baseURL.
// It never fails; a missing file is a non-200 result.
func (d *Fetcher) Fetch(ctx context.Context, baseURL string) *models.SiteDiagnostics {
	origin := common.Origin(baseURL)

	robots := d.fetchText(ctx, origin+"/robots.txt")
	robotsTxt := &models.RobotsTxt{
		Status:         robots.status,
		ContentPreview: truncate(robots.content, previewLimit),
		SitemapURLs:    SitemapURLs(robots.content),
		Error:          robots.err,
	}

	var llmsTxt *models.LLMsTxt
	for _, path := range llmsLocations {
		location := origin + path
		res := d.fetchText(ctx, location)
		llmsTxt = &models.LLMsTxt{Status: res.status, Location: location, Error: res.err}
		if res.status == 200 {
			llmsTxt.ContentPreview = truncate(res.content, previewLimit)
			break
		}
	}

	return &models.SiteDiagnostics{RobotsTxt: robotsTxt, LLMsTxt: llmsTxt}
}

type textResult struct {
	status  int
	content string
	err     string
}

func (d *Fetcher) fetchText(ctx context.Context, url string) textResult {
	resp, err := d.fetcher.Get(ctx, url, d.Timeout)
	if err != nil {
		d.logger.Debug("diagnostics fetch failed", "url", url, "error", err)
		return textResult{err: err.Error()}
	}
	return textResult{status: resp.StatusCode, content: string(resp.Body)}
}

// SitemapURLs extracts Sitemap: directives, case-insensitively, trimmed and
// de-duplicated in order of appearance.
func SitemapURLs(robots string) []string {
	urls := []string{}
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(robots))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		loc := sitemapDirective.FindString(line)
		if loc == "" {
			continue
		}
		u := strings.TrimSpace(line[len(loc):])
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
