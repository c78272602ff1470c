package performance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"time"

	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/fetcher"
)

const (
	DefaultPageSpeedEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"
	DefaultPageSpeedTimeout  = 45 * time.Second
)

var errNoPerformanceCategory = errors.New("pagespeed response has no performance score")

// PageSpeedAuditor runs Lighthouse through the PageSpeed Insights API.
type PageSpeedAuditor struct {
	fetcher *fetcher.Fetcher
	logger  *slog.Logger

	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

func NewPageSpeedAuditor(f *fetcher.Fetcher, apiKey string, logger *slog.Logger) *PageSpeedAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageSpeedAuditor{
		fetcher:  f,
		logger:   logger,
		APIKey:   apiKey,
		Endpoint: DefaultPageSpeedEndpoint,
		Timeout:  DefaultPageSpeedTimeout,
	}
}

// Audit runs a mobile audit. A keyed request that fails is retried once
// without the key, since the anonymous quota is separate.
func (a *PageSpeedAuditor) Audit(ctx context.Context, pageURL string) (*models.PerformanceMetrics, error) {
	var resp psiResponse
	err := a.fetcher.GetJSON(ctx, a.requestURL(pageURL, a.APIKey), &resp, a.Timeout)
	if err != nil && a.APIKey != "" {
		a.logger.Warn("pagespeed keyed request failed, retrying without key", "url", pageURL, "error", err)
		resp = psiResponse{}
		err = a.fetcher.GetJSON(ctx, a.requestURL(pageURL, ""), &resp, a.Timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to run pagespeed: %w", err)
	}
	return resp.metrics()
}

func (a *PageSpeedAuditor) requestURL(pageURL, key string) string {
	q := url.Values{}
	q.Set("url", pageURL)
	q.Set("strategy", "mobile")
	for _, c := range []string{"performance", "seo", "accessibility", "best-practices"} {
		q.Add("category", c)
	}
	if key != "" {
		q.Set("key", key)
	}
	return a.Endpoint + "?" + q.Encode()
}

type psiResponse struct {
	LighthouseResult *lighthouseResult `json:"lighthouseResult"`
}

type lighthouseResult struct {
	FinalURL          string                 `json:"finalUrl"`
	FinalDisplayedURL string                 `json:"finalDisplayedUrl"`
	FetchTime         string                 `json:"fetchTime"`
	LighthouseVersion string                 `json:"lighthouseVersion"`
	Categories        map[string]psiCategory `json:"categories"`
	Audits            map[string]psiAudit    `json:"audits"`
}

type psiCategory struct {
	Score *float64 `json:"score"`
}

type psiAudit struct {
	DisplayValue string      `json:"displayValue"`
	NumericValue float64     `json:"numericValue"`
	Details      *psiDetails `json:"details"`
}

type psiDetails struct {
	Items []psiItem `json:"items"`
}

// psiItem covers both flat table rows and the nested list layout newer
// Lighthouse versions use for element audits.
type psiItem struct {
	Node  *psiNode  `json:"node"`
	Items []psiItem `json:"items"`
}

type psiNode struct {
	Snippet      string       `json:"snippet"`
	BoundingRect *models.Rect `json:"boundingRect"`
}

func (r psiResponse) metrics() (*models.PerformanceMetrics, error) {
	lh := r.LighthouseResult
	if lh == nil {
		return nil, errNoPerformanceCategory
	}
	perf, ok := lh.Categories["performance"]
	if !ok || perf.Score == nil {
		return nil, errNoPerformanceCategory
	}

	finalURL := lh.FinalDisplayedURL
	if finalURL == "" {
		finalURL = lh.FinalURL
	}
	m := &models.PerformanceMetrics{
		LighthouseScore:    toScore(*perf.Score),
		SEOScore:           lh.categoryScore("seo"),
		AccessibilityScore: lh.categoryScore("accessibility"),
		BestPracticesScore: lh.categoryScore("best-practices"),
		LCP:                lh.display("largest-contentful-paint"),
		INP:                lh.display("interactive"),
		CLS:                lh.display("cumulative-layout-shift"),
		SpeedIndex:         lh.display("speed-index"),
		FCP:                lh.display("first-contentful-paint"),
		TTI:                lh.display("interactive"),
		FinalURL:           finalURL,
		FetchTime:          lh.FetchTime,
		LighthouseVersion:  lh.LighthouseVersion,
		Source:             "pagespeed",
	}
	m.DOMIssues = lh.domIssues()
	return m, nil
}

func (lh *lighthouseResult) categoryScore(name string) *int {
	c, ok := lh.Categories[name]
	if !ok || c.Score == nil {
		return nil
	}
	s := toScore(*c.Score)
	return &s
}

func (lh *lighthouseResult) display(audit string) string {
	return lh.Audits[audit].DisplayValue
}

func (lh *lighthouseResult) domIssues() *models.DOMIssues {
	issues := &models.DOMIssues{}
	if a, ok := lh.Audits["largest-contentful-paint-element"]; ok && a.Details != nil {
		if nodes := collectNodes(a.Details.Items); len(nodes) > 0 {
			issues.LCP = &nodes[0]
		}
	}
	for _, name := range []string{"layout-shifts", "layout-shift-elements"} {
		if a, ok := lh.Audits[name]; ok && a.Details != nil {
			issues.CLS = append(issues.CLS, collectNodes(a.Details.Items)...)
		}
		if len(issues.CLS) > 0 {
			break
		}
	}
	if issues.LCP == nil && len(issues.CLS) == 0 {
		return nil
	}
	return issues
}

func collectNodes(items []psiItem) []models.ElementIssue {
	var out []models.ElementIssue
	for _, item := range items {
		if item.Node != nil && item.Node.BoundingRect != nil {
			out = append(out, models.ElementIssue{Rect: *item.Node.BoundingRect, Snippet: item.Node.Snippet})
		}
		out = append(out, collectNodes(item.Items)...)
	}
	return out
}

func toScore(f float64) int {
	return int(math.Round(f * 100))
}
