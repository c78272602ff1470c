package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/analytics"
	"github.com/dtnitsch/web-audit/pkg/detector"
	"github.com/dtnitsch/web-audit/pkg/fetcher"
)

// DefaultTimeout bounds the page fetch.
const DefaultTimeout = 10 * time.Second

// PerformanceSource supplies lab and field metrics for a URL.
type PerformanceSource interface {
	Lab(ctx context.Context, url string) (*models.PerformanceMetrics, error)
	Field(ctx context.Context, url string) *models.FieldMetrics
}

type Extractor struct {
	fetcher *fetcher.Fetcher
	perf    PerformanceSource
	logger  *slog.Logger

	Timeout time.Duration
	// Enrich adds language detection and readability metadata.
	Enrich bool
}

// New builds an Extractor. perf may be nil, in which case performance
// collection is skipped even when requested.
func New(f *fetcher.Fetcher, perf PerformanceSource, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		fetcher: f,
		perf:    perf,
		logger:  logger,
		Timeout: DefaultTimeout,
		Enrich:  true,
	}
}

// Extract fetches pageURL and derives its signals. It never fails: fetch
// errors, non-2xx statuses and panics all produce a degraded signal.
func (e *Extractor) Extract(ctx context.Context, pageURL string, includePerformance bool) (signal *models.PageSignal) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extraction panicked", "url", pageURL, "panic", r)
			signal = Degraded(pageURL, http.StatusInternalServerError, fmt.Sprint(r))
		}
	}()

	var (
		wg   sync.WaitGroup
		perf *models.PerformanceMetrics
		crux *models.FieldMetrics
	)
	if includePerformance && e.perf != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			defer e.recoverCollaborator("lab", pageURL)
			m, err := e.perf.Lab(ctx, pageURL)
			if err != nil {
				e.logger.Warn("performance audit failed", "url", pageURL, "error", err)
				return
			}
			perf = m
		}()
		go func() {
			defer wg.Done()
			defer e.recoverCollaborator("crux", pageURL)
			crux = e.perf.Field(ctx, pageURL)
		}()
	}

	resp, err := e.fetcher.Get(ctx, pageURL, e.Timeout)
	wg.Wait()
	if err != nil {
		e.logger.Warn("page fetch failed", "url", pageURL, "error", err)
		return Degraded(pageURL, statusFromError(err), err.Error())
	}

	if perf != nil && crux != nil {
		perf.Crux = crux
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Degraded(pageURL, resp.StatusCode, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	signal, err = e.parse(pageURL, resp)
	if err != nil {
		e.logger.Warn("page parse failed", "url", pageURL, "error", err)
		return Degraded(pageURL, http.StatusInternalServerError, err.Error())
	}
	signal.Performance = perf
	signal.Crux = crux
	return signal
}

func (e *Extractor) recoverCollaborator(name, pageURL string) {
	if r := recover(); r != nil {
		e.logger.Error("collaborator panicked", "collaborator", name, "url", pageURL, "panic", r)
	}
}

// Parse derives signals from an already fetched 2xx response.
func (e *Extractor) parse(pageURL string, resp *fetcher.Response) (*models.PageSignal, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	html := string(resp.Body)

	primary := PrimaryContent(doc)
	signal := &models.PageSignal{
		URL:                   pageURL,
		StatusCode:            resp.StatusCode,
		Title:                 strings.TrimSpace(doc.Find("title").First().Text()),
		MetaDescription:       metaContent(doc, `meta[name="description"]`),
		MetaKeywords:          metaContent(doc, `meta[name="keywords"]`),
		MetaRobots:            metaRobots(doc),
		XRobotsTag:            strings.Join(resp.Header.Values("X-Robots-Tag"), ", "),
		H1:                    headings(doc, "h1"),
		H2Count:               doc.Find("h2").Length(),
		WordCount:             analytics.WordCount(primary),
		Canonical:             strings.TrimSpace(doc.Find(`link[rel="canonical"]`).AttrOr("href", "")),
		PrimaryContentSnippet: primary,
		TopKeywords:           analytics.TopKeywords(primary, analytics.DefaultKeywordLimit),
		CTAs:                  DetectCTAs(doc),
		SchemaTypes:           DetectSchema(doc),
		PageType:              PageType(pageURL),
		TechStack:             DetectTechStack(html, doc),
		Authority:             ExtractAuthority(doc),
		MetaGovernance:        DetectMetaGovernance(doc),
		Accessibility:         AssessAccessibility(doc),
		Resources:             AuditResources(doc),
		Navigation:            ExtractNavigation(doc),
	}
	signal.InternalLinkCount, signal.ExternalLinkCount = CountLinks(doc, pageURL)

	if e.Enrich {
		signal.Language = detector.DetectLanguage(primary)
		signal.Readability = detector.Readability(pageURL, html)
	}
	return signal, nil
}

// Degraded builds a signal that carries only status information.
func Degraded(pageURL string, status int, reason string) *models.PageSignal {
	return &models.PageSignal{
		URL:           pageURL,
		StatusCode:    status,
		Blocked:       IsBlocked(status),
		BlockedReason: reason,
	}
}

// IsBlocked reports statuses that usually mean bot protection or rate limiting.
func IsBlocked(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func statusFromError(err error) int {
	var statusErr *fetcher.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return http.StatusInternalServerError
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

// metaRobots falls back to the googlebot directive.
func metaRobots(doc *goquery.Document) string {
	if robots := metaContent(doc, `meta[name="robots"]`); robots != "" {
		return robots
	}
	return metaContent(doc, `meta[name="googlebot"]`)
}

func headings(doc *goquery.Document, tag string) []string {
	var texts []string
	doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(s.Text()))
	})
	return texts
}
