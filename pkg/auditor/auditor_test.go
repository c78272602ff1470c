package auditor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/caching"
	"github.com/dtnitsch/web-audit/pkg/db"
	"github.com/dtnitsch/web-audit/pkg/diagnostics"
	"github.com/dtnitsch/web-audit/pkg/discovery"
	"github.com/dtnitsch/web-audit/pkg/extractor"
	"github.com/dtnitsch/web-audit/pkg/fetcher"
	"github.com/dtnitsch/web-audit/pkg/metrics"
	"github.com/dtnitsch/web-audit/pkg/report"
)

const homepageHTML = `<html><head><title>Acme Coffee Roasters</title>
<meta name="description" content="Small batch coffee roasted weekly.">
</head><body>
<nav><a href="/about">About us</a><a href="/shop">Shop</a></nav>
<main><h1>Fresh coffee, roasted weekly</h1><p>We roast coffee beans every week for cafes and homes.</p></main>
</body></html>`

const aboutHTML = `<html><head><title>About Acme</title></head><body><main><h1>About</h1><p>Coffee people.</p></main></body></html>`

type fakePerf struct {
	labCalls   atomic.Int32
	fieldCalls atomic.Int32
	labErr     error
}

func (f *fakePerf) Lab(ctx context.Context, url string) (*models.PerformanceMetrics, error) {
	f.labCalls.Add(1)
	if f.labErr != nil {
		return nil, f.labErr
	}
	return &models.PerformanceMetrics{LighthouseScore: 77, LCP: "2.1 s", CLS: "0.02", Source: "pagespeed"}, nil
}

func (f *fakePerf) Field(ctx context.Context, url string) *models.FieldMetrics {
	f.fieldCalls.Add(1)
	return &models.FieldMetrics{LCP: "2.00 s", DataSource: "CrUX"}
}

// site serves a small fixture site and counts homepage hits.
type site struct {
	srv          *httptest.Server
	homeStatus   int
	homepageHits atomic.Int32
}

func newSite(t *testing.T, homeStatus int) *site {
	t.Helper()
	s := &site{homeStatus: homeStatus}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			s.homepageHits.Add(1)
			if s.homeStatus != http.StatusOK {
				http.Error(w, "unavailable", s.homeStatus)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(homepageHTML))
		case "/about":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(aboutHTML))
		case "/robots.txt":
			fmt.Fprintf(w, "User-agent: *\nSitemap: %s/sitemap.xml\n", s.srv.URL)
		case "/sitemap.xml":
			fmt.Fprintf(w, `<urlset><url><loc>%[1]s/about</loc></url><url><loc>%[1]s/missing</loc></url></urlset>`, s.srv.URL)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

type harness struct {
	service *Service
	cache   *caching.Cache
	history *db.DB
	perf    *fakePerf
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := fetcher.NewFetcher()
	perf := &fakePerf{}

	ext := extractor.New(f, perf, logger)
	ext.Enrich = false

	history, err := db.Open(db.MemoryPath)
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	t.Cleanup(func() { history.Close() })

	cache := caching.NewCache(10, 0)
	svc := New(Deps{
		Extractor:   ext,
		Diagnostics: diagnostics.New(f, logger),
		Discovery:   discovery.New(f, logger),
		Performance: perf,
		Reporter:    report.NewStrategist(nil, nil, nil, logger),
		Cache:       cache,
		History:     history,
		Metrics:     metrics.New(),
	}, logger)
	svc.newID = func() string { return "audit-1" }

	return &harness{service: svc, cache: cache, history: history, perf: perf}
}

func TestRunInvalidRequest(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		req  Request
	}{
		{name: "missing url", req: Request{URL: "  "}},
		{name: "invalid url", req: Request{URL: "https://"}},
		{name: "unknown mode", req: Request{URL: "example.com", Mode: "medium"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.Run(context.Background(), tt.req)
			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("Run() error = %v, want *RequestError", err)
			}
			if reqErr.Status != http.StatusBadRequest {
				t.Errorf("Status = %d, want 400", reqErr.Status)
			}
		})
	}
}

func TestRunHomepageUnavailable(t *testing.T) {
	s := newSite(t, http.StatusServiceUnavailable)
	h := newHarness(t)

	for i := 0; i < 2; i++ {
		_, err := h.service.Run(context.Background(), Request{URL: s.srv.URL, Mode: "fast"})

		var reqErr *RequestError
		if !errors.As(err, &reqErr) {
			t.Fatalf("Run() error = %v, want *RequestError", err)
		}
		if reqErr.Status != http.StatusBadGateway {
			t.Errorf("Status = %d, want 502", reqErr.Status)
		}
		if !strings.Contains(reqErr.Message, "503") || !strings.HasPrefix(reqErr.Message, "Unable to scan "+s.srv.URL) {
			t.Errorf("Message = %q, want scan failure mentioning 503", reqErr.Message)
		}
		if reqErr.Diagnostics == nil || reqErr.Diagnostics.RobotsTxt == nil || reqErr.Diagnostics.RobotsTxt.Status != 200 {
			t.Errorf("Diagnostics = %+v, want populated robots.txt", reqErr.Diagnostics)
		}
	}

	// failed homepages are never served from cache
	if got := s.homepageHits.Load(); got != 2 {
		t.Errorf("homepage hits = %d, want 2", got)
	}
}

func TestRunFastWithoutModel(t *testing.T) {
	s := newSite(t, http.StatusOK)
	h := newHarness(t)

	got, err := h.service.Run(context.Background(), Request{URL: s.srv.URL, Mode: "fast"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got.Type != models.ModeFast {
		t.Errorf("Type = %q, want fast", got.Type)
	}
	if got.AnalysisMode != models.AnalysisDeterministic {
		t.Errorf("AnalysisMode = %q, want deterministic", got.AnalysisMode)
	}
	if got.Meta.DataSources.LLM.Status != models.StageSkipped {
		t.Errorf("LLM status = %q, want skipped", got.Meta.DataSources.LLM.Status)
	}
	if got.PageSignals == nil || got.PageSignals.Title != "Acme Coffee Roasters" {
		t.Errorf("PageSignals = %+v, want title %q", got.PageSignals, "Acme Coffee Roasters")
	}
	if len(got.ScannedPages) != 1 || got.ScannedPages[0] != s.srv.URL {
		t.Errorf("ScannedPages = %v, want [%s]", got.ScannedPages, s.srv.URL)
	}
	if got.Meta.AuditID != "audit-1" {
		t.Errorf("AuditID = %q, want audit-1", got.Meta.AuditID)
	}
	if n := h.perf.labCalls.Load(); n != 0 {
		t.Errorf("lab calls = %d, want 0 in fast mode", n)
	}

	records, err := h.history.ListAudits(s.srv.URL, 10)
	if err != nil {
		t.Fatalf("ListAudits() error = %v", err)
	}
	if len(records) != 1 || records[0].Mode != models.ModeFast {
		t.Errorf("history = %+v, want one fast audit", records)
	}

	// second fast pass is served from the homepage cache
	if _, err := h.service.Run(context.Background(), Request{URL: s.srv.URL, Mode: "fast"}); err != nil {
		t.Fatalf("Run() second pass error = %v", err)
	}
	if hits := s.homepageHits.Load(); hits != 1 {
		t.Errorf("homepage hits = %d, want 1", hits)
	}

	if _, err := h.service.Run(context.Background(), Request{URL: s.srv.URL, Mode: "fast", ForceRefresh: true}); err != nil {
		t.Fatalf("Run() forced error = %v", err)
	}
	if hits := s.homepageHits.Load(); hits != 2 {
		t.Errorf("homepage hits after force refresh = %d, want 2", hits)
	}
}

func TestRunDeepAfterFast(t *testing.T) {
	s := newSite(t, http.StatusOK)
	h := newHarness(t)

	if _, err := h.service.Run(context.Background(), Request{URL: s.srv.URL, Mode: "fast"}); err != nil {
		t.Fatalf("fast Run() error = %v", err)
	}

	got, err := h.service.Run(context.Background(), Request{URL: s.srv.URL, Mode: "deep"})
	if err != nil {
		t.Fatalf("deep Run() error = %v", err)
	}

	if got.Type != models.ModeDeep {
		t.Errorf("Type = %q, want deep", got.Type)
	}
	want := []string{s.srv.URL, s.srv.URL + "/about"}
	if strings.Join(got.ScannedPages, " ") != strings.Join(want, " ") {
		t.Errorf("ScannedPages = %v, want %v", got.ScannedPages, want)
	}
	if got.Meta.URL != s.srv.URL {
		t.Errorf("Meta.URL = %q, want %q", got.Meta.URL, s.srv.URL)
	}
	if got.Meta.Performance == nil || got.Meta.Performance.LighthouseScore != 77 {
		t.Errorf("Meta.Performance = %+v, want lab score 77", got.Meta.Performance)
	}
	if got.Meta.Crux == nil || got.Meta.Crux.DataSource != "CrUX" {
		t.Errorf("Meta.Crux = %+v, want CrUX data", got.Meta.Crux)
	}
	if got.StrategicIntelligence == nil {
		t.Error("StrategicIntelligence = nil, want deterministic strategy")
	}
	if n := h.perf.labCalls.Load(); n != 1 {
		t.Errorf("lab calls = %d, want 1", n)
	}

	// the enriched homepage is written back to the cache
	cached, ok := h.cache.Get(caching.Key(s.srv.URL))
	if !ok || cached.Performance == nil || cached.Crux == nil {
		t.Errorf("cached homepage = %+v, want performance and crux", cached)
	}

	// a second deep pass reuses the cached metrics
	if _, err := h.service.Run(context.Background(), Request{URL: s.srv.URL}); err != nil {
		t.Fatalf("second deep Run() error = %v", err)
	}
	if n := h.perf.labCalls.Load(); n != 1 {
		t.Errorf("lab calls after second deep pass = %d, want 1", n)
	}
	if hits := s.homepageHits.Load(); hits != 1 {
		t.Errorf("homepage hits = %d, want 1", hits)
	}

	// every run reuses the fixed test id, so rows replace each other
	records, _ := h.history.ListAudits(s.srv.URL, 10)
	if len(records) != 1 {
		t.Errorf("len(history) = %d, want 1", len(records))
	}
}

func TestRunDeepLabFailure(t *testing.T) {
	s := newSite(t, http.StatusOK)
	h := newHarness(t)
	h.perf.labErr = errors.New("quota exceeded")

	got, err := h.service.Run(context.Background(), Request{URL: s.srv.URL, Mode: "deep"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Meta.Performance != nil {
		t.Errorf("Meta.Performance = %+v, want nil", got.Meta.Performance)
	}
	if got.Meta.DataSources.PSI.Status != models.StageDegraded {
		t.Errorf("PSI status = %q, want degraded", got.Meta.DataSources.PSI.Status)
	}
	if len(got.ScannedPages) != 2 {
		t.Errorf("ScannedPages = %v, want homepage and /about", got.ScannedPages)
	}
}
