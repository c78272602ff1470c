package performance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dtnitsch/web-audit/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	rodAuditTimeout   = 45 * time.Second
	rodStableDuration = time.Second
	maxConcurrentTabs = 2
)

// observerScript is installed before any page script runs and records paint,
// layout-shift and long-task entries on window.__webAudit.
const observerScript = `(() => {
  const a = window.__webAudit = { fcp: 0, lcp: 0, lcpRect: null, lcpSnippet: '', cls: 0, shifts: [], tbt: 0 };
  const rect = el => { const r = el.getBoundingClientRect(); return { top: r.top, bottom: r.bottom, left: r.left, right: r.right, width: r.width, height: r.height }; };
  const observe = (type, fn) => { try { new PerformanceObserver(l => l.getEntries().forEach(fn)).observe({ type, buffered: true }); } catch (e) {} };
  observe('paint', e => { if (e.name === 'first-contentful-paint') a.fcp = e.startTime; });
  observe('largest-contentful-paint', e => {
    a.lcp = e.startTime;
    if (e.element) { a.lcpRect = rect(e.element); a.lcpSnippet = e.element.outerHTML.slice(0, 200); }
  });
  observe('layout-shift', e => {
    if (e.hadRecentInput) return;
    a.cls += e.value;
    (e.sources || []).forEach(s => {
      if (s.node && s.node.getBoundingClientRect && a.shifts.length < 5) {
        a.shifts.push({ rect: rect(s.node), snippet: (s.node.outerHTML || '').slice(0, 200) });
      }
    });
  });
  observe('longtask', e => { a.tbt += Math.max(0, e.duration - 50); });
})()`

const collectScript = `() => {
  const a = window.__webAudit || {};
  const nav = performance.getEntriesByType('navigation')[0];
  return JSON.stringify(Object.assign({}, a, { tti: nav ? nav.domInteractive : 0 }));
}`

type rodSample struct {
	FCP        float64 `json:"fcp"`
	LCP        float64 `json:"lcp"`
	LCPRect    *models.Rect `json:"lcpRect"`
	LCPSnippet string  `json:"lcpSnippet"`
	CLS        float64 `json:"cls"`
	Shifts     []struct {
		Rect    models.Rect `json:"rect"`
		Snippet string      `json:"snippet"`
	} `json:"shifts"`
	TBT float64 `json:"tbt"`
	TTI float64 `json:"tti"`
}

// RodAuditor measures lab metrics in a local headless Chromium.
type RodAuditor struct {
	browser *rod.Browser
	tabSem  chan struct{}
	logger  *slog.Logger
	once    sync.Once
}

// NewRodAuditor launches a headless browser. bin may be empty to let the
// launcher find or download Chromium.
func NewRodAuditor(bin string, logger *slog.Logger) (*RodAuditor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage")
	if bin != "" {
		l = l.Bin(bin)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch headless browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to headless browser: %w", err)
	}
	return &RodAuditor{
		browser: browser,
		tabSem:  make(chan struct{}, maxConcurrentTabs),
		logger:  logger,
	}, nil
}

func (r *RodAuditor) Audit(ctx context.Context, pageURL string) (*models.PerformanceMetrics, error) {
	select {
	case r.tabSem <- struct{}{}:
		defer func() { <-r.tabSem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create tab: %w", err)
	}
	defer page.Close()

	auditCtx, cancel := context.WithTimeout(ctx, rodAuditTimeout)
	defer cancel()
	page = page.Context(auditCtx)

	if _, err := page.EvalOnNewDocument(observerScript); err != nil {
		return nil, fmt.Errorf("failed to install observers: %w", err)
	}
	if err := page.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", pageURL, err)
	}
	_ = page.WaitStable(rodStableDuration)

	res, err := page.Eval(collectScript)
	if err != nil {
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}
	var sample rodSample
	if err := json.Unmarshal([]byte(res.Value.Str()), &sample); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}

	info, _ := page.Info()
	m := sample.metrics()
	if info != nil {
		m.FinalURL = info.URL
	}
	m.FetchTime = time.Now().UTC().Format(time.RFC3339)
	return m, nil
}

func (s rodSample) metrics() *models.PerformanceMetrics {
	m := &models.PerformanceMetrics{
		LighthouseScore: LabScore(LabTimings{FCP: s.FCP, LCP: s.LCP, TBT: s.TBT, CLS: s.CLS, HasCLS: true}),
		LCP:             FormatSeconds(s.LCP),
		INP:             FormatSeconds(s.TTI),
		CLS:             fmt.Sprintf("%.2f", s.CLS),
		FCP:             FormatSeconds(s.FCP),
		TTI:             FormatSeconds(s.TTI),
		Source:          "rod",
	}
	issues := &models.DOMIssues{}
	if s.LCPRect != nil {
		issues.LCP = &models.ElementIssue{Rect: *s.LCPRect, Snippet: s.LCPSnippet}
	}
	for _, shift := range s.Shifts {
		issues.CLS = append(issues.CLS, models.ElementIssue{Rect: shift.Rect, Snippet: shift.Snippet})
	}
	if issues.LCP != nil || len(issues.CLS) > 0 {
		m.DOMIssues = issues
	}
	return m
}

// Close shuts down the browser.
func (r *RodAuditor) Close() {
	r.once.Do(func() { _ = r.browser.Close() })
}
