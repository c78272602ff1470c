// Package auditor runs the two-phase audit pipeline: a fast homepage pass
// and a deep multi-page pass.
package auditor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/web-audit/internal/common"
	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/caching"
	"github.com/dtnitsch/web-audit/pkg/db"
	"github.com/dtnitsch/web-audit/pkg/extractor"
	"github.com/dtnitsch/web-audit/pkg/metrics"
)

// DefaultConcurrency bounds concurrent sub-page fetches in the deep pass.
const DefaultConcurrency = 4

// Extractor turns a URL into a page signal. It never fails.
type Extractor interface {
	Extract(ctx context.Context, pageURL string, includePerformance bool) *models.PageSignal
}

type DiagnosticsFetcher interface {
	Fetch(ctx context.Context, baseURL string) *models.SiteDiagnostics
}

type Discoverer interface {
	Discover(ctx context.Context, baseURL string) []string
}

type Reporter interface {
	Generate(ctx context.Context, pages []*models.PageSignal, domain string, mode models.Mode, diag *models.SiteDiagnostics) *models.AuditReport
}

// HistoryRecorder persists a summary row per finished audit.
type HistoryRecorder interface {
	RecordAudit(rec db.AuditRecord) error
}

// Request is one audit request. An empty Mode means deep.
type Request struct {
	URL          string `json:"url"`
	Mode         string `json:"mode"`
	ForceRefresh bool   `json:"forceRefresh"`
}

// RequestError is an audit failure that maps onto an HTTP status.
type RequestError struct {
	Status      int
	Message     string
	Diagnostics *models.SiteDiagnostics
}

func (e *RequestError) Error() string {
	return e.Message
}

// Deps are the pipeline collaborators. Performance, History and Metrics
// are optional.
type Deps struct {
	Extractor   Extractor
	Diagnostics DiagnosticsFetcher
	Discovery   Discoverer
	Performance extractor.PerformanceSource
	Reporter    Reporter
	Cache       *caching.Cache
	History     HistoryRecorder
	Metrics     *metrics.Collector
}

type Service struct {
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	// Concurrency bounds sub-page fetches.
	Concurrency int
}

func New(deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Cache == nil {
		deps.Cache = caching.NewCache(caching.DefaultSize, caching.DefaultTTL)
	}
	return &Service{
		deps:        deps,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
		Concurrency: DefaultConcurrency,
	}
}

// Run audits req.URL. Input problems and an unreachable homepage come back
// as *RequestError; every other collaborator failure degrades the report.
func (s *Service) Run(ctx context.Context, req Request) (*models.AuditReport, error) {
	start := s.now()

	if strings.TrimSpace(req.URL) == "" {
		return nil, &RequestError{Status: http.StatusBadRequest, Message: "URL is required"}
	}
	target, err := common.NormalizeURL(req.URL)
	if err != nil {
		return nil, &RequestError{Status: http.StatusBadRequest, Message: "Invalid URL format."}
	}
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		return nil, &RequestError{Status: http.StatusBadRequest, Message: err.Error()}
	}

	s.logger.Info("audit started", "url", target, "mode", mode, "force_refresh", req.ForceRefresh)

	home, diag, err := s.fetchHomepage(ctx, target, mode, req.ForceRefresh)
	if err != nil {
		return nil, err
	}
	if !home.OK() {
		s.deps.Metrics.CollaboratorFailed("homepage")
		reason := home.BlockedReason
		if reason == "" {
			reason = fmt.Sprintf("HTTP %d", home.StatusCode)
		}
		s.logger.Warn("homepage scan failed", "url", target, "status", home.StatusCode, "reason", reason)
		return nil, &RequestError{
			Status:      http.StatusBadGateway,
			Message:     fmt.Sprintf("Unable to scan %s: %s", target, reason),
			Diagnostics: diag,
		}
	}

	var report *models.AuditReport
	if mode == models.ModeFast {
		report = s.deps.Reporter.Generate(ctx, []*models.PageSignal{home}, target, models.ModeFast, diag)
	} else {
		report = s.deep(ctx, target, home, diag)
	}

	report.Type = mode
	report.Meta.AuditID = s.newID()
	s.record(report, start)

	s.logger.Info("audit complete",
		"url", target,
		"mode", mode,
		"analysis_mode", report.AnalysisMode,
		"pages", len(report.ScannedPages),
		"audit_id", report.Meta.AuditID,
		"elapsed", s.now().Sub(start).String())
	return report, nil
}

// fetchHomepage loads site diagnostics and the homepage concurrently. The
// homepage comes from the cache unless force is set.
func (s *Service) fetchHomepage(ctx context.Context, target string, mode models.Mode, force bool) (*models.PageSignal, *models.SiteDiagnostics, error) {
	var (
		home *models.PageSignal
		diag *models.SiteDiagnostics
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer s.recoverStage("diagnostics", target)
		diag = s.deps.Diagnostics.Fetch(gctx, target)
		return nil
	})
	g.Go(func() error {
		sig, hit, err := s.deps.Cache.Load(gctx, caching.Key(target), force, func(c context.Context) *models.PageSignal {
			return s.deps.Extractor.Extract(c, target, mode == models.ModeDeep)
		})
		if err != nil {
			return fmt.Errorf("failed to load homepage %s: %w", target, err)
		}
		s.deps.Metrics.CacheLookup(hit)
		if hit {
			s.logger.Debug("homepage cache hit", "url", target)
		}
		home = sig
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if home == nil {
		return nil, nil, errors.New("homepage extraction returned no signal")
	}
	return home, diag, nil
}

// deep fills in missing performance data, discovers and fetches sub-pages,
// and builds the deep report.
func (s *Service) deep(ctx context.Context, target string, home *models.PageSignal, diag *models.SiteDiagnostics) *models.AuditReport {
	var (
		lab        *models.PerformanceMetrics
		field      *models.FieldMetrics
		discovered []string
	)

	g, gctx := errgroup.WithContext(ctx)
	if home.Performance == nil && s.deps.Performance != nil {
		g.Go(func() error {
			defer s.recoverStage("lab", target)
			m, err := s.deps.Performance.Lab(gctx, target)
			if err != nil {
				s.logger.Warn("performance audit failed", "url", target, "error", err)
				return nil
			}
			lab = m
			return nil
		})
	}
	if home.Crux == nil && s.deps.Performance != nil {
		g.Go(func() error {
			defer s.recoverStage("crux", target)
			field = s.deps.Performance.Field(gctx, target)
			return nil
		})
	}
	g.Go(func() error {
		defer s.recoverStage("discovery", target)
		discovered = s.deps.Discovery.Discover(gctx, target)
		return nil
	})
	_ = g.Wait() // stages never return errors

	if lab != nil || field != nil {
		if lab != nil {
			home.Performance = lab
		}
		if field != nil {
			home.Crux = field
		}
		s.deps.Cache.Set(caching.Key(target), home)
	}

	pages := append([]*models.PageSignal{home}, s.fetchSubPages(ctx, target, discovered)...)

	report := s.deps.Reporter.Generate(ctx, pages, target, models.ModeDeep, diag)
	report.Meta.URL = target
	report.Meta.ScanTimestamp = s.now().UTC()
	report.Meta.Performance = home.Performance
	report.Meta.Crux = home.Crux
	report.ScannedPages = make([]string, 0, len(pages))
	for _, p := range pages {
		report.ScannedPages = append(report.ScannedPages, p.URL)
	}
	return report
}

// fetchSubPages extracts every discovered page other than the homepage and
// keeps the ones that returned 200, in discovery order.
func (s *Service) fetchSubPages(ctx context.Context, target string, discovered []string) []*models.PageSignal {
	var subPages []string
	for _, p := range discovered {
		if !common.SameURL(p, target) {
			subPages = append(subPages, p)
		}
	}
	s.logger.Info("analyzing sub-pages", "url", target, "count", len(subPages))

	results := make([]*models.PageSignal, len(subPages))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)
	for i, p := range subPages {
		g.Go(func() error {
			results[i] = s.deps.Extractor.Extract(gctx, p, false)
			return nil
		})
	}
	_ = g.Wait()

	var valid []*models.PageSignal
	for i, sig := range results {
		if sig == nil || sig.StatusCode != http.StatusOK {
			status := 0
			if sig != nil {
				status = sig.StatusCode
			}
			s.logger.Warn("sub-page skipped", "url", subPages[i], "status", status)
			continue
		}
		valid = append(valid, sig)
	}
	return valid
}

func (s *Service) record(report *models.AuditReport, start time.Time) {
	s.deps.Metrics.ObserveAudit(report, s.now().Sub(start))
	if s.deps.History == nil {
		return
	}
	if err := s.deps.History.RecordAudit(db.RecordFromReport(report)); err != nil {
		s.logger.Warn("failed to record audit history", "audit_id", report.Meta.AuditID, "error", err)
	}
}

func (s *Service) recoverStage(name, target string) {
	if r := recover(); r != nil {
		s.deps.Metrics.CollaboratorFailed(name)
		s.logger.Error("collaborator panicked", "collaborator", name, "url", target, "panic", r)
	}
}
