// Package app builds the audit pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/auditor"
	"github.com/dtnitsch/web-audit/pkg/caching"
	"github.com/dtnitsch/web-audit/pkg/db"
	"github.com/dtnitsch/web-audit/pkg/diagnostics"
	"github.com/dtnitsch/web-audit/pkg/discovery"
	"github.com/dtnitsch/web-audit/pkg/extractor"
	"github.com/dtnitsch/web-audit/pkg/fetcher"
	"github.com/dtnitsch/web-audit/pkg/llm"
	"github.com/dtnitsch/web-audit/pkg/metrics"
	"github.com/dtnitsch/web-audit/pkg/performance"
	"github.com/dtnitsch/web-audit/pkg/prompts"
	"github.com/dtnitsch/web-audit/pkg/report"
	"github.com/dtnitsch/web-audit/pkg/safety"
)

// Lab auditor names accepted in performance.auditor.
const (
	AuditorPageSpeed = "pagespeed"
	AuditorRod       = "rod"
	AuditorNone      = "none"
)

// App owns every long-lived component. History is nil when disabled.
type App struct {
	Config      models.Config
	Logger      *slog.Logger
	Auditor     *auditor.Service
	Performance *performance.Collector
	Safety      *safety.Checker
	History     *db.DB
	Metrics     *metrics.Collector

	closers []func()
}

// NewLogger builds the JSON stderr logger used by every command.
func NewLogger(quiet, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelError
	} else if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// New wires the pipeline. Missing API keys disable the matching
// collaborator rather than failing.
func New(ctx context.Context, cfg models.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}
	f := fetcher.NewFetcher()

	lab, err := a.labAuditor(f)
	if err != nil {
		return nil, err
	}
	crux := performance.NewCruxClient(f, cfg.Performance.CruxAPIKey, logger)
	if crux != nil {
		crux.Timeout = cfg.Timeouts.Crux
		if cfg.Performance.CruxURL != "" {
			crux.Endpoint = cfg.Performance.CruxURL
		}
	}
	a.Performance = performance.NewCollector(lab, crux)

	ext := extractor.New(f, a.Performance, logger)
	ext.Timeout = cfg.Timeouts.Page

	diag := diagnostics.New(f, logger)
	diag.Timeout = cfg.Timeouts.Diagnostics

	disc := discovery.New(f, logger)
	disc.MaxPages = cfg.Discovery.MaxPages
	disc.SitemapTimeout = cfg.Timeouts.Sitemap
	disc.CrawlTimeout = cfg.Timeouts.Crawl

	strategist, err := a.strategist(ctx, f)
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := auditor.Deps{
		Extractor:   ext,
		Diagnostics: diag,
		Discovery:   disc,
		Performance: a.Performance,
		Reporter:    strategist,
		Cache:       caching.NewCache(cfg.Cache.Size, cfg.Cache.TTL),
		Metrics:     a.Metrics,
	}
	if cfg.History.Path != "" {
		history, err := db.Open(cfg.History.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open audit history: %w", err)
		}
		a.History = history
		a.closers = append(a.closers, func() { _ = history.Close() })
		deps.History = history
	}

	a.Auditor = auditor.New(deps, logger)
	if cfg.Discovery.Concurrency > 0 {
		a.Auditor.Concurrency = cfg.Discovery.Concurrency
	}

	a.Safety = safety.NewChecker(f, cfg.Safety.APIKey, logger)
	if cfg.Safety.URL != "" {
		a.Safety.Endpoint = cfg.Safety.URL
	}

	logger.Info("pipeline ready",
		"lab_auditor", cfg.Performance.Auditor,
		"crux", crux != nil,
		"fast_llm", cfg.LLM.Fast.APIKey != "",
		"deep_llm", cfg.LLM.Deep.APIKey != "",
		"safety", cfg.Safety.APIKey != "",
		"history", a.History != nil)
	return a, nil
}

func (a *App) labAuditor(f *fetcher.Fetcher) (performance.LabAuditor, error) {
	cfg := a.Config.Performance
	switch cfg.Auditor {
	case AuditorPageSpeed, "":
		psi := performance.NewPageSpeedAuditor(f, cfg.PageSpeedAPIKey, a.Logger)
		psi.Timeout = a.Config.Timeouts.PageSpeed
		if cfg.PageSpeedURL != "" {
			psi.Endpoint = cfg.PageSpeedURL
		}
		return psi, nil
	case AuditorRod:
		rod, err := performance.NewRodAuditor(cfg.BrowserBin, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to start browser auditor: %w", err)
		}
		a.closers = append(a.closers, rod.Close)
		return rod, nil
	case AuditorNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown performance auditor %q (want pagespeed, rod or none)", cfg.Auditor)
}

// strategist only sets a completer when its client exists, so the report
// package never sees a typed nil behind the interface.
func (a *App) strategist(ctx context.Context, f *fetcher.Fetcher) (*report.Strategist, error) {
	set := prompts.Default()
	if a.Config.PromptsPath != "" {
		loaded, err := prompts.Load(a.Config.PromptsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompts: %w", err)
		}
		set = loaded
	}

	var fast, deep llm.Completer
	if c := llm.NewFastClient(f, a.Config.LLM.Fast); c != nil {
		c.Timeout = a.Config.Timeouts.FastLLM
		fast = c
	}
	c, err := llm.NewDeepClient(ctx, a.Config.LLM.Deep)
	if err != nil {
		return nil, fmt.Errorf("failed to create deep model client: %w", err)
	}
	if c != nil {
		c.Timeout = a.Config.Timeouts.DeepLLM
		deep = c
	}
	return report.NewStrategist(fast, deep, set, a.Logger), nil
}

// Close releases the browser and the history database.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
