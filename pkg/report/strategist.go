// Package report turns page signals into an audit report, using a language
// model when one is configured and deterministic rules otherwise.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dtnitsch/web-audit/internal/common"
	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/llm"
	"github.com/dtnitsch/web-audit/pkg/prompts"
)

// Strategist generates reports. Fast and Deep may be nil.
type Strategist struct {
	Fast    llm.Completer
	Deep    llm.Completer
	Prompts *prompts.Set

	logger    *slog.Logger
	sanitizer *sanitizer
	now       func() time.Time
}

func NewStrategist(fast, deep llm.Completer, p *prompts.Set, logger *slog.Logger) *Strategist {
	if logger == nil {
		logger = slog.Default()
	}
	if p == nil {
		p = prompts.Default()
	}
	return &Strategist{
		Fast:      fast,
		Deep:      deep,
		Prompts:   p,
		logger:    logger,
		sanitizer: newSanitizer(),
		now:       time.Now,
	}
}

// Homepage picks the page whose URL matches domain, else the first page.
func Homepage(pages []*models.PageSignal, domain string) *models.PageSignal {
	for _, p := range pages {
		if common.SameURL(p.URL, domain) {
			return p
		}
	}
	if len(pages) > 0 {
		return pages[0]
	}
	return nil
}

// Generate always returns a report. Model failures are logged and recorded
// in meta.dataSources.llm; the report then falls back to deterministic rules.
func (s *Strategist) Generate(ctx context.Context, pages []*models.PageSignal, domain string, mode models.Mode, diag *models.SiteDiagnostics) *models.AuditReport {
	home := Homepage(pages, domain)
	score := Score(home)
	report := Deterministic(home, domain, diag)

	llmStage := s.runModel(ctx, &report, pages, home, domain, mode, diag, score)

	report.Meta = models.ReportMeta{
		URL:             domain,
		ScanTimestamp:   s.now().UTC(),
		ScanDiagnostics: diag,
		DataSources:     dataSources(home, len(pages), mode),
	}
	report.Meta.DataSources.LLM = llmStage
	if home != nil {
		report.Meta.Performance = home.Performance
		report.Meta.Crux = home.Crux
	}
	s.stamp(&report, pages, home, mode)
	return &report
}

func (s *Strategist) runModel(ctx context.Context, report *models.AuditReport, pages []*models.PageSignal, home *models.PageSignal, domain string, mode models.Mode, diag *models.SiteDiagnostics, score int) models.StageResult {
	completer, system := s.Fast, s.Prompts.FastSystem
	if mode == models.ModeDeep {
		completer, system = s.Deep, s.Prompts.DeepSystem()
	}
	if completer == nil {
		return models.StageResult{Status: models.StageSkipped, Detail: "no API key configured"}
	}

	var payload string
	var err error
	if mode == models.ModeDeep {
		payload, err = buildDeepPayload(pages, home, domain, diag, score, report.TacticalFixes)
	} else {
		payload, err = buildFastPayload(home, score)
	}
	if err != nil {
		return s.failed(domain, completer, fmt.Errorf("failed to build payload: %w", err))
	}

	raw, err := s.complete(ctx, completer, system, payload)
	if err != nil {
		return s.failed(domain, completer, err)
	}
	ai, err := parseAI(raw, mode)
	if err != nil {
		return s.failed(domain, completer, err)
	}
	s.sanitizer.report(ai)
	*report = merge(*report, ai, mode, score)
	return models.StageResult{Status: models.StageOK, Detail: completer.Model()}
}

// complete calls the model and turns a panic into an error.
func (s *Strategist) complete(ctx context.Context, c llm.Completer, system, payload string) (raw string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model call panicked: %v", r)
		}
	}()
	return c.Complete(ctx, system, payload)
}

func (s *Strategist) failed(domain string, c llm.Completer, err error) models.StageResult {
	s.logger.Warn("model report failed, using deterministic report", "url", domain, "model", c.Model(), "error", err)
	return models.StageResult{Status: models.StageFailed, Detail: err.Error()}
}

// stamp overwrites every field that must come from measured data.
func (s *Strategist) stamp(r *models.AuditReport, pages []*models.PageSignal, home *models.PageSignal, mode models.Mode) {
	r.Type = mode
	r.AnalysisMode = models.AnalysisDeterministic
	if r.Meta.DataSources.LLM.Status == models.StageOK {
		r.AnalysisMode = models.AnalysisAI
	}

	r.ScannedPages = make([]string, 0, len(pages))
	for _, p := range pages {
		r.ScannedPages = append(r.ScannedPages, p.URL)
	}

	r.Signals.Navigation = []string{}
	r.PageSignals = nil
	r.DOMIssues = nil
	if home != nil {
		if home.Navigation != nil {
			r.Signals.Navigation = home.Navigation
		}
		r.PageSignals = models.Summarize(home)
		if home.Performance != nil {
			r.DOMIssues = home.Performance.DOMIssues
		}
	}
}
