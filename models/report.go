package models

import (
	"encoding/json"
	"time"
)

// AuditReport is the response body of an audit.
type AuditReport struct {
	Meta                  ReportMeta             `json:"meta" yaml:"meta"`
	Type                  Mode                   `json:"type" yaml:"type"`
	AnalysisMode          AnalysisMode           `json:"analysisMode" yaml:"analysis_mode"`
	ScannedPages          []string               `json:"scannedPages" yaml:"scanned_pages"`
	CoreSignals           CoreSignals            `json:"coreSignals" yaml:"core_signals"`
	TacticalFixes         []TacticalFix          `json:"tacticalFixes" yaml:"tactical_fixes"`
	StrategicIntelligence *StrategicIntelligence `json:"strategicIntelligence,omitempty" yaml:"strategic_intelligence,omitempty"`
	ClientReadySummary    ClientReadySummary     `json:"clientReadySummary" yaml:"client_ready_summary"`
	Signals               ReportSignals          `json:"signals" yaml:"signals"`
	PageSignals           *PageSummary           `json:"pageSignals,omitempty" yaml:"page_signals,omitempty"`
	DOMIssues             *DOMIssues             `json:"domIssues,omitempty" yaml:"dom_issues,omitempty"`
}

type ReportMeta struct {
	AuditID         string              `json:"auditId,omitempty" yaml:"audit_id,omitempty"`
	URL             string              `json:"url" yaml:"url"`
	ScanTimestamp   time.Time           `json:"scanTimestamp" yaml:"scan_timestamp"`
	Performance     *PerformanceMetrics `json:"performance,omitempty" yaml:"performance,omitempty"`
	Crux            *FieldMetrics       `json:"crux,omitempty" yaml:"crux,omitempty"`
	ScanDiagnostics *SiteDiagnostics    `json:"scanDiagnostics,omitempty" yaml:"scan_diagnostics,omitempty"`
	DataSources     DataSources         `json:"dataSources" yaml:"data_sources"`
}

type DataSources struct {
	PSI    StageResult `json:"psi" yaml:"psi"`
	Crux   StageResult `json:"crux" yaml:"crux"`
	OnPage StageResult `json:"onPage" yaml:"on_page"`
	LLM    StageResult `json:"llm" yaml:"llm"`
}

type CoreSignals struct {
	VibeScore          VibeScore   `json:"vibeScore" yaml:"vibe_score"`
	HeadlineSignal     GradeSignal `json:"headlineSignal" yaml:"headline_signal"`
	VisualArchitecture GradeSignal `json:"visualArchitecture" yaml:"visual_architecture"`
}

type VibeScore struct {
	Score       float64                   `json:"score" yaml:"score"`
	Label       string                    `json:"label" yaml:"label"`
	Summary     string                    `json:"summary" yaml:"summary"`
	Components  map[string]ScoreComponent `json:"components,omitempty" yaml:"components,omitempty"`
	Calculation string                    `json:"calculation,omitempty" yaml:"calculation,omitempty"`
}

type ScoreComponent struct {
	Score     float64 `json:"score" yaml:"score"`
	Weight    float64 `json:"weight" yaml:"weight"`
	Rationale string  `json:"rationale" yaml:"rationale"`
}

type GradeSignal struct {
	Grade        string  `json:"grade" yaml:"grade"`
	Score        float64 `json:"score,omitempty" yaml:"score,omitempty"`
	Label        string  `json:"label,omitempty" yaml:"label,omitempty"`
	Summary      string  `json:"summary" yaml:"summary"`
	Rationale    string  `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	WhyItMatters string  `json:"whyItMatters,omitempty" yaml:"why_it_matters,omitempty"`
	QuickWin     string  `json:"quickWin,omitempty" yaml:"quick_win,omitempty"`
}

// TacticalFix is one actionable recommendation.
type TacticalFix struct {
	ID                 string     `json:"id" yaml:"id"`
	Title              string     `json:"title" yaml:"title"`
	Category           string     `json:"category" yaml:"category"`
	Problem            string     `json:"problem" yaml:"problem"`
	Recommendation     string     `json:"recommendation" yaml:"recommendation"`
	Impact             string     `json:"impact" yaml:"impact"`
	Severity           string     `json:"severity" yaml:"severity"`
	EffortHours        float64    `json:"effortHours" yaml:"effort_hours"`
	Owners             []string   `json:"owners" yaml:"owners"`
	ExpectedOutcome    string     `json:"expectedOutcome,omitempty" yaml:"expected_outcome,omitempty"`
	ValidationCriteria string     `json:"validationCriteria,omitempty" yaml:"validation_criteria,omitempty"`
	Confidence         string     `json:"confidence" yaml:"confidence"`
	Evidence           []Evidence `json:"evidence" yaml:"evidence"`
}

// Evidence is a labelled citation backing a fix.
type Evidence struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// UnmarshalJSON accepts both {label, value} objects and bare strings.
func (e *Evidence) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		e.Label = "Evidence"
		e.Value = s
		return nil
	}
	type plain Evidence
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = Evidence(p)
	return nil
}

type StrategySection struct {
	Summary string   `json:"summary" yaml:"summary"`
	Actions []string `json:"actions" yaml:"actions"`
}

type StrategicIntelligence struct {
	OnSiteStrategy  *StrategySection `json:"onSiteStrategy" yaml:"on_site_strategy"`
	OffSiteGrowth   *StrategySection `json:"offSiteGrowth" yaml:"off_site_growth"`
	AIOpportunities *StrategySection `json:"aiOpportunities" yaml:"ai_opportunities"`
}

type ClientReadySummary struct {
	ExecutiveSummary string   `json:"executiveSummary" yaml:"executive_summary"`
	Top3WinsThisWeek []string `json:"top3WinsThisWeek" yaml:"top3_wins_this_week"`
}

type ReportSignals struct {
	Navigation []string `json:"navigation" yaml:"navigation"`
}

// PageSummary is the homepage subset echoed back in a report.
type PageSummary struct {
	Title           string         `json:"title" yaml:"title"`
	MetaDescription string         `json:"metaDescription" yaml:"meta_description"`
	MetaKeywords    string         `json:"metaKeywords" yaml:"meta_keywords"`
	MetaRobots      string         `json:"metaRobots" yaml:"meta_robots"`
	XRobotsTag      string         `json:"xRobotsTag,omitempty" yaml:"x_robots_tag,omitempty"`
	Canonical       string         `json:"canonical,omitempty" yaml:"canonical,omitempty"`
	H1              []string       `json:"h1" yaml:"h1"`
	H2Count         int            `json:"h2Count" yaml:"h2_count"`
	WordCount       int            `json:"wordCount" yaml:"word_count"`
	TopKeywords     []KeywordCount `json:"topKeywords" yaml:"top_keywords"`
	CTAs            []CTA          `json:"ctas" yaml:"ctas"`
	Language        *Language      `json:"language,omitempty" yaml:"language,omitempty"`
}

// Summarize builds the echoed subset of a page signal.
func Summarize(p *PageSignal) *PageSummary {
	if p == nil {
		return nil
	}
	ctas := p.CTAs
	if ctas == nil {
		ctas = []CTA{}
	}
	return &PageSummary{
		Title:           p.Title,
		MetaDescription: p.MetaDescription,
		MetaKeywords:    p.MetaKeywords,
		MetaRobots:      p.MetaRobots,
		XRobotsTag:      p.XRobotsTag,
		Canonical:       p.Canonical,
		H1:              p.H1,
		H2Count:         p.H2Count,
		WordCount:       p.WordCount,
		TopKeywords:     p.TopKeywords,
		CTAs:            ctas,
		Language:        p.Language,
	}
}
