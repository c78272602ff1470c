package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/llm"
	"github.com/dtnitsch/web-audit/pkg/mapreduce"
	"github.com/microcosm-cc/bluemonday"
)

const (
	// DeepMinFixes is the tactical fix count deep reports are topped up to.
	DeepMinFixes = 8

	siteKeywordLimit = 15
	payloadSnippet   = 600
)

var (
	errNoScore          = errors.New("missing vibe score")
	errScoreRange       = errors.New("vibe score outside 0-100")
	errNoSummary        = errors.New("missing executive summary")
	errNoFixes          = errors.New("no tactical fixes")
	errIncompleteStrat  = errors.New("incomplete strategic intelligence")
	errMissingHomeFacts = errors.New("no homepage signal")
)

// aiReport is the subset of AuditReport a model may supply.
type aiReport struct {
	CoreSignals           models.CoreSignals            `json:"coreSignals"`
	TacticalFixes         []models.TacticalFix          `json:"tacticalFixes"`
	StrategicIntelligence *models.StrategicIntelligence `json:"strategicIntelligence"`
	ClientReadySummary    models.ClientReadySummary     `json:"clientReadySummary"`
}

// scorePresence tells an omitted score apart from a zero one.
type scorePresence struct {
	CoreSignals struct {
		VibeScore *struct {
			Score *float64 `json:"score"`
		} `json:"vibeScore"`
	} `json:"coreSignals"`
}

// parseAI decodes a model response and validates it against the schema
// expected for mode. Any mismatch is an error.
func parseAI(raw string, mode models.Mode) (*aiReport, error) {
	data := []byte(llm.StripFences(raw))
	var r aiReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	var present scorePresence
	if err := json.Unmarshal(data, &present); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	if vs := present.CoreSignals.VibeScore; vs == nil || vs.Score == nil {
		return nil, errNoScore
	}
	if s := r.CoreSignals.VibeScore.Score; s < 0 || s > 100 {
		return nil, errScoreRange
	}
	if strings.TrimSpace(r.ClientReadySummary.ExecutiveSummary) == "" {
		return nil, errNoSummary
	}
	if mode == models.ModeDeep {
		if len(r.TacticalFixes) == 0 {
			return nil, errNoFixes
		}
		si := r.StrategicIntelligence
		if si == nil || !complete(si.OnSiteStrategy) || !complete(si.OffSiteGrowth) || !complete(si.AIOpportunities) {
			return nil, errIncompleteStrat
		}
	}
	return &r, nil
}

func complete(s *models.StrategySection) bool {
	return s != nil && strings.TrimSpace(s.Summary) != ""
}

// merge overlays validated model output onto the deterministic report.
// Grade signals without a grade keep the deterministic value.
func merge(base models.AuditReport, ai *aiReport, mode models.Mode, score int) models.AuditReport {
	out := base
	out.CoreSignals.VibeScore = ai.CoreSignals.VibeScore
	if out.CoreSignals.VibeScore.Label == "" {
		out.CoreSignals.VibeScore.Label = ScoreLabel(out.CoreSignals.VibeScore.Score)
	}
	if out.CoreSignals.VibeScore.Components == nil {
		out.CoreSignals.VibeScore.Components = base.CoreSignals.VibeScore.Components
	}
	if out.CoreSignals.VibeScore.Calculation == "" {
		out.CoreSignals.VibeScore.Calculation = base.CoreSignals.VibeScore.Calculation
	}
	if ai.CoreSignals.HeadlineSignal.Grade != "" {
		out.CoreSignals.HeadlineSignal = ai.CoreSignals.HeadlineSignal
	}
	if ai.CoreSignals.VisualArchitecture.Grade != "" {
		out.CoreSignals.VisualArchitecture = ai.CoreSignals.VisualArchitecture
	}

	out.ClientReadySummary.ExecutiveSummary = ai.ClientReadySummary.ExecutiveSummary
	if len(ai.ClientReadySummary.Top3WinsThisWeek) > 0 {
		out.ClientReadySummary.Top3WinsThisWeek = ai.ClientReadySummary.Top3WinsThisWeek
	}

	if mode == models.ModeDeep {
		out.CoreSignals.VibeScore.Score = float64(score)
		out.CoreSignals.VibeScore.Label = ScoreLabel(float64(score))
		out.TacticalFixes = topUp(ai.TacticalFixes, base.TacticalFixes, DeepMinFixes)
		out.StrategicIntelligence = ai.StrategicIntelligence
	}
	return out
}

// topUp fills fixes up to n from fallback, skipping titles already present.
func topUp(fixes, fallback []models.TacticalFix, n int) []models.TacticalFix {
	seen := make(map[string]bool)
	out := make([]models.TacticalFix, 0, max(n, len(fixes)))
	for i, f := range fixes {
		if f.ID == "" {
			f.ID = fmt.Sprintf("ai-%02d", i+1)
		}
		seen[strings.ToLower(strings.TrimSpace(f.Title))] = true
		out = append(out, f)
	}
	for _, f := range fallback {
		if len(out) >= n {
			break
		}
		key := strings.ToLower(strings.TrimSpace(f.Title))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	for i := range out {
		if out[i].Owners == nil {
			out[i].Owners = []string{}
		}
		if out[i].Evidence == nil {
			out[i].Evidence = []models.Evidence{}
		}
	}
	return out
}

// sanitizer strips markup from model-authored text. Entities produced by
// the policy are decoded again since the output is JSON, not HTML.
type sanitizer struct {
	policy *bluemonday.Policy
}

func newSanitizer() *sanitizer {
	return &sanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *sanitizer) text(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s *sanitizer) list(vs []string) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if t := s.text(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (s *sanitizer) grade(g *models.GradeSignal) {
	g.Grade = s.text(g.Grade)
	g.Label = s.text(g.Label)
	g.Summary = s.text(g.Summary)
	g.Rationale = s.text(g.Rationale)
	g.WhyItMatters = s.text(g.WhyItMatters)
	g.QuickWin = s.text(g.QuickWin)
}

func (s *sanitizer) section(sec *models.StrategySection) {
	if sec == nil {
		return
	}
	sec.Summary = s.text(sec.Summary)
	sec.Actions = s.list(sec.Actions)
}

func (s *sanitizer) report(r *aiReport) {
	vs := &r.CoreSignals.VibeScore
	vs.Label = s.text(vs.Label)
	vs.Summary = s.text(vs.Summary)
	vs.Calculation = s.text(vs.Calculation)
	for k, c := range vs.Components {
		c.Rationale = s.text(c.Rationale)
		vs.Components[k] = c
	}
	s.grade(&r.CoreSignals.HeadlineSignal)
	s.grade(&r.CoreSignals.VisualArchitecture)

	for i := range r.TacticalFixes {
		f := &r.TacticalFixes[i]
		f.ID = s.text(f.ID)
		f.Title = s.text(f.Title)
		f.Category = s.text(f.Category)
		f.Problem = s.text(f.Problem)
		f.Recommendation = s.text(f.Recommendation)
		f.Impact = s.text(f.Impact)
		f.Severity = s.text(f.Severity)
		f.Owners = s.list(f.Owners)
		f.ExpectedOutcome = s.text(f.ExpectedOutcome)
		f.ValidationCriteria = s.text(f.ValidationCriteria)
		f.Confidence = s.text(f.Confidence)
		for j := range f.Evidence {
			f.Evidence[j].Label = s.text(f.Evidence[j].Label)
			f.Evidence[j].Value = s.text(f.Evidence[j].Value)
		}
	}

	if si := r.StrategicIntelligence; si != nil {
		s.section(si.OnSiteStrategy)
		s.section(si.OffSiteGrowth)
		s.section(si.AIOpportunities)
	}
	r.ClientReadySummary.ExecutiveSummary = s.text(r.ClientReadySummary.ExecutiveSummary)
	r.ClientReadySummary.Top3WinsThisWeek = s.list(r.ClientReadySummary.Top3WinsThisWeek)
}

type fastPayload struct {
	URL              string                     `json:"url"`
	Title            string                     `json:"title"`
	MetaDescription  string                     `json:"metaDescription"`
	H1               []string                   `json:"h1"`
	WordCount        int                        `json:"wordCount"`
	CTAs             []models.CTA               `json:"ctas"`
	TopKeywords      []models.KeywordCount      `json:"topKeywords"`
	TechStack        []string                   `json:"techStack"`
	SocialProfiles   int                        `json:"socialProfiles"`
	Performance      *models.PerformanceMetrics `json:"performance,omitempty"`
	DeterministicRef int                        `json:"deterministicScore"`
}

func buildFastPayload(home *models.PageSignal, score int) (string, error) {
	if home == nil {
		return "", errMissingHomeFacts
	}
	p := fastPayload{
		URL:              home.URL,
		Title:            home.Title,
		MetaDescription:  home.MetaDescription,
		H1:               home.H1,
		WordCount:        home.WordCount,
		CTAs:             home.CTAs,
		TopKeywords:      home.TopKeywords[:min(6, len(home.TopKeywords))],
		TechStack:        home.TechStack.All(),
		Performance:      home.Performance,
		DeterministicRef: score,
	}
	if home.Authority != nil {
		p.SocialProfiles = len(home.Authority.Socials)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return "Analyze these homepage signals and return the JSON schema.\n\nHOMEPAGE SIGNALS:\n" + string(data), nil
}

type deepPage struct {
	URL         string       `json:"url"`
	PageType    string       `json:"pageType"`
	Title       string       `json:"title"`
	H1          []string     `json:"h1"`
	WordCount   int          `json:"wordCount"`
	CTAs        []models.CTA `json:"ctas"`
	SchemaTypes []string     `json:"schemaTypes"`
	Links       struct {
		Internal int `json:"internal"`
		External int `json:"external"`
	} `json:"links"`
	Snippet string `json:"contentSnippet"`
}

type deepPayload struct {
	Domain         string                     `json:"domain"`
	MandatoryScore int                        `json:"mandatoryScore"`
	Performance    *models.PerformanceMetrics `json:"performance,omitempty"`
	Crux           *models.FieldMetrics       `json:"crux,omitempty"`
	TechStack      *models.TechStack          `json:"techStack,omitempty"`
	Authority      *models.AuthoritySignals   `json:"authority,omitempty"`
	MetaGovernance *models.MetaGovernance     `json:"metaGovernance,omitempty"`
	Accessibility  *models.Accessibility      `json:"accessibility,omitempty"`
	Resources      *models.Resources          `json:"resources,omitempty"`
	Diagnostics    *models.SiteDiagnostics    `json:"siteDiagnostics,omitempty"`
	SiteKeywords   []models.KeywordCount      `json:"siteKeywords"`
	Pages          []deepPage                 `json:"pages"`
	KnownGaps      []string                   `json:"deterministicFindings"`
}

func buildDeepPayload(pages []*models.PageSignal, home *models.PageSignal, domain string, diag *models.SiteDiagnostics, score int, fixes []models.TacticalFix) (string, error) {
	if home == nil {
		return "", errMissingHomeFacts
	}
	p := deepPayload{
		Domain:         domain,
		MandatoryScore: score,
		Performance:    home.Performance,
		Crux:           home.Crux,
		TechStack:      home.TechStack,
		Authority:      home.Authority,
		MetaGovernance: home.MetaGovernance,
		Accessibility:  home.Accessibility,
		Resources:      home.Resources,
		Diagnostics:    diag,
		SiteKeywords:   mapreduce.SiteKeywords(pages, siteKeywordLimit),
		KnownGaps:      []string{},
	}
	for _, pg := range pages {
		dp := deepPage{
			URL:         pg.URL,
			PageType:    pg.PageType,
			Title:       pg.Title,
			H1:          pg.H1,
			WordCount:   pg.WordCount,
			CTAs:        pg.CTAs,
			SchemaTypes: pg.SchemaTypes,
			Snippet:     string([]rune(pg.PrimaryContentSnippet)[:min(payloadSnippet, len([]rune(pg.PrimaryContentSnippet)))]),
		}
		dp.Links.Internal, dp.Links.External = pg.InternalLinkCount, pg.ExternalLinkCount
		p.Pages = append(p.Pages, dp)
	}
	for _, f := range fixes {
		p.KnownGaps = append(p.KnownGaps, f.Title)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MANDATORY_SCORE: %d (use this exact value for coreSignals.vibeScore.score; do not alter it)\n\n", score)
	b.WriteString("HOMEPAGE FACTS (quote these verbatim as evidence):\n")
	fmt.Fprintf(&b, "- Title: %q\n", home.Title)
	fmt.Fprintf(&b, "- Meta description: %q\n", home.MetaDescription)
	fmt.Fprintf(&b, "- H1: %q\n", strings.Join(home.H1, " | "))
	fmt.Fprintf(&b, "- Word count: %d\n", home.WordCount)
	fmt.Fprintf(&b, "- CTAs detected: %d\n", len(home.CTAs))
	if home.Performance != nil {
		fmt.Fprintf(&b, "- Performance: %d/100, LCP %s, CLS %s\n", home.Performance.LighthouseScore, orNA(home.Performance.LCP), orNA(home.Performance.CLS))
	}
	fmt.Fprintf(&b, "\nReturn at least %d tactical fixes.\n\nAUDIT DATA:\n", DeepMinFixes)
	b.Write(data)
	return b.String(), nil
}
