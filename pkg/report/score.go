package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/dtnitsch/web-audit/models"
)

const (
	baseScore = 50
	maxScore  = 98
)

// Adjustment is one signed contribution to the deterministic score.
type Adjustment struct {
	Reason string
	Points int
}

// Score is the deterministic vibe score of a homepage signal.
func Score(home *models.PageSignal) int {
	s, _ := ScoreBreakdown(home)
	return s
}

// ScoreBreakdown returns the score together with the adjustments that
// produced it. The result is capped at 98 and not floored.
func ScoreBreakdown(home *models.PageSignal) (int, []Adjustment) {
	if home == nil {
		return baseScore, nil
	}
	var adj []Adjustment
	add := func(points int, reason string) {
		adj = append(adj, Adjustment{Reason: reason, Points: points})
	}

	if perf := home.Performance; perf != nil {
		switch s := perf.LighthouseScore; {
		case s >= 90:
			add(25, fmt.Sprintf("performance %d/100", s))
		case s >= 70:
			add(15, fmt.Sprintf("performance %d/100", s))
		case s >= 50:
			add(5, fmt.Sprintf("performance %d/100", s))
		}
	}
	if len(home.H1) > 0 {
		add(5, "H1 present")
	}
	if home.Title != "" {
		add(5, "title present")
	}
	if home.MetaDescription != "" {
		add(5, "meta description present")
	}
	if n := home.TechStack.Count(); n > 0 {
		add(5, "tech stack detected")
		if n > 3 {
			add(5, "mature tech stack")
		}
	}
	switch {
	case home.WordCount > 500:
		add(10, "content depth >500 words")
	case home.WordCount > 200:
		add(5, "content depth >200 words")
	}
	if home.Authority != nil && len(home.Authority.Socials) > 0 {
		add(10, "social profiles linked")
	} else {
		add(-5, "no social profiles")
	}

	score := baseScore
	for _, a := range adj {
		score += a.Points
	}
	return min(score, maxScore), adj
}

func calculation(score int, adj []Adjustment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d base", baseScore)
	for _, a := range adj {
		sign := "+"
		points := a.Points
		if points < 0 {
			sign = "-"
			points = -points
		}
		fmt.Fprintf(&b, " %s %d (%s)", sign, points, a.Reason)
	}
	fmt.Fprintf(&b, " = %d", score)
	if score == maxScore {
		b.WriteString(" (capped)")
	}
	return b.String()
}

// ScoreLabel names a 0-100 score band.
func ScoreLabel(score float64) string {
	switch {
	case score >= 85:
		return "Strong"
	case score >= 70:
		return "Solid"
	case score >= 55:
		return "Developing"
	}
	return "At Risk"
}

func grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 40:
		return "D"
	}
	return "F"
}

// components splits the homepage into the four weighted index areas. Areas
// without data are omitted.
func components(home *models.PageSignal) map[string]models.ScoreComponent {
	out := make(map[string]models.ScoreComponent)
	if home == nil {
		return out
	}

	if home.Performance != nil {
		out["technicalHealth"] = models.ScoreComponent{
			Score:     float64(home.Performance.LighthouseScore),
			Weight:    0.25,
			Rationale: fmt.Sprintf("Based on Lighthouse: %d/100", home.Performance.LighthouseScore),
		}
	}

	present := 0
	for _, ok := range []bool{home.Title != "", home.MetaDescription != "", home.Canonical != "", len(home.H1) == 1, len(home.SchemaTypes) > 0} {
		if ok {
			present++
		}
	}
	schema := "absent"
	if len(home.SchemaTypes) > 0 {
		schema = "present"
	}
	out["seoHygiene"] = models.ScoreComponent{
		Score:     float64(present * 20),
		Weight:    0.25,
		Rationale: fmt.Sprintf("Meta completeness: %d%%, Schema: %s", present*20, schema),
	}

	headline := headlineSignal(home)
	cta, ctaScore := "absent", 0.0
	if len(home.CTAs) > 0 {
		cta, ctaScore = "present", 100
	}
	depth := math.Min(100, float64(home.WordCount)/6)
	out["contentClarity"] = models.ScoreComponent{
		Score:     math.Round((headline.Score + ctaScore + depth) / 3),
		Weight:    0.25,
		Rationale: fmt.Sprintf("H1 quality: %s, CTA: %s", headline.Grade, cta),
	}

	visual := visualArchitecture(home)
	alt := 100.0
	if home.Accessibility != nil {
		alt = math.Max(0, 100-float64(home.Accessibility.AltTextMissing)*10)
	}
	out["uxConversion"] = models.ScoreComponent{
		Score:     math.Round((visual.Score + alt + ctaScore) / 3),
		Weight:    0.25,
		Rationale: fmt.Sprintf("Hierarchy: %s, Alt coverage: %.0f%%", visual.Grade, alt),
	}
	return out
}

func headlineSignal(home *models.PageSignal) models.GradeSignal {
	var score float64
	var summary, rationale, quickWin string
	switch {
	case home == nil:
		score, summary = 0, "No homepage data."
	case len(home.H1) == 1:
		n := len([]rune(home.H1[0]))
		if n >= 20 && n <= 70 {
			score, summary = 90, fmt.Sprintf("Single, descriptive H1: %q.", home.H1[0])
		} else {
			score, summary = 75, fmt.Sprintf("Single H1 of %d characters: %q.", n, home.H1[0])
			quickWin = "Rewrite the H1 to 20-70 characters that state the primary offer."
		}
		rationale = "Exactly one H1 observed."
	case len(home.H1) > 1:
		score, summary = 60, fmt.Sprintf("%d competing H1s dilute the primary message.", len(home.H1))
		rationale = "Observed H1s: " + strings.Join(home.H1, " | ")
		quickWin = "Keep one H1 and demote the rest to H2."
	case home.Title != "":
		score, summary = 45, "No H1; the title tag carries the message alone."
		rationale = fmt.Sprintf("Title: %q", home.Title)
		quickWin = "Add a single H1 that mirrors the main offer."
	default:
		score, summary = 25, "Neither an H1 nor a title tag was observed."
		quickWin = "Add a title tag and a single descriptive H1."
	}
	return models.GradeSignal{
		Grade:        grade(score),
		Score:        score,
		Label:        ScoreLabel(score),
		Summary:      summary,
		Rationale:    rationale,
		WhyItMatters: "The headline is the first relevance signal for both visitors and search engines.",
		QuickWin:     quickWin,
	}
}

func visualArchitecture(home *models.PageSignal) models.GradeSignal {
	if home == nil {
		return models.GradeSignal{Grade: "F", Summary: "No homepage data."}
	}
	var score float64
	var observed, missing []string
	check := func(ok bool, what string) {
		if ok {
			score += 25
			observed = append(observed, what)
		} else {
			missing = append(missing, what)
		}
	}
	check(len(home.Navigation) >= 3, "navigation")
	check(len(home.CTAs) > 0, "calls to action")
	check(home.H2Count >= 2, "sectioned content")
	check(home.Accessibility != nil && len(home.Accessibility.HeadingOrder) > 0 && home.Accessibility.HeadingOrder[0] == "h1", "H1-led heading order")

	summary := "Clear hierarchy with " + strings.Join(observed, ", ") + "."
	quickWin := ""
	if len(missing) > 0 {
		summary = "Hierarchy gaps: missing " + strings.Join(missing, ", ") + "."
		quickWin = "Add " + missing[0] + " above the fold."
	}
	return models.GradeSignal{
		Grade:        grade(score),
		Score:        score,
		Label:        ScoreLabel(score),
		Summary:      summary,
		Rationale:    fmt.Sprintf("%d of 4 structural checks passed.", len(observed)),
		WhyItMatters: "A predictable structure shortens the path from landing to conversion.",
		QuickWin:     quickWin,
	}
}
