package report

import (
	"fmt"
	"strings"

	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/performance"
)

// MaxFixes caps the deterministic fix list.
const MaxFixes = 10

const notObserved = "NOT OBSERVED"

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Fixes derives tactical fixes from the homepage signal and site
// diagnostics. Rules fire in a fixed order and ids run rec-01, rec-02, ...
func Fixes(home *models.PageSignal, diag *models.SiteDiagnostics) []models.TacticalFix {
	fixes := []models.TacticalFix{}
	if home == nil {
		return fixes
	}
	add := func(f models.TacticalFix) {
		f.ID = fmt.Sprintf("rec-%02d", len(fixes)+1)
		if f.Impact == "" {
			f.Impact = f.Severity
		}
		if f.Confidence == "" {
			f.Confidence = "High"
		}
		fixes = append(fixes, f)
	}

	if perf := home.Performance; perf != nil {
		if perf.LighthouseScore < 50 {
			add(models.TacticalFix{
				Title:              "Improve overall PSI performance score",
				Category:           "Performance",
				Problem:            fmt.Sprintf("Performance score is %d/100.", perf.LighthouseScore),
				Recommendation:     "Address large render-blocking assets and heavy above-the-fold elements. Prioritize compressing hero media, trimming unused scripts, and deferring non-critical resources to bring PSI into a healthy range.",
				Severity:           "High",
				EffortHours:        16,
				Owners:             []string{"Dev"},
				ExpectedOutcome:    fmt.Sprintf("Performance score: %d to 50+ first, 90 target", perf.LighthouseScore),
				ValidationCriteria: "Lighthouse Performance > 90",
				Evidence: []models.Evidence{
					{Label: "PSI performance score", Value: fmt.Sprintf("%d/100", perf.LighthouseScore)},
					{Label: "LCP", Value: orNA(perf.LCP)},
					{Label: "INP", Value: orNA(perf.INP)},
					{Label: "CLS", Value: orNA(perf.CLS)},
				},
			})
		}

		if lcp, ok := performance.ParseSeconds(perf.LCP); ok && lcp > 2.5 {
			add(models.TacticalFix{
				Title:              "Reduce LCP to under 2.5s",
				Category:           "Performance",
				Problem:            fmt.Sprintf("Largest Contentful Paint is %s.", perf.LCP),
				Recommendation:     "Reduce the size and load time of the largest above-the-fold element. Optimize hero images (next-gen formats + proper sizing), improve server response time, and preconnect critical origins.",
				Severity:           severityAbove(lcp, 4),
				EffortHours:        8,
				Owners:             []string{"Dev"},
				ExpectedOutcome:    fmt.Sprintf("LCP: %s to under 2.5 s", perf.LCP),
				ValidationCriteria: "Lighthouse LCP < 2.5 s",
				Evidence: []models.Evidence{
					{Label: "PSI LCP", Value: perf.LCP},
					{Label: "Final URL", Value: firstNonEmpty(perf.FinalURL, home.URL)},
				},
			})
		}

		if inp, ok := performance.ParseMillis(perf.INP); ok && inp > 200 {
			add(models.TacticalFix{
				Title:              "Bring INP under 200ms",
				Category:           "Performance",
				Problem:            fmt.Sprintf("Interaction latency is %s.", perf.INP),
				Recommendation:     "Cut main-thread blocking JS, reduce long tasks, and avoid heavy client-side hydration. Audit third-party scripts and move non-critical work to idle callbacks.",
				Severity:           severityAbove(inp, 500),
				EffortHours:        12,
				Owners:             []string{"Dev"},
				ExpectedOutcome:    fmt.Sprintf("INP: %s to under 200 ms", perf.INP),
				ValidationCriteria: "CrUX p75 INP < 200 ms",
				Evidence:           []models.Evidence{{Label: "PSI INP", Value: perf.INP}},
			})
		}

		if cls, ok := performance.ParseNumber(perf.CLS); ok && cls > 0.1 {
			add(models.TacticalFix{
				Title:              "Stabilize layout to reduce CLS",
				Category:           "Performance",
				Problem:            fmt.Sprintf("Cumulative Layout Shift is %s.", perf.CLS),
				Recommendation:     "Reserve space for images, embeds, and fonts. Ensure consistent sizing for banners and prevent late-loading elements from shifting content.",
				Severity:           severityAbove(cls, 0.25),
				EffortHours:        4,
				Owners:             []string{"Dev"},
				ExpectedOutcome:    fmt.Sprintf("CLS: %s to under 0.1", perf.CLS),
				ValidationCriteria: "Lighthouse CLS < 0.1",
				Evidence:           []models.Evidence{{Label: "PSI CLS", Value: perf.CLS}},
			})
		}
	}

	if home.Title == "" {
		add(models.TacticalFix{
			Title:              "Add a clear, specific title tag",
			Category:           "SEO",
			Problem:            "The homepage has no title tag.",
			Recommendation:     "Write a concise title that matches the primary offer and includes the core keyword. Keep it under ~60 characters.",
			Severity:           "High",
			EffortHours:        1,
			Owners:             []string{"Content"},
			ValidationCriteria: "Title tag present, 30-60 characters",
			Evidence:           []models.Evidence{{Label: "Title tag", Value: notObserved}},
		})
	}

	if home.MetaDescription == "" {
		add(models.TacticalFix{
			Title:              "Add a meta description that sets expectations",
			Category:           "SEO",
			Problem:            "The homepage has no meta description.",
			Recommendation:     "Summarize the value proposition in 1-2 sentences and include a clear benefit or differentiator.",
			Severity:           "Medium",
			EffortHours:        1,
			Owners:             []string{"Content", "Marketing"},
			ValidationCriteria: "Meta description present, 120-160 characters",
			Evidence:           []models.Evidence{{Label: "Meta description", Value: notObserved}},
		})
	}

	switch n := len(home.H1); {
	case n == 0:
		add(models.TacticalFix{
			Title:              "Add a single, descriptive H1",
			Category:           "SEO",
			Problem:            "No H1 heading was found.",
			Recommendation:     "Use one H1 that mirrors the main offer and clarifies the primary intent of the page.",
			Severity:           "High",
			EffortHours:        1,
			Owners:             []string{"Content", "Dev"},
			ValidationCriteria: "Exactly one H1 on the page",
			Evidence:           []models.Evidence{{Label: "H1", Value: notObserved}},
		})
	case n > 1:
		add(models.TacticalFix{
			Title:              "Consolidate multiple H1s",
			Category:           "SEO",
			Problem:            fmt.Sprintf("%d H1 headings compete for the primary topic.", n),
			Recommendation:     "Keep a single H1 to reduce ambiguity for search engines and align the page around one primary topic.",
			Severity:           "Medium",
			EffortHours:        1,
			Owners:             []string{"Dev"},
			ValidationCriteria: "Exactly one H1 on the page",
			Evidence: []models.Evidence{
				{Label: "H1 count", Value: fmt.Sprint(n)},
				{Label: "Observed H1s", Value: strings.Join(home.H1, " | ")},
			},
		})
	}

	if home.Canonical == "" {
		add(models.TacticalFix{
			Title:              "Add a canonical URL",
			Category:           "SEO",
			Problem:            "No canonical link element was found.",
			Recommendation:     "Set a canonical link to the preferred URL to prevent duplicate content signals.",
			Severity:           "Medium",
			EffortHours:        1,
			Owners:             []string{"Dev"},
			ValidationCriteria: "link[rel=canonical] points at the preferred URL",
			Evidence:           []models.Evidence{{Label: "Canonical", Value: notObserved}},
		})
	}

	if robots := firstNonEmpty(home.MetaRobots, home.XRobotsTag); strings.Contains(strings.ToLower(robots), "noindex") {
		add(models.TacticalFix{
			Title:              "Remove noindex from the primary page",
			Category:           "SEO",
			Problem:            "The page asks search engines not to index it.",
			Recommendation:     "If this page should rank, remove the noindex directive and ensure it is crawlable.",
			Severity:           "High",
			EffortHours:        1,
			Owners:             []string{"Dev"},
			ValidationCriteria: "No noindex in meta robots or X-Robots-Tag",
			Evidence:           []models.Evidence{{Label: "Robots directive", Value: robots}},
		})
	}

	if home.WordCount < 200 {
		add(models.TacticalFix{
			Title:              "Increase primary content depth",
			Category:           "Content",
			Problem:            fmt.Sprintf("The main content has %d words.", home.WordCount),
			Recommendation:     "Add clear, customer-facing copy that explains the offer, proof points, and next steps. Aim for 300-600 words of focused content.",
			Severity:           "Medium",
			EffortHours:        6,
			Owners:             []string{"Content"},
			ExpectedOutcome:    fmt.Sprintf("Word count: %d to 300+", home.WordCount),
			ValidationCriteria: "Main content word count >= 300",
			Evidence:           []models.Evidence{{Label: "Word count (main content)", Value: fmt.Sprint(home.WordCount)}},
		})
	}

	if len(home.CTAs) == 0 {
		add(models.TacticalFix{
			Title:              "Add a clear primary CTA",
			Category:           "UX",
			Problem:            "No call to action was detected.",
			Recommendation:     "Add a primary call-to-action with explicit intent (e.g. \"Book a demo\", \"Get pricing\"). Place it above the fold.",
			Severity:           "High",
			EffortHours:        2,
			Owners:             []string{"Marketing", "Dev"},
			ValidationCriteria: "At least one intent CTA above the fold",
			Evidence:           []models.Evidence{{Label: "CTAs", Value: notObserved}},
		})
	}

	if a := home.Accessibility; a != nil && a.AltTextMissing > 0 {
		add(models.TacticalFix{
			Title:              "Add alt text to images",
			Category:           "Accessibility",
			Problem:            fmt.Sprintf("%d images have no alt text.", a.AltTextMissing),
			Recommendation:     "Describe every meaningful image in its alt attribute and mark decorative images with an empty alt and role=presentation.",
			Severity:           severityAbove(float64(a.AltTextMissing), 4),
			EffortHours:        2,
			Owners:             []string{"Content", "Dev"},
			ValidationCriteria: "Lighthouse Accessibility image-alt audit passes",
			Evidence:           []models.Evidence{{Label: "Images missing alt", Value: fmt.Sprint(a.AltTextMissing)}},
		})
	}

	if len(home.SchemaTypes) == 0 {
		add(models.TacticalFix{
			Title:              "Add structured data markup",
			Category:           "SEO",
			Problem:            "No schema.org JSON-LD was found.",
			Recommendation:     "Publish Organization and WebSite JSON-LD with name, logo, sameAs profiles and contact points.",
			Severity:           "Medium",
			EffortHours:        3,
			Owners:             []string{"Dev"},
			ValidationCriteria: "Rich Results Test detects Organization schema",
			Evidence:           []models.Evidence{{Label: "Schema types", Value: notObserved}},
		})
	}

	if g := home.MetaGovernance; g != nil && (!g.OpenGraph.Title || !g.OpenGraph.Image) {
		add(models.TacticalFix{
			Title:              "Complete OpenGraph share tags",
			Category:           "SEO",
			Problem:            "Shared links render without a proper title or preview image.",
			Recommendation:     "Set og:title, og:description, og:image and og:url on every public page.",
			Severity:           "Low",
			EffortHours:        1,
			Owners:             []string{"Dev", "Marketing"},
			ValidationCriteria: "Share preview debugger shows title and image",
			Evidence: []models.Evidence{
				{Label: "og:title", Value: presence(g.OpenGraph.Title)},
				{Label: "og:image", Value: presence(g.OpenGraph.Image)},
			},
		})
	}

	if home.Authority == nil || len(home.Authority.Socials) == 0 {
		add(models.TacticalFix{
			Title:              "Link official social profiles",
			Category:           "Content",
			Problem:            "No social profile links were found.",
			Recommendation:     "Link the brand's active social profiles from the footer and list them in Organization sameAs.",
			Severity:           "Low",
			EffortHours:        1,
			Owners:             []string{"Marketing"},
			ValidationCriteria: "Footer links to at least two official profiles",
			Evidence:           []models.Evidence{{Label: "Social links", Value: notObserved}},
		})
	}

	if diag != nil && diag.LLMsTxt != nil && !diag.HasLLMsTxt() {
		add(models.TacticalFix{
			Title:              "Publish an llms.txt file",
			Category:           "SEO",
			Problem:            "No llms.txt was found at the site root or .well-known.",
			Recommendation:     "Publish /llms.txt summarizing the site's key pages so AI assistants can cite them accurately.",
			Severity:           "Low",
			EffortHours:        2,
			Owners:             []string{"Content", "Dev"},
			ValidationCriteria: "GET /llms.txt returns 200",
			Confidence:         "Medium",
			Evidence:           []models.Evidence{{Label: "llms.txt status", Value: fmt.Sprint(diag.LLMsTxt.Status)}},
		})
	}

	if diag != nil && diag.RobotsTxt != nil && len(diag.RobotsTxt.SitemapURLs) == 0 {
		add(models.TacticalFix{
			Title:              "Declare the sitemap in robots.txt",
			Category:           "SEO",
			Problem:            "robots.txt does not reference a sitemap.",
			Recommendation:     "Add a Sitemap: line pointing at the XML sitemap so crawlers discover every page.",
			Severity:           "Low",
			EffortHours:        1,
			Owners:             []string{"Dev"},
			ValidationCriteria: "robots.txt contains a Sitemap: directive",
			Evidence:           []models.Evidence{{Label: "robots.txt status", Value: fmt.Sprint(diag.RobotsTxt.Status)}},
		})
	}

	if len(fixes) > MaxFixes {
		fixes = fixes[:MaxFixes]
	}
	return fixes
}

func severityAbove(v, high float64) string {
	if v > high {
		return "High"
	}
	return "Medium"
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
