package report

import (
	"fmt"
	"strings"

	"github.com/dtnitsch/web-audit/models"
)

// Deterministic builds a complete report from measured signals only.
func Deterministic(home *models.PageSignal, domain string, diag *models.SiteDiagnostics) models.AuditReport {
	score, adj := ScoreBreakdown(home)
	fixes := Fixes(home, diag)
	summary := Summary(domain, home, fixes)

	wins := []string{}
	for _, f := range fixes {
		if len(wins) == 3 {
			break
		}
		wins = append(wins, f.Title)
	}

	return models.AuditReport{
		CoreSignals: models.CoreSignals{
			VibeScore: models.VibeScore{
				Score:       float64(score),
				Label:       ScoreLabel(float64(score)),
				Summary:     vibeSummary(score, fixes),
				Components:  components(home),
				Calculation: calculation(score, adj),
			},
			HeadlineSignal:     headlineSignal(home),
			VisualArchitecture: visualArchitecture(home),
		},
		TacticalFixes:         fixes,
		StrategicIntelligence: strategy(home, diag, fixes),
		ClientReadySummary: models.ClientReadySummary{
			ExecutiveSummary: summary,
			Top3WinsThisWeek: wins,
		},
	}
}

func vibeSummary(score int, fixes []models.TacticalFix) string {
	high := 0
	for _, f := range fixes {
		if f.Severity == "High" || f.Severity == "Critical" {
			high++
		}
	}
	return fmt.Sprintf("Deterministic score %d/98 with %d high-severity gaps.", score, high)
}

// Summary is the executive summary of the deterministic report.
func Summary(domain string, home *models.PageSignal, fixes []models.TacticalFix) string {
	if home == nil {
		return fmt.Sprintf("Scan complete for %s. No page data was collected.", domain)
	}
	var parts []string
	if perf := home.Performance; perf != nil {
		parts = append(parts, fmt.Sprintf("%s performance score is %d/100", labSourceName(perf), perf.LighthouseScore))
	}
	if home.Crux != nil && home.Crux.LCP != "" {
		parts = append(parts, "CrUX field LCP is "+home.Crux.LCP)
	}
	if n := len(home.CTAs); n > 0 {
		var sample []string
		for _, c := range home.CTAs[:min(2, n)] {
			sample = append(sample, c.Text)
		}
		plural := ""
		if n > 1 {
			plural = "s"
		}
		parts = append(parts, fmt.Sprintf("Detected %d CTA%s (%s)", n, plural, strings.Join(sample, " | ")))
	} else {
		parts = append(parts, "No CTAs detected")
	}

	headline := "No major gaps detected in the current scan."
	if len(fixes) > 0 {
		var titles []string
		for _, f := range fixes[:min(3, len(fixes))] {
			titles = append(titles, f.Title)
		}
		headline = "Top gaps: " + strings.Join(titles, "; ") + "."
	}
	return strings.Join(parts, ". ") + ". " + headline
}

func labSourceName(perf *models.PerformanceMetrics) string {
	if perf.Source == "rod" {
		return "Lab"
	}
	return "PSI"
}

func strategy(home *models.PageSignal, diag *models.SiteDiagnostics, fixes []models.TacticalFix) *models.StrategicIntelligence {
	high := 0
	onSite := []string{}
	for _, f := range fixes {
		if f.Severity == "High" {
			high++
		}
		if len(onSite) < 3 {
			onSite = append(onSite, f.Title)
		}
	}

	socials, contacts := 0, 0
	if home != nil && home.Authority != nil {
		socials, contacts = len(home.Authority.Socials), len(home.Authority.Contacts)
	}
	offSite := []string{}
	if socials == 0 {
		offSite = append(offSite, "Link at least two official social profiles from the footer")
	}
	if contacts == 0 {
		offSite = append(offSite, "Publish a reachable email or phone contact on the homepage")
	}
	offSite = append(offSite, "Earn references from industry directories and partner sites to the homepage")

	var schema []string
	if home != nil {
		schema = home.SchemaTypes
	}
	ai := []string{}
	if !diag.HasLLMsTxt() {
		ai = append(ai, "Publish /llms.txt listing the pages assistants should cite")
	}
	if len(schema) == 0 {
		ai = append(ai, "Add Organization and FAQ JSON-LD so answer engines can extract facts")
	} else {
		ai = append(ai, "Extend existing schema ("+strings.Join(schema, ", ")+") with FAQ and Product details")
	}

	llmsState := "absent"
	if diag.HasLLMsTxt() {
		llmsState = "present"
	}
	return &models.StrategicIntelligence{
		OnSiteStrategy: &models.StrategySection{
			Summary: fmt.Sprintf("%d on-page fixes identified, %d high severity.", len(fixes), high),
			Actions: onSite,
		},
		OffSiteGrowth: &models.StrategySection{
			Summary: fmt.Sprintf("%d social profiles and %d contact points linked from the homepage.", socials, contacts),
			Actions: offSite,
		},
		AIOpportunities: &models.StrategySection{
			Summary: fmt.Sprintf("llms.txt %s; %d schema types published.", llmsState, len(schema)),
			Actions: ai,
		},
	}
}

// dataSources reports the state of the measured inputs. The LLM entry is
// filled in by the caller.
func dataSources(home *models.PageSignal, pages int, mode models.Mode) models.DataSources {
	var ds models.DataSources

	missing := models.StageDegraded
	if mode == models.ModeFast {
		missing = models.StageSkipped
	}

	switch {
	case home != nil && home.Performance != nil:
		ds.PSI = models.StageResult{Status: models.StageOK, Detail: fmt.Sprintf("Score %d/100", home.Performance.LighthouseScore)}
	default:
		ds.PSI = models.StageResult{Status: missing, Detail: "PSI data not available"}
	}

	switch {
	case home != nil && home.Crux != nil && home.Crux.CollectionPeriod != nil:
		cp := home.Crux.CollectionPeriod
		ds.Crux = models.StageResult{Status: models.StageOK, Detail: fmt.Sprintf("P75 %s → %s", cp.FirstDate, cp.LastDate)}
	case home != nil && home.Crux != nil:
		ds.Crux = models.StageResult{Status: models.StageOK, Detail: "Field data available"}
	default:
		ds.Crux = models.StageResult{Status: missing, Detail: "CrUX data not available for this origin"}
	}

	plural := "s"
	if pages == 1 {
		plural = ""
	}
	ds.OnPage = models.StageResult{Status: models.StageOK, Detail: fmt.Sprintf("%d page%s scanned", pages, plural)}
	return ds
}
