package mapreduce

import (
	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/analytics"
)

// Map returns a page's keyword table, preferring the one already extracted.
func Map(page *models.PageSignal) []models.KeywordCount {
	if page == nil {
		return nil
	}
	if len(page.TopKeywords) > 0 {
		return page.TopKeywords
	}
	return analytics.WordFrequency(page.PrimaryContentSnippet)
}

// Reduce aggregates per-page keyword tables into a single table.
// Terms keep the order in which they were first seen across pages.
func Reduce(intermediate [][]models.KeywordCount) []models.KeywordCount {
	index := make(map[string]int)
	var final []models.KeywordCount

	for _, counts := range intermediate {
		for _, kc := range counts {
			if i, ok := index[kc.Term]; ok {
				final[i].Count += kc.Count
				continue
			}
			index[kc.Term] = len(final)
			final = append(final, kc)
		}
	}

	return final
}

// SiteKeywords maps every page, reduces the tables and keeps the top n.
func SiteKeywords(pages []*models.PageSignal, n int) []models.KeywordCount {
	intermediate := make([][]models.KeywordCount, 0, len(pages))
	for _, p := range pages {
		intermediate = append(intermediate, Map(p))
	}
	return analytics.TopN(Reduce(intermediate), n)
}
