package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxPrimaryContent is the rune limit for the primary content snippet.
const MaxPrimaryContent = 2500

const substantialContent = 500

var primarySelectors = []string{"main", "article", `[role="main"]`, "#content", ".content"}

// PrimaryContent returns the cleaned text of the page's main content area.
// The first selector yielding more than 500 characters wins; otherwise the
// last matched selector's text is kept, and body is used only when that is empty.
func PrimaryContent(doc *goquery.Document) string {
	content := ""
	for _, selector := range primarySelectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		clone := sel.Clone()
		clone.Find("nav, footer, script, style, .cookie-banner, .popup").Remove()
		content = collapseSpace(clone.Text())
		if len([]rune(content)) > substantialContent {
			break
		}
	}

	if content == "" {
		body := doc.Find("body").Clone()
		body.Find("nav, footer, script, style").Remove()
		content = collapseSpace(body.Text())
	}

	return truncateRunes(content, MaxPrimaryContent)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
