package extractor

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/web-audit/models"
)

const (
	maxCTAs       = 5
	maxCTALength  = 50
	maxNavigation = 15
	maxHeadings   = 10
)

var intentVerbs = []string{"buy", "book", "join", "sign", "contact", "subscribe", "get", "start"}

// DetectCTAs finds links and buttons that read like calls to action.
func DetectCTAs(doc *goquery.Document) []models.CTA {
	var ctas []models.CTA
	doc.Find("a, button").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		href := s.AttrOr("href", "")
		lowerText := strings.ToLower(text)
		class := strings.ToLower(s.AttrOr("class", ""))

		isIntent := containsAny(lowerText, intentVerbs)
		isButton := strings.Contains(class, "btn") || strings.Contains(class, "button")

		if (isIntent || isButton) && text != "" && len([]rune(text)) < maxCTALength && href != "" {
			ctas = append(ctas, models.CTA{Text: text, Link: href})
		}
		return len(ctas) < maxCTAs
	})
	return ctas
}

// DetectSchema collects schema.org @type values from JSON-LD blocks.
// Malformed blocks are skipped.
func DetectSchema(doc *goquery.Document) []string {
	types := newOrderedSet()
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		collectSchemaTypes(data, types)
	})
	return types.items
}

func collectSchemaTypes(v any, types *orderedSet) {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			collectSchemaTypes(item, types)
		}
	case map[string]any:
		switch t := node["@type"].(type) {
		case string:
			types.add(t)
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok {
					types.add(s)
				}
			}
		}
		if graph, ok := node["@graph"]; ok {
			collectSchemaTypes(graph, types)
		}
	}
}

var socialDomains = []string{"linkedin.com", "twitter.com", "x.com", "facebook.com", "instagram.com", "youtube.com", "tiktok.com"}

// ExtractAuthority collects social profile links and mailto/tel contacts.
func ExtractAuthority(doc *goquery.Document) *models.AuthoritySignals {
	signals := &models.AuthoritySignals{
		Socials:  []models.SocialLink{},
		Contacts: []models.Contact{},
	}
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}

		if domain := socialDomain(href); domain != "" && !seen[href] {
			seen[href] = true
			platform := strings.Split(domain, ".")[0]
			signals.Socials = append(signals.Socials, models.SocialLink{Platform: platform, URL: href})
		}

		switch {
		case strings.HasPrefix(href, "mailto:"):
			value := strings.TrimPrefix(href, "mailto:")
			value, _, _ = strings.Cut(value, "?")
			signals.Contacts = append(signals.Contacts, models.Contact{Type: models.ContactEmail, Value: value})
		case strings.HasPrefix(href, "tel:"):
			signals.Contacts = append(signals.Contacts, models.Contact{Type: models.ContactPhone, Value: strings.TrimPrefix(href, "tel:")})
		}
	})
	return signals
}

// socialDomain matches on the link host so that e.g. dropbox.com is not read as x.com.
func socialDomain(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range socialDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return d
		}
	}
	return ""
}

// DetectMetaGovernance checks OpenGraph, Twitter card and favicon presence.
func DetectMetaGovernance(doc *goquery.Document) *models.MetaGovernance {
	og := func(p string) bool { return metaContent(doc, `meta[property="og:`+p+`"]`) != "" }
	tw := func(n string) bool { return metaContent(doc, `meta[name="twitter:`+n+`"]`) != "" }
	return &models.MetaGovernance{
		OpenGraph: models.OpenGraphPresence{
			Title:       og("title"),
			Description: og("description"),
			Image:       og("image"),
			URL:         og("url"),
			SiteName:    og("site_name"),
		},
		Twitter: models.TwitterPresence{
			Card:    tw("card"),
			Site:    tw("site"),
			Creator: tw("creator"),
		},
		Favicon: doc.Find(`link[rel="icon"]`).First().AttrOr("href", "") != "" ||
			doc.Find(`link[rel="shortcut icon"]`).First().AttrOr("href", "") != "",
	}
}

// AssessAccessibility counts missing alt text and ARIA labels and records
// the first ten headings in document order.
func AssessAccessibility(doc *goquery.Document) *models.Accessibility {
	missingAlt := 0
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if strings.TrimSpace(s.AttrOr("alt", "")) == "" {
			missingAlt++
		}
	})

	order := []string{}
	doc.Find("h1, h2, h3, h4, h5, h6").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		order = append(order, goquery.NodeName(s))
		return len(order) < maxHeadings
	})

	return &models.Accessibility{
		AltTextMissing: missingAlt,
		HeadingOrder:   order,
		AriaLabels:     doc.Find("[aria-label], [aria-labelledby]").Length(),
	}
}

var imageFormats = []struct {
	suffixes []string
	format   string
}{
	{[]string{".webp"}, "webp"},
	{[]string{".avif"}, "avif"},
	{[]string{".jpg", ".jpeg"}, "jpg"},
	{[]string{".png"}, "png"},
	{[]string{".svg"}, "svg"},
}

var resourceHints = map[string]bool{"preload": true, "preconnect": true, "dns-prefetch": true}

// AuditResources records image formats and resource hints in first-seen order.
func AuditResources(doc *goquery.Document) *models.Resources {
	formats := newOrderedSet()
	hints := newOrderedSet()

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := strings.ToLower(s.AttrOr("src", ""))
		for _, f := range imageFormats {
			for _, suffix := range f.suffixes {
				if strings.HasSuffix(src, suffix) {
					formats.add(f.format)
				}
			}
		}
	})

	doc.Find("link[rel]").Each(func(_ int, s *goquery.Selection) {
		rel := strings.ToLower(strings.TrimSpace(s.AttrOr("rel", "")))
		if resourceHints[rel] {
			hints.add(rel)
		}
	})

	return &models.Resources{
		ImageFormats:  formats.list(),
		ResourceHints: hints.list(),
	}
}

// ExtractNavigation returns up to 15 distinct link labels from navigation
// containers, each 3 to 24 characters long.
func ExtractNavigation(doc *goquery.Document) []string {
	items := newOrderedSet()
	doc.Find(`nav a, header a, footer a, [role="navigation"] a`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if n := len([]rune(text)); n > 2 && n < 25 {
			items.add(text)
		}
		return len(items.items) < maxNavigation
	})
	return items.list()
}

// PageType labels a page from its URL shape. First match wins.
func PageType(pageURL string) string {
	if u, err := url.Parse(pageURL); err == nil && (u.Path == "" || u.Path == "/") && u.RawQuery == "" {
		return "Homepage"
	}
	lower := strings.ToLower(pageURL)
	switch {
	case containsAny(lower, []string{"blog", "news"}):
		return "Blog/Article"
	case containsAny(lower, []string{"product", "shop", "store"}):
		return "Product/Collection"
	case strings.Contains(lower, "contact"):
		return "Contact"
	case strings.Contains(lower, "about"):
		return "About"
	}
	return "General Page"
}

// CountLinks returns internal (root-relative or same-page-prefixed) and
// external (absolute http(s) to another host) anchor counts.
func CountLinks(doc *goquery.Document, pageURL string) (internal, external int) {
	base, _ := url.Parse(pageURL)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if strings.HasPrefix(href, "/") || strings.HasPrefix(href, pageURL) {
			internal++
			return
		}
		lower := strings.ToLower(href)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			return
		}
		u, err := url.Parse(href)
		if err != nil || base == nil {
			return
		}
		if !strings.EqualFold(u.Hostname(), base.Hostname()) {
			external++
		}
	})
	return internal, external
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (o *orderedSet) add(s string) {
	if o.seen[s] {
		return
	}
	o.seen[s] = true
	o.items = append(o.items, s)
}

// list never returns nil so empty sets encode as [].
func (o *orderedSet) list() []string {
	if o.items == nil {
		return []string{}
	}
	return o.items
}
