package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/web-audit/models"
)

type bucket int

const (
	bucketCMS bucket = iota
	bucketAnalytics
	bucketMarketing
	bucketSecurity
)

// signature matches a vendor by substrings of the raw HTML, the generator
// meta tag, or the concatenated script src attributes.
type signature struct {
	name      string
	bucket    bucket
	html      []string
	generator []string
	scripts   []string
}

var signatures = []signature{
	{name: "WordPress", bucket: bucketCMS, html: []string{"wp-content"}, generator: []string{"wordpress"}},
	{name: "Shopify", bucket: bucketCMS, html: []string{"shopify.com", "cdn.shopify.com"}},
	{name: "Wix", bucket: bucketCMS, html: []string{"wix.com"}, generator: []string{"wix"}},
	{name: "Squarespace", bucket: bucketCMS, html: []string{"squarespace"}},
	{name: "Next.js", bucket: bucketCMS, html: []string{"next_data", "__next"}},
	{name: "Webflow", bucket: bucketCMS, html: []string{"webflow"}},

	{name: "Google Tag Manager", bucket: bucketAnalytics, html: []string{"googletagmanager.com/gtm.js"}},
	{name: "Google Analytics", bucket: bucketAnalytics, html: []string{"google-analytics.com", "ga("}},
	{name: "Segment", bucket: bucketAnalytics, html: []string{"segment.com/analytics.js"}},
	{name: "Hotjar", bucket: bucketAnalytics, html: []string{"hotjar.com"}},
	{name: "Mixpanel", bucket: bucketAnalytics, html: []string{"mixpanel.com"}},
	{name: "Microsoft Clarity", bucket: bucketAnalytics, html: []string{"clarity.ms"}},

	{name: "HubSpot", bucket: bucketMarketing, html: []string{"hubspot.com", "hs-scripts"}},
	{name: "Klaviyo", bucket: bucketMarketing, html: []string{"klaviyo.com"}},
	{name: "Meta Pixel", bucket: bucketMarketing, html: []string{"connect.facebook.net"}},
	{name: "LinkedIn Insight", bucket: bucketMarketing, html: []string{"linkedin.com/insight"}},
	{name: "Intercom", bucket: bucketMarketing, html: []string{"intercom.com", "intercomcdn"}},
	{name: "Drift", bucket: bucketMarketing, html: []string{"drift.com"}},
	{name: "Marketo", bucket: bucketMarketing, html: []string{"marketo.com"}},

	{name: "Cloudflare", bucket: bucketSecurity, html: []string{"cloudflare"}},
	{name: "Vercel", bucket: bucketSecurity, html: []string{"vercel.app"}, scripts: []string{"_vercel"}},
}

// DetectTechStack fingerprints vendors from page markup.
func DetectTechStack(html string, doc *goquery.Document) *models.TechStack {
	lowerHTML := strings.ToLower(html)
	var srcs []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		srcs = append(srcs, s.AttrOr("src", ""))
	})
	scripts := strings.ToLower(strings.Join(srcs, " "))
	generator := strings.ToLower(metaContent(doc, `meta[name="generator"]`))

	stack := &models.TechStack{
		CMS:       []string{},
		Analytics: []string{},
		Marketing: []string{},
		Security:  []string{},
	}
	for _, sig := range signatures {
		if !containsAny(lowerHTML, sig.html) && !containsAny(generator, sig.generator) && !containsAny(scripts, sig.scripts) {
			continue
		}
		switch sig.bucket {
		case bucketCMS:
			stack.CMS = append(stack.CMS, sig.name)
		case bucketAnalytics:
			stack.Analytics = append(stack.Analytics, sig.name)
		case bucketMarketing:
			stack.Marketing = append(stack.Marketing, sig.name)
		case bucketSecurity:
			stack.Security = append(stack.Security, sig.name)
		}
	}
	return stack
}
