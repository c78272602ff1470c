// Package models defines data structures for configuration, page signals and audit reports.
package models

// PageSignal holds the facts extracted from a single page.
// A signal with a non-2xx StatusCode only carries URL, StatusCode, Blocked and BlockedReason.
type PageSignal struct {
	URL           string `json:"url" yaml:"url"`
	StatusCode    int    `json:"statusCode" yaml:"status_code"`
	Blocked       bool   `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	BlockedReason string `json:"blockedReason,omitempty" yaml:"blocked_reason,omitempty"`

	Title           string   `json:"title,omitempty" yaml:"title,omitempty"`
	MetaDescription string   `json:"metaDescription,omitempty" yaml:"meta_description,omitempty"`
	MetaKeywords    string   `json:"metaKeywords,omitempty" yaml:"meta_keywords,omitempty"`
	MetaRobots      string   `json:"metaRobots,omitempty" yaml:"meta_robots,omitempty"`
	XRobotsTag      string   `json:"xRobotsTag,omitempty" yaml:"x_robots_tag,omitempty"`
	H1              []string `json:"h1,omitempty" yaml:"h1,omitempty"`
	H2Count         int      `json:"h2Count,omitempty" yaml:"h2_count,omitempty"`
	WordCount       int      `json:"wordCount,omitempty" yaml:"word_count,omitempty"`
	Canonical       string   `json:"canonical,omitempty" yaml:"canonical,omitempty"`

	PrimaryContentSnippet string         `json:"primaryContentSnippet,omitempty" yaml:"primary_content_snippet,omitempty"`
	TopKeywords           []KeywordCount `json:"topKeywords,omitempty" yaml:"top_keywords,omitempty"`
	InternalLinkCount     int            `json:"internalLinkCount,omitempty" yaml:"internal_link_count,omitempty"`
	ExternalLinkCount     int            `json:"externalLinkCount,omitempty" yaml:"external_link_count,omitempty"`
	CTAs                  []CTA          `json:"ctas,omitempty" yaml:"ctas,omitempty"`
	SchemaTypes           []string       `json:"schemaTypes,omitempty" yaml:"schema_types,omitempty"`
	PageType              string         `json:"pageType,omitempty" yaml:"page_type,omitempty"`

	Performance *PerformanceMetrics `json:"performance,omitempty" yaml:"performance,omitempty"`
	Crux        *FieldMetrics       `json:"crux,omitempty" yaml:"crux,omitempty"`

	TechStack      *TechStack        `json:"techStack,omitempty" yaml:"tech_stack,omitempty"`
	Authority      *AuthoritySignals `json:"authority,omitempty" yaml:"authority,omitempty"`
	MetaGovernance *MetaGovernance   `json:"metaGovernance,omitempty" yaml:"meta_governance,omitempty"`
	Accessibility  *Accessibility    `json:"accessibility,omitempty" yaml:"accessibility,omitempty"`
	Resources      *Resources        `json:"resources,omitempty" yaml:"resources,omitempty"`
	Navigation     []string          `json:"navigation,omitempty" yaml:"navigation,omitempty"`

	Language    *Language    `json:"language,omitempty" yaml:"language,omitempty"`
	Readability *Readability `json:"readability,omitempty" yaml:"readability,omitempty"`
}

// OK reports whether the page was fetched with a 2xx status.
func (p *PageSignal) OK() bool {
	return p != nil && p.StatusCode >= 200 && p.StatusCode < 300
}

// KeywordCount is one row of a keyword frequency table.
type KeywordCount struct {
	Term  string `json:"term" yaml:"term"`
	Count int    `json:"count" yaml:"count"`
}

// CTA is a detected call to action.
type CTA struct {
	Text string `json:"text" yaml:"text"`
	Link string `json:"link" yaml:"link"`
}

type TechStack struct {
	CMS       []string `json:"cms" yaml:"cms"`
	Analytics []string `json:"analytics" yaml:"analytics"`
	Marketing []string `json:"marketing" yaml:"marketing"`
	Security  []string `json:"security" yaml:"security"`
}

// Count returns the number of detected vendors across all buckets.
func (t *TechStack) Count() int {
	if t == nil {
		return 0
	}
	return len(t.CMS) + len(t.Analytics) + len(t.Marketing) + len(t.Security)
}

// All returns every detected vendor, bucket by bucket.
func (t *TechStack) All() []string {
	if t == nil {
		return nil
	}
	all := make([]string, 0, t.Count())
	all = append(all, t.CMS...)
	all = append(all, t.Analytics...)
	all = append(all, t.Marketing...)
	return append(all, t.Security...)
}

type SocialLink struct {
	Platform string `json:"platform" yaml:"platform"`
	URL      string `json:"url" yaml:"url"`
}

// ContactType is either "email" or "phone".
type ContactType string

const (
	ContactEmail ContactType = "email"
	ContactPhone ContactType = "phone"
)

type Contact struct {
	Type  ContactType `json:"type" yaml:"type"`
	Value string      `json:"value" yaml:"value"`
}

type AuthoritySignals struct {
	Socials  []SocialLink `json:"socials" yaml:"socials"`
	Contacts []Contact    `json:"contacts" yaml:"contacts"`
}

type OpenGraphPresence struct {
	Title       bool `json:"title" yaml:"title"`
	Description bool `json:"description" yaml:"description"`
	Image       bool `json:"image" yaml:"image"`
	URL         bool `json:"url" yaml:"url"`
	SiteName    bool `json:"siteName" yaml:"site_name"`
}

type TwitterPresence struct {
	Card    bool `json:"card" yaml:"card"`
	Site    bool `json:"site" yaml:"site"`
	Creator bool `json:"creator" yaml:"creator"`
}

type MetaGovernance struct {
	OpenGraph OpenGraphPresence `json:"openGraph" yaml:"open_graph"`
	Twitter   TwitterPresence   `json:"twitter" yaml:"twitter"`
	Favicon   bool              `json:"favicon" yaml:"favicon"`
}

type Accessibility struct {
	AltTextMissing int      `json:"altTextMissing" yaml:"alt_text_missing"`
	HeadingOrder   []string `json:"headingOrder" yaml:"heading_order"`
	AriaLabels     int      `json:"ariaLabels" yaml:"aria_labels"`
}

type Resources struct {
	ImageFormats  []string `json:"imageFormats" yaml:"image_formats"`
	ResourceHints []string `json:"resourceHints" yaml:"resource_hints"`
}

// Language is the detected language of the primary content.
type Language struct {
	Code       string  `json:"code" yaml:"code"` // ISO-639-1
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Readability carries article metadata recovered by go-readability.
type Readability struct {
	Excerpt  string `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	SiteName string `json:"siteName,omitempty" yaml:"site_name,omitempty"`
	Byline   string `json:"byline,omitempty" yaml:"byline,omitempty"`
}
