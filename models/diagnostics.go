package models

import "time"

// SiteDiagnostics describes the crawler-facing files of a site.
type SiteDiagnostics struct {
	RobotsTxt *RobotsTxt `json:"robotsTxt,omitempty" yaml:"robots_txt,omitempty"`
	LLMsTxt   *LLMsTxt   `json:"llmsTxt,omitempty" yaml:"llms_txt,omitempty"`
}

type RobotsTxt struct {
	Status         int      `json:"status" yaml:"status"`
	ContentPreview string   `json:"contentPreview,omitempty" yaml:"content_preview,omitempty"`
	SitemapURLs    []string `json:"sitemapUrls" yaml:"sitemap_urls"`
	Error          string   `json:"error,omitempty" yaml:"error,omitempty"`
}

type LLMsTxt struct {
	Status         int    `json:"status" yaml:"status"`
	Location       string `json:"location" yaml:"location"`
	ContentPreview string `json:"contentPreview,omitempty" yaml:"content_preview,omitempty"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty"`
}

// HasLLMsTxt reports whether an llms.txt file was found.
func (d *SiteDiagnostics) HasLLMsTxt() bool {
	return d != nil && d.LLMsTxt != nil && d.LLMsTxt.Status == 200
}

// SafetyResult is the URL reputation verdict.
type SafetyResult struct {
	IsSafe    bool      `json:"isSafe"`
	Threats   []string  `json:"threats"`
	CheckedAt time.Time `json:"checkedAt"`
}
