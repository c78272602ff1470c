package models

// PerformanceMetrics holds lab metrics from a performance auditor.
// Timing values are display strings ("2.4 s", "120 ms").
type PerformanceMetrics struct {
	LighthouseScore    int  `json:"lighthouseScore" yaml:"lighthouse_score"`
	SEOScore           *int `json:"seoScore,omitempty" yaml:"seo_score,omitempty"`
	AccessibilityScore *int `json:"accessibilityScore,omitempty" yaml:"accessibility_score,omitempty"`
	BestPracticesScore *int `json:"bestPracticesScore,omitempty" yaml:"best_practices_score,omitempty"`

	LCP        string `json:"lcp,omitempty" yaml:"lcp,omitempty"`
	INP        string `json:"inp,omitempty" yaml:"inp,omitempty"`
	CLS        string `json:"cls,omitempty" yaml:"cls,omitempty"`
	SpeedIndex string `json:"speedIndex,omitempty" yaml:"speed_index,omitempty"`
	FCP        string `json:"fcp,omitempty" yaml:"fcp,omitempty"`
	TTI        string `json:"tti,omitempty" yaml:"tti,omitempty"`

	DOMIssues *DOMIssues `json:"domIssues,omitempty" yaml:"dom_issues,omitempty"`

	FinalURL          string `json:"finalUrl,omitempty" yaml:"final_url,omitempty"`
	FetchTime         string `json:"fetchTime,omitempty" yaml:"fetch_time,omitempty"`
	LighthouseVersion string `json:"lighthouseVersion,omitempty" yaml:"lighthouse_version,omitempty"`
	Source            string `json:"source,omitempty" yaml:"source,omitempty"` // pagespeed | rod

	Crux *FieldMetrics `json:"crux,omitempty" yaml:"crux,omitempty"`
}

// FieldMetrics is real-user p75 data from CrUX.
type FieldMetrics struct {
	LCP              string            `json:"lcp,omitempty" yaml:"lcp,omitempty"`
	INP              string            `json:"inp,omitempty" yaml:"inp,omitempty"`
	CLS              string            `json:"cls,omitempty" yaml:"cls,omitempty"`
	DataSource       string            `json:"dataSource,omitempty" yaml:"data_source,omitempty"`
	CollectionPeriod *CollectionPeriod `json:"collectionPeriod,omitempty" yaml:"collection_period,omitempty"`
}

type CollectionPeriod struct {
	FirstDate string `json:"firstDate" yaml:"first_date"` // YYYY-MM
	LastDate  string `json:"lastDate" yaml:"last_date"`
}

// Rect is an element bounding box in CSS pixels.
type Rect struct {
	Top    float64 `json:"top" yaml:"top"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Left   float64 `json:"left" yaml:"left"`
	Right  float64 `json:"right" yaml:"right"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

type ElementIssue struct {
	Rect    Rect   `json:"rect" yaml:"rect"`
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// DOMIssues points at the LCP element and the layout-shift culprits.
type DOMIssues struct {
	LCP *ElementIssue  `json:"lcp,omitempty" yaml:"lcp,omitempty"`
	CLS []ElementIssue `json:"cls,omitempty" yaml:"cls,omitempty"`
}
