package performance

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/fetcher"
)

const (
	DefaultCruxEndpoint = "https://chromeuxreport.googleapis.com/v1/records:queryRecord"
	DefaultCruxTimeout  = 10 * time.Second
)

// CruxClient queries the Chrome UX Report for p75 field metrics.
// A nil *CruxClient is valid and always reports no data.
type CruxClient struct {
	fetcher *fetcher.Fetcher
	logger  *slog.Logger
	apiKey  string

	Endpoint string
	Timeout  time.Duration
}

// NewCruxClient returns nil when apiKey is empty.
func NewCruxClient(f *fetcher.Fetcher, apiKey string, logger *slog.Logger) *CruxClient {
	if apiKey == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CruxClient{
		fetcher:  f,
		logger:   logger,
		apiKey:   apiKey,
		Endpoint: DefaultCruxEndpoint,
		Timeout:  DefaultCruxTimeout,
	}
}

type cruxRequest struct {
	URL        string `json:"url"`
	FormFactor string `json:"formFactor"`
}

type cruxResponse struct {
	Record *struct {
		Metrics          map[string]cruxMetric `json:"metrics"`
		CollectionPeriod *struct {
			FirstDate cruxDate `json:"firstDate"`
			LastDate  cruxDate `json:"lastDate"`
		} `json:"collectionPeriod"`
	} `json:"record"`
}

type cruxMetric struct {
	Percentiles struct {
		P75 flexNumber `json:"p75"`
	} `json:"percentiles"`
}

type cruxDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (d cruxDate) String() string {
	return fmt.Sprintf("%d-%02d", d.Year, d.Month)
}

// flexNumber accepts JSON numbers and numeric strings; CrUX sends CLS as "0.05".
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", b, err)
	}
	*n = flexNumber(f)
	return nil
}

// Query returns phone p75 metrics for pageURL, or nil when the client is not
// configured or the call fails.
func (c *CruxClient) Query(ctx context.Context, pageURL string) *models.FieldMetrics {
	if c == nil {
		return nil
	}

	var resp cruxResponse
	endpoint := c.Endpoint + "?key=" + url.QueryEscape(c.apiKey)
	if err := c.fetcher.PostJSON(ctx, endpoint, cruxRequest{URL: pageURL, FormFactor: "PHONE"}, &resp, c.Timeout); err != nil {
		c.logger.Warn("crux query failed", "url", pageURL, "error", err)
		return nil
	}
	if resp.Record == nil {
		return nil
	}

	metric := func(name string) float64 {
		return float64(resp.Record.Metrics[name].Percentiles.P75)
	}
	field := &models.FieldMetrics{
		LCP: FormatSeconds(metric("largest_contentful_paint")),
		INP: FormatMillis(metric("interaction_to_next_paint")),
		CLS: FormatCLS(metric("cumulative_layout_shift")),
	}
	if cp := resp.Record.CollectionPeriod; cp != nil {
		field.DataSource = "CrUX"
		field.CollectionPeriod = &models.CollectionPeriod{
			FirstDate: cp.FirstDate.String(),
			LastDate:  cp.LastDate.String(),
		}
	}
	return field
}
