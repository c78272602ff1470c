// Package performance collects lab and field performance metrics.
package performance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dtnitsch/web-audit/models"
)

// ErrNoLabAuditor is returned when lab metrics are requested but no auditor is configured.
var ErrNoLabAuditor = errors.New("no lab auditor configured")

// LabAuditor runs a lab performance audit of a single URL.
type LabAuditor interface {
	Audit(ctx context.Context, url string) (*models.PerformanceMetrics, error)
}

// Collector pairs a lab auditor with the CrUX field-data client.
// Merging the two results is left to callers.
type Collector struct {
	Auditor LabAuditor
	Crux    *CruxClient
}

func NewCollector(lab LabAuditor, crux *CruxClient) *Collector {
	return &Collector{Auditor: lab, Crux: crux}
}

// Lab runs the configured lab auditor.
func (c *Collector) Lab(ctx context.Context, url string) (*models.PerformanceMetrics, error) {
	if c == nil || c.Auditor == nil {
		return nil, ErrNoLabAuditor
	}
	m, err := c.Auditor.Audit(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to audit %s: %w", url, err)
	}
	return m, nil
}

// Field queries CrUX. It returns nil when unavailable.
func (c *Collector) Field(ctx context.Context, url string) *models.FieldMetrics {
	if c == nil {
		return nil
	}
	return c.Crux.Query(ctx, url)
}

// FormatSeconds renders milliseconds as "2.40 s". Zero renders as "".
func FormatSeconds(ms float64) string {
	if ms == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f s", ms/1000)
}

// FormatMillis renders milliseconds as "180 ms".
func FormatMillis(ms float64) string {
	if ms == 0 {
		return ""
	}
	return strconv.FormatFloat(math.Round(ms), 'f', -1, 64) + " ms"
}

// FormatCLS renders a layout shift score with two decimals.
func FormatCLS(v float64) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", v)
}

// ParseSeconds reads "2.4 s" or "2,400 ms" style display values as seconds.
func ParseSeconds(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}
	n, ok := parseNumeric(value)
	if !ok {
		return 0, false
	}
	if strings.Contains(strings.ToLower(value), "ms") {
		return n / 1000, true
	}
	return n, true
}

// ParseMillis reads "180 ms" or "3.1 s" style display values as milliseconds.
func ParseMillis(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}
	n, ok := parseNumeric(value)
	if !ok {
		return 0, false
	}
	lower := strings.ToLower(value)
	if strings.Contains(lower, "s") && !strings.Contains(lower, "ms") {
		return n * 1000, true
	}
	return n, true
}

// ParseNumber reads the first number in a display value.
func ParseNumber(value string) (float64, bool) {
	return parseNumeric(value)
}

func parseNumeric(value string) (float64, bool) {
	s := strings.ReplaceAll(value, "\u00a0", " ")
	// "2,400 ms" is a thousands separator, "0,05" a decimal comma.
	if i := strings.Index(s, ","); i >= 0 {
		rest := s[i+1:]
		digits := 0
		for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
			digits++
		}
		if digits == 3 {
			s = s[:i] + rest
		} else {
			s = s[:i] + "." + rest
		}
	}
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' || r == '.' })
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	n, err := strconv.ParseFloat(s[start:end], 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}
