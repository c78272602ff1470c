// Package safety checks URL reputation against Google Safe Browsing.
package safety

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/fetcher"
)

const (
	DefaultEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"
	DefaultTimeout  = 10 * time.Second

	clientID      = "web-audit"
	clientVersion = "1.0.0"
)

// ErrNoAPIKey is returned when no Safe Browsing key is configured.
var ErrNoAPIKey = errors.New("no safe browsing API key configured")

var threatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION"}

type Checker struct {
	fetcher *fetcher.Fetcher
	logger  *slog.Logger
	apiKey  string
	now     func() time.Time

	Endpoint string
	Timeout  time.Duration
}

// NewChecker builds a Checker. An empty apiKey yields a checker whose
// Check always returns ErrNoAPIKey.
func NewChecker(f *fetcher.Fetcher, apiKey string, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		fetcher:  f,
		logger:   logger,
		apiKey:   apiKey,
		now:      time.Now,
		Endpoint: DefaultEndpoint,
		Timeout:  DefaultTimeout,
	}
}

type findRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string      `json:"threatTypes"`
		PlatformTypes    []string      `json:"platformTypes"`
		ThreatEntryTypes []string      `json:"threatEntryTypes"`
		ThreatEntries    []threatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type threatEntry struct {
	URL string `json:"url"`
}

type findResponse struct {
	Matches []struct {
		ThreatType string      `json:"threatType"`
		Threat     threatEntry `json:"threat"`
	} `json:"matches"`
}

// Check looks pageURL up. Threat types are de-duplicated in match order.
func (c *Checker) Check(ctx context.Context, pageURL string) (*models.SafetyResult, error) {
	if c == nil || c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	var req findRequest
	req.Client.ClientID = clientID
	req.Client.ClientVersion = clientVersion
	req.ThreatInfo.ThreatTypes = threatTypes
	req.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	req.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	req.ThreatInfo.ThreatEntries = []threatEntry{{URL: pageURL}}

	var resp findResponse
	endpoint := c.Endpoint + "?key=" + url.QueryEscape(c.apiKey)
	if err := c.fetcher.PostJSON(ctx, endpoint, req, &resp, c.Timeout); err != nil {
		c.logger.Warn("safe browsing lookup failed", "url", pageURL, "error", err)
		return nil, fmt.Errorf("failed to check %s: %w", pageURL, err)
	}

	threats := []string{}
	seen := make(map[string]bool)
	for _, m := range resp.Matches {
		if m.ThreatType == "" || seen[m.ThreatType] {
			continue
		}
		seen[m.ThreatType] = true
		threats = append(threats, m.ThreatType)
	}

	return &models.SafetyResult{
		IsSafe:    len(threats) == 0,
		Threats:   threats,
		CheckedAt: c.now().UTC(),
	}, nil
}
