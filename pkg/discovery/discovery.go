// Package discovery expands a site URL into a few same-site pages to audit.
package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/web-audit/internal/common"
	"github.com/dtnitsch/web-audit/pkg/fetcher"
)

const (
	DefaultMaxPages       = 3
	DefaultSitemapTimeout = 3 * time.Second
	DefaultCrawlTimeout   = 5 * time.Second
)

var sitemapPaths = []string{"/sitemap.xml", "/sitemap_index.xml"}

type Discoverer struct {
	fetcher *fetcher.Fetcher
	logger  *slog.Logger

	MaxPages       int
	SitemapTimeout time.Duration
	CrawlTimeout   time.Duration
}

func New(f *fetcher.Fetcher, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{
		fetcher:        f,
		logger:         logger,
		MaxPages:       DefaultMaxPages,
		SitemapTimeout: DefaultSitemapTimeout,
		CrawlTimeout:   DefaultCrawlTimeout,
	}
}

// Discover returns at most MaxPages URLs, starting with baseURL.
// Sitemaps are tried first; the homepage links are crawled only when no
// sitemap added anything. Every error is treated as "no result".
func (d *Discoverer) Discover(ctx context.Context, baseURL string) []string {
	pages := newPageSet(baseURL)
	root := common.TrimTrailingSlash(baseURL)

	for _, path := range sitemapPaths {
		locs, err := d.sitemapLocations(ctx, root+path)
		if err != nil {
			d.logger.Debug("sitemap unavailable", "url", root+path, "error", err)
			continue
		}
		for _, loc := range locs {
			if pages.len() < d.MaxPages*2 {
				pages.add(loc)
			}
		}
		if pages.len() > 1 {
			break
		}
	}

	if pages.len() == 1 {
		links, err := d.homepageLinks(ctx, baseURL)
		if err != nil {
			d.logger.Debug("homepage crawl failed", "url", baseURL, "error", err)
		}
		for _, link := range links {
			if pages.len() < d.MaxPages {
				pages.add(link)
			}
		}
	}

	result := pages.list()
	if len(result) > d.MaxPages {
		result = result[:d.MaxPages]
	}
	d.logger.Debug("discovery complete", "url", baseURL, "pages", len(result))
	return result
}

type sitemapEntry struct {
	Location string `xml:"loc"`
}

// sitemapDocument decodes either a <urlset> or a <sitemapindex>.
type sitemapDocument struct {
	URLs     []sitemapEntry `xml:"url"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

func (d *Discoverer) sitemapLocations(ctx context.Context, sitemapURL string) ([]string, error) {
	resp, err := d.fetcher.Get(ctx, sitemapURL, d.SitemapTimeout)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sitemap status %d", resp.StatusCode)
	}
	return ParseSitemap(resp.Body)
}

// ParseSitemap returns <url><loc> entries followed by <sitemap><loc> entries.
func ParseSitemap(data []byte) ([]string, error) {
	var doc sitemapDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse sitemap: %w", err)
	}
	var locs []string
	for _, entries := range [][]sitemapEntry{doc.URLs, doc.Sitemaps} {
		for _, e := range entries {
			if loc := strings.TrimSpace(e.Location); loc != "" {
				locs = append(locs, loc)
			}
		}
	}
	return locs, nil
}

// homepageLinks returns same-hostname absolute links in document order,
// with fragments removed.
func (d *Discoverer) homepageLinks(ctx context.Context, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	resp, err := d.fetcher.Get(ctx, baseURL, d.CrawlTimeout)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("homepage status %d", resp.StatusCode)
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(abs.Hostname(), base.Hostname()) {
			return
		}
		abs.Fragment = ""
		abs.RawFragment = ""
		links = append(links, abs.String())
	})
	return links, nil
}

// pageSet is an insertion-ordered set of URLs.
type pageSet struct {
	seen  map[string]bool
	pages []string
}

func newPageSet(first string) *pageSet {
	s := &pageSet{seen: make(map[string]bool)}
	s.add(first)
	return s
}

func (s *pageSet) add(u string) {
	if s.seen[u] {
		return
	}
	s.seen[u] = true
	s.pages = append(s.pages, u)
}

func (s *pageSet) len() int { return len(s.pages) }

func (s *pageSet) list() []string { return s.pages }
