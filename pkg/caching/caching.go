// Package caching keeps recently extracted homepage signals so the fast and
// deep passes of one audit fetch the homepage only once.
package caching

import (
	"context"
	"strings"
	"time"

	"github.com/dtnitsch/web-audit/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSize = 100
	DefaultTTL  = 5 * time.Minute

	keyPrefix = "audit_scan_"
)

// Cache is a size-bounded LRU of page signals with a TTL. Concurrent misses
// for the same key share one fetch.
type Cache struct {
	lru   *expirable.LRU[string, *models.PageSignal]
	group singleflight.Group
}

// NewCache creates a cache. Non-positive arguments fall back to the defaults.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{lru: expirable.NewLRU[string, *models.PageSignal](size, nil, ttl)}
}

// Key builds the cache key for a normalized URL.
func Key(url string) string {
	return keyPrefix + strings.TrimSpace(url)
}

// Get returns a copy of the cached signal so callers may modify it freely.
func (c *Cache) Get(key string) (*models.PageSignal, bool) {
	sig, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return clone(sig), true
}

// Set stores a copy of sig. Last write wins.
func (c *Cache) Set(key string, sig *models.PageSignal) {
	if sig == nil {
		return
	}
	c.lru.Add(key, clone(sig))
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

// Load returns the cached signal for key or fetches it. Only successful
// (2xx) signals are stored. With force the cache is bypassed; the fetch is
// shared only with other forced callers. hit reports a cache hit.
func (c *Cache) Load(ctx context.Context, key string, force bool, fetch func(context.Context) *models.PageSignal) (sig *models.PageSignal, hit bool, err error) {
	if !force {
		if sig, ok := c.Get(key); ok {
			return sig, true, nil
		}
	}

	flight := key
	if force {
		flight = key + "#force"
	}
	ch := c.group.DoChan(flight, func() (any, error) {
		if !force {
			if sig, ok := c.lru.Get(key); ok {
				return sig, nil
			}
		}
		fetched := fetch(ctx)
		if fetched.OK() {
			c.Set(key, fetched)
		}
		return fetched, nil
	})

	select {
	case res := <-ch:
		s, _ := res.Val.(*models.PageSignal)
		return clone(s), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func clone(sig *models.PageSignal) *models.PageSignal {
	if sig == nil {
		return nil
	}
	cp := *sig
	return &cp
}
