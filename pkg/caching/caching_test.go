package caching

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtnitsch/web-audit/models"
)

func TestKey(t *testing.T) {
	if got := Key("  https://acme.test "); got != "audit_scan_https://acme.test" {
		t.Errorf("Key() = %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	c := NewCache(10, time.Minute)
	c.Set("k", &models.PageSignal{URL: "https://acme.test", StatusCode: 200, Title: "Acme"})

	got, ok := c.Get("k")
	if !ok || got.Title != "Acme" {
		t.Fatalf("Get() = %+v, %v", got, ok)
	}

	got.Title = "mutated"
	again, _ := c.Get("k")
	if again.Title != "Acme" {
		t.Errorf("cached value changed through a returned copy: %q", again.Title)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) ok = true")
	}
}

func TestExpiry(t *testing.T) {
	c := NewCache(10, 50*time.Millisecond)
	c.Set("k", &models.PageSignal{StatusCode: 200})
	time.Sleep(120 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Get() after TTL ok = true")
	}
}

func TestEviction(t *testing.T) {
	c := NewCache(100, time.Minute)
	c.Set("first", &models.PageSignal{StatusCode: 200})
	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("k%d", i), &models.PageSignal{StatusCode: 200})
	}
	if _, ok := c.Get("first"); ok {
		t.Error("least recently used entry survived 100 newer inserts")
	}
	if c.Len() != 100 {
		t.Errorf("Len() = %d, want 100", c.Len())
	}
}

func TestLoad(t *testing.T) {
	c := NewCache(10, time.Minute)
	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) *models.PageSignal {
		calls++
		return &models.PageSignal{URL: "https://acme.test", StatusCode: 200}
	}

	if _, hit, _ := c.Load(ctx, "k", false, fetch); hit {
		t.Error("first Load() hit = true")
	}
	if _, hit, _ := c.Load(ctx, "k", false, fetch); !hit {
		t.Error("second Load() hit = false")
	}
	if _, hit, _ := c.Load(ctx, "k", true, fetch); hit {
		t.Error("forced Load() hit = true")
	}
	if calls != 2 {
		t.Errorf("fetch calls = %d, want 2", calls)
	}
}

func TestLoadSkipsFailedSignals(t *testing.T) {
	c := NewCache(10, time.Minute)
	sig, _, _ := c.Load(context.Background(), "k", false, func(context.Context) *models.PageSignal {
		return &models.PageSignal{StatusCode: 503, Blocked: true}
	})
	if sig.StatusCode != 503 {
		t.Errorf("StatusCode = %d, want 503", sig.StatusCode)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("failed signal was cached")
	}
}

func TestLoadConcurrentFetchesOnce(t *testing.T) {
	c := NewCache(10, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) *models.PageSignal {
		calls.Add(1)
		<-release
		return &models.PageSignal{URL: "https://acme.test", StatusCode: 200}
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sig, _, err := c.Load(context.Background(), "k", false, fetch)
			if err != nil || sig == nil || sig.StatusCode != 200 {
				t.Errorf("Load() = %+v, %v", sig, err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestLoadForceDoesNotJoinCachedFlight(t *testing.T) {
	c := NewCache(10, time.Minute)
	release := make(chan struct{})
	started := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Load(context.Background(), "k", false, func(context.Context) *models.PageSignal {
			close(started)
			<-release
			return &models.PageSignal{URL: "stale", StatusCode: 200}
		})
	}()
	<-started

	sig, hit, err := c.Load(context.Background(), "k", true, func(context.Context) *models.PageSignal {
		return &models.PageSignal{URL: "fresh", StatusCode: 200}
	})
	close(release)
	<-done

	if err != nil || hit {
		t.Fatalf("Load(force) hit = %v, err = %v", hit, err)
	}
	if sig.URL != "fresh" {
		t.Errorf("Load(force) URL = %q, want fresh", sig.URL)
	}
}

func TestLoadContextCancelled(t *testing.T) {
	c := NewCache(10, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	block := make(chan struct{})
	defer close(block)

	_, _, err := c.Load(ctx, "k", false, func(context.Context) *models.PageSignal {
		<-block
		return &models.PageSignal{StatusCode: 200}
	})
	if err == nil {
		t.Error("Load() with cancelled context error = nil")
	}
}
