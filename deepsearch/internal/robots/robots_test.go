package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// WHAT: Disallow rules from a served robots.txt are honoured, and the
// origin is fetched exactly once across many checks.
// WHY: refetching robots.txt for every URL would hammer the very hosts
// the cache exists to protect.
func TestAllowedHonoursDisallow(t *testing.T) {
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fetches.Add(1)
		w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	}))
	defer srv.Close()

	c := NewCache(Config{HTTPClient: srv.Client()})
	ctx := context.Background()

	if !c.Allowed(ctx, srv.URL+"/public/page") {
		t.Error("public path should be allowed")
	}
	if c.Allowed(ctx, srv.URL+"/private/page") {
		t.Error("private path should be disallowed")
	}
	if !c.Allowed(ctx, srv.URL+"/") {
		t.Error("root should be allowed")
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("robots.txt fetched %d times, want 1", n)
	}
}

// WHAT: a transport failure fetching robots.txt allows crawling, and
// the failure is cached so the origin is not retried.
// WHY: an unreachable robots endpoint should not block a crawl, and a
// dead host should not be probed once per URL.
func TestFailOpenOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	origin := srv.URL
	srv.Close() // connection refused from here on

	c := NewCache(Config{})
	ctx := context.Background()

	if !c.Allowed(ctx, origin+"/anything") {
		t.Error("transport failure should fail open")
	}
	if !c.Allowed(ctx, origin+"/other") {
		t.Error("cached fail-open should allow")
	}
}

// WHAT: HTTP statuses keep robots semantics: 404 allows everything,
// 500 disallows everything.
// WHY: these are the conventional interpretations of robots.txt
// availability.
func TestStatusSemantics(t *testing.T) {
	for _, tc := range []struct {
		status int
		allow  bool
	}{
		{404, true},
		{500, false},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := NewCache(Config{HTTPClient: srv.Client()})
		got := c.Allowed(context.Background(), srv.URL+"/page")
		if got != tc.allow {
			t.Errorf("status %d: allowed = %v, want %v", tc.status, got, tc.allow)
		}
		srv.Close()
	}
}

// WHAT: URLs without a scheme or host are never allowed.
// WHY: there is no origin to ask, so the safe answer is no.
func TestMalformedURLDisallowed(t *testing.T) {
	c := NewCache(Config{})
	for _, raw := range []string{"", "not a url", "/relative/path", "mailto:x@y"} {
		if c.Allowed(context.Background(), raw) {
			t.Errorf("Allowed(%q) = true, want false", raw)
		}
	}
}

// WHAT: inserting into a full cache evicts about half the entries
// first, so the cache stays bounded.
// WHY: a long process visiting unbounded hosts must not grow without
// limit.
func TestCacheEviction(t *testing.T) {
	c := NewCache(Config{MaxEntries: 8})
	c.mu.Lock()
	for i := 0; i < 8; i++ {
		c.entries[fmt.Sprintf("http://host-%d.test", i)] = nil
	}
	c.mu.Unlock()

	// Unreachable origin: fails open and occupies a slot via lookup.
	c.Allowed(context.Background(), "http://127.0.0.1:9/x")

	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	if n > 8 {
		t.Errorf("cache size = %d, want <= 8", n)
	}
}
