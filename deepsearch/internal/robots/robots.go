// Package robots answers "may this URL be crawled" with a per-origin
// robots.txt cache. Each origin (scheme://host) is fetched at most once
// per process; a fetch that fails at the transport level is recorded as
// allow-all so an unreachable robots.txt never blocks crawling, while
// HTTP statuses keep their usual robots semantics (4xx allow-all,
// 5xx disallow-all).
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// DefaultMaxEntries bounds the origin cache. When the cache fills,
// roughly half the entries are evicted in one sweep.
const DefaultMaxEntries = 4096

// maxRobotsBody caps the robots.txt response body.
const maxRobotsBody = 512 * 1024

// Config configures the cache.
type Config struct {
	Timeout    time.Duration // robots.txt fetch timeout. Default: 8s.
	UserAgent  string        // used for fetching and for group matching.
	MaxEntries int           // cache bound. Default: DefaultMaxEntries.
	// HTTPClient overrides the fetch client, mainly for tests.
	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 8 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "fouille/1.0"
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
}

// Cache is a write-once per-origin robots.txt cache. Safe for
// concurrent use.
type Cache struct {
	config Config

	mu      sync.Mutex
	entries map[string]*robotstxt.RobotsData // nil value = allow all (fail-open)
}

// NewCache creates a Cache.
func NewCache(cfg Config) *Cache {
	cfg.defaults()
	return &Cache{
		config:  cfg,
		entries: make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the configured user agent may fetch rawURL.
// URLs without a usable scheme and host are never allowed.
func (c *Cache) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	origin := u.Scheme + "://" + u.Host

	data := c.lookup(ctx, origin)
	if data == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, c.config.UserAgent)
}

// lookup returns the cached robots data for origin, fetching it once on
// first use. The fetch happens outside the lock; if two goroutines race
// on a cold origin the first stored result wins.
func (c *Cache) lookup(ctx context.Context, origin string) *robotstxt.RobotsData {
	c.mu.Lock()
	if data, ok := c.entries[origin]; ok {
		c.mu.Unlock()
		return data
	}
	c.mu.Unlock()

	data := c.fetch(ctx, origin)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[origin]; ok {
		return existing
	}
	if len(c.entries) >= c.config.MaxEntries {
		c.evictLocked()
	}
	c.entries[origin] = data
	return data
}

// evictLocked drops about half the cache. Map iteration order makes the
// victims arbitrary, which is fine for a politeness cache.
func (c *Cache) evictLocked() {
	drop := len(c.entries) / 2
	for k := range c.entries {
		if drop == 0 {
			break
		}
		delete(c.entries, k)
		drop--
	}
}

// fetch retrieves and parses origin's robots.txt. Transport errors and
// unparsable bodies fail open (nil = allow all).
func (c *Cache) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return data
}

// String describes the cache state, for logs.
func (c *Cache) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("robots.Cache{origins: %d}", len(c.entries))
}
