// Package provider talks to the upstream search engine. An Engine
// record describes how to reach one: a URL template with a {query}
// placeholder, the shape of its JSON response, and pacing limits.
// Requests are paced with a token bucket and guarded by a circuit
// breaker so a failing upstream is backed off instead of hammered.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"
)

// Engine describes a search upstream.
type Engine struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Strategy    string  `json:"strategy" yaml:"strategy"`           // "api" | "browser"
	URLTemplate string  `json:"url_template" yaml:"url_template"`   // {query} and {count} placeholders
	APIConfig   Config  `json:"api_config" yaml:"api_config"`       // for strategy=api
	RateLimit   float64 `json:"rate_limit" yaml:"rate_limit"`       // requests per second, 0 = unpaced
	Burst       int     `json:"burst" yaml:"burst"`                 // token bucket burst, default 1
	Enabled     bool    `json:"enabled" yaml:"enabled"`
}

// Hit is one search result as returned by the upstream, in upstream
// rank order.
type Hit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ErrBrowserNotAvailable is returned for engines with the browser
// strategy, which needs a headless browser this build does not ship.
var ErrBrowserNotAvailable = errors.New("provider: browser strategy not available")

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("provider: upstream unavailable")

// snippetPolicy strips markup from upstream snippets. Engines routinely
// embed <b> highlights in them.
var snippetPolicy = bluemonday.StrictPolicy()

// Provider executes queries against one Engine.
type Provider struct {
	engine  Engine
	client  *http.Client
	limiter *rate.Limiter
	breaker *breaker
}

// New creates a Provider for the given engine. A nil client gets a
// 30s-timeout default.
func New(engine Engine, client *http.Client) *Provider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Inf
	if engine.RateLimit > 0 {
		limit = rate.Limit(engine.RateLimit)
	}
	burst := engine.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Provider{
		engine:  engine,
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		breaker: newBreaker(),
	}
}

// Engine returns the engine record this provider was built from.
func (p *Provider) Engine() Engine {
	return p.engine
}

// Search runs query against the engine and returns up to count hits in
// upstream order. Snippets are sanitized to plain text.
func (p *Provider) Search(ctx context.Context, query string, count int) ([]Hit, error) {
	if !p.engine.Enabled {
		return nil, fmt.Errorf("provider: engine %q disabled", p.engine.ID)
	}
	if !p.breaker.allow() {
		return nil, ErrUnavailable
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var hits []Hit
	var err error
	switch p.engine.Strategy {
	case "api":
		hits, err = p.searchAPI(ctx, query, count)
	case "browser":
		return nil, ErrBrowserNotAvailable
	default:
		return nil, fmt.Errorf("provider: unknown strategy %q", p.engine.Strategy)
	}
	if err != nil {
		p.breaker.recordFailure()
		return nil, err
	}
	p.breaker.recordSuccess()
	return hits, nil
}

// searchAPI expands the URL template and parses the JSON response.
func (p *Provider) searchAPI(ctx context.Context, query string, count int) ([]Hit, error) {
	searchURL := strings.ReplaceAll(p.engine.URLTemplate, "{query}", url.QueryEscape(query))
	searchURL = strings.ReplaceAll(searchURL, "{count}", strconv.Itoa(count))

	items, err := fetchJSON(ctx, p.client, searchURL, p.engine.APIConfig)
	if err != nil {
		return nil, fmt.Errorf("provider: %s: %w", p.engine.ID, err)
	}

	hits := make([]Hit, 0, len(items))
	for _, item := range items {
		if item.URL == "" {
			continue
		}
		hits = append(hits, Hit{
			Title:   cleanSnippet(item.Title),
			URL:     item.URL,
			Snippet: cleanSnippet(item.Text),
		})
		if count > 0 && len(hits) >= count {
			break
		}
	}
	return hits, nil
}

func cleanSnippet(s string) string {
	return strings.Join(strings.Fields(snippetPolicy.Sanitize(s)), " ")
}
