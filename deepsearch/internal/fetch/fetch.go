// Package fetch implements the HTTP page fetcher used to follow search
// results: bounded response bodies, SSRF validation on the request URL
// and on every redirect hop, and a hard per-request timeout.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hazyhaar/fouille/websafe"
)

// Result contains the outcome of a page fetch.
type Result struct {
	Body        []byte
	StatusCode  int
	ContentType string // from the response header, may include parameters
	FinalURL    string // after redirects
}

// Config configures the fetcher.
type Config struct {
	Timeout  time.Duration // HTTP timeout. Default: 8s.
	MaxBytes int64         // Max response body size. Default: websafe.MaxResponseBody.
	// UserAgent sent with requests.
	UserAgent string
	// URLValidator validates URLs before fetch (SSRF prevention).
	// Default: websafe.ValidateURL.
	URLValidator func(string) error
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 8 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = websafe.MaxResponseBody
	}
	if c.UserAgent == "" {
		c.UserAgent = "fouille/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = websafe.ValidateURL
	}
}

// Fetcher performs HTTP GET requests for pages to extract.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher with SSRF protection on redirects.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked (SSRF): %w", err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Fetch retrieves a URL and returns its body, capped at the configured
// byte limit. Non-2xx statuses return the status alongside an error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	// SSRF: validate URL before request.
	if err := f.config.URLValidator(url); err != nil {
		return nil, fmt.Errorf("URL blocked (SSRF): %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	res := &Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return res, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	res.Body = body
	return res, nil
}
