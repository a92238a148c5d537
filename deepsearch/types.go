// Package deepsearch runs the full search pipeline: query an upstream
// engine, optionally follow each result politely (robots.txt, per-host
// spacing) to extract page content, then rerank everything against the
// user's recorded preferences and feedback.
package deepsearch

import (
	"net/url"
	"strings"

	"github.com/hazyhaar/fouille/deepsearch/internal/store"
)

// Preferences is the user's ranking profile.
type Preferences = store.Preferences

// PreferencesPatch is a partial preferences update.
type PreferencesPatch = store.PreferencesPatch

// Stats summarises the feedback log.
type Stats = store.Stats

// HistoryEntry is one logged query.
type HistoryEntry = store.HistoryEntry

// Result is one search result after following and scoring.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Domain  string `json:"domain"`
	Rank    int    `json:"rank"` // position in the upstream response, 0-based
	Snippet string `json:"snippet,omitempty"`
	// Extract is page text recovered by following the result. A fetch
	// failure leaves the marker "ERROR_FETCH:<reason>" here so the
	// caller can tell "not followed" from "followed and failed".
	Extract string  `json:"extract,omitempty"`
	Score   float64 `json:"score"`
	// AllowedByRobots carries the robots.txt verdict for every result,
	// whether or not follow was requested. False also covers URLs with
	// no parsable host, which are never fetched.
	AllowedByRobots *bool  `json:"allowed_by_robots"`
	ArchivePath     string `json:"archive_path,omitempty"`
}

// Meta describes how a response was produced.
type Meta struct {
	TotalResultsFromSearch int     `json:"total_results_from_search"`
	ReturnedResults        int     `json:"returned_results"`
	FollowPerformed        bool    `json:"follow_performed"`
	TotalFollowed          int     `json:"total_followed"`
	MaxPerDomain           int     `json:"max_per_domain"`
	DelayPerDomain         float64 `json:"delay_per_domain"`
	Personalized           bool    `json:"personalized"`
}

// Response is a complete deep search response.
type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Meta    Meta     `json:"meta"`
}

// Params control one deep search. NewParams supplies the defaults.
type Params struct {
	Query          string  `json:"q"`
	MaxResults     int     `json:"max_results"`      // 1..200
	Follow         bool    `json:"follow"`           // fetch and extract each result
	MaxPerDomain   int     `json:"max_per_domain"`   // 1..50 follows per domain
	DelayPerDomain float64 `json:"delay_per_domain"` // seconds, 0..10
	Personalize    bool    `json:"personalize"`
}

// NewParams returns Params with the defaults applied.
func NewParams(query string) Params {
	return Params{
		Query:          query,
		MaxResults:     50,
		MaxPerDomain:   5,
		DelayPerDomain: 1.0,
		Personalize:    true,
	}
}

// normalize validates the query and clamps the numeric knobs into
// their allowed ranges.
func (p *Params) normalize() error {
	p.Query = strings.TrimSpace(p.Query)
	if len(p.Query) < 2 {
		return ErrQueryTooShort
	}
	p.MaxResults = clampInt(p.MaxResults, 1, 200)
	p.MaxPerDomain = clampInt(p.MaxPerDomain, 1, 50)
	if p.DelayPerDomain < 0 {
		p.DelayPerDomain = 0
	}
	if p.DelayPerDomain > 10 {
		p.DelayPerDomain = 10
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DomainOf extracts the lowercased network location from a URL,
// keeping the port when there is one, "" when the URL has no host.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
