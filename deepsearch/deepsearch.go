package deepsearch

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/fouille/deepsearch/internal/buffer"
	"github.com/hazyhaar/fouille/deepsearch/internal/fetch"
	"github.com/hazyhaar/fouille/deepsearch/internal/polite"
	"github.com/hazyhaar/fouille/deepsearch/internal/provider"
	"github.com/hazyhaar/fouille/deepsearch/internal/robots"
	"github.com/hazyhaar/fouille/deepsearch/internal/store"
	"github.com/hazyhaar/fouille/extract"
)

// Service runs deep searches and owns the personalization state.
type Service struct {
	config   Config
	logger   *slog.Logger
	provider *provider.Provider
	fetcher  *fetch.Fetcher
	robots   *robots.Cache
	waiter   *polite.Waiter
	store    *store.Store
	archive  *buffer.Writer // nil when archiving is disabled
	now      func() time.Time
}

// Option adjusts a Service at construction time.
type Option func(*Service)

// WithProvider replaces the search provider, mainly for tests.
func WithProvider(p *provider.Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithFetcher replaces the page fetcher, mainly for tests.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithRobots replaces the robots.txt cache, mainly for tests.
func WithRobots(c *robots.Cache) Option {
	return func(s *Service) { s.robots = c }
}

// WithEngineClient sets the HTTP client used to reach the search
// engine.
func WithEngineClient(c *http.Client) Option {
	return func(s *Service) { s.provider = provider.New(s.config.Engine, c) }
}

// New creates a Service over an opened database. The store schema must
// already be applied.
func New(db *sql.DB, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		config:   cfg,
		logger:   logger,
		provider: provider.New(cfg.Engine, nil),
		fetcher: fetch.New(fetch.Config{
			Timeout:   cfg.FetchTimeout,
			MaxBytes:  cfg.MaxFetchBytes,
			UserAgent: cfg.UserAgent,
		}),
		robots: robots.NewCache(robots.Config{
			Timeout:    cfg.FetchTimeout,
			UserAgent:  cfg.UserAgent,
			MaxEntries: cfg.RobotsMaxEntries,
		}),
		waiter: polite.NewWaiter(),
		store:  store.New(db),
		now:    time.Now,
	}
	if cfg.ArchiveDir != "" {
		s.archive = buffer.NewWriter(cfg.ArchiveDir)
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DeepSearch runs the full pipeline for one query.
func (s *Service) DeepSearch(ctx context.Context, params Params) (*Response, error) {
	if err := params.normalize(); err != nil {
		return nil, err
	}

	hits, err := s.provider.Search(ctx, params.Query, params.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	results := make([]Result, 0, len(hits))
	for i, h := range hits {
		allowed := s.robots.Allowed(ctx, h.URL)
		results = append(results, Result{
			Title:           h.Title,
			URL:             h.URL,
			Domain:          DomainOf(h.URL),
			Rank:            i,
			Snippet:         h.Snippet,
			Score:           BaseScore(i),
			AllowedByRobots: &allowed,
		})
	}
	total := len(results)

	var prefs store.Preferences
	var counts store.FeedbackCounts
	if params.Personalize {
		if prefs, err = s.store.LoadPreferences(ctx); err != nil {
			return nil, err
		}
		if counts, err = s.store.LoadFeedbackCounts(ctx); err != nil {
			return nil, err
		}
		if prefs.StrictBlock {
			results = dropBlocked(results, prefs, counts)
		}
	}

	followed := 0
	if params.Follow {
		followed = s.follow(ctx, params, results)
	}

	if params.Personalize {
		Rerank(results, prefs, counts)
	}

	if err := s.recordHistory(ctx, params.Query, results); err != nil {
		s.logger.Warn("history record failed", "error", err)
	}

	return &Response{
		Query:   params.Query,
		Results: results,
		Meta: Meta{
			TotalResultsFromSearch: total,
			ReturnedResults:        len(results),
			FollowPerformed:        params.Follow,
			TotalFollowed:          followed,
			MaxPerDomain:           params.MaxPerDomain,
			DelayPerDomain:         params.DelayPerDomain,
			Personalized:           params.Personalize,
		},
	}, nil
}

// follow fetches and extracts results in order, honouring robots.txt,
// the per-domain follow cap, and the per-domain delay. The robots
// verdicts were already computed during assembly; a forbidden result
// is skipped without consuming its domain's follow slot. Returns how
// many pages were actually fetched.
func (s *Service) follow(ctx context.Context, params Params, results []Result) int {
	interval := time.Duration(params.DelayPerDomain * float64(time.Second))
	perDomain := make(map[string]int)
	followed := 0

	for i := range results {
		r := &results[i]
		if r.Domain == "" || r.AllowedByRobots == nil || !*r.AllowedByRobots {
			continue
		}
		if perDomain[r.Domain] >= params.MaxPerDomain {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		perDomain[r.Domain]++

		if err := s.waiter.Wait(ctx, r.Domain, interval); err != nil {
			break
		}

		followed++
		s.followOne(ctx, params.Query, r)
	}
	return followed
}

// followOne fetches one result and fills its extract fields. Fetch and
// extraction failures are recorded on the result, never returned.
func (s *Service) followOne(ctx context.Context, query string, r *Result) {
	res, err := s.fetcher.Fetch(ctx, r.URL)
	if err != nil {
		r.Extract = fetchErrorMarker(err)
		s.logger.Debug("follow failed", "url", r.URL, "error", err)
		return
	}

	var content extract.Content
	if strings.HasPrefix(res.ContentType, "application/pdf") {
		content, err = extract.FromPDF(res.Body, extract.Options{})
	} else {
		content, err = extract.FromHTML(string(res.Body), extract.Options{})
	}
	if err != nil {
		r.Extract = fetchErrorMarker(err)
		return
	}

	r.Extract = content.Text
	if r.Title == "" && content.Title != "" {
		r.Title = content.Title
	}
	if r.Snippet == "" && content.Snippet != "" {
		r.Snippet = content.Snippet
	}

	if s.archive != nil && (content.Text != "" || content.Snippet != "") {
		body := ""
		if !strings.HasPrefix(res.ContentType, "application/pdf") {
			body = string(res.Body)
		}
		fallback := content.Text
		if fallback == "" {
			fallback = content.Snippet
		}
		path, err := s.archive.WriteHTML(ctx, buffer.Metadata{
			Query:      query,
			SourceURL:  r.URL,
			Title:      r.Title,
			CapturedAt: s.now(),
		}, body, fallback)
		if err != nil {
			s.logger.Warn("archive failed", "url", r.URL, "error", err)
		} else {
			r.ArchivePath = path
		}
	}
}

// fetchErrorMarker renders a fetch failure into the extract field so a
// followed-and-failed result is distinguishable from an unfollowed one.
func fetchErrorMarker(err error) string {
	reason := strings.SplitN(err.Error(), "\n", 2)[0]
	return "ERROR_FETCH:" + reason
}

// dropBlocked removes results on a blocked domain and results the
// feedback log has ever disliked, by URL or by domain, preserving
// order. The surviving results keep their original ranks.
func dropBlocked(results []Result, prefs store.Preferences, counts store.FeedbackCounts) []Result {
	blocked := toSet(prefs.BlockedDomains)
	out := results[:0]
	for _, r := range results {
		if blocked[r.Domain] {
			continue
		}
		if counts.DislikesByURL[r.URL] > 0 || counts.DislikesByDomain[r.Domain] > 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// recordHistory logs the reranked results for one query, best effort.
func (s *Service) recordHistory(ctx context.Context, query string, results []Result) error {
	rows := make([]store.HistoryResult, len(results))
	for i, r := range results {
		rows[i] = store.HistoryResult{URL: r.URL, Domain: r.Domain}
	}
	return s.store.RecordHistory(ctx, query, rows)
}

// Feedback records a like or dislike for a URL. The domain is derived
// from the URL when the caller does not supply one.
func (s *Service) Feedback(ctx context.Context, rawURL, domain, title, label string) error {
	if domain == "" {
		domain = DomainOf(rawURL)
	}
	if domain == "" {
		return fmt.Errorf("deepsearch: feedback url %q has no host", rawURL)
	}
	return s.store.RecordFeedback(ctx, rawURL, domain, title, label)
}

// FeedbackStats summarises the feedback log.
func (s *Service) FeedbackStats(ctx context.Context) (Stats, error) {
	return s.store.FeedbackStats(ctx, 10)
}

// Prefs returns the current preferences.
func (s *Service) Prefs(ctx context.Context) (Preferences, error) {
	return s.store.LoadPreferences(ctx)
}

// UpdatePrefs applies a partial preferences update and returns the
// result.
func (s *Service) UpdatePrefs(ctx context.Context, patch PreferencesPatch) (Preferences, error) {
	return s.store.SavePreferences(ctx, patch)
}

// History returns recent queries, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	return s.store.RecentHistory(ctx, limit)
}

// StartMaintenance drops stale rate-limiter slots every interval until
// done closes, bounding memory on long runs across many domains.
func (s *Service) StartMaintenance(done <-chan struct{}, interval time.Duration) {
	tick := time.NewTicker(interval)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				s.waiter.Sweep(interval)
			}
		}
	}()
}

// StoreSchema is the database schema the service needs.
const StoreSchema = store.Schema
