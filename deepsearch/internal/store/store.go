// Package store persists the personalization state: a single
// preferences row, the feedback log, and the query history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Schema creates the tables. Preferences live in a single row with
// id=1; domain and keyword lists are stored as comma-separated values.
const Schema = `
CREATE TABLE IF NOT EXISTS prefs (
	id                 INTEGER PRIMARY KEY CHECK (id = 1),
	preferred_domains  TEXT NOT NULL DEFAULT '',
	blocked_domains    TEXT NOT NULL DEFAULT '',
	preferred_keywords TEXT NOT NULL DEFAULT '',
	blocked_keywords   TEXT NOT NULL DEFAULT '',
	like_weight        REAL NOT NULL DEFAULT 1.0,
	dislike_weight     REAL NOT NULL DEFAULT -1.0,
	domain_boost       REAL NOT NULL DEFAULT 0.6,
	keyword_boost      REAL NOT NULL DEFAULT 0.4,
	strict_block       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS feedback (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	url        TEXT NOT NULL,
	domain     TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	label      TEXT NOT NULL CHECK (label IN ('like', 'dislike')),
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_domain ON feedback(domain);
CREATE INDEX IF NOT EXISTS idx_feedback_url ON feedback(url);

CREATE TABLE IF NOT EXISTS history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	query      TEXT NOT NULL,
	url        TEXT NOT NULL,
	domain     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Preferences is the user's ranking profile.
type Preferences struct {
	PreferredDomains  []string `json:"preferred_domains"`
	BlockedDomains    []string `json:"blocked_domains"`
	PreferredKeywords []string `json:"preferred_keywords"`
	BlockedKeywords   []string `json:"blocked_keywords"`
	LikeWeight        float64  `json:"like_weight"`
	DislikeWeight     float64  `json:"dislike_weight"`
	DomainBoost       float64  `json:"domain_boost"`
	KeywordBoost      float64  `json:"keyword_boost"`
	StrictBlock       bool     `json:"strict_block"`
}

// PreferencesPatch updates a subset of the preferences. Nil fields are
// left untouched.
type PreferencesPatch struct {
	PreferredDomains  *[]string `json:"preferred_domains"`
	BlockedDomains    *[]string `json:"blocked_domains"`
	PreferredKeywords *[]string `json:"preferred_keywords"`
	BlockedKeywords   *[]string `json:"blocked_keywords"`
	LikeWeight        *float64  `json:"like_weight"`
	DislikeWeight     *float64  `json:"dislike_weight"`
	DomainBoost       *float64  `json:"domain_boost"`
	KeywordBoost      *float64  `json:"keyword_boost"`
	StrictBlock       *bool     `json:"strict_block"`
}

// FeedbackCounts aggregates the feedback log for scoring.
type FeedbackCounts struct {
	LikesByDomain    map[string]int
	DislikesByDomain map[string]int
	LikesByURL       map[string]int
	DislikesByURL    map[string]int
}

// DomainStat is one domain's like/dislike tally.
type DomainStat struct {
	Domain   string `json:"domain"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
}

// Stats summarises the feedback log.
type Stats struct {
	TotalLikes    int          `json:"total_likes"`
	TotalDislikes int          `json:"total_dislikes"`
	TopDomains    []DomainStat `json:"top_domains"`
}

// Store wraps the database handle.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a Store. The schema must already be applied.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// LoadPreferences returns the preferences row, creating the defaults
// row on first use.
func (s *Store) LoadPreferences(ctx context.Context) (Preferences, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO prefs (id) VALUES (1)`); err != nil {
		return Preferences{}, fmt.Errorf("store: init prefs: %w", err)
	}

	var p Preferences
	var prefDoms, blockDoms, prefKeys, blockKeys string
	var strict int
	err := s.db.QueryRowContext(ctx, `
		SELECT preferred_domains, blocked_domains, preferred_keywords, blocked_keywords,
		       like_weight, dislike_weight, domain_boost, keyword_boost, strict_block
		FROM prefs WHERE id = 1`,
	).Scan(&prefDoms, &blockDoms, &prefKeys, &blockKeys,
		&p.LikeWeight, &p.DislikeWeight, &p.DomainBoost, &p.KeywordBoost, &strict)
	if err != nil {
		return Preferences{}, fmt.Errorf("store: load prefs: %w", err)
	}
	p.PreferredDomains = SplitList(prefDoms)
	p.BlockedDomains = SplitList(blockDoms)
	p.PreferredKeywords = SplitList(prefKeys)
	p.BlockedKeywords = SplitList(blockKeys)
	p.StrictBlock = strict != 0
	return p, nil
}

// SavePreferences applies a partial update and returns the resulting
// preferences.
func (s *Store) SavePreferences(ctx context.Context, patch PreferencesPatch) (Preferences, error) {
	current, err := s.LoadPreferences(ctx)
	if err != nil {
		return Preferences{}, err
	}

	if patch.PreferredDomains != nil {
		current.PreferredDomains = NormalizeList(*patch.PreferredDomains)
	}
	if patch.BlockedDomains != nil {
		current.BlockedDomains = NormalizeList(*patch.BlockedDomains)
	}
	if patch.PreferredKeywords != nil {
		current.PreferredKeywords = NormalizeList(*patch.PreferredKeywords)
	}
	if patch.BlockedKeywords != nil {
		current.BlockedKeywords = NormalizeList(*patch.BlockedKeywords)
	}
	if patch.LikeWeight != nil {
		current.LikeWeight = *patch.LikeWeight
	}
	if patch.DislikeWeight != nil {
		current.DislikeWeight = *patch.DislikeWeight
	}
	if patch.DomainBoost != nil {
		current.DomainBoost = *patch.DomainBoost
	}
	if patch.KeywordBoost != nil {
		current.KeywordBoost = *patch.KeywordBoost
	}
	if patch.StrictBlock != nil {
		current.StrictBlock = *patch.StrictBlock
	}

	strict := 0
	if current.StrictBlock {
		strict = 1
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE prefs SET
			preferred_domains = ?, blocked_domains = ?, preferred_keywords = ?,
			blocked_keywords = ?, like_weight = ?, dislike_weight = ?,
			domain_boost = ?, keyword_boost = ?, strict_block = ?
		WHERE id = 1`,
		JoinList(current.PreferredDomains), JoinList(current.BlockedDomains),
		JoinList(current.PreferredKeywords), JoinList(current.BlockedKeywords),
		current.LikeWeight, current.DislikeWeight,
		current.DomainBoost, current.KeywordBoost, strict)
	if err != nil {
		return Preferences{}, fmt.Errorf("store: save prefs: %w", err)
	}
	return current, nil
}

// RecordFeedback appends one like or dislike for a URL. The title is
// optional context kept for later review of the log.
func (s *Store) RecordFeedback(ctx context.Context, url, domain, title, label string) error {
	if label != "like" && label != "dislike" {
		return fmt.Errorf("store: invalid label %q", label)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (url, domain, title, label, created_at) VALUES (?, ?, ?, ?, ?)`,
		url, strings.ToLower(domain), title, label, s.now().Unix())
	if err != nil {
		return fmt.Errorf("store: record feedback: %w", err)
	}
	return nil
}

// LoadFeedbackCounts aggregates the whole feedback log into per-domain
// and per-URL tallies.
func (s *Store) LoadFeedbackCounts(ctx context.Context) (FeedbackCounts, error) {
	fc := FeedbackCounts{
		LikesByDomain:    make(map[string]int),
		DislikesByDomain: make(map[string]int),
		LikesByURL:       make(map[string]int),
		DislikesByURL:    make(map[string]int),
	}
	rows, err := s.db.QueryContext(ctx, `SELECT url, domain, label FROM feedback`)
	if err != nil {
		return fc, fmt.Errorf("store: load feedback: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url, domain, label string
		if err := rows.Scan(&url, &domain, &label); err != nil {
			return fc, fmt.Errorf("store: scan feedback: %w", err)
		}
		if label == "like" {
			fc.LikesByDomain[domain]++
			fc.LikesByURL[url]++
		} else {
			fc.DislikesByDomain[domain]++
			fc.DislikesByURL[url]++
		}
	}
	return fc, rows.Err()
}

// FeedbackStats returns totals and the most-rated domains, up to limit.
func (s *Store) FeedbackStats(ctx context.Context, limit int) (Stats, error) {
	if limit <= 0 {
		limit = 10
	}
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN label = 'like' THEN 1 END),
			COUNT(CASE WHEN label = 'dislike' THEN 1 END)
		FROM feedback`).Scan(&st.TotalLikes, &st.TotalDislikes)
	if err != nil {
		return st, fmt.Errorf("store: feedback totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT domain,
			COUNT(CASE WHEN label = 'like' THEN 1 END) AS likes,
			COUNT(CASE WHEN label = 'dislike' THEN 1 END) AS dislikes
		FROM feedback
		GROUP BY domain
		ORDER BY COUNT(*) DESC, domain ASC
		LIMIT ?`, limit)
	if err != nil {
		return st, fmt.Errorf("store: top domains: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d DomainStat
		if err := rows.Scan(&d.Domain, &d.Likes, &d.Dislikes); err != nil {
			return st, fmt.Errorf("store: scan domain stat: %w", err)
		}
		st.TopDomains = append(st.TopDomains, d)
	}
	return st, rows.Err()
}

// HistoryResult identifies one reranked result worth remembering.
type HistoryResult struct {
	URL    string
	Domain string
}

// RecordHistory appends one row per top result of a query.
func (s *Store) RecordHistory(ctx context.Context, query string, results []HistoryResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: record history: %w", err)
	}
	defer tx.Rollback()

	ts := s.now().Unix()
	for _, r := range results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO history (query, url, domain, created_at) VALUES (?, ?, ?, ?)`,
			query, r.URL, r.Domain, ts); err != nil {
			return fmt.Errorf("store: record history: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: record history: %w", err)
	}
	return nil
}

// HistoryEntry is one result shown for a past query.
type HistoryEntry struct {
	Query     string    `json:"query"`
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}

// RecentHistory returns the latest history entries, newest first.
func (s *Store) RecentHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, url, domain, created_at
		FROM history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var ts int64
		if err := rows.Scan(&e.Query, &e.URL, &e.Domain, &ts); err != nil {
			return nil, fmt.Errorf("store: scan history: %w", err)
		}
		e.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// SplitList parses a stored CSV list into normalized entries.
func SplitList(csv string) []string {
	if csv == "" {
		return nil
	}
	return NormalizeList(strings.Split(csv, ","))
}

// JoinList renders a list back into its stored CSV form.
func JoinList(items []string) string {
	return strings.Join(NormalizeList(items), ",")
}

// NormalizeList lowercases, trims, and dedupes entries, keeping first
// occurrence order.
func NormalizeList(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(it))
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
