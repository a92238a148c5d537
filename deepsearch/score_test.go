package deepsearch

import (
	"math"
	"testing"

	"github.com/hazyhaar/fouille/deepsearch/internal/store"
)

func defaultPrefs() store.Preferences {
	return store.Preferences{
		LikeWeight:    1.0,
		DislikeWeight: -1.0,
		DomainBoost:   0.6,
		KeywordBoost:  0.4,
	}
}

func emptyCounts() store.FeedbackCounts {
	return store.FeedbackCounts{
		LikesByDomain:    map[string]int{},
		DislikesByDomain: map[string]int{},
		LikesByURL:       map[string]int{},
		DislikesByURL:    map[string]int{},
	}
}

func wantScore(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("score = %v, want %v", got, want)
	}
}

func ranked(urls ...string) []Result {
	out := make([]Result, len(urls))
	for i, u := range urls {
		out[i] = Result{URL: u, Domain: DomainOf(u), Rank: i}
	}
	return out
}

// WHAT: with no preferences and no feedback, reranking keeps the
// upstream order and assigns the rank-derived base scores.
// WHY: personalization must be a no-op for a fresh profile.
func TestRerankNeutral(t *testing.T) {
	results := ranked("https://a.test/", "https://b.test/", "https://c.test/")
	Rerank(results, defaultPrefs(), emptyCounts())

	for i, r := range results {
		if r.Rank != i {
			t.Errorf("position %d has rank %d", i, r.Rank)
		}
	}
	wantScore(t, results[0].Score, 1.0)
	wantScore(t, results[1].Score, 0.5)
}

// WHAT: a preferred domain's boost lifts its result above an unboosted
// one ranked higher upstream: 1/2 + 0.6 = 1.1 beats 1/1 = 1.0.
// WHY: this overtake is the observable effect of the domain boost.
func TestRerankDomainBoostOvertakes(t *testing.T) {
	results := ranked("https://plain.test/", "https://loved.test/")

	prefs := defaultPrefs()
	prefs.PreferredDomains = []string{"loved.test"}
	Rerank(results, prefs, emptyCounts())

	if results[0].Domain != "loved.test" {
		t.Fatalf("order = %s, %s", results[0].Domain, results[1].Domain)
	}
	wantScore(t, results[0].Score, 1.1)
	wantScore(t, results[1].Score, 1.0)
}

// WHAT: a blocked domain loses the domain boost even with strict
// blocking off: 1/1 - 0.6 = 0.4.
// WHY: blocking is a soft penalty in scoring; only strict_block turns
// it into a filter.
func TestRerankBlockedDomainPenalty(t *testing.T) {
	results := ranked("https://bad.test/")

	prefs := defaultPrefs()
	prefs.BlockedDomains = []string{"bad.test"}
	Rerank(results, prefs, emptyCounts())

	wantScore(t, results[0].Score, 0.4)
}

// WHAT: domain set membership is exact: a subdomain of a preferred
// domain earns nothing.
// WHY: the sets hold domains as entered; blog.loved.test and
// loved.test are distinct entries.
func TestRerankDomainMatchIsExact(t *testing.T) {
	results := ranked("https://blog.loved.test/")

	prefs := defaultPrefs()
	prefs.PreferredDomains = []string{"loved.test"}
	Rerank(results, prefs, emptyCounts())

	wantScore(t, results[0].Score, 1.0)
}

// WHAT: feedback on an exact URL weighs 1.5x feedback on its domain.
// WHY: a rating on the page itself is a stronger signal.
func TestRerankURLFeedbackWeight(t *testing.T) {
	results := ranked("https://a.test/page")
	counts := emptyCounts()
	counts.LikesByDomain["a.test"] = 1
	counts.LikesByURL["https://a.test/page"] = 1

	Rerank(results, defaultPrefs(), counts)

	// 1.0 base + 1.0 domain like + 1.5 url like.
	wantScore(t, results[0].Score, 3.5)
}

// WHAT: dislikes subtract: the dislike weight is negative and URL
// dislikes scale by the same 1.5 factor.
// WHY: contradictory feedback combines additively, it does not cancel
// bookkeeping elsewhere.
func TestRerankDislikes(t *testing.T) {
	results := ranked("https://a.test/page")
	counts := emptyCounts()
	counts.DislikesByDomain["a.test"] = 2
	counts.DislikesByURL["https://a.test/page"] = 1

	Rerank(results, defaultPrefs(), counts)

	// 1.0 base - 2.0 domain dislikes - 1.5 url dislike.
	wantScore(t, results[0].Score, -2.5)
}

// WHAT: the keyword boost is binary: two preferred keywords matching
// still add it once, and an absent one adds nothing.
// WHY: keyword terms reward topical results, they do not accumulate
// per match.
func TestRerankKeywordBoostOnce(t *testing.T) {
	results := []Result{{
		URL:     "https://a.test/",
		Domain:  "a.test",
		Rank:    0,
		Title:   "Intro to Golang",
		Snippet: "concurrency patterns",
	}}
	prefs := defaultPrefs()
	prefs.PreferredKeywords = []string{"golang", "concurrency", "absent"}

	Rerank(results, prefs, emptyCounts())

	// 1.0 base + 0.4, once.
	wantScore(t, results[0].Score, 1.4)
}

// WHAT: a matching blocked keyword subtracts the boost once, and both
// keyword terms apply independently when each side matches.
// WHY: preferred and blocked keyword matches are separate conditions,
// not mutually exclusive.
func TestRerankBlockedKeyword(t *testing.T) {
	results := []Result{{
		URL:     "https://a.test/",
		Domain:  "a.test",
		Rank:    0,
		Title:   "Ten weird Golang tricks",
		Snippet: "you will not believe number seven",
	}}
	prefs := defaultPrefs()
	prefs.BlockedKeywords = []string{"weird", "believe"}

	Rerank(results, prefs, emptyCounts())
	// 1.0 base - 0.4, once.
	wantScore(t, results[0].Score, 0.6)

	// A preferred match on the same result cancels the penalty.
	prefs.PreferredKeywords = []string{"golang"}
	Rerank(results, prefs, emptyCounts())
	wantScore(t, results[0].Score, 1.0)
}

// WHAT: keywords match against title and snippet only; extract text
// does not count.
// WHY: the extract is fetched content, not provider metadata; a
// keyword buried in page text must not change the score.
func TestRerankKeywordIgnoresExtract(t *testing.T) {
	results := []Result{{
		URL:     "https://a.test/",
		Domain:  "a.test",
		Rank:    0,
		Title:   "Plain title",
		Snippet: "plain snippet",
		Extract: "hidden golang mention deep in the page body",
	}}
	prefs := defaultPrefs()
	prefs.PreferredKeywords = []string{"golang"}

	Rerank(results, prefs, emptyCounts())

	wantScore(t, results[0].Score, 1.0)
}

// WHAT: reranking is a permutation — every input result appears exactly
// once in the output, and ties keep their upstream order.
// WHY: scoring must never drop, duplicate, or arbitrarily shuffle
// results.
func TestRerankIsStablePermutation(t *testing.T) {
	results := ranked(
		"https://a.test/1", "https://b.test/2", "https://c.test/3",
		"https://d.test/4", "https://e.test/5",
	)
	// Give two results identical scores via identical feedback.
	counts := emptyCounts()
	counts.LikesByDomain["b.test"] = 1
	counts.LikesByURL["https://c.test/3"] = 1 // 1/3 + 1.5 vs 1/2 + 1.0

	before := map[string]bool{}
	for _, r := range results {
		before[r.URL] = true
	}

	Rerank(results, defaultPrefs(), counts)

	if len(results) != 5 {
		t.Fatalf("length changed: %d", len(results))
	}
	for _, r := range results {
		if !before[r.URL] {
			t.Fatalf("unknown url %q after rerank", r.URL)
		}
		delete(before, r.URL)
	}
	if len(before) != 0 {
		t.Fatalf("missing urls after rerank: %v", before)
	}
}
