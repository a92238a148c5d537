package deepsearch

import (
	"sort"
	"strings"

	"github.com/hazyhaar/fouille/deepsearch/internal/store"
)

// urlWeightFactor scales per-URL feedback above per-domain feedback: a
// rating on the exact URL is a stronger signal than one on its domain.
const urlWeightFactor = 1.5

// BaseScore is the rank-derived component every result starts from.
func BaseScore(rank int) float64 {
	return 1.0 / float64(rank+1)
}

// Rerank scores every result against the preferences and feedback
// tallies, then stable-sorts by score descending. The slice is
// reordered in place; no result is added or removed.
//
// Preferred and blocked domain boosts apply independently, so a domain
// somehow listed in both earns both terms. Keyword boosts are binary:
// any preferred keyword matching once adds the boost once, likewise
// for blocked keywords, matched against title and snippet only.
func Rerank(results []Result, prefs store.Preferences, counts store.FeedbackCounts) {
	preferred := toSet(prefs.PreferredDomains)
	blocked := toSet(prefs.BlockedDomains)

	for i := range results {
		r := &results[i]
		s := BaseScore(r.Rank)

		s += float64(counts.LikesByDomain[r.Domain]) * prefs.LikeWeight
		s += float64(counts.DislikesByDomain[r.Domain]) * prefs.DislikeWeight
		s += float64(counts.LikesByURL[r.URL]) * prefs.LikeWeight * urlWeightFactor
		s += float64(counts.DislikesByURL[r.URL]) * prefs.DislikeWeight * urlWeightFactor

		if preferred[r.Domain] {
			s += prefs.DomainBoost
		}
		if blocked[r.Domain] {
			s -= prefs.DomainBoost
		}

		text := strings.ToLower(r.Title + " " + r.Snippet)
		if containsAny(text, prefs.PreferredKeywords) {
			s += prefs.KeywordBoost
		}
		if containsAny(text, prefs.BlockedKeywords) {
			s -= prefs.KeywordBoost
		}
		r.Score = s
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
