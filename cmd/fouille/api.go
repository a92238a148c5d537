package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/fouille/deepsearch"
)

func registerRoutes(r chi.Router, svc *deepsearch.Service) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"}, false)
	})

	r.Get("/deep_search", func(w http.ResponseWriter, r *http.Request) {
		params := deepsearch.NewParams(r.URL.Query().Get("q"))
		params.MaxResults = queryInt(r, "max_results", params.MaxResults)
		params.Follow = queryBool(r, "follow", false)
		params.MaxPerDomain = queryInt(r, "max_per_domain", params.MaxPerDomain)
		params.DelayPerDomain = queryFloat(r, "delay_per_domain", params.DelayPerDomain)
		params.Personalize = queryBool(r, "personalize", true)
		pretty := queryBool(r, "pretty", false)

		resp, err := svc.DeepSearch(r.Context(), params)
		if err != nil {
			switch {
			case errors.Is(err, deepsearch.ErrQueryTooShort):
				writeError(w, 400, err)
			case errors.Is(err, deepsearch.ErrUpstream):
				writeError(w, 502, err)
			default:
				writeError(w, 500, err)
			}
			return
		}
		writeJSON(w, 200, resp, pretty)
	})

	r.Post("/api/feedback", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL    string `json:"url"`
			Domain string `json:"domain"`
			Title  string `json:"title"`
			Label  string `json:"label"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		if err := svc.Feedback(r.Context(), req.URL, req.Domain, req.Title, req.Label); err != nil {
			writeError(w, 400, err)
			return
		}
		writeJSON(w, 201, map[string]string{"status": "recorded"}, false)
	})

	r.Get("/api/feedback/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.FeedbackStats(r.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, stats, false)
	})

	r.Get("/api/prefs", func(w http.ResponseWriter, r *http.Request) {
		prefs, err := svc.Prefs(r.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, prefs, false)
	})

	r.Put("/api/prefs", func(w http.ResponseWriter, r *http.Request) {
		var patch deepsearch.PreferencesPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, 400, err)
			return
		}
		prefs, err := svc.UpdatePrefs(r.Context(), patch)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, prefs, false)
	})

	r.Get("/api/history", func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.History(r.Context(), queryInt(r, "limit", 20))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		if entries == nil {
			entries = []deepsearch.HistoryEntry{}
		}
		writeJSON(w, 200, entries, false)
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()}, false)
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func queryBool(r *http.Request, key string, def bool) bool {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}
