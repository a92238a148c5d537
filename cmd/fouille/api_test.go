package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/fouille/dbopen"
	"github.com/hazyhaar/fouille/deepsearch"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(deepsearch.StoreSchema))
	svc := deepsearch.New(db, deepsearch.Config{}, nil)
	r := chi.NewRouter()
	registerRoutes(r, svc)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var payload map[string]any
	json.Unmarshal(rec.Body.Bytes(), &payload)
	return rec, payload
}

// WHAT: the health endpoint answers ok.
// WHY: deploys and monitors probe it.
func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	rec, payload := doJSON(t, h, http.MethodGet, "/health", "")
	if rec.Code != 200 || payload["status"] != "ok" {
		t.Errorf("health = %d %v", rec.Code, payload)
	}
}

// WHAT: a too-short query is a 400 with an error body.
// WHY: request validation failures must not read as server faults.
func TestDeepSearchBadQuery(t *testing.T) {
	h := newTestRouter(t)
	rec, payload := doJSON(t, h, http.MethodGet, "/deep_search?q=x", "")
	if rec.Code != 400 {
		t.Errorf("code = %d, want 400", rec.Code)
	}
	if msg, _ := payload["error"].(string); msg == "" {
		t.Error("missing error body")
	}
}

// WHAT: feedback round-trips: a valid POST is recorded and shows in
// the stats; a bad label is a 400.
// WHY: this is the feedback surface the client uses.
func TestFeedbackEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec, _ := doJSON(t, h, http.MethodPost, "/api/feedback",
		`{"url":"https://blog.test/post","title":"A post","label":"like"}`)
	if rec.Code != 201 {
		t.Fatalf("post feedback = %d, body %s", rec.Code, rec.Body)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/feedback",
		`{"url":"https://blog.test/post","label":"meh"}`)
	if rec.Code != 400 {
		t.Errorf("bad label = %d, want 400", rec.Code)
	}

	rec, payload := doJSON(t, h, http.MethodGet, "/api/feedback/stats", "")
	if rec.Code != 200 {
		t.Fatalf("stats = %d", rec.Code)
	}
	if payload["total_likes"].(float64) != 1 {
		t.Errorf("stats = %v", payload)
	}
}

// WHAT: preferences GET returns defaults, PUT applies a partial patch.
// WHY: the prefs surface drives every future ranking.
func TestPrefsEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec, payload := doJSON(t, h, http.MethodGet, "/api/prefs", "")
	if rec.Code != 200 || payload["like_weight"].(float64) != 1.0 {
		t.Fatalf("get prefs = %d %v", rec.Code, payload)
	}

	rec, payload = doJSON(t, h, http.MethodPut, "/api/prefs",
		`{"preferred_domains":["Example.COM"],"strict_block":true}`)
	if rec.Code != 200 {
		t.Fatalf("put prefs = %d, body %s", rec.Code, rec.Body)
	}
	preferred := payload["preferred_domains"].([]any)
	if len(preferred) != 1 || preferred[0] != "example.com" {
		t.Errorf("preferred = %v", preferred)
	}
	if payload["strict_block"] != true {
		t.Errorf("strict_block = %v", payload["strict_block"])
	}
	if payload["like_weight"].(float64) != 1.0 {
		t.Errorf("untouched weight changed: %v", payload["like_weight"])
	}
}

// WHAT: history starts out as an empty JSON array, not null.
// WHY: clients iterate the response without a null check.
func TestHistoryEmpty(t *testing.T) {
	h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("history = %d %q", rec.Code, rec.Body.String())
	}
}
