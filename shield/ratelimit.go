package shield

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limit is a fixed-window request budget.
type Limit struct {
	MaxRequests   int
	WindowSeconds int
}

// Limits maps path prefixes to their budgets. The longest matching
// prefix wins; paths with no match are unlimited.
type Limits map[string]Limit

// DefaultLimits budgets the expensive search endpoint tighter than the
// bookkeeping endpoints.
func DefaultLimits() Limits {
	return Limits{
		"/deep_search": {MaxRequests: 30, WindowSeconds: 60},
		"/api/":        {MaxRequests: 120, WindowSeconds: 60},
	}
}

type bucket struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// RateLimiter enforces per-IP fixed-window limits from a static table.
type RateLimiter struct {
	limits  Limits
	exclude []string
	buckets sync.Map
	now     func() time.Time
}

// NewRateLimiter creates a limiter. excludePrefixes bypass limiting
// entirely.
func NewRateLimiter(limits Limits, excludePrefixes ...string) *RateLimiter {
	return &RateLimiter{
		limits:  limits,
		exclude: excludePrefixes,
		now:     time.Now,
	}
}

// StartGC reclaims expired buckets every interval until done closes.
func (rl *RateLimiter) StartGC(done <-chan struct{}, interval time.Duration) {
	tick := time.NewTicker(interval)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				now := rl.now()
				rl.buckets.Range(func(key, value any) bool {
					b := value.(*bucket)
					b.mu.Lock()
					expired := now.After(b.resetAt)
					b.mu.Unlock()
					if expired {
						rl.buckets.Delete(key)
					}
					return true
				})
			}
		}
	}()
}

func (rl *RateLimiter) match(path string) (Limit, bool) {
	var best string
	var lim Limit
	for prefix, l := range rl.limits {
		if strings.HasPrefix(path, prefix) && len(prefix) > len(best) {
			best, lim = prefix, l
		}
	}
	return lim, best != ""
}

func (rl *RateLimiter) allow(ip, path string) bool {
	lim, ok := rl.match(path)
	if !ok {
		return true
	}

	key := ip + ":" + path
	now := rl.now()
	window := time.Duration(lim.WindowSeconds) * time.Second

	val, loaded := rl.buckets.LoadOrStore(key, &bucket{count: 1, resetAt: now.Add(window)})
	if !loaded {
		return true
	}

	b := val.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.After(b.resetAt) {
		b.count = 1
		b.resetAt = now.Add(window)
		return true
	}
	b.count++
	return b.count <= lim.MaxRequests
}

// Middleware enforces the limits, answering 429 JSON when exceeded.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range rl.exclude {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		ip := ExtractIP(r)
		if rl.allow(ip, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		GetLogger(r.Context()).Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
		w.Header().Set("Retry-After", "60")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	})
}

// ExtractIP returns the client IP from X-Forwarded-For or RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
