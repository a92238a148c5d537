package provider

import (
	"sync"
	"time"
)

// breaker trips after consecutive upstream failures and backs the
// provider off for a cooldown before letting a probe through.
type breaker struct {
	mu          sync.Mutex
	open        bool
	halfOpen    bool
	failures    int
	threshold   int
	cooldown    time.Duration
	lastFailure time.Time
	now         func() time.Time
}

func newBreaker() *breaker {
	return &breaker{
		threshold: 5,
		cooldown:  30 * time.Second,
		now:       time.Now,
	}
}

// allow reports whether a call may proceed. After the cooldown one
// probe call is let through in half-open state.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if b.now().Sub(b.lastFailure) >= b.cooldown {
		b.open = false
		b.halfOpen = true
		return true
	}
	return false
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
	b.halfOpen = false
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailure = b.now()
	if b.halfOpen {
		// Failed probe: straight back to open.
		b.halfOpen = false
		b.open = true
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.open = true
	}
}
