// Package polite spaces out requests to the same host. Each host gets
// a rolling slot schedule: a caller claims the next free slot under
// one lock, then sleeps until its slot arrives. Claimed slots for a
// host are therefore always at least the configured interval apart,
// no matter how many goroutines contend.
package polite

import (
	"context"
	"sync"
	"time"
)

// Waiter enforces a minimum interval between requests per host.
// Safe for concurrent use.
type Waiter struct {
	mu    sync.Mutex
	slots map[string]time.Time // last claimed slot per host

	// now is the clock, replaceable in tests.
	now func() time.Time
	// sleep waits until the deadline or ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWaiter creates a Waiter.
func NewWaiter() *Waiter {
	return &Waiter{
		slots: make(map[string]time.Time),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Wait blocks until the caller may contact host, spacing requests to
// the same host at least interval apart. A zero or negative interval
// waits for nothing. Returns ctx.Err() if the context is cancelled
// while waiting; the claimed slot stays claimed either way so later
// callers keep their spacing.
func (w *Waiter) Wait(ctx context.Context, host string, interval time.Duration) error {
	if interval <= 0 || host == "" {
		return ctx.Err()
	}

	w.mu.Lock()
	now := w.now()
	slot := now
	if last, ok := w.slots[host]; ok {
		if next := last.Add(interval); next.After(slot) {
			slot = next
		}
	}
	w.slots[host] = slot
	w.mu.Unlock()

	if d := slot.Sub(now); d > 0 {
		return w.sleep(ctx, d)
	}
	return ctx.Err()
}

// Size reports how many hosts currently hold a claimed slot.
func (w *Waiter) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.slots)
}

// Sweep drops slot records older than age, bounding memory on long
// runs across many hosts.
func (w *Waiter) Sweep(age time.Duration) {
	cutoff := w.now().Add(-age)
	w.mu.Lock()
	defer w.mu.Unlock()
	for host, slot := range w.slots {
		if slot.Before(cutoff) {
			delete(w.slots, host)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
