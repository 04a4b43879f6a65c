package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter keeps attempt timestamps in process memory, one mutex-guarded
// window per card. Stale entries are pruned lazily on read.
type MemoryCounter struct {
	windows sync.Map // cardNumber -> *window
}

type window struct {
	mu       sync.Mutex
	attempts []time.Time
}

// NewMemoryCounter creates an empty in-memory counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{}
}

func (c *MemoryCounter) window(cardNumber string) *window {
	v, _ := c.windows.LoadOrStore(cardNumber, &window{})
	return v.(*window)
}

// RecordAttempt records one attempt for the card at the given time.
func (c *MemoryCounter) RecordAttempt(ctx context.Context, cardNumber string, at time.Time) error {
	w := c.window(cardNumber)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts = append(w.attempts, at)
	return nil
}

// RecentAttemptCount counts attempts in (asOf-window, asOf]. Entries at or
// before the lower bound are pruned while the lock is held.
func (c *MemoryCounter) RecentAttemptCount(ctx context.Context, cardNumber string, asOf time.Time, dur time.Duration) (int, error) {
	v, ok := c.windows.Load(cardNumber)
	if !ok {
		return 0, nil
	}
	w := v.(*window)

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := asOf.Add(-dur)
	kept := w.attempts[:0]
	count := 0
	for _, at := range w.attempts {
		if !at.After(cutoff) {
			continue // stale, dropped
		}
		kept = append(kept, at)
		if !at.After(asOf) {
			count++
		}
	}
	w.attempts = kept
	return count, nil
}
