package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a caller exceeds its write budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// DefaultWritesPerMinute bounds mutating console requests per client.
const DefaultWritesPerMinute = 60

// RateLimiter is a sliding-window limiter keyed by caller (typically the
// client address). Each key gets limit events per window.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	buckets map[string][]time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing limit events per window for
// each key. A non-positive limit uses DefaultWritesPerMinute over one
// minute.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultWritesPerMinute
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		window:  window,
		limit:   limit,
		buckets: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records one event for key, or returns ErrRateLimited when the key
// has used its budget for the current window.
func (rl *RateLimiter) Allow(key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	events := evict(rl.buckets[key], now.Add(-rl.window))
	if len(events) >= rl.limit {
		rl.buckets[key] = events
		return ErrRateLimited
	}
	rl.buckets[key] = append(events, now)
	return nil
}

// Sweep drops keys with no events inside the window.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	removed := 0
	for key, events := range rl.buckets {
		if len(evict(events, cutoff)) == 0 {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// evict drops events before cutoff. Events are chronologically ordered.
func evict(events []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(events) && events[i].Before(cutoff) {
		i++
	}
	return events[i:]
}
