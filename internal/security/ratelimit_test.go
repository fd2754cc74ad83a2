package security

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(5, time.Minute)

	for i := range 5 {
		if err := rl.Allow("10.0.0.1"); err != nil {
			t.Fatalf("Allow(%d) returned error: %v", i, err)
		}
	}
	if err := rl.Allow("10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := rl.Allow("10.0.0.2"); err != nil {
		t.Fatalf("other key should have its own budget: %v", err)
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	_ = rl.Allow("client")
	_ = rl.Allow("client")
	if err := rl.Allow("client"); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected rate limit")
	}

	now = now.Add(61 * time.Second)
	if err := rl.Allow("client"); err != nil {
		t.Fatalf("expected allow after window, got %v", err)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0, 0)
	if rl.limit != DefaultWritesPerMinute || rl.window != time.Minute {
		t.Errorf("limit = %d window = %v, want defaults", rl.limit, rl.window)
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, time.Minute)
	rl.now = func() time.Time { return now }

	_ = rl.Allow("old")
	now = now.Add(30 * time.Second)
	_ = rl.Allow("fresh")
	now = now.Add(45 * time.Second)

	if removed := rl.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d keys, want 1", removed)
	}
	if _, ok := rl.buckets["fresh"]; !ok {
		t.Error("fresh key should survive the sweep")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1000, time.Minute)
	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			for range 10 {
				_ = rl.Allow("shared")
			}
		})
	}
	wg.Wait()

	if got := len(rl.buckets["shared"]); got != 500 {
		t.Errorf("recorded %d events, want 500", got)
	}
}
