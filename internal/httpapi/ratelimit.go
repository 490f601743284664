package httpapi

import (
	"sync"
	"time"
)

const sweepEvery = 1024

// RateLimiter admits at most limit requests per key within a sliding window.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	calls  int
	now    func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records an attempt for key. It reports whether the attempt is
// admitted, how many attempts remain, and when the oldest counted attempt
// leaves the window.
func (l *RateLimiter) Allow(key string) (bool, int, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(cutoff)
	}

	recent := prune(l.hits[key], cutoff)
	if len(recent) >= l.limit {
		l.hits[key] = recent
		return false, 0, recent[0].Sub(cutoff)
	}

	recent = append(recent, now)
	l.hits[key] = recent
	return true, l.limit - len(recent), 0
}

func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

func (l *RateLimiter) sweep(cutoff time.Time) {
	for key, ts := range l.hits {
		if len(prune(ts, cutoff)) == 0 {
			delete(l.hits, key)
		}
	}
}
