package main

import (
	"sync"
	"time"
)

// RateLimiter tracks request timestamps per identifier within a rolling window.
// Check and Record are split so callers decide the protocol: the HTTP layer
// checks first and records only allowed requests.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	requests    map[string][]time.Time
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
	}
}

// Check discards expired timestamps for the identifier, then reports whether
// another request fits and how many remain. It never records the request.
func (rl *RateLimiter) Check(identifier string) (allowed bool, remaining int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	count := len(rl.pruneLocked(identifier))
	remaining = rl.maxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return count < rl.maxRequests, remaining
}

// Record notes a request for the identifier at the current time.
func (rl *RateLimiter) Record(identifier string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.requests[identifier] = append(rl.requests[identifier], time.Now())
}

// pruneLocked keeps only timestamps inside the window. Identifiers left with
// no live timestamps are dropped from the map entirely.
func (rl *RateLimiter) pruneLocked(identifier string) []time.Time {
	cutoff := time.Now().Add(-rl.window)
	stamps := rl.requests[identifier]

	live := stamps[:0]
	for _, t := range stamps {
		if t.After(cutoff) {
			live = append(live, t)
		}
	}

	if len(live) == 0 {
		delete(rl.requests, identifier)
		return nil
	}
	rl.requests[identifier] = live
	return live
}

// Prune sweeps every tracked identifier, evicting the ones whose requests
// have all aged out of the window.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for identifier := range rl.requests {
		rl.pruneLocked(identifier)
	}
}

type RateLimiterStats struct {
	Identifiers int `json:"identifiers"`
}

func (rl *RateLimiter) Stats() RateLimiterStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return RateLimiterStats{Identifiers: len(rl.requests)}
}
