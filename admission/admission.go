// Package admission gates writes before any business validation runs: a
// per-identity, per-period submission counter plus closed-range input checks.
package admission

import (
	"sync"
	"time"
)

// Limiter counts admissions per (identity, period bucket). It is injected
// into the consultations service rather than kept as ambient global state so
// it can be tested on its own.
type Limiter struct {
	mu     sync.Mutex
	period time.Duration
	max    int
	bucket int64
	counts map[string]int
}

func NewLimiter(period time.Duration, max int) *Limiter {
	return &Limiter{
		period: period,
		max:    max,
		counts: map[string]int{},
	}
}

// Allow consumes one admission for the identity in the period containing
// now. It returns false once the identity has exhausted its quota.
func (l *Limiter) Allow(identity string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := now.UnixNano() / int64(l.period)
	if bucket != l.bucket {
		// a new period starts with fresh counters
		l.bucket = bucket
		l.counts = map[string]int{}
	}

	if l.counts[identity] >= l.max {
		return false
	}
	l.counts[identity]++
	return true
}
