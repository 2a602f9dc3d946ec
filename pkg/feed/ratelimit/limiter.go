// Package ratelimit implements a per-source sliding-window admission check.
package ratelimit

import (
	"sync"
	"time"
)

// Window is the trailing interval admissions are counted against.
const Window = time.Minute

// Limiter tracks recent admission timestamps per source. Allow is a pure
// boolean decision: the limiter never blocks or waits, callers decide what
// a denial means.
type Limiter struct {
	mu         sync.Mutex
	admissions map[string][]time.Time
	now        func() time.Time
}

// New creates a limiter. clock may be nil, in which case time.Now is used.
func New(clock func() time.Time) *Limiter {
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{
		admissions: make(map[string][]time.Time),
		now:        clock,
	}
}

// Allow reports whether another request for source fits inside its
// per-minute budget. A non-positive budget means unlimited. Entries older
// than the window are purged lazily on each check.
func (l *Limiter) Allow(source string, perMinute int) bool {
	if perMinute <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.purgeLocked(source)
	return len(recent) < perMinute
}

// Record notes one admission for source at the current time.
func (l *Limiter) Record(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.admissions[source] = append(l.purgeLocked(source), l.now())
}

// Recent returns how many admissions for source remain inside the window.
func (l *Limiter) Recent(source string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.purgeLocked(source))
}

// purgeLocked drops timestamps older than the window and returns the
// surviving slice. Callers must hold l.mu.
func (l *Limiter) purgeLocked(source string) []time.Time {
	cutoff := l.now().Add(-Window)
	recent := l.admissions[source][:0]
	for _, ts := range l.admissions[source] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	l.admissions[source] = recent
	return recent
}
