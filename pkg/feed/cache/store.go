// Package cache holds the latest price record plus a bounded history of
// past records.
package cache

import (
	"sync"
	"time"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
)

// HistoryLimit bounds the retained history; oldest entries are evicted
// first once the bound is exceeded.
const HistoryLimit = 100

// Entry pairs the cached record with the time it was cached. Staleness is
// derived from CachedAt, never from the record's own timestamp.
type Entry struct {
	Record   sources.PriceRecord
	CachedAt time.Time
}

// Store is the cache and history store. Set replaces the whole entry
// atomically with respect to readers; readers never observe a partial
// update.
type Store struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entry   *Entry
	history []sources.PriceRecord
	now     func() time.Time
}

// New creates a store with the given staleness TTL. clock may be nil, in
// which case time.Now is used.
func New(ttl time.Duration, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		ttl: ttl,
		now: clock,
	}
}

// Set replaces the cached entry wholesale and appends the record to the
// history buffer, enforcing the bound synchronously.
func (s *Store) Set(rec sources.PriceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entry = &Entry{Record: rec, CachedAt: s.now()}
	s.history = append(s.history, rec)
	if len(s.history) > HistoryLimit {
		s.history = append(s.history[:0], s.history[len(s.history)-HistoryLimit:]...)
	}
}

// Seed installs a warm-start entry with an explicit cache time without
// touching the history. A record persisted long before restart is then
// stale by construction.
func (s *Store) Seed(rec sources.PriceRecord, cachedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = &Entry{Record: rec, CachedAt: cachedAt}
}

// Latest returns the cached record, if any.
func (s *Store) Latest() (sources.PriceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return sources.PriceRecord{}, false
	}
	return s.entry.Record, true
}

// Entry returns a copy of the full cache entry, if any.
func (s *Store) Entry() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return Entry{}, false
	}
	return *s.entry, true
}

// IsStale reports whether the cached record has outlived the TTL. An empty
// cache is stale.
func (s *Store) IsStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return true
	}
	return s.now().Sub(s.entry.CachedAt) >= s.ttl
}

// History returns a copy of the retained records, oldest first.
func (s *Store) History() []sources.PriceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sources.PriceRecord, len(s.history))
	copy(out, s.history)
	return out
}

// HistoryLen returns the number of retained records.
func (s *Store) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}
