// Package bus fans successful price records out to registered subscribers.
package bus

import (
	"sync"

	"github.com/google/uuid"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
	"github.com/OHMS-DeAI/ratefeed/pkg/logging"
	"github.com/OHMS-DeAI/ratefeed/pkg/metrics"
)

// Callback receives every record published on the bus. Callbacks run
// synchronously on the publisher's goroutine; a panicking callback is
// isolated and does not prevent delivery to the rest.
type Callback func(sources.PriceRecord)

// Bus is an observer registry keyed by generated subscription IDs.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]Callback
	order  []string // delivery order, oldest subscription first
	latest func() (sources.PriceRecord, bool)
	logger *logging.Logger
}

// New creates a bus. latest supplies the current cached record so late
// subscribers can be replayed immediately; it may be nil. logger may be
// nil.
func New(latest func() (sources.PriceRecord, bool), logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Bus{
		subs:   make(map[string]Callback),
		latest: latest,
		logger: logger,
	}
}

// Subscribe registers a callback and returns its subscription ID. If a
// cached record exists it is replayed to the new subscriber right away, so
// late subscribers do not wait for the next refresh cycle.
func (b *Bus) Subscribe(cb Callback) string {
	id := uuid.NewString()

	b.mu.Lock()
	b.subs[id] = cb
	b.order = append(b.order, id)
	n := len(b.subs)
	b.mu.Unlock()

	metrics.RecordSubscribers(n)

	if b.latest != nil {
		if rec, ok := b.latest(); ok {
			b.deliver(id, cb, rec)
		}
	}
	return id
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if _, ok := b.subs[id]; ok {
		delete(b.subs, id)
		kept := b.order[:0]
		for _, existing := range b.order {
			if existing != id {
				kept = append(kept, existing)
			}
		}
		b.order = kept
	}
	n := len(b.subs)
	b.mu.Unlock()

	metrics.RecordSubscribers(n)
}

// Publish delivers the record to a snapshot of the subscriber set taken at
// call time. Subscriptions added or removed during delivery do not affect
// the in-progress delivery.
func (b *Bus) Publish(rec sources.PriceRecord) {
	type sub struct {
		id string
		cb Callback
	}

	b.mu.RLock()
	snapshot := make([]sub, 0, len(b.order))
	for _, id := range b.order {
		if cb, ok := b.subs[id]; ok {
			snapshot = append(snapshot, sub{id: id, cb: cb})
		}
	}
	b.mu.RUnlock()

	for _, s := range snapshot {
		b.deliver(s.id, s.cb, rec)
	}
}

// Count returns the number of active subscriptions.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// deliver invokes one callback, recovering from panics so one failing
// subscriber cannot break the rest of the fan-out.
func (b *Bus) deliver(id string, cb Callback, rec sources.PriceRecord) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked during delivery", "subscription", id, "panic", r)
		}
	}()
	cb(rec)
}
