// Package feed implements the market data aggregation engine: a refresh
// actor that walks the source registry in priority order, applies the rate
// limiter and fetch pipeline, and publishes every successful record to the
// cache, the persistence facade and the subscription bus.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed/bus"
	"github.com/OHMS-DeAI/ratefeed/pkg/feed/cache"
	"github.com/OHMS-DeAI/ratefeed/pkg/feed/ratelimit"
	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
	"github.com/OHMS-DeAI/ratefeed/pkg/logging"
	"github.com/OHMS-DeAI/ratefeed/pkg/metrics"
	"github.com/OHMS-DeAI/ratefeed/pkg/storage"
)

const (
	// DefaultRefreshInterval is the timer-driven refresh cadence.
	DefaultRefreshInterval = 2 * time.Minute

	// persistTimeout bounds the storage write after a successful pass.
	persistTimeout = 5 * time.Second
)

var (
	// ErrStopped is returned by Refresh once the engine is shut down.
	ErrStopped = errors.New("engine stopped")
	// ErrNotStarted is returned by Refresh before Start.
	ErrNotStarted = errors.New("engine not started")
)

// Config carries the engine's collaborators. Registry, Fetcher, Limiter,
// Cache and Bus are required; Store may be nil to run without persistence.
type Config struct {
	Registry        *sources.Registry
	Fetcher         *sources.Client
	Limiter         *ratelimit.Limiter
	Cache           *cache.Store
	Bus             *bus.Bus
	Store           storage.Store
	RefreshInterval time.Duration
	Logger          *logging.Logger
}

// Engine orchestrates refresh passes. All passes funnel through a single
// goroutine owning the timer and a request mailbox, so at most one pass is
// in flight and records reach subscribers in production order.
type Engine struct {
	registry *sources.Registry
	fetcher  *sources.Client
	limiter  *ratelimit.Limiter
	cache    *cache.Store
	bus      *bus.Bus
	store    storage.Store
	interval time.Duration
	logger   *logging.Logger

	requests chan request

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// request is one refresh demand sent to the actor. reply receives exactly
// one record; a non-forced request arriving during a pass is attached to
// the in-flight pass instead of starting another.
type request struct {
	force  bool
	source string
	reply  chan sources.PriceRecord
}

// New creates an engine from its collaborators.
func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil || cfg.Fetcher == nil || cfg.Limiter == nil || cfg.Cache == nil || cfg.Bus == nil {
		return nil, errors.New("engine requires registry, fetcher, limiter, cache and bus")
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNoopLogger()
	}

	return &Engine{
		registry: cfg.Registry,
		fetcher:  cfg.Fetcher,
		limiter:  cfg.Limiter,
		cache:    cfg.Cache,
		bus:      cfg.Bus,
		store:    cfg.Store,
		interval: cfg.RefreshInterval,
		logger:   cfg.Logger,
		requests: make(chan request, 16),
	}, nil
}

// Start warm-starts the cache from the persistence facade and launches the
// refresh actor. Starting an already started engine is an error.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errors.New("engine already started")
	}
	e.started = true

	e.ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})

	if e.store != nil {
		rec, ok, err := e.store.LoadRecord(e.ctx)
		switch {
		case err != nil:
			metrics.RecordPersistenceError("load")
			e.logger.Warn("warm start skipped", "error", err)
		case ok:
			// Seeding with the record's own timestamp makes an old record
			// stale immediately, so the first pass goes upstream.
			e.cache.Seed(rec, rec.ObservedAt)
			e.logger.Info("warm start from persisted record",
				"source", rec.Source,
				"price", rec.Price.String(),
				"observed_at", rec.ObservedAt)
		default:
			e.logger.Info("cold start, no persisted record")
		}
	}

	go e.run()
	e.logger.Info("engine started", "refresh_interval", e.interval)
	return nil
}

// Stop cancels the actor and waits for it to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.cancel()
	<-e.done
	e.started = false
	e.logger.Info("engine stopped")
}

// Refresh requests a refresh pass and returns its record. With force=false
// a fresh cached record is returned without contacting any source, and a
// request arriving while a pass is in flight shares that pass's result.
// force=true bypasses both the freshness check and the single-flight
// sharing: it always buys a full pass of its own.
func (e *Engine) Refresh(ctx context.Context, force bool) (sources.PriceRecord, error) {
	return e.submit(ctx, request{force: force, reply: make(chan sources.PriceRecord, 1)})
}

// RefreshSource forces a refresh restricted to the named source; the
// fallback still terminates the pass if that source fails. The name must
// exist in the registry.
func (e *Engine) RefreshSource(ctx context.Context, name string) (sources.PriceRecord, error) {
	if _, ok := e.registry.ByName(name); !ok {
		return sources.PriceRecord{}, fmt.Errorf("%w: %s", sources.ErrUnknownSource, name)
	}
	return e.submit(ctx, request{force: true, source: name, reply: make(chan sources.PriceRecord, 1)})
}

func (e *Engine) submit(ctx context.Context, req request) (sources.PriceRecord, error) {
	e.mu.Lock()
	started, engineCtx := e.started, e.ctx
	e.mu.Unlock()
	if !started {
		return sources.PriceRecord{}, ErrNotStarted
	}

	select {
	case e.requests <- req:
	case <-ctx.Done():
		return sources.PriceRecord{}, ctx.Err()
	case <-engineCtx.Done():
		return sources.PriceRecord{}, ErrStopped
	}

	select {
	case rec := <-req.reply:
		return rec, nil
	case <-ctx.Done():
		return sources.PriceRecord{}, ctx.Err()
	case <-engineCtx.Done():
		return sources.PriceRecord{}, ErrStopped
	}
}

// Latest returns the cached record, if any.
func (e *Engine) Latest() (sources.PriceRecord, bool) {
	return e.cache.Latest()
}

// IsStale reports whether the cached record has outlived the TTL.
func (e *Engine) IsStale() bool {
	return e.cache.IsStale()
}

// History returns a copy of the retained record history, oldest first.
func (e *Engine) History() []sources.PriceRecord {
	return e.cache.History()
}

// Subscribe registers a callback on the subscription bus.
func (e *Engine) Subscribe(cb bus.Callback) string {
	return e.bus.Subscribe(cb)
}

// Unsubscribe removes a subscription by ID.
func (e *Engine) Unsubscribe(id string) {
	e.bus.Unsubscribe(id)
}

// run is the refresh actor. Timer ticks and caller requests both land
// here; while a pass is in flight, non-forced arrivals become waiters on
// its result, timer ticks collapse into it, and forced arrivals queue for
// a pass of their own after it completes.
func (e *Engine) run() {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	var (
		inflight chan sources.PriceRecord   // non-nil while a pass runs
		waiters  []chan sources.PriceRecord // replies owed the in-flight result
		pending  []request                  // forced requests queued behind it
	)

	startPass := func(req request) {
		inflight = make(chan sources.PriceRecord, 1)
		if req.reply != nil {
			waiters = append(waiters, req.reply)
		}
		go func(result chan<- sources.PriceRecord, force bool, source string) {
			result <- e.pass(force, source)
		}(inflight, req.force, req.source)
	}

	for {
		select {
		case <-e.ctx.Done():
			return

		case <-ticker.C:
			if inflight == nil {
				startPass(request{})
			}

		case req := <-e.requests:
			switch {
			case inflight == nil:
				startPass(req)
			case req.force:
				pending = append(pending, req)
			default:
				waiters = append(waiters, req.reply)
			}

		case rec := <-inflight:
			inflight = nil
			for _, w := range waiters {
				w <- rec
			}
			waiters = nil
			if len(pending) > 0 {
				next := pending[0]
				pending = pending[1:]
				startPass(next)
			}
		}
	}
}

// pass executes one refresh pass and always terminates with a usable
// record: if every candidate is skipped or fails, the synthetic fallback
// supplies the result.
func (e *Engine) pass(force bool, override string) sources.PriceRecord {
	start := time.Now()

	if !force {
		if rec, ok := e.cache.Latest(); ok && !e.cache.IsStale() {
			return rec
		}
	}

	var candidates []sources.Descriptor
	if override != "" {
		if d, ok := e.registry.ByName(override); ok && d.Name != sources.FallbackName {
			candidates = []sources.Descriptor{d}
		}
	} else {
		candidates = e.registry.Real()
	}

	var rec sources.PriceRecord
	fetched := false
	for _, d := range candidates {
		if !e.limiter.Allow(d.Name, d.RequestsPerMinute) {
			metrics.RecordRateLimitDenial(d.Name)
			e.logger.Debug("rate limit reached, skipping source", "source", d.Name)
			continue
		}

		got, err := e.fetcher.Fetch(e.ctx, d)
		if err != nil {
			metrics.RecordSourceError(d.Name, sources.Classify(err))
			e.logger.Warn("source fetch failed", "source", d.Name, "error", err.Error())
			continue
		}

		e.limiter.Record(d.Name)
		rec = got
		fetched = true
		break
	}

	if !fetched {
		rec = e.registry.FallbackRecord()
		e.logger.Warn("all sources unavailable, serving fallback record", "price", rec.Price.String())
	}

	e.commit(rec)
	metrics.RecordRefresh(rec.Source, time.Since(start))
	e.logger.Debug("refresh pass complete",
		"source", rec.Source,
		"price", rec.Price.String(),
		"duration", time.Since(start))
	return rec
}

// commit applies a pass result: cache and history first, then the
// persistence facade, then the fan-out. A storage failure is logged and
// must not block delivery; in-memory correctness does not depend on
// durable storage succeeding.
func (e *Engine) commit(rec sources.PriceRecord) {
	e.cache.Set(rec)
	metrics.RecordCacheState(e.cache.IsStale(), e.cache.HistoryLen())

	if e.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := e.store.SaveRecord(ctx, rec); err != nil {
			metrics.RecordPersistenceError("save")
			e.logger.Error("failed to persist record", "error", err.Error())
		}
		cancel()
	}

	e.bus.Publish(rec)
}
