// Package metrics provides Prometheus metrics for the rate feed engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RefreshPassesTotal is a counter of completed refresh passes by result source.
	RefreshPassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_passes_total",
			Help: "Total number of completed refresh passes, labelled by the source that produced the record",
		},
		[]string{"source"},
	)

	// RefreshDuration is a histogram of refresh pass durations.
	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refresh_pass_duration_seconds",
			Help:    "Duration of refresh passes",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SourceErrorsTotal is a counter of failed source fetches by error class.
	SourceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_errors_total",
			Help: "Total number of failed source fetches",
		},
		[]string{"source", "class"},
	)

	// RateLimitDenialsTotal is a counter of local rate limit denials.
	RateLimitDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_denials_total",
			Help: "Total number of refresh attempts that skipped a source due to local rate limiting",
		},
		[]string{"source"},
	)

	// CacheStale is a gauge reporting whether the cached record is stale.
	CacheStale = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_stale",
			Help: "Whether the cached price record is stale (1=stale, 0=fresh)",
		},
	)

	// HistorySize is a gauge of retained history entries.
	HistorySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "history_size",
			Help: "Number of price records retained in the history buffer",
		},
	)

	// SubscribersActive is a gauge of active subscription callbacks.
	SubscribersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscribers_active",
			Help: "Number of registered price subscribers",
		},
	)

	// ConversionsTotal is a counter of currency conversions by direction.
	ConversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversions_total",
			Help: "Total number of currency conversions performed",
		},
		[]string{"direction", "rate_source"},
	)

	// PersistenceErrorsTotal is a counter of storage errors by operation.
	PersistenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persistence_errors_total",
			Help: "Total number of persistence facade errors",
		},
		[]string{"operation"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)
)

// Init registers all metrics with the default Prometheus registry.
func Init() {
	prometheus.MustRegister(
		RefreshPassesTotal,
		RefreshDuration,
		SourceErrorsTotal,
		RateLimitDenialsTotal,
		CacheStale,
		HistorySize,
		SubscribersActive,
		ConversionsTotal,
		PersistenceErrorsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordRefresh records a completed refresh pass.
func RecordRefresh(source string, duration time.Duration) {
	RefreshPassesTotal.WithLabelValues(source).Inc()
	RefreshDuration.Observe(duration.Seconds())
}

// RecordSourceError records a failed fetch from a source.
func RecordSourceError(source, class string) {
	SourceErrorsTotal.WithLabelValues(source, class).Inc()
}

// RecordRateLimitDenial records a source skipped by the rate limiter.
func RecordRateLimitDenial(source string) {
	RateLimitDenialsTotal.WithLabelValues(source).Inc()
}

// RecordCacheState records staleness and history depth after a cache update.
func RecordCacheState(stale bool, historyLen int) {
	val := 0.0
	if stale {
		val = 1.0
	}
	CacheStale.Set(val)
	HistorySize.Set(float64(historyLen))
}

// RecordSubscribers records the current subscriber count.
func RecordSubscribers(n int) {
	SubscribersActive.Set(float64(n))
}

// RecordConversion records a currency conversion.
func RecordConversion(direction, rateSource string) {
	ConversionsTotal.WithLabelValues(direction, rateSource).Inc()
}

// RecordPersistenceError records a persistence facade failure.
func RecordPersistenceError(operation string) {
	PersistenceErrorsTotal.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
