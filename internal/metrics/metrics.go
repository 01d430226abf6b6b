// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

// Package metrics provides Prometheus instrumentation for Statline:
// API latency and throughput, response-cache efficiency, request-coalescing
// behavior, and snapshot backend health. Collectors are registered on the
// default registry at package load and exposed via /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statline_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "statline_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "statline_api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	// Response cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statline_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statline_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	CacheBypasses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statline_cache_bypasses_total",
			Help: "Total number of requests that bypassed the response cache",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "statline_cache_entries",
			Help: "Current number of tracked response cache entries",
		},
	)

	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statline_cache_invalidations_total",
			Help: "Total number of cache entries removed by pattern invalidation",
		},
	)

	// Request coalescing metrics
	CoalesceFlightsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statline_coalesce_flights_started_total",
			Help: "Total number of in-flight computations started",
		},
	)

	CoalesceJoined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statline_coalesce_joined_total",
			Help: "Total number of callers that joined an existing in-flight computation",
		},
	)

	CoalesceTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statline_coalesce_timeouts_total",
			Help: "Total number of in-flight computations force-removed by the sweep",
		},
	)

	CoalesceInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "statline_coalesce_in_flight",
			Help: "Current number of in-flight computations",
		},
	)

	// Snapshot backend metrics
	SnapshotLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "statline_snapshot_load_duration_seconds",
			Help:    "Duration of snapshot backend loads in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	SnapshotLoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statline_snapshot_load_errors_total",
			Help: "Total number of snapshot backend load failures",
		},
		[]string{"backend"},
	)

	SnapshotBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "statline_snapshot_breaker_state",
			Help: "Snapshot circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-progress request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSnapshotLoad records one snapshot backend load.
func RecordSnapshotLoad(backend string, duration time.Duration, err error) {
	SnapshotLoadDuration.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		SnapshotLoadErrors.WithLabelValues(backend).Inc()
	}
}
