// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "touhou_archive"

var (
	// APIRequestsTotal tracks outbound Bilibili API requests.
	// Labels:
	//   - endpoint: listing, season, parts, tags, nav
	//   - outcome: ok, throttled, error
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of outbound API request attempts",
		},
		[]string{"endpoint", "outcome"},
	)

	// APIRetriesTotal tracks retried request attempts per endpoint.
	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_retries_total",
			Help:      "Total number of retried API request attempts",
		},
		[]string{"endpoint"},
	)

	// VideosArchivedTotal tracks successfully persisted videos.
	VideosArchivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_archived_total",
			Help:      "Total number of videos persisted by the worker pool",
		},
	)

	// ItemFailuresTotal tracks per-item worker failures (logged and skipped).
	ItemFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_failures_total",
			Help:      "Total number of videos that failed enrichment or persistence",
		},
	)

	// PagesExhaustedTotal tracks producer pages that failed all long-interval
	// attempts, aborting their uploader.
	PagesExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_exhausted_total",
			Help:      "Total number of listing pages abandoned after all retries",
		},
	)

	// CacheOperationsTotal tracks read-API cache operations.
	// Labels:
	//   - operation: get, set, delete
	//   - status: hit, miss, success, error
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status"},
	)

	// SingleflightRequestsTotal tracks read-API request coalescing.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)
)

// Outcome label values for APIRequestsTotal.
const (
	OutcomeOK        = "ok"
	OutcomeThrottled = "throttled"
	OutcomeError     = "error"
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
