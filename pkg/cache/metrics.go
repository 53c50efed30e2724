package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by freshness
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapi_cache_hits_total",
			Help: "Total number of SWAPI page cache hits",
		},
		[]string{"state"}, // "fresh", "stale"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swapi_cache_misses_total",
			Help: "Total number of SWAPI page cache misses",
		},
	)

	// CacheStores tracks successful writes
	CacheStores = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swapi_cache_stores_total",
			Help: "Total number of SWAPI pages written to the cache",
		},
	)

	// NotModifiedResponses tracks 304 Not Modified responses
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swapi_304_responses_total",
			Help: "Total number of SWAPI 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent tracks revalidation requests
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swapi_conditional_requests_total",
			Help: "Total number of conditional requests sent to SWAPI",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapi_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "scan"
	)
)
