package swapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for SWAPI client operations.
var (
	swapiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_requests_total",
		Help: "Total SWAPI requests by endpoint and status",
	}, []string{"endpoint", "status"})

	swapiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapi_request_duration_seconds",
		Help:    "SWAPI page fetch duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	swapiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_errors_total",
		Help: "Total SWAPI errors by class",
	}, []string{"class"})

	swapiRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	swapiRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapi_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	swapiRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})

	swapiStarshipsFetched = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapi_starships_fetched",
		Help: "Number of starship records in the last completed fetch",
	})
)
