// Package metrics exposes the Prometheus registry used by the resupply
// calculator over HTTP.
// All metrics are defined in their respective packages (swapi, cache,
// ratelimit, resupply) to maintain modularity and avoid circular dependencies.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

const shutdownTimeout = 5 * time.Second

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewMux returns a mux serving /metrics and /health.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// Serve listens on addr and serves NewMux until ctx is done.
func Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", addr, err)
	}
	return ServeListener(ctx, ln)
}

// ServeListener serves NewMux on ln until ctx is done, then shuts down.
func ServeListener(ctx context.Context, ln net.Listener) error {
	logger := log.With().Str("component", "metrics").Logger()

	srv := &http.Server{
		Handler:           NewMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics shutdown: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/swapi):
//   - swapi_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - swapi_request_duration_seconds{endpoint} (Histogram): Page fetch duration
//   - swapi_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, parse)
//   - swapi_starships_fetched (Gauge): Records in the last completed fetch
//
// Retry Metrics (pkg/swapi):
//   - swapi_retries_total{error_class} (Counter): Retry attempts by error class
//   - swapi_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - swapi_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - swapi_cache_hits_total{state="fresh"|"stale"} (Counter): Cache hits
//   - swapi_cache_misses_total (Counter): Cache misses
//   - swapi_cache_stores_total (Counter): Pages written to the cache
//   - swapi_304_responses_total (Counter): 304 Not Modified responses
//   - swapi_conditional_requests_total (Counter): Conditional requests sent
//   - swapi_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Budget Metrics (pkg/ratelimit):
//   - swapi_requests_remaining (Gauge): Requests left in today's budget
//   - swapi_rate_limit_blocks_total (Counter): Requests blocked on an exhausted budget
//   - swapi_rate_limit_throttles_total (Counter): Requests delayed on a low budget
//
// Calculation Metrics (pkg/resupply):
//   - resupply_calculations_total (Counter): Completed calculation passes
//   - resupply_calculation_errors_total{reason} (Counter): Records that could not be calculated
//   - resupply_calculation_duration_seconds (Histogram): Duration of one pass
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(swapi_cache_hits_total[5m])) /
//   (sum(rate(swapi_cache_hits_total[5m])) + sum(rate(swapi_cache_misses_total[5m])))
//
//   # Budget Status
//   swapi_requests_remaining < 20
//
//   # 304 Response Rate
//   rate(swapi_304_responses_total[5m]) / rate(swapi_requests_total[5m])
