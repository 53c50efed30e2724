// Package swapi provides the SWAPI HTTP client used to fetch starship
// records, with optional Redis page caching and request budget tracking.
package swapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/swapi-resupply/pkg/cache"
	"github.com/Sternrassler/swapi-resupply/pkg/pagination"
	"github.com/Sternrassler/swapi-resupply/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StarshipsEndpoint is the listing path relative to the API root.
const StarshipsEndpoint = "starships"

// DefaultBaseURL is the public SWAPI root.
const DefaultBaseURL = "https://swapi.dev/api/"

// Client fetches SWAPI listing pages.
type Client struct {
	httpClient  *http.Client
	cache       *cache.Manager
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://swapi.dev/api/"
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout bounds each HTTP request
	Timeout time.Duration

	// MaxResponseBytes bounds each response body
	MaxResponseBytes int64

	// Retry policy; the default is a single attempt
	Retry RetryConfig

	// Pagination bounds the listing walk
	Pagination pagination.Config

	// Redis enables page caching and request budget tracking (optional)
	Redis *redis.Client

	// CacheTTL is the page freshness when the response has no Expires header
	CacheTTL time.Duration

	// DailyRequestLimit is the request budget per UTC day
	DailyRequestLimit int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		UserAgent:         "swapi-resupply/0.1.0",
		Timeout:           30 * time.Second,
		MaxResponseBytes:  4 << 20,
		Retry:             DefaultRetryConfig(),
		Pagination:        pagination.DefaultConfig(),
		CacheTTL:          cache.DefaultTTL,
		DailyRequestLimit: ratelimit.DefaultDailyLimit,
	}
}

// New creates a new SWAPI client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute URL (got %q)", cfg.BaseURL)
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	if cfg.MaxResponseBytes <= 0 {
		return nil, fmt.Errorf("max_response_bytes must be positive (got %d)", cfg.MaxResponseBytes)
	}

	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}

	logger := log.With().Str("component", "swapi-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis,
			log.With().Str("component", "rate-limit").Logger(), cfg.DailyRequestLimit)
	}

	return c, nil
}

// PageURL returns the listing URL for one page,
// e.g. "https://swapi.dev/api/starships?page=2".
func (c *Client) PageURL(endpoint string, page int) string {
	return c.config.BaseURL + endpoint + "?page=" + strconv.Itoa(page)
}

// FetchPage fetches and decodes one page of the starships listing.
func (c *Client) FetchPage(ctx context.Context, page int) (*StarshipPage, error) {
	body, err := c.fetchBody(ctx, StarshipsEndpoint, page)
	if err != nil {
		return nil, err
	}

	var out StarshipPage
	if err := json.Unmarshal(body, &out); err != nil {
		swapiErrorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
		return nil, &APIError{
			URL:        c.PageURL(StarshipsEndpoint, page),
			ErrorClass: ErrorClassParse,
			Message:    "decode starships page",
			Err:        err,
		}
	}

	return &out, nil
}

// FetchAllStarships walks the whole starships listing in API order.
func (c *Client) FetchAllStarships(ctx context.Context) ([]Starship, error) {
	ships, err := pagination.FetchAll[Starship](ctx, c, c.config.Pagination)
	if err != nil {
		return nil, fmt.Errorf("fetch starships: %w", err)
	}

	swapiStarshipsFetched.Set(float64(len(ships)))
	c.logger.Info().Int("starships", len(ships)).Msg("Starship dataset loaded")

	return ships, nil
}

// fetchBody returns the raw body of one listing page, from the cache when
// a fresh entry exists, otherwise from SWAPI.
func (c *Client) fetchBody(ctx context.Context, endpoint string, page int) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		swapiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	key := cache.PageKey(endpoint, page)

	var cached *cache.CacheEntry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil && !entry.IsExpired():
			c.logger.Debug().
				Str("key", key.String()).
				Dur("ttl", entry.TTL()).
				Dur("age", entry.Age()).
				Msg("Serving page from cache")
			return entry.Data, nil
		case err == nil:
			cached = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
		}
	}

	pageURL := c.PageURL(endpoint, page)

	var resp *http.Response
	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, classifyError, func() error {
		var reqErr error
		resp, body, reqErr = c.post(ctx, endpoint, pageURL, cached)
		return reqErr
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		c.logger.Debug().Str("key", key.String()).Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()

		newExpires := cache.ExpiresFromHeaders(resp.Header, c.config.CacheTTL)
		if err := c.cache.UpdateTTL(ctx, key, newExpires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		return cached.Data, nil
	}

	if c.cache != nil {
		c.storePage(ctx, key, page, resp, body)
	}

	return body, nil
}

// storePage caches a 200 response. Cache failures are logged, not returned.
func (c *Client) storePage(ctx context.Context, key cache.CacheKey, page int, resp *http.Response, body []byte) {
	entry, err := cache.EntryFromResponse(resp, body, c.config.CacheTTL)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		return
	}
	entry.Page = page

	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
		return
	}

	c.logger.Debug().
		Str("key", key.String()).
		Dur("ttl", entry.TTL()).
		Msg("Cached response")
}

// post issues one POST for a listing page. The returned response body is
// already consumed and closed; its contents are returned separately.
func (c *Client) post(ctx context.Context, endpoint, pageURL string, cached *cache.CacheEntry) (*http.Response, []byte, error) {
	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Rate limit check failed")
			return nil, nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			swapiRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
			return nil, nil, ErrRequestBlocked
		}
	}

	// SWAPI ignores the body; an empty one is sent
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pageURL, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	if cached != nil && cached.CanRevalidate() {
		cache.AddConditionalHeaders(req, cached)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("url", pageURL).
			Str("etag", cached.ETag).
			Msg("Making conditional request")
	}

	c.logger.Debug().
		Str("url", pageURL).
		Str("method", req.Method).
		Msg("Executing SWAPI request")

	resp, err := c.httpClient.Do(req)

	if c.rateLimiter != nil {
		if recErr := c.rateLimiter.RecordRequest(ctx); recErr != nil {
			c.logger.Warn().Err(recErr).Msg("Failed to record request")
		}
	}

	if err != nil {
		c.logger.Error().Err(err).Str("url", pageURL).Msg("HTTP request failed")
		swapiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		swapiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, nil, &APIError{
			URL:        pageURL,
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	status := strconv.Itoa(resp.StatusCode)

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		swapiRequestsTotal.WithLabelValues(endpoint, status).Inc()
		return resp, nil, nil
	}

	if errClass := classifyStatus(resp.StatusCode); errClass != "" {
		swapiErrorsTotal.WithLabelValues(string(errClass)).Inc()
		swapiRequestsTotal.WithLabelValues(endpoint, status).Inc()

		c.logger.Warn().
			Str("url", pageURL).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("SWAPI request error")

		return nil, nil, &APIError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	body, err := readLimited(resp.Body, c.config.MaxResponseBytes)
	if err != nil {
		errClass := ErrorClassNetwork
		if errors.Is(err, ErrResponseTooLarge) {
			errClass = ErrorClassParse
		}
		swapiErrorsTotal.WithLabelValues(string(errClass)).Inc()
		return nil, nil, &APIError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    "read response body",
			Err:        err,
		}
	}

	swapiRequestsTotal.WithLabelValues(endpoint, status).Inc()
	return resp, body, nil
}

// readLimited reads at most limit bytes and fails if the body is longer.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrResponseTooLarge, limit)
	}
	return body, nil
}

// classifyError extracts the class of an *APIError for retry decisions.
func classifyError(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ""
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the page cache, or nil when Redis is not configured.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}
