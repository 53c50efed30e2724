package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request budget tracking.
var (
	swapiRequestsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapi_requests_remaining",
		Help: "Number of requests remaining in the current SWAPI budget window",
	})

	swapiRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapi_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the request budget is exhausted",
	})

	swapiRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapi_rate_limit_throttles_total",
		Help: "Total number of requests throttled because the request budget is low",
	})
)

// Header names read by UpdateFromHeaders.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// DefaultThrottleDelay is the pause applied to each request in the warning band.
const DefaultThrottleDelay = 1 * time.Second

// Tracker counts SWAPI requests and gates new ones.
type Tracker struct {
	redis         *redis.Client
	logger        zerolog.Logger
	limit         int
	throttleDelay time.Duration
	now           func() time.Time
}

// NewTracker creates a new request budget tracker.
// A non-positive limit selects DefaultDailyLimit.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger, dailyLimit int) *Tracker {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		limit:         dailyLimit,
		throttleDelay: DefaultThrottleDelay,
		now:           time.Now,
	}
}

// SetThrottleDelay overrides the warning band pause (for testing).
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttleDelay = d
}

// Limit returns the configured daily limit.
func (t *Tracker) Limit() int {
	return t.limit
}

// GetState reads the current budget from Redis.
// Missing keys mean nothing has been spent yet.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	now := t.now()

	used, err := t.redis.Get(ctx, dayKey(now)).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get request count: %w", err)
	}

	state := &RateLimitState{
		Limit:      t.limit,
		Used:       used,
		Remaining:  t.limit - used,
		ResetAt:    nextMidnightUTC(now),
		LastUpdate: now,
	}
	if state.Remaining < 0 {
		state.Remaining = 0
	}

	serverRemaining, err := t.redis.Get(ctx, RedisKeyServerRemaining).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get server remaining: %w", err)
	}
	if err == nil && serverRemaining < state.Remaining {
		state.Remaining = serverRemaining

		resetUnix, err := t.redis.Get(ctx, RedisKeyServerReset).Int64()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("get server reset: %w", err)
		}
		if err == nil {
			state.ResetAt = time.Unix(resetUnix, 0)
		}
	}

	state.UpdateHealth()
	return state, nil
}

// RecordRequest counts one request against today's budget.
func (t *Tracker) RecordRequest(ctx context.Context) error {
	key := dayKey(t.now())

	pipe := t.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record request in redis: %w", err)
	}

	remaining := t.limit - int(incr.Val())
	if remaining < 0 {
		remaining = 0
	}
	swapiRequestsRemaining.Set(float64(remaining))

	t.logger.Debug().
		Int64("used", incr.Val()).
		Int("limit", t.limit).
		Msg("Request counted")

	return nil
}

// UpdateFromHeaders stores the server reported budget, if any.
// X-RateLimit-Reset is read as seconds until the window resets.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		// SWAPI does not always send budget headers
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}

	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}
	if resetSeconds <= 0 {
		return nil
	}

	window := time.Duration(resetSeconds) * time.Second
	resetAt := t.now().Add(window)

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyServerRemaining, remain, window)
	pipe.Set(ctx, RedisKeyServerReset, resetAt.Unix(), window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store server budget in redis: %w", err)
	}

	swapiRequestsRemaining.Set(float64(remain))

	state := &RateLimitState{Remaining: remain, ResetAt: resetAt}
	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", remain).
			Time("reset_at", resetAt).
			Msg("SWAPI request budget CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", resetAt).
			Msg("SWAPI request budget WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Time("reset_at", resetAt).
			Msg("SWAPI request budget updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request fits the remaining budget.
// Returns false when the budget is critical. In the warning band it returns
// true after pausing for the throttle delay.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("SWAPI request budget exhausted - blocking request")

		swapiRateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("SWAPI request budget low - throttling request")

		swapiRateLimitThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}
