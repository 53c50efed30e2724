// Package ratelimit keeps the SWAPI request budget.
// SWAPI allows a fixed number of requests per IP and day. The tracker counts
// requests per UTC day in Redis so that several processes on one host share
// the budget, and honours X-RateLimit-Remaining / X-RateLimit-Reset headers
// when the server sends them.
package ratelimit

import (
	"time"
)

// Redis keys for request budget state.
const (
	// RedisKeyDailyPrefix is suffixed with the UTC date (2006-01-02).
	RedisKeyDailyPrefix     = "swapi:rate_limit:requests:"
	RedisKeyServerRemaining = "swapi:rate_limit:server_remaining"
	RedisKeyServerReset     = "swapi:rate_limit:server_reset"
)

// DefaultDailyLimit is the public SWAPI quota per IP and day.
const DefaultDailyLimit = 10000

// Thresholds for budget decisions.
const (
	// RemainingThresholdCritical blocks all requests when fewer requests remain.
	RemainingThresholdCritical = 5

	// RemainingThresholdWarning throttles requests when fewer requests remain.
	RemainingThresholdWarning = 20

	// RemainingThresholdHealthy marks the budget as healthy at or above this value.
	RemainingThresholdHealthy = 50
)

// RateLimitState is the current request budget.
type RateLimitState struct {
	// Limit is the daily request limit.
	Limit int `json:"limit"`

	// Used is the number of requests counted today.
	Used int `json:"used"`

	// Remaining is the number of requests left before the budget is exhausted.
	// When the server reports a lower value, that value wins.
	Remaining int `json:"remaining"`

	// ResetAt is when the budget resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was read.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= RemainingThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining < RemainingThresholdCritical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < RemainingThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the budget resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= RemainingThresholdHealthy
}

// dayKey returns the Redis counter key for the UTC day containing t.
func dayKey(t time.Time) string {
	return RedisKeyDailyPrefix + t.UTC().Format("2006-01-02")
}

// nextMidnightUTC returns the start of the UTC day after t.
func nextMidnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
