// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/swapi-resupply/pkg/cache"
	"github.com/Sternrassler/swapi-resupply/pkg/logging"
	"github.com/Sternrassler/swapi-resupply/pkg/pagination"
	"github.com/Sternrassler/swapi-resupply/pkg/ratelimit"
	"github.com/Sternrassler/swapi-resupply/pkg/swapi"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// DefaultEnvFile is loaded when SWAPI_ENV_FILE is unset.
const DefaultEnvFile = ".env"

// Config holds all application configuration.
type Config struct {
	BaseURL           string
	UserAgent         string
	HTTPTimeout       time.Duration
	MaxResponseBytes  int64
	MaxPages          int
	MaxAttempts       int
	SkipInvalid       bool
	RedisURL          string
	CacheTTL          time.Duration
	DailyRequestLimit int
	MetricsAddr       string
	LogLevel          string
	LogPretty         bool
}

// Default returns the configuration used when no variables are set.
func Default() *Config {
	client := swapi.DefaultConfig()
	return &Config{
		BaseURL:           client.BaseURL,
		UserAgent:         client.UserAgent,
		HTTPTimeout:       client.Timeout,
		MaxResponseBytes:  client.MaxResponseBytes,
		MaxPages:          client.Pagination.MaxPages,
		MaxAttempts:       client.Retry.MaxAttempts,
		CacheTTL:          cache.DefaultTTL,
		DailyRequestLimit: ratelimit.DefaultDailyLimit,
		LogLevel:          string(logging.LevelWarn),
	}
}

// LoadEnvFile loads variables from path into the process environment
// without overriding ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads configuration through getenv, falling back to Default for
// unset variables. Malformed numbers and booleans are errors.
func Load(getenv func(string) string) (*Config, error) {
	cfg := Default()
	r := reader{getenv: getenv}

	cfg.BaseURL = r.getString("SWAPI_BASE_URL", cfg.BaseURL)
	cfg.UserAgent = r.getString("SWAPI_USER_AGENT", cfg.UserAgent)
	cfg.HTTPTimeout = r.getSeconds("SWAPI_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.MaxResponseBytes = r.getInt64("SWAPI_MAX_RESPONSE_BYTES", cfg.MaxResponseBytes)
	cfg.MaxPages = r.getInt("SWAPI_MAX_PAGES", cfg.MaxPages)
	cfg.MaxAttempts = r.getInt("SWAPI_MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.SkipInvalid = r.getBool("SWAPI_SKIP_INVALID", cfg.SkipInvalid)
	cfg.RedisURL = r.getString("REDIS_URL", cfg.RedisURL)
	cfg.CacheTTL = r.getSeconds("SWAPI_CACHE_TTL", cfg.CacheTTL)
	cfg.DailyRequestLimit = r.getInt("SWAPI_DAILY_REQUEST_LIMIT", cfg.DailyRequestLimit)
	cfg.MetricsAddr = r.getString("METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = r.getString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = r.getBool("LOG_PRETTY", cfg.LogPretty)

	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can build a working client.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("SWAPI_BASE_URL must be an absolute URL (got %q)", c.BaseURL))
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		errs = append(errs, errors.New("SWAPI_USER_AGENT must not be empty"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SWAPI_HTTP_TIMEOUT must be positive (got %s)", c.HTTPTimeout))
	}
	if c.MaxResponseBytes <= 0 {
		errs = append(errs, fmt.Errorf("SWAPI_MAX_RESPONSE_BYTES must be positive (got %d)", c.MaxResponseBytes))
	}
	if c.MaxPages <= 0 {
		errs = append(errs, fmt.Errorf("SWAPI_MAX_PAGES must be positive (got %d)", c.MaxPages))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("SWAPI_MAX_ATTEMPTS must be >= 1 (got %d)", c.MaxAttempts))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("SWAPI_CACHE_TTL must be positive (got %s)", c.CacheTTL))
	}
	if c.DailyRequestLimit <= 0 {
		errs = append(errs, fmt.Errorf("SWAPI_DAILY_REQUEST_LIMIT must be positive (got %d)", c.DailyRequestLimit))
	}
	if !logging.ValidLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not a known level", c.LogLevel))
	}
	if c.RedisURL != "" {
		if _, err := redis.ParseURL(c.RedisURL); err != nil {
			errs = append(errs, fmt.Errorf("REDIS_URL: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}

// Client returns the SWAPI client configuration. rdb may be nil.
func (c *Config) Client(rdb *redis.Client) swapi.Config {
	cfg := swapi.DefaultConfig()
	cfg.BaseURL = c.BaseURL
	cfg.UserAgent = c.UserAgent
	cfg.Timeout = c.HTTPTimeout
	cfg.MaxResponseBytes = c.MaxResponseBytes
	cfg.Retry.MaxAttempts = c.MaxAttempts
	cfg.Pagination = pagination.Config{
		FirstPage: pagination.DefaultConfig().FirstPage,
		MaxPages:  c.MaxPages,
	}
	cfg.Redis = rdb
	cfg.CacheTTL = c.CacheTTL
	cfg.DailyRequestLimit = c.DailyRequestLimit
	return cfg
}

// RedisOptions parses RedisURL. It returns nil when Redis is not configured.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return opts, nil
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) getString(key, def string) string {
	if value := strings.TrimSpace(r.getenv(key)); value != "" {
		return value
	}
	return def
}

func (r *reader) getInt(key string, def int) int {
	value := strings.TrimSpace(r.getenv(key))
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, value))
		return def
	}
	return n
}

func (r *reader) getInt64(key string, def int64) int64 {
	value := strings.TrimSpace(r.getenv(key))
	if value == "" {
		return def
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, value))
		return def
	}
	return n
}

func (r *reader) getSeconds(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(r.getenv(key))
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a number of seconds", key, value))
		return def
	}
	return time.Duration(n) * time.Second
}

func (r *reader) getBool(key string, def bool) bool {
	value := strings.TrimSpace(r.getenv(key))
	if value == "" {
		return def
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a boolean", key, value))
		return def
	}
	return b
}
