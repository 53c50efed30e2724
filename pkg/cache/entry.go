package cache

import (
	"time"
)

// CacheEntry is one cached listing page as SWAPI returned it.
type CacheEntry struct {
	// Data is the raw JSON page body
	Data []byte `json:"data"`

	// URL the page was fetched from
	URL string `json:"url,omitempty"`

	// Page is the listing page number
	Page int `json:"page,omitempty"`

	// ETag for If-None-Match revalidation
	ETag string `json:"etag,omitempty"`

	// LastModified for If-Modified-Since revalidation
	LastModified time.Time `json:"last_modified,omitempty"`

	// Expires is when the page turns stale
	Expires time.Time `json:"expires"`

	// StatusCode of the response that filled the entry
	StatusCode int `json:"status_code"`

	// CachedAt is when the page was stored
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired reports whether the page is stale.
func (e *CacheEntry) IsExpired() bool {
	return e.expiredAt(time.Now())
}

// TTL returns how long the page stays fresh, 0 once stale.
func (e *CacheEntry) TTL() time.Duration {
	return e.ttlAt(time.Now())
}

// Age returns how long ago the page was stored.
func (e *CacheEntry) Age() time.Duration {
	if e.CachedAt.IsZero() {
		return 0
	}
	return time.Since(e.CachedAt)
}

// CanRevalidate reports whether a stale page can be confirmed with a
// conditional request instead of being downloaded again.
func (e *CacheEntry) CanRevalidate() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}

func (e *CacheEntry) expiredAt(now time.Time) bool {
	return !now.Before(e.Expires)
}

func (e *CacheEntry) ttlAt(now time.Time) time.Duration {
	if ttl := e.Expires.Sub(now); ttl > 0 {
		return ttl
	}
	return 0
}
