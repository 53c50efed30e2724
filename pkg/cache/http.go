package cache

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultTTL is the fallback freshness when a response has no usable Expires header.
const DefaultTTL = 1 * time.Hour

// EntryFromResponse builds a CacheEntry from a response whose body has
// already been read. Freshness comes from the Expires header, falling back
// to fallbackTTL (DefaultTTL when zero).
func EntryFromResponse(resp *http.Response, body []byte, fallbackTTL time.Duration) (*CacheEntry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}
	if fallbackTTL <= 0 {
		fallbackTTL = DefaultTTL
	}

	entry := &CacheEntry{
		Data:       body,
		ETag:       resp.Header.Get("ETag"),
		Expires:    parseExpires(resp.Header, fallbackTTL),
		StatusCode: resp.StatusCode,
		CachedAt:   time.Now(),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		entry.URL = resp.Request.URL.String()
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry, nil
}

// ExpiresFromHeaders returns the freshness deadline carried by a response,
// e.g. a 304 Not Modified that refreshes a cached entry.
func ExpiresFromHeaders(headers http.Header, fallbackTTL time.Duration) time.Time {
	if fallbackTTL <= 0 {
		fallbackTTL = DefaultTTL
	}
	return parseExpires(headers, fallbackTTL)
}

// parseExpires parses the Expires header.
// Missing or invalid values yield now + fallbackTTL.
func parseExpires(headers http.Header, fallbackTTL time.Duration) time.Time {
	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return time.Now().Add(fallbackTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return time.Now().Add(fallbackTTL)
	}

	if expires.Before(time.Now()) {
		return time.Now()
	}

	return expires
}

// AddConditionalHeaders adds If-None-Match (ETag) or If-Modified-Since
// headers to the request when the entry supports revalidation.
func AddConditionalHeaders(req *http.Request, entry *CacheEntry) {
	if entry == nil || req == nil {
		return
	}

	// ETag is more precise than Last-Modified
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}
