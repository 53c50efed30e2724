package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "swapi"

// CacheKey identifies one cached SWAPI response.
type CacheKey struct {
	// Endpoint is the resource path relative to the API root (e.g., "starships")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"page": "2"})
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: swapi:endpoint:query1=val1:query2=val2
//
// Example:
//
//	swapi:starships:page=2
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}

// PageKey returns the key for one page of a paginated listing.
func PageKey(endpoint string, page int) CacheKey {
	return CacheKey{
		Endpoint:    endpoint,
		QueryParams: url.Values{"page": []string{fmt.Sprint(page)}},
	}
}
