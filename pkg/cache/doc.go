// Package cache provides a Redis-backed cache for SWAPI listing pages.
//
// The starship listing changes rarely, so repeated runs of the calculator
// can reuse pages fetched earlier instead of spending the daily request
// budget again.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.PageKey("starships", 2)
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from SWAPI
//	}
//
// # Storing Responses
//
//	entry, err := cache.EntryFromResponse(resp, body, time.Hour)
//	if err != nil {
//		return err
//	}
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Revalidation
//
// Entries outlive their Expires deadline by the stale retention period
// (DefaultStaleRetention). A stale entry that carries an ETag or
// Last-Modified value can be confirmed with a conditional request:
//
//	if entry.IsExpired() && entry.CanRevalidate() {
//		cache.AddConditionalHeaders(req, entry)
//		// 304 Not Modified -> manager.UpdateTTL(ctx, key, newExpires)
//	}
//
// # Inspection
//
// Pages lists the cached entries of an endpoint ordered by their Page
// number and Purge drops them all:
//
//	pages, err := manager.Pages(ctx, "starships")
//	removed, err := manager.Purge(ctx, "starships")
//
// # Metrics
//
//   - swapi_cache_hits_total{state="fresh"|"stale"}
//   - swapi_cache_misses_total
//   - swapi_cache_stores_total
//   - swapi_304_responses_total
//   - swapi_conditional_requests_total
//   - swapi_cache_errors_total{operation}
package cache
