// Package pagination walks SWAPI-style paginated listings.
//
// SWAPI list endpoints return a JSON envelope with count, next, previous and
// results fields. The next field is either null or a URL whose page query
// parameter names the following page. This package follows those links in a
// plain loop and accumulates results in order.
//
// Example usage:
//
//	ships, err := pagination.FetchAll[swapi.Starship](ctx, swapiClient, pagination.DefaultConfig())
//
// The follower:
//   - Starts at page 1 (Config.FirstPage)
//   - Fetches one page at a time, in order
//   - Stops when next is null
//   - Aborts on the first error (no partial data)
//   - Refuses next links that revisit a page or exceed Config.MaxPages
package pagination
