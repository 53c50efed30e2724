package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidNextLink is returned when a next link carries no usable page number.
	ErrInvalidNextLink = errors.New("invalid next page link")

	// ErrPaginationLoop is returned when a next link points at a page already fetched.
	ErrPaginationLoop = errors.New("pagination loop detected")

	// ErrTooManyPages is returned when more than Config.MaxPages pages are linked.
	ErrTooManyPages = errors.New("too many pages")
)

// Config holds follower configuration
type Config struct {
	// FirstPage is the page number the walk starts at
	FirstPage int
	// MaxPages bounds the number of pages fetched in one walk
	MaxPages int
}

// DefaultConfig returns the configuration used for the SWAPI listing
func DefaultConfig() Config {
	return Config{
		FirstPage: 1,
		MaxPages:  100,
	}
}

// Page is one decoded page of a SWAPI-style listing.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HasNext reports whether the listing continues after this page.
func (p *Page[T]) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// PageFetcher fetches a single page by number
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, page int) (*Page[T], error)
}

// FetchAll walks the listing from cfg.FirstPage, following next links until
// one is null. Results are returned in API order. Any error aborts the walk
// and no partial data is returned.
func FetchAll[T any](ctx context.Context, fetcher PageFetcher[T], cfg Config) ([]T, error) {
	if cfg.FirstPage <= 0 {
		cfg.FirstPage = 1
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}

	start := time.Now()
	logger := log.With().Str("component", "pagination").Logger()

	var items []T
	visited := make(map[int]bool)
	pageNum := cfg.FirstPage

	for {
		if len(visited) >= cfg.MaxPages {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyPages, cfg.MaxPages)
		}
		visited[pageNum] = true

		page, err := fetcher.FetchPage(ctx, pageNum)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", pageNum, err)
		}

		items = append(items, page.Results...)

		logger.Debug().
			Int("page", pageNum).
			Int("results", len(page.Results)).
			Int("accumulated", len(items)).
			Int("count", page.Count).
			Msg("Page fetched")

		if !page.HasNext() {
			break
		}

		next, err := PageFromURL(*page.Next)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		if visited[next] {
			return nil, fmt.Errorf("%w: page %d links back to page %d", ErrPaginationLoop, pageNum, next)
		}
		pageNum = next
	}

	logger.Info().
		Int("pages", len(visited)).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}

// PageFromURL extracts the page query parameter from a next/previous link,
// e.g. "https://swapi.dev/api/starships/?page=2" yields 2.
func PageFromURL(link string) (int, error) {
	u, err := url.Parse(link)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidNextLink, link, err)
	}

	raw := u.Query().Get("page")
	if raw == "" {
		return 0, fmt.Errorf("%w: %q has no page parameter", ErrInvalidNextLink, link)
	}

	page, err := strconv.Atoi(raw)
	if err != nil || page <= 0 {
		return 0, fmt.Errorf("%w: %q has page %q", ErrInvalidNextLink, link, raw)
	}

	return page, nil
}
