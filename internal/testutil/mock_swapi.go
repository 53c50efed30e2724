// Package testutil provides testing utilities for the SWAPI client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockStarship is the subset of starship fields the mock serves.
type MockStarship struct {
	Name        string `json:"name"`
	Model       string `json:"model,omitempty"`
	Consumables string `json:"consumables"`
	MGLT        string `json:"MGLT"`
}

// MockResponse overrides the reply for one page.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockSWAPI is a paginated starships listing served over httptest.
type MockSWAPI struct {
	server *httptest.Server
	mu     sync.RWMutex

	pages     [][]MockStarship
	overrides map[int]MockResponse
	etags     bool

	// Tracking
	RequestCount     int
	ConditionalCount int
	Methods          []string
	PagesRequested   []int
	LastRequest      http.Header
}

// NewMockSWAPI creates a mock serving the given pages at /api/starships.
// pages[0] is page 1.
func NewMockSWAPI(pages ...[]MockStarship) *MockSWAPI {
	mock := &MockSWAPI{
		pages:     pages,
		overrides: make(map[int]MockResponse),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/starships", mock.handleStarships)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the API root, e.g. "http://127.0.0.1:41234/api/".
func (m *MockSWAPI) URL() string {
	return m.server.URL + "/api/"
}

// Close shuts down the mock server.
func (m *MockSWAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockSWAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.Methods = nil
	m.PagesRequested = nil
	m.LastRequest = nil
}

// EnableETags makes every page carry an ETag and answer If-None-Match
// with 304 Not Modified.
func (m *MockSWAPI) EnableETags() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.etags = true
}

// SetPageResponse replaces the reply for one page number.
func (m *MockSWAPI) SetPageResponse(page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[page] = resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSWAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockSWAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetPagesRequested returns the page numbers requested, in order.
func (m *MockSWAPI) GetPagesRequested() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.PagesRequested...)
}

// GetMethods returns the HTTP methods used, in order.
func (m *MockSWAPI) GetMethods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.Methods...)
}

// PageETag is the ETag the mock uses for a page when ETags are enabled.
func PageETag(page int) string {
	return fmt.Sprintf(`"page-%d"`, page)
}

func (m *MockSWAPI) handleStarships(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}

	m.mu.Lock()
	m.RequestCount++
	m.Methods = append(m.Methods, r.Method)
	m.PagesRequested = append(m.PagesRequested, page)
	m.LastRequest = r.Header.Clone()
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.ConditionalCount++
	}
	override, hasOverride := m.overrides[page]
	etags := m.etags
	m.mu.Unlock()

	if hasOverride {
		if override.Delay > 0 {
			time.Sleep(override.Delay)
		}
		for key, value := range override.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(override.StatusCode)
		if override.Body != "" {
			w.Write([]byte(override.Body))
		}
		return
	}

	if page < 1 || page > len(m.pages) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Not found"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if etags {
		etag := PageETag(page)
		w.Header().Set("ETag", etag)
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).UTC().Format(http.TimeFormat))
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(m.listing(page))
}

type listing struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []MockStarship `json:"results"`
}

func (m *MockSWAPI) listing(page int) listing {
	count := 0
	for _, p := range m.pages {
		count += len(p)
	}

	l := listing{
		Count:   count,
		Results: m.pages[page-1],
	}
	if l.Results == nil {
		l.Results = []MockStarship{}
	}
	if page < len(m.pages) {
		next := fmt.Sprintf("%sstarships/?page=%d", m.URL(), page+1)
		l.Next = &next
	}
	if page > 1 {
		prev := fmt.Sprintf("%sstarships/?page=%d", m.URL(), page-1)
		l.Previous = &prev
	}
	return l
}

// Ship is shorthand for building a MockStarship.
func Ship(name, mglt, consumables string) MockStarship {
	return MockStarship{Name: name, MGLT: mglt, Consumables: consumables}
}
