package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string
}

// stubFetcher serves canned pages keyed by page number.
type stubFetcher struct {
	pages     map[int]*Page[item]
	errs      map[int]error
	requested []int
}

func (s *stubFetcher) FetchPage(ctx context.Context, page int) (*Page[item], error) {
	s.requested = append(s.requested, page)
	if err, ok := s.errs[page]; ok {
		return nil, err
	}
	p, ok := s.pages[page]
	if !ok {
		return nil, fmt.Errorf("no page %d", page)
	}
	return p, nil
}

func link(page int) *string {
	s := fmt.Sprintf("https://swapi.dev/api/starships/?page=%d", page)
	return &s
}

func TestFetchAll_TwoPages(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]*Page[item]{
		1: {Count: 5, Next: link(2), Results: []item{{"CR90 corvette"}, {"Star Destroyer"}, {"Sentinel-class landing craft"}}},
		2: {Count: 5, Previous: link(1), Results: []item{{"Death Star"}, {"Millennium Falcon"}}},
	}}

	got, err := FetchAll[item](context.Background(), fetcher, DefaultConfig())
	require.NoError(t, err)

	want := []item{
		{"CR90 corvette"}, {"Star Destroyer"}, {"Sentinel-class landing craft"},
		{"Death Star"}, {"Millennium Falcon"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FetchAll() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{1, 2}, fetcher.requested)
}

func TestFetchAll_SinglePage(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]*Page[item]{
		1: {Count: 1, Results: []item{{"X-wing"}}},
	}}

	got, err := FetchAll[item](context.Background(), fetcher, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []int{1}, fetcher.requested)
}

func TestFetchAll_FollowsNonSequentialLinks(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]*Page[item]{
		1: {Next: link(4), Results: []item{{"a"}}},
		4: {Next: link(2), Results: []item{{"b"}}},
		2: {Results: []item{{"c"}}},
	}}

	got, err := FetchAll[item](context.Background(), fetcher, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []item{{"a"}, {"b"}, {"c"}}, got)
	assert.Equal(t, []int{1, 4, 2}, fetcher.requested)
}

func TestFetchAll_ErrorAbortsWithoutPartialData(t *testing.T) {
	boom := errors.New("connection reset")
	fetcher := &stubFetcher{
		pages: map[int]*Page[item]{
			1: {Next: link(2), Results: []item{{"a"}}},
		},
		errs: map[int]error{2: boom},
	}

	got, err := FetchAll[item](context.Background(), fetcher, DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

func TestFetchAll_LoopDetected(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]*Page[item]{
		1: {Next: link(2), Results: []item{{"a"}}},
		2: {Next: link(1), Results: []item{{"b"}}},
	}}

	_, err := FetchAll[item](context.Background(), fetcher, DefaultConfig())
	assert.ErrorIs(t, err, ErrPaginationLoop)
}

func TestFetchAll_MaxPages(t *testing.T) {
	pages := make(map[int]*Page[item])
	for i := 1; i <= 10; i++ {
		pages[i] = &Page[item]{Next: link(i + 1), Results: []item{{fmt.Sprint(i)}}}
	}
	fetcher := &stubFetcher{pages: pages}

	_, err := FetchAll[item](context.Background(), fetcher, Config{FirstPage: 1, MaxPages: 3})
	assert.ErrorIs(t, err, ErrTooManyPages)
	assert.Equal(t, []int{1, 2, 3}, fetcher.requested)
}

func TestFetchAll_InvalidNextLink(t *testing.T) {
	bad := "https://swapi.dev/api/starships/"
	fetcher := &stubFetcher{pages: map[int]*Page[item]{
		1: {Next: &bad, Results: []item{{"a"}}},
	}}

	_, err := FetchAll[item](context.Background(), fetcher, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidNextLink)
}

func TestFetchAll_EmptyNextTerminates(t *testing.T) {
	empty := ""
	fetcher := &stubFetcher{pages: map[int]*Page[item]{
		1: {Next: &empty, Results: []item{{"a"}}},
	}}

	got, err := FetchAll[item](context.Background(), fetcher, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPageFromURL(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		want    int
		wantErr bool
	}{
		{name: "swapi link", link: "https://swapi.dev/api/starships/?page=2", want: 2},
		{name: "legacy swapi.co link", link: "https://swapi.co/api/starships/?page=4", want: 4},
		{name: "extra params", link: "http://localhost:8080/api/starships/?format=json&page=3", want: 3},
		{name: "no page param", link: "https://swapi.dev/api/starships/", wantErr: true},
		{name: "non numeric", link: "https://swapi.dev/api/starships/?page=two", wantErr: true},
		{name: "zero", link: "https://swapi.dev/api/starships/?page=0", wantErr: true},
		{name: "unparsable", link: "://bad url", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PageFromURL(tt.link)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidNextLink)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
