package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "endpoint without params",
			key: CacheKey{
				Endpoint: "/starships/",
			},
			want: "swapi:starships",
		},
		{
			name: "endpoint with page",
			key: CacheKey{
				Endpoint:    "starships",
				QueryParams: url.Values{"page": []string{"2"}},
			},
			want: "swapi:starships:page=2",
		},
		{
			name: "multiple query params are sorted",
			key: CacheKey{
				Endpoint: "starships",
				QueryParams: url.Values{
					"search": []string{"falcon"},
					"page":   []string{"1"},
					"format": []string{"json"},
				},
			},
			want: "swapi:starships:format=json:page=1:search=falcon",
		},
		{
			name: "empty key",
			key:  CacheKey{},
			want: "swapi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPageKey(t *testing.T) {
	if got, want := PageKey("starships", 3).String(), "swapi:starships:page=3"; got != want {
		t.Errorf("PageKey() = %v, want %v", got, want)
	}
}

// TestCacheKey_Determinism ensures same input always produces same key
func TestCacheKey_Determinism(t *testing.T) {
	key := CacheKey{
		Endpoint: "starships",
		QueryParams: url.Values{
			"search": []string{"wing"},
			"page":   []string{"1"},
		},
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if got := key.String(); got != first {
			t.Errorf("run %d = %v, want %v (not deterministic)", i, got, first)
		}
	}
}
