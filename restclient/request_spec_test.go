/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestSpec_URL(t *testing.T) {
	tests := []struct {
		name    string
		builder *RequestSpecBuilder
		wantURL string
	}{
		{
			name:    "base only",
			builder: NewRequestSpec("http://h"),
			wantURL: "http://h",
		},
		{
			name:    "path and query",
			builder: NewRequestSpec("http://h").WithPath("a", "b").WithQueryParam("q", "1"),
			wantURL: "http://h/a/b?q=1",
		},
		{
			name:    "base with trailing slash",
			builder: NewRequestSpec("http://h/api/").WithPath("users"),
			wantURL: "http://h/api/users",
		},
		{
			name: "query params are sorted and escaped",
			builder: NewRequestSpec("http://h").WithQueryParams(map[string]string{
				"z":     "last",
				"a b":   "x&y",
				"limit": "10",
			}),
			wantURL: "http://h?a+b=x%26y&limit=10&z=last",
		},
		{
			name:    "last write wins",
			builder: NewRequestSpec("http://h").WithQueryParam("q", "1").WithQueryParam("q", "2"),
			wantURL: "http://h?q=2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := tt.builder.Build()
			require.NoError(t, err)
			require.Equal(t, tt.wantURL, spec.URL())
		})
	}
}

func TestRequestSpec_Headers(t *testing.T) {
	spec := NewRequestSpec("http://h").
		WithHeader("x-tenant-id", "42").
		WithHeaders(map[string]string{"accept": "application/json"}).
		MustBuild()

	require.Equal(t, map[string]string{"X-Tenant-Id": "42", "Accept": "application/json"}, spec.Headers())
	require.Equal(t, "42", spec.Header().Get("X-Tenant-ID"))
	require.Equal(t, "application/json", spec.Header().Get("Accept"))
}

func TestRequestSpec_Immutable(t *testing.T) {
	builder := NewRequestSpec("http://h").WithPath("a").WithQueryParam("q", "1")
	spec := builder.MustBuild()

	builder.WithPath("b").WithQueryParam("q", "2")
	spec.PathSegments()[0] = "changed"
	spec.QueryParams()["q"] = "changed"
	spec.Headers()["X"] = "changed"

	require.Equal(t, "http://h/a?q=1", spec.URL())
	require.Equal(t, []string{"a"}, spec.PathSegments())
	require.Empty(t, spec.Headers())
}

func TestRequestSpecBuilder_Errors(t *testing.T) {
	_, err := NewRequestSpec("").Build()
	require.EqualError(t, err, "base URL is required")

	_, err = NewRequestSpec("   ").WithPath("a").Build()
	require.EqualError(t, err, "base URL is required")

	require.Panics(t, func() { NewRequestSpec("").MustBuild() })
}
