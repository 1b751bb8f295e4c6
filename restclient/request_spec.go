/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// RequestSpec describes where and with which headers a request is sent.
// It's immutable: accessors return copies.
type RequestSpec struct {
	baseURL     string
	path        []string
	queryParams map[string]string
	headers     map[string]string
}

// RequestSpecBuilder builds RequestSpec. Query parameters and headers keep unique keys, the last write wins.
type RequestSpecBuilder struct {
	spec RequestSpec
}

// NewRequestSpec starts building a RequestSpec for the given base URL.
func NewRequestSpec(baseURL string) *RequestSpecBuilder {
	return &RequestSpecBuilder{spec: RequestSpec{
		baseURL:     baseURL,
		queryParams: map[string]string{},
		headers:     map[string]string{},
	}}
}

// WithPath appends path segments. Segments are joined with "/" verbatim.
func (b *RequestSpecBuilder) WithPath(segments ...string) *RequestSpecBuilder {
	b.spec.path = append(b.spec.path, segments...)
	return b
}

// WithQueryParam sets a query parameter.
func (b *RequestSpecBuilder) WithQueryParam(key, value string) *RequestSpecBuilder {
	b.spec.queryParams[key] = value
	return b
}

// WithQueryParams sets several query parameters.
func (b *RequestSpecBuilder) WithQueryParams(params map[string]string) *RequestSpecBuilder {
	for k, v := range params {
		b.spec.queryParams[k] = v
	}
	return b
}

// WithHeader sets a header. Header names are canonicalized.
func (b *RequestSpecBuilder) WithHeader(key, value string) *RequestSpecBuilder {
	b.spec.headers[http.CanonicalHeaderKey(key)] = value
	return b
}

// WithHeaders sets several headers.
func (b *RequestSpecBuilder) WithHeaders(headers map[string]string) *RequestSpecBuilder {
	for k, v := range headers {
		b.WithHeader(k, v)
	}
	return b
}

// Build returns the RequestSpec. The base URL must not be empty.
func (b *RequestSpecBuilder) Build() (RequestSpec, error) {
	if strings.TrimSpace(b.spec.baseURL) == "" {
		return RequestSpec{}, errors.New("base URL is required")
	}
	return b.spec.clone(), nil
}

// MustBuild is like Build but panics on error.
func (b *RequestSpecBuilder) MustBuild() RequestSpec {
	spec, err := b.Build()
	if err != nil {
		panic(err)
	}
	return spec
}

func (s RequestSpec) clone() RequestSpec {
	res := RequestSpec{
		baseURL:     s.baseURL,
		path:        append([]string(nil), s.path...),
		queryParams: make(map[string]string, len(s.queryParams)),
		headers:     make(map[string]string, len(s.headers)),
	}
	for k, v := range s.queryParams {
		res.queryParams[k] = v
	}
	for k, v := range s.headers {
		res.headers[k] = v
	}
	return res
}

// BaseURL returns the base URL.
func (s RequestSpec) BaseURL() string {
	return s.baseURL
}

// PathSegments returns a copy of the path segments.
func (s RequestSpec) PathSegments() []string {
	return append([]string(nil), s.path...)
}

// QueryParams returns a copy of the query parameters.
func (s RequestSpec) QueryParams() map[string]string {
	return s.clone().queryParams
}

// Headers returns a copy of the headers.
func (s RequestSpec) Headers() map[string]string {
	return s.clone().headers
}

// Header returns the headers as http.Header.
func (s RequestSpec) Header() http.Header {
	h := make(http.Header, len(s.headers))
	for k, v := range s.headers {
		h.Set(k, v)
	}
	return h
}

// URL returns the full request URL: the base URL, then "/" and the path segments joined with "/",
// then "?" and percent-encoded query parameters sorted by key.
func (s RequestSpec) URL() string {
	var sb strings.Builder
	sb.WriteString(s.baseURL)
	if len(s.path) != 0 {
		if !strings.HasSuffix(s.baseURL, "/") {
			sb.WriteByte('/')
		}
		sb.WriteString(strings.Join(s.path, "/"))
	}
	if len(s.queryParams) != 0 {
		keys := make([]string, 0, len(s.queryParams))
		for k := range s.queryParams {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('?')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(s.queryParams[k]))
		}
	}
	return sb.String()
}
