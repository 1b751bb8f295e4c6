/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-asyncrest/testutil"
)

func TestHTTPTransport_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/echo":
			body, _ := io.ReadAll(r.Body)
			rw.Header().Set("X-Method", r.Method)
			rw.Header().Set("X-Content-Type", r.Header.Get("Content-Type"))
			_, _ = rw.Write(body)
		case "/missing":
			rw.WriteHeader(http.StatusNotFound)
			_, _ = rw.Write([]byte(`{"error":"not found"}`))
		case "/empty-error":
			rw.WriteHeader(http.StatusServiceUnavailable)
		case "/slow":
			time.Sleep(500 * time.Millisecond)
		default:
			rw.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	tr := NewHTTPTransport(nil)

	t.Run("2xx returns body", func(t *testing.T) {
		body, err := tr.Execute(context.Background(), http.MethodPut, server.URL+"/echo", nil, []byte(`{"a":1}`))
		require.NoError(t, err)
		require.Equal(t, `{"a":1}`, string(body))
	})

	t.Run("no content", func(t *testing.T) {
		body, err := tr.Execute(context.Background(), http.MethodDelete, server.URL+"/", nil, nil)
		require.NoError(t, err)
		require.Empty(t, body)
	})

	t.Run("non-2xx is remote status error", func(t *testing.T) {
		_, err := tr.Execute(context.Background(), http.MethodGet, server.URL+"/missing", nil, nil)
		statusErr := testutil.RequireErrorAsType[*RemoteStatusError](t, err)
		require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
		require.Equal(t, `404 Not Found: {"error":"not found"}`, statusErr.Message)
		require.Equal(t, `{"error":"not found"}`, string(statusErr.Body))
	})

	t.Run("non-2xx without body", func(t *testing.T) {
		_, err := tr.Execute(context.Background(), http.MethodGet, server.URL+"/empty-error", nil, nil)
		statusErr := testutil.RequireErrorAsType[*RemoteStatusError](t, err)
		require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
		require.Equal(t, "503 Service Unavailable", statusErr.Message)
		require.EqualError(t, err, "remote server responded with 503 Service Unavailable")
	})

	t.Run("unreachable server is transport error", func(t *testing.T) {
		url := testutil.UnreachableURL()
		_, err := tr.Execute(context.Background(), http.MethodGet, url, nil, nil)
		transportErr := testutil.RequireErrorAsType[*TransportError](t, err)
		require.Equal(t, http.MethodGet, transportErr.Method)
		require.Equal(t, url, transportErr.URL)
	})

	t.Run("read timeout is transport error", func(t *testing.T) {
		slowTr, err := NewHTTPTransportWithOpts(nil, Opts{ReadTimeout: 50 * time.Millisecond})
		require.NoError(t, err)
		_, err = slowTr.Execute(context.Background(), http.MethodGet, server.URL+"/slow", nil, nil)
		testutil.RequireErrorAsType[*TransportError](t, err)
	})

	t.Run("expired deadline is transport error", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := tr.Execute(ctx, http.MethodGet, server.URL+"/slow", nil, nil)
		transportErr := testutil.RequireErrorAsType[*TransportError](t, err)
		require.Equal(t, server.URL+"/slow", transportErr.URL)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("canceled context is returned as is", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		timer := time.AfterFunc(50*time.Millisecond, cancel)
		defer timer.Stop()
		_, err := tr.Execute(ctx, http.MethodGet, server.URL+"/slow", nil, nil)
		require.ErrorIs(t, err, context.Canceled)
		var transportErr *TransportError
		require.False(t, errors.As(err, &transportErr))
	})

	t.Run("headers are sent and json content type is set for body", func(t *testing.T) {
		var gotHeader http.Header
		hdrServer := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			gotHeader = r.Header.Clone()
		}))
		defer hdrServer.Close()

		header := http.Header{"X-Tenant": []string{"42"}}
		_, err := tr.Execute(context.Background(), http.MethodPost, hdrServer.URL, header, []byte("{}"))
		require.NoError(t, err)
		require.Equal(t, "42", gotHeader.Get("X-Tenant"))
		require.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	})
}

func TestNewWithOpts(t *testing.T) {
	var gotUserAgent, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get(RequestIDHeader)
	}))
	defer server.Close()

	cfg := NewConfig()
	cfg.UserAgent = "restload/1.0"
	cfg.Metrics.Enabled = true
	collector := NewPrometheusMetricsCollector("")

	tr, err := NewHTTPTransportWithOpts(cfg, Opts{
		Collector:         collector,
		RequestIDProvider: func(ctx context.Context) string { return "req-1" },
	})
	require.NoError(t, err)

	_, err = tr.Execute(context.Background(), http.MethodGet, server.URL, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "restload/1.0", gotUserAgent)
	require.Equal(t, "req-1", gotRequestID)

	hist := collector.Durations.WithLabelValues(DefaultRequestType, server.Listener.Addr().String(), "GET general", "200")
	testutil.RequireSamplesCountInHistogram(t, hist.(prometheus.Histogram), 1)
}
