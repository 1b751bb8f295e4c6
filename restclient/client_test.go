/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-asyncrest/httpclient"
	"github.com/acronis/go-asyncrest/internal/admission"
	"github.com/acronis/go-asyncrest/internal/libinfo"
	"github.com/acronis/go-asyncrest/log/logtest"
	"github.com/acronis/go-asyncrest/testutil"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func newTestServer(delay time.Duration) *testutil.ConcurrencyServer {
	return testutil.NewConcurrencyServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		switch {
		case r.URL.Path == "/missing":
			rw.WriteHeader(http.StatusNotFound)
			_, _ = rw.Write([]byte(`{"error":"no such user"}`))
		case r.URL.Path == "/broken":
			_, _ = rw.Write([]byte(`{"id":`))
		case r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch:
			body, _ := io.ReadAll(r.Body)
			_, _ = rw.Write(body)
		case r.Method == http.MethodDelete:
			rw.WriteHeader(http.StatusNoContent)
		default:
			_, _ = rw.Write([]byte(`{"id":1,"name":"` + strings.TrimPrefix(r.URL.Path, "/users/") + `"}`))
		}
	}))
}

func newTestClient(t *testing.T, cfg *Config, opts ClientOpts) *Client {
	t.Helper()
	c, err := NewClientWithOpts(cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(false) })
	return c
}

func TestNewClient(t *testing.T) {
	t.Run("nil config means unbounded client", func(t *testing.T) {
		c, err := NewClient(nil)
		require.NoError(t, err)
		require.Equal(t, int64(admission.UnboundedPermits), c.Stats().MaxConcurrent)
		require.False(t, c.Closed())
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewClient(&Config{PacingDelay: time.Second})
		require.ErrorIs(t, err, ErrInvalidConfig)

		_, err = NewClient(&Config{MaxConcurrentRequests: -2})
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("invalid transport config", func(t *testing.T) {
		cfg := &Config{Transport: httpclient.Config{RateLimits: httpclient.RateLimitConfig{Enabled: true}}}
		_, err := NewClient(cfg)
		require.Error(t, err)
	})

	t.Run("creation is logged", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		newTestClient(t, &Config{MaxConcurrentRequests: 3}, ClientOpts{Logger: logRecorder})
		entry, found := logRecorder.FindEntry("rest client created")
		require.True(t, found)
		field, found := entry.FindField("max_concurrent_requests")
		require.True(t, found)
		require.Equal(t, int64(3), field.Int)
	})
}

func TestClient_ConcurrencyLimit(t *testing.T) {
	server := newTestServer(50 * time.Millisecond)
	defer server.Close()

	c := newTestClient(t, &Config{MaxConcurrentRequests: 2}, ClientOpts{})
	spec := NewRequestSpec(server.URL).WithPath("users", "u").MustBuild()

	const n = 10
	handles := make([]*Handle[user], 0, n)
	for i := 0; i < n; i++ {
		handles = append(handles, Get[user](context.Background(), c, spec))
	}
	for _, res := range ResolveAll(handles) {
		require.True(t, res.IsSuccess(), "unexpected failure: %v", res.Err())
		require.Equal(t, user{ID: 1, Name: "u"}, res.MustValue())
	}

	require.LessOrEqual(t, server.Peak(), 2)
	require.Equal(t, n, server.Total())
	require.Equal(t, Stats{MaxConcurrent: 2, InFlight: 0, Available: 2, Unprocessed: 0}, c.Stats())
}

func TestClient_Verbs(t *testing.T) {
	server := newTestServer(0)
	defer server.Close()

	c := newTestClient(t, nil, ClientOpts{})
	spec := NewRequestSpec(server.URL).WithPath("users").MustBuild()
	ctx := context.Background()

	created := Post[user](ctx, c, spec, user{ID: 2, Name: "bob"}).Resolve()
	require.Equal(t, user{ID: 2, Name: "bob"}, created.MustValue())

	replaced := Put[user](ctx, c, spec, map[string]interface{}{"id": 3, "name": nil}).Resolve()
	require.Equal(t, user{ID: 3}, replaced.MustValue())

	patched := Patch[[]byte](ctx, c, spec, []byte(`{"patched":true}`)).Resolve()
	require.Equal(t, `{"patched":true}`, string(patched.MustValue()))

	deleted := Delete[struct{}](ctx, c, spec).Resolve()
	require.True(t, deleted.IsSuccess())

	raw := Get[string](ctx, c, NewRequestSpec(server.URL).WithPath("users", "raw").MustBuild()).Resolve()
	require.Equal(t, `{"id":1,"name":"raw"}`, raw.MustValue())
}

func TestClient_Failures(t *testing.T) {
	server := newTestServer(0)
	defer server.Close()

	c := newTestClient(t, &Config{MaxConcurrentRequests: 1}, ClientOpts{})
	ctx := context.Background()

	t.Run("non-2xx is remote status", func(t *testing.T) {
		res := Get[user](ctx, c, NewRequestSpec(server.URL).WithPath("missing").MustBuild()).Resolve()
		require.True(t, res.IsRemoteStatus())
		code, err := res.StatusCode()
		require.NoError(t, err)
		require.Equal(t, http.StatusNotFound, code)
		msg, err := res.ErrorMessage()
		require.NoError(t, err)
		require.Equal(t, `404 Not Found: {"error":"no such user"}`, msg)

		_, err = res.Value()
		var accessErr *AccessError
		require.ErrorAs(t, err, &accessErr)
	})

	t.Run("unreachable server", func(t *testing.T) {
		res := Get[user](ctx, c, NewRequestSpec(testutil.UnreachableURL()).MustBuild()).Resolve()
		require.Equal(t, ErrorKindTransportUnreachable, res.Kind())
	})

	t.Run("undecodable body", func(t *testing.T) {
		res := Get[user](ctx, c, NewRequestSpec(server.URL).WithPath("broken").MustBuild()).Resolve()
		require.Equal(t, ErrorKindInternal, res.Kind())
		msg, _ := res.ErrorMessage()
		require.True(t, strings.HasPrefix(msg, "decode response body: "), msg)
	})

	t.Run("unencodable body", func(t *testing.T) {
		res := Post[user](ctx, c, NewRequestSpec(server.URL).MustBuild(), make(chan int)).Resolve()
		require.Equal(t, ErrorKindInternal, res.Kind())
		msg, _ := res.ErrorMessage()
		require.True(t, strings.HasPrefix(msg, "encode request body: "), msg)
	})

	t.Run("spec without base URL", func(t *testing.T) {
		res := Get[user](ctx, c, RequestSpec{}).Resolve()
		require.Equal(t, ErrorKindInternal, res.Kind())
	})

	t.Run("unsupported verb", func(t *testing.T) {
		res := Submit[user](ctx, c, Verb(42), NewRequestSpec(server.URL).MustBuild(), nil).Resolve()
		require.Equal(t, ErrorKindInternal, res.Kind())
	})

	t.Run("permit is released after failures", func(t *testing.T) {
		require.Equal(t, int64(1), c.Stats().Available)
		require.Equal(t, int64(0), c.Stats().Unprocessed)
	})
}

func TestClient_PanickingTransport(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, &Config{MaxConcurrentRequests: 1}, ClientOpts{
		Transport: httpclient.TransportFunc(func(context.Context, string, string, http.Header, []byte) ([]byte, error) {
			if calls.Add(1) == 1 {
				panic("boom")
			}
			return []byte(`{"id":5}`), nil
		}),
	})
	spec := NewRequestSpec("http://example.invalid").MustBuild()

	res := Get[user](context.Background(), c, spec).Resolve()
	require.Equal(t, ErrorKindInternal, res.Kind())
	msg, _ := res.ErrorMessage()
	require.Equal(t, "panic: boom", msg)

	res = Get[user](context.Background(), c, spec).Resolve()
	require.Equal(t, user{ID: 5}, res.MustValue())
}

func TestHandle_Resolve(t *testing.T) {
	server := newTestServer(20 * time.Millisecond)
	defer server.Close()

	c := newTestClient(t, nil, ClientOpts{})
	h := Get[user](context.Background(), c, NewRequestSpec(server.URL).WithPath("users", "ann").MustBuild())

	_, ready := h.TryResolve()
	require.False(t, ready)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err := h.ResolveContext(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	first := h.Resolve()
	second := h.Resolve()
	require.Equal(t, first, second)
	require.Equal(t, user{ID: 1, Name: "ann"}, first.MustValue())

	res, ready := h.TryResolve()
	require.True(t, ready)
	require.Equal(t, first, res)

	select {
	case <-h.Done():
	default:
		require.Fail(t, "done channel must be closed")
	}

	resolved := NewResolvedHandle(Success(42))
	require.Equal(t, 42, resolved.Resolve().MustValue())
}

func TestClient_Pacing(t *testing.T) {
	server := newTestServer(20 * time.Millisecond)
	defer server.Close()

	metrics := NewPrometheusMetrics("", nil)
	c := newTestClient(t, &Config{MaxConcurrentRequests: 1, PacingDelay: 200 * time.Millisecond},
		ClientOpts{MetricsCollector: metrics})
	spec := NewRequestSpec(server.URL).WithPath("users", "p").MustBuild()

	start := time.Now()
	handles := []*Handle[user]{
		Get[user](context.Background(), c, spec),
		Get[user](context.Background(), c, spec),
		Get[user](context.Background(), c, spec),
	}
	for _, res := range ResolveAll(handles) {
		require.True(t, res.IsSuccess())
	}

	// The first two requests finish while others are waiting, so each of them holds the permit for the delay.
	require.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
	testutil.RequireSamplesCountInCounter(t, metrics.Paced, 2)
}

func TestClient_PacingInterrupted(t *testing.T) {
	server := newTestServer(0)
	defer server.Close()

	c := newTestClient(t, &Config{MaxConcurrentRequests: 1, PacingDelay: 5 * time.Second}, ClientOpts{})
	spec := NewRequestSpec(server.URL).WithPath("users", "p").MustBuild()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	paced := Get[user](ctx, c, spec)
	next := Get[user](context.Background(), c, spec)

	// The first request is answered and then holds the permit for the delay since the second one is waiting.
	require.Eventually(t, func() bool { return server.Total() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int64(1), c.Stats().InFlight)

	start := time.Now()
	cancel()

	res := paced.Resolve()
	require.Equal(t, ErrorKindInternal, res.Kind())
	msg, _ := res.ErrorMessage()
	require.Equal(t, "pacing delay was interrupted: context canceled", msg)

	resolveCtx, resolveCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer resolveCancel()
	nextRes, err := next.ResolveContext(resolveCtx)
	require.NoError(t, err)
	require.True(t, nextRes.IsSuccess())
	require.Less(t, time.Since(start), 2*time.Second)

	require.Equal(t, 2, server.Total())
	require.Equal(t, Stats{MaxConcurrent: 1, InFlight: 0, Available: 1, Unprocessed: 0}, c.Stats())
}

func TestClient_ExchangeDeadline(t *testing.T) {
	server := newTestServer(500 * time.Millisecond)
	defer server.Close()

	c := newTestClient(t, &Config{MaxConcurrentRequests: 1}, ClientOpts{})
	spec := NewRequestSpec(server.URL).MustBuild()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res := Get[user](ctx, c, spec).Resolve()
	require.Equal(t, ErrorKindTransportUnreachable, res.Kind())
	testutil.RequireErrorIsAny(t, res.Err(), []error{context.DeadlineExceeded, os.ErrDeadlineExceeded})
	msg, _ := res.ErrorMessage()
	require.Contains(t, msg, "context deadline exceeded")
}

func TestClient_PermitWaitInterrupted(t *testing.T) {
	release := make(chan struct{})
	server := testutil.NewConcurrencyServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = rw.Write([]byte(`{"id":1}`))
	}))
	defer server.Close()

	c := newTestClient(t, &Config{MaxConcurrentRequests: 1}, ClientOpts{})
	spec := NewRequestSpec(server.URL).MustBuild()

	blocking := Get[user](context.Background(), c, spec)
	require.Eventually(t, func() bool { return c.Stats().InFlight == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	waiting := Get[user](ctx, c, spec)
	cancel()

	res := waiting.Resolve()
	require.Equal(t, ErrorKindInternal, res.Kind())
	msg, _ := res.ErrorMessage()
	require.Equal(t, "request was interrupted: wait for permit: context canceled", msg)
	require.ErrorIs(t, res.Err(), context.Canceled)

	close(release)
	require.True(t, blocking.Resolve().IsSuccess())
	require.Equal(t, 1, server.Total())
	require.Equal(t, int64(0), c.Stats().Unprocessed)
}

func TestClient_Metrics(t *testing.T) {
	server := newTestServer(0)
	defer server.Close()

	metrics := NewPrometheusMetrics("test", nil)
	c := newTestClient(t, &Config{MaxConcurrentRequests: 2}, ClientOpts{MetricsCollector: metrics})

	handles := []*Handle[user]{
		Get[user](context.Background(), c, NewRequestSpec(server.URL).WithPath("users", "a").MustBuild()),
		Get[user](context.Background(), c, NewRequestSpec(server.URL).WithPath("users", "b").MustBuild()),
		Get[user](context.Background(), c, NewRequestSpec(server.URL).WithPath("missing").MustBuild()),
	}
	ResolveAll(handles)

	testutil.RequireGaugeValue(t, metrics.InFlight, 0)
	testutil.RequireGaugeValue(t, metrics.Unprocessed, 0)
	testutil.RequireSamplesCountInCounter(t, metrics.Results.WithLabelValues("success"), 2)
	testutil.RequireSamplesCountInCounter(t, metrics.Results.WithLabelValues("remote_status"), 1)
	testutil.RequireSamplesCountInHistogram(t, metrics.PermitWait, 3)
	testutil.RequireSamplesCountInCounter(t, metrics.Paced, 0)
}

func TestClient_Close(t *testing.T) {
	t.Run("requests after close fail", func(t *testing.T) {
		c, err := NewClient(&Config{MaxConcurrentRequests: 1})
		require.NoError(t, err)
		require.NoError(t, c.Close(true))
		require.True(t, c.Closed())
		require.NoError(t, c.Close(true))

		res := Get[user](context.Background(), c, NewRequestSpec("http://h").MustBuild()).Resolve()
		require.Equal(t, ErrorKindInternal, res.Kind())
		msg, _ := res.ErrorMessage()
		require.Equal(t, "client is closed", msg)
		require.True(t, errors.Is(res.Err(), ErrClientClosed))
	})

	t.Run("graceful close waits for submitted requests", func(t *testing.T) {
		server := newTestServer(100 * time.Millisecond)
		defer server.Close()

		c, err := NewClient(&Config{MaxConcurrentRequests: 1})
		require.NoError(t, err)
		spec := NewRequestSpec(server.URL).WithPath("users", "x").MustBuild()
		handles := []*Handle[user]{
			Get[user](context.Background(), c, spec),
			Get[user](context.Background(), c, spec),
		}

		require.NoError(t, c.Close(true))
		require.Equal(t, 2, server.Total())
		for _, h := range handles {
			<-h.Done()
		}
	})
}

func TestClient_DefaultUserAgent(t *testing.T) {
	userAgents := make(chan string, 2)
	server := testutil.NewConcurrencyServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		userAgents <- r.Header.Get("User-Agent")
	}))
	defer server.Close()
	spec := NewRequestSpec(server.URL).MustBuild()

	c := newTestClient(t, nil, ClientOpts{})
	require.True(t, Get[[]byte](context.Background(), c, spec).Resolve().IsSuccess())
	require.Equal(t, libinfo.UserAgent(), <-userAgents)

	c = newTestClient(t, &Config{Transport: httpclient.Config{UserAgent: "users-sync/2.0"}}, ClientOpts{})
	require.True(t, Get[[]byte](context.Background(), c, spec).Resolve().IsSuccess())
	require.Equal(t, "users-sync/2.0", <-userAgents)
}
