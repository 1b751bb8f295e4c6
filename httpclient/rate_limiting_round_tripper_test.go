/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type responseInfo struct {
	resp       *http.Response
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

func doGet(c *http.Client, url string) responseInfo {
	startedAt := time.Now()
	resp, err := c.Get(url)
	finishedAt := time.Now()
	if err == nil {
		_ = resp.Body.Close()
	}
	return responseInfo{resp, err, startedAt, finishedAt}
}

func TestNewRateLimitingRoundTripper(t *testing.T) {
	tests := []struct {
		name       string
		rateLimit  int
		opts       RateLimitingRoundTripperOpts
		wantErrMsg string
	}{
		{name: "rate limit is negative", rateLimit: -1, wantErrMsg: "rate limit must be positive"},
		{name: "rate limit is zero", rateLimit: 0, wantErrMsg: "rate limit must be positive"},
		{
			name:       "burst is negative",
			rateLimit:  1,
			opts:       RateLimitingRoundTripperOpts{Burst: -1},
			wantErrMsg: "burst must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRateLimitingRoundTripperWithOpts(http.DefaultTransport, tt.rateLimit, tt.opts)
			require.EqualError(t, err, tt.wantErrMsg)
		})
	}

	rt, err := NewRateLimitingRoundTripper(http.DefaultTransport, 10)
	require.NoError(t, err)
	require.Equal(t, DefaultRateLimitingBurst, rt.Burst)
	require.Equal(t, DefaultRateLimitingWaitTimeout, rt.WaitTimeout)
}

func TestRateLimitingRoundTripper_RoundTrip(t *testing.T) {
	const allowedTimeDeviation = time.Millisecond * 100

	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	}))
	defer server.Close()

	makeClient := func(rateLimit int, waitTimeout time.Duration) *http.Client {
		tr, err := NewRateLimitingRoundTripperWithOpts(http.DefaultTransport, rateLimit,
			RateLimitingRoundTripperOpts{WaitTimeout: waitTimeout})
		require.NoError(t, err)
		return &http.Client{Transport: tr}
	}

	t.Run("waiting for the 2nd request is timed out", func(t *testing.T) {
		client := makeClient(1, time.Millisecond*500)

		respInfo := doGet(client, server.URL)
		require.NoError(t, respInfo.err)
		require.Equal(t, http.StatusOK, respInfo.resp.StatusCode)
		require.WithinDuration(t, respInfo.startedAt, respInfo.finishedAt, allowedTimeDeviation)

		// rate.Limiter.Wait fails fast when the reservation can't be satisfied before the deadline.
		respInfo = doGet(client, server.URL)
		var waitErr *RateLimitingWaitError
		require.ErrorAs(t, respInfo.err, &waitErr)
		require.WithinDuration(t, respInfo.startedAt, respInfo.finishedAt, allowedTimeDeviation)
	})

	t.Run("the 2nd request is throttled", func(t *testing.T) {
		client := makeClient(1, time.Second*2)

		respInfo := doGet(client, server.URL)
		require.NoError(t, respInfo.err)
		require.WithinDuration(t, respInfo.startedAt, respInfo.finishedAt, allowedTimeDeviation)

		respInfo = doGet(client, server.URL)
		require.NoError(t, respInfo.err)
		require.Equal(t, http.StatusOK, respInfo.resp.StatusCode)
		require.WithinDuration(t, respInfo.startedAt.Add(time.Second), respInfo.finishedAt, allowedTimeDeviation)
	})

	t.Run("concurrent requests are spread in time", func(t *testing.T) {
		const rateLimit = 4
		client := makeClient(rateLimit, time.Second*2)

		startedAt := time.Now()
		var wg sync.WaitGroup
		errs := make(chan error, rateLimit)
		for i := 0; i < rateLimit; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- doGet(client, server.URL).err
			}()
		}
		wg.Wait()
		close(errs)

		require.WithinDuration(t, startedAt.Add(time.Second-time.Second/rateLimit), time.Now(), allowedTimeDeviation)
		for err := range errs {
			require.NoError(t, err)
		}
	})

	t.Run("canceled context is not reported as wait error", func(t *testing.T) {
		client := makeClient(1, time.Second*5)
		require.NoError(t, doGet(client, server.URL).err)

		ctx, cancel := context.WithCancel(context.Background())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()
		_, err = client.Do(req)
		require.ErrorIs(t, err, context.Canceled)
		var waitErr *RateLimitingWaitError
		require.False(t, errors.As(err, &waitErr))
	})
}
