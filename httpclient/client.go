/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/acronis/go-asyncrest/log"
)

const defaultKeepAlive = 30 * time.Second

// CloneHTTPRequest creates a shallow copy of the request along with a deep copy of the Headers.
func CloneHTTPRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = req.Header.Clone()
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	return r
}

// Opts provides options for NewWithOpts and MustWithOpts functions.
type Opts struct {
	// ConnectTimeout bounds establishing of a TCP connection. Zero means no timeout.
	// Ignored when Delegate is set.
	ConnectTimeout time.Duration

	// ReadTimeout bounds waiting for response headers after the request is written. Zero means no timeout.
	// Ignored when Delegate is set.
	ReadTimeout time.Duration

	// UserAgent overrides Config.UserAgent.
	UserAgent string

	// Delegate is the innermost RoundTripper in the chain.
	// A clone of http.DefaultTransport is used by default.
	Delegate http.RoundTripper

	// Logger is used by the logging round tripper.
	Logger log.FieldLogger

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// RequestIDProvider is a function that provides a request ID.
	RequestIDProvider func(ctx context.Context) string

	// Collector is a metrics collector. Metrics are not collected if it's nil.
	Collector MetricsCollector
}

// New creates an http.Client with round trippers enabled by cfg.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates an http.Client with round trippers enabled by cfg:
// logging, metrics, rate limiting, user agent and request id.
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	delegate := opts.Delegate
	if delegate == nil {
		delegate = newBaseTransport(opts.ConnectTimeout, opts.ReadTimeout)
	}

	if cfg.Logger.Enabled {
		logOpts := cfg.Logger.TransportOpts()
		logOpts.Logger = opts.Logger
		logOpts.LoggerProvider = opts.LoggerProvider
		delegate = NewLoggingRoundTripperWithOpts(delegate, logOpts)
	}

	if cfg.Metrics.Enabled && opts.Collector != nil {
		delegate = NewMetricsRoundTripper(delegate, opts.Collector)
	}

	if cfg.RateLimits.Enabled {
		rl, err := NewRateLimitingRoundTripperWithOpts(delegate, cfg.RateLimits.Limit, cfg.RateLimits.TransportOpts())
		if err != nil {
			return nil, fmt.Errorf("create rate limiting round tripper: %w", err)
		}
		delegate = rl
	}

	userAgent := cfg.UserAgent
	if opts.UserAgent != "" {
		userAgent = opts.UserAgent
	}
	if userAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, userAgent)
	}

	delegate = NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{
		RequestIDProvider: opts.RequestIDProvider,
	})

	return &http.Client{Transport: delegate}, nil
}

// MustWithOpts is like NewWithOpts but panics if any error occurs.
func MustWithOpts(cfg *Config, opts Opts) *http.Client {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		panic(err)
	}
	return client
}

func newBaseTransport(connectTimeout, readTimeout time.Duration) *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: defaultKeepAlive}
	tr.DialContext = dialer.DialContext
	tr.ResponseHeaderTimeout = readTimeout
	return tr
}
