/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"errors"
	"fmt"
	"sync"

	"github.com/acronis/go-asyncrest/httpclient"
	"github.com/acronis/go-asyncrest/internal/admission"
	"github.com/acronis/go-asyncrest/internal/libinfo"
	"github.com/acronis/go-asyncrest/log"
)

// ClientOpts contains optional parameters for constructing Client.
type ClientOpts struct {
	// Logger is used for logging of the request pipeline. Logging is disabled by default.
	Logger log.FieldLogger

	// Transport executes requests. By default, httpclient.HTTPTransport is built from Config.Transport
	// with Config.ConnectTimeout and Config.ReadTimeout.
	Transport httpclient.Transport

	// Codec encodes request bodies and decodes response bodies. JSONCodec is used by default.
	Codec Codec

	// MetricsCollector collects metrics of the request pipeline. Metrics are not collected by default.
	MetricsCollector MetricsCollector

	// HTTPMetricsCollector is passed to the default transport when Config.Transport.Metrics is enabled.
	HTTPMetricsCollector httpclient.MetricsCollector

	// UserAgent overrides Config.Transport.UserAgent for the default transport.
	// If neither is set, "go-asyncrest/<version>" is used.
	UserAgent string
}

// Stats is a snapshot of the client's admission state.
type Stats struct {
	// MaxConcurrent is the permit pool capacity. For an unbounded client it's admission.UnboundedPermits.
	MaxConcurrent int64
	InFlight      int64
	Available     int64
	Unprocessed   int64
}

type stopper interface {
	Stop(gracefully bool) error
}

// Client submits requests asynchronously, bounding the number of in-flight requests.
type Client struct {
	cfg         Config
	logger      log.FieldLogger
	transport   httpclient.Transport
	codec       Codec
	metrics     MetricsCollector
	permits     *admission.PermitPool
	pacer       *admission.Pacer
	unprocessed *admission.Gauge

	mu       sync.RWMutex
	closed   bool
	tasks    sync.WaitGroup
	handlers map[stopper]struct{}
}

// NewClient creates a new Client.
func NewClient(cfg *Config) (*Client, error) {
	return NewClientWithOpts(cfg, ClientOpts{})
}

// NewClientWithOpts creates a new Client with an ability to specify different optional parameters.
func NewClientWithOpts(cfg *Config, opts ClientOpts) (*Client, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	permits, err := admission.NewPermitPool(cfg.MaxConcurrentRequests)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	unprocessed := &admission.Gauge{}
	pacer, err := admission.NewPacer(cfg.MaxConcurrentRequests, cfg.PacingDelay, unprocessed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}

	c := &Client{
		cfg:         *cfg,
		logger:      opts.Logger,
		transport:   opts.Transport,
		codec:       opts.Codec,
		metrics:     opts.MetricsCollector,
		permits:     permits,
		pacer:       pacer,
		unprocessed: unprocessed,
		handlers:    make(map[stopper]struct{}),
	}
	if c.logger == nil {
		c.logger = log.NewDisabledLogger()
	}
	if c.codec == nil {
		c.codec = JSONCodec{}
	}
	if c.metrics == nil {
		c.metrics = disabledMetrics{}
	}
	if c.transport == nil {
		userAgent := opts.UserAgent
		if userAgent == "" && c.cfg.Transport.UserAgent == "" {
			userAgent = libinfo.UserAgent()
		}
		if c.transport, err = httpclient.NewHTTPTransportWithOpts(&c.cfg.Transport, httpclient.Opts{
			ConnectTimeout: cfg.ConnectTimeout,
			ReadTimeout:    cfg.ReadTimeout,
			UserAgent:      userAgent,
			Logger:         c.logger,
			Collector:      opts.HTTPMetricsCollector,
		}); err != nil {
			return nil, fmt.Errorf("create http transport: %w", err)
		}
	}

	c.logger.Info("rest client created",
		log.Int("max_concurrent_requests", cfg.MaxConcurrentRequests),
		log.Duration("pacing_delay", cfg.PacingDelay),
		log.Duration("connect_timeout", cfg.ConnectTimeout),
		log.Duration("read_timeout", cfg.ReadTimeout))
	return c, nil
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Stats returns a snapshot of the client's admission state.
func (c *Client) Stats() Stats {
	return Stats{
		MaxConcurrent: c.permits.Max(),
		InFlight:      c.permits.InFlight(),
		Available:     c.permits.Available(),
		Unprocessed:   c.unprocessed.Load(),
	}
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close stops accepting new requests and stops keyed handlers created on top of the client.
// If gracefully is true, it also waits until handlers drain their queues and all submitted requests finish.
// Otherwise, outstanding requests keep running in the background.
func (c *Client) Close(gracefully bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	handlers := make([]stopper, 0, len(c.handlers))
	for h := range c.handlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	c.logger.Info("closing rest client", log.Bool("gracefully", gracefully), log.Int("keyed_handlers", len(handlers)))

	var errs []error
	for _, h := range handlers {
		if err := h.Stop(gracefully); err != nil {
			errs = append(errs, err)
		}
	}
	if gracefully {
		c.tasks.Wait()
	}
	return errors.Join(errs...)
}

// beginTask registers a new transport task. It returns false if the client is closed.
func (c *Client) beginTask() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	c.tasks.Add(1)
	return true
}

func (c *Client) registerHandler(h stopper) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	c.handlers[h] = struct{}{}
	return nil
}

func (c *Client) unregisterHandler(h stopper) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, h)
}
