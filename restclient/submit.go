/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/acronis/go-asyncrest/log"
)

// Verb is an HTTP method supported by the client.
type Verb int

// Supported verbs.
const (
	VerbGet Verb = iota
	VerbPost
	VerbPut
	VerbPatch
	VerbDelete
)

// Method returns the HTTP method name.
func (v Verb) Method() string {
	switch v {
	case VerbGet:
		return http.MethodGet
	case VerbPost:
		return http.MethodPost
	case VerbPut:
		return http.MethodPut
	case VerbPatch:
		return http.MethodPatch
	case VerbDelete:
		return http.MethodDelete
	}
	return fmt.Sprintf("Verb(%d)", int(v))
}

// String returns the HTTP method name.
func (v Verb) String() string {
	return v.Method()
}

func (v Verb) valid() bool {
	return v >= VerbGet && v <= VerbDelete
}

// Get submits a GET request.
func Get[T any](ctx context.Context, c *Client, spec RequestSpec) *Handle[T] {
	return Submit[T](ctx, c, VerbGet, spec, nil)
}

// Post submits a POST request with the body encoded by the client Codec.
func Post[T any](ctx context.Context, c *Client, spec RequestSpec, body interface{}) *Handle[T] {
	return Submit[T](ctx, c, VerbPost, spec, body)
}

// Put submits a PUT request with the body encoded by the client Codec.
func Put[T any](ctx context.Context, c *Client, spec RequestSpec, body interface{}) *Handle[T] {
	return Submit[T](ctx, c, VerbPut, spec, body)
}

// Patch submits a PATCH request with the body encoded by the client Codec.
func Patch[T any](ctx context.Context, c *Client, spec RequestSpec, body interface{}) *Handle[T] {
	return Submit[T](ctx, c, VerbPatch, spec, body)
}

// Delete submits a DELETE request.
func Delete[T any](ctx context.Context, c *Client, spec RequestSpec) *Handle[T] {
	return Submit[T](ctx, c, VerbDelete, spec, nil)
}

// Submit submits a request and returns immediately.
//
// The request waits for a permit, is executed by the client transport, and its response body
// is decoded into T by the client Codec. Whatever happens, the returned Handle is resolved
// with a Result and the permit is released. ctx bounds the whole request, including waiting for a permit
// and the pacing delay.
func Submit[T any](ctx context.Context, c *Client, verb Verb, spec RequestSpec, body interface{}) *Handle[T] {
	h := newHandle[T]()

	if !verb.valid() {
		h.complete(Failure[T](ErrorKindInternal, fmt.Sprintf("unsupported verb %s", verb)))
		return h
	}
	if spec.BaseURL() == "" {
		h.complete(Failure[T](ErrorKindInternal, "request spec has no base URL"))
		return h
	}

	url := spec.URL()
	logger := c.logger.With(log.String("method", verb.Method()), log.String("url", url))

	var payload []byte
	if body != nil {
		var err error
		if payload, err = c.codec.Encode(body); err != nil {
			logger.Warn("failed to encode request body", log.Error(err))
			h.complete(Failure[T](ErrorKindInternal, "encode request body: "+err.Error()))
			return h
		}
	}

	if !c.beginTask() {
		logger.Warn("request is submitted to a closed client")
		h.complete(FailureFromError[T](ErrClientClosed))
		return h
	}
	c.unprocessed.Inc()
	c.metrics.AddUnprocessed(1)
	logger.Debug("request submitted")

	outcome := make(chan Result[T], 1)
	go func() {
		defer c.tasks.Done()
		outcome <- runTask[T](ctx, c, verb, url, spec, payload, logger)
	}()
	go h.relay(outcome, func(res Result[T]) {
		c.recordResult(logger, res.Kind(), res.Err())
	})
	return h
}

func runTask[T any](
	ctx context.Context, c *Client, verb Verb, url string, spec RequestSpec, payload []byte, logger log.FieldLogger,
) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			logger.Error(fmt.Sprintf("panic in request task: %+v", p), log.String("stack", string(stack)))
			res = Failure[T](ErrorKindInternal, fmt.Sprintf("panic: %v", p))
		}
	}()

	waitStart := time.Now()
	if err := c.permits.Acquire(ctx); err != nil {
		c.unprocessed.Dec()
		c.metrics.AddUnprocessed(-1)
		return FailureFromError[T](fmt.Errorf("wait for permit: %w", err))
	}
	defer func() {
		c.unprocessed.Dec()
		c.permits.Release()
		c.metrics.AddUnprocessed(-1)
		c.metrics.AddInFlight(-1)
	}()
	c.metrics.AddInFlight(1)
	c.metrics.ObservePermitWait(time.Since(waitStart))
	logger.Debug("permit acquired", log.Duration("permit_wait", time.Since(waitStart)))

	res = execute[T](ctx, c, verb, url, spec, payload)

	paced, err := c.pacer.Pace(ctx)
	if paced {
		c.metrics.IncPaced()
		logger.Debug("pacing delay applied", log.Duration("pacing_delay", c.pacer.Delay()))
	}
	if err != nil {
		return Failure[T](ErrorKindInternal, "pacing delay was interrupted: "+err.Error())
	}
	return res
}

func execute[T any](ctx context.Context, c *Client, verb Verb, url string, spec RequestSpec, payload []byte) Result[T] {
	respBody, err := c.transport.Execute(ctx, verb.Method(), url, spec.Header(), payload)
	if err != nil {
		return FailureFromError[T](err)
	}
	var v T
	if err = c.codec.Decode(respBody, &v); err != nil {
		return Failure[T](ErrorKindInternal, "decode response body: "+err.Error())
	}
	return Success(v)
}

func (c *Client) recordResult(logger log.FieldLogger, kind ErrorKind, err error) {
	if err == nil {
		c.metrics.IncResults(resultLabelSuccess)
		logger.Debug("request finished")
		return
	}
	c.metrics.IncResults(kind.String())
	logger.Warn("request failed", log.String("kind", kind.String()), log.Error(err))
}
