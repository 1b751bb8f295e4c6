/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxErrorBodyInMessage = 512

// Transport executes a single HTTP exchange.
type Transport interface {
	// Execute sends the request and returns the response body for 2xx responses.
	// A non-2xx response is reported as *RemoteStatusError,
	// a failure to reach the remote server as *TransportError.
	Execute(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error)
}

// TransportFunc is an adapter to allow the use of ordinary functions as Transport.
type TransportFunc func(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error)

// Execute is a part of Transport interface.
func (f TransportFunc) Execute(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error) {
	return f(ctx, method, url, header, body)
}

// RemoteStatusError is returned when the remote server responds with a non-2xx status code.
type RemoteStatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *RemoteStatusError) Error() string {
	return "remote server responded with " + e.Message
}

// TransportError is returned when the remote server cannot be reached
// (connection refused, DNS failure, timeout, broken connection).
type TransportError struct {
	Method string
	URL    string
	Inner  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *TransportError) Unwrap() error {
	return e.Inner
}

// HTTPTransport is a Transport built on top of http.Client.
type HTTPTransport struct {
	client *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport that uses the given client.
// http.DefaultClient is used if client is nil.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client}
}

// NewHTTPTransportWithOpts creates a new HTTPTransport with the client built by NewWithOpts.
func NewHTTPTransportWithOpts(cfg *Config, opts Opts) (*HTTPTransport, error) {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		return nil, err
	}
	return NewHTTPTransport(client), nil
}

// Execute is a part of Transport interface.
func (t *HTTPTransport) Execute(
	ctx context.Context, method, url string, header http.Header, body []byte,
) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("make http request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.classifyError(ctx, method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.classifyError(ctx, method, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newRemoteStatusError(resp, respBody)
	}
	return respBody, nil
}

// classifyError maps an error of the HTTP exchange.
// A deadline expired before a response was read is a timeout of the exchange, so it's a TransportError.
// An explicit cancellation is returned as is.
func (t *HTTPTransport) classifyError(ctx context.Context, method, url string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return &TransportError{Method: method, URL: url, Inner: err}
		}
		return ctxErr
	}
	var waitErr *RateLimitingWaitError
	if errors.As(err, &waitErr) {
		return waitErr
	}
	return &TransportError{Method: method, URL: url, Inner: err}
}

func newRemoteStatusError(resp *http.Response, body []byte) *RemoteStatusError {
	msg := resp.Status
	if msg == "" {
		msg = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) != 0 {
		if len(trimmed) > maxErrorBodyInMessage {
			trimmed = trimmed[:maxErrorBodyInMessage]
		}
		msg += ": " + string(trimmed)
	}
	return &RemoteStatusError{StatusCode: resp.StatusCode, Message: msg, Body: body}
}
