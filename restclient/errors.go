/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/acronis/go-asyncrest/httpclient"
)

// ErrorKind classifies failed results.
type ErrorKind int

// Error kinds.
const (
	// ErrorKindRemoteStatus means the remote server responded with a non-2xx status code.
	ErrorKindRemoteStatus ErrorKind = iota + 1

	// ErrorKindTransportUnreachable means the remote server couldn't be reached
	// (connection refused, DNS failure, timeout).
	ErrorKindTransportUnreachable

	// ErrorKindInternal covers everything else: encoding and decoding failures,
	// interrupted waits, misuse of the client.
	ErrorKindInternal
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindRemoteStatus:
		return "remote_status"
	case ErrorKindTransportUnreachable:
		return "transport_unreachable"
	case ErrorKindInternal:
		return "internal"
	}
	return "none"
}

var (
	// ErrInvalidConfig is returned when the client configuration is inconsistent.
	ErrInvalidConfig = errors.New("invalid client configuration")

	// ErrClientClosed is the cause of failures of requests submitted to a closed client.
	ErrClientClosed = errors.New("client is closed")

	// ErrHandlerStopped is returned when a request is enqueued into a stopped KeyedHandler.
	ErrHandlerStopped = errors.New("keyed handler is stopped")
)

// Error describes a failed request.
type Error struct {
	Kind ErrorKind

	// StatusCode is set only for ErrorKindRemoteStatus.
	StatusCode int

	Message string
	Inner   error
}

func (e *Error) Error() string {
	if e.Kind == ErrorKindRemoteStatus {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the next error in the error chain.
func (e *Error) Unwrap() error {
	return e.Inner
}

// AccessError is returned when a Result is read from the wrong side,
// e.g. the value of a failed result is requested.
type AccessError struct {
	Message string
}

func (e *AccessError) Error() string {
	return e.Message
}

// Kind always returns ErrorKindInternal since reading the wrong side of a Result is a misuse.
func (e *AccessError) Kind() ErrorKind {
	return ErrorKindInternal
}

var (
	errValueOfFailure    = &AccessError{Message: "success result is only available for successful responses"}
	errMessageOfSuccess  = &AccessError{Message: "error message is only available for failed responses"}
	errStatusOfNonRemote = &AccessError{Message: "status code is only available for remote status failures"}
)

// classifyError maps an error returned by the transport or the codec to an Error.
func classifyError(err error) *Error {
	var resErr *Error
	if errors.As(err, &resErr) {
		return resErr
	}
	var statusErr *httpclient.RemoteStatusError
	if errors.As(err, &statusErr) {
		return &Error{
			Kind:       ErrorKindRemoteStatus,
			StatusCode: statusErr.StatusCode,
			Message:    statusErr.Message,
			Inner:      err,
		}
	}
	var transportErr *httpclient.TransportError
	if errors.As(err, &transportErr) {
		return &Error{Kind: ErrorKindTransportUnreachable, Message: transportErr.Error(), Inner: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrorKindInternal, Message: "request was interrupted: " + err.Error(), Inner: err}
	}
	return &Error{Kind: ErrorKindInternal, Message: err.Error(), Inner: err}
}
