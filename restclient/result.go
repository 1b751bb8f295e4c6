/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

// Result is the outcome of a request: either a success with a decoded value of type T
// or a failure described by an Error.
// The zero Result is a success with the zero value.
type Result[T any] struct {
	value T
	err   *Error
}

// Success makes a successful Result.
func Success[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Failure makes a failed Result of the given kind.
// Use RemoteStatusFailure for failures carrying an HTTP status code.
func Failure[T any](kind ErrorKind, message string) Result[T] {
	return Result[T]{err: &Error{Kind: kind, Message: message}}
}

// RemoteStatusFailure makes a failed Result of ErrorKindRemoteStatus kind.
func RemoteStatusFailure[T any](statusCode int, message string) Result[T] {
	return Result[T]{err: &Error{Kind: ErrorKindRemoteStatus, StatusCode: statusCode, Message: message}}
}

// FailureFromError makes a failed Result by classifying err:
// *httpclient.RemoteStatusError becomes ErrorKindRemoteStatus, *httpclient.TransportError becomes
// ErrorKindTransportUnreachable, anything else becomes ErrorKindInternal.
// A nil err gives a successful Result with the zero value.
func FailureFromError[T any](err error) Result[T] {
	if err == nil {
		return Result[T]{}
	}
	return Result[T]{err: classifyError(err)}
}

// IsSuccess reports whether the request succeeded.
func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

// IsFailure reports whether the request failed.
func (r Result[T]) IsFailure() bool {
	return r.err != nil
}

// IsRemoteStatus reports whether the request failed because of a non-2xx response.
func (r Result[T]) IsRemoteStatus() bool {
	return r.err != nil && r.err.Kind == ErrorKindRemoteStatus
}

// Value returns the decoded value of a successful Result.
// For a failed Result, *AccessError is returned.
func (r Result[T]) Value() (T, error) {
	if r.err != nil {
		var zero T
		return zero, errValueOfFailure
	}
	return r.value, nil
}

// MustValue is like Value but panics with *AccessError for a failed Result.
func (r Result[T]) MustValue() T {
	v, err := r.Value()
	if err != nil {
		panic(err)
	}
	return v
}

// ErrorMessage returns the message of a failed Result.
// For a successful Result, *AccessError is returned.
func (r Result[T]) ErrorMessage() (string, error) {
	if r.err == nil {
		return "", errMessageOfSuccess
	}
	return r.err.Message, nil
}

// StatusCode returns the HTTP status code of a Result failed with ErrorKindRemoteStatus.
// For any other Result, *AccessError is returned.
func (r Result[T]) StatusCode() (int, error) {
	if !r.IsRemoteStatus() {
		return 0, errStatusOfNonRemote
	}
	return r.err.StatusCode, nil
}

// Kind returns the error kind of a failed Result, or zero for a successful one.
func (r Result[T]) Kind() ErrorKind {
	if r.err == nil {
		return 0
	}
	return r.err.Kind
}

// Err returns the error of a failed Result, or nil for a successful one.
func (r Result[T]) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}
