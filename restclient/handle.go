/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"context"
	"fmt"
)

// Handle is a deferred result of a submitted request.
// It may be resolved any number of times from any number of goroutines; all of them get the same Result.
type Handle[T any] struct {
	done   chan struct{}
	result Result[T]
}

func newHandle[T any]() *Handle[T] {
	return &Handle[T]{done: make(chan struct{})}
}

// NewResolvedHandle returns a Handle that is already resolved with the given Result.
func NewResolvedHandle[T any](result Result[T]) *Handle[T] {
	h := newHandle[T]()
	h.complete(result)
	return h
}

func (h *Handle[T]) complete(result Result[T]) {
	h.result = result
	close(h.done)
}

// relay waits for the outcome of the transport task and publishes it.
// onResult is called before the Result becomes visible to waiters.
func (h *Handle[T]) relay(outcome <-chan Result[T], onResult func(Result[T])) {
	res := <-outcome
	func() {
		defer func() {
			if p := recover(); p != nil {
				res = Failure[T](ErrorKindInternal, fmt.Sprintf("panic while relaying result: %v", p))
			}
		}()
		if onResult != nil {
			onResult(res)
		}
	}()
	h.complete(res)
}

// Done returns a channel that is closed when the Result is available.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Resolve blocks until the Result is available and returns it.
func (h *Handle[T]) Resolve() Result[T] {
	<-h.done
	return h.result
}

// ResolveContext is like Resolve but stops waiting when ctx is done.
// The request itself isn't affected, the Handle may be resolved later.
func (h *Handle[T]) ResolveContext(ctx context.Context) (Result[T], error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}
}

// TryResolve returns the Result if it's already available.
func (h *Handle[T]) TryResolve() (Result[T], bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return Result[T]{}, false
	}
}
