/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import "sync"

// ResponseSink receives keyed results from KeyedHandler.
// AddResponse is called concurrently from several goroutines.
// AddResponse must not call KeyedHandler.Stop(true) synchronously: the graceful stop waits for it to return.
type ResponseSink[K comparable, T any] interface {
	AddResponse(key K, result Result[T])
}

// ResponseSinkFunc is an adapter to allow the use of ordinary functions as ResponseSink.
type ResponseSinkFunc[K comparable, T any] func(key K, result Result[T])

// AddResponse is a part of ResponseSink interface.
func (f ResponseSinkFunc[K, T]) AddResponse(key K, result Result[T]) {
	f(key, result)
}

// ResponseQueue is an unbounded FIFO ResponseSink that may be consumed from any goroutine.
type ResponseQueue[K comparable, T any] struct {
	mu    sync.Mutex
	items []KeyedResult[K, T]
}

var _ ResponseSink[string, struct{}] = (*ResponseQueue[string, struct{}])(nil)

// NewResponseQueue creates a new empty ResponseQueue.
func NewResponseQueue[K comparable, T any]() *ResponseQueue[K, T] {
	return &ResponseQueue[K, T]{}
}

// AddResponse appends a keyed result to the queue.
func (q *ResponseQueue[K, T]) AddResponse(key K, result Result[T]) {
	q.mu.Lock()
	q.items = append(q.items, KeyedResult[K, T]{Key: key, Result: result})
	q.mu.Unlock()
}

// HasResponse reports whether there is anything to consume.
func (q *ResponseQueue[K, T]) HasResponse() bool {
	return q.Len() != 0
}

// Consume removes and returns the oldest keyed result.
func (q *ResponseQueue[K, T]) Consume() (KeyedResult[K, T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return KeyedResult[K, T]{}, false
	}
	item := q.items[0]
	q.items[0] = KeyedResult[K, T]{}
	q.items = q.items[1:]
	return item, true
}

// ConsumeAll removes and returns all keyed results in arrival order.
func (q *ResponseQueue[K, T]) ConsumeAll() []KeyedResult[K, T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of keyed results waiting to be consumed.
func (q *ResponseQueue[K, T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
