/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/acronis/go-asyncrest/internal/worker"
	"github.com/acronis/go-asyncrest/log"
)

// Default values for KeyedHandlerOpts.
const (
	DefaultKeyedHandlerWorkers          = 1
	DefaultKeyedHandlerInactiveInterval = time.Second
)

// HandlerState is a lifecycle state of KeyedHandler.
type HandlerState int32

// Keyed handler states.
const (
	HandlerStateIdle HandlerState = iota
	HandlerStateRunning
	HandlerStateDraining
	HandlerStateStopped
)

// String returns the string representation of the state.
func (s HandlerState) String() string {
	switch s {
	case HandlerStateIdle:
		return "idle"
	case HandlerStateRunning:
		return "running"
	case HandlerStateDraining:
		return "draining"
	case HandlerStateStopped:
		return "stopped"
	}
	return fmt.Sprintf("HandlerState(%d)", int32(s))
}

// KeyedHandlerOpts contains optional parameters for constructing KeyedHandler.
type KeyedHandlerOpts struct {
	// Workers is the number of pollers taking pending entries from the queue. 1 by default.
	Workers int

	// InactiveInterval is how long a poller sleeps when the queue is empty. 1s by default.
	InactiveInterval time.Duration

	// Logger is used for logging. The client logger is used by default.
	Logger log.FieldLogger
}

// KeyedHandler resolves keyed handles in the background and forwards their results to a ResponseSink.
//
// Producers put handles into an unbounded queue with Enqueue (or submit requests with the verb methods).
// Each of the pollers takes one entry at a time and forwards it on a separate goroutine,
// so a slow request doesn't hold back the others. When the queue is empty, a poller sleeps for the inactive interval.
type KeyedHandler[K comparable, T any] struct {
	client *Client
	sink   ResponseSink[K, T]
	logger log.FieldLogger
	group  *worker.Group

	mu      sync.Mutex
	queue   []Entry[K, T]
	state   atomic.Int32
	pending sync.WaitGroup // enqueued entries whose results are not forwarded yet
}

// NewKeyedHandler creates a KeyedHandler on top of the client and starts its pollers.
// The handler is stopped when the client is closed.
func NewKeyedHandler[K comparable, T any](
	client *Client, sink ResponseSink[K, T], opts KeyedHandlerOpts,
) (*KeyedHandler[K, T], error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	if sink == nil {
		return nil, errors.New("response sink is required")
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("workers number cannot be negative, got %d", opts.Workers)
	}
	if opts.InactiveInterval < 0 {
		return nil, fmt.Errorf("inactive interval cannot be negative, got %s", opts.InactiveInterval)
	}
	if opts.Workers == 0 {
		opts.Workers = DefaultKeyedHandlerWorkers
	}
	if opts.InactiveInterval == 0 {
		opts.InactiveInterval = DefaultKeyedHandlerInactiveInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = client.logger
	}

	h := &KeyedHandler[K, T]{client: client, sink: sink, logger: logger}
	workers := make([]worker.Worker, opts.Workers)
	for i := range workers {
		workers[i] = worker.NewPollingWorker(worker.WorkerFunc(h.poll), opts.InactiveInterval,
			logger.With(log.Int("poller", i)))
	}
	h.group = worker.NewGroupWithOpts(workers, worker.GroupOpts{Logger: logger})

	if err := client.registerHandler(h); err != nil {
		return nil, err
	}
	h.state.Store(int32(HandlerStateRunning))
	h.group.Start()
	logger.Debug("keyed handler started",
		log.Int("workers", opts.Workers), log.Duration("inactive_interval", opts.InactiveInterval))
	return h, nil
}

// State returns the current lifecycle state.
func (h *KeyedHandler[K, T]) State() HandlerState {
	return HandlerState(h.state.Load())
}

// Pending returns the number of entries waiting in the queue.
func (h *KeyedHandler[K, T]) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Enqueue puts a keyed handle into the queue.
// ErrHandlerStopped is returned if the handler is draining or stopped.
func (h *KeyedHandler[K, T]) Enqueue(key K, handle *Handle[T]) error {
	if handle == nil {
		return errors.New("handle is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.State() != HandlerStateRunning {
		return ErrHandlerStopped
	}
	h.pending.Add(1)
	h.queue = append(h.queue, Entry[K, T]{Key: key, Handle: handle})
	return nil
}

// Get submits a GET request and enqueues its handle under the key.
func (h *KeyedHandler[K, T]) Get(ctx context.Context, key K, spec RequestSpec) error {
	return h.submit(ctx, key, VerbGet, spec, nil)
}

// Post submits a POST request and enqueues its handle under the key.
func (h *KeyedHandler[K, T]) Post(ctx context.Context, key K, spec RequestSpec, body interface{}) error {
	return h.submit(ctx, key, VerbPost, spec, body)
}

// Put submits a PUT request and enqueues its handle under the key.
func (h *KeyedHandler[K, T]) Put(ctx context.Context, key K, spec RequestSpec, body interface{}) error {
	return h.submit(ctx, key, VerbPut, spec, body)
}

// Patch submits a PATCH request and enqueues its handle under the key.
func (h *KeyedHandler[K, T]) Patch(ctx context.Context, key K, spec RequestSpec, body interface{}) error {
	return h.submit(ctx, key, VerbPatch, spec, body)
}

// Delete submits a DELETE request and enqueues its handle under the key.
func (h *KeyedHandler[K, T]) Delete(ctx context.Context, key K, spec RequestSpec) error {
	return h.submit(ctx, key, VerbDelete, spec, nil)
}

// submit holds mu from the state check until the handle is queued, so Stop never misses a submitted request.
// Submit never blocks.
func (h *KeyedHandler[K, T]) submit(ctx context.Context, key K, verb Verb, spec RequestSpec, body interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.State() != HandlerStateRunning {
		return ErrHandlerStopped
	}
	handle := Submit[T](ctx, h.client, verb, spec, body)
	h.pending.Add(1)
	h.queue = append(h.queue, Entry[K, T]{Key: key, Handle: handle})
	return nil
}

// Stop stops the handler. Enqueue fails with ErrHandlerStopped from now on.
// If gracefully is true, Stop waits until all queued entries are resolved and forwarded to the sink.
// Otherwise, queued entries are dropped and forwards in progress are abandoned.
//
// Stop(true) waits for AddResponse calls in progress, so calling it from AddResponse deadlocks.
// A sink that needs to stop the handler must do it from another goroutine.
func (h *KeyedHandler[K, T]) Stop(gracefully bool) error {
	h.mu.Lock()
	if h.State() != HandlerStateRunning {
		h.mu.Unlock()
		return nil
	}
	var dropped int
	if gracefully {
		h.state.Store(int32(HandlerStateDraining))
	} else {
		h.state.Store(int32(HandlerStateStopped))
		dropped = len(h.queue)
		for range h.queue {
			h.pending.Done()
		}
		h.queue = nil
	}
	h.mu.Unlock()

	defer h.client.unregisterHandler(h)

	if !gracefully {
		h.logger.Debug("keyed handler stopped", log.Int("dropped", dropped))
		return h.group.Stop(false)
	}

	h.pending.Wait()
	err := h.group.Stop(true)
	h.state.Store(int32(HandlerStateStopped))
	h.logger.Debug("keyed handler drained and stopped")
	return err
}

func (h *KeyedHandler[K, T]) dequeue() (Entry[K, T], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.queue) == 0 {
		return Entry[K, T]{}, false
	}
	e := h.queue[0]
	h.queue[0] = Entry[K, T]{}
	h.queue = h.queue[1:]
	return e, true
}

func (h *KeyedHandler[K, T]) poll(_ context.Context) error {
	e, ok := h.dequeue()
	if !ok {
		return worker.ErrIdle
	}
	go h.forward(e)
	return nil
}

func (h *KeyedHandler[K, T]) forward(e Entry[K, T]) {
	defer h.pending.Done()
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error(fmt.Sprintf("panic in response sink: %+v", p), log.Any("key", e.Key))
		}
	}()
	h.sink.AddResponse(e.Key, e.Handle.Resolve())
}
