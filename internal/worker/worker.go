/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package worker provides long-running background workers: a polling loop that
// backs off for a fixed interval when there is nothing to do, and a group that
// starts several workers at once and stops them together.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/acronis/go-asyncrest/log"
)

// ErrIdle may be returned by a Worker polled by PollingWorker to signal that there was nothing to do,
// so the next iteration should be delayed.
var ErrIdle = errors.New("worker is idle")

// ErrStop may be returned by a Worker polled by PollingWorker to interrupt the polling loop.
var ErrStop = errors.New("stop polling worker")

// Worker performs some (usually long-running) work.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerFunc is an adapter to allow the use of ordinary functions as Worker.
type WorkerFunc func(ctx context.Context) error //nolint:revive

// Run is a part of Worker interface.
func (f WorkerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// PollingWorker runs the underlying worker in a loop.
// Iterations follow each other without a pause until the worker reports ErrIdle,
// after which the loop sleeps for the idle interval.
type PollingWorker struct {
	worker       Worker
	idleInterval time.Duration
	logger       log.FieldLogger
}

// NewPollingWorker creates a new instance of PollingWorker.
func NewPollingWorker(worker Worker, idleInterval time.Duration, logger log.FieldLogger) *PollingWorker {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &PollingWorker{worker: worker, idleInterval: idleInterval, logger: logger}
}

// Run runs the polling loop until ctx is done or the worker returns ErrStop.
func (pw *PollingWorker) Run(ctx context.Context) (resErr error) {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			pw.logger.Error(fmt.Sprintf("panic: %+v", p), log.String("stack", string(stack)))
			panic(p)
		}
		pw.logger.Debug("polling worker stopped")
	}()

	pw.logger.Debug("running polling worker", log.Duration("idle_interval", pw.idleInterval))

	idleTimer := time.NewTimer(0)
	if !idleTimer.Stop() {
		<-idleTimer.C
	}
	defer idleTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := pw.worker.Run(ctx)
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrStop):
			return nil
		case !errors.Is(err, ErrIdle):
			pw.logger.Error("polled worker finished with error", log.Error(err))
			continue
		}

		idleTimer.Reset(pw.idleInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-idleTimer.C:
		}
	}
}
