/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/acronis/go-asyncrest/log"
)

// ErrGroupStopTimeoutExceeded is returned when workers don't finish within GroupOpts.GracefulStopTimeout.
var ErrGroupStopTimeoutExceeded = errors.New("worker group stop timeout exceeded")

// GroupOpts contains optional parameters for constructing Group.
type GroupOpts struct {
	Logger              log.FieldLogger
	GracefulStopTimeout time.Duration
}

// Group runs a set of workers sharing one lifecycle.
type Group struct {
	workers     []Worker
	logger      log.FieldLogger
	ctx         context.Context
	ctxCancel   context.CancelFunc
	wg          sync.WaitGroup
	startOnce   sync.Once
	stopTimeout time.Duration
}

// NewGroup creates a new Group.
func NewGroup(workers ...Worker) *Group {
	return NewGroupWithOpts(workers, GroupOpts{})
}

// NewGroupWithOpts creates a new Group with an ability to specify different optional parameters.
func NewGroupWithOpts(workers []Worker, opts GroupOpts) *Group {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	ctx, ctxCancel := context.WithCancel(context.Background())
	return &Group{
		workers:     workers,
		logger:      logger,
		ctx:         ctx,
		ctxCancel:   ctxCancel,
		stopTimeout: opts.GracefulStopTimeout,
	}
}

// Start launches every worker in its own goroutine and returns immediately.
// Errors returned by workers are logged. Calling Start more than once has no effect.
func (g *Group) Start() {
	g.startOnce.Do(func() {
		for i, w := range g.workers {
			g.wg.Add(1)
			go func(i int, w Worker) {
				defer g.wg.Done()
				if err := w.Run(g.ctx); err != nil {
					g.logger.Error("worker finished with error", log.Int("worker", i), log.Error(err))
				}
			}(i, w)
		}
	})
}

// Stop cancels the context shared by workers.
// If gracefully is true, it also waits until all workers return.
func (g *Group) Stop(gracefully bool) error {
	g.ctxCancel()
	if !gracefully {
		return nil
	}
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	if g.stopTimeout == 0 {
		<-done
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(g.stopTimeout):
		return ErrGroupStopTimeoutExceeded
	}
}

// Len returns the number of workers in the group.
func (g *Group) Len() int {
	return len(g.workers)
}
