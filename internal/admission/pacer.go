/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package admission

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// Gauge counts requests that were submitted but haven't released their permit yet.
type Gauge struct {
	v atomic.Int64
}

// Inc registers a newly submitted request.
func (g *Gauge) Inc() int64 {
	return g.v.Inc()
}

// Dec unregisters a finished request.
func (g *Gauge) Dec() int64 {
	return g.v.Dec()
}

// Load returns the current number of unprocessed requests.
func (g *Gauge) Load() int64 {
	return g.v.Load()
}

// Pacer delays permit release while demand exceeds the configured limit.
type Pacer struct {
	limit       int64
	delay       time.Duration
	unprocessed *Gauge
}

// NewPacer creates a new Pacer. A zero delay disables pacing.
// A positive delay requires a positive limit, otherwise there is nothing to pace against.
func NewPacer(limit int, delay time.Duration, unprocessed *Gauge) (*Pacer, error) {
	if delay < 0 {
		return nil, fmt.Errorf("pacing delay should not be negative, got %s", delay)
	}
	if delay > 0 && limit <= 0 {
		return nil, fmt.Errorf("pacing delay %s requires a positive limit, got %d", delay, limit)
	}
	return &Pacer{limit: int64(limit), delay: delay, unprocessed: unprocessed}, nil
}

// Enabled reports whether the pacer may ever delay.
func (p *Pacer) Enabled() bool {
	return p.delay > 0 && p.limit > 0
}

// Delay returns the configured pacing delay.
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Pace sleeps for the configured delay if the number of unprocessed requests exceeds the limit.
// It reports whether the delay was applied. If ctx is done during the delay, ctx.Err() is returned.
func (p *Pacer) Pace(ctx context.Context) (bool, error) {
	if !p.Enabled() || p.unprocessed.Load() <= p.limit {
		return false, nil
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true, nil
	case <-ctx.Done():
		return true, ctx.Err()
	}
}
