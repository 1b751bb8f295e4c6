/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package admission

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// UnboundedPermits is the permit count used when no limit is configured.
const UnboundedPermits = math.MaxInt64

// PermitPool is a fair (FIFO) counting permit pool.
// available + inFlight == Max() holds at every point where no Acquire/Release is in progress.
type PermitPool struct {
	sem      *semaphore.Weighted
	max      int64
	inFlight atomic.Int64
}

// NewPermitPool creates a new PermitPool with the given limit. Zero limit means unbounded.
func NewPermitPool(limit int) (*PermitPool, error) {
	if limit < 0 {
		return nil, fmt.Errorf("permit limit should not be negative, got %d", limit)
	}
	max := int64(limit)
	if max == 0 {
		max = UnboundedPermits
	}
	return &PermitPool{sem: semaphore.NewWeighted(max), max: max}, nil
}

// Acquire blocks until a permit is available or ctx is done.
// On context cancellation no permit is consumed and ctx.Err() is returned.
func (p *PermitPool) Acquire(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.inFlight.Inc()
	return nil
}

// TryAcquire acquires a permit without blocking and reports whether it succeeded.
func (p *PermitPool) TryAcquire() bool {
	if !p.sem.TryAcquire(1) {
		return false
	}
	p.inFlight.Inc()
	return true
}

// Release returns a permit to the pool and wakes up the longest waiting acquirer.
// Releasing more permits than were acquired panics.
func (p *PermitPool) Release() {
	p.inFlight.Dec()
	p.sem.Release(1)
}

// Max returns the pool capacity (UnboundedPermits for an unbounded pool).
func (p *PermitPool) Max() int64 {
	return p.max
}

// Unbounded reports whether the pool was created without a limit.
func (p *PermitPool) Unbounded() bool {
	return p.max == UnboundedPermits
}

// InFlight returns the number of currently held permits.
func (p *PermitPool) InFlight() int64 {
	return p.inFlight.Load()
}

// Available returns the number of permits that may be acquired without blocking.
func (p *PermitPool) Available() int64 {
	return p.max - p.inFlight.Load()
}
