package docker

import "context"

// Permits is a counting pool bounding concurrent executions. It is the only
// shared mutable state between executions: each flow acquires one permit
// before launching a container and releases it exactly once on every exit
// path, giving backpressure independent of per-call timeouts.
type Permits struct {
	slots chan struct{}
}

// NewPermits creates a pool of n permits.
func NewPermits(n int) *Permits {
	return &Permits{slots: make(chan struct{}, n)}
}

// Acquire blocks until a permit is free or the context is canceled.
func (p *Permits) Acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit to the pool. It must be called exactly once per
// successful Acquire.
func (p *Permits) Release() {
	select {
	case <-p.slots:
	default:
		panic("permits: release without acquire")
	}
}

// InFlight reports how many permits are currently held.
func (p *Permits) InFlight() int {
	return len(p.slots)
}
