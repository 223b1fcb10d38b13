package sync

import "context"

// Gate is a binary semaphore. Waiters are admitted in arrival order, and a
// waiter blocks until the gate is free rather than giving up its turn.
type Gate struct {
	slot chan struct{}
}

// NewGate returns an open gate.
func NewGate() *Gate {
	return &Gate{slot: make(chan struct{}, 1)}
}

// Acquire blocks until the gate is held by the caller or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the gate. It must only be called by the holder.
func (g *Gate) Release() {
	select {
	case <-g.slot:
	default:
		panic("sync: release of unheld gate")
	}
}
