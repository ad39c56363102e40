// Package sync provides the synchronization primitives shared by all cores:
// a spinlock for short critical sections and a state cell for publishing
// small values between cores.
package sync

import "sync/atomic"

// attemptsBeforeYielding is the number of failed acquisition attempts after
// which a waiting core issues a yield hint.
const attemptsBeforeYielding = 64

// Spinlock implements a lock where each core trying to acquire it busy-waits
// till the lock becomes available. Acquire has acquire semantics and Release
// has release semantics so writes made while holding the lock are visible to
// the next holder.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the calling core. Any
// attempt to re-acquire a lock already held by the same core will cause a
// deadlock.
func (l *Spinlock) Acquire() {
	archAcquireSpinlock(&l.state, attemptsBeforeYielding)
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other cores to acquire it.
// Calling Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
