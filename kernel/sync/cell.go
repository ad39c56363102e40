package sync

import "sync/atomic"

// StateCell holds a 32-bit value that is written by one core and observed by
// others. Stores have release semantics and loads have acquire semantics.
type StateCell struct {
	value uint32
}

// Load returns the current value.
func (c *StateCell) Load() uint32 {
	return atomic.LoadUint32(&c.value)
}

// Store publishes v.
func (c *StateCell) Store(v uint32) {
	atomic.StoreUint32(&c.value, v)
}

// CompareAndSwap sets the cell to next if it currently holds old.
func (c *StateCell) CompareAndSwap(old, next uint32) bool {
	return atomic.CompareAndSwapUint32(&c.value, old, next)
}

// Transition moves the cell to next if its current value is one of from. It
// returns the value observed before the attempt and whether the move
// happened.
func (c *StateCell) Transition(next uint32, from ...uint32) (uint32, bool) {
	for {
		cur := c.Load()
		allowed := false
		for _, f := range from {
			if cur == f {
				allowed = true
				break
			}
		}

		if !allowed {
			return cur, false
		}

		if c.CompareAndSwap(cur, next) {
			return cur, true
		}
	}
}
