//go:build !(arm64 && rpi3)

package sync

import (
	"raspkern/kernel/cpu"
	"sync/atomic"
)

// yieldFn is mocked by tests.
var yieldFn = cpu.Yield

func archAcquireSpinlock(state *uint32, attemptsBeforeYielding uint32) {
	for {
		for i := uint32(0); i < attemptsBeforeYielding; i++ {
			if atomic.CompareAndSwapUint32(state, 0, 1) {
				return
			}
		}
		yieldFn()
	}
}
