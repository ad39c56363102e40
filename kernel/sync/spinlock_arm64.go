//go:build rpi3

package sync

// archAcquireSpinlock spins on an exclusive load/store pair and issues a
// YIELD hint every attemptsBeforeYielding failed attempts.
func archAcquireSpinlock(state *uint32, attemptsBeforeYielding uint32)
