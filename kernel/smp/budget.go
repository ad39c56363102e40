package smp

import "raspkern/kernel/cpu"

// Default budgets. Iteration budgets depend on the core clock and are only
// approximate; use a counter-based budget when a calibrated duration is
// required.
const (
	DefaultWakeIterations     = 1000000
	DefaultReadyIterations    = 5000000
	DefaultShutdownIterations = 1000000
)

var (
	// These functions are mocked by tests.
	counterFn     = cpu.Counter
	counterFreqFn = cpu.CounterFrequency
	spinHintFn    = cpu.Yield
)

// Budget bounds a busy-wait loop. When CounterTicks is non-zero the wait is
// bounded by the architectural system counter; otherwise it is bounded by
// Iterations polls.
type Budget struct {
	Iterations   uint64
	CounterTicks uint64
}

// IterationBudget returns a budget of n polls.
func IterationBudget(n uint64) Budget {
	return Budget{Iterations: n}
}

// MicrosBudget returns a budget of us microseconds measured on the system
// counter.
func MicrosBudget(us uint64) Budget {
	ticks := us * counterFreqFn() / 1000000
	if ticks == 0 {
		ticks = 1
	}
	return Budget{CounterTicks: ticks}
}

// Spin polls done until it returns true or the budget runs out. It returns
// the final result of done.
func (b Budget) Spin(done func() bool) bool {
	if b.CounterTicks != 0 {
		start := counterFn()
		for counterFn()-start < b.CounterTicks {
			if done() {
				return true
			}
			spinHintFn()
		}
		return done()
	}

	for i := uint64(0); i < b.Iterations; i++ {
		if done() {
			return true
		}
		spinHintFn()
	}
	return done()
}
