// Package timer counts local timer interrupts and offers coarse sleeps
// based on the tick count.
package timer

import (
	"raspkern/kernel"
	"raspkern/kernel/cpu"
	"raspkern/kernel/irq"
	"raspkern/kernel/kfmt"
	"sync/atomic"
)

const (
	// DefaultIntervalUs is the default tick period in microseconds.
	DefaultIntervalUs = 10000

	// logEvery controls how often a tick is reported.
	logEvery = 100
)

// Controller is the subset of the interrupt controller used by the timer.
type Controller interface {
	RegisterHandler(irq.Source, irq.Handler) *kernel.Error
	ConfigurePeriodicTimer(interval uint32) *kernel.Error
}

var (
	ticks      uint64
	intervalUs uint64 = DefaultIntervalUs

	// yieldFn is mocked by tests.
	yieldFn = cpu.Yield
)

// Init registers the tick handler with ctrl and programs a periodic local
// timer interrupt every intervalUs microseconds.
func Init(ctrl Controller, interval uint32) *kernel.Error {
	kfmt.Printf("[timer] initializing timer system\n")

	if err := ctrl.RegisterHandler(irq.Timer, tick); err != nil {
		return err
	}

	if err := ctrl.ConfigurePeriodicTimer(interval); err != nil {
		return err
	}

	atomic.StoreUint64(&intervalUs, uint64(interval))
	kfmt.Printf("[timer] timer system initialized\n")
	return nil
}

// tick is the timer interrupt handler.
func tick() {
	n := atomic.AddUint64(&ticks, 1)
	if n%logEvery == 0 {
		kfmt.Printf("[timer] tick: %d\n", n)
	}
}

// Ticks returns the number of timer interrupts serviced so far.
func Ticks() uint64 {
	return atomic.LoadUint64(&ticks)
}

// IntervalUs returns the configured tick period.
func IntervalUs() uint64 {
	return atomic.LoadUint64(&intervalUs)
}

// SleepTicks spins until n more ticks have been counted. It never returns
// if the timer interrupt is not being delivered to some core.
func SleepTicks(n uint64) {
	start := Ticks()
	for Ticks()-start < n {
		yieldFn()
	}
}

// SleepMillis sleeps for approximately ms milliseconds, rounded down to a
// whole number of ticks.
func SleepMillis(ms uint64) {
	if n := ms * 1000 / IntervalUs(); n > 0 {
		SleepTicks(n)
	}
}
