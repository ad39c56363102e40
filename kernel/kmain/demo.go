package kmain

import (
	"raspkern/device/display"
	"raspkern/kernel/bootargs"
	"raspkern/kernel/cpu"
	"raspkern/kernel/hal"
	"raspkern/kernel/kfmt"
	"raspkern/kernel/smp"
	"raspkern/kernel/timer"
)

const (
	// DefaultDemoPeriod is the number of loop iterations per demo phase.
	DefaultDemoPeriod = 1000000

	// DefaultDemoIterations is the total length of the demo loop.
	DefaultDemoIterations = 8000000
)

// demo drives the secondary cores through compute, rebalance, idle and
// status phases from the boot core's main loop.
type demo struct {
	period, iterations uint64
	bootCounter        uint64
	display            *display.Display
}

func demoFromBootArgs(bootCounter uint64) demo {
	d := demo{
		period:      bootargs.Uint("demo.period", DefaultDemoPeriod),
		iterations:  bootargs.Uint("demo.iterations", DefaultDemoIterations),
		bootCounter: bootCounter,
		display:     hal.ActiveDisplay(),
	}
	if d.period == 0 {
		d.period = DefaultDemoPeriod
	}
	return d
}

func (d demo) run() {
	kfmt.Printf("[kmain] starting demo: %d phases\n", d.iterations/d.period)

	for counter := uint64(0); counter < d.iterations; counter++ {
		if counter%d.period != 0 {
			continue
		}

		d.phase(counter/d.period, counter)
	}

	kfmt.Printf("[kmain] demo complete\n")
}

func (d demo) phase(n, counter uint64) {
	kfmt.Printf("[kmain] phase %d (uptime %d ms, %d ticks)\n", n, d.uptimeMillis(), timer.Ticks())

	switch {
	case n == 0:
		smp.SetComputeMode()
	case n == 2:
		smp.RebalanceReport()
	case n == 4:
		smp.SetIdleMode()
	case n == 6:
		smp.PrintStatus(nil)
	case n%2 == 1:
		snap := smp.WorkloadSnapshot()
		kfmt.Printf("[kmain] workload: core1=%d core2=%d core3=%d\n", snap[1], snap[2], snap[3])
	}

	if d.display != nil {
		d.display.DrawKernelStatus(d.uptimeMillis(), timer.Ticks(), counter)
	}
}

// uptimeMillis returns the time since boot measured on the system counter.
func (d demo) uptimeMillis() uint64 {
	freq := cpu.CounterFrequency()
	if freq == 0 {
		return 0
	}
	return (cpu.Counter() - d.bootCounter) * 1000 / freq
}
