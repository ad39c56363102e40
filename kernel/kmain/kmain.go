// Package kmain contains the boot sequence run by the boot core and the
// demonstration workload that exercises the secondary cores afterwards.
package kmain

import (
	"raspkern/kernel"
	"raspkern/kernel/bootargs"
	"raspkern/kernel/cpu"
	"raspkern/kernel/gate"
	"raspkern/kernel/hal"
	"raspkern/kernel/irq"
	"raspkern/kernel/kfmt"
	"raspkern/kernel/mem"
	"raspkern/kernel/mem/heap"
	"raspkern/kernel/mmio"
	"raspkern/kernel/smp"
	"raspkern/kernel/timer"
)

var (
	// These functions are mocked by tests.
	panicFn = kfmt.Panic
	haltFn  = cpu.Halt
)

// Kmain is the Go entry point of the kernel image. It is invoked by the boot
// stub on the boot core with the kernel command line.
//
// Kmain is not expected to return.
//
//go:noinline
func Kmain(cmdLine string) {
	if err := Run(cmdLine); err != nil {
		panicFn(err)
	}

	kfmt.Printf("[kmain] all work complete; halting boot core\n")
	haltFn()
}

// Run initializes the kernel subsystems in order, brings up the secondary
// cores and runs the demo sequence. It returns once the secondary cores
// have been shut down.
func Run(cmdLine string) *kernel.Error {
	bootargs.SetCmdLine(cmdLine)
	bootCounter := cpu.Counter()

	hal.DetectHardware()

	self := cpu.Self()
	kfmt.Printf("[kmain] raspkern starting on core %d at EL%d\n", self.Index, self.Level)

	heap.Kernel.Init(
		uintptr(bootargs.Uint("heap.base", uint64(heap.DefaultBase))),
		mem.Size(bootargs.Uint("heap.size", uint64(heap.DefaultSize))),
	)

	gate.Install()

	ctrl := irq.NewDefault()
	ctrl.Init()
	gate.HandleInterrupts(ctrl.Service)

	interval := uint32(bootargs.Uint("timer.interval_us", timer.DefaultIntervalUs))
	if err := timer.Init(ctrl, interval); err != nil {
		kfmt.Printf("[kmain] timer unavailable: %s\n", err.Message)
	}

	gate.SetMask(false)
	kfmt.Printf("[kmain] interrupts enabled\n")

	cfg := smp.ConfigFromBootArgs(&heap.Kernel, mmio.NewBlock(nil, irq.LocalBase))
	online, err := smp.BringUp(cfg)
	if err != nil {
		return err
	}
	kfmt.Printf("[kmain] %d cores online\n", online)

	d := demoFromBootArgs(bootCounter)
	d.run()

	smp.RequestShutdown(cfg.Shutdown)
	smp.PrintStatus(nil)
	kfmt.Printf("[kmain] heap usage: %d bytes\n", uint64(heap.Kernel.Used()))
	return nil
}
