package smp

import (
	"raspkern/kernel"
	"raspkern/kernel/bootargs"
	"raspkern/kernel/cpu"
	"raspkern/kernel/mem"
	"raspkern/kernel/mmio"
)

// DefaultStackSize is the stack size reserved for each secondary core.
const DefaultStackSize = 64 * mem.Kb

// StackAllocator hands out secondary core stacks.
type StackAllocator interface {
	Allocate(size, align mem.Size) (uintptr, *kernel.Error)
}

// Config controls bring-up and shutdown.
type Config struct {
	// Cores is the number of cores to run, including the boot core.
	Cores int

	// StackSize is the stack reserved for each secondary core.
	StackSize mem.Size

	// Stacks provides the stack memory.
	Stacks StackAllocator

	// Local is the local register block hosting the wake mailboxes.
	Local mmio.Block

	// Wake bounds the wait for each core's readiness after its wake
	// signal; Ready bounds the aggregate wait; Shutdown bounds the wait
	// for each core to stop.
	Wake, Ready, Shutdown Budget
}

// DefaultConfig returns the configuration used when no boot arguments
// override it.
func DefaultConfig(stacks StackAllocator, local mmio.Block) Config {
	return Config{
		Cores:     cpu.NumCores,
		StackSize: DefaultStackSize,
		Stacks:    stacks,
		Local:     local,
		Wake:      IterationBudget(DefaultWakeIterations),
		Ready:     IterationBudget(DefaultReadyIterations),
		Shutdown:  IterationBudget(DefaultShutdownIterations),
	}
}

// ConfigFromBootArgs returns DefaultConfig adjusted by the smp.* boot
// arguments.
func ConfigFromBootArgs(stacks StackAllocator, local mmio.Block) Config {
	cfg := DefaultConfig(stacks, local)

	cfg.Cores = int(bootargs.Uint("smp.cores", uint64(cfg.Cores)))
	cfg.StackSize = mem.Size(bootargs.Uint("smp.stack_size", uint64(cfg.StackSize)))
	cfg.Wake = IterationBudget(bootargs.Uint("smp.wake_budget", DefaultWakeIterations))
	cfg.Ready = IterationBudget(bootargs.Uint("smp.ready_budget", DefaultReadyIterations))
	cfg.Shutdown = IterationBudget(bootargs.Uint("smp.shutdown_budget", DefaultShutdownIterations))

	if us := bootargs.Uint("smp.wake_timeout_us", 0); us != 0 {
		cfg.Wake = MicrosBudget(us)
		cfg.Ready = MicrosBudget(us * uint64(cpu.NumCores))
	}
	if us := bootargs.Uint("smp.shutdown_timeout_us", 0); us != 0 {
		cfg.Shutdown = MicrosBudget(us)
	}

	return cfg
}

// coreCount clamps Cores to the supported range.
func (c Config) coreCount() int {
	switch {
	case c.Cores < 1:
		return 1
	case c.Cores > cpu.NumCores:
		return cpu.NumCores
	default:
		return c.Cores
	}
}

// stackSize returns StackSize rounded up to the stack alignment, or
// DefaultStackSize when unset.
func (c Config) stackSize() mem.Size {
	if c.StackSize == 0 {
		return DefaultStackSize
	}
	return mem.Size(mem.AlignUp(uintptr(c.StackSize), stackAlign))
}
