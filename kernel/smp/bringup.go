// Package smp brings the secondary cores out of their parked state and
// drives them afterwards through a broadcast command word.
//
// BringUp runs once on the boot core. Every other core waits in Park for a
// wake vector to appear in its mailbox, switches to the stack the boot core
// published for it, installs its exception vectors and enters its run loop.
// From then on the boot core steers all secondaries with Broadcast and reads
// back their workload counters.
package smp

import (
	"raspkern/kernel"
	"raspkern/kernel/cpu"
	"raspkern/kernel/kfmt"
	"raspkern/kernel/mem"
)

// stackAlign is the AArch64 stack pointer alignment.
const stackAlign = 16

var (
	// These functions are mocked by tests.
	panicFn     = kfmt.Panic
	selfFn      = cpu.Self
	sendEventFn = cpu.SendEvent

	errAlreadyBroughtUp = &kernel.Error{Module: "smp", Message: "secondary cores were already brought up"}
	errNotBootCore      = &kernel.Error{Module: "smp", Message: "bring-up must run on the boot core"}
	errNoStacks         = &kernel.Error{Module: "smp", Message: "no stack allocator configured"}
)

// BringUp wakes the secondary cores and waits for them to report ready. It
// returns the number of online cores, including the boot core. A core that
// does not report readiness within cfg.Wake is logged and skipped; the
// remaining cores are still brought up.
//
// BringUp may only run once per boot; later calls return
// errAlreadyBroughtUp. Running out of stack memory is fatal.
func BringUp(cfg Config) (int, *kernel.Error) {
	if _, ok := cores.broughtUp.Transition(1, 0); !ok {
		kfmt.Printf("[smp] bring-up already performed; a full reset is required\n")
		return cores.onlineCount(), errAlreadyBroughtUp
	}

	self := selfFn()
	kfmt.Printf("[smp] multi-core initialization starting\n")
	kfmt.Printf("[smp] primary core %d at EL%d\n", self.Index, self.Level)
	kfmt.Printf("[smp] MPIDR_EL1: 0x%16x\n", self.MPIDR)

	if !self.Boot {
		return cores.onlineCount(), errNotBootCore
	}

	if cfg.Stacks == nil {
		return cores.onlineCount(), errNoStacks
	}

	n := cfg.coreCount()
	if !publishStacks(cfg, n) {
		return cores.onlineCount(), nil
	}

	mb := NewMailboxes(cfg.Local)
	kfmt.Printf("[smp] waking up secondary cores\n")
	for i := 1; i < n; i++ {
		if wake(uint8(i), mb, cfg.Wake) {
			kfmt.Printf("[smp] successfully woke up core %d\n", i)
		} else {
			kfmt.Printf("[smp] failed to wake up core %d\n", i)
		}
	}

	online := waitReady(n, cfg.Ready)
	cores.setOnline(online)
	kfmt.Printf("[smp] multi-core initialization complete: %d/%d cores online\n", online, n)
	return online, nil
}

// publishStacks reserves and publishes a stack for every secondary core. A
// stack is always published before the owning core's mailbox is written.
func publishStacks(cfg Config, n int) bool {
	kfmt.Printf("[smp] setting up secondary core stacks\n")
	size := cfg.stackSize()
	for i := 1; i < n; i++ {
		core := uint8(i)
		base, err := cfg.Stacks.Allocate(size, stackAlign)
		if err != nil {
			panicFn(err)
			return false
		}

		top := base + uintptr(size)
		cores.publishStack(core, base, top)
		cores.transition(core, StackAssigned, Offline)
		kfmt.Printf("[smp] core %d stack at 0x%x (%d KB)\n", i, top, uint64(size/mem.Kb))
	}
	return true
}

// wake posts the entry vector to core's mailbox, signals an event and waits
// for the core's readiness flag.
func wake(core uint8, mb Mailboxes, budget Budget) bool {
	entry := entryAddress()
	cores.transition(core, Woken, StackAssigned)

	kfmt.Printf("[smp] waking core %d with entry point 0x%x\n", core, entry)
	mb.Post(core, uint32(entry))
	sendEventFn()

	return budget.Spin(func() bool { return cores.isReady(core) })
}

// waitReady polls the aggregate readiness count of the first n cores and
// reports every increase. It returns the final count.
func waitReady(n int, budget Budget) int {
	kfmt.Printf("[smp] waiting for secondary cores to become ready\n")

	readyCount := 1
	budget.Spin(func() bool {
		if cur := cores.countReady(n); cur > readyCount {
			readyCount = cur
			kfmt.Printf("[smp] cores ready: %d/%d\n", readyCount, n)
		}
		return readyCount == n
	})
	return readyCount
}
