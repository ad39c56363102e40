package smp

import (
	"raspkern/kernel/cpu"
)

var (
	// These functions are mocked by tests.
	waitEventFn = cpu.WaitForEvent
	jumpFn      = jumpToEntry
)

// Park is run by every secondary core after reset. It sleeps until a
// non-zero wake vector shows up in the core's mailbox, clears the mailbox and
// jumps to the vector. Wake-ups are hints, so the mailbox is re-checked after
// every event.
func Park(mpidr uint64, mb Mailboxes) {
	core := cpu.IndexOf(mpidr)
	if core == cpu.BootCore || core >= cpu.NumCores {
		return
	}

	for {
		if entry := mb.Read(core); entry != 0 {
			mb.Clear(core, entry)
			jumpFn(core, uintptr(entry))
			return
		}
		waitEventFn()
	}
}
