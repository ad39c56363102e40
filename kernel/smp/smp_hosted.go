//go:build !(arm64 && rpi3)

package smp

import (
	"raspkern/kernel/cpu"
	"sync/atomic"
)

// hostedEntry is the wake vector posted by hosted builds. It stands in for
// the address of the secondary entry trampoline.
const hostedEntry uintptr = 0x80100

// zeroStackWaits counts the times the hosted trampoline found its stack top
// unpublished and had to wait.
var zeroStackWaits atomic.Uint64

func entryAddress() uintptr {
	return hostedEntry
}

// jumpToEntry models the secondary entry trampoline: it waits for the
// published stack top of core and then enters secondaryMain. Unknown entry
// vectors park the core.
func jumpToEntry(core uint8, entry uintptr) {
	if entry != hostedEntry {
		return
	}

	top := cores.stackTop(core)
	for top == 0 {
		zeroStackWaits.Add(1)
		cpu.WaitForEvent()
		top = cores.stackTop(core)
	}

	secondaryMain(core, top)
}

// lowPower returns so the goroutine modelling the core can exit.
func lowPower() {}
