//go:build rpi3

package smp

// secondaryEntryAddr returns the address of the secondary entry trampoline.
// The trampoline selects the calling core's published stack, waiting for
// it if necessary, and calls secondaryMain.
func secondaryEntryAddr() uintptr

// jumpTo branches to entry without returning.
func jumpTo(entry uintptr)

// lowPower parks the calling core in WFI forever.
func lowPower()

func entryAddress() uintptr {
	return secondaryEntryAddr()
}

func jumpToEntry(_ uint8, entry uintptr) {
	jumpTo(entry)
}
