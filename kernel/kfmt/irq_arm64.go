//go:build rpi3

package kfmt

import "raspkern/kernel/cpu"

// irqSave masks IRQs on the calling core so an interrupt handler that logs
// cannot spin on printLock while the interrupted code holds it.
func irqSave() uint64 {
	flags := cpu.ReadDAIF()
	cpu.MaskIRQ()
	return flags
}

func irqRestore(flags uint64) {
	if !cpu.IRQMasked(flags) {
		cpu.UnmaskIRQ()
	}
}
