// Package cpu exposes the handful of processor facilities the kernel needs:
// core identification, the event/wait instruction pair, interrupt masking,
// the exception base register and the architectural system counter.
package cpu

const (
	// NumCores is the number of cores in the BCM2837 cluster.
	NumCores = 4

	// BootCore is the index of the core that runs the boot sequence.
	BootCore = 0

	// DAIFIRQ is the IRQ mask bit in the DAIF register.
	DAIFIRQ = 1 << 7

	// StackGuard is the space reserved below a stack's guard for
	// functions that skip the stack check.
	StackGuard = 928

	// mpidrAff0Mask selects the affinity-0 field (core number) of MPIDR_EL1.
	mpidrAff0Mask = 0xff
)

var (
	// currentELFn is mocked by tests.
	currentELFn = CurrentEL

	// readMPIDRFn is mocked by tests.
	readMPIDRFn = ReadMPIDR
)

// Descriptor identifies a core. It is computed from the identification
// registers each time it is needed and never stored.
type Descriptor struct {
	// Index is the core number (0 is the boot core).
	Index uint8

	// Level is the exception level the core is currently executing at.
	Level uint8

	// MPIDR is the raw multiprocessor affinity register value.
	MPIDR uint64

	// StackTop is the stack assigned to the core by the bring-up
	// protocol. It is zero for the boot core, which runs on the stack set
	// up by the boot stub.
	StackTop uintptr

	// Boot is set for the core that runs the boot sequence.
	Boot bool
}

// IndexOf extracts the core number from an MPIDR_EL1 value.
func IndexOf(mpidr uint64) uint8 {
	return uint8(mpidr & mpidrAff0Mask)
}

// Describe builds a Descriptor for the core with the supplied MPIDR_EL1
// value. It must be invoked on that core so the exception level matches.
func Describe(mpidr uint64) Descriptor {
	index := IndexOf(mpidr)
	return Descriptor{
		Index: index,
		Level: currentELFn(),
		MPIDR: mpidr,
		Boot:  index == BootCore,
	}
}

// Self returns the Descriptor of the calling core.
func Self() Descriptor {
	return Describe(readMPIDRFn())
}

// IRQMasked returns true if the supplied DAIF value has IRQs masked.
func IRQMasked(daif uint64) bool {
	return daif&DAIFIRQ != 0
}

// StackBounds describes a stack that Go code runs on without the runtime's
// scheduler. Its fields mirror the leading words of the runtime's goroutine
// descriptor (stack.lo, stack.hi, stackguard0, stackguard1) so entry code
// can point the g register at it and have compiled function prologues
// check the stack pointer against Guard0.
type StackBounds struct {
	Lo, Hi         uintptr
	Guard0, Guard1 uintptr
}

// NewStackBounds returns the bounds of the stack spanning [lo, hi).
func NewStackBounds(lo, hi uintptr) StackBounds {
	return StackBounds{
		Lo:     lo,
		Hi:     hi,
		Guard0: lo + StackGuard,
		Guard1: lo + StackGuard,
	}
}

// Contains returns true if sp points into the stack.
func (b StackBounds) Contains(sp uintptr) bool {
	return sp > b.Lo && sp <= b.Hi
}
