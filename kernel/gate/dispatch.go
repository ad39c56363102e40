// Package gate installs the exception vector table and routes every
// exception taken by a core to the handler for its cause.
package gate

import (
	"raspkern/kernel"
	"raspkern/kernel/cpu"
	"raspkern/kernel/kfmt"
	"raspkern/kernel/sync"
	"unsafe"
)

var (
	// The following functions are mocked by tests.
	panicFn         = kfmt.Panic
	readESRFn       = cpu.ReadESR
	readFARFn       = cpu.ReadFAR
	setVectorBaseFn = cpu.SetVectorBase
	readDAIFFn      = cpu.ReadDAIF
	maskIRQFn       = cpu.MaskIRQ
	unmaskIRQFn     = cpu.UnmaskIRQ
	selfFn          = cpu.Self

	// irqHandler services IRQs taken at either exception level.
	irqHandler func()

	// syscallHandler services SVC instructions issued from EL0.
	syscallHandler = defaultSyscall

	errUnhandledSync   = &kernel.Error{Module: "gate", Message: "unhandled synchronous exception"}
	errUnhandledSError = &kernel.Error{Module: "gate", Message: "unhandled SError exception"}
	errUnhandledUser   = &kernel.Error{Module: "gate", Message: "unhandled EL0 exception"}
	errInvalidSlot     = &kernel.Error{Module: "gate", Message: "exception taken through an invalid vector slot"}
)

// trapStackSize is the stack each core runs exception handlers on.
const trapStackSize = 16 * 1024

var (
	trapStacks [cpu.NumCores][trapStackSize]byte

	// trapBounds is indexed by the vector entry code with the core number
	// taken from MPIDR_EL1; entries are 32 bytes.
	trapBounds [cpu.NumCores]cpu.StackBounds

	// trapStackSet guards the one-time write of each trapBounds entry.
	trapStackSet [cpu.NumCores]sync.StateCell
)

// Install records the calling core's trap stack and points its VBAR_EL1 at
// the kernel vector table. It must run once on every core before that core
// unmasks any interrupt.
func Install() {
	core := selfFn().Index
	if _, ok := trapStackSet[core].Transition(1, 0); ok {
		lo := uintptr(unsafe.Pointer(&trapStacks[core][0]))
		trapBounds[core] = cpu.NewStackBounds(lo, (lo+trapStackSize)&^15)
	}
	setVectorBaseFn(vectorTableAddr())
}

// SetMask masks (true) or unmasks (false) IRQs on the calling core.
func SetMask(masked bool) {
	if masked {
		maskIRQFn()
		return
	}
	unmaskIRQFn()
}

// IsMasked returns true if IRQs are masked on the calling core.
func IsMasked() bool {
	return cpu.IRQMasked(readDAIFFn())
}

// HandleInterrupts registers the function that services IRQs. It must be
// called during single-threaded initialization.
func HandleInterrupts(handler func()) {
	irqHandler = handler
}

// dispatchException is invoked by the vector table entry code with the slot
// that was entered and the saved register context.
func dispatchException(slot uint64, ctx *Context) {
	cause, ok := CauseForSlot(slot)
	if !ok {
		fatal(errInvalidSlot, ctx)
		return
	}
	Dispatch(cause, ctx)
}

// Dispatch routes an exception to the handler for its cause. IRQ and FIQ
// handlers return normally. SErrors, synchronous kernel exceptions and
// unrecognized user exceptions print diagnostic context and halt.
func Dispatch(cause Cause, ctx *Context) {
	switch cause {
	case SyncKernel:
		syncKernel(ctx)
	case IRQKernel, IRQUser:
		if irqHandler != nil {
			irqHandler()
		}
	case FIQKernel, FIQUser:
		kfmt.Printf("[gate] FIQ exception %s, ELR: 0x%16x\n", cause.String(), ctx.ELR)
	case SErrorKernel, SErrorUser:
		kfmt.BeginPanic()
		kfmt.Printf("[gate] SError exception %s\n", cause.String())
		fatal(errUnhandledSError, ctx)
	case SyncUser:
		syncUser(ctx)
	default:
		fatal(errInvalidSlot, ctx)
	}
}

func syncKernel(ctx *Context) {
	kfmt.BeginPanic()
	esr := Syndrome(readESRFn())
	kfmt.Printf("[gate] synchronous exception at EL1: %s\n", esr.Describe())
	kfmt.Printf("[gate] ESR_EL1: 0x%16x\n", uint64(esr))
	if esr.IsAbort() {
		kfmt.Printf("[gate] FAR_EL1: 0x%16x\n", readFARFn())
	}
	reportClass(esr)
	fatal(errUnhandledSync, ctx)
}

func syncUser(ctx *Context) {
	esr := Syndrome(readESRFn())
	if esr.Class() == ClassSVC64 {
		syscallHandler(ctx)
		return
	}

	kfmt.BeginPanic()
	kfmt.Printf("[gate] synchronous exception from EL0: %s\n", esr.Describe())
	reportClass(esr)
	fatal(errUnhandledUser, ctx)
}

func reportClass(esr Syndrome) {
	kfmt.Printf("[gate] exception class: 0x%2x\n", esr.Class())
}

// fatal prints the saved context and halts the calling core. Output is
// best-effort from here on since the exception may have interrupted a print
// that holds the kfmt lock.
func fatal(err *kernel.Error, ctx *Context) {
	kfmt.BeginPanic()
	kfmt.Printf("[gate] ELR_EL1: 0x%16x SPSR_EL1: 0x%16x\n", ctx.ELR, ctx.SPSR)
	kfmt.Printf("[gate] registers:\n")
	ctx.DumpTo(kfmt.GetOutputSink())
	panicFn(err)
}
