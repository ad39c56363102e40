//go:build rpi3

package cpu

// Halt masks all exceptions and parks the core forever.
func Halt()

// SendEvent issues a DSB followed by SEV, waking every core parked in
// WaitForEvent.
func SendEvent()

// WaitForEvent parks the core until an event is signalled. Wake-ups may be
// spurious so callers must re-check their condition.
func WaitForEvent()

// WaitForInterrupt parks the core until an interrupt becomes pending.
func WaitForInterrupt()

// Yield hints to the core that it is executing a spin-wait loop.
func Yield()

// ReadMPIDR returns the value of MPIDR_EL1.
func ReadMPIDR() uint64

// CurrentEL returns the exception level the core is executing at.
func CurrentEL() uint8

// ReadDAIF returns the value of the DAIF interrupt mask register.
func ReadDAIF() uint64

// MaskIRQ sets the IRQ bit in DAIF.
func MaskIRQ()

// UnmaskIRQ clears the IRQ bit in DAIF.
func UnmaskIRQ()

// SetVectorBase writes addr to VBAR_EL1. The address must be 2KB aligned.
func SetVectorBase(addr uintptr)

// VectorBase returns the value of VBAR_EL1.
func VectorBase() uintptr

// ReadESR returns the value of ESR_EL1.
func ReadESR() uint64

// ReadFAR returns the value of FAR_EL1.
func ReadFAR() uint64

// Counter returns the value of the physical system counter (CNTPCT_EL0).
func Counter() uint64

// CounterFrequency returns the system counter frequency in Hz (CNTFRQ_EL0).
func CounterFrequency() uint64
