package gate

// Cause identifies which of the eight exception entry points was taken.
type Cause uint8

const (
	// SyncKernel is a synchronous exception taken while running at EL1.
	SyncKernel Cause = iota

	// IRQKernel is an interrupt taken while running at EL1.
	IRQKernel

	// FIQKernel is a fast interrupt taken while running at EL1.
	FIQKernel

	// SErrorKernel is a system error taken while running at EL1.
	SErrorKernel

	// SyncUser is a synchronous exception taken from EL0.
	SyncUser

	// IRQUser is an interrupt taken from EL0.
	IRQUser

	// FIQUser is a fast interrupt taken from EL0.
	FIQUser

	// SErrorUser is a system error taken from EL0.
	SErrorUser

	numCauses
)

// numVectorSlots is the number of 128-byte entries in the vector table.
const numVectorSlots = 16

var causeNames = [numCauses]string{
	"synchronous (EL1)",
	"IRQ (EL1)",
	"FIQ (EL1)",
	"SError (EL1)",
	"synchronous (EL0)",
	"IRQ (EL0)",
	"FIQ (EL0)",
	"SError (EL0)",
}

// String implements fmt.Stringer for Cause.
func (c Cause) String() string {
	if c >= numCauses {
		return "invalid"
	}
	return causeNames[c]
}

// User returns true if the exception was taken from EL0.
func (c Cause) User() bool {
	return c >= SyncUser && c < numCauses
}

// CauseForSlot maps a vector table slot to the cause it handles. The table
// is made of four groups of four entries (sync, IRQ, FIQ, SError): current
// EL with SP_EL0, current EL with SP_ELx, lower EL in AArch64 and lower EL
// in AArch32. The first two groups are kernel causes, the last two user
// causes.
func CauseForSlot(slot uint64) (Cause, bool) {
	if slot >= numVectorSlots {
		return 0, false
	}

	kind := Cause(slot % 4)
	if slot >= 8 {
		return SyncUser + kind, true
	}
	return SyncKernel + kind, true
}
