package gate

// Syndrome is the value of ESR_EL1 describing a synchronous exception.
type Syndrome uint64

// Exception classes decoded by the dispatcher.
const (
	ClassUnknown         = 0x00
	ClassSVC64           = 0x15
	ClassInstrAbortLower = 0x20
	ClassInstrAbortSame  = 0x21
	ClassPCAlignment     = 0x22
	ClassDataAbortLower  = 0x24
	ClassDataAbortSame   = 0x25
	ClassSPAlignment     = 0x26
	ClassSError          = 0x2f
	ClassBreakpointLower = 0x30
	ClassBreakpointSame  = 0x31
	ClassBRK64           = 0x3c
)

// Class returns the exception class (ESR_EL1.EC).
func (s Syndrome) Class() uint8 {
	return uint8((s >> 26) & 0x3f)
}

// Wide returns true if the trapped instruction was 32 bits wide (ESR_EL1.IL).
func (s Syndrome) Wide() bool {
	return (s>>25)&1 == 1
}

// ISS returns the instruction specific syndrome field.
func (s Syndrome) ISS() uint32 {
	return uint32(s & 0x1ffffff)
}

// Describe returns a short description of the exception class.
func (s Syndrome) Describe() string {
	switch s.Class() {
	case ClassSVC64:
		return "SVC instruction execution"
	case ClassInstrAbortLower:
		return "instruction abort from lower EL"
	case ClassInstrAbortSame:
		return "instruction abort at current EL"
	case ClassPCAlignment:
		return "PC alignment fault"
	case ClassDataAbortLower:
		return "data abort from lower EL"
	case ClassDataAbortSame:
		return "data abort at current EL"
	case ClassSPAlignment:
		return "SP alignment fault"
	case ClassSError:
		return "SError interrupt"
	case ClassBreakpointLower, ClassBreakpointSame, ClassBRK64:
		return "breakpoint"
	default:
		return "unknown exception class"
	}
}

// Recognized returns true for the classes the kernel knows how to report
// with a fault address.
func (s Syndrome) Recognized() bool {
	switch s.Class() {
	case ClassSVC64, ClassInstrAbortLower, ClassInstrAbortSame, ClassDataAbortLower, ClassDataAbortSame:
		return true
	}
	return false
}

// IsAbort returns true for instruction and data aborts.
func (s Syndrome) IsAbort() bool {
	switch s.Class() {
	case ClassInstrAbortLower, ClassInstrAbortSame, ClassDataAbortLower, ClassDataAbortSame:
		return true
	}
	return false
}
