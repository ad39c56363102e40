package irq

// Source is a logical interrupt source. The set is closed: the board only
// exposes these sources to the kernel.
type Source uint8

const (
	// Timer is the per-core local timer.
	Timer Source = iota

	// Serial is the PL011 UART.
	Serial

	// Mailbox is the per-core mailbox.
	Mailbox

	// Unknown classifies lines without a dedicated source. Handlers cannot
	// be registered for it.
	Unknown

	numSources = Unknown
)

var sourceNames = [...]string{"timer", "serial", "mailbox", "unknown"}

// String implements fmt.Stringer for Source.
func (s Source) String() string {
	if int(s) >= len(sourceNames) {
		return "invalid"
	}
	return sourceNames[s]
}

// SourceOf classifies a line.
func SourceOf(l Line) Source {
	switch l {
	case LineTimer:
		return Timer
	case LineSerial:
		return Serial
	case LineMailbox:
		return Mailbox
	default:
		return Unknown
	}
}

// Handler services one interrupt source. Handlers run with IRQs masked on
// the interrupted core and must not block.
type Handler func()

// Event describes a serviced interrupt.
type Event struct {
	Source Source
	Line   Line
}
