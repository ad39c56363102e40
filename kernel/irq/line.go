package irq

// Line is an interrupt line id. Ids 0-31 live in peripheral bank 1, 32-63
// in peripheral bank 2 and 64-71 in the per-core local block.
type Line uint32

// Lines with a fixed meaning.
const (
	LineSerial  Line = 57
	LineTimer   Line = 64
	LineMailbox Line = 65

	// MaxLine is the highest valid line id.
	MaxLine Line = 71
)

type bank uint8

const (
	bankPeripheral1 bank = iota
	bankPeripheral2
	bankLocal
)

// Valid returns true if l is in the 0-71 range.
func (l Line) Valid() bool {
	return l <= MaxLine
}

// locate returns the bank owning l and the bit that represents it inside
// that bank's registers.
func (l Line) locate() (bank, uint32, bool) {
	switch {
	case l < 32:
		return bankPeripheral1, 1 << l, true
	case l < 64:
		return bankPeripheral2, 1 << (l - 32), true
	case l <= MaxLine:
		return bankLocal, 1 << (l - 64), true
	default:
		return 0, 0, false
	}
}
