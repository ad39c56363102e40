// Package mmio provides access to memory-mapped device registers. Drivers
// never dereference register addresses themselves; they go through a Bus so
// the same driver code runs against real hardware and against the hosted
// board model.
package mmio

import (
	"sync/atomic"
	"unsafe"
)

// Bus performs 32-bit register accesses. Every access is a single aligned
// load or store that the compiler may neither elide nor reorder with other
// bus accesses.
type Bus interface {
	Read32(addr uintptr) uint32
	Write32(addr uintptr, value uint32)
}

// Direct is a Bus that accesses physical addresses directly. It is only
// usable when the address space is identity mapped.
type Direct struct{}

// Read32 loads the 32-bit register at addr.
func (Direct) Read32(addr uintptr) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(addr)))
}

// Write32 stores value to the 32-bit register at addr.
func (Direct) Write32(addr uintptr, value uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(addr)), value)
}

// DefaultBus is used by drivers that are not handed an explicit bus.
var DefaultBus Bus = Direct{}

// Block describes a contiguous register window starting at Base.
type Block struct {
	Bus  Bus
	Base uintptr
}

// NewBlock returns a Block at base on the supplied bus. A nil bus selects
// DefaultBus.
func NewBlock(bus Bus, base uintptr) Block {
	if bus == nil {
		bus = DefaultBus
	}
	return Block{Bus: bus, Base: base}
}

// Reg returns the register at the supplied byte offset inside the block.
func (b Block) Reg(offset uintptr) Register {
	return Register{bus: b.Bus, addr: b.Base + offset}
}

// Register is a single 32-bit device register.
type Register struct {
	bus  Bus
	addr uintptr
}

// Addr returns the physical address of the register.
func (r Register) Addr() uintptr { return r.addr }

// Load reads the register.
func (r Register) Load() uint32 { return r.bus.Read32(r.addr) }

// Store writes v to the register.
func (r Register) Store(v uint32) { r.bus.Write32(r.addr, v) }

// SetBits performs a read-modify-write that sets the bits in mask.
func (r Register) SetBits(mask uint32) { r.Store(r.Load() | mask) }

// ClearBits performs a read-modify-write that clears the bits in mask.
func (r Register) ClearBits(mask uint32) { r.Store(r.Load() &^ mask) }
