// Package board models the BCM2837 devices the kernel drives so that
// drivers and the SMP protocol can run unmodified on a development host.
// A Board implements mmio.Bus; accesses outside the modelled register
// windows fall through to a sparse RAM.
package board

import (
	"io"
	"sync"
)

// Register window base addresses.
const (
	PeripheralIRQBase uintptr = 0x3F00B000
	LocalBase         uintptr = 0x40000000
	UARTBase          uintptr = 0x3F201000
)

const (
	offBasicPending = 0x200
	offPending1     = 0x204
	offPending2     = 0x208
	offEnable1      = 0x210
	offEnable2      = 0x214
	offEnableBasic  = 0x218
	offDisable1     = 0x21C
	offDisable2     = 0x220
	offDisableBasic = 0x224

	offTimerControl = 0x40
	offTimerClear   = 0x44
	offTimerReload  = 0x48
	offTimerValue   = 0x4C
	offLocalPending = 0x60
	offLocalEnable  = 0x64
	offLocalDisable = 0x68
	offMailboxSet   = 0x8C
	offMailboxClear = 0xCC
	mailboxStride   = 0x10

	offUARTData  = 0x00
	offUARTFlags = 0x18

	uartTXFF = 1 << 5
	uartRXFE = 1 << 4

	timerEnabled    = 1 << 28
	timerIRQEnabled = 1 << 29

	localTimerBit = 1 << 0

	// NumCores is the number of per-core mailboxes.
	NumCores = 4
)

// Board is a software model of the interrupt controller, the local block
// (timer, local interrupt enables, mailboxes) and the PL011 UART.
type Board struct {
	mu sync.Mutex

	rawBasic, raw1, raw2 uint32
	enBasic, en1, en2    uint32

	localRaw, localEn uint32
	timerControl      uint32
	timerReload       uint32
	timerValue        uint32

	mailbox [NumCores]uint32

	uartOut   io.Writer
	uartBusy  int
	uartRegs  map[uintptr]uint32
	ram       map[uintptr]uint32
	writes    uint64
	onMailbox func(core int)
}

// New returns a Board whose UART transmits to uartOut. A nil writer
// discards UART output.
func New(uartOut io.Writer) *Board {
	if uartOut == nil {
		uartOut = io.Discard
	}
	return &Board{
		uartOut:  uartOut,
		uartRegs: make(map[uintptr]uint32),
		ram:      make(map[uintptr]uint32),
	}
}

// Writes returns the number of Write32 calls the board has seen.
func (b *Board) Writes() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

// OnMailboxWrite registers a callback invoked (without the board lock held)
// whenever a core's mailbox is written through its set register.
func (b *Board) OnMailboxWrite(fn func(core int)) {
	b.mu.Lock()
	b.onMailbox = fn
	b.mu.Unlock()
}

// Read32 implements mmio.Bus.
func (b *Board) Read32(addr uintptr) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case inWindow(addr, PeripheralIRQBase, 0x1000):
		return b.readPeripheral(addr - PeripheralIRQBase)
	case inWindow(addr, LocalBase, 0x100):
		return b.readLocal(addr - LocalBase)
	case inWindow(addr, UARTBase, 0x1000):
		return b.readUART(addr - UARTBase)
	default:
		return b.ram[addr]
	}
}

// Write32 implements mmio.Bus.
func (b *Board) Write32(addr uintptr, v uint32) {
	b.mu.Lock()
	b.writes++

	var notify = -1
	switch {
	case inWindow(addr, PeripheralIRQBase, 0x1000):
		b.writePeripheral(addr-PeripheralIRQBase, v)
	case inWindow(addr, LocalBase, 0x100):
		notify = b.writeLocal(addr-LocalBase, v)
	case inWindow(addr, UARTBase, 0x1000):
		b.writeUART(addr-UARTBase, v)
	default:
		b.ram[addr] = v
	}

	cb := b.onMailbox
	b.mu.Unlock()

	if notify >= 0 && cb != nil {
		cb(notify)
	}
}

func inWindow(addr, base, size uintptr) bool {
	return addr >= base && addr < base+size
}

func (b *Board) readPeripheral(off uintptr) uint32 {
	switch off {
	case offBasicPending:
		return b.rawBasic
	case offPending1:
		return b.raw1 & b.en1
	case offPending2:
		return b.raw2 & b.en2
	case offEnable1:
		return b.en1
	case offEnable2:
		return b.en2
	case offEnableBasic:
		return b.enBasic
	}
	return 0
}

func (b *Board) writePeripheral(off uintptr, v uint32) {
	switch off {
	case offEnable1:
		b.en1 |= v
	case offEnable2:
		b.en2 |= v
	case offEnableBasic:
		b.enBasic |= v
	case offDisable1:
		b.en1 &^= v
	case offDisable2:
		b.en2 &^= v
	case offDisableBasic:
		b.enBasic &^= v
	}
}

func (b *Board) readLocal(off uintptr) uint32 {
	switch off {
	case offTimerControl:
		return b.timerControl
	case offTimerReload:
		return b.timerReload
	case offTimerValue:
		return b.timerValue
	case offLocalPending:
		return b.localRaw & b.localEn
	case offLocalEnable:
		return b.localEn
	}

	if core, ok := mailboxIndex(off, offMailboxClear); ok {
		return b.mailbox[core]
	}
	return 0
}

// writeLocal returns the index of the core whose mailbox was set or -1.
func (b *Board) writeLocal(off uintptr, v uint32) int {
	switch off {
	case offTimerControl:
		b.timerControl = v
		return -1
	case offTimerReload:
		b.timerReload = v
		b.timerValue = v
		return -1
	case offTimerClear:
		b.localRaw &^= localTimerBit
		b.timerValue = b.timerReload
		return -1
	case offLocalEnable:
		b.localEn |= v
		return -1
	case offLocalDisable:
		b.localEn &^= v
		return -1
	}

	if core, ok := mailboxIndex(off, offMailboxSet); ok {
		b.mailbox[core] |= v
		return core
	}
	if core, ok := mailboxIndex(off, offMailboxClear); ok {
		b.mailbox[core] &^= v
	}
	return -1
}

func mailboxIndex(off, base uintptr) (int, bool) {
	if off < base || off >= base+NumCores*mailboxStride || (off-base)%mailboxStride != 0 {
		return 0, false
	}
	return int((off - base) / mailboxStride), true
}

func (b *Board) readUART(off uintptr) uint32 {
	if off == offUARTFlags {
		flags := uint32(uartRXFE)
		if b.uartBusy > 0 {
			b.uartBusy--
			flags |= uartTXFF
		}
		return flags
	}
	return b.uartRegs[off]
}

func (b *Board) writeUART(off uintptr, v uint32) {
	if off == offUARTData {
		b.uartOut.Write([]byte{byte(v)})
		return
	}
	b.uartRegs[off] = v
}
