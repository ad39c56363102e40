// Package uart drives the PL011 UART, which serves as the kernel console.
package uart

import (
	"io"
	"raspkern/device"
	"raspkern/kernel"
	"raspkern/kernel/cpu"
	"raspkern/kernel/kfmt"
	"raspkern/kernel/mmio"
)

// Base is the physical address of the PL011 register block.
const Base uintptr = 0x3F201000

const (
	regData     = 0x00
	regFlags    = 0x18
	regIntBaud  = 0x24
	regFracBaud = 0x28
	regLineCtrl = 0x2C
	regCtrl     = 0x30
	regIntClear = 0x44

	flagTXFF = 1 << 5

	// 115200 baud from the 48MHz UART clock.
	intBaud  = 26
	fracBaud = 3

	lineCtrlFIFO  = 1 << 4
	lineCtrl8Bits = 3 << 5

	ctrlEnable = 1 << 0
	ctrlTX     = 1 << 8
	ctrlRX     = 1 << 9

	clearAllInterrupts = 0x7FF
)

var (
	// yieldFn is mocked by tests.
	yieldFn = cpu.Yield

	// busFn returns the bus the probed device is attached to. It is
	// mocked by tests.
	busFn = func() mmio.Bus { return mmio.DefaultBus }
)

// PL011 is a polled PL011 UART. It implements io.Writer and io.ByteWriter
// so it can be attached as the kfmt output sink.
type PL011 struct {
	regs mmio.Block
}

// New returns a driver for the UART whose registers start at base.
func New(bus mmio.Bus, base uintptr) *PL011 {
	return &PL011{regs: mmio.NewBlock(bus, base)}
}

// WriteByte transmits b, waiting while the transmit FIFO is full. A line
// feed is preceded by a carriage return.
func (u *PL011) WriteByte(b byte) error {
	if b == '\n' {
		u.put('\r')
	}
	u.put(b)
	return nil
}

// Write transmits p.
func (u *PL011) Write(p []byte) (int, error) {
	for _, b := range p {
		u.WriteByte(b)
	}
	return len(p), nil
}

func (u *PL011) put(b byte) {
	for u.regs.Reg(regFlags).Load()&flagTXFF != 0 {
		yieldFn()
	}
	u.regs.Reg(regData).Store(uint32(b))
}

// DriverName returns the name of this driver.
func (u *PL011) DriverName() string {
	return "pl011_uart"
}

// DriverVersion returns the version of this driver.
func (u *PL011) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit programs the UART for 115200 8N1 with FIFOs enabled.
func (u *PL011) DriverInit(w io.Writer) *kernel.Error {
	u.regs.Reg(regCtrl).Store(0)
	u.regs.Reg(regIntClear).Store(clearAllInterrupts)
	u.regs.Reg(regIntBaud).Store(intBaud)
	u.regs.Reg(regFracBaud).Store(fracBaud)
	u.regs.Reg(regLineCtrl).Store(lineCtrlFIFO | lineCtrl8Bits)
	u.regs.Reg(regCtrl).Store(ctrlEnable | ctrlTX | ctrlRX)

	kfmt.Fprintf(w, "115200 8N1 at 0x%x\n", u.regs.Base)
	return nil
}

func probeForPL011() device.Driver {
	return New(busFn(), Base)
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderSerial,
		Probe: probeForPL011,
	})
}
