// Package irq drives the BCM2837 interrupt controller: the two peripheral
// banks, the basic pending register and the per-core local block that hosts
// the local timer and mailbox interrupts.
package irq

import (
	"raspkern/kernel"
	"raspkern/kernel/kfmt"
	"raspkern/kernel/mmio"
	"sync/atomic"
)

const allBits = 0xffffffff

var (
	errInvalidLine     = &kernel.Error{Module: "irq", Message: "invalid interrupt line"}
	errInvalidSource   = &kernel.Error{Module: "irq", Message: "cannot register a handler for this source"}
	errInvalidInterval = &kernel.Error{Module: "irq", Message: "timer interval out of range"}
)

// Controller is the interrupt controller driver. Enable state lives in the
// hardware registers; the driver only keeps the handler table.
type Controller struct {
	periph periphRegs
	local  localRegs

	handlers [numSources]Handler
	spurious uint64
}

// New returns a controller driving the supplied register blocks.
func New(periph, local mmio.Block) *Controller {
	return &Controller{
		periph: newPeriphRegs(periph),
		local:  newLocalRegs(local),
	}
}

// NewDefault returns a controller for the BCM2837 register blocks at their
// physical addresses on the default bus.
func NewDefault() *Controller {
	return New(mmio.NewBlock(nil, PeripheralBase), mmio.NewBlock(nil, LocalBase))
}

// Init disables every line in all banks and drains any pending state so
// subsequent enables start from a clean slate.
func (c *Controller) Init() {
	kfmt.Printf("[irq] initializing BCM2837 interrupt controller\n")

	c.periph.disable1.Store(allBits)
	c.periph.disable2.Store(allBits)
	c.periph.disableBasic.Store(allBits)
	c.local.disable.Store(allBits)

	c.periph.basicPending.Load()
	c.periph.pending1.Load()
	c.periph.pending2.Load()
	c.local.pending.Load()
	c.local.timerClear.Store(1)

	kfmt.Printf("[irq] interrupt controller initialized\n")
}

// Enable sets the enable bit for line l. Ids outside 0-71 are logged and
// rejected without touching any register.
func (c *Controller) Enable(l Line) *kernel.Error {
	b, bit, ok := l.locate()
	if !ok {
		kfmt.Printf("[irq] invalid IRQ number: %d\n", uint32(l))
		return errInvalidLine
	}

	switch b {
	case bankPeripheral1:
		c.periph.enable1.Store(bit)
		kfmt.Printf("[irq] enabled IRQ %d (bank 1)\n", uint32(l))
	case bankPeripheral2:
		c.periph.enable2.Store(bit)
		kfmt.Printf("[irq] enabled IRQ %d (bank 2)\n", uint32(l))
	case bankLocal:
		c.local.enable.Store(bit)
		kfmt.Printf("[irq] enabled local IRQ %d\n", uint32(l))
	}
	return nil
}

// Disable clears the enable bit for line l. Ids outside 0-71 are logged and
// rejected without touching any register.
func (c *Controller) Disable(l Line) *kernel.Error {
	b, bit, ok := l.locate()
	if !ok {
		kfmt.Printf("[irq] invalid IRQ number: %d\n", uint32(l))
		return errInvalidLine
	}

	switch b {
	case bankPeripheral1:
		c.periph.disable1.Store(bit)
	case bankPeripheral2:
		c.periph.disable2.Store(bit)
	case bankLocal:
		c.local.disable.Store(bit)
	}
	return nil
}

// PollPending returns the highest priority pending line. Banks are scanned
// in the order local, basic, bank 1, bank 2 and the lowest set bit of the
// first non-empty bank wins.
func (c *Controller) PollPending() (Line, bool) {
	if pending := c.local.pending.Load() & 0xff; pending != 0 {
		return 64 + lowestBit(pending), true
	}

	if pending := c.periph.basicPending.Load() & 0xff; pending != 0 {
		return lowestBit(pending), true
	}

	if pending := c.periph.pending1.Load(); pending != 0 {
		return lowestBit(pending), true
	}

	if pending := c.periph.pending2.Load(); pending != 0 {
		return 32 + lowestBit(pending), true
	}

	return 0, false
}

// lowestBit returns the index of the lowest set bit in a non-zero word.
func lowestBit(v uint32) Line {
	var i Line
	for v&1 == 0 {
		v >>= 1
		i++
	}
	return i
}

// Handle polls once and services the pending line, if any. The registered
// handler for the line's source is invoked; the timer line is acknowledged
// in the local block afterwards since it does not self-clear. When nothing
// is pending the interrupt is counted as spurious and Handle returns false.
func (c *Controller) Handle() (Event, bool) {
	l, ok := c.PollPending()
	if !ok {
		atomic.AddUint64(&c.spurious, 1)
		kfmt.Printf("[irq] spurious interrupt\n")
		return Event{Source: Unknown}, false
	}

	ev := Event{Source: SourceOf(l), Line: l}
	switch ev.Source {
	case Timer:
		c.invoke(Timer)
		c.local.timerClear.Store(1)
	case Serial, Mailbox:
		c.invoke(ev.Source)
	default:
		kfmt.Printf("[irq] unknown interrupt: %d\n", uint32(l))
	}

	return ev, true
}

// Service is the IRQ entry point installed with gate.HandleInterrupts.
func (c *Controller) Service() {
	c.Handle()
}

func (c *Controller) invoke(s Source) {
	if h := c.handlers[s]; h != nil {
		h()
	}
}

// RegisterHandler stores h as the handler for source s, replacing any
// previous registration. It is not interrupt-safe and must be called during
// single-threaded initialization.
func (c *Controller) RegisterHandler(s Source, h Handler) *kernel.Error {
	if s >= numSources {
		return errInvalidSource
	}

	c.handlers[s] = h
	kfmt.Printf("[irq] %s interrupt handler registered\n", s.String())
	return nil
}

// Spurious returns the number of interrupts taken with nothing pending.
func (c *Controller) Spurious() uint64 {
	return atomic.LoadUint64(&c.spurious)
}

// ConfigurePeriodicTimer programs the local timer to reload every interval
// timer ticks and raise an interrupt on each expiry, then enables the timer
// line. The enable, interrupt and reload bits are set by a single write.
func (c *Controller) ConfigurePeriodicTimer(interval uint32) *kernel.Error {
	if interval == 0 || interval > maxTimerInterval {
		return errInvalidInterval
	}

	kfmt.Printf("[irq] setting up local timer with interval %d us\n", interval)

	c.local.timerControl.Store(0)
	c.local.timerReload.Store(interval)
	c.local.timerControl.Store(timerEnable | timerIRQEnable | timerReload)

	return c.Enable(LineTimer)
}
