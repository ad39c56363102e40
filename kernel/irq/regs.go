package irq

import "raspkern/kernel/mmio"

// Physical base addresses of the two register blocks driven by Controller.
const (
	PeripheralBase uintptr = 0x3F00B000
	LocalBase      uintptr = 0x40000000
)

// Peripheral interrupt controller register offsets.
const (
	regBasicPending = 0x200
	regPending1     = 0x204
	regPending2     = 0x208
	regEnable1      = 0x210
	regEnable2      = 0x214
	regEnableBasic  = 0x218
	regDisable1     = 0x21C
	regDisable2     = 0x220
	regDisableBasic = 0x224
)

// Local block register offsets.
const (
	regTimerControl = 0x40
	regTimerClear   = 0x44
	regTimerReload  = 0x48
	regLocalPending = 0x60
	regLocalEnable  = 0x64
	regLocalDisable = 0x68
)

// Local timer control bits.
const (
	timerEnable    = 1 << 28
	timerIRQEnable = 1 << 29
	timerReload    = 1 << 30

	// maxTimerInterval is the largest value the 28-bit reload field holds.
	maxTimerInterval = 1<<28 - 1
)

// periphRegs is the subset of the peripheral interrupt controller used by
// the driver.
type periphRegs struct {
	basicPending, pending1, pending2 mmio.Register
	enable1, enable2                 mmio.Register
	disable1, disable2, disableBasic mmio.Register
}

func newPeriphRegs(b mmio.Block) periphRegs {
	return periphRegs{
		basicPending: b.Reg(regBasicPending),
		pending1:     b.Reg(regPending1),
		pending2:     b.Reg(regPending2),
		enable1:      b.Reg(regEnable1),
		enable2:      b.Reg(regEnable2),
		disable1:     b.Reg(regDisable1),
		disable2:     b.Reg(regDisable2),
		disableBasic: b.Reg(regDisableBasic),
	}
}

// localRegs is the subset of the per-core local block used by the driver.
type localRegs struct {
	timerControl, timerClear, timerReload mmio.Register
	pending, enable, disable              mmio.Register
}

func newLocalRegs(b mmio.Block) localRegs {
	return localRegs{
		timerControl: b.Reg(regTimerControl),
		timerClear:   b.Reg(regTimerClear),
		timerReload:  b.Reg(regTimerReload),
		pending:      b.Reg(regLocalPending),
		enable:       b.Reg(regLocalEnable),
		disable:      b.Reg(regLocalDisable),
	}
}
