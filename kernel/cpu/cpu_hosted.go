//go:build !(arm64 && rpi3)

package cpu

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Hosted builds replace the processor with a software model so the rest of
// the kernel can be exercised by tests and by the board simulator. Events
// are broadcast over a channel that is swapped on every SendEvent; waiters
// also give up after eventTimeout, which mirrors the spurious wake-ups
// permitted by the architecture.

const (
	hostedMPIDR     = 0x80000000
	hostedEL        = 1
	hostedFrequency = 1000000000
	eventTimeout    = time.Millisecond
)

var (
	daif     atomic.Uint64
	vbar     atomic.Uintptr
	esr, far atomic.Uint64

	eventMu sync.Mutex
	eventCh = make(chan struct{})
	irqMu   sync.Mutex
	irqCh   = make(chan struct{})

	epoch = time.Now()
)

// Halt parks the calling goroutine forever.
func Halt() {
	daif.Store(0x3c0)
	select {}
}

// SendEvent wakes every goroutine parked in WaitForEvent.
func SendEvent() {
	eventMu.Lock()
	close(eventCh)
	eventCh = make(chan struct{})
	eventMu.Unlock()
}

// WaitForEvent blocks until SendEvent is called or a short timeout expires.
func WaitForEvent() {
	eventMu.Lock()
	ch := eventCh
	eventMu.Unlock()
	wait(ch)
}

// WaitForInterrupt blocks until SignalInterrupt is called or a short timeout
// expires.
func WaitForInterrupt() {
	irqMu.Lock()
	ch := irqCh
	irqMu.Unlock()
	wait(ch)
}

// SignalInterrupt wakes every goroutine parked in WaitForInterrupt. It is
// used by the board simulator when it raises an interrupt line.
func SignalInterrupt() {
	irqMu.Lock()
	close(irqCh)
	irqCh = make(chan struct{})
	irqMu.Unlock()
}

func wait(ch chan struct{}) {
	t := time.NewTimer(eventTimeout)
	select {
	case <-ch:
	case <-t.C:
	}
	t.Stop()
}

// Yield lets other goroutines run.
func Yield() {
	runtime.Gosched()
}

// ReadMPIDR returns the affinity value of the boot core.
func ReadMPIDR() uint64 { return hostedMPIDR }

// CurrentEL returns the exception level the kernel is modelled to run at.
func CurrentEL() uint8 { return hostedEL }

// ReadDAIF returns the modelled DAIF register.
func ReadDAIF() uint64 { return daif.Load() }

// MaskIRQ sets the IRQ bit in the modelled DAIF register.
func MaskIRQ() {
	for {
		old := daif.Load()
		if daif.CompareAndSwap(old, old|DAIFIRQ) {
			return
		}
	}
}

// UnmaskIRQ clears the IRQ bit in the modelled DAIF register.
func UnmaskIRQ() {
	for {
		old := daif.Load()
		if daif.CompareAndSwap(old, old&^DAIFIRQ) {
			return
		}
	}
}

// SetVectorBase records the exception vector base address.
func SetVectorBase(addr uintptr) { vbar.Store(addr) }

// VectorBase returns the last address passed to SetVectorBase.
func VectorBase() uintptr { return vbar.Load() }

// ReadESR returns the syndrome recorded by InjectSyndrome.
func ReadESR() uint64 { return esr.Load() }

// ReadFAR returns the fault address recorded by InjectSyndrome.
func ReadFAR() uint64 { return far.Load() }

// InjectSyndrome sets the values returned by ReadESR and ReadFAR for the
// next synchronous exception delivered by the simulator.
func InjectSyndrome(syndrome, faultAddr uint64) {
	esr.Store(syndrome)
	far.Store(faultAddr)
}

// Counter returns the nanoseconds elapsed since the package was loaded.
func Counter() uint64 {
	return uint64(time.Since(epoch).Nanoseconds())
}

// CounterFrequency returns the modelled counter frequency.
func CounterFrequency() uint64 { return hostedFrequency }
