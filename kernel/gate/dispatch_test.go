package gate

import (
	"bytes"
	"raspkern/kernel"
	"raspkern/kernel/cpu"
	"raspkern/kernel/kfmt"
	"raspkern/kernel/sync"
	"strings"
	"testing"
	"time"
	"unsafe"
)

// mockHalt replaces panicFn and the ESR/FAR readers and captures kfmt
// output. The returned restore function must be deferred.
func mockHalt(t *testing.T, esr, far uint64) (*bytes.Buffer, **kernel.Error, func()) {
	var (
		buf    bytes.Buffer
		halted *kernel.Error
		sink   = kfmt.GetOutputSink()
	)

	kfmt.SetOutputSink(&buf)
	readESRFn = func() uint64 { return esr }
	readFARFn = func() uint64 { return far }
	panicFn = func(e interface{}) {
		if err, ok := e.(*kernel.Error); ok {
			halted = err
			return
		}
		t.Fatalf("expected panicFn to receive a *kernel.Error; got %T", e)
	}

	return &buf, &halted, func() {
		panicFn = kfmt.Panic
		readESRFn = cpu.ReadESR
		readFARFn = cpu.ReadFAR
		kfmt.SetOutputSink(sink)
	}
}

func TestCauseForSlot(t *testing.T) {
	specs := []struct {
		slot uint64
		exp  Cause
	}{
		{0, SyncKernel},
		{1, IRQKernel},
		{2, FIQKernel},
		{3, SErrorKernel},
		{4, SyncKernel},
		{5, IRQKernel},
		{6, FIQKernel},
		{7, SErrorKernel},
		{8, SyncUser},
		{9, IRQUser},
		{10, FIQUser},
		{11, SErrorUser},
		{12, SyncUser},
		{15, SErrorUser},
	}

	for specIndex, spec := range specs {
		got, ok := CauseForSlot(spec.slot)
		if !ok || got != spec.exp {
			t.Errorf("[spec %d] expected slot %d to map to %s; got %s (ok=%t)", specIndex, spec.slot, spec.exp, got, ok)
		}
		if got.User() != (spec.slot >= 8) {
			t.Errorf("[spec %d] unexpected User() result for slot %d", specIndex, spec.slot)
		}
	}

	if _, ok := CauseForSlot(16); ok {
		t.Error("expected slot 16 to be rejected")
	}

	if got := Cause(42).String(); got != "invalid" {
		t.Errorf("expected invalid cause name; got %q", got)
	}
}

func TestSyndrome(t *testing.T) {
	specs := []struct {
		esr        uint64
		class      uint8
		recognized bool
		abort      bool
	}{
		{0x56000000, ClassSVC64, true, false},
		{0x82000006, ClassInstrAbortLower, true, true},
		{0x86000006, ClassInstrAbortSame, true, true},
		{0x92000045, ClassDataAbortLower, true, true},
		{0x96000045, ClassDataAbortSame, true, true},
		{0xbe000000, ClassSError, false, false},
		{0x02000000, ClassUnknown, false, false},
	}

	for specIndex, spec := range specs {
		s := Syndrome(spec.esr)
		if s.Class() != spec.class {
			t.Errorf("[spec %d] expected class 0x%x; got 0x%x", specIndex, spec.class, s.Class())
		}
		if s.Recognized() != spec.recognized {
			t.Errorf("[spec %d] expected Recognized() = %t", specIndex, spec.recognized)
		}
		if s.IsAbort() != spec.abort {
			t.Errorf("[spec %d] expected IsAbort() = %t", specIndex, spec.abort)
		}
		if !s.Wide() {
			t.Errorf("[spec %d] expected IL bit to be set", specIndex)
		}
	}

	if got := Syndrome(0x96000045).ISS(); got != 0x45 {
		t.Errorf("expected ISS 0x45; got 0x%x", got)
	}
}

func TestInstall(t *testing.T) {
	defer func() {
		setVectorBaseFn = cpu.SetVectorBase
		selfFn = cpu.Self
		trapBounds = [cpu.NumCores]cpu.StackBounds{}
		trapStackSet = [cpu.NumCores]sync.StateCell{}
	}()

	var got uintptr
	setVectorBaseFn = func(addr uintptr) { got = addr }
	selfFn = func() cpu.Descriptor { return cpu.Descriptor{Index: 2, MPIDR: 0x80000002} }

	Install()
	if got == 0 || got != vectorTableAddr() {
		t.Fatalf("expected VBAR to be set to the vector table (0x%x); got 0x%x", vectorTableAddr(), got)
	}

	// The vector entry code indexes trapBounds as 32-byte records.
	if got := unsafe.Sizeof(trapBounds[0]); got != 32 {
		t.Fatalf("expected 32-byte trap bounds; got %d", got)
	}

	b := trapBounds[2]
	lo := uintptr(unsafe.Pointer(&trapStacks[2][0]))
	if b.Lo != lo || b.Hi > lo+trapStackSize || b.Hi+16 <= lo+trapStackSize {
		t.Fatalf("expected core 2 trap stack to span trapStacks[2] (0x%x); got %+v", lo, b)
	}
	if b.Hi%16 != 0 {
		t.Fatalf("expected a 16-byte aligned trap stack top; got 0x%x", b.Hi)
	}
	if b.Guard0 != lo+cpu.StackGuard {
		t.Fatalf("expected the stack guard above the trap stack bottom; got %+v", b)
	}

	for _, core := range []int{1, 3} {
		if trapBounds[core] != (cpu.StackBounds{}) {
			t.Errorf("expected core %d trap bounds to remain unset; got %+v", core, trapBounds[core])
		}
	}

	// A repeated install keeps the recorded bounds.
	trapBounds[2].Guard1 = 0
	Install()
	if trapBounds[2].Guard1 != 0 {
		t.Fatal("expected a repeated Install to leave the trap bounds untouched")
	}
}

func TestSetMask(t *testing.T) {
	defer func() {
		readDAIFFn = cpu.ReadDAIF
		maskIRQFn = cpu.MaskIRQ
		unmaskIRQFn = cpu.UnmaskIRQ
	}()

	var daif uint64
	readDAIFFn = func() uint64 { return daif }
	maskIRQFn = func() { daif |= cpu.DAIFIRQ }
	unmaskIRQFn = func() { daif &^= cpu.DAIFIRQ }

	SetMask(true)
	if !IsMasked() {
		t.Fatal("expected IRQs to be masked")
	}

	SetMask(false)
	if IsMasked() {
		t.Fatal("expected IRQs to be unmasked")
	}
}

func TestDispatchIRQ(t *testing.T) {
	defer HandleInterrupts(nil)
	buf, halted, restore := mockHalt(t, 0, 0)
	defer restore()

	var calls int
	HandleInterrupts(func() { calls++ })

	ctx := &Context{ELR: 0x80000}
	dispatchException(5, ctx)
	dispatchException(9, ctx)

	if calls != 2 {
		t.Fatalf("expected IRQ handler to be invoked twice; got %d", calls)
	}

	if *halted != nil {
		t.Fatal("expected IRQ dispatch to return normally")
	}

	// No handler registered: still returns normally.
	HandleInterrupts(nil)
	buf.Reset()
	Dispatch(IRQKernel, ctx)
	if *halted != nil || buf.Len() != 0 {
		t.Fatalf("expected silent no-op IRQ; got output %q", buf.String())
	}
}

func TestDispatchFIQ(t *testing.T) {
	buf, halted, restore := mockHalt(t, 0, 0)
	defer restore()

	Dispatch(FIQKernel, &Context{ELR: 0x1234})
	Dispatch(FIQUser, &Context{})

	if *halted != nil {
		t.Fatal("expected FIQ dispatch to return normally")
	}

	if !strings.Contains(buf.String(), "FIQ exception FIQ (EL1), ELR: 0x0000000000001234") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestDispatchFatalCauses(t *testing.T) {
	specs := []struct {
		cause  Cause
		esr    uint64
		expErr *kernel.Error
		expOut []string
	}{
		{
			SyncKernel, 0x96000045, errUnhandledSync,
			[]string{"data abort at current EL", "FAR_EL1: 0x00000000deadbeef", "exception class: 0x25"},
		},
		{
			SyncKernel, 0x1e000000, errUnhandledSync,
			[]string{"unknown exception class", "exception class: 0x07"},
		},
		{
			SErrorKernel, 0, errUnhandledSError,
			[]string{"SError exception SError (EL1)"},
		},
		{
			SErrorUser, 0, errUnhandledSError,
			[]string{"SError exception SError (EL0)"},
		},
		{
			SyncUser, 0x92000045, errUnhandledUser,
			[]string{"synchronous exception from EL0: data abort from lower EL", "exception class: 0x24"},
		},
	}

	for specIndex, spec := range specs {
		buf, halted, restore := mockHalt(t, spec.esr, 0xdeadbeef)

		ctx := &Context{ELR: 0x80abc, SPSR: 0x3c5}
		Dispatch(spec.cause, ctx)

		if *halted != spec.expErr {
			t.Errorf("[spec %d] expected halt with %v; got %v", specIndex, spec.expErr, *halted)
		}

		out := buf.String()
		for _, exp := range spec.expOut {
			if !strings.Contains(out, exp) {
				t.Errorf("[spec %d] expected output to contain %q; got:\n%s", specIndex, exp, out)
			}
		}

		if !strings.Contains(out, "ELR_EL1: 0x0000000000080abc SPSR_EL1: 0x00000000000003c5") {
			t.Errorf("[spec %d] expected output to contain the saved context; got:\n%s", specIndex, out)
		}
		restore()
	}
}

func TestUnrecognizedKernelSyncHalts(t *testing.T) {
	buf, halted, restore := mockHalt(t, 0x0e000000, 0)
	defer restore()

	dispatchException(4, &Context{})

	if *halted != errUnhandledSync {
		t.Fatalf("expected the core to halt with %v", errUnhandledSync)
	}

	// The class code is the last thing reported before the context dump.
	out := buf.String()
	classIdx := strings.LastIndex(out, "exception class: 0x03")
	if classIdx < 0 || classIdx > strings.Index(out, "ELR_EL1:") {
		t.Fatalf("expected the cause code to be reported before halting; got:\n%s", out)
	}
}

// faultingSink raises an SError from inside its first Write, while the
// interrupted print still holds the kfmt lock.
type faultingSink struct {
	buf     bytes.Buffer
	faulted bool
}

func (s *faultingSink) Write(p []byte) (int, error) {
	if !s.faulted {
		s.faulted = true
		Dispatch(SErrorKernel, &Context{ELR: 0x80abc})
	}
	return s.buf.Write(p)
}

func TestFatalExceptionDuringPrint(t *testing.T) {
	_, halted, restore := mockHalt(t, 0, 0)
	defer restore()

	sink := &faultingSink{}
	kfmt.SetOutputSink(sink)

	done := make(chan struct{})
	go func() {
		kfmt.Printf("[smp] core 1 heartbeat\n")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the fatal path to report without waiting on the interrupted print")
	}

	if *halted != errUnhandledSError {
		t.Fatalf("expected halt with %v; got %v", errUnhandledSError, *halted)
	}

	out := sink.buf.String()
	for _, exp := range []string{"SError exception SError (EL1)", "ELR_EL1: 0x0000000000080abc"} {
		if !strings.Contains(out, exp) {
			t.Errorf("expected output to contain %q; got:\n%s", exp, out)
		}
	}
}

func TestDispatchInvalidSlot(t *testing.T) {
	_, halted, restore := mockHalt(t, 0, 0)
	defer restore()

	dispatchException(99, &Context{})
	if *halted != errInvalidSlot {
		t.Fatalf("expected halt with %v; got %v", errInvalidSlot, *halted)
	}
}

func TestSyscall(t *testing.T) {
	defer HandleSyscalls(nil)
	buf, halted, restore := mockHalt(t, 0x56000000, 0)
	defer restore()

	ctx := &Context{}
	ctx.GPR[0] = 0xffff
	ctx.GPR[SyscallNumberReg] = 64

	Dispatch(SyncUser, ctx)

	if *halted != nil {
		t.Fatal("expected system calls to return normally")
	}

	if ctx.GPR[0] != 0 {
		t.Fatalf("expected X0 to be set to 0; got %d", ctx.GPR[0])
	}

	if !strings.Contains(buf.String(), "system call #64") {
		t.Fatalf("unexpected output: %q", buf.String())
	}

	var seen uint64
	HandleSyscalls(func(c *Context) {
		seen = c.GPR[SyscallNumberReg]
		c.GPR[0] = 7
	})
	ctx.GPR[SyscallNumberReg] = 93
	Dispatch(SyncUser, ctx)
	if seen != 93 || ctx.GPR[0] != 7 {
		t.Fatalf("expected custom handler to run; seen=%d x0=%d", seen, ctx.GPR[0])
	}
}

func TestContextDumpTo(t *testing.T) {
	var ctx Context
	for i := range ctx.GPR {
		ctx.GPR[i] = uint64(i)
	}
	ctx.SP, ctx.ELR, ctx.SPSR = 0x100, 0x200, 0x3c5

	var buf bytes.Buffer
	ctx.DumpTo(&buf)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 17 {
		t.Fatalf("expected 17 lines; got %d:\n%s", len(lines), buf.String())
	}

	specs := []string{
		"X0  = 0000000000000000 X1  = 0000000000000001",
		"X10 = 000000000000000a X11 = 000000000000000b",
		"X30 = 000000000000001e SP  = 0000000000000100",
		"ELR = 0000000000000200 SPSR= 00000000000003c5",
	}
	for specIndex, exp := range specs {
		if !strings.Contains(buf.String(), exp) {
			t.Errorf("[spec %d] expected dump to contain %q", specIndex, exp)
		}
	}
}
