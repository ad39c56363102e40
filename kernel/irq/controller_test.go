package irq

import (
	"bytes"
	"raspkern/kernel/hal/board"
	"raspkern/kernel/kfmt"
	"raspkern/kernel/mmio"
	"strings"
	"testing"
)

func newTestController(t *testing.T) (*Controller, *board.Board, *bytes.Buffer, func()) {
	var (
		buf  bytes.Buffer
		sink = kfmt.GetOutputSink()
		b    = board.New(nil)
		c    = New(mmio.NewBlock(b, PeripheralBase), mmio.NewBlock(b, LocalBase))
	)

	kfmt.SetOutputSink(&buf)
	c.Init()
	return c, b, &buf, func() { kfmt.SetOutputSink(sink) }
}

func TestEnableAndPollEveryLine(t *testing.T) {
	c, b, _, restore := newTestController(t)
	defer restore()

	for id := Line(0); id <= MaxLine; id++ {
		if err := c.Enable(id); err != nil {
			t.Fatalf("[line %d] unexpected error: %v", id, err)
		}

		b.Assert(uint32(id))
		got, ok := c.PollPending()
		if !ok || got != id {
			t.Errorf("[line %d] expected PollPending to report %d; got %d (ok=%t)", id, id, got, ok)
		}

		b.Deassert(uint32(id))
		if err := c.Disable(id); err != nil {
			t.Fatalf("[line %d] unexpected error: %v", id, err)
		}
	}
}

func TestInvalidLineDoesNotTouchRegisters(t *testing.T) {
	c, b, buf, restore := newTestController(t)
	defer restore()

	before := b.Writes()
	for _, id := range []Line{72, 100, 0xffffffff} {
		if err := c.Enable(id); err != errInvalidLine {
			t.Errorf("[line %d] expected errInvalidLine from Enable; got %v", id, err)
		}
		if err := c.Disable(id); err != errInvalidLine {
			t.Errorf("[line %d] expected errInvalidLine from Disable; got %v", id, err)
		}
	}

	if after := b.Writes(); after != before {
		t.Fatalf("expected no register writes; got %d", after-before)
	}

	if !strings.Contains(buf.String(), "invalid IRQ number: 72") {
		t.Fatalf("expected invalid line to be logged; got %q", buf.String())
	}
}

func TestPollPriority(t *testing.T) {
	c, b, _, restore := newTestController(t)
	defer restore()

	for _, id := range []Line{5, 9, 33, 40, 66, 67} {
		c.Enable(id)
	}

	specs := []struct {
		assert []uint32
		basic  []uint32
		exp    Line
	}{
		// local bank wins over bank 1
		{[]uint32{66, 5}, nil, 66},
		// lowest bit within the local bank
		{[]uint32{67, 66}, nil, 66},
		// basic bank wins over bank 1 and 2
		{[]uint32{9, 40}, []uint32{3}, 3},
		// bank 1 wins over bank 2
		{[]uint32{40, 9}, nil, 9},
		// lowest bit within bank 1
		{[]uint32{9, 5}, nil, 5},
		// bank 2
		{[]uint32{40, 33}, nil, 33},
	}

	for specIndex, spec := range specs {
		for _, id := range spec.assert {
			b.Assert(id)
		}
		for _, n := range spec.basic {
			b.AssertBasic(n)
		}

		if got, ok := c.PollPending(); !ok || got != spec.exp {
			t.Errorf("[spec %d] expected line %d; got %d (ok=%t)", specIndex, spec.exp, got, ok)
		}

		for _, id := range spec.assert {
			b.Deassert(id)
		}
		b.ClearBasic()
	}

	if _, ok := c.PollPending(); ok {
		t.Fatal("expected nothing to be pending")
	}
}

func TestHandle(t *testing.T) {
	c, b, buf, restore := newTestController(t)
	defer restore()

	var calls [numSources]int
	for s := Source(0); s < numSources; s++ {
		src := s
		if err := c.RegisterHandler(src, func() { calls[src]++ }); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.RegisterHandler(Unknown, func() {}); err != errInvalidSource {
		t.Fatalf("expected errInvalidSource; got %v", err)
	}

	if err := c.ConfigurePeriodicTimer(10000); err != nil {
		t.Fatal(err)
	}
	c.Enable(LineSerial)
	c.Enable(LineMailbox)
	c.Enable(3)

	// Timer: handler runs and the timer interrupt is acknowledged.
	b.Tick()
	ev, ok := c.Handle()
	if !ok || ev.Source != Timer || ev.Line != LineTimer {
		t.Fatalf("expected timer event; got %+v (ok=%t)", ev, ok)
	}
	if b.Pending() {
		t.Fatal("expected timer line to be cleared by Handle")
	}

	// Serial and mailbox.
	for _, spec := range []struct {
		line Line
		src  Source
	}{{LineSerial, Serial}, {LineMailbox, Mailbox}} {
		b.Assert(uint32(spec.line))
		if ev, ok := c.Handle(); !ok || ev.Source != spec.src {
			t.Errorf("expected %s event; got %+v", spec.src, ev)
		}
		b.Deassert(uint32(spec.line))
	}

	// Unknown line.
	b.Assert(3)
	if ev, ok := c.Handle(); !ok || ev.Source != Unknown || ev.Line != 3 {
		t.Errorf("expected unknown event for line 3; got %+v", ev)
	}
	b.Deassert(3)

	if calls[Timer] != 1 || calls[Serial] != 1 || calls[Mailbox] != 1 {
		t.Fatalf("unexpected handler invocations: %v", calls)
	}

	// Spurious.
	c.Service()
	if c.Spurious() != 1 {
		t.Fatalf("expected one spurious interrupt; got %d", c.Spurious())
	}

	out := buf.String()
	for _, exp := range []string{"unknown interrupt: 3", "spurious interrupt"} {
		if !strings.Contains(out, exp) {
			t.Errorf("expected output to contain %q", exp)
		}
	}
}

func TestHandleWithoutHandler(t *testing.T) {
	c, b, _, restore := newTestController(t)
	defer restore()

	c.ConfigurePeriodicTimer(100)
	b.Tick()

	if ev, ok := c.Handle(); !ok || ev.Source != Timer {
		t.Fatalf("expected timer event; got %+v", ev)
	}
	if b.Pending() {
		t.Fatal("expected the timer to be acknowledged even without a handler")
	}
}

func TestRegisterHandlerOverwrites(t *testing.T) {
	c, b, _, restore := newTestController(t)
	defer restore()

	var first, second int
	c.RegisterHandler(Serial, func() { first++ })
	c.RegisterHandler(Serial, func() { second++ })

	c.Enable(LineSerial)
	b.Assert(uint32(LineSerial))
	c.Handle()

	if first != 0 || second != 1 {
		t.Fatalf("expected only the latest handler to run; first=%d second=%d", first, second)
	}
}

func TestConfigurePeriodicTimer(t *testing.T) {
	c, b, _, restore := newTestController(t)
	defer restore()

	for _, interval := range []uint32{0, 1 << 28} {
		if err := c.ConfigurePeriodicTimer(interval); err != errInvalidInterval {
			t.Errorf("expected errInvalidInterval for %d; got %v", interval, err)
		}
	}

	if err := c.ConfigurePeriodicTimer(10000); err != nil {
		t.Fatal(err)
	}

	if got := b.TimerReload(); got != 10000 {
		t.Fatalf("expected reload 10000; got %d", got)
	}

	if exp, got := uint32(timerEnable|timerIRQEnable|timerReload), b.TimerControl(); got != exp {
		t.Fatalf("expected control 0x%x; got 0x%x", exp, got)
	}

	b.Tick()
	if l, ok := c.PollPending(); !ok || l != LineTimer {
		t.Fatal("expected timer line to be enabled")
	}
}

func TestSourceOf(t *testing.T) {
	specs := []struct {
		line Line
		exp  Source
		name string
	}{
		{LineTimer, Timer, "timer"},
		{LineSerial, Serial, "serial"},
		{LineMailbox, Mailbox, "mailbox"},
		{12, Unknown, "unknown"},
	}

	for specIndex, spec := range specs {
		got := SourceOf(spec.line)
		if got != spec.exp || got.String() != spec.name {
			t.Errorf("[spec %d] expected %s; got %s", specIndex, spec.name, got)
		}
	}
}
