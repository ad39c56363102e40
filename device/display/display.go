// Package display implements the simulated status display. Lines written to
// the display are echoed to the kernel log and kept in a scrollback that can
// be rendered into an image.
package display

import (
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
	"image"
	"io"
	"raspkern/device"
	"raspkern/kernel"
	"raspkern/kernel/kfmt"
	"raspkern/kernel/sync"
)

// Scrollback is the number of lines retained for rendering.
const Scrollback = 32

const (
	lineHeight = 15
	margin     = 8
)

// Display is a line-oriented status display. It is safe for concurrent use.
type Display struct {
	lock sync.Spinlock

	lineCount uint64
	lines     [Scrollback]string
	head, count int
}

// New returns an empty display.
func New() *Display {
	return &Display{}
}

// WriteLine appends text to the display.
func (d *Display) WriteLine(text string) {
	d.lock.Acquire()
	d.lineCount++
	n := d.lineCount
	d.push(text)
	d.lock.Release()

	kfmt.Printf("[DISPLAY LINE %d] %s\n", n, text)
}

func (d *Display) push(text string) {
	idx := (d.head + d.count) % Scrollback
	d.lines[idx] = text
	if d.count < Scrollback {
		d.count++
		return
	}
	d.head = (d.head + 1) % Scrollback
}

// Clear empties the display and resets the line counter.
func (d *Display) Clear() {
	d.lock.Acquire()
	d.lineCount = 0
	d.head, d.count = 0, 0
	d.lock.Release()

	kfmt.Printf("[display] screen cleared\n")
}

// LineCount returns the number of lines written since the last Clear.
func (d *Display) LineCount() uint64 {
	d.lock.Acquire()
	defer d.lock.Release()
	return d.lineCount
}

// Lines returns the retained lines, oldest first.
func (d *Display) Lines() []string {
	d.lock.Acquire()
	defer d.lock.Release()

	out := make([]string, d.count)
	for i := 0; i < d.count; i++ {
		out[i] = d.lines[(d.head+i)%Scrollback]
	}
	return out
}

// DrawKernelStatus writes a status block. Detailed figures go to the kernel
// log only.
func (d *Display) DrawKernelStatus(timeMs, ticks, counter uint64) {
	d.WriteLine("System Status Update:")
	d.WriteLine("  System running normally")
	if ticks > 0 {
		d.WriteLine("  Interrupts working")
	} else {
		d.WriteLine("  Waiting for interrupts...")
	}

	kfmt.Printf("[display]   system time: %d ms\n", timeMs)
	kfmt.Printf("[display]   timer ticks: %d\n", ticks)
	kfmt.Printf("[display]   loop counter: %d\n", counter)

	d.WriteLine("---")
}

// Render draws the retained lines into a width x height image, newest line
// at the bottom when the panel is too short to hold all of them.
func (d *Display) Render(width, height int) image.Image {
	return d.context(width, height).Image()
}

// SavePNG renders the display and writes it to path.
func (d *Display) SavePNG(path string, width, height int) error {
	return d.context(width, height).SavePNG(path)
}

func (d *Display) context(width, height int) *gg.Context {
	dc := gg.NewContext(width, height)
	dc.SetRGB255(0x10, 0x10, 0x30)
	dc.Clear()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB255(0xe0, 0xe0, 0xe0)

	lines := d.Lines()
	if fit := (height - margin) / lineHeight; fit >= 0 && len(lines) > fit {
		lines = lines[len(lines)-fit:]
	}

	for i, line := range lines {
		dc.DrawString(line, margin, float64(margin+(i+1)*lineHeight))
	}
	return dc
}

// DriverName returns the name of this driver.
func (d *Display) DriverName() string {
	return "sim_display"
}

// DriverVersion returns the version of this driver.
func (d *Display) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit clears the display and writes the banner.
func (d *Display) DriverInit(w io.Writer) *kernel.Error {
	kfmt.Fprintf(w, "simulated mode, %d lines of scrollback\n", Scrollback)
	d.Clear()
	d.WriteLine("=== raspkern status ===")
	d.WriteLine("ARM64 kernel for Raspberry Pi 3")
	return nil
}

func probeForDisplay() device.Driver {
	return New()
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderDisplay,
		Probe: probeForDisplay,
	})
}
