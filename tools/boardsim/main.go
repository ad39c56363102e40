//go:build linux && !rpi3

// Command boardsim runs the kernel on the hosted BCM2837 board model. The
// boot core runs on the main goroutine; each secondary core is a goroutine
// locked to its own OS thread, optionally pinned to a host CPU, sitting in
// the firmware spin loop until the kernel wakes it.
package main

import (
	"errors"
	"flag"
	"fmt"
	"golang.org/x/sys/unix"
	"os"
	"raspkern/kernel/cpu"
	"raspkern/kernel/gate"
	"raspkern/kernel/hal"
	"raspkern/kernel/hal/board"
	"raspkern/kernel/kmain"
	"raspkern/kernel/mmio"
	"raspkern/kernel/smp"
	"runtime"
	"sync"
	"time"
)

const hostedMPIDR = 0x80000000

var errNoDisplay = errors.New("no display was detected")

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[boardsim] error: %s\n", err.Error())
	os.Exit(1)
}

func main() {
	var (
		cmdLine    = flag.String("cmdline", "", "kernel command line")
		tick       = flag.Duration("tick", 10*time.Millisecond, "local timer period")
		pin        = flag.Bool("pin", true, "pin each simulated core to a host CPU")
		displayOut = flag.String("display-png", "", "write the status display to this PNG file")
		drain      = flag.Duration("drain", time.Second, "time to wait for secondary cores to exit")
	)
	flag.Parse()

	banner()

	b := board.New(os.Stdout)
	mmio.DefaultBus = b

	var wg sync.WaitGroup
	mb := smp.NewMailboxes(mmio.NewBlock(b, board.LocalBase))
	for core := 1; core < board.NumCores; core++ {
		wg.Add(1)
		go runCore(core, mb, *pin, &wg)
	}

	stop := make(chan struct{})
	go runTimer(b, *tick, stop)

	if err := kmain.Run(*cmdLine); err != nil {
		exit(fmt.Errorf("%s: %s", err.Module, err.Message))
	}
	close(stop)

	if !waitTimeout(&wg, *drain) {
		fmt.Fprintf(os.Stderr, "[boardsim] some secondary cores did not exit\n")
	}

	if *displayOut != "" {
		d := hal.ActiveDisplay()
		if d == nil {
			exit(errNoDisplay)
		}
		if err := d.SavePNG(*displayOut, 640, 480); err != nil {
			exit(err)
		}
		fmt.Fprintf(os.Stderr, "[boardsim] display written to %s\n", *displayOut)
	}
}

func banner() {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		exit(err)
	}

	fmt.Fprintf(os.Stderr, "[boardsim] BCM2837 model on %s %s (%s), %d host CPUs\n",
		unix.ByteSliceToString(uts.Sysname[:]),
		unix.ByteSliceToString(uts.Release[:]),
		unix.ByteSliceToString(uts.Machine[:]),
		runtime.NumCPU(),
	)
}

// runCore models a secondary core from reset: it parks until woken and
// returns once the kernel has stopped the core.
func runCore(core int, mb smp.Mailboxes, pin bool, wg *sync.WaitGroup) {
	defer wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if pin {
		var set unix.CPUSet
		set.Zero()
		set.Set(core % runtime.NumCPU())
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			fmt.Fprintf(os.Stderr, "[boardsim] core %d: cannot pin thread: %s\n", core, err.Error())
		}
	}

	smp.Park(hostedMPIDR|uint64(core), mb)
}

// runTimer expires the local timer every period and delivers the interrupt
// to the boot core while it has IRQs unmasked.
func runTimer(b *board.Board, period time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(period)
	defer t.Stop()

	var ctx gate.Context
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if !b.Tick() {
				continue
			}
			cpu.SignalInterrupt()
			if !gate.IsMasked() {
				gate.Dispatch(gate.IRQKernel, &ctx)
			}
		}
	}
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
