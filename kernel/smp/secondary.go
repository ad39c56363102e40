package smp

import (
	"raspkern/kernel/cpu"
	"raspkern/kernel/gate"
	"raspkern/kernel/kfmt"
)

var (
	// Run loop iterations between heartbeats.
	heartbeatEvery     uint64 = 10000000
	idleHeartbeatEvery uint64 = 50000000

	// These functions are mocked by tests.
	installFn  = gate.Install
	setMaskFn  = gate.SetMask
	currentEL  = cpu.CurrentEL
	lowPowerFn = lowPower

	// secondaryStartHook, when set, observes the stack every secondary
	// core starts on.
	secondaryStartHook func(core uint8, stackTop uintptr)
)

// secondaryMain is entered on a secondary core once it runs on its own
// stack. It prepares the core for interrupts, reports readiness and runs the
// command loop until the core is told to stop.
func secondaryMain(core uint8, stackTop uintptr) {
	if hook := secondaryStartHook; hook != nil {
		hook(core, stackTop)
	}

	kfmt.Printf("[smp] secondary core %d initializing at EL%d\n", core, currentEL())

	installFn()
	setMaskFn(false)

	cores.transition(core, Ready, Woken)
	cores.setReady(core, true)
	kfmt.Printf("[smp] core %d is now ready\n", core)

	runLoop(core)
	stop(core)
}

// runLoop executes commands until Shutdown is observed or the shutdown flag
// is raised.
func runLoop(core uint8) {
	cores.transition(core, Running, Ready)
	kfmt.Printf("[smp] core %d entering main loop\n", core)

	var (
		counter uint64
		acc     uint32
		steps   uint64
	)

	for {
		cmd := cores.currentCommand()
		cores.observe(core, cmd)

		switch cmd {
		case Shutdown:
			kfmt.Printf("[smp] core %d received shutdown command\n", core)
			cores.setChecksum(core, acc)
			return
		case Compute:
			steps, acc = workUnit(core, acc)
			cores.addWork(core, steps)
		case Idle:
			if counter%idleHeartbeatEvery == 0 {
				kfmt.Printf("[smp] core %d idle heartbeat: %d\n", core, counter/idleHeartbeatEvery)
			}
		default:
			if counter%heartbeatEvery == 0 {
				kfmt.Printf("[smp] core %d heartbeat: %d\n", core, counter/heartbeatEvery)
				cores.setChecksum(core, acc)
			}
		}

		counter++
		spinHintFn()

		if cores.shutdownRequested() {
			cores.setChecksum(core, acc)
			return
		}
	}
}

// stop retires the calling core. Stopped is terminal.
func stop(core uint8) {
	cores.transition(core, Stopped, Ready, Running, ShuttingDown)
	cores.setReady(core, false)

	kfmt.Printf("[smp] core %d stopping (checksum 0x%x)\n", core, cores.checksumOf(core))
	kfmt.Printf("[smp] core %d entering low power state\n", core)
	lowPowerFn()
}
