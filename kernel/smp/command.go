package smp

import (
	"raspkern/kernel/cpu"
	"raspkern/kernel/kfmt"
)

// Broadcast stores cmd in the command word and signals an event so parked
// cores also observe it. Secondaries may run a few iterations of the
// previous command before they see the new one.
func Broadcast(cmd Command) {
	kfmt.Printf("[smp] sending command %s to all secondary cores\n", cmd.String())
	cores.setCommand(cmd)
	sendEventFn()
}

// SetComputeMode makes every secondary core run its workload kernel.
func SetComputeMode() {
	Broadcast(Compute)
	kfmt.Printf("[smp] all cores set to compute mode\n")
}

// SetIdleMode makes every secondary core idle.
func SetIdleMode() {
	Broadcast(Idle)
	kfmt.Printf("[smp] all cores set to idle mode\n")
}

// ForceStop raises the shutdown flag without broadcasting a command. Every
// running secondary core stops after its current iteration.
func ForceStop() {
	cores.setShutdown()
	sendEventFn()
}

// RequestShutdown raises the shutdown flag, broadcasts Shutdown and waits,
// bounded by budget, for every secondary core to clear its readiness flag.
// Cores that do not stop in time are logged and left alone. It returns the
// number of cores that stopped.
func RequestShutdown(budget Budget) int {
	kfmt.Printf("[smp] initiating shutdown of secondary cores\n")

	cores.setShutdown()
	for i := 1; i < cpu.NumCores; i++ {
		cores.transition(uint8(i), ShuttingDown, Ready, Running)
	}
	Broadcast(Shutdown)

	var stopped int
	for i := 1; i < cpu.NumCores; i++ {
		core := uint8(i)
		if st := cores.stateOf(core); st == Stopped || (st < Ready && !cores.isReady(core)) {
			continue
		}

		if budget.Spin(func() bool { return !cores.isReady(core) }) {
			stopped++
			kfmt.Printf("[smp] core %d stopped successfully\n", i)
		} else {
			kfmt.Printf("[smp] warning: core %d did not stop in time\n", i)
		}
	}

	cores.setOnline(cores.countReady(cpu.NumCores))
	kfmt.Printf("[smp] secondary cores shutdown complete\n")
	return stopped
}

// WorkloadSnapshot returns every core's workload counter. Values are read
// with independent atomic loads and may be stale by one update.
func WorkloadSnapshot() [cpu.NumCores]uint64 {
	var snap [cpu.NumCores]uint64
	for i := range snap {
		snap[i] = cores.workloadOf(uint8(i))
	}
	return snap
}

// Balance summarizes how evenly work is spread over the online secondary
// cores.
type Balance struct {
	// Active is the number of online secondary cores included.
	Active int

	// Mean is the mean workload of the active cores.
	Mean uint64

	// Deviation holds each active core's signed distance from Mean.
	Deviation [cpu.NumCores]int64

	// Included marks the cores that contributed to Mean.
	Included [cpu.NumCores]bool
}

// RebalanceReport computes and logs the workload deviation of each online
// secondary core from the mean. It is purely observational; no work is
// moved between cores.
func RebalanceReport() Balance {
	var (
		b    Balance
		snap = WorkloadSnapshot()
	)

	online := cores.onlineCount()
	if online <= 1 {
		return b
	}

	kfmt.Printf("[smp] balancing workload across %d cores\n", online)

	var total uint64
	for i := 1; i < cpu.NumCores; i++ {
		if cores.isReady(uint8(i)) {
			b.Included[i] = true
			b.Active++
			total += snap[i]
		}
	}

	if b.Active == 0 {
		return b
	}

	b.Mean = total / uint64(b.Active)
	kfmt.Printf("[smp] average workload: %d\n", b.Mean)

	for i := 1; i < cpu.NumCores; i++ {
		if !b.Included[i] {
			continue
		}
		b.Deviation[i] = int64(snap[i]) - int64(b.Mean)
		kfmt.Printf("[smp]   core %d: workload %d (deviation: %d)\n", i, snap[i], b.Deviation[i])
	}

	return b
}

// OnlineCores returns the number of online cores recorded by the last
// bring-up or shutdown, including the boot core.
func OnlineCores() int {
	return cores.onlineCount()
}

// IsCoreOnline returns true if core has reported readiness and not stopped.
func IsCoreOnline(core int) bool {
	if core < 0 || core >= cpu.NumCores {
		return false
	}
	return cores.isReady(uint8(core))
}

// CheckReadiness recounts the readiness flags of all cores.
func CheckReadiness() int {
	return cores.countReady(cpu.NumCores)
}

// State returns the lifecycle state of core.
func State(core int) CoreState {
	if core < 0 || core >= cpu.NumCores {
		return Offline
	}
	return cores.stateOf(uint8(core))
}

// Observed returns the command core last acted upon.
func Observed(core int) Command {
	if core < 0 || core >= cpu.NumCores {
		return None
	}
	return cores.observedBy(uint8(core))
}
