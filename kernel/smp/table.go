package smp

import (
	"raspkern/kernel/cpu"
	"raspkern/kernel/sync"
	"sync/atomic"
)

// coreTable is the process-wide SMP state. It is only touched through the
// accessors below so the ordering rules stay in one place:
//
//   - a stack top is published with a release store before the owning
//     core's mailbox is written, and read with an acquire load by the
//     secondary entry code;
//   - readiness flags, states, the command word and workload counters use
//     atomic loads and stores; readers may see stale values for a few
//     iterations.
//
// stackTops must remain the first field and bounds the second: the
// secondary entry trampoline indexes both directly.
type coreTable struct {
	stackTops [cpu.NumCores]uint64

	// bounds[core] becomes the core's g while it runs secondaryMain. It is
	// written before the matching stack top is published.
	bounds [cpu.NumCores]cpu.StackBounds

	ready    [cpu.NumCores]sync.StateCell
	state    [cpu.NumCores]sync.StateCell
	observed [cpu.NumCores]sync.StateCell
	workload [cpu.NumCores]uint64
	checksum [cpu.NumCores]uint64

	command   sync.StateCell
	shutdown  sync.StateCell
	online    sync.StateCell
	broughtUp sync.StateCell
}

var cores = newCoreTable()

func newCoreTable() *coreTable {
	t := &coreTable{}
	t.ready[cpu.BootCore].Store(1)
	t.state[cpu.BootCore].Store(uint32(Running))
	t.online.Store(1)
	return t
}

func (t *coreTable) publishStack(core uint8, base, top uintptr) {
	t.bounds[core] = cpu.NewStackBounds(base, top)
	atomic.StoreUint64(&t.stackTops[core], uint64(top))
}

func (t *coreTable) stackBounds(core uint8) cpu.StackBounds {
	return t.bounds[core]
}

func (t *coreTable) stackTop(core uint8) uintptr {
	return uintptr(atomic.LoadUint64(&t.stackTops[core]))
}

func (t *coreTable) setReady(core uint8, ready bool) {
	var v uint32
	if ready {
		v = 1
	}
	t.ready[core].Store(v)
}

func (t *coreTable) isReady(core uint8) bool {
	return t.ready[core].Load() == 1
}

func (t *coreTable) stateOf(core uint8) CoreState {
	return CoreState(t.state[core].Load())
}

// transition moves core to next if it is currently in one of from.
func (t *coreTable) transition(core uint8, next CoreState, from ...CoreState) bool {
	var raw [len(stateNames)]uint32
	for i, s := range from {
		raw[i] = uint32(s)
	}
	_, ok := t.state[core].Transition(uint32(next), raw[:len(from)]...)
	return ok
}

func (t *coreTable) addWork(core uint8, n uint64) {
	atomic.AddUint64(&t.workload[core], n)
}

func (t *coreTable) workloadOf(core uint8) uint64 {
	return atomic.LoadUint64(&t.workload[core])
}

func (t *coreTable) setChecksum(core uint8, v uint32) {
	atomic.StoreUint64(&t.checksum[core], uint64(v))
}

func (t *coreTable) checksumOf(core uint8) uint32 {
	return uint32(atomic.LoadUint64(&t.checksum[core]))
}

func (t *coreTable) observe(core uint8, cmd Command) {
	if Command(t.observed[core].Load()) != cmd {
		t.observed[core].Store(uint32(cmd))
	}
}

func (t *coreTable) observedBy(core uint8) Command {
	return Command(t.observed[core].Load())
}

func (t *coreTable) setCommand(cmd Command) { t.command.Store(uint32(cmd)) }

func (t *coreTable) currentCommand() Command { return Command(t.command.Load()) }

func (t *coreTable) setShutdown() { t.shutdown.Store(1) }

func (t *coreTable) shutdownRequested() bool { return t.shutdown.Load() == 1 }

func (t *coreTable) setOnline(n int) { t.online.Store(uint32(n)) }

func (t *coreTable) onlineCount() int { return int(t.online.Load()) }

// countReady returns the number of cores in [0, limit) with their readiness
// flag set.
func (t *coreTable) countReady(limit int) int {
	var n int
	for i := 0; i < limit; i++ {
		if t.isReady(uint8(i)) {
			n++
		}
	}
	return n
}
