package smp

import (
	"io"
	"raspkern/kernel/cpu"
	"raspkern/kernel/kfmt"
)

// PrintStatus writes a summary of every core to w. A nil w writes to the
// active kfmt sink.
func PrintStatus(w io.Writer) {
	printf := func(format string, args ...interface{}) {
		if w == nil {
			kfmt.Printf(format, args...)
			return
		}
		kfmt.Fprintf(w, format, args...)
	}

	printf("=== Multi-Core Status ===\n")
	printf("online cores: %d/%d\n", cores.onlineCount(), cpu.NumCores)

	for i := 0; i < cpu.NumCores; i++ {
		core := uint8(i)
		switch {
		case core == cpu.BootCore:
			printf("core %d: PRIMARY (%s)\n", i, cores.stateOf(core).String())
		case cores.isReady(core):
			printf("core %d: SECONDARY (%s) workload %d stack 0x%x\n",
				i, cores.stateOf(core).String(), cores.workloadOf(core), cores.stackTop(core))
		default:
			printf("core %d: OFFLINE (%s)\n", i, cores.stateOf(core).String())
		}
	}

	printf("command: %s\n", cores.currentCommand().String())
	printf("shutdown requested: %t\n", cores.shutdownRequested())
}
