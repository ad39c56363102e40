package smp

// CoreState is the lifecycle state of a core.
//
// Offline -> StackAssigned -> Woken is driven by the boot core during
// bring-up. Woken -> Ready -> Running is driven by the secondary core
// itself. Ready/Running -> ShuttingDown is requested by the boot core and
// every live state ends in Stopped, entered by the core itself. Stopped is
// terminal until the board is reset.
type CoreState uint32

const (
	Offline CoreState = iota
	StackAssigned
	Woken
	Ready
	Running
	ShuttingDown
	Stopped
)

var stateNames = [...]string{
	"offline",
	"stack-assigned",
	"woken",
	"ready",
	"running",
	"shutting-down",
	"stopped",
}

// String implements fmt.Stringer for CoreState.
func (s CoreState) String() string {
	if int(s) >= len(stateNames) {
		return "invalid"
	}
	return stateNames[s]
}

// Command is the value of the global command word read by every secondary
// core's run loop.
type Command uint32

const (
	None Command = iota
	Compute
	Idle
	Shutdown
)

var commandNames = [...]string{"none", "compute", "idle", "shutdown"}

// String implements fmt.Stringer for Command.
func (c Command) String() string {
	if int(c) >= len(commandNames) {
		return "invalid"
	}
	return commandNames[c]
}
