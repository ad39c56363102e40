//go:build rpi3

package gate

// vectorTableAddr returns the address of the 2KB aligned vector table
// defined in vectors_arm64.s.
func vectorTableAddr() uintptr
