//go:build !(arm64 && rpi3)

package gate

import "unsafe"

// hostedVectors stands in for the vector table so Install has a distinct
// address to record. Exceptions are delivered by calling Dispatch.
var hostedVectors [numVectorSlots * 128]byte

func vectorTableAddr() uintptr {
	return uintptr(unsafe.Pointer(&hostedVectors[0]))
}
