// Package mem defines memory size units shared by the allocator and the
// SMP stack layout.
package mem

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// AlignUp rounds addr up to the next multiple of align, which must be a
// power of two.
func AlignUp(addr uintptr, align Size) uintptr {
	mask := uintptr(align) - 1
	return (addr + mask) &^ mask
}
