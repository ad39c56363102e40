// Package heap implements the kernel's bump allocator. It carves
// allocations out of a single linear region and never reclaims memory.
package heap

import (
	"raspkern/kernel"
	"raspkern/kernel/kfmt"
	"raspkern/kernel/mem"
	"raspkern/kernel/sync"
)

const (
	// DefaultBase is the start of the heap region.
	DefaultBase uintptr = 0x1000000

	// DefaultSize is the size of the heap region. It holds the three
	// secondary core stacks with room to spare.
	DefaultSize = 1 * mem.Mb
)

var (
	// ErrOutOfMemory is returned when a request does not fit in the
	// remaining heap space.
	ErrOutOfMemory = &kernel.Error{Module: "heap", Message: "out of memory"}

	errInvalidAlign = &kernel.Error{Module: "heap", Message: "alignment must be a power of two"}
	errNotReady     = &kernel.Error{Module: "heap", Message: "allocator not initialized"}
)

// Allocator is a lock-protected bump allocator that may be used from any
// core.
type Allocator struct {
	lock sync.Spinlock

	start, end, next uintptr
}

// Init configures the allocator to hand out memory from [base, base+size).
func (a *Allocator) Init(base uintptr, size mem.Size) {
	a.lock.Acquire()
	a.start = base
	a.next = base
	a.end = base + uintptr(size)
	a.lock.Release()

	kfmt.Printf("[heap] initialized at 0x%x, size %d bytes\n", base, uint64(size))
}

// Allocate reserves size bytes aligned to align and returns the address of
// the reservation.
func (a *Allocator) Allocate(size, align mem.Size) (uintptr, *kernel.Error) {
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return 0, errInvalidAlign
	}

	a.lock.Acquire()
	defer a.lock.Release()

	if a.end == 0 {
		return 0, errNotReady
	}

	addr := mem.AlignUp(a.next, align)
	if addr < a.next || addr+uintptr(size) < addr || addr+uintptr(size) > a.end {
		return 0, ErrOutOfMemory
	}

	a.next = addr + uintptr(size)
	return addr, nil
}

// Deallocate is a no-op; the allocator never reclaims memory.
func (a *Allocator) Deallocate(uintptr, mem.Size) {}

// Used returns the number of bytes consumed, including alignment padding.
func (a *Allocator) Used() mem.Size {
	a.lock.Acquire()
	defer a.lock.Release()
	return mem.Size(a.next - a.start)
}

// Free returns the number of bytes left.
func (a *Allocator) Free() mem.Size {
	a.lock.Acquire()
	defer a.lock.Release()
	return mem.Size(a.end - a.next)
}

// Kernel is the allocator used for kernel data such as secondary core
// stacks.
var Kernel Allocator
