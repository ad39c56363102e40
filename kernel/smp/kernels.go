package smp

// workUnit runs one unit of simulated work for core. Each core runs a
// different kernel; acc carries the kernel's running value between units.
// It returns the number of steps executed and the new accumulator.
func workUnit(core uint8, acc uint32) (uint64, uint32) {
	switch core {
	case 1:
		// arithmetic
		for i := uint32(0); i < 1000; i++ {
			acc += (i * uint32(core)) % 1000
		}
		return 1000, acc
	case 2:
		// memory-style accumulation
		var sum uint32
		for i := uint32(0); i < 500; i++ {
			sum += i * 2
		}
		return 500, acc + sum
	case 3:
		// data mixing
		for i := 0; i < 800; i++ {
			acc = acc*3 + 1
		}
		return 800, acc
	default:
		return 1, acc + 1
	}
}
