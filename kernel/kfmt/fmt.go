// Package kfmt implements the kernel's logging facility: an allocation-free
// Printf whose output goes to a single sink shared by all cores. Output
// produced before a sink is attached is held in a ring buffer and replayed
// when SetOutputSink is called.
package kfmt

import (
	"io"
	"raspkern/kernel/sync"
	"sync/atomic"
	"unsafe"
)

const (
	// maxBufSize defines the buffer size for formatting numbers.
	maxBufSize = 32

	// panicLockAttempts bounds the wait for the print lock once a core
	// has entered a fatal path.
	panicLockAttempts = 1 << 16
)

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	numFmtBuf = []byte("012345678901234567890123456789012")

	// singleByte is used as a shared buffer for passing single characters
	// to doWrite.
	singleByte = []byte(" ")

	// earlyPrintBuffer captures Printf output until a sink is attached.
	earlyPrintBuffer ringBuffer

	// outputSink receives Printf output. When nil, output is redirected to
	// earlyPrintBuffer.
	outputSink io.Writer

	// printLock serializes all formatting so lines emitted by different
	// cores never interleave and the shared scratch buffers stay coherent.
	printLock sync.Spinlock

	// panicking is set by BeginPanic.
	panicking uint32
)

// BeginPanic switches kfmt to best-effort output for a core that is about
// to halt. From then on every print waits a bounded time for the print lock
// and writes without it if the lock cannot be taken, so a core that faults
// while holding the lock can still report. Output from different cores may
// interleave afterwards.
func BeginPanic() {
	atomic.StoreUint32(&panicking, 1)
}

// lockOutput acquires printLock and reports whether it is held by the
// caller.
func lockOutput() bool {
	if atomic.LoadUint32(&panicking) == 0 {
		printLock.Acquire()
		return true
	}

	for i := 0; i < panicLockAttempts; i++ {
		if printLock.TryToAcquire() {
			return true
		}
	}
	return false
}

func unlockOutput(locked bool) {
	if locked {
		printLock.Release()
	}
}

// SetOutputSink sets the default target for calls to Printf to w and
// replays any output accumulated in the early ring buffer.
func SetOutputSink(w io.Writer) {
	flags := irqSave()
	locked := lockOutput()
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
	unlockOutput(locked)
	irqRestore(flags)
}

// GetOutputSink returns the currently attached sink or nil.
func GetOutputSink() io.Writer {
	return outputSink
}

// Printf provides a minimal Printf implementation that can be used before
// the Go allocator is available. It supports the following verbs:
//
//	%s the uninterpreted bytes of a string or byte slice
//	%c a single byte or rune (runes above 0xff are printed as '?')
//	%o %d %x integers in base 8, 10 and 16
//	%t "true" or "false"
//
// An optional decimal width may precede the verb. Strings and base-10
// integers are left-padded with spaces; base-8 and base-16 integers are
// left-padded with zeroes.
//
// Calls from different cores are serialized; a single Printf call is never
// interleaved with output from another core.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer. A nil writer selects the early ring buffer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	flags := irqSave()
	locked := lockOutput()
	fprintf(w, format, args...)
	unlockOutput(locked)
	irqRestore(flags)
}

func fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		nextCh                       byte
		nextArgIndex                 int
		blockStart, blockEnd, padLen int
		fmtLen                       = len(format)
	)

	for blockEnd < fmtLen {
		nextCh = format[blockEnd]
		if nextCh != '%' {
			blockEnd++
			continue
		}

		writeLiteral(w, format, blockStart, blockEnd)

		padLen = 0
		blockEnd++
	parseFmt:
		for ; blockEnd < fmtLen; blockEnd++ {
			nextCh = format[blockEnd]
			switch {
			case nextCh == '%':
				singleByte[0] = '%'
				doWrite(w, singleByte)
				break parseFmt
			case nextCh >= '0' && nextCh <= '9':
				padLen = (padLen * 10) + int(nextCh-'0')
				continue
			case isVerb(nextCh):
				if nextArgIndex >= len(args) {
					doWrite(w, errMissingArg)
					break parseFmt
				}

				switch nextCh {
				case 'o':
					fmtInt(w, args[nextArgIndex], 8, padLen)
				case 'd':
					fmtInt(w, args[nextArgIndex], 10, padLen)
				case 'x':
					fmtInt(w, args[nextArgIndex], 16, padLen)
				case 's':
					fmtString(w, args[nextArgIndex], padLen)
				case 'c':
					fmtChar(w, args[nextArgIndex])
				case 't':
					fmtBool(w, args[nextArgIndex])
				}

				nextArgIndex++
				break parseFmt
			}

			// reached end of formatting string without finding a verb
			doWrite(w, errNoVerb)
		}
		blockStart, blockEnd = blockEnd+1, blockEnd+1
	}

	writeLiteral(w, format, blockStart, blockEnd)

	for ; nextArgIndex < len(args); nextArgIndex++ {
		doWrite(w, errExtraArg)
	}
}

func isVerb(ch byte) bool {
	switch ch {
	case 'd', 'x', 'o', 's', 't', 'c':
		return true
	}
	return false
}

// writeLiteral emits format[from:to]. Slicing the format string into a byte
// slice would allocate so the bytes are written one at a time.
func writeLiteral(w io.Writer, format string, from, to int) {
	if to > len(format) {
		to = len(format)
	}
	for i := from; i < to; i++ {
		singleByte[0] = format[i]
		doWrite(w, singleByte)
	}
}

func fmtBool(w io.Writer, v interface{}) {
	bVal, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongArgType)
	case bVal:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

func fmtChar(w io.Writer, v interface{}) {
	switch ch := v.(type) {
	case byte:
		singleByte[0] = ch
	case rune:
		if ch < 0 || ch > 0xff {
			singleByte[0] = '?'
		} else {
			singleByte[0] = byte(ch)
		}
	default:
		doWrite(w, errWrongArgType)
		return
	}
	doWrite(w, singleByte)
}

// fmtString prints a string or []byte value, applying the padding specified
// by padLen.
func fmtString(w io.Writer, v interface{}, padLen int) {
	switch castedVal := v.(type) {
	case string:
		fmtRepeat(w, ' ', padLen-len(castedVal))
		for i := 0; i < len(castedVal); i++ {
			singleByte[0] = castedVal[i]
			doWrite(w, singleByte)
		}
	case []byte:
		fmtRepeat(w, ' ', padLen-len(castedVal))
		doWrite(w, castedVal)
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtRepeat writes count bytes with value ch.
func fmtRepeat(w io.Writer, ch byte, count int) {
	singleByte[0] = ch
	for i := 0; i < count; i++ {
		doWrite(w, singleByte)
	}
}

// fmtInt prints v in the requested base, applying the padding specified by
// padLen. All built-in signed and unsigned integer types are supported.
func fmtInt(w io.Writer, v interface{}, base, padLen int) {
	var (
		sval             int64
		uval             uint64
		divider          = uint64(base)
		remainder        uint64
		padCh            byte = '0'
		left, right, end int
	)

	if padLen >= maxBufSize {
		padLen = maxBufSize - 1
	}

	if base == 10 {
		padCh = ' '
	}

	switch t := v.(type) {
	case uint8:
		uval = uint64(t)
	case uint16:
		uval = uint64(t)
	case uint32:
		uval = uint64(t)
	case uint64:
		uval = t
	case uint:
		uval = uint64(t)
	case uintptr:
		uval = uint64(t)
	case int8:
		sval = int64(t)
	case int16:
		sval = int64(t)
	case int32:
		sval = int64(t)
	case int64:
		sval = t
	case int:
		sval = int64(t)
	default:
		doWrite(w, errWrongArgType)
		return
	}

	if sval < 0 {
		uval = uint64(-sval)
	} else if sval > 0 {
		uval = uint64(sval)
	}

	for right < maxBufSize {
		remainder = uval % divider
		if remainder < 10 {
			numFmtBuf[right] = byte(remainder) + '0'
		} else {
			numFmtBuf[right] = byte(remainder-10) + 'a'
		}

		right++

		uval /= divider
		if uval == 0 {
			break
		}
	}

	for ; right-left < padLen; right++ {
		numFmtBuf[right] = padCh
	}

	// The sign replaces the rightmost pad space if there is one; otherwise
	// it is appended.
	if sval < 0 {
		for end = right - 1; numFmtBuf[end] == ' '; end-- {
		}

		if end == right-1 {
			right++
		}

		numFmtBuf[end+1] = '-'
	}

	end = right
	for right = right - 1; left < right; left, right = left+1, right-1 {
		numFmtBuf[left], numFmtBuf[right] = numFmtBuf[right], numFmtBuf[left]
	}

	doWrite(w, numFmtBuf[0:end])
}

// doWrite hides p from escape analysis. Without it the compiler flags p as
// escaping through the unknown io.Writer and every Printf call would
// allocate.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
	} else {
		earlyPrintBuffer.Write(p)
	}
}

// noEscape hides a pointer from escape analysis. Copied from runtime/stubs.go.
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
