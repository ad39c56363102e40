package gate

import (
	"io"
	"raspkern/kernel/kfmt"
)

// Context is the register snapshot pushed by the vector table entry code
// when an exception is taken. Its layout is shared with vectors_arm64.s and
// must not change without updating the save/restore sequence there.
//
// A Context lives on the stack of the core that took the exception and is
// only valid for the duration of the handler invocation. Handlers may modify
// it (e.g. to place a system call result in X0); the modified values are
// restored before returning from the exception.
type Context struct {
	// GPR holds X0 to X30.
	GPR [31]uint64

	// SP is the saved SP_EL0.
	SP uint64

	// ELR is the saved exception link register (return address).
	ELR uint64

	// SPSR is the saved processor status.
	SPSR uint64
}

// contextSize is the number of bytes reserved by the entry code.
const contextSize = 272

// DumpTo outputs the register contents to w.
func (c *Context) DumpTo(w io.Writer) {
	for i := 0; i < 30; i += 2 {
		kfmt.Fprintf(w, "X%d%s= %16x X%d%s= %16x\n",
			i, regPad(i), c.GPR[i],
			i+1, regPad(i+1), c.GPR[i+1],
		)
	}
	kfmt.Fprintf(w, "X30 = %16x SP  = %16x\n", c.GPR[30], c.SP)
	kfmt.Fprintf(w, "ELR = %16x SPSR= %16x\n", c.ELR, c.SPSR)
}

func regPad(i int) string {
	if i < 10 {
		return "  "
	}
	return " "
}
