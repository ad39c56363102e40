package gate

import "raspkern/kernel/kfmt"

// SyscallNumberReg is the register holding the system call number.
const SyscallNumberReg = 8

// defaultSyscall logs the requested call and reports success in X0. No
// system calls are implemented yet.
func defaultSyscall(ctx *Context) {
	kfmt.Printf("[gate] system call #%d\n", ctx.GPR[SyscallNumberReg])
	ctx.GPR[0] = 0
}

// HandleSyscalls replaces the system call handler. Passing nil restores the
// default handler.
func HandleSyscalls(handler func(*Context)) {
	if handler == nil {
		handler = defaultSyscall
	}
	syscallHandler = handler
}
