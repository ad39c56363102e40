package smp

import (
	"raspkern/kernel/cpu"
	"raspkern/kernel/mmio"
)

// Local block offsets of mailbox 3, which carries wake vectors. Each core
// has a set register and a read/write-1-to-clear register.
const (
	mailboxSetBase   = 0x8C
	mailboxClearBase = 0xCC
	mailboxStride    = 0x10
)

// Mailboxes gives access to the per-core wake mailboxes.
type Mailboxes struct {
	set, clr [cpu.NumCores]mmio.Register
}

// NewMailboxes returns the mailboxes of the supplied local block.
func NewMailboxes(local mmio.Block) Mailboxes {
	var m Mailboxes
	for i := 0; i < cpu.NumCores; i++ {
		m.set[i] = local.Reg(mailboxSetBase + uintptr(i)*mailboxStride)
		m.clr[i] = local.Reg(mailboxClearBase + uintptr(i)*mailboxStride)
	}
	return m
}

// Post writes a wake vector to core's mailbox.
func (m Mailboxes) Post(core uint8, entry uint32) {
	m.set[core].Store(entry)
}

// Read returns the content of core's mailbox.
func (m Mailboxes) Read(core uint8) uint32 {
	return m.clr[core].Load()
}

// Clear clears the bits of v in core's mailbox.
func (m Mailboxes) Clear(core uint8, v uint32) {
	m.clr[core].Store(v)
}
