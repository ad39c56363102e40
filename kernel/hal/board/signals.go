package board

// Assert raises the raw signal of interrupt line id. Ids 0-31 map to
// peripheral bank 1, 32-63 to bank 2 and 64-71 to the local block.
func (b *Board) Assert(id uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case id < 32:
		b.raw1 |= 1 << id
	case id < 64:
		b.raw2 |= 1 << (id - 32)
	case id < 72:
		b.localRaw |= 1 << (id - 64)
	}
}

// Deassert lowers the raw signal of interrupt line id.
func (b *Board) Deassert(id uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case id < 32:
		b.raw1 &^= 1 << id
	case id < 64:
		b.raw2 &^= 1 << (id - 32)
	case id < 72:
		b.localRaw &^= 1 << (id - 64)
	}
}

// AssertBasic raises bit n (0-7) of the basic pending register. The basic
// bank has no enable gating in the model.
func (b *Board) AssertBasic(n uint32) {
	b.mu.Lock()
	b.rawBasic |= 1 << (n & 7)
	b.mu.Unlock()
}

// ClearBasic lowers every bit of the basic pending register.
func (b *Board) ClearBasic() {
	b.mu.Lock()
	b.rawBasic = 0
	b.mu.Unlock()
}

// Tick models one expiry of the local timer. If the timer and its interrupt
// are enabled the timer line is raised. It returns true when an enabled
// interrupt is pending afterwards.
func (b *Board) Tick() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timerControl&timerEnabled != 0 && b.timerControl&timerIRQEnabled != 0 {
		b.localRaw |= localTimerBit
	}
	return b.pendingLocked()
}

// Pending returns true if any enabled interrupt is pending.
func (b *Board) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pendingLocked()
}

func (b *Board) pendingLocked() bool {
	return b.rawBasic != 0 || b.raw1&b.en1 != 0 || b.raw2&b.en2 != 0 || b.localRaw&b.localEn != 0
}

// TimerControl returns the last value written to the timer control register.
func (b *Board) TimerControl() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timerControl
}

// TimerReload returns the programmed timer reload value.
func (b *Board) TimerReload() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timerReload
}

// Mailbox returns the current content of a core's mailbox.
func (b *Board) Mailbox(core int) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mailbox[core]
}

// SetUARTBusy makes the next n reads of the UART flag register report a
// full transmit FIFO.
func (b *Board) SetUARTBusy(n int) {
	b.mu.Lock()
	b.uartBusy = n
	b.mu.Unlock()
}
