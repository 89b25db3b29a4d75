//go:build tinygo && bench

package main

import (
	"machine"

	"usbfw/core"
	"usbfw/core/regbus"
)

// Adapter registers the bench drives through the bridge
const (
	regClockCtrl   = 0x1d4008
	clockAHB20MHz  = 0x1
	regTimerClockL = 0x1c3694
)

// board implements core.Board for an adapter wired to the bridge
type board struct {
	regs *regbus.I2C
}

func (b *board) SetLEDs(mask uint32) {
	b.regs.Set32(core.RegGPIOPortData, mask)
}

func (b *board) SlowClock() {
	b.regs.Set32(regClockCtrl, clockAHB20MHz)
}

// JumpToBootcode lets the adapter's hardware watchdog restart it into the
// boot code. The bench has nothing left to drive afterwards.
func (b *board) JumpToBootcode() {
	b.regs.Set32(core.RegTimerWatchDog, 1)
}

// clockNow reads the adapter's free running clock counter
func clockNow(regs *regbus.I2C) uint32 {
	return regs.Get32(regTimerClockL)
}

// serialUp forwards response blocks to the host over the USB CDC port.
// Writes complete synchronously, so a block is done once Submit returns.
type serialUp struct {
	sent bool
}

func (u *serialUp) Submit(block []byte) {
	machine.Serial.Write(block)
	u.sent = true
}

func (u *serialUp) done() bool {
	if !u.sent {
		return false
	}
	u.sent = false
	return true
}
