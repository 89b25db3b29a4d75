//go:build tinygo && ar9170

package main

import (
	"runtime/volatile"
	"unsafe"

	"usbfw/core"
)

// Board specific registers
const (
	regClockCtrl   = 0x1d4008
	clockAHB20MHz  = 0x1
	regTimerClockL = 0x1c3694

	regPTAUpDMAHead = 0x1e2008
)

// board implements core.Board for the adapter
type board struct {
	regs mmio
}

// SetLEDs drives the LED pins on the GPIO port
func (b *board) SetLEDs(mask uint32) {
	b.regs.Set32(core.RegGPIOPortData, mask)
}

// SlowClock drops the AHB clock before the PLL is powered off
func (b *board) SlowClock() {
	b.regs.Set32(regClockCtrl, clockAHB20MHz)
}

// JumpToBootcode hands the chip back to the boot ROM. The reboot sequence
// armed the watchdog magic, so letting the hardware watchdog fire restarts
// into the boot code.
func (b *board) JumpToBootcode() {
	b.regs.Set32(core.RegTimerWatchDog, 1)
	for {
	}
}

// clockNow reads the low word of the free running clock counter
func clockNow(regs mmio) uint32 {
	return regs.Get32(regTimerClockL)
}

// DMA descriptor status bits
const (
	descOwnedByHW = 0x1
	descLastDesc  = 0x0c
)

// dmaDesc is a packet transfer arbiter descriptor
type dmaDesc struct {
	status   volatile.Register16
	ctrl     volatile.Register16
	dataSize volatile.Register16
	totalLen volatile.Register16
	lastAddr uint32
	dataAddr volatile.Register32
	nextAddr uint32
}

// upQueue hands response blocks to the up DMA engine through a single
// descriptor. The block stays in use until the engine returns the
// descriptor.
type upQueue struct {
	desc dmaDesc
	busy bool
}

func newUpQueue(regs mmio) *upQueue {
	q := &upQueue{}
	q.desc.lastAddr = uint32(uintptr(unsafe.Pointer(&q.desc)))
	q.desc.nextAddr = q.desc.lastAddr
	regs.Set32(regPTAUpDMAHead, q.desc.lastAddr)
	return q
}

// Submit points the descriptor at block and passes it to the hardware
func (q *upQueue) Submit(block []byte) {
	q.desc.dataAddr.Set(uint32(uintptr(unsafe.Pointer(&block[0]))))
	q.desc.dataSize.Set(uint16(len(block)))
	q.desc.totalLen.Set(uint16(len(block)))
	q.desc.ctrl.Set(descLastDesc)
	q.desc.status.Set(descOwnedByHW)
	q.busy = true
}

// done reports whether a submitted block has been sent
func (q *upQueue) done() bool {
	if !q.busy || q.desc.status.HasBits(descOwnedByHW) {
		return false
	}
	q.busy = false
	return true
}
