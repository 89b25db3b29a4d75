package core

// Registers is the device register interface the core drives. Addresses
// are absolute device addresses. Byte accessors are used for the USB
// controller's 8-bit registers, word accessors for everything else.
type Registers interface {
	Get8(addr uint32) uint8
	Set8(addr uint32, val uint8)
	And8(addr uint32, mask uint8)
	Or8(addr uint32, mask uint8)

	Get32(addr uint32) uint32
	Set32(addr uint32, val uint32)
	And32(addr uint32, mask uint32)
	Or32(addr uint32, mask uint32)
}

// regWrite is one step of a fixed register script
type regWrite struct {
	addr uint32
	val  uint32
}

func applyScript(regs Registers, script []regWrite) {
	for _, w := range script {
		regs.Set32(w.addr, w.val)
	}
}
