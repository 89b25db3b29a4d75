// Package regbus reaches the adapter's registers through a bench bridge
// instead of memory mapped IO. The bridge MCU sits on an I2C bus and
// executes one register operation per transaction.
package regbus

import (
	"encoding/binary"

	"tinygo.org/x/drivers"
)

// DefaultAddress is the bridge's 7-bit I2C address
const DefaultAddress = 0x2a

// Bridge operation codes. The low nibble selects the access, bit 4 the
// width.
const (
	opGet = 0x0
	opSet = 0x1
	opAnd = 0x2
	opOr  = 0x3

	opWord = 0x10
)

// I2C implements core.Registers over an I2C register bridge. Each
// transaction writes op:1, addr:4 LE and, for updates, val:4 LE. Reads
// return 1 or 4 bytes. The first bus error is kept and reported by Err;
// reads return zero after it.
type I2C struct {
	bus  drivers.I2C
	addr uint16
	buf  [9]byte
	rbuf [4]byte
	err  error
}

// New creates a register bridge on bus at the given address
func New(bus drivers.I2C, addr uint16) *I2C {
	if addr == 0 {
		addr = DefaultAddress
	}
	return &I2C{bus: bus, addr: addr}
}

// Err returns the first bus error
func (b *I2C) Err() error {
	return b.err
}

func (b *I2C) tx(op uint8, addr uint32, val uint32, r []byte) {
	if b.err != nil {
		clear(r)
		return
	}
	b.buf[0] = op
	binary.LittleEndian.PutUint32(b.buf[1:5], addr)
	w := b.buf[:5]
	if op&0xf != opGet {
		binary.LittleEndian.PutUint32(b.buf[5:9], val)
		w = b.buf[:9]
	}
	if err := b.bus.Tx(b.addr, w, r); err != nil {
		b.err = err
		clear(r)
	}
}

func (b *I2C) Get8(addr uint32) uint8 {
	b.tx(opGet, addr, 0, b.rbuf[:1])
	return b.rbuf[0]
}

func (b *I2C) Set8(addr uint32, val uint8) {
	b.tx(opSet, addr, uint32(val), nil)
}

func (b *I2C) And8(addr uint32, mask uint8) {
	b.tx(opAnd, addr, uint32(mask), nil)
}

func (b *I2C) Or8(addr uint32, mask uint8) {
	b.tx(opOr, addr, uint32(mask), nil)
}

func (b *I2C) Get32(addr uint32) uint32 {
	b.tx(opWord|opGet, addr, 0, b.rbuf[:])
	return binary.LittleEndian.Uint32(b.rbuf[:])
}

func (b *I2C) Set32(addr uint32, val uint32) {
	b.tx(opWord|opSet, addr, val, nil)
}

func (b *I2C) And32(addr uint32, mask uint32) {
	b.tx(opWord|opAnd, addr, mask, nil)
}

func (b *I2C) Or32(addr uint32, mask uint32) {
	b.tx(opWord|opOr, addr, mask, nil)
}
