package core

import (
	"fmt"
	"sync"
)

// RegOpKind identifies a register write in a FakeRegisters log
type RegOpKind uint8

const (
	OpSet8 RegOpKind = iota
	OpAnd8
	OpOr8
	OpSet32
	OpAnd32
	OpOr32
)

var regOpNames = [...]string{"set8", "and8", "or8", "set32", "and32", "or32"}

func (k RegOpKind) String() string {
	if int(k) < len(regOpNames) {
		return regOpNames[k]
	}
	return "unknown"
}

// RegOp is one logged register write. Val is the written value or mask.
type RegOp struct {
	Kind RegOpKind
	Addr uint32
	Val  uint32
}

func (o RegOp) String() string {
	return fmt.Sprintf("%s 0x%06x 0x%08x", o.Kind, o.Addr, o.Val)
}

// FakeRegisters is an in-memory register file. Byte and word registers
// live in separate spaces. Reads of an address with queued values pop the
// queue, which models FIFO data registers; everything else reads back the
// last value written.
type FakeRegisters struct {
	mu     sync.Mutex
	bytes  map[uint32]uint8
	words  map[uint32]uint32
	fifo8  map[uint32][]uint8
	fifo32 map[uint32][]uint32
	ops    []RegOp

	// OnWrite is called after every write with the register lock released
	OnWrite func(op RegOp)
}

// NewFakeRegisters creates an empty register file
func NewFakeRegisters() *FakeRegisters {
	return &FakeRegisters{
		bytes:  make(map[uint32]uint8),
		words:  make(map[uint32]uint32),
		fifo8:  make(map[uint32][]uint8),
		fifo32: make(map[uint32][]uint32),
	}
}

// Poke8 sets a byte register without logging a write
func (f *FakeRegisters) Poke8(addr uint32, val uint8) {
	f.mu.Lock()
	f.bytes[addr] = val
	f.mu.Unlock()
}

// Poke32 sets a word register without logging a write
func (f *FakeRegisters) Poke32(addr uint32, val uint32) {
	f.mu.Lock()
	f.words[addr] = val
	f.mu.Unlock()
}

// Peek8 returns a byte register without consuming queued reads
func (f *FakeRegisters) Peek8(addr uint32) uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bytes[addr]
}

// Peek32 returns a word register without consuming queued reads
func (f *FakeRegisters) Peek32(addr uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.words[addr]
}

// Queue8 appends values returned by successive Get8 calls on addr
func (f *FakeRegisters) Queue8(addr uint32, vals ...uint8) {
	f.mu.Lock()
	f.fifo8[addr] = append(f.fifo8[addr], vals...)
	f.mu.Unlock()
}

// Queue32 appends values returned by successive Get32 calls on addr
func (f *FakeRegisters) Queue32(addr uint32, vals ...uint32) {
	f.mu.Lock()
	f.fifo32[addr] = append(f.fifo32[addr], vals...)
	f.mu.Unlock()
}

// Ops returns a copy of the write log
func (f *FakeRegisters) Ops() []RegOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RegOp(nil), f.ops...)
}

// ResetOps clears the write log
func (f *FakeRegisters) ResetOps() {
	f.mu.Lock()
	f.ops = f.ops[:0]
	f.mu.Unlock()
}

func (f *FakeRegisters) Get8(addr uint32) uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q := f.fifo8[addr]; len(q) > 0 {
		f.fifo8[addr] = q[1:]
		return q[0]
	}
	return f.bytes[addr]
}

func (f *FakeRegisters) Get32(addr uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q := f.fifo32[addr]; len(q) > 0 {
		f.fifo32[addr] = q[1:]
		return q[0]
	}
	return f.words[addr]
}

func (f *FakeRegisters) Set8(addr uint32, val uint8) {
	f.write8(OpSet8, addr, val, val)
}

func (f *FakeRegisters) And8(addr uint32, mask uint8) {
	f.write8(OpAnd8, addr, mask, f.Peek8(addr)&mask)
}

func (f *FakeRegisters) Or8(addr uint32, mask uint8) {
	f.write8(OpOr8, addr, mask, f.Peek8(addr)|mask)
}

func (f *FakeRegisters) Set32(addr uint32, val uint32) {
	f.write32(OpSet32, addr, val, val)
}

func (f *FakeRegisters) And32(addr uint32, mask uint32) {
	f.write32(OpAnd32, addr, mask, f.Peek32(addr)&mask)
}

func (f *FakeRegisters) Or32(addr uint32, mask uint32) {
	f.write32(OpOr32, addr, mask, f.Peek32(addr)|mask)
}

func (f *FakeRegisters) write8(kind RegOpKind, addr uint32, arg, val uint8) {
	op := RegOp{Kind: kind, Addr: addr, Val: uint32(arg)}
	f.mu.Lock()
	f.bytes[addr] = val
	f.ops = append(f.ops, op)
	hook := f.OnWrite
	f.mu.Unlock()
	if hook != nil {
		hook(op)
	}
}

func (f *FakeRegisters) write32(kind RegOpKind, addr uint32, arg, val uint32) {
	op := RegOp{Kind: kind, Addr: addr, Val: arg}
	f.mu.Lock()
	f.words[addr] = val
	f.ops = append(f.ops, op)
	hook := f.OnWrite
	f.mu.Unlock()
	if hook != nil {
		hook(op)
	}
}
