//go:build tinygo && ar9170

package main

import (
	"runtime/volatile"
	"unsafe"
)

// mmio accesses the chip registers directly
type mmio struct{}

func reg8(addr uint32) *volatile.Register8 {
	return (*volatile.Register8)(unsafe.Pointer(uintptr(addr)))
}

func reg32(addr uint32) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(addr)))
}

func (mmio) Get8(addr uint32) uint8         { return reg8(addr).Get() }
func (mmio) Set8(addr uint32, val uint8)    { reg8(addr).Set(val) }
func (mmio) And8(addr uint32, mask uint8)   { reg8(addr).ClearBits(^mask) }
func (mmio) Or8(addr uint32, mask uint8)    { reg8(addr).SetBits(mask) }
func (mmio) Get32(addr uint32) uint32       { return reg32(addr).Get() }
func (mmio) Set32(addr uint32, val uint32)  { reg32(addr).Set(val) }
func (mmio) And32(addr uint32, mask uint32) { reg32(addr).ClearBits(^mask) }
func (mmio) Or32(addr uint32, mask uint32)  { reg32(addr).SetBits(mask) }
