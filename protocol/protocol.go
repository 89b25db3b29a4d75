// Package protocol implements the wire format spoken between the adapter
// firmware and the host driver: command/response records and the packed
// response blocks sent on the bulk-in endpoint.
package protocol

import "errors"

// Version represents the firmware protocol version
const Version = "1.9.9"

// Record and block layout constants
const (
	RecordHeaderSize = 4  // len, type, ext, seq
	MaxPayload       = 60 // Maximum record payload in bytes
	MaxRecordSize    = RecordHeaderSize + MaxPayload

	BlockHeaderSize = 12  // total length, data size, magic
	BlockSize       = 256 // Maximum size of one response block
	BlockMagicSize  = 8
)

// BlockMagic marks the start of a response block so the host can resync
// on a byte stream.
var BlockMagic = [BlockMagicSize]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x4e}

// Response type tags. Responses carry the high bits 0xc0.
const (
	RspFlag        = 0xc0
	RspPreTBTT     = 0xc0
	RspTxComplete  = 0xc1
	RspBeaconCfg   = 0xc2
	RspAtim        = 0xc3
	RspWatchdog    = 0xc6
	RspUSBWatchdog = 0xc9
	RspText        = 0xca
	RspHexDump     = 0xcc
	RspRadar       = 0xcd
	RspGPIO        = 0xce
	RspBoot        = 0xcf
)

// Command type tags understood by the built-in command processor.
const (
	CmdReadReg     = 0x00
	CmdWriteReg    = 0x01
	CmdEcho        = 0x04
	CmdUSBWatchdog = 0x09
)

var (
	ErrShortRecord   = errors.New("record shorter than its header")
	ErrRecordLength  = errors.New("record length exceeds buffer")
	ErrShortBlock    = errors.New("block shorter than its header")
	ErrBadMagic      = errors.New("block magic mismatch")
	ErrBlockLength   = errors.New("block length out of range")
	ErrBlockOverflow = errors.New("record does not fit in block")
)
