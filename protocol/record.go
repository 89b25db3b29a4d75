package protocol

import "fmt"

// Header is the fixed four byte prefix of every record.
type Header struct {
	Len  uint8 // Payload length in bytes, a multiple of 4
	Type uint8 // Command or response type tag
	Ext  uint8 // Type specific extension byte
	Seq  uint8 // Sequence number echoed from the command
}

// Record is one command or response as laid out on the wire.
// Data is fixed size so records can live in preallocated slots.
type Record struct {
	Header
	Data [MaxPayload]byte
}

// Payload returns the valid part of Data
func (r *Record) Payload() []byte {
	n := int(r.Len)
	if n > MaxPayload {
		n = MaxPayload
	}
	return r.Data[:n]
}

// Size returns the number of bytes the record occupies on the wire
func (r *Record) Size() int {
	return RecordHeaderSize + len(r.Payload())
}

// IsResponse reports whether the type tag is in the response range
func (r *Record) IsResponse() bool {
	return r.Type&RspFlag == RspFlag
}

func (r *Record) String() string {
	return fmt.Sprintf("type=0x%02x ext=0x%02x seq=%d len=%d", r.Type, r.Ext, r.Seq, r.Len)
}

// PutRecord copies the record header and payload into dst and returns the
// number of bytes written. dst must hold r.Size() bytes.
func PutRecord(dst []byte, r *Record) (int, error) {
	n := r.Size()
	if len(dst) < n {
		return 0, ErrBlockOverflow
	}
	dst[0] = r.Len
	dst[1] = r.Type
	dst[2] = r.Ext
	dst[3] = r.Seq
	copy(dst[RecordHeaderSize:n], r.Payload())
	return n, nil
}

// DecodeRecord parses one record from the front of src and returns the
// number of bytes consumed.
func DecodeRecord(src []byte, r *Record) (int, error) {
	if len(src) < RecordHeaderSize {
		return 0, ErrShortRecord
	}
	n := int(src[0])
	if n > MaxPayload || len(src) < RecordHeaderSize+n {
		return 0, ErrRecordLength
	}
	r.Len = src[0]
	r.Type = src[1]
	r.Ext = src[2]
	r.Seq = src[3]
	copy(r.Data[:], src[RecordHeaderSize:RecordHeaderSize+n])
	return RecordHeaderSize + n, nil
}

var typeNames = map[uint8]string{
	CmdReadReg:     "rreg",
	CmdWriteReg:    "wreg",
	CmdEcho:        "echo",
	CmdUSBWatchdog: "usb_watchdog",
	RspPreTBTT:     "pretbtt",
	RspTxComplete:  "tx_complete",
	RspBeaconCfg:   "beacon_config",
	RspAtim:        "atim",
	RspWatchdog:    "watchdog",
	RspUSBWatchdog: "usb_watchdog_report",
	RspText:        "text",
	RspHexDump:     "hexdump",
	RspRadar:       "radar",
	RspGPIO:        "gpio",
	RspBoot:        "boot",
}

// TypeName returns a short name for a type tag
func TypeName(typ uint8) string {
	if name, ok := typeNames[typ]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", typ)
}
