// Package firmware reads the descriptor chain embedded in an adapter
// firmware image. Descriptors are tagged, versioned, length-prefixed
// blocks that tell the host driver what the image supports.
package firmware

import (
	"encoding/binary"
	"errors"
	"strings"
)

// HeadSize is the size of the common descriptor header
const HeadSize = 8

// Magic identifies a descriptor kind
type Magic [4]byte

// Known descriptor magics
var (
	MagicOTUS = Magic{'O', 'T', 'A', 'R'}
	MagicUSB  = Magic{'U', 'S', 'B', 0}
	MagicMOTD = Magic{'M', 'O', 'T', 'D'}
	MagicFix  = Magic{'F', 'I', 'X', 0}
	MagicDbg  = Magic{'D', 'B', 'G', 0}
	MagicChk  = Magic{'C', 'H', 'K', 0}
	MagicLast = Magic{'L', 'A', 'S', 'T'}
)

// String returns the magic with unprintable bytes shown as spaces
func (m Magic) String() string {
	var b strings.Builder
	for _, c := range m {
		if c < 0x20 || c > 0x7e {
			c = ' '
		}
		b.WriteByte(c)
	}
	return b.String()
}

// MarshalText lets encoders print the magic as text
func (m Magic) MarshalText() ([]byte, error) {
	return []byte(strings.TrimRight(m.String(), " ")), nil
}

// Head is the header every descriptor starts with
type Head struct {
	Magic  Magic  `json:"magic"`
	Length uint16 `json:"length"`
	MinVer uint8  `json:"min_ver"` // Oldest reader version that understands the block
	CurVer uint8  `json:"cur_ver"`
	Offset int    `json:"offset"` // Position in the image
}

// Header returns the common header
func (h Head) Header() Head { return h }

func (Head) descriptor() {}

// Descriptor is one decoded block. The set of kinds is closed: OTUS, USB,
// MOTD, Fix, Debug, Checksum, Last and Unknown.
type Descriptor interface {
	Header() Head
	descriptor()
}

// OTUS feature bits
const (
	FeatureDummy = iota
	FeatureUnusable
	FeatureCommandPHY
	FeatureCommandCAM
	FeatureWLANTxCAB
	FeatureHandleBackReq
	FeatureGPIOInterrupt
	FeaturePSM
)

// OTUS describes the firmware's MAC capabilities
type OTUS struct {
	Head
	FeatureSet uint32 `json:"feature_set"`
	BeaconAddr uint32 `json:"beacon_addr"`
	BeaconLen  uint16 `json:"beacon_len"`
	APIVer     uint8  `json:"api_ver"`
	VIFNum     uint8  `json:"vif_num"`
}

// USB feature bits
const (
	USBFeatureDummy = iota
	USBFeatureMiniboot
	USBFeatureInitFirmware
	USBFeatureRespEP2
	USBFeatureDownStream
	USBFeatureUpStream
	USBFeatureWatchdog
)

// USB describes the transfer parameters of the USB front end
type USB struct {
	Head
	FeatureSet    uint32 `json:"feature_set"`
	FwAddress     uint32 `json:"fw_address"`
	MinibootSize  uint16 `json:"miniboot_size"`
	TxFragLen     uint16 `json:"tx_frag_len"`
	RxMaxFrameLen uint16 `json:"rx_max_frame_len"`
	TxDescs       uint8  `json:"tx_descs"`
}

// MOTD carries build metadata
type MOTD struct {
	Head
	Date    uint32 `json:"date"` // YYMMDD as a decimal number
	Desc    string `json:"desc"`
	Release string `json:"release"`
}

// FixEntry is one register fixup applied by the driver after upload
type FixEntry struct {
	Address uint32 `json:"address"`
	Mask    uint32 `json:"mask"`
	Value   uint32 `json:"value"`
}

// Fix is a register fixup table
type Fix struct {
	Head
	Entries []FixEntry `json:"entries"`
}

// Debug lists addresses of firmware debug counters
type Debug struct {
	Head
	BogoclockAddr uint32 `json:"bogoclock_addr"`
	CounterAddr   uint32 `json:"counter_addr"`
	RxTotalAddr   uint32 `json:"rx_total_addr"`
	RxOverrunAddr uint32 `json:"rx_overrun_addr"`
}

// Checksum holds CRC32s over the descriptor chain and the image
type Checksum struct {
	Head
	HeaderCRC uint32 `json:"hdr_crc32"`
	ImageCRC  uint32 `json:"fw_crc32"`
}

// Last ends the descriptor chain
type Last struct {
	Head
}

// Unknown is a block the reader could not decode
type Unknown struct {
	Head
	Reason string `json:"reason"`
	Raw    []byte `json:"-"`
}

// Sizes and versions of the known kinds
const (
	otusSize = HeadSize + 12
	usbSize  = HeadSize + 16
	motdSize = HeadSize + 4 + motdDescLen + motdReleaseLen
	fixEntry = 12
	dbgSize  = HeadSize + 16
	chkSize  = HeadSize + 8
	lastSize = HeadSize

	motdDescLen    = 24
	motdReleaseLen = 20

	otusVer = 1
	usbVer  = 1
	motdVer = 1
	fixVer  = 1
	dbgVer  = 1
	chkVer  = 1
	lastVer = 1
)

var (
	ErrNoDescriptors = errors.New("no descriptor chain found")
	ErrShortHead     = errors.New("descriptor header truncated")
	ErrBadLength     = errors.New("descriptor length out of range")
	ErrNoChecksum    = errors.New("image has no checksum descriptor")
	ErrHeaderCRC     = errors.New("descriptor checksum mismatch")
	ErrImageCRC      = errors.New("image checksum mismatch")
)

// parseHead reads the header at src[off:]
func parseHead(src []byte, off int) (Head, error) {
	if off+HeadSize > len(src) {
		return Head{}, ErrShortHead
	}
	h := Head{
		Magic:  Magic(src[off : off+4]),
		Length: binary.LittleEndian.Uint16(src[off+4:]),
		MinVer: src[off+6],
		CurVer: src[off+7],
		Offset: off,
	}
	if int(h.Length) < HeadSize || off+int(h.Length) > len(src) {
		return h, ErrBadLength
	}
	return h, nil
}

// decode turns one block into its typed form. body is the whole block,
// header included.
func decode(h Head, body []byte) Descriptor {
	le := binary.LittleEndian

	switch h.Magic {
	case MagicOTUS:
		if r := check(h, otusSize, otusVer); r != "" {
			return unknown(h, body, r)
		}
		return &OTUS{
			Head:       h,
			FeatureSet: le.Uint32(body[8:]),
			BeaconAddr: le.Uint32(body[12:]),
			BeaconLen:  le.Uint16(body[16:]),
			APIVer:     body[18],
			VIFNum:     body[19],
		}
	case MagicUSB:
		if r := check(h, usbSize, usbVer); r != "" {
			return unknown(h, body, r)
		}
		return &USB{
			Head:          h,
			FeatureSet:    le.Uint32(body[8:]),
			FwAddress:     le.Uint32(body[12:]),
			MinibootSize:  le.Uint16(body[16:]),
			TxFragLen:     le.Uint16(body[18:]),
			RxMaxFrameLen: le.Uint16(body[20:]),
			TxDescs:       body[22],
		}
	case MagicMOTD:
		if r := check(h, motdSize, motdVer); r != "" {
			return unknown(h, body, r)
		}
		return &MOTD{
			Head:    h,
			Date:    le.Uint32(body[8:]),
			Desc:    cString(body[12 : 12+motdDescLen]),
			Release: cString(body[12+motdDescLen : 12+motdDescLen+motdReleaseLen]),
		}
	case MagicFix:
		if r := check(h, HeadSize, fixVer); r != "" {
			return unknown(h, body, r)
		}
		fix := &Fix{Head: h}
		for off := HeadSize; off+fixEntry <= len(body); off += fixEntry {
			fix.Entries = append(fix.Entries, FixEntry{
				Address: le.Uint32(body[off:]),
				Mask:    le.Uint32(body[off+4:]),
				Value:   le.Uint32(body[off+8:]),
			})
		}
		return fix
	case MagicDbg:
		if r := check(h, dbgSize, dbgVer); r != "" {
			return unknown(h, body, r)
		}
		return &Debug{
			Head:          h,
			BogoclockAddr: le.Uint32(body[8:]),
			CounterAddr:   le.Uint32(body[12:]),
			RxTotalAddr:   le.Uint32(body[16:]),
			RxOverrunAddr: le.Uint32(body[20:]),
		}
	case MagicChk:
		if r := check(h, chkSize, chkVer); r != "" {
			return unknown(h, body, r)
		}
		return &Checksum{
			Head:      h,
			HeaderCRC: le.Uint32(body[8:]),
			ImageCRC:  le.Uint32(body[12:]),
		}
	case MagicLast:
		if r := check(h, lastSize, lastVer); r != "" {
			return unknown(h, body, r)
		}
		return &Last{Head: h}
	}
	return unknown(h, body, "unknown magic")
}

// check returns why a block of a known kind cannot be decoded, or ""
func check(h Head, size int, ver uint8) string {
	if int(h.Length) < size {
		return "descriptor too short"
	}
	if h.MinVer > ver {
		return "descriptor requires a newer reader"
	}
	return ""
}

func unknown(h Head, body []byte, reason string) *Unknown {
	return &Unknown{Head: h, Reason: reason, Raw: body}
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
