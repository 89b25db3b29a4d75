package protocol

import "encoding/binary"

// BlockBuffer assembles one response block in a fixed scratch area.
// The first BlockHeaderSize bytes are reserved for the header which is
// written by Finalize once the final length is known.
type BlockBuffer struct {
	buf []byte
	pos int
}

// NewBlockBuffer creates a BlockBuffer with the given capacity in bytes
func NewBlockBuffer(capacity int) *BlockBuffer {
	if capacity < BlockHeaderSize {
		capacity = BlockHeaderSize
	}
	b := &BlockBuffer{buf: make([]byte, capacity)}
	b.Reset()
	return b
}

// Reset discards packed records, leaving room for the header
func (b *BlockBuffer) Reset() {
	b.pos = BlockHeaderSize
}

// Capacity returns the total block size including the header
func (b *BlockBuffer) Capacity() int {
	return len(b.buf)
}

// Len returns the number of bytes used, header included
func (b *BlockBuffer) Len() int {
	return b.pos
}

// Remaining returns the free space after the packed records
func (b *BlockBuffer) Remaining() int {
	return len(b.buf) - b.pos
}

// Empty reports whether no record has been packed since the last Reset
func (b *BlockBuffer) Empty() bool {
	return b.pos == BlockHeaderSize
}

// Append copies r into the block
func (b *BlockBuffer) Append(r *Record) error {
	n, err := PutRecord(b.buf[b.pos:], r)
	if err != nil {
		return err
	}
	b.pos += n
	return nil
}

// Finalize writes the header and returns the finished block. The returned
// slice aliases the buffer and is valid until the next Reset.
func (b *BlockBuffer) Finalize() []byte {
	PutBlockHeader(b.buf, b.pos)
	return b.buf[:b.pos]
}

// PutBlockHeader writes total length, data size and magic into dst
func PutBlockHeader(dst []byte, total int) {
	binary.LittleEndian.PutUint16(dst[0:2], uint16(total))
	binary.LittleEndian.PutUint16(dst[2:4], uint16(total))
	copy(dst[4:BlockHeaderSize], BlockMagic[:])
}

// BlockLength validates the header at the front of src and returns the
// total block length it announces.
func BlockLength(src []byte) (int, error) {
	if len(src) < BlockHeaderSize {
		return 0, ErrShortBlock
	}
	if [BlockMagicSize]byte(src[4:BlockHeaderSize]) != BlockMagic {
		return 0, ErrBadMagic
	}
	total := int(binary.LittleEndian.Uint16(src[0:2]))
	if total <= BlockHeaderSize || total > BlockSize {
		return 0, ErrBlockLength
	}
	return total, nil
}

// DecodeBlock parses a complete block into its records
func DecodeBlock(src []byte) ([]Record, error) {
	total, err := BlockLength(src)
	if err != nil {
		return nil, err
	}
	if len(src) < total {
		return nil, ErrShortBlock
	}

	var records []Record
	body := src[BlockHeaderSize:total]
	for len(body) > 0 {
		var r Record
		n, err := DecodeRecord(body, &r)
		if err != nil {
			return records, err
		}
		records = append(records, r)
		body = body[n:]
	}
	return records, nil
}
