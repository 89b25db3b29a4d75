package protocol

import (
	"bytes"
	"io"
)

// BlockReader extracts response blocks from a byte stream. Garbage in
// front of a block is skipped by scanning for the block magic, the same
// way a framed serial transport resynchronizes after a bad frame.
type BlockReader struct {
	src      io.Reader
	buf      *StreamBuffer
	scratch  []byte
	synced   bool
	Resyncs  int // Number of times the stream lost block alignment
	Discards int // Bytes thrown away while resynchronizing
}

// NewBlockReader creates a BlockReader over src
func NewBlockReader(src io.Reader) *BlockReader {
	return &BlockReader{
		src:     src,
		buf:     NewStreamBuffer(4 * BlockSize),
		scratch: make([]byte, BlockSize),
		synced:  true,
	}
}

// Next returns the next complete block. The returned slice is only valid
// until the following call.
func (r *BlockReader) Next() ([]byte, error) {
	for {
		if block, ok := r.extract(); ok {
			return block, nil
		}

		n, err := r.src.Read(r.scratch[:min(len(r.scratch), r.buf.Free())])
		if n > 0 {
			r.buf.Append(r.scratch[:n])
		}
		if err != nil {
			if block, ok := r.extract(); ok {
				return block, nil
			}
			return nil, err
		}
	}
}

// extract pops one block if a complete one is buffered
func (r *BlockReader) extract() ([]byte, bool) {
	for {
		data := r.buf.Bytes()
		if len(data) < BlockHeaderSize {
			return nil, false
		}

		total, err := BlockLength(data)
		if err != nil {
			r.resync(data)
			continue
		}
		if len(data) < total {
			return nil, false
		}

		block := make([]byte, total)
		copy(block, data[:total])
		r.buf.Discard(total)
		r.synced = true
		return block, true
	}
}

// resync drops bytes until the next candidate header. The magic sits four
// bytes into the header so the scan starts one byte in.
func (r *BlockReader) resync(data []byte) {
	if r.synced {
		r.Resyncs++
		r.synced = false
	}
	skip := 1
	if idx := bytes.Index(data[1:], BlockMagic[:]); idx >= 0 {
		if idx+1 >= 4 {
			skip = idx + 1 - 4
		}
		if skip == 0 {
			skip = 1
		}
	} else if len(data) > BlockMagicSize+4 {
		skip = len(data) - (BlockMagicSize + 4)
	}
	r.buf.Discard(skip)
	r.Discards += skip
}
