package protocol

import "testing"

func TestBlockBuffer(t *testing.T) {
	block := NewBlockBuffer(BlockSize)

	if !block.Empty() {
		t.Error("New block should be empty")
	}
	if block.Len() != BlockHeaderSize {
		t.Errorf("Expected length %d, got %d", BlockHeaderSize, block.Len())
	}

	rec := Record{Header: Header{Len: 8, Type: RspTxComplete, Ext: 2}}
	copy(rec.Data[:], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err := block.Append(&rec); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if block.Len() != BlockHeaderSize+12 {
		t.Errorf("Expected length %d, got %d", BlockHeaderSize+12, block.Len())
	}
	if block.Remaining() != BlockSize-BlockHeaderSize-12 {
		t.Errorf("Expected %d bytes remaining, got %d", BlockSize-BlockHeaderSize-12, block.Remaining())
	}

	out := block.Finalize()
	if len(out) != BlockHeaderSize+12 {
		t.Fatalf("Expected finalized block of %d bytes, got %d", BlockHeaderSize+12, len(out))
	}
	if out[0] != byte(len(out)) || out[2] != byte(len(out)) {
		t.Errorf("Header lengths not written: % x", out[:4])
	}

	// Test Reset
	block.Reset()
	if !block.Empty() {
		t.Error("After reset, block should be empty")
	}
}

func TestBlockBufferOverflow(t *testing.T) {
	block := NewBlockBuffer(BlockHeaderSize + 8)

	rec := Record{Header: Header{Len: 8, Type: RspText}}
	if err := block.Append(&rec); err != ErrBlockOverflow {
		t.Errorf("Expected ErrBlockOverflow, got %v", err)
	}
	if !block.Empty() {
		t.Error("Failed append must not change the block")
	}
}
