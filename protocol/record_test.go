package protocol

import (
	"bytes"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	rec := Record{Header: Header{Len: 12, Type: RspGPIO, Ext: 0x80, Seq: 7}}
	copy(rec.Data[:], "hello world!")

	buf := make([]byte, MaxRecordSize)
	n, err := PutRecord(buf, &rec)
	if err != nil {
		t.Fatalf("PutRecord failed: %v", err)
	}
	if n != 16 {
		t.Errorf("Expected 16 bytes written, got %d", n)
	}

	var got Record
	m, err := DecodeRecord(buf[:n], &got)
	if err != nil {
		t.Fatalf("DecodeRecord failed: %v", err)
	}
	if m != n {
		t.Errorf("Expected %d bytes consumed, got %d", n, m)
	}
	if got.Header != rec.Header {
		t.Errorf("Header mismatch: got %v, want %v", got.Header, rec.Header)
	}
	if !bytes.Equal(got.Payload(), rec.Payload()) {
		t.Errorf("Payload mismatch: got %q", got.Payload())
	}
	if !got.IsResponse() {
		t.Error("Expected 0xce to be a response tag")
	}
}

func TestDecodeRecordErrors(t *testing.T) {
	var r Record

	if _, err := DecodeRecord([]byte{4, 1}, &r); err != ErrShortRecord {
		t.Errorf("Expected ErrShortRecord, got %v", err)
	}
	if _, err := DecodeRecord([]byte{8, 1, 0, 0, 1, 2, 3, 4}, &r); err != ErrRecordLength {
		t.Errorf("Expected ErrRecordLength for truncated payload, got %v", err)
	}
	if _, err := DecodeRecord(append([]byte{MaxPayload + 4, 1, 0, 0}, make([]byte, 64)...), &r); err != ErrRecordLength {
		t.Errorf("Expected ErrRecordLength for oversized payload, got %v", err)
	}
}

func TestDecodeBlock(t *testing.T) {
	block := NewBlockBuffer(BlockSize)
	for i := 0; i < 3; i++ {
		rec := Record{Header: Header{Len: 4, Type: uint8(RspFlag | i)}}
		rec.Data[0] = byte(i)
		if err := block.Append(&rec); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	records, err := DecodeBlock(block.Finalize())
	if err != nil {
		t.Fatalf("DecodeBlock failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	for i, r := range records {
		if r.Type != uint8(RspFlag|i) || r.Data[0] != byte(i) {
			t.Errorf("Record %d mismatch: %v", i, r.String())
		}
	}
}

func TestBlockLengthRejectsBadHeaders(t *testing.T) {
	good := NewBlockBuffer(BlockSize)
	good.Append(&Record{Header: Header{Len: 4}})
	data := append([]byte(nil), good.Finalize()...)

	if _, err := BlockLength(data[:8]); err != ErrShortBlock {
		t.Errorf("Expected ErrShortBlock, got %v", err)
	}

	bad := append([]byte(nil), data...)
	bad[5] = 0
	if _, err := BlockLength(bad); err != ErrBadMagic {
		t.Errorf("Expected ErrBadMagic, got %v", err)
	}

	bad = append([]byte(nil), data...)
	bad[0], bad[1] = 0xff, 0x0f
	if _, err := BlockLength(bad); err != ErrBlockLength {
		t.Errorf("Expected ErrBlockLength, got %v", err)
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		typ  uint8
		want string
	}{
		{CmdEcho, "echo"},
		{RspUSBWatchdog, "usb_watchdog_report"},
		{0x42, "0x42"},
	}
	for _, tt := range tests {
		if got := TypeName(tt.typ); got != tt.want {
			t.Errorf("TypeName(0x%02x): expected %q, got %q", tt.typ, tt.want, got)
		}
	}
}
