package sim

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"usbfw/core"
	"usbfw/protocol"
)

func command(typ, seq uint8, payload []byte) []byte {
	rec := protocol.Record{Header: protocol.Header{Len: uint8(len(payload)), Type: typ, Seq: seq}}
	copy(rec.Data[:], payload)
	buf := make([]byte, rec.Size())
	protocol.PutRecord(buf, &rec)
	return buf
}

func readBlock(t *testing.T, s *Sim) []protocol.Record {
	t.Helper()
	buf := make([]byte, protocol.BlockSize)
	n, err := s.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	recs, err := protocol.DecodeBlock(buf[:n])
	if err != nil {
		t.Fatalf("DecodeBlock failed: %v", err)
	}
	return recs
}

func TestEchoRoundTrip(t *testing.T) {
	s := New(core.Config{})
	defer s.Close()

	if _, err := s.Write(command(protocol.CmdEcho, 7, []byte{1, 2, 3, 4})); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	recs := readBlock(t, s)
	if len(recs) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(recs))
	}
	if recs[0].Type != protocol.CmdEcho || recs[0].Seq != 7 {
		t.Errorf("Expected echo seq 7, got %s", recs[0].String())
	}
	if !s.Device().BlockAvailable() {
		t.Error("Expected block to be released after Read")
	}
}

func TestRegisterCommands(t *testing.T) {
	s := New(core.Config{})
	defer s.Close()

	wr := make([]byte, 8)
	binary.LittleEndian.PutUint32(wr[0:], 0x1c3600)
	binary.LittleEndian.PutUint32(wr[4:], 0xcafe)
	s.Write(command(protocol.CmdWriteReg, 1, wr))
	readBlock(t, s)

	if got := s.Registers().Peek32(0x1c3600); got != 0xcafe {
		t.Errorf("Expected register 0xcafe, got 0x%x", got)
	}

	s.Write(command(protocol.CmdReadReg, 2, wr[:4]))
	recs := readBlock(t, s)
	if got := binary.LittleEndian.Uint32(recs[0].Payload()); got != 0xcafe {
		t.Errorf("Expected read back 0xcafe, got 0x%x", got)
	}
}

func TestBlockBusyUntilRead(t *testing.T) {
	s := New(core.Config{})
	defer s.Close()

	s.Write(command(protocol.CmdEcho, 1, nil))
	s.Write(command(protocol.CmdEcho, 2, nil))

	if s.Device().Pending() != 1 {
		t.Fatalf("Expected second reply pending, got %d", s.Device().Pending())
	}

	first := readBlock(t, s)
	if first[0].Seq != 1 {
		t.Errorf("Expected seq 1, got %d", first[0].Seq)
	}
	second := readBlock(t, s)
	if second[0].Seq != 2 {
		t.Errorf("Expected seq 2, got %d", second[0].Seq)
	}
}

func TestWatchdogHang(t *testing.T) {
	s := New(core.Config{WatchdogThreshold: 2})
	defer s.Close()

	s.Write(command(protocol.CmdUSBWatchdog, 1, make([]byte, 4)))
	readBlock(t, s)

	s.Advance(time.Second)
	recs := readBlock(t, s)
	if recs[0].Type != protocol.RspUSBWatchdog {
		t.Errorf("Expected watchdog report, got %s", recs[0].String())
	}

	s.Advance(time.Second)
	if s.Device().State() != core.ResultHang {
		t.Fatalf("Expected hang, got %v", s.Device().State())
	}
	if _, err := s.Read(make([]byte, protocol.BlockSize)); err != io.EOF {
		t.Errorf("Expected EOF after hang, got %v", err)
	}
	if _, err := s.Write(command(protocol.CmdEcho, 2, nil)); !errors.Is(err, ErrHalted) {
		t.Errorf("Expected ErrHalted, got %v", err)
	}
}

func TestBusResetReboots(t *testing.T) {
	s := New(core.Config{})
	defer s.Close()

	if res := s.BusReset(); res != core.ResultReboot {
		t.Errorf("Expected reboot, got %v", res)
	}
	if s.Boots() != 1 {
		t.Errorf("Expected 1 boot, got %d", s.Boots())
	}
}

func TestEmit(t *testing.T) {
	s := New(core.Config{})
	defer s.Close()

	if err := s.Emit(protocol.RspGPIO, 0, []byte{1, 2}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	recs := readBlock(t, s)
	if recs[0].Type != protocol.RspGPIO || recs[0].Len != 4 {
		t.Errorf("Expected padded gpio record, got %s", recs[0].String())
	}
}

func TestCloseUnblocksRead(t *testing.T) {
	s := New(core.Config{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Read(make([]byte, protocol.BlockSize))
		done <- err
	}()

	s.Close()
	select {
	case err := <-done:
		if err != io.EOF {
			t.Errorf("Expected EOF, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read did not return after Close")
	}
}

func TestTimers(t *testing.T) {
	s := New(core.Config{WatchdogPeriodMS: 1000})
	defer s.Close()

	n, next := s.Timers()
	if n != 1 {
		t.Fatalf("Expected watchdog timer, got %d timers", n)
	}
	if next != time.Second {
		t.Errorf("Expected next wake in 1s, got %v", next)
	}

	s.Advance(300 * time.Millisecond)
	if _, next := s.Timers(); next != 700*time.Millisecond {
		t.Errorf("Expected next wake in 700ms, got %v", next)
	}

	s.BusReset()
	s.Advance(time.Second)
	if n, _ := s.Timers(); n != 0 {
		t.Errorf("Expected no timers after reboot, got %d", n)
	}
}
