package core

import (
	"encoding/binary"
	"errors"
	"testing"

	"usbfw/protocol"
)

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var called bool
	registry.Register(0x30, "test_command", func(cmd, rsp *protocol.Record) error {
		called = true
		rsp.Len = 4
		rsp.Data[0] = cmd.Data[0] + 1
		return nil
	})

	cmd, ok := registry.GetCommand(0x30)
	if !ok {
		t.Fatal("Failed to retrieve registered command")
	}
	if cmd.Name != "test_command" {
		t.Errorf("Expected command name 'test_command', got '%s'", cmd.Name)
	}
	if registry.Count() != 1 {
		t.Errorf("Expected 1 command, got %d", registry.Count())
	}

	var rsp protocol.Record
	registry.HandleCommand([]byte{4, 0x30, 0, 9, 41, 0, 0, 0}, &rsp)

	if !called {
		t.Error("Command handler was not called")
	}
	if rsp.Type != 0x30 || rsp.Seq != 9 || rsp.Len != 4 || rsp.Data[0] != 42 {
		t.Errorf("Unexpected response: %s data=%d", &rsp, rsp.Data[0])
	}

	err := registry.Dispatch(&protocol.Record{Header: protocol.Header{Type: 0x31}}, &rsp)
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
}

func TestCommandRegistryFailures(t *testing.T) {
	registry := NewCommandRegistry()
	registry.log = componentLogger{l: NewLogger(discard{})}
	registry.Register(0x30, "fails", func(cmd, rsp *protocol.Record) error {
		rsp.Len = 8
		return ErrInvalidCommand
	})

	tests := []struct {
		name     string
		raw      []byte
		wantType uint8
	}{
		{"handler error", []byte{0, 0x30, 0, 1}, 0x30},
		{"unknown", []byte{0, 0x77, 0, 1}, 0x77},
		{"short", []byte{0, 0x55}, 0x55},
		{"length past end", []byte{8, 0x56, 0, 1, 0, 0, 0, 0}, 0x56},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsp := protocol.Record{Header: protocol.Header{Len: 12}}
			registry.HandleCommand(tt.raw, &rsp)
			if rsp.Type != tt.wantType {
				t.Errorf("Expected type 0x%02x, got 0x%02x", tt.wantType, rsp.Type)
			}
			if tt.name != "short" && tt.name != "length past end" && rsp.Len != 0 {
				t.Errorf("Expected empty response, got len %d", rsp.Len)
			}
		})
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestRegisterCommands(t *testing.T) {
	td := newTestDevice(t, Config{})
	reg := NewCommandRegistry()
	RegisterBuiltinCommands(reg, td.Device)

	td.regs.Poke32(RegMACPowerStateCtrl, 0xabcd)

	var wcmd [20]byte
	wcmd[0], wcmd[1], wcmd[3] = 16, protocol.CmdWriteReg, 1
	binary.LittleEndian.PutUint32(wcmd[4:], RegGPIOPortType)
	binary.LittleEndian.PutUint32(wcmd[8:], 0x3)
	binary.LittleEndian.PutUint32(wcmd[12:], RegGPIOPortData)
	binary.LittleEndian.PutUint32(wcmd[16:], 0x1)

	var rsp protocol.Record
	reg.HandleCommand(wcmd[:], &rsp)
	if rsp.Type != protocol.CmdWriteReg || rsp.Len != 0 {
		t.Errorf("Unexpected write response: %s", &rsp)
	}
	if td.regs.Peek32(RegGPIOPortType) != 0x3 || td.regs.Peek32(RegGPIOPortData) != 0x1 {
		t.Error("Register writes not applied")
	}

	var rcmd [12]byte
	rcmd[0], rcmd[1], rcmd[3] = 8, protocol.CmdReadReg, 2
	binary.LittleEndian.PutUint32(rcmd[4:], RegMACPowerStateCtrl)
	binary.LittleEndian.PutUint32(rcmd[8:], RegGPIOPortType)

	rsp = protocol.Record{}
	reg.HandleCommand(rcmd[:], &rsp)
	if rsp.Len != 8 || rsp.Seq != 2 {
		t.Fatalf("Unexpected read response: %s", &rsp)
	}
	if got := binary.LittleEndian.Uint32(rsp.Data[0:]); got != 0xabcd {
		t.Errorf("Expected 0xabcd, got 0x%x", got)
	}
	if got := binary.LittleEndian.Uint32(rsp.Data[4:]); got != 0x3 {
		t.Errorf("Expected 0x3, got 0x%x", got)
	}

	// Misaligned write list
	rsp = protocol.Record{}
	reg.HandleCommand([]byte{4, protocol.CmdWriteReg, 0, 3, 0, 0, 0, 0}, &rsp)
	if rsp.Len != 0 {
		t.Errorf("Expected empty response for bad write, got %d", rsp.Len)
	}
}
