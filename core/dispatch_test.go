package core

import (
	"encoding/binary"
	"testing"

	"usbfw/protocol"
)

// sendCommand loads raw into the EP4 FIFO and raises a register-out
// interrupt
func sendCommand(td *testDevice, raw []byte) Result {
	td.regs.Poke8(RegUSBEP4ByteCountLow, uint8(len(raw)))
	td.regs.Poke8(RegUSBEP4ByteCountHi, uint8(len(raw)>>8))
	padded := append(append([]byte(nil), raw...), 0, 0, 0)
	for i := 0; i < len(raw); i += 4 {
		td.regs.Queue32(RegUSBEP4Data, binary.LittleEndian.Uint32(padded[i:]))
	}
	td.regs.Poke8(RegUSBIntrGroup, IntrGroupRegOut)
	return td.HandleUSB()
}

func TestHandleUSBIdle(t *testing.T) {
	td := newTestDevice(t, Config{})

	if res := td.HandleUSB(); res != ResultContinue {
		t.Errorf("Expected continue, got %v", res)
	}
	if ops := td.regs.Ops(); len(ops) != 0 {
		t.Errorf("Idle interrupt should not write registers, got %v", ops)
	}
}

func TestHandleUSBRearmsPendingResponses(t *testing.T) {
	td := newTestDevice(t, Config{})
	td.Enqueue(4, protocol.RspText, 0, nil)
	td.regs.Poke8(RegUSBIntrMaskByte6, 0xff)
	td.regs.ResetOps()

	td.HandleUSB()

	ops := td.regs.Ops()
	if len(ops) != 1 || ops[0].Kind != OpAnd8 || ops[0].Addr != RegUSBIntrMaskByte6 {
		t.Errorf("Expected bulk-in trigger, got %v", ops)
	}
}

func TestCommandAnsweredInSamePass(t *testing.T) {
	td := newTestDevice(t, Config{})
	reg := NewCommandRegistry()
	RegisterBuiltinCommands(reg, td.Device)
	td.SetCommandProcessor(reg)

	raw := []byte{8, protocol.CmdEcho, 0, 42, 1, 2, 3, 4, 5, 6, 7, 8}
	td.regs.Poke8(RegUSBEP4ByteCountLow, uint8(len(raw)))
	for i := 0; i < len(raw); i += 4 {
		td.regs.Queue32(RegUSBEP4Data, binary.LittleEndian.Uint32(raw[i:]))
	}
	td.regs.Poke8(RegUSBIntrGroup, IntrGroupRegOut|IntrGroupStatusIn)

	if res := td.HandleUSB(); res != ResultContinue {
		t.Fatalf("Expected continue, got %v", res)
	}

	if len(td.sink.blocks) != 1 {
		t.Fatalf("Expected response block in the same pass, got %d", len(td.sink.blocks))
	}
	recs, err := protocol.DecodeBlock(td.sink.blocks[0])
	if err != nil {
		t.Fatalf("DecodeBlock failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(recs))
	}
	rsp := recs[0]
	if rsp.Type != protocol.CmdEcho || rsp.Seq != 42 || rsp.Len != 8 {
		t.Errorf("Unexpected echo header: %s", &rsp)
	}
	if rsp.Data[0] != 1 || rsp.Data[7] != 8 {
		t.Errorf("Unexpected echo payload: % x", rsp.Payload())
	}
	if td.Pending() != 0 {
		t.Errorf("Expected empty ring, got %d", td.Pending())
	}
}

func TestRegOutRoundsUpToWords(t *testing.T) {
	td := newTestDevice(t, Config{})
	var got []byte
	td.SetCommandProcessor(commandFunc(func(cmd []byte, rsp *protocol.Record) {
		got = append([]byte(nil), cmd...)
	}))

	sendCommand(td, []byte{1, 2, 3, 4, 5})

	if len(got) != 8 {
		t.Fatalf("Expected two words read, got %d bytes", len(got))
	}
	if got[4] != 5 {
		t.Errorf("Expected trailing byte 5, got %d", got[4])
	}
	if td.Pending() != 1 {
		t.Errorf("Expected a response slot, got %d pending", td.Pending())
	}
}

func TestRegOutTruncatesLongCommand(t *testing.T) {
	td := newTestDevice(t, Config{CommandBufferSize: 16})
	var got []byte
	td.SetCommandProcessor(commandFunc(func(cmd []byte, rsp *protocol.Record) {
		got = append([]byte(nil), cmd...)
	}))

	raw := make([]byte, 300)
	raw[0] = 0xaa
	sendCommand(td, raw)

	if len(got) != 16 || got[0] != 0xaa {
		t.Errorf("Expected 16 byte command, got % x", got)
	}
	// The whole FIFO is drained even though the command was cut
	if td.regs.Get32(RegUSBEP4Data) != 0 {
		t.Error("FIFO words left behind")
	}
}

type commandFunc func(cmd []byte, rsp *protocol.Record)

func (f commandFunc) HandleCommand(cmd []byte, rsp *protocol.Record) { f(cmd, rsp) }

func TestBusReset(t *testing.T) {
	td := newTestDevice(t, Config{})
	td.regs.Poke8(RegUSBIntrGroup, IntrGroup7)
	td.regs.Poke8(RegUSBIntrSource7, IntrSrc7Reset|IntrSrc7Resume)

	if res := td.HandleUSB(); res != ResultReboot {
		t.Fatalf("Expected reboot, got %v", res)
	}
	if td.State() != ResultReboot {
		t.Errorf("Expected device state reboot, got %v", td.State())
	}
	if td.regs.Peek8(RegUSBIntrSource7)&IntrSrc7Reset != 0 {
		t.Error("Reset interrupt not acknowledged")
	}
	// Resume is never reached
	if td.regs.Peek8(RegUSBIntrSource7)&IntrSrc7Resume == 0 {
		t.Error("Resume should not be handled after reboot")
	}
	if n := len(td.board.calls); n == 0 || td.board.calls[n-1] != "jump" {
		t.Errorf("Expected jump to boot code, got %v", td.board.calls)
	}

	td.regs.ResetOps()
	if res := td.HandleUSB(); res != ResultReboot {
		t.Errorf("Halted device should keep returning reboot, got %v", res)
	}
	if ops := td.regs.Ops(); len(ops) != 0 {
		t.Errorf("Halted device touched registers: %v", ops)
	}
}

func TestBusSuspend(t *testing.T) {
	td := newTestDevice(t, Config{})
	td.regs.Poke8(RegUSBIntrGroup, IntrGroup7)
	td.regs.Poke8(RegUSBIntrSource7, IntrSrc7Suspend)

	if res := td.HandleUSB(); res != ResultReboot {
		t.Fatalf("Expected reboot, got %v", res)
	}

	ops := td.regs.Ops()
	want := []RegOp{
		{OpAnd8, RegUSBIntrSource7, uint32(^uint8(IntrSrc7Suspend))},
		{OpOr8, RegUSBMainCtrl, USBMainCtrlGoToSuspend},
		{OpSet32, RegUSBPHYChirpFix, USBPHYChirpMagic},
	}
	if len(ops) < len(want) {
		t.Fatalf("Expected at least %d ops, got %v", len(want), ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("Op %d: expected %v, got %v", i, want[i], ops[i])
		}
	}
}

func TestBusResumeAndZeroLength(t *testing.T) {
	td := newTestDevice(t, Config{})
	td.regs.Poke8(RegUSBIntrGroup, IntrGroup7)
	td.regs.Poke8(RegUSBIntrSource7, IntrSrc7Resume|IntrSrc7In0Byte|IntrSrc7Out0Byte)

	if res := td.HandleUSB(); res != ResultContinue {
		t.Fatalf("Expected continue, got %v", res)
	}
	if got := td.regs.Peek8(RegUSBIntrSource7); got != 0 {
		t.Errorf("Expected all events acknowledged, got 0x%02x", got)
	}
	if len(td.board.calls) != 0 {
		t.Errorf("Resume should not reboot, got %v", td.board.calls)
	}
}

func TestDispatchOrder(t *testing.T) {
	td := newTestDevice(t, Config{})
	var order []string
	td.SetCommandProcessor(commandFunc(func(cmd []byte, rsp *protocol.Record) {
		order = append(order, "regout")
	}))
	td.SetControlHandler(&orderControl{order: &order})
	td.SetTransfer(transferFunc(func([]byte) { order = append(order, "statusin") }))

	td.regs.Poke8(RegUSBEP4ByteCountLow, 4)
	td.regs.Queue32(RegUSBEP4Data, 0)
	td.regs.Poke8(RegUSBIntrSource0, IntrSrc0Setup)
	td.regs.Poke8(RegUSBIntrGroup, IntrGroupEP0|IntrGroupRegOut|IntrGroupStatusIn|IntrGroupDataIn)

	td.HandleUSB()

	want := []string{"regout", "statusin", "setup"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Step %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

type orderControl struct {
	order *[]string
}

func (c *orderControl) Setup()   { *c.order = append(*c.order, "setup") }
func (c *orderControl) DataIn()  { *c.order = append(*c.order, "datain") }
func (c *orderControl) DataOut() { *c.order = append(*c.order, "dataout") }

type transferFunc func([]byte)

func (f transferFunc) Submit(b []byte) { f(b) }

func TestInvalidReplyLengthKeepsBlockDecodable(t *testing.T) {
	tests := []struct {
		name string
		len  uint8
	}{
		{"too long", protocol.MaxPayload + 4},
		{"misaligned", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := newTestDevice(t, Config{})
			td.SetCommandProcessor(commandFunc(func(cmd []byte, rsp *protocol.Record) {
				rsp.Type = cmd[1]
				rsp.Len = tt.len
			}))
			td.Enqueue(4, protocol.RspGPIO, 0, []byte{1, 2, 3, 4})

			sendCommand(td, []byte{0, protocol.CmdEcho, 0, 0})
			if err := td.StatusIn(); err != nil {
				t.Fatalf("StatusIn failed: %v", err)
			}

			if len(td.sink.blocks) != 1 {
				t.Fatalf("Expected 1 block, got %d", len(td.sink.blocks))
			}
			recs, err := protocol.DecodeBlock(td.sink.blocks[0])
			if err != nil {
				t.Fatalf("DecodeBlock failed: %v", err)
			}
			if len(recs) != 2 {
				t.Fatalf("Expected 2 records, got %d", len(recs))
			}
			if recs[1].Type != protocol.CmdEcho || recs[1].Len != 0 {
				t.Errorf("Expected empty echo reply, got %s", &recs[1])
			}
		})
	}
}
