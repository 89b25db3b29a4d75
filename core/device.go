// Package core implements the USB front end of the adapter firmware: the
// interrupt dispatcher, the response ring and block packer, the control
// endpoint flags, the watchdog and the reboot sequence.
//
// Everything runs in interrupt context. Nothing here blocks, and all state
// lives in a Device created once at boot.
package core

import (
	"usbfw/protocol"
)

// Result tells the caller of an interrupt or tick handler whether the
// device keeps running or has reached a terminal state.
type Result uint8

const (
	// ResultContinue means normal operation.
	ResultContinue Result = iota
	// ResultHang means the watchdog expired; the caller spins until the
	// hardware watchdog resets the chip.
	ResultHang
	// ResultReboot means the reboot sequence ran and control belongs to
	// the boot code.
	ResultReboot
)

func (r Result) String() string {
	switch r {
	case ResultContinue:
		return "continue"
	case ResultHang:
		return "hang"
	case ResultReboot:
		return "reboot"
	default:
		return "unknown"
	}
}

// CommandProcessor interprets one command received on the bulk-out
// endpoint and fills rsp with the reply.
type CommandProcessor interface {
	HandleCommand(cmd []byte, rsp *protocol.Record)
}

// Transfer hands a finished response block to the up DMA queue. The
// block stays owned by the device until ReleaseBlock is called.
type Transfer interface {
	Submit(block []byte)
}

// ControlHandler services the stages of a control transfer on EP0.
type ControlHandler interface {
	Setup()
	DataIn()
	DataOut()
}

// Board covers the parts of the chip outside the USB front end that the
// reboot sequence touches.
type Board interface {
	SetLEDs(mask uint32)
	SlowClock()
	JumpToBootcode()
}

type nopCommands struct{}

func (nopCommands) HandleCommand(cmd []byte, rsp *protocol.Record) {
	if len(cmd) > 1 {
		rsp.Type = cmd[1]
	}
}

type nopTransfer struct{}

func (nopTransfer) Submit([]byte) {}

type nopControl struct{}

func (nopControl) Setup()   {}
func (nopControl) DataIn()  {}
func (nopControl) DataOut() {}

type nopBoard struct{}

func (nopBoard) SetLEDs(uint32)  {}
func (nopBoard) SlowClock()      {}
func (nopBoard) JumpToBootcode() {}

// Device is the complete firmware front end state
type Device struct {
	cfg  Config
	regs Registers
	log  componentLogger

	cmds  CommandProcessor
	xfer  Transfer
	ep0   ControlHandler
	board Board

	ring           *Ring
	block          *protocol.BlockBuffer
	blockAvailable bool
	cmdBuf         []byte

	ep0Action EP0Action
	watchdog  uint32
	state     Result
}

// NewDevice creates the device context. Collaborators default to no-ops
// and are replaced with the Set* methods before interrupts are enabled.
func NewDevice(cfg Config, regs Registers) *Device {
	cfg.ApplyDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = defaultLogger()
	}

	return &Device{
		cfg:            cfg,
		regs:           regs,
		log:            componentLogger{l: logger},
		cmds:           nopCommands{},
		xfer:           nopTransfer{},
		ep0:            nopControl{},
		board:          nopBoard{},
		ring:           NewRing(cfg.RingSlots),
		block:          protocol.NewBlockBuffer(cfg.BlockSize),
		blockAvailable: true,
		cmdBuf:         make([]byte, 0, cfg.CommandBufferSize),
		watchdog:       WatchdogInactive,
		state:          ResultContinue,
	}
}

// SetCommandProcessor sets the interpreter for received commands
func (d *Device) SetCommandProcessor(p CommandProcessor) {
	d.cmds = p
}

// SetTransfer sets the block submission interface
func (d *Device) SetTransfer(t Transfer) {
	d.xfer = t
}

// SetControlHandler sets the EP0 stage handlers
func (d *Device) SetControlHandler(h ControlHandler) {
	d.ep0 = h
}

// SetBoard sets the board hooks used by the reboot sequence
func (d *Device) SetBoard(b Board) {
	d.board = b
}

// Config returns the effective configuration
func (d *Device) Config() Config {
	return d.cfg
}

// State returns ResultContinue while the device runs, or the terminal
// result it stopped with.
func (d *Device) State() Result {
	return d.state
}

// Pending returns the number of queued responses
func (d *Device) Pending() int {
	return d.ring.Pending()
}

// BlockAvailable reports whether the response block can be packed
func (d *Device) BlockAvailable() bool {
	return d.blockAvailable
}

// ReleaseBlock returns the response block after the up DMA finished with
// it. Called from the transfer completion path.
func (d *Device) ReleaseBlock() {
	d.blockAvailable = true
}

// usbTriggerIn unmasks the status-in interrupt so the packer runs
func (d *Device) usbTriggerIn() {
	d.regs.And8(RegUSBIntrMaskByte6, ^uint8(USBIntrDisableInInt))
}

// usbResetIn masks the status-in interrupt
func (d *Device) usbResetIn() {
	d.regs.Or8(RegUSBIntrMaskByte6, USBIntrDisableInInt)
}

// usbTriggerOut unmasks the command-out interrupt
func (d *Device) usbTriggerOut() {
	d.regs.And8(RegUSBIntrMaskByte4, ^uint8(USBIntrDisableOutInt))
}

// usbResetOut masks the command-out interrupt
func (d *Device) usbResetOut() {
	d.regs.Or8(RegUSBIntrMaskByte4, USBIntrDisableOutInt)
}
