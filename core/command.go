package core

import (
	"encoding/binary"
	"sync"

	"usbfw/protocol"
)

// CommandHandler answers one decoded command. rsp arrives with Type and
// Seq copied from the command and an empty payload.
type CommandHandler func(cmd, rsp *protocol.Record) error

// Command represents a registered command type
type Command struct {
	Type    uint8
	Name    string
	Handler CommandHandler
}

// CommandRegistry is a CommandProcessor that routes commands by type tag
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint8]*Command
	log      componentLogger
}

// NewCommandRegistry creates an empty command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint8]*Command),
		log:      componentLogger{l: defaultLogger()},
	}
}

// Register adds a handler for a command type, replacing any previous one
func (r *CommandRegistry) Register(typ uint8, name string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands[typ] = &Command{Type: typ, Name: name, Handler: handler}
}

// GetCommand retrieves a command by type
func (r *CommandRegistry) GetCommand(typ uint8) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[typ]
	return cmd, ok
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the handler registered for cmd.Type
func (r *CommandRegistry) Dispatch(cmd, rsp *protocol.Record) error {
	c, ok := r.GetCommand(cmd.Type)
	if !ok {
		return ErrUnknownCommand
	}
	return c.Handler(cmd, rsp)
}

// HandleCommand decodes a raw command read from the FIFO and answers it
// in rsp. Failures leave an empty response so the host still sees the
// sequence number come back.
func (r *CommandRegistry) HandleCommand(raw []byte, rsp *protocol.Record) {
	var cmd protocol.Record
	if _, err := protocol.DecodeRecord(raw, &cmd); err != nil {
		r.log.warn(ComponentCommand, "malformed command", "len", len(raw), "err", err)
		if len(raw) > 1 {
			rsp.Type = raw[1]
		}
		return
	}

	rsp.Type = cmd.Type
	rsp.Seq = cmd.Seq
	rsp.Len = 0
	rsp.Ext = 0

	if err := r.Dispatch(&cmd, rsp); err != nil {
		r.log.warn(ComponentCommand, "command failed", "cmd", cmd.String(), "err", err)
		rsp.Len = 0
	}
}

// RegisterBuiltinCommands installs the commands the front end answers on
// its own: register access, echo and the USB watchdog.
func RegisterBuiltinCommands(r *CommandRegistry, d *Device) {
	r.log = d.log

	r.Register(protocol.CmdReadReg, "rreg", func(cmd, rsp *protocol.Record) error {
		if cmd.Len&3 != 0 {
			return ErrInvalidCommand
		}
		for off := 0; off < int(cmd.Len); off += 4 {
			addr := binary.LittleEndian.Uint32(cmd.Data[off:])
			binary.LittleEndian.PutUint32(rsp.Data[off:], d.regs.Get32(addr))
		}
		rsp.Len = cmd.Len
		return nil
	})

	r.Register(protocol.CmdWriteReg, "wreg", func(cmd, rsp *protocol.Record) error {
		if cmd.Len&7 != 0 {
			return ErrInvalidCommand
		}
		for off := 0; off < int(cmd.Len); off += 8 {
			addr := binary.LittleEndian.Uint32(cmd.Data[off:])
			val := binary.LittleEndian.Uint32(cmd.Data[off+4:])
			d.regs.Set32(addr, val)
		}
		return nil
	})

	r.Register(protocol.CmdEcho, "echo", func(cmd, rsp *protocol.Record) error {
		copy(rsp.Data[:], cmd.Payload())
		rsp.Len = cmd.Len
		return nil
	})

	r.Register(protocol.CmdUSBWatchdog, "usb_watchdog", func(cmd, rsp *protocol.Record) error {
		if cmd.Len < 4 {
			return ErrInvalidCommand
		}
		d.SetWatchdog(binary.LittleEndian.Uint32(cmd.Data[:4]))
		binary.LittleEndian.PutUint32(rsp.Data[:4], d.Watchdog())
		rsp.Len = 4
		return nil
	})

	d.log.debug(ComponentCommand, "builtin commands registered", "count", r.Count())
}
