// Package sim runs the firmware core against fake registers so the host
// tools can be exercised without an adapter plugged in.
package sim

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"time"

	"usbfw/core"
)

// ErrHalted is returned by Write once the simulated firmware stopped
var ErrHalted = errors.New("simulated adapter halted")

// Sim is a simulated adapter. Writes are commands for the EP4 FIFO, reads
// return response blocks.
type Sim struct {
	mu     sync.Mutex
	cond   *sync.Cond
	dev    *core.Device
	regs   *core.FakeRegisters
	sched  *core.Scheduler
	clock  uint32
	blocks [][]byte
	cur    []byte // unread rest of the block being read
	closed bool
	boots  int
}

// New creates a simulated adapter running the built-in command set
func New(cfg core.Config) *Sim {
	s := &Sim{
		regs:  core.NewFakeRegisters(),
		sched: core.NewScheduler(),
	}
	s.cond = sync.NewCond(&s.mu)

	s.dev = core.NewDevice(cfg, s.regs)
	reg := core.NewCommandRegistry()
	core.RegisterBuiltinCommands(reg, s.dev)
	s.dev.SetCommandProcessor(reg)
	s.dev.SetTransfer(transfer{s})
	s.dev.SetBoard(board{s})
	s.dev.StartWatchdog(s.sched, s.clock)
	return s
}

// transfer queues blocks for Read. It runs inside HandleUSB with s.mu held.
type transfer struct{ s *Sim }

func (t transfer) Submit(block []byte) {
	t.s.blocks = append(t.s.blocks, append([]byte(nil), block...))
	t.s.cond.Broadcast()
}

type board struct{ s *Sim }

func (board) SetLEDs(uint32) {}
func (board) SlowClock()     {}

func (b board) JumpToBootcode() {
	b.s.boots++
	b.s.cond.Broadcast()
}

// Device returns the simulated firmware
func (s *Sim) Device() *core.Device {
	return s.dev
}

// Registers returns the fake register file
func (s *Sim) Registers() *core.FakeRegisters {
	return s.regs
}

// Boots returns how many times the firmware jumped to the boot code
func (s *Sim) Boots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boots
}

// interrupt raises the given interrupt groups and services them
func (s *Sim) interrupt(group, src7 uint8) core.Result {
	s.regs.Poke8(core.RegUSBIntrGroup, group)
	s.regs.Poke8(core.RegUSBIntrSource7, src7)
	res := s.dev.HandleUSB()
	s.regs.Poke8(core.RegUSBIntrGroup, 0)
	if res != core.ResultContinue {
		s.cond.Broadcast()
	}
	return res
}

// Write delivers one command. The reply is packed in the same interrupt.
func (s *Sim) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.ErrClosedPipe
	}
	if s.dev.State() != core.ResultContinue {
		return 0, ErrHalted
	}

	s.regs.Poke8(core.RegUSBEP4ByteCountLow, uint8(len(p)))
	s.regs.Poke8(core.RegUSBEP4ByteCountHi, uint8(len(p)>>8))
	padded := append(append([]byte(nil), p...), 0, 0, 0)
	for i := 0; i < len(p); i += 4 {
		s.regs.Queue32(core.RegUSBEP4Data, binary.LittleEndian.Uint32(padded[i:]))
	}
	s.interrupt(core.IntrGroupRegOut|core.IntrGroupStatusIn, 0)
	return len(p), nil
}

// Read returns response block bytes. It blocks until a block is ready and
// returns io.EOF once the adapter is closed or halted with nothing left.
func (s *Sim) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.cur) == 0 {
		if len(s.blocks) > 0 {
			s.cur = s.blocks[0]
			s.blocks = s.blocks[1:]

			// The up DMA finished with the block
			s.dev.ReleaseBlock()
			if s.dev.Pending() > 0 && s.dev.State() == core.ResultContinue {
				s.interrupt(core.IntrGroupStatusIn, 0)
			}
			break
		}
		if s.closed || s.dev.State() != core.ResultContinue {
			return 0, io.EOF
		}
		s.cond.Wait()
	}

	n := copy(p, s.cur)
	s.cur = s.cur[n:]
	return n, nil
}

// Advance moves the simulated clock forward and runs due timers
func (s *Sim) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock += core.TimerFromUS(uint64(d / time.Microsecond))
	s.sched.Dispatch(s.clock)
	if s.dev.Pending() > 0 && s.dev.State() == core.ResultContinue {
		s.interrupt(core.IntrGroupStatusIn, 0)
	}
	if s.dev.State() != core.ResultContinue {
		s.cond.Broadcast()
	}
}

// Emit queues an unsolicited response as a firmware subsystem would
func (s *Sim) Emit(typ, ext uint8, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := (len(payload) + 3) &^ 3
	if n > 255 {
		return core.ErrCommandTooLong
	}
	if err := s.dev.Enqueue(uint8(n), typ, ext, payload); err != nil {
		return err
	}
	s.interrupt(core.IntrGroupStatusIn, 0)
	return nil
}

// BusReset signals a USB bus reset, which reboots the firmware
func (s *Sim) BusReset() core.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupt(core.IntrGroup7, core.IntrSrc7Reset)
}

// Timers reports how many firmware timers are scheduled and how long the
// simulated clock must advance before the earliest one fires.
func (s *Sim) Timers() (int, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wake, ok := s.sched.Next()
	if !ok {
		return 0, 0
	}
	delta := int32(wake - s.clock)
	if delta < 0 {
		delta = 0
	}
	return s.sched.Len(), time.Duration(core.TimerToUS(uint32(delta))) * time.Microsecond
}

// Close ends the simulation
func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
	return nil
}

var _ io.ReadWriteCloser = (*Sim)(nil)
