// Package adapter drives an adapter from the host: it frames commands,
// splits the response stream into records and matches command replies.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"usbfw/protocol"
)

// ErrClosed is returned after Close
var ErrClosed = errors.New("adapter closed")

// Event is a response record received from the adapter
type Event struct {
	Block  int // Index of the block the record arrived in
	Record protocol.Record
	Time   time.Time
}

// Adapter is a connection to the adapter over any byte transport
type Adapter struct {
	rw     io.ReadWriter
	reader *protocol.BlockReader
	log    *slog.Logger

	mu      sync.Mutex
	seq     uint8
	waiting map[uint8]chan protocol.Record
	events  chan Event
	blocks  int
	resyncs int
	skipped int
	closed  bool
	quit    chan struct{}
	done    chan struct{}
}

// New creates an adapter on rw and starts reading. Unsolicited records
// are delivered on Events; replies to Call go to the caller.
func New(rw io.ReadWriter, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{
		rw:      rw,
		reader:  protocol.NewBlockReader(rw),
		log:     logger,
		waiting: make(map[uint8]chan protocol.Record),
		events:  make(chan Event, 64),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go a.readLoop()
	return a
}

// Events returns the stream of unsolicited records. It must be drained;
// it is closed when the transport fails or the adapter is closed.
func (a *Adapter) Events() <-chan Event {
	return a.events
}

// Done is closed when the read loop exits
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

// Stats returns stream counters
func (a *Adapter) Stats() (blocks, resyncs, discarded int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blocks, a.resyncs, a.skipped
}

// Send writes one command without waiting for the reply
func (a *Adapter) Send(typ uint8, payload []byte) (uint8, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0, ErrClosed
	}
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	return seq, a.write(typ, seq, payload)
}

// Call sends a command and waits for the reply carrying the same sequence
// number.
func (a *Adapter) Call(ctx context.Context, typ uint8, payload []byte) (protocol.Record, error) {
	reply := make(chan protocol.Record, 1)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return protocol.Record{}, ErrClosed
	}
	a.seq++
	seq := a.seq
	a.waiting[seq] = reply
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.waiting, seq)
		a.mu.Unlock()
	}()

	if err := a.write(typ, seq, payload); err != nil {
		return protocol.Record{}, err
	}

	select {
	case rec := <-reply:
		return rec, nil
	case <-a.done:
		return protocol.Record{}, ErrClosed
	case <-ctx.Done():
		return protocol.Record{}, fmt.Errorf("command 0x%02x seq %d: %w", typ, seq, ctx.Err())
	}
}

func (a *Adapter) write(typ, seq uint8, payload []byte) error {
	if len(payload) > protocol.MaxPayload || len(payload)%4 != 0 {
		return fmt.Errorf("command 0x%02x: %w", typ, protocol.ErrRecordLength)
	}
	rec := protocol.Record{Header: protocol.Header{Len: uint8(len(payload)), Type: typ, Seq: seq}}
	copy(rec.Data[:], payload)

	buf := make([]byte, rec.Size())
	if _, err := protocol.PutRecord(buf, &rec); err != nil {
		return err
	}
	if _, err := a.rw.Write(buf); err != nil {
		return fmt.Errorf("failed to send command 0x%02x: %w", typ, err)
	}
	return nil
}

// Close stops delivering records. The transport is closed if it
// implements io.Closer, which also ends a read loop waiting on it.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()
	close(a.quit)

	if c, ok := a.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (a *Adapter) readLoop() {
	defer close(a.done)
	defer close(a.events)

	for {
		block, err := a.reader.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				a.log.Warn("response stream failed", "err", err)
			}
			return
		}

		recs, err := protocol.DecodeBlock(block)
		if err != nil {
			a.log.Warn("bad response block", "len", len(block), "err", err)
		}

		a.mu.Lock()
		idx := a.blocks
		a.blocks++
		a.resyncs = a.reader.Resyncs
		a.skipped = a.reader.Discards
		closed := a.closed
		a.mu.Unlock()
		if closed {
			return
		}

		now := time.Now()
		for _, rec := range recs {
			if a.deliverReply(rec) {
				continue
			}
			select {
			case a.events <- Event{Block: idx, Record: rec, Time: now}:
			case <-a.quit:
				return
			}
		}
	}
}

// deliverReply hands a command reply to its caller
func (a *Adapter) deliverReply(rec protocol.Record) bool {
	if rec.IsResponse() {
		return false
	}
	a.mu.Lock()
	reply, ok := a.waiting[rec.Seq]
	a.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case reply <- rec:
	default:
		a.log.Warn("duplicate reply", "seq", rec.Seq)
	}
	return true
}
