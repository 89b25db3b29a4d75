package core

import (
	"usbfw/protocol"
)

// DrainReserve is the space a record needs beyond its payload before the
// packer takes it: the record header plus one spare word.
const DrainReserve = 8

// Ring is the fixed-capacity response queue. Producers always get a slot;
// once the ring is full each new record replaces the oldest unsent one.
type Ring struct {
	slots   []protocol.Record
	head    int // next slot to drain
	tail    int // next slot to fill
	pending int
}

// NewRing creates a ring with n slots
func NewRing(n int) *Ring {
	if n <= 0 {
		n = DefaultRingSlots
	}
	return &Ring{slots: make([]protocol.Record, n)}
}

// Capacity returns the number of slots
func (r *Ring) Capacity() int {
	return len(r.slots)
}

// Pending returns the number of records waiting to be drained
func (r *Ring) Pending() int {
	return r.pending
}

// AcquireSlot returns the slot at the tail and advances it. The pending
// count saturates at the capacity, so a full ring overwrites its head.
func (r *Ring) AcquireSlot() *protocol.Record {
	slot := &r.slots[r.tail]
	r.tail = (r.tail + 1) % len(r.slots)
	if r.pending < len(r.slots) {
		r.pending++
	}
	return slot
}

// TryDrainOne returns the record at the head if it fits in space bytes.
// A record that does not fit stays queued.
func (r *Ring) TryDrainOne(space int) *protocol.Record {
	if r.pending == 0 {
		return nil
	}
	rec := &r.slots[r.head]
	if int(rec.Len)+DrainReserve > space {
		return nil
	}
	r.head = (r.head + 1) % len(r.slots)
	r.pending--
	return rec
}

// Reset empties the ring
func (r *Ring) Reset() {
	r.head, r.tail, r.pending = 0, 0, 0
}

// Enqueue queues a response record and arms the bulk-in trigger. length
// must be a multiple of 4 no larger than the configured maximum payload;
// anything else is logged and dropped. A payload shorter than length is
// zero padded.
func (d *Device) Enqueue(length, typ, ext uint8, payload []byte) error {
	if d.state != ResultContinue {
		return ErrHalted
	}
	if int(length) > d.cfg.MaxPayload {
		d.log.warn(ComponentRing, "command too long", "type", typ, "len", length)
		return ErrCommandTooLong
	}
	if length&3 != 0 {
		d.log.warn(ComponentRing, "command length not a multiple of 4", "type", typ, "len", length)
		return ErrCommandMisaligned
	}

	rsp := d.ring.AcquireSlot()
	if rsp == nil {
		d.log.error(ComponentRing, "out of response buffers")
		return ErrNoResponseSlot
	}

	rsp.Len = length
	rsp.Type = typ
	rsp.Ext = ext
	rsp.Seq = 0
	n := copy(rsp.Data[:length], payload)
	clear(rsp.Data[n:length])

	d.usbTriggerIn()
	return nil
}
