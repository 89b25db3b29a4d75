package protocol

// StreamBuffer collects bytes from a stream that may deliver blocks split
// or coalesced. Unread bytes are always contiguous so a block can be
// parsed in place; space is reclaimed by moving the unread bytes to the
// front when an append would not fit.
type StreamBuffer struct {
	buf   []byte
	start int
	end   int
}

// NewStreamBuffer creates a buffer holding up to capacity unread bytes
func NewStreamBuffer(capacity int) *StreamBuffer {
	return &StreamBuffer{buf: make([]byte, capacity)}
}

// Append copies as much of p as fits and returns the number of bytes taken
func (s *StreamBuffer) Append(p []byte) int {
	if s.end+len(p) > len(s.buf) && s.start > 0 {
		s.end = copy(s.buf, s.buf[s.start:s.end])
		s.start = 0
	}
	n := copy(s.buf[s.end:], p)
	s.end += n
	return n
}

// Bytes returns the unread bytes. The slice is valid until the next Append.
func (s *StreamBuffer) Bytes() []byte {
	return s.buf[s.start:s.end]
}

// Discard drops n bytes from the front
func (s *StreamBuffer) Discard(n int) {
	s.start += min(n, s.Len())
	if s.start == s.end {
		s.start, s.end = 0, 0
	}
}

// Len returns the number of unread bytes
func (s *StreamBuffer) Len() int {
	return s.end - s.start
}

// Free returns how many bytes the next Append can take
func (s *StreamBuffer) Free() int {
	return len(s.buf) - s.Len()
}

// Reset drops everything
func (s *StreamBuffer) Reset() {
	s.start, s.end = 0, 0
}
