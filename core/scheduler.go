package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler keeps the device's timers sorted by wake time. Times are
// free running clock ticks and compared modulo 2^32.
type Scheduler struct {
	list *Timer
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// timerBefore reports whether a is earlier than b, allowing for wrap
func timerBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// Schedule adds a timer to the schedule
func (s *Scheduler) Schedule(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	s.insert(t)
}

// Cancel removes t if it is scheduled
func (s *Scheduler) Cancel(t *Timer) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for p := &s.list; *p != nil; p = &(*p).Next {
		if *p == t {
			*p = t.Next
			t.Next = nil
			return true
		}
	}
	return false
}

// insert inserts a timer in sorted order by WakeTime
func (s *Scheduler) insert(t *Timer) {
	if s.list == nil || timerBefore(t.WakeTime, s.list.WakeTime) {
		t.Next = s.list
		s.list = t
		return
	}

	current := s.list
	for current.Next != nil && !timerBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Next returns the wake time of the earliest timer
func (s *Scheduler) Next() (uint32, bool) {
	if s.list == nil {
		return 0, false
	}
	return s.list.WakeTime, true
}

// Len returns the number of scheduled timers
func (s *Scheduler) Len() int {
	n := 0
	for t := s.list; t != nil; t = t.Next {
		n++
	}
	return n
}

// Dispatch runs every timer due at now
func (s *Scheduler) Dispatch(now uint32) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for s.list != nil && !timerBefore(now, s.list.WakeTime) {
		timer := s.list
		s.list = timer.Next
		timer.Next = nil

		if timer.Handler(timer) == SF_RESCHEDULE {
			s.insert(timer)
		}
	}
}
