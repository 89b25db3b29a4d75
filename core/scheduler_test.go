package core

import "testing"

func TestSchedulerOrder(t *testing.T) {
	s := NewScheduler()
	var fired []uint32

	handler := func(tm *Timer) uint8 {
		fired = append(fired, tm.WakeTime)
		return SF_DONE
	}
	for _, wake := range []uint32{300, 100, 200, 100} {
		s.Schedule(&Timer{WakeTime: wake, Handler: handler})
	}

	if next, ok := s.Next(); !ok || next != 100 {
		t.Errorf("Expected next wake 100, got %d", next)
	}

	s.Dispatch(250)
	want := []uint32{100, 100, 200}
	if len(fired) != len(want) {
		t.Fatalf("Expected %v, got %v", want, fired)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("Timer %d: expected %d, got %d", i, want[i], fired[i])
		}
	}
	if s.Len() != 1 {
		t.Errorf("Expected 1 timer left, got %d", s.Len())
	}
}

func TestSchedulerWrap(t *testing.T) {
	s := NewScheduler()
	var fired []string

	s.Schedule(&Timer{WakeTime: 0x10, Handler: func(*Timer) uint8 {
		fired = append(fired, "after")
		return SF_DONE
	}})
	s.Schedule(&Timer{WakeTime: 0xfffffff0, Handler: func(*Timer) uint8 {
		fired = append(fired, "before")
		return SF_DONE
	}})

	s.Dispatch(0xfffffff8)
	if len(fired) != 1 || fired[0] != "before" {
		t.Fatalf("Expected only the pre-wrap timer, got %v", fired)
	}
	s.Dispatch(0x20)
	if len(fired) != 2 || fired[1] != "after" {
		t.Errorf("Expected post-wrap timer, got %v", fired)
	}
}

func TestSchedulerRescheduleAndCancel(t *testing.T) {
	s := NewScheduler()
	count := 0
	tm := &Timer{WakeTime: 10}
	tm.Handler = func(tm *Timer) uint8 {
		count++
		tm.WakeTime += 10
		return SF_RESCHEDULE
	}
	s.Schedule(tm)

	s.Dispatch(10)
	s.Dispatch(20)
	if count != 2 {
		t.Errorf("Expected 2 runs, got %d", count)
	}

	if !s.Cancel(tm) {
		t.Error("Cancel should find the timer")
	}
	if s.Cancel(tm) {
		t.Error("Second cancel should fail")
	}
	s.Dispatch(100)
	if count != 2 {
		t.Errorf("Cancelled timer ran, count %d", count)
	}
	if _, ok := s.Next(); ok {
		t.Error("Scheduler should be empty")
	}
}
