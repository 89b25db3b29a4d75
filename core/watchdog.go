package core

import (
	"encoding/binary"

	"usbfw/protocol"
)

// WatchdogInactive is the counter value that disables the watchdog
const WatchdogInactive = 0xffffffff

// watchdogReportExt marks a watchdog report as generated by the tick
const watchdogReportExt = 0x80

// SetWatchdog sets the watchdog counter. The host arms the watchdog with a
// small value and keeps resetting it; WatchdogInactive disables it.
func (d *Device) SetWatchdog(v uint32) {
	state := disableInterrupts()
	d.watchdog = v
	restoreInterrupts(state)
}

// Watchdog returns the current counter
func (d *Device) Watchdog() uint32 {
	return d.watchdog
}

// WatchdogTick advances the watchdog and reports its value to the host.
// When the counter reaches the threshold it returns ResultHang and the
// caller must stop servicing the device until the hardware watchdog
// resets the chip.
func (d *Device) WatchdogTick() Result {
	if d.state != ResultContinue {
		return d.state
	}
	if d.watchdog == WatchdogInactive {
		return ResultContinue
	}

	d.watchdog++
	if d.watchdog >= d.cfg.WatchdogThreshold {
		d.log.error(ComponentWatchdog, "watchdog expired", "count", d.watchdog)
		d.state = ResultHang
		return ResultHang
	}

	var payload [4]byte
	binary.LittleEndian.PutUint32(payload[:], d.watchdog)

	// The tick shares the ring with the USB interrupt.
	state := disableInterrupts()
	err := d.Enqueue(uint8(len(payload)), protocol.RspUSBWatchdog, watchdogReportExt, payload[:])
	restoreInterrupts(state)
	if err != nil {
		d.log.warn(ComponentWatchdog, "report dropped", "err", err)
	}
	return ResultContinue
}

// StartWatchdog schedules the periodic watchdog tick on s. The timer stops
// rescheduling once the device leaves the running state.
func (d *Device) StartWatchdog(s *Scheduler, now uint32) *Timer {
	period := TimerFromUS(uint64(d.cfg.WatchdogPeriodMS) * 1000)
	t := &Timer{WakeTime: now + period}
	t.Handler = func(t *Timer) uint8 {
		if d.WatchdogTick() != ResultContinue {
			return SF_DONE
		}
		t.WakeTime += period
		return SF_RESCHEDULE
	}
	s.Schedule(t)
	return t
}
