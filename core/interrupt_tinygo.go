//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks interrupts so a timer tick cannot enqueue into
// the ring while the USB handler is draining it
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
