//go:build !tinygo

package core

// irqState stands in for the saved interrupt mask on host builds
type irqState struct{}

// disableInterrupts does nothing on host builds. The simulator and tests
// serialize access to a device themselves.
func disableInterrupts() irqState {
	return irqState{}
}

func restoreInterrupts(irqState) {}
