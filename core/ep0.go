package core

// EP0Action is the set of control endpoint actions requested outside the
// EP0 interrupt path.
type EP0Action uint8

const (
	// EP0Stall stalls the current control transfer
	EP0Stall EP0Action = 1 << iota
	// EP0Trigger completes the current control transfer
	EP0Trigger
)

// RequestStall asks the next EP0 interrupt to stall the control transfer
func (d *Device) RequestStall() {
	d.ep0Action |= EP0Stall
}

// RequestTrigger asks the next EP0 interrupt to signal transfer done
func (d *Device) RequestTrigger() {
	d.ep0Action |= EP0Trigger
}

// EP0Pending returns the control actions not yet applied
func (d *Device) EP0Pending() EP0Action {
	return d.ep0Action
}

// handleEP0 services interrupt group 0. Hardware bits and software flags
// may both be set in one pass; each flag is cleared once applied.
func (d *Device) handleEP0() {
	src := d.regs.Get8(RegUSBIntrSource0)

	if src&IntrSrc0Setup != 0 {
		d.ep0.Setup()
	}
	if src&IntrSrc0Tx != 0 {
		d.ep0.DataIn()
	}
	if src&IntrSrc0Rx != 0 {
		d.ep0.DataOut()
	}

	if src&IntrSrc0CmdAbort != 0 {
		d.regs.And8(RegUSBIntrSource0, IntrSrc0AbortClear)
	}

	if src&IntrSrc0Fail != 0 || d.ep0Action&EP0Stall != 0 {
		d.log.debug(ComponentEP0, "stall", "src", src)
		d.regs.Or8(RegUSBCxConfigStatus, USBCxStall)
		d.ep0Action &^= EP0Stall
	}

	if src&IntrSrc0Done != 0 || d.ep0Action&EP0Trigger != 0 {
		d.regs.Or8(RegUSBCxConfigStatus, USBCxDone)
		d.ep0Action &^= EP0Trigger
	}
}
