package core

import (
	"usbfw/protocol"
)

// HandleUSB services one USB interrupt. Group bits are handled in a fixed
// order: data in, register out, status in, EP0, then bus events. A bus
// reset or suspend reboots the device and returns ResultReboot.
func (d *Device) HandleUSB() Result {
	if d.state != ResultContinue {
		return d.state
	}

	group := d.regs.Get8(RegUSBIntrGroup)
	if group != 0 {
		if res := d.usbHandler(group); res != ResultContinue {
			return res
		}
	}

	if d.ring.Pending() > 0 {
		d.usbTriggerIn()
	}
	return ResultContinue
}

func (d *Device) usbHandler(group uint8) Result {
	if group&IntrGroupDataIn != 0 {
		d.usbDataIn()
	}
	if group&IntrGroupRegOut != 0 {
		d.usbRegOut()
	}
	if group&IntrGroupStatusIn != 0 {
		d.statusIn()
	}
	if group&IntrGroupEP0 != 0 {
		d.handleEP0()
	}
	if group&IntrGroup7 != 0 {
		return d.handleBusEvents()
	}
	return ResultContinue
}

// usbDataIn has nothing to do; bulk data is moved by the DMA engine.
func (d *Device) usbDataIn() {}

// usbRegOut reads one command from the EP4 FIFO and lets the command
// processor answer it in a fresh response slot.
func (d *Device) usbRegOut() {
	d.usbResetOut()

	n := int(d.regs.Get8(RegUSBEP4ByteCountLow)) | int(d.regs.Get8(RegUSBEP4ByteCountHi))<<8
	words := (n + 3) / 4

	buf := d.cmdBuf[:0]
	for i := 0; i < words; i++ {
		w := d.regs.Get32(RegUSBEP4Data)
		if len(buf)+4 > cap(buf) {
			continue
		}
		buf = append(buf, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	if words*4 > cap(buf) {
		d.log.warn(ComponentDispatch, "command truncated", "bytes", n, "kept", len(buf))
	}

	rsp := d.ring.AcquireSlot()
	if rsp == nil {
		d.log.error(ComponentDispatch, "out of response buffers")
		return
	}
	rsp.Header = protocol.Header{}
	d.cmds.HandleCommand(buf, rsp)
	d.checkReply(rsp)

	d.usbTriggerIn()
}

// checkReply applies the Enqueue length rules to a processor reply. A reply
// that breaks them keeps its header but loses the payload, so the block it
// lands in stays decodable.
func (d *Device) checkReply(rsp *protocol.Record) {
	if int(rsp.Len) <= d.cfg.MaxPayload && rsp.Len&3 == 0 {
		return
	}
	d.log.warn(ComponentDispatch, "reply length invalid", "type", rsp.Type, "len", rsp.Len)
	rsp.Len = 0
}

// handleBusEvents services interrupt group 7
func (d *Device) handleBusEvents() Result {
	src := d.regs.Get8(RegUSBIntrSource7)

	if src&IntrSrc7Out0Byte != 0 {
		d.ackBusEvent(IntrSrc7Out0Byte)
	}
	if src&IntrSrc7In0Byte != 0 {
		d.ackBusEvent(IntrSrc7In0Byte)
	}

	if src&IntrSrc7Reset != 0 {
		d.ackBusEvent(IntrSrc7Reset)
		d.log.warn(ComponentDispatch, "bus reset")
		return d.Reboot()
	}

	if src&IntrSrc7Suspend != 0 {
		d.ackBusEvent(IntrSrc7Suspend)
		d.regs.Or8(RegUSBMainCtrl, USBMainCtrlGoToSuspend)
		d.regs.Set32(RegUSBPHYChirpFix, USBPHYChirpMagic)
		// TODO: enter a real low power state instead of rebooting once
		// resume from suspend is supported by the boot code.
		d.log.warn(ComponentDispatch, "suspend")
		return d.Reboot()
	}

	if src&IntrSrc7Resume != 0 {
		d.ackBusEvent(IntrSrc7Resume)
	}
	return ResultContinue
}

func (d *Device) ackBusEvent(bit uint8) {
	d.regs.And8(RegUSBIntrSource7, ^bit)
}
