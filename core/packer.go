package core

// statusIn packs as many queued responses as fit into the response block
// and hands it to the up DMA queue. It does nothing while the previous
// block is still in flight.
func (d *Device) statusIn() error {
	if !d.blockAvailable {
		return ErrBatchBusy
	}
	d.blockAvailable = false

	d.usbResetIn()

	pendingBefore := d.ring.Pending()
	block := d.block
	block.Reset()

	for d.ring.Pending() > 0 {
		rsp := d.ring.TryDrainOne(block.Remaining())
		if rsp == nil {
			break
		}
		if err := block.Append(rsp); err != nil {
			// TryDrainOne already checked the fit
			d.log.error(ComponentPacker, "record overflows block", "record", rsp.String(), "err", err)
			break
		}
	}

	if block.Empty() {
		d.blockAvailable = true
		if pendingBefore > 0 {
			d.log.warn(ComponentPacker, ErrEmptyBatch.Error(), "pending", pendingBefore)
			return ErrEmptyBatch
		}
		return nil
	}

	d.log.debug(ComponentPacker, "submit block", "len", block.Len(), "pending", d.ring.Pending())
	d.xfer.Submit(block.Finalize())

	d.regs.Set32(RegPTAUpDMATrigger, 1)
	d.usbTriggerOut()
	return nil
}

// StatusIn runs the packer outside the interrupt dispatcher, as the
// transfer layer does after releasing the block.
func (d *Device) StatusIn() error {
	if d.state != ResultContinue {
		return ErrHalted
	}
	return d.statusIn()
}
