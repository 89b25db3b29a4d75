package core

// powerOffADDA shuts down the PHY and the ADDA front end
var powerOffADDA = []regWrite{
	{RegPHYActive, PHYActiveDisable},
	{RegPHYADCCtl, 0xa0000000 | PHYADCCtlOffPwdADC | PHYADCCtlOffPwdDAC},
	{RegGPIOPortData, 0},
	{RegGPIOPortType, 0xf},
	{RegPwrBase, 0x40021},
	{RegPwrADDABB, 0},
}

// adcSerialParking is the bit stream clocked into the external radio's ADC
// serial interface before the PLL goes down, eight bits per write.
var adcSerialParking = [...]uint32{
	0, 0, 0, 0, 0, 0, 0, 0xf8,
	0x27, 0xf9, 0x90, 0x04, 0x48, 0x19, 0, 0,
	0, 0, 0, 0x70, 0x0c, 0, 0, 0,
	0, 0, 0, 0, 0,
}

// powerOffPLL runs on the slow clock
var powerOffPLL = func() []regWrite {
	script := []regWrite{
		{RegPwrPLLADDAC, 0x5163},
		{RegPHYADCSerialCtl, PHYADCSerialSelExternal},
	}
	for _, v := range adcSerialParking {
		script = append(script, regWrite{RegPHYADCSerialIn, v})
	}
	return append(script,
		regWrite{RegPHYADCSerialEnd, 0},
		regWrite{RegPHYADCSerialCtl, PHYADCSerialSelInternal},
	)
}()

// Reboot shuts the hardware down and hands control to the boot code. The
// device is halted afterwards; every later call returns ResultReboot.
func (d *Device) Reboot() Result {
	if d.state != ResultContinue {
		return d.state
	}
	d.log.warn(ComponentReboot, "rebooting")

	d.board.SetLEDs(0)

	// Tell the boot code this restart was deliberate.
	d.regs.And32(RegPwrWatchDogMagic, 0xffff)
	d.regs.Or32(RegPwrWatchDogMagic, WatchDogMagicRestart)

	// Disable the hardware watchdog
	d.regs.Or32(RegTimerWatchDog, 0xffff)

	d.resetFIFO()
	// Queued responses die with the FIFOs
	d.ring.Reset()
	d.powerOff()

	d.regs.Set32(RegUSBPHYChirpFix, USBPHYChirpMagic)

	d.state = ResultReboot
	d.board.JumpToBootcode()
	return ResultReboot
}

// resetFIFO resets the USB FIFOs used for WLAN traffic
func (d *Device) resetFIFO() {
	val := d.regs.Get32(RegMACPowerStateCtrl)
	d.regs.Set32(RegMACPowerStateCtrl, val|MACPowerStateReset)

	d.regs.Set32(RegPwrADDABB, PwrADDABBFIFOReset)
	d.regs.Set32(RegPwrADDABB, 0)
}

func (d *Device) powerOff() {
	applyScript(d.regs, powerOffADDA)
	d.board.SlowClock()
	applyScript(d.regs, powerOffPLL)
}
