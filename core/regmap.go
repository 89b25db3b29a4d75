package core

// USB controller (byte wide registers)
const (
	RegUSBBase = 0x1e1000

	RegUSBMainCtrl        = RegUSBBase + 0x000
	RegUSBCxConfigStatus  = RegUSBBase + 0x00b
	RegUSBEP4ByteCountHi  = RegUSBBase + 0x0af
	RegUSBEP4ByteCountLow = RegUSBBase + 0x0bf
	RegUSBIntrMaskByte4   = RegUSBBase + 0x134
	RegUSBIntrMaskByte6   = RegUSBBase + 0x136
	RegUSBIntrGroup       = RegUSBBase + 0x140
	RegUSBIntrSource0     = RegUSBBase + 0x141
	RegUSBIntrSource7     = RegUSBBase + 0x148
	RegUSBEP4Data         = RegUSBBase + 0x1fc
)

// USB controller bits
const (
	USBMainCtrlGoToSuspend = 1 << 3

	USBCxStall = 1 << 2
	USBCxDone  = 1 << 0

	USBIntrDisableOutInt = 1<<7 | 1<<6
	USBIntrDisableInInt  = 1 << 6
)

// First level interrupt group bits
const (
	IntrGroupEP0      = 1 << 0
	IntrGroupRegOut   = 1 << 4
	IntrGroupDataIn   = 1 << 5
	IntrGroupStatusIn = 1 << 6
	IntrGroup7        = 1 << 7
)

// Interrupt source 0 bits (control endpoint)
const (
	IntrSrc0Setup      = 1 << 0
	IntrSrc0Tx         = 1 << 1
	IntrSrc0Rx         = 1 << 2
	IntrSrc0Fail       = 1 << 3
	IntrSrc0Done       = 1 << 4
	IntrSrc0CmdAbort   = 1 << 7
	IntrSrc0AbortClear = 0x7f
)

// Interrupt source 7 bits (bus events)
const (
	IntrSrc7Reset    = 1 << 1
	IntrSrc7Suspend  = 1 << 2
	IntrSrc7Resume   = 1 << 3
	IntrSrc7In0Byte  = 1 << 6
	IntrSrc7Out0Byte = 1 << 7
)

// Packet transfer arbiter
const (
	RegPTAUpDMATrigger = 0x1e2020
)

// MAC, timer and power control
const (
	RegMACPowerStateCtrl = 0x1c3500
	MACPowerStateReset   = 1 << 7

	RegTimerWatchDog = 0x1c3688

	RegPwrBase          = 0x1d4000
	RegPwrPLLADDAC      = RegPwrBase + 0x00c
	RegPwrADDABB        = RegPwrBase + 0x014
	RegPwrWatchDogMagic = RegPwrBase + 0x020
	PwrADDABBFIFOReset  = 1 << 3

	WatchDogMagicRestart = 0x98760000
)

// PHY and GPIO
const (
	RegPHYActive       = 0x1c581c
	RegPHYADCCtl       = 0x1c582c
	RegPHYADCSerialCtl = 0x1c5c4c
	RegPHYADCSerialIn  = 0x1c589c
	RegPHYADCSerialEnd = 0x1c58c4

	PHYActiveDisable        = 0
	PHYADCCtlOffPwdADC      = 1 << 15
	PHYADCCtlOffPwdDAC      = 1 << 13
	PHYADCSerialSelInternal = 0
	PHYADCSerialSelExternal = 2

	RegGPIOPortType = 0x1d0100
	RegGPIOPortData = 0x1d0104
)

// RegUSBPHYChirpFix is written with USBPHYChirpMagic to avoid a USB PHY
// chirp sequence problem when the device comes back up.
const (
	RegUSBPHYChirpFix = 0x10f100
	USBPHYChirpMagic  = 0x12345678
)
