package firmware

// Feature names a bit in a feature bitmap
type Feature struct {
	Bit  int
	Name string
}

// OTUSFeatures lists the known MAC feature bits
var OTUSFeatures = []Feature{
	{FeatureDummy, "DUMMY_FEATURE"},
	{FeatureUnusable, "UNUSABLE"},
	{FeatureCommandPHY, "COMMAND_PHY"},
	{FeatureCommandCAM, "COMMAND_CAM"},
	{FeatureWLANTxCAB, "WLANTX_CAB"},
	{FeatureHandleBackReq, "HANDLE_BACK_REQ"},
	{FeatureGPIOInterrupt, "GPIO_INTERRUPT"},
	{FeaturePSM, "PSM"},
}

// USBFeatures lists the known USB feature bits
var USBFeatures = []Feature{
	{USBFeatureDummy, "USB_DUMMY_FEATURE"},
	{USBFeatureMiniboot, "USB_MINIBOOT"},
	{USBFeatureInitFirmware, "USB_INIT_FIRMWARE"},
	{USBFeatureRespEP2, "USB_RESP_EP2"},
	{USBFeatureDownStream, "USB_DOWN_STREAM"},
	{USBFeatureUpStream, "USB_UP_STREAM"},
	{USBFeatureWatchdog, "USB_WATCHDOG"},
}

// Supports reports whether bit is set in a feature bitmap
func Supports(set uint32, bit int) bool {
	return bit < 32 && set&(1<<bit) != 0
}

// Enabled returns the entries of list whose bit is set
func Enabled(set uint32, list []Feature) []Feature {
	var out []Feature
	for _, f := range list {
		if Supports(set, f.Bit) {
			out = append(out, f)
		}
	}
	return out
}

// Supports reports whether the OTUS descriptor advertises bit
func (d *OTUS) Supports(bit int) bool {
	return Supports(d.FeatureSet, bit)
}

// Supports reports whether the USB descriptor advertises bit
func (d *USB) Supports(bit int) bool {
	return Supports(d.FeatureSet, bit)
}

// Year returns the four digit build year
func (d *MOTD) Year() int {
	return 2000 + int(d.Date/10000%100)
}

// Month returns the build month
func (d *MOTD) Month() int {
	return int(d.Date / 100 % 100)
}

// Day returns the build day
func (d *MOTD) Day() int {
	return int(d.Date % 100)
}
