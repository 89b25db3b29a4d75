package firmware

import (
	"fmt"
	"io"
)

const (
	colorWarn  = "\x1b[33m"
	colorReset = "\x1b[0m"
)

// PrintOptions controls Print output
type PrintOptions struct {
	// Color highlights unknown descriptors with ANSI escapes
	Color bool
}

// Print writes a human readable decode of the image
func Print(w io.Writer, img *Image, opts PrintOptions) error {
	p := &printer{w: w, opts: opts}
	descs := img.Descriptors()

	n := 0
	for _, d := range descs {
		n += int(d.Header().Length)
	}

	p.printf("General Firmware Statistics:\n")
	p.printf("\tFirmware file size: %d Bytes\n", img.Size())
	p.printf("\t%d Descriptors in %d Bytes\n", len(descs), n)
	p.printf("\nDetailed Descriptor Description:\n")

	for _, d := range descs {
		p.head(d.Header())
		p.descriptor(d)
		p.printf("\n")
	}
	return p.err
}

// printer keeps the first write error
type printer struct {
	w    io.Writer
	opts PrintOptions
	err  error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) head(h Head) {
	p.printf(">\t%s Descriptor: size:%d, compatible:%d, version:%d\n",
		h.Magic, h.Length, h.MinVer, h.CurVer)
}

func (p *printer) descriptor(d Descriptor) {
	switch d := d.(type) {
	case *OTUS:
		p.printf("\tBeacon Address: %x, (reserved:%d Bytes)\n", d.BeaconAddr, d.BeaconLen)
		p.printf("\tFirmware API Version: %d\n", d.APIVer)
		p.printf("\tSupported Firmware Interfaces: %d\n", d.VIFNum)
		p.printf("\tSupported Features: (raw:%08x)\n", d.FeatureSet)
		p.features(d.FeatureSet, OTUSFeatures, nil)
	case *USB:
		p.printf("\tTX DMA chunk size:%d Bytes, TX DMA chunks:%d\n", d.TxFragLen, d.TxDescs)
		p.printf("\t=> %d Bytes are reserved for the TX queues\n", int(d.TxFragLen)*int(d.TxDescs))
		p.printf("\tMax. RX stream block size:%d Bytes\n", d.RxMaxFrameLen)
		p.printf("\tFirmware upload pointer: 0x%x\n", d.FwAddress)
		p.printf("\tSupported Features: (raw:%08x)\n", d.FeatureSet)
		p.features(d.FeatureSet, USBFeatures, func(f Feature) {
			if f.Bit == USBFeatureMiniboot {
				p.printf("\t\t\tminiboot size: %d Bytes\n", d.MinibootSize)
			}
		})
	case *MOTD:
		p.printf("\tFirmware Build Date (YYYY-MM-DD): %04d-%02d-%02d\n", d.Year(), d.Month(), d.Day())
		p.printf("\tFirmware Text:%q\n", d.Desc)
		p.printf("\tFirmware Release:%q\n", d.Release)
	case *Fix:
		for i, e := range d.Entries {
			p.printf("\t\t%d: 0x%08x := 0x%08x (0x%08x)\n", i, e.Address, e.Value, e.Mask)
		}
	case *Debug:
		p.printf("\tFirmware Debug Registers/Counters\n")
		p.printf("\t\tbogoclock    = 0x%08x\n", d.BogoclockAddr)
		p.printf("\t\tcounter      = 0x%08x\n", d.CounterAddr)
		p.printf("\t\trx total     = 0x%08x\n", d.RxTotalAddr)
		p.printf("\t\trx overrun   = 0x%08x\n", d.RxOverrunAddr)
	case *Checksum:
		p.printf("\tFirmware Descriptor CRC32: %08x\n", d.HeaderCRC)
		p.printf("\tFirmware Image CRC32: %08x\n", d.ImageCRC)
	case *Last:
	case *Unknown:
		if p.opts.Color {
			p.printf("%sUnknown Descriptor (%s).%s\n", colorWarn, d.Reason, colorReset)
		} else {
			p.printf("Unknown Descriptor (%s).\n", d.Reason)
		}
	default:
		panic(fmt.Sprintf("firmware: unhandled descriptor %T", d))
	}
}

func (p *printer) features(set uint32, list []Feature, detail func(Feature)) {
	for _, f := range Enabled(set, list) {
		p.printf("\t\t%2d = %s\n", f.Bit, f.Name)
		if detail != nil {
			detail(f)
		}
	}
}
