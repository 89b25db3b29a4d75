// Package usbdev talks to the adapter over libusb: commands go out on the
// EP4 register endpoint, response blocks come back on the interrupt-in
// endpoint.
package usbdev

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// CommandEndpoint is the bulk-out endpoint feeding the command FIFO
const CommandEndpoint = 4

// Error records the USB operation that failed
type Error struct {
	Op  string
	Err error
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	return "usbdev: " + e.Op + ": " + e.Err.Error()
}

func wrapErr(op string, err *error) {
	if *err != nil {
		*err = &Error{op, *err}
	}
}

// ErrNotFound is returned when no adapter matches the IDs
var ErrNotFound = errors.New("adapter not found")

// Options selects the adapter and its endpoints
type Options struct {
	VendorID    uint16
	ProductID   uint16
	Config      int
	Interface   int
	InEndpoint  int
	ReadTimeout time.Duration
}

// Device is an open adapter
type Device struct {
	ctx     *gousb.Context
	dev     *gousb.Device
	cfg     *gousb.Config
	intf    *gousb.Interface
	in      *gousb.InEndpoint
	out     *gousb.OutEndpoint
	timeout time.Duration
}

// Open claims the adapter's interface and both endpoints
func Open(opts Options) (d *Device, err error) {
	defer wrapErr("Open", &err)

	ctx := gousb.NewContext()
	defer func() {
		if err != nil {
			ctx.Close()
		}
	}()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(opts.VendorID), gousb.ID(opts.ProductID))
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: %04x:%04x", ErrNotFound, opts.VendorID, opts.ProductID)
	}
	dev.SetAutoDetach(true)

	cfg, err := dev.Config(opts.Config)
	if err != nil {
		dev.Close()
		return nil, err
	}
	intf, err := cfg.Interface(opts.Interface, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		return nil, err
	}
	in, err := intf.InEndpoint(opts.InEndpoint)
	if err == nil {
		var out *gousb.OutEndpoint
		out, err = intf.OutEndpoint(CommandEndpoint)
		if err == nil {
			return &Device{
				ctx:     ctx,
				dev:     dev,
				cfg:     cfg,
				intf:    intf,
				in:      in,
				out:     out,
				timeout: opts.ReadTimeout,
			}, nil
		}
	}
	intf.Close()
	cfg.Close()
	dev.Close()
	return nil, err
}

// Read reads one transfer from the response endpoint. A read that times
// out returns 0 bytes and no error.
func (d *Device) Read(p []byte) (n int, err error) {
	defer wrapErr("Read", &err)

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	n, err = d.in.ReadContext(ctx, p)
	if errors.Is(err, gousb.TransferCancelled) || errors.Is(err, gousb.ErrorTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return n, nil
	}
	return n, err
}

// Write sends one command
func (d *Device) Write(p []byte) (n int, err error) {
	defer wrapErr("Write", &err)
	return d.out.Write(p)
}

// Close releases the interface and the device
func (d *Device) Close() (err error) {
	defer wrapErr("Close", &err)

	d.intf.Close()
	if err = d.cfg.Close(); err != nil {
		d.dev.Close()
		d.ctx.Close()
		return err
	}
	if err = d.dev.Close(); err != nil {
		d.ctx.Close()
		return err
	}
	return d.ctx.Close()
}

// String describes the open device
func (d *Device) String() string {
	return d.dev.String()
}
