// Package serial opens the bench UART that mirrors the adapter's response
// stream.
package serial

import (
	"errors"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud is the rate the bench UART runs at
const DefaultBaud = 115200

// ErrNoDevice is returned when no device path was configured
var ErrNoDevice = errors.New("no serial device given")

// Config selects the bench UART
type Config struct {
	Device      string        // e.g. "/dev/ttyUSB0" or "COM3"
	Baud        int           // DefaultBaud when zero
	ReadTimeout time.Duration // Zero blocks until data arrives
}

// Port is an open bench UART
type Port struct {
	port   *serial.Port
	device string
}

// Open opens the UART in 8N1 mode and drops anything received before
func Open(cfg Config) (*Port, error) {
	if cfg.Device == "" {
		return nil, ErrNoDevice
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        baud,
		ReadTimeout: cfg.ReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	// Bytes from before the adapter booted are not block aligned
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush %s: %w", cfg.Device, err)
	}

	return &Port{port: port, device: cfg.Device}, nil
}

// Read reads from the UART. A read timeout returns 0 bytes and no error.
func (p *Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write sends commands. The bench UART only mirrors the response stream
// on some boards, in which case writes are dropped by the adapter.
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the UART
func (p *Port) Close() error {
	return p.port.Close()
}

func (p *Port) String() string {
	return p.device
}
