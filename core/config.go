package core

import (
	"log/slog"

	"usbfw/protocol"
)

// Default firmware parameters
const (
	DefaultRingSlots         = 16
	DefaultCommandBufferSize = 64
	DefaultWatchdogThreshold = 5
	DefaultWatchdogPeriodMS  = 1000
)

// Config holds the build-time parameters of the firmware core
type Config struct {
	// RingSlots is the number of response records the ring holds
	RingSlots int `json:"ring_slots"`

	// BlockSize is the maximum size of one bulk-in response block
	BlockSize int `json:"block_size"`

	// MaxPayload is the maximum accepted record payload in bytes
	MaxPayload int `json:"max_payload"`

	// CommandBufferSize is the space reserved for one received command
	CommandBufferSize int `json:"command_buffer_size"`

	// WatchdogThreshold is the counter value at which the device hangs
	WatchdogThreshold uint32 `json:"watchdog_threshold"`

	// WatchdogPeriodMS is the interval between watchdog ticks
	WatchdogPeriodMS uint32 `json:"watchdog_period_ms"`

	// Logger overrides DefaultLogger for this device
	Logger *slog.Logger `json:"-"`
}

// DefaultConfig returns the configuration the adapter ships with
func DefaultConfig() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero or out of range fields with default values
func (c *Config) ApplyDefaults() {
	if c.RingSlots <= 0 {
		c.RingSlots = DefaultRingSlots
	}
	if c.MaxPayload <= 0 || c.MaxPayload > protocol.MaxPayload {
		c.MaxPayload = protocol.MaxPayload
	}
	c.MaxPayload &^= 3
	if c.MaxPayload == 0 {
		c.MaxPayload = 4
	}
	// A block must hold at least one record of maximum size.
	if c.BlockSize < protocol.BlockHeaderSize+DrainReserve+c.MaxPayload || c.BlockSize > protocol.BlockSize {
		c.BlockSize = protocol.BlockSize
	}
	if c.CommandBufferSize < protocol.RecordHeaderSize {
		c.CommandBufferSize = DefaultCommandBufferSize
	}
	c.CommandBufferSize &^= 3
	if c.WatchdogThreshold == 0 {
		c.WatchdogThreshold = DefaultWatchdogThreshold
	}
	if c.WatchdogPeriodMS == 0 {
		c.WatchdogPeriodMS = DefaultWatchdogPeriodMS
	}
}
