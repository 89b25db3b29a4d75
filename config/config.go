// Package config loads the JSON configuration shared by the firmware
// simulator and the host tools.
package config

import (
	"fmt"
	"os"

	"github.com/sugawarayuuta/sonnet"

	"usbfw/core"
)

// Default host settings
const (
	DefaultVendorID      = 0x0cf3
	DefaultProductID     = 0x9170
	DefaultInEndpoint    = 3
	DefaultBaud          = 115200
	DefaultReadTimeoutMS = 100
	DefaultLogLevel      = "warn"
)

// Config is the top level configuration file
type Config struct {
	Firmware core.Config `json:"firmware"`
	Host     HostConfig  `json:"host"`
}

// HostConfig configures the host side tools
type HostConfig struct {
	Serial   SerialConfig `json:"serial"`
	USB      USBConfig    `json:"usb"`
	Database string       `json:"database"` // Record store path, empty disables storage
	LogLevel string       `json:"log_level"`
}

// SerialConfig selects a bench UART carrying the response stream
type SerialConfig struct {
	Device        string `json:"device"`
	Baud          int    `json:"baud"`
	ReadTimeoutMS int    `json:"read_timeout_ms"`
}

// USBConfig selects the adapter on the bus
type USBConfig struct {
	VendorID   uint16 `json:"vendor_id"`
	ProductID  uint16 `json:"product_id"`
	Config     int    `json:"config"`
	Interface  int    `json:"interface"`
	InEndpoint int    `json:"in_endpoint"`
}

// Load parses JSON configuration data
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := sonnet.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadFile reads and parses a configuration file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Load(data)
}

// Default returns the configuration used without a file
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Marshal encodes cfg as indented JSON
func Marshal(cfg *Config) ([]byte, error) {
	return sonnet.MarshalIndent(cfg, "", "  ")
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	cfg.Firmware.ApplyDefaults()

	host := &cfg.Host
	if host.Serial.Baud == 0 {
		host.Serial.Baud = DefaultBaud
	}
	if host.Serial.ReadTimeoutMS == 0 {
		host.Serial.ReadTimeoutMS = DefaultReadTimeoutMS
	}
	if host.USB.VendorID == 0 {
		host.USB.VendorID = DefaultVendorID
	}
	if host.USB.ProductID == 0 {
		host.USB.ProductID = DefaultProductID
	}
	if host.USB.Config == 0 {
		host.USB.Config = 1
	}
	if host.USB.InEndpoint == 0 {
		host.USB.InEndpoint = DefaultInEndpoint
	}
	if host.LogLevel == "" {
		host.LogLevel = DefaultLogLevel
	}
}
