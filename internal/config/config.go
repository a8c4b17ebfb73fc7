// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Scan    ScanConfig    `yaml:"scan"`
	Uplink  UplinkConfig  `yaml:"uplink"`
	Radio   RadioConfig   `yaml:"radio"`
	Capture CaptureConfig `yaml:"capture"`
	Display DisplayConfig `yaml:"display"`
	LED     LEDConfig     `yaml:"led"`
	Mirror  MirrorConfig  `yaml:"mirror"`
	History HistoryConfig `yaml:"history"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Name    string `yaml:"name"`
	Verbose bool   `yaml:"verbose"`
}

// ---- SCAN ----

// Counter modes.
const (
	CounterPerCycle   = "per_cycle"
	CounterCumulative = "cumulative"
)

type ScanConfig struct {
	// ScanCycle is the scan duration in units of 2 seconds.
	ScanCycle int `yaml:"scan_cycle"`
	// ChannelCycle is the channel hop period in units of 10 milliseconds.
	ChannelCycle int    `yaml:"channel_cycle"`
	MaxChannel   int    `yaml:"max_channel"`
	CounterMode  string `yaml:"counter_mode"`
	// RSSILimit drops observations weaker than this (dBm). 0 = off.
	RSSILimit int   `yaml:"rssi_limit"`
	BLEScan   *bool `yaml:"ble_scan"`
}

// Cumulative reports whether counters persist across cycles.
func (s ScanConfig) Cumulative() bool {
	return s.CounterMode == CounterCumulative
}

// ---- UPLINK ----

type UplinkConfig struct {
	MaxLoraRetry   int   `yaml:"max_lora_retry"`
	PollIntervalMs int   `yaml:"poll_interval_ms"`
	Port           uint8 `yaml:"port"`
}

// ---- RADIO (protocol engine) ----

const (
	RadioBackendSim   = "sim"
	RadioBackendModem = "modem"
)

type RadioConfig struct {
	Backend   string `yaml:"backend"`
	Port      string `yaml:"port"`
	BaudRate  int    `yaml:"baud_rate"`
	AirtimeMs int    `yaml:"airtime_ms"`
}

// ---- CAPTURE ----

const (
	CaptureBackendDisabled = "disabled"
	CaptureBackendSerial   = "serial"
)

type CaptureConfig struct {
	Backend  string `yaml:"backend"`
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ---- FEEDBACK ----

const (
	FeedbackBackendNone    = "none"
	FeedbackBackendConsole = "console"
)

type DisplayConfig struct {
	Backend   string `yaml:"backend"`
	ScreenOn  *bool  `yaml:"screen_on"`
	RefreshMs int    `yaml:"refresh_ms"`
}

type LEDConfig struct {
	Backend string `yaml:"backend"`
}

// ---- MIRROR ----

type MirrorConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	BaseSlot   uint16 `yaml:"base_slot"`
	DeviceName string `yaml:"device_name"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// ---- HISTORY ----

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a yaml config file. It does not validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes yaml bytes into a Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &cfg, nil
}

// BLEEnabled reports whether category B scanning is on (default true).
func (c *Config) BLEEnabled() bool {
	return c.Scan.BLEScan == nil || *c.Scan.BLEScan
}

// ScreenOn reports the configured display power state (default true).
func (c *Config) ScreenOn() bool {
	return c.Display.ScreenOn == nil || *c.Display.ScreenOn
}
