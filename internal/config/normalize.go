// internal/config/normalize.go
package config

import "github.com/tamzrod/paxcounter/internal/payload"

// Defaults. Units follow the field docs in config.go.
const (
	DefaultScanCycle      = 60 // x2s = 120s
	DefaultChannelCycle   = 50 // x10ms = 500ms
	DefaultMaxChannel     = 13
	DefaultMaxLoraRetry   = 500
	DefaultPollIntervalMs = 1000
	DefaultRefreshMs      = 1000
	DefaultBaudRate       = 115200
	DefaultAirtimeMs      = 1500
	DefaultMirrorTimeout  = 2000

	deviceNameMaxChars = 16
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// Degenerate zero values are clamped here so the scheduler never
	// divides by zero or stalls.
	if cfg.Scan.ScanCycle == 0 {
		cfg.Scan.ScanCycle = DefaultScanCycle
	}
	if cfg.Scan.ChannelCycle == 0 {
		cfg.Scan.ChannelCycle = DefaultChannelCycle
	}
	if cfg.Scan.MaxChannel == 0 {
		cfg.Scan.MaxChannel = DefaultMaxChannel
	}
	if cfg.Scan.CounterMode == "" {
		cfg.Scan.CounterMode = CounterPerCycle
	}

	if cfg.Uplink.MaxLoraRetry == 0 {
		cfg.Uplink.MaxLoraRetry = DefaultMaxLoraRetry
	}
	if cfg.Uplink.PollIntervalMs == 0 {
		cfg.Uplink.PollIntervalMs = DefaultPollIntervalMs
	}
	if cfg.Uplink.Port == 0 {
		cfg.Uplink.Port = payload.PortCounts
	}

	if cfg.Radio.Backend == "" {
		cfg.Radio.Backend = RadioBackendSim
	}
	if cfg.Radio.BaudRate == 0 {
		cfg.Radio.BaudRate = DefaultBaudRate
	}
	if cfg.Radio.AirtimeMs == 0 {
		cfg.Radio.AirtimeMs = DefaultAirtimeMs
	}

	if cfg.Capture.Backend == "" {
		cfg.Capture.Backend = CaptureBackendDisabled
	}
	if cfg.Capture.BaudRate == 0 {
		cfg.Capture.BaudRate = DefaultBaudRate
	}

	if cfg.Display.Backend == "" {
		cfg.Display.Backend = FeedbackBackendNone
	}
	if cfg.Display.RefreshMs == 0 {
		cfg.Display.RefreshMs = DefaultRefreshMs
	}
	if cfg.LED.Backend == "" {
		cfg.LED.Backend = FeedbackBackendNone
	}

	if cfg.Mirror.TimeoutMs == 0 {
		cfg.Mirror.TimeoutMs = DefaultMirrorTimeout
	}
	if cfg.Mirror.DeviceName == "" {
		cfg.Mirror.DeviceName = cfg.Device.Name
	}
	// ASCII already validated
	if len(cfg.Mirror.DeviceName) > deviceNameMaxChars {
		cfg.Mirror.DeviceName = cfg.Mirror.DeviceName[:deviceNameMaxChars]
	}
}
