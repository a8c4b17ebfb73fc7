// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
)

var ErrInvalid = errors.New("config: invalid")

// MaxWifiChannel is the highest channel the capture side can tune.
const MaxWifiChannel = 14

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Zero values are legal here; Normalize replaces them with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}

	// ------------------------------------------------------------
	// SCAN
	// ------------------------------------------------------------

	s := cfg.Scan
	if s.ScanCycle < 0 {
		return fmt.Errorf("%w: scan_cycle must be >= 0, got %d", ErrInvalid, s.ScanCycle)
	}
	if s.ChannelCycle < 0 {
		return fmt.Errorf("%w: channel_cycle must be >= 0, got %d", ErrInvalid, s.ChannelCycle)
	}
	if s.MaxChannel < 0 || s.MaxChannel > MaxWifiChannel {
		return fmt.Errorf("%w: max_channel must be 0..%d, got %d", ErrInvalid, MaxWifiChannel, s.MaxChannel)
	}
	switch s.CounterMode {
	case "", CounterPerCycle, CounterCumulative:
	default:
		return fmt.Errorf("%w: unknown counter_mode %q", ErrInvalid, s.CounterMode)
	}
	if s.RSSILimit > 0 {
		return fmt.Errorf("%w: rssi_limit must be <= 0 dBm, got %d", ErrInvalid, s.RSSILimit)
	}

	// ------------------------------------------------------------
	// UPLINK
	// ------------------------------------------------------------

	if cfg.Uplink.MaxLoraRetry < 0 {
		return fmt.Errorf("%w: max_lora_retry must be >= 0, got %d", ErrInvalid, cfg.Uplink.MaxLoraRetry)
	}
	if cfg.Uplink.PollIntervalMs < 0 {
		return fmt.Errorf("%w: poll_interval_ms must be >= 0, got %d", ErrInvalid, cfg.Uplink.PollIntervalMs)
	}

	// ------------------------------------------------------------
	// BACKENDS
	// ------------------------------------------------------------

	switch cfg.Radio.Backend {
	case "", RadioBackendSim:
	case RadioBackendModem:
		if cfg.Radio.Port == "" {
			return fmt.Errorf("%w: radio backend %q requires port", ErrInvalid, cfg.Radio.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown radio backend %q", ErrInvalid, cfg.Radio.Backend)
	}

	switch cfg.Capture.Backend {
	case "", CaptureBackendDisabled:
	case CaptureBackendSerial:
		if cfg.Capture.Port == "" {
			return fmt.Errorf("%w: capture backend %q requires port", ErrInvalid, cfg.Capture.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown capture backend %q", ErrInvalid, cfg.Capture.Backend)
	}

	for name, backend := range map[string]string{
		"display": cfg.Display.Backend,
		"led":     cfg.LED.Backend,
	} {
		switch backend {
		case "", FeedbackBackendNone, FeedbackBackendConsole:
		default:
			return fmt.Errorf("%w: unknown %s backend %q", ErrInvalid, name, backend)
		}
	}
	if cfg.Display.RefreshMs < 0 {
		return fmt.Errorf("%w: display refresh_ms must be >= 0, got %d", ErrInvalid, cfg.Display.RefreshMs)
	}

	// ------------------------------------------------------------
	// MIRROR (OPT-IN)
	// ------------------------------------------------------------

	if cfg.Mirror.Enabled {
		if cfg.Mirror.Endpoint == "" {
			return fmt.Errorf("%w: mirror is enabled but no endpoint is set", ErrInvalid)
		}
		// device_name sanity (ASCII only)
		for i := 0; i < len(cfg.Mirror.DeviceName); i++ {
			if cfg.Mirror.DeviceName[i] > 0x7F {
				return fmt.Errorf("%w: mirror device_name must contain ASCII characters only", ErrInvalid)
			}
		}
	}

	if cfg.History.Enabled && cfg.History.Path == "" {
		return fmt.Errorf("%w: history is enabled but no path is set", ErrInvalid)
	}

	return nil
}
