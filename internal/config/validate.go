// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}

	// ------------------------------------------------------------
	// NODE
	// ------------------------------------------------------------

	if err := ascii("node.name", cfg.Node.Name); err != nil {
		return err
	}
	if err := ascii("node.name_prefix", cfg.Node.NamePrefix); err != nil {
		return err
	}
	if cfg.Node.FirmwareVersion < 0 {
		return errors.New("node.firmware_version must be >= 0")
	}

	// ------------------------------------------------------------
	// HUB + INBOUND
	// ------------------------------------------------------------

	if cfg.Hub.Address == "" && cfg.Hub.DiscoveryService == "" {
		return errors.New("hub: address or discovery_service required")
	}
	if cfg.Hub.Address != "" {
		if _, _, err := net.SplitHostPort(cfg.Hub.Address); err != nil {
			return fmt.Errorf("hub.address %q: %w", cfg.Hub.Address, err)
		}
	}
	if cfg.Listen.Address == "" {
		return errors.New("listen.address required")
	}
	if _, _, err := net.SplitHostPort(cfg.Listen.Address); err != nil {
		return fmt.Errorf("listen.address %q: %w", cfg.Listen.Address, err)
	}

	// ------------------------------------------------------------
	// DURATIONS (0 = default)
	// ------------------------------------------------------------

	durations := []struct {
		name string
		v    int
	}{
		{"node.loop_ms", cfg.Node.LoopMs},
		{"hub.connect_timeout_ms", cfg.Hub.ConnectTimeoutMs},
		{"hub.rssi_interval_ms", cfg.Hub.RSSIIntervalMs},
		{"listen.read_timeout_ms", cfg.Listen.ReadTimeoutMs},
		{"network.retry_delay_ms", cfg.Network.RetryDelayMs},
		{"network.fallback_after_ms", cfg.Network.FallbackAfterMs},
		{"network.give_up_after_ms", cfg.Network.GiveUpAfterMs},
		{"network.give_up_sleep_ms", cfg.Network.GiveUpSleepMs},
		{"power.sleep_after_cycle_ms", cfg.Power.SleepAfterCycleMs},
		{"ota.timeout_ms", cfg.OTA.TimeoutMs},
		{"io.timeout_ms", cfg.IO.TimeoutMs},
	}
	for _, d := range durations {
		if d.v < 0 {
			return fmt.Errorf("%s must be >= 0", d.name)
		}
	}

	n := cfg.Network
	if n.FallbackAfterMs > 0 && n.GiveUpAfterMs > 0 && n.GiveUpAfterMs <= n.FallbackAfterMs {
		return fmt.Errorf(
			"network.give_up_after_ms (%d) must exceed fallback_after_ms (%d)",
			n.GiveUpAfterMs,
			n.FallbackAfterMs,
		)
	}
	if n.RetryDelayMs > 0 && n.FallbackAfterMs > 0 && n.FallbackAfterMs < n.RetryDelayMs {
		return fmt.Errorf(
			"network.fallback_after_ms (%d) must be >= retry_delay_ms (%d)",
			n.FallbackAfterMs,
			n.RetryDelayMs,
		)
	}

	if cfg.OTA.URL != "" && cfg.OTA.StagingDir == "" {
		return errors.New("ota.staging_dir required when ota.url is set")
	}

	// ------------------------------------------------------------
	// SENSORS
	// ------------------------------------------------------------

	if len(cfg.Sensors) > 0 && cfg.IO.Endpoint == "" {
		return errors.New("io.endpoint required when sensors are configured")
	}

	names := make(map[string]int)
	for i, s := range cfg.Sensors {
		if s.Name == "" {
			return fmt.Errorf("sensors[%d]: name required", i)
		}
		if err := ascii(fmt.Sprintf("sensors[%d].name", i), s.Name); err != nil {
			return err
		}
		for j := 0; j < len(s.Name); j++ {
			if s.Name[j] == ' ' {
				return fmt.Errorf("sensor %q: name must not contain spaces", s.Name)
			}
		}
		if prev, dup := names[s.Name]; dup {
			return fmt.Errorf("sensor %q: duplicate name (sensors[%d] and sensors[%d])", s.Name, prev, i)
		}
		names[s.Name] = i

		if s.Type != "" && s.Type != SensorWater {
			return fmt.Errorf("sensor %q: unknown type %q", s.Name, s.Type)
		}
		if s.IntervalS <= 0 {
			return fmt.Errorf("sensor %q: interval_s must be > 0", s.Name)
		}
		if s.PowerOnS < 0 || s.OffsetS < 0 {
			return fmt.Errorf("sensor %q: power_on_s and offset_s must be >= 0", s.Name)
		}
	}

	return nil
}

func ascii(field, s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return fmt.Errorf("%s must contain ASCII characters only", field)
		}
	}
	return nil
}
