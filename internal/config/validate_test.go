// internal/config/validate_test.go
package config

import (
	"strings"
	"testing"
)

// helper to build a valid config quickly
func base() *Config {
	return &Config{
		Hub:    HubConfig{Address: "192.168.1.10:39500"},
		Listen: ListenConfig{Address: ":8090"},
		IO:     IOConfig{Endpoint: "127.0.0.1:502"},
		Sensors: []SensorConfig{
			sensor("water1", 60),
		},
	}
}

func sensor(name string, interval int) SensorConfig {
	return SensorConfig{
		Name:         name,
		UnitID:       1,
		InputAddress: 0,
		PowerCoil:    0,
		Limit:        200,
		IntervalS:    interval,
	}
}

// ---- tests ----

func TestValidate_Minimal(t *testing.T) {
	if err := Validate(base()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DiscoveryInsteadOfAddress(t *testing.T) {
	cfg := base()
	cfg.Hub = HubConfig{DiscoveryService: "_smartthings._tcp"}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_HubRequired(t *testing.T) {
	cfg := base()
	cfg.Hub = HubConfig{}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected hub error, got nil")
	}
}

func TestValidate_DuplicateSensorName(t *testing.T) {
	cfg := base()
	cfg.Sensors = append(cfg.Sensors, sensor("water1", 30))

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestValidate_SensorNameWithSpace(t *testing.T) {
	cfg := base()
	cfg.Sensors[0].Name = "water 1"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected name error, got nil")
	}
}

func TestValidate_IntervalRequired(t *testing.T) {
	cfg := base()
	cfg.Sensors[0].IntervalS = 0

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected interval error, got nil")
	}
}

func TestValidate_UnknownSensorType(t *testing.T) {
	cfg := base()
	cfg.Sensors[0].Type = "thermo"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected type error, got nil")
	}
}

func TestValidate_ThresholdOrder(t *testing.T) {
	cfg := base()
	cfg.Network.FallbackAfterMs = 5000
	cfg.Network.GiveUpAfterMs = 5000

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected threshold error, got nil")
	}
}

func TestValidate_NegativeDuration(t *testing.T) {
	cfg := base()
	cfg.Network.RetryDelayMs = -1

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected duration error, got nil")
	}
}

func TestValidate_NonASCIIName(t *testing.T) {
	cfg := base()
	cfg.Node.Name = "cave-capteur-é"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected ascii error, got nil")
	}
}

func TestValidate_IOEndpointRequiredWithSensors(t *testing.T) {
	cfg := base()
	cfg.IO.Endpoint = ""

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected io error, got nil")
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := base()
	_ = Validate(cfg)

	if cfg.Node.LoopMs != 0 || cfg.Sensors[0].Type != "" || cfg.Network.PersistSession != nil {
		t.Fatalf("Validate mutated config: %+v", cfg)
	}
}

func TestValidate_OTAStagingDirRequired(t *testing.T) {
	cfg := base()
	cfg.OTA.URL = "http://192.168.1.5/FirmwareOTA"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected staging_dir error, got nil")
	}
}
