// internal/config/config.go
package config

type Config struct {
	Node    NodeConfig     `yaml:"node"`
	Hub     HubConfig      `yaml:"hub"`
	Listen  ListenConfig   `yaml:"listen"`
	Network NetworkConfig  `yaml:"network"`
	Power   PowerConfig    `yaml:"power"`
	OTA     OTAConfig      `yaml:"ota"`
	IO      IOConfig       `yaml:"io"`
	Sensors []SensorConfig `yaml:"sensors"`
}

// ---- NODE ----

type NodeConfig struct {
	// Name defaults to "<name_prefix>-<DEVICEID>".
	Name       string `yaml:"name"`
	NamePrefix string `yaml:"name_prefix"`

	Debug           bool `yaml:"debug"`
	LoopMs          int  `yaml:"loop_ms"`
	FirmwareVersion int  `yaml:"firmware_version"`
}

// ---- HUB ----

type HubConfig struct {
	// Address is a static "ip:port". Empty means mDNS discovery.
	Address          string `yaml:"address"`
	DiscoveryService string `yaml:"discovery_service"`
	DiscoveryDomain  string `yaml:"discovery_domain"`

	ConnectTimeoutMs int `yaml:"connect_timeout_ms"`
	RSSIIntervalMs   int `yaml:"rssi_interval_ms"`
}

// ---- INBOUND ----

type ListenConfig struct {
	Address       string `yaml:"address"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// ---- NETWORK ----

type NetworkConfig struct {
	Interface string `yaml:"interface"`

	PersistSession *bool  `yaml:"persist_session"`
	SessionFile    string `yaml:"session_file"`

	RetryDelayMs    int `yaml:"retry_delay_ms"`
	FallbackAfterMs int `yaml:"fallback_after_ms"`
	GiveUpAfterMs   int `yaml:"give_up_after_ms"`
	GiveUpSleepMs   int `yaml:"give_up_sleep_ms"`
}

// ---- POWER ----

type PowerConfig struct {
	OnBattery bool `yaml:"on_battery"`

	// SleepAfterCycleMs > 0 sleeps once every sensor completed a cycle.
	SleepAfterCycleMs int `yaml:"sleep_after_cycle_ms"`
}

// ---- OTA ----

type OTAConfig struct {
	// URL empty disables the update check.
	URL        string `yaml:"url"`
	StagingDir string `yaml:"staging_dir"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// ---- SENSOR I/O ----

type IOConfig struct {
	Endpoint string `yaml:"endpoint"`
	RTU      bool   `yaml:"rtu"`

	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`
	StopBits int    `yaml:"stop_bits"`

	TimeoutMs int `yaml:"timeout_ms"`
}

// ---- SENSORS ----

type SensorConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	UnitID       uint8  `yaml:"unit_id"`
	InputAddress uint16 `yaml:"input_address"`
	PowerCoil    uint16 `yaml:"power_coil"`

	Limit       int  `yaml:"limit"`
	InvertLogic bool `yaml:"invert_logic"`

	IntervalS int `yaml:"interval_s"`
	PowerOnS  int `yaml:"power_on_s"`
	OffsetS   int `yaml:"offset_s"`
}

const SensorWater = "water"
