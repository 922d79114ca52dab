// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultLoopMs           = 10
	DefaultNamePrefix       = "sensornode"
	DefaultDiscoveryDomain  = "local."
	DefaultConnectTimeoutMs = 3000
	DefaultRSSIIntervalMs   = 60000
	DefaultReadTimeoutMs    = 2000
	DefaultSessionFile      = "sensornode-session.bin"
	DefaultRetryDelayMs     = 50
	DefaultFallbackAfterMs  = 5000
	DefaultGiveUpAfterMs    = 30000
	DefaultGiveUpSleepMs    = 30000
	DefaultOTATimeoutMs     = 10000
	DefaultIOTimeoutMs      = 1000
	DefaultPowerOnS         = 1

	DefaultBaudRate = 9600
	DefaultDataBits = 8
	DefaultParity   = "N"
	DefaultStopBits = 1
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	setDefault(&cfg.Node.LoopMs, DefaultLoopMs)
	if cfg.Node.NamePrefix == "" {
		cfg.Node.NamePrefix = DefaultNamePrefix
	}

	if cfg.Hub.DiscoveryDomain == "" {
		cfg.Hub.DiscoveryDomain = DefaultDiscoveryDomain
	}
	setDefault(&cfg.Hub.ConnectTimeoutMs, DefaultConnectTimeoutMs)
	setDefault(&cfg.Hub.RSSIIntervalMs, DefaultRSSIIntervalMs)

	setDefault(&cfg.Listen.ReadTimeoutMs, DefaultReadTimeoutMs)

	// ------------------------------------------------------------
	// NETWORK
	// ------------------------------------------------------------

	n := &cfg.Network
	if n.PersistSession == nil {
		on := true
		n.PersistSession = &on
	}
	if n.SessionFile == "" {
		n.SessionFile = DefaultSessionFile
	}
	setDefault(&n.RetryDelayMs, DefaultRetryDelayMs)
	setDefault(&n.FallbackAfterMs, DefaultFallbackAfterMs)
	setDefault(&n.GiveUpAfterMs, DefaultGiveUpAfterMs)
	setDefault(&n.GiveUpSleepMs, DefaultGiveUpSleepMs)

	// A single explicit threshold may sit below the other's default.
	if n.FallbackAfterMs < n.RetryDelayMs {
		n.FallbackAfterMs = n.RetryDelayMs
	}
	if n.GiveUpAfterMs <= n.FallbackAfterMs {
		n.GiveUpAfterMs = n.FallbackAfterMs + n.RetryDelayMs
	}

	setDefault(&cfg.OTA.TimeoutMs, DefaultOTATimeoutMs)

	// ------------------------------------------------------------
	// SENSOR I/O
	// ------------------------------------------------------------

	setDefault(&cfg.IO.TimeoutMs, DefaultIOTimeoutMs)
	if cfg.IO.RTU {
		setDefault(&cfg.IO.BaudRate, DefaultBaudRate)
		setDefault(&cfg.IO.DataBits, DefaultDataBits)
		setDefault(&cfg.IO.StopBits, DefaultStopBits)
		if cfg.IO.Parity == "" {
			cfg.IO.Parity = DefaultParity
		}
	}

	for i := range cfg.Sensors {
		s := &cfg.Sensors[i]
		if s.Type == "" {
			s.Type = SensorWater
		}
		setDefault(&s.PowerOnS, DefaultPowerOnS)
	}
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}
