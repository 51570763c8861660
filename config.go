package orgauth

import (
	"errors"
	"time"
)

// Config carries all machine tunables. Configure once through [Builder.WithConfig]
// and treat as immutable afterwards.
type Config struct {
	Otc     OtcConfig
	Call    CallConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
OTC CONFIG
====================================
*/

// OtcConfig governs the one-time-code request quota.
//
// Quota requests are allowed per identity inside Window; the counter is kept in
// Redis and incremented atomically so concurrent resend clicks cannot slip past
// the limit. The counter clears on a successful full login, or when Window
// elapses, whichever comes first.
type OtcConfig struct {
	Quota       int
	Window      time.Duration
	RedisPrefix string
}

/*
====================================
CALL CONFIG
====================================
*/

// CallConfig bounds every remote call the machine makes. A call that outlives
// Timeout is treated as a transport failure, never as a security-relevant
// negative result.
type CallConfig struct {
	Timeout time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig governs the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-memory counters surfaced by
// [Machine.MetricsSnapshot].
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration a bare [New] starts from. Callers
// tweaking a few fields should start here rather than from a zero Config.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Otc: OtcConfig{
			Quota:       4,
			Window:      15 * time.Minute,
			RedisPrefix: "oaq",
		},
		Call: CallConfig{
			Timeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// All fields are value types; a shallow copy is a full copy.
	return cfg
}

// Validate reports the first configuration error, or nil.
func (c *Config) Validate() error {
	if c.Otc.Quota <= 0 {
		return errors.New("Otc.Quota must be positive")
	}
	if c.Otc.Window <= 0 {
		return errors.New("Otc.Window must be positive")
	}
	if c.Otc.RedisPrefix == "" {
		return errors.New("Otc.RedisPrefix must not be empty")
	}
	if c.Call.Timeout <= 0 {
		return errors.New("Call.Timeout must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}
