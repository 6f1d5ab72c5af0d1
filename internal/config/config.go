// Package config loads and validates the kiosk configuration: origin
// server, polling cadence, removal grace period, and the offline fixture
// switch. Resolution order is defaults → config file → environment
// variables → CLI flags.
package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration so TOML values can be written as "15s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}

	*d = Duration(parsed)

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the standard-library form.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full kiosk configuration.
type Config struct {
	// Server is the backend origin, e.g. "https://portal.clinic.example/api".
	Server string `toml:"server"`

	// Department narrows the encounter feed to one department. Empty means
	// the whole clinic.
	Department string `toml:"department"`

	// PollInterval is the dashboard refresh cadence.
	PollInterval Duration `toml:"poll_interval"`

	// GracePeriod is how long a disappeared record stays visible before
	// eviction.
	GracePeriod Duration `toml:"grace_period"`

	// Fixture selects the built-in offline data source in place of the
	// remote authority. Development only; excluded from the production
	// failure model.
	Fixture bool `toml:"fixture"`

	// NotifyURL is an optional websocket endpoint for change nudges. Empty
	// disables push and relies on polling alone.
	NotifyURL string `toml:"notify_url"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
}

// Default configuration values.
const (
	DefaultPollInterval = 15 * time.Second
	DefaultGracePeriod  = 500 * time.Millisecond
	DefaultLogLevel     = "info"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		PollInterval: Duration(DefaultPollInterval),
		GracePeriod:  Duration(DefaultGracePeriod),
		LogLevel:     DefaultLogLevel,
	}
}
