package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validation bounds. A polling interval under one second would hammer the
// backend from every kiosk in the building; a grace period above ten
// seconds leaves ghost rows on screen.
const (
	minPollInterval = 1 * time.Second
	maxGracePeriod  = 10 * time.Second
)

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks a resolved Config for usable values.
func Validate(cfg *Config) error {
	if !cfg.Fixture {
		if cfg.Server == "" {
			return fmt.Errorf("server is required (or set fixture = true for offline development)")
		}

		if err := validateURL("server", cfg.Server, "https", "http"); err != nil {
			return err
		}
	}

	if cfg.NotifyURL != "" {
		if err := validateURL("notify_url", cfg.NotifyURL, "wss", "ws"); err != nil {
			return err
		}
	}

	if cfg.PollInterval.Std() < minPollInterval {
		return fmt.Errorf("poll_interval %s is below the minimum %s", cfg.PollInterval.Std(), minPollInterval)
	}

	if cfg.GracePeriod.Std() <= 0 || cfg.GracePeriod.Std() > maxGracePeriod {
		return fmt.Errorf("grace_period %s must be between 0 and %s", cfg.GracePeriod.Std(), maxGracePeriod)
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", cfg.LogLevel)
	}

	return nil
}

// validateURL checks that value parses and uses one of the given schemes.
func validateURL(key, value string, schemes ...string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s %q is not a valid URL: %w", key, value, err)
	}

	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}

	return fmt.Errorf("%s %q must use one of the schemes %v", key, value, schemes)
}
