package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig  = "KIOSKBOARD_CONFIG"
	EnvServer  = "KIOSKBOARD_SERVER"
	EnvFixture = "KIOSKBOARD_FIXTURE"
)

// EnvOverrides holds values derived from environment variables.
// These are read once by ReadEnvOverrides; callers apply the relevant
// fields during resolution.
type EnvOverrides struct {
	ConfigPath string // KIOSKBOARD_CONFIG: override config file path
	Server     string // KIOSKBOARD_SERVER: backend origin override
	Fixture    bool   // KIOSKBOARD_FIXTURE: offline fixture feed when "1"/"true"
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config.
func ReadEnvOverrides() EnvOverrides {
	fixture := os.Getenv(EnvFixture)

	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Server:     os.Getenv(EnvServer),
		Fixture:    fixture == "1" || fixture == "true",
	}
}
