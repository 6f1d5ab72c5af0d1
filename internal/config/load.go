package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are treated as fatal errors with "did you
// mean?" suggestions — silently ignoring a typo on an unattended kiosk
// leads to hard-to-debug behavior nobody is present to notice.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values, supporting zero-config first
// runs.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// CLIOverrides holds values from command-line flags, the highest-precedence
// layer.
type CLIOverrides struct {
	ConfigPath string
	Server     string
	Interval   Duration
	Fixture    bool
}

// Resolve loads configuration and applies the override chain:
// defaults → config file → environment variables → CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, string, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	if env.Server != "" {
		cfg.Server = env.Server
	}

	if env.Fixture {
		cfg.Fixture = true
	}

	if cli.Server != "" {
		cfg.Server = cli.Server
	}

	if cli.Interval > 0 {
		cfg.PollInterval = cli.Interval
	}

	if cli.Fixture {
		cfg.Fixture = true
	}

	if err := Validate(cfg); err != nil {
		return nil, cfgPath, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, cfgPath, nil
}
