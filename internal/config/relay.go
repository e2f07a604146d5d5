package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable the relay reads.
const EnvPrefix = "KEYRELAY_"

// RelayConfig configures the relay process.
//
// Values are layered: defaults, then the TOML file, then KEYRELAY_*
// environment variables, then command line flags.
type RelayConfig struct {
	// Devices lists input device paths to grab. Empty means discover.
	Devices []string `toml:"devices" env:"DEVICES" envSeparator:","`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`

	// LogFormat is text or json.
	LogFormat string `toml:"log_format" env:"LOG_FORMAT"`

	// Compact selects the single-domain event line format.
	Compact bool `toml:"compact" env:"COMPACT"`

	// DevicesFile is the device table used for discovery.
	DevicesFile string `toml:"devices_file" env:"DEVICES_FILE"`
}

// DefaultRelayConfig returns the relay defaults.
func DefaultRelayConfig() *RelayConfig {
	return &RelayConfig{
		LogLevel:    "info",
		LogFormat:   "text",
		DevicesFile: "/proc/bus/input/devices",
	}
}

// LoadRelayConfig builds the relay configuration from path (optional) and
// the environment. The result is validated.
func LoadRelayConfig(path string) (*RelayConfig, error) {
	cfg := DefaultRelayConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return cfg, nil
}

func (c *RelayConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	meta, err := toml.Decode(string(data), c)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return fmt.Errorf("parse config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	return nil
}

// ApplyEnv overlays KEYRELAY_* environment variables onto c.
func (c *RelayConfig) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *RelayConfig) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "warning", "error"}, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.LogLevel)
	}

	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("log_format %q must be text or json", c.LogFormat)
	}

	for _, d := range c.Devices {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("devices must not contain empty paths")
		}
	}

	if len(c.Devices) == 0 && c.DevicesFile == "" {
		return fmt.Errorf("devices_file is required when no devices are listed")
	}

	return nil
}
