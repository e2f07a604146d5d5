package config

import (
	"log/slog"
	"time"
)

// DefaultStopDelay is how long the relay keeps running after the last
// listener is removed. Re-adding a listener within the delay reuses the
// running relay.
const DefaultStopDelay = 100 * time.Millisecond

// Options configures a Listener.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// ServerPath is the explicit path to the keyrelay binary.
	// If empty, the binary is searched in PATH and common locations.
	ServerPath string

	// SkipVersionCheck skips the relay version check during discovery.
	SkipVersionCheck bool

	// Devices restricts the relay to these input device paths.
	// If empty, the relay grabs every keyboard and mouse it finds.
	Devices []string

	// ConfigFile is passed to the relay as --config.
	ConfigFile string

	// RelayLogLevel is passed to the relay as --log-level. Relay logs arrive
	// through OnInfo.
	RelayLogLevel string

	// CompactLines asks the relay for the single-domain line format.
	CompactLines bool

	// Env provides additional environment variables for the relay process.
	Env map[string]string

	// OnInfo receives every line the relay writes to stderr.
	OnInfo func(line string)

	// OnError is called with the exit code when the relay exits on its own.
	// It is not called when the relay is stopped by the Listener.
	OnError func(exitCode int)

	// StopDelay overrides DefaultStopDelay. Zero means the default.
	StopDelay time.Duration

	// Transport allows injecting a custom transport implementation.
	// If nil, the default RelayTransport is created automatically.
	Transport Transport
}

// EffectiveStopDelay returns StopDelay, or DefaultStopDelay when unset.
func (o *Options) EffectiveStopDelay() time.Duration {
	if o.StopDelay > 0 {
		return o.StopDelay
	}

	return DefaultStopDelay
}
