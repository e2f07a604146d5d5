package keyrelay

import (
	"log/slog"
	"maps"
	"time"

	"github.com/launchmenu/keyrelay/internal/config"
)

// Options configures a Listener.
type Options = config.Options

// Option configures Options using the functional options pattern.
type Option func(*Options)

func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithStopDelay sets how long the relay outlives the last listener.
func WithStopDelay(d time.Duration) Option {
	return func(o *Options) {
		o.StopDelay = d
	}
}

// ===== Callbacks =====

// WithOnInfo receives every line the relay writes to stderr.
func WithOnInfo(fn func(line string)) Option {
	return func(o *Options) {
		o.OnInfo = fn
	}
}

// WithOnError is called with the relay's exit code when it exits on its
// own. It is not called for relays stopped by the Listener.
func WithOnError(fn func(exitCode int)) Option {
	return func(o *Options) {
		o.OnError = fn
	}
}

// ===== Relay Process =====

// WithServerPath sets an explicit path to the keyrelay binary.
func WithServerPath(path string) Option {
	return func(o *Options) {
		o.ServerPath = path
	}
}

// WithSkipVersionCheck skips the relay version check.
func WithSkipVersionCheck(skip bool) Option {
	return func(o *Options) {
		o.SkipVersionCheck = skip
	}
}

// WithDevices restricts the relay to the given input device paths.
func WithDevices(paths ...string) Option {
	return func(o *Options) {
		o.Devices = append(o.Devices, paths...)
	}
}

// WithConfigFile passes a relay configuration file.
func WithConfigFile(path string) Option {
	return func(o *Options) {
		o.ConfigFile = path
	}
}

// WithRelayLogLevel sets the relay's log level (debug, info, warn, error).
func WithRelayLogLevel(level string) Option {
	return func(o *Options) {
		o.RelayLogLevel = level
	}
}

// WithCompactLines asks the relay for the short event line format.
func WithCompactLines(compact bool) Option {
	return func(o *Options) {
		o.CompactLines = compact
	}
}

// WithEnv adds environment variables for the relay process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string, len(env))
		}

		maps.Copy(o.Env, env)
	}
}

// ===== Advanced =====

// WithTransport injects a custom transport, mainly for tests.
func WithTransport(t Transport) Option {
	return func(o *Options) {
		o.Transport = t
	}
}
