package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/launchmenu/keyrelay/internal/config"
	"github.com/launchmenu/keyrelay/internal/logging"
	"github.com/launchmenu/keyrelay/internal/relay"
	"github.com/launchmenu/keyrelay/internal/tap"
)

// Version is the relay version, set at build time with
// -ldflags "-X github.com/launchmenu/keyrelay/internal/cli.Version=...".
var Version = "0.1.0"

// RootOptions holds the relay flags. Flags that were set override the
// config file and environment.
type RootOptions struct {
	ConfigFile string
	Devices    []string
	LogLevel   string
	LogFormat  string
	Compact    bool
}

// NewRootCommand creates the keyrelay root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyrelay",
		Short: "Relay global keyboard and mouse events to a controller",
		Long: `keyrelay grabs input devices and holds every key and button event until
the controller on stdin answers with a decision. Events without an answer
within 30ms are let through.

Event lines on stdout:    DOMAIN,STATE,CODE,AUX,X,Y,ID
Decision lines on stdin:  SUPPRESS,ID   (1 suppresses, 0 allows)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRelay(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "TOML config file")
	flags.StringArrayVarP(&opts.Devices, "device", "d", nil, "input device to grab (repeatable, default: discover)")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	flags.StringVar(&opts.LogFormat, "log-format", "text", "log format (text|json)")
	flags.BoolVar(&opts.Compact, "compact", false, "write events without the domain field")

	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// resolve layers the set flags over the loaded configuration.
func (o *RootOptions) resolve(cmd *cobra.Command) (*config.RelayConfig, error) {
	cfg, err := config.LoadRelayConfig(o.ConfigFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("device") {
		cfg.Devices = o.Devices
	}

	if flags.Changed("log-level") {
		cfg.LogLevel = o.LogLevel
	}

	if flags.Changed("log-format") {
		cfg.LogFormat = o.LogFormat
	}

	if flags.Changed("compact") {
		cfg.Compact = o.Compact
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	return cfg, nil
}

func runRelay(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := opts.resolve(cmd)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return err
	}

	log := logging.New(cmd.ErrOrStderr(), logging.Config{Level: level, Format: format})
	log.Debug("Configuration loaded", "devices", cfg.Devices, "compact", cfg.Compact)

	source, err := tap.NewEvdevSource(log, cfg.Devices, tap.WithDevicesFile(cfg.DevicesFile))
	if err != nil {
		log.Error("Event source unavailable", "error", err)

		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = relay.Run(ctx, relay.Config{
		Log:     log,
		Source:  source,
		In:      cmd.InOrStdin(),
		Out:     cmd.OutOrStdout(),
		Compact: cfg.Compact,
	})
	if err != nil {
		log.Error("Relay failed", "error", err)

		return err
	}

	return nil
}

// ExitCode maps a command error to the process exit status. Host failures
// keep their cause's code, everything else exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	if hostErr, ok := errors.AsType[*tap.HostError](err); ok {
		return hostErr.ExitCode()
	}

	return 1
}
