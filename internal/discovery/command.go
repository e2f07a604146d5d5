package discovery

import (
	"fmt"
	"os"

	"github.com/launchmenu/keyrelay/internal/config"
)

// BuildArgs constructs the relay command line arguments.
func BuildArgs(options *config.Options) []string {
	var args []string

	if options.ConfigFile != "" {
		args = append(args, "--config", options.ConfigFile)
	}

	for _, device := range options.Devices {
		args = append(args, "--device", device)
	}

	if options.RelayLogLevel != "" {
		args = append(args, "--log-level", options.RelayLogLevel)
	}

	if options.CompactLines {
		args = append(args, "--compact")
	}

	return args
}

// BuildEnvironment constructs the environment for the relay process.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()

	for key, value := range options.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}

	return env
}
