//go:build integration

package integration

import (
	"errors"
	"os/exec"
	"slices"
	"testing"

	"github.com/launchmenu/keyrelay"
)

// hostFailures are the exit codes a relay without device access may report.
var hostFailures = []int{
	keyrelay.ExitDeviceGrab,
	keyrelay.ExitInjection,
	keyrelay.ExitUnsupported,
}

// skipIfRelayNotInstalled skips the test if the error indicates the relay is not found.
func skipIfRelayNotInstalled(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*keyrelay.RelayNotFoundError](err); ok {
		t.Skip("keyrelay binary not installed")
	}
}

// relayPath returns the keyrelay binary on PATH or skips the test.
func relayPath(t *testing.T) string {
	t.Helper()

	path, err := exec.LookPath("keyrelay")
	if err != nil {
		t.Skip("keyrelay binary not installed")
	}

	return path
}

func isHostFailure(code int) bool {
	return slices.Contains(hostFailures, code)
}
