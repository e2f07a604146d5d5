package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "keyrelay.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadRelayConfig_Defaults(t *testing.T) {
	cfg, err := LoadRelayConfig("")

	require.NoError(t, err)
	require.Equal(t, DefaultRelayConfig(), cfg)
}

func TestLoadRelayConfig_File(t *testing.T) {
	path := writeConfig(t, `
devices = ["/dev/input/event3", "/dev/input/event7"]
log_level = "debug"
log_format = "json"
compact = true
`)

	cfg, err := LoadRelayConfig(path)

	require.NoError(t, err)
	require.Equal(t, []string{"/dev/input/event3", "/dev/input/event7"}, cfg.Devices)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.True(t, cfg.Compact)
	require.Equal(t, "/proc/bus/input/devices", cfg.DevicesFile)
}

func TestLoadRelayConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"
devices = ["/dev/input/event3"]
`)

	t.Setenv("KEYRELAY_LOG_LEVEL", "warn")
	t.Setenv("KEYRELAY_DEVICES", "/dev/input/event1,/dev/input/event2")

	cfg, err := LoadRelayConfig(path)

	require.NoError(t, err)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, []string{"/dev/input/event1", "/dev/input/event2"}, cfg.Devices)
}

func TestLoadRelayConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "syntax", body: `log_level = `, want: "parse config"},
		{name: "unknown key", body: `timeout_ms = 50`, want: "unknown keys timeout_ms"},
		{name: "bad level", body: `log_level = "loud"`, want: "log_level"},
		{name: "bad format", body: `log_format = "xml"`, want: "log_format"},
		{name: "empty device", body: `devices = [""]`, want: "empty paths"},
		{name: "no device source", body: `devices_file = ""`, want: "devices_file is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRelayConfig(writeConfig(t, tt.body))

			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRelayConfig_MissingFile(t *testing.T) {
	_, err := LoadRelayConfig(filepath.Join(t.TempDir(), "missing.toml"))

	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRelayConfig_ApplyEnvBadBool(t *testing.T) {
	t.Setenv("KEYRELAY_COMPACT", "sometimes")

	cfg := DefaultRelayConfig()

	require.Error(t, cfg.ApplyEnv())
}

func TestOptions_EffectiveStopDelay(t *testing.T) {
	require.Equal(t, DefaultStopDelay, (&Options{}).EffectiveStopDelay())
	require.Equal(t, time.Second, (&Options{StopDelay: time.Second}).EffectiveStopDelay())
}
