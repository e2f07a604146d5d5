package discovery

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/launchmenu/keyrelay/internal/errors"
)

const (
	// BinaryName is the relay executable searched for in PATH.
	BinaryName = "keyrelay"

	// MinimumVersion is the oldest relay whose line format this package speaks.
	MinimumVersion = "0.1.0"

	// VersionCheckTimeout bounds the `keyrelay version` call.
	VersionCheckTimeout = 2 * time.Second

	// SkipVersionCheckEnv disables the version check when set.
	SkipVersionCheckEnv = "KEYRELAY_SKIP_VERSION_CHECK"
)

var versionPattern = regexp.MustCompile(`([0-9]+\.[0-9]+\.[0-9]+)`)

// Config holds configuration for relay discovery.
type Config struct {
	// ServerPath is an explicit path that skips the PATH search.
	ServerPath string

	// SkipVersionCheck skips version validation during discovery.
	SkipVersionCheck bool

	// Logger is an optional logger for discovery operations.
	Logger *slog.Logger
}

// Discoverer locates the relay binary.
type Discoverer interface {
	// Discover returns the path to the relay binary or a
	// *errors.RelayNotFoundError.
	Discover(ctx context.Context) (string, error)
}

type discoverer struct {
	cfg *Config
	log *slog.Logger

	// commonPaths is overridden in tests.
	commonPaths []string
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new relay discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &discoverer{
		cfg:         cfg,
		log:         log,
		commonPaths: defaultCommonPaths(),
	}
}

func defaultCommonPaths() []string {
	paths := []string{
		filepath.Join("/usr/local/bin", BinaryName),
		filepath.Join("/usr/bin", BinaryName),
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".local/bin", BinaryName))
	}

	return paths
}

// Discover locates the relay binary and checks its version.
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	d.log.Debug("Discovering keyrelay binary")

	path, err := d.find()
	if err != nil {
		d.log.Error("Failed to find keyrelay", "error", err)

		return "", err
	}

	d.log.Debug("Found keyrelay binary", "server_path", path)

	d.checkVersion(ctx, path)

	return path, nil
}

func (d *discoverer) find() (string, error) {
	if d.cfg.ServerPath != "" {
		if isExecutable(d.cfg.ServerPath) {
			return d.cfg.ServerPath, nil
		}

		d.log.Debug("Explicit server path not usable", "server_path", d.cfg.ServerPath)

		return "", &errors.RelayNotFoundError{SearchedPaths: []string{d.cfg.ServerPath}}
	}

	searched := make([]string, 0, 1+len(d.commonPaths))

	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	searched = append(searched, "$PATH")

	for _, path := range d.commonPaths {
		searched = append(searched, path)

		if isExecutable(path) {
			return path, nil
		}
	}

	d.log.Warn("keyrelay not found in any searched paths", "searched_paths", searched)

	return "", &errors.RelayNotFoundError{SearchedPaths: searched}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
}

// checkVersion warns when the relay is older than MinimumVersion. Failures
// to run or parse the version are ignored.
func (d *discoverer) checkVersion(ctx context.Context, path string) {
	if d.cfg.SkipVersionCheck || os.Getenv(SkipVersionCheckEnv) != "" {
		d.log.Debug("Skipping keyrelay version check")

		return
	}

	ctx, cancel := context.WithTimeout(ctx, VersionCheckTimeout)
	defer cancel()

	//nolint:gosec // G204: the path was discovered above
	output, err := exec.CommandContext(ctx, path, "version").Output()
	if err != nil {
		d.log.Debug("keyrelay version check failed", "error", err)

		return
	}

	match := versionPattern.FindStringSubmatch(strings.TrimSpace(string(output)))
	if match == nil {
		d.log.Debug("Could not parse keyrelay version", "output", string(output))

		return
	}

	if compareVersions(match[1], MinimumVersion) < 0 {
		d.log.Warn("keyrelay version is older than supported",
			"version", match[1],
			"minimum_required", MinimumVersion,
		)

		return
	}

	d.log.Debug("keyrelay version check passed", "version", match[1])
}

// compareVersions compares two semantic versions.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func compareVersions(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := range 3 {
		aNum := 0
		bNum := 0

		if i < len(aParts) {
			aNum, _ = strconv.Atoi(aParts[i])
		}

		if i < len(bParts) {
			bNum, _ = strconv.Atoi(bParts[i])
		}

		if aNum != bNum {
			if aNum < bNum {
				return -1
			}

			return 1
		}
	}

	return 0
}
