//go:build !linux

package tap

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
)

// EvdevSource is only available on Linux.
type EvdevSource struct{}

// NewEvdevSource reports that evdev is unavailable on this platform.
func NewEvdevSource(_ *slog.Logger, _ []string, _ ...EvdevOption) (*EvdevSource, error) {
	return nil, &HostError{Cause: CauseUnsupported, Err: fmt.Errorf("evdev on %s", runtime.GOOS)}
}

// Run always fails; see NewEvdevSource.
func (s *EvdevSource) Run(_ context.Context, _ Handler) error {
	return &HostError{Cause: CauseUnsupported}
}
