// Package relay runs the relay process: an event source whose every
// press and release is decided by the controller on the other end of a
// pair of line streams.
package relay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/launchmenu/keyrelay/internal/correlator"
	"github.com/launchmenu/keyrelay/internal/tap"
)

// Config holds what Run needs.
type Config struct {
	// Log receives relay logs. If nil, logging is disabled.
	Log *slog.Logger

	// Source produces the intercepted events.
	Source tap.Source

	// In carries decision lines from the controller (stdin).
	In io.Reader

	// Out carries event lines to the controller (stdout).
	Out io.Writer

	// Compact selects the single-domain event line format.
	Compact bool

	// EngineOptions are passed through to the correlation engine.
	EngineOptions []correlator.Option
}

// Run relays events until ctx is cancelled or the source stops.
//
// The response listener is not waited for: a blocked read on In cannot be
// interrupted, and once In is exhausted requests are settled by timeout.
// A source failure is returned as is, so a *tap.HostError stays reachable
// with errors.As.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	opts := cfg.EngineOptions
	if cfg.Compact {
		opts = append(opts, correlator.WithCompactLines())
	}

	engine := correlator.NewEngine(log, bufio.NewWriter(cfg.Out), opts...)
	log = log.With("component", "relay")

	go func() {
		if err := engine.ListenResponses(ctx, cfg.In); err != nil {
			log.Warn("Response listener failed", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.MonitorTimeouts(gctx)
	})

	g.Go(func() error {
		defer engine.Stop()

		if err := cfg.Source.Run(gctx, engine); err != nil {
			return fmt.Errorf("run source: %w", err)
		}

		return nil
	})

	log.Info("Relay started", "compact", cfg.Compact)

	err := g.Wait()

	stats := engine.Stats()
	log.Info("Relay stopped",
		"requests", stats.Requests,
		"responses", stats.Responses,
		"timeouts", stats.Timeouts,
		"stale", stats.Stale,
	)

	return err
}
