package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/launchmenu/keyrelay/internal/config"
	"github.com/launchmenu/keyrelay/internal/dispatch"
	"github.com/launchmenu/keyrelay/internal/errors"
	"github.com/launchmenu/keyrelay/internal/subprocess"
)

// Client manages listeners and the relay session serving them.
type Client struct {
	log        *slog.Logger
	options    *config.Options
	dispatcher *dispatch.Dispatcher

	mu        sync.Mutex
	session   *session
	stopTimer *time.Timer
	killed    bool
}

// New creates a client. No relay is started until the first listener is
// added.
func New(options *config.Options) *Client {
	if options == nil {
		options = &config.Options{}
	}

	log := options.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	log = log.With("component", "client")

	return &Client{
		log:        log,
		options:    options,
		dispatcher: dispatch.New(log),
	}
}

// AddListener registers fn and makes sure a relay is running. It returns
// an id for RemoveListener.
//
// If the relay cannot be started the listener is not registered.
func (c *Client) AddListener(ctx context.Context, fn dispatch.Func) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.killed {
		return "", errors.ErrListenerClosed
	}

	id := ulid.Make().String()
	count := c.dispatcher.Add(id, fn)

	if c.stopTimer != nil {
		c.stopTimer.Stop()
		c.stopTimer = nil
	}

	if c.session != nil && !c.session.exited() {
		c.log.Debug("Listener added", "listener", id, "listeners", count)

		return id, nil
	}

	if err := c.startLocked(ctx); err != nil {
		c.dispatcher.Remove(id)

		return "", err
	}

	c.log.Debug("Listener added", "listener", id, "listeners", count)

	return id, nil
}

// startLocked starts a new relay session. Caller must hold c.mu.
func (c *Client) startLocked(ctx context.Context) error {
	transport := c.options.Transport
	if transport == nil {
		transport = subprocess.NewRelayTransport(c.log, c.options)
	} else {
		c.log.Debug("Using injected custom transport")
	}

	s, err := startSession(ctx, c.log, transport, c.dispatcher, c.options.OnError)
	if err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	c.session = s
	c.log.Info("Relay session started")

	return nil
}

// RemoveListener unregisters id. When no listeners remain the relay is
// stopped after the stop delay, unless a listener is added meanwhile. It
// reports whether id was registered.
func (c *Client) RemoveListener(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed, remaining := c.dispatcher.Remove(id)
	if !removed || remaining > 0 || c.session == nil {
		return removed
	}

	if c.stopTimer != nil {
		c.stopTimer.Stop()
	}

	delay := c.options.EffectiveStopDelay()
	c.log.Debug("Last listener removed, scheduling stop", "delay", delay)

	c.stopTimer = time.AfterFunc(delay, c.stopIfIdle)

	return true
}

func (c *Client) stopIfIdle() {
	c.mu.Lock()

	if c.dispatcher.Len() > 0 || c.session == nil {
		c.mu.Unlock()

		return
	}

	s := c.session
	c.session = nil
	c.stopTimer = nil
	c.mu.Unlock()

	if err := s.stop(); err != nil {
		c.log.Warn("Failed to stop relay", "error", err)
	}

	c.log.Info("Relay session stopped")
}

// Kill removes every listener and stops the relay at once. The client
// cannot be used afterwards. Safe to call multiple times, including from
// inside a listener.
func (c *Client) Kill() error {
	c.mu.Lock()

	c.killed = true
	c.dispatcher.Clear()

	if c.stopTimer != nil {
		c.stopTimer.Stop()
		c.stopTimer = nil
	}

	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}

	c.log.Info("Killing relay session")

	return s.stop()
}

// Running reports whether a relay session is live.
func (c *Client) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session != nil && !c.session.exited()
}

// Listeners returns the number of registered listeners.
func (c *Client) Listeners() int {
	return c.dispatcher.Len()
}

// Wait blocks until the current session's read loop has finished and
// returns its error. It returns nil when no session exists.
func (c *Client) Wait() error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil {
		return nil
	}

	return s.wait()
}
