package keyrelay

import "context"

// Listener routes intercepted events to registered listener functions.
//
// Lifecycle: the relay starts with the first AddListener and stops
// StopDelay after the last RemoveListener. After Kill the Listener cannot
// be reused; create a new one with NewListener.
type Listener interface {
	// AddListener registers fn and starts the relay if it is not running.
	// Returns RelayNotFoundError or RelayConnectionError if the relay
	// cannot be started, in which case fn is not registered.
	AddListener(ctx context.Context, fn ListenerFunc) (ListenerID, error)

	// RemoveListener unregisters id and reports whether it was registered.
	RemoveListener(id ListenerID) bool

	// Kill removes every listener and stops the relay immediately.
	// Safe to call multiple times.
	Kill() error

	// Running reports whether a relay is live.
	Running() bool

	// Wait blocks until the current relay session ends and returns the
	// reason, typically a ProcessError. Returns nil if no relay is running.
	Wait() error
}

// NewListener creates a Listener. No relay is started until the first
// listener is added.
func NewListener(opts ...Option) Listener {
	return newListenerImpl(opts)
}
