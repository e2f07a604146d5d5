package keyrelay

import "github.com/launchmenu/keyrelay/internal/errors"

// Re-export error types from internal package

// RelayNotFoundError indicates the keyrelay binary was not found.
type RelayNotFoundError = errors.RelayNotFoundError

// RelayConnectionError indicates failure to spawn the relay.
type RelayConnectionError = errors.RelayConnectionError

// ProcessError indicates the relay process exited unexpectedly.
type ProcessError = errors.ProcessError

// LineParseError indicates a relay line could not be parsed.
type LineParseError = errors.LineParseError

// KeyRelayError is the base interface for all keyrelay errors.
type KeyRelayError = errors.KeyRelayError

// Re-export sentinel errors from internal package.
var (
	// ErrListenerClosed indicates the listener has been killed.
	ErrListenerClosed = errors.ErrListenerClosed

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.ErrTransportNotConnected

	// ErrStdinClosed indicates the relay's stdin was closed.
	ErrStdinClosed = errors.ErrStdinClosed
)
