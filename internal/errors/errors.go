package errors

import (
	"errors"
	"fmt"
)

// KeyRelayError is the base interface for all keyrelay errors.
type KeyRelayError interface {
	error
	IsKeyRelayError() bool
}

// Compile-time verification that all error types implement KeyRelayError.
var (
	_ KeyRelayError = (*RelayNotFoundError)(nil)
	_ KeyRelayError = (*RelayConnectionError)(nil)
	_ KeyRelayError = (*ProcessError)(nil)
	_ KeyRelayError = (*LineParseError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrListenerClosed indicates the listener has been killed and cannot be reused.
	ErrListenerClosed = errors.New("listener closed: listeners are single-use, create a new one with NewListener()")

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrStdinClosed indicates the relay's stdin was closed.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrEngineStopped indicates the correlation engine has stopped.
	ErrEngineStopped = errors.New("correlation engine stopped")

	// ErrMalformedLine indicates a protocol line did not have the expected shape.
	ErrMalformedLine = errors.New("malformed line")
)

// RelayNotFoundError indicates the relay binary was not found.
type RelayNotFoundError struct {
	SearchedPaths []string
}

func (e *RelayNotFoundError) Error() string {
	return fmt.Sprintf("keyrelay binary not found in: %v", e.SearchedPaths)
}

// IsKeyRelayError implements KeyRelayError.
func (e *RelayNotFoundError) IsKeyRelayError() bool { return true }

// RelayConnectionError indicates failure to spawn or connect to the relay.
type RelayConnectionError struct {
	Err error
}

func (e *RelayConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to relay: %v", e.Err)
}

func (e *RelayConnectionError) Unwrap() error {
	return e.Err
}

// IsKeyRelayError implements KeyRelayError.
func (e *RelayConnectionError) IsKeyRelayError() bool { return true }

// ProcessError indicates the relay process exited unexpectedly.
//
// The exit code identifies the host failure cause, see the tap package.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("relay process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("relay process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsKeyRelayError implements KeyRelayError.
func (e *ProcessError) IsKeyRelayError() bool { return true }

// LineParseError indicates a protocol line could not be parsed.
// This error preserves the raw line that failed to parse.
type LineParseError struct {
	Line string
	Err  error
}

func (e *LineParseError) Error() string {
	return fmt.Sprintf("failed to parse line %q: %v", e.Line, e.Err)
}

func (e *LineParseError) Unwrap() error {
	return e.Err
}

// IsKeyRelayError implements KeyRelayError.
func (e *LineParseError) IsKeyRelayError() bool { return true }
