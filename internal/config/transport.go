// Package config provides configuration types for keyrelay.
package config

import (
	"context"

	"github.com/launchmenu/keyrelay/internal/wire"
)

// Transport defines the interface for communication with the relay.
// Implement this to provide custom transports for testing, mocking,
// or alternative event sources.
//
// The default implementation is RelayTransport which spawns the relay binary.
// Custom transports can be injected via Options.Transport.
type Transport interface {
	// Start initializes the transport and prepares it for communication.
	Start(ctx context.Context) error

	// ReadEvents returns channels for receiving event lines and errors.
	// Both channels are closed when reading completes. A line that fails to
	// parse is reported on the error channel and reading continues.
	ReadEvents(ctx context.Context) (<-chan wire.EventLine, <-chan error)

	// SendDecision writes one decision line to the relay.
	// This method must be safe for concurrent use.
	SendDecision(ctx context.Context, data []byte) error

	// Close terminates the transport and releases resources.
	// It's safe to call Close multiple times.
	Close() error

	// IsReady returns true if the transport is ready for communication.
	IsReady() bool

	// EndInput signals that no more decisions will be sent.
	// For process-based transports, this closes stdin.
	EndInput() error
}
