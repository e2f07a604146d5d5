// Package errors defines error types for keyrelay.
//
// This package provides structured error types for the failure scenarios of
// both sides of the relay: locating and spawning the relay binary, reading its
// line protocol, and the relay process exiting. All error types support
// unwrapping and can be checked using errors.Is, errors.As, and errors.AsType.
package errors
