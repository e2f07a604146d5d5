// Package client implements the Listener behind the public keyrelay API.
//
// A Client owns at most one relay session at a time. The session is
// started when a listener is registered and stopped a short delay after
// the last one is removed. Each session runs a single read loop that
// dispatches every event line to the registered listeners and answers it
// with exactly one decision line.
package client
