// Package cli implements the keyrelay command line.
//
// The root command runs the relay: it grabs the configured input devices,
// writes one line per event to stdout and reads decisions from stdin.
// Logs go to stderr, which the controlling Listener forwards to OnInfo.
package cli
