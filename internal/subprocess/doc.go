// Package subprocess provides the process-based transport to the relay.
//
// This package implements the Transport interface by spawning the keyrelay
// binary as a child process. Event lines arrive on its stdout, decision
// lines are written to its stdin and its stderr is streamed to the OnInfo
// callback.
package subprocess
