// Package tap defines the boundary between a host input-event source and the
// code that decides whether each event may continue.
//
// A Source delivers events one at a time on its own goroutine and expects a
// Verdict back for every one of them. The host typically enforces a short
// budget on that call, so a Handler must return promptly whatever happens to
// its own collaborators.
package tap

import (
	"context"
	"strconv"
)

// Domain identifies the device class an event came from.
type Domain int

const (
	// Keyboard events carry a key code.
	Keyboard Domain = iota
	// Mouse events carry a button code and pointer location.
	Mouse
)

// String returns the wire name of the domain.
func (d Domain) String() string {
	if d == Mouse {
		return "MOUSE"
	}

	return "KEYBOARD"
}

// State is the transition an event reports.
type State int

const (
	// Up is a key or button release.
	Up State = iota
	// Down is a key or button press (including auto-repeat).
	Down
)

// String returns the wire name of the state.
func (s State) String() string {
	if s == Down {
		return "DOWN"
	}

	return "UP"
}

// Event is an intercepted input event.
type Event struct {
	Domain Domain
	State  State
	// Code is the platform key or button code.
	Code uint32
	// AuxCode is the secondary code the platform reports, such as a scan code.
	AuxCode uint32
	// X and Y are the pointer location for mouse events, zero otherwise.
	X, Y float64
}

// Verdict is the decision for an intercepted event.
type Verdict int

const (
	// Allow lets the event continue to the rest of the system.
	Allow Verdict = iota
	// Suppress stops the event from propagating.
	Suppress
)

// String returns a human readable verdict name.
func (v Verdict) String() string {
	if v == Suppress {
		return "suppress"
	}

	return "allow"
}

// Handler decides the fate of one event. Decide is invoked synchronously on
// the source's delivery goroutine.
type Handler interface {
	Decide(ev Event) Verdict
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ev Event) Verdict

// Decide calls f(ev).
func (f HandlerFunc) Decide(ev Event) Verdict { return f(ev) }

// Source taps the host's input stream and consults a Handler for each event.
//
// Run registers with the host, delivers events until ctx is cancelled and
// then unregisters. Registration failures are returned as *HostError.
type Source interface {
	Run(ctx context.Context, h Handler) error
}

// Cause enumerates the ways registering with the host can fail.
type Cause int

const (
	CauseDisplayOpen Cause = iota + 1
	CauseInputExtensionMissing
	CauseInputExtensionVersion
	CauseInputExtensionQuery
	CauseKeyboardExtensionMissing
	CauseModuleHandle
	CauseDeviceGrab
	CauseInjection
	CauseUnsupported
)

var causeNames = map[Cause]string{
	CauseDisplayOpen:              "cannot open display",
	CauseInputExtensionMissing:    "input extension not available",
	CauseInputExtensionVersion:    "unsupported input extension version",
	CauseInputExtensionQuery:      "cannot query input extension version",
	CauseKeyboardExtensionMissing: "keyboard extension not available",
	CauseModuleHandle:             "cannot acquire module handle",
	CauseDeviceGrab:               "cannot grab input device",
	CauseInjection:                "cannot create injection device",
	CauseUnsupported:              "event tap not supported on this platform",
}

// String describes the cause.
func (c Cause) String() string {
	if name, ok := causeNames[c]; ok {
		return name
	}

	return "cause(" + strconv.Itoa(int(c)) + ")"
}

// ExitCode is the process exit status reported for the cause. Every cause
// has its own status so the controlling process can tell them apart.
func (c Cause) ExitCode() int {
	if _, ok := causeNames[c]; !ok {
		return 1
	}

	return int(c)
}

// HostError reports a failure to register with the host's input mechanism.
// It is fatal: the relay exits with ExitCode.
type HostError struct {
	Cause Cause
	Err   error
}

func (e *HostError) Error() string {
	if e.Err != nil {
		return e.Cause.String() + ": " + e.Err.Error()
	}

	return e.Cause.String()
}

func (e *HostError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit status for this failure.
func (e *HostError) ExitCode() int {
	return e.Cause.ExitCode()
}
