package keyrelay

import (
	"github.com/launchmenu/keyrelay/internal/dispatch"
	"github.com/launchmenu/keyrelay/internal/tap"
)

// ListenerID identifies a registered listener function.
type ListenerID string

// Event is an intercepted event with its key name resolved.
type Event = dispatch.Event

// DownMap maps key names to whether they are currently held down.
type DownMap = dispatch.DownMap

// Result is a listener's answer for one event.
type Result = dispatch.Result

// ListenerFunc inspects one event. It runs on the dispatch goroutine and
// must return quickly.
type ListenerFunc = dispatch.Func

// Common listener results.
var (
	Pass     = dispatch.Pass
	Suppress = dispatch.Suppress
	StopAll  = dispatch.StopAll
)

// Domain identifies the device class of an event.
type Domain = tap.Domain

// State is the transition an event reports.
type State = tap.State

// Event domains and states.
const (
	Keyboard = tap.Keyboard
	Mouse    = tap.Mouse
	Up       = tap.Up
	Down     = tap.Down
)

// Exit codes reported through WithOnError.
const (
	ExitDisplayOpen              = int(tap.CauseDisplayOpen)
	ExitInputExtensionMissing    = int(tap.CauseInputExtensionMissing)
	ExitInputExtensionVersion    = int(tap.CauseInputExtensionVersion)
	ExitInputExtensionQuery      = int(tap.CauseInputExtensionQuery)
	ExitKeyboardExtensionMissing = int(tap.CauseKeyboardExtensionMissing)
	ExitModuleHandle             = int(tap.CauseModuleHandle)
	ExitDeviceGrab               = int(tap.CauseDeviceGrab)
	ExitInjection                = int(tap.CauseInjection)
	ExitUnsupported              = int(tap.CauseUnsupported)
)

// KeyName returns the name listeners see for a raw event.
func KeyName(domain Domain, code uint32) string {
	return dispatch.KeyName(tap.Event{Domain: domain, Code: code})
}
