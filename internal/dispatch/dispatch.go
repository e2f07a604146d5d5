// Package dispatch fans intercepted events out to registered listeners
// and folds their results into one verdict.
package dispatch

import (
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/launchmenu/keyrelay/internal/tap"
)

// Event is an intercepted event with its key name resolved.
type Event struct {
	tap.Event

	// Name is the standard key name, see KeyName.
	Name string
}

// DownMap reports, by key name, whether a key was held when the event was
// delivered. Keys that were never pressed are absent. Each listener call
// receives its own snapshot.
type DownMap map[string]bool

// Result is what a listener returns for an event.
type Result struct {
	// StopPropagation keeps the event from reaching the rest of the system.
	StopPropagation bool

	// StopImmediatePropagation skips the listeners registered after this one.
	StopImmediatePropagation bool
}

// Common results.
var (
	// Pass lets the event through and continues with the next listener.
	Pass = Result{}
	// Suppress swallows the event; later listeners still see it.
	Suppress = Result{StopPropagation: true}
	// StopAll swallows the event and skips later listeners.
	StopAll = Result{StopPropagation: true, StopImmediatePropagation: true}
)

// Func is a listener.
type Func func(ev Event, down DownMap) Result

type entry struct {
	id string
	fn Func
}

// Dispatcher holds the registered listeners in registration order.
//
// All methods are safe for concurrent use. Dispatch calls are serialised,
// so listeners never run concurrently with each other.
type Dispatcher struct {
	log *slog.Logger

	mu        sync.RWMutex
	listeners []entry

	// dispatchMu guards down.
	dispatchMu sync.Mutex
	down       DownMap
}

// New creates an empty dispatcher.
func New(log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		log:  log.With("component", "dispatch"),
		down: make(DownMap),
	}
}

// Add registers fn under id and returns the number of listeners.
func (d *Dispatcher) Add(id string, fn Func) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listeners = append(d.listeners, entry{id: id, fn: fn})

	return len(d.listeners)
}

// Remove unregisters id. It reports whether id was registered and how many
// listeners remain.
func (d *Dispatcher) Remove(id string) (bool, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, e := range d.listeners {
		if e.id == id {
			d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)

			return true, len(d.listeners)
		}
	}

	return false, len(d.listeners)
}

// Clear unregisters every listener.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listeners = nil
}

// Len returns the number of registered listeners.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.listeners)
}

// Dispatch updates the down map with ev and offers ev to each listener in
// turn. The event is suppressed if any listener that ran asked for it.
//
// A listener that panics is logged and treated as Pass.
func (d *Dispatcher) Dispatch(raw tap.Event) tap.Verdict {
	ev := Event{Event: raw, Name: KeyName(raw)}

	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	d.down[ev.Name] = raw.State == tap.Down

	d.mu.RLock()
	listeners := d.listeners
	d.mu.RUnlock()

	stop := false

	for _, l := range listeners {
		res := d.call(l, ev)

		if res.StopPropagation {
			stop = true
		}

		if res.StopImmediatePropagation {
			break
		}
	}

	if stop {
		return tap.Suppress
	}

	return tap.Allow
}

func (d *Dispatcher) call(l entry, ev Event) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Listener panicked", "listener", l.id, "key", ev.Name, "panic", fmt.Sprint(r))

			res = Pass
		}
	}()

	return l.fn(ev, maps.Clone(d.down))
}
