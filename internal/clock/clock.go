// Package clock provides an injectable time source.
//
// The correlation engine races a decision line against a deadline. Tests
// need to decide that race deterministically, so the engine takes a Clock
// instead of calling the time package directly. Real returns the standard
// library behavior; Fake returns a clock that only moves when Advance is
// called.
package clock

import "time"

// Clock abstracts the time operations used by the relay.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d has
	// elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
