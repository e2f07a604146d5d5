package correlator

import (
	"sync"
	"time"

	"github.com/launchmenu/keyrelay/internal/tap"
)

// Resolver identifies which path settled a request.
type Resolver int

const (
	// ResolvedByResponse means a matching decision line arrived in time.
	ResolvedByResponse Resolver = iota + 1
	// ResolvedByTimeout means the deadline passed first and the event was allowed.
	ResolvedByTimeout
)

// String returns the resolver name used in logs.
func (r Resolver) String() string {
	switch r {
	case ResolvedByResponse:
		return "response"
	case ResolvedByTimeout:
		return "timeout"
	default:
		return "none"
	}
}

// Outcome is the settled result of one request.
type Outcome struct {
	ID      uint64
	Verdict tap.Verdict
	By      Resolver
	// Elapsed is the time from submission to resolution.
	Elapsed time.Duration
}

// slot is the single-request correlation state shared by Decide and the
// two resolvers. All fields are guarded by mu.
type slot struct {
	mu sync.Mutex

	// expectedID is the id of the open request while pending is set, and
	// the last issued id otherwise. It never moves backwards.
	expectedID uint64
	pending    bool

	resolved   bool
	resolution tap.Verdict
	by         Resolver

	wake chan Outcome
}

// open makes id the outstanding request and returns the channel its
// outcome will be delivered on.
func (s *slot) open(id uint64) <-chan Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending || s.resolved {
		panic("correlator: request opened while another is outstanding")
	}

	if id <= s.expectedID {
		panic("correlator: request id did not advance")
	}

	s.expectedID = id
	s.pending = true
	s.wake = make(chan Outcome, 1)

	return s.wake
}

// tryResolve settles request id with v if it is still the open request.
// It reports whether this call won; a stale or already settled id is a
// silent no-op.
func (s *slot) tryResolve(id uint64, v tap.Verdict, by Resolver) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending || id != s.expectedID {
		return false
	}

	if s.resolved {
		panic("correlator: request resolved twice")
	}

	s.pending = false
	s.resolved = true
	s.resolution = v
	s.by = by

	// Capacity 1 and a single winner per request: never blocks.
	s.wake <- Outcome{ID: id, Verdict: v, By: by}

	return true
}

// reset clears a consumed resolution so the next request can open.
func (s *slot) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending {
		panic("correlator: reset while request is unresolved")
	}

	s.resolved = false
	s.resolution = tap.Allow
	s.by = 0
	s.wake = nil
}
