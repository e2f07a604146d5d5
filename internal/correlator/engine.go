package correlator

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/launchmenu/keyrelay/internal/clock"
	"github.com/launchmenu/keyrelay/internal/errors"
	"github.com/launchmenu/keyrelay/internal/tap"
	"github.com/launchmenu/keyrelay/internal/wire"
)

const (
	// TimeoutBudget is how long Decide waits for a decision before allowing
	// the event. Hosts revoke taps whose callbacks are slower than this.
	TimeoutBudget = 30 * time.Millisecond

	// armBacklog bounds the queue of deadlines waiting for the Timeout
	// Monitor. Deadlines are armed in submission order, so the queue only
	// holds requests submitted within the last TimeoutBudget.
	armBacklog = 256

	// maxDecisionLine is the longest decision line the engine will parse.
	// Longer lines are discarded whole.
	maxDecisionLine = 4 << 10
)

// arm is a deadline handed from Decide to the Timeout Monitor.
type arm struct {
	id       uint64
	deadline time.Time
}

// Stats counts what the engine has seen since it was created.
type Stats struct {
	Requests  uint64
	Responses uint64
	Timeouts  uint64
	// Stale counts decision lines that matched no open request.
	Stale uint64
}

// Engine correlates intercepted events with decisions from the controller.
//
// Decide, ListenResponses and MonitorTimeouts run on three different
// goroutines. The pending slot is the only state they share.
type Engine struct {
	log    *slog.Logger
	clock  clock.Clock
	format func(tap.Event, uint64) []byte

	// callMu serialises Decide so at most one request is open, even if a
	// host delivers events concurrently. It also guards out and nextID.
	callMu sync.Mutex
	out    io.Writer
	nextID uint64

	slot  slot
	armed chan arm

	responsesClosed atomic.Bool
	writeFailing    atomic.Bool

	requests  atomic.Uint64
	responses atomic.Uint64
	timeouts  atomic.Uint64
	stale     atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

// Compile-time verification that Engine implements tap.Handler.
var _ tap.Handler = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the real clock, for deterministic tests.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithCompactLines makes the engine emit the single-domain line format.
func WithCompactLines() Option {
	return func(e *Engine) {
		e.format = wire.FormatCompactEvent
	}
}

// NewEngine creates an engine that writes event lines to out.
//
// If out is a *bufio.Writer (or anything with a Flush() error method) it is
// flushed after every line.
func NewEngine(log *slog.Logger, out io.Writer, opts ...Option) *Engine {
	e := &Engine{
		log:    log.With("component", "correlator"),
		clock:  clock.Real(),
		format: wire.FormatEvent,
		out:    out,
		armed:  make(chan arm, armBacklog),
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Decide implements tap.Handler.
func (e *Engine) Decide(ev tap.Event) tap.Verdict {
	return e.DecideOutcome(ev).Verdict
}

// DecideOutcome submits ev to the controller and blocks until the request
// is resolved, by a matching decision line or by the deadline. It returns
// within TimeoutBudget plus scheduling delay as long as MonitorTimeouts is
// running.
//
// After Stop, DecideOutcome returns Allow without emitting a line.
func (e *Engine) DecideOutcome(ev tap.Event) Outcome {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	select {
	case <-e.done:
		return Outcome{Verdict: tap.Allow}
	default:
	}

	e.nextID++
	id := e.nextID
	start := e.clock.Now()

	e.requests.Add(1)

	line := e.format(ev, id)

	// Open before writing: the answer may arrive before Write returns.
	wake := e.slot.open(id)

	defer func() {
		// Only still pending if the write panicked. Settling it keeps reset
		// from panicking over the original panic.
		e.slot.tryResolve(id, tap.Allow, ResolvedByTimeout)
		e.slot.reset()
	}()

	if err := e.emit(line); err != nil {
		// The line is lost; the timeout still settles the request.
		if !e.writeFailing.Swap(true) {
			e.log.Warn("Failed to write event line, events will pass after timeout",
				"request_id", id, "error", err)
		}
	} else if e.writeFailing.Swap(false) {
		e.log.Info("Event line writes recovered", "request_id", id)
	}

	select {
	case e.armed <- arm{id: id, deadline: start.Add(TimeoutBudget)}:
	case <-e.done:
		e.slot.tryResolve(id, tap.Allow, ResolvedByTimeout)
	}

	var out Outcome

	select {
	case out = <-wake:
	case <-e.done:
		// No monitor left to fire the deadline: settle it here, or collect
		// the outcome of whoever got there first.
		e.slot.tryResolve(id, tap.Allow, ResolvedByTimeout)
		out = <-wake
	}

	out.Elapsed = e.clock.Now().Sub(start)

	e.log.Debug("Request resolved",
		"request_id", id,
		"verdict", out.Verdict,
		"by", out.By,
		"elapsed", out.Elapsed,
	)

	return out
}

type flusher interface {
	Flush() error
}

func (e *Engine) emit(line []byte) error {
	if _, err := e.out.Write(line); err != nil {
		return fmt.Errorf("write event line: %w", err)
	}

	if f, ok := e.out.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush event line: %w", err)
		}
	}

	return nil
}

// ListenResponses reads decision lines from r until it is exhausted,
// resolving the open request whenever a line names it. Lines for any other
// id, including malformed or oversized ones, are dropped.
//
// The read blocks outside of any lock. When r reaches EOF the response path
// is marked closed and ListenResponses returns nil; from then on every
// request is settled by MonitorTimeouts. To stop it early, close r.
func (e *Engine) ListenResponses(ctx context.Context, r io.Reader) error {
	defer e.log.Debug("Response listener stopped")

	reader := bufio.NewReaderSize(r, maxDecisionLine)
	overlong := false

	for {
		line, err := reader.ReadSlice('\n')
		if stderrors.Is(err, bufio.ErrBufferFull) {
			// Skip the rest of the line; it answers nothing.
			overlong = true

			continue
		}

		if err != nil && !stderrors.Is(err, io.EOF) {
			e.responsesClosed.Store(true)
			e.log.Warn("Decision channel failed, events will pass after timeout", "error", err)

			return fmt.Errorf("read decision line: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}

		switch {
		case overlong:
			overlong = false

			e.stale.Add(1)
			e.log.Debug("Discarded oversized decision line")
		case err == nil || len(line) > 0:
			e.resolveLine(string(line))
		}

		if err != nil {
			break
		}
	}

	e.responsesClosed.Store(true)
	e.log.Info("Decision channel closed, events will pass after timeout")

	return nil
}

func (e *Engine) resolveLine(line string) {
	d := wire.ParseDecision(line)

	if e.slot.tryResolve(d.ID, d.Verdict, ResolvedByResponse) {
		e.responses.Add(1)

		return
	}

	e.stale.Add(1)
	e.log.Debug("Discarded stale decision", "request_id", d.ID, "line", strings.TrimSpace(line))
}

// MonitorTimeouts settles every request whose deadline passes before a
// decision arrives, allowing the event. It runs until ctx is cancelled or
// the engine is stopped.
//
// Without a running monitor Decide cannot honour its deadline, so returning
// from MonitorTimeouts stops the engine.
func (e *Engine) MonitorTimeouts(ctx context.Context) error {
	defer e.Stop()
	defer e.log.Debug("Timeout monitor stopped")

	for {
		var a arm

		select {
		case <-ctx.Done():
			return nil
		case <-e.done:
			return nil
		case a = <-e.armed:
		}

		if wait := a.deadline.Sub(e.clock.Now()); wait > 0 {
			select {
			case <-e.clock.After(wait):
			case <-ctx.Done():
				return nil
			case <-e.done:
				return nil
			}
		}

		if e.slot.tryResolve(a.id, tap.Allow, ResolvedByTimeout) {
			e.timeouts.Add(1)
			e.log.Debug("Request timed out, allowing event", "request_id", a.id)
		}
	}
}

// Stop stops the engine. Blocked and future Decide calls return Allow.
// It is safe to call Stop multiple times.
func (e *Engine) Stop() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
}

// Done returns a channel that is closed when the engine stops.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Err reports ErrEngineStopped once the engine has stopped.
func (e *Engine) Err() error {
	select {
	case <-e.done:
		return errors.ErrEngineStopped
	default:
		return nil
	}
}

// ResponsesClosed reports whether the decision channel has reached EOF.
func (e *Engine) ResponsesClosed() bool {
	return e.responsesClosed.Load()
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Requests:  e.requests.Load(),
		Responses: e.responses.Load(),
		Timeouts:  e.timeouts.Load(),
		Stale:     e.stale.Load(),
	}
}
