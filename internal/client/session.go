package client

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/launchmenu/keyrelay/internal/config"
	"github.com/launchmenu/keyrelay/internal/dispatch"
	"github.com/launchmenu/keyrelay/internal/errors"
	"github.com/launchmenu/keyrelay/internal/wire"
)

// session is one running relay.
type session struct {
	log        *slog.Logger
	transport  config.Transport
	dispatcher *dispatch.Dispatcher
	onError    func(int)

	cancel   context.CancelFunc
	eg       *errgroup.Group
	stopping atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

// startSession starts transport and the read loop. The loop is not bound
// to ctx, which only covers startup.
func startSession(
	ctx context.Context,
	log *slog.Logger,
	transport config.Transport,
	dispatcher *dispatch.Dispatcher,
	onError func(int),
) (*session, error) {
	if err := transport.Start(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())

	s := &session{
		log:        log,
		transport:  transport,
		dispatcher: dispatcher,
		onError:    onError,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	var egCtx context.Context

	s.eg, egCtx = errgroup.WithContext(runCtx)

	events, errs := transport.ReadEvents(egCtx)

	s.eg.Go(func() error {
		defer close(s.done)
		defer s.cancel()

		return s.readLoop(egCtx, events, errs)
	})

	return s, nil
}

// readLoop answers every event until the transport is exhausted.
func (s *session) readLoop(ctx context.Context, events <-chan wire.EventLine, errs <-chan error) error {
	defer s.log.Debug("Read loop stopped")

	sendFailing := false

	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil

				continue
			}

			verdict := s.dispatcher.Dispatch(ev.Event)

			// Every event gets an answer, even when no listener wants it.
			err := s.transport.SendDecision(ctx, wire.FormatDecision(verdict, ev.ID))

			switch {
			case err != nil && !sendFailing && !s.stopping.Load():
				sendFailing = true

				s.log.Warn("Failed to send decision, the relay will time out", "request_id", ev.ID, "error", err)
			case err == nil:
				sendFailing = false
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil

				continue
			}

			if procErr, isProc := stderrors.AsType[*errors.ProcessError](err); isProc {
				if s.stopping.Load() {
					continue
				}

				s.log.Error("Relay exited", "exit_code", procErr.ExitCode)

				if s.onError != nil {
					s.onError(procErr.ExitCode)
				}

				return procErr
			}

			s.log.Debug("Skipping unreadable event line", "error", err)

		case <-ctx.Done():
			return nil
		}
	}

	return nil
}

// stop kills the relay. It does not wait for the read loop, which may be
// the caller.
func (s *session) stop() error {
	var err error

	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		s.cancel()
		err = s.transport.Close()
	})

	return err
}

// exited reports whether the read loop has finished.
func (s *session) exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// wait blocks until the read loop has finished.
func (s *session) wait() error {
	return s.eg.Wait()
}
