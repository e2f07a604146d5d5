// Package keyrelay lets a Go program watch and suppress global keyboard and
// mouse events.
//
// Events are intercepted by the keyrelay binary, which holds each one until
// this package answers with a verdict or a 30ms budget runs out. If the
// answer is late the event is let through, so a slow or crashed program
// never freezes the user's input.
//
// # Basic Usage
//
// Register a listener. The relay is started with the first listener and
// stopped shortly after the last one is removed:
//
//	l := keyrelay.NewListener(keyrelay.WithLogger(slog.Default()))
//	defer l.Kill()
//
//	id, err := l.AddListener(ctx, func(ev keyrelay.Event, down keyrelay.DownMap) keyrelay.Result {
//	    if ev.Name == "A" && down["LEFT CTRL"] {
//	        return keyrelay.Suppress
//	    }
//	    return keyrelay.Pass
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.RemoveListener(id)
//
// Or use WithListener to scope the relay to a function:
//
//	err := keyrelay.WithListener(ctx, func(l keyrelay.Listener) error {
//	    ...
//	})
//
// # Listeners
//
// Listeners run in registration order on a single goroutine. A listener
// returning StopPropagation suppresses the event. StopImmediatePropagation
// additionally skips the listeners registered after it. Listeners must
// return quickly: the decision has to reach the relay within the budget.
//
// # Error Handling
//
// Errors are typed:
//
//	if _, ok := errors.AsType[*keyrelay.RelayNotFoundError](err); ok {
//	    // install keyrelay or use WithServerPath
//	}
//
// When the relay exits on its own the OnError callback receives its exit
// code. See the ExitCode constants for their meaning.
package keyrelay
