// Package correlator pairs intercepted events with decisions from a
// controlling process.
//
// The Engine is the tap.Handler a Source calls for every event. Decide
// writes an event line carrying a fresh request id, then blocks until one of
// two resolvers settles the request:
//
//   - the Response Listener, reading decision lines from the controller, or
//   - the Timeout Monitor, which lets the event through once TimeoutBudget
//     has passed.
//
// Both resolvers go through the same compare-and-advance on the pending
// slot, so each request is resolved exactly once and answers that arrive
// for an older request are dropped.
//
// Example usage:
//
//	engine := correlator.NewEngine(log, os.Stdout)
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(func() error { return engine.ListenResponses(ctx, os.Stdin) })
//	g.Go(func() error { return engine.MonitorTimeouts(ctx) })
//	g.Go(func() error { return source.Run(ctx, engine) })
package correlator
