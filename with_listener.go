package keyrelay

import "context"

// WithListener creates a Listener, runs fn with it and kills it when fn
// returns. A failed Kill is logged and does not override fn's error.
//
// Example usage:
//
//	err := keyrelay.WithListener(ctx, func(l keyrelay.Listener) error {
//	    if _, err := l.AddListener(ctx, handler); err != nil {
//	        return err
//	    }
//	    <-ctx.Done()
//	    return nil
//	},
//	    keyrelay.WithLogger(log),
//	)
func WithListener(ctx context.Context, fn func(Listener) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	l := NewListener(opts...)

	defer func() {
		if err := l.Kill(); err != nil {
			log.Warn("failed to kill listener", "error", err)
		}
	}()

	return fn(l)
}
