package keyrelay

import (
	"context"

	"github.com/launchmenu/keyrelay/internal/client"
)

// listenerWrapper adapts the internal client to the public interface.
type listenerWrapper struct {
	impl *client.Client
}

var _ Listener = (*listenerWrapper)(nil)

func newListenerImpl(opts []Option) Listener {
	return &listenerWrapper{impl: client.New(applyOptions(opts))}
}

func (l *listenerWrapper) AddListener(ctx context.Context, fn ListenerFunc) (ListenerID, error) {
	id, err := l.impl.AddListener(ctx, fn)

	return ListenerID(id), err
}

func (l *listenerWrapper) RemoveListener(id ListenerID) bool {
	return l.impl.RemoveListener(string(id))
}

func (l *listenerWrapper) Kill() error {
	return l.impl.Kill()
}

func (l *listenerWrapper) Running() bool {
	return l.impl.Running()
}

func (l *listenerWrapper) Wait() error {
	return l.impl.Wait()
}
