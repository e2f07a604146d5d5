package subprocess

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/launchmenu/keyrelay/internal/config"
	"github.com/launchmenu/keyrelay/internal/errors"
	"github.com/launchmenu/keyrelay/internal/tap"
	"github.com/launchmenu/keyrelay/internal/wire"
)

// scriptedRelay writes a shell script standing in for the keyrelay binary.
func scriptedRelay(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "keyrelay")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))

	return path
}

type infoLines struct {
	mu    sync.Mutex
	lines []string
}

func (l *infoLines) add(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = append(l.lines, line)
}

func (l *infoLines) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.lines...)
}

func nextEvent(t *testing.T, events <-chan wire.EventLine) wire.EventLine {
	t.Helper()

	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed")

		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event from relay")

		return wire.EventLine{}
	}
}

func nextErr(t *testing.T, errs <-chan error) error {
	t.Helper()

	select {
	case err, ok := <-errs:
		require.True(t, ok, "error channel closed")

		return err
	case <-time.After(5 * time.Second):
		t.Fatal("no error from relay")

		return nil
	}
}

func TestRelayTransport_Conversation(t *testing.T) {
	path := scriptedRelay(t, `echo "relay starting" >&2
echo "KEYBOARD,DOWN,30,30,0,0,1"
read line
echo "got $line" >&2
echo "garbage"
echo "MOUSE,UP,2,273,5,6,2"
read line
echo "got $line" >&2
exit 7
`)

	var info infoLines

	transport := NewRelayTransport(slog.Default(), &config.Options{
		ServerPath:       path,
		SkipVersionCheck: true,
		OnInfo:           info.add,
	})

	ctx := context.Background()
	require.NoError(t, transport.Start(ctx))
	require.True(t, transport.IsReady())

	t.Cleanup(func() { _ = transport.Close() })

	events, errs := transport.ReadEvents(ctx)

	first := nextEvent(t, events)
	require.Equal(t, wire.EventLine{
		Event: tap.Event{Domain: tap.Keyboard, State: tap.Down, Code: 30, AuxCode: 30},
		ID:    1,
	}, first)
	require.NoError(t, transport.SendDecision(ctx, []byte("1,1")))

	parseErr, ok := stderrors.AsType[*errors.LineParseError](nextErr(t, errs))
	require.True(t, ok)
	require.Equal(t, "garbage", parseErr.Line)

	second := nextEvent(t, events)
	require.Equal(t, uint64(2), second.ID)
	require.Equal(t, tap.Mouse, second.Event.Domain)
	require.InDelta(t, 5.0, second.Event.X, 0)
	require.NoError(t, transport.SendDecision(ctx, wire.FormatDecision(tap.Allow, 2)))

	procErr, ok := stderrors.AsType[*errors.ProcessError](nextErr(t, errs))
	require.True(t, ok)
	require.Equal(t, 7, procErr.ExitCode)
	require.Contains(t, procErr.Stderr, "got 1,1")

	require.Equal(t, []string{"relay starting", "got 1,1", "got 0,2"}, info.get())

	_, open := <-events
	require.False(t, open)
}

func TestRelayTransport_CloseIsNotAnError(t *testing.T) {
	path := scriptedRelay(t, `echo "KEYBOARD,DOWN,30,30,0,0,1"
exec sleep 30
`)

	transport := NewRelayTransport(slog.Default(), &config.Options{ServerPath: path, SkipVersionCheck: true})

	ctx := context.Background()
	require.NoError(t, transport.Start(ctx))

	events, errs := transport.ReadEvents(ctx)
	nextEvent(t, events)

	require.NoError(t, transport.Close())
	require.NoError(t, transport.Close())

	select {
	case err, open := <-errs:
		require.False(t, open, "unexpected error after Close: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("reader did not stop after Close")
	}

	require.False(t, transport.IsReady())
	require.ErrorIs(t, transport.SendDecision(ctx, []byte("0,1")), errors.ErrStdinClosed)
}

func TestRelayTransport_StartNotFound(t *testing.T) {
	transport := NewRelayTransport(slog.Default(), &config.Options{
		ServerPath:       filepath.Join(t.TempDir(), "missing"),
		SkipVersionCheck: true,
	})

	err := transport.Start(context.Background())

	require.IsType(t, &errors.RelayNotFoundError{}, stderrors.Unwrap(err))
}

func TestRelayTransport_PassesArguments(t *testing.T) {
	path := scriptedRelay(t, `echo "$@" >&2
`)

	lines := make(chan string, 1)

	transport := NewRelayTransport(slog.Default(), &config.Options{
		ServerPath:       path,
		SkipVersionCheck: true,
		Devices:          []string{"/dev/input/event3"},
		CompactLines:     true,
		OnInfo:           func(line string) { lines <- line },
	})

	require.NoError(t, transport.Start(context.Background()))
	t.Cleanup(func() { _ = transport.Close() })

	transport.ReadEvents(context.Background())

	select {
	case line := <-lines:
		require.Equal(t, "--device /dev/input/event3 --compact", line)
	case <-time.After(5 * time.Second):
		t.Fatal("relay arguments not echoed")
	}
}

func TestSendDecision_BeforeStart(t *testing.T) {
	transport := &RelayTransport{log: slog.Default()}

	err := transport.SendDecision(context.Background(), []byte("1,1"))

	require.ErrorIs(t, err, errors.ErrTransportNotConnected)
	require.NoError(t, transport.Close())
	require.NoError(t, transport.EndInput())
}

func TestSendDecision_CancelledContext(t *testing.T) {
	reader, writer := io.Pipe()
	defer reader.Close()

	transport := &RelayTransport{log: slog.Default(), stdin: writer}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, transport.SendDecision(ctx, []byte("1,1")), context.Canceled)
}

func TestSendDecision_CancellationDuringBlockedWrite(t *testing.T) {
	// Nobody reads the pipe, so the write blocks.
	reader, writer := io.Pipe()
	defer reader.Close()

	transport := &RelayTransport{log: slog.Default(), stdin: writer}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() { errCh <- transport.SendDecision(ctx, []byte("1,1")) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("SendDecision did not respect context cancellation")
	}

	require.ErrorIs(t, transport.SendDecision(context.Background(), []byte("1,2")), errors.ErrStdinClosed)
}

func TestSendDecision_ConcurrentWritesStayWhole(t *testing.T) {
	reader, writer := io.Pipe()
	transport := &RelayTransport{log: slog.Default(), stdin: writer}

	const writers = 20

	received := make(chan []byte, 1)

	go func() {
		data, _ := io.ReadAll(reader)
		received <- data
	}()

	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)

	for i := range writers {
		wg.Go(func() {
			if err := transport.SendDecision(context.Background(), wire.FormatDecision(tap.Suppress, uint64(i+1))); err != nil {
				failed.Add(1)
			}
		})
	}

	wg.Wait()
	require.Zero(t, failed.Load())
	require.NoError(t, transport.EndInput())

	seen := make(map[uint64]bool)

	for line := range strings.Lines(string(<-received)) {
		require.Equal(t, "1,", line[:2], "line %q", line)

		seen[wire.ParseDecision(line).ID] = true
	}

	require.Len(t, seen, writers)
}

func TestSendDecision_DoesNotMutateCallerSlice(t *testing.T) {
	reader, writer := io.Pipe()
	defer reader.Close()

	go func() { _, _ = io.Copy(io.Discard, reader) }()

	transport := &RelayTransport{log: slog.Default(), stdin: writer}

	backing := make([]byte, 3, 8)
	copy(backing, "1,9")
	spare := backing[:4]
	spare[3] = 'x'

	require.NoError(t, transport.SendDecision(context.Background(), backing))
	require.Equal(t, byte('x'), spare[3])
	require.Equal(t, "1,9", string(backing))
}
