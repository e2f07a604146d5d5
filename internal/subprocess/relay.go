package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/launchmenu/keyrelay/internal/config"
	"github.com/launchmenu/keyrelay/internal/discovery"
	"github.com/launchmenu/keyrelay/internal/errors"
	"github.com/launchmenu/keyrelay/internal/wire"
)

const (
	// maxStderrBufferSize caps the stderr kept for ProcessError. Streaming
	// to OnInfo continues past the cap.
	maxStderrBufferSize = 64 * 1024

	// errorBacklog lets the reader report a few bad lines without blocking
	// event delivery.
	errorBacklog = 8
)

// RelayTransport implements Transport by spawning the keyrelay binary.
type RelayTransport struct {
	log        *slog.Logger
	options    *config.Options
	serverPath string
	args       []string
	env        []string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     io.ReadCloser
	stderr     io.ReadCloser
	onInfo     func(string)
	mu         sync.Mutex // Protects stdin writes
	closing    bool       // Whether Close() has been called (intentional shutdown)
	stdinClose bool       // Whether stdin was closed
}

// Compile-time verification that RelayTransport implements the Transport interface.
var _ config.Transport = (*RelayTransport)(nil)

// NewRelayTransport creates a transport for the given options.
//
// Discovery is deferred to Start, which returns a *errors.RelayNotFoundError
// if the binary cannot be located.
func NewRelayTransport(log *slog.Logger, options *config.Options) *RelayTransport {
	return &RelayTransport{
		log:     log.With("component", "relay_transport"),
		options: options,
		onInfo:  options.OnInfo,
	}
}

// Start discovers the relay binary and spawns it.
//
// The process is not bound to ctx: it runs until Close, or until it exits
// on its own.
func (t *RelayTransport) Start(ctx context.Context) error {
	t.log.Info("Starting keyrelay subprocess")

	serverPath, err := discovery.NewDiscoverer(&discovery.Config{
		ServerPath:       t.options.ServerPath,
		SkipVersionCheck: t.options.SkipVersionCheck,
		Logger:           t.log,
	}).Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover relay: %w", err)
	}

	t.serverPath = serverPath
	t.args = discovery.BuildArgs(t.options)
	t.env = discovery.BuildEnvironment(t.options)

	t.log.Debug("Built command arguments", "args", t.args)

	//nolint:gosec // G204: launching the discovered relay binary
	cmd := exec.Command(t.serverPath, t.args...)
	cmd.Env = t.env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.RelayConnectionError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.RelayConnectionError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errors.RelayConnectionError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start keyrelay", "error", err)

		return &errors.RelayConnectionError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.mu.Lock()
	t.cmd = cmd
	t.stdin = stdin
	t.stdout = stdout
	t.stderr = stderr
	t.mu.Unlock()

	t.log.Info("keyrelay subprocess started", "pid", cmd.Process.Pid)

	return nil
}

// ReadEvents reads event lines from the relay's stdout.
//
// A line that does not parse is reported as a *errors.LineParseError and
// reading continues. When the relay exits without Close having been called,
// a *errors.ProcessError carrying its exit code is reported last. Both
// channels are closed when reading completes.
func (t *RelayTransport) ReadEvents(ctx context.Context) (<-chan wire.EventLine, <-chan error) {
	events := make(chan wire.EventLine)
	errs := make(chan error, errorBacklog)

	var (
		stderrWg     sync.WaitGroup
		stderrMu     sync.Mutex
		stderrBuffer strings.Builder
	)

	// Stderr must be drained before cmd.Wait.
	stderrWg.Go(func() {
		scanner := bufio.NewScanner(t.stderr)
		for scanner.Scan() {
			line := scanner.Text()

			stderrMu.Lock()

			if stderrBuffer.Len() < maxStderrBufferSize {
				if stderrBuffer.Len() > 0 {
					stderrBuffer.WriteString("\n")
				}

				stderrBuffer.WriteString(line)
			}

			stderrMu.Unlock()

			if t.onInfo != nil {
				t.onInfo(line)
			}
		}

		if err := scanner.Err(); err != nil {
			t.log.Debug("Stderr scanner error", "error", err)
		}
	})

	report := func(err error) bool {
		select {
		case errs <- err:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(events)
		defer close(errs)
		defer t.log.Debug("ReadEvents goroutine stopped")

		scanner := bufio.NewScanner(t.stdout)

		// Leaving the loop early still falls through to cmd.Wait so the
		// process is reaped.
	scan:
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}

			ev, err := wire.ParseEvent(line)
			if err != nil {
				t.log.Debug("Failed to parse event line", "error", err)

				if !report(err) {
					break scan
				}

				continue
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				break scan
			}
		}

		if err := scanner.Err(); err != nil && !t.isClosing() {
			t.log.Warn("Scanner error while reading relay output", "error", err)
		}

		stderrWg.Wait()

		err := t.cmd.Wait()
		if t.isClosing() {
			t.log.Debug("keyrelay terminated during shutdown")

			return
		}

		stderrMu.Lock()
		stderrOutput := stderrBuffer.String()
		stderrMu.Unlock()

		exitCode := 0
		if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
			exitCode = exitErr.ExitCode()
		}

		t.log.Error("keyrelay exited unexpectedly", "exit_code", exitCode)

		report(&errors.ProcessError{
			ExitCode: exitCode,
			Stderr:   stderrOutput,
			Err:      err,
		})
	}()

	return events, errs
}

func (t *RelayTransport) isClosing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closing
}

// SendDecision writes a decision line to the relay's stdin.
//
// A newline is appended if missing. The call is safe for concurrent use
// and gives up when ctx is cancelled, closing stdin to unblock the write.
func (t *RelayTransport) SendDecision(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin == nil {
		return errors.ErrTransportNotConnected
	}

	if t.stdinClose {
		return errors.ErrStdinClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Copy so the caller's backing array is never touched.
	if len(data) == 0 || data[len(data)-1] != '\n' {
		line := make([]byte, len(data)+1)
		copy(line, data)
		line[len(data)] = '\n'
		data = line
	}

	done := make(chan error, 1)

	go func() {
		_, err := t.stdin.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil

	case <-ctx.Done():
		t.log.Debug("Context cancelled during write, closing stdin")

		_ = t.stdin.Close()
		t.stdinClose = true

		select {
		case <-done:
		case <-time.After(time.Second):
			t.log.Warn("Write goroutine did not exit after stdin close, potential leak")
		}

		return ctx.Err()
	}
}

// IsReady reports whether the relay is running and stdin is open.
func (t *RelayTransport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && t.cmd.Process != nil && t.stdin != nil && !t.stdinClose
}

// EndInput closes the relay's stdin. Requests still open are settled by
// the relay's timeout.
func (t *RelayTransport) EndInput() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin != nil && !t.stdinClose {
		t.stdinClose = true

		return t.stdin.Close()
	}

	return nil
}

// Close kills the relay process. It is safe to call Close multiple times
// or before Start.
func (t *RelayTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closing = true
	t.stdinClose = true

	if t.cmd != nil && t.cmd.Process != nil {
		t.log.Debug("Killing keyrelay process", "pid", t.cmd.Process.Pid)

		if err := t.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("kill relay process (pid %d): %w", t.cmd.Process.Pid, err)
		}
	}

	return nil
}
