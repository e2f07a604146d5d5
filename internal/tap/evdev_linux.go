//go:build linux

package tap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request numbers (linux/input.h, linux/uinput.h).
const (
	eviocGrab    = 0x40044590
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetRelBit  = 0x40045566
	uiSetMscBit  = 0x40045568
	uiDevSetup   = 0x405c5503
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502

	busVirtual = 0x06

	uinputPath = "/dev/uinput"
)

var timevalSize = int(unsafe.Sizeof(unix.Timeval{}))

// EvdevSource taps Linux input devices through evdev.
//
// Every device is grabbed exclusively so nothing else sees its events.
// Events that are allowed, and everything that is not a press or release,
// are written to a uinput device that stands in for the grabbed hardware.
type EvdevSource struct {
	log         *slog.Logger
	paths       []string
	devicesFile string
}

// Compile-time verification that EvdevSource implements Source.
var _ Source = (*EvdevSource)(nil)

// NewEvdevSource creates a source for the given device paths. With no
// paths, keyboards and mice are discovered from the devices file.
func NewEvdevSource(log *slog.Logger, paths []string, opts ...EvdevOption) (*EvdevSource, error) {
	o := applyEvdevOptions(opts)

	return &EvdevSource{
		log:         log.With("component", "evdev"),
		paths:       paths,
		devicesFile: o.devicesFile,
	}, nil
}

type record struct {
	device int
	ev     inputEvent
}

// Run grabs the devices and delivers their events to h until ctx is done.
func (s *EvdevSource) Run(ctx context.Context, h Handler) error {
	paths, err := s.devicePaths()
	if err != nil {
		return &HostError{Cause: CauseDeviceGrab, Err: err}
	}

	inj, err := openInjector("keyrelay virtual input")
	if err != nil {
		return &HostError{Cause: CauseInjection, Err: err}
	}
	defer inj.Close()

	devices := make([]*os.File, 0, len(paths))

	release := func() {
		for _, f := range devices {
			_ = ioctlInt(f, eviocGrab, 0)
			_ = f.Close()
		}

		devices = nil
	}
	defer release()

	for _, path := range paths {
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			return &HostError{Cause: CauseDeviceGrab, Err: fmt.Errorf("open %s: %w", path, err)}
		}

		if err := ioctlInt(f, eviocGrab, 1); err != nil {
			_ = f.Close()

			return &HostError{Cause: CauseDeviceGrab, Err: fmt.Errorf("grab %s: %w", path, err)}
		}

		devices = append(devices, f)
		s.log.Info("Grabbed input device", "path", path)
	}

	records := make(chan record, 64)
	exits := make(chan int, len(devices))

	var wg sync.WaitGroup
	defer wg.Wait()

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i, f := range devices {
		wg.Go(func() {
			defer func() { exits <- i }()

			s.readDevice(readCtx, i, f, records)
		})
	}

	err = s.deliver(ctx, h, records, exits, len(devices), inj.write)

	// Unblock the readers before waiting on them.
	release()

	return err
}

// deliver feeds records to h and re-injects what h allows. It returns nil
// once ctx is done, or a *HostError when every one of the live readers has
// exited.
func (s *EvdevSource) deliver(ctx context.Context, h Handler, records <-chan record,
	exits <-chan int, live int, inject func(inputEvent) error,
) error {
	translators := make([]translator, live)
	suppressed := make(map[uint16]bool)

	for {
		var rec record

		select {
		case <-ctx.Done():
			return nil
		case device := <-exits:
			live--
			s.log.Warn("Input device lost", "device", device, "remaining", live)

			if live == 0 {
				return &HostError{Cause: CauseDeviceGrab, Err: errors.New("all input devices closed")}
			}

			continue
		case rec = <-records:
		}

		ie := rec.ev

		if ev, ok := translators[rec.device].observe(ie); ok {
			verdict := h.Decide(ev)
			if verdict == Suppress {
				suppressed[ie.Code] = ev.State == Down

				continue
			}

			delete(suppressed, ie.Code)
		} else if ie.Type == evKey && ie.Value == keyRepeated && suppressed[ie.Code] {
			continue
		}

		if err := inject(ie); err != nil {
			s.log.Warn("Failed to re-inject event", "type", ie.Type, "code", ie.Code, "error", err)
		}
	}
}

func (s *EvdevSource) readDevice(ctx context.Context, device int, f *os.File, out chan<- record) {
	buf := make([]byte, timevalSize+8)

	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			if !errors.Is(err, os.ErrClosed) {
				s.log.Warn("Input device read failed", "path", f.Name(), "error", err)
			}

			return
		}

		select {
		case out <- record{device: device, ev: decodeInputEvent(buf, timevalSize)}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *EvdevSource) devicePaths() ([]string, error) {
	if len(s.paths) > 0 {
		return s.paths, nil
	}

	f, err := os.Open(s.devicesFile)
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	defer f.Close()

	infos, err := ParseDevices(f)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		s.log.Debug("Discovered input device", "name", info.Name, "path", info.Path,
			"keyboard", info.Keyboard, "mouse", info.Mouse)

		paths = append(paths, info.Path)
	}

	if len(paths) == 0 {
		return nil, errors.New("no keyboard or mouse devices found")
	}

	return paths, nil
}

// injector is a uinput device that replays allowed events.
type injector struct {
	f *os.File
}

type uinputSetup struct {
	Bustype      uint16
	Vendor       uint16
	Product      uint16
	Version      uint16
	Name         [80]byte
	FFEffectsMax uint32
}

func openInjector(name string) (*injector, error) {
	f, err := os.OpenFile(uinputPath, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uinputPath, err)
	}

	fail := func(step string, err error) (*injector, error) {
		_ = f.Close()

		return nil, fmt.Errorf("%s: %w", step, err)
	}

	for _, ev := range []int{evSyn, evKey, evRel, evMsc} {
		if err := ioctlInt(f, uiSetEvBit, ev); err != nil {
			return fail("enable event type", err)
		}
	}

	for code := 1; code <= keyMax; code++ {
		if err := ioctlInt(f, uiSetKeyBit, code); err != nil {
			return fail("enable key", err)
		}
	}

	for _, rel := range []int{relX, relY, relHWheel, relWheel} {
		if err := ioctlInt(f, uiSetRelBit, rel); err != nil {
			return fail("enable axis", err)
		}
	}

	if err := ioctlInt(f, uiSetMscBit, mscScan); err != nil {
		return fail("enable scan codes", err)
	}

	setup := uinputSetup{Bustype: busVirtual, Vendor: 0x1, Product: 0x1, Version: 1}
	copy(setup.Name[:], name)

	rc, err := f.SyscallConn()
	if err != nil {
		return fail("raw conn", err)
	}

	var errno unix.Errno

	if err := rc.Control(func(fd uintptr) {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, fd, uiDevSetup, uintptr(unsafe.Pointer(&setup)))
	}); err != nil {
		return fail("device setup", err)
	}

	if errno != 0 {
		return fail("device setup", errno)
	}

	if err := ioctlInt(f, uiDevCreate, 0); err != nil {
		return fail("device create", err)
	}

	return &injector{f: f}, nil
}

func (i *injector) write(ie inputEvent) error {
	_, err := i.f.Write(encodeInputEvent(ie, timevalSize))

	return err
}

func (i *injector) Close() error {
	_ = ioctlInt(i.f, uiDevDestroy, 0)

	return i.f.Close()
}

// ioctlInt issues an integer ioctl without forcing f into blocking mode,
// which calling f.Fd() would do.
func ioctlInt(f *os.File, req uint, value int) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}

	var opErr error

	if err := rc.Control(func(fd uintptr) {
		opErr = unix.IoctlSetInt(int(fd), req, value)
	}); err != nil {
		return err
	}

	return opErr
}
