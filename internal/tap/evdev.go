package tap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Linux input subsystem constants (linux/input-event-codes.h).
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02
	evMsc = 0x04
	evRep = 0x14

	mscScan = 0x04

	btnMouse = 0x110
	btnTask  = 0x117
	keyMax   = 0x2ff

	relX      = 0x00
	relY      = 0x01
	relHWheel = 0x06
	relWheel  = 0x08

	keyReleased = 0
	keyPressed  = 1
	keyRepeated = 2
)

// inputEvent mirrors struct input_event without the timestamp, which the
// relay neither reads nor forwards.
type inputEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// decodeInputEvent reads one struct input_event. tvSize is the size of
// struct timeval on the running architecture.
func decodeInputEvent(buf []byte, tvSize int) inputEvent {
	return inputEvent{
		Type:  binary.LittleEndian.Uint16(buf[tvSize:]),
		Code:  binary.LittleEndian.Uint16(buf[tvSize+2:]),
		Value: int32(binary.LittleEndian.Uint32(buf[tvSize+4:])),
	}
}

// encodeInputEvent writes ie as a struct input_event with a zero
// timestamp; the kernel stamps injected events itself.
func encodeInputEvent(ie inputEvent, tvSize int) []byte {
	buf := make([]byte, tvSize+8)
	binary.LittleEndian.PutUint16(buf[tvSize:], ie.Type)
	binary.LittleEndian.PutUint16(buf[tvSize+2:], ie.Code)
	binary.LittleEndian.PutUint32(buf[tvSize+4:], uint32(ie.Value))

	return buf
}

// DefaultDevicesFile is the kernel's table of input devices.
const DefaultDevicesFile = "/proc/bus/input/devices"

type evdevOptions struct {
	devicesFile string
}

// EvdevOption configures an EvdevSource.
type EvdevOption func(*evdevOptions)

// WithDevicesFile replaces DefaultDevicesFile for device discovery.
func WithDevicesFile(path string) EvdevOption {
	return func(o *evdevOptions) {
		if path != "" {
			o.devicesFile = path
		}
	}
}

func applyEvdevOptions(opts []EvdevOption) evdevOptions {
	o := evdevOptions{devicesFile: DefaultDevicesFile}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// DeviceInfo describes an input device listed in /proc/bus/input/devices.
type DeviceInfo struct {
	Name     string
	Path     string
	Keyboard bool
	Mouse    bool
}

// ParseDevices reads the /proc/bus/input/devices format and returns the
// keyboards and mice it lists. Devices without an event handler are skipped.
func ParseDevices(r io.Reader) ([]DeviceInfo, error) {
	var (
		devices []DeviceInfo
		cur     DeviceInfo
		hasKbd  bool
		repeats bool
	)

	flush := func() {
		cur.Keyboard = hasKbd && repeats
		if cur.Path != "" && (cur.Keyboard || cur.Mouse) {
			devices = append(devices, cur)
		}

		cur = DeviceInfo{}
		hasKbd, repeats = false, false
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			flush()

		case strings.HasPrefix(line, "N: Name="):
			cur.Name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)

		case strings.HasPrefix(line, "H: Handlers="):
			for handler := range strings.FieldsSeq(strings.TrimPrefix(line, "H: Handlers=")) {
				switch {
				case handler == "kbd":
					hasKbd = true
				case strings.HasPrefix(handler, "mouse"):
					cur.Mouse = true
				case strings.HasPrefix(handler, "event"):
					cur.Path = "/dev/input/" + handler
				}
			}

		case strings.HasPrefix(line, "B: EV="):
			bits, err := strconv.ParseUint(strings.TrimPrefix(line, "B: EV="), 16, 64)
			if err != nil {
				return nil, fmt.Errorf("parse event bits %q: %w", line, err)
			}

			repeats = bits&(1<<evRep) != 0
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read device list: %w", err)
	}

	flush()

	return devices, nil
}

// translator turns the raw records of one device into tap events. The
// kernel reports MSC_SCAN just before the EV_KEY it belongs to, so the
// last scan code seen becomes the event's AuxCode.
type translator struct {
	scan uint32
}

// observe records ie and reports whether it is a press or release that
// needs a verdict.
func (t *translator) observe(ie inputEvent) (Event, bool) {
	if ie.Type == evMsc && ie.Code == mscScan {
		t.scan = uint32(ie.Value)

		return Event{}, false
	}

	if ie.Type != evKey || (ie.Value != keyPressed && ie.Value != keyReleased) {
		return Event{}, false
	}

	ev := Event{
		Domain:  Keyboard,
		State:   Up,
		Code:    uint32(ie.Code),
		AuxCode: t.scan,
	}

	if ie.Value == keyPressed {
		ev.State = Down
	}

	if ie.Code >= btnMouse && ie.Code <= btnTask {
		ev.Domain = Mouse
	}

	t.scan = 0

	return ev, true
}
