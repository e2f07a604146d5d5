package tap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const procDevicesFixture = `I: Bus=0019 Vendor=0000 Product=0001 Version=0000
N: Name="Power Button"
P: Phys=LNXPWRBN/button/input0
H: Handlers=kbd event0
B: PROP=0
B: EV=3
B: KEY=10000000000000 0

I: Bus=0011 Vendor=0001 Product=0001 Version=ab41
N: Name="AT Translated Set 2 keyboard"
P: Phys=isa0060/serio0/input0
H: Handlers=sysrq kbd leds event3
B: PROP=0
B: EV=120013
B: KEY=402000000 3803078f800d001 feffffdfffefffff fffffffffffffffe

I: Bus=0003 Vendor=046d Product=c077 Version=0111
N: Name="Logitech USB Optical Mouse"
H: Handlers=mouse0 event5
B: PROP=0
B: EV=17
B: KEY=70000 0 0 0 0

I: Bus=0000 Vendor=0000 Product=0000 Version=0000
N: Name="No handler device"
H: Handlers=kbd
B: EV=120013
`

func TestParseDevices(t *testing.T) {
	devices, err := ParseDevices(strings.NewReader(procDevicesFixture))
	require.NoError(t, err)

	require.Equal(t, []DeviceInfo{
		{Name: "AT Translated Set 2 keyboard", Path: "/dev/input/event3", Keyboard: true},
		{Name: "Logitech USB Optical Mouse", Path: "/dev/input/event5", Mouse: true},
	}, devices)
}

func TestParseDevices_BadEventBits(t *testing.T) {
	_, err := ParseDevices(strings.NewReader("H: Handlers=kbd event1\nB: EV=zz\n"))
	require.Error(t, err)
}

func TestInputEvent_RoundTrip(t *testing.T) {
	for _, tvSize := range []int{8, 16} {
		ie := inputEvent{Type: evKey, Code: 30, Value: keyPressed}

		buf := encodeInputEvent(ie, tvSize)
		require.Len(t, buf, tvSize+8)
		require.Equal(t, ie, decodeInputEvent(buf, tvSize))
	}
}

func TestInputEvent_NegativeValue(t *testing.T) {
	ie := inputEvent{Type: evRel, Code: relWheel, Value: -1}

	require.Equal(t, ie, decodeInputEvent(encodeInputEvent(ie, 16), 16))
}

func TestTranslator_KeyWithScanCode(t *testing.T) {
	var tr translator

	_, ok := tr.observe(inputEvent{Type: evMsc, Code: mscScan, Value: 0x1e})
	require.False(t, ok)

	ev, ok := tr.observe(inputEvent{Type: evKey, Code: 30, Value: keyPressed})
	require.True(t, ok)
	require.Equal(t, Event{Domain: Keyboard, State: Down, Code: 30, AuxCode: 0x1e}, ev)

	ev, ok = tr.observe(inputEvent{Type: evKey, Code: 30, Value: keyReleased})
	require.True(t, ok)
	require.Equal(t, Event{Domain: Keyboard, State: Up, Code: 30}, ev)
}

func TestTranslator_MouseButton(t *testing.T) {
	var tr translator

	ev, ok := tr.observe(inputEvent{Type: evKey, Code: btnMouse, Value: keyPressed})
	require.True(t, ok)
	require.Equal(t, Mouse, ev.Domain)
	require.Equal(t, uint32(btnMouse), ev.Code)
}

func TestTranslator_IgnoresRepeatsAndOtherTypes(t *testing.T) {
	var tr translator

	for _, ie := range []inputEvent{
		{Type: evKey, Code: 30, Value: keyRepeated},
		{Type: evSyn},
		{Type: evRel, Code: relX, Value: 4},
	} {
		_, ok := tr.observe(ie)
		require.False(t, ok, "%+v", ie)
	}
}

func TestEvdevOptions(t *testing.T) {
	require.Equal(t, DefaultDevicesFile, applyEvdevOptions(nil).devicesFile)
	require.Equal(t, "/tmp/devices", applyEvdevOptions([]EvdevOption{WithDevicesFile("/tmp/devices")}).devicesFile)
	require.Equal(t, DefaultDevicesFile, applyEvdevOptions([]EvdevOption{WithDevicesFile("")}).devicesFile)
}
