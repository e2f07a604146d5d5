package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	kerrors "github.com/launchmenu/keyrelay/internal/errors"
	"github.com/launchmenu/keyrelay/internal/tap"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()

	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestFormatEvent_Golden(t *testing.T) {
	var buf bytes.Buffer

	buf.Write(FormatEvent(tap.Event{Domain: tap.Keyboard, State: tap.Down, Code: 30, AuxCode: 30}, 1))
	buf.Write(FormatEvent(tap.Event{Domain: tap.Keyboard, State: tap.Up, Code: 30, AuxCode: 30}, 2))
	buf.Write(FormatEvent(tap.Event{Domain: tap.Mouse, State: tap.Down, Code: 272, X: 512.5, Y: 300}, 3))
	buf.Write(FormatEvent(tap.Event{Domain: tap.Mouse, State: tap.Up, Code: 272, X: 512.5, Y: 300}, 4))
	// Keyboard events never carry a location.
	buf.Write(FormatEvent(tap.Event{Domain: tap.Keyboard, State: tap.Down, Code: 125, AuxCode: 219, X: 9, Y: 9}, 18446744073709551615))

	newGoldie(t).Assert(t, "event_lines", buf.Bytes())
}

func TestFormatCompactEvent_Golden(t *testing.T) {
	var buf bytes.Buffer

	buf.Write(FormatCompactEvent(tap.Event{State: tap.Down, Code: 4}, 1))
	buf.Write(FormatCompactEvent(tap.Event{State: tap.Up, Code: 4}, 2))
	buf.Write(FormatCompactEvent(tap.Event{Domain: tap.Mouse, State: tap.Down, Code: 1, AuxCode: 7, X: 3, Y: 4}, 3))

	newGoldie(t).Assert(t, "compact_event_lines", buf.Bytes())
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Decision
	}{
		{"suppress", "1,3", Decision{Verdict: tap.Suppress, ID: 3}},
		{"allow", "0,1", Decision{Verdict: tap.Allow, ID: 1}},
		{"trailing carriage return", "1,42\r", Decision{Verdict: tap.Suppress, ID: 42}},
		{"padded fields", " 1 , 7 ", Decision{Verdict: tap.Suppress, ID: 7}},
		{"any other verdict allows", "yes,5", Decision{Verdict: tap.Allow, ID: 5}},
		{"non-numeric id targets zero", "1,abc", Decision{Verdict: tap.Suppress, ID: 0}},
		{"negative id targets zero", "1,-4", Decision{Verdict: tap.Suppress, ID: 0}},
		{"missing id targets zero", "1", Decision{Verdict: tap.Suppress, ID: 0}},
		{"empty line", "", Decision{Verdict: tap.Allow, ID: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ParseDecision(tt.line))
		})
	}
}

func TestFormatDecision(t *testing.T) {
	require.Equal(t, "1,12\n", string(FormatDecision(tap.Suppress, 12)))
	require.Equal(t, "0,13\n", string(FormatDecision(tap.Allow, 13)))
}

func TestDecision_Reparse(t *testing.T) {
	for _, v := range []tap.Verdict{tap.Allow, tap.Suppress} {
		d := ParseDecision(string(FormatDecision(v, 99)))
		require.Equal(t, Decision{Verdict: v, ID: 99}, d)
	}
}

func TestParseEvent_Full(t *testing.T) {
	got, err := ParseEvent("MOUSE,DOWN,272,0,512.5,300,18\n")
	require.NoError(t, err)
	require.Equal(t, EventLine{
		Event: tap.Event{Domain: tap.Mouse, State: tap.Down, Code: 272, X: 512.5, Y: 300},
		ID:    18,
	}, got)
}

func TestParseEvent_Compact(t *testing.T) {
	got, err := ParseEvent("UP,4,0,2")
	require.NoError(t, err)
	require.Equal(t, EventLine{
		Event: tap.Event{Domain: tap.Keyboard, State: tap.Up, Code: 4},
		ID:    2,
	}, got)
}

func TestParseEvent_AcceptsFormatterOutput(t *testing.T) {
	ev := tap.Event{Domain: tap.Keyboard, State: tap.Down, Code: 57, AuxCode: 57}

	got, err := ParseEvent(string(FormatEvent(ev, 5)))
	require.NoError(t, err)
	require.Equal(t, EventLine{Event: ev, ID: 5}, got)
}

func TestParseEvent_Errors(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		malformed bool
	}{
		{"wrong field count", "KEYBOARD,DOWN,30", true},
		{"unknown domain", "TOUCH,DOWN,1,0,0,0,1", true},
		{"unknown state", "KEYBOARD,SIDEWAYS,1,0,0,0,1", true},
		{"bad code", "DOWN,x,0,1", false},
		{"bad aux code", "DOWN,1,x,1", false},
		{"bad id", "DOWN,1,0,x", false},
		{"bad x", "MOUSE,DOWN,1,0,left,0,1", false},
		{"bad y", "MOUSE,DOWN,1,0,0,top,1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent(tt.line)
			require.Error(t, err)

			parseErr, ok := errors.AsType[*kerrors.LineParseError](err)
			require.True(t, ok)
			require.Equal(t, tt.line, parseErr.Line)
			require.Equal(t, tt.malformed, errors.Is(err, kerrors.ErrMalformedLine))
		})
	}
}
