package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/launchmenu/keyrelay/internal/errors"
	"github.com/launchmenu/keyrelay/internal/tap"
)

const (
	suppressToken = "1"
	allowToken    = "0"

	fullFields    = 7
	compactFields = 4
)

// Decision is a parsed decision line.
type Decision struct {
	Verdict tap.Verdict
	// ID is the request the decision answers. Zero when the line carried no
	// usable id; zero is never issued as a request id.
	ID uint64
}

// EventLine is a parsed event line.
type EventLine struct {
	Event tap.Event
	ID    uint64
}

// FormatEvent renders the full event line for request id, newline included.
func FormatEvent(ev tap.Event, id uint64) []byte {
	x, y := ev.X, ev.Y
	if ev.Domain == tap.Keyboard {
		x, y = 0, 0
	}

	b := make([]byte, 0, 48)
	b = append(b, ev.Domain.String()...)
	b = append(b, ',')
	b = append(b, ev.State.String()...)
	b = append(b, ',')
	b = strconv.AppendUint(b, uint64(ev.Code), 10)
	b = append(b, ',')
	b = strconv.AppendUint(b, uint64(ev.AuxCode), 10)
	b = append(b, ',')
	b = strconv.AppendFloat(b, x, 'f', -1, 64)
	b = append(b, ',')
	b = strconv.AppendFloat(b, y, 'f', -1, 64)
	b = append(b, ',')
	b = strconv.AppendUint(b, id, 10)

	return append(b, '\n')
}

// FormatCompactEvent renders the single-domain event line for request id.
func FormatCompactEvent(ev tap.Event, id uint64) []byte {
	b := make([]byte, 0, 32)
	b = append(b, ev.State.String()...)
	b = append(b, ',')
	b = strconv.AppendUint(b, uint64(ev.Code), 10)
	b = append(b, ',')
	b = strconv.AppendUint(b, uint64(ev.AuxCode), 10)
	b = append(b, ',')
	b = strconv.AppendUint(b, id, 10)

	return append(b, '\n')
}

// ParseDecision parses a decision line. It never fails: a missing or
// non-numeric id becomes 0, which matches no request.
func ParseDecision(line string) Decision {
	verdictField, idField, _ := strings.Cut(strings.TrimSpace(line), ",")

	d := Decision{Verdict: tap.Allow}
	if strings.TrimSpace(verdictField) == suppressToken {
		d.Verdict = tap.Suppress
	}

	if id, err := strconv.ParseUint(strings.TrimSpace(idField), 10, 64); err == nil {
		d.ID = id
	}

	return d
}

// FormatDecision renders a decision line, newline included.
func FormatDecision(v tap.Verdict, id uint64) []byte {
	token := allowToken
	if v == tap.Suppress {
		token = suppressToken
	}

	b := make([]byte, 0, 24)
	b = append(b, token...)
	b = append(b, ',')
	b = strconv.AppendUint(b, id, 10)

	return append(b, '\n')
}

// ParseEvent parses an event line in either the full or the compact form.
func ParseEvent(line string) (EventLine, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	var (
		out EventLine
		err error
	)

	switch len(fields) {
	case fullFields:
		out, err = parseFull(fields)
	case compactFields:
		out, err = parseCompact(fields)
	default:
		err = fmt.Errorf("%w: expected %d or %d fields, got %d",
			errors.ErrMalformedLine, fullFields, compactFields, len(fields))
	}

	if err != nil {
		return EventLine{}, &errors.LineParseError{Line: line, Err: err}
	}

	return out, nil
}

func parseFull(fields []string) (EventLine, error) {
	var out EventLine

	switch fields[0] {
	case tap.Keyboard.String():
		out.Event.Domain = tap.Keyboard
	case tap.Mouse.String():
		out.Event.Domain = tap.Mouse
	default:
		return out, fmt.Errorf("%w: unknown domain %q", errors.ErrMalformedLine, fields[0])
	}

	rest, err := parseCompact([]string{fields[1], fields[2], fields[3], fields[6]})
	if err != nil {
		return out, err
	}

	out.ID = rest.ID
	out.Event.State = rest.Event.State
	out.Event.Code = rest.Event.Code
	out.Event.AuxCode = rest.Event.AuxCode

	if out.Event.X, err = strconv.ParseFloat(fields[4], 64); err != nil {
		return out, fmt.Errorf("parse x: %w", err)
	}

	if out.Event.Y, err = strconv.ParseFloat(fields[5], 64); err != nil {
		return out, fmt.Errorf("parse y: %w", err)
	}

	return out, nil
}

// parseCompact parses state, code, auxCode, id.
func parseCompact(fields []string) (EventLine, error) {
	var out EventLine

	switch fields[0] {
	case tap.Down.String():
		out.Event.State = tap.Down
	case tap.Up.String():
		out.Event.State = tap.Up
	default:
		return out, fmt.Errorf("%w: unknown state %q", errors.ErrMalformedLine, fields[0])
	}

	code, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return out, fmt.Errorf("parse code: %w", err)
	}

	aux, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return out, fmt.Errorf("parse aux code: %w", err)
	}

	id, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return out, fmt.Errorf("parse id: %w", err)
	}

	out.Event.Code = uint32(code)
	out.Event.AuxCode = uint32(aux)
	out.ID = id

	return out, nil
}
