// Package wire implements the relay's line protocol.
//
// The relay writes one event line per intercepted event:
//
//	KEYBOARD,DOWN,30,30,0,0,17
//	MOUSE,UP,272,0,512.5,300,18
//
// carrying domain, state, code, auxiliary code, pointer location and the
// request id. The compact single-domain form drops domain and location:
//
//	DOWN,30,30,17
//
// The controller answers with a decision line, "1,<id>" to suppress the
// event and "0,<id>" to let it through. Any verdict other than "1" allows.
package wire
