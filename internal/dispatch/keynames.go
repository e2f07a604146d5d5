package dispatch

import (
	"strconv"

	"github.com/launchmenu/keyrelay/internal/tap"
)

// keyNames maps Linux input key and button codes to standard key names.
var keyNames = map[uint32]string{
	1: "ESCAPE", 2: "1", 3: "2", 4: "3", 5: "4", 6: "5", 7: "6", 8: "7", 9: "8", 10: "9", 11: "0",
	12: "MINUS", 13: "EQUALS", 14: "BACKSPACE", 15: "TAB",
	16: "Q", 17: "W", 18: "E", 19: "R", 20: "T", 21: "Y", 22: "U", 23: "I", 24: "O", 25: "P",
	26: "SQUARE BRACKET OPEN", 27: "SQUARE BRACKET CLOSE", 28: "RETURN", 29: "LEFT CTRL",
	30: "A", 31: "S", 32: "D", 33: "F", 34: "G", 35: "H", 36: "J", 37: "K", 38: "L",
	39: "SEMICOLON", 40: "QUOTE", 41: "BACKTICK", 42: "LEFT SHIFT", 43: "BACKSLASH",
	44: "Z", 45: "X", 46: "C", 47: "V", 48: "B", 49: "N", 50: "M",
	51: "COMMA", 52: "DOT", 53: "FORWARD SLASH", 54: "RIGHT SHIFT", 55: "NUMPAD MULTIPLY",
	56: "LEFT ALT", 57: "SPACE", 58: "CAPS LOCK",
	59: "F1", 60: "F2", 61: "F3", 62: "F4", 63: "F5", 64: "F6", 65: "F7", 66: "F8", 67: "F9", 68: "F10",
	69: "NUM LOCK", 70: "SCROLL LOCK",
	71: "NUMPAD 7", 72: "NUMPAD 8", 73: "NUMPAD 9", 74: "NUMPAD MINUS",
	75: "NUMPAD 4", 76: "NUMPAD 5", 77: "NUMPAD 6", 78: "NUMPAD PLUS",
	79: "NUMPAD 1", 80: "NUMPAD 2", 81: "NUMPAD 3", 82: "NUMPAD 0", 83: "NUMPAD DOT",
	86: "SECTION", 87: "F11", 88: "F12",
	96: "NUMPAD RETURN", 97: "RIGHT CTRL", 98: "NUMPAD DIVIDE", 99: "PRINT SCREEN", 100: "RIGHT ALT",
	102: "HOME", 103: "UP ARROW", 104: "PAGE UP", 105: "LEFT ARROW", 106: "RIGHT ARROW",
	107: "END", 108: "DOWN ARROW", 109: "PAGE DOWN", 110: "INS", 111: "DELETE",
	113: "MUTE", 114: "VOLUME DOWN", 115: "VOLUME UP", 119: "PAUSE",
	125: "LEFT META", 126: "RIGHT META", 127: "MENU",
	0x110: "MOUSE LEFT", 0x111: "MOUSE RIGHT", 0x112: "MOUSE MIDDLE", 0x113: "MOUSE X1", 0x114: "MOUSE X2",
}

// KeyName returns the standard name of ev's key or button. Codes without
// a name get a stable placeholder such as "KEY 183".
func KeyName(ev tap.Event) string {
	if name, ok := keyNames[ev.Code]; ok {
		return name
	}

	prefix := "KEY "
	if ev.Domain == tap.Mouse {
		prefix = "MOUSE BUTTON "
	}

	return prefix + strconv.FormatUint(uint64(ev.Code), 10)
}
