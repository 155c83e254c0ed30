package shared

import "strings"

// Named keys as BASIC programs test them with KEY("LEFT").
var browserKeyNames = map[string]string{
	"ArrowLeft":  "LEFT",
	"ArrowRight": "RIGHT",
	"ArrowUp":    "UP",
	"ArrowDown":  "DOWN",
	"Enter":      "ENTER",
	"Escape":     "ESC",
	"Backspace":  "BACKSPACE",
	"Tab":        "TAB",
	"Delete":     "DELETE",
	"Space":      " ",
	"Spacebar":   " ",
	"Shift":      "SHIFT",
	"Control":    "CTRL",
	"Alt":        "ALT",
}

// keyCodes are the INKEY values of named keys; printable keys use their
// character code.
var keyCodes = map[string]int{
	"ENTER":     13,
	"ESC":       27,
	"BACKSPACE": 8,
	"TAB":       9,
	"DELETE":    127,
	"UP":        28,
	"DOWN":      29,
	"LEFT":      30,
	"RIGHT":     31,
}

// NormalizeKey turns a browser KeyboardEvent.key value into the upper case
// name BASIC uses. Unknown multi-character keys come back empty.
func NormalizeKey(key string) string {
	if name, ok := browserKeyNames[key]; ok {
		return name
	}
	if r := []rune(key); len(r) == 1 {
		return strings.ToUpper(key)
	}
	upper := strings.ToUpper(key)
	if _, ok := keyCodes[upper]; ok {
		return upper
	}
	return ""
}

// KeyCode returns the INKEY code of a normalized key name, 0 if it has none.
func KeyCode(name string) int {
	if code, ok := keyCodes[name]; ok {
		return code
	}
	if r := []rune(name); len(r) == 1 {
		return int(r[0])
	}
	return 0
}
