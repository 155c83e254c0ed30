package console

import (
	"errors"
	"io"
	"os"

	"github.com/antibyte/pixelbasic/pkg/logger"
	"github.com/antibyte/pixelbasic/pkg/shared"

	"golang.org/x/term"
)

// ErrNotTerminal is returned when stdin is not an interactive terminal.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// Terminal holds the raw mode state of stdin.
type Terminal struct {
	fd    int
	state *term.State
}

// OpenTerminal switches stdin to raw mode.
func OpenTerminal() (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &Terminal{fd: fd, state: state}, nil
}

// Restore leaves raw mode.
func (t *Terminal) Restore() {
	if err := term.Restore(t.fd, t.state); err != nil {
		logger.Warn(logger.AreaConsole, "restoring terminal: %v", err)
	}
}

// Size returns the size of stdout, 80x25 if it cannot be determined.
func Size() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return 80, 25
	}
	return w, h
}

// keyQuit is reported for Ctrl-C, which raw mode no longer turns into a signal.
const keyQuit = "QUIT"

// decodeKeys turns raw terminal input into BASIC key names.
func decodeKeys(buf []byte) []string {
	var keys []string
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		switch {
		case b == 0x1b && i+2 < len(buf) && buf[i+1] == '[':
			switch buf[i+2] {
			case 'A':
				keys = append(keys, "UP")
			case 'B':
				keys = append(keys, "DOWN")
			case 'C':
				keys = append(keys, "RIGHT")
			case 'D':
				keys = append(keys, "LEFT")
			case '3':
				keys = append(keys, "DELETE")
				if i+3 < len(buf) && buf[i+3] == '~' {
					i++
				}
			}
			i += 2
		case b == 0x1b:
			keys = append(keys, "ESC")
		case b == 0x03:
			keys = append(keys, keyQuit)
		case b == '\r' || b == '\n':
			keys = append(keys, "ENTER")
		case b == 0x7f || b == 0x08:
			keys = append(keys, "BACKSPACE")
		case b == '\t':
			keys = append(keys, "TAB")
		case b >= 0x20 && b < 0x7f:
			keys = append(keys, shared.NormalizeKey(string(rune(b))))
		}
	}
	return keys
}

// ReadKeys feeds key presses from r into the console until r fails or
// Ctrl-C is read; quit is called in both cases.
func (c *Console) ReadKeys(r io.Reader, quit func()) {
	defer quit()
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if err != nil {
			return
		}
		for _, key := range decodeKeys(buf[:n]) {
			if key == keyQuit {
				return
			}
			c.Press(key, shared.KeyCode(key))
		}
	}
}
