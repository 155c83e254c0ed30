// Package console runs BASIC games in a local text terminal using ANSI
// escape sequences for output and raw mode for keys.
package console

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/antibyte/pixelbasic/pkg/basic"
)

// DefaultKeyHold is how long a key counts as held after its last repeat.
// Terminals report no key release, so KEY() relies on auto repeat.
const DefaultKeyHold = 150 * time.Millisecond

type cellPos struct{ x, y uint16 }

type cell struct {
	ch     rune
	fg, bg uint8
}

// Console is a basic.Backend that draws into a terminal.
type Console struct {
	mu      sync.Mutex
	out     *bufio.Writer
	width   int
	height  int
	cells   map[cellPos]cell
	sprites map[uint32]basic.Sprite

	pressed map[string]time.Time
	lastKey int
	hold    time.Duration
	now     func() time.Time
}

// New creates a console writing to w. A width or height of 0 disables
// clipping in that direction.
func New(w io.Writer, width, height int) *Console {
	return &Console{
		out:     bufio.NewWriter(w),
		width:   width,
		height:  height,
		cells:   make(map[cellPos]cell),
		sprites: make(map[uint32]basic.Sprite),
		pressed: make(map[string]time.Time),
		hold:    DefaultKeyHold,
		now:     time.Now,
	}
}

func (c *Console) visible(x, y int32) bool {
	if x < 0 || y < 0 {
		return false
	}
	return (c.width == 0 || int(x) < c.width) && (c.height == 0 || int(y) < c.height)
}

// writeCell must be called with mu held.
func (c *Console) writeCell(x, y uint16, ce cell) {
	if !c.visible(int32(x), int32(y)) {
		return
	}
	fmt.Fprintf(c.out, "\x1b[%d;%dH%s%c", int(y)+1, int(x)+1, colorSeq(ce.fg, ce.bg), ce.ch)
}

// colorSeq maps the 16 color palette onto ANSI SGR codes.
func colorSeq(fg, bg uint8) string {
	fgCode := 30 + int(fg&7)
	if fg&8 != 0 {
		fgCode = 90 + int(fg&7)
	}
	bgCode := 40 + int(bg&7)
	if bg&8 != 0 {
		bgCode = 100 + int(bg&7)
	}
	return fmt.Sprintf("\x1b[%d;%dm", fgCode, bgCode)
}

func (c *Console) DrawPixel(x, y uint16, ch rune, fg, bg uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ce := cell{ch: ch, fg: fg & 15, bg: bg & 15}
	c.cells[cellPos{x, y}] = ce
	c.writeCell(x, y, ce)
}

func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cells = make(map[cellPos]cell)
	c.out.WriteString("\x1b[0m\x1b[2J\x1b[H")
}

func (c *Console) AddSprite(s basic.Sprite) { c.placeSprite(s) }

func (c *Console) UpdateSprite(s basic.Sprite) { c.placeSprite(s) }

// placeSprite restores the cell under the old position and draws the
// sprite at its new one.
func (c *Console) placeSprite(s basic.Sprite) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.sprites[s.ID]; ok && old.Visible && c.visible(old.X, old.Y) {
		pos := cellPos{uint16(old.X), uint16(old.Y)}
		under, ok := c.cells[pos]
		if !ok {
			under = cell{ch: ' ', fg: basic.DefaultFG, bg: basic.DefaultBG}
		}
		c.writeCell(pos.x, pos.y, under)
	}
	c.sprites[s.ID] = s
	if s.Visible && c.visible(s.X, s.Y) {
		c.writeCell(uint16(s.X), uint16(s.Y), cell{ch: s.Ch, fg: s.FG & 15, bg: s.BG & 15})
	}
}

func (c *Console) HasSprite(id uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sprites[id]
	return ok
}

func (c *Console) KeyPressed(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.pressed[key]
	return ok && c.now().Sub(at) <= c.hold
}

// LastKey implements basic.KeySource.
func (c *Console) LastKey() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastKey
}

// SpritePosition implements basic.SpriteLocator.
func (c *Console) SpritePosition(id uint32) (int32, int32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sprites[id]
	return s.X, s.Y, ok
}

// Press records a key press by its BASIC name.
func (c *Console) Press(name string, code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pressed[name] = c.now()
	if code != 0 {
		c.lastKey = code
	}
}

// Flush writes buffered output to the terminal.
func (c *Console) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Flush()
}

// TextWriter returns a writer for PRINT output that keeps line breaks
// working in raw mode.
func (c *Console) TextWriter() io.Writer { return crlfWriter{c} }

type crlfWriter struct{ c *Console }

func (w crlfWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	for _, b := range p {
		if b == '\n' {
			w.c.out.WriteByte('\r')
		}
		w.c.out.WriteByte(b)
	}
	return len(p), nil
}
