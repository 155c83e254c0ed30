package basic

import (
	"strings"
	"sync"
)

// Sprite is the full state of one sprite as set by the SPRITE statement.
type Sprite struct {
	ID      uint32
	X, Y    int32
	Ch      rune
	FG, BG  uint8
	Visible bool
}

// Backend is implemented by the host. The interpreter never owns a display
// or an input device; every game statement and KEY() go through here.
// Calls are synchronous and must return immediately.
type Backend interface {
	DrawPixel(x, y uint16, ch rune, fg, bg uint8)
	Clear()
	AddSprite(s Sprite)
	UpdateSprite(s Sprite)
	HasSprite(id uint32) bool
	// KeyPressed reports whether the named key is held. Names are upper
	// case: single characters ("W", " ") or names such as "LEFT".
	KeyPressed(key string) bool
}

// KeySource is an optional Backend extension backing INKEY.
type KeySource interface {
	// LastKey returns the code of the most recent key press, 0 if none.
	LastKey() int
}

// SpriteLocator is an optional Backend extension backing SPRITEX, SPRITEY
// and SPRITEHIT.
type SpriteLocator interface {
	SpritePosition(id uint32) (x, y int32, ok bool)
}

// NullBackend discards all output and reports no input.
type NullBackend struct{}

func (NullBackend) DrawPixel(x, y uint16, ch rune, fg, bg uint8) {}
func (NullBackend) Clear()                                       {}
func (NullBackend) AddSprite(s Sprite)                           {}
func (NullBackend) UpdateSprite(s Sprite)                        {}
func (NullBackend) HasSprite(id uint32) bool                     { return false }
func (NullBackend) KeyPressed(key string) bool                   { return false }

// DrawCommand is one call recorded by RecordingBackend.
type DrawCommand struct {
	Op     string // PLOT, CLS, ADD_SPRITE, UPDATE_SPRITE
	X, Y   int
	Ch     rune
	FG, BG uint8
	Sprite Sprite
}

// RecordingBackend keeps every call in memory. It is meant for tests,
// headless runs and replays, and is safe to feed keys from another goroutine.
type RecordingBackend struct {
	mu       sync.Mutex
	commands []DrawCommand
	sprites  map[uint32]Sprite
	keys     map[string]bool
	lastKey  int
}

// NewRecordingBackend creates an empty recorder.
func NewRecordingBackend() *RecordingBackend {
	return &RecordingBackend{
		sprites: make(map[uint32]Sprite),
		keys:    make(map[string]bool),
	}
}

func (b *RecordingBackend) DrawPixel(x, y uint16, ch rune, fg, bg uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = append(b.commands, DrawCommand{Op: "PLOT", X: int(x), Y: int(y), Ch: ch, FG: fg, BG: bg})
}

func (b *RecordingBackend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = append(b.commands, DrawCommand{Op: "CLS"})
}

func (b *RecordingBackend) AddSprite(s Sprite) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sprites[s.ID] = s
	b.commands = append(b.commands, DrawCommand{Op: "ADD_SPRITE", Sprite: s})
}

func (b *RecordingBackend) UpdateSprite(s Sprite) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sprites[s.ID] = s
	b.commands = append(b.commands, DrawCommand{Op: "UPDATE_SPRITE", Sprite: s})
}

func (b *RecordingBackend) HasSprite(id uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sprites[id]
	return ok
}

func (b *RecordingBackend) KeyPressed(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.keys[strings.ToUpper(key)]
}

// LastKey implements KeySource.
func (b *RecordingBackend) LastKey() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastKey
}

// SpritePosition implements SpriteLocator.
func (b *RecordingBackend) SpritePosition(id uint32) (int32, int32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sprites[id]
	return s.X, s.Y, ok
}

// SetKey marks a key as held or released.
func (b *RecordingBackend) SetKey(key string, down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key = strings.ToUpper(key)
	if down {
		b.keys[key] = true
		if r := []rune(key); len(r) == 1 {
			b.lastKey = int(r[0])
		}
		return
	}
	delete(b.keys, key)
}

// Commands returns a copy of the recorded calls.
func (b *RecordingBackend) Commands() []DrawCommand {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]DrawCommand, len(b.commands))
	copy(out, b.commands)
	return out
}

// Plots returns only the recorded PLOT calls.
func (b *RecordingBackend) Plots() []DrawCommand {
	var plots []DrawCommand
	for _, c := range b.Commands() {
		if c.Op == "PLOT" {
			plots = append(plots, c)
		}
	}
	return plots
}

// Reset forgets recorded calls but keeps sprites and key state.
func (b *RecordingBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = nil
}
