package terminal

import (
	"sync"

	"github.com/antibyte/pixelbasic/pkg/basic"
	"github.com/antibyte/pixelbasic/pkg/shared"
)

// WebSocketBackend turns interpreter draw calls into messages for one
// browser client and keeps the key state the client reports.
type WebSocketBackend struct {
	mu      sync.Mutex
	emit    func(shared.Message)
	sprites map[uint32]basic.Sprite
	keys    map[string]bool
	lastKey int
}

// NewWebSocketBackend creates a backend that hands every message to emit.
func NewWebSocketBackend(emit func(shared.Message)) *WebSocketBackend {
	return &WebSocketBackend{
		emit:    emit,
		sprites: make(map[uint32]basic.Sprite),
		keys:    make(map[string]bool),
	}
}

func (b *WebSocketBackend) DrawPixel(x, y uint16, ch rune, fg, bg uint8) {
	b.emit(shared.Message{Type: shared.MessageTypePlot, X: int32(x), Y: int32(y), Ch: string(ch), FG: fg, BG: bg})
}

func (b *WebSocketBackend) Clear() {
	b.emit(shared.Message{Type: shared.MessageTypeClear})
}

func (b *WebSocketBackend) AddSprite(s basic.Sprite) {
	b.mu.Lock()
	b.sprites[s.ID] = s
	b.mu.Unlock()
	b.emit(spriteMessage(s))
}

func (b *WebSocketBackend) UpdateSprite(s basic.Sprite) {
	b.mu.Lock()
	b.sprites[s.ID] = s
	b.mu.Unlock()
	b.emit(spriteMessage(s))
}

func spriteMessage(s basic.Sprite) shared.Message {
	visible := s.Visible
	return shared.Message{
		Type:    shared.MessageTypeSprite,
		ID:      s.ID,
		X:       s.X,
		Y:       s.Y,
		Ch:      string(s.Ch),
		FG:      s.FG,
		BG:      s.BG,
		Visible: &visible,
	}
}

func (b *WebSocketBackend) HasSprite(id uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sprites[id]
	return ok
}

func (b *WebSocketBackend) KeyPressed(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.keys[key]
}

// LastKey implements basic.KeySource.
func (b *WebSocketBackend) LastKey() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastKey
}

// SpritePosition implements basic.SpriteLocator.
func (b *WebSocketBackend) SpritePosition(id uint32) (int32, int32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sprites[id]
	return s.X, s.Y, ok
}

// HandleKey applies a KEYDOWN or KEYUP from the client. Keys BASIC has no
// name for are ignored.
func (b *WebSocketBackend) HandleKey(browserKey string, down bool) {
	name := shared.NormalizeKey(browserKey)
	if name == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if down {
		b.keys[name] = true
		if code := shared.KeyCode(name); code != 0 {
			b.lastKey = code
		}
		return
	}
	delete(b.keys, name)
}

// ResetSprites forgets all sprites, used when a new program is loaded.
func (b *WebSocketBackend) ResetSprites() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sprites = make(map[uint32]basic.Sprite)
}
