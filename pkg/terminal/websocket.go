package terminal

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/antibyte/pixelbasic/pkg/basic"
	"github.com/antibyte/pixelbasic/pkg/configuration"
	"github.com/antibyte/pixelbasic/pkg/logger"
	"github.com/antibyte/pixelbasic/pkg/shared"

	"github.com/gorilla/websocket"
)

// WebSocket-Konfiguration, siehe [Network] Sektion in settings.cfg
func getWriteWait() time.Duration {
	return configuration.GetDuration("Network", "write_wait_timeout", 10*time.Second)
}

func getPongWait() time.Duration {
	return configuration.GetDuration("Network", "pong_timeout", 90*time.Second)
}

func getPingPeriod() time.Duration {
	return (getPongWait() * 9) / 10
}

func getMaxMessageSize() int64 {
	return int64(configuration.GetInt("Network", "max_message_size_kb", 64) * 1024)
}

func getMaxChannelBuffer() int {
	return configuration.GetInt("Network", "max_channel_buffer", 4096)
}

var newline = []byte{'\n'}

// Client is one browser connection playing one program.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	server    *Server

	bridge  *basic.Bridge
	backend *WebSocketBackend
	loads   chan string

	done      chan struct{}
	closeOnce sync.Once

	// nur von runGame benutzt
	loaded bool
	halted bool
	failed bool
	frame  uint64
}

func newClient(s *Server, conn *websocket.Conn, sessionID string) *Client {
	c := &Client{
		conn:      conn,
		send:      make(chan []byte, getMaxChannelBuffer()),
		sessionID: sessionID,
		server:    s,
		loads:     make(chan string, 1),
		done:      make(chan struct{}),
	}
	c.backend = NewWebSocketBackend(c.sendMessage)
	c.bridge = basic.NewBridge(c.backend, s.opts)
	return c
}

// Close beendet die Verbindung; mehrfacher Aufruf ist erlaubt
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// enqueue drops the message if the client is gone or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		logger.Debug(logger.AreaWebSocket, "send buffer full for session %s, message dropped", c.sessionID)
		return false
	}
}

func (c *Client) sendMessage(msg shared.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error(logger.AreaWebSocket, "failed to marshal %s message: %v", msg.Type, err)
		return
	}
	c.enqueue(data)
}

// requestLoad hands a program text to the game loop.
func (c *Client) requestLoad(source string) {
	select {
	case c.loads <- source:
	case <-c.done:
	default:
		// ein Ladevorgang wartet bereits; der neuere gewinnt
		select {
		case <-c.loads:
		default:
		}
		select {
		case c.loads <- source:
		default:
		}
	}
}

// runGame drives the bridge at tickRate frames per second until the
// connection closes. A runtime error pauses the game until the next load.
func (c *Client) runGame(tickRate int) {
	if tickRate <= 0 {
		tickRate = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-c.done:
			return
		case source := <-c.loads:
			c.guard("load", func() { c.loadProgram(source) })
			last = time.Now()
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			c.guard("tick", func() { c.tick(dt) })
		}
	}
}

// guard runs fn and turns a panic into an error for this session only.
// The game stays paused until the next load.
func (c *Client) guard(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.failed = true
			logger.Error(logger.AreaBridge, "session %s: panic during %s: %v", c.sessionID, what, r)
			c.sendMessage(shared.Message{Type: shared.MessageTypeError, Content: fmt.Sprintf("?INTERNAL ERROR DURING %s", strings.ToUpper(what))})
		}
	}()
	fn()
}

func (c *Client) loadProgram(source string) {
	if err := c.bridge.LoadProgram(source); err != nil {
		c.sendMessage(shared.Message{Type: shared.MessageTypeError, Content: err.Error()})
		return
	}
	c.backend.ResetSprites()
	c.loaded, c.halted, c.failed, c.frame = true, false, false, 0
	c.sendMessage(shared.Message{Type: shared.MessageTypeClear})
}

func (c *Client) tick(dt float64) {
	if !c.loaded || c.failed {
		return
	}
	running, err := c.bridge.Update(dt)
	if err == nil {
		err = c.bridge.Draw()
	}
	if err != nil {
		c.failed = true
		logger.Info(logger.AreaBridge, "session %s: program stopped: %v", c.sessionID, err)
		c.sendMessage(shared.Message{Type: shared.MessageTypeError, Content: err.Error()})
		return
	}
	c.frame++
	c.sendMessage(shared.Message{Type: shared.MessageTypeFrame, Frame: c.frame})
	if !running && !c.halted {
		c.halted = true
		c.sendMessage(shared.Message{Type: shared.MessageTypeHalt})
	}
}

// readPump liest Nachrichten vom WebSocket, bis die Verbindung endet
func (c *Client) readPump() {
	defer c.server.cleanupClient(c)

	c.conn.SetReadLimit(getMaxMessageSize())
	c.conn.SetReadDeadline(time.Now().Add(getPongWait()))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(getPongWait()))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				logger.Warn(logger.AreaWebSocket, "unexpected close for session %s: %v", c.sessionID, err)
			} else {
				logger.Debug(logger.AreaWebSocket, "connection closed for session %s: %v", c.sessionID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := c.server.sessions.CheckLimits(c.sessionID, len(data)); err != nil {
			logger.Warn(logger.AreaSecurity, "%v", err)
			continue
		}
		msg, err := c.server.validator.Validate(data)
		if err != nil {
			logger.Debug(logger.AreaSecurity, "rejected message from session %s: %v", c.sessionID, err)
			c.sendMessage(shared.Message{Type: shared.MessageTypeError, Content: err.Error()})
			continue
		}

		switch msg.Type {
		case shared.MessageTypeKeyDown:
			c.backend.HandleKey(msg.Key, true)
		case shared.MessageTypeKeyUp:
			c.backend.HandleKey(msg.Key, false)
		case shared.MessageTypeLoad:
			c.requestLoad(msg.Content)
		}
	}
}

// writePump schreibt gepufferte Nachrichten und Pings
func (c *Client) writePump() {
	ticker := time.NewTicker(getPingPeriod())
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// weitere wartende Nachrichten im selben Frame mitschicken
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug(logger.AreaWebSocket, "ping to session %s failed: %v", c.sessionID, err)
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
