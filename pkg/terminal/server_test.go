package terminal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/antibyte/pixelbasic/pkg/auth"
	"github.com/antibyte/pixelbasic/pkg/basic"
	"github.com/antibyte/pixelbasic/pkg/resources"
	"github.com/antibyte/pixelbasic/pkg/shared"
	"github.com/antibyte/pixelbasic/pkg/store"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

type memStore struct {
	mu       sync.Mutex
	programs map[string]string
}

func newMemStore(programs map[string]string) *memStore {
	return &memStore{programs: programs}
}

func (m *memStore) Load(name string) (*store.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.programs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrProgramNotFound, name)
	}
	return &store.Program{Name: name, Source: src, Checksum: store.Checksum(src)}, nil
}

func (m *memStore) List() ([]store.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Program
	for name := range m.programs {
		out = append(out, store.Program{Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) Save(name, source string) (bool, error) {
	if _, err := basic.ParseSource(source); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.programs[name] = source
	return true, nil
}

func startServer(t *testing.T, programs map[string]string) (*Server, *httptest.Server) {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	srv := NewServer(resources.NewSessionManager(resources.Limits{MaxSessions: 10}), newMemStore(programs))
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		srv.Shutdown()
		ts.Close()
	})
	return srv, ts
}

func requestToken(t *testing.T, ts *httptest.Server, program string) auth.TokenResponse {
	t.Helper()
	body := fmt.Sprintf(`{"program":%q}`, program)
	resp, err := http.Post(ts.URL+"/api/token", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var tr auth.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		t.Fatal(err)
	}
	if !tr.Success {
		t.Fatalf("token request failed: %+v", tr)
	}
	return tr
}

func dial(t *testing.T, ts *httptest.Server, token, program string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token
	if program != "" {
		url += "&program=" + program
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads batched messages until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(shared.Message) bool) []shared.Message {
	t.Helper()
	var seen []shared.Message
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v (seen %d messages)", err, len(seen))
		}
		for _, line := range bytes.Split(data, newline) {
			var msg shared.Message
			if err := json.Unmarshal(line, &msg); err != nil {
				t.Fatalf("bad frame %q: %v", line, err)
			}
			seen = append(seen, msg)
			if match(msg) {
				return seen
			}
		}
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	_, ts := startServer(t, map[string]string{})

	resp, err := http.Get(ts.URL + "/ws")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestWebSocketPlaysProgram(t *testing.T) {
	_, ts := startServer(t, map[string]string{
		"dots": "10 PLOT 1, 2, \"#\", 3, 0\n20 END\n",
	})
	tr := requestToken(t, ts, "dots")
	conn := dial(t, ts, tr.Token, "")

	seen := readUntil(t, conn, func(m shared.Message) bool { return m.Type == shared.MessageTypeHalt })

	if seen[0].Type != shared.MessageTypeSession || seen[0].SessionID != tr.SessionID {
		t.Errorf("first message = %+v, want session %s", seen[0], tr.SessionID)
	}
	var plots []shared.Message
	for _, m := range seen {
		if m.Type == shared.MessageTypePlot {
			plots = append(plots, m)
		}
	}
	want := []shared.Message{{Type: shared.MessageTypePlot, X: 1, Y: 2, Ch: "#", FG: 3, BG: 0}}
	if diff := cmp.Diff(want, plots); diff != "" {
		t.Errorf("plots mismatch (-want +got):\n%s", diff)
	}
}

func TestWebSocketKeys(t *testing.T) {
	_, ts := startServer(t, map[string]string{
		"keys": "10 IF KEY(\"LEFT\") THEN PLOT 0, 0, \"L\"\n20 YIELD\n30 GOTO 10\n",
	})
	tr := requestToken(t, ts, "keys")
	conn := dial(t, ts, tr.Token, "keys")

	readUntil(t, conn, func(m shared.Message) bool { return m.Type == shared.MessageTypeFrame })
	if err := conn.WriteJSON(shared.Message{Type: shared.MessageTypeKeyDown, Key: "ArrowLeft"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(m shared.Message) bool {
		return m.Type == shared.MessageTypePlot && m.Ch == "L"
	})
}

func TestWebSocketLoadAndErrors(t *testing.T) {
	_, ts := startServer(t, map[string]string{})
	tr := requestToken(t, ts, "")
	conn := dial(t, ts, tr.Token, "missing")

	seen := readUntil(t, conn, func(m shared.Message) bool { return m.Type == shared.MessageTypeError })
	if last := seen[len(seen)-1]; !strings.Contains(last.Content, "not found") {
		t.Errorf("error = %q", last.Content)
	}

	conn.WriteJSON(shared.Message{Type: shared.MessageTypeLoad, Content: "10 PRINT \"open"})
	seen = readUntil(t, conn, func(m shared.Message) bool { return m.Type == shared.MessageTypeError })
	if last := seen[len(seen)-1]; !strings.Contains(last.Content, "UNTERMINATED STRING") {
		t.Errorf("error = %q", last.Content)
	}

	conn.WriteJSON(shared.Message{Type: shared.MessageTypeLoad, Content: "10 GOTO 999"})
	seen = readUntil(t, conn, func(m shared.Message) bool { return m.Type == shared.MessageTypeError })
	if last := seen[len(seen)-1]; last.Content != "?UNDEF'D STATEMENT ERROR IN 999" {
		t.Errorf("error = %q", last.Content)
	}
}

func TestProgramEndpoints(t *testing.T) {
	_, ts := startServer(t, map[string]string{"maze": "10 END"})
	tr := requestToken(t, ts, "")

	post := func(body string) int {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/programs", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+tr.Token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	if code := post(`{"name":"pong","source":"10 END"}`); code != http.StatusOK {
		t.Errorf("save status = %d", code)
	}
	if code := post(`{"name":"bad","source":"10 PRINT \"x"}`); code != http.StatusBadRequest {
		t.Errorf("save broken status = %d", code)
	}

	resp, err := http.Get(ts.URL + "/api/programs")
	if err != nil {
		t.Fatal(err)
	}
	var list []programInfo
	json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	var names []string
	for _, p := range list {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"maze", "pong"}, names); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}

	resp, err = http.Get(ts.URL + "/api/programs/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing program status = %d", resp.StatusCode)
	}
}

func TestValidator(t *testing.T) {
	v := NewJSONValidator(1024, 16)
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"key down", `{"type":16,"key":"a"}`, nil},
		{"load", `{"type":32,"content":"10 END"}`, nil},
		{"unknown field", `{"type":16,"key":"a","evil":1}`, ErrMessageMalformed},
		{"empty key", `{"type":17}`, ErrMessageMalformed},
		{"server type", `{"type":4,"x":1}`, ErrMessageNotAllowed},
		{"program too large", `{"type":32,"content":"10 REM 0123456789"}`, ErrMessageTooLarge},
		{"not json", `PRINT`, ErrMessageMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate([]byte(tt.data))
			if tt.wantErr == nil && err != nil || tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBackendKeysAndSprites(t *testing.T) {
	var got []shared.Message
	b := NewWebSocketBackend(func(m shared.Message) { got = append(got, m) })

	b.HandleKey("ArrowUp", true)
	if !b.KeyPressed("UP") || b.LastKey() != 28 {
		t.Errorf("after keydown: pressed=%v last=%d", b.KeyPressed("UP"), b.LastKey())
	}
	b.HandleKey("ArrowUp", false)
	if b.KeyPressed("UP") {
		t.Error("key still held after keyup")
	}

	b.AddSprite(basic.Sprite{ID: 7, X: 3, Y: 4, Ch: '@', FG: 15, Visible: true})
	if x, y, ok := b.SpritePosition(7); !ok || x != 3 || y != 4 {
		t.Errorf("SpritePosition = %d,%d,%v", x, y, ok)
	}
	if len(got) != 1 || got[0].Type != shared.MessageTypeSprite || got[0].Visible == nil || !*got[0].Visible {
		t.Errorf("sprite message = %+v", got)
	}
}

func TestGuardRecoversPanics(t *testing.T) {
	c := &Client{
		sessionID: "s1",
		send:      make(chan []byte, 4),
		done:      make(chan struct{}),
		loaded:    true,
	}
	c.guard("tick", func() { panic("index out of range") })

	if !c.failed {
		t.Error("client not marked failed after a panic")
	}
	select {
	case data := <-c.send:
		var msg shared.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatal(err)
		}
		want := shared.Message{Type: shared.MessageTypeError, Content: "?INTERNAL ERROR DURING TICK"}
		if diff := cmp.Diff(want, msg); diff != "" {
			t.Errorf("message mismatch (-want +got):\n%s", diff)
		}
	default:
		t.Fatal("no error message sent")
	}

	c.failed = false
	c.guard("tick", func() {})
	if c.failed || len(c.send) != 0 {
		t.Errorf("quiet call changed state: failed=%v queued=%d", c.failed, len(c.send))
	}
}
