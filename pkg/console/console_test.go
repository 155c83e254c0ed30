package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/antibyte/pixelbasic/pkg/basic"
	"github.com/google/go-cmp/cmp"
)

func TestDrawPixelEscapes(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, 10, 5)

	c.DrawPixel(2, 1, '#', 9, 0)
	c.DrawPixel(20, 1, 'X', 1, 0) // clipped
	c.Flush()

	if got, want := buf.String(), "\x1b[2;3H\x1b[91;40m#"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestSpriteMoveRestoresCell(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, 0, 0)

	c.DrawPixel(1, 1, '.', 7, 0)
	c.AddSprite(basic.Sprite{ID: 1, X: 1, Y: 1, Ch: '@', FG: 15, Visible: true})
	c.Flush()
	buf.Reset()

	c.UpdateSprite(basic.Sprite{ID: 1, X: 2, Y: 1, Ch: '@', FG: 15, Visible: true})
	c.Flush()
	want := "\x1b[2;2H\x1b[37;40m." + "\x1b[2;3H\x1b[97;40m@"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if x, y, ok := c.SpritePosition(1); !ok || x != 2 || y != 1 {
		t.Errorf("SpritePosition = %d,%d,%v", x, y, ok)
	}
}

func TestDecodeKeys(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"letters", "aZ", []string{"A", "Z"}},
		{"arrows", "\x1b[A\x1b[D", []string{"UP", "LEFT"}},
		{"delete", "\x1b[3~x", []string{"DELETE", "X"}},
		{"escape and enter", "\x1b\r", []string{"ESC", "ENTER"}},
		{"ctrl-c", "\x03", []string{keyQuit}},
		{"space", " ", []string{" "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, decodeKeys([]byte(tt.in))); diff != "" {
				t.Errorf("decodeKeys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKeyHold(t *testing.T) {
	c := New(&bytes.Buffer{}, 0, 0)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.ReadKeys(strings.NewReader("\x1b[C"), func() {})
	if !c.KeyPressed("RIGHT") || c.LastKey() != 31 {
		t.Fatalf("RIGHT not held after press (last key %d)", c.LastKey())
	}
	now = now.Add(DefaultKeyHold + time.Millisecond)
	if c.KeyPressed("RIGHT") {
		t.Error("RIGHT still held after hold time")
	}
}

func TestRunStopsWhenProgramEnds(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, 0, 0)
	opts := basic.DefaultOptions()
	opts.Output = c.TextWriter()
	bridge := basic.NewBridge(c, opts)
	if err := bridge.LoadProgram("10 PRINT \"HI\"\n20 PLOT 0, 0, \"*\"\n"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Run(ctx, bridge, c, RunOptions{FrameRate: 200}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("Run only returned on timeout")
	}
	if out := buf.String(); !strings.Contains(out, "HI\r\n") || !strings.Contains(out, "*") {
		t.Errorf("output = %q", out)
	}
}

func TestRunReportsError(t *testing.T) {
	bridge := basic.NewBridge(nil, basic.DefaultOptions())
	if err := bridge.LoadProgram("10 X = 1 / 0"); err != nil {
		t.Fatal(err)
	}
	err := Run(context.Background(), bridge, nil, RunOptions{FrameRate: 200})
	if err == nil || err.Error() != "?DIVISION BY ZERO ERROR" {
		t.Errorf("err = %v", err)
	}
}
