package shared

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMessageTypeString(t *testing.T) {
	tests := []struct {
		t    MessageType
		want string
	}{
		{MessageTypePlot, "PLOT"},
		{MessageTypeKeyDown, "KEYDOWN"},
		{MessageType(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.t), got, tt.want)
		}
	}
}

func TestKeyMessageFromClient(t *testing.T) {
	var got Message
	if err := json.Unmarshal([]byte(`{"type":16,"key":"ArrowLeft"}`), &got); err != nil {
		t.Fatal(err)
	}
	want := Message{Type: MessageTypeKeyDown, Key: "ArrowLeft"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded message mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in       string
		wantName string
		wantCode int
	}{
		{"a", "A", 65},
		{"ArrowLeft", "LEFT", 30},
		{" ", " ", 32},
		{"Enter", "ENTER", 13},
		{"F13", "", 0},
		{"right", "RIGHT", 31},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name := NormalizeKey(tt.in)
			if name != tt.wantName {
				t.Fatalf("NormalizeKey(%q) = %q, want %q", tt.in, name, tt.wantName)
			}
			if code := KeyCode(name); code != tt.wantCode {
				t.Errorf("KeyCode(%q) = %d, want %d", name, code, tt.wantCode)
			}
		})
	}
}
