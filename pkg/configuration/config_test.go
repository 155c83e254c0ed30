package configuration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseINI(t *testing.T) {
	src := `
; comment
# another comment
ignored = before any section
[Server]
listen_address = :9000
tick_rate=60

[Store]
database_path = /tmp/p.db
[Server]
tick_rate = 20
`
	got := make(map[string]map[string]string)
	if err := parseINI(strings.NewReader(src), got); err != nil {
		t.Fatal(err)
	}
	want := map[string]map[string]string{
		"Server": {"listen_address": ":9000", "tick_rate": "20"},
		"Store":  {"database_path": "/tmp/p.db"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseINI mismatch (-want +got):\n%s", diff)
	}
}

func TestGetters(t *testing.T) {
	src := "[Server]\ntick_rate = 45\nidle = 90s\nbroken = abc\n[TLS]\nenabled = true\n[Console]\nscale = 1.5\n"
	if err := LoadFromReader(strings.NewReader(src)); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { globalConfig = nil })

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"int", GetInt("Server", "tick_rate", 30), 45},
		{"int fallback on parse error", GetInt("Server", "broken", 7), 7},
		{"missing key", GetString("Server", "listen_address", ":8080"), ":8080"},
		{"missing section", GetString("Nope", "x", "d"), "d"},
		{"bool", GetBool("TLS", "enabled", false), true},
		{"float", GetFloat("Console", "scale", 1), 1.5},
		{"duration", GetDuration("Server", "idle", time.Minute), 90 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}

	SetString("Store", "database_path", "x.db")
	if diff := cmp.Diff(map[string]string{"database_path": "x.db"}, GetSection("Store")); diff != "" {
		t.Errorf("GetSection mismatch (-want +got):\n%s", diff)
	}
	if err := Save(); err == nil {
		t.Error("Save without a backing file succeeded")
	}
}

func TestDefaultsWithoutConfig(t *testing.T) {
	globalConfig = nil
	if got := GetInt("Server", "tick_rate", 30); got != 30 {
		t.Errorf("tick_rate = %d", got)
	}
	if got := GetSection("Server"); len(got) != 0 {
		t.Errorf("GetSection = %v", got)
	}
}

func TestDefaultFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "settings.cfg")
	created, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	if created.settings["Store"]["max_program_kb"] != "256" {
		t.Errorf("Store defaults = %v", created.settings["Store"])
	}

	reread, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(created.settings, reread.settings); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	local := filepath.Join(filepath.Dir(path), "settings.local.cfg")
	if err := os.WriteFile(local, []byte("[Server]\ntick_rate = 99\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := reread.mergeFile(local); err != nil {
		t.Fatal(err)
	}
	if got := reread.settings["Server"]["tick_rate"]; got != "99" {
		t.Errorf("local override tick_rate = %q", got)
	}
	if got := reread.settings["Server"]["listen_address"]; got != ":8080" {
		t.Errorf("listen_address = %q, merge dropped keys", got)
	}
}
