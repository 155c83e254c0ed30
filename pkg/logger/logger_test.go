package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func useWriterLogger(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetGlobal(NewWriterLogger(&buf, level))
	t.Cleanup(func() { SetGlobal(nil) })
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := useWriterLogger(t, WARN)

	Debug(AreaInterpreter, "hidden %d", 1)
	Info(AreaBridge, "hidden too")
	Warn(AreaStore, "disk %s", "slow")
	Error(AreaSession, "session %s gone", "abc")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "WARN") || !strings.Contains(lines[0], "[STORE] disk slow") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR") || !strings.Contains(lines[1], "[SESSION] session abc gone") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.Contains(lines[0], "logger_test.go:") {
		t.Errorf("caller missing in %q", lines[0])
	}
}

func TestAreaSwitches(t *testing.T) {
	buf := useWriterLogger(t, DEBUG)

	DisableArea(AreaWebSocket)
	Info(AreaWebSocket, "dropped")
	if buf.Len() != 0 || GetAreaStatus(AreaWebSocket) {
		t.Fatalf("disabled area logged: %q", buf.String())
	}
	EnableArea(AreaWebSocket)
	Info(AreaWebSocket, "kept")
	if !strings.Contains(buf.String(), "[WEBSOCKET] kept") {
		t.Errorf("output = %q", buf.String())
	}
	Info(LogArea("unknown"), "never")
	if strings.Contains(buf.String(), "never") {
		t.Error("unknown area logged")
	}
}

func TestNoopWithoutLogger(t *testing.T) {
	SetGlobal(nil)
	Info(AreaGeneral, "nothing happens")
	Close()
	if GetAreaStatus(AreaGeneral) {
		t.Error("area enabled without a logger")
	}
	if err := ReloadConfig(); err == nil {
		t.Error("ReloadConfig without a logger succeeded")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": DEBUG, "INFO": INFO, "warning": WARN, "Warn": WARN,
		"ERROR": ERROR, "fatal": FATAL, "bogus": INFO,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	l := &Logger{
		areaEnabled:   map[LogArea]*int32{},
		logPath:       filepath.Join(dir, "logs", "pixelbasic.log"),
		rotationCount: 2,
	}
	if err := l.openLogFile(); err != nil {
		t.Fatal(err)
	}
	defer l.file.Close()

	l.writeLog(INFO, AreaGeneral, "first")
	l.mutex.Lock()
	err := l.rotateLocked()
	l.mutex.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	l.writeLog(INFO, AreaGeneral, "second")

	old, err := os.ReadFile(l.logPath + ".1")
	if err != nil {
		t.Fatalf("rotated file: %v", err)
	}
	if !strings.Contains(string(old), "first") {
		t.Errorf("rotated file = %q", old)
	}
	cur, _ := os.ReadFile(l.logPath)
	if strings.Contains(string(cur), "first") || !strings.Contains(string(cur), "second") {
		t.Errorf("current file = %q", cur)
	}
}
