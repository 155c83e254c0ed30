package basic

import (
	"errors"
	"strings"
	"testing"
)

func newTestBridge(t *testing.T, src string) (*Bridge, *strings.Builder) {
	t.Helper()
	out := &strings.Builder{}
	opts := DefaultOptions()
	opts.Output = out
	b := NewBridge(NewRecordingBackend(), opts)
	if err := b.LoadProgram(src); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	return b, out
}

const hookProgram = `
10 YIELD
20 GOTO 10

1000 REM ON_INIT
1010 X = 100
1020 RETURN

2000 REM ON_TICK
2010 X = X + 1
2015 T = T + DT
2020 RETURN

3000 REM ON_DRAW
3010 PRINT "D";
3020 RETURN

3500 PRINT "L";
3510 RETURN
`

func TestBridgeHooks(t *testing.T) {
	b, out := newTestBridge(t, hookProgram)

	running, err := b.Update(0.25)
	if err != nil || !running {
		t.Fatalf("Update = %v, %v", running, err)
	}
	if got := b.Variables().Get("X"); got != NumberValue(101) {
		t.Errorf("X = %v after first update, want 101", got)
	}
	if running, err = b.Update(0.25); err != nil || !running {
		t.Fatalf("Update = %v, %v", running, err)
	}
	if got := b.Variables().Get("X"); got != NumberValue(102) {
		t.Errorf("X = %v after second update, init must run once", got)
	}
	if got := b.Variables().Get("T"); got != NumberValue(0.5) {
		t.Errorf("T = %v, want the sum of DT", got)
	}

	if err := b.Draw(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "DL" {
		t.Errorf("draw output = %q, want draw then late draw", out.String())
	}
	if b.State() != StateSuspended || b.Executor().Runtime().StackDepth() != 0 {
		t.Errorf("state = %v, depth %d", b.State(), b.Executor().Runtime().StackDepth())
	}
}

func TestBridgeRejectedLoadKeepsProgram(t *testing.T) {
	b, _ := newTestBridge(t, "10 X = X + 1\n20 YIELD\n30 GOTO 10")
	b.Update(0.016)

	err := b.LoadProgram("10 PRINT \"OOPS")
	if !errors.Is(err, ErrUnterminatedString) {
		t.Fatalf("LoadProgram = %v", err)
	}
	if !strings.HasPrefix(b.Source(), "10 X = X + 1") {
		t.Errorf("Source = %q, old program replaced", b.Source())
	}
	if got := b.Variables().Get("X"); got != NumberValue(1) {
		t.Errorf("X = %v, variables were reset", got)
	}
	if running, err := b.Update(0.016); !running || err != nil {
		t.Fatalf("Update = %v, %v", running, err)
	}
	if got := b.Variables().Get("X"); got != NumberValue(2) {
		t.Errorf("X = %v, old program stopped running", got)
	}

	if err := b.LoadProgram("10 Y = 1"); err != nil {
		t.Fatal(err)
	}
	if b.State() != StateReady || b.Variables().Has("X") {
		t.Errorf("state = %v after reload, X kept: %v", b.State(), b.Variables().Has("X"))
	}
}

func TestBridgeEnds(t *testing.T) {
	b, out := newTestBridge(t, "10 PRINT \"HI\"\n20 END")
	running, err := b.Update(0.016)
	if err != nil || running {
		t.Fatalf("Update = %v, %v", running, err)
	}
	if !b.IsEnded() || out.String() != "HI\n" {
		t.Errorf("IsEnded = %v, output %q", b.IsEnded(), out.String())
	}
	if running, _ := b.Update(0.016); running {
		t.Error("halted program resumed")
	}
}

func TestBridgeCallSubroutine(t *testing.T) {
	b, _ := newTestBridge(t, "10 DIM A(3)\n20 YIELD\n30 GOTO 20\n500 A(1) = A(1) + 1\n510 RETURN")
	if _, err := b.Update(0.016); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := b.CallSubroutine(500); err != nil {
			t.Fatal(err)
		}
	}
	if got, err := b.Variables().GetIndexed("A", 1); err != nil || got != NumberValue(2) {
		t.Errorf("A(1) = %v, %v", got, err)
	}
	if err := b.CallSubroutine(4000); err != nil {
		t.Errorf("missing line = %v", err)
	}
	if b.State() != StateSuspended {
		t.Errorf("state = %v", b.State())
	}
}

func TestBridgeHookError(t *testing.T) {
	b, _ := newTestBridge(t, "10 YIELD\n20 GOTO 10\n2000 X = 1 / 0\n2010 RETURN")
	_, err := b.Update(0.016)
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("Update = %v", err)
	}
	if !b.IsEnded() {
		t.Error("bridge keeps running after a hook error")
	}
}

func TestBridgeReset(t *testing.T) {
	b, _ := newTestBridge(t, hookProgram)
	b.Update(0.016)
	b.Update(0.016)
	b.Reset()
	if b.State() != StateReady || b.Variables().Has("X") {
		t.Fatalf("state = %v after Reset", b.State())
	}
	b.Update(0.016)
	if got := b.Variables().Get("X"); got != NumberValue(101) {
		t.Errorf("X = %v, init did not run again", got)
	}
}

func TestBridgeIDs(t *testing.T) {
	a := NewBridge(nil, DefaultOptions())
	b := NewBridge(nil, DefaultOptions())
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("IDs %q and %q", a.ID(), b.ID())
	}
	if _, ok := a.Backend().(NullBackend); !ok {
		t.Errorf("nil backend became %T", a.Backend())
	}
	if running, err := a.Update(0.016); running || err != nil {
		t.Errorf("empty program Update = %v, %v", running, err)
	}
}
