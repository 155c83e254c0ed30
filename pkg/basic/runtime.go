package basic

// ExecState is the interpreter's lifecycle state.
type ExecState int

const (
	StateReady     ExecState = iota // loaded, nothing executed yet
	StateRunning                    // dispatching statements
	StateSuspended                  // parked at YIELD or WAIT
	StateHalted                     // END or ran off the end of the program
	StateErrored                    // a runtime error was raised
)

func (s ExecState) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateSuspended:
		return "SUSPENDED"
	case StateHalted:
		return "HALTED"
	case StateErrored:
		return "ERRORED"
	}
	return "UNKNOWN"
}

// DefaultMaxStackDepth is the classic limit for nested GOSUB and FOR frames.
const DefaultMaxStackDepth = 100

// Position addresses a statement: a line number and an index into the
// line's inlined statement list.
type Position struct {
	Line uint16
	Stmt int
}

type frameKind int

const (
	frameGosub frameKind = iota
	frameFor
)

// ForLoopInfo is the state of one active FOR loop.
type ForLoopInfo struct {
	Variable string
	EndValue float64
	Step     float64
	Body     Position // first statement after the FOR
}

// controlFrame is one entry of the shared GOSUB/FOR stack.
type controlFrame struct {
	kind      frameKind
	ret       Position // gosub: where RETURN continues
	retEnded  bool     // gosub: the caller had no next statement
	synthetic bool     // pushed by a host subroutine call
	loop      ForLoopInfo
}

// Runtime holds the program counter, the control stack, the DATA pointer
// and the suspension state. It is plain data so a suspended program can be
// inspected and resumed by simply stepping again.
type Runtime struct {
	program  *Program
	pc       Position
	ended    bool // pc ran past the last statement
	current  Position
	stack    []controlFrame
	maxDepth int
	dataPtr  int
	state    ExecState

	waiting   bool
	waitUntil float64
}

// NewRuntime creates a runtime positioned before the first line.
func NewRuntime(prog *Program, maxDepth int) *Runtime {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxStackDepth
	}
	r := &Runtime{program: prog, maxDepth: maxDepth}
	r.Reset()
	return r
}

// Reset returns to the Ready state at the first line.
func (r *Runtime) Reset() {
	r.stack = r.stack[:0]
	r.dataPtr = 0
	r.state = StateReady
	r.waiting = false
	r.waitUntil = 0
	r.current = Position{}
	if first, ok := r.program.First(); ok {
		r.pc = Position{Line: first}
		r.ended = false
	} else {
		r.pc = Position{}
		r.ended = true
	}
}

// State returns the lifecycle state.
func (r *Runtime) State() ExecState { return r.state }

func (r *Runtime) setState(s ExecState) { r.state = s }

// PC returns the position of the next statement to execute.
func (r *Runtime) PC() Position { return r.pc }

// CurrentLine is the line of the statement executed last.
func (r *Runtime) CurrentLine() uint16 { return r.current.Line }

// StackDepth counts GOSUB and FOR frames.
func (r *Runtime) StackDepth() int { return len(r.stack) }

// GosubDepth counts only GOSUB frames.
func (r *Runtime) GosubDepth() int {
	n := 0
	for _, f := range r.stack {
		if f.kind == frameGosub {
			n++
		}
	}
	return n
}

// ForLoops returns the active loops, outermost first.
func (r *Runtime) ForLoops() []ForLoopInfo {
	var loops []ForLoopInfo
	for _, f := range r.stack {
		if f.kind == frameFor {
			loops = append(loops, f.loop)
		}
	}
	return loops
}

// nextStatement returns the statement at the program counter and advances
// the counter past it. ok is false once the program has run off its end.
func (r *Runtime) nextStatement() (Statement, bool) {
	for !r.ended {
		line, exists := r.program.Line(r.pc.Line)
		if exists && r.pc.Stmt < len(line.code) {
			stmt := line.code[r.pc.Stmt]
			r.current = r.pc
			r.pc.Stmt++
			return stmt, true
		}
		r.skipToNextLine()
	}
	return nil, false
}

// skipToNextLine moves the counter to the first statement of the following line.
func (r *Runtime) skipToNextLine() {
	next, ok := r.program.After(r.pc.Line)
	if !ok {
		r.ended = true
		return
	}
	r.pc = Position{Line: next}
}

// jump moves the counter to the start of a line.
func (r *Runtime) jump(line uint16) error {
	if !r.program.HasLine(line) {
		return undefinedLine(int(line))
	}
	r.pc = Position{Line: line}
	r.ended = false
	return nil
}

// jumpTo restores an exact position, as RETURN and NEXT do.
func (r *Runtime) jumpTo(pos Position, ended bool) {
	r.pc = pos
	r.ended = ended
}

func (r *Runtime) push(f controlFrame) error {
	if len(r.stack) >= r.maxDepth {
		return NewBASICError(KindStackOverflow, "")
	}
	r.stack = append(r.stack, f)
	return nil
}

// pushGosub saves the current counter as return address.
func (r *Runtime) pushGosub(synthetic bool) error {
	return r.push(controlFrame{kind: frameGosub, ret: r.pc, retEnded: r.ended, synthetic: synthetic})
}

// popGosub discards FOR frames above the nearest GOSUB frame and returns it.
func (r *Runtime) popGosub() (controlFrame, error) {
	for i := len(r.stack) - 1; i >= 0; i-- {
		if r.stack[i].kind == frameGosub {
			f := r.stack[i]
			r.stack = r.stack[:i]
			return f, nil
		}
	}
	return controlFrame{}, NewBASICError(KindReturnWithoutGosub, "")
}

// findFor locates the FOR frame for name within the current GOSUB level.
// An empty name matches the innermost loop.
func (r *Runtime) findFor(name string) int {
	for i := len(r.stack) - 1; i >= 0; i-- {
		f := r.stack[i]
		if f.kind == frameGosub {
			return -1
		}
		if name == "" || f.loop.Variable == name {
			return i
		}
	}
	return -1
}

// pushFor starts a loop. An older frame on the same variable at this GOSUB
// level is dropped together with everything above it.
func (r *Runtime) pushFor(loop ForLoopInfo) error {
	if i := r.findFor(loop.Variable); i >= 0 {
		r.stack = r.stack[:i]
	}
	return r.push(controlFrame{kind: frameFor, loop: loop})
}

// truncate drops frames down to depth.
func (r *Runtime) truncate(depth int) {
	if depth < len(r.stack) {
		r.stack = r.stack[:depth]
	}
}

// Daten-Zeiger

func (r *Runtime) readData() (BASICValue, error) {
	data := r.program.Data()
	if r.dataPtr >= len(data) {
		return BASICValue{}, NewBASICError(KindOutOfData, "")
	}
	v := data[r.dataPtr]
	r.dataPtr++
	return v, nil
}

func (r *Runtime) restoreData(line uint16, hasLine bool) {
	if !hasLine {
		r.dataPtr = 0
		return
	}
	r.dataPtr = r.program.dataIndexFrom(line)
}

// DataPointer is the index of the next DATA literal READ will consume.
func (r *Runtime) DataPointer() int { return r.dataPtr }

func (r *Runtime) suspend(until float64, timed bool) {
	r.state = StateSuspended
	r.waiting = timed
	r.waitUntil = until
}

// canResume reports whether a suspended program may continue at time now.
func (r *Runtime) canResume(now float64) bool {
	return !r.waiting || now >= r.waitUntil
}

func (r *Runtime) resume() {
	r.state = StateRunning
	r.waiting = false
}
