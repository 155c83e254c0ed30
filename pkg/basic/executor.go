package basic

import (
	"io"
	"math/rand"
	"time"

	"github.com/antibyte/pixelbasic/pkg/logger"
)

// Executor dispatches statements and evaluates expressions. It owns one
// Runtime and one Variables instance; nothing else mutates them.
type Executor struct {
	program   *Program
	runtime   *Runtime
	vars      *Variables
	backend   Backend
	out       io.Writer
	column    int
	functions map[string]*DefFnStmt
	rng       *rand.Rand
	lastRnd   float64
	clock     float64
	opts      Options

	inCallback bool
	fnDepth    int
	err        error // set when the executor entered StateErrored
}

// NewExecutor prepares prog for execution. A nil backend is replaced by NullBackend.
func NewExecutor(prog *Program, backend Backend, opts Options) *Executor {
	opts = opts.withDefaults()
	if backend == nil {
		backend = NullBackend{}
	}
	if prog == nil {
		prog = NewProgram()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	vars := NewVariables()
	vars.SetMaxElements(opts.MaxArrayElements)
	return &Executor{
		program:   prog,
		runtime:   NewRuntime(prog, opts.MaxStackDepth),
		vars:      vars,
		backend:   backend,
		out:       opts.Output,
		functions: make(map[string]*DefFnStmt),
		rng:       rand.New(rand.NewSource(seed)),
		opts:      opts,
	}
}

// Program returns the program being executed.
func (e *Executor) Program() *Program { return e.program }

// Runtime exposes the program counter and stacks for inspection.
func (e *Executor) Runtime() *Runtime { return e.runtime }

// Variables exposes variable storage.
func (e *Executor) Variables() *Variables { return e.vars }

// State returns the lifecycle state.
func (e *Executor) State() ExecState { return e.runtime.State() }

// Err returns the error that stopped execution, if any.
func (e *Executor) Err() error { return e.err }

// Clock is the accumulated game time in seconds.
func (e *Executor) Clock() float64 { return e.clock }

// Advance moves the game clock forward. WAIT deadlines are measured on it.
func (e *Executor) Advance(dt float64) {
	if dt > 0 {
		e.clock += dt
	}
}

// Step runs statements until a YIELD, the end of the program, an error or
// the statement budget is used up. It returns true while the program can
// continue; exhausting the budget leaves all state valid for the next call.
func (e *Executor) Step(budget int) (bool, error) {
	switch e.runtime.State() {
	case StateHalted:
		return false, nil
	case StateErrored:
		return false, e.err
	case StateSuspended:
		if !e.runtime.canResume(e.clock) {
			return true, nil
		}
		e.runtime.resume()
	case StateReady:
		e.runtime.setState(StateRunning)
		logger.Debug(logger.AreaInterpreter, "program started (%d lines)", e.program.Len())
	}

	if budget <= 0 {
		budget = e.opts.StatementBudget
	}
	for i := 0; i < budget; i++ {
		stmt, ok := e.runtime.nextStatement()
		if !ok {
			e.halt()
			return false, nil
		}
		if err := e.execute(stmt); err != nil {
			return false, e.fail(err)
		}
		switch e.runtime.State() {
		case StateSuspended:
			return true, nil
		case StateHalted:
			return false, nil
		}
	}
	logger.Debug(logger.AreaInterpreter, "statement budget of %d used up in line %d", budget, e.runtime.CurrentLine())
	return true, nil
}

// RunToEnd drives Step until the program halts, resuming every YIELD at
// once and jumping the clock to each WAIT deadline. maxSteps bounds the
// number of driven steps; running past it is a BreakIn.
func (e *Executor) RunToEnd(maxSteps int) error {
	for steps := 0; maxSteps <= 0 || steps < maxSteps; steps++ {
		if e.runtime.State() == StateSuspended && e.runtime.waiting && e.clock < e.runtime.waitUntil {
			e.clock = e.runtime.waitUntil
		}
		running, err := e.Step(e.opts.StatementBudget)
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
	}
	return e.fail(breakIn(int(e.runtime.CurrentLine())))
}

// CallSubroutine runs the subroutine at line synchronously until its
// RETURN and then restores the interrupted program counter and state.
// A missing line is not an error. YIELD and WAIT are ignored inside.
func (e *Executor) CallSubroutine(line uint16) error {
	if !e.program.HasLine(line) {
		return nil
	}
	if e.runtime.State() == StateErrored {
		return e.err
	}

	prevState := e.runtime.State()
	savedPC, savedEnded := e.runtime.pc, e.runtime.ended
	initial := e.runtime.StackDepth()

	if err := e.runtime.pushGosub(true); err != nil {
		return e.fail(err)
	}
	if err := e.runtime.jump(line); err != nil {
		return e.fail(err)
	}
	e.runtime.setState(StateRunning)
	e.inCallback = true
	defer func() { e.inCallback = false }()

	for n := 0; ; n++ {
		if n >= e.opts.CallbackBudget {
			return e.fail(breakIn(int(e.runtime.CurrentLine())))
		}
		stmt, ok := e.runtime.nextStatement()
		if !ok {
			break
		}
		if err := e.execute(stmt); err != nil {
			return e.fail(err)
		}
		if e.runtime.State() == StateHalted {
			// END inside a handler ends the whole program
			e.runtime.truncate(0)
			return nil
		}
		if e.runtime.StackDepth() <= initial {
			break
		}
	}

	e.runtime.truncate(initial)
	e.runtime.jumpTo(savedPC, savedEnded)
	e.runtime.setState(prevState)
	return nil
}

func (e *Executor) halt() {
	e.runtime.setState(StateHalted)
	logger.Debug(logger.AreaInterpreter, "program halted after line %d", e.runtime.CurrentLine())
}

func (e *Executor) fail(err error) error {
	if be, ok := AsBASICError(err); ok {
		be.WithSourceLine(int(e.runtime.CurrentLine()))
	}
	e.runtime.setState(StateErrored)
	e.err = err
	logger.Warn(logger.AreaInterpreter, "runtime error in line %d: %v", e.runtime.CurrentLine(), err)
	return err
}

// execute dispatches one statement. Assumes the statement was just fetched,
// so the program counter already points at the following one.
func (e *Executor) execute(stmt Statement) error {
	switch s := stmt.(type) {
	case *LetStmt:
		return e.cmdLet(s)
	case *PrintStmt:
		return e.cmdPrint(s)
	case *condJump:
		return e.cmdIf(s)
	case *branchEnd:
		e.runtime.skipToNextLine()
		return nil
	case *ForStmt:
		return e.cmdFor(s)
	case *NextStmt:
		return e.cmdNext(s)
	case *GotoStmt:
		return e.cmdGoto(s)
	case *GosubStmt:
		return e.cmdGosub(s)
	case *ReturnStmt:
		return e.cmdReturn()
	case *OnStmt:
		return e.cmdOn(s)
	case *DimStmt:
		return e.cmdDim(s)
	case *DataStmt, *RemStmt:
		return nil
	case *ReadStmt:
		return e.cmdRead(s)
	case *RestoreStmt:
		e.runtime.restoreData(s.Line, s.HasLine)
		return nil
	case *DefFnStmt:
		e.functions[s.Name] = s
		return nil
	case *EndStmt:
		e.halt()
		return nil
	case *StopStmt:
		return breakIn(int(e.runtime.CurrentLine()))
	case *YieldStmt:
		return e.cmdYield()
	case *WaitStmt:
		return e.cmdWait(s)
	case *PlotStmt:
		return e.cmdPlot(s)
	case *ClsStmt:
		e.backend.Clear()
		return nil
	case *LineStmt:
		return e.cmdLine(s)
	case *BoxStmt:
		return e.cmdBox(s)
	case *CircleStmt:
		return e.cmdCircle(s)
	case *SpriteStmt:
		return e.cmdSprite(s)
	case *IfStmt:
		// only reachable when a caller executes parsed trees directly
		cond, err := e.eval(s.Cond)
		if err != nil {
			return err
		}
		branch := s.Else
		if isTruthy(cond) {
			branch = s.Then
		}
		for _, inner := range branch {
			if err := e.execute(inner); err != nil {
				return err
			}
		}
		return nil
	}
	return NewBASICError(KindInvalidStatement, "").WithPosition(stmt.Position())
}
