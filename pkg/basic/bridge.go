package basic

import (
	"sync"

	"github.com/antibyte/pixelbasic/pkg/logger"
	"github.com/google/uuid"
)

// Bridge connects a BASIC program to a host game loop. The host calls
// Update once per frame and Draw once per rendered frame; the program
// reacts through the convention lines for init, tick and draw.
type Bridge struct {
	mu         sync.Mutex
	id         string
	backend    Backend
	opts       Options
	exec       *Executor
	source     string
	initCalled bool
}

// NewBridge creates a bridge with an empty program.
func NewBridge(backend Backend, opts Options) *Bridge {
	if backend == nil {
		backend = NullBackend{}
	}
	opts = opts.withDefaults()
	b := &Bridge{
		id:      uuid.New().String(),
		backend: backend,
		opts:    opts,
	}
	b.exec = NewExecutor(NewProgram(), backend, opts)
	return b
}

// ID identifies the bridge in logs and in the play server.
func (b *Bridge) ID() string { return b.id }

// LoadProgram parses source and installs it with fresh variables. On a
// lexical or syntax error the previously loaded program keeps running.
func (b *Bridge) LoadProgram(source string) error {
	prog, err := ParseSource(source)
	if err != nil {
		logger.Warn(logger.AreaBridge, "[%s] program rejected: %v", b.id, err)
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.exec = NewExecutor(prog, b.backend, b.opts)
	b.source = source
	b.initCalled = false
	logger.Info(logger.AreaBridge, "[%s] program loaded (%d lines)", b.id, prog.Len())
	return nil
}

// Update advances the game clock by dt seconds, runs the init hook on the
// first call and the tick hook on every call (with DT set to dt), then
// resumes the main program for one step. It returns false once the main
// program has halted.
func (b *Bridge) Update(dt float64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.exec.Advance(dt)
	if !b.initCalled {
		b.initCalled = true
		if err := b.exec.CallSubroutine(b.opts.InitLine); err != nil {
			return false, err
		}
	}
	if err := b.exec.Variables().Set("DT", NumberValue(dt)); err != nil {
		return false, err
	}
	if err := b.exec.CallSubroutine(b.opts.TickLine); err != nil {
		return false, err
	}
	return b.exec.Step(b.opts.StatementBudget)
}

// Draw runs the draw hook and then the late draw hook.
func (b *Bridge) Draw() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.exec.CallSubroutine(b.opts.DrawLine); err != nil {
		return err
	}
	return b.exec.CallSubroutine(b.opts.DrawLateLine)
}

// CallSubroutine runs the subroutine at line to completion and returns to
// wherever the main program was. A missing line is ignored.
func (b *Bridge) CallSubroutine(line uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exec.CallSubroutine(line)
}

// Reset restarts the loaded program from its first line with cleared
// variables. The init hook runs again on the next Update.
func (b *Bridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exec = NewExecutor(b.exec.Program(), b.backend, b.opts)
	b.initCalled = false
	logger.Debug(logger.AreaBridge, "[%s] reset", b.id)
}

// State returns the main program's lifecycle state.
func (b *Bridge) State() ExecState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exec.State()
}

// IsEnded reports whether the main program halted or failed.
func (b *Bridge) IsEnded() bool {
	s := b.State()
	return s == StateHalted || s == StateErrored
}

// Source returns the text of the loaded program.
func (b *Bridge) Source() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.source
}

// Variables gives access to program variables, e.g. to pass data in.
// Not safe for use concurrently with Update or Draw.
func (b *Bridge) Variables() *Variables {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exec.Variables()
}

// Executor returns the executor of the loaded program.
// Not safe for use concurrently with Update or Draw.
func (b *Bridge) Executor() *Executor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exec
}

// Backend returns the host backend.
func (b *Bridge) Backend() Backend { return b.backend }
