package basic

import (
	"io"

	"github.com/antibyte/pixelbasic/pkg/configuration"
)

// Convention lines the Bridge calls as event handlers.
const (
	OnInitLine     = 1000
	OnTickLine     = 2000
	OnDrawLine     = 3000
	OnDrawLateLine = 3500
)

// Defaults for the safety valves.
const (
	// DefaultStatementBudget caps statements per Update so a loop without
	// YIELD cannot stall a frame.
	DefaultStatementBudget = 10000
	// DefaultCallbackBudget caps statements per CallSubroutine.
	DefaultCallbackBudget = 100000
)

// Default colors for statements without color arguments.
const (
	DefaultFG = 15
	DefaultBG = 0
)

// Options tunes an Executor and the Bridge that drives it.
type Options struct {
	StatementBudget  int
	CallbackBudget   int
	MaxStackDepth    int
	MaxArrayElements int

	InitLine     uint16
	TickLine     uint16
	DrawLine     uint16
	DrawLateLine uint16

	// Output receives PRINT text. Nil discards it.
	Output io.Writer
	// Seed seeds RND. Zero picks a time based seed.
	Seed int64
}

// DefaultOptions returns the built-in settings.
func DefaultOptions() Options {
	return Options{
		StatementBudget:  DefaultStatementBudget,
		CallbackBudget:   DefaultCallbackBudget,
		MaxStackDepth:    DefaultMaxStackDepth,
		MaxArrayElements: DefaultMaxArrayElements,
		InitLine:         OnInitLine,
		TickLine:         OnTickLine,
		DrawLine:         OnDrawLine,
		DrawLateLine:     OnDrawLateLine,
	}
}

// OptionsFromConfig reads the [Interpreter] section of settings.cfg,
// falling back to the defaults for missing keys.
func OptionsFromConfig() Options {
	d := DefaultOptions()
	return Options{
		StatementBudget:  configuration.GetInt("Interpreter", "statement_budget", d.StatementBudget),
		CallbackBudget:   configuration.GetInt("Interpreter", "callback_budget", d.CallbackBudget),
		MaxStackDepth:    configuration.GetInt("Interpreter", "max_stack_depth", d.MaxStackDepth),
		MaxArrayElements: configuration.GetInt("Interpreter", "max_array_elements", d.MaxArrayElements),
		InitLine:         uint16(configuration.GetInt("Interpreter", "on_init_line", int(d.InitLine))),
		TickLine:         uint16(configuration.GetInt("Interpreter", "on_tick_line", int(d.TickLine))),
		DrawLine:         uint16(configuration.GetInt("Interpreter", "on_draw_line", int(d.DrawLine))),
		DrawLateLine:     uint16(configuration.GetInt("Interpreter", "on_draw_late_line", int(d.DrawLateLine))),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.StatementBudget <= 0 {
		o.StatementBudget = d.StatementBudget
	}
	if o.CallbackBudget <= 0 {
		o.CallbackBudget = d.CallbackBudget
	}
	if o.MaxStackDepth <= 0 {
		o.MaxStackDepth = d.MaxStackDepth
	}
	if o.MaxArrayElements <= 0 {
		o.MaxArrayElements = d.MaxArrayElements
	}
	if o.InitLine == 0 && o.TickLine == 0 && o.DrawLine == 0 && o.DrawLateLine == 0 {
		o.InitLine, o.TickLine, o.DrawLine, o.DrawLateLine = d.InitLine, d.TickLine, d.DrawLine, d.DrawLateLine
	}
	if o.Output == nil {
		o.Output = io.Discard
	}
	return o
}
