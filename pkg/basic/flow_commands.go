package basic

import (
	"math"
)

// lineTarget converts an evaluated GOTO/GOSUB operand into a line number.
func (e *Executor) lineTarget(expr Expr) (uint16, error) {
	n, err := e.evalNumber(expr)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint16 || n != math.Trunc(n) {
		return 0, undefinedLine(int(n))
	}
	return uint16(n), nil
}

func (e *Executor) cmdGoto(s *GotoStmt) error {
	line, err := e.lineTarget(s.Target)
	if err != nil {
		return err
	}
	return e.runtime.jump(line)
}

func (e *Executor) cmdGosub(s *GosubStmt) error {
	line, err := e.lineTarget(s.Target)
	if err != nil {
		return err
	}
	return e.gosub(line)
}

func (e *Executor) gosub(line uint16) error {
	if !e.program.HasLine(line) {
		return undefinedLine(int(line))
	}
	if err := e.runtime.pushGosub(false); err != nil {
		return err
	}
	return e.runtime.jump(line)
}

func (e *Executor) cmdReturn() error {
	f, err := e.runtime.popGosub()
	if err != nil {
		return err
	}
	e.runtime.jumpTo(f.ret, f.retEnded)
	return nil
}

// cmdOn: ON X GOTO a,b,c picks the X-th target. 0 or past the end falls through.
func (e *Executor) cmdOn(s *OnStmt) error {
	n, err := e.evalNumber(s.Selector)
	if err != nil {
		return err
	}
	if n < 0 {
		return illegalQuantity("negative ON index %s", formatNumber(n))
	}
	idx := int(math.Floor(n))
	if idx < 1 || idx > len(s.Targets) {
		return nil
	}
	line := s.Targets[idx-1]
	if s.Gosub {
		return e.gosub(line)
	}
	return e.runtime.jump(line)
}

func (e *Executor) cmdIf(s *condJump) error {
	cond, err := e.eval(s.Cond)
	if err != nil {
		return err
	}
	if isTruthy(cond) {
		return nil
	}
	if s.elseAt >= 0 {
		e.runtime.jumpTo(Position{Line: e.runtime.current.Line, Stmt: s.elseAt}, false)
		return nil
	}
	e.runtime.skipToNextLine()
	return nil
}

func (e *Executor) cmdFor(s *ForStmt) error {
	start, err := e.evalNumber(s.Start)
	if err != nil {
		return err
	}
	limit, err := e.evalNumber(s.Limit)
	if err != nil {
		return err
	}
	step := 1.0
	if s.Step != nil {
		if step, err = e.evalNumber(s.Step); err != nil {
			return err
		}
	}
	if step == 0 {
		return illegalQuantity("STEP 0 in FOR %s", s.Var)
	}
	if err := e.vars.Set(s.Var, NumberValue(start)); err != nil {
		return err
	}

	if (step > 0 && start > limit) || (step < 0 && start < limit) {
		e.skipLoop(s.Var)
		return nil
	}
	return e.runtime.pushFor(ForLoopInfo{
		Variable: s.Var,
		EndValue: limit,
		Step:     step,
		Body:     e.runtime.pc,
	})
}

// skipLoop moves past the NEXT that closes a loop whose body must not run.
// Without a matching NEXT the program runs off its end.
func (e *Executor) skipLoop(name string) {
	depth := 0
	pos := e.runtime.pc
	for {
		line, ok := e.program.Line(pos.Line)
		if ok {
			for ; pos.Stmt < len(line.code); pos.Stmt++ {
				switch st := line.code[pos.Stmt].(type) {
				case *ForStmt:
					depth++
				case *NextStmt:
					if depth == 0 && closesLoop(st, name) {
						e.runtime.jumpTo(Position{Line: pos.Line, Stmt: pos.Stmt + 1}, false)
						return
					}
					closed := len(st.Vars)
					if closed == 0 {
						closed = 1
					}
					if depth -= closed; depth < 0 {
						depth = 0
					}
				}
			}
		}
		next, more := e.program.After(pos.Line)
		if !more {
			e.runtime.jumpTo(pos, true)
			return
		}
		pos = Position{Line: next}
	}
}

func closesLoop(s *NextStmt, name string) bool {
	if len(s.Vars) == 0 {
		return true
	}
	for _, v := range s.Vars {
		if v == name {
			return true
		}
	}
	return false
}

func (e *Executor) cmdNext(s *NextStmt) error {
	names := s.Vars
	if len(names) == 0 {
		names = []string{""}
	}
	for _, name := range names {
		idx := e.runtime.findFor(name)
		if idx < 0 {
			return NewBASICError(KindNextWithoutFor, name)
		}
		// inner loops left open are discarded
		e.runtime.truncate(idx + 1)
		loop := e.runtime.stack[idx].loop

		cur, err := e.vars.Get(loop.Variable).Number()
		if err != nil {
			return err
		}
		cur += loop.Step
		if err := e.vars.Set(loop.Variable, NumberValue(cur)); err != nil {
			return err
		}
		if (loop.Step > 0 && cur <= loop.EndValue) || (loop.Step < 0 && cur >= loop.EndValue) {
			e.runtime.jumpTo(loop.Body, false)
			return nil
		}
		e.runtime.truncate(idx)
	}
	return nil
}

func (e *Executor) cmdYield() error {
	if e.inCallback {
		return nil
	}
	e.runtime.suspend(0, false)
	return nil
}

func (e *Executor) cmdWait(s *WaitStmt) error {
	secs, err := e.evalNumber(s.Seconds)
	if err != nil {
		return err
	}
	if secs < 0 {
		return illegalQuantity("negative WAIT %s", formatNumber(secs))
	}
	if e.inCallback {
		return nil
	}
	e.runtime.suspend(e.clock+secs, true)
	return nil
}
