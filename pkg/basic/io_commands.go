package basic

import (
	"io"
	"strings"
	"unicode/utf8"
)

// printZone is the width of a comma separated PRINT column.
const printZone = 14

func (e *Executor) output(s string) {
	if s == "" {
		return
	}
	if _, err := io.WriteString(e.out, s); err != nil {
		// Ausgabe ist best effort, ein kaputter Writer stoppt das Spiel nicht
		return
	}
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		e.column = utf8.RuneCountInString(s[i+1:])
		return
	}
	e.column += utf8.RuneCountInString(s)
}

func (e *Executor) newline() {
	e.output("\n")
}

// printNumber renders a number with a leading blank, and a trailing blank
// when it is not negative.
func printNumber(n float64) string {
	if n >= 0 {
		return " " + formatNumber(n) + " "
	}
	return " " + formatNumber(n)
}

func (e *Executor) cmdPrint(s *PrintStmt) error {
	for _, item := range s.Items {
		switch item.Kind {
		case PrintExpr:
			val, err := e.eval(item.Expr)
			if err != nil {
				return err
			}
			if val.IsNumeric {
				e.output(printNumber(val.NumValue))
			} else {
				e.output(val.StrValue)
			}
		case PrintTab:
			col, err := e.evalCount(item.Expr)
			if err != nil {
				return err
			}
			if col < e.column {
				e.newline()
			}
			e.output(strings.Repeat(" ", col-e.column))
		case PrintSpc:
			n, err := e.evalCount(item.Expr)
			if err != nil {
				return err
			}
			e.output(strings.Repeat(" ", n))
		case PrintComma:
			next := (e.column/printZone + 1) * printZone
			e.output(strings.Repeat(" ", next-e.column))
		case PrintSemicolon:
		}
	}
	if n := len(s.Items); n == 0 || (s.Items[n-1].Kind != PrintComma && s.Items[n-1].Kind != PrintSemicolon) {
		e.newline()
	}
	return nil
}

// evalCount evaluates a non-negative repeat count such as TAB, SPC or SPACE$.
func (e *Executor) evalCount(x Expr) (int, error) {
	n, err := e.evalNumber(x)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 1<<16 {
		return 0, illegalQuantity("count %s out of range", formatNumber(n))
	}
	return int(n), nil
}
