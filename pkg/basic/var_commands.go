package basic

import (
	"math"
	"strconv"
	"strings"
)

func (e *Executor) cmdLet(s *LetStmt) error {
	val, err := e.eval(s.Value)
	if err != nil {
		return err
	}
	return e.assign(s.Target, val)
}

func (e *Executor) assign(t Target, val BASICValue) error {
	if t.Indices == nil {
		return e.vars.Set(t.Name, val)
	}
	idx, err := e.evalIndices(t.Indices)
	if err != nil {
		return err
	}
	return e.vars.SetIndexed(t.Name, val, idx...)
}

func (e *Executor) evalIndices(exprs []Expr) ([]float64, error) {
	idx := make([]float64, len(exprs))
	for i, x := range exprs {
		n, err := e.evalNumber(x)
		if err != nil {
			return nil, err
		}
		idx[i] = n
	}
	return idx, nil
}

func (e *Executor) cmdDim(s *DimStmt) error {
	for _, decl := range s.Arrays {
		sizes, err := e.evalIndices(decl.Sizes)
		if err != nil {
			return err
		}
		bounds := make([]int, len(sizes))
		for i, n := range sizes {
			if n > math.MaxInt32 {
				return NewBASICError(KindOutOfMemory, decl.Name)
			}
			if n < 0 {
				return illegalQuantity("negative array size for %s", decl.Name)
			}
			bounds[i] = int(n)
		}
		if err := e.vars.Dim(decl.Name, bounds...); err != nil {
			return err
		}
	}
	return nil
}

// cmdRead assigns DATA literals in order. Numeric targets accept string
// literals that parse as numbers; string targets take numbers as text.
func (e *Executor) cmdRead(s *ReadStmt) error {
	for _, t := range s.Targets {
		val, err := e.runtime.readData()
		if err != nil {
			return err
		}
		if IsStringName(t.Name) && val.IsNumeric {
			val = StringValue(formatNumber(val.NumValue))
		} else if !IsStringName(t.Name) && !val.IsNumeric {
			n, perr := strconv.ParseFloat(strings.TrimSpace(val.StrValue), 64)
			if perr != nil || math.IsInf(n, 0) || math.IsNaN(n) {
				return typeMismatch("cannot READ %q into %s", val.StrValue, t.Name)
			}
			val = NumberValue(n)
		}
		if err := e.assign(t, val); err != nil {
			return err
		}
	}
	return nil
}
