package basic

import (
	"math"
	"strings"
)

// eval evaluates an expression tree. Both operands of every binary operator
// are always evaluated, AND and OR included.
func (e *Executor) eval(x Expr) (BASICValue, error) {
	switch n := x.(type) {
	case *NumberLit:
		return NumberValue(n.Value), nil
	case *StringLit:
		return StringValue(n.Value), nil
	case *VarRef:
		return e.vars.Get(n.Name), nil
	case *ArrayRef:
		idx, err := e.evalIndices(n.Indices)
		if err != nil {
			return BASICValue{}, err
		}
		return e.vars.GetIndexed(n.Name, idx...)
	case *FuncCall:
		return e.callBuiltin(n)
	case *UserFnCall:
		return e.callUserFn(n)
	case *UnaryExpr:
		return e.evalUnary(n)
	case *BinaryExpr:
		left, err := e.eval(n.Left)
		if err != nil {
			return BASICValue{}, err
		}
		right, err := e.eval(n.Right)
		if err != nil {
			return BASICValue{}, err
		}
		return binary(n.Op, left, right)
	}
	return BASICValue{}, NewBASICError(KindExpectedExpression, "").WithPosition(x.Position())
}

func (e *Executor) evalNumber(x Expr) (float64, error) {
	v, err := e.eval(x)
	if err != nil {
		return 0, err
	}
	return v.Number()
}

func (e *Executor) evalUnary(n *UnaryExpr) (BASICValue, error) {
	v, err := e.eval(n.Operand)
	if err != nil {
		return BASICValue{}, err
	}
	f, err := v.Number()
	if err != nil {
		return BASICValue{}, typeMismatch("unary operator needs a number")
	}
	if n.Op == OpNot {
		i, err := toInt32(f)
		if err != nil {
			return BASICValue{}, err
		}
		return NumberValue(float64(^i)), nil
	}
	return NumberValue(-f), nil
}

func binary(op BinaryOp, l, r BASICValue) (BASICValue, error) {
	switch op {
	case OpEq, OpNe, OpLt, OpGt, OpLe, OpGe:
		return compare(op, l, r)
	case OpAdd:
		if !l.IsNumeric && !r.IsNumeric {
			return StringValue(l.StrValue + r.StrValue), nil
		}
	}
	if !l.IsNumeric || !r.IsNumeric {
		return BASICValue{}, typeMismatch("%s needs two numbers", op)
	}
	a, b := l.NumValue, r.NumValue

	var res float64
	switch op {
	case OpAdd:
		res = a + b
	case OpSub:
		res = a - b
	case OpMul:
		res = a * b
	case OpDiv:
		if b == 0 {
			return BASICValue{}, NewBASICError(KindDivisionByZero, "")
		}
		res = a / b
	case OpMod:
		if b == 0 {
			return BASICValue{}, NewBASICError(KindDivisionByZero, "")
		}
		res = math.Mod(a, b)
	case OpPow:
		res = math.Pow(a, b)
	case OpAnd, OpOr:
		x, err := toInt32(a)
		if err != nil {
			return BASICValue{}, err
		}
		y, err := toInt32(b)
		if err != nil {
			return BASICValue{}, err
		}
		if op == OpAnd {
			return NumberValue(float64(x & y)), nil
		}
		return NumberValue(float64(x | y)), nil
	default:
		return BASICValue{}, syntaxError("unknown operator %d", int(op))
	}
	return finite(res)
}

// compare: numbers numerically, strings lexicographically. A number is
// never equal to a string; ordering them is a TypeMismatch.
func compare(op BinaryOp, l, r BASICValue) (BASICValue, error) {
	var c int
	switch {
	case l.IsNumeric && r.IsNumeric:
		switch {
		case l.NumValue < r.NumValue:
			c = -1
		case l.NumValue > r.NumValue:
			c = 1
		}
	case !l.IsNumeric && !r.IsNumeric:
		c = strings.Compare(l.StrValue, r.StrValue)
	default:
		switch op {
		case OpEq:
			return BoolValue(false), nil
		case OpNe:
			return BoolValue(true), nil
		}
		return BASICValue{}, typeMismatch("cannot compare number with string")
	}
	switch op {
	case OpEq:
		return BoolValue(c == 0), nil
	case OpNe:
		return BoolValue(c != 0), nil
	case OpLt:
		return BoolValue(c < 0), nil
	case OpGt:
		return BoolValue(c > 0), nil
	case OpLe:
		return BoolValue(c <= 0), nil
	}
	return BoolValue(c >= 0), nil
}

func toInt32(f float64) (int32, error) {
	if f > math.MaxInt32 || f < math.MinInt32 || math.IsNaN(f) {
		return 0, illegalQuantity("%s out of integer range", formatNumber(f))
	}
	return int32(math.Floor(f)), nil
}

// finite rejects NaN and infinities so they never reach a variable.
func finite(f float64) (BASICValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return BASICValue{}, illegalQuantity("overflow")
	}
	return NumberValue(f), nil
}

// callUserFn evaluates a DEF FN body with its parameter bound to the
// argument. The parameter's previous value is restored afterwards.
func (e *Executor) callUserFn(n *UserFnCall) (BASICValue, error) {
	def, ok := e.functions[n.Name]
	if !ok {
		return BASICValue{}, NewBASICError(KindUndefinedVariable, "FN "+n.Name)
	}
	arg, err := e.eval(n.Arg)
	if err != nil {
		return BASICValue{}, err
	}
	if e.fnDepth >= e.opts.MaxStackDepth {
		return BASICValue{}, NewBASICError(KindStackOverflow, "")
	}

	had := e.vars.Has(def.Param)
	saved := e.vars.Get(def.Param)
	if err := e.vars.Set(def.Param, arg); err != nil {
		return BASICValue{}, err
	}
	e.fnDepth++
	res, err := e.eval(def.Body)
	e.fnDepth--
	if had {
		_ = e.vars.Set(def.Param, saved)
	} else {
		e.vars.Unset(def.Param)
	}
	return res, err
}
