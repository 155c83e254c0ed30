package basic

import (
	"math"
	"strings"
)

// fnFreeBytes is what FRE reports.
const fnFreeBytes = 32767

// callBuiltin evaluates a built-in function. Arity was checked by the parser.
func (e *Executor) callBuiltin(call *FuncCall) (BASICValue, error) {
	args := make([]BASICValue, len(call.Args))
	for i, a := range call.Args {
		v, err := e.eval(a)
		if err != nil {
			return BASICValue{}, err
		}
		args[i] = v
	}

	num := func(i int) (float64, error) {
		n, err := args[i].Number()
		if err != nil {
			return 0, typeMismatch("%s expects a number as argument %d", call.Name, i+1)
		}
		return n, nil
	}
	str := func(i int) (string, error) {
		s, err := args[i].Text()
		if err != nil {
			return "", typeMismatch("%s expects a string as argument %d", call.Name, i+1)
		}
		return s, nil
	}

	switch call.Name {
	case "SGN", "INT", "ABS", "SQR", "SIN", "COS", "TAN", "ATN", "LOG", "EXP":
		n, err := num(0)
		if err != nil {
			return BASICValue{}, err
		}
		return mathFunc(call.Name, n)

	case "RND":
		return e.rnd(args)

	case "MOD":
		a, err := num(0)
		if err != nil {
			return BASICValue{}, err
		}
		b, err := num(1)
		if err != nil {
			return BASICValue{}, err
		}
		return binary(OpMod, NumberValue(a), NumberValue(b))

	case "LEN":
		s, err := str(0)
		if err != nil {
			return BASICValue{}, err
		}
		return NumberValue(float64(len([]rune(s)))), nil

	case "ASC":
		s, err := str(0)
		if err != nil {
			return BASICValue{}, err
		}
		for _, r := range s {
			return NumberValue(float64(r)), nil
		}
		return BASICValue{}, illegalQuantity("ASC of empty string")

	case "CHR$":
		n, err := num(0)
		if err != nil {
			return BASICValue{}, err
		}
		if n < 0 || n > 255 {
			return BASICValue{}, illegalQuantity("CHR$ argument %s out of range", formatNumber(n))
		}
		return StringValue(string(rune(n))), nil

	case "STR$":
		n, err := num(0)
		if err != nil {
			return BASICValue{}, err
		}
		if n >= 0 {
			return StringValue(" " + formatNumber(n)), nil
		}
		return StringValue(formatNumber(n)), nil

	case "VAL":
		s, err := str(0)
		if err != nil {
			return BASICValue{}, err
		}
		return finite(parseNumberPrefix(s))

	case "LEFT$", "RIGHT$":
		s, err := str(0)
		if err != nil {
			return BASICValue{}, err
		}
		n, err := e.countArg(args[1], call.Name)
		if err != nil {
			return BASICValue{}, err
		}
		r := []rune(s)
		if n > len(r) {
			n = len(r)
		}
		if call.Name == "LEFT$" {
			return StringValue(string(r[:n])), nil
		}
		return StringValue(string(r[len(r)-n:])), nil

	case "MID$":
		s, err := str(0)
		if err != nil {
			return BASICValue{}, err
		}
		start, err := e.countArg(args[1], call.Name)
		if err != nil {
			return BASICValue{}, err
		}
		r := []rune(s)
		// 1-basiert, 0 wird wie 1 behandelt
		if start > 0 {
			start--
		}
		if start > len(r) {
			start = len(r)
		}
		end := len(r)
		if len(args) == 3 {
			n, err := e.countArg(args[2], call.Name)
			if err != nil {
				return BASICValue{}, err
			}
			if start+n < end {
				end = start + n
			}
		}
		return StringValue(string(r[start:end])), nil

	case "INSTR":
		return instr(args)

	case "SPACE$":
		n, err := e.countArg(args[0], call.Name)
		if err != nil {
			return BASICValue{}, err
		}
		return StringValue(strings.Repeat(" ", n)), nil

	case "POS":
		return NumberValue(float64(e.column + 1)), nil

	case "FRE":
		return NumberValue(fnFreeBytes), nil

	case "KEY":
		s, err := str(0)
		if err != nil {
			return BASICValue{}, err
		}
		if e.backend.KeyPressed(strings.ToUpper(s)) {
			return NumberValue(1), nil
		}
		return NumberValue(0), nil

	case "INKEY":
		if ks, ok := e.backend.(KeySource); ok {
			return NumberValue(float64(ks.LastKey())), nil
		}
		return NumberValue(0), nil

	case "SPRITEX", "SPRITEY":
		id, err := num(0)
		if err != nil {
			return BASICValue{}, err
		}
		x, y, _ := e.spritePosition(id)
		if call.Name == "SPRITEX" {
			return NumberValue(float64(x)), nil
		}
		return NumberValue(float64(y)), nil

	case "SPRITEHIT":
		a, err := num(0)
		if err != nil {
			return BASICValue{}, err
		}
		b, err := num(1)
		if err != nil {
			return BASICValue{}, err
		}
		ax, ay, okA := e.spritePosition(a)
		bx, by, okB := e.spritePosition(b)
		if okA && okB && ax == bx && ay == by {
			return NumberValue(1), nil
		}
		return NumberValue(0), nil
	}
	return BASICValue{}, syntaxError("UNKNOWN FUNCTION %s", call.Name)
}

func mathFunc(name string, n float64) (BASICValue, error) {
	switch name {
	case "SGN":
		switch {
		case n > 0:
			return NumberValue(1), nil
		case n < 0:
			return NumberValue(-1), nil
		}
		return NumberValue(0), nil
	case "INT":
		return NumberValue(math.Floor(n)), nil
	case "ABS":
		return NumberValue(math.Abs(n)), nil
	case "SQR":
		if n < 0 {
			return BASICValue{}, illegalQuantity("SQR of negative number")
		}
		return NumberValue(math.Sqrt(n)), nil
	case "SIN":
		return finite(math.Sin(n))
	case "COS":
		return finite(math.Cos(n))
	case "TAN":
		return finite(math.Tan(n))
	case "ATN":
		return NumberValue(math.Atan(n)), nil
	case "LOG":
		if n <= 0 {
			return BASICValue{}, illegalQuantity("LOG of non-positive number")
		}
		return NumberValue(math.Log(n)), nil
	}
	return finite(math.Exp(n))
}

// rnd: positive or no argument draws a new number in [0,1), zero repeats
// the last one, a negative argument reseeds with it first.
func (e *Executor) rnd(args []BASICValue) (BASICValue, error) {
	n := 1.0
	if len(args) == 1 {
		v, err := args[0].Number()
		if err != nil {
			return BASICValue{}, typeMismatch("RND expects a number")
		}
		n = v
	}
	switch {
	case n == 0:
		return NumberValue(e.lastRnd), nil
	case n < 0:
		e.rng.Seed(int64(n))
	}
	e.lastRnd = e.rng.Float64()
	return NumberValue(e.lastRnd), nil
}

func instr(args []BASICValue) (BASICValue, error) {
	start := 1
	if len(args) == 3 {
		n, err := args[0].Number()
		if err != nil {
			return BASICValue{}, typeMismatch("INSTR start must be a number")
		}
		if n < 0 || n > math.MaxInt32 {
			return BASICValue{}, illegalQuantity("INSTR start %s", formatNumber(n))
		}
		start = int(n)
		args = args[1:]
	}
	hay, err := args[0].Text()
	if err != nil {
		return BASICValue{}, typeMismatch("INSTR expects strings")
	}
	needle, err := args[1].Text()
	if err != nil {
		return BASICValue{}, typeMismatch("INSTR expects strings")
	}
	r := []rune(hay)
	if start > 0 {
		start--
	}
	if start > len(r) {
		return NumberValue(0), nil
	}
	i := strings.Index(string(r[start:]), needle)
	if i < 0 {
		return NumberValue(0), nil
	}
	return NumberValue(float64(start + len([]rune(string(r[start:])[:i])) + 1)), nil
}

func (e *Executor) countArg(v BASICValue, fn string) (int, error) {
	n, err := v.Number()
	if err != nil {
		return 0, typeMismatch("%s expects a number", fn)
	}
	if n < 0 || n > 1<<16 {
		return 0, illegalQuantity("%s argument %s out of range", fn, formatNumber(n))
	}
	return int(n), nil
}

func (e *Executor) spritePosition(id float64) (int32, int32, bool) {
	loc, ok := e.backend.(SpriteLocator)
	if !ok || id < 0 || id > math.MaxUint32 {
		return 0, 0, false
	}
	return loc.SpritePosition(uint32(id))
}
