package basic

import (
	"math"
	"strconv"
	"strings"
)

// BASICValue is the tagged union every expression evaluates to: a number or
// a string. The zero value is the empty string.
type BASICValue struct {
	NumValue  float64
	StrValue  string
	IsNumeric bool
}

// NumberValue wraps a float.
func NumberValue(n float64) BASICValue {
	return BASICValue{NumValue: n, IsNumeric: true}
}

// StringValue wraps a string.
func StringValue(s string) BASICValue {
	return BASICValue{StrValue: s}
}

// BoolValue returns the classic -1/0 truth values.
func BoolValue(b bool) BASICValue {
	if b {
		return NumberValue(-1)
	}
	return NumberValue(0)
}

// Number returns the numeric payload or a TypeMismatch error.
func (v BASICValue) Number() (float64, error) {
	if !v.IsNumeric {
		return 0, typeMismatch("expected number, got string")
	}
	return v.NumValue, nil
}

// Text returns the string payload or a TypeMismatch error.
func (v BASICValue) Text() (string, error) {
	if v.IsNumeric {
		return "", typeMismatch("expected string, got number")
	}
	return v.StrValue, nil
}

// String renders the value the way STR$ does.
func (v BASICValue) String() string {
	if v.IsNumeric {
		return formatNumber(v.NumValue)
	}
	return v.StrValue
}

// isTruthy: numbers are true when non-zero, strings when non-empty.
func isTruthy(v BASICValue) bool {
	if v.IsNumeric {
		return v.NumValue != 0
	}
	return v.StrValue != ""
}

// IsStringName reports whether a variable name denotes a string variable.
func IsStringName(name string) bool {
	return strings.HasSuffix(name, "$")
}

// defaultFor returns the value an unassigned variable reads as.
func defaultFor(name string) BASICValue {
	if IsStringName(name) {
		return StringValue("")
	}
	return NumberValue(0)
}

// formatNumber prints integers without a fraction and everything else in
// the shortest round-tripping form.
func formatNumber(n float64) string {
	if n == 0 {
		return "0"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatFloat(n, 'f', 0, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// parseNumberPrefix implements VAL: the longest numeric prefix after
// leading blanks, 0 when there is none.
func parseNumberPrefix(s string) float64 {
	s = strings.TrimSpace(s)
	if i := strings.IndexFunc(s, func(r rune) bool {
		return !strings.ContainsRune("0123456789.eE+-", r)
	}); i >= 0 {
		s = s[:i]
	}
	best := 0.0
	for end := 1; end <= len(s); end++ {
		if n, err := strconv.ParseFloat(s[:end], 64); err == nil {
			best = n
		}
	}
	return best
}
