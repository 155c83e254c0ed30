// Package basic implements the PixelBASIC interpreter: a line-numbered BASIC
// dialect that a game host drives one frame at a time through a Bridge.
package basic

import (
	"errors"
	"fmt"
)

// ErrorKind identifies one entry of the closed BASIC error vocabulary.
type ErrorKind int

// Lexical, syntactic, runtime, control-flow, I/O and interruption errors.
const (
	KindIllegalCharacter ErrorKind = iota
	KindUnterminatedString
	KindInvalidNumber

	KindSyntaxError
	KindExpectedExpression
	KindUnmatchedParenthesis
	KindInvalidStatement

	KindUndefinedLine
	KindUndefinedVariable
	KindDivisionByZero
	KindTypeMismatch
	KindSubscriptOutOfRange
	KindRedimensionedArray
	KindOutOfData
	KindOutOfMemory
	KindStackOverflow
	KindIllegalQuantity

	KindReturnWithoutGosub
	KindNextWithoutFor
	KindCantContinue

	KindFileNotFound
	KindIoError

	KindBreakIn
)

var kindNames = map[ErrorKind]string{
	KindIllegalCharacter:     "IllegalCharacter",
	KindUnterminatedString:   "UnterminatedString",
	KindInvalidNumber:        "InvalidNumber",
	KindSyntaxError:          "SyntaxError",
	KindExpectedExpression:   "ExpectedExpression",
	KindUnmatchedParenthesis: "UnmatchedParenthesis",
	KindInvalidStatement:     "InvalidStatement",
	KindUndefinedLine:        "UndefinedLine",
	KindUndefinedVariable:    "UndefinedVariable",
	KindDivisionByZero:       "DivisionByZero",
	KindTypeMismatch:         "TypeMismatch",
	KindSubscriptOutOfRange:  "SubscriptOutOfRange",
	KindRedimensionedArray:   "RedimensionedArray",
	KindOutOfData:            "OutOfData",
	KindOutOfMemory:          "OutOfMemory",
	KindStackOverflow:        "StackOverflow",
	KindIllegalQuantity:      "IllegalQuantity",
	KindReturnWithoutGosub:   "ReturnWithoutGosub",
	KindNextWithoutFor:       "NextWithoutFor",
	KindCantContinue:         "CantContinue",
	KindFileNotFound:         "FileNotFound",
	KindIoError:              "IoError",
	KindBreakIn:              "BreakIn",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// IsLexical reports whether errors of this kind come from the tokenizer.
func (k ErrorKind) IsLexical() bool {
	return k <= KindInvalidNumber
}

// IsSyntactic reports whether errors of this kind come from the parser.
func (k ErrorKind) IsSyntactic() bool {
	return k >= KindSyntaxError && k <= KindInvalidStatement
}

// BASICError is the single error type raised by every interpreter stage.
// Which fields are meaningful depends on Kind.
type BASICError struct {
	Kind     ErrorKind
	Detail   string // free text: syntax detail, variable name, offending literal
	Char     rune   // IllegalCharacter only
	Position int    // 0-based rune column within the source line, lexical and syntactic errors
	Context  string // rendered source line with a caret, IllegalCharacter only
	Line     int    // target line for UndefinedLine and BreakIn
	// SourceLine is the program line that was executing when a runtime
	// error was raised, 0 if unknown. It is not part of the rendered text.
	SourceLine int
}

// Error renders the classic 8-bit BASIC message. Tests assert on these strings.
func (e *BASICError) Error() string {
	switch e.Kind {
	case KindIllegalCharacter:
		return fmt.Sprintf("ILLEGAL CHARACTER '%c' AT POSITION %d\n%s", e.Char, e.Position, e.Context)
	case KindUnterminatedString:
		return fmt.Sprintf("?UNTERMINATED STRING AT POSITION %d", e.Position)
	case KindInvalidNumber:
		return fmt.Sprintf("?INVALID NUMBER '%s' AT POSITION %d", e.Detail, e.Position)
	case KindSyntaxError:
		return "?SYNTAX ERROR: " + e.Detail
	case KindExpectedExpression:
		return fmt.Sprintf("?EXPECTED EXPRESSION AT POSITION %d", e.Position)
	case KindUnmatchedParenthesis:
		return fmt.Sprintf("?UNMATCHED PARENTHESIS AT POSITION %d", e.Position)
	case KindInvalidStatement:
		return fmt.Sprintf("?INVALID STATEMENT AT POSITION %d", e.Position)
	case KindUndefinedLine:
		return fmt.Sprintf("?UNDEF'D STATEMENT ERROR IN %d", e.Line)
	case KindUndefinedVariable:
		return "?UNDEFINED VARIABLE: " + e.Detail
	case KindDivisionByZero:
		return "?DIVISION BY ZERO ERROR"
	case KindTypeMismatch:
		return "?TYPE MISMATCH ERROR: " + e.Detail
	case KindSubscriptOutOfRange:
		return "?SUBSCRIPT OUT OF RANGE: " + e.Detail
	case KindRedimensionedArray:
		return "?REDIM'D ARRAY ERROR: " + e.Detail
	case KindOutOfData:
		return "?OUT OF DATA ERROR"
	case KindOutOfMemory:
		return "?OUT OF MEMORY ERROR"
	case KindStackOverflow:
		return "?STACK OVERFLOW ERROR"
	case KindIllegalQuantity:
		return "?ILLEGAL QUANTITY: " + e.Detail
	case KindReturnWithoutGosub:
		return "?RETURN WITHOUT GOSUB ERROR"
	case KindNextWithoutFor:
		return "?NEXT WITHOUT FOR: " + e.Detail
	case KindCantContinue:
		return "?CAN'T CONTINUE ERROR"
	case KindFileNotFound:
		return "?FILE NOT FOUND: " + e.Detail
	case KindIoError:
		return "?I/O ERROR: " + e.Detail
	case KindBreakIn:
		return fmt.Sprintf("?BREAK IN %d", e.Line)
	}
	return "?UNKNOWN ERROR"
}

// Is makes errors.Is match any BASICError of the same kind, so callers can
// test against the Err* sentinels regardless of detail text.
func (e *BASICError) Is(target error) bool {
	var other *BASICError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrIllegalCharacter     = &BASICError{Kind: KindIllegalCharacter}
	ErrUnterminatedString   = &BASICError{Kind: KindUnterminatedString}
	ErrInvalidNumber        = &BASICError{Kind: KindInvalidNumber}
	ErrSyntax               = &BASICError{Kind: KindSyntaxError}
	ErrExpectedExpression   = &BASICError{Kind: KindExpectedExpression}
	ErrUnmatchedParenthesis = &BASICError{Kind: KindUnmatchedParenthesis}
	ErrInvalidStatement     = &BASICError{Kind: KindInvalidStatement}
	ErrUndefinedLine        = &BASICError{Kind: KindUndefinedLine}
	ErrUndefinedVariable    = &BASICError{Kind: KindUndefinedVariable}
	ErrDivisionByZero       = &BASICError{Kind: KindDivisionByZero}
	ErrTypeMismatch         = &BASICError{Kind: KindTypeMismatch}
	ErrSubscriptOutOfRange  = &BASICError{Kind: KindSubscriptOutOfRange}
	ErrRedimensionedArray   = &BASICError{Kind: KindRedimensionedArray}
	ErrOutOfData            = &BASICError{Kind: KindOutOfData}
	ErrOutOfMemory          = &BASICError{Kind: KindOutOfMemory}
	ErrStackOverflow        = &BASICError{Kind: KindStackOverflow}
	ErrIllegalQuantity      = &BASICError{Kind: KindIllegalQuantity}
	ErrReturnWithoutGosub   = &BASICError{Kind: KindReturnWithoutGosub}
	ErrNextWithoutFor       = &BASICError{Kind: KindNextWithoutFor}
	ErrCantContinue         = &BASICError{Kind: KindCantContinue}
	ErrFileNotFound         = &BASICError{Kind: KindFileNotFound}
	ErrIo                   = &BASICError{Kind: KindIoError}
	ErrBreakIn              = &BASICError{Kind: KindBreakIn}
)

// NewBASICError creates an error of the given kind with an optional detail text.
func NewBASICError(kind ErrorKind, detail string) *BASICError {
	return &BASICError{Kind: kind, Detail: detail}
}

// WithPosition attaches a column within the source line.
func (e *BASICError) WithPosition(pos int) *BASICError {
	e.Position = pos
	return e
}

// WithSourceLine records the executing program line if none is set yet.
func (e *BASICError) WithSourceLine(line int) *BASICError {
	if e.SourceLine == 0 {
		e.SourceLine = line
	}
	return e
}

func syntaxError(format string, args ...interface{}) *BASICError {
	return NewBASICError(KindSyntaxError, fmt.Sprintf(format, args...))
}

func typeMismatch(format string, args ...interface{}) *BASICError {
	return NewBASICError(KindTypeMismatch, fmt.Sprintf(format, args...))
}

func illegalQuantity(format string, args ...interface{}) *BASICError {
	return NewBASICError(KindIllegalQuantity, fmt.Sprintf(format, args...))
}

func undefinedLine(line int) *BASICError {
	return &BASICError{Kind: KindUndefinedLine, Line: line}
}

func breakIn(line int) *BASICError {
	return &BASICError{Kind: KindBreakIn, Line: line}
}

// AsBASICError unwraps err into a *BASICError if it is one.
func AsBASICError(err error) (*BASICError, bool) {
	var be *BASICError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
