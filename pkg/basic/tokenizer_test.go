package basic

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestTokenizePositions(t *testing.T) {
	got, err := Tokenize("10 PRINT \"HI\";X$\n")
	if err != nil {
		t.Fatal(err)
	}
	want := []Token{
		{Type: TokenLineNumber, Text: "10", Num: 10, Line: 1, Pos: 0},
		{Type: TokenKeyword, Text: "PRINT", Line: 1, Pos: 3},
		{Type: TokenString, Text: "HI", Line: 1, Pos: 9},
		{Type: TokenSemicolon, Line: 1, Pos: 13},
		{Type: TokenIdent, Text: "X$", Line: 1, Pos: 14},
		{Type: TokenNewline, Line: 1, Pos: 16},
		{Type: TokenEOF, Line: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokenize mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Token
	}{
		{
			name: "go to merges",
			src:  "10 GO TO 20",
			want: []Token{
				{Type: TokenLineNumber, Text: "10", Num: 10},
				{Type: TokenKeyword, Text: "GOTO"},
				{Type: TokenNumber, Text: "20", Num: 20},
				{Type: TokenNewline},
				{Type: TokenEOF},
			},
		},
		{
			name: "rem keeps comment text",
			src:  "10 REM  hello: world ",
			want: []Token{
				{Type: TokenLineNumber, Text: "10", Num: 10},
				{Type: TokenKeyword, Text: "REM"},
				{Type: TokenString, Text: "hello: world"},
				{Type: TokenNewline},
				{Type: TokenEOF},
			},
		},
		{
			name: "lower case is folded",
			src:  "10 print a$",
			want: []Token{
				{Type: TokenLineNumber, Text: "10", Num: 10},
				{Type: TokenKeyword, Text: "PRINT"},
				{Type: TokenIdent, Text: "A$"},
				{Type: TokenNewline},
				{Type: TokenEOF},
			},
		},
		{
			name: "compound operators",
			src:  "10 IF A<>B AND C<=1 THEN 20",
			want: []Token{
				{Type: TokenLineNumber, Text: "10", Num: 10},
				{Type: TokenKeyword, Text: "IF"},
				{Type: TokenIdent, Text: "A"},
				{Type: TokenOperator, Text: "<>"},
				{Type: TokenIdent, Text: "B"},
				{Type: TokenKeyword, Text: "AND"},
				{Type: TokenIdent, Text: "C"},
				{Type: TokenOperator, Text: "<="},
				{Type: TokenNumber, Text: "1", Num: 1},
				{Type: TokenKeyword, Text: "THEN"},
				{Type: TokenNumber, Text: "20", Num: 20},
				{Type: TokenNewline},
				{Type: TokenEOF},
			},
		},
		{
			name: "float literals",
			src:  "10 X=1.5E3+.5",
			want: []Token{
				{Type: TokenLineNumber, Text: "10", Num: 10},
				{Type: TokenIdent, Text: "X"},
				{Type: TokenOperator, Text: "="},
				{Type: TokenNumber, Text: "1.5E3", Num: 1500},
				{Type: TokenOperator, Text: "+"},
				{Type: TokenNumber, Text: ".5", Num: 0.5},
				{Type: TokenNewline},
				{Type: TokenEOF},
			},
		},
		{
			name: "statements and call",
			src:  "10 X=KEY(\"A\"):Y=2\r\n20 END",
			want: []Token{
				{Type: TokenLineNumber, Text: "10", Num: 10},
				{Type: TokenIdent, Text: "X"},
				{Type: TokenOperator, Text: "="},
				{Type: TokenIdent, Text: "KEY"},
				{Type: TokenLParen},
				{Type: TokenString, Text: "A"},
				{Type: TokenRParen},
				{Type: TokenColon},
				{Type: TokenIdent, Text: "Y"},
				{Type: TokenOperator, Text: "="},
				{Type: TokenNumber, Text: "2", Num: 2},
				{Type: TokenNewline},
				{Type: TokenLineNumber, Text: "20", Num: 20},
				{Type: TokenKeyword, Text: "END"},
				{Type: TokenNewline},
				{Type: TokenEOF},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.src)
			if err != nil {
				t.Fatalf("Tokenize: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreFields(Token{}, "Line", "Pos")); diff != "" {
				t.Errorf("Tokenize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		kind    error
		message string
	}{
		{"unterminated string", "10 PRINT \"OOPS", ErrUnterminatedString, "?UNTERMINATED STRING AT POSITION 9"},
		{"string ends at line break", "10 PRINT \"A\n20 END", ErrUnterminatedString, "?UNTERMINATED STRING AT POSITION 9"},
		{"illegal character", "10 X = 5 @ 3", ErrIllegalCharacter, "ILLEGAL CHARACTER '@' AT POSITION 9\n10 X = 5 @ 3\n         ^"},
		{"dangling exponent", "10 X = 1E", ErrInvalidNumber, "?INVALID NUMBER '1E' AT POSITION 7"},
		{"line number too large", "70000 END", ErrInvalidNumber, "?INVALID NUMBER '70000' AT POSITION 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.src)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("err = %v, want kind %v", err, tt.kind)
			}
			if err.Error() != tt.message {
				t.Errorf("message = %q, want %q", err.Error(), tt.message)
			}
			be, _ := AsBASICError(err)
			if !be.Kind.IsLexical() {
				t.Errorf("%v is not lexical", be.Kind)
			}
		})
	}
}
