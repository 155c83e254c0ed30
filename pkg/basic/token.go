package basic

import "fmt"

// TokenType classifies a lexical unit.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNewline
	TokenLineNumber
	TokenNumber
	TokenString
	TokenIdent
	TokenKeyword
	TokenOperator
	TokenLParen
	TokenRParen
	TokenComma
	TokenColon
	TokenSemicolon
)

var tokenTypeNames = [...]string{
	TokenEOF:        "EOF",
	TokenNewline:    "NEWLINE",
	TokenLineNumber: "LINENUMBER",
	TokenNumber:     "NUMBER",
	TokenString:     "STRING",
	TokenIdent:      "IDENT",
	TokenKeyword:    "KEYWORD",
	TokenOperator:   "OPERATOR",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenComma:      ",",
	TokenColon:      ":",
	TokenSemicolon:  ";",
}

func (t TokenType) String() string {
	if int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is one lexical unit. Keywords and identifiers are upper-cased in
// Text; Num holds the value of number and line number tokens.
type Token struct {
	Type TokenType
	Text string
	Num  float64
	Line int // 1-based source line
	Pos  int // 0-based column within the source line
}

func (t Token) String() string {
	switch t.Type {
	case TokenNumber, TokenLineNumber:
		return fmt.Sprintf("%s(%g)", t.Type, t.Num)
	case TokenString:
		return fmt.Sprintf("%s(%q)", t.Type, t.Text)
	case TokenIdent, TokenKeyword, TokenOperator:
		return fmt.Sprintf("%s(%s)", t.Type, t.Text)
	}
	return t.Type.String()
}

// Is reports whether the token is the given keyword.
func (t Token) Is(keyword string) bool {
	return t.Type == TokenKeyword && t.Text == keyword
}

// IsOp reports whether the token is the given operator.
func (t Token) IsOp(op string) bool {
	return t.Type == TokenOperator && t.Text == op
}

// Schlüsselwörter des Dialekts
var keywords = map[string]bool{
	"PRINT": true, "IF": true, "THEN": true, "ELSE": true,
	"FOR": true, "TO": true, "STEP": true, "NEXT": true,
	"GOTO": true, "GOSUB": true, "RETURN": true, "ON": true,
	"DIM": true, "DATA": true, "READ": true, "RESTORE": true,
	"END": true, "STOP": true, "REM": true, "LET": true,
	"DEF": true, "FN": true,
	"YIELD": true, "WAIT": true,
	"PLOT": true, "CLS": true, "LINE": true, "BOX": true, "CIRCLE": true, "SPRITE": true,
	"AND": true, "OR": true, "NOT": true, "MOD": true,
}

// IsKeyword reports whether word (upper case) is reserved.
func IsKeyword(word string) bool {
	return keywords[word]
}
