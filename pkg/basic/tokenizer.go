package basic

import (
	"strconv"
	"strings"
	"unicode"
)

// Tokenizer turns BASIC source text into tokens. It performs no semantic
// validation; a line number is simply a number at the start of a line.
type Tokenizer struct {
	src     []rune
	pos     int
	line    int
	lineBeg int
	tokens  []Token
}

// Tokenize converts source into a token stream terminated by TokenEOF.
// Each source line ends with a TokenNewline.
func Tokenize(source string) ([]Token, error) {
	t := &Tokenizer{src: []rune(source), line: 1}
	if err := t.run(); err != nil {
		return nil, err
	}
	return t.tokens, nil
}

func (t *Tokenizer) run() error {
	atLineStart := true
	for {
		t.skipWhitespace()
		if t.pos >= len(t.src) {
			t.emitNewlineIfNeeded()
			t.emit(Token{Type: TokenEOF})
			return nil
		}
		ch := t.src[t.pos]
		col := t.pos - t.lineBeg

		switch {
		case ch == '\n' || ch == '\r':
			t.advanceNewline()
			atLineStart = true
			continue
		case atLineStart && isDigit(ch):
			tok, err := t.readLineNumber()
			if err != nil {
				return err
			}
			t.emit(tok)
		case isDigit(ch) || (ch == '.' && isDigit(t.peek(1))):
			tok, err := t.readNumber()
			if err != nil {
				return err
			}
			t.emit(tok)
		case ch == '"':
			tok, err := t.readString()
			if err != nil {
				return err
			}
			t.emit(tok)
		case isLetter(ch):
			t.readWord()
		default:
			if !t.readPunct(ch, col) {
				return t.illegalCharacter(ch, col)
			}
		}
		atLineStart = false
	}
}

func (t *Tokenizer) emit(tok Token) {
	if tok.Line == 0 {
		tok.Line = t.line
	}
	t.tokens = append(t.tokens, tok)
}

func (t *Tokenizer) emitNewlineIfNeeded() {
	n := len(t.tokens)
	if n > 0 && t.tokens[n-1].Type != TokenNewline {
		t.emit(Token{Type: TokenNewline, Pos: t.pos - t.lineBeg})
	}
}

func (t *Tokenizer) advanceNewline() {
	t.emitNewlineIfNeeded()
	if t.src[t.pos] == '\r' && t.peek(1) == '\n' {
		t.pos++
	}
	t.pos++
	t.line++
	t.lineBeg = t.pos
}

func (t *Tokenizer) peek(offset int) rune {
	if t.pos+offset < len(t.src) {
		return t.src[t.pos+offset]
	}
	return 0
}

func (t *Tokenizer) skipWhitespace() {
	for t.pos < len(t.src) {
		ch := t.src[t.pos]
		if ch != ' ' && ch != '\t' {
			return
		}
		t.pos++
	}
}

func (t *Tokenizer) readLineNumber() (Token, error) {
	start := t.pos
	for t.pos < len(t.src) && isDigit(t.src[t.pos]) {
		t.pos++
	}
	text := string(t.src[start:t.pos])
	n, err := strconv.ParseUint(text, 10, 16)
	if err != nil {
		return Token{}, NewBASICError(KindInvalidNumber, text).WithPosition(start - t.lineBeg)
	}
	return Token{Type: TokenLineNumber, Text: text, Num: float64(n), Pos: start - t.lineBeg}, nil
}

func (t *Tokenizer) readNumber() (Token, error) {
	start := t.pos
	hasDot, hasExp := false, false
	var sb strings.Builder
	for t.pos < len(t.src) {
		ch := t.src[t.pos]
		switch {
		case isDigit(ch):
			sb.WriteRune(ch)
		case ch == '.' && !hasDot && !hasExp:
			hasDot = true
			sb.WriteRune(ch)
		case (ch == 'E' || ch == 'e') && !hasExp:
			hasExp = true
			sb.WriteRune('E')
			if next := t.peek(1); next == '+' || next == '-' {
				t.pos++
				sb.WriteRune(next)
			}
		default:
			return t.finishNumber(sb.String(), start)
		}
		t.pos++
	}
	return t.finishNumber(sb.String(), start)
}

func (t *Tokenizer) finishNumber(text string, start int) (Token, error) {
	col := start - t.lineBeg
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, NewBASICError(KindInvalidNumber, text).WithPosition(col)
	}
	return Token{Type: TokenNumber, Text: text, Num: n, Pos: col}, nil
}

func (t *Tokenizer) readString() (Token, error) {
	start := t.pos
	t.pos++ // opening quote
	var sb strings.Builder
	for t.pos < len(t.src) {
		ch := t.src[t.pos]
		if ch == '"' {
			t.pos++
			return Token{Type: TokenString, Text: sb.String(), Pos: start - t.lineBeg}, nil
		}
		if ch == '\n' || ch == '\r' {
			break
		}
		sb.WriteRune(ch)
		t.pos++
	}
	return Token{}, NewBASICError(KindUnterminatedString, "").WithPosition(start - t.lineBeg)
}

// readWord reads an identifier or keyword. REM swallows the rest of the
// line as a string token, GO TO and GO SUB collapse into one keyword.
func (t *Tokenizer) readWord() {
	start := t.pos
	col := start - t.lineBeg
	for t.pos < len(t.src) && (isLetter(t.src[t.pos]) || isDigit(t.src[t.pos])) {
		t.pos++
	}
	if t.pos < len(t.src) && t.src[t.pos] == '$' {
		t.pos++
	}
	word := strings.ToUpper(string(t.src[start:t.pos]))

	if word == "GO" {
		save := t.pos
		t.skipWhitespace()
		nextStart := t.pos
		for t.pos < len(t.src) && isLetter(t.src[t.pos]) {
			t.pos++
		}
		switch strings.ToUpper(string(t.src[nextStart:t.pos])) {
		case "TO":
			t.emit(Token{Type: TokenKeyword, Text: "GOTO", Pos: col})
			return
		case "SUB":
			t.emit(Token{Type: TokenKeyword, Text: "GOSUB", Pos: col})
			return
		}
		t.pos = save
	}

	if !IsKeyword(word) {
		t.emit(Token{Type: TokenIdent, Text: word, Pos: col})
		return
	}
	t.emit(Token{Type: TokenKeyword, Text: word, Pos: col})

	if word == "REM" {
		t.skipWhitespace()
		commentStart := t.pos
		for t.pos < len(t.src) && t.src[t.pos] != '\n' && t.src[t.pos] != '\r' {
			t.pos++
		}
		comment := strings.TrimSpace(string(t.src[commentStart:t.pos]))
		t.emit(Token{Type: TokenString, Text: comment, Pos: commentStart - t.lineBeg})
	}
}

func (t *Tokenizer) readPunct(ch rune, col int) bool {
	tok := Token{Pos: col}
	switch ch {
	case '(':
		tok.Type = TokenLParen
	case ')':
		tok.Type = TokenRParen
	case ',':
		tok.Type = TokenComma
	case ':':
		tok.Type = TokenColon
	case ';':
		tok.Type = TokenSemicolon
	case '+', '-', '*', '/', '^', '=':
		tok.Type, tok.Text = TokenOperator, string(ch)
	case '<':
		tok.Type, tok.Text = TokenOperator, "<"
		if next := t.peek(1); next == '=' || next == '>' {
			tok.Text += string(next)
			t.pos++
		}
	case '>':
		tok.Type, tok.Text = TokenOperator, ">"
		if t.peek(1) == '=' {
			tok.Text = ">="
			t.pos++
		}
	default:
		return false
	}
	t.pos++
	t.emit(tok)
	return true
}

func (t *Tokenizer) illegalCharacter(ch rune, col int) error {
	end := t.lineBeg
	for end < len(t.src) && t.src[end] != '\n' && t.src[end] != '\r' {
		end++
	}
	context := string(t.src[t.lineBeg:end]) + "\n" + strings.Repeat(" ", col) + "^"
	return &BASICError{Kind: KindIllegalCharacter, Char: ch, Position: col, Context: context}
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch rune) bool {
	return ch < unicode.MaxASCII && unicode.IsLetter(ch)
}
