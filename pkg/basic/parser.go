package basic

import (
	"strings"
)

// builtinArity maps every built-in function to its accepted argument count.
var builtinArity = map[string][2]int{
	"SGN": {1, 1}, "INT": {1, 1}, "ABS": {1, 1}, "SQR": {1, 1},
	"SIN": {1, 1}, "COS": {1, 1}, "TAN": {1, 1}, "ATN": {1, 1},
	"LOG": {1, 1}, "EXP": {1, 1}, "RND": {0, 1}, "MOD": {2, 2},
	"LEN": {1, 1}, "ASC": {1, 1}, "CHR$": {1, 1}, "STR$": {1, 1},
	"VAL": {1, 1}, "LEFT$": {2, 2}, "RIGHT$": {2, 2}, "MID$": {2, 3},
	"INSTR": {2, 3}, "SPACE$": {1, 1}, "POS": {1, 1}, "FRE": {1, 1},
	"KEY": {1, 1}, "INKEY": {0, 0},
	"SPRITEX": {1, 1}, "SPRITEY": {1, 1}, "SPRITEHIT": {2, 2},
}

// IsBuiltin reports whether name is a built-in function.
func IsBuiltin(name string) bool {
	_, ok := builtinArity[name]
	return ok
}

// Parser builds a Program from a token stream.
type Parser struct {
	tokens []Token
	pos    int
}

// Parse groups tokens into numbered lines of statements.
func Parse(tokens []Token) (*Program, error) {
	p := &Parser{tokens: tokens}
	return p.parseProgram()
}

// ParseSource tokenizes and parses in one go.
func ParseSource(source string) (*Program, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

func (p *Parser) peek() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Type: TokenEOF}
}

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset < len(p.tokens) {
		return p.tokens[p.pos+offset]
	}
	return Token{Type: TokenEOF}
}

func (p *Parser) next() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) acceptKeyword(kw string) bool {
	if p.peek().Is(kw) {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) acceptOp(op string) bool {
	if p.peek().IsOp(op) {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) accept(tt TokenType) bool {
	if p.peek().Type == tt {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return syntaxError("%s EXPECTED AT POSITION %d", kw, p.peek().Pos)
	}
	return nil
}

func (p *Parser) expectOp(op string) error {
	if !p.acceptOp(op) {
		return syntaxError("'%s' EXPECTED AT POSITION %d", op, p.peek().Pos)
	}
	return nil
}

func (p *Parser) expect(tt TokenType) error {
	if !p.accept(tt) {
		if tt == TokenRParen {
			return NewBASICError(KindUnmatchedParenthesis, "").WithPosition(p.peek().Pos)
		}
		return syntaxError("'%s' EXPECTED AT POSITION %d", tt, p.peek().Pos)
	}
	return nil
}

func (p *Parser) atStatementEnd() bool {
	switch t := p.peek(); t.Type {
	case TokenColon, TokenNewline, TokenEOF:
		return true
	case TokenKeyword:
		return t.Text == "ELSE"
	}
	return false
}

func (p *Parser) parseProgram() (*Program, error) {
	prog := NewProgram()
	last := -1
	for {
		for p.accept(TokenNewline) {
		}
		tok := p.peek()
		if tok.Type == TokenEOF {
			return prog, nil
		}
		if tok.Type != TokenLineNumber {
			return nil, syntaxError("LINE NUMBER EXPECTED IN SOURCE LINE %d", tok.Line)
		}
		p.next()
		number := int(tok.Num)
		if number <= last {
			return nil, syntaxError("LINE %d OUT OF ORDER", number)
		}
		last = number

		stmts, err := p.parseStatementList(false)
		if err != nil {
			if be, ok := AsBASICError(err); ok {
				be.WithSourceLine(number)
			}
			return nil, err
		}
		if err := p.expectLineEnd(); err != nil {
			return nil, err
		}
		prog.addLine(&ProgramLine{Number: uint16(number), Statements: stmts})
	}
}

func (p *Parser) expectLineEnd() error {
	switch t := p.peek(); t.Type {
	case TokenNewline:
		p.next()
		return nil
	case TokenEOF:
		return nil
	case TokenRParen:
		return NewBASICError(KindUnmatchedParenthesis, "").WithPosition(t.Pos)
	default:
		return syntaxError("UNEXPECTED %s AT POSITION %d", t, t.Pos)
	}
}

// parseStatementList reads colon-separated statements up to the end of the
// line. Inside a THEN branch it also stops in front of ELSE.
func (p *Parser) parseStatementList(inThen bool) ([]Statement, error) {
	var stmts []Statement
	for {
		if p.accept(TokenColon) {
			continue
		}
		tok := p.peek()
		if tok.Type == TokenNewline || tok.Type == TokenEOF {
			return stmts, nil
		}
		if tok.Is("ELSE") {
			if inThen {
				return stmts, nil
			}
			return nil, syntaxError("ELSE WITHOUT IF AT POSITION %d", tok.Pos)
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if !p.atStatementEnd() {
			t := p.peek()
			if t.Type == TokenRParen {
				return nil, NewBASICError(KindUnmatchedParenthesis, "").WithPosition(t.Pos)
			}
			return nil, syntaxError("UNEXPECTED %s AT POSITION %d", t, t.Pos)
		}
	}
}

func (p *Parser) parseStatement() (Statement, error) {
	tok := p.peek()
	at := node{Pos: tok.Pos}

	if tok.Type == TokenIdent {
		return p.parseAssignment(at)
	}
	if tok.Type != TokenKeyword {
		return nil, NewBASICError(KindInvalidStatement, "").WithPosition(tok.Pos)
	}
	p.next()

	switch tok.Text {
	case "LET":
		return p.parseAssignment(at)
	case "PRINT":
		return p.parsePrint(at)
	case "IF":
		return p.parseIf(at)
	case "FOR":
		return p.parseFor(at)
	case "NEXT":
		return p.parseNext(at)
	case "GOTO":
		target, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &GotoStmt{node: at, Target: target}, nil
	case "GOSUB":
		target, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &GosubStmt{node: at, Target: target}, nil
	case "RETURN":
		return &ReturnStmt{node: at}, nil
	case "ON":
		return p.parseOn(at)
	case "DIM":
		return p.parseDim(at)
	case "DATA":
		return p.parseData(at)
	case "READ":
		return p.parseRead(at)
	case "RESTORE":
		stmt := &RestoreStmt{node: at}
		if t := p.peek(); t.Type == TokenNumber {
			p.next()
			line, err := lineNumberOf(t)
			if err != nil {
				return nil, err
			}
			stmt.Line, stmt.HasLine = line, true
		}
		return stmt, nil
	case "END":
		return &EndStmt{node: at}, nil
	case "STOP":
		return &StopStmt{node: at}, nil
	case "REM":
		stmt := &RemStmt{node: at}
		if p.peek().Type == TokenString {
			stmt.Comment = p.next().Text
		}
		return stmt, nil
	case "DEF":
		return p.parseDefFn(at)
	case "YIELD":
		return &YieldStmt{node: at}, nil
	case "WAIT":
		secs, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &WaitStmt{node: at, Seconds: secs}, nil
	case "CLS":
		return &ClsStmt{node: at}, nil
	case "PLOT":
		args, err := p.parseArgs("PLOT", 3, 5)
		if err != nil {
			return nil, err
		}
		stmt := &PlotStmt{node: at, X: args[0], Y: args[1], Ch: args[2]}
		optional := []*Expr{&stmt.FG, &stmt.BG}
		for i, a := range args[3:] {
			*optional[i] = a
		}
		return stmt, nil
	case "LINE":
		args, err := p.parseArgs("LINE", 5, 5)
		if err != nil {
			return nil, err
		}
		return &LineStmt{node: at, X0: args[0], Y0: args[1], X1: args[2], Y1: args[3], Ch: args[4]}, nil
	case "BOX":
		args, err := p.parseArgs("BOX", 4, 5)
		if err != nil {
			return nil, err
		}
		stmt := &BoxStmt{node: at, X: args[0], Y: args[1], W: args[2], H: args[3]}
		if len(args) == 5 {
			stmt.Style = args[4]
		}
		return stmt, nil
	case "CIRCLE":
		args, err := p.parseArgs("CIRCLE", 4, 4)
		if err != nil {
			return nil, err
		}
		return &CircleStmt{node: at, X: args[0], Y: args[1], R: args[2], Ch: args[3]}, nil
	case "SPRITE":
		args, err := p.parseArgs("SPRITE", 4, 7)
		if err != nil {
			return nil, err
		}
		stmt := &SpriteStmt{node: at, ID: args[0], X: args[1], Y: args[2], Ch: args[3]}
		optional := []*Expr{&stmt.FG, &stmt.BG, &stmt.Visible}
		for i, a := range args[4:] {
			*optional[i] = a
		}
		return stmt, nil
	}
	return nil, NewBASICError(KindInvalidStatement, "").WithPosition(tok.Pos)
}

// parseArgs reads a comma-separated expression list of bounded length.
func (p *Parser) parseArgs(stmt string, min, max int) ([]Expr, error) {
	var args []Expr
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if !p.accept(TokenComma) {
			break
		}
	}
	if len(args) < min || len(args) > max {
		if min == max {
			return nil, syntaxError("%s REQUIRES %d ARGUMENTS", stmt, min)
		}
		return nil, syntaxError("%s REQUIRES %d TO %d ARGUMENTS", stmt, min, max)
	}
	return args, nil
}

func (p *Parser) parseTarget() (Target, error) {
	tok := p.peek()
	if tok.Type != TokenIdent {
		return Target{}, syntaxError("VARIABLE EXPECTED AT POSITION %d", tok.Pos)
	}
	p.next()
	target := Target{Name: tok.Text}
	if p.accept(TokenLParen) {
		indices, err := p.parseIndexList()
		if err != nil {
			return Target{}, err
		}
		target.Indices = indices
	}
	return target, nil
}

// parseIndexList reads "expr, expr)" after an opening parenthesis.
func (p *Parser) parseIndexList() ([]Expr, error) {
	open := p.tokens[p.pos-1].Pos
	var list []Expr
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if !p.accept(TokenComma) {
			break
		}
	}
	if !p.accept(TokenRParen) {
		return nil, NewBASICError(KindUnmatchedParenthesis, "").WithPosition(open)
	}
	return list, nil
}

func (p *Parser) parseAssignment(at node) (Statement, error) {
	target, err := p.parseTarget()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp("="); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &LetStmt{node: at, Target: target, Value: value}, nil
}

func (p *Parser) parsePrint(at node) (Statement, error) {
	stmt := &PrintStmt{node: at}
	for !p.atStatementEnd() {
		tok := p.peek()
		switch {
		case tok.Type == TokenSemicolon:
			p.next()
			stmt.Items = append(stmt.Items, PrintItem{Kind: PrintSemicolon})
		case tok.Type == TokenComma:
			p.next()
			stmt.Items = append(stmt.Items, PrintItem{Kind: PrintComma})
		case tok.Type == TokenIdent && (tok.Text == "TAB" || tok.Text == "SPC") && p.peekAt(1).Type == TokenLParen:
			p.next()
			p.next()
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if !p.accept(TokenRParen) {
				return nil, NewBASICError(KindUnmatchedParenthesis, "").WithPosition(p.peek().Pos)
			}
			kind := PrintTab
			if tok.Text == "SPC" {
				kind = PrintSpc
			}
			stmt.Items = append(stmt.Items, PrintItem{Kind: kind, Expr: e})
		default:
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			stmt.Items = append(stmt.Items, PrintItem{Kind: PrintExpr, Expr: e})
		}
	}
	return stmt, nil
}

func (p *Parser) parseIf(at node) (Statement, error) {
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{node: at, Cond: cond}

	// IF X GOTO 100 is accepted as IF X THEN 100
	if p.peek().Is("GOTO") {
		stmt.Then, err = p.parseBranch()
	} else {
		if err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		stmt.Then, err = p.parseBranch()
	}
	if err != nil {
		return nil, err
	}
	if p.acceptKeyword("ELSE") {
		stmt.Else, err = p.parseBranch()
		if err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// parseBranch parses the body of THEN or ELSE: a bare line number or a
// statement list running to the end of the line.
func (p *Parser) parseBranch() ([]Statement, error) {
	tok := p.peek()
	if tok.Type == TokenNumber {
		p.next()
		if _, err := lineNumberOf(tok); err != nil {
			return nil, err
		}
		return []Statement{&GotoStmt{node: node{Pos: tok.Pos}, Target: &NumberLit{node: node{Pos: tok.Pos}, Value: tok.Num}}}, nil
	}
	stmts, err := p.parseStatementList(true)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return nil, syntaxError("STATEMENT EXPECTED AFTER THEN AT POSITION %d", tok.Pos)
	}
	return stmts, nil
}

func (p *Parser) parseFor(at node) (Statement, error) {
	tok := p.peek()
	if tok.Type != TokenIdent {
		return nil, syntaxError("FOR VARIABLE EXPECTED AT POSITION %d", tok.Pos)
	}
	if IsStringName(tok.Text) {
		return nil, typeMismatch("FOR variable %s must be numeric", tok.Text)
	}
	p.next()
	if err := p.expectOp("="); err != nil {
		return nil, err
	}
	start, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TO"); err != nil {
		return nil, err
	}
	limit, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt := &ForStmt{node: at, Var: tok.Text, Start: start, Limit: limit}
	if p.acceptKeyword("STEP") {
		stmt.Step, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseNext(at node) (Statement, error) {
	stmt := &NextStmt{node: at}
	for p.peek().Type == TokenIdent {
		stmt.Vars = append(stmt.Vars, p.next().Text)
		if !p.accept(TokenComma) {
			break
		}
	}
	return stmt, nil
}

func (p *Parser) parseOn(at node) (Statement, error) {
	sel, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt := &OnStmt{node: at, Selector: sel}
	switch {
	case p.acceptKeyword("GOTO"):
	case p.acceptKeyword("GOSUB"):
		stmt.Gosub = true
	default:
		return nil, syntaxError("GOTO OR GOSUB EXPECTED AFTER ON AT POSITION %d", p.peek().Pos)
	}
	for {
		tok := p.next()
		if tok.Type != TokenNumber {
			return nil, syntaxError("LINE NUMBER EXPECTED AT POSITION %d", tok.Pos)
		}
		line, err := lineNumberOf(tok)
		if err != nil {
			return nil, err
		}
		stmt.Targets = append(stmt.Targets, line)
		if !p.accept(TokenComma) {
			return stmt, nil
		}
	}
}

func (p *Parser) parseDim(at node) (Statement, error) {
	stmt := &DimStmt{node: at}
	for {
		tok := p.peek()
		if tok.Type != TokenIdent {
			return nil, syntaxError("ARRAY NAME EXPECTED AT POSITION %d", tok.Pos)
		}
		p.next()
		if err := p.expect(TokenLParen); err != nil {
			return nil, err
		}
		sizes, err := p.parseIndexList()
		if err != nil {
			return nil, err
		}
		stmt.Arrays = append(stmt.Arrays, ArrayDecl{Name: tok.Text, Sizes: sizes})
		if !p.accept(TokenComma) {
			return stmt, nil
		}
	}
}

func (p *Parser) parseData(at node) (Statement, error) {
	stmt := &DataStmt{node: at}
	for {
		tok := p.next()
		switch {
		case tok.Type == TokenString:
			stmt.Values = append(stmt.Values, StringValue(tok.Text))
		case tok.Type == TokenNumber:
			stmt.Values = append(stmt.Values, NumberValue(tok.Num))
		case (tok.IsOp("-") || tok.IsOp("+")) && p.peek().Type == TokenNumber:
			n := p.next().Num
			if tok.Text == "-" {
				n = -n
			}
			stmt.Values = append(stmt.Values, NumberValue(n))
		case tok.Type == TokenIdent || tok.Type == TokenKeyword:
			// unquoted words are strings
			stmt.Values = append(stmt.Values, StringValue(tok.Text))
		default:
			return nil, syntaxError("INVALID DATA VALUE AT POSITION %d", tok.Pos)
		}
		if !p.accept(TokenComma) {
			return stmt, nil
		}
	}
}

func (p *Parser) parseRead(at node) (Statement, error) {
	stmt := &ReadStmt{node: at}
	for {
		target, err := p.parseTarget()
		if err != nil {
			return nil, err
		}
		stmt.Targets = append(stmt.Targets, target)
		if !p.accept(TokenComma) {
			return stmt, nil
		}
	}
}

// parseDefFn accepts both DEF FN SQ(X) and DEF FNSQ(X).
func (p *Parser) parseDefFn(at node) (Statement, error) {
	name, err := p.parseFnName()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	param := p.next()
	if param.Type != TokenIdent {
		return nil, syntaxError("PARAMETER EXPECTED AT POSITION %d", param.Pos)
	}
	if err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	if err := p.expectOp("="); err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &DefFnStmt{node: at, Name: name, Param: param.Text, Body: body}, nil
}

func (p *Parser) parseFnName() (string, error) {
	tok := p.next()
	if tok.Is("FN") {
		tok = p.next()
		if tok.Type != TokenIdent {
			return "", syntaxError("FUNCTION NAME EXPECTED AT POSITION %d", tok.Pos)
		}
		return tok.Text, nil
	}
	if tok.Type == TokenIdent && len(tok.Text) > 2 && strings.HasPrefix(tok.Text, "FN") {
		return tok.Text[2:], nil
	}
	return "", syntaxError("FN EXPECTED AT POSITION %d", tok.Pos)
}

func lineNumberOf(tok Token) (uint16, error) {
	if tok.Num < 0 || tok.Num > 65535 || tok.Num != float64(int(tok.Num)) {
		return 0, syntaxError("INVALID LINE NUMBER %s", tok.Text)
	}
	return uint16(tok.Num), nil
}

// Ausdrucksparser, niedrigste Priorität zuerst

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Is("OR") {
		tok := p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{node: node{Pos: tok.Pos}, Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peek().Is("AND") {
		tok := p.next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{node: node{Pos: tok.Pos}, Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

var comparisonOps = map[string]BinaryOp{
	"=": OpEq, "<>": OpNe, "<": OpLt, ">": OpGt, "<=": OpLe, ">=": OpGe,
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		op, ok := comparisonOps[tok.Text]
		if tok.Type != TokenOperator || !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{node: node{Pos: tok.Pos}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		var op BinaryOp
		switch {
		case tok.IsOp("+"):
			op = OpAdd
		case tok.IsOp("-"):
			op = OpSub
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{node: node{Pos: tok.Pos}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		var op BinaryOp
		switch {
		case tok.IsOp("*"):
			op = OpMul
		case tok.IsOp("/"):
			op = OpDiv
		case tok.Is("MOD"):
			op = OpMod
		default:
			return left, nil
		}
		p.next()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{node: node{Pos: tok.Pos}, Op: op, Left: left, Right: right}
	}
}

// parsePower is right-associative: 2^3^2 = 2^9.
func (p *Parser) parsePower() (Expr, error) {
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.IsOp("^") {
		p.next()
		exp, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{node: node{Pos: tok.Pos}, Op: OpPow, Left: base, Right: exp}, nil
	}
	return base, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	tok := p.peek()
	switch {
	case tok.IsOp("-"):
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := operand.(*NumberLit); ok {
			return &NumberLit{node: node{Pos: tok.Pos}, Value: -lit.Value}, nil
		}
		return &UnaryExpr{node: node{Pos: tok.Pos}, Op: OpNeg, Operand: operand}, nil
	case tok.IsOp("+"):
		p.next()
		return p.parseUnary()
	case tok.Is("NOT"):
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{node: node{Pos: tok.Pos}, Op: OpNot, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	at := node{Pos: tok.Pos}
	switch tok.Type {
	case TokenNumber:
		p.next()
		return &NumberLit{node: at, Value: tok.Num}, nil
	case TokenString:
		p.next()
		return &StringLit{node: at, Value: tok.Text}, nil
	case TokenLParen:
		p.next()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if !p.accept(TokenRParen) {
			return nil, NewBASICError(KindUnmatchedParenthesis, "").WithPosition(tok.Pos)
		}
		return inner, nil
	case TokenKeyword:
		if tok.Text == "MOD" && p.peekAt(1).Type == TokenLParen {
			p.next()
			return p.parseBuiltinCall(at, "MOD", builtinArity["MOD"])
		}
		if tok.Text == "FN" {
			name, err := p.parseFnName()
			if err != nil {
				return nil, err
			}
			return p.parseUserFnCall(at, name)
		}
	case TokenIdent:
		p.next()
		name := tok.Text
		if arity, ok := builtinArity[name]; ok {
			return p.parseBuiltinCall(at, name, arity)
		}
		if p.peek().Type == TokenLParen {
			if len(name) > 2 && strings.HasPrefix(name, "FN") {
				return p.parseUserFnCall(at, name[2:])
			}
			p.next()
			indices, err := p.parseIndexList()
			if err != nil {
				return nil, err
			}
			return &ArrayRef{node: at, Name: name, Indices: indices}, nil
		}
		return &VarRef{node: at, Name: name}, nil
	}
	return nil, NewBASICError(KindExpectedExpression, "").WithPosition(tok.Pos)
}

func (p *Parser) parseBuiltinCall(at node, name string, arity [2]int) (Expr, error) {
	call := &FuncCall{node: at, Name: name}
	if !p.accept(TokenLParen) {
		if arity[0] == 0 {
			return call, nil
		}
		return nil, syntaxError("%s REQUIRES ARGUMENTS", name)
	}
	if !p.accept(TokenRParen) {
		args, err := p.parseIndexList()
		if err != nil {
			return nil, err
		}
		call.Args = args
	}
	if n := len(call.Args); n < arity[0] || n > arity[1] {
		return nil, syntaxError("WRONG NUMBER OF ARGUMENTS FOR %s", name)
	}
	return call, nil
}

func (p *Parser) parseUserFnCall(at node, name string) (Expr, error) {
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	args, err := p.parseIndexList()
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, syntaxError("FN %s TAKES ONE ARGUMENT", name)
	}
	return &UserFnCall{node: at, Name: name, Arg: args[0]}, nil
}
