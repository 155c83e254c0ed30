package basic

import "sort"

// Expr is an expression node. Pos is the column of the node's first token.
type Expr interface {
	exprNode()
	Position() int
}

// Statement is one statement on a program line.
type Statement interface {
	stmtNode()
	Position() int
}

type node struct{ Pos int }

func (n node) Position() int { return n.Pos }

// BinaryOp enumerates infix operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpMod
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpAnd
	OpOr
)

var binaryOpText = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpPow: "^", OpMod: "MOD",
	OpEq: "=", OpNe: "<>", OpLt: "<", OpGt: ">", OpLe: "<=", OpGe: ">=",
	OpAnd: "AND", OpOr: "OR",
}

func (op BinaryOp) String() string { return binaryOpText[op] }

// UnaryOp enumerates prefix operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

// Expression nodes
type (
	NumberLit struct {
		node
		Value float64
	}
	StringLit struct {
		node
		Value string
	}
	VarRef struct {
		node
		Name string
	}
	ArrayRef struct {
		node
		Name    string
		Indices []Expr
	}
	// FuncCall is a call of a built-in function.
	FuncCall struct {
		node
		Name string
		Args []Expr
	}
	// UserFnCall calls a function defined with DEF FN.
	UserFnCall struct {
		node
		Name string
		Arg  Expr
	}
	BinaryExpr struct {
		node
		Op          BinaryOp
		Left, Right Expr
	}
	UnaryExpr struct {
		node
		Op      UnaryOp
		Operand Expr
	}
)

func (*NumberLit) exprNode()  {}
func (*StringLit) exprNode()  {}
func (*VarRef) exprNode()     {}
func (*ArrayRef) exprNode()   {}
func (*FuncCall) exprNode()   {}
func (*UserFnCall) exprNode() {}
func (*BinaryExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}

// Target is an assignable location: a scalar when Indices is nil.
type Target struct {
	Name    string
	Indices []Expr
}

// PrintKind tells separators and TAB/SPC apart from printed expressions.
type PrintKind int

const (
	PrintExpr PrintKind = iota
	PrintTab
	PrintSpc
	PrintComma
	PrintSemicolon
)

// PrintItem is one element of a PRINT list.
type PrintItem struct {
	Kind PrintKind
	Expr Expr
}

// ArrayDecl is one entry of a DIM statement.
type ArrayDecl struct {
	Name  string
	Sizes []Expr
}

// Statement nodes
type (
	LetStmt struct {
		node
		Target Target
		Value  Expr
	}
	PrintStmt struct {
		node
		Items []PrintItem
	}
	// IfStmt holds both branches as statement lists. THEN 100 is stored
	// as a single GotoStmt.
	IfStmt struct {
		node
		Cond Expr
		Then []Statement
		Else []Statement
	}
	ForStmt struct {
		node
		Var   string
		Start Expr
		Limit Expr
		Step  Expr // nil means 1
	}
	NextStmt struct {
		node
		Vars []string // empty: innermost loop
	}
	GotoStmt struct {
		node
		Target Expr
	}
	GosubStmt struct {
		node
		Target Expr
	}
	ReturnStmt struct{ node }
	OnStmt     struct {
		node
		Selector Expr
		Targets  []uint16
		Gosub    bool
	}
	DimStmt struct {
		node
		Arrays []ArrayDecl
	}
	DataStmt struct {
		node
		Values []BASICValue
	}
	ReadStmt struct {
		node
		Targets []Target
	}
	RestoreStmt struct {
		node
		Line    uint16
		HasLine bool
	}
	EndStmt  struct{ node }
	StopStmt struct{ node }
	RemStmt  struct {
		node
		Comment string
	}
	DefFnStmt struct {
		node
		Name  string
		Param string
		Body  Expr
	}
	YieldStmt struct{ node }
	WaitStmt  struct {
		node
		Seconds Expr
	}
	PlotStmt struct {
		node
		X, Y, Ch, FG, BG Expr
	}
	ClsStmt  struct{ node }
	LineStmt struct {
		node
		X0, Y0, X1, Y1, Ch Expr
	}
	BoxStmt struct {
		node
		X, Y, W, H, Style Expr
	}
	CircleStmt struct {
		node
		X, Y, R, Ch Expr
	}
	// SpriteStmt: SPRITE id, x, y, ch [, fg [, bg [, visible]]]
	SpriteStmt struct {
		node
		ID, X, Y, Ch, FG, BG, Visible Expr
	}
)

func (*LetStmt) stmtNode()     {}
func (*PrintStmt) stmtNode()   {}
func (*IfStmt) stmtNode()      {}
func (*ForStmt) stmtNode()     {}
func (*NextStmt) stmtNode()    {}
func (*GotoStmt) stmtNode()    {}
func (*GosubStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode()  {}
func (*OnStmt) stmtNode()      {}
func (*DimStmt) stmtNode()     {}
func (*DataStmt) stmtNode()    {}
func (*ReadStmt) stmtNode()    {}
func (*RestoreStmt) stmtNode() {}
func (*EndStmt) stmtNode()     {}
func (*StopStmt) stmtNode()    {}
func (*RemStmt) stmtNode()     {}
func (*DefFnStmt) stmtNode()   {}
func (*YieldStmt) stmtNode()   {}
func (*WaitStmt) stmtNode()    {}
func (*PlotStmt) stmtNode()    {}
func (*ClsStmt) stmtNode()     {}
func (*LineStmt) stmtNode()    {}
func (*BoxStmt) stmtNode()     {}
func (*CircleStmt) stmtNode()  {}
func (*SpriteStmt) stmtNode()  {}

// ProgramLine is one numbered line. Statements is the parsed tree; code is
// the same line with IF branches laid out inline, which is what the
// executor steps through. A THEN branch always runs to its ELSE or to the
// end of the line, so every branch is a contiguous run of statements and a
// (line, index) pair can address any statement, including ones inside IF.
type ProgramLine struct {
	Number     uint16
	Statements []Statement
	code       []Statement
}

// condJump starts an inlined IF. When the condition is false execution
// continues at elseAt, or on the next line if elseAt is negative.
type condJump struct {
	node
	Cond   Expr
	elseAt int
}

// branchEnd closes an inlined THEN branch that has an ELSE.
type branchEnd struct{ node }

func (*condJump) stmtNode()  {}
func (*branchEnd) stmtNode() {}

func flatten(stmts []Statement, out []Statement) []Statement {
	for _, stmt := range stmts {
		ifStmt, ok := stmt.(*IfStmt)
		if !ok {
			out = append(out, stmt)
			continue
		}
		jump := &condJump{node: ifStmt.node, Cond: ifStmt.Cond, elseAt: -1}
		out = append(out, jump)
		out = flatten(ifStmt.Then, out)
		if len(ifStmt.Else) > 0 {
			out = append(out, &branchEnd{node: ifStmt.node})
			jump.elseAt = len(out)
			out = flatten(ifStmt.Else, out)
		}
	}
	return out
}

type dataMark struct {
	line  uint16
	index int
}

// Program is the parsed form of a source text: numbered lines in ascending
// order plus every DATA literal collected in declaration order.
type Program struct {
	lines map[uint16]*ProgramLine
	order []uint16
	data  []BASICValue
	marks []dataMark
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{lines: make(map[uint16]*ProgramLine)}
}

// addLine appends a line. Callers guarantee ascending numbers.
func (p *Program) addLine(l *ProgramLine) {
	l.code = flatten(l.Statements, nil)
	p.lines[l.Number] = l
	p.order = append(p.order, l.Number)
	for _, stmt := range l.code {
		if d, ok := stmt.(*DataStmt); ok {
			p.marks = append(p.marks, dataMark{line: l.Number, index: len(p.data)})
			p.data = append(p.data, d.Values...)
		}
	}
}

// Line returns the line with the given number.
func (p *Program) Line(n uint16) (*ProgramLine, bool) {
	l, ok := p.lines[n]
	return l, ok
}

// HasLine reports whether line n exists.
func (p *Program) HasLine(n uint16) bool {
	_, ok := p.lines[n]
	return ok
}

// Lines returns the line numbers in ascending order.
func (p *Program) Lines() []uint16 {
	out := make([]uint16, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of lines.
func (p *Program) Len() int { return len(p.order) }

// First returns the lowest line number.
func (p *Program) First() (uint16, bool) {
	if len(p.order) == 0 {
		return 0, false
	}
	return p.order[0], true
}

// After returns the first line number greater than n.
func (p *Program) After(n uint16) (uint16, bool) {
	i := sort.Search(len(p.order), func(i int) bool { return p.order[i] > n })
	if i == len(p.order) {
		return 0, false
	}
	return p.order[i], true
}

// Data returns the collected DATA literals.
func (p *Program) Data() []BASICValue { return p.data }

// dataIndexFrom returns the index of the first DATA literal on or after line n.
func (p *Program) dataIndexFrom(n uint16) int {
	for _, m := range p.marks {
		if m.line >= n {
			return m.index
		}
	}
	return len(p.data)
}
