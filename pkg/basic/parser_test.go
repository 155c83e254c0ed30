package basic

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// render prints an expression tree in prefix form.
func render(x Expr) string {
	switch n := x.(type) {
	case *NumberLit:
		return formatNumber(n.Value)
	case *StringLit:
		return fmt.Sprintf("%q", n.Value)
	case *VarRef:
		return n.Name
	case *ArrayRef:
		return n.Name + renderArgs(n.Indices)
	case *FuncCall:
		return n.Name + renderArgs(n.Args)
	case *UserFnCall:
		return "FN" + n.Name + "(" + render(n.Arg) + ")"
	case *UnaryExpr:
		if n.Op == OpNot {
			return "(NOT " + render(n.Operand) + ")"
		}
		return "(NEG " + render(n.Operand) + ")"
	case *BinaryExpr:
		return "(" + n.Op.String() + " " + render(n.Left) + " " + render(n.Right) + ")"
	}
	return fmt.Sprintf("<%T>", x)
}

func renderArgs(args []Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = render(a)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func parseLine(t *testing.T, src string) []Statement {
	t.Helper()
	prog, err := ParseSource(src)
	if err != nil {
		t.Fatalf("ParseSource(%q): %v", src, err)
	}
	first, ok := prog.First()
	if !ok {
		t.Fatalf("ParseSource(%q) returned an empty program", src)
	}
	line, _ := prog.Line(first)
	return line.Statements
}

func TestExpressionPrecedence(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1+2*3", "(+ 1 (* 2 3))"},
		{"(1+2)*3", "(* (+ 1 2) 3)"},
		{"10-4-3", "(- (- 10 4) 3)"},
		{"2^3^2", "(^ 2 (^ 3 2))"},
		{"-2^2", "(^ -2 2)"},
		{"-(A+1)*3", "(* (NEG (+ A 1)) 3)"},
		{"10 MOD 3+1", "(+ (MOD 10 3) 1)"},
		{"A OR B AND C", "(OR A (AND B C))"},
		{"A=1 AND B<2", "(AND (= A 1) (< B 2))"},
		{"NOT A=B", "(= (NOT A) B)"},
		{"A$<>\"X\"", "(<> A$ \"X\")"},
		{"LEN(A$)+MID$(B$,2,3)", "(+ LEN(A$) MID$(B$,2,3))"},
		{"A(1,2)*FNSQ(3)", "(* A(1,2) FNSQ(3))"},
		{"KEY(\"W\")", "KEY(\"W\")"},
		{"RND+INKEY", "(+ RND() INKEY())"},
		{"MOD(7,2)", "MOD(7,2)"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			stmts := parseLine(t, "10 X = "+tt.expr)
			let, ok := stmts[0].(*LetStmt)
			if !ok {
				t.Fatalf("statement is %T, want *LetStmt", stmts[0])
			}
			if got := render(let.Value); got != tt.want {
				t.Errorf("parsed %q as %s, want %s", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParseProgramLines(t *testing.T) {
	prog, err := ParseSource("10 X = 1\n\n20 PRINT X\n\n1000 REM INIT\n1010 RETURN\n")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint16{10, 20, 1000, 1010}, prog.Lines()); diff != "" {
		t.Errorf("Lines mismatch (-want +got):\n%s", diff)
	}
	if next, ok := prog.After(20); !ok || next != 1000 {
		t.Errorf("After(20) = %d, %v", next, ok)
	}
	if _, ok := prog.After(1010); ok {
		t.Error("After(1010) found a line")
	}
	line, _ := prog.Line(1000)
	if rem, ok := line.Statements[0].(*RemStmt); !ok || rem.Comment != "INIT" {
		t.Errorf("line 1000 = %#v", line.Statements[0])
	}
}

func TestParseStatements(t *testing.T) {
	t.Run("colon separated", func(t *testing.T) {
		stmts := parseLine(t, "10 FOR I=1 TO 5 STEP 2:PLOT I,10,\"X\",15,0:NEXT I")
		if len(stmts) != 3 {
			t.Fatalf("got %d statements", len(stmts))
		}
		loop := stmts[0].(*ForStmt)
		if loop.Var != "I" || render(loop.Start) != "1" || render(loop.Limit) != "5" || render(loop.Step) != "2" {
			t.Errorf("FOR = %s %s %s %s", loop.Var, render(loop.Start), render(loop.Limit), render(loop.Step))
		}
		if next := stmts[2].(*NextStmt); !cmp.Equal(next.Vars, []string{"I"}) {
			t.Errorf("NEXT vars = %v", next.Vars)
		}
	})

	t.Run("then line number is goto", func(t *testing.T) {
		stmts := parseLine(t, "10 IF X > 1 THEN 100")
		ifs := stmts[0].(*IfStmt)
		if len(ifs.Then) != 1 {
			t.Fatalf("THEN has %d statements", len(ifs.Then))
		}
		if g, ok := ifs.Then[0].(*GotoStmt); !ok || render(g.Target) != "100" {
			t.Errorf("THEN = %#v", ifs.Then[0])
		}
	})

	t.Run("if goto shorthand", func(t *testing.T) {
		stmts := parseLine(t, "10 IF X GOTO 50")
		if _, ok := stmts[0].(*IfStmt).Then[0].(*GotoStmt); !ok {
			t.Errorf("THEN = %#v", stmts[0].(*IfStmt).Then)
		}
	})

	t.Run("if else is laid out inline", func(t *testing.T) {
		prog, err := ParseSource("10 IF X THEN Y=1:Z=2 ELSE Y=3")
		if err != nil {
			t.Fatal(err)
		}
		line, _ := prog.Line(10)
		var kinds []string
		for _, s := range line.code {
			kinds = append(kinds, fmt.Sprintf("%T", s))
		}
		want := []string{"*basic.condJump", "*basic.LetStmt", "*basic.LetStmt", "*basic.branchEnd", "*basic.LetStmt"}
		if diff := cmp.Diff(want, kinds); diff != "" {
			t.Errorf("inlined code mismatch (-want +got):\n%s", diff)
		}
		if at := line.code[0].(*condJump).elseAt; at != 4 {
			t.Errorf("elseAt = %d, want 4", at)
		}
	})

	t.Run("optional graphics arguments", func(t *testing.T) {
		stmts := parseLine(t, "10 PLOT 1,2,\"#\":SPRITE 1,5,6,\"@\",14")
		plot := stmts[0].(*PlotStmt)
		if plot.FG != nil || plot.BG != nil {
			t.Error("PLOT colors should default")
		}
		sp := stmts[1].(*SpriteStmt)
		if sp.FG == nil || sp.BG != nil || sp.Visible != nil {
			t.Errorf("SPRITE optional args = %v %v %v", sp.FG, sp.BG, sp.Visible)
		}
	})

	t.Run("on gosub and def fn", func(t *testing.T) {
		stmts := parseLine(t, "10 ON K GOSUB 100,200:DEF FN SQ(X) = X*X")
		on := stmts[0].(*OnStmt)
		if !on.Gosub || !cmp.Equal(on.Targets, []uint16{100, 200}) {
			t.Errorf("ON = %+v", on)
		}
		def := stmts[1].(*DefFnStmt)
		if def.Name != "SQ" || def.Param != "X" || render(def.Body) != "(* X X)" {
			t.Errorf("DEF = %s(%s) %s", def.Name, def.Param, render(def.Body))
		}
	})
}

func TestParseCollectsData(t *testing.T) {
	prog, err := ParseSource("10 DATA 1,\"A\",-2\n20 READ X\n30 DATA FOO")
	if err != nil {
		t.Fatal(err)
	}
	want := []BASICValue{NumberValue(1), StringValue("A"), NumberValue(-2), StringValue("FOO")}
	if diff := cmp.Diff(want, prog.Data()); diff != "" {
		t.Errorf("Data mismatch (-want +got):\n%s", diff)
	}
	if got := prog.dataIndexFrom(30); got != 3 {
		t.Errorf("dataIndexFrom(30) = %d, want 3", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		kind    error
		message string
	}{
		{"open parenthesis", "10 PRINT (1+2", ErrUnmatchedParenthesis, "?UNMATCHED PARENTHESIS AT POSITION 9"},
		{"stray close parenthesis", "10 X = 1)", ErrUnmatchedParenthesis, "?UNMATCHED PARENTHESIS AT POSITION 8"},
		{"missing expression", "10 X = ", ErrExpectedExpression, "?EXPECTED EXPRESSION AT POSITION 7"},
		{"keyword is no statement", "10 THEN", ErrInvalidStatement, "?INVALID STATEMENT AT POSITION 3"},
		{"operator is no statement", "10 + 1", ErrInvalidStatement, "?INVALID STATEMENT AT POSITION 3"},
		{"missing equals", "10 FOO BAR", ErrSyntax, "?SYNTAX ERROR: '=' EXPECTED AT POSITION 7"},
		{"missing line number", "PRINT 1", ErrSyntax, "?SYNTAX ERROR: LINE NUMBER EXPECTED IN SOURCE LINE 1"},
		{"lines out of order", "20 END\n10 END", ErrSyntax, "?SYNTAX ERROR: LINE 10 OUT OF ORDER"},
		{"plot arity", "10 PLOT 1,2", ErrSyntax, "?SYNTAX ERROR: PLOT REQUIRES 3 TO 5 ARGUMENTS"},
		{"function arity", "10 X = LEN(1,2)", ErrSyntax, "?SYNTAX ERROR: WRONG NUMBER OF ARGUMENTS FOR LEN"},
		{"else without if", "10 ELSE", ErrSyntax, "?SYNTAX ERROR: ELSE WITHOUT IF AT POSITION 3"},
		{"string loop variable", "10 FOR A$=1 TO 2", ErrTypeMismatch, "?TYPE MISMATCH ERROR: FOR variable A$ must be numeric"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSource(tt.src)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("err = %v, want kind %v", err, tt.kind)
			}
			if err.Error() != tt.message {
				t.Errorf("message = %q, want %q", err.Error(), tt.message)
			}
		})
	}
}

func TestParseErrorRecordsLine(t *testing.T) {
	_, err := ParseSource("10 X = 1\n20 Y = ")
	be, ok := AsBASICError(err)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	if be.SourceLine != 20 || !be.Kind.IsSyntactic() {
		t.Errorf("SourceLine = %d, kind %v", be.SourceLine, be.Kind)
	}
}
