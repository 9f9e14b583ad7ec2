package pywat

import (
	"strings"
	"testing"
)

func parseSource(t *testing.T, source string) *Program {
	t.Helper()
	prog, err := Parse(source)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return prog
}

func requireParseError(t *testing.T, source, want string) {
	t.Helper()
	_, err := Parse(source)
	if err == nil {
		t.Fatalf("expected parse error containing %q", want)
	}
	if !IsKind(err, KindParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error containing %q, got %v", want, err)
	}
}

func TestParseDefinitionsAndStatements(t *testing.T) {
	prog := parseSource(t, `
class Counter(object):
    n: int = 0
    def add(self, k: int) -> int:
        i: int = 0
        self.n = self.n + k
        return self.n
    def reset(self):
        self.n = 0

c: Counter = None
flag: bool = True
c = Counter()
c.add(2)
`)

	if len(prog.Defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(prog.Defs))
	}
	class, ok := prog.Defs[0].(*ClassDef)
	if !ok {
		t.Fatalf("expected class definition, got %T", prog.Defs[0])
	}
	if class.Name != "Counter" || len(class.Fields) != 1 || len(class.Methods) != 2 {
		t.Fatalf("unexpected class shape: %#v", class)
	}

	add := class.Methods[0]
	if add.QualifiedName() != "Counter$add" {
		t.Fatalf("unexpected qualified name %s", add.QualifiedName())
	}
	if len(add.Params) != 2 || !add.Params[0].Type.Equal(ClassType("Counter")) || !add.Params[1].Type.Equal(NumberType) {
		t.Fatalf("unexpected params: %#v", add.Params)
	}
	if !add.ReturnType().Equal(NumberType) {
		t.Fatalf("expected int return, got %s", add.ReturnType())
	}
	if len(add.Locals) != 1 || add.Locals[0].Name != "i" {
		t.Fatalf("expected local i, got %#v", add.Locals)
	}
	if len(add.Body) != 2 {
		t.Fatalf("expected 2 body statements, got %d", len(add.Body))
	}
	if !class.Methods[1].ReturnType().IsNone() {
		t.Fatalf("expected reset to return None")
	}

	c, ok := prog.Defs[1].(*VarDef)
	if !ok || !c.Type.Equal(ClassType("Counter")) || c.Value.Kind != LiteralNone {
		t.Fatalf("unexpected var def: %#v", prog.Defs[1])
	}

	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
	assign, ok := prog.Statements[0].(*AssignStmt)
	if !ok || assign.Name() != "c" {
		t.Fatalf("expected assignment to c, got %#v", prog.Statements[0])
	}
	call, ok := assign.Value.(*CallExpr)
	if !ok || call.Name != "Counter" || len(call.Args) != 0 {
		t.Fatalf("expected Counter() call, got %#v", assign.Value)
	}
	stmt, ok := prog.Statements[1].(*ExprStmt)
	if !ok {
		t.Fatalf("expected expression statement, got %T", prog.Statements[1])
	}
	if _, ok := stmt.Expr.(*MethodCallExpr); !ok {
		t.Fatalf("expected method call, got %T", stmt.Expr)
	}
}

func TestParseElifNestsInElse(t *testing.T) {
	prog := parseSource(t, `x: int = 1
if x < 0:
    x = 0
elif x < 10:
    x = 1
else:
    x = 2
`)
	stmt, ok := prog.Statements[0].(*IfStmt)
	if !ok {
		t.Fatalf("expected if statement, got %T", prog.Statements[0])
	}
	if len(stmt.Else) != 1 {
		t.Fatalf("expected elif nested as single else statement, got %d", len(stmt.Else))
	}
	inner, ok := stmt.Else[0].(*IfStmt)
	if !ok {
		t.Fatalf("expected nested if, got %T", stmt.Else[0])
	}
	if len(inner.Then) != 1 || len(inner.Else) != 1 {
		t.Fatalf("unexpected nested if shape: %#v", inner)
	}
}

func TestParsePrecedence(t *testing.T) {
	prog := parseSource(t, "1 + 2 * 3 == 7\n")
	stmt := prog.Statements[0].(*ExprStmt)
	eq, ok := stmt.Expr.(*BinaryExpr)
	if !ok || eq.Op != BinaryEqual {
		t.Fatalf("expected == at the root, got %#v", stmt.Expr)
	}
	sum, ok := eq.Left.(*BinaryExpr)
	if !ok || sum.Op != BinaryPlus {
		t.Fatalf("expected + under ==, got %#v", eq.Left)
	}
	if product, ok := sum.Right.(*BinaryExpr); !ok || product.Op != BinaryMultiply {
		t.Fatalf("expected * under +, got %#v", sum.Right)
	}
}

func TestParseUnaryMinusBindsTighterThanFloorDiv(t *testing.T) {
	prog := parseSource(t, "-7 // 2\n")
	div, ok := prog.Statements[0].(*ExprStmt).Expr.(*BinaryExpr)
	if !ok || div.Op != BinaryFloorDiv {
		t.Fatalf("expected // at the root, got %#v", prog.Statements[0])
	}
	if neg, ok := div.Left.(*UnaryExpr); !ok || neg.Op != UnaryNegate {
		t.Fatalf("expected negation on the left, got %#v", div.Left)
	}
}

func TestParseNotBindsLooserThanComparison(t *testing.T) {
	prog := parseSource(t, "not 1 < 2\n")
	not, ok := prog.Statements[0].(*ExprStmt).Expr.(*UnaryExpr)
	if !ok || not.Op != UnaryNot {
		t.Fatalf("expected not at the root, got %#v", prog.Statements[0])
	}
	if cmp, ok := not.Operand.(*BinaryExpr); !ok || cmp.Op != BinaryLT {
		t.Fatalf("expected comparison operand, got %#v", not.Operand)
	}
}

func TestParseBareReturnYieldsNone(t *testing.T) {
	prog := parseSource(t, `class C:
    def f(self):
        return
`)
	fn := prog.Defs[0].(*ClassDef).Methods[0]
	ret, ok := fn.Body[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("expected return statement, got %T", fn.Body[0])
	}
	lit, ok := ret.Value.(*LiteralExpr)
	if !ok || lit.Value.Kind != LiteralNone {
		t.Fatalf("expected None literal, got %#v", ret.Value)
	}
}

func TestParseNegativeLiteralInitializer(t *testing.T) {
	prog := parseSource(t, "x: int = -3\n")
	v := prog.Defs[0].(*VarDef)
	if v.Value.Number != -3 {
		t.Fatalf("expected -3, got %s", v.Value)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   string
	}{
		{"declaration after statement", "x: int = 1\nx = 2\ny: int = 3\n", "declarations must precede statements"},
		{"top level function", "def f():\n    pass\n", "functions must be defined inside a class"},
		{"inheritance", "class A(B):\n    pass\n", "inheritance is not supported"},
		{"missing initializer", "x: int\n", "'=' and an initial value"},
		{"none variable type", "x: None = None\n", "None is not a valid variable type"},
		{"true division", "x: int = 1\nx / 2\n", "true division is not supported"},
		{"float literal", "x: int = 1\nx = 1.5\n", "floating point literals are not supported"},
		{"bad assignment target", "x: int = 1\n1 = x\n", "cannot assign to this expression"},
		{"orphan elif", "x: int = 1\nelif x:\n    pass\n", "unexpected token 'elif'"},
		{"unannotated parameter", "class C:\n    def f(self, k):\n        pass\n", "parameter k needs a type annotation"},
		{"empty function", "class C:\n    def f(self):\n        x: int = 1\n", "needs at least one statement"},
		{"integer overflow", "x: int = 99999999999999999999\n", "out of range"},
		{"unclosed paren", "x: int = 1\n(x + 1\n", "expected ')'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requireParseError(t, tc.source, tc.want)
		})
	}
}

func TestParseErrorIncludesCodeFrame(t *testing.T) {
	_, err := Parse("x: int = 1\nx = = 2\n")
	if err == nil {
		t.Fatalf("expected parse error")
	}
	ce, ok := err.(*CompileError)
	if !ok {
		t.Fatalf("expected *CompileError, got %T", err)
	}
	if ce.Pos.Line != 2 {
		t.Fatalf("expected error on line 2, got %d", ce.Pos.Line)
	}
	if !strings.Contains(ce.CodeFrame, "x = = 2") {
		t.Fatalf("expected code frame to quote the line, got %q", ce.CodeFrame)
	}
}
