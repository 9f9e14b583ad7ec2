package pywat

import (
	"fmt"
	"strconv"
)

type Node interface {
	Pos() Position
}

// Definition is a top-level declaration: *VarDef or *ClassDef.
type Definition interface {
	Node
	defNode()
	DefName() string
}

type Statement interface {
	Node
	stmtNode()
	// ResultType is the statement's aggregate return type after checking:
	// None unless a return executes on the statement's path.
	ResultType() Type
}

type Expression interface {
	Node
	exprNode()
	// Type is the expression's checked type.
	Type() Type
}

type Program struct {
	Defs       []Definition
	Statements []Statement
}

func (p *Program) Pos() Position {
	if len(p.Defs) > 0 {
		return p.Defs[0].Pos()
	}
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return Position{}
}

type TypedVar struct {
	Name     string
	Type     Type
	position Position
}

func (v TypedVar) Pos() Position { return v.position }

// VarDef declares a variable with a literal initial value. It appears at
// global scope, as a class field, or as a function local.
type VarDef struct {
	Name     string
	Type     Type
	Value    Literal
	position Position
}

func (d *VarDef) defNode()        {}
func (d *VarDef) Pos() Position   { return d.position }
func (d *VarDef) DefName() string { return d.Name }

type ClassDef struct {
	Name     string
	Fields   []*VarDef
	Methods  []*FuncDef
	position Position
}

func (d *ClassDef) defNode()        {}
func (d *ClassDef) Pos() Position   { return d.position }
func (d *ClassDef) DefName() string { return d.Name }

// FuncDef is a method. Params includes the receiver as its first entry.
// A nil Return means the function returns None.
type FuncDef struct {
	Name     string
	Class    string
	Params   []TypedVar
	Return   *Type
	Locals   []*VarDef
	Body     []Statement
	position Position
}

func (d *FuncDef) Pos() Position { return d.position }

// ReturnType is the declared return type, None when omitted.
func (d *FuncDef) ReturnType() Type {
	if d.Return == nil {
		return NoneType
	}
	return *d.Return
}

// QualifiedName is the function's table key, "Class$method".
func (d *FuncDef) QualifiedName() string {
	return methodKey(d.Class, d.Name)
}

func methodKey(class, method string) string {
	return class + "$" + method
}

type LiteralKind int

const (
	LiteralNone LiteralKind = iota
	LiteralBool
	LiteralNumber
)

type Literal struct {
	Kind   LiteralKind
	Bool   bool
	Number int64
}

func NoneLiteral() Literal             { return Literal{Kind: LiteralNone} }
func BoolLiteral(b bool) Literal       { return Literal{Kind: LiteralBool, Bool: b} }
func NumberLiteral(n int64) Literal    { return Literal{Kind: LiteralNumber, Number: n} }
func (l Literal) Equal(o Literal) bool { return l == o }

func (l Literal) Type() Type {
	switch l.Kind {
	case LiteralBool:
		return BoolType
	case LiteralNumber:
		return NumberType
	default:
		return NoneType
	}
}

func (l Literal) String() string {
	switch l.Kind {
	case LiteralBool:
		if l.Bool {
			return "True"
		}
		return "False"
	case LiteralNumber:
		return strconv.FormatInt(l.Number, 10)
	case LiteralNone:
		return "None"
	default:
		return fmt.Sprintf("Literal(%d)", int(l.Kind))
	}
}
