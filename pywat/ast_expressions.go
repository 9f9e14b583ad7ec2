package pywat

type UnaryOp int

const (
	UnaryNot UnaryOp = iota
	UnaryNegate
)

func (op UnaryOp) String() string {
	if op == UnaryNot {
		return "not"
	}
	return "-"
}

type BinaryOp int

const (
	BinaryPlus BinaryOp = iota
	BinaryMinus
	BinaryMultiply
	BinaryFloorDiv
	BinaryMod
	BinaryEqual
	BinaryNotEqual
	BinaryLE
	BinaryGE
	BinaryLT
	BinaryGT
	BinaryIs
)

var binaryOpSymbols = []string{
	BinaryPlus:     "+",
	BinaryMinus:    "-",
	BinaryMultiply: "*",
	BinaryFloorDiv: "//",
	BinaryMod:      "%",
	BinaryEqual:    "==",
	BinaryNotEqual: "!=",
	BinaryLE:       "<=",
	BinaryGE:       ">=",
	BinaryLT:       "<",
	BinaryGT:       ">",
	BinaryIs:       "is",
}

func (op BinaryOp) String() string {
	return binaryOpSymbols[op]
}

type LiteralExpr struct {
	Value    Literal
	position Position
}

func (e *LiteralExpr) exprNode()     {}
func (e *LiteralExpr) Pos() Position { return e.position }
func (e *LiteralExpr) Type() Type    { return e.Value.Type() }

type Identifier struct {
	Name     string
	ty       Type
	position Position
}

func (e *Identifier) exprNode()     {}
func (e *Identifier) Pos() Position { return e.position }
func (e *Identifier) Type() Type    { return e.ty }

type UnaryExpr struct {
	Op       UnaryOp
	Operand  Expression
	ty       Type
	position Position
}

func (e *UnaryExpr) exprNode()     {}
func (e *UnaryExpr) Pos() Position { return e.position }
func (e *UnaryExpr) Type() Type    { return e.ty }

type BinaryExpr struct {
	Op       BinaryOp
	Left     Expression
	Right    Expression
	ty       Type
	position Position
}

func (e *BinaryExpr) exprNode()     {}
func (e *BinaryExpr) Pos() Position { return e.position }
func (e *BinaryExpr) Type() Type    { return e.ty }

type ParenExpr struct {
	Inner    Expression
	position Position
}

func (e *ParenExpr) exprNode()     {}
func (e *ParenExpr) Pos() Position { return e.position }
func (e *ParenExpr) Type() Type    { return e.Inner.Type() }

// MethodCallExpr is receiver.Name(Args...).
type MethodCallExpr struct {
	Receiver Expression
	Name     string
	Args     []Expression
	ty       Type
	position Position
}

func (e *MethodCallExpr) exprNode()     {}
func (e *MethodCallExpr) Pos() Position { return e.position }
func (e *MethodCallExpr) Type() Type    { return e.ty }

// CallExpr calls a free function by name. The parser also produces it for
// ClassName(); the checker rewrites those into *ConstructExpr.
type CallExpr struct {
	Name     string
	Args     []Expression
	ty       Type
	position Position
}

func (e *CallExpr) exprNode()     {}
func (e *CallExpr) Pos() Position { return e.position }
func (e *CallExpr) Type() Type    { return e.ty }

type ConstructExpr struct {
	Class    string
	position Position
}

func (e *ConstructExpr) exprNode()     {}
func (e *ConstructExpr) Pos() Position { return e.position }
func (e *ConstructExpr) Type() Type    { return ClassType(e.Class) }

// FieldExpr is receiver.Name used as a value or assignment target.
type FieldExpr struct {
	Receiver Expression
	Name     string
	ty       Type
	position Position
}

func (e *FieldExpr) exprNode()     {}
func (e *FieldExpr) Pos() Position { return e.position }
func (e *FieldExpr) Type() Type    { return e.ty }
