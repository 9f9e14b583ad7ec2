package pywat

var compareOps = map[BinaryOp]Op{
	BinaryEqual:    OpI64Eq,
	BinaryNotEqual: OpI64Ne,
	BinaryLT:       OpI64LtS,
	BinaryGT:       OpI64GtS,
	BinaryLE:       OpI64LeS,
	BinaryGE:       OpI64GeS,
}

var arithmeticOps = map[BinaryOp]Op{
	BinaryPlus:     OpI64Add,
	BinaryMinus:    OpI64Sub,
	BinaryMultiply: OpI64Mul,
}

func (g *generator) expression(buf []Instr, expr Expression) ([]Instr, error) {
	var err error
	switch e := expr.(type) {
	case *LiteralExpr:
		return append(buf, i64Const(encodeLiteral(e.Value))), nil
	case *Identifier:
		if g.isLocal(e.Name) {
			return append(buf, localGet(e.Name)), nil
		}
		slot, ok := g.env.GlobalSlot(e.Name)
		if !ok {
			return nil, internalErrorf(e.Pos(), "not a variable: %s", e.Name)
		}
		return append(buf, i32Const(globalAddr(slot)), plain(OpI64Load)), nil
	case *UnaryExpr:
		if e.Op == UnaryNegate {
			buf = append(buf, i64Const(0))
			if buf, err = g.expression(buf, e.Operand); err != nil {
				return nil, err
			}
			return append(buf, plain(OpI64Sub)), nil
		}
		if buf, err = g.expression(buf, e.Operand); err != nil {
			return nil, err
		}
		return negateBool(buf), nil
	case *BinaryExpr:
		return g.binary(buf, e)
	case *ParenExpr:
		return g.expression(buf, e.Inner)
	case *FieldExpr:
		offset, err := g.fieldOffset(e)
		if err != nil {
			return nil, err
		}
		if buf, err = g.expression(buf, e.Receiver); err != nil {
			return nil, err
		}
		return append(buf, plain(OpI32WrapI64), Instr{Op: OpI64Load, Imm: int64(offset)}), nil
	case *MethodCallExpr:
		return g.methodCall(buf, e)
	case *CallExpr:
		return g.call(buf, e)
	case *ConstructExpr:
		return g.construct(buf, e)
	default:
		return nil, internalErrorf(expr.Pos(), "unsupported expression %T", expr)
	}
}

// normalizeBool turns an i32 truth value into a bool word.
func normalizeBool(buf []Instr) []Instr {
	return append(buf, plain(OpI64ExtendI32S), i64Const(falseWord), plain(OpI64Add))
}

// negateBool replaces the bool word on the stack with its negation.
func negateBool(buf []Instr) []Instr {
	buf = append(buf, i64Const(falseWord), plain(OpI64Eq))
	return normalizeBool(buf)
}

// floorDiv divides the two i64 operands pushed by left and right, rounding
// toward negative infinity.
func floorDiv(buf, left, right []Instr) []Instr {
	buf = append(buf, left...)
	buf = append(buf, plain(OpF64ConvertI64S))
	buf = append(buf, right...)
	return append(buf,
		plain(OpF64ConvertI64S),
		plain(OpF64Div),
		plain(OpF64Floor),
		plain(OpI64TruncF64S),
	)
}

func (g *generator) binary(buf []Instr, e *BinaryExpr) ([]Instr, error) {
	if e.Op == BinaryIs && (e.Left.Type().IsNone() || e.Right.Type().IsNone()) {
		return append(buf, i64Const(trueWord)), nil
	}

	left, err := g.expression(nil, e.Left)
	if err != nil {
		return nil, err
	}
	right, err := g.expression(nil, e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case BinaryFloorDiv:
		return floorDiv(buf, left, right), nil
	case BinaryMod:
		// l - r * (l // r) with each operand evaluated once
		l, r := g.temp(), g.temp()
		buf = append(buf, left...)
		buf = append(buf, localSet(l))
		buf = append(buf, right...)
		buf = append(buf, localSet(r), localGet(l), localGet(r))
		buf = floorDiv(buf, []Instr{localGet(l)}, []Instr{localGet(r)})
		return append(buf, plain(OpI64Mul), plain(OpI64Sub)), nil
	case BinaryIs:
		buf = append(buf, left...)
		buf = append(buf, right...)
		return normalizeBool(append(buf, plain(OpI64Eq))), nil
	}

	buf = append(buf, left...)
	buf = append(buf, right...)
	if o, ok := arithmeticOps[e.Op]; ok {
		return append(buf, plain(o)), nil
	}
	if o, ok := compareOps[e.Op]; ok {
		return normalizeBool(append(buf, plain(o))), nil
	}
	return nil, internalErrorf(e.Pos(), "unsupported operator %s", e.Op)
}

func (g *generator) fieldOffset(e *FieldExpr) (int32, error) {
	t := e.Receiver.Type()
	layout, ok := g.env.Class(t.Class)
	if !t.IsClass() || !ok {
		return 0, internalErrorf(e.Pos(), "field %s on non-class type %s", e.Name, t)
	}
	offset, ok := layout.FieldOffset(e.Name)
	if !ok {
		return 0, internalErrorf(e.Pos(), "class %s has no field %s", layout.Name, e.Name)
	}
	return offset, nil
}

// methodCall pushes the receiver and arguments, then calls through the
// method's table slot.
func (g *generator) methodCall(buf []Instr, e *MethodCallExpr) ([]Instr, error) {
	t := e.Receiver.Type()
	slot, ok := g.env.VTableSlot(methodKey(t.Class, e.Name))
	if !t.IsClass() || !ok {
		return nil, internalErrorf(e.Pos(), "no table slot for %s.%s", t, e.Name)
	}
	buf, err := g.expression(buf, e.Receiver)
	if err != nil {
		return nil, err
	}
	for _, arg := range e.Args {
		if buf, err = g.expression(buf, arg); err != nil {
			return nil, err
		}
	}
	return append(buf, i32Const(int32(slot)), Instr{Op: OpCallIndirect, Imm: int64(len(e.Args) + 1)}), nil
}

func (g *generator) call(buf []Instr, e *CallExpr) ([]Instr, error) {
	if _, ok := builtins[e.Name]; !ok {
		return nil, internalErrorf(e.Pos(), "undefined function: %s", e.Name)
	}
	var err error
	for _, arg := range e.Args {
		if buf, err = g.expression(buf, arg); err != nil {
			return nil, err
		}
	}
	if e.Name != "print" {
		return append(buf, Instr{Op: OpCall, Name: e.Name}), nil
	}
	name := "print"
	switch e.Args[0].Type().Kind {
	case TypeBool:
		name = "print_bool"
	case TypeNone:
		name = "print_none"
	}
	return append(buf, Instr{Op: OpCall, Name: name}, plain(OpDrop), i64Const(noneWord)), nil
}

// construct writes the field defaults at the heap pointer, leaves the
// pre-advance address as the object and bumps the pointer.
func (g *generator) construct(buf []Instr, e *ConstructExpr) ([]Instr, error) {
	layout, ok := g.env.Class(e.Class)
	if !ok {
		return nil, internalErrorf(e.Pos(), "class %s has no layout", e.Class)
	}
	for k, name := range layout.Fields {
		buf = append(buf,
			i32Const(heapPointerSlot), plain(OpI32Load),
			i64Const(encodeLiteral(layout.Defaults[name])),
			Instr{Op: OpI64Store, Imm: int64(k * wordSize)},
		)
	}
	return append(buf,
		i32Const(heapPointerSlot), plain(OpI32Load), plain(OpI64ExtendI32U),
		i32Const(heapPointerSlot),
		i32Const(heapPointerSlot), plain(OpI32Load),
		i32Const(layout.Size()), plain(OpI32Add),
		plain(OpI32Store),
	), nil
}
