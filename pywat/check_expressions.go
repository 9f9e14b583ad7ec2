package pywat

func (c *checker) checkExpression(expr Expression) (Expression, error) {
	switch e := expr.(type) {
	case *LiteralExpr:
		return e, nil
	case *Identifier:
		t, ok := c.lookupVar(e.Name)
		if !ok {
			return nil, resolutionErrorf(e.Pos(), "not a variable: %s", e.Name)
		}
		return &Identifier{Name: e.Name, ty: t, position: e.position}, nil
	case *UnaryExpr:
		return c.checkUnary(e)
	case *BinaryExpr:
		return c.checkBinary(e)
	case *ParenExpr:
		inner, err := c.checkExpression(e.Inner)
		if err != nil {
			return nil, err
		}
		return &ParenExpr{Inner: inner, position: e.position}, nil
	case *FieldExpr:
		return c.checkField(e)
	case *MethodCallExpr:
		return c.checkMethodCall(e)
	case *CallExpr:
		return c.checkCall(e)
	case *ConstructExpr:
		if _, ok := c.env.Class(e.Class); !ok {
			return nil, resolutionErrorf(e.Pos(), "undefined class: %s", e.Class)
		}
		return e, nil
	default:
		return nil, internalErrorf(expr.Pos(), "unsupported expression %T", expr)
	}
}

func (c *checker) checkUnary(e *UnaryExpr) (Expression, error) {
	operand, err := c.checkExpression(e.Operand)
	if err != nil {
		return nil, err
	}
	want := NumberType
	if e.Op == UnaryNot {
		want = BoolType
	}
	if !operand.Type().Equal(want) {
		return nil, typeErrorf(e.Pos(), "cannot apply operator `%s` on type `%s`", e.Op, operand.Type().Tag())
	}
	return &UnaryExpr{Op: e.Op, Operand: operand, ty: want, position: e.position}, nil
}

func (c *checker) checkBinary(e *BinaryExpr) (Expression, error) {
	left, err := c.checkExpression(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.checkExpression(e.Right)
	if err != nil {
		return nil, err
	}
	ty, ok := binaryResultType(e.Op, left.Type(), right.Type())
	if !ok {
		return nil, typeErrorf(e.Pos(), "cannot apply operator `%s` on types `%s` and `%s`", e.Op, left.Type().Tag(), right.Type().Tag())
	}
	return &BinaryExpr{Op: e.Op, Left: left, Right: right, ty: ty, position: e.position}, nil
}

func binaryResultType(op BinaryOp, left, right Type) (Type, bool) {
	switch op {
	case BinaryPlus, BinaryMinus, BinaryMultiply, BinaryFloorDiv, BinaryMod:
		if left.Equal(right) && left.Kind == TypeNumber {
			return NumberType, true
		}
	case BinaryLE, BinaryGE, BinaryLT, BinaryGT:
		if left.Equal(right) && left.Kind == TypeNumber {
			return BoolType, true
		}
	case BinaryEqual, BinaryNotEqual:
		if left.Equal(right) && left.isValueType() {
			return BoolType, true
		}
	case BinaryIs:
		// identity is undefined for values without a reference
		if !left.isValueType() && !right.isValueType() {
			return BoolType, true
		}
	}
	return Type{}, false
}

// classOf resolves the class of a member access receiver.
func (c *checker) classOf(receiver Expression, member string) (*ClassLayout, error) {
	t := receiver.Type()
	if !t.IsClass() {
		return nil, typeErrorf(receiver.Pos(), "cannot access member %s on type `%s`", member, t)
	}
	layout, ok := c.env.Class(t.Class)
	if !ok {
		return nil, resolutionErrorf(receiver.Pos(), "undefined class: %s", t.Class)
	}
	return layout, nil
}

func (c *checker) checkField(e *FieldExpr) (Expression, error) {
	receiver, err := c.checkExpression(e.Receiver)
	if err != nil {
		return nil, err
	}
	layout, err := c.classOf(receiver, e.Name)
	if err != nil {
		return nil, err
	}
	ty, ok := c.env.FieldType(layout.Name, e.Name)
	if !ok {
		return nil, resolutionErrorf(e.Pos(), "class %s has no field %s", layout.Name, e.Name)
	}
	return &FieldExpr{Receiver: receiver, Name: e.Name, ty: ty, position: e.position}, nil
}

func (c *checker) checkMethodCall(e *MethodCallExpr) (Expression, error) {
	receiver, err := c.checkExpression(e.Receiver)
	if err != nil {
		return nil, err
	}
	layout, err := c.classOf(receiver, e.Name)
	if err != nil {
		return nil, err
	}
	params, ret, ok := c.env.MethodSignature(layout.Name, e.Name)
	if !ok {
		return nil, resolutionErrorf(e.Pos(), "class %s has no method %s", layout.Name, e.Name)
	}
	params = params[1:]
	if len(e.Args) != len(params) {
		return nil, typeErrorf(e.Pos(), "method %s.%s expects %d arguments, got %d", layout.Name, e.Name, len(params), len(e.Args))
	}
	args, err := c.checkArgs(e.Args, params, layout.Name+"."+e.Name)
	if err != nil {
		return nil, err
	}
	return &MethodCallExpr{Receiver: receiver, Name: e.Name, Args: args, ty: ret, position: e.position}, nil
}

func (c *checker) checkArgs(exprs []Expression, params []Type, callee string) ([]Expression, error) {
	args := make([]Expression, len(exprs))
	for i, expr := range exprs {
		arg, err := c.checkExpression(expr)
		if err != nil {
			return nil, err
		}
		if !arg.Type().Equal(params[i]) {
			return nil, typeErrorf(expr.Pos(), "argument %d of %s: expected type `%s`; got type `%s`", i+1, callee, params[i], arg.Type())
		}
		args[i] = arg
	}
	return args, nil
}

// checkCall resolves a free call to a constructor or a host builtin.
func (c *checker) checkCall(e *CallExpr) (Expression, error) {
	if _, ok := c.env.Class(e.Name); ok {
		if len(e.Args) != 0 {
			return nil, typeErrorf(e.Pos(), "%s() takes no arguments", e.Name)
		}
		return &ConstructExpr{Class: e.Name, position: e.position}, nil
	}
	fn, ok := builtins[e.Name]
	if !ok {
		return nil, resolutionErrorf(e.Pos(), "undefined function: %s", e.Name)
	}

	if fn.params == nil {
		if len(e.Args) != 1 {
			return nil, typeErrorf(e.Pos(), "%s expects 1 argument, got %d", e.Name, len(e.Args))
		}
		arg, err := c.checkExpression(e.Args[0])
		if err != nil {
			return nil, err
		}
		if arg.Type().IsClass() {
			return nil, typeErrorf(arg.Pos(), "cannot print value of type `%s`", arg.Type())
		}
		return &CallExpr{Name: e.Name, Args: []Expression{arg}, ty: NoneType, position: e.position}, nil
	}

	if len(e.Args) != len(fn.params) {
		return nil, typeErrorf(e.Pos(), "%s expects %d arguments, got %d", e.Name, len(fn.params), len(e.Args))
	}
	args, err := c.checkArgs(e.Args, fn.params, e.Name)
	if err != nil {
		return nil, err
	}
	return &CallExpr{Name: e.Name, Args: args, ty: fn.ret, position: e.position}, nil
}
