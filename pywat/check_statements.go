package pywat

func (c *checker) checkStatement(stmt Statement) (Statement, error) {
	switch s := stmt.(type) {
	case *AssignStmt:
		return c.checkAssign(s)
	case *IfStmt:
		return c.checkIf(s)
	case *WhileStmt:
		return c.checkWhile(s)
	case *PassStmt:
		return s, nil
	case *ReturnStmt:
		return c.checkReturn(s)
	case *ExprStmt:
		expr, err := c.checkExpression(s.Expr)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Expr: expr, position: s.position}, nil
	default:
		return nil, internalErrorf(stmt.Pos(), "unsupported statement %T", stmt)
	}
}

// checkBlock checks stmts in order. The block's aggregate type is the
// first non-None statement type; a later statement returning a different
// type is an error.
func (c *checker) checkBlock(stmts []Statement) ([]Statement, Type, error) {
	out := make([]Statement, 0, len(stmts))
	agg := NoneType
	for _, stmt := range stmts {
		typed, err := c.checkStatement(stmt)
		if err != nil {
			return nil, NoneType, err
		}
		out = append(out, typed)
		t := typed.ResultType()
		switch {
		case t.IsNone():
		case agg.IsNone():
			agg = t
		case !agg.Equal(t):
			return nil, NoneType, typeErrorf(typed.Pos(), "cannot return different types within one conditional")
		}
	}
	return out, agg, nil
}

func (c *checker) checkAssign(s *AssignStmt) (Statement, error) {
	value, err := c.checkExpression(s.Value)
	if err != nil {
		return nil, err
	}
	target, err := c.checkExpression(s.Target)
	if err != nil {
		return nil, err
	}
	if !value.Type().Equal(target.Type()) {
		return nil, typeErrorf(s.Pos(), "expected type `%s`; got type `%s`", target.Type(), value.Type())
	}
	return &AssignStmt{Target: target, Value: value, position: s.position}, nil
}

func (c *checker) checkCondition(expr Expression) (Expression, error) {
	cond, err := c.checkExpression(expr)
	if err != nil {
		return nil, err
	}
	if cond.Type().Kind != TypeBool {
		return nil, typeErrorf(expr.Pos(), "condition expression cannot be of type `%s`", cond.Type())
	}
	return cond, nil
}

// checkIf requires both branches to agree on their aggregate type. A
// branch that never returns has type None, so it only matches another
// branch that never returns.
func (c *checker) checkIf(s *IfStmt) (Statement, error) {
	cond, err := c.checkCondition(s.Condition)
	if err != nil {
		return nil, err
	}
	then, thenType, err := c.checkBlock(s.Then)
	if err != nil {
		return nil, err
	}
	els, elseType, err := c.checkBlock(s.Else)
	if err != nil {
		return nil, err
	}

	if !thenType.Equal(elseType) {
		return nil, typeErrorf(s.Pos(), "cannot return different types within one conditional")
	}
	return &IfStmt{Condition: cond, Then: then, Else: els, ty: thenType, position: s.position}, nil
}

func (c *checker) checkWhile(s *WhileStmt) (Statement, error) {
	cond, err := c.checkCondition(s.Condition)
	if err != nil {
		return nil, err
	}
	body, ty, err := c.checkBlock(s.Body)
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Condition: cond, Body: body, ty: ty, position: s.position}, nil
}

// checkReturn types a return by its value. The enclosing method compares
// that type against its declared return type.
func (c *checker) checkReturn(s *ReturnStmt) (Statement, error) {
	if c.fn == nil {
		return nil, typeErrorf(s.Pos(), "'return' outside function")
	}
	value, err := c.checkExpression(s.Value)
	if err != nil {
		return nil, err
	}
	return &ReturnStmt{Value: value, ty: value.Type(), position: s.position}, nil
}
