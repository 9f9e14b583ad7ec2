package pywat

func (g *generator) block(buf []Instr, stmts []Statement) ([]Instr, error) {
	var err error
	for _, stmt := range stmts {
		if buf, err = g.statement(buf, stmt); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (g *generator) statement(buf []Instr, stmt Statement) ([]Instr, error) {
	var err error
	switch s := stmt.(type) {
	case *AssignStmt:
		return g.assign(buf, s)
	case *IfStmt:
		if buf, err = g.condition(buf, s.Condition); err != nil {
			return nil, err
		}
		then, err := g.block(nil, s.Then)
		if err != nil {
			return nil, err
		}
		els, err := g.block(nil, s.Else)
		if err != nil {
			return nil, err
		}
		return append(buf, Instr{Op: OpIf, Then: then, Else: els}), nil
	case *WhileStmt:
		return g.while(buf, s)
	case *PassStmt:
		return append(buf, plain(OpNop)), nil
	case *ReturnStmt:
		if buf, err = g.expression(buf, s.Value); err != nil {
			return nil, err
		}
		return append(buf, plain(OpReturn)), nil
	case *ExprStmt:
		if buf, err = g.expression(buf, s.Expr); err != nil {
			return nil, err
		}
		return append(buf, plain(OpDrop)), nil
	default:
		return nil, internalErrorf(stmt.Pos(), "unsupported statement %T", stmt)
	}
}

// condition leaves the i32 truth value of a bool expression.
func (g *generator) condition(buf []Instr, cond Expression) ([]Instr, error) {
	buf, err := g.expression(buf, cond)
	if err != nil {
		return nil, err
	}
	return append(buf, plain(OpI32WrapI64)), nil
}

// while compiles to an unconditional loop guarded by an early exit on the
// negated condition.
func (g *generator) while(buf []Instr, s *WhileStmt) ([]Instr, error) {
	loop, err := g.expression(nil, s.Condition)
	if err != nil {
		return nil, err
	}
	loop = negateBool(loop)
	loop = append(loop, plain(OpI32WrapI64), Instr{Op: OpBrIf, Imm: 1})
	if loop, err = g.block(loop, s.Body); err != nil {
		return nil, err
	}
	loop = append(loop, Instr{Op: OpBr, Imm: 0})
	return append(buf, Instr{Op: OpBlock, Then: []Instr{{Op: OpLoop, Then: loop}}}), nil
}

func (g *generator) assign(buf []Instr, s *AssignStmt) ([]Instr, error) {
	var err error
	switch target := s.Target.(type) {
	case *Identifier:
		if g.isLocal(target.Name) {
			if buf, err = g.expression(buf, s.Value); err != nil {
				return nil, err
			}
			return append(buf, localSet(target.Name)), nil
		}
		slot, ok := g.env.GlobalSlot(target.Name)
		if !ok {
			return nil, internalErrorf(target.Pos(), "not a variable: %s", target.Name)
		}
		buf = append(buf, i32Const(globalAddr(slot)))
		if buf, err = g.expression(buf, s.Value); err != nil {
			return nil, err
		}
		return append(buf, plain(OpI64Store)), nil
	case *FieldExpr:
		offset, err := g.fieldOffset(target)
		if err != nil {
			return nil, err
		}
		if buf, err = g.expression(buf, target.Receiver); err != nil {
			return nil, err
		}
		buf = append(buf, plain(OpI32WrapI64))
		if buf, err = g.expression(buf, s.Value); err != nil {
			return nil, err
		}
		return append(buf, Instr{Op: OpI64Store, Imm: int64(offset)}), nil
	default:
		return nil, internalErrorf(s.Pos(), "cannot assign to %T", s.Target)
	}
}
