package pywat

func (p *parser) parseExpression(precedence int) Expression {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}

	for precedence < p.curPrecedence() && !p.failed() {
		if p.curToken.Type == tokenDot {
			left = p.parseMemberExpression(left)
		} else {
			left = p.parseInfixExpression(left)
		}
		if left == nil {
			return nil
		}
	}
	return left
}

func (p *parser) parsePrefix() Expression {
	tok := p.curToken
	switch tok.Type {
	case tokenInt:
		n, ok := p.parseInt(tok, tok.Literal)
		if !ok {
			return nil
		}
		p.nextToken()
		return &LiteralExpr{Value: NumberLiteral(n), position: tok.Pos}
	case tokenTrue, tokenFalse:
		p.nextToken()
		return &LiteralExpr{Value: BoolLiteral(tok.Type == tokenTrue), position: tok.Pos}
	case tokenNone:
		p.nextToken()
		return &LiteralExpr{Value: NoneLiteral(), position: tok.Pos}
	case tokenIdent:
		p.nextToken()
		if p.curToken.Type == tokenLParen {
			args, ok := p.parseArguments()
			if !ok {
				return nil
			}
			return &CallExpr{Name: tok.Literal, Args: args, position: tok.Pos}
		}
		return &Identifier{Name: tok.Literal, position: tok.Pos}
	case tokenLParen:
		p.nextToken()
		inner := p.parseExpression(lowestPrec)
		if inner == nil || !p.expect(tokenRParen, "')'") {
			return nil
		}
		return &ParenExpr{Inner: inner, position: tok.Pos}
	case tokenMinus:
		p.nextToken()
		operand := p.parseExpression(precPrefix)
		if operand == nil {
			return nil
		}
		return &UnaryExpr{Op: UnaryNegate, Operand: operand, position: tok.Pos}
	case tokenNot:
		p.nextToken()
		operand := p.parseExpression(precNot)
		if operand == nil {
			return nil
		}
		return &UnaryExpr{Op: UnaryNot, Operand: operand, position: tok.Pos}
	default:
		p.errorUnexpected(tok)
		return nil
	}
}

func (p *parser) parseInfixExpression(left Expression) Expression {
	tok := p.curToken
	op := binaryOps[tok.Type]
	prec := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(prec)
	if right == nil {
		return nil
	}
	return &BinaryExpr{Op: op, Left: left, Right: right, position: tok.Pos}
}

// parseMemberExpression parses `.name` or `.name(args)` after left.
func (p *parser) parseMemberExpression(left Expression) Expression {
	p.nextToken()
	if p.curToken.Type != tokenIdent {
		p.errorExpected(p.curToken, "member name")
		return nil
	}
	name := p.curToken
	p.nextToken()
	if p.curToken.Type == tokenLParen {
		args, ok := p.parseArguments()
		if !ok {
			return nil
		}
		return &MethodCallExpr{Receiver: left, Name: name.Literal, Args: args, position: name.Pos}
	}
	return &FieldExpr{Receiver: left, Name: name.Literal, position: name.Pos}
}

func (p *parser) parseArguments() ([]Expression, bool) {
	p.nextToken()
	var args []Expression
	for p.curToken.Type != tokenRParen {
		arg := p.parseExpression(lowestPrec)
		if arg == nil {
			return nil, false
		}
		args = append(args, arg)
		if p.curToken.Type != tokenComma {
			break
		}
		p.nextToken()
	}
	if !p.expect(tokenRParen, "')'") {
		return nil, false
	}
	return args, true
}
