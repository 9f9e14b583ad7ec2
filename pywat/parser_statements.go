package pywat

func (p *parser) parseStatement() Statement {
	switch p.curToken.Type {
	case tokenPass:
		pos := p.curToken.Pos
		p.nextToken()
		if !p.expectNewline() {
			return nil
		}
		return &PassStmt{position: pos}
	case tokenReturn:
		return p.parseReturnStatement()
	case tokenIf:
		return p.parseIfStatement()
	case tokenWhile:
		return p.parseWhileStatement()
	case tokenDef:
		p.addParseError(p.curToken.Pos, "nested functions are not supported")
		return nil
	case tokenClass:
		p.addParseError(p.curToken.Pos, "classes must be declared at the top level before any statement")
		return nil
	case tokenIdent:
		if p.peekToken.Type == tokenColon {
			p.addParseError(p.curToken.Pos, "declarations must precede statements")
			return nil
		}
		return p.parseExpressionOrAssignStatement()
	default:
		return p.parseExpressionOrAssignStatement()
	}
}

func (p *parser) parseReturnStatement() Statement {
	pos := p.curToken.Pos
	p.nextToken()
	if p.curToken.Type == tokenNewline {
		p.nextToken()
		return &ReturnStmt{Value: &LiteralExpr{Value: NoneLiteral(), position: pos}, position: pos}
	}
	value := p.parseExpression(lowestPrec)
	if value == nil || !p.expectNewline() {
		return nil
	}
	return &ReturnStmt{Value: value, position: pos}
}

// parseIfStatement parses if/elif/else; each elif becomes an IfStmt
// nested as the sole statement of the enclosing else block.
func (p *parser) parseIfStatement() Statement {
	pos := p.curToken.Pos
	p.nextToken()
	condition := p.parseExpression(lowestPrec)
	if condition == nil {
		return nil
	}
	consequent := p.parseBlock()
	if consequent == nil {
		return nil
	}
	stmt := &IfStmt{Condition: condition, Then: consequent, position: pos}

	switch p.curToken.Type {
	case tokenElif:
		elif := p.parseIfStatement()
		if elif == nil {
			return nil
		}
		stmt.Else = []Statement{elif}
	case tokenElse:
		p.nextToken()
		alternate := p.parseBlock()
		if alternate == nil {
			return nil
		}
		stmt.Else = alternate
	}
	return stmt
}

func (p *parser) parseWhileStatement() Statement {
	pos := p.curToken.Pos
	p.nextToken()
	condition := p.parseExpression(lowestPrec)
	if condition == nil {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &WhileStmt{Condition: condition, Body: body, position: pos}
}

// parseBlock parses `:` followed by either an indented suite or a single
// statement on the same line. It returns nil on error.
func (p *parser) parseBlock() []Statement {
	if !p.expect(tokenColon, "':'") {
		return nil
	}
	if p.curToken.Type != tokenNewline {
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		return []Statement{stmt}
	}
	p.nextToken()
	if !p.expect(tokenIndent, "indented block") {
		return nil
	}
	var body []Statement
	for p.curToken.Type != tokenDedent && p.curToken.Type != tokenEOF && !p.failed() {
		if stmt := p.parseStatement(); stmt != nil {
			body = append(body, stmt)
		}
	}
	if p.failed() || !p.expect(tokenDedent, "end of block") {
		return nil
	}
	return body
}

func (p *parser) parseExpressionOrAssignStatement() Statement {
	pos := p.curToken.Pos
	expr := p.parseExpression(lowestPrec)
	if expr == nil {
		return nil
	}
	if p.curToken.Type == tokenAssign {
		if !isAssignable(expr) {
			p.addParseError(p.curToken.Pos, "cannot assign to this expression")
			return nil
		}
		p.nextToken()
		value := p.parseExpression(lowestPrec)
		if value == nil || !p.expectNewline() {
			return nil
		}
		return &AssignStmt{Target: expr, Value: value, position: pos}
	}
	if !p.expectNewline() {
		return nil
	}
	return &ExprStmt{Expr: expr, position: pos}
}
