package pywat

import "strconv"

// parseVarDef parses `name: type = literal` and the line break after it.
func (p *parser) parseVarDef() *VarDef {
	pos := p.curToken.Pos
	name := p.curToken.Literal
	p.nextToken()
	if !p.expect(tokenColon, "':'") {
		return nil
	}
	ty, ok := p.parseType(false)
	if !ok {
		return nil
	}
	if !p.expect(tokenAssign, "'=' and an initial value") {
		return nil
	}
	value, ok := p.parseLiteral()
	if !ok {
		return nil
	}
	if !p.expectNewline() {
		return nil
	}
	return &VarDef{Name: name, Type: ty, Value: value, position: pos}
}

func (p *parser) parseType(allowNone bool) (Type, bool) {
	switch p.curToken.Type {
	case tokenIdent:
		ty := typeFromName(p.curToken.Literal)
		p.nextToken()
		return ty, true
	case tokenNone:
		if !allowNone {
			p.addParseError(p.curToken.Pos, "None is not a valid variable type")
			return Type{}, false
		}
		p.nextToken()
		return NoneType, true
	default:
		p.errorExpected(p.curToken, "type name")
		return Type{}, false
	}
}

func (p *parser) parseLiteral() (Literal, bool) {
	tok := p.curToken
	switch tok.Type {
	case tokenTrue:
		p.nextToken()
		return BoolLiteral(true), true
	case tokenFalse:
		p.nextToken()
		return BoolLiteral(false), true
	case tokenNone:
		p.nextToken()
		return NoneLiteral(), true
	case tokenInt:
		n, ok := p.parseInt(tok, tok.Literal)
		p.nextToken()
		return NumberLiteral(n), ok
	case tokenMinus:
		p.nextToken()
		if p.curToken.Type != tokenInt {
			p.errorExpected(p.curToken, "integer")
			return Literal{}, false
		}
		n, ok := p.parseInt(tok, "-"+p.curToken.Literal)
		p.nextToken()
		return NumberLiteral(n), ok
	default:
		p.errorExpected(tok, "literal")
		return Literal{}, false
	}
}

func (p *parser) parseInt(tok Token, literal string) (int64, bool) {
	n, err := strconv.ParseInt(literal, 10, 64)
	if err != nil {
		p.addParseError(tok.Pos, "integer literal "+literal+" is out of range")
		return 0, false
	}
	return n, true
}

// parseClassDef parses a class header and its indented body of field
// declarations and methods.
func (p *parser) parseClassDef() *ClassDef {
	pos := p.curToken.Pos
	p.nextToken()
	if p.curToken.Type != tokenIdent {
		p.errorExpected(p.curToken, "class name")
		return nil
	}
	class := &ClassDef{Name: p.curToken.Literal, position: pos}
	p.nextToken()

	if p.curToken.Type == tokenLParen {
		p.nextToken()
		if p.curToken.Type != tokenIdent {
			p.errorExpected(p.curToken, "base class")
			return nil
		}
		if p.curToken.Literal != "object" {
			p.addParseError(p.curToken.Pos, "inheritance is not supported")
			return nil
		}
		p.nextToken()
		if !p.expect(tokenRParen, "')'") {
			return nil
		}
	}
	if !p.expect(tokenColon, "':'") || !p.expectNewline() || !p.expect(tokenIndent, "indented class body") {
		return nil
	}

	for p.curToken.Type != tokenDedent && p.curToken.Type != tokenEOF && !p.failed() {
		switch {
		case p.curToken.Type == tokenPass:
			p.nextToken()
			p.expectNewline()
		case p.isVarDefStart():
			if field := p.parseVarDef(); field != nil {
				class.Fields = append(class.Fields, field)
			}
		case p.curToken.Type == tokenDef:
			if method := p.parseFuncDef(class.Name); method != nil {
				class.Methods = append(class.Methods, method)
			}
		default:
			p.addParseError(p.curToken.Pos, "class bodies may only contain field declarations and methods")
		}
	}
	if p.failed() || !p.expect(tokenDedent, "end of class body") {
		return nil
	}
	return class
}

// parseFuncDef parses a method. An unannotated first parameter is the
// receiver and takes the owning class's type.
func (p *parser) parseFuncDef(className string) *FuncDef {
	pos := p.curToken.Pos
	p.nextToken()
	if p.curToken.Type != tokenIdent {
		p.errorExpected(p.curToken, "function name")
		return nil
	}
	fn := &FuncDef{Name: p.curToken.Literal, Class: className, position: pos}
	p.nextToken()

	if !p.expect(tokenLParen, "'('") {
		return nil
	}
	for p.curToken.Type != tokenRParen {
		if p.curToken.Type != tokenIdent {
			p.errorExpected(p.curToken, "parameter name")
			return nil
		}
		param := TypedVar{Name: p.curToken.Literal, position: p.curToken.Pos}
		p.nextToken()
		if p.curToken.Type == tokenColon {
			p.nextToken()
			ty, ok := p.parseType(false)
			if !ok {
				return nil
			}
			param.Type = ty
		} else if len(fn.Params) == 0 {
			param.Type = ClassType(className)
		} else {
			p.addParseError(param.position, "parameter "+param.Name+" needs a type annotation")
			return nil
		}
		fn.Params = append(fn.Params, param)
		if p.curToken.Type != tokenComma {
			break
		}
		p.nextToken()
	}
	if !p.expect(tokenRParen, "')'") {
		return nil
	}

	if p.curToken.Type == tokenArrow {
		p.nextToken()
		ty, ok := p.parseType(true)
		if !ok {
			return nil
		}
		fn.Return = &ty
	}
	if !p.expect(tokenColon, "':'") || !p.expectNewline() || !p.expect(tokenIndent, "indented function body") {
		return nil
	}

	for p.isVarDefStart() && !p.failed() {
		if local := p.parseVarDef(); local != nil {
			fn.Locals = append(fn.Locals, local)
		}
	}
	for p.curToken.Type != tokenDedent && p.curToken.Type != tokenEOF && !p.failed() {
		if stmt := p.parseStatement(); stmt != nil {
			fn.Body = append(fn.Body, stmt)
		}
	}
	if p.failed() {
		return nil
	}
	if len(fn.Body) == 0 {
		p.addParseError(pos, "function "+fn.Name+" needs at least one statement")
		return nil
	}
	if !p.expect(tokenDedent, "end of function body") {
		return nil
	}
	return fn
}
