package pywat

// parser is a recursive-descent parser with Pratt-style expression
// parsing. Each parse method starts on the first token of its construct
// and returns with curToken on the first token after it. Parsing stops at
// the first error.
type parser struct {
	l *lexer

	curToken  Token
	peekToken Token

	errors []error
}

func newParser(input string) *parser {
	l := newLexer(input)
	p := &parser{l: l}

	p.nextToken()
	p.nextToken()

	return p
}

// Parse turns source text into an untyped Program.
func Parse(source string) (*Program, error) {
	p := newParser(source)
	program, errs := p.ParseProgram()
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return program, nil
}

func (p *parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *parser) failed() bool {
	return len(p.errors) > 0
}

func (p *parser) ParseProgram() (*Program, []error) {
	program := &Program{}

	for p.curToken.Type != tokenEOF && !p.failed() {
		switch {
		case p.curToken.Type == tokenNewline:
			p.nextToken()
		case p.curToken.Type == tokenClass:
			if len(program.Statements) > 0 {
				p.addParseError(p.curToken.Pos, "declarations must precede statements")
				break
			}
			if def := p.parseClassDef(); def != nil {
				program.Defs = append(program.Defs, def)
			}
		case p.isVarDefStart():
			if len(program.Statements) > 0 {
				p.addParseError(p.curToken.Pos, "declarations must precede statements")
				break
			}
			if def := p.parseVarDef(); def != nil {
				program.Defs = append(program.Defs, def)
			}
		case p.curToken.Type == tokenDef:
			p.addParseError(p.curToken.Pos, "functions must be defined inside a class")
		default:
			if stmt := p.parseStatement(); stmt != nil {
				program.Statements = append(program.Statements, stmt)
			}
		}
	}

	return program, p.errors
}

func (p *parser) isVarDefStart() bool {
	return p.curToken.Type == tokenIdent && p.peekToken.Type == tokenColon
}

// expect consumes the current token if it has type tt.
func (p *parser) expect(tt TokenType, expected string) bool {
	if p.curToken.Type != tt {
		p.errorExpected(p.curToken, expected)
		return false
	}
	p.nextToken()
	return true
}

func (p *parser) expectNewline() bool {
	return p.expect(tokenNewline, "end of line")
}
