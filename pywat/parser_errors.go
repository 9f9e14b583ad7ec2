package pywat

import (
	"fmt"
	"strings"
)

func (p *parser) errorExpected(tok Token, expected string) {
	if tok.Type == tokenIllegal {
		p.addParseError(tok.Pos, tok.Literal)
		return
	}
	p.addParseError(tok.Pos, fmt.Sprintf("expected %s, got %s", expected, tokenLabel(tok.Type)))
}

func (p *parser) errorUnexpected(tok Token) {
	if tok.Type == tokenIllegal {
		p.addParseError(tok.Pos, tok.Literal)
		return
	}
	p.addParseError(tok.Pos, fmt.Sprintf("unexpected token %s", tokenLabel(tok.Type)))
}

func (p *parser) addParseError(pos Position, msg string) {
	if p.failed() {
		return
	}
	p.errors = append(p.errors, &CompileError{
		Kind:      KindParse,
		Msg:       msg,
		Pos:       pos,
		CodeFrame: formatCodeFrame(p.l.input, pos),
	})
}

func tokenLabel(tt TokenType) string {
	switch tt {
	case tokenIllegal:
		return "invalid token"
	case tokenEOF:
		return "end of input"
	case tokenNewline:
		return "end of line"
	case tokenIndent:
		return "indent"
	case tokenDedent:
		return "dedent"
	case tokenIdent:
		return "identifier"
	case tokenInt:
		return "integer"
	case tokenDef:
		return "'def'"
	case tokenClass:
		return "'class'"
	case tokenIf:
		return "'if'"
	case tokenElif:
		return "'elif'"
	case tokenElse:
		return "'else'"
	case tokenWhile:
		return "'while'"
	case tokenPass:
		return "'pass'"
	case tokenReturn:
		return "'return'"
	case tokenNot:
		return "'not'"
	case tokenIs:
		return "'is'"
	case tokenTrue:
		return "'True'"
	case tokenFalse:
		return "'False'"
	case tokenNone:
		return "'None'"
	default:
		if len(tt) <= 2 {
			return fmt.Sprintf("%q", string(tt))
		}
		return fmt.Sprintf("%q", strings.ToLower(string(tt)))
	}
}
