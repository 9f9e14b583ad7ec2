package pywat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TabWidth is the tab stop used when measuring indentation.
const TabWidth = 8

// lexer turns source text into tokens, synthesising NEWLINE, INDENT and
// DEDENT tokens from line structure the way Python does. Newlines inside
// parentheses are ignored.
type lexer struct {
	input string

	offset int
	width  int

	line   int
	column int

	ch rune

	indents     []int
	pending     []Token
	atLineStart bool
	parenDepth  int
	last        TokenType
}

func newLexer(input string) *lexer {
	l := &lexer{input: input, line: 1, column: 0, indents: []int{0}, atLineStart: true}
	l.readRune()
	return l
}

func (l *lexer) readRune() {
	if l.offset >= len(l.input) {
		l.width = 0
		l.ch = 0
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.offset:])
	l.width = w
	l.offset += w

	// a line break belongs to the line it ends
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	l.column++

	l.ch = r
}

func (l *lexer) peekRune() rune {
	if l.offset >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])
	return r
}

func (l *lexer) NextToken() Token {
	tok := l.next()
	l.last = tok.Type
	return tok
}

func (l *lexer) next() Token {
	if len(l.pending) > 0 {
		return l.popPending()
	}
	if l.atLineStart {
		l.atLineStart = false
		if tok, ok := l.readIndentation(); ok {
			return tok
		}
	}

	l.skipSpacesAndComments()

	tok := Token{Pos: l.position()}

	switch l.ch {
	case 0:
		return l.finish()
	case '\n':
		l.readRune()
		if l.parenDepth > 0 {
			return l.next()
		}
		l.atLineStart = true
		tok.Type = tokenNewline
		tok.Literal = "\n"
	case '+':
		tok = l.makeToken(tokenPlus, "+")
		l.readRune()
	case '-':
		if l.peekRune() == '>' {
			tok = l.makeToken(tokenArrow, "->")
			l.readRune()
			l.readRune()
		} else {
			tok = l.makeToken(tokenMinus, "-")
			l.readRune()
		}
	case '*':
		tok = l.makeToken(tokenAsterisk, "*")
		l.readRune()
	case '/':
		if l.peekRune() == '/' {
			tok = l.makeToken(tokenFloorDiv, "//")
			l.readRune()
			l.readRune()
		} else {
			tok = l.makeToken(tokenIllegal, "true division is not supported, use //")
			l.readRune()
		}
	case '%':
		tok = l.makeToken(tokenPercent, "%")
		l.readRune()
	case '(':
		tok = l.makeToken(tokenLParen, "(")
		l.parenDepth++
		l.readRune()
	case ')':
		tok = l.makeToken(tokenRParen, ")")
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		l.readRune()
	case ',':
		tok = l.makeToken(tokenComma, ",")
		l.readRune()
	case ':':
		tok = l.makeToken(tokenColon, ":")
		l.readRune()
	case '.':
		tok = l.makeToken(tokenDot, ".")
		l.readRune()
	case '=':
		if l.peekRune() == '=' {
			tok = l.makeToken(tokenEQ, "==")
			l.readRune()
			l.readRune()
		} else {
			tok = l.makeToken(tokenAssign, "=")
			l.readRune()
		}
	case '!':
		if l.peekRune() == '=' {
			tok = l.makeToken(tokenNotEQ, "!=")
			l.readRune()
			l.readRune()
		} else {
			tok = l.makeToken(tokenIllegal, "!")
			l.readRune()
		}
	case '<':
		if l.peekRune() == '=' {
			tok = l.makeToken(tokenLTE, "<=")
			l.readRune()
			l.readRune()
		} else {
			tok = l.makeToken(tokenLT, "<")
			l.readRune()
		}
	case '>':
		if l.peekRune() == '=' {
			tok = l.makeToken(tokenGTE, ">=")
			l.readRune()
			l.readRune()
		} else {
			tok = l.makeToken(tokenGT, ">")
			l.readRune()
		}
	default:
		switch {
		case isIdentifierStart(l.ch):
			literal := l.readIdentifier()
			tok.Type = lookupIdent(literal)
			tok.Literal = literal
		case unicode.IsDigit(l.ch):
			literal, ok := l.readNumber()
			if ok {
				tok.Type = tokenInt
				tok.Literal = literal
			} else {
				tok.Type = tokenIllegal
				tok.Literal = "floating point literals are not supported"
			}
		default:
			tok = l.makeToken(tokenIllegal, string(l.ch))
			l.readRune()
		}
	}

	return tok
}

// readIndentation measures the indentation of a logical line, skipping
// blank and comment-only lines, and reports INDENT or DEDENT tokens when
// the level changes.
func (l *lexer) readIndentation() (Token, bool) {
	for {
		width := 0
		for l.ch == ' ' || l.ch == '\t' {
			if l.ch == '\t' {
				width += TabWidth - width%TabWidth
			} else {
				width++
			}
			l.readRune()
		}
		if l.ch == '#' {
			l.skipComment()
		}
		if l.ch == '\r' {
			l.readRune()
		}
		if l.ch == '\n' {
			l.readRune()
			continue
		}
		if l.ch == 0 {
			return Token{}, false
		}

		pos := l.position()
		top := l.indents[len(l.indents)-1]
		switch {
		case width > top:
			l.indents = append(l.indents, width)
			return Token{Type: tokenIndent, Pos: pos}, true
		case width < top:
			for width < l.indents[len(l.indents)-1] {
				l.indents = l.indents[:len(l.indents)-1]
				l.pending = append(l.pending, Token{Type: tokenDedent, Pos: pos})
			}
			if width != l.indents[len(l.indents)-1] {
				l.pending = append(l.pending, Token{Type: tokenIllegal, Literal: "unindent does not match any outer indentation level", Pos: pos})
			}
			return l.popPending(), true
		}
		return Token{}, false
	}
}

// finish closes the token stream: a trailing NEWLINE if the last line
// had no line break, one DEDENT per open block, then EOF.
func (l *lexer) finish() Token {
	pos := l.position()
	switch l.last {
	case "", tokenNewline, tokenIndent, tokenDedent, tokenEOF:
	default:
		l.pending = append(l.pending, Token{Type: tokenNewline, Pos: pos})
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.pending = append(l.pending, Token{Type: tokenDedent, Pos: pos})
	}
	l.pending = append(l.pending, Token{Type: tokenEOF, Pos: pos})
	return l.popPending()
}

func (l *lexer) popPending() Token {
	tok := l.pending[0]
	l.pending = l.pending[1:]
	return tok
}

func (l *lexer) currentOffset() int {
	return l.offset - l.width
}

func (l *lexer) position() Position {
	return Position{Line: l.line, Column: l.column}
}

func (l *lexer) makeToken(tt TokenType, literal string) Token {
	return Token{Type: tt, Literal: literal, Pos: l.position()}
}

func (l *lexer) skipSpacesAndComments() {
	for {
		switch l.ch {
		case ' ', '\t', '\r':
			l.readRune()
		case '\\':
			if l.peekRune() != '\n' {
				return
			}
			l.readRune()
			l.readRune()
		case '#':
			l.skipComment()
		default:
			return
		}
	}
}

func (l *lexer) skipComment() {
	for l.ch != 0 && l.ch != '\n' {
		l.readRune()
	}
}

func (l *lexer) readIdentifier() string {
	start := l.currentOffset()
	for isIdentifierRune(l.peekRune()) {
		l.readRune()
	}
	literal := l.input[start:l.offset]
	l.readRune()
	return literal
}

// readNumber consumes an integer literal. Underscores between digits are
// accepted as separators and dropped. It reports false for float literals.
func (l *lexer) readNumber() (string, bool) {
	var sb strings.Builder
	sb.WriteRune(l.ch)

	for {
		r := l.peekRune()
		switch {
		case r == '_':
			l.readRune()
			if !unicode.IsDigit(l.peekRune()) {
				l.readRune()
				return sb.String(), true
			}
		case unicode.IsDigit(r):
			l.readRune()
			sb.WriteRune(r)
		case r == '.':
			l.readRune()
			for unicode.IsDigit(l.peekRune()) {
				l.readRune()
			}
			l.readRune()
			return "", false
		default:
			l.readRune()
			return sb.String(), true
		}
	}
}

func isIdentifierStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentifierRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
