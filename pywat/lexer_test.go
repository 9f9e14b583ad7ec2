package pywat

import "testing"

func lexAll(input string) []Token {
	l := newLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == tokenEOF {
			return tokens
		}
	}
}

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func requireTokenTypes(t *testing.T, input string, want []TokenType) []Token {
	t.Helper()
	tokens := lexAll(input)
	got := tokenTypes(tokens)
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: expected %s, got %s (all: %v)", i, want[i], got[i], got)
		}
	}
	return tokens
}

func TestLexerIndentation(t *testing.T) {
	input := `class C:
    x: int = 5

    # a comment line
c: C = None
`
	requireTokenTypes(t, input, []TokenType{
		tokenClass, tokenIdent, tokenColon, tokenNewline,
		tokenIndent, tokenIdent, tokenColon, tokenIdent, tokenAssign, tokenInt, tokenNewline,
		tokenDedent, tokenIdent, tokenColon, tokenIdent, tokenAssign, tokenNone, tokenNewline,
		tokenEOF,
	})
}

func TestLexerClosesBlocksAtEOF(t *testing.T) {
	input := "class C:\n    def f(self) -> int:\n        return 1"
	tokens := requireTokenTypes(t, input, []TokenType{
		tokenClass, tokenIdent, tokenColon, tokenNewline,
		tokenIndent, tokenDef, tokenIdent, tokenLParen, tokenIdent, tokenRParen, tokenArrow, tokenIdent, tokenColon, tokenNewline,
		tokenIndent, tokenReturn, tokenInt, tokenNewline,
		tokenDedent, tokenDedent, tokenEOF,
	})
	if tokens[16].Literal != "1" {
		t.Fatalf("expected literal 1, got %q", tokens[16].Literal)
	}
}

func TestLexerOperators(t *testing.T) {
	requireTokenTypes(t, "a // b % c <= d >= e == f != g < h > i is not j\n", []TokenType{
		tokenIdent, tokenFloorDiv, tokenIdent, tokenPercent, tokenIdent,
		tokenLTE, tokenIdent, tokenGTE, tokenIdent, tokenEQ, tokenIdent,
		tokenNotEQ, tokenIdent, tokenLT, tokenIdent, tokenGT, tokenIdent,
		tokenIs, tokenNot, tokenIdent, tokenNewline, tokenEOF,
	})
}

func TestLexerIgnoresNewlinesInsideParens(t *testing.T) {
	requireTokenTypes(t, "x = (1 +\n     2)\n", []TokenType{
		tokenIdent, tokenAssign, tokenLParen, tokenInt, tokenPlus, tokenInt, tokenRParen, tokenNewline, tokenEOF,
	})
}

func TestLexerNumbers(t *testing.T) {
	tokens := lexAll("1_000\n")
	if tokens[0].Type != tokenInt || tokens[0].Literal != "1000" {
		t.Fatalf("expected int 1000, got %s %q", tokens[0].Type, tokens[0].Literal)
	}

	tokens = lexAll("1.5\n")
	if tokens[0].Type != tokenIllegal {
		t.Fatalf("expected float literal to be illegal, got %s", tokens[0].Type)
	}
}

func TestLexerRejectsTrueDivision(t *testing.T) {
	tokens := lexAll("a / b\n")
	if tokens[1].Type != tokenIllegal {
		t.Fatalf("expected illegal token, got %s", tokens[1].Type)
	}
}

func TestLexerPositions(t *testing.T) {
	tokens := lexAll("x: int = 1\ny: int = 2\n")
	var y Token
	for _, tok := range tokens {
		if tok.Literal == "y" {
			y = tok
		}
	}
	if y.Pos.Line != 2 || y.Pos.Column != 1 {
		t.Fatalf("expected y at 2:1, got %d:%d", y.Pos.Line, y.Pos.Column)
	}
}

func TestLexerBadDedent(t *testing.T) {
	input := "class C:\n    x: int = 1\n  y: int = 2\n"
	tokens := lexAll(input)
	found := false
	for _, tok := range tokens {
		if tok.Type == tokenIllegal {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected inconsistent dedent to produce an illegal token: %v", tokenTypes(tokens))
	}
}
