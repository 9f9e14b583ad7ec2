package pywat

func isAssignable(expr Expression) bool {
	switch expr.(type) {
	case *Identifier, *FieldExpr:
		return true
	default:
		return false
	}
}

const (
	lowestPrec = iota
	precNot
	precComparison
	precSum
	precProduct
	precPrefix
	precMember
)

var precedences = map[TokenType]int{
	tokenEQ:       precComparison,
	tokenNotEQ:    precComparison,
	tokenLT:       precComparison,
	tokenLTE:      precComparison,
	tokenGT:       precComparison,
	tokenGTE:      precComparison,
	tokenIs:       precComparison,
	tokenPlus:     precSum,
	tokenMinus:    precSum,
	tokenAsterisk: precProduct,
	tokenFloorDiv: precProduct,
	tokenPercent:  precProduct,
	tokenDot:      precMember,
}

var binaryOps = map[TokenType]BinaryOp{
	tokenPlus:     BinaryPlus,
	tokenMinus:    BinaryMinus,
	tokenAsterisk: BinaryMultiply,
	tokenFloorDiv: BinaryFloorDiv,
	tokenPercent:  BinaryMod,
	tokenEQ:       BinaryEqual,
	tokenNotEQ:    BinaryNotEqual,
	tokenLTE:      BinaryLE,
	tokenGTE:      BinaryGE,
	tokenLT:       BinaryLT,
	tokenGT:       BinaryGT,
	tokenIs:       BinaryIs,
}

func (p *parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return lowestPrec
}
