package pywat

import (
	"fmt"
	"strconv"
)

// Machine words encode None and booleans above the range integers are
// expected to use.
const (
	falseWord int64 = 1 << 40
	trueWord  int64 = falseWord + 1
	noneWord  int64 = 1 << 41
)

func encodeBool(b bool) int64 {
	if b {
		return trueWord
	}
	return falseWord
}

func encodeLiteral(l Literal) int64 {
	switch l.Kind {
	case LiteralBool:
		return encodeBool(l.Bool)
	case LiteralNumber:
		return l.Number
	default:
		return noneWord
	}
}

type ValueKind int

const (
	KindNone ValueKind = iota
	KindBool
	KindNumber
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// Value is a decoded machine word.
type Value struct {
	kind  ValueKind
	n     int64
	class string
}

func NewNone() Value          { return Value{kind: KindNone} }
func NewBool(b bool) Value    { return Value{kind: KindBool, n: boolInt(b)} }
func NewNumber(n int64) Value { return Value{kind: KindNumber, n: n} }

func NewObject(class string, addr int64) Value {
	return Value{kind: KindObject, n: addr, class: class}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) Bool() bool      { return v.kind == KindBool && v.n != 0 }
func (v Value) Number() int64   { return v.n }

// Class is the class name of an object value.
func (v Value) Class() string { return v.class }

// Address is the heap address of an object value.
func (v Value) Address() int64 { return v.n }

func (v Value) Equal(other Value) bool { return v == other }

// String renders v the way Python prints it.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindBool:
		if v.n != 0 {
			return "True"
		}
		return "False"
	case KindNumber:
		return strconv.FormatInt(v.n, 10)
	case KindObject:
		return fmt.Sprintf("<%s object at 0x%x>", v.class, v.n)
	default:
		return "<invalid>"
	}
}

// DecodeValue interprets a machine word produced by code of static type t.
// A class-typed word holding the None sentinel decodes to None.
func DecodeValue(word int64, t Type) Value {
	switch t.Kind {
	case TypeNumber:
		return NewNumber(word)
	case TypeBool:
		return NewBool(word == trueWord)
	case TypeClass:
		if word == noneWord {
			return NewNone()
		}
		return NewObject(t.Class, word)
	default:
		return NewNone()
	}
}
