package pywat

import "fmt"

// TypeKind is the tag of a static type.
type TypeKind int

const (
	TypeNone TypeKind = iota
	TypeNumber
	TypeBool
	TypeClass
)

// Type is a static type: one of the primitive tags or a named class. The
// zero value is the None type.
type Type struct {
	Kind  TypeKind
	Class string
}

var (
	NoneType   = Type{Kind: TypeNone}
	NumberType = Type{Kind: TypeNumber}
	BoolType   = Type{Kind: TypeBool}
)

// ClassType returns the type of instances of the named class.
func ClassType(name string) Type {
	return Type{Kind: TypeClass, Class: name}
}

// Equal compares primitive types by tag and class types by name.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind == TypeClass {
		return t.Class == other.Class
	}
	return true
}

func (t Type) IsNone() bool  { return t.Kind == TypeNone }
func (t Type) IsClass() bool { return t.Kind == TypeClass }

// isValueType reports whether values of t have no reference identity.
func (t Type) isValueType() bool {
	return t.Kind == TypeNumber || t.Kind == TypeBool
}

// String renders t the way it is written in source annotations.
func (t Type) String() string {
	switch t.Kind {
	case TypeNone:
		return "None"
	case TypeNumber:
		return "int"
	case TypeBool:
		return "bool"
	case TypeClass:
		return t.Class
	default:
		return fmt.Sprintf("Type(%d)", int(t.Kind))
	}
}

// Tag names the type's category, as used in operator errors.
func (t Type) Tag() string {
	switch t.Kind {
	case TypeNone:
		return "none"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeClass:
		return "class"
	default:
		return "unknown"
	}
}

func typeFromName(name string) Type {
	switch name {
	case "int":
		return NumberType
	case "bool":
		return BoolType
	case "None":
		return NoneType
	default:
		return ClassType(name)
	}
}
