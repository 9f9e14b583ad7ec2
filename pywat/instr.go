package pywat

import (
	"fmt"
	"strings"
)

type Op uint8

const (
	OpNop Op = iota
	OpUnreachable
	OpDrop
	OpReturn
	OpI32Const
	OpI64Const
	OpLocalGet
	OpLocalSet
	OpI32Load  // Imm is the static offset
	OpI32Store // Imm is the static offset
	OpI64Load  // Imm is the static offset
	OpI64Store // Imm is the static offset
	OpI32Add
	OpI32Eqz
	OpI32WrapI64
	OpI64ExtendI32S
	OpI64ExtendI32U
	OpI64Add
	OpI64Sub
	OpI64Mul
	OpI64Xor
	OpI64Eq
	OpI64Ne
	OpI64LtS
	OpI64GtS
	OpI64LeS
	OpI64GeS
	OpF64ConvertI64S
	OpF64Div
	OpF64Floor
	OpI64TruncF64S
	OpCall         // Name is the callee
	OpCallIndirect // Imm is the callee's arity
	OpIf           // Then and Else are the branches
	OpBlock        // Then is the body
	OpLoop         // Then is the body
	OpBr           // Imm is the label depth
	OpBrIf         // Imm is the label depth
)

var opNames = []string{
	OpNop:            "nop",
	OpUnreachable:    "unreachable",
	OpDrop:           "drop",
	OpReturn:         "return",
	OpI32Const:       "i32.const",
	OpI64Const:       "i64.const",
	OpLocalGet:       "local.get",
	OpLocalSet:       "local.set",
	OpI32Load:        "i32.load",
	OpI32Store:       "i32.store",
	OpI64Load:        "i64.load",
	OpI64Store:       "i64.store",
	OpI32Add:         "i32.add",
	OpI32Eqz:         "i32.eqz",
	OpI32WrapI64:     "i32.wrap_i64",
	OpI64ExtendI32S:  "i64.extend_i32_s",
	OpI64ExtendI32U:  "i64.extend_i32_u",
	OpI64Add:         "i64.add",
	OpI64Sub:         "i64.sub",
	OpI64Mul:         "i64.mul",
	OpI64Xor:         "i64.xor",
	OpI64Eq:          "i64.eq",
	OpI64Ne:          "i64.ne",
	OpI64LtS:         "i64.lt_s",
	OpI64GtS:         "i64.gt_s",
	OpI64LeS:         "i64.le_s",
	OpI64GeS:         "i64.ge_s",
	OpF64ConvertI64S: "f64.convert_i64_s",
	OpF64Div:         "f64.div",
	OpF64Floor:       "f64.floor",
	OpI64TruncF64S:   "i64.trunc_f64_s",
	OpCall:           "call",
	OpCallIndirect:   "call_indirect",
	OpIf:             "if",
	OpBlock:          "block",
	OpLoop:           "loop",
	OpBr:             "br",
	OpBrIf:           "br_if",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Instr is one stack machine instruction. Structured control instructions
// carry their nested bodies.
type Instr struct {
	Op   Op
	Imm  int64
	Name string
	Then []Instr
	Else []Instr
}

// Func is a compiled method. Every parameter, local and result is an i64.
type Func struct {
	Name   string
	Params []string
	Locals []string
	Body   []Instr
}

func i32Const(v int32) Instr  { return Instr{Op: OpI32Const, Imm: int64(v)} }
func i64Const(v int64) Instr  { return Instr{Op: OpI64Const, Imm: v} }
func localGet(n string) Instr { return Instr{Op: OpLocalGet, Name: n} }
func localSet(n string) Instr { return Instr{Op: OpLocalSet, Name: n} }
func plain(o Op) Instr        { return Instr{Op: o} }

// writeInstrs renders instructions in the flat text format, one per line.
func writeInstrs(b *strings.Builder, instrs []Instr, depth int) {
	for _, in := range instrs {
		indent := strings.Repeat("  ", depth)
		switch in.Op {
		case OpIf:
			b.WriteString(indent + "if\n")
			writeInstrs(b, in.Then, depth+1)
			if len(in.Else) > 0 {
				b.WriteString(indent + "else\n")
				writeInstrs(b, in.Else, depth+1)
			}
			b.WriteString(indent + "end\n")
		case OpBlock, OpLoop:
			b.WriteString(indent + in.Op.String() + "\n")
			writeInstrs(b, in.Then, depth+1)
			b.WriteString(indent + "end\n")
		default:
			b.WriteString(indent + in.text() + "\n")
		}
	}
}

func (in Instr) text() string {
	switch in.Op {
	case OpI32Const, OpI64Const, OpBr, OpBrIf:
		return fmt.Sprintf("%s %d", in.Op, in.Imm)
	case OpLocalGet, OpLocalSet, OpCall:
		return fmt.Sprintf("%s $%s", in.Op, in.Name)
	case OpI32Load, OpI32Store, OpI64Load, OpI64Store:
		if in.Imm != 0 {
			return fmt.Sprintf("%s offset=%d", in.Op, in.Imm)
		}
		return in.Op.String()
	case OpCallIndirect:
		return fmt.Sprintf("%s (type $fn%d)", in.Op, in.Imm)
	default:
		return in.Op.String()
	}
}
