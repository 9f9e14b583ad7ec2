package pywat

import (
	"encoding/binary"
	"math"
)

type flow int

const (
	flowNext flow = iota
	flowBranch
	flowReturn
)

type frame struct {
	locals map[string]uint64
	stack  []uint64
}

func (f *frame) push(v uint64) { f.stack = append(f.stack, v) }

func (f *frame) pop() uint64 {
	if len(f.stack) == 0 {
		panic(&trap{msg: "value stack underflow"})
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func b2i(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// exec runs instrs in f. A branch result carries the remaining label
// depth for the enclosing structured instruction to consume.
func (m *Machine) exec(f *frame, instrs []Instr) (fl flow, depth int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, ok := r.(*trap)
			if !ok {
				panic(r)
			}
			fl, depth, err = flowNext, 0, t
		}
	}()

	for i := range instrs {
		in := &instrs[i]
		if err := m.step(); err != nil {
			return flowNext, 0, err
		}
		switch in.Op {
		case OpNop:
		case OpUnreachable:
			return flowNext, 0, trapf("unreachable executed")
		case OpDrop:
			f.pop()
		case OpReturn:
			return flowReturn, 0, nil
		case OpI32Const:
			f.push(uint64(uint32(int32(in.Imm))))
		case OpI64Const:
			f.push(uint64(in.Imm))
		case OpLocalGet:
			f.push(f.locals[in.Name])
		case OpLocalSet:
			f.locals[in.Name] = f.pop()

		case OpI32Load, OpI64Load:
			size := 8
			if in.Op == OpI32Load {
				size = 4
			}
			addr, err := m.checkAddr(f.pop(), in.Imm, size)
			if err != nil {
				return flowNext, 0, err
			}
			if size == 4 {
				f.push(uint64(binary.LittleEndian.Uint32(m.memory[addr:])))
			} else {
				f.push(binary.LittleEndian.Uint64(m.memory[addr:]))
			}
		case OpI32Store, OpI64Store:
			size := 8
			if in.Op == OpI32Store {
				size = 4
			}
			v := f.pop()
			addr, err := m.checkAddr(f.pop(), in.Imm, size)
			if err != nil {
				return flowNext, 0, err
			}
			if size == 4 {
				binary.LittleEndian.PutUint32(m.memory[addr:], uint32(v))
			} else {
				binary.LittleEndian.PutUint64(m.memory[addr:], v)
			}

		case OpI32Add:
			b, a := uint32(f.pop()), uint32(f.pop())
			f.push(uint64(a + b))
		case OpI32Eqz:
			f.push(b2i(uint32(f.pop()) == 0))
		case OpI32WrapI64:
			f.push(uint64(uint32(f.pop())))
		case OpI64ExtendI32S:
			f.push(uint64(int64(int32(uint32(f.pop())))))
		case OpI64ExtendI32U:
			f.push(uint64(uint32(f.pop())))

		case OpI64Add, OpI64Sub, OpI64Mul, OpI64Xor:
			b, a := f.pop(), f.pop()
			f.push(arith64(in.Op, a, b))
		case OpI64Eq, OpI64Ne, OpI64LtS, OpI64GtS, OpI64LeS, OpI64GeS:
			b, a := int64(f.pop()), int64(f.pop())
			f.push(b2i(compare64(in.Op, a, b)))

		case OpF64ConvertI64S:
			f.push(math.Float64bits(float64(int64(f.pop()))))
		case OpF64Div:
			b, a := math.Float64frombits(f.pop()), math.Float64frombits(f.pop())
			f.push(math.Float64bits(a / b))
		case OpF64Floor:
			f.push(math.Float64bits(math.Floor(math.Float64frombits(f.pop()))))
		case OpI64TruncF64S:
			v := math.Float64frombits(f.pop())
			if math.IsNaN(v) {
				return flowNext, 0, trapf("invalid conversion to integer")
			}
			if v >= math.MaxInt64 || v < math.MinInt64 {
				return flowNext, 0, trapf("integer overflow")
			}
			f.push(uint64(int64(math.Trunc(v))))

		case OpCall:
			if err := m.callHost(f, in.Name); err != nil {
				return flowNext, 0, err
			}
		case OpCallIndirect:
			if err := m.callIndirect(f, int(in.Imm)); err != nil {
				return flowNext, 0, err
			}

		case OpIf:
			body := in.Else
			if uint32(f.pop()) != 0 {
				body = in.Then
			}
			fl, d, err := m.exec(f, body)
			if err != nil || fl == flowReturn {
				return fl, 0, err
			}
			if fl == flowBranch && d > 0 {
				return flowBranch, d - 1, nil
			}
		case OpBlock:
			fl, d, err := m.exec(f, in.Then)
			if err != nil || fl == flowReturn {
				return fl, 0, err
			}
			if fl == flowBranch && d > 0 {
				return flowBranch, d - 1, nil
			}
		case OpLoop:
			for {
				fl, d, err := m.exec(f, in.Then)
				if err != nil || fl == flowReturn {
					return fl, 0, err
				}
				if fl == flowBranch && d == 0 {
					continue
				}
				if fl == flowBranch {
					return flowBranch, d - 1, nil
				}
				break
			}
		case OpBr:
			return flowBranch, in.Imm, nil
		case OpBrIf:
			if uint32(f.pop()) != 0 {
				return flowBranch, in.Imm, nil
			}
		default:
			return flowNext, 0, trapf("unknown instruction %s", in.Op)
		}
	}
	return flowNext, 0, nil
}

func arith64(o Op, a, b uint64) uint64 {
	switch o {
	case OpI64Add:
		return a + b
	case OpI64Sub:
		return a - b
	case OpI64Mul:
		return a * b
	default:
		return a ^ b
	}
}

func compare64(o Op, a, b int64) bool {
	switch o {
	case OpI64Eq:
		return a == b
	case OpI64Ne:
		return a != b
	case OpI64LtS:
		return a < b
	case OpI64GtS:
		return a > b
	case OpI64LeS:
		return a <= b
	default:
		return a >= b
	}
}

func popArgs(f *frame, n int) []uint64 {
	args := make([]uint64, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = f.pop()
	}
	return args
}

func (m *Machine) callHost(f *frame, name string) error {
	host, ok := m.hosts[name]
	if !ok {
		return trapf("unknown host function %s", name)
	}
	arity := 0
	for _, imp := range hostImports {
		if imp.name == name {
			arity = imp.arity
		}
	}
	raw := popArgs(f, arity)
	args := make([]int64, arity)
	for i, a := range raw {
		args[i] = int64(a)
	}
	result, err := host(m, args)
	if err != nil {
		return err
	}
	f.push(uint64(result))
	return nil
}

func (m *Machine) callIndirect(f *frame, arity int) error {
	slot := uint32(f.pop())
	if int(slot) >= len(m.table) {
		return trapf("undefined element %d", slot)
	}
	fn := m.table[slot]
	if len(fn.Params) != arity {
		return trapf("indirect call type mismatch calling %s", fn.Name)
	}
	result, err := m.invoke(fn, popArgs(f, arity))
	if err != nil {
		return err
	}
	f.push(result)
	return nil
}
