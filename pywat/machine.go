package pywat

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const defaultCallDepth = 512

var errStepQuotaExceeded = errors.New("step quota exceeded")

// RuntimeError is a trap raised while executing a module. Frames lists
// the active functions, innermost first.
type RuntimeError struct {
	Message string
	Frames  []string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString("runtime error: ")
	b.WriteString(e.Message)
	for _, f := range e.Frames {
		fmt.Fprintf(&b, "\n  at %s", f)
	}
	return b.String()
}

// trap is a runtime failure before frame information is attached.
type trap struct {
	msg string
}

func (t *trap) Error() string { return t.msg }

func trapf(format string, args ...any) error {
	return &trap{msg: fmt.Sprintf(format, args...)}
}

type hostFunc func(m *Machine, args []int64) (int64, error)

// Machine executes assembled modules. Linear memory survives between
// runs so successive units of a session share globals and heap.
type Machine struct {
	memory    []byte
	out       io.Writer
	stepQuota int
	maxDepth  int
	hosts     map[string]hostFunc

	ctx   context.Context
	steps int
	table []*Func
	depth int
}

// NewMachine allocates memoryPages of zeroed memory. Host print functions
// write to out.
func NewMachine(memoryPages int, out io.Writer, stepQuota int) *Machine {
	if memoryPages < 1 {
		memoryPages = 1
	}
	if out == nil {
		out = io.Discard
	}
	return &Machine{
		memory:    make([]byte, memoryPages*PageSize),
		out:       out,
		stepQuota: stepQuota,
		maxDepth:  defaultCallDepth,
		hosts:     defaultHosts(),
	}
}

// Run executes the module's entry function and returns its result word.
func (m *Machine) Run(ctx context.Context, mod *Module) (int64, error) {
	if need := mod.MemoryPages * PageSize; need > len(m.memory) {
		grown := make([]byte, need)
		copy(grown, m.memory)
		m.memory = grown
	}
	m.ctx = ctx
	m.steps = 0
	m.depth = 0
	m.table = mod.Funcs

	word, err := m.invoke(mod.Entry, nil)
	if err != nil {
		return 0, err
	}
	return int64(word), nil
}

// ReadWord loads the i64 stored at addr.
func (m *Machine) ReadWord(addr int32) (int64, error) {
	if addr < 0 || int(addr)+8 > len(m.memory) {
		return 0, &RuntimeError{Message: fmt.Sprintf("out of bounds memory access at %d", addr)}
	}
	return int64(binary.LittleEndian.Uint64(m.memory[addr:])), nil
}

// MemorySize is the current linear memory size in bytes.
func (m *Machine) MemorySize() int { return len(m.memory) }

func (m *Machine) invoke(fn *Func, args []uint64) (uint64, error) {
	if m.depth >= m.maxDepth {
		return 0, &RuntimeError{Message: "call stack exhausted", Frames: []string{fn.Name}}
	}
	m.depth++
	defer func() { m.depth-- }()

	f := &frame{locals: make(map[string]uint64, len(fn.Params)+len(fn.Locals))}
	for i, p := range fn.Params {
		f.locals[p] = args[i]
	}
	for _, l := range fn.Locals {
		f.locals[l] = 0
	}

	if _, _, err := m.exec(f, fn.Body); err != nil {
		return 0, withFrame(err, fn.Name)
	}
	if len(f.stack) == 0 {
		return 0, &RuntimeError{Message: "function returned no value", Frames: []string{fn.Name}}
	}
	return f.stack[len(f.stack)-1], nil
}

// withFrame converts traps to RuntimeErrors and records fn as the
// function the error passed through.
func withFrame(err error, fn string) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		re.Frames = append(re.Frames, fn)
		return re
	}
	var t *trap
	if errors.As(err, &t) {
		return &RuntimeError{Message: t.msg, Frames: []string{fn}}
	}
	return err
}

func (m *Machine) step() error {
	m.steps++
	if m.stepQuota > 0 && m.steps > m.stepQuota {
		return trapf("%v (%d)", errStepQuotaExceeded, m.stepQuota)
	}
	if m.ctx != nil && m.steps&255 == 0 {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		default:
		}
	}
	return nil
}

func (m *Machine) checkAddr(base uint64, offset int64, size int) (int, error) {
	addr := int64(uint32(base)) + offset
	if addr < 0 || addr+int64(size) > int64(len(m.memory)) {
		return 0, trapf("out of bounds memory access at %d", addr)
	}
	return int(addr), nil
}

func defaultHosts() map[string]hostFunc {
	return map[string]hostFunc{
		"print": func(m *Machine, args []int64) (int64, error) {
			fmt.Fprintln(m.out, args[0])
			return args[0], nil
		},
		"print_bool": func(m *Machine, args []int64) (int64, error) {
			fmt.Fprintln(m.out, DecodeValue(args[0], BoolType))
			return args[0], nil
		},
		"print_none": func(m *Machine, args []int64) (int64, error) {
			fmt.Fprintln(m.out, "None")
			return args[0], nil
		},
		"abs": func(_ *Machine, args []int64) (int64, error) {
			if args[0] < 0 {
				return -args[0], nil
			}
			return args[0], nil
		},
		"min": func(_ *Machine, args []int64) (int64, error) {
			return min(args[0], args[1]), nil
		},
		"max": func(_ *Machine, args []int64) (int64, error) {
			return max(args[0], args[1]), nil
		},
		"pow": func(_ *Machine, args []int64) (int64, error) {
			base, exp := args[0], args[1]
			if exp < 0 {
				return 0, trapf("pow with a negative exponent is not supported")
			}
			result := int64(1)
			for exp > 0 {
				if exp&1 == 1 {
					result *= base
				}
				base *= base
				exp >>= 1
			}
			return result, nil
		},
	}
}
