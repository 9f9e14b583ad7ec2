package pywat

import (
	"fmt"
	"slices"
	"strings"
)

const (
	EntryName = "exported_func"
	PageSize  = 64 * 1024
)

type hostImport struct {
	name  string
	arity int
}

// hostImports are supplied by the runtime under the "imports" namespace.
// Each takes and returns i64 words.
var hostImports = []hostImport{
	{"print", 1},
	{"print_bool", 1},
	{"print_none", 1},
	{"abs", 1},
	{"min", 2},
	{"max", 2},
	{"pow", 2},
}

// Module is an assembled unit: every method known to the environment in
// table order, plus the entry function of the unit.
type Module struct {
	Funcs       []*Func
	Table       []string
	Entry       *Func
	ResultType  Type
	HeapBase    int32
	MemoryPages int
}

// Assemble links out against env, which must carry the code of every
// table entry, including the methods out itself declares.
func Assemble(env *Env, out *Output, memoryPages int) (*Module, error) {
	minPages := (int(env.HeapBase()) + PageSize - 1) / PageSize
	if memoryPages < minPages {
		memoryPages = minPages
	}
	table := env.VTable()
	funcs := make([]*Func, 0, len(table))
	for _, key := range table {
		fn, ok := env.Func(key)
		if !ok {
			return nil, internalErrorf(Position{}, "no code for table entry %s", key)
		}
		funcs = append(funcs, fn)
	}
	return &Module{
		Funcs:       funcs,
		Table:       table,
		Entry:       &Func{Name: EntryName, Locals: out.EntryLocals, Body: out.Entry},
		ResultType:  out.ResultType,
		HeapBase:    env.HeapBase(),
		MemoryPages: memoryPages,
	}, nil
}

// String renders the module in the WebAssembly text format.
func (m *Module) String() string {
	var b strings.Builder
	b.WriteString("(module\n")
	for _, imp := range hostImports {
		fmt.Fprintf(&b, "  (func $%s (import \"imports\" %q)%s (result i64))\n", imp.name, imp.name, i64Params(imp.arity))
	}
	fmt.Fprintf(&b, "  (import \"js\" \"memory\" (memory %d))\n", m.MemoryPages)

	var arities []int
	for _, fn := range m.Funcs {
		arities = append(arities, len(fn.Params))
	}
	slices.Sort(arities)
	for _, n := range slices.Compact(arities) {
		fmt.Fprintf(&b, "  (type $fn%d (func%s (result i64)))\n", n, i64Params(n))
	}

	fmt.Fprintf(&b, "  (table %d funcref)\n", len(m.Table))
	if len(m.Table) > 0 {
		b.WriteString("  (elem (i32.const 0)")
		for _, name := range m.Table {
			b.WriteString(" $" + name)
		}
		b.WriteString(")\n")
	}

	for _, fn := range m.Funcs {
		b.WriteString("  (func $" + fn.Name)
		for _, p := range fn.Params {
			b.WriteString(" (param $" + p + " i64)")
		}
		b.WriteString(" (result i64)\n")
		writeFuncBody(&b, fn)
	}
	fmt.Fprintf(&b, "  (func (export %q) (result i64)\n", EntryName)
	writeFuncBody(&b, m.Entry)
	b.WriteString(")\n")
	return b.String()
}

func writeFuncBody(b *strings.Builder, fn *Func) {
	for _, l := range fn.Locals {
		b.WriteString("    (local $" + l + " i64)\n")
	}
	writeInstrs(b, fn.Body, 2)
	b.WriteString("  )\n")
}

func i64Params(n int) string {
	if n == 0 {
		return ""
	}
	return " (param" + strings.Repeat(" i64", n) + ")"
}
