package pywat

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func entryModule(body ...Instr) *Module {
	return &Module{
		Entry:       &Func{Name: EntryName, Body: body},
		MemoryPages: 1,
	}
}

func requireTrap(t *testing.T, m *Machine, mod *Module, want string) *RuntimeError {
	t.Helper()
	_, err := m.Run(context.Background(), mod)
	if err == nil {
		t.Fatalf("expected runtime error containing %q", want)
	}
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if !strings.Contains(re.Message, want) {
		t.Fatalf("expected error containing %q, got %q", want, re.Message)
	}
	return re
}

func TestMachineArithmetic(t *testing.T) {
	m := NewMachine(1, nil, 0)
	word, err := m.Run(context.Background(), entryModule(
		i64Const(6), i64Const(7), plain(OpI64Mul), i64Const(2), plain(OpI64Sub),
	))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if word != 40 {
		t.Fatalf("expected 40, got %d", word)
	}
}

func TestMachineFloorDivision(t *testing.T) {
	cases := []struct{ l, r, want int64 }{
		{7, 2, 3},
		{-7, 2, -4},
		{7, -2, -4},
		{-7, -2, 3},
		{6, 3, 2},
	}
	for _, tc := range cases {
		m := NewMachine(1, nil, 0)
		body := floorDiv(nil, []Instr{i64Const(tc.l)}, []Instr{i64Const(tc.r)})
		word, err := m.Run(context.Background(), entryModule(body...))
		if err != nil {
			t.Fatalf("%d // %d failed: %v", tc.l, tc.r, err)
		}
		if word != tc.want {
			t.Fatalf("%d // %d: expected %d, got %d", tc.l, tc.r, tc.want, word)
		}
	}
}

func TestMachineDivisionByZeroTraps(t *testing.T) {
	m := NewMachine(1, nil, 0)
	body := floorDiv(nil, []Instr{i64Const(1)}, []Instr{i64Const(0)})
	re := requireTrap(t, m, entryModule(body...), "integer overflow")
	if len(re.Frames) != 1 || re.Frames[0] != EntryName {
		t.Fatalf("expected entry frame, got %v", re.Frames)
	}

	body = floorDiv(nil, []Instr{i64Const(0)}, []Instr{i64Const(0)})
	requireTrap(t, m, entryModule(body...), "invalid conversion to integer")
}

func TestMachineUnreachable(t *testing.T) {
	requireTrap(t, NewMachine(1, nil, 0), entryModule(plain(OpUnreachable)), "unreachable executed")
}

func TestMachineOutOfBounds(t *testing.T) {
	m := NewMachine(1, nil, 0)
	requireTrap(t, m, entryModule(i32Const(PageSize-4), plain(OpI64Load)), "out of bounds memory access")
	if _, err := m.ReadWord(PageSize); err == nil {
		t.Fatalf("expected ReadWord past the end to fail")
	}
}

func TestMachineStepQuota(t *testing.T) {
	m := NewMachine(1, nil, 100)
	loop := Instr{Op: OpLoop, Then: []Instr{{Op: OpBr, Imm: 0}}}
	requireTrap(t, m, entryModule(loop), "step quota exceeded (100)")
}

func TestMachineHonoursContext(t *testing.T) {
	m := NewMachine(1, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loop := Instr{Op: OpLoop, Then: []Instr{{Op: OpBr, Imm: 0}}}
	_, err := m.Run(ctx, entryModule(loop))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMachineBlockAndBranch(t *testing.T) {
	// counts a local up to 5 with the same block/loop shape as a while loop
	cond := []Instr{localGet("i"), i64Const(5), plain(OpI64GeS), {Op: OpBrIf, Imm: 1}}
	body := append(cond, localGet("i"), i64Const(1), plain(OpI64Add), localSet("i"), Instr{Op: OpBr, Imm: 0})
	mod := entryModule(
		Instr{Op: OpBlock, Then: []Instr{{Op: OpLoop, Then: body}}},
		localGet("i"),
	)
	mod.Entry.Locals = []string{"i"}

	word, err := NewMachine(1, nil, 0).Run(context.Background(), mod)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if word != 5 {
		t.Fatalf("expected 5, got %d", word)
	}
}

func TestMachineIfElse(t *testing.T) {
	for cond, want := range map[int32]int64{0: 2, 1: 1} {
		word, err := NewMachine(1, nil, 0).Run(context.Background(), entryModule(
			i32Const(cond),
			Instr{Op: OpIf, Then: []Instr{i64Const(1)}, Else: []Instr{i64Const(2)}},
		))
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if word != want {
			t.Fatalf("condition %d: expected %d, got %d", cond, want, word)
		}
	}
}

func TestMachineIndirectCalls(t *testing.T) {
	double := &Func{Name: "C$double", Params: []string{"self", "n"}, Body: []Instr{
		localGet("n"), localGet("n"), plain(OpI64Add), plain(OpReturn),
	}}
	mod := entryModule(i64Const(0), i64Const(21), i32Const(0), Instr{Op: OpCallIndirect, Imm: 2})
	mod.Funcs = []*Func{double}
	mod.Table = []string{double.Name}

	m := NewMachine(1, nil, 0)
	word, err := m.Run(context.Background(), mod)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if word != 42 {
		t.Fatalf("expected 42, got %d", word)
	}

	mod.Entry.Body = []Instr{i64Const(0), i32Const(3), {Op: OpCallIndirect, Imm: 1}}
	requireTrap(t, m, mod, "undefined element 3")

	mod.Entry.Body = []Instr{i64Const(0), i32Const(0), {Op: OpCallIndirect, Imm: 1}}
	requireTrap(t, m, mod, "indirect call type mismatch calling C$double")
}

func TestMachineTrapFramesInnermostFirst(t *testing.T) {
	boom := &Func{Name: "C$boom", Params: []string{"self"}, Body: []Instr{plain(OpUnreachable)}}
	mod := entryModule(i64Const(0), i32Const(0), Instr{Op: OpCallIndirect, Imm: 1})
	mod.Funcs = []*Func{boom}
	mod.Table = []string{boom.Name}

	re := requireTrap(t, NewMachine(1, nil, 0), mod, "unreachable executed")
	if len(re.Frames) != 2 || re.Frames[0] != "C$boom" || re.Frames[1] != EntryName {
		t.Fatalf("unexpected frames %v", re.Frames)
	}
	if !strings.Contains(re.Error(), "\n  at C$boom\n  at "+EntryName) {
		t.Fatalf("unexpected error text %q", re.Error())
	}
}

func TestMachineCallDepth(t *testing.T) {
	recurse := &Func{Name: "C$loop", Params: []string{"self"}, Body: []Instr{
		localGet("self"), i32Const(0), {Op: OpCallIndirect, Imm: 1},
	}}
	mod := entryModule(i64Const(0), i32Const(0), Instr{Op: OpCallIndirect, Imm: 1})
	mod.Funcs = []*Func{recurse}
	mod.Table = []string{recurse.Name}
	requireTrap(t, NewMachine(1, nil, 0), mod, "call stack exhausted")
}

func TestMachineHostFunctions(t *testing.T) {
	var out bytes.Buffer
	m := NewMachine(1, &out, 0)
	_, err := m.Run(context.Background(), entryModule(
		i64Const(-3), Instr{Op: OpCall, Name: "abs"}, Instr{Op: OpCall, Name: "print"}, plain(OpDrop),
		i64Const(trueWord), Instr{Op: OpCall, Name: "print_bool"}, plain(OpDrop),
		i64Const(noneWord), Instr{Op: OpCall, Name: "print_none"}, plain(OpDrop),
		i64Const(2), i64Const(10), Instr{Op: OpCall, Name: "pow"},
	))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out.String() != "3\nTrue\nNone\n" {
		t.Fatalf("unexpected output %q", out.String())
	}

	word, err := m.Run(context.Background(), entryModule(
		i64Const(4), i64Const(9), Instr{Op: OpCall, Name: "min"},
		i64Const(4), i64Const(9), Instr{Op: OpCall, Name: "max"},
		plain(OpI64Sub),
	))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if word != -5 {
		t.Fatalf("expected -5, got %d", word)
	}

	requireTrap(t, m, entryModule(i64Const(2), i64Const(-1), Instr{Op: OpCall, Name: "pow"}), "negative exponent")
}

func TestMachineMemoryPersistsAcrossRuns(t *testing.T) {
	m := NewMachine(1, nil, 0)
	if _, err := m.Run(context.Background(), entryModule(i32Const(16), i64Const(99), plain(OpI64Store), i64Const(0))); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	word, err := m.Run(context.Background(), entryModule(i32Const(16), plain(OpI64Load)))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if word != 99 {
		t.Fatalf("expected 99, got %d", word)
	}
	if w, _ := m.ReadWord(16); w != 99 {
		t.Fatalf("expected ReadWord to see 99, got %d", w)
	}
}

func TestMachineGrowsMemoryForModule(t *testing.T) {
	m := NewMachine(1, nil, 0)
	mod := entryModule(i64Const(0))
	mod.MemoryPages = 2
	if _, err := m.Run(context.Background(), mod); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if m.MemorySize() != 2*PageSize {
		t.Fatalf("expected memory to grow to 2 pages, got %d bytes", m.MemorySize())
	}
}
