package pywat

import (
	"slices"
	"testing"
)

func extendSource(t *testing.T, env *Env, source string) *Env {
	t.Helper()
	prog := parseSource(t, source)
	next, err := env.Extend(prog.Defs)
	if err != nil {
		t.Fatalf("extend failed: %v", err)
	}
	return next
}

func requireExtendError(t *testing.T, env *Env, source string, kind ErrorKind) error {
	t.Helper()
	prog := parseSource(t, source)
	next, err := env.Extend(prog.Defs)
	if err == nil {
		t.Fatalf("expected %s, got env %#v", kind, next)
	}
	if !IsKind(err, kind) {
		t.Fatalf("expected %s, got %v", kind, err)
	}
	return err
}

func TestEnvAssignsGlobalSlotsInOrder(t *testing.T) {
	env := extendSource(t, NewEnv(0), "x: int = 1\ny: bool = False\n")
	if slot, ok := env.GlobalSlot("x"); !ok || slot != 1 {
		t.Fatalf("expected x in slot 1, got %d %v", slot, ok)
	}
	if slot, ok := env.GlobalSlot("y"); !ok || slot != 2 {
		t.Fatalf("expected y in slot 2, got %d %v", slot, ok)
	}
	if env.NextOffset() != 3 {
		t.Fatalf("expected next offset 3, got %d", env.NextOffset())
	}
	if ty, _ := env.GlobalType("y"); !ty.Equal(BoolType) {
		t.Fatalf("expected y to be bool, got %s", ty)
	}
	if got := env.GlobalNames(); !slices.Equal(got, []string{"x", "y"}) {
		t.Fatalf("unexpected global order %v", got)
	}
	if env.GlobalSlots() != DefaultGlobalSlots {
		t.Fatalf("expected default global slots, got %d", env.GlobalSlots())
	}
	if env.HeapBase() != DefaultGlobalSlots*wordSize {
		t.Fatalf("unexpected heap base %d", env.HeapBase())
	}
}

func TestEnvExtendLeavesReceiverUntouched(t *testing.T) {
	base := extendSource(t, NewEnv(0), "x: int = 1\n")
	next := extendSource(t, base, "y: int = 2\nclass C:\n    def f(self):\n        pass\n")

	if _, ok := base.GlobalSlot("y"); ok {
		t.Fatalf("extend leaked y into the old env")
	}
	if _, ok := base.Class("C"); ok {
		t.Fatalf("extend leaked C into the old env")
	}
	if len(base.VTable()) != 0 {
		t.Fatalf("extend leaked vtable entries: %v", base.VTable())
	}
	if base.NextOffset() != 2 || next.NextOffset() != 3 {
		t.Fatalf("unexpected offsets %d and %d", base.NextOffset(), next.NextOffset())
	}
	if slot, _ := next.GlobalSlot("x"); slot != 1 {
		t.Fatalf("expected x to keep slot 1, got %d", slot)
	}
}

func TestEnvVTableSlotsAreDenseAcrossUnits(t *testing.T) {
	env := extendSource(t, NewEnv(0), `class A:
    def f(self):
        pass
    def g(self):
        pass
class B:
    def h(self):
        pass
`)
	if got := env.VTable(); !slices.Equal(got, []string{"A$f", "A$g", "B$h"}) {
		t.Fatalf("unexpected vtable %v", got)
	}
	for i, key := range []string{"A$f", "A$g", "B$h"} {
		if slot, ok := env.VTableSlot(key); !ok || slot != i {
			t.Fatalf("expected %s in slot %d, got %d %v", key, i, slot, ok)
		}
	}

	next := extendSource(t, env, "class D:\n    def k(self):\n        pass\n")
	if slot, ok := next.VTableSlot("D$k"); !ok || slot != 3 {
		t.Fatalf("expected D$k in slot 3, got %d %v", slot, ok)
	}
	if slot, _ := next.VTableSlot("A$f"); slot != 0 {
		t.Fatalf("expected A$f to keep slot 0, got %d", slot)
	}
	if got := next.ClassNames(); !slices.Equal(got, []string{"A", "B", "D"}) {
		t.Fatalf("unexpected class names %v", got)
	}
}

func TestEnvClassLayout(t *testing.T) {
	env := extendSource(t, NewEnv(0), `class P:
    x: int = 5
    ok: bool = True
    next: P = None
    def get(self, k: int) -> int:
        return self.x + k
`)
	layout, ok := env.Class("P")
	if !ok {
		t.Fatalf("expected layout for P")
	}
	if !slices.Equal(layout.Fields, []string{"x", "ok", "next"}) {
		t.Fatalf("unexpected fields %v", layout.Fields)
	}
	if off, ok := layout.FieldOffset("next"); !ok || off != 16 {
		t.Fatalf("expected next at offset 16, got %d %v", off, ok)
	}
	if _, ok := layout.FieldOffset("missing"); ok {
		t.Fatalf("expected no offset for unknown field")
	}
	if layout.Size() != 24 {
		t.Fatalf("expected size 24, got %d", layout.Size())
	}
	if layout.Defaults["x"].Number != 5 {
		t.Fatalf("unexpected default for x: %s", layout.Defaults["x"])
	}
	if ty, _ := env.FieldType("P", "next"); !ty.Equal(ClassType("P")) {
		t.Fatalf("expected next to be P, got %s", ty)
	}
	params, ret, ok := env.MethodSignature("P", "get")
	if !ok || len(params) != 2 || !params[0].Equal(ClassType("P")) || !ret.Equal(NumberType) {
		t.Fatalf("unexpected signature %v %s %v", params, ret, ok)
	}
}

func TestEnvForwardClassReferences(t *testing.T) {
	extendSource(t, NewEnv(0), `class A:
    b: B = None
class B:
    a: A = None
`)
}

func TestEnvRejectsDuplicates(t *testing.T) {
	base := extendSource(t, NewEnv(0), "x: int = 1\nclass C:\n    def f(self):\n        pass\n")

	cases := map[string]string{
		"global twice":      "x: int = 2\n",
		"class as global":   "C: int = 2\n",
		"global as class":   "class x:\n    def f(self):\n        pass\n",
		"same unit":         "y: int = 1\ny: int = 2\n",
		"field twice":       "class D:\n    a: int = 1\n    a: int = 2\n",
		"method twice":      "class D:\n    def f(self):\n        pass\n    def f(self):\n        pass\n",
		"method over field": "class D:\n    f: int = 1\n    def f(self):\n        pass\n",
		"param twice":       "class D:\n    def f(self, a: int, a: int):\n        pass\n",
		"local over param":  "class D:\n    def f(self, a: int):\n        a: int = 1\n        pass\n",
		"reserved name":     "class object:\n    def f(self):\n        pass\n",
		"builtin name":      "class print:\n    def f(self):\n        pass\n",
	}
	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			requireExtendError(t, base, source, KindLayout)
			if base.NextOffset() != 2 || len(base.VTable()) != 1 {
				t.Fatalf("failed extend changed the env")
			}
		})
	}
}

func TestEnvRejectsUnknownTypeAnnotations(t *testing.T) {
	err := requireExtendError(t, NewEnv(0), "x: Missing = None\n", KindResolution)
	if ce := err.(*CompileError); ce.Msg != "invalid type annotation; there is no class named: Missing" {
		t.Fatalf("unexpected message %q", ce.Msg)
	}
	requireExtendError(t, NewEnv(0), "class C:\n    def f(self, m: Missing):\n        pass\n", KindResolution)
	requireExtendError(t, NewEnv(0), "class C:\n    def f(self) -> Missing:\n        return None\n", KindResolution)
}

func TestEnvRejectsForeignReceiverType(t *testing.T) {
	requireExtendError(t, NewEnv(0), `class A:
    def f(self):
        pass
class B:
    def g(self: A):
        pass
`, KindType)
}

func TestEnvGlobalStorageExhausted(t *testing.T) {
	env := NewEnv(3)
	env = extendSource(t, env, "a: int = 1\nb: int = 2\n")
	err := requireExtendError(t, env, "c: int = 3\n", KindLayout)
	if ce := err.(*CompileError); ce.Msg != "global storage exhausted: 3 slots in use" {
		t.Fatalf("unexpected message %q", ce.Msg)
	}
	if env.HeapBase() != 24 {
		t.Fatalf("expected heap base 24, got %d", env.HeapBase())
	}
}
