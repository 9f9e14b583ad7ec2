package pywat

import (
	"maps"
	"slices"
	"sort"
)

const (
	wordSize = 8

	// heapPointerSlot is the global slot holding the heap bump pointer.
	heapPointerSlot = 0

	DefaultGlobalSlots = 1024
)

var reservedClassNames = map[string]struct{}{
	"int":    {},
	"bool":   {},
	"object": {},
}

// ClassLayout is the storage layout of one class. It is never modified
// after Extend creates it.
type ClassLayout struct {
	Name       string
	Fields     []string
	FieldIndex map[string]int
	Defaults   map[string]Literal
	// Methods maps method name to its position within the class. Dispatch
	// goes through the vtable slot, not this index.
	Methods map[string]int
}

// FieldOffset is the byte offset of a field from the instance base.
func (c *ClassLayout) FieldOffset(name string) (int32, bool) {
	idx, ok := c.FieldIndex[name]
	if !ok {
		return 0, false
	}
	return int32(idx * wordSize), true
}

// Size is the instance size in bytes.
func (c *ClassLayout) Size() int32 {
	return int32(len(c.Fields) * wordSize)
}

// TypeTables records declared types per scope. Method parameter lists
// start with the receiver type.
type TypeTables struct {
	MethodParams  map[string]map[string][]Type
	MethodReturns map[string]map[string]Type
	Fields        map[string]map[string]Type
	Globals       map[string]Type
}

// Env is an immutable snapshot of the global environment: storage slots,
// class layouts, vtable slots, declared types and the compiled code of
// every method in the vtable. Extend returns a new snapshot and leaves
// the receiver untouched, so code compiled against an older snapshot
// stays valid.
type Env struct {
	globals     map[string]int
	classes     map[string]*ClassLayout
	vtable      []string
	vtableIndex map[string]int
	types       TypeTables
	code        map[string]*Func
	nextOffset  int
	globalSlots int
}

// NewEnv returns an empty environment whose global region holds
// globalSlots words. Slot 0 is reserved for the heap pointer.
func NewEnv(globalSlots int) *Env {
	if globalSlots <= heapPointerSlot+1 {
		globalSlots = DefaultGlobalSlots
	}
	return &Env{
		globals:     make(map[string]int),
		classes:     make(map[string]*ClassLayout),
		vtableIndex: make(map[string]int),
		types: TypeTables{
			MethodParams:  make(map[string]map[string][]Type),
			MethodReturns: make(map[string]map[string]Type),
			Fields:        make(map[string]map[string]Type),
			Globals:       make(map[string]Type),
		},
		code:        make(map[string]*Func),
		nextOffset:  heapPointerSlot + 1,
		globalSlots: globalSlots,
	}
}

// clone copies the outer maps. Inner per-class maps and layouts are
// shared; they are only ever created, never updated.
func (e *Env) clone() *Env {
	return &Env{
		globals:     maps.Clone(e.globals),
		classes:     maps.Clone(e.classes),
		vtable:      slices.Clip(slices.Clone(e.vtable)),
		vtableIndex: maps.Clone(e.vtableIndex),
		types: TypeTables{
			MethodParams:  maps.Clone(e.types.MethodParams),
			MethodReturns: maps.Clone(e.types.MethodReturns),
			Fields:        maps.Clone(e.types.Fields),
			Globals:       maps.Clone(e.types.Globals),
		},
		code:        maps.Clone(e.code),
		nextOffset:  e.nextOffset,
		globalSlots: e.globalSlots,
	}
}

// Extend lays out defs on top of e: global slots for variables, field
// indexes, defaults and vtable slots for classes. No code is generated.
func (e *Env) Extend(defs []Definition) (*Env, error) {
	next := e.clone()
	for _, def := range defs {
		var err error
		switch d := def.(type) {
		case *VarDef:
			err = next.addGlobal(d)
		case *ClassDef:
			err = next.addClass(d)
		default:
			err = internalErrorf(def.Pos(), "unsupported definition %T", def)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, def := range defs {
		if err := next.checkTypeRefs(def); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func (e *Env) isBound(name string) bool {
	if _, ok := e.globals[name]; ok {
		return true
	}
	_, ok := e.classes[name]
	return ok
}

func (e *Env) addGlobal(d *VarDef) error {
	if e.isBound(d.Name) {
		return layoutErrorf(d.Pos(), "duplicate declaration of identifier in same scope: %s", d.Name)
	}
	if e.nextOffset >= e.globalSlots {
		return layoutErrorf(d.Pos(), "global storage exhausted: %d slots in use", e.nextOffset)
	}
	e.globals[d.Name] = e.nextOffset
	e.types.Globals[d.Name] = d.Type
	e.nextOffset++
	return nil
}

func (e *Env) addClass(d *ClassDef) error {
	if e.isBound(d.Name) {
		return layoutErrorf(d.Pos(), "duplicate declaration of identifier in same scope: %s", d.Name)
	}
	if _, ok := reservedClassNames[d.Name]; ok {
		return layoutErrorf(d.Pos(), "%s is a reserved type name", d.Name)
	}
	if _, ok := builtins[d.Name]; ok {
		return layoutErrorf(d.Pos(), "%s is a builtin function name", d.Name)
	}

	layout := &ClassLayout{
		Name:       d.Name,
		FieldIndex: make(map[string]int, len(d.Fields)),
		Defaults:   make(map[string]Literal, len(d.Fields)),
		Methods:    make(map[string]int, len(d.Methods)),
	}
	fieldTypes := make(map[string]Type, len(d.Fields))
	for i, f := range d.Fields {
		if _, dup := layout.FieldIndex[f.Name]; dup {
			return layoutErrorf(f.Pos(), "duplicate field %s in class %s", f.Name, d.Name)
		}
		layout.Fields = append(layout.Fields, f.Name)
		layout.FieldIndex[f.Name] = i
		layout.Defaults[f.Name] = f.Value
		fieldTypes[f.Name] = f.Type
	}

	params := make(map[string][]Type, len(d.Methods))
	returns := make(map[string]Type, len(d.Methods))
	for i, m := range d.Methods {
		if m.Class != d.Name {
			return layoutErrorf(m.Pos(), "method %s belongs to %q, not %s", m.Name, m.Class, d.Name)
		}
		if _, dup := layout.Methods[m.Name]; dup {
			return layoutErrorf(m.Pos(), "duplicate method %s in class %s", m.Name, d.Name)
		}
		if _, clash := layout.FieldIndex[m.Name]; clash {
			return layoutErrorf(m.Pos(), "method %s clashes with a field of class %s", m.Name, d.Name)
		}
		if len(m.Params) == 0 {
			return layoutErrorf(m.Pos(), "method %s.%s must take self as its first parameter", d.Name, m.Name)
		}
		if err := checkLocalNames(m); err != nil {
			return err
		}
		layout.Methods[m.Name] = i

		key := methodKey(d.Name, m.Name)
		e.vtableIndex[key] = len(e.vtable)
		e.vtable = append(e.vtable, key)

		paramTypes := make([]Type, len(m.Params))
		for j, p := range m.Params {
			paramTypes[j] = p.Type
		}
		params[m.Name] = paramTypes
		returns[m.Name] = m.ReturnType()
	}

	e.classes[d.Name] = layout
	e.types.Fields[d.Name] = fieldTypes
	e.types.MethodParams[d.Name] = params
	e.types.MethodReturns[d.Name] = returns
	return nil
}

// checkLocalNames rejects parameters and locals that share a name.
func checkLocalNames(fn *FuncDef) error {
	seen := make(map[string]struct{}, len(fn.Params)+len(fn.Locals))
	for _, p := range fn.Params {
		if _, dup := seen[p.Name]; dup {
			return layoutErrorf(p.Pos(), "duplicate declaration of identifier in same scope: %s", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	for _, l := range fn.Locals {
		if _, dup := seen[l.Name]; dup {
			return layoutErrorf(l.Pos(), "duplicate declaration of identifier in same scope: %s", l.Name)
		}
		seen[l.Name] = struct{}{}
	}
	return nil
}

// checkTypeRefs verifies that every class named in a declaration exists.
// It runs after the whole unit is laid out so classes may refer to each
// other regardless of order.
func (e *Env) checkTypeRefs(def Definition) error {
	switch d := def.(type) {
	case *VarDef:
		return e.checkTypeRef(d.Type, d.Pos())
	case *ClassDef:
		for _, f := range d.Fields {
			if err := e.checkTypeRef(f.Type, f.Pos()); err != nil {
				return err
			}
		}
		for _, m := range d.Methods {
			receiver := ClassType(d.Name)
			if !m.Params[0].Type.Equal(receiver) {
				return typeErrorf(m.Params[0].Pos(), "first parameter of %s.%s must have type %s, got %s", d.Name, m.Name, receiver, m.Params[0].Type)
			}
			for _, p := range m.Params[1:] {
				if err := e.checkTypeRef(p.Type, p.Pos()); err != nil {
					return err
				}
			}
			for _, l := range m.Locals {
				if err := e.checkTypeRef(l.Type, l.Pos()); err != nil {
					return err
				}
			}
			if m.Return != nil {
				if err := e.checkTypeRef(*m.Return, m.Pos()); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (e *Env) checkTypeRef(t Type, pos Position) error {
	if t.Kind != TypeClass {
		return nil
	}
	if _, ok := e.classes[t.Class]; !ok {
		return resolutionErrorf(pos, "invalid type annotation; there is no class named: %s", t.Class)
	}
	return nil
}

// withCode returns a snapshot that also carries compiled method bodies.
func (e *Env) withCode(funcs []*Func) *Env {
	if len(funcs) == 0 {
		return e
	}
	next := e.clone()
	for _, fn := range funcs {
		next.code[fn.Name] = fn
	}
	return next
}

// GlobalSlot returns the storage slot of a global variable.
func (e *Env) GlobalSlot(name string) (int, bool) {
	slot, ok := e.globals[name]
	return slot, ok
}

// GlobalType returns the declared type of a global variable.
func (e *Env) GlobalType(name string) (Type, bool) {
	t, ok := e.types.Globals[name]
	return t, ok
}

// GlobalNames lists global variables in slot order.
func (e *Env) GlobalNames() []string {
	names := slices.Collect(maps.Keys(e.globals))
	sort.Slice(names, func(i, j int) bool {
		return e.globals[names[i]] < e.globals[names[j]]
	})
	return names
}

// Class returns the layout of a class.
func (e *Env) Class(name string) (*ClassLayout, bool) {
	c, ok := e.classes[name]
	return c, ok
}

// ClassNames lists declared classes alphabetically.
func (e *Env) ClassNames() []string {
	names := slices.Collect(maps.Keys(e.classes))
	sort.Strings(names)
	return names
}

// FieldType returns the declared type of a class field.
func (e *Env) FieldType(class, field string) (Type, bool) {
	t, ok := e.types.Fields[class][field]
	return t, ok
}

// MethodSignature returns a method's parameter types, receiver first, and
// its return type.
func (e *Env) MethodSignature(class, method string) ([]Type, Type, bool) {
	params, ok := e.types.MethodParams[class][method]
	if !ok {
		return nil, Type{}, false
	}
	return params, e.types.MethodReturns[class][method], true
}

// VTable returns the indirect-call table entries in slot order.
func (e *Env) VTable() []string {
	return slices.Clone(e.vtable)
}

// VTableSlot returns the table slot assigned to a "Class$method" key.
func (e *Env) VTableSlot(key string) (int, bool) {
	slot, ok := e.vtableIndex[key]
	return slot, ok
}

// Func returns the compiled body of a "Class$method" key.
func (e *Env) Func(key string) (*Func, bool) {
	fn, ok := e.code[key]
	return fn, ok
}

// NextOffset is the next free global slot.
func (e *Env) NextOffset() int { return e.nextOffset }

// GlobalSlots is the capacity of the global region in words.
func (e *Env) GlobalSlots() int { return e.globalSlots }

// HeapBase is the first heap byte, just past the global region.
func (e *Env) HeapBase() int32 {
	return int32(e.globalSlots * wordSize)
}
