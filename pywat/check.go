package pywat

import (
	"maps"
	"slices"
)

// builtinFunc is the signature of a host function callable by name. A nil
// params slice marks print, which takes one argument of any primitive type
// and evaluates to None.
type builtinFunc struct {
	params []Type
	ret    Type
}

var builtins = map[string]builtinFunc{
	"print": {},
	"abs":   {params: []Type{NumberType}, ret: NumberType},
	"min":   {params: []Type{NumberType, NumberType}, ret: NumberType},
	"max":   {params: []Type{NumberType, NumberType}, ret: NumberType},
	"pow":   {params: []Type{NumberType, NumberType}, ret: NumberType},
}

// BuiltinNames lists the host functions in sorted order.
func BuiltinNames() []string {
	names := slices.Collect(maps.Keys(builtins))
	slices.Sort(names)
	return names
}

type checker struct {
	env    *Env
	fn     *FuncDef
	locals map[string]Type
}

// Check type checks prog against env, which must already hold the layout
// of prog.Defs. It returns a new program whose statements and expressions
// carry their types; prog itself is not modified. The first violation
// aborts the check.
func Check(prog *Program, env *Env) (*Program, error) {
	c := &checker{env: env}
	typed := &Program{Defs: make([]Definition, 0, len(prog.Defs))}
	for _, def := range prog.Defs {
		switch d := def.(type) {
		case *VarDef:
			if _, ok := env.GlobalSlot(d.Name); !ok {
				return nil, internalErrorf(d.Pos(), "global %s has no storage slot", d.Name)
			}
			if err := checkVarDef(d); err != nil {
				return nil, err
			}
			typed.Defs = append(typed.Defs, d)
		case *ClassDef:
			class, err := c.checkClassDef(d)
			if err != nil {
				return nil, err
			}
			typed.Defs = append(typed.Defs, class)
		default:
			return nil, internalErrorf(def.Pos(), "unsupported definition %T", def)
		}
	}

	stmts, _, err := c.checkBlock(prog.Statements)
	if err != nil {
		return nil, err
	}
	typed.Statements = stmts
	return typed, nil
}

// checkVarDef verifies the initializer literal against the declared type.
// Class-typed variables may only start out as None.
func checkVarDef(d *VarDef) error {
	lit := d.Value.Type()
	if d.Type.IsClass() && lit.IsNone() {
		return nil
	}
	if !d.Type.Equal(lit) {
		return typeErrorf(d.Pos(), "expected type `%s`; got type `%s`", d.Type, lit)
	}
	return nil
}

func (c *checker) checkClassDef(d *ClassDef) (*ClassDef, error) {
	if _, ok := c.env.Class(d.Name); !ok {
		return nil, internalErrorf(d.Pos(), "class %s has no layout", d.Name)
	}
	for _, f := range d.Fields {
		if err := checkVarDef(f); err != nil {
			return nil, err
		}
	}
	out := &ClassDef{Name: d.Name, Fields: d.Fields, position: d.position}
	for _, m := range d.Methods {
		method, err := c.checkFuncDef(m)
		if err != nil {
			return nil, err
		}
		out.Methods = append(out.Methods, method)
	}
	return out, nil
}

// checkFuncDef checks a method body. Return-path completeness is
// approximated: some statement at the top of the body must have a
// non-None aggregate type, and every such type must equal the declared
// return type.
func (c *checker) checkFuncDef(fn *FuncDef) (*FuncDef, error) {
	locals := make(map[string]Type, len(fn.Params)+len(fn.Locals))
	for _, p := range fn.Params {
		locals[p.Name] = p.Type
	}
	for _, l := range fn.Locals {
		if err := checkVarDef(l); err != nil {
			return nil, err
		}
		locals[l.Name] = l.Type
	}

	inner := &checker{env: c.env, fn: fn, locals: locals}
	ret := fn.ReturnType()
	body := make([]Statement, 0, len(fn.Body))
	hasReturn := false
	for _, stmt := range fn.Body {
		typed, err := inner.checkStatement(stmt)
		if err != nil {
			return nil, err
		}
		body = append(body, typed)
		t := typed.ResultType()
		if t.IsNone() {
			continue
		}
		hasReturn = true
		if !t.Equal(ret) {
			return nil, typeErrorf(typed.Pos(), "all paths in this function/method must have the return type: %s", ret)
		}
	}
	if !ret.IsNone() && !hasReturn {
		return nil, typeErrorf(fn.Pos(), "all paths in this function/method must have a return statement: %s", fn.Name)
	}

	out := *fn
	out.Body = body
	return &out, nil
}

// lookupVar resolves a variable name, locals first.
func (c *checker) lookupVar(name string) (Type, bool) {
	if t, ok := c.locals[name]; ok {
		return t, true
	}
	return c.env.GlobalType(name)
}
