package pywat

import "fmt"

// Output is the generated code of one compilation unit. Funcs holds the
// methods the unit declares; Entry runs its top-level code.
type Output struct {
	Funcs       []*Func
	Entry       []Instr
	EntryLocals []string
	ResultType  Type
}

type generator struct {
	env    *Env
	locals map[string]struct{}
	temps  []string
}

// Generate emits code for a checked program. env must be the environment
// the program was checked against.
func Generate(prog *Program, env *Env) (*Output, error) {
	out := &Output{ResultType: NoneType}
	for _, def := range prog.Defs {
		class, ok := def.(*ClassDef)
		if !ok {
			continue
		}
		for _, m := range class.Methods {
			fn, err := generateFunc(m, env)
			if err != nil {
				return nil, err
			}
			out.Funcs = append(out.Funcs, fn)
		}
	}

	g := &generator{env: env}
	entry := heapInit(env.HeapBase())
	for _, def := range prog.Defs {
		v, ok := def.(*VarDef)
		if !ok {
			continue
		}
		slot, ok := env.GlobalSlot(v.Name)
		if !ok {
			return nil, internalErrorf(v.Pos(), "global %s has no storage slot", v.Name)
		}
		entry = append(entry, i32Const(globalAddr(slot)), i64Const(encodeLiteral(v.Value)), plain(OpI64Store))
	}

	stmts := prog.Statements
	last, endsWithExpr := lastExprStmt(stmts)
	if endsWithExpr {
		stmts = stmts[:len(stmts)-1]
	}
	entry, err := g.block(entry, stmts)
	if err != nil {
		return nil, err
	}
	if endsWithExpr {
		if entry, err = g.expression(entry, last.Expr); err != nil {
			return nil, err
		}
		out.ResultType = last.Expr.Type()
	} else {
		entry = append(entry, i64Const(noneWord))
	}

	out.Entry = entry
	out.EntryLocals = g.temps
	return out, nil
}

func lastExprStmt(stmts []Statement) (*ExprStmt, bool) {
	if len(stmts) == 0 {
		return nil, false
	}
	s, ok := stmts[len(stmts)-1].(*ExprStmt)
	return s, ok
}

// heapInit points the heap just past the global region unless an earlier
// unit already did.
func heapInit(base int32) []Instr {
	return []Instr{
		i32Const(heapPointerSlot), plain(OpI32Load), plain(OpI32Eqz),
		{Op: OpIf, Then: []Instr{
			i32Const(heapPointerSlot), i32Const(base), plain(OpI32Store),
		}},
	}
}

func globalAddr(slot int) int32 {
	return int32(slot * wordSize)
}

func generateFunc(fn *FuncDef, env *Env) (*Func, error) {
	g := &generator{env: env, locals: make(map[string]struct{}, len(fn.Params)+len(fn.Locals))}
	out := &Func{Name: fn.QualifiedName()}
	for _, p := range fn.Params {
		out.Params = append(out.Params, p.Name)
		g.locals[p.Name] = struct{}{}
	}

	var body []Instr
	for _, l := range fn.Locals {
		out.Locals = append(out.Locals, l.Name)
		g.locals[l.Name] = struct{}{}
		body = append(body, i64Const(encodeLiteral(l.Value)), localSet(l.Name))
	}
	body, err := g.block(body, fn.Body)
	if err != nil {
		return nil, err
	}
	if fn.ReturnType().IsNone() {
		body = append(body, i64Const(noneWord))
	} else {
		body = append(body, plain(OpUnreachable))
	}

	out.Locals = append(out.Locals, g.temps...)
	out.Body = body
	return out, nil
}

// temp allocates a scratch local. Its name cannot collide with a source
// identifier.
func (g *generator) temp() string {
	name := fmt.Sprintf("t.%d", len(g.temps))
	g.temps = append(g.temps, name)
	return name
}

func (g *generator) isLocal(name string) bool {
	_, ok := g.locals[name]
	return ok
}
