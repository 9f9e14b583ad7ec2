package pywat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const maxMemoryPages = 65536

// Config controls compilation and execution limits.
type Config struct {
	// GlobalSlots is the size of the global variable region in words.
	GlobalSlots int
	// MemoryPages is the initial linear memory size in 64KiB pages.
	MemoryPages int
	StepQuota   int
	Stdout      io.Writer
	Logger      *slog.Logger
}

// Engine compiles and runs units against explicit environment snapshots.
// It holds no state between units.
type Engine struct {
	config Config
}

// NewEngine constructs an Engine, filling in defaults for unset limits.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.GlobalSlots <= 0 {
		cfg.GlobalSlots = DefaultGlobalSlots
	}
	if cfg.MemoryPages <= 0 {
		cfg.MemoryPages = 16
	}
	if cfg.StepQuota <= 0 {
		cfg.StepQuota = 1_000_000
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MemoryPages > maxMemoryPages {
		return nil, fmt.Errorf("memory pages %d exceed the maximum of %d", cfg.MemoryPages, maxMemoryPages)
	}
	if cfg.GlobalSlots*wordSize > cfg.MemoryPages*PageSize {
		return nil, fmt.Errorf("%d global slots do not fit in %d memory pages", cfg.GlobalSlots, cfg.MemoryPages)
	}
	return &Engine{config: cfg}, nil
}

// NewEnv returns an empty environment sized for this engine.
func (e *Engine) NewEnv() *Env {
	return NewEnv(e.config.GlobalSlots)
}

// Unit is a successfully compiled compilation unit. Env is the snapshot
// to pass to the next unit.
type Unit struct {
	Env     *Env
	Module  *Module
	Program *Program

	base *Env
}

// Compile parses source and compiles it against env. A nil env starts
// from an empty environment. On error env is unchanged and usable.
func (e *Engine) Compile(source string, env *Env) (*Unit, error) {
	prog, err := Parse(source)
	if err != nil {
		return nil, err
	}
	e.config.Logger.Debug("parsed",
		slog.Int("defs", len(prog.Defs)),
		slog.Int("statements", len(prog.Statements)))

	unit, err := e.CompileProgram(prog, env)
	if err != nil {
		return nil, attachSource(err, source)
	}
	return unit, nil
}

// CompileProgram lays out, checks and generates an already parsed program.
func (e *Engine) CompileProgram(prog *Program, env *Env) (*Unit, error) {
	log := e.config.Logger
	if env == nil {
		env = e.NewEnv()
	}

	next, err := env.Extend(prog.Defs)
	if err != nil {
		return nil, err
	}
	log.Debug("layout",
		slog.Int("next-offset", next.NextOffset()),
		slog.Int("table-size", len(next.vtable)))

	typed, err := Check(prog, next)
	if err != nil {
		return nil, err
	}
	log.Debug("checked", slog.Int("statements", len(typed.Statements)))

	out, err := Generate(typed, next)
	if err != nil {
		return nil, err
	}
	next = next.withCode(out.Funcs)
	log.Debug("generated",
		slog.Int("funcs", len(out.Funcs)),
		slog.Int("entry-instrs", len(out.Entry)),
		slog.String("result", out.ResultType.String()))

	mod, err := Assemble(next, out, e.config.MemoryPages)
	if err != nil {
		return nil, err
	}
	return &Unit{Env: next, Module: mod, Program: typed, base: env}, nil
}

// Binding is the current value of a global variable.
type Binding struct {
	Name  string
	Type  Type
	Value Value
}

// Session threads one environment and one machine through successive
// units, the way a REPL does.
type Session struct {
	engine  *Engine
	env     *Env
	machine *Machine
}

func (e *Engine) NewSession() *Session {
	s := &Session{engine: e}
	s.Reset()
	return s
}

// Reset discards all declarations and memory.
func (s *Session) Reset() {
	cfg := s.engine.config
	s.env = s.engine.NewEnv()
	s.machine = NewMachine(cfg.MemoryPages, cfg.Stdout, cfg.StepQuota)
}

// Env is the session's current snapshot.
func (s *Session) Env() *Env { return s.env }

// Compile compiles source against the session without running it or
// advancing the session.
func (s *Session) Compile(source string) (*Unit, error) {
	return s.engine.Compile(source, s.env)
}

// Run compiles and executes source. The session advances to the unit's
// environment only when both steps succeed.
func (s *Session) Run(ctx context.Context, source string) (Value, error) {
	unit, err := s.Compile(source)
	if err != nil {
		return Value{}, err
	}
	return s.RunUnit(ctx, unit)
}

// RunUnit executes a unit returned by Compile. The unit must have been
// compiled against the session's current snapshot.
func (s *Session) RunUnit(ctx context.Context, unit *Unit) (Value, error) {
	if unit.base != s.env {
		return Value{}, fmt.Errorf("unit was compiled against a stale environment")
	}
	word, err := s.machine.Run(ctx, unit.Module)
	if err != nil {
		return Value{}, err
	}
	s.engine.config.Logger.Debug("executed", slog.Int64("word", word))
	s.env = unit.Env
	return DecodeValue(word, unit.Module.ResultType), nil
}

// Globals reads every declared global in slot order.
func (s *Session) Globals() ([]Binding, error) {
	names := s.env.GlobalNames()
	out := make([]Binding, 0, len(names))
	for _, name := range names {
		slot, _ := s.env.GlobalSlot(name)
		t, _ := s.env.GlobalType(name)
		word, err := s.machine.ReadWord(globalAddr(slot))
		if err != nil {
			return nil, err
		}
		out = append(out, Binding{Name: name, Type: t, Value: DecodeValue(word, t)})
	}
	return out, nil
}
