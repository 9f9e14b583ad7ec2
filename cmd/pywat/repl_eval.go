package main

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/mgomes/pywat/pywat"
)

// evaluator accumulates REPL input into units and runs them against one
// session. Both front ends share it.
type evaluator struct {
	session    *pywat.Session
	stdout     *bytes.Buffer
	pending    []string
	lastModule string
}

func newEvaluator(cfg pywat.Config) (*evaluator, error) {
	stdout := new(bytes.Buffer)
	cfg.Stdout = stdout
	engine, err := pywat.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &evaluator{session: engine.NewSession(), stdout: stdout}, nil
}

// feed adds one line of input. A line ending in ':' opens a block that a
// blank line closes; anything else is a unit on its own.
func (e *evaluator) feed(line string) (string, bool) {
	line = strings.TrimRight(line, " \t\r")
	if len(e.pending) == 0 {
		if strings.TrimSpace(line) == "" {
			return "", false
		}
		if !strings.HasSuffix(line, ":") {
			return line + "\n", true
		}
		e.pending = append(e.pending, line)
		return "", false
	}
	if strings.TrimSpace(line) != "" {
		e.pending = append(e.pending, line)
		return "", false
	}
	source := strings.Join(e.pending, "\n") + "\n"
	e.pending = nil
	return source, true
}

func (e *evaluator) continuing() bool { return len(e.pending) > 0 }

func (e *evaluator) cancel() { e.pending = nil }

// eval runs source and returns what it printed followed by its result.
// Printed output is returned even when execution fails part way.
func (e *evaluator) eval(source string) (string, error) {
	e.stdout.Reset()
	unit, err := e.session.Compile(source)
	if err != nil {
		return "", err
	}
	result, err := e.session.RunUnit(context.Background(), unit)
	printed := strings.TrimRight(e.stdout.String(), "\n")
	if err != nil {
		return printed, err
	}
	e.lastModule = unit.Module.String()

	lines := make([]string, 0, 2)
	if printed != "" {
		lines = append(lines, printed)
	}
	if result.Kind() != pywat.KindNone {
		lines = append(lines, result.String())
	}
	return strings.Join(lines, "\n"), nil
}

// emit renders the module for source without running it, or the module
// of the last successful unit when source is empty.
func (e *evaluator) emit(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		if e.lastModule == "" {
			return "", errors.New("nothing has been run yet")
		}
		return strings.TrimRight(e.lastModule, "\n"), nil
	}
	unit, err := e.session.Compile(strings.TrimRight(source, "\n") + "\n")
	if err != nil {
		return "", err
	}
	return strings.TrimRight(unit.Module.String(), "\n"), nil
}

func (e *evaluator) globals() ([]pywat.Binding, error) {
	return e.session.Globals()
}

func (e *evaluator) reset() {
	e.session.Reset()
	e.pending = nil
	e.lastModule = ""
}

// completions returns every known name starting with prefix.
func (e *evaluator) completions(prefix string) []string {
	if prefix == "" {
		return nil
	}
	env := e.session.Env()
	var out []string
	for _, group := range [][]string{pywat.Keywords(), pywat.BuiltinNames(), env.GlobalNames(), env.ClassNames()} {
		for _, name := range group {
			if strings.HasPrefix(name, prefix) && !slices.Contains(out, name) {
				out = append(out, name)
			}
		}
	}
	return out
}

// lastWord is the identifier being typed at the end of line.
func lastWord(line string) string {
	i := len(line)
	for i > 0 && isIdentByte(line[i-1]) {
		i--
	}
	return line[i:]
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
