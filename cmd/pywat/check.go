package main

import (
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/mgomes/pywat/pywat"
)

type lintWarning struct {
	Function string
	Pos      pywat.Position
	Message  string
}

const topLevel = "<module>"

func checkCommand(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	limits := addEngineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	scriptPath, source, err := readSource("check", fs.Args())
	if err != nil {
		return err
	}

	engine, err := limits.engine(io.Discard)
	if err != nil {
		return err
	}
	unit, err := engine.Compile(source, nil)
	if err != nil {
		return fmt.Errorf("check compile failed: %w", err)
	}

	warnings := lintProgram(unit.Program)
	if len(warnings) == 0 {
		fmt.Println("No issues found")
		return nil
	}

	for _, warning := range warnings {
		line := max(warning.Pos.Line, 1)
		column := max(warning.Pos.Column, 1)
		fmt.Printf("%s:%d:%d: %s (%s)\n", scriptPath, line, column, warning.Message, warning.Function)
	}

	return fmt.Errorf("analysis found %d issue(s)", len(warnings))
}

func lintProgram(prog *pywat.Program) []lintWarning {
	warnings := make([]lintWarning, 0)
	for _, def := range prog.Defs {
		class, ok := def.(*pywat.ClassDef)
		if !ok {
			continue
		}
		for _, fn := range class.Methods {
			name := class.Name + "." + fn.Name
			terminated := lintStatements(name, fn.Body, &warnings)
			if !terminated && !fn.ReturnType().IsNone() {
				warnings = append(warnings, lintWarning{
					Function: name,
					Pos:      fn.Pos(),
					Message:  fmt.Sprintf("not every path returns a value of type %s", fn.ReturnType()),
				})
			}
		}
	}
	lintStatements(topLevel, prog.Statements, &warnings)

	sort.SliceStable(warnings, func(i, j int) bool {
		if warnings[i].Pos.Line != warnings[j].Pos.Line {
			return warnings[i].Pos.Line < warnings[j].Pos.Line
		}
		if warnings[i].Pos.Column != warnings[j].Pos.Column {
			return warnings[i].Pos.Column < warnings[j].Pos.Column
		}
		return warnings[i].Function < warnings[j].Function
	})

	return warnings
}

func lintStatements(function string, statements []pywat.Statement, warnings *[]lintWarning) bool {
	terminated := false
	for _, stmt := range statements {
		if terminated {
			*warnings = append(*warnings, lintWarning{
				Function: function,
				Pos:      stmt.Pos(),
				Message:  "unreachable statement",
			})
			continue
		}
		if statementTerminates(function, stmt, warnings) {
			terminated = true
		}
	}
	return terminated
}

func statementTerminates(function string, stmt pywat.Statement, warnings *[]lintWarning) bool {
	switch typed := stmt.(type) {
	case *pywat.ReturnStmt:
		return true
	case *pywat.IfStmt:
		thenTerminated := lintStatements(function, typed.Then, warnings)
		if len(typed.Else) == 0 {
			return false
		}
		elseTerminated := lintStatements(function, typed.Else, warnings)
		return thenTerminated && elseTerminated
	case *pywat.WhileStmt:
		lintStatements(function, typed.Body, warnings)
		return false
	default:
		return false
	}
}
