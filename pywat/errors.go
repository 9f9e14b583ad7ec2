package pywat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies compile failures.
type ErrorKind int

const (
	// KindParse is malformed source text.
	KindParse ErrorKind = iota
	// KindLayout is a duplicate declaration or exhausted storage.
	KindLayout
	// KindType is an operator, assignment, argument or return mismatch.
	KindType
	// KindResolution is a reference to an undeclared name, method or field.
	KindResolution
	// KindInternal is a consistency failure that checking should have prevented.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindLayout:
		return "layout error"
	case KindType:
		return "type error"
	case KindResolution:
		return "resolution error"
	case KindInternal:
		return "internal error"
	default:
		return "error"
	}
}

// CompileError aborts compilation of a unit. No partial output is produced
// and the environment is not advanced.
type CompileError struct {
	Kind      ErrorKind
	Msg       string
	Pos       Position
	CodeFrame string
}

func (e *CompileError) Error() string {
	var b strings.Builder
	if e.Pos.Line > 0 {
		fmt.Fprintf(&b, "%s at %d:%d: %s", e.Kind, e.Pos.Line, e.Pos.Column, e.Msg)
	} else {
		fmt.Fprintf(&b, "%s: %s", e.Kind, e.Msg)
	}
	if e.CodeFrame != "" {
		b.WriteString("\n")
		b.WriteString(e.CodeFrame)
	}
	return b.String()
}

func newCompileError(kind ErrorKind, pos Position, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: pos}
}

func layoutErrorf(pos Position, format string, args ...any) error {
	return newCompileError(KindLayout, pos, format, args...)
}

func typeErrorf(pos Position, format string, args ...any) error {
	return newCompileError(KindType, pos, format, args...)
}

func resolutionErrorf(pos Position, format string, args ...any) error {
	return newCompileError(KindResolution, pos, format, args...)
}

func internalErrorf(pos Position, format string, args ...any) error {
	return newCompileError(KindInternal, pos, format, args...)
}

// IsKind reports whether err is a CompileError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Kind == kind
}

func attachSource(err error, source string) error {
	var ce *CompileError
	if errors.As(err, &ce) && ce.CodeFrame == "" {
		ce.CodeFrame = formatCodeFrame(source, ce.Pos)
	}
	return err
}
