// Package pywat compiles a statically typed subset of Python into a
// WebAssembly-style stack machine module. The language supports:
//   - Typed declarations `name: type = literal` for int, bool and classes.
//   - Classes with typed fields, default values and methods taking `self`.
//   - Assignment, if/elif/else, while, pass, return and expression statements.
//   - Operators `not - + * // % == != < <= > >= is`, field access and calls.
//   - Host builtins print, abs, min, max and pow.
//
// Compilation runs in three passes over an explicit environment snapshot:
// Env.Extend lays out globals, fields and method table slots, Check types
// the program and Generate emits instructions. Snapshots are never
// modified, so a REPL threads each unit's Env into the next. Modules can
// be rendered as text or executed by the bundled Machine.
package pywat
