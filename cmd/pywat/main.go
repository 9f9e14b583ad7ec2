package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mgomes/pywat/pywat"
)

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "emit":
		return emitCommand(args[2:])
	case "check":
		return checkCommand(args[2:])
	case "fmt":
		return fmtCommand(args[2:])
	case "repl":
		return replCommand(args[2:])
	case "lsp":
		return runLSP()
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

// engineFlags are the limits shared by every subcommand that compiles.
type engineFlags struct {
	pages   *int
	globals *int
	steps   *int
	verbose *bool
}

func addEngineFlags(fs *flag.FlagSet) engineFlags {
	return engineFlags{
		pages:   fs.Int("pages", 0, "initial memory size in 64KiB pages"),
		globals: fs.Int("globals", 0, "size of the global variable region in words"),
		steps:   fs.Int("steps", 0, "instruction budget per run"),
		verbose: fs.Bool("v", false, "log compiler phases to stderr"),
	}
}

func (f engineFlags) config(stdout io.Writer) pywat.Config {
	cfg := pywat.Config{
		GlobalSlots: *f.globals,
		MemoryPages: *f.pages,
		StepQuota:   *f.steps,
		Stdout:      stdout,
	}
	if *f.verbose {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return cfg
}

func (f engineFlags) engine(stdout io.Writer) (*pywat.Engine, error) {
	return pywat.NewEngine(f.config(stdout))
}

func readSource(cmd string, args []string) (string, string, error) {
	if len(args) == 0 {
		return "", "", fmt.Errorf("pywat %s: script path required", cmd)
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return "", "", fmt.Errorf("resolve script path: %w", err)
	}
	input, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read script: %w", err)
	}
	return path, string(input), nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	emit := fs.Bool("emit", false, "print the module text before running")
	checkOnly := fs.Bool("check", false, "only compile the script without executing")
	limits := addEngineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, source, err := readSource("run", fs.Args())
	if err != nil {
		return err
	}

	engine, err := limits.engine(os.Stdout)
	if err != nil {
		return err
	}
	session := engine.NewSession()
	unit, err := session.Compile(source)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}
	if *emit {
		fmt.Print(unit.Module.String())
	}
	if *checkOnly {
		return nil
	}

	result, err := session.Run(context.Background(), source)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	if result.Kind() != pywat.KindNone {
		fmt.Println(result.String())
	}
	return nil
}

func emitCommand(args []string) error {
	fs := flag.NewFlagSet("emit", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	output := fs.String("o", "", "write the module text to a file instead of stdout")
	limits := addEngineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, source, err := readSource("emit", fs.Args())
	if err != nil {
		return err
	}

	engine, err := limits.engine(io.Discard)
	if err != nil {
		return err
	}
	unit, err := engine.Compile(source, nil)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}
	text := unit.Module.String()
	if *output == "" {
		fmt.Print(text)
		return nil
	}
	if err := os.WriteFile(*output, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *output, err)
	}
	return nil
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags] [args...]\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run [-emit] [-check] <file.py>")
	fmt.Fprintln(os.Stderr, "    compile and execute a program, printing its result")
	fmt.Fprintln(os.Stderr, "  emit [-o file] <file.py>")
	fmt.Fprintln(os.Stderr, "    print the WebAssembly text of a program")
	fmt.Fprintln(os.Stderr, "  check <file.py>")
	fmt.Fprintln(os.Stderr, "    compile a program and report unreachable statements")
	fmt.Fprintln(os.Stderr, "  fmt [-w] [-check] <path>...")
	fmt.Fprintln(os.Stderr, "    normalise whitespace in .py sources")
	fmt.Fprintln(os.Stderr, "  repl [-plain]")
	fmt.Fprintln(os.Stderr, "    start an interactive session")
	fmt.Fprintln(os.Stderr, "  lsp")
	fmt.Fprintln(os.Stderr, "    serve diagnostics over the language server protocol on stdio")
	fmt.Fprintln(os.Stderr, "Limits (run, emit, check, repl):")
	fmt.Fprintln(os.Stderr, "  -pages int    initial memory pages")
	fmt.Fprintln(os.Stderr, "  -globals int  global region size in words")
	fmt.Fprintln(os.Stderr, "  -steps int    instruction budget per run")
	fmt.Fprintln(os.Stderr, "  -v            log compiler phases to stderr")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}
