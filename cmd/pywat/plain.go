package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lmorg/readline"
	"github.com/mattn/go-isatty"
)

func replCommand(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	plainMode := fs.Bool("plain", false, "line-oriented session without the full-screen interface")
	limits := addEngineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	eval, err := newEvaluator(limits.config(nil))
	if err != nil {
		return err
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
	switch {
	case interactive && !*plainMode:
		return runREPL(eval)
	case interactive:
		return runReadline(eval, os.Stdout)
	default:
		return runPlain(eval, os.Stdin, os.Stdout)
	}
}

// lineReader yields one line of input per call and io.EOF at the end.
type lineReader interface {
	readLine(continuing bool) (string, error)
}

type readlineReader struct {
	rl *readline.Instance
}

func (r readlineReader) readLine(continuing bool) (string, error) {
	if continuing {
		r.rl.SetPrompt(continuationPrompt)
	} else {
		r.rl.SetPrompt(mainPrompt)
	}
	line, err := r.rl.Readline()
	if err == nil {
		return line, nil
	}
	switch err.Error() {
	case readline.ErrCtrlC:
		return "", nil
	case readline.ErrEOF:
		return "", io.EOF
	}
	return "", err
}

type scannerReader struct {
	scanner *bufio.Scanner
}

func (r scannerReader) readLine(bool) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func runReadline(eval *evaluator, out io.Writer) error {
	rl := readline.NewInstance()
	rl.TabCompleter = func(line []rune, pos int, _ readline.DelayedTabContext) (string, []string, map[string]string, readline.TabDisplayType) {
		typed := string(line[:pos])
		word := lastWord(typed)
		var suggestions []string
		for _, name := range eval.completions(word) {
			suggestions = append(suggestions, name[len(word):])
		}
		return typed, suggestions, nil, readline.TabDisplayGrid
	}
	return plainLoop(eval, readlineReader{rl: rl}, out)
}

func runPlain(eval *evaluator, in io.Reader, out io.Writer) error {
	return plainLoop(eval, scannerReader{scanner: bufio.NewScanner(in)}, out)
}

// plainLoop drives the evaluator one line at a time, printing results
// and errors to out. End of input flushes any open block.
func plainLoop(eval *evaluator, in lineReader, out io.Writer) error {
	for {
		line, err := in.readLine(eval.continuing())
		if errors.Is(err, io.EOF) {
			if eval.continuing() {
				source, _ := eval.feed("")
				report(out, eval, source)
			}
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if !eval.continuing() && strings.HasPrefix(trimmed, ":") {
			if quit := plainCommand(out, eval, trimmed); quit {
				return nil
			}
			continue
		}
		source, ready := eval.feed(line)
		if ready {
			report(out, eval, source)
		}
	}
}

func report(out io.Writer, eval *evaluator, source string) {
	output, err := eval.eval(source)
	if output != "" {
		fmt.Fprintln(out, output)
	}
	if err != nil {
		fmt.Fprintln(out, "error:", err)
	}
}

func plainCommand(out io.Writer, eval *evaluator, input string) bool {
	cmd, rest, _ := strings.Cut(input, " ")
	switch cmd {
	case ":quit", ":q":
		return true
	case ":reset", ":r":
		eval.reset()
		fmt.Fprintln(out, "Environment reset")
	case ":vars", ":v":
		bindings, err := eval.globals()
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			break
		}
		for _, b := range bindings {
			fmt.Fprintf(out, "%s: %s = %s\n", b.Name, b.Type, b.Value)
		}
	case ":emit", ":e":
		text, err := eval.emit(rest)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			break
		}
		fmt.Fprintln(out, text)
	case ":help", ":h":
		fmt.Fprintln(out, "commands: :vars :emit [source] :reset :quit")
		fmt.Fprintln(out, "a line ending in ':' opens a block; a blank line closes it")
	default:
		fmt.Fprintf(out, "Unknown command: %s\n", cmd)
	}
	return false
}
