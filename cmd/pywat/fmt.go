package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mgomes/pywat/pywat"
)

const indentUnit = "    "

var errBadDedent = errors.New("unindent does not match any outer indentation level")

func fmtCommand(args []string) error {
	flags := flag.NewFlagSet("fmt", flag.ContinueOnError)
	flags.SetOutput(new(flagErrorSink))
	write := flags.Bool("w", false, "rewrite source files in place")
	check := flags.Bool("check", false, "list files that need formatting and fail if there are any")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return errors.New("pywat fmt: path required")
	}

	files, err := collectSourceFiles(flags.Args())
	if err != nil {
		return err
	}

	var stale []string
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("pywat fmt: %w", err)
		}
		formatted, err := formatSource(string(src))
		if err != nil {
			return fmt.Errorf("pywat fmt: %s:%w", path, err)
		}
		// Reindenting must never turn a parsable file into a broken one.
		if _, err := pywat.Parse(formatted); err != nil {
			return fmt.Errorf("pywat fmt: %s: %w", path, err)
		}
		if formatted == string(src) {
			if !*write && !*check {
				fmt.Print(formatted)
			}
			continue
		}
		stale = append(stale, path)

		switch {
		case *check:
			fmt.Println(path)
		case *write:
			if err := rewriteFile(path, formatted); err != nil {
				return err
			}
		default:
			fmt.Print(formatted)
		}
	}

	if *check && len(stale) > 0 {
		return fmt.Errorf("pywat fmt: %d file(s) need formatting", len(stale))
	}
	return nil
}

func rewriteFile(path, content string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("pywat fmt: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("pywat fmt: %w", err)
	}
	return nil
}

// collectSourceFiles expands targets into the sorted set of .py files
// they name. Hidden directories and __pycache__ are not descended into.
func collectSourceFiles(targets []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if filepath.Ext(path) != ".py" {
			return
		}
		if abs, err := filepath.Abs(path); err == nil && !seen[abs] {
			seen[abs] = true
			files = append(files, abs)
		}
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("pywat fmt: %w", err)
		}
		if !info.IsDir() {
			add(target)
			continue
		}
		err = filepath.WalkDir(target, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				name := entry.Name()
				if path != target && (strings.HasPrefix(name, ".") || name == "__pycache__") {
					return fs.SkipDir
				}
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("pywat fmt: %w", err)
		}
	}

	slices.Sort(files)
	return files, nil
}

// formatSource reindents every block with four spaces per level and
// tidies whitespace: line endings become \n, trailing blanks go, and runs
// of blank lines shrink to two. Comment-only lines take the indentation
// of the code line after them. Lines inside open parentheses keep their
// layout since the lexer ignores it there.
func formatSource(source string) (string, error) {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.ReplaceAll(source, "\r", "\n")

	var (
		out      []string
		comments []int
		levels   = []int{0}
		depth    int
	)
	for i, line := range strings.Split(source, "\n") {
		line = strings.TrimRight(line, " \t")
		body := strings.TrimLeft(line, " \t")
		switch {
		case depth > 0:
			out = append(out, line)
		case body == "":
			out = append(out, "")
		case body[0] == '#':
			comments = append(comments, len(out))
			out = append(out, body)
		default:
			level, err := indentLevel(&levels, indentWidth(line[:len(line)-len(body)]))
			if err != nil {
				return "", fmt.Errorf("%d: %w", i+1, err)
			}
			prefix := strings.Repeat(indentUnit, level)
			for _, at := range comments {
				out[at] = prefix + out[at]
			}
			comments = comments[:0]
			out = append(out, prefix+body)
		}
		depth = max(depth+parenDelta(body), 0)
	}

	kept := out[:0]
	blanks := 0
	for _, line := range out {
		if line == "" {
			blanks++
			if blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		kept = append(kept, line)
	}
	joined := strings.Trim(strings.Join(kept, "\n"), "\n")
	if joined == "" {
		return "", nil
	}
	return joined + "\n", nil
}

func indentWidth(prefix string) int {
	width := 0
	for _, r := range prefix {
		if r == '\t' {
			width += pywat.TabWidth - width%pywat.TabWidth
		} else {
			width++
		}
	}
	return width
}

// indentLevel tracks the stack of open indentation widths and returns the
// block depth of a line indented by width.
func indentLevel(levels *[]int, width int) (int, error) {
	stack := *levels
	switch top := stack[len(stack)-1]; {
	case width > top:
		stack = append(stack, width)
	case width < top:
		for width < stack[len(stack)-1] {
			stack = stack[:len(stack)-1]
		}
		if width != stack[len(stack)-1] {
			return 0, errBadDedent
		}
	}
	*levels = stack
	return len(stack) - 1, nil
}

// parenDelta counts the parentheses a line leaves open, ignoring any
// trailing comment.
func parenDelta(body string) int {
	if i := strings.IndexByte(body, '#'); i >= 0 {
		body = body[:i]
	}
	return strings.Count(body, "(") - strings.Count(body, ")")
}
