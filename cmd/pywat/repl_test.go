package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/mgomes/pywat/pywat"
)

func newTestEvaluator(t *testing.T) *evaluator {
	t.Helper()
	eval, err := newEvaluator(pywat.Config{})
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	return eval
}

// enter types line into the model and presses enter.
func enter(t *testing.T, m replModel, line string) (replModel, tea.Cmd) {
	t.Helper()
	m.textInput.SetValue(line)
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm, ok := model.(replModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}
	return rm, cmd
}

func TestUpdateQuitCommandReturnsQuit(t *testing.T) {
	m := newREPLModel(newTestEvaluator(t))

	rm, cmd := enter(t, m, ":quit")
	if !rm.quitting {
		t.Fatalf("quitting flag not set")
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after quit command")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
	if msg := cmd(); msg != nil {
		if _, ok := msg.(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg, got %T", msg)
		}
	}
}

func TestUpdateNonQuitCommandDoesNotReturnCmd(t *testing.T) {
	m := newREPLModel(newTestEvaluator(t))

	rm, cmd := enter(t, m, ":help")
	if cmd != nil {
		t.Fatalf("expected no command for non-quit input")
	}
	if rm.quitting {
		t.Fatalf("quitting should remain false")
	}
	if !rm.showHelp {
		t.Fatalf("help toggle should be enabled")
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after command")
	}
}

func TestUpdateEvaluatesAndKeepsGlobals(t *testing.T) {
	m := newREPLModel(newTestEvaluator(t))

	m, _ = enter(t, m, "score: int = 40")
	m, _ = enter(t, m, "score = score + 2")
	m, _ = enter(t, m, "score")

	last := m.history[len(m.history)-1]
	if last.isErr || last.output != "42" {
		t.Fatalf("unexpected history entry %#v", last)
	}
	bindings, err := m.eval.globals()
	if err != nil {
		t.Fatalf("globals: %v", err)
	}
	if len(bindings) != 1 || bindings[0].Name != "score" || bindings[0].Value.Number() != 42 {
		t.Fatalf("unexpected bindings %#v", bindings)
	}
}

func TestUpdateCollectsIndentedBlocks(t *testing.T) {
	m := newREPLModel(newTestEvaluator(t))

	m, _ = enter(t, m, "class C:")
	if m.textInput.Prompt != continuationPrompt {
		t.Fatalf("expected continuation prompt, got %q", m.textInput.Prompt)
	}
	if m.textInput.Value() != "    " {
		t.Fatalf("expected the next line to be indented, got %q", m.textInput.Value())
	}
	m, _ = enter(t, m, "    x: int = 7")
	m, _ = enter(t, m, "")
	if m.textInput.Prompt != mainPrompt || len(m.history) != 1 || m.history[0].isErr {
		t.Fatalf("expected the class to compile, history %#v", m.history)
	}

	m, _ = enter(t, m, "C().x")
	if got := m.history[len(m.history)-1].output; got != "7" {
		t.Fatalf("expected 7, got %q", got)
	}
}

func TestUpdateRecordsErrors(t *testing.T) {
	m := newREPLModel(newTestEvaluator(t))

	m, _ = enter(t, m, "undefined_name")
	last := m.history[len(m.history)-1]
	if !last.isErr || !strings.Contains(last.output, "undefined_name") {
		t.Fatalf("expected an error entry, got %#v", last)
	}
}

func TestUpdateResetClearsEnvironment(t *testing.T) {
	m := newREPLModel(newTestEvaluator(t))

	m, _ = enter(t, m, "x: int = 1")
	m, _ = enter(t, m, ":reset")
	if names := m.eval.session.Env().GlobalNames(); len(names) != 0 {
		t.Fatalf("expected no globals after reset, got %v", names)
	}
	m, _ = enter(t, m, "x: int = 2")
	if m.history[len(m.history)-1].isErr {
		t.Fatalf("redeclaring after reset should succeed: %#v", m.history)
	}
}

func TestUpdateEmitShowsLastModule(t *testing.T) {
	m := newREPLModel(newTestEvaluator(t))

	m, _ = enter(t, m, ":emit")
	if !m.history[len(m.history)-1].isErr {
		t.Fatalf("expected an error before anything has run")
	}
	m, _ = enter(t, m, "1 + 1")
	m, _ = enter(t, m, ":emit")
	last := m.history[len(m.history)-1]
	if last.isErr || !strings.HasPrefix(last.output, "(module") {
		t.Fatalf("expected module text, got %#v", last)
	}
}

func TestAutocompleteSingleMatch(t *testing.T) {
	m := newREPLModel(newTestEvaluator(t))
	m, _ = enter(t, m, "counter: int = 0")

	m.textInput.SetValue("x = coun")
	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	rm := model.(replModel)
	if rm.textInput.Value() != "x = counter" {
		t.Fatalf("unexpected completion %q", rm.textInput.Value())
	}
}

func TestAutocompleteListsSeveralMatches(t *testing.T) {
	m := newREPLModel(newTestEvaluator(t))

	m.textInput.SetValue("m")
	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	rm := model.(replModel)
	last := rm.history[len(rm.history)-1]
	if last.output != "Completions: max, min" {
		t.Fatalf("unexpected completions %q", last.output)
	}
}

func TestViewRendersHistoryAndVars(t *testing.T) {
	m := newREPLModel(newTestEvaluator(t))
	model, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m = model.(replModel)

	m, _ = enter(t, m, "total: int = 5")
	m, _ = enter(t, m, "print(total)")
	m, _ = enter(t, m, ":vars")

	view := ansi.Strip(m.View())
	for _, want := range []string{"pywat REPL", "› print(total)", "→ 5", "total: int = 5"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q:\n%s", want, view)
		}
	}
}

func TestFeedJoinsBlocksUntilBlankLine(t *testing.T) {
	eval := newTestEvaluator(t)

	if _, ready := eval.feed(""); ready {
		t.Fatalf("a blank line on its own is not a unit")
	}
	if src, ready := eval.feed("x: int = 1"); !ready || src != "x: int = 1\n" {
		t.Fatalf("unexpected single line unit %q", src)
	}
	for _, line := range []string{"while x < 3:", "    x = x + 1"} {
		if _, ready := eval.feed(line); ready {
			t.Fatalf("block ended early at %q", line)
		}
	}
	src, ready := eval.feed("   ")
	if !ready || src != "while x < 3:\n    x = x + 1\n" {
		t.Fatalf("unexpected block %q", src)
	}
	if eval.continuing() {
		t.Fatalf("expected the block to be closed")
	}
}

func TestEvalKeepsPrintedOutputOnFailure(t *testing.T) {
	eval := newTestEvaluator(t)

	out, err := eval.eval("print(1)\n1 // 0\n")
	if err == nil {
		t.Fatalf("expected a runtime error")
	}
	if out != "1" {
		t.Fatalf("expected printed output to survive, got %q", out)
	}
}

func TestEvalCompilesEachUnitOnce(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	eval, err := newEvaluator(pywat.Config{Logger: logger})
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}

	if _, err := eval.eval("x: int = 3\n"); err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if n := strings.Count(logs.String(), "msg=parsed"); n != 1 {
		t.Fatalf("expected one parse per unit, got %d:\n%s", n, logs.String())
	}
	if !strings.Contains(eval.lastModule, "(module") {
		t.Fatalf("expected the run module to be kept, got %q", eval.lastModule)
	}
}

func TestPlainLoopRunsSession(t *testing.T) {
	input := strings.Join([]string{
		"class P:",
		"    v: int = 2",
		"    def twice(self) -> int:",
		"        return self.v * 2",
		"",
		"p: P = None",
		"p = P()",
		"p.twice()",
		":vars",
		":bogus",
		"p.missing()",
		":quit",
		"p.twice()",
	}, "\n")

	var out bytes.Buffer
	if err := runPlain(newTestEvaluator(t), strings.NewReader(input), &out); err != nil {
		t.Fatalf("plain loop failed: %v", err)
	}
	got := out.String()
	for _, want := range []string{"4\n", "p: P = <P object at 0x", "Unknown command: :bogus\n", "error: "} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected output to contain %q:\n%s", want, got)
		}
	}
	results := 0
	for _, line := range strings.Split(got, "\n") {
		if line == "4" {
			results++
		}
	}
	if results != 1 {
		t.Fatalf("expected input after :quit to be ignored:\n%s", got)
	}
}

func TestPlainLoopFlushesOpenBlockAtEOF(t *testing.T) {
	var out bytes.Buffer
	input := "x: int = 0\nwhile x < 4:\n    x = x + 1\n"
	eval := newTestEvaluator(t)
	if err := runPlain(eval, strings.NewReader(input), &out); err != nil {
		t.Fatalf("plain loop failed: %v", err)
	}
	bindings, err := eval.globals()
	if err != nil {
		t.Fatalf("globals: %v", err)
	}
	if len(bindings) != 1 || bindings[0].Value.Number() != 4 {
		t.Fatalf("expected x to reach 4, got %#v", bindings)
	}
}

func TestLastWord(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"abc":       "abc",
		"x = pri":   "pri",
		"c.get(":    "",
		"a + b_2":   "b_2",
		"foo.bar":   "bar",
		"print(ab ": "",
	}
	for input, want := range cases {
		if got := lastWord(input); got != want {
			t.Fatalf("lastWord(%q): expected %q, got %q", input, want, got)
		}
	}
}
