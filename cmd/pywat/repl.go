package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mgomes/pywat/pywat"
)

const (
	mainPrompt         = "pywat> "
	continuationPrompt = "...    "
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#F59E0B")

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

type historyEntry struct {
	input  string
	output string
	isErr  bool
}

type replModel struct {
	textInput   textinput.Model
	eval        *evaluator
	history     []historyEntry
	cmdHistory  []string
	historyIdx  int
	width       int
	height      int
	showHelp    bool
	showVars    bool
	quitting    bool
	initialized bool
}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	CtrlC  key.Binding
	CtrlD  key.Binding
	CtrlL  key.Binding
	Tab    key.Binding
	CtrlV  key.Binding
	CtrlH  key.Binding
	Escape key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous command"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next command"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "execute"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	CtrlD: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "quit"),
	),
	CtrlL: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "autocomplete"),
	),
	CtrlV: key.NewBinding(
		key.WithKeys("ctrl+v"),
		key.WithHelp("ctrl+v", "toggle vars"),
	),
	CtrlH: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("ctrl+k", "toggle help"),
	),
	Escape: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "abandon block"),
	),
}

func newREPLModel(eval *evaluator) replModel {
	ti := textinput.New()
	ti.Placeholder = "type a statement..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = mainPrompt

	return replModel{
		textInput:  ti,
		eval:       eval,
		history:    make([]historyEntry, 0),
		cmdHistory: make([]string, 0),
		historyIdx: -1,
	}
}

func (m replModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tea.EnterAltScreen)
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.CtrlC), key.Matches(msg, keys.CtrlD):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.CtrlL):
			m.history = make([]historyEntry, 0)
			return m, nil

		case key.Matches(msg, keys.CtrlV):
			m.showVars = !m.showVars
			return m, nil

		case key.Matches(msg, keys.CtrlH):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, keys.Escape):
			m.eval.cancel()
			m.textInput.Prompt = mainPrompt
			m.textInput.SetValue("")
			return m, nil

		case key.Matches(msg, keys.Up):
			if len(m.cmdHistory) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.cmdHistory) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.historyIdx != -1 {
				if m.historyIdx < len(m.cmdHistory)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Tab):
			m = m.handleAutocomplete()
			return m, nil

		case key.Matches(msg, keys.Enter):
			return m.handleEnter()
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m replModel) handleEnter() (tea.Model, tea.Cmd) {
	line := m.textInput.Value()
	m.textInput.SetValue("")
	m.historyIdx = -1

	if !m.eval.continuing() && strings.HasPrefix(strings.TrimSpace(line), ":") {
		var cmd tea.Cmd
		m, cmd = m.handleCommand(strings.TrimSpace(line))
		return m, cmd
	}
	if strings.TrimSpace(line) != "" {
		m.cmdHistory = append(m.cmdHistory, line)
	}

	source, ready := m.eval.feed(line)
	if !ready {
		if m.eval.continuing() {
			m.textInput.Prompt = continuationPrompt
			m.textInput.SetValue(nextIndent(line))
			m.textInput.CursorEnd()
		}
		return m, nil
	}
	m.textInput.Prompt = mainPrompt

	output, err := m.eval.eval(source)
	input := strings.TrimRight(source, "\n")
	if err != nil {
		if output != "" {
			m.history = append(m.history, historyEntry{input: input, output: output})
			input = ""
		}
		m.history = append(m.history, historyEntry{input: input, output: err.Error(), isErr: true})
		return m, nil
	}
	m.history = append(m.history, historyEntry{input: input, output: output})
	return m, nil
}

// nextIndent carries the indentation of line onto the next one, one
// level deeper after a block header.
func nextIndent(line string) string {
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	if strings.HasSuffix(strings.TrimSpace(line), ":") {
		indent += "    "
	}
	return indent
}

func (m replModel) handleCommand(input string) (replModel, tea.Cmd) {
	cmd, rest, _ := strings.Cut(input, " ")

	switch cmd {
	case ":help", ":h":
		m.showHelp = !m.showHelp
	case ":clear", ":c":
		m.history = make([]historyEntry, 0)
	case ":vars", ":v":
		m.showVars = !m.showVars
	case ":reset", ":r":
		m.eval.reset()
		m.history = append(m.history, historyEntry{
			input:  input,
			output: "Environment reset",
		})
	case ":emit", ":e":
		text, err := m.eval.emit(rest)
		if err != nil {
			m.history = append(m.history, historyEntry{input: input, output: err.Error(), isErr: true})
			break
		}
		m.history = append(m.history, historyEntry{input: input, output: text})
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.history = append(m.history, historyEntry{
			input:  input,
			output: fmt.Sprintf("Unknown command: %s", cmd),
			isErr:  true,
		})
	}
	return m, nil
}

func (m replModel) handleAutocomplete() replModel {
	input := m.textInput.Value()
	word := lastWord(input)
	completions := m.eval.completions(word)

	if len(completions) == 1 {
		m.textInput.SetValue(strings.TrimSuffix(input, word) + completions[0])
		m.textInput.CursorEnd()
	} else if len(completions) > 1 {
		m.history = append(m.history, historyEntry{
			output: "Completions: " + strings.Join(completions, ", "),
		})
	}
	return m
}

func (m replModel) View() string {
	if !m.initialized {
		return "Loading..."
	}

	if m.quitting {
		return mutedStyle.Render("Goodbye!\n")
	}

	var b strings.Builder

	header := headerStyle.Render("pywat REPL")
	b.WriteString(header + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", max(min(m.width-2, 60), 0))) + "\n\n")

	bindings, _ := m.eval.globals()
	reservedLines := 8
	if m.showHelp {
		reservedLines += 12
	}
	if m.showVars {
		reservedLines += len(bindings) + 3
	}
	availableHeight := m.height - reservedLines

	historyStart := 0
	if len(m.history) > availableHeight {
		historyStart = max(len(m.history)-availableHeight, 0)
	}

	for i := historyStart; i < len(m.history); i++ {
		entry := m.history[i]
		for j, line := range strings.Split(entry.input, "\n") {
			if entry.input == "" {
				break
			}
			marker := "  › "
			if j > 0 {
				marker = "  . "
			}
			b.WriteString(mutedStyle.Render(marker) + line + "\n")
		}
		if entry.output == "" && !entry.isErr {
			b.WriteString("\n")
			continue
		}
		for _, line := range strings.Split(entry.output, "\n") {
			if entry.isErr {
				b.WriteString("  " + errorStyle.Render("✗ "+line) + "\n")
			} else {
				b.WriteString("  " + resultStyle.Render("→ "+line) + "\n")
			}
		}
		b.WriteString("\n")
	}

	if m.showVars {
		b.WriteString(renderVarsPanel(bindings, m.width))
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(renderHelpPanel(m.width))
		b.WriteString("\n")
	}

	b.WriteString(m.textInput.View() + "\n\n")

	footer := helpKeyStyle.Render("ctrl+k") + helpDescStyle.Render(" help  ") +
		helpKeyStyle.Render("ctrl+v") + helpDescStyle.Render(" vars  ") +
		helpKeyStyle.Render("ctrl+l") + helpDescStyle.Render(" clear  ") +
		helpKeyStyle.Render("ctrl+c") + helpDescStyle.Render(" quit")
	b.WriteString(footer)

	return b.String()
}

func renderVarsPanel(bindings []pywat.Binding, width int) string {
	if len(bindings) == 0 {
		return borderStyle.Render(mutedStyle.Render("No variables defined"))
	}

	limit := max(width-12, 20)
	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Variables"))
	varNameStyle := lipgloss.NewStyle().Foreground(highlightColor)
	for _, b := range bindings {
		line := fmt.Sprintf("  %s: %s = %s", varNameStyle.Render(b.Name), b.Type, b.Value)
		lines = append(lines, ansi.Truncate(line, limit, "…"))
	}
	return borderStyle.Render(strings.Join(lines, "\n"))
}

func renderHelpPanel(width int) string {
	help := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "Navigate command history"},
		{"Tab", "Autocomplete"},
		{"Enter", "Execute, or end a block on a blank line"},
		{"Esc", "Abandon the current block"},
		{":help", "Toggle this help"},
		{":vars", "Toggle variables panel"},
		{":emit", "Show the module for the last input"},
		{":clear", "Clear history"},
		{":reset", "Reset environment"},
		{":quit", "Exit REPL"},
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Help"))
	for _, h := range help {
		line := fmt.Sprintf("  %s  %s",
			helpKeyStyle.Render(fmt.Sprintf("%-8s", h.key)),
			helpDescStyle.Render(h.desc))
		lines = append(lines, ansi.Truncate(line, max(width-6, 30), "…"))
	}

	return borderStyle.Render(strings.Join(lines, "\n"))
}

func runREPL(eval *evaluator) error {
	p := tea.NewProgram(newREPLModel(eval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
