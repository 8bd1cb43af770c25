package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/stencil/log"
)

// Messages delivered when the external editor exits.
type (
	editVarsMsg      struct{ vars map[string]any }
	editCancelledMsg struct{}
	editDeclinedMsg  struct{}
	editErrorMsg     struct{ err error }
)

// inputMode selects whether a line is evaluated or run as a command.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

func (i inputMode) other() inputMode { return 1 - i }

func (i inputMode) prompt() string {
	if i == modeCtrl {
		return ctrlPromptStyle.Render(" :")
	}

	return promptStyle.Render("➜ ")
}

func (i inputMode) hint() string {
	if i == modeCtrl {
		return "Type: " + strings.Join(commandNames(), ", ") + " (press Esc to return)"
	}

	return "Type statements or a template, or press Esc for commands"
}

var (
	promptStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

// commands lists the control-mode commands in help order.
var commands = []struct {
	name, alias, help string
}{
	{"help", "h", "Print this help"},
	{"vars", "v", "List session variables"},
	{"edit", "e", "Edit session variables as YAML in external $EDITOR"},
	{"reset", "r", "Discard variables assigned in this session"},
	{"clear", "c", "Clear screen"},
	{"quit", "q", "Exit REPL"},
}

func commandNames() []string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}

	return names
}

// lookupCommand returns the command named or abbreviated by s, or "".
func lookupCommand(s string) string {
	if s == "exit" {
		return "quit"
	}

	for _, c := range commands {
		if s == c.name || s == c.alias {
			return c.name
		}
	}

	return ""
}

func helpMessage() string {
	var b strings.Builder

	b.WriteString("\n: Commands (press Esc to toggle mode):\n\n")

	for _, c := range commands {
		fmt.Fprintf(&b, "  %-8s %s\n", c.name, c.help)
	}

	b.WriteString(`
Usage:
  Type statements to run them as one tag, e.g. x = 2; print x * 21
  Type text containing a tag delimiter to render it as a template
  The value of each bare expression is printed after any output
  Variables persist between inputs
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Space to accept the current candidate
  Press Esc to toggle between eval and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Use Alt+Up/Alt+Down to browse command history
    (restores the original line when reaching either end)
  Press Ctrl+C on empty line or Ctrl+D to exit
`)

	return b.String()
}

// buffer is an input line and its cursor offset.
type buffer struct {
	text   string
	cursor int
}

// completion is the state of the candidate bar.
type completion struct {
	matches    fuzzy.Matches
	start, end int    // byte offsets of the word being completed
	index      int    // selected match, -1 when none
	cycling    bool   // Tab pressed since the last edit
	before     buffer // input before cycling began
}

// recall is the state saved while Alt+Up/Down browses command history.
type recall struct {
	mode inputMode
	line buffer
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc  func() context.Context
	input    textinput.Model
	session  *Session
	logger   log.Logger
	history  *History
	pos      int // history entry shown, history.Len() for a new line
	comp     completion
	saved    [2]buffer // unsubmitted input per mode
	recall   *recall
	mode     inputMode
	width    int
	quitting bool
}

// Run starts the REPL on session. History is kept in cacheDir.
func Run(
	ctx context.Context,
	session *Session,
	cacheDir string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if session == nil {
		return ErrSessionRequired
	}

	logger.TraceContext(
		ctx,
		"repl start",
		slog.String("cache_dir", cacheDir),
		slog.Int("var_count", len(session.Scope().Vars())),
		slog.Int("global_count", len(session.Scope().Globals())),
	)

	history := NewHistory(filepath.Join(cacheDir, baseHistory))
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history",
			slog.String("path", history.path),
			slog.String("error", err.Error()),
		)
	}

	_, err = tea.NewProgram(
		newModel(ctx, session, history, logger),
		tea.WithContext(ctx),
	).Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	session *Session,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = modeEval.prompt()
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	return model{
		ctxFunc: func() context.Context { return ctx },
		input:   ti,
		session: session,
		logger:  logger,
		history: history,
		pos:     history.Len(),
		comp:    completion{index: -1},
		width:   defaultWidth,
		mode:    modeEval,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - lipgloss.Width(m.mode.prompt()) - 1

		return m, nil

	case editVarsMsg:
		m.session.Replace(msg.vars)
		m.logger.TraceContext(m.ctxFunc(), "repl edit complete",
			slog.Int("var_count", len(msg.vars)))

		return m, tea.Println(resultStyle.Render("✔ variables updated"))

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("🗴 edit cancelled"))

	case editDeclinedMsg:
		m.quitting = true

		return m, tea.Quit

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("🗴 error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	return m.input.View() + "\n" + m.status() + "\n"
}

// status renders the line below the input: the history position, a usage
// hint, the signature of the enclosing call, or the candidate bar.
func (m model) status() string {
	input := m.input.Value()

	if m.pos < m.history.Len() {
		return hintStyle.Render(fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.pos+1)),
			m.history.Len()))
	}

	if strings.TrimSpace(input) == "" {
		return hintStyle.Render(m.mode.hint())
	}

	if m.mode == modeEval {
		if call := detectFunctionCall(input, m.input.Position()); call.inCall {
			if sig, params := m.session.signature(m.ctxFunc(), call); sig != "" {
				return renderSignatureHint(sig, params, call.argIndex)
			}
		}
	}

	if len(m.comp.matches) == 0 {
		return ""
	}

	return renderCandidateBar(
		m.comp.matches, m.comp.index, m.comp.cycling, m.width, m.session.isTag,
	)
}

// submit runs the current line and records it in history.
func (m model) submit() (model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}

	m.saved = [2]buffer{}
	m.input.SetValue("")
	m.refresh(false)

	_, _ = m.history.WriteWithMode(line, m.mode)
	m.pos = m.history.Len()

	if m.mode == modeCtrl {
		return m.runCommand(line)
	}

	return m, m.evaluate(line)
}

// evaluate prints the echoed input, then the rendered output, the value of
// each bare expression and any error.
func (m model) evaluate(line string) tea.Cmd {
	ctx := m.ctxFunc()

	m.logger.TraceContext(ctx, "repl eval", slog.String("input", line))

	result, err := m.session.Eval(ctx, line)

	out := []tea.Cmd{
		tea.Println(modeEval.prompt() + inputStyle.Render(line)),
	}

	if result.Output != "" {
		out = append(out, tea.Println(strings.TrimSuffix(result.Output, "\n")))
	}

	for _, v := range result.Values {
		out = append(out, tea.Println(resultStyle.Render(formatResult(v))))
	}

	attrs := []slog.Attr{
		slog.Int("value_count", len(result.Values)),
		slog.Int("output_length", len(result.Output)),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		out = append(out, tea.Println(errorStyle.Render("error: "+err.Error())))
	}

	m.logger.TraceContext(ctx, "repl eval result", attrs...)

	return tea.Sequence(out...)
}

func (m model) runCommand(line string) (model, tea.Cmd) {
	fields := strings.Fields(line)
	name := lookupCommand(fields[0])

	m.logger.TraceContext(m.ctxFunc(), "repl command",
		slog.String("command", fields[0]),
		slog.Any("args", fields[1:]),
	)

	echo := tea.Println(modeCtrl.prompt() + inputStyle.Render(line))

	switch name {
	case "quit":
		m.quitting = true

		return m, tea.Sequence(echo, tea.Quit)

	case "help":
		return m, tea.Sequence(echo, tea.Println(helpMessage()))

	case "vars":
		return m, tea.Sequence(echo, tea.Println(m.listVars()))

	case "reset":
		m.session.Reset()

		return m, tea.Sequence(echo,
			tea.Println(resultStyle.Render("✔ session variables reset")))

	case "clear":
		return m, tea.ClearScreen

	case "edit":
		return m, tea.Sequence(echo, m.editVars())
	}

	return m, tea.Println(errorStyle.Render(
		fmt.Sprintf("%v: %s (try 'help')", ErrUnknownCommand, fields[0])))
}

// editVars suspends the program and opens the session variables in the
// user's editor.
func (m model) editVars() tea.Cmd {
	cmd := &editVarsCommand{
		vars:    m.session.Scope().Vars(),
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editDeclinedMsg{}
		case err != nil:
			return editErrorMsg{err: err}
		case cmd.newVars == nil:
			return editCancelledMsg{}
		}

		return editVarsMsg{vars: cmd.newVars}
	})
}

func (m model) listVars() string {
	var b strings.Builder

	vars := m.session.Scope().Vars()
	if len(vars) == 0 {
		b.WriteString(hintStyle.Render("  (no variables)") + "\n")
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		fmt.Fprintf(&b, "  %s %s\n", name, hintStyle.Render(formatPreview(vars[name])))
	}

	if globals := m.session.Scope().Globals(); len(globals) > 0 {
		b.WriteString(hintStyle.Render("  globals: "+strings.Join(globals, ", ")) + "\n")
	}

	return b.String()
}
