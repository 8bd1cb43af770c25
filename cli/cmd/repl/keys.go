package repl

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
)

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()),
		slog.Int("type", int(msg.Type)),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			return m.quit()
		}

		m.comp.cycling = false
		m.recall = nil
		m.pos = m.history.Len()
		m.load(buffer{})

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			return m.quit()
		}

		return m, nil

	case tea.KeyEnter:
		m.recall = nil

		if m.comp.cycling && len(m.comp.matches) > 0 {
			// Lock in the selected candidate without running the line.
			m.comp.cycling = false
			m.refresh(true)

			return m, nil
		}

		return m.submit()

	case tea.KeyTab:
		m.cycle(1)

		return m, nil

	case tea.KeyShiftTab:
		m.cycle(-1)

		return m, nil

	case tea.KeyUp:
		if msg.Alt {
			m.browseCommands(-1)
		} else {
			m.step(-1, anyMode)
		}

		return m, nil

	case tea.KeyDown:
		if msg.Alt {
			m.browseCommands(1)
		} else if !m.step(1, anyMode) {
			m.leaveHistory()
		}

		return m, nil

	case tea.KeyShiftUp:
		m.step(-1, inMode(m.mode))

		return m, nil

	case tea.KeyShiftDown:
		if !m.step(1, inMode(m.mode)) {
			m.leaveHistory()
		}

		return m, nil

	case tea.KeyEsc:
		if m.comp.cycling {
			m.comp.cycling = false
			m.load(m.comp.before)

			return m, nil
		}

		m.recall = nil
		m.switchMode(m.mode.other())

		return m, nil

	case tea.KeyRunes:
		// Space accepts the candidate selected while cycling.
		if m.comp.cycling && msg.String() == " " {
			m.comp.cycling = false
		}

		return m.edit(msg, true)
	}

	m.comp.cycling = false
	m.recall = nil

	return m.edit(msg, false)
}

func (m model) quit() (model, tea.Cmd) {
	m.quitting = true

	return m, tea.Quit
}

// edit forwards msg to the text input. Completions are confirmed
// automatically only for insertions.
func (m model) edit(msg tea.Msg, confirm bool) (model, tea.Cmd) {
	var cmd tea.Cmd

	m.pos = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	m.refresh(confirm)

	return m, cmd
}

func (m *model) current() buffer {
	return buffer{text: m.input.Value(), cursor: m.input.Position()}
}

func (m *model) load(b buffer) {
	m.input.SetValue(b.text)
	m.input.SetCursor(b.cursor)
	m.refresh(false)
}

// switchMode saves the input of the current mode and restores the input
// last typed in mode.
func (m *model) switchMode(mode inputMode) {
	m.saved[m.mode] = m.current()
	m.mode = mode
	m.input.Prompt = mode.prompt()
	m.load(m.saved[mode])
}

func anyMode(HistoryEntry) bool { return true }

func inMode(mode inputMode) func(HistoryEntry) bool {
	return func(e HistoryEntry) bool { return e.Mode == mode }
}

// step moves dir entries through history, skipping entries rejected by keep,
// and loads the entry it lands on. It reports false when no such entry
// exists in that direction.
func (m *model) step(dir int, keep func(HistoryEntry) bool) bool {
	for i := m.pos + dir; i >= 0 && i < m.history.Len(); i += dir {
		e, err := m.history.GetEntry(i)
		if err != nil || !keep(e) {
			continue
		}

		m.pos = i

		if e.Mode != m.mode {
			m.switchMode(e.Mode)
		}

		m.load(buffer{text: e.Line, cursor: len(e.Line)})

		return true
	}

	return false
}

// leaveHistory returns from a history entry to an empty new line.
func (m *model) leaveHistory() {
	if m.pos < m.history.Len() {
		m.pos = m.history.Len()
		m.load(buffer{})
	}
}

// browseCommands steps through command history only. Walking off either end
// restores the mode and line that were current before browsing began.
func (m *model) browseCommands(dir int) {
	if m.recall == nil {
		m.recall = &recall{mode: m.mode, line: m.current()}

		if m.mode != modeCtrl {
			m.switchMode(modeCtrl)
		}
	}

	if m.step(dir, inMode(modeCtrl)) {
		return
	}

	r := m.recall
	m.recall = nil

	if r.mode != m.mode {
		m.switchMode(r.mode)
	}

	m.pos = m.history.Len()
	m.load(r.line)
}

// cycle selects the next (dir > 0) or previous candidate and writes it into
// the input. A sole candidate is accepted immediately.
func (m *model) cycle(dir int) {
	c := &m.comp
	n := len(c.matches)

	switch {
	case n == 0:
		return

	case n == 1:
		m.replaceWord(c.matches[0].Str)
		c.cycling = false
		c.index = -1
		c.matches = nil

		return

	case c.cycling:
		c.index = (c.index + dir + n) % n

	default:
		c.cycling = true
		c.before = m.current()

		c.index = 0
		if dir < 0 {
			c.index = n - 1
		}
	}

	m.replaceWord(c.matches[c.index].Str)
}

// replaceWord substitutes s for the word being completed and moves the
// cursor after it.
func (m *model) replaceWord(s string) {
	input := m.input.Value()
	end := m.comp.start + len(s)

	m.input.SetValue(input[:m.comp.start] + s + input[m.comp.end:])
	m.input.SetCursor(end)
	m.comp.end = end
}

// refresh recomputes the candidates for the word at the cursor. With confirm
// set, a word that already equals its sole candidate is accepted.
func (m *model) refresh(confirm bool) {
	c := &m.comp
	c.matches, c.start, c.end = m.computeMatches()

	if !c.cycling {
		c.index = -1
	}

	if !confirm || len(c.matches) != 1 {
		return
	}

	if m.input.Value()[c.start:c.end] == c.matches[0].Str {
		m.input.SetCursor(c.end)
		c.cycling = false
		c.index = -1
		c.matches = nil
	}
}
