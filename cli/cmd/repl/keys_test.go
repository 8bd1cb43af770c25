package repl

import (
	"context"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/stencil/log"
)

func newTestModel(t *testing.T, vars map[string]any, entries ...HistoryEntry) model {
	t.Helper()

	h := NewHistory(filepath.Join(t.TempDir(), baseHistory))
	for _, e := range entries {
		if _, err := h.WriteWithMode(e.Line, e.Mode); err != nil {
			t.Fatal(err)
		}
	}

	return newModel(context.Background(), newTestSession(t, vars), h, log.Logger{})
}

func press(m model, keys ...tea.KeyMsg) model {
	for _, k := range keys {
		m, _ = m.handleKey(k)
	}

	return m
}

var (
	keyUp      = tea.KeyMsg{Type: tea.KeyUp}
	keyDown    = tea.KeyMsg{Type: tea.KeyDown}
	keyAltUp   = tea.KeyMsg{Type: tea.KeyUp, Alt: true}
	keyShiftUp = tea.KeyMsg{Type: tea.KeyShiftUp}
	keyTab     = tea.KeyMsg{Type: tea.KeyTab}
	keyEsc     = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestLookupCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"help", "help"},
		{"h", "help"},
		{"v", "vars"},
		{"exit", "quit"},
		{"q", "quit"},
		{"nope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := lookupCommand(tt.input); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestModel_History(t *testing.T) {
	entries := []HistoryEntry{
		{"a = 1", modeEval},
		{"vars", modeCtrl},
		{"print a", modeEval},
	}

	tests := []struct {
		name     string
		keys     []tea.KeyMsg
		wantLine string
		wantMode inputMode
		wantPos  int
	}{
		{"newest", []tea.KeyMsg{keyUp}, "print a", modeEval, 2},
		{"switches mode", []tea.KeyMsg{keyUp, keyUp}, "vars", modeCtrl, 1},
		{"oldest", []tea.KeyMsg{keyUp, keyUp, keyUp, keyUp}, "a = 1", modeEval, 0},
		{"back down", []tea.KeyMsg{keyUp, keyUp, keyDown}, "print a", modeEval, 2},
		{"leave history", []tea.KeyMsg{keyUp, keyDown}, "", modeEval, 3},
		{"same mode only", []tea.KeyMsg{keyShiftUp, keyShiftUp}, "a = 1", modeEval, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := press(newTestModel(t, nil, entries...), tt.keys...)

			if got := m.input.Value(); got != tt.wantLine {
				t.Errorf("expected line %q, got %q", tt.wantLine, got)
			}

			if m.mode != tt.wantMode {
				t.Errorf("expected mode %d, got %d", tt.wantMode, m.mode)
			}

			if m.pos != tt.wantPos {
				t.Errorf("expected position %d, got %d", tt.wantPos, m.pos)
			}
		})
	}
}

func TestModel_BrowseCommands(t *testing.T) {
	m := newTestModel(t, nil,
		HistoryEntry{"vars", modeCtrl},
		HistoryEntry{"print 1", modeEval},
	)

	m.input.SetValue("x = ")
	m.input.SetCursor(4)

	m = press(m, keyAltUp)

	if m.mode != modeCtrl || m.input.Value() != "vars" {
		t.Fatalf("expected command vars, got mode %d line %q", m.mode, m.input.Value())
	}

	m = press(m, keyAltUp)

	if m.mode != modeEval || m.input.Value() != "x = " {
		t.Errorf("expected original line restored, got mode %d line %q",
			m.mode, m.input.Value())
	}

	if m.recall != nil {
		t.Error("expected browsing to end")
	}
}

func TestModel_ToggleModeKeepsInput(t *testing.T) {
	m := newTestModel(t, nil)

	m.input.SetValue("1 + 2")
	m = press(m, keyEsc)

	if m.mode != modeCtrl || m.input.Value() != "" {
		t.Fatalf("expected empty command line, got mode %d line %q", m.mode, m.input.Value())
	}

	m.input.SetValue("he")
	m = press(m, keyEsc)

	if m.mode != modeEval || m.input.Value() != "1 + 2" {
		t.Errorf("expected eval line restored, got mode %d line %q", m.mode, m.input.Value())
	}

	m = press(m, keyEsc)

	if got := m.input.Value(); got != "he" {
		t.Errorf("expected command line restored, got %q", got)
	}
}

func TestModel_Cycle(t *testing.T) {
	m := newTestModel(t, map[string]any{"alpha": 1, "alpine": 2})

	m.input.SetValue("al")
	m.input.SetCursor(2)
	m.refresh(false)

	if len(m.comp.matches) < 2 {
		t.Fatalf("expected at least two matches, got %v", m.comp.matches)
	}

	first, second := m.comp.matches[0].Str, m.comp.matches[1].Str

	m = press(m, keyTab)
	if got := m.input.Value(); got != first {
		t.Errorf("expected %q, got %q", first, got)
	}

	m = press(m, keyTab)
	if got := m.input.Value(); got != second {
		t.Errorf("expected %q, got %q", second, got)
	}

	m = press(m, keyEsc)
	if got := m.input.Value(); got != "al" || m.comp.cycling {
		t.Errorf("expected input restored to %q, got %q", "al", got)
	}
}

func TestModel_CommandCompletion(t *testing.T) {
	m := newTestModel(t, nil)
	m = press(m, keyEsc)

	m.input.SetValue("res")
	m.input.SetCursor(3)
	m.refresh(false)

	if len(m.comp.matches) == 0 || m.comp.matches[0].Str != "reset" {
		t.Fatalf("expected reset first, got %v", m.comp.matches)
	}

	m = press(m, keyTab)

	if got := m.input.Value(); got != "reset" {
		t.Errorf("expected reset, got %q", got)
	}
}
