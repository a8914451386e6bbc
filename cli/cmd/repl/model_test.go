package repl

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/formula/lang"
	"github.com/ardnew/formula/log"
)

func newTestModel(t *testing.T) model {
	t.Helper()

	s := NewSession(nil, lang.None, log.Logger{})

	return newModel(t.Context(), s, NewHistory(""), log.Logger{})
}

func typeText(m model, text string) model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})

	return next.(model)
}

func press(m model, k tea.KeyType) (model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})

	return next.(model), cmd
}

func TestModel_Submit(t *testing.T) {
	m := typeText(newTestModel(t), "x := 6 * 7")

	m, cmd := press(m, tea.KeyEnter)
	if cmd == nil {
		t.Fatal("expected a print command")
	}

	if !m.session.Bound("x") {
		t.Error("expected x to be bound")
	}

	if m.input.Value() != "" {
		t.Errorf("expected cleared input, got %q", m.input.Value())
	}

	if m.history.Len() != 1 {
		t.Errorf("expected 1 history entry, got %d", m.history.Len())
	}
}

func TestModel_Complete(t *testing.T) {
	m := typeText(newTestModel(t), "1 + Sqr")

	if len(m.matches) == 0 {
		t.Fatal("expected completion candidates")
	}

	m, _ = press(m, tea.KeyTab)

	if got := m.input.Value(); got != "1 + Sqrt" {
		t.Errorf("expected %q, got %q", "1 + Sqrt", got)
	}

	m = typeText(m, "(")

	if hint := m.hint(); !strings.Contains(hint, "Sqrt(") {
		t.Errorf("expected signature hint, got %q", hint)
	}
}

func TestModel_History(t *testing.T) {
	m := newTestModel(t)

	for _, line := range []string{"1", "2"} {
		m = typeText(m, line)
		m, _ = press(m, tea.KeyEnter)
	}

	m = typeText(m, "dra")

	m, _ = press(m, tea.KeyUp)
	if m.input.Value() != "2" {
		t.Errorf("expected %q, got %q", "2", m.input.Value())
	}

	m, _ = press(m, tea.KeyUp)
	m, _ = press(m, tea.KeyUp)
	if m.input.Value() != "1" {
		t.Errorf("expected %q, got %q", "1", m.input.Value())
	}

	m, _ = press(m, tea.KeyDown)
	m, _ = press(m, tea.KeyDown)
	if m.input.Value() != "dra" {
		t.Errorf("expected the draft to be restored, got %q", m.input.Value())
	}
}

func TestModel_Quit(t *testing.T) {
	m, cmd := press(newTestModel(t), tea.KeyCtrlD)
	if !m.done || cmd == nil {
		t.Error("expected Ctrl+D on an empty line to quit")
	}

	if m.View() != "" {
		t.Error("expected an empty view after quitting")
	}

	m = typeText(newTestModel(t), ":quit")
	if m, _ = press(m, tea.KeyEnter); !m.done {
		t.Error("expected :quit to quit")
	}
}
