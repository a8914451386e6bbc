package repl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/formula/lang"
	"github.com/ardnew/formula/log"
)

const prompt = "➜ "

var (
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	resultStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	matchStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("4"))
	argStyle      = lipgloss.NewStyle().Bold(true).Underline(true)
)

// model is the Bubble Tea model of the REPL.
type model struct {
	ctx     context.Context
	session *Session
	history *History
	logger  log.Logger
	input   textinput.Model
	matches fuzzy.Matches
	draft   string // input saved while browsing history
	histIdx int
	sel     int // selected match while cycling, -1 when not cycling
	width   int
	done    bool
}

func newModel(ctx context.Context, s *Session, h *History, logger log.Logger) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(prompt)
	ti.CharLimit = 4096
	ti.Focus()

	return model{
		ctx:     ctx,
		session: s,
		history: h,
		logger:  logger,
		input:   ti,
		histIdx: h.Len(),
		sel:     -1,
		width:   80,
	}
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-lipgloss.Width(m.input.Prompt)-1, 10)

		return m, nil

	case tea.KeyMsg:
		return m.key(msg)
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.done = true

			return m, tea.Quit
		}

		m.input.Reset()
		m.refresh()

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.done = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		return m.submit()

	case tea.KeyTab:
		m.cycle(1)

		return m, nil

	case tea.KeyShiftTab:
		m.cycle(-1)

		return m, nil

	case tea.KeyUp:
		m.browse(-1)

		return m, nil

	case tea.KeyDown:
		m.browse(1)

		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	m.refresh()

	return m, cmd
}

// submit runs the current line and prints it with its outcome above the
// input.
func (m model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())

	m.input.Reset()
	m.matches, m.sel = nil, -1

	if line == "" {
		return m, nil
	}

	if err := m.history.Add(line); err != nil {
		m.logger.WarnContext(m.ctx, "repl history", slog.Any("error", err))
	}

	m.histIdx, m.draft = m.history.Len(), ""

	echo := promptStyle.Render(prompt) + line

	switch line {
	case ":quit", ":q", ":exit":
		m.done = true

		return m, tea.Sequence(tea.Println(echo), tea.Quit)

	case ":clear":
		return m, tea.ClearScreen
	}

	out, err := m.session.Exec(m.ctx, line)
	if err != nil {
		return m, tea.Println(echo + "\n" + errorStyle.Render(err.Error()))
	}

	if out == "" {
		return m, tea.Println(echo)
	}

	return m, tea.Println(echo + "\n" + resultStyle.Render(out))
}

// cycle replaces the word under the cursor with the next (dir 1) or previous
// (dir -1) completion candidate.
func (m *model) cycle(dir int) {
	if len(m.matches) == 0 {
		m.refresh()

		if len(m.matches) == 0 {
			return
		}
	}

	n := len(m.matches)

	switch {
	case m.sel < 0 && dir > 0:
		m.sel = 0
	case m.sel < 0:
		m.sel = n - 1
	default:
		m.sel = (m.sel + dir + n) % n
	}

	value := m.input.Value()
	_, start, end := wordBounds(value, m.cursor())
	choice := m.matches[m.sel].Str

	m.input.SetValue(value[:start] + choice + value[end:])
	m.input.SetCursor(utf8.RuneCountInString(value[:start] + choice))
}

// browse moves through history. Moving past the newest entry restores the
// line that was being edited.
func (m *model) browse(dir int) {
	n := m.history.Len()
	next := m.histIdx + dir

	if next < 0 || next > n {
		return
	}

	if m.histIdx == n {
		m.draft = m.input.Value()
	}

	m.histIdx = next

	if line, ok := m.history.At(next); ok {
		m.input.SetValue(line)
	} else {
		m.input.SetValue(m.draft)
	}

	m.input.CursorEnd()
	m.matches, m.sel = nil, -1
}

// refresh recomputes the completion candidates after an edit.
func (m *model) refresh() {
	word, _, _ := wordBounds(m.input.Value(), m.cursor())
	m.matches = candidates(m.session, word)
	m.sel = -1
}

// cursor returns the byte offset of the input cursor.
func (m model) cursor() int {
	runes := []rune(m.input.Value())

	return len(string(runes[:min(m.input.Position(), len(runes))]))
}

func (m model) View() string {
	if m.done {
		return ""
	}

	return m.input.View() + "\n" + m.hint() + "\n"
}

// hint renders the line below the input: the signature of the enclosing
// built-in call, else the completion candidates, else a usage reminder.
func (m model) hint() string {
	value := m.input.Value()

	if c, ok := callAt(value, m.cursor()); ok {
		if params := signature(c.name, m.session.options.Has(lang.IgnoreCase)); params != nil {
			return renderSignature(c, params)
		}
	}

	if len(m.matches) > 0 {
		return m.renderMatches()
	}

	if strings.TrimSpace(value) == "" {
		return hintStyle.Render("formula, name := formula, or :help")
	}

	return ""
}

func renderSignature(c call, params []string) string {
	parts := make([]string, len(params))

	for i, p := range params {
		active := i == c.arg || (p == "..." && c.arg >= i)
		if active {
			parts[i] = argStyle.Render(p)
		} else {
			parts[i] = p
		}
	}

	return hintStyle.Render(c.name+"(") + strings.Join(parts, hintStyle.Render(", ")) + hintStyle.Render(")")
}

// renderMatches lays out as many candidates as fit the terminal width.
func (m model) renderMatches() string {
	var (
		b     strings.Builder
		width int
	)

	for i, match := range m.matches {
		style := matchStyle
		if i == m.sel {
			style = selectedStyle
		}

		cell := style.Render(match.Str)
		w := lipgloss.Width(cell) + 1

		if width+w > m.width {
			b.WriteString(hintStyle.Render(fmt.Sprintf("+%d", len(m.matches)-i)))

			break
		}

		b.WriteString(cell)
		b.WriteByte(' ')

		width += w
	}

	return strings.TrimRight(b.String(), " ")
}
