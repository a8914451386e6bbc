package log

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// prettyStyles colors the parts of a pretty record. The renderer detects the
// color support of the output, so records written to a file or buffer are
// plain text.
type prettyStyles struct {
	time, key, str, num, msg lipgloss.Style
	levels                   map[Level]lipgloss.Style
}

func makePrettyStyles(r *lipgloss.Renderer) prettyStyles {
	level := func(color string) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	}

	return prettyStyles{
		time: r.NewStyle().Faint(true),
		key:  r.NewStyle().Foreground(lipgloss.Color("8")),
		str:  r.NewStyle().Foreground(lipgloss.Color("6")),
		num:  r.NewStyle().Foreground(lipgloss.Color("3")),
		msg:  r.NewStyle().Bold(true),
		levels: map[Level]lipgloss.Style{
			LevelTrace: level("5"),
			LevelDebug: level("4"),
			LevelInfo:  level("2"),
			LevelWarn:  level("3"),
			LevelError: level("1"),
		},
	}
}

// prettyHandler writes one colorized line per record:
//
//	TIME LEVEL message key=value ...
type prettyHandler struct {
	mu     *sync.Mutex
	styles *prettyStyles
	prefix string
	attrs  []slog.Attr
	config
}

func newPrettyHandler(c config) *prettyHandler {
	styles := makePrettyStyles(lipgloss.NewRenderer(c.output))

	return &prettyHandler{mu: &sync.Mutex{}, styles: &styles, config: c}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.Level(h.level)
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if ts := h.formatTime(r.Time); ts != "" && !r.Time.IsZero() {
		buf.WriteString(h.styles.time.Render(ts))
		buf.WriteByte(' ')
	}

	buf.WriteString(h.levelStyle(Level(r.Level)).Render(fmt.Sprintf("%-5s", strings.ToUpper(Level(r.Level).String()))))
	buf.WriteByte(' ')

	if h.caller {
		if src := r.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&buf, "%s:%d ", src.File, src.Line)
		}
	}

	buf.WriteString(h.styles.msg.Render(r.Message))

	for _, a := range h.attrs {
		h.writeAttr(&buf, "", a)
	}

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, h.prefix, a)

		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.output.Write(buf.Bytes())

	return err
}

func (h *prettyHandler) levelStyle(l Level) lipgloss.Style {
	for _, n := range levelNames {
		if l <= n.level {
			return h.styles.levels[n.level]
		}
	}

	return h.styles.levels[LevelError]
}

func (h *prettyHandler) writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}

		for _, ga := range a.Value.Group() {
			h.writeAttr(buf, prefix, ga)
		}

		return
	}

	buf.WriteByte(' ')
	buf.WriteString(h.styles.key.Render(prefix + a.Key + "="))

	switch a.Value.Kind() {
	case slog.KindInt64, slog.KindUint64, slog.KindFloat64, slog.KindDuration:
		buf.WriteString(h.styles.num.Render(a.Value.String()))
	default:
		s := a.Value.String()
		if strings.ContainsAny(s, " \t\n\"=") {
			s = fmt.Sprintf("%q", s)
		}

		buf.WriteString(h.styles.str.Render(s))
	}
}

// WithAttrs returns a handler that writes attrs, qualified by the current
// group prefix, before the attributes of each record.
func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	c := *h
	c.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], qualify(h.prefix, attrs)...)

	return &c
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.prefix = h.prefix + name + "."

	return &c
}

func qualify(prefix string, attrs []slog.Attr) []slog.Attr {
	if prefix == "" {
		return attrs
	}

	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: prefix + a.Key, Value: a.Value}
	}

	return out
}
