package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLogger_Zero(t *testing.T) {
	var l Logger

	l.Info("discarded")
	l.TraceContext(t.Context(), "discarded")

	if l.Level() != DefaultLevel {
		t.Errorf("expected %v, got %v", DefaultLevel, l.Level())
	}

	if w := l.With(slog.String("k", "v")); w.Logger != nil {
		t.Error("expected With on the zero Logger to stay zero")
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	tests := []struct {
		level Level
		log   func(Logger)
		want  bool
	}{
		{LevelInfo, func(l Logger) { l.Debug("m") }, false},
		{LevelInfo, func(l Logger) { l.Info("m") }, true},
		{LevelError, func(l Logger) { l.Warn("m") }, false},
		{LevelDebug, func(l Logger) { l.Trace("m") }, false},
		{LevelTrace, func(l Logger) { l.Trace("m") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer

			tt.log(Make(&buf, WithLevel(tt.level), WithFormat(FormatJSON)))

			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("expected written=%v, got %v: %s", tt.want, got, buf.String())
			}
		})
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatJSON), WithLevel(LevelTrace), WithTimeLayout("none"))
	l.With(slog.String("component", "cache")).Trace("hit", slog.Int("shard", 3))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}

	want := map[string]any{
		"level":     "TRACE",
		"msg":       "hit",
		"component": "cache",
		"shard":     float64(3),
	}

	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, rec[k])
		}
	}

	if _, ok := rec["time"]; ok {
		t.Error("expected no timestamp")
	}
}

func TestLogger_Pretty(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithTimeLayout(""), WithCaller(true))
	l.WithGroup("eval").Info("done", slog.String("result", "two words"), slog.Int("n", 2))

	out := buf.String()

	for _, want := range []string{"INFO", "done", `eval.result="two words"`, "eval.n=2", "log_test.go:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestLogger_Wrap(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatText))
	w := l.Wrap(WithLevel(LevelWarn))

	if l.Level() != LevelInfo || w.Level() != LevelWarn {
		t.Errorf("expected Wrap to leave the original unchanged, got %v and %v", l.Level(), w.Level())
	}

	if w.Format() != FormatText {
		t.Errorf("expected inherited format %v, got %v", FormatText, w.Format())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"info+2", Level(slog.LevelInfo + 2)},
		{"bogus", DefaultLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for name := range Formats() {
		if got := ParseFormat(strings.ToUpper(name)).String(); got != name {
			t.Errorf("expected %q, got %q", name, got)
		}
	}

	if ParseFormat("xml") != DefaultFormat {
		t.Error("expected unknown format to yield the default")
	}
}

func TestResolveLayout(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"RFC3339", "2006-01-02T15:04:05Z07:00"},
		{"rfc-3339-nano", "2006-01-02T15:04:05.999999999Z07:00"},
		{"ms", "Jan _2 15:04:05.000"},
		{"none", ""},
		{"  ", ""},
		{"2006/01/02", "2006/01/02"},
	}

	for _, tt := range tests {
		if got := resolveLayout(tt.in); got != tt.want {
			t.Errorf("resolveLayout(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestConfig(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	var buf bytes.Buffer

	SetDefault(Make(&buf, WithFormat(FormatJSON)))
	Config(WithLevel(LevelDebug))

	Debug("configured", slog.String("key", "value"))

	if !strings.Contains(buf.String(), `"key":"value"`) {
		t.Errorf("expected the default logger to write the record, got %q", buf.String())
	}

	buf.Reset()
	With(slog.Bool("scoped", true)).Error("failed")

	if !strings.Contains(buf.String(), `"scoped":true`) {
		t.Errorf("expected scoped attribute, got %q", buf.String())
	}
}
