package repl

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/formula/lang"
	"github.com/ardnew/formula/log"
)

func TestSession_Exec(t *testing.T) {
	s := NewSession(map[string]any{"rate": 0.5}, lang.None, log.Logger{})

	steps := []struct {
		line string
		want string
	}{
		{"", ""},
		{"1 + 2", "3"},
		{"price := 40", "price = 40"},
		{"[unit price] := price * rate", "unit price = 20"},
		{"[unit price] * 2", "40"},
		{"'a:=b'", "a:=b"},
		{"Round(price / 3, 2)", "13.33"},
		{":unset price", ""},
		{":vars", "rate = 0.5\nunit price = 20"},
	}

	for _, st := range steps {
		got, err := s.Exec(t.Context(), st.line)
		if err != nil {
			t.Fatalf("%q: %v", st.line, err)
		}

		if got != st.want {
			t.Errorf("%q: expected %q, got %q", st.line, st.want, got)
		}
	}

	if s.Bound("price") {
		t.Error("expected price to be unset")
	}
}

func TestSession_Errors(t *testing.T) {
	s := NewSession(nil, lang.None, log.Logger{})

	tests := []struct {
		line string
		want error
	}{
		{"x + 1", lang.ErrUnknownParameter},
		{"a b := 1", ErrInvalidBinding},
		{":= 1", ErrInvalidBinding},
		{"[] := 1", ErrInvalidBinding},
		{":bogus", ErrUnknownCommand},
		{"y := 1 / 0", lang.ErrDivideByZero},
	}

	for _, tt := range tests {
		if _, err := s.Exec(t.Context(), tt.line); !errors.Is(err, tt.want) {
			t.Errorf("%q: expected %v, got %v", tt.line, tt.want, err)
		}
	}

	if s.Bound("y") {
		t.Error("expected failed binding to leave no value")
	}
}

func TestSession_Options(t *testing.T) {
	s := NewSession(nil, lang.IgnoreCase|lang.RoundAwayFromZero, log.Logger{})

	if _, err := s.Exec(t.Context(), "Total := 5"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Exec(t.Context(), "ROUND(TOTAL / 2)")
	if err != nil {
		t.Fatal(err)
	}

	if got != "3" {
		t.Errorf("expected 3, got %q", got)
	}
}

func TestSession_Commands(t *testing.T) {
	s := NewSession(nil, lang.None, log.Logger{})

	help, err := s.Exec(t.Context(), ":help")
	if err != nil || !strings.Contains(help, ":vars") {
		t.Errorf("expected help text, got %q (%v)", help, err)
	}

	for range 3 {
		if _, err := s.Exec(t.Context(), "1 + 1"); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.Exec(t.Context(), ":stats")
	if err != nil {
		t.Fatal(err)
	}

	if stats != "cache: 1 entries, 2 hits, 1 misses" {
		t.Errorf("unexpected stats %q", stats)
	}
}

func TestSplitBinding(t *testing.T) {
	tests := []struct {
		line   string
		name   string
		src    string
		isBind bool
	}{
		{"x := 1", "x", " 1", true},
		{"[a b]:=2", "a b", "2", true},
		{"x = 1", "", "", false},
		{"'k := v'", "", "", false},
		{"a+b := 1", "", " 1", true},
	}

	for _, tt := range tests {
		name, src, ok := splitBinding(tt.line)
		if name != tt.name || src != tt.src || ok != tt.isBind {
			t.Errorf("%q: expected (%q, %q, %v), got (%q, %q, %v)",
				tt.line, tt.name, tt.src, tt.isBind, name, src, ok)
		}
	}
}
