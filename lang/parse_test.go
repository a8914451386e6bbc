package lang

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParse_Canonical(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "1 + 2 * 3"},
		{"(1 + 2) * 3", "(1 + 2) * 3"},
		{"1 - (2 - 3)", "1 - (2 - 3)"},
		{"(1 - 2) - 3", "1 - 2 - 3"},
		{"a and b or c", "a and b or c"},
		{"a && (b || c)", "a and (b or c)"},
		{"!(a = b)", "!(a = b)"},
		{"not true", "!True"},
		{"-(1 + 2)", "-(1 + 2)"},
		{"-2 * 3", "-2 * 3"},
		{"~x", "~x"},
		{"a ? b : c ? d : e", "a ? b : c ? d : e"},
		{"(a ? b : c) ? d : e", "(a ? b : c) ? d : e"},
		{"x = 1 ? 'a' : 'b'", "x = 1 ? 'a' : 'b'"},
		{"[first name] + x", "[first name] + x"},
		{"[and] or [x]", "[and] or x"},
		{"Max(1,2)", "Max(1, 2)"},
		{"f()", "f()"},
		{`'it\'s'`, `'it\'s'`},
		{`"double"`, "'double'"},
		{"0.000001", "0.000001"},
		{"1e2", "1e+02"},
		{"#1/1/2009#", "#01/01/2009#"},
		{"#2009-01-01T10:00:00+05:00#", "#2009-01-01T10:00:00+05:00#"},
		{"#2009-01-01 10:00:00.5#", "#2009-01-01T10:00:00.5Z#"},
		{"true", "True"},
		{"FALSE", "False"},
		{"a <> b", "a != b"},
		{"a == b", "a = b"},
		{"1 << 2 >> 1", "1 << 2 >> 1"},
		{"1 | 2 ^ 3 & 4", "1 | 2 ^ 3 & 4"},
		{"(1 | 2) & 3", "(1 | 2) & 3"},
		{"a < b = c > d", "a < b = c > d"},
		{"in(x, 1, 2, 3)", "in(x, 1, 2, 3)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(t.Context(), tt.input, WithOptions(NoCache))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}

			if got := node.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParse_RenderFixedPoint(t *testing.T) {
	inputs := []string{
		"0", "42", "2147483648", "99999999999999999999",
		"0.000001", "1.5", ".5", "1e2", "1e-10", "1.7976931348623157e308",
		"'plain'", `'quote\'s'`, `'tab\tnew\nline'`, `'\u0001'`, "'日本'",
		"#1/1/2009#", "#12/31/1999 23:59:59#",
		"#2009-01-01T10:00:00+05:00#", "#2009-01-01 10:00:00.5#",
		"#2009-01-01T10:00:00.123456789-07:00# = #1/1/2009#",
		"1.0 / 0", "Round(2.5) + Pow(2, 0.5)", "1 / 0",
		"true", "False",
		"[weird name]", "[a[0]]", "[or]",
		"-(-1)", "!!true", "1 - -1", "a ? b ? c : d : e",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := Parse(t.Context(), input, WithOptions(NoCache))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}

			second, err := Parse(t.Context(), first.String(), WithOptions(NoCache))
			if err != nil {
				t.Fatalf("Parse of rendering %q failed: %v", first.String(), err)
			}

			if first.String() != second.String() {
				t.Errorf("rendering is not a fixed point: %q then %q",
					first.String(), second.String())
			}

			if len(Identifiers(first)) > 0 {
				return
			}

			if err := sameEvaluation(t, first, second); err != nil {
				t.Error(err)
			}
		})
	}
}

// sameEvaluation reports an error unless a and b evaluate to the same value
// or both fail.
func sameEvaluation(t *testing.T, a, b Node) error {
	t.Helper()

	want, werr := Eval(t.Context(), a, nil, None)
	got, gerr := Eval(t.Context(), b, nil, None)

	switch {
	case (werr == nil) != (gerr == nil):
		return fmt.Errorf("%q and %q: expected errors %v, got %v", a, b, werr, gerr)
	case werr == nil && !sameResult(got, want):
		return fmt.Errorf("%q and %q: expected %v (%T), got %v (%T)", a, b, want, want, got, got)
	}

	return nil
}

// sameResult is like sameValue, but NaN matches NaN.
func sameResult(got, want any) bool {
	if w, ok := want.(float64); ok && math.IsNaN(w) {
		g, ok := got.(float64)

		return ok && math.IsNaN(g)
	}

	return sameValue(got, want)
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		input  string
		found  string
		column int
	}{
		{"(3 + 2", "end of input", 7},
		{"+ b", `"+"`, 1},
		{"1 +", "end of input", 4},
		{"Max(1,", "end of input", 7},
		{"a ? b", "end of input", 6},
		{"1 2", `"2"`, 3},
		{"a AND b", `identifier "AND"`, 3},
		{"f(1 2)", `"2"`, 5},
		{")", `")"`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(t.Context(), tt.input, WithOptions(NoCache))
			if err == nil {
				t.Fatal("expected error")
			}

			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
			}

			if se.Found != tt.found {
				t.Errorf("expected found %q, got %q", tt.found, se.Found)
			}

			if se.Pos.Column != tt.column {
				t.Errorf("expected column %d, got %d", tt.column, se.Pos.Column)
			}
		})
	}
}

func TestParse_SyntaxErrorMessage(t *testing.T) {
	_, err := Parse(t.Context(), "(3 + 2", WithOptions(NoCache))
	if err == nil {
		t.Fatal("expected error")
	}

	msg := err.Error()
	if !strings.HasPrefix(msg,
		"syntax error at line 1, column 7: unexpected end of input, expected ')'") {
		t.Errorf("unexpected message: %q", msg)
	}

	if !strings.Contains(msg, "  1 | (3 + 2\n") {
		t.Errorf("expected source snippet in message: %q", msg)
	}
}

func TestParse_IgnoreCaseKeywords(t *testing.T) {
	node, err := Parse(t.Context(), "a AND NOT b OR c",
		WithOptions(IgnoreCase|NoCache))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got, want := node.String(), "a and !b or c"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestParse_MaxDepth(t *testing.T) {
	deep := strings.Repeat("(", 20) + "1" + strings.Repeat(")", 20)

	_, err := Parse(t.Context(), deep, WithOptions(NoCache), WithMaxDepth(10))

	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
	}

	if _, err := Parse(t.Context(), deep, WithOptions(NoCache)); err != nil {
		t.Errorf("expected default depth to accept input, got %v", err)
	}

	unary := strings.Repeat("-", 300) + "1"
	if _, err := Parse(t.Context(), unary, WithOptions(NoCache)); !errors.As(err, &se) {
		t.Errorf("expected *SyntaxError for deep unary chain, got %v", err)
	}
}

func TestIdentifiers(t *testing.T) {
	node, err := Parse(t.Context(), "a + b * Max(a, [c d]) > e ? b : f",
		WithOptions(NoCache))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := Identifiers(node)
	want := []string{"a", "b", "c d", "e", "f"}

	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNewValue(t *testing.T) {
	node := &BinaryExpression{
		Left:  NewValue(uint8(7)),
		Right: NewValue(-0.5),
		Op:    OpTimes,
	}

	if got, want := node.String(), "7 * -0.5"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	v, err := Eval(t.Context(), node, nil, None)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}

	if v != -3.5 {
		t.Errorf("expected -3.5, got %v (%T)", v, v)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-literal value")
		}
	}()

	NewValue([]int{1})
}

func TestNewValue_Reparse(t *testing.T) {
	tests := []struct {
		name string
		v    any
		text string
		want any
	}{
		{"fractional_decimal", decimal.RequireFromString("1.5"), "1.5", 1.5},
		{"float32", float32(0.25), "0.25", 0.25},
		{"small_decimal", decimal.NewFromInt(5), "5", int32(5)},
		{
			"large_decimal", decimal.RequireFromString("99999999999999999999"),
			"99999999999999999999", decimal.RequireFromString("99999999999999999999"),
		},
		{
			"zoned_date", time.Date(2009, 1, 1, 10, 0, 0, 5e8, time.FixedZone("", -3*3600)),
			"#2009-01-01T10:00:00.5-03:00#", time.Date(2009, 1, 1, 13, 0, 0, 5e8, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := NewValue(tt.v).String()
			if text != tt.text {
				t.Fatalf("expected %q, got %q", tt.text, text)
			}

			node, err := Parse(t.Context(), text, WithOptions(NoCache))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}

			got, err := Eval(t.Context(), node, nil, None)
			if err != nil {
				t.Fatalf("Eval failed: %v", err)
			}

			if !sameValue(got, tt.want) {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestFormatJSON(t *testing.T) {
	node, err := Parse(t.Context(), "1 + x", WithOptions(NoCache))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var buf bytes.Buffer
	if err := FormatJSON(t.Context(), &buf, node, 0); err != nil {
		t.Fatalf("FormatJSON failed: %v", err)
	}

	want := `{"binary":"+","left":{"type":"int32","value":"1"},"right":{"identifier":"x"}}` + "\n"
	if buf.String() != want {
		t.Errorf("expected %s, got %s", want, buf.String())
	}
}

func TestFormatYAML(t *testing.T) {
	node, err := Parse(t.Context(), "f(x)", WithOptions(NoCache))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var buf bytes.Buffer
	if err := FormatYAML(t.Context(), &buf, node, 2); err != nil {
		t.Fatalf("FormatYAML failed: %v", err)
	}

	for _, want := range []string{"function: f", "identifier: x"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, buf.String())
		}
	}
}

func TestFormat(t *testing.T) {
	node, err := Parse(t.Context(), "a&&b", WithOptions(NoCache))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var buf bytes.Buffer
	if err := Format(t.Context(), &buf, node); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	if got, want := buf.String(), "a and b\n"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestBuiltins(t *testing.T) {
	names := Builtins()
	if len(names) != int(builtinCount) {
		t.Fatalf("expected %d names, got %d", builtinCount, len(names))
	}

	for _, name := range names {
		b, ok := LookupBuiltin(name, false)
		if !ok || b.String() != name {
			t.Errorf("expected %q to resolve to itself", name)
		}

		if _, ok := LookupBuiltin(strings.ToUpper(name), true); !ok {
			t.Errorf("expected %q to resolve ignoring case", name)
		}
	}

	if lo, hi := BuiltinRound.Arity(); lo != 1 || hi != 2 {
		t.Errorf("expected Round arity 1..2, got %d..%d", lo, hi)
	}

	if lo, hi := BuiltinIn.Arity(); lo != 2 || hi != -1 {
		t.Errorf("expected variadic in, got %d..%d", lo, hi)
	}
}
