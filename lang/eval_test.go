package lang

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestEvaluate_Fixtures(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		// arithmetic
		{"2 + 3 + 5", int32(10)},
		{"2 * 3 + 5", int32(11)},
		{"2 * (3 + 5)", int32(16)},
		{"2 * (2*(2*(2+1)))", int32(24)},
		{"10 % 12", int32(10)},
		{"1 / 2", 0.5},
		{"4 / 2", 2.0},
		{"1.5 * 2", 3.0},
		{"-(1 + 2)", int32(-3)},
		{"40000000000 + 1", int64(40000000001)},
		{"99999999999999999999 + 1", decimal.RequireFromString("100000000000000000000")},
		{"1.0 / 0", math.Inf(1)},

		// bitwise
		{"1 & 3", int32(1)},
		{"1 | 2", int32(3)},
		{"1 ^ 3", int32(2)},
		{"1 << 2", int32(4)},
		{"8 >> 1", int32(4)},
		{"~0", int32(-1)},

		// logic and comparison
		{"true or false", true},
		{"not true", false},
		{"!(1 = 1)", false},
		{"true and 1 = 1", true},
		{"3 > 2", true},
		{"1 = 1.0", true},
		{"1 <> 2", true},
		{"2 >= 2 && 2 <= 1", false},
		{"(0=1500000)||(((0+2200000000)-1500000)<0)", false},
		{"'abc' = 'ABC'", false},
		{"'abc' < 'abd'", true},
		{"true > false", true},
		{"#1/1/2009# = #1/1/2009#", true},
		{"#1/1/2009# < '2/1/2009'", true},
		{"3 > 2 ? 'yes' : 'no'", "yes"},

		// strings
		{"'a' + 'b'", "ab"},
		{"1 + '2'", decimal.NewFromInt(3)},
		{"'one' + 2", "one2"},
		{"'x' + true", "xTrue"},
		{"'1.5' * 2", decimal.NewFromInt(3)},

		// built-ins
		{"Abs(-1)", decimal.NewFromInt(1)},
		{"Abs(-1.5)", decimal.RequireFromString("1.5")},
		{"Acos(1)", 0.0},
		{"Asin(0)", 0.0},
		{"Atan(0)", 0.0},
		{"Ceiling(1.5)", 2.0},
		{"Cos(0)", 1.0},
		{"Exp(0)", 1.0},
		{"Floor(1.5)", 1.0},
		{"IEEERemainder(3, 2)", -1.0},
		{"Log(1, 10)", 0.0},
		{"Log10(1)", 0.0},
		{"Max(1, 2)", int32(2)},
		{"Min(1, 2.5)", 1.0},
		{"Pow(3, 2)", 9.0},
		{"Round(3.222, 2)", 3.22},
		{"Round(2.5)", 2.0},
		{"Round(3.5)", 4.0},
		{"Sign(-10)", int32(-1)},
		{"Sign(0)", int32(0)},
		{"Sin(0)", 0.0},
		{"Sqrt(4)", 2.0},
		{"Tan(0)", 0.0},
		{"Truncate(1.7)", 1.0},
		{"if(true, 1, 0)", int32(1)},
		{"if(1 > 2, 'a', 'b')", "b"},
		{"in(1 + 1, 1, 2, 3)", true},
		{"in('z', 'a', 'b')", false},

		// laziness
		{"if(true, 1, 1/0)", int32(1)},
		{"in((2+2), 1, 4, 1/0)", true},
		{"false and 1/0 = 1", false},
		{"true or 1/0 = 1", true},
		{"true ? 1 : 1/0", int32(1)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Evaluate(t.Context(), tt.input, nil)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}

			if !sameValue(got, tt.want) {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"1 / 0", ErrDivideByZero},
		{"1 % 0", ErrDivideByZero},
		{"1.5 / Abs(0)", ErrDivideByZero},
		{"unknown(1)", ErrUnknownFunction},
		{"x + 1", ErrUnknownParameter},
		{"Abs(1, 2)", ErrArgumentCount},
		{"if(true, 1)", ErrArgumentCount},
		{"true + 1", ErrTypeMismatch},
		{"'a' > 1", ErrTypeMismatch},
		{"1 ? 2 : 3", ErrTypeMismatch},
		{"1 and true", ErrTypeMismatch},
		{"1.5 & 1", ErrTypeMismatch},
		{"!1", ErrTypeMismatch},
		{"#1/1/2009# = 'tomorrow-ish'", ErrTypeMismatch},
		{"Sqrt('abc')", ErrInvalidArgument},
		{"Round(1.5, 99)", ErrInvalidArgument},
		{"1 << -1", ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Evaluate(t.Context(), tt.input, nil)
			if err == nil {
				t.Fatal("expected error")
			}

			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}

			var ee *EvaluationError
			if !errors.As(err, &ee) {
				t.Errorf("expected *EvaluationError, got %T", err)
			}
		})
	}
}

func TestEvaluate_ErrorNamesNode(t *testing.T) {
	_, err := Evaluate(t.Context(), "2 * (x + 1)", nil)

	var ee *EvaluationError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EvaluationError, got %T: %v", err, err)
	}

	if ee.Node != "x" {
		t.Errorf("expected failing node %q, got %q", "x", ee.Node)
	}
}

func TestEvaluate_Options(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		options EvaluateOptions
		want    any
	}{
		{"boolean_calculation", "true + 1", BooleanCalculation, int32(2)},
		{"boolean_calculation_negate", "-false", BooleanCalculation, int32(0)},
		{"round_away", "Round(2.5)", RoundAwayFromZero, 3.0},
		{"round_away_negative", "Round(-2.5)", RoundAwayFromZero, -3.0},
		{"round_bank_negative", "Round(-2.5)", None, -2.0},
		{"ignore_case_strings", "'abc' = 'ABC'", IgnoreCase, true},
		{"ignore_case_functions", "ABS(-2)", IgnoreCase, decimal.NewFromInt(2)},
		{"ignore_case_keywords", "TRUE AND NOT FALSE", IgnoreCase, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(t.Context(), tt.input, nil, WithOptions(tt.options))
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}

			if !sameValue(got, tt.want) {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestEvaluate_NumericLattice(t *testing.T) {
	tests := []struct {
		name string
		x    any
		want any
	}{
		{"int32", int32(5), 2.5},
		{"int64", int64(5), 2.5},
		{"float32", float32(5), float32(2.5)},
		{"float64", float64(5), 2.5},
		{"decimal", decimal.NewFromInt(5), decimal.RequireFromString("2.5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(t.Context(), "x / 2", map[string]any{"x": tt.x})
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}

			if !sameValue(got, tt.want) {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestEvaluate_Parameters(t *testing.T) {
	params := map[string]any{
		"i":     3,
		"u":     uint16(7),
		"f":     float32(0.5),
		"name":  "world",
		"ok":    true,
		"when":  time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC),
		"nil":   nil,
		"ptr":   new(int),
		"1":     2,
		"2":     5,
		"price": decimal.RequireFromString("19.99"),
	}

	tests := []struct {
		input string
		want  any
	}{
		{"i + 1", int64(4)},
		{"u * 2", int32(14)},
		{"f + 1", float32(1.5)},
		{"'hello ' + name", "hello world"},
		{"ok && i > 2", true},
		{"when = #1/1/2009#", true},
		{"[nil] = [nil]", true},
		{"[nil] != 1", true},
		{"[nil] < 1", false},
		{"ptr", int64(0)},
		{"in((2+2), [1], [2], 1+2, 4, 1/0)", true},
		{"price * 2", decimal.RequireFromString("39.98")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Evaluate(t.Context(), tt.input, params)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}

			if !sameValue(got, tt.want) {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestEvaluate_IgnoreCaseParameters(t *testing.T) {
	got, err := Evaluate(t.Context(), "Total * 2", map[string]any{"total": 4},
		WithOptions(IgnoreCase))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if got != int64(8) {
		t.Errorf("expected 8, got %v (%T)", got, got)
	}

	if _, err := Evaluate(t.Context(), "Total * 2", map[string]any{"total": 4}); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("expected ErrUnknownParameter without IgnoreCase, got %v", err)
	}
}

func TestEval_Canceled(t *testing.T) {
	node, err := Parse(t.Context(), "Abs(1)", WithOptions(NoCache))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := Eval(ctx, node, nil, None); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
