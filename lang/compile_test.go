package lang

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

type lambdaContext struct {
	FieldA int
	FieldB string
	FieldC decimal.Decimal
	FieldD *decimal.Decimal
	FieldE *int
}

var errNegative = errors.New("negative input")

func (c *lambdaContext) Test(a, b int) int { return a + b }

func (c *lambdaContext) Test_Str(a, b string) string { return a + b }

func (c *lambdaContext) Test_3(a, b, d int) int { return a + b + d }

func (c *lambdaContext) Sum(nums ...int) int {
	total := 0
	for _, n := range nums {
		total += n
	}

	return total
}

func (c *lambdaContext) Sum_Msg(msg string, nums ...int) string {
	return msg + strconv.Itoa(c.Sum(nums...))
}

func (c *lambdaContext) Check(x int) (int, error) {
	if x < 0 {
		return 0, errNegative
	}

	return x, nil
}

func newLambdaContext() *lambdaContext {
	d := decimal.NewFromInt(2)
	e := 4

	return &lambdaContext{
		FieldA: 7,
		FieldB: "test",
		FieldC: decimal.RequireFromString("1.5"),
		FieldD: &d,
		FieldE: &e,
	}
}

func compileWith[R any](t *testing.T, source string, opts ...Option) func(*lambdaContext) (R, error) {
	t.Helper()

	fn, err := Compile[*lambdaContext, R](t.Context(), NewExpression(source, opts...))
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", source, err)
	}

	return fn
}

func TestCompile_Overloads(t *testing.T) {
	ctx := newLambdaContext()

	ints := []struct {
		input string
		want  int
	}{
		{"Test(1, 2)", 3},
		{"Test(Test(1, 2), 3, 4)", 10},
		{"Sum(1, 2, 3)", 6},
		{"Sum()", 0},
		{"Test(FieldA, 1)", 8},
	}

	for _, tt := range ints {
		t.Run(tt.input, func(t *testing.T) {
			got, err := compileWith[int](t, tt.input)(ctx)
			if err != nil {
				t.Fatalf("call failed: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}

	strs := []struct {
		input string
		want  string
	}{
		{"Test('Hello', ' world!')", "Hello world!"},
		{"Sum('Your total is: ', Test(1, 1), 2, 3)", "Your total is: 7"},
		{"Sum('none')", "none0"},
	}

	for _, tt := range strs {
		t.Run(tt.input, func(t *testing.T) {
			got, err := compileWith[string](t, tt.input)(ctx)
			if err != nil {
				t.Fatalf("call failed: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCompile_Fields(t *testing.T) {
	ctx := newLambdaContext()

	ok, err := compileWith[bool](t, "FieldA > 5 && FieldB = 'test'")(ctx)
	if err != nil || !ok {
		t.Errorf("expected true, got %v, %v", ok, err)
	}

	d, err := compileWith[decimal.Decimal](t, "FieldC * 2")(ctx)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}

	if !d.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected 3, got %v", d)
	}
}

func TestCompile_NullableFields(t *testing.T) {
	gt := compileWith[bool](t, "FieldD > 0")
	plus := compileWith[any](t, "FieldE + 1")

	ctx := newLambdaContext()

	if v, err := gt(ctx); err != nil || !v {
		t.Errorf("expected true for set field, got %v, %v", v, err)
	}

	if v, err := plus(ctx); err != nil || v != int64(5) {
		t.Errorf("expected 5 for set field, got %v (%T), %v", v, v, err)
	}

	ctx.FieldD, ctx.FieldE = nil, nil

	if v, err := gt(ctx); err != nil || v {
		t.Errorf("expected false for nil field, got %v, %v", v, err)
	}

	if v, err := plus(ctx); err != nil || v != nil {
		t.Errorf("expected nil for nil field, got %v, %v", v, err)
	}
}

func TestCompile_Parameters(t *testing.T) {
	fn := compileWith[int](t, "FieldA * rate",
		WithParameters(map[string]any{"rate": 2}))

	v, err := fn(newLambdaContext())
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}

	if v != 14 {
		t.Errorf("expected 14, got %d", v)
	}

	e := NewExpression("area * 2")
	e.Parameters["area"] = NewExpression("w * h",
		WithParameters(map[string]any{"w": 2, "h": 3}))

	area, err := CompileFunc[int](t.Context(), e)
	if err != nil {
		t.Fatalf("CompileFunc failed: %v", err)
	}

	if v, err := area(); err != nil || v != 12 {
		t.Errorf("expected 12, got %v, %v", v, err)
	}
}

func TestCompile_UnlimitedDepth(t *testing.T) {
	e := NewExpression("x * 2", WithMaxDepth(0))
	e.Parameters["x"] = NewExpression("1 + 1")

	fn, err := CompileFunc[int](t.Context(), e)
	if err != nil {
		t.Fatalf("CompileFunc failed: %v", err)
	}

	if v, err := fn(); err != nil || v != 4 {
		t.Errorf("expected 4, got %v, %v", v, err)
	}
}

func TestCompileFunc_Results(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"10 / 4", 2.5},
		{"Round(Pow(2, 3) / 3, 2)", 2.67},
		{"if(true, 1, 1 / 0)", 1},
		{"Max(1, 2.5)", 2.5},
		{"-Abs(-1.5)", -1.5},
		{"true ? 1 : 2.5", 1},
		{"Sign(-3) * 2", -2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			fn, err := CompileFunc[float64](t.Context(), NewExpression(tt.input))
			if err != nil {
				t.Fatalf("CompileFunc failed: %v", err)
			}

			got, err := fn()
			if err != nil {
				t.Fatalf("call failed: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	half, err := CompileFunc[int](t.Context(), NewExpression("10 / 2"))
	if err != nil {
		t.Fatalf("CompileFunc failed: %v", err)
	}

	if v, err := half(); err != nil || v != 5 {
		t.Errorf("expected 5, got %v, %v", v, err)
	}

	in, err := CompileFunc[bool](t.Context(), NewExpression("in(3, 1, 2, 3, 1 / 0)"))
	if err != nil {
		t.Fatalf("CompileFunc failed: %v", err)
	}

	if v, err := in(); err != nil || !v {
		t.Errorf("expected true, got %v, %v", v, err)
	}

	concat, err := CompileFunc[string](t.Context(), NewExpression("'a' + 'b'"))
	if err != nil {
		t.Fatalf("CompileFunc failed: %v", err)
	}

	if v, err := concat(); err != nil || v != "ab" {
		t.Errorf("expected %q, got %q, %v", "ab", v, err)
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"Test('a', 1)", ErrNoOverload},
		{"Nope(1)", ErrUnknownFunction},
		{"missing + 1", ErrUnknownParameter},
		{"true + 1", ErrTypeMismatch},
		{"1.5 & 1", ErrTypeMismatch},
		{"1 ? 2 : 3", ErrTypeMismatch},
		{"Abs(1, 2)", ErrArgumentCount},
		{"Sqrt(true)", ErrInvalidArgument},
		{"FieldB", ErrResultType},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Compile[*lambdaContext, int](t.Context(), NewExpression(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}

			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Errorf("expected *CompileError, got %T: %v", err, err)
			}

			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	var se *SyntaxError
	if _, err := CompileFunc[int](t.Context(), NewExpression("1 +")); !errors.As(err, &se) {
		t.Errorf("expected *SyntaxError, got %v", err)
	}
}

func TestCompile_RuntimeErrors(t *testing.T) {
	ctx := newLambdaContext()
	ctx.FieldA = 0

	if _, err := compileWith[float64](t, "10 / FieldA")(ctx); !errors.Is(err, ErrDivideByZero) {
		t.Errorf("expected ErrDivideByZero, got %v", err)
	}

	_, err := compileWith[int](t, "Check(-1)")(ctx)
	if !errors.Is(err, errNegative) {
		t.Errorf("expected method error, got %v", err)
	}

	var ee *EvaluationError
	if !errors.As(err, &ee) || ee.Node != "Check(-1)" {
		t.Errorf("expected *EvaluationError naming the call, got %v", err)
	}

	if v, err := compileWith[int](t, "Check(2)")(ctx); err != nil || v != 2 {
		t.Errorf("expected 2, got %v, %v", v, err)
	}
}

func TestCompile_IgnoreCase(t *testing.T) {
	fn := compileWith[int](t, "fielda + test(1, 1)", WithOptions(IgnoreCase))

	if v, err := fn(newLambdaContext()); err != nil || v != 9 {
		t.Errorf("expected 9, got %v, %v", v, err)
	}
}

func TestCompile_Catalog(t *testing.T) {
	catalog := CatalogFor[*lambdaContext]()

	if err := catalog.Register("Twice", func(x float64) float64 { return 2 * x }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := catalog.Register("Bad", 42); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for non-function, got %v", err)
	}

	if err := catalog.Register("Bad", func(chan int) int { return 0 }); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unsupported signature, got %v", err)
	}

	fn, err := Compile[*lambdaContext, float64](t.Context(),
		NewExpression("Twice(FieldA) + Test(1, 1)"), WithCatalog(catalog))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if v, err := fn(newLambdaContext()); err != nil || v != 16 {
		t.Errorf("expected 16, got %v, %v", v, err)
	}
}

func TestCompile_Concurrent(t *testing.T) {
	fn := compileWith[string](t, "Sum('total: ', FieldA, Test(1, 2))")

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Go(func() {
			ctx := newLambdaContext()
			ctx.FieldA = i

			v, err := fn(ctx)
			if err != nil {
				t.Error(err)

				return
			}

			if want := "total: " + strconv.Itoa(i+3); v != want {
				t.Errorf("expected %q, got %q", want, v)
			}
		})
	}

	wg.Wait()
}

func TestResolve(t *testing.T) {
	intPair := &Method{Name: "f", Params: []Type{TypeInt64, TypeInt64}}
	floatPair := &Method{Name: "f", Params: []Type{TypeFloat64, TypeFloat64}}
	rest := &Method{Name: "g", Params: []Type{TypeInt64}, Variadic: true}
	fixedRest := &Method{Name: "g", Params: []Type{TypeInt64, TypeInt64}, Variadic: true}

	tests := []struct {
		name      string
		overloads []*Method
		args      []Type
		want      *Method
	}{
		{"exact", []*Method{floatPair, intPair}, []Type{TypeInt64, TypeInt64}, intPair},
		{"fewest_widenings", []*Method{floatPair, intPair}, []Type{TypeInt64, TypeInt32}, intPair},
		{"tie_declaration_order", []*Method{floatPair, intPair}, []Type{TypeInt32, TypeInt32}, floatPair},
		{"no_narrowing", []*Method{intPair, floatPair}, []Type{TypeFloat64, TypeInt32}, floatPair},
		{"variadic_more_fixed", []*Method{rest, fixedRest}, []Type{TypeInt64, TypeInt64}, fixedRest},
		{"variadic_only_rest", []*Method{rest, fixedRest}, []Type{TypeInt64}, fixedRest},
		{"variadic_empty", []*Method{rest, fixedRest}, nil, rest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolve(tt.overloads, tt.args)
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want.Params, got.Params)
			}
		})
	}

	if _, err := resolve([]*Method{intPair}, []Type{TypeString, TypeInt32}); !errors.Is(err, ErrNoOverload) {
		t.Errorf("expected ErrNoOverload, got %v", err)
	}
}
