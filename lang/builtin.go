package lang

import (
	"log/slog"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Builtin enumerates the functions available to every expression.
type Builtin int

// Enumerated built-in functions.
const (
	BuiltinAbs Builtin = iota
	BuiltinAcos
	BuiltinAsin
	BuiltinAtan
	BuiltinCeiling
	BuiltinCos
	BuiltinExp
	BuiltinFloor
	BuiltinIEEERemainder
	BuiltinLog
	BuiltinLog10
	BuiltinMax
	BuiltinMin
	BuiltinPow
	BuiltinRound
	BuiltinSign
	BuiltinSin
	BuiltinSqrt
	BuiltinTan
	BuiltinTruncate
	BuiltinIf
	BuiltinIn
	builtinCount
)

// builtinInfo describes the name, arity and static result type of a
// built-in. A max of -1 means the function is variadic.
type builtinInfo struct {
	name     string
	min, max int
	result   Type
}

var builtinTable = [builtinCount]builtinInfo{
	BuiltinAbs:           {"Abs", 1, 1, TypeDecimal},
	BuiltinAcos:          {"Acos", 1, 1, TypeFloat64},
	BuiltinAsin:          {"Asin", 1, 1, TypeFloat64},
	BuiltinAtan:          {"Atan", 1, 1, TypeFloat64},
	BuiltinCeiling:       {"Ceiling", 1, 1, TypeFloat64},
	BuiltinCos:           {"Cos", 1, 1, TypeFloat64},
	BuiltinExp:           {"Exp", 1, 1, TypeFloat64},
	BuiltinFloor:         {"Floor", 1, 1, TypeFloat64},
	BuiltinIEEERemainder: {"IEEERemainder", 2, 2, TypeFloat64},
	BuiltinLog:           {"Log", 2, 2, TypeFloat64},
	BuiltinLog10:         {"Log10", 1, 1, TypeFloat64},
	BuiltinMax:           {"Max", 2, 2, TypeAny},
	BuiltinMin:           {"Min", 2, 2, TypeAny},
	BuiltinPow:           {"Pow", 2, 2, TypeFloat64},
	BuiltinRound:         {"Round", 1, 2, TypeAny},
	BuiltinSign:          {"Sign", 1, 1, TypeInt32},
	BuiltinSin:           {"Sin", 1, 1, TypeFloat64},
	BuiltinSqrt:          {"Sqrt", 1, 1, TypeFloat64},
	BuiltinTan:           {"Tan", 1, 1, TypeFloat64},
	BuiltinTruncate:      {"Truncate", 1, 1, TypeFloat64},
	BuiltinIf:            {"if", 3, 3, TypeAny},
	BuiltinIn:            {"in", 2, -1, TypeBoolean},
}

var (
	builtinByName = make(map[string]Builtin, builtinCount)
	builtinByFold = make(map[string]Builtin, builtinCount)
)

func init() {
	for b := range builtinCount {
		builtinByName[builtinTable[b].name] = b
		builtinByFold[strings.ToLower(builtinTable[b].name)] = b
	}
}

// LookupBuiltin returns the built-in function with the given name.
func LookupBuiltin(name string, ignoreCase bool) (Builtin, bool) {
	if ignoreCase {
		b, ok := builtinByFold[strings.ToLower(name)]

		return b, ok
	}

	b, ok := builtinByName[name]

	return b, ok
}

// Builtins returns the names of all built-in functions.
func Builtins() []string {
	names := make([]string, builtinCount)
	for b := range builtinCount {
		names[b] = builtinTable[b].name
	}

	return names
}

// String returns the name of the built-in.
func (b Builtin) String() string { return builtinTable[b].name }

// Arity returns the minimum and maximum number of arguments accepted by b.
// A max of -1 means any number of further arguments is accepted.
func (b Builtin) Arity() (minArgs, maxArgs int) {
	return builtinTable[b].min, builtinTable[b].max
}

// checkArity reports whether n arguments are acceptable for b.
func (b Builtin) checkArity(n int) error {
	info := builtinTable[b]
	if n < info.min || (info.max >= 0 && n > info.max) {
		return ErrArgumentCount.With(
			slog.String("function", info.name),
			slog.Int("given", n),
			slog.Int("min", info.min),
			slog.Int("max", info.max),
		)
	}

	return nil
}

// call applies an eager built-in to evaluated arguments.
func (b Builtin) call(args []any, opts EvaluateOptions) (any, error) {
	if err := b.checkArity(len(args)); err != nil {
		return nil, err
	}

	nums := make([]any, len(args))
	types := make([]Type, len(args))

	for i, arg := range args {
		n, t, err := numericOperand(arg, opts)
		if err != nil {
			return nil, ErrInvalidArgument.
				With(slog.String("function", b.String()), slog.Int("argument", i)).
				Wrap(err)
		}

		nums[i], types[i] = n, t
	}

	f := func(i int) float64 { return toFloat64(nums[i]) }

	switch b {
	case BuiltinAbs:
		d, err := toDecimal(nums[0])
		if err != nil {
			return nil, err
		}

		return d.Abs(), nil
	case BuiltinAcos:
		return math.Acos(f(0)), nil
	case BuiltinAsin:
		return math.Asin(f(0)), nil
	case BuiltinAtan:
		return math.Atan(f(0)), nil
	case BuiltinCeiling:
		return math.Ceil(f(0)), nil
	case BuiltinCos:
		return math.Cos(f(0)), nil
	case BuiltinExp:
		return math.Exp(f(0)), nil
	case BuiltinFloor:
		return math.Floor(f(0)), nil
	case BuiltinIEEERemainder:
		return math.Remainder(f(0), f(1)), nil
	case BuiltinLog:
		return math.Log(f(0)) / math.Log(f(1)), nil
	case BuiltinLog10:
		return math.Log10(f(0)), nil
	case BuiltinMax, BuiltinMin:
		return extremum(b == BuiltinMax, nums[0], types[0], nums[1], types[1])
	case BuiltinPow:
		return math.Pow(f(0), f(1)), nil
	case BuiltinRound:
		var digits int64
		if len(nums) > 1 {
			digits = toInt64(nums[1])
		}

		return round(nums[0], digits, opts.Has(RoundAwayFromZero))
	case BuiltinSign:
		return sign(nums[0]), nil
	case BuiltinSin:
		return math.Sin(f(0)), nil
	case BuiltinSqrt:
		return math.Sqrt(f(0)), nil
	case BuiltinTan:
		return math.Tan(f(0)), nil
	case BuiltinTruncate:
		return math.Trunc(f(0)), nil
	}

	return nil, ErrUnknownFunction.With(slog.String("function", b.String()))
}

// extremum returns the greater (or lesser) of two numbers in their widened
// type.
func extremum(greater bool, a any, at Type, b any, bt Type) (any, error) {
	t := widen(at, bt)

	a, err := convertNumber(a, t)
	if err != nil {
		return nil, err
	}

	b, err = convertNumber(b, t)
	if err != nil {
		return nil, err
	}

	gt, err := applyNumeric(OpGreater, t, a, b)
	if err != nil {
		return nil, err
	}

	if gt.(bool) == greater {
		return a, nil
	}

	return b, nil
}

// maxRoundDigits bounds the digits argument of Round.
const maxRoundDigits = 28

// round rounds x to the given number of fractional digits, resolving
// midpoints to the even neighbor unless away is set.
// Decimal inputs yield a decimal; all others yield float64.
func round(x any, digits int64, away bool) (any, error) {
	if digits < 0 || digits > maxRoundDigits {
		return nil, ErrInvalidArgument.With(
			slog.String("function", "Round"),
			slog.Int64("digits", digits),
		)
	}

	if f, ok := x.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return f, nil
	}

	d, err := toDecimal(x)
	if err != nil {
		return nil, err
	}

	var r decimal.Decimal
	if away {
		r = d.Round(int32(digits))
	} else {
		r = d.RoundBank(int32(digits))
	}

	if TypeOf(x) == TypeDecimal {
		return r, nil
	}

	return r.InexactFloat64(), nil
}

func sign(x any) int32 {
	if d, ok := x.(decimal.Decimal); ok {
		return int32(d.Sign())
	}

	switch f := toFloat64(x); {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}
