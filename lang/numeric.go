package lang

import (
	"log/slog"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// widen returns the type in which an operation over numeric operands of
// types a and b is carried out: the higher-ranked of the two.
func widen(a, b Type) Type {
	if a > b {
		return a
	}

	return b
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case int64:
		return x
	case float32:
		return int64(x)
	case float64:
		return int64(x)
	case decimal.Decimal:
		return x.IntPart()
	case bool:
		if x {
			return 1
		}
	}

	return 0
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case decimal.Decimal:
		return x.InexactFloat64()
	case bool:
		if x {
			return 1
		}
	}

	return 0
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case int32:
		return decimal.NewFromInt32(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return decimal.Zero, ErrTypeMismatch.Wrapf("non-finite value has no decimal form")
		}

		return decimal.NewFromFloat32(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, ErrTypeMismatch.Wrapf("non-finite value has no decimal form")
		}

		return decimal.NewFromFloat(x), nil
	case decimal.Decimal:
		return x, nil
	case bool:
		if x {
			return decimal.NewFromInt(1), nil
		}

		return decimal.Zero, nil
	}

	return decimal.Zero, ErrTypeMismatch.With(slog.String("type", TypeOf(v).String()))
}

// convertNumber converts a numeric value to numeric type t.
// Narrowing conversions truncate toward zero.
func convertNumber(v any, t Type) (any, error) {
	if TypeOf(v) == t {
		return v, nil
	}

	switch t {
	case TypeInt32:
		return int32(toInt64(v)), nil
	case TypeInt64:
		return toInt64(v), nil
	case TypeFloat32:
		return float32(toFloat64(v)), nil
	case TypeFloat64:
		return toFloat64(v), nil
	case TypeDecimal:
		return toDecimal(v)
	}

	return nil, ErrTypeMismatch.With(
		slog.String("from", TypeOf(v).String()),
		slog.String("to", t.String()),
	)
}

// parseNumber interprets a string as a decimal number.
func parseNumber(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))

	return d, err == nil
}

// numericOperand coerces v for use in arithmetic.
// Booleans are accepted as 1 and 0 only with [BooleanCalculation]; strings
// are accepted when they spell a number.
func numericOperand(v any, opts EvaluateOptions) (any, Type, error) {
	t := TypeOf(v)

	switch {
	case t.IsNumeric():
		return v, t, nil
	case t == TypeBoolean && opts.Has(BooleanCalculation):
		if v.(bool) {
			return int32(1), TypeInt32, nil
		}

		return int32(0), TypeInt32, nil
	case t == TypeString:
		if d, ok := parseNumber(v.(string)); ok {
			return d, TypeDecimal, nil
		}
	}

	return nil, t, ErrTypeMismatch.With(
		slog.String("operand", t.String()),
		slog.String("expected", "number"),
	)
}

// applyNumeric applies an arithmetic, bitwise or comparison operator to two
// numeric values already converted to type t.
func applyNumeric(op BinaryOp, t Type, a, b any) (any, error) {
	switch t {
	case TypeInt32:
		return integerOp(op, a.(int32), b.(int32))
	case TypeInt64:
		return integerOp(op, a.(int64), b.(int64))
	case TypeFloat32:
		return floatOp(op, a.(float32), b.(float32))
	case TypeFloat64:
		return floatOp(op, a.(float64), b.(float64))
	case TypeDecimal:
		return decimalOp(op, a.(decimal.Decimal), b.(decimal.Decimal))
	}

	return nil, ErrTypeMismatch.With(slog.String("operand", t.String()))
}

func integerOp[T int32 | int64](op BinaryOp, a, b T) (any, error) {
	switch op {
	case OpPlus:
		return a + b, nil
	case OpMinus:
		return a - b, nil
	case OpTimes:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return nil, ErrDivideByZero
		}

		return float64(a) / float64(b), nil
	case OpModulo:
		if b == 0 {
			return nil, ErrDivideByZero
		}

		return a % b, nil
	case OpBitwiseAnd:
		return a & b, nil
	case OpBitwiseOr:
		return a | b, nil
	case OpBitwiseXor:
		return a ^ b, nil
	case OpLeftShift, OpRightShift:
		if b < 0 {
			return nil, ErrInvalidArgument.Wrapf("negative shift count")
		}

		if op == OpLeftShift {
			return a << uint64(b), nil
		}

		return a >> uint64(b), nil
	}

	return compareResult(op, cmpOrdered(a, b))
}

func floatOp[T float32 | float64](op BinaryOp, a, b T) (any, error) {
	switch op {
	case OpPlus:
		return a + b, nil
	case OpMinus:
		return a - b, nil
	case OpTimes:
		return a * b, nil
	case OpDiv:
		return a / b, nil
	case OpModulo:
		return T(math.Mod(float64(a), float64(b))), nil
	case OpBitwiseAnd, OpBitwiseOr, OpBitwiseXor, OpLeftShift, OpRightShift:
		return nil, ErrTypeMismatch.With(
			slog.String("operator", op.String()),
			slog.String("expected", "integer"),
		)
	}

	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return op == OpNotEqual, nil
	}

	return compareResult(op, cmpOrdered(a, b))
}

func decimalOp(op BinaryOp, a, b decimal.Decimal) (any, error) {
	switch op {
	case OpPlus:
		return a.Add(b), nil
	case OpMinus:
		return a.Sub(b), nil
	case OpTimes:
		return a.Mul(b), nil
	case OpDiv:
		if b.IsZero() {
			return nil, ErrDivideByZero
		}

		return a.Div(b), nil
	case OpModulo:
		if b.IsZero() {
			return nil, ErrDivideByZero
		}

		return a.Mod(b), nil
	case OpBitwiseAnd, OpBitwiseOr, OpBitwiseXor, OpLeftShift, OpRightShift:
		return nil, ErrTypeMismatch.With(
			slog.String("operator", op.String()),
			slog.String("expected", "integer"),
		)
	}

	return compareResult(op, a.Cmp(b))
}

func cmpOrdered[T int32 | int64 | float32 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareResult maps a three-way comparison onto a comparison operator.
func compareResult(op BinaryOp, c int) (any, error) {
	switch op {
	case OpEqual:
		return c == 0, nil
	case OpNotEqual:
		return c != 0, nil
	case OpLesser:
		return c < 0, nil
	case OpLesserOrEqual:
		return c <= 0, nil
	case OpGreater:
		return c > 0, nil
	case OpGreaterOrEqual:
		return c >= 0, nil
	}

	return nil, ErrTypeMismatch.With(slog.String("operator", op.String()))
}

// applyBinary applies a strict (non-short-circuit) binary operator to two
// evaluated operands.
func applyBinary(op BinaryOp, l, r any, opts EvaluateOptions) (any, error) {
	lt, rt := TypeOf(l), TypeOf(r)

	switch {
	case op == OpAnd || op == OpOr:
		lb, lok := l.(bool)
		rb, rok := r.(bool)

		if !lok || !rok {
			return nil, ErrTypeMismatch.With(
				slog.String("operator", op.String()),
				slog.String("left", lt.String()),
				slog.String("right", rt.String()),
			)
		}

		if op == OpAnd {
			return lb && rb, nil
		}

		return lb || rb, nil

	case op.isComparison():
		return compareValues(op, l, r, opts)

	case op == OpPlus && (lt == TypeString || rt == TypeString):
		return concatOrAdd(l, r, opts)
	}

	a, at, err := numericOperand(l, opts)
	if err != nil {
		return nil, err
	}

	b, bt, err := numericOperand(r, opts)
	if err != nil {
		return nil, err
	}

	t := widen(at, bt)

	if a, err = convertNumber(a, t); err != nil {
		return nil, err
	}

	if b, err = convertNumber(b, t); err != nil {
		return nil, err
	}

	return applyNumeric(op, t, a, b)
}

// concatOrAdd implements "+" when at least one operand is a string.
// A string that spells a number added to a number yields a decimal sum;
// otherwise the textual forms are concatenated.
func concatOrAdd(l, r any, opts EvaluateOptions) (any, error) {
	lt, rt := TypeOf(l), TypeOf(r)

	if lt == TypeString && rt == TypeString {
		return l.(string) + r.(string), nil
	}

	if lt.IsNumeric() || rt.IsNumeric() {
		a, _, lerr := numericOperand(l, opts)
		b, _, rerr := numericOperand(r, opts)

		if lerr == nil && rerr == nil {
			da, err := toDecimal(a)
			if err != nil {
				return nil, err
			}

			db, err := toDecimal(b)
			if err != nil {
				return nil, err
			}

			return da.Add(db), nil
		}
	}

	return Text(l) + Text(r), nil
}

// compareValues implements the equality and relational operators.
//
// A null operand is equal only to another null and is neither less nor
// greater than anything.
func compareValues(op BinaryOp, l, r any, opts EvaluateOptions) (any, error) {
	lt, rt := TypeOf(l), TypeOf(r)

	if lt == TypeNull || rt == TypeNull {
		switch op {
		case OpEqual:
			return lt == rt, nil
		case OpNotEqual:
			return lt != rt, nil
		default:
			return false, nil
		}
	}

	switch {
	case lt == TypeString && rt == TypeString:
		a, b := l.(string), r.(string)
		if opts.Has(IgnoreCase) {
			a, b = strings.ToLower(a), strings.ToLower(b)
		}

		return compareResult(op, cmpOrdered(a, b))

	case lt == TypeBoolean && rt == TypeBoolean:
		return compareResult(op, cmpBool(l.(bool), r.(bool)))

	case lt == TypeDateTime || rt == TypeDateTime:
		a, aerr := asDate(l)
		b, berr := asDate(r)

		if aerr != nil || berr != nil {
			return nil, ErrTypeMismatch.
				With(slog.String("left", lt.String()), slog.String("right", rt.String())).
				Wrapf("malformed date comparison")
		}

		return compareResult(op, a.Compare(b))

	case lt == TypeSequence || rt == TypeSequence || lt == TypeAny || rt == TypeAny:
		if op == OpEqual || op == OpNotEqual {
			return compareResult(op, boolCmp(reflect.DeepEqual(l, r)))
		}
	}

	a, at, err := numericOperand(l, opts)
	if err != nil {
		return nil, err
	}

	b, bt, err := numericOperand(r, opts)
	if err != nil {
		return nil, err
	}

	t := widen(at, bt)

	if a, err = convertNumber(a, t); err != nil {
		return nil, err
	}

	if b, err = convertNumber(b, t); err != nil {
		return nil, err
	}

	return applyNumeric(op, t, a, b)
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	default:
		return 1
	}
}

// boolCmp maps an identity test onto a three-way comparison result.
func boolCmp(same bool) int {
	if same {
		return 0
	}

	return 1
}

func asDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return parseDate(x)
	}

	return time.Time{}, ErrTypeMismatch
}

// applyUnary applies a prefix operator to an evaluated operand.
func applyUnary(op UnaryOp, v any, opts EvaluateOptions) (any, error) {
	if op == OpNot {
		b, ok := v.(bool)
		if !ok {
			return nil, ErrTypeMismatch.With(
				slog.String("operator", op.String()),
				slog.String("operand", TypeOf(v).String()),
			)
		}

		return !b, nil
	}

	n, t, err := numericOperand(v, opts)
	if err != nil {
		return nil, err
	}

	switch op {
	case OpNegate:
		switch t {
		case TypeInt32:
			return -n.(int32), nil
		case TypeInt64:
			return -n.(int64), nil
		case TypeFloat32:
			return -n.(float32), nil
		case TypeFloat64:
			return -n.(float64), nil
		case TypeDecimal:
			return n.(decimal.Decimal).Neg(), nil
		}

	case OpBitwiseNot:
		switch t {
		case TypeInt32:
			return ^n.(int32), nil
		case TypeInt64:
			return ^n.(int64), nil
		}
	}

	return nil, ErrTypeMismatch.With(
		slog.String("operator", op.String()),
		slog.String("operand", t.String()),
	)
}
