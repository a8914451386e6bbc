package lang

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies the runtime kind of a value flowing through evaluation.
//
// The numeric types are ordered by widening rank: an operation over two
// numeric operands is carried out in the higher-ranked of the two.
type Type int

// Enumerated value types.
const (
	TypeNull Type = iota
	TypeBoolean
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeDecimal
	TypeString
	TypeDateTime
	TypeSequence
	TypeAny
)

// String returns the name of the type.
func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeDecimal:
		return "decimal"
	case TypeString:
		return "string"
	case TypeDateTime:
		return "datetime"
	case TypeSequence:
		return "sequence"
	case TypeAny:
		return "any"
	default:
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
}

// IsNumeric reports whether t participates in arithmetic widening.
func (t Type) IsNumeric() bool { return t >= TypeInt32 && t <= TypeDecimal }

// IsInteger reports whether t is one of the integer types.
func (t Type) IsInteger() bool { return t == TypeInt32 || t == TypeInt64 }

// TypeOf returns the [Type] of a normalized value.
// Values not produced by [Normalize] may report [TypeAny].
func TypeOf(v any) Type {
	switch v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case int32:
		return TypeInt32
	case int64:
		return TypeInt64
	case float32:
		return TypeFloat32
	case float64:
		return TypeFloat64
	case decimal.Decimal:
		return TypeDecimal
	case string:
		return TypeString
	case time.Time:
		return TypeDateTime
	case []any:
		return TypeSequence
	default:
		return TypeAny
	}
}

// Normalize converts a host value into the canonical representation used by
// the evaluator.
//
// Narrow integers become int32, platform-sized and unsigned integers become
// int64 (or decimal when they do not fit), pointers are dereferenced (nil
// pointers become nil) and slices become []any with normalized elements.
// Values of any other kind are returned unchanged.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, int32, int64, float32, float64, string, time.Time,
		decimal.Decimal, *Expression:
		return v
	case int:
		return int64(x)
	case int8:
		return int32(x)
	case int16:
		return int32(x)
	case uint8:
		return int32(x)
	case uint16:
		return int32(x)
	case uint32:
		return int64(x)
	case uint:
		return normalizeUint(uint64(x))
	case uint64:
		return normalizeUint(x)
	case *decimal.Decimal:
		if x == nil {
			return nil
		}

		return *x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}

		return out
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}

		return Normalize(rv.Elem().Interface())

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}

		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}

		return out

	case reflect.Bool:
		return rv.Bool()
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return int32(rv.Int())
	case reflect.Int, reflect.Int64:
		return rv.Int()
	case reflect.Uint8, reflect.Uint16:
		return int32(rv.Uint())
	case reflect.Uint, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return normalizeUint(rv.Uint())
	case reflect.Float32:
		return float32(rv.Float())
	case reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	}

	return v
}

func normalizeUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}

	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)
}

// Text returns the textual form of a value used for string concatenation
// and for printing results.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}

		return "False"
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return formatDate(x)
	case []any:
		s := "["
		for i, e := range x {
			if i > 0 {
				s += ", "
			}

			s += Text(e)
		}

		return s + "]"
	case interface{ String() string }:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

const (
	dateLayout     = "01/02/2006"
	dateTimeLayout = "01/02/2006 15:04:05"
)

// formatDate renders a date-time the way date literals are written, omitting
// the clock when it is midnight.
func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 &&
		t.Nanosecond() == 0 {
		return t.Format(dateLayout)
	}

	return t.Format(dateTimeLayout)
}

// dateLiteral renders t so that it lexes back to the same instant. Whole
// seconds at a zero UTC offset keep the short form; anything else is written
// in RFC 3339 with its offset and fraction.
func dateLiteral(t time.Time) string {
	if _, offset := t.Zone(); offset == 0 && t.Nanosecond() == 0 {
		return formatDate(t)
	}

	return t.Format(time.RFC3339Nano)
}
