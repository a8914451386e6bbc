package lang

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Node is an element of a parsed expression tree.
//
// Trees are immutable once built and may be shared between goroutines; the
// parse cache relies on this. String returns the canonical rendering of the
// subtree, which re-parses to an equivalent tree.
type Node interface {
	String() string

	// precedence returns the binding strength used to decide where the
	// canonical rendering needs parentheses.
	precedence() int
}

// Binding strengths, lowest first.
const (
	precTernary = iota + 1
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPrimary
)

// Value is a literal constant.
type Value struct {
	// Literal is one of bool, int32, int64, float32, float64,
	// decimal.Decimal, string or time.Time.
	Literal any
	Type    Type
}

// NewValue returns a literal node for v after normalizing it.
// It panics if v is not representable as a literal.
//
// Formula text has no float32 or decimal literal syntax. Such values render
// as plain numbers and parse back as the type the lexer picks for that text:
// int32, int64 or float64, and decimal only for integers beyond int64.
func NewValue(v any) *Value {
	v = Normalize(v)

	t := TypeOf(v)
	switch t {
	case TypeBoolean, TypeInt32, TypeInt64, TypeFloat32, TypeFloat64,
		TypeDecimal, TypeString, TypeDateTime:
		return &Value{Literal: v, Type: t}
	}

	panic("lang: value of type " + t.String() + " cannot be a literal")
}

// UnaryOp enumerates the prefix operators.
type UnaryOp int

// Enumerated unary operators.
const (
	OpNot UnaryOp = iota
	OpNegate
	OpBitwiseNot
)

// String returns the canonical spelling of the operator.
func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpNegate:
		return "-"
	case OpBitwiseNot:
		return "~"
	default:
		return "UnaryOp(" + strconv.Itoa(int(op)) + ")"
	}
}

// UnaryExpression applies a prefix operator to an operand.
type UnaryExpression struct {
	Operand Node
	Op      UnaryOp
}

// BinaryOp enumerates the infix operators.
type BinaryOp int

// Enumerated binary operators.
const (
	OpAnd BinaryOp = iota
	OpOr
	OpBitwiseAnd
	OpBitwiseOr
	OpBitwiseXor
	OpLeftShift
	OpRightShift
	OpEqual
	OpNotEqual
	OpLesser
	OpLesserOrEqual
	OpGreater
	OpGreaterOrEqual
	OpPlus
	OpMinus
	OpTimes
	OpDiv
	OpModulo
)

var binarySymbols = [...]string{
	OpAnd:            "and",
	OpOr:             "or",
	OpBitwiseAnd:     "&",
	OpBitwiseOr:      "|",
	OpBitwiseXor:     "^",
	OpLeftShift:      "<<",
	OpRightShift:     ">>",
	OpEqual:          "=",
	OpNotEqual:       "!=",
	OpLesser:         "<",
	OpLesserOrEqual:  "<=",
	OpGreater:        ">",
	OpGreaterOrEqual: ">=",
	OpPlus:           "+",
	OpMinus:          "-",
	OpTimes:          "*",
	OpDiv:            "/",
	OpModulo:         "%",
}

// String returns the canonical spelling of the operator.
func (op BinaryOp) String() string {
	if op >= 0 && int(op) < len(binarySymbols) {
		return binarySymbols[op]
	}

	return "BinaryOp(" + strconv.Itoa(int(op)) + ")"
}

func (op BinaryOp) precedence() int {
	switch op {
	case OpOr:
		return precOr
	case OpAnd:
		return precAnd
	case OpBitwiseOr:
		return precBitOr
	case OpBitwiseXor:
		return precBitXor
	case OpBitwiseAnd:
		return precBitAnd
	case OpEqual, OpNotEqual:
		return precEquality
	case OpLesser, OpLesserOrEqual, OpGreater, OpGreaterOrEqual:
		return precRelational
	case OpLeftShift, OpRightShift:
		return precShift
	case OpPlus, OpMinus:
		return precAdditive
	default:
		return precMultiplicative
	}
}

// isComparison reports whether op yields a boolean from two operands.
func (op BinaryOp) isComparison() bool {
	return op >= OpEqual && op <= OpGreaterOrEqual
}

// BinaryExpression applies an infix operator to two operands.
type BinaryExpression struct {
	Left  Node
	Right Node
	Op    BinaryOp
}

// TernaryExpression selects one of two branches on a boolean condition.
type TernaryExpression struct {
	Condition Node
	Then      Node
	Else      Node
}

// Identifier names a parameter.
type Identifier struct {
	Name string
}

// Function is a call of a built-in or custom function.
type Function struct {
	Name      string
	Arguments []Node
}

func (*Value) precedence() int             { return precPrimary }
func (*Identifier) precedence() int        { return precPrimary }
func (*Function) precedence() int          { return precPrimary }
func (*UnaryExpression) precedence() int   { return precUnary }
func (*TernaryExpression) precedence() int { return precTernary }
func (n *BinaryExpression) precedence() int {
	return n.Op.precedence()
}

// Walk calls fn for node and each of its descendants in depth-first order.
// If fn returns false the children of that node are skipped.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *UnaryExpression:
		Walk(n.Operand, fn)
	case *BinaryExpression:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *TernaryExpression:
		Walk(n.Condition, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *Function:
		for _, arg := range n.Arguments {
			Walk(arg, fn)
		}
	}
}

// Identifiers returns the distinct parameter names referenced by node in
// order of first appearance.
func Identifiers(node Node) []string {
	var names []string

	seen := make(map[string]struct{})

	Walk(node, func(n Node) bool {
		if id, ok := n.(*Identifier); ok {
			if _, dup := seen[id.Name]; !dup {
				seen[id.Name] = struct{}{}
				names = append(names, id.Name)
			}
		}

		return true
	})

	return names
}

// literal helpers used by the parser and tests.

func boolValue(b bool) *Value { return &Value{Literal: b, Type: TypeBoolean} }

func literalOf(tok token) *Value {
	switch v := tok.value.(type) {
	case int32:
		return &Value{Literal: v, Type: TypeInt32}
	case int64:
		return &Value{Literal: v, Type: TypeInt64}
	case decimal.Decimal:
		return &Value{Literal: v, Type: TypeDecimal}
	case float64:
		return &Value{Literal: v, Type: TypeFloat64}
	case string:
		return &Value{Literal: v, Type: TypeString}
	case time.Time:
		return &Value{Literal: v, Type: TypeDateTime}
	}

	return nil
}
