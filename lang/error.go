package lang

import (
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
var (
	ErrReadInput        = NewError("failed to read input")
	ErrMaxDepthExceeded = NewError("maximum nesting depth exceeded")
	ErrUnknownParameter = NewError("unknown parameter")
	ErrUnknownFunction  = NewError("unknown function")
	ErrTypeMismatch     = NewError("type mismatch")
	ErrDivideByZero     = NewError("division by zero")
	ErrArgumentCount    = NewError("wrong number of arguments")
	ErrInvalidArgument  = NewError("invalid argument")
	ErrNoOverload       = NewError("no matching overload")
	ErrResultType       = NewError("result type not representable")
	ErrIterate          = NewError("iterated parameters differ in length")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	// Build error message using the first available format,
	// depending on which fields are set:
	//
	//   1. "<msg>: <err>" // base and wrapped error both set
	//   2. "<msg>"        // wrapped error is nil
	//   3. "<err>"        // base error message is empty
	//   4. ""             // no fields are set
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel e was derived from.
// Errors produced by [Error.Wrap] and [Error.With] share the message of their
// sentinel, so errors.Is(err, ErrTypeMismatch) holds for all of them.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.msg != "" && t.msg == e.msg
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
	}
}

// Wrapf creates a new Error wrapping a plain message as its cause.
func (e *Error) Wrapf(detail string) *Error {
	return e.Wrap(errors.New(detail))
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// Position identifies a location in source text.
// Offset is a byte offset; Line and Column are 1-based, Column counts runes.
type Position struct {
	Offset int
	Line   int
	Column int
}

// String returns "line:column".
func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// LexError reports malformed input found while tokenizing.
type LexError struct {
	Pos    Position
	Reason string
	Source string
}

// Error implements the error interface.
func (e *LexError) Error() string {
	msg := "lex error at line " + strconv.Itoa(e.Pos.Line) +
		", column " + strconv.Itoa(e.Pos.Column) + ": " + e.Reason

	return msg + snippet(e.Source, e.Pos)
}

// LogValue implements slog.LogValuer.
func (e *LexError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", e.Reason),
		slog.Int("line", e.Pos.Line),
		slog.Int("column", e.Pos.Column),
	)
}

// SyntaxError reports a token sequence that does not match the grammar.
type SyntaxError struct {
	Pos      Position
	Found    string   // Description of the offending token
	Expected []string // Tokens or constructs that would have been accepted
	Source   string   // The original source input
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	var buf strings.Builder

	buf.WriteString("syntax error at line ")
	buf.WriteString(strconv.Itoa(e.Pos.Line))
	buf.WriteString(", column ")
	buf.WriteString(strconv.Itoa(e.Pos.Column))
	buf.WriteString(": unexpected ")
	buf.WriteString(e.Found)

	if len(e.Expected) > 0 {
		exp := slices.Clone(e.Expected)
		slices.Sort(exp)
		exp = slices.Compact(exp)

		buf.WriteString(", expected ")
		buf.WriteString(strings.Join(exp, " or "))
	}

	buf.WriteString(snippet(e.Source, e.Pos))

	return buf.String()
}

// LogValue implements slog.LogValuer.
func (e *SyntaxError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("found", e.Found),
		slog.Any("expected", e.Expected),
		slog.Int("line", e.Pos.Line),
		slog.Int("column", e.Pos.Column),
	)
}

// snippet renders the offending source line with a caret under pos.
// It returns the empty string when source is unavailable.
func snippet(source string, pos Position) string {
	if source == "" || pos.Line <= 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	if pos.Line > len(lines) {
		return ""
	}

	var src strings.Builder

	num := strconv.Itoa(pos.Line)

	src.WriteString("\n  ")
	src.WriteString(num)
	src.WriteString(" | ")
	src.WriteString(lines[pos.Line-1])
	src.WriteRune('\n')

	// +5 accounts for: 2 leading spaces + " | " (3 chars)
	padding := strings.Repeat(" ", len(num)+5)
	if pos.Column > 0 {
		padding += strings.Repeat(" ", pos.Column-1)
	}

	src.WriteString(padding + "^")

	return src.String()
}

// EvaluationError reports a failure while evaluating an expression tree.
// Node is the rendered form of the subexpression that failed.
type EvaluationError struct {
	Node string
	Err  error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	if e.Node == "" {
		return "evaluation failed: " + e.Err.Error()
	}

	return "evaluation of " + strconv.Quote(e.Node) + " failed: " + e.Err.Error()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *EvaluationError) Unwrap() error { return e.Err }

// LogValue implements slog.LogValuer.
func (e *EvaluationError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("node", e.Node),
		slog.Any("cause", e.Err),
	)
}

// CompileError reports a failure while compiling an expression tree into a
// native closure.
type CompileError struct {
	Node string
	Err  error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Node == "" {
		return "compile failed: " + e.Err.Error()
	}

	return "compile of " + strconv.Quote(e.Node) + " failed: " + e.Err.Error()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *CompileError) Unwrap() error { return e.Err }

// LogValue implements slog.LogValuer.
func (e *CompileError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("node", e.Node),
		slog.Any("cause", e.Err),
	)
}
