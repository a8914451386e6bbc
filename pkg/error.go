package pkg

import (
	"errors"
	"slices"
	"strings"
)

// Error is a chain of errors. Messages read from the outermost context to
// the underlying cause.
type Error []error

// Sentinel errors of the formula command. Test with [errors.Is].
var (
	ErrCreateDir        = MakeError("create directory")
	ErrReadInput        = MakeError("read input")
	ErrNoInput          = MakeError("no formula given")
	ErrInvalidParameter = MakeError("invalid parameter")
	ErrReadParameters   = MakeError("read parameter file")
	ErrInvalidFormat    = MakeError("invalid format")
	ErrMarshal          = MakeError("marshal result")
)

// MakeError returns a single-element chain holding a new error with the
// given message.
func MakeError(msg string) Error {
	return Error{errors.New(msg)}
}

// Error joins the messages of the chain with ": ".
func (e Error) Error() string {
	msgs := make([]string, 0, len(e))

	for _, err := range e {
		msgs = append(msgs, err.Error())
	}

	return strings.Join(msgs, ": ")
}

// Wrap returns a new chain with the non-nil errs appended after the
// receiver's errors.
func (e Error) Wrap(errs ...error) Error {
	out := slices.Clip(e)

	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}

	return out
}

func (e Error) Unwrap() []error { return e }

// Is reports whether every error of target, which must be an Error, appears
// in the receiver.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok || len(t) == 0 {
		return false
	}

	for _, want := range t {
		if !slices.Contains(e, want) {
			return false
		}
	}

	return true
}
