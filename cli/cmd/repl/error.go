package repl

import "github.com/ardnew/formula/pkg"

var (
	ErrInvalidBinding = pkg.MakeError("invalid binding")
	ErrUnknownCommand = pkg.MakeError("unknown command")
)
