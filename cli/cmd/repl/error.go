package repl

import "github.com/ardnew/stencil/lang"

// ErrREPL is the kind of every error raised by the interactive shell itself,
// as opposed to errors from the templates it evaluates.
var ErrREPL = lang.NewError("repl")

// Sentinel errors.
var (
	ErrOutOfBounds     = ErrREPL.Derive("index out of range")
	ErrEditDeclined    = ErrREPL.Derive("decline edit")
	ErrUnknownCommand  = ErrREPL.Derive("unknown command")
	ErrSessionRequired = ErrREPL.Derive("repl requires a session")
)
