package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
//
// The runtime kinds derive from [ErrRuntime], so a single
// errors.Is(err, ErrRuntime) matches any failure raised while rendering.
var (
	ErrSyntax    = NewError("syntax error")
	ErrRuntime   = NewError("runtime error")
	ErrReference = ErrRuntime.Derive("reference error")
	ErrType      = ErrRuntime.Derive("type error")
	ErrKey       = ErrRuntime.Derive("key error")
	ErrAttribute = ErrRuntime.Derive("attribute error")

	ErrMaxDepthExceeded = NewError("maximum nesting depth exceeded")
	ErrReadInput        = NewError("failed to read input")
	ErrRegistry         = NewError("invalid registry entry")
	ErrFormat           = NewError("cannot format template")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
//
// Sentinel values are created with [NewError] or [Error.Derive]. Every other
// method returns a new Error that still matches its sentinel with
// [errors.Is].
type Error struct {
	err    error       // Wrapped error (for errors.Unwrap)
	kind   *Error      // Sentinel this error was derived from
	parent *Error      // Broader sentinel this kind belongs to
	msg    string      // Kind message
	attrs  []slog.Attr // Attributes for structured logging
	line   int         // 1-based source line, 0 if unknown
}

// NewError creates a new sentinel Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// Derive creates a new sentinel Error that also matches e with [errors.Is].
func (e *Error) Derive(msg string) *Error {
	return &Error{msg: msg, parent: e.sentinel()}
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
//
// The message has the form "line <n>: <msg>: <err>", omitting the parts that
// are not set.
func (e *Error) Error() string {
	part := make([]string, 0, 3)

	if e.line > 0 {
		part = append(part, "line "+strconv.Itoa(e.line))
	}

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

// Is reports whether target is the sentinel e was derived from, or one of
// that sentinel's parents.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.kind != nil {
		return false
	}

	for k := e.sentinel(); k != nil; k = k.parent {
		if k == t {
			return true
		}
	}

	return false
}

// Line returns the source line recorded on e, or 0.
func (e *Error) Line() int { return e.line }

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+3)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.line > 0 {
		attrs = append(attrs, slog.Int("line", e.line))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	c := e.derive()
	c.err = err

	return c
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	c := e.derive()
	c.attrs = make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(c.attrs, e.attrs)
	copy(c.attrs[len(e.attrs):], attrs)

	return c
}

// At returns a copy of e recording the 1-based source line.
func (e *Error) At(line int) *Error {
	c := e.derive()
	c.line = line

	return c
}

func (e *Error) sentinel() *Error {
	if e.kind != nil {
		return e.kind
	}

	return e
}

func (e *Error) derive() *Error {
	c := *e
	c.kind = e.sentinel()

	return &c
}

// Line returns the source line carried by the first [Error] in err's chain
// that has one, or 0.
func Line(err error) int {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return 0
		}

		if e.line > 0 {
			return e.line
		}

		err = e.err
	}

	return 0
}

// atLine attaches line to err when err is an [Error] that has no line yet.
// Errors of any other type are returned unchanged.
func atLine(err error, line int) error {
	var e *Error
	if err == nil || !errors.As(err, &e) || e.line > 0 || line <= 0 {
		return err
	}

	if e != err {
		return err
	}

	return e.At(line)
}
