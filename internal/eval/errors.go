package eval

import (
	"errors"
	"fmt"
)

// Messages reported for domain and input failures.
const (
	MsgEmpty            = "Expression cannot be empty"
	MsgDivideByZero     = "Cannot divide by zero"
	MsgNegativeSqrt     = "Cannot calculate square root of negative number"
	MsgLogDomain        = "Logarithm input must be positive"
	MsgAsinDomain       = "Arcsine input must be between -1 and 1"
	MsgAcosDomain       = "Arccosine input must be between -1 and 1"
	MsgFactorialDomain  = "Factorial input must be a non-negative integer"
	MsgNotFinite        = "Result is not a finite number"
	syntaxErrorTemplate = "Syntax error: %s at position %d"
)

// Error is an evaluation failure. Msg is meant to be shown to the user
// verbatim.
type Error struct {
	Msg string
	Pos int // byte offset in the expression, -1 when not tied to one
}

func (e *Error) Error() string { return e.Msg }

func domainError(msg string) *Error {
	return &Error{Msg: msg, Pos: -1}
}

func syntaxError(pos int, format string, args ...any) *Error {
	return &Error{
		Msg: fmt.Sprintf(syntaxErrorTemplate, fmt.Sprintf(format, args...), pos),
		Pos: pos,
	}
}

// IsError reports whether err is an evaluation failure.
func IsError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
