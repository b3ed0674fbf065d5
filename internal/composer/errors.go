package composer

import "errors"

// StructuralError reports a buffer that cannot be submitted as is. It is
// detected locally and never retried: the user has to edit the buffer.
type StructuralError struct {
	Message string
}

func (e *StructuralError) Error() string { return e.Message }

var (
	// ErrUnmatchedParentheses means the open and close counts differ.
	ErrUnmatchedParentheses = &StructuralError{Message: "Unmatched parentheses"}
	// ErrIncompleteExpression means the buffer ends with a binary operator.
	ErrIncompleteExpression = &StructuralError{Message: "Incomplete expression"}
)

// ErrEmpty is returned by Validate for an empty buffer; submitting it is a
// no-op rather than an error display.
var ErrEmpty = errors.New("empty expression")

// IsStructural reports whether err is a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}
