// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package composer implements the expression composition state machine
// behind the calculator keypad.
//
// A State is a plain value. Every transition is a method with a value
// receiver that returns the next State, so callers can test transitions
// without any rendering surface and hosts can serialize access however
// they like.
package composer

import (
	"strings"

	"nickandperla.net/calcpad/internal/token"
)

// ZeroDisplay is what the display shows for an empty buffer.
const ZeroDisplay = "0"

// ErrorPrefix starts every error display.
const ErrorPrefix = "Error: "

// Phase is the coarse submission state exposed to the display surface.
type Phase int

const (
	// Empty means the buffer holds nothing.
	Empty Phase = iota
	// Editing means the buffer is being composed.
	Editing
	// Result means the buffer holds the result of the last evaluation.
	Result
)

// String returns the string representation of a Phase.
func (p Phase) String() string {
	switch p {
	case Empty:
		return "EMPTY"
	case Editing:
		return "EDITING"
	case Result:
		return "RESULT"
	default:
		return "UNKNOWN"
	}
}

// State is the complete composer state.
type State struct {
	// Buffer is the canonical expression under construction.
	Buffer string
	// Display is what the user sees. It usually mirrors Buffer.
	Display string
	// JustCalculated is set right after a successful evaluation.
	JustCalculated bool
}

// New returns the empty state.
func New() State {
	return State{Display: ZeroDisplay}
}

// Phase reports the submission state.
func (s State) Phase() Phase {
	switch {
	case s.JustCalculated:
		return Result
	case s.Buffer == "":
		return Empty
	default:
		return Editing
	}
}

// CurrentOperand locates the operand under construction: everything after
// the rightmost binary operator, or the whole buffer when there is none.
// It returns the start offset of the operand and the operand itself.
//
// Parentheses are not treated specially, so in "3*(2+" the operand is empty
// even though the caret sits inside a group.
func CurrentOperand(buffer string) (int, string) {
	start := lastOperator(buffer) + 1
	return start, buffer[start:]
}

// lastOperator returns the index of the rightmost binary operator, or -1.
func lastOperator(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if token.IsOperator(s[i]) {
			return i
		}
	}
	return -1
}

func endsWithOperator(s string) bool {
	return s != "" && token.IsOperator(s[len(s)-1])
}

// Digit appends a digit. After a result it starts a fresh expression.
func (s State) Digit(d byte) State {
	if !token.IsDigit(d) {
		return s
	}
	if s.JustCalculated {
		return State{Buffer: string(d), Display: string(d)}
	}
	s.Buffer += string(d)
	s.Display = s.Buffer
	return s
}

// Operator appends a binary operator. After a result the shown value is
// carried over as the left operand. A second operator in a row, or an
// operator on an empty buffer, is ignored.
func (s State) Operator(op byte) State {
	if !token.IsOperator(op) {
		return s
	}
	if s.JustCalculated {
		s.Buffer = s.Display + string(op)
		s.Display = string(op)
		s.JustCalculated = false
		return s
	}
	if s.Buffer == "" || endsWithOperator(s.Buffer) {
		return s
	}
	s.Buffer += string(op)
	s.Display = string(op)
	return s
}

// Function wraps the current operand in name(...), or opens name( when
// there is no operand yet. The display shows only the inserted fragment.
//
// Calling Function twice in a row re-derives the operand from the buffer,
// so the second call wraps the first wrap as a whole.
func (s State) Function(name string) State {
	if !token.IsFunction(name) {
		return s
	}
	start, operand := CurrentOperand(s.Buffer)
	if operand == "" || endsWithOperator(operand) {
		s.Buffer += name + "("
		s.Display = name + "("
		return s
	}
	wrapped := name + "(" + operand + ")"
	s.Buffer = s.Buffer[:start] + wrapped
	s.Display = wrapped
	return s
}

// Decimal appends a decimal point unless the current operand has one.
func (s State) Decimal() State {
	_, operand := CurrentOperand(s.Buffer)
	if strings.IndexByte(operand, token.ByteDecimal) >= 0 {
		return s
	}
	s.Buffer += string(token.ByteDecimal)
	s.Display = s.Buffer
	return s
}

// Parenthesis appends "(" unconditionally and ")" only while it would not
// outnumber the open parentheses.
func (s State) Parenthesis(p byte) State {
	switch p {
	case token.ByteLParen:
	case token.ByteRParen:
		open, closed := parenCounts(s.Buffer)
		if closed+1 > open {
			return s
		}
	default:
		return s
	}
	s.Buffer += string(p)
	s.Display = s.Buffer
	return s
}

// Backspace removes the last character. The first backspace after a
// result clears everything instead.
func (s State) Backspace() State {
	if s.JustCalculated {
		return New()
	}
	if s.Buffer != "" {
		s.Buffer = s.Buffer[:len(s.Buffer)-1]
	}
	s.Display = s.Buffer
	if s.Display == "" {
		s.Display = ZeroDisplay
	}
	return s
}

// Clear resets to the empty state.
func (s State) Clear() State {
	return New()
}

// SelectHistory re-opens a past expression for editing.
func (s State) SelectHistory(expression string) State {
	return State{Buffer: expression, Display: expression}
}

// Validate runs the structural checks that gate submission. It returns
// ErrEmpty for an empty buffer, ErrUnmatchedParentheses when the counts
// differ, then ErrIncompleteExpression for a trailing operator.
func (s State) Validate() error {
	if s.Buffer == "" {
		return ErrEmpty
	}
	if open, closed := parenCounts(s.Buffer); open != closed {
		return ErrUnmatchedParentheses
	}
	if endsWithOperator(s.Buffer) {
		return ErrIncompleteExpression
	}
	return nil
}

// Adopt installs an evaluation result as the new buffer.
func (s State) Adopt(result string) State {
	return State{Buffer: result, Display: result, JustCalculated: true}
}

// Fail shows an error message and leaves the buffer as it was.
func (s State) Fail(message string) State {
	s.Display = ErrorPrefix + message
	s.JustCalculated = false
	return s
}

func parenCounts(s string) (open, closed int) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case token.ByteLParen:
			open++
		case token.ByteRParen:
			closed++
		}
	}
	return open, closed
}
