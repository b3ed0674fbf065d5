// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package composer

import "fmt"

// Kind identifies a keypad action.
type Kind int

const (
	KindDigit Kind = iota + 1
	KindOperator
	KindFunction
	KindDecimal
	KindParenthesis
	KindBackspace
	KindClear
	KindSubmit
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindDigit:
		return "DIGIT"
	case KindOperator:
		return "OPERATOR"
	case KindFunction:
		return "FUNCTION"
	case KindDecimal:
		return "DECIMAL"
	case KindParenthesis:
		return "PARENTHESIS"
	case KindBackspace:
		return "BACKSPACE"
	case KindClear:
		return "CLEAR"
	case KindSubmit:
		return "SUBMIT"
	default:
		return "UNKNOWN"
	}
}

// Action is one discrete keypad input. Value carries the digit, operator,
// parenthesis or function name; it is empty for the other kinds.
type Action struct {
	Kind  Kind
	Value string
}

func (a Action) String() string {
	if a.Value == "" {
		return a.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", a.Kind, a.Value)
}

// Apply runs a local action. KindSubmit needs the evaluation service and
// is left to the host, so Apply returns the state unchanged for it, as it
// does for malformed actions.
func (s State) Apply(a Action) State {
	switch a.Kind {
	case KindDigit:
		if len(a.Value) != 1 {
			return s
		}
		return s.Digit(a.Value[0])
	case KindOperator:
		if len(a.Value) != 1 {
			return s
		}
		return s.Operator(a.Value[0])
	case KindFunction:
		return s.Function(a.Value)
	case KindDecimal:
		return s.Decimal()
	case KindParenthesis:
		if len(a.Value) != 1 {
			return s
		}
		return s.Parenthesis(a.Value[0])
	case KindBackspace:
		return s.Backspace()
	case KindClear:
		return s.Clear()
	}
	return s
}
