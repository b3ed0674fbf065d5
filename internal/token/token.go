// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines the calculator vocabulary: binary operators,
// parentheses, function names and named constants.
package token

// Token represents a calculator token type.
type Token int

const (
	EOF Token = iota
	ILLEGAL
	NUMBER
	IDENT

	// Binary operators
	PLUS    // + addition
	MINUS   // - subtraction (also unary negation)
	STAR    // * multiplication
	SLASH   // / division
	CARET   // ^ exponentiation, right-associative
	PERCENT // % modulo

	LPAREN // (
	RPAREN // )
)

// Operator and grouping bytes.
const (
	BytePlus    = '+'
	ByteMinus   = '-'
	ByteStar    = '*'
	ByteSlash   = '/'
	ByteCaret   = '^'
	BytePercent = '%'
	ByteLParen  = '('
	ByteRParen  = ')'
	ByteDecimal = '.'
)

// Operators holds every binary operator byte, in no particular order.
const Operators = "+-*/^%"

// Named constants understood by the evaluator.
const (
	ConstPi  = "pi"
	ConstE   = "e"
	ConstAns = "ans"
)

// Functions lists the function names offered on the keypad.
var Functions = []string{
	"sin", "cos", "tan",
	"asin", "acos", "atan",
	"ln", "log", "log2",
	"sqrt", "exp", "abs", "fact",
}

// IsOperator returns true if b is a binary operator.
func IsOperator(b byte) bool {
	switch b {
	case BytePlus, ByteMinus, ByteStar, ByteSlash, ByteCaret, BytePercent:
		return true
	}
	return false
}

// IsDigit returns true if b is an ASCII decimal digit.
func IsDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// IsFunction returns true if name is a known function.
func IsFunction(name string) bool {
	for _, f := range Functions {
		if f == name {
			return true
		}
	}
	return false
}

// IsConstant returns true if name is a named constant.
func IsConstant(name string) bool {
	switch name {
	case ConstPi, ConstE, ConstAns:
		return true
	}
	return false
}

// TokenFromByte returns the token type for a single-byte operator or
// parenthesis.
func TokenFromByte(b byte) Token {
	switch b {
	case BytePlus:
		return PLUS
	case ByteMinus:
		return MINUS
	case ByteStar:
		return STAR
	case ByteSlash:
		return SLASH
	case ByteCaret:
		return CARET
	case BytePercent:
		return PERCENT
	case ByteLParen:
		return LPAREN
	case ByteRParen:
		return RPAREN
	}
	return ILLEGAL
}

// String returns the string representation of a token.
func (t Token) String() string {
	switch t {
	case EOF:
		return "EOF"
	case ILLEGAL:
		return "ILLEGAL"
	case NUMBER:
		return "NUMBER"
	case IDENT:
		return "IDENT"
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case SLASH:
		return "/"
	case CARET:
		return "^"
	case PERCENT:
		return "%"
	case LPAREN:
		return "("
	case RPAREN:
		return ")"
	}
	return "UNKNOWN"
}

// IsBinary returns true if the token is a binary operator.
func (t Token) IsBinary() bool {
	switch t {
	case PLUS, MINUS, STAR, SLASH, CARET, PERCENT:
		return true
	}
	return false
}

// Precedence returns the binding power of a binary operator, or 0.
func (t Token) Precedence() int {
	switch t {
	case PLUS, MINUS:
		return 1
	case STAR, SLASH, PERCENT:
		return 2
	case CARET:
		return 3
	}
	return 0
}
