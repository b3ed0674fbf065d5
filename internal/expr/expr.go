// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package expr defines the arithmetic expression tree.
package expr

import (
	"strconv"
	"strings"

	"nickandperla.net/calcpad/internal/token"
)

// Expr is the interface all expression nodes implement.
type Expr interface {
	// String returns a fully parenthesized rendering of the node.
	String() string
	// Pos returns the byte offset where the node starts in the source.
	Pos() int
}

// Number is a numeric literal.
type Number struct {
	Value  float64
	Offset int
}

func (n Number) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }
func (n Number) Pos() int       { return n.Offset }

// Ident is a named constant such as pi, e or ans.
type Ident struct {
	Name   string
	Offset int
}

func (i Ident) String() string { return i.Name }
func (i Ident) Pos() int       { return i.Offset }

// Unary is a prefix sign applied to an operand.
type Unary struct {
	Op      token.Token // PLUS or MINUS
	Operand Expr
	Offset  int
}

func (u Unary) String() string {
	return "(" + u.Op.String() + u.Operand.String() + ")"
}
func (u Unary) Pos() int { return u.Offset }

// Binary is an infix operation.
type Binary struct {
	Op    token.Token
	Left  Expr
	Right Expr
}

func (b Binary) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(b.Left.String())
	sb.WriteByte(' ')
	sb.WriteString(b.Op.String())
	sb.WriteByte(' ')
	sb.WriteString(b.Right.String())
	sb.WriteByte(')')
	return sb.String()
}
func (b Binary) Pos() int { return b.Left.Pos() }

// Call is a single-argument function application.
type Call struct {
	Name   string
	Arg    Expr
	Offset int
}

func (c Call) String() string { return c.Name + "(" + c.Arg.String() + ")" }
func (c Call) Pos() int       { return c.Offset }
