// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"strconv"

	"nickandperla.net/calcpad/internal/expr"
	"nickandperla.net/calcpad/internal/scanner"
	"nickandperla.net/calcpad/internal/token"
)

// Parse builds an expression tree from input.
//
//	expr    := term (('+'|'-') term)*
//	term    := unary (('*'|'/'|'%') unary)*
//	unary   := ('+'|'-') unary | power
//	power   := primary ('^' unary)?
//	primary := number | constant | function '(' expr ')' | '(' expr ')'
//
// Exponentiation binds tighter than a leading sign and groups to the
// right, so -2^2 is -4 and 2^3^2 is 512.
func Parse(input string) (expr.Expr, error) {
	p := &parser{scan: scanner.NewFromString(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Token == token.EOF {
		return nil, &Error{Msg: MsgEmpty, Pos: 0}
	}
	e, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if p.cur.Token != token.EOF {
		return nil, p.unexpected()
	}
	return e, nil
}

type parser struct {
	scan *scanner.Scanner
	cur  *scanner.Item
}

func (p *parser) advance() error {
	item, err := p.scan.Next()
	if err != nil {
		return syntaxError(p.scan.Pos(), "%v", err)
	}
	p.cur = item
	return nil
}

func (p *parser) unexpected() *Error {
	if p.cur.Token == token.EOF {
		return syntaxError(p.cur.Pos, "unexpected end of expression")
	}
	return syntaxError(p.cur.Pos, "unexpected '%s'", p.cur.Value)
}

func (p *parser) expect(t token.Token) error {
	if p.cur.Token != t {
		return p.unexpected()
	}
	return p.advance()
}

// parseBinary handles the left-associative levels by precedence climbing.
// Exponentiation is parsed below unary minus in parsePower.
func (p *parser) parseBinary(minPrec int) (expr.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.cur.Token
		prec := op.Precedence()
		if !op.IsBinary() || op == token.CARET || prec < minPrec {
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = expr.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (expr.Expr, error) {
	if p.cur.Token == token.PLUS || p.cur.Token == token.MINUS {
		op, pos := p.cur.Token, p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return expr.Unary{Op: op, Operand: operand, Offset: pos}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (expr.Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.cur.Token != token.CARET {
		return base, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	exponent, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return expr.Binary{Op: token.CARET, Left: base, Right: exponent}, nil
}

func (p *parser) parsePrimary() (expr.Expr, error) {
	item := p.cur
	switch item.Token {
	case token.NUMBER:
		v, err := strconv.ParseFloat(item.Value, 64)
		if err != nil {
			return nil, syntaxError(item.Pos, "invalid number '%s'", item.Value)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr.Number{Value: v, Offset: item.Pos}, nil

	case token.IDENT:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if token.IsFunction(item.Value) {
			if err := p.expect(token.LPAREN); err != nil {
				return nil, err
			}
			arg, err := p.parseBinary(1)
			if err != nil {
				return nil, err
			}
			if err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
			return expr.Call{Name: item.Value, Arg: arg, Offset: item.Pos}, nil
		}
		if token.IsConstant(item.Value) {
			return expr.Ident{Name: item.Value, Offset: item.Pos}, nil
		}
		return nil, syntaxError(item.Pos, "unknown name '%s'", item.Value)

	case token.LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseBinary(1)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, p.unexpected()
}
