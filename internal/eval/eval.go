// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package eval parses and evaluates calculator expressions and formats
// their results.
package eval

import (
	"math"
	"sync"

	"nickandperla.net/calcpad/internal/expr"
	"nickandperla.net/calcpad/internal/token"
)

// maxFactorial is the largest n whose factorial fits in a float64.
const maxFactorial = 170

// Evaluator evaluates expressions and remembers the last result for ans.
// It is safe for concurrent use.
type Evaluator struct {
	mu   sync.Mutex
	last float64
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLastResult seeds the value of ans.
func WithLastResult(v float64) Option {
	return func(e *Evaluator) { e.last = v }
}

// New creates a new Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate parses and evaluates input under s. The result is rounded to
// s.DecimalPlaces and becomes the new value of ans.
func (e *Evaluator) Evaluate(input string, s Settings) (float64, error) {
	tree, err := Parse(input)
	if err != nil {
		return 0, err
	}
	s = s.Normalize()

	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.eval(tree, s.AngleMode)
	if err != nil {
		return 0, err
	}
	v = Round(v, s.DecimalPlaces)
	e.last = v
	return v, nil
}

// Reset sets ans back to zero, as when history is cleared.
func (e *Evaluator) Reset() {
	e.mu.Lock()
	e.last = 0
	e.mu.Unlock()
}

func (e *Evaluator) eval(node expr.Expr, mode AngleMode) (float64, error) {
	switch n := node.(type) {
	case expr.Number:
		return n.Value, nil

	case expr.Ident:
		switch n.Name {
		case token.ConstPi:
			return math.Pi, nil
		case token.ConstE:
			return math.E, nil
		case token.ConstAns:
			return e.last, nil
		}
		return 0, syntaxError(n.Offset, "unknown name '%s'", n.Name)

	case expr.Unary:
		v, err := e.eval(n.Operand, mode)
		if err != nil {
			return 0, err
		}
		if n.Op == token.MINUS {
			return -v, nil
		}
		return v, nil

	case expr.Binary:
		l, err := e.eval(n.Left, mode)
		if err != nil {
			return 0, err
		}
		r, err := e.eval(n.Right, mode)
		if err != nil {
			return 0, err
		}
		return finite(binary(n.Op, l, r))

	case expr.Call:
		arg, err := e.eval(n.Arg, mode)
		if err != nil {
			return 0, err
		}
		return finite(call(n.Name, arg, mode))
	}
	return 0, domainError("unsupported expression")
}

func binary(op token.Token, l, r float64) (float64, error) {
	switch op {
	case token.PLUS:
		return l + r, nil
	case token.MINUS:
		return l - r, nil
	case token.STAR:
		return l * r, nil
	case token.SLASH:
		if r == 0 {
			return 0, domainError(MsgDivideByZero)
		}
		return l / r, nil
	case token.PERCENT:
		if r == 0 {
			return 0, domainError(MsgDivideByZero)
		}
		// Result takes the sign of the divisor.
		return l - r*math.Floor(l/r), nil
	case token.CARET:
		return math.Pow(l, r), nil
	}
	return 0, domainError("unsupported operator " + op.String())
}

func call(name string, x float64, mode AngleMode) (float64, error) {
	switch name {
	case "sin":
		return math.Sin(toRadians(x, mode)), nil
	case "cos":
		return math.Cos(toRadians(x, mode)), nil
	case "tan":
		return math.Tan(toRadians(x, mode)), nil
	case "asin":
		if x < -1 || x > 1 {
			return 0, domainError(MsgAsinDomain)
		}
		return fromRadians(math.Asin(x), mode), nil
	case "acos":
		if x < -1 || x > 1 {
			return 0, domainError(MsgAcosDomain)
		}
		return fromRadians(math.Acos(x), mode), nil
	case "atan":
		return fromRadians(math.Atan(x), mode), nil
	case "ln":
		if x <= 0 {
			return 0, domainError(MsgLogDomain)
		}
		return math.Log(x), nil
	case "log":
		if x <= 0 {
			return 0, domainError(MsgLogDomain)
		}
		return math.Log10(x), nil
	case "log2":
		if x <= 0 {
			return 0, domainError(MsgLogDomain)
		}
		return math.Log2(x), nil
	case "sqrt":
		if x < 0 {
			return 0, domainError(MsgNegativeSqrt)
		}
		return math.Sqrt(x), nil
	case "exp":
		return math.Exp(x), nil
	case "abs":
		return math.Abs(x), nil
	case "fact":
		return factorial(x)
	}
	return 0, domainError("unknown function " + name)
}

func factorial(x float64) (float64, error) {
	if x < 0 || x != math.Trunc(x) {
		return 0, domainError(MsgFactorialDomain)
	}
	if x > maxFactorial {
		return math.Inf(1), nil
	}
	result := 1.0
	for i := 2.0; i <= x; i++ {
		result *= i
	}
	return result, nil
}

func toRadians(x float64, mode AngleMode) float64 {
	if mode == Degrees {
		return x * math.Pi / 180
	}
	return x
}

func fromRadians(x float64, mode AngleMode) float64 {
	if mode == Degrees {
		return x * 180 / math.Pi
	}
	return x
}

func finite(v float64, err error) (float64, error) {
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, domainError(MsgNotFinite)
	}
	return v, nil
}
