// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package calcpad

import (
	"fmt"
	"strings"

	"nickandperla.net/calcpad/internal/composer"
	"nickandperla.net/calcpad/internal/token"
)

// Key script bytes that are not part of an expression.
const (
	KeySubmit    = '='
	KeyBackspace = '<'
	KeyClear     = 'C'
)

// ParseKeys turns a key script into keypad actions. A script is a sequence
// of digits, '.', the operators "+-*/^%", parentheses, '=' to submit, '<'
// for backspace, 'C' to clear and "[name]" for a function key. Whitespace
// is ignored.
//
//	ParseKeys("12+3=")      // 1 2 + 3 submit
//	ParseKeys("30[sin]=")   // sin(30) submit
func ParseKeys(script string) ([]Action, error) {
	var actions []Action
	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		case token.IsDigit(c):
			actions = append(actions, Action{Kind: composer.KindDigit, Value: string(c)})
		case c == token.ByteDecimal:
			actions = append(actions, Action{Kind: composer.KindDecimal})
		case token.IsOperator(c):
			actions = append(actions, Action{Kind: composer.KindOperator, Value: string(c)})
		case c == token.ByteLParen || c == token.ByteRParen:
			actions = append(actions, Action{Kind: composer.KindParenthesis, Value: string(c)})
		case c == KeySubmit:
			actions = append(actions, Action{Kind: composer.KindSubmit})
		case c == KeyBackspace:
			actions = append(actions, Action{Kind: composer.KindBackspace})
		case c == KeyClear:
			actions = append(actions, Action{Kind: composer.KindClear})
		case c == '[':
			end := strings.IndexByte(script[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated function key at position %d", i)
			}
			name := script[i+1 : i+end]
			if !token.IsFunction(name) {
				return nil, fmt.Errorf("unknown function %q at position %d", name, i)
			}
			actions = append(actions, Action{Kind: composer.KindFunction, Value: name})
			i += end
		default:
			return nil, fmt.Errorf("unexpected key %q at position %d", c, i)
		}
	}
	return actions, nil
}
