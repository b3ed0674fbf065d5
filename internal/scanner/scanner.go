// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scanner provides a streaming lexer for calculator expressions.
package scanner

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"nickandperla.net/calcpad/internal/token"
)

// Scanner tokenizes expression input rune-by-rune.
type Scanner struct {
	reader *bufio.Reader
	buf    strings.Builder
	pos    int // Byte offset of the next unread rune
}

// Item represents a scanned token with its value.
type Item struct {
	Token token.Token
	Value string
	Pos   int // Byte offset where this token started
}

// New creates a new Scanner from an io.Reader.
func New(r io.Reader) *Scanner {
	return &Scanner{
		reader: bufio.NewReader(r),
	}
}

// NewFromString creates a new Scanner from a string.
func NewFromString(s string) *Scanner {
	return New(strings.NewReader(s))
}

// Pos returns the byte offset of the next unread rune.
func (s *Scanner) Pos() int {
	return s.pos
}

// Next returns the next token from the input.
func (s *Scanner) Next() (*Item, error) {
	if err := s.SkipWhitespace(); err != nil {
		return nil, err
	}

	s.buf.Reset()
	start := s.pos

	r, err := s.readRune()
	if err == io.EOF {
		return &Item{Token: token.EOF, Pos: start}, nil
	}
	if err != nil {
		return nil, err
	}

	switch {
	case r < 0x80 && token.TokenFromByte(byte(r)) != token.ILLEGAL:
		return &Item{Token: token.TokenFromByte(byte(r)), Value: string(r), Pos: start}, nil

	case isDigit(r) || r == '.':
		s.buf.WriteRune(r)
		if err := s.scanNumber(r == '.'); err != nil {
			return nil, err
		}
		return &Item{Token: token.NUMBER, Value: s.buf.String(), Pos: start}, nil

	case isIdentStart(r):
		s.buf.WriteRune(r)
		if err := s.scanIdent(); err != nil {
			return nil, err
		}
		return &Item{Token: token.IDENT, Value: s.buf.String(), Pos: start}, nil
	}

	return &Item{Token: token.ILLEGAL, Value: string(r), Pos: start}, nil
}

// scanNumber reads the rest of a decimal literal with an optional exponent.
// A second decimal point ends the literal. It peeks before consuming so
// the terminating rune is never read.
func (s *Scanner) scanNumber(seenDot bool) error {
	for {
		b, err := s.reader.Peek(1)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		c := b[0]
		switch {
		case isDigit(rune(c)):
		case c == '.' && !seenDot:
			seenDot = true
		case c == 'e' || c == 'E':
			ok, err := s.exponentFollows()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			s.consumeByte()
			return s.scanExponent()
		default:
			return nil
		}
		s.consumeByte()
	}
}

// exponentFollows reports whether the bytes after a pending 'e' form an
// exponent: a digit, or a sign followed by a digit.
func (s *Scanner) exponentFollows() (bool, error) {
	b, err := s.reader.Peek(3)
	if err != nil && err != io.EOF {
		return false, err
	}
	if len(b) < 2 {
		return false, nil
	}
	if isDigit(rune(b[1])) {
		return true, nil
	}
	return len(b) == 3 && (b[1] == '+' || b[1] == '-') && isDigit(rune(b[2])), nil
}

// consumeByte moves one already-peeked ASCII byte into the buffer.
func (s *Scanner) consumeByte() {
	c, err := s.reader.ReadByte()
	if err != nil {
		return
	}
	s.pos++
	s.buf.WriteByte(c)
}

func (s *Scanner) scanExponent() error {
	r, err := s.readRune()
	if err != nil {
		return err
	}
	s.buf.WriteRune(r) // sign or first digit
	for {
		r, err := s.readRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !isDigit(r) {
			s.unreadRune(r)
			return nil
		}
		s.buf.WriteRune(r)
	}
}

func (s *Scanner) scanIdent() error {
	for {
		r, err := s.readRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !isIdentChar(r) {
			s.unreadRune(r)
			return nil
		}
		s.buf.WriteRune(r)
	}
}

// SkipWhitespace consumes and discards whitespace.
func (s *Scanner) SkipWhitespace() error {
	for {
		r, err := s.readRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !unicode.IsSpace(r) {
			s.unreadRune(r)
			return nil
		}
	}
}

func (s *Scanner) readRune() (rune, error) {
	r, size, err := s.reader.ReadRune()
	if err != nil {
		return 0, err
	}
	s.pos += size
	return r, nil
}

// unreadRune puts back the rune returned by the last readRune.
func (s *Scanner) unreadRune(r rune) {
	if err := s.reader.UnreadRune(); err == nil {
		s.pos -= len(string(r))
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

// isIdentChar returns true if the rune is valid in an identifier (letter, digit, underscore).
func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
