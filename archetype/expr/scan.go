// Copyright 2025 The Archetype Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package expr

import (
	"strconv"
	"strings"

	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
	"archetype.dev/go/archetype/value"
)

// scanToken is what the scanner hands to the parser: an expression token
// or one of the structural symbols that never survive into the compiled
// form.
type scanToken struct {
	tok    Token
	sym    Op // opLParen, opQuestion, or opColon
	rparen bool
	off    int
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t' ||
		s.src[s.pos] == '\n' || s.src[s.pos] == '\r') {
		s.pos++
	}
}

func isNameByte(b byte) bool {
	return b == '_' || b == '-' || b == '.' || b == '~' ||
		'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' || '0' <= b && b <= '9'
}

// next returns the next token, or ok == false at end of input.
func (s *scanner) next() (scanToken, bool, error) {
	s.skipSpace()
	if s.pos >= len(s.src) {
		return scanToken{}, false, nil
	}
	off := s.pos
	fail := func(format string, args ...interface{}) (scanToken, bool, error) {
		args = append(args, off, s.src)
		return scanToken{}, false, errors.Newf(errors.ExprFormatError, token.NoPos,
			format+" at offset %d in %q", args...)
	}
	operator := func(op Op, width int) (scanToken, bool, error) {
		s.pos += width
		return scanToken{tok: Token{Kind: OperatorToken, Op: op}, off: off}, true, nil
	}
	rest := s.src[s.pos:]
	switch {
	case strings.HasPrefix(rest, "&&"):
		return operator(OpAnd, 2)
	case strings.HasPrefix(rest, "||"):
		return operator(OpOr, 2)
	case strings.HasPrefix(rest, "=="):
		return operator(OpEq, 2)
	case strings.HasPrefix(rest, "!="):
		return operator(OpNe, 2)
	case strings.HasPrefix(rest, ">="):
		return operator(OpGe, 2)
	case strings.HasPrefix(rest, "<="):
		return operator(OpLe, 2)
	case rest[0] == '>':
		return operator(OpGt, 1)
	case rest[0] == '<':
		return operator(OpLt, 1)
	case rest[0] == '!':
		return operator(OpNot, 1)
	case rest[0] == '(':
		s.pos++
		return scanToken{sym: opLParen, off: off}, true, nil
	case rest[0] == ')':
		s.pos++
		return scanToken{rparen: true, off: off}, true, nil
	case rest[0] == '?':
		s.pos++
		return scanToken{sym: opQuestion, off: off}, true, nil
	case rest[0] == ':':
		s.pos++
		return scanToken{sym: opColon, off: off}, true, nil

	case rest[0] == '\'':
		lit, err := s.quoted()
		if err != nil {
			return scanToken{}, false, err
		}
		return scanToken{tok: Token{Kind: OperandToken, Val: value.NewString(lit)}, off: off}, true, nil

	case rest[0] == '[':
		s.pos++
		elems, err := s.listLiteral()
		if err != nil {
			return scanToken{}, false, err
		}
		return scanToken{tok: Token{Kind: OperandToken, Val: value.NewList(elems...)}, off: off}, true, nil

	case strings.HasPrefix(rest, "${"):
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return fail("unterminated variable reference")
		}
		name := rest[2:end]
		if name == "" {
			return fail("empty variable reference")
		}
		s.pos += end + 1
		return scanToken{tok: Token{Kind: VariableToken, Name: name}, off: off}, true, nil

	case rest[0] == '-' || '0' <= rest[0] && rest[0] <= '9':
		end := 1
		for end < len(rest) && '0' <= rest[end] && rest[end] <= '9' {
			end++
		}
		i, err := strconv.ParseInt(rest[:end], 10, 64)
		if err != nil {
			return fail("malformed integer literal")
		}
		s.pos += end
		return scanToken{tok: Token{Kind: OperandToken, Val: value.NewInt(i)}, off: off}, true, nil

	case isNameByte(rest[0]):
		end := 1
		for end < len(rest) && isNameByte(rest[end]) {
			end++
		}
		word := rest[:end]
		s.pos += end
		switch word {
		case "contains":
			return scanToken{tok: Token{Kind: OperatorToken, Op: OpContains}, off: off}, true, nil
		case "true":
			return scanToken{tok: Token{Kind: OperandToken, Val: value.True}, off: off}, true, nil
		case "false":
			return scanToken{tok: Token{Kind: OperandToken, Val: value.False}, off: off}, true, nil
		case "null":
			return scanToken{tok: Token{Kind: OperandToken, Val: value.Null}, off: off}, true, nil
		}
		return scanToken{tok: Token{Kind: VariableToken, Name: word}, off: off}, true, nil
	}
	return fail("unexpected character %q", rest[0])
}

// quoted scans a single-quoted string literal. The opening quote is at the
// current position. A backslash escapes the next byte.
func (s *scanner) quoted() (string, error) {
	start := s.pos
	s.pos++
	var b strings.Builder
	for s.pos < len(s.src) {
		switch c := s.src[s.pos]; c {
		case '\\':
			if s.pos+1 >= len(s.src) {
				return "", errors.Newf(errors.ExprFormatError, token.NoPos,
					"unterminated string literal at offset %d in %q", start, s.src)
			}
			b.WriteByte(s.src[s.pos+1])
			s.pos += 2
		case '\'':
			s.pos++
			return b.String(), nil
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	return "", errors.Newf(errors.ExprFormatError, token.NoPos,
		"unterminated string literal at offset %d in %q", start, s.src)
}

// listLiteral scans the remainder of a ['a','b'] literal; the opening
// bracket has been consumed.
func (s *scanner) listLiteral() ([]string, error) {
	malformed := func() ([]string, error) {
		return nil, errors.Newf(errors.ExprFormatError, token.NoPos,
			"malformed list literal in %q", s.src)
	}
	var elems []string
	needComma := false
	for {
		s.skipSpace()
		if s.pos >= len(s.src) {
			return nil, errors.Newf(errors.ExprFormatError, token.NoPos,
				"unterminated list literal in %q", s.src)
		}
		switch s.src[s.pos] {
		case ']':
			s.pos++
			return elems, nil
		case ',':
			if !needComma {
				return malformed()
			}
			needComma = false
			s.pos++
		case '\'':
			if needComma {
				return malformed()
			}
			lit, err := s.quoted()
			if err != nil {
				return nil, err
			}
			elems = append(elems, lit)
			needComma = true
		default:
			return malformed()
		}
	}
}
