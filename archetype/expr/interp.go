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
	"strings"

	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
	"archetype.dev/go/archetype/value"
)

// A StringExpr is a compiled string-context value: a plain literal, a
// whole-text expression (backtick or #{...} form), or a mixed
// interpolation of literal segments, ${var} references, and embedded
// expressions.
type StringExpr struct {
	text  string
	whole *Expr  // set when the entire text is one expression
	parts []part // otherwise: concatenated segments
}

type partKind uint8

const (
	literalPart partKind = iota
	variablePart
	exprPart
)

type part struct {
	kind partKind
	lit  string
	name string
	expr *Expr
}

// CompileString compiles text as it appears in a string context: a string
// carrying no delimiter is a literal; `EXPR` and #{EXPR} embed
// expressions; ${name} references a variable.
func CompileString(text string) (*StringExpr, error) {
	if !IsInterpolated(text) {
		return &StringExpr{text: text, parts: []part{{kind: literalPart, lit: text}}}, nil
	}
	// Whole-text expression forms keep their natural result type.
	if inner, ok := wholeDelimited(text); ok {
		e, err := Compile(inner)
		if err != nil {
			return nil, err
		}
		return &StringExpr{text: text, whole: e}, nil
	}
	parts, err := splitParts(text)
	if err != nil {
		return nil, err
	}
	return &StringExpr{text: text, parts: parts}, nil
}

// wholeDelimited reports whether text is exactly one delimited expression
// and returns the inner source.
func wholeDelimited(text string) (string, bool) {
	if len(text) >= 2 && text[0] == '`' && text[len(text)-1] == '`' &&
		!strings.Contains(text[1:len(text)-1], "`") {
		return text[1 : len(text)-1], true
	}
	if strings.HasPrefix(text, "#{") {
		if end := closeBrace(text, 2); end == len(text)-1 {
			return text[2:end], true
		}
	}
	return "", false
}

// closeBrace returns the index of the '}' matching the '{' just before
// start, tracking nested braces such as the ${var} references inside an
// embedded expression. It returns -1 when unbalanced.
func closeBrace(s string, start int) int {
	depth := 1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitParts(text string) ([]part, error) {
	var parts []part
	lit := func(s string) {
		if s != "" {
			parts = append(parts, part{kind: literalPart, lit: s})
		}
	}
	for len(text) > 0 {
		switch {
		case strings.HasPrefix(text, "${"):
			end := strings.IndexByte(text, '}')
			if end < 0 {
				return nil, errors.Newf(errors.ExprFormatError, token.NoPos,
					"unterminated variable reference in %q", text)
			}
			name := text[2:end]
			if name == "" {
				return nil, errors.Newf(errors.ExprFormatError, token.NoPos,
					"empty variable reference in %q", text)
			}
			parts = append(parts, part{kind: variablePart, name: name})
			text = text[end+1:]

		case strings.HasPrefix(text, "#{"):
			end := closeBrace(text, 2)
			if end < 0 {
				return nil, errors.Newf(errors.ExprFormatError, token.NoPos,
					"unterminated embedded expression in %q", text)
			}
			e, err := Compile(text[2:end])
			if err != nil {
				return nil, err
			}
			parts = append(parts, part{kind: exprPart, expr: e})
			text = text[end+1:]

		case text[0] == '`':
			end := strings.IndexByte(text[1:], '`')
			if end < 0 {
				return nil, errors.Newf(errors.ExprFormatError, token.NoPos,
					"unterminated embedded expression in %q", text)
			}
			e, err := Compile(text[1 : 1+end])
			if err != nil {
				return nil, err
			}
			parts = append(parts, part{kind: exprPart, expr: e})
			text = text[end+2:]

		default:
			next := len(text)
			for _, d := range []string{"${", "#{", "`"} {
				if i := strings.Index(text, d); i >= 0 && i < next {
					next = i
				}
			}
			lit(text[:next])
			text = text[next:]
		}
	}
	return parts, nil
}

// IsLiteral reports whether the compiled text carries no variable
// references or embedded expressions.
func (s *StringExpr) IsLiteral() bool {
	return s.whole == nil && len(s.parts) == 1 && s.parts[0].kind == literalPart ||
		s.whole == nil && len(s.parts) == 0
}

// Text returns the source text.
func (s *StringExpr) Text() string { return s.text }

// Vars returns the referenced variable names across all segments.
func (s *StringExpr) Vars() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if s.whole != nil {
		return s.whole.Vars()
	}
	for _, p := range s.parts {
		switch p.kind {
		case variablePart:
			add(p.name)
		case exprPart:
			for _, n := range p.expr.Vars() {
				add(n)
			}
		}
	}
	return names
}

// Eval evaluates the compiled text against the resolver. A whole-text
// expression yields its natural result; a mixed interpolation yields the
// concatenated STRING.
func (s *StringExpr) Eval(r Resolver) (value.Value, error) {
	if s.whole != nil {
		return s.whole.Eval(r)
	}
	if s.IsLiteral() {
		return value.NewString(s.text), nil
	}
	var b strings.Builder
	for _, p := range s.parts {
		switch p.kind {
		case literalPart:
			b.WriteString(p.lit)
		case variablePart:
			v, ok := r(p.name)
			if !ok {
				return value.Null, errors.Newf(errors.ExprTypeError, token.NoPos,
					"unresolved variable %q in %q", p.name, s.text)
			}
			b.WriteString(v.Format())
		case exprPart:
			v, err := p.expr.Eval(r)
			if err != nil {
				return value.Null, err
			}
			b.WriteString(v.Format())
		}
	}
	return value.NewString(b.String()), nil
}
