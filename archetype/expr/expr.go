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

// Package expr implements the small typed expression language used in
// script conditions and value interpolation.
//
// An expression is compiled once into an immutable token sequence and a
// derived reverse-Polish form, and evaluated any number of times against a
// variable resolver. Evaluation is lazy: the un-demanded side of &&, ||,
// and ?: is never forced, so an unresolved variable only errors when the
// evaluation path demands it.
package expr

import (
	"fmt"
	"strings"

	"archetype.dev/go/archetype/value"
)

// An Op identifies an operator of the expression language.
type Op uint8

const (
	OpInvalid Op = iota
	OpNot
	OpContains
	OpEq
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
	OpAnd
	OpOr
	OpTernary
	// opLParen, opQuestion, and opColon only ever live on the parser's
	// operator stack; they never reach a compiled token sequence.
	opLParen
	opQuestion
	opColon
)

var opSymbols = [...]string{
	OpNot:      "!",
	OpContains: "contains",
	OpEq:       "==",
	OpNe:       "!=",
	OpGt:       ">",
	OpGe:       ">=",
	OpLt:       "<",
	OpLe:       "<=",
	OpAnd:      "&&",
	OpOr:       "||",
	OpTernary:  "?:",
	opLParen:   "(",
	opQuestion: "?",
	opColon:    ":",
}

// Symbol returns the source form of the operator.
func (op Op) Symbol() string {
	if int(op) < len(opSymbols) {
		return opSymbols[op]
	}
	return "?"
}

// precedence, high to low: ! contains, comparisons, &&, ||, ?:
func (op Op) precedence() int {
	switch op {
	case OpNot:
		return 6
	case OpContains:
		return 5
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
		return 4
	case OpAnd:
		return 3
	case OpOr:
		return 2
	case opQuestion, OpTernary:
		return 1
	}
	return 0
}

// arity returns the number of operands the operator pops.
func (op Op) arity() int {
	switch op {
	case OpNot:
		return 1
	case OpTernary:
		return 3
	}
	return 2
}

// TokenKind distinguishes the three token classes.
type TokenKind uint8

const (
	// OperatorToken is an operator symbol.
	OperatorToken TokenKind = iota
	// VariableToken is a reference to a context variable.
	VariableToken
	// OperandToken is a literal value.
	OperandToken
)

// A Token is one element of a compiled expression.
type Token struct {
	Kind TokenKind
	Op   Op          // when Kind == OperatorToken
	Name string      // when Kind == VariableToken
	Val  value.Value // when Kind == OperandToken
}

func (t Token) String() string {
	switch t.Kind {
	case OperatorToken:
		return t.Op.Symbol()
	case VariableToken:
		return "${" + t.Name + "}"
	default:
		return t.Val.Format()
	}
}

// An Expr is a compiled expression: an immutable token sequence in
// declaration order and a derived reverse-Polish form for evaluation.
//
// Expressions compiled through a loader are interned by structural
// equality, so identical condition text shares one *Expr.
type Expr struct {
	text   string
	tokens []Token
	rpn    []Token
}

// Text returns the source text the expression was compiled from.
func (e *Expr) Text() string { return e.text }

// Tokens returns the token sequence in declaration order.
func (e *Expr) Tokens() []Token {
	return append([]Token(nil), e.tokens...)
}

// Vars returns the referenced variable names, deduplicated, in
// declaration order.
func (e *Expr) Vars() []string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range e.tokens {
		if t.Kind == VariableToken && !seen[t.Name] {
			seen[t.Name] = true
			names = append(names, t.Name)
		}
	}
	return names
}

func (e *Expr) String() string {
	var b strings.Builder
	for i, t := range e.tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprint(&b, t)
	}
	return b.String()
}

// IsInterpolated reports whether the raw string form of a value contains
// an embedded expression or variable reference, in any of the three forms
// the engine accepts: ${var}, #{EXPR}, or `EXPR`.
func IsInterpolated(s string) bool {
	return strings.Contains(s, "${") ||
		strings.Contains(s, "#{") ||
		strings.Contains(s, "`")
}
