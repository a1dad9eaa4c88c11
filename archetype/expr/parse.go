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
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
)

// Compile parses text into an expression. The token sequence is kept in
// declaration order; the reverse-Polish form drives evaluation. Format
// problems return an ExprFormatError.
func Compile(text string) (*Expr, error) {
	s := &scanner{src: text}
	var (
		tokens []Token
		rpn    []Token
		ops    []Op // operator stack; holds opLParen/opQuestion markers too
	)
	fail := func(format string, args ...interface{}) (*Expr, error) {
		args = append(args, text)
		return nil, errors.Newf(errors.ExprFormatError, token.NoPos,
			format+" in %q", args...)
	}
	// A left parenthesis, a pending '?', and a ternary still waiting for
	// the end of its else branch all fence off the popping below.
	barrier := func(op Op) bool {
		return op == opLParen || op == opQuestion || op == OpTernary
	}
	top := func() Op { return ops[len(ops)-1] }
	popWhile := func(cond func(Op) bool) {
		for len(ops) > 0 && cond(top()) {
			rpn = append(rpn, Token{Kind: OperatorToken, Op: top()})
			ops = ops[:len(ops)-1]
		}
	}
	for {
		st, ok, err := s.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch {
		case st.rparen:
			popWhile(func(op Op) bool { return op != opLParen && op != opQuestion })
			if len(ops) == 0 {
				return fail("unbalanced closing parenthesis")
			}
			if top() == opQuestion {
				return fail("'?' without matching ':'")
			}
			ops = ops[:len(ops)-1]

		case st.sym == opLParen:
			ops = append(ops, opLParen)

		case st.sym == opQuestion:
			// The condition is complete; flush everything it still has
			// pending, then fence off the then branch.
			popWhile(func(op Op) bool { return !barrier(op) })
			ops = append(ops, opQuestion)
			tokens = append(tokens, Token{Kind: OperatorToken, Op: OpTernary})

		case st.sym == opColon:
			popWhile(func(op Op) bool { return !barrier(op) })
			if len(ops) == 0 || top() != opQuestion {
				return fail("':' without matching '?'")
			}
			// The matched pair reduces to a single ternary operator once
			// the else branch completes.
			ops[len(ops)-1] = OpTernary

		case st.tok.Kind == OperatorToken:
			op := st.tok.Op
			tokens = append(tokens, st.tok)
			if op == OpNot {
				ops = append(ops, op)
				continue
			}
			prec := op.precedence()
			popWhile(func(top Op) bool {
				return !barrier(top) && top.precedence() >= prec
			})
			ops = append(ops, op)

		default:
			tokens = append(tokens, st.tok)
			rpn = append(rpn, st.tok)
		}
	}
	popWhile(func(op Op) bool { return !barrier(op) || op == OpTernary })
	if len(ops) > 0 {
		if top() == opLParen {
			return fail("unbalanced opening parenthesis")
		}
		return fail("'?' without matching ':'")
	}
	if len(rpn) == 0 {
		return fail("empty expression")
	}
	if err := checkArity(rpn); err != nil {
		return nil, errors.Wrapf(err, errors.ExprFormatError, token.NoPos,
			"malformed expression %q", text)
	}
	return &Expr{text: text, tokens: tokens, rpn: rpn}, nil
}

// checkArity simulates evaluation stack heights so that Eval can assume a
// well-formed program.
func checkArity(rpn []Token) error {
	depth := 0
	for _, t := range rpn {
		if t.Kind == OperatorToken {
			n := t.Op.arity()
			if depth < n {
				return errors.Newf(errors.ExprFormatError, token.NoPos,
					"operator %q is missing operands", t.Op.Symbol())
			}
			depth -= n - 1
		} else {
			depth++
		}
	}
	if depth != 1 {
		return errors.Newf(errors.ExprFormatError, token.NoPos,
			"expression does not reduce to a single result")
	}
	return nil
}
