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
	"archetype.dev/go/archetype/value"
)

// A KindEnv maps a variable name to its statically known value kind. The
// boolean result reports whether the variable is declared at all.
type KindEnv func(name string) (value.Kind, bool)

// An UnresolvedError reports a variable the static environment does not
// declare.
type UnresolvedError struct {
	Name string
}

func (e *UnresolvedError) Error() string {
	return "unresolved variable " + e.Name
}

// Check type-checks the expression over a static environment without
// evaluating it. Undeclared variables yield an *UnresolvedError; operator
// typing problems yield an ExprTypeError. DynamicKind acts as a wildcard
// on both sides.
func (e *Expr) Check(env KindEnv) error {
	const wildcard = value.DynamicKind
	var stack []value.Kind
	pop := func() value.Kind {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return k
	}
	want := func(k, expected value.Kind, what string) error {
		if k == wildcard || k == value.EmptyKind || k == expected {
			return nil
		}
		return errors.Newf(errors.ExprTypeError, token.NoPos,
			"%s is %s, not %s, in %q", what, k, expected, e.text)
	}
	for _, t := range e.rpn {
		switch t.Kind {
		case OperandToken:
			stack = append(stack, t.Val.Kind())
		case VariableToken:
			k, ok := env(t.Name)
			if !ok {
				return &UnresolvedError{Name: t.Name}
			}
			stack = append(stack, k)
		default:
			switch op := t.Op; op {
			case OpNot:
				if err := want(pop(), value.BoolKind, "operand of !"); err != nil {
					return err
				}
				stack = append(stack, value.BoolKind)
			case OpAnd, OpOr:
				y, x := pop(), pop()
				if err := want(x, value.BoolKind, "left operand of "+op.Symbol()); err != nil {
					return err
				}
				if err := want(y, value.BoolKind, "right operand of "+op.Symbol()); err != nil {
					return err
				}
				stack = append(stack, value.BoolKind)
			case OpTernary:
				elseK, thenK, cond := pop(), pop(), pop()
				if err := want(cond, value.BoolKind, "condition of ?:"); err != nil {
					return err
				}
				if thenK == elseK {
					stack = append(stack, thenK)
				} else {
					stack = append(stack, wildcard)
				}
			case OpContains:
				y, x := pop(), pop()
				if err := want(x, value.ListKind, "left operand of contains"); err != nil {
					return err
				}
				if err := want(y, value.StringKind, "right operand of contains"); err != nil {
					return err
				}
				stack = append(stack, value.BoolKind)
			case OpEq, OpNe:
				y, x := pop(), pop()
				if x != wildcard && y != wildcard &&
					x != value.NullKind && y != value.NullKind &&
					x != value.EmptyKind && y != value.EmptyKind && x != y {
					return errors.Newf(errors.ExprTypeError, token.NoPos,
						"cannot compare %s with %s in %q", x, y, e.text)
				}
				stack = append(stack, value.BoolKind)
			case OpGt, OpGe, OpLt, OpLe:
				y, x := pop(), pop()
				if err := want(x, value.IntKind, "left operand of "+op.Symbol()); err != nil {
					return err
				}
				if err := want(y, value.IntKind, "right operand of "+op.Symbol()); err != nil {
					return err
				}
				stack = append(stack, value.BoolKind)
			}
		}
	}
	return nil
}
