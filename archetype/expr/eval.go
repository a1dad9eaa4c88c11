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

// A Resolver maps a variable name to its value. The boolean result
// reports whether the variable is bound.
type Resolver func(name string) (value.Value, bool)

// A thunk is a deferred operand. Forcing it computes the operand's value;
// operands on the un-demanded side of a short-circuiting operator are
// never forced.
type thunk func() (value.Value, error)

func literal(v value.Value) thunk {
	return func() (value.Value, error) { return v, nil }
}

// Eval evaluates the expression against the resolver and returns its
// natural result. Type mismatches and unresolved-but-demanded variables
// return an ExprTypeError.
func (e *Expr) Eval(r Resolver) (value.Value, error) {
	var stack []thunk
	for _, t := range e.rpn {
		switch t.Kind {
		case OperandToken:
			stack = append(stack, literal(t.Val))
		case VariableToken:
			name := t.Name
			stack = append(stack, func() (value.Value, error) {
				v, ok := r(name)
				if !ok {
					return value.Null, errors.Newf(errors.ExprTypeError, token.NoPos,
						"unresolved variable %q in %q", name, e.text)
				}
				return v, nil
			})
		default:
			stack = e.apply(stack, t.Op)
		}
	}
	// checkArity guaranteed a single result.
	return stack[0]()
}

// EvalCondition evaluates the expression as a condition: a non-boolean
// result is a type error.
func (e *Expr) EvalCondition(r Resolver) (bool, error) {
	v, err := e.Eval(r)
	if err != nil {
		return false, err
	}
	if v.Kind() != value.BoolKind {
		return false, errors.Newf(errors.ExprTypeError, token.NoPos,
			"condition %q yields %s, not boolean", e.text, v.Kind())
	}
	b, err := v.AsBool()
	if err != nil {
		return false, err
	}
	return b, nil
}

func (e *Expr) apply(stack []thunk, op Op) []thunk {
	pop := func() thunk {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return t
	}
	mismatch := func(format string, args ...interface{}) (value.Value, error) {
		args = append(args, e.text)
		return value.Null, errors.Newf(errors.ExprTypeError, token.NoPos,
			format+" in %q", args...)
	}
	forceBool := func(t thunk) (bool, error) {
		v, err := t()
		if err != nil {
			return false, err
		}
		switch v.Kind() {
		case value.BoolKind, value.DynamicKind, value.EmptyKind:
		default:
			_, err := mismatch("%s operand where boolean is required", v.Kind())
			return false, err
		}
		return v.AsBool()
	}
	forceInt := func(t thunk) (int64, error) {
		v, err := t()
		if err != nil {
			return 0, err
		}
		switch v.Kind() {
		case value.IntKind, value.DynamicKind:
		default:
			_, err := mismatch("%s operand where int is required", v.Kind())
			return 0, err
		}
		return v.AsInt()
	}
	switch op {
	case OpNot:
		x := pop()
		return append(stack, func() (value.Value, error) {
			b, err := forceBool(x)
			if err != nil {
				return value.Null, err
			}
			return value.NewBool(!b), nil
		})
	case OpAnd, OpOr:
		y, x := pop(), pop()
		return append(stack, func() (value.Value, error) {
			b, err := forceBool(x)
			if err != nil {
				return value.Null, err
			}
			if op == OpAnd && !b {
				return value.False, nil
			}
			if op == OpOr && b {
				return value.True, nil
			}
			return func() (value.Value, error) {
				b, err := forceBool(y)
				if err != nil {
					return value.Null, err
				}
				return value.NewBool(b), nil
			}()
		})
	case OpTernary:
		elseT, thenT, cond := pop(), pop(), pop()
		return append(stack, func() (value.Value, error) {
			b, err := forceBool(cond)
			if err != nil {
				return value.Null, err
			}
			if b {
				return thenT()
			}
			return elseT()
		})
	case OpContains:
		y, x := pop(), pop()
		return append(stack, func() (value.Value, error) {
			xv, err := x()
			if err != nil {
				return value.Null, err
			}
			if xv.Kind() != value.ListKind && xv.Kind() != value.DynamicKind &&
				xv.Kind() != value.EmptyKind {
				return mismatch("left operand of contains is %s, not list", xv.Kind())
			}
			list, err := xv.AsList()
			if err != nil {
				return value.Null, err
			}
			yv, err := y()
			if err != nil {
				return value.Null, err
			}
			if yv.Kind() != value.StringKind && yv.Kind() != value.DynamicKind &&
				yv.Kind() != value.EmptyKind {
				return mismatch("right operand of contains is %s, not string", yv.Kind())
			}
			s, err := yv.AsString()
			if err != nil {
				return value.Null, err
			}
			for _, elem := range list {
				if elem == s {
					return value.True, nil
				}
			}
			return value.False, nil
		})
	case OpEq, OpNe:
		y, x := pop(), pop()
		return append(stack, func() (value.Value, error) {
			xv, err := x()
			if err != nil {
				return value.Null, err
			}
			yv, err := y()
			if err != nil {
				return value.Null, err
			}
			eq, err := e.equal(xv, yv)
			if err != nil {
				return value.Null, err
			}
			if op == OpNe {
				eq = !eq
			}
			return value.NewBool(eq), nil
		})
	case OpGt, OpGe, OpLt, OpLe:
		y, x := pop(), pop()
		return append(stack, func() (value.Value, error) {
			a, err := forceInt(x)
			if err != nil {
				return value.Null, err
			}
			b, err := forceInt(y)
			if err != nil {
				return value.Null, err
			}
			var r bool
			switch op {
			case OpGt:
				r = a > b
			case OpGe:
				r = a >= b
			case OpLt:
				r = a < b
			case OpLe:
				r = a <= b
			}
			return value.NewBool(r), nil
		})
	}
	panic("expr: unreachable operator " + op.Symbol())
}

// equal implements == with the NULL identity rule: when one side is NULL
// the result is an identity check rather than a type error.
func (e *Expr) equal(a, b value.Value) (bool, error) {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() == b.IsNull(), nil
	}
	// Two dynamic payloads compare by their forced strings.
	if a.Kind() == value.DynamicKind && b.Kind() == value.DynamicKind {
		return value.Equal(a, b), nil
	}
	// A dynamic payload coerces toward the concrete side.
	if a.Kind() == value.DynamicKind {
		a, b = b, a
	}
	if b.Kind() == value.DynamicKind {
		switch a.Kind() {
		case value.BoolKind:
			bb, err := b.AsBool()
			if err != nil {
				return false, err
			}
			b = value.NewBool(bb)
		case value.IntKind:
			bi, err := b.AsInt()
			if err != nil {
				return false, err
			}
			b = value.NewInt(bi)
		case value.ListKind:
			bl, err := b.AsList()
			if err != nil {
				return false, err
			}
			b = value.NewList(bl...)
		default:
			b = b.Settle()
		}
	}
	if a.Kind() != b.Kind() {
		return false, errors.Newf(errors.ExprTypeError, token.NoPos,
			"cannot compare %s with %s in %q", a.Kind(), b.Kind(), e.text)
	}
	return value.Equal(a, b), nil
}
