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

package expr_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/expr"
	"archetype.dev/go/archetype/value"
)

func resolver(vars map[string]value.Value) expr.Resolver {
	return func(name string) (value.Value, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

var noVars = resolver(nil)

func TestEval(t *testing.T) {
	t.Parallel()
	vars := resolver(map[string]value.Value{
		"var1":  value.NewList("a", "b", "c"),
		"var2":  value.NewString("b"),
		"var3":  value.NewString("d"),
		"str":   value.NewString("a"),
		"n":     value.NewInt(3),
		"yes":   value.True,
		"no":    value.False,
		"null1": value.Null,
	})
	tests := []struct {
		src  string
		want value.Value
	}{
		// Pure literals evaluate to themselves.
		{"true", value.True},
		{"false", value.False},
		{"'text'", value.NewString("text")},
		{"42", value.NewInt(42)},
		{"-7", value.NewInt(-7)},
		{"['a','b']", value.NewList("a", "b")},

		// Boolean connectives and negation.
		{"true && false", value.False},
		{"true || false", value.True},
		{"!false", value.True},
		{"!true || true", value.True},

		// Precedence: ! binds tighter than contains, comparisons tighter
		// than &&, && tighter than ||.
		{"1 < 2 && 2 < 3", value.True},
		{"false && false || true", value.True},
		{"true || false && false", value.True},
		{"(true || false) && false", value.False},

		// Comparisons.
		{"2 > 1", value.True},
		{"2 >= 2", value.True},
		{"1 < 1", value.False},
		{"n <= 3", value.True},

		// Equality.
		{"'a' == 'a'", value.True},
		{"'a' != 'b'", value.True},
		{"n == 3", value.True},
		{"yes == true", value.True},
		{"['a','b'] == ['a','b']", value.True},
		{"null1 == null", value.True},
		{"str == null", value.False},

		// contains.
		{"var1 contains var2", value.True},
		{"${var1} contains ${var2}", value.True},
		{"${var1} contains ${var3}", value.False},
		{"['x'] contains 'x'", value.True},

		// Ternary.
		{"true ? 'a' : 'b'", value.NewString("a")},
		{"false ? 'a' : 'b'", value.NewString("b")},
		{"n > 2 ? 1 : 2", value.NewInt(1)},
		{"false ? 1 : true ? 2 : 3", value.NewInt(2)},
	}
	for _, tc := range tests {
		e, err := expr.Compile(tc.src)
		qt.Assert(t, qt.IsNil(err), qt.Commentf("compile %q", tc.src))
		got, err := e.Eval(vars)
		qt.Assert(t, qt.IsNil(err), qt.Commentf("eval %q", tc.src))
		qt.Assert(t, qt.IsTrue(value.Equal(got, tc.want)), qt.Commentf("%q: got %v", tc.src, got))
	}
}

func TestShortCircuit(t *testing.T) {
	t.Parallel()
	// The un-demanded side never forces its variables, so an unresolved
	// variable does not raise.
	tests := []struct {
		src  string
		want value.Value
	}{
		{"false && missing", value.False},
		{"true || missing", value.True},
		{"true ? 'ok' : missing", value.NewString("ok")},
		{"false ? missing : 'ok'", value.NewString("ok")},
	}
	for _, tc := range tests {
		e, err := expr.Compile(tc.src)
		qt.Assert(t, qt.IsNil(err), qt.Commentf("compile %q", tc.src))
		got, err := e.Eval(noVars)
		qt.Assert(t, qt.IsNil(err), qt.Commentf("eval %q", tc.src))
		qt.Assert(t, qt.IsTrue(value.Equal(got, tc.want)), qt.Commentf("%q", tc.src))
	}

	// A demanded unresolved variable raises.
	e, err := expr.Compile("true && missing")
	qt.Assert(t, qt.IsNil(err))
	_, err = e.Eval(noVars)
	qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.ExprTypeError))
}

func TestTypeErrors(t *testing.T) {
	t.Parallel()
	vars := resolver(map[string]value.Value{
		"str":  value.NewString("a"),
		"list": value.NewList("a"),
	})
	tests := []string{
		"str contains 'a'",   // left of contains must be a list
		"list contains list", // right of contains must be a string
		"'a' == 1",
		"true > false",
		"1 && true",
		"!'a'",
	}
	for _, src := range tests {
		e, err := expr.Compile(src)
		qt.Assert(t, qt.IsNil(err), qt.Commentf("compile %q", src))
		_, err = e.Eval(vars)
		qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.ExprTypeError), qt.Commentf("%q", src))
	}
}

func TestEvalCondition(t *testing.T) {
	t.Parallel()
	e, err := expr.Compile("'a'")
	qt.Assert(t, qt.IsNil(err))
	_, err = e.EvalCondition(noVars)
	qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.ExprTypeError))

	e, err = expr.Compile("1 < 2")
	qt.Assert(t, qt.IsNil(err))
	ok, err := e.EvalCondition(noVars)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(ok))
}

func TestFormatErrors(t *testing.T) {
	t.Parallel()
	tests := []string{
		"",
		"&& true",
		"true &&",
		"(true",
		"true)",
		"'unterminated",
		"['a'",
		"['a' 'b']",
		"${}",
		"${unterminated",
		"true ? 'a'",
		"'a' : 'b'",
		"1 2",
	}
	for _, src := range tests {
		_, err := expr.Compile(src)
		qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.ExprFormatError), qt.Commentf("%q", src))
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()
	e, err := expr.Compile("${a} == 'x' && !b")
	qt.Assert(t, qt.IsNil(err))
	var got []string
	for _, tok := range e.Tokens() {
		got = append(got, tok.String())
	}
	// Declaration order is preserved for serialization.
	qt.Assert(t, qt.DeepEquals(got, []string{"${a}", "==", "x", "&&", "!", "${b}"}))
	qt.Assert(t, qt.DeepEquals(e.Vars(), []string{"a", "b"}))
}

func TestCompileString(t *testing.T) {
	t.Parallel()
	vars := resolver(map[string]value.Value{
		"name": value.NewString("demo"),
		"port": value.NewInt(8080),
		"list": value.NewList("a", "b"),
	})

	// A string with no delimiter is a literal.
	se, err := expr.CompileString("just text")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(se.IsLiteral()))
	v, err := se.Eval(noVars)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(value.Equal(v, value.NewString("just text"))))

	// Whole-text expressions keep their natural result type.
	se, err = expr.CompileString("`true`")
	qt.Assert(t, qt.IsNil(err))
	v, err = se.Eval(noVars)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(value.Equal(v, value.True)))

	se, err = expr.CompileString("`['a','b']`")
	qt.Assert(t, qt.IsNil(err))
	v, err = se.Eval(noVars)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(value.Equal(v, value.NewList("a", "b"))))

	se, err = expr.CompileString("#{${list} contains 'a'}")
	qt.Assert(t, qt.IsNil(err))
	v, err = se.Eval(vars)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(value.Equal(v, value.True)))

	// Mixed interpolation concatenates string forms.
	se, err = expr.CompileString("app-${name}:#{${port} > 1024 ? 'high' : 'low'}")
	qt.Assert(t, qt.IsNil(err))
	v, err = se.Eval(vars)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(value.Equal(v, value.NewString("app-demo:high"))))

	// Unresolved variables in demanded segments raise.
	se, err = expr.CompileString("x-${missing}")
	qt.Assert(t, qt.IsNil(err))
	_, err = se.Eval(noVars)
	qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.ExprTypeError))
}

func TestCheck(t *testing.T) {
	t.Parallel()
	env := func(name string) (value.Kind, bool) {
		switch name {
		case "flag":
			return value.BoolKind, true
		case "items":
			return value.ListKind, true
		case "name":
			return value.StringKind, true
		case "n":
			return value.IntKind, true
		}
		return value.NullKind, false
	}
	ok := []string{
		"flag && !flag",
		"items contains name",
		"n > 2 ? flag : !flag",
		"name == 'x'",
	}
	for _, src := range ok {
		e, err := expr.Compile(src)
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.IsNil(e.Check(env)), qt.Commentf("%q", src))
	}

	e, err := expr.Compile("missing == 'x'")
	qt.Assert(t, qt.IsNil(err))
	var unresolved *expr.UnresolvedError
	qt.Assert(t, qt.IsTrue(errors.As(e.Check(env), &unresolved)))
	qt.Assert(t, qt.Equals(unresolved.Name, "missing"))

	bad := []string{
		"name contains 'x'",
		"flag > 1",
		"name && flag",
		"items == name",
	}
	for _, src := range bad {
		e, err := expr.Compile(src)
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(errors.CodeOf(e.Check(env)), errors.ExprTypeError), qt.Commentf("%q", src))
	}
}
