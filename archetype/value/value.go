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

// Package value defines the typed values that flow through the archetype
// engine: script attributes, context bindings, expression operands, and
// resolver answers.
//
// A Value is immutable after construction. Coercions that are not well
// defined (list to int, say) fail with a ValueTypeError; parsing a dynamic
// payload into a typed value fails with a ValueParseError.
package value

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
)

// Kind identifies the payload of a Value.
type Kind uint8

const (
	// NullKind is the kind of the zero Value.
	NullKind Kind = iota
	StringKind
	IntKind
	BoolKind
	ListKind
	// EmptyKind marks a value that was declared but carries no payload,
	// such as the answer to a skipped optional input. It coerces to the
	// zero form of any payload kind.
	EmptyKind
	// DynamicKind wraps a lazy string supplier; coercion happens on demand.
	DynamicKind
)

var kindNames = [...]string{
	NullKind:    "null",
	StringKind:  "string",
	IntKind:     "int",
	BoolKind:    "boolean",
	ListKind:    "list",
	EmptyKind:   "empty",
	DynamicKind: "dynamic",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// A Value is a tagged union over the engine's payload kinds.
type Value struct {
	kind Kind
	s    string
	i    int64
	b    bool
	list []string
	dyn  func() string
}

// Null is the explicit null value and the zero Value.
var Null = Value{kind: NullKind}

// Empty is the value of a declared but unanswered binding.
var Empty = Value{kind: EmptyKind}

// True and False are the boolean values.
var (
	True  = Value{kind: BoolKind, b: true}
	False = Value{kind: BoolKind}
)

// NewString returns a STRING value.
func NewString(s string) Value { return Value{kind: StringKind, s: s} }

// NewInt returns an INT value.
func NewInt(i int64) Value { return Value{kind: IntKind, i: i} }

// NewBool returns a BOOLEAN value.
func NewBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// NewList returns a LIST value. The elements are copied.
func NewList(elems ...string) Value {
	return Value{kind: ListKind, list: slices.Clone(elems)}
}

// NewDynamic returns a DYNAMIC value whose payload is supplied lazily by
// fn. The supplier must be pure: it is invoked at most once per coercion
// and its result is not cached across Values.
func NewDynamic(fn func() string) Value {
	return Value{kind: DynamicKind, dyn: fn}
}

// Kind returns the kind tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == NullKind }

// IsEmpty reports whether v is the empty value.
func (v Value) IsEmpty() bool { return v.kind == EmptyKind }

// AsString returns the string payload of v. Only STRING, EMPTY, and
// DYNAMIC values have one.
func (v Value) AsString() (string, error) {
	switch v.kind {
	case StringKind:
		return v.s, nil
	case EmptyKind:
		return "", nil
	case DynamicKind:
		return v.dyn(), nil
	}
	return "", typeErr(v.kind, StringKind)
}

// AsBool returns the boolean payload of v. DYNAMIC payloads are parsed on
// demand and fail with a ValueParseError when malformed.
func (v Value) AsBool() (bool, error) {
	switch v.kind {
	case BoolKind:
		return v.b, nil
	case EmptyKind:
		return false, nil
	case DynamicKind:
		return ParseBool(v.dyn())
	}
	return false, typeErr(v.kind, BoolKind)
}

// AsInt returns the integer payload of v. DYNAMIC payloads are parsed on
// demand and fail with a ValueParseError when malformed.
func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case IntKind:
		return v.i, nil
	case EmptyKind:
		return 0, nil
	case DynamicKind:
		return ParseInt(v.dyn())
	}
	return 0, typeErr(v.kind, IntKind)
}

// AsList returns the list payload of v. DYNAMIC payloads are split on
// commas; EMPTY yields a nil list.
func (v Value) AsList() ([]string, error) {
	switch v.kind {
	case ListKind:
		return slices.Clone(v.list), nil
	case EmptyKind:
		return nil, nil
	case DynamicKind:
		return ParseList(v.dyn()), nil
	}
	return nil, typeErr(v.kind, ListKind)
}

// Format renders v for display and string interpolation. Unlike AsString
// it is defined for every kind.
func (v Value) Format() string {
	switch v.kind {
	case StringKind:
		return v.s
	case IntKind:
		return strconv.FormatInt(v.i, 10)
	case BoolKind:
		return strconv.FormatBool(v.b)
	case ListKind:
		return strings.Join(v.list, ",")
	case DynamicKind:
		return v.dyn()
	}
	return ""
}

// Settle forces a DYNAMIC value into a STRING value and returns every
// other value unchanged.
func (v Value) Settle() Value {
	if v.kind == DynamicKind {
		return NewString(v.dyn())
	}
	return v
}

// Equal reports whether two values are equal. DYNAMIC payloads are forced
// and compared as strings; values of differing kinds are unequal.
func Equal(a, b Value) bool {
	a, b = a.Settle(), b.Settle()
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case StringKind:
		return a.s == b.s
	case IntKind:
		return a.i == b.i
	case BoolKind:
		return a.b == b.b
	case ListKind:
		return slices.Equal(a.list, b.list)
	}
	return true
}

// ParseBool parses the string form of a boolean value.
func ParseBool(s string) (bool, error) {
	b, err := cast.ToBoolE(strings.TrimSpace(s))
	if err != nil {
		return false, errors.Newf(errors.ValueParseError, token.NoPos,
			"cannot parse %q as boolean", s)
	}
	return b, nil
}

// ParseInt parses the string form of an integer value.
func ParseInt(s string) (int64, error) {
	i, err := cast.ToInt64E(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Newf(errors.ValueParseError, token.NoPos,
			"cannot parse %q as int", s)
	}
	return i, nil
}

// ParseList splits the string form of a list value on commas. Elements are
// trimmed; an empty string yields a nil list.
func ParseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Parse converts the raw string form of a value into the requested kind.
// It is used for typed attribute access, where attributes are stored as
// strings but carry semantic type tags.
func Parse(k Kind, raw string) (Value, error) {
	switch k {
	case StringKind:
		return NewString(raw), nil
	case BoolKind:
		b, err := ParseBool(raw)
		if err != nil {
			return Null, err
		}
		return NewBool(b), nil
	case IntKind:
		i, err := ParseInt(raw)
		if err != nil {
			return Null, err
		}
		return NewInt(i), nil
	case ListKind:
		return NewList(ParseList(raw)...), nil
	}
	return Null, errors.Newf(errors.ValueTypeError, token.NoPos,
		"cannot parse attribute as %s", k)
}

func typeErr(got, want Kind) error {
	return errors.Newf(errors.ValueTypeError, token.NoPos,
		"cannot coerce %s value to %s", got, want)
}
