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

// Package input defines the interface between the engine and whatever
// gathers user decisions: a terminal prompter, an IDE form, or one of the
// non-interactive resolvers in this package.
package input

import (
	stdcontext "context"
	"fmt"
	"slices"

	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/token"
	"archetype.dev/go/archetype/value"
)

// Kind identifies the shape of an input.
type Kind uint8

const (
	Text Kind = iota
	Boolean
	Enum
	List
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "BOOLEAN"
	case Enum:
		return "ENUM"
	case List:
		return "LIST"
	}
	return "TEXT"
}

// ValueKind returns the value kind an answer of this input kind must
// carry.
func (k Kind) ValueKind() value.Kind {
	switch k {
	case Boolean:
		return value.BoolKind
	case List:
		return value.ListKind
	}
	return value.StringKind
}

// An Option is one selectable value of an ENUM or LIST input.
type Option struct {
	Value string
	Label string
	Help  string
}

// A Descriptor carries everything a resolver needs to prompt for one
// input.
type Descriptor struct {
	Kind     Kind
	Name     string // local id
	Path     string // absolute dotted path
	Label    string
	Help     string
	Default  value.Value // Null when the input declares none
	Options  []Option    // for ENUM and LIST
	Optional bool
	Pos      token.Pos
}

// A Resolver produces the value for one input. It may block (a terminal
// prompt does); it must return before the walk continues. Cancellation is
// expressed by returning an error matching [errors.ErrCancelled].
type Resolver interface {
	Resolve(ctx stdcontext.Context, d *Descriptor) (value.Value, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx stdcontext.Context, d *Descriptor) (value.Value, error)

func (f ResolverFunc) Resolve(ctx stdcontext.Context, d *Descriptor) (value.Value, error) {
	return f(ctx, d)
}

// Normalize checks a resolver's answer against the descriptor: the value
// kind must match the input kind, ENUM answers must name an option, and
// LIST answers are constrained to the option values with duplicates
// collapsed. A failed check is an InputTypeMismatch.
func (d *Descriptor) Normalize(v value.Value) (value.Value, error) {
	mismatch := func(format string, args ...interface{}) (value.Value, error) {
		err := errors.NewPathf(errors.InputTypeMismatch, d.Pos, d.Path,
			format, args...)
		return value.Null, err
	}
	if v.IsEmpty() {
		if !d.Optional {
			return mismatch("input is not optional")
		}
		return v, nil
	}
	v = v.Settle()
	if got, want := v.Kind(), d.Kind.ValueKind(); got != want {
		return mismatch("resolver returned %s, input wants %s", got, want)
	}
	switch d.Kind {
	case Enum:
		s, err := v.AsString()
		if err != nil {
			return value.Null, err
		}
		if d.option(s) == nil {
			return mismatch("%q is not one of the declared options", s)
		}
	case List:
		elems, err := v.AsList()
		if err != nil {
			return value.Null, err
		}
		var out []string
		for _, e := range elems {
			if d.option(e) == nil {
				return mismatch("%q is not one of the declared options", e)
			}
			if !slices.Contains(out, e) {
				out = append(out, e)
			}
		}
		return value.NewList(out...), nil
	}
	return v, nil
}

func (d *Descriptor) option(val string) *Option {
	for i := range d.Options {
		if d.Options[i].Value == val {
			return &d.Options[i]
		}
	}
	return nil
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s %s", d.Kind, d.Path)
}

// MapResolver answers from a fixed path-keyed table, falling back to the
// descriptor's default. A required input with neither an entry nor a
// default is an error; batch runs use this to fail instead of blocking.
type MapResolver map[string]value.Value

func (m MapResolver) Resolve(_ stdcontext.Context, d *Descriptor) (value.Value, error) {
	if v, ok := m[d.Path]; ok {
		return d.Normalize(v)
	}
	return defaultAnswer(d)
}

// DefaultResolver accepts the default of every input it is asked for.
type DefaultResolver struct{}

func (DefaultResolver) Resolve(_ stdcontext.Context, d *Descriptor) (value.Value, error) {
	return defaultAnswer(d)
}

func defaultAnswer(d *Descriptor) (value.Value, error) {
	if !d.Default.IsNull() {
		return d.Normalize(d.Default)
	}
	if d.Optional {
		return value.Empty, nil
	}
	return value.Null, errors.NewPathf(errors.InputTypeMismatch, d.Pos, d.Path,
		"no answer and no default for required input")
}
