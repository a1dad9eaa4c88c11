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

package input_test

import (
	stdcontext "context"
	"testing"

	"github.com/go-quicktest/qt"

	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/input"
	"archetype.dev/go/archetype/value"
)

func enumDescriptor() *input.Descriptor {
	return &input.Descriptor{
		Kind: input.Enum,
		Name: "flavor",
		Path: "flavor",
		Options: []input.Option{
			{Value: "se", Label: "Standard"},
			{Value: "mp", Label: "Micro"},
		},
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	d := enumDescriptor()

	v, err := d.Normalize(value.NewString("se"))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(value.Equal(v, value.NewString("se"))))

	// Out-of-set enum answers are rejected.
	_, err = d.Normalize(value.NewString("ee"))
	qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.InputTypeMismatch))

	// Kind mismatches are rejected.
	_, err = d.Normalize(value.True)
	qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.InputTypeMismatch))

	// An empty answer for a required input is rejected.
	_, err = d.Normalize(value.Empty)
	qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.InputTypeMismatch))
	d.Optional = true
	v, err = d.Normalize(value.Empty)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(v.IsEmpty()))
}

func TestNormalizeList(t *testing.T) {
	t.Parallel()
	d := &input.Descriptor{
		Kind: input.List,
		Path: "features",
		Options: []input.Option{
			{Value: "db"}, {Value: "web"}, {Value: "metrics"},
		},
	}

	// Duplicates collapse, order of first occurrence kept.
	v, err := d.Normalize(value.NewList("web", "db", "web"))
	qt.Assert(t, qt.IsNil(err))
	list, err := v.AsList()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(list, []string{"web", "db"}))

	_, err = d.Normalize(value.NewList("web", "nope"))
	qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.InputTypeMismatch))
}

func TestMapResolver(t *testing.T) {
	t.Parallel()
	r := input.MapResolver{
		"flavor": value.NewString("mp"),
	}
	v, err := r.Resolve(stdcontext.Background(), enumDescriptor())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(value.Equal(v, value.NewString("mp"))))

	// Missing entries fall back to the default.
	d := enumDescriptor()
	d.Default = value.NewString("se")
	v, err = r.Resolve(stdcontext.Background(), &input.Descriptor{
		Kind: d.Kind, Name: "other", Path: "other",
		Default: d.Default, Options: d.Options,
	})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(value.Equal(v, value.NewString("se"))))

	// No entry, no default: batch runs fail instead of blocking.
	_, err = r.Resolve(stdcontext.Background(), &input.Descriptor{
		Kind: input.Text, Name: "missing", Path: "missing",
		Default: value.Null,
	})
	qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.InputTypeMismatch))
}

func TestDefaultResolver(t *testing.T) {
	t.Parallel()
	var r input.DefaultResolver
	v, err := r.Resolve(stdcontext.Background(), &input.Descriptor{
		Kind: input.Boolean, Path: "verbose", Default: value.True,
	})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(value.Equal(v, value.True)))

	// Optional inputs without a default answer empty.
	v, err = r.Resolve(stdcontext.Background(), &input.Descriptor{
		Kind: input.Text, Path: "desc", Default: value.Null, Optional: true,
	})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(v.IsEmpty()))
}
