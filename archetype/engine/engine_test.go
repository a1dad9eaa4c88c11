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

package engine_test

import (
	stdcontext "context"
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/rogpeppe/go-internal/txtar"

	"archetype.dev/go/archetype/engine"
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/input"
	"archetype.dev/go/archetype/load"
	"archetype.dev/go/archetype/value"
)

func newLoader(t *testing.T, archive string) *load.Loader {
	t.Helper()
	overlay := make(map[string][]byte)
	for _, f := range txtar.Parse([]byte(archive)).Files {
		overlay["/"+f.Name] = f.Data
	}
	l, err := load.NewLoader(load.Config{Overlay: overlay})
	qt.Assert(t, qt.IsNil(err))
	return l
}

// recordingResolver answers from a table and records every descriptor it
// was asked for.
type recordingResolver struct {
	answers input.MapResolver
	prompts []*input.Descriptor
}

func (r *recordingResolver) Resolve(ctx stdcontext.Context, d *input.Descriptor) (value.Value, error) {
	r.prompts = append(r.prompts, d)
	return r.answers.Resolve(ctx, d)
}

func (r *recordingResolver) promptedPaths() []string {
	var out []string
	for _, d := range r.prompts {
		out = append(out, d.Path)
	}
	return out
}

func (r *recordingResolver) descriptor(path string) *input.Descriptor {
	for _, d := range r.prompts {
		if d.Path == path {
			return d
		}
	}
	return nil
}

const mainScript = `
-- main.xml --
<archetype-script>
  <presets>
    <preset-enum path="flavor" value="se"/>
    <condition expression="false">
      <preset-boolean path="p1" value="true"/>
    </condition>
  </presets>
  <step name="application">
    <inputs>
      <input-text name="name" label="Project name" default="myapp"/>
      <input-enum name="flavor" label="Flavor" default="mp">
        <option value="se">
          <output>
            <file source="files/se.txt" target="se.txt"/>
          </output>
        </option>
        <option value="mp"/>
      </input-enum>
      <input-list name="heat" label="Heat">
        <option value="warm">
          <inputs>
            <input-enum name="warmth" label="Warmth" default="mild">
              <option value="mild"/>
              <option value="toasty" if="${~heat} contains 'cold'"/>
            </input-enum>
          </inputs>
        </option>
        <option value="cold"/>
      </input-list>
    </inputs>
  </step>
  <method name="emit">
    <variables>
      <variable-text path="x" value="1"/>
    </variables>
    <output>
      <file source="files/a.txt" target="a.txt"/>
    </output>
  </method>
  <call method="emit"/>
  <call method="emit"/>
  <source src="nested/shared.xml"/>
  <exec src="nested/other.xml"/>
  <output>
    <transformation id="named">
      <replace regex="__name__" replacement="${name}"/>
    </transformation>
    <templates directory="templates" engine="mustache" transformations="named">
      <includes>
        <include>**/*.mustache</include>
      </includes>
    </templates>
    <model>
      <model-value key="title" order="10">${name}</model-value>
      <model-list key="deps">
        <model-value order="20">two</model-value>
      </model-list>
      <condition expression="${flavor} == 'se'">
        <model-list key="deps">
          <model-value order="10">one</model-value>
        </model-list>
      </condition>
    </model>
  </output>
</archetype-script>
-- nested/shared.xml --
<archetype-script>
  <output>
    <file source="files/shared.txt" target="shared.txt"/>
  </output>
</archetype-script>
-- nested/other.xml --
<archetype-script>
  <output>
    <file source="files/other.txt" target="other.txt"/>
  </output>
</archetype-script>
`

func TestRun(t *testing.T) {
	t.Parallel()
	resolver := &recordingResolver{answers: input.MapResolver{
		"name": value.NewString("demo"),
		"heat": value.NewList("warm"),
	}}
	res, err := engine.Run(stdcontext.Background(), engine.Config{
		Loader:   newLoader(t, mainScript),
		Resolver: resolver,
	})
	qt.Assert(t, qt.IsNil(err))

	// The preset answered flavor; the controller never prompted for it.
	qt.Assert(t, qt.DeepEquals(resolver.promptedPaths(),
		[]string{"name", "heat", "heat.warmth"}))
	v, ok := res.Context.Get("flavor")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsTrue(value.Equal(v, value.NewString("se"))))

	// A preset under a false condition is never applied.
	_, ok = res.Context.Get("p1")
	qt.Assert(t, qt.IsFalse(ok))

	// The guarded sub-option was filtered out of the prompt: the heat
	// selection does not contain "cold".
	warmth := resolver.descriptor("heat.warmth")
	qt.Assert(t, qt.IsNotNil(warmth))
	qt.Assert(t, qt.DeepEquals(warmth.Options, []input.Option{{Value: "mild"}}))

	// Calling a method twice emits identical directives but binds its
	// variable once; the equal rewrite is a no-op.
	v, ok = res.Context.Get("x")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsTrue(value.Equal(v, value.NewString("1"))))

	var files [][2]string
	for _, f := range res.Plan.Files {
		files = append(files, [2]string{f.Source, f.Target})
	}
	qt.Assert(t, qt.DeepEquals(files, [][2]string{
		{"/files/se.txt", "se.txt"},
		{"/files/a.txt", "a.txt"},
		{"/files/a.txt", "a.txt"},
		// source keeps the caller's directory for nested paths...
		{"/files/shared.txt", "shared.txt"},
		// ...exec re-roots to the callee's.
		{"/nested/files/other.txt", "other.txt"},
	}))

	// Template set with its transformation resolved and interpolated.
	qt.Assert(t, qt.HasLen(res.Plan.TemplateSets, 1))
	set := res.Plan.TemplateSets[0]
	qt.Assert(t, qt.Equals(set.Engine, "mustache"))
	qt.Assert(t, qt.Equals(set.Directory, "/templates"))
	qt.Assert(t, qt.DeepEquals(set.Includes, []string{"**/*.mustache"}))
	qt.Assert(t, qt.HasLen(set.Transformations, 1))
	qt.Assert(t, qt.Equals(set.Transformations[0].Apply("src/__name__/x"), "src/demo/x"))

	// Model: interpolated scalar, lists merged across condition blocks in
	// ascending order.
	model := res.Plan.Model.Root()
	qt.Assert(t, qt.Equals(model["title"].Scalar, "demo"))
	var deps []string
	for _, e := range model["deps"].List {
		deps = append(deps, e.Scalar)
	}
	qt.Assert(t, qt.DeepEquals(deps, []string{"one", "two"}))
}

func TestExternalValues(t *testing.T) {
	t.Parallel()
	resolver := &recordingResolver{answers: input.MapResolver{
		"heat": value.NewList("cold"),
	}}
	res, err := engine.Run(stdcontext.Background(), engine.Config{
		Loader:   newLoader(t, mainScript),
		Resolver: resolver,
		External: map[string]value.Value{
			"name": value.NewString("external-name"),
		},
	})
	qt.Assert(t, qt.IsNil(err))

	// Externally seeded inputs are never prompted and stay read-only.
	qt.Assert(t, qt.DeepEquals(resolver.promptedPaths(), []string{"heat"}))
	v, _ := res.Context.Get("name")
	qt.Assert(t, qt.IsTrue(value.Equal(v, value.NewString("external-name"))))
	qt.Assert(t, qt.Equals(res.Plan.Model.Root()["title"].Scalar, "external-name"))
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	resolver := input.ResolverFunc(func(stdcontext.Context, *input.Descriptor) (value.Value, error) {
		return value.Null, errors.ErrCancelled
	})
	_, err := engine.Run(stdcontext.Background(), engine.Config{
		Loader:   newLoader(t, mainScript),
		Resolver: resolver,
	})
	qt.Assert(t, qt.IsTrue(errors.Is(err, errors.ErrCancelled)))
	qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.Cancelled))
}

func TestUnknownMethod(t *testing.T) {
	t.Parallel()
	l := newLoader(t, `
-- main.xml --
<archetype-script>
  <call method="nope"/>
</archetype-script>
`)
	_, err := engine.Run(stdcontext.Background(), engine.Config{
		Loader:   l,
		Resolver: input.DefaultResolver{},
	})
	qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.UnknownMethod))
}

func TestInputTypeMismatch(t *testing.T) {
	t.Parallel()
	l := newLoader(t, `
-- main.xml --
<archetype-script>
  <step name="s">
    <inputs>
      <input-boolean name="flag" label="Flag"/>
    </inputs>
  </step>
</archetype-script>
`)
	resolver := input.ResolverFunc(func(stdcontext.Context, *input.Descriptor) (value.Value, error) {
		return value.NewString("not-a-bool"), nil
	})
	_, err := engine.Run(stdcontext.Background(), engine.Config{
		Loader:   l,
		Resolver: resolver,
	})
	qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.InputTypeMismatch))
}

func TestBooleanGating(t *testing.T) {
	t.Parallel()
	l := newLoader(t, `
-- main.xml --
<archetype-script>
  <step name="s">
    <inputs>
      <input-boolean name="docs" label="Docs" default="false">
        <output>
          <file source="files/docs.txt" target="docs.txt"/>
        </output>
      </input-boolean>
    </inputs>
  </step>
</archetype-script>
`)
	res, err := engine.Run(stdcontext.Background(), engine.Config{
		Loader:   l,
		Resolver: input.DefaultResolver{},
	})
	qt.Assert(t, qt.IsNil(err))
	// A false boolean input skips its subtree.
	qt.Assert(t, qt.HasLen(res.Plan.Files, 0))

	res, err = engine.Run(stdcontext.Background(), engine.Config{
		Loader: newLoader(t, `
-- main.xml --
<archetype-script>
  <step name="s">
    <inputs>
      <input-boolean name="docs" label="Docs" default="true">
        <output>
          <file source="files/docs.txt" target="docs.txt"/>
        </output>
      </input-boolean>
    </inputs>
  </step>
</archetype-script>
`),
		Resolver: input.DefaultResolver{},
	})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(res.Plan.Files, 1))
}

func TestConditionTypeError(t *testing.T) {
	t.Parallel()
	l := newLoader(t, `
-- main.xml --
<archetype-script>
  <presets>
    <condition expression="'not a bool'">
      <preset-text path="p" value="x"/>
    </condition>
  </presets>
</archetype-script>
`)
	_, err := engine.Run(stdcontext.Background(), engine.Config{
		Loader:   l,
		Resolver: input.DefaultResolver{},
	})
	qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.ExprTypeError))
}
