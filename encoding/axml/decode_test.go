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

package axml_test

import (
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"archetype.dev/go/archetype/ast"
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/encoding/axml"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<archetype-script xmlns="https://archetype.dev/script/1.0">
  <step name="application">
    <inputs>
      <input-text name="name" label="Project name" default="demo"/>
      <input-enum name="flavor" label="Flavor" default="se">
        <option value="se" label="Standard"/>
        <option value="mp" label="Micro" if="${advanced} == true"/>
      </input-enum>
    </inputs>
  </step>
  <output>
    <files directory="files">
      <includes>
        <include>**/*.java</include>
        <include>**/*.xml</include>
      </includes>
      <excludes>
        <exclude>**/target/**</exclude>
      </excludes>
    </files>
    <model>
      <model-value key="name" order="10">${name}</model-value>
    </model>
  </output>
</archetype-script>
`

func TestDecode(t *testing.T) {
	t.Parallel()
	s, err := axml.Parse(strings.NewReader(sample), "/main.xml")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(s.Path, "/main.xml"))
	qt.Assert(t, qt.Equals(s.Root.Kind, ast.Script_))

	step := s.Root.Children[0]
	qt.Assert(t, qt.Equals(step.Kind, ast.Step))
	qt.Assert(t, qt.Equals(step.Attrs["name"], "application"))

	inputs := step.Children[0]
	qt.Assert(t, qt.Equals(inputs.Kind, ast.Inputs))
	qt.Assert(t, qt.Equals(inputs.Children[0].Kind, ast.InputText))

	enum := inputs.Children[1]
	qt.Assert(t, qt.Equals(enum.Kind, ast.InputEnum))
	qt.Assert(t, qt.Equals(enum.Children[0].Kind, ast.Option))

	// An `if` attribute wraps its element in a condition owning it.
	cond := enum.Children[1]
	qt.Assert(t, qt.Equals(cond.Kind, ast.Condition))
	qt.Assert(t, qt.Equals(cond.Attrs["expression"], "${advanced} == true"))
	qt.Assert(t, qt.HasLen(cond.Children, 1))
	qt.Assert(t, qt.Equals(cond.Children[0].Kind, ast.Option))
	qt.Assert(t, qt.Equals(cond.Children[0].Parent(), cond))

	// Include/exclude children collapse into list payloads.
	output := s.Root.Children[1]
	files := output.Children[0]
	includes := files.Children[0]
	qt.Assert(t, qt.Equals(includes.Kind, ast.Includes))
	list, err := includes.Value.AsList()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(list, []string{"**/*.java", "**/*.xml"}))
	excludes := files.Children[1]
	list, err = excludes.Value.AsList()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(list, []string{"**/target/**"}))

	// model-value text content becomes the node's literal value.
	model := output.Children[1]
	mv := model.Children[0]
	qt.Assert(t, qt.Equals(mv.Kind, ast.ModelValue))
	raw, err := mv.Value.AsString()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(raw, "${name}"))

	// Positions carry file, line, and column for diagnostics.
	qt.Assert(t, qt.Equals(step.Pos.Filename(), "/main.xml"))
	qt.Assert(t, qt.IsTrue(step.Pos.Line() > 1))
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"wrong root", `<not-a-script/>`},
		{"unknown element", `<archetype-script><bogus/></archetype-script>`},
		{"stray text", `<archetype-script><step name="s">text</step></archetype-script>`},
		{"reserved element", `<archetype-script><invoke/></archetype-script>`},
		{"unclosed", `<archetype-script><step name="s">`},
		{"stray pattern element", `<archetype-script><includes><bogus>x</bogus></includes></archetype-script>`},
	}
	for _, tc := range tests {
		_, err := axml.Parse(strings.NewReader(tc.src), "/main.xml")
		qt.Assert(t, qt.IsNotNil(err), qt.Commentf("%s", tc.name))
		qt.Assert(t, qt.Equals(errors.CodeOf(err), errors.ParseError), qt.Commentf("%s", tc.name))
	}
}
