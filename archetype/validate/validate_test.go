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

package validate_test

import (
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/rogpeppe/go-internal/txtar"

	"archetype.dev/go/archetype/load"
	"archetype.dev/go/archetype/validate"
)

func run(t *testing.T, archive string) []validate.Diagnostic {
	t.Helper()
	overlay := make(map[string][]byte)
	for _, f := range txtar.Parse([]byte(archive)).Files {
		overlay["/"+f.Name] = f.Data
	}
	diags, err := validate.Validate(validate.Config{
		Config: load.Config{Overlay: overlay},
	})
	qt.Assert(t, qt.IsNil(err))
	return diags
}

func codes(diags []validate.Diagnostic) []validate.Code {
	var out []validate.Code
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func TestOptionalInputWithoutDefault(t *testing.T) {
	t.Parallel()
	diags := run(t, `
-- main.xml --
<archetype-script>
  <step name="s" optional="true">
    <inputs>
      <input-text name="desc" label="Description" optional="true"/>
    </inputs>
  </step>
</archetype-script>
`)
	// Exactly one diagnostic.
	qt.Assert(t, qt.DeepEquals(codes(diags), []validate.Code{validate.InputOptionalNoDefault}))
	qt.Assert(t, qt.Equals(diags[0].Path, "desc"))
}

func TestCleanScript(t *testing.T) {
	t.Parallel()
	diags := run(t, `
-- main.xml --
<archetype-script>
  <presets>
    <preset-enum path="flavor" value="se"/>
  </presets>
  <step name="s">
    <inputs>
      <input-enum name="flavor" label="Flavor" default="se">
        <option value="se"/>
        <option value="mp"/>
      </input-enum>
      <input-boolean name="docs" label="Docs" default="false"/>
    </inputs>
  </step>
  <output>
    <condition expression="${docs} == true">
      <file source="f" target="f"/>
    </condition>
  </output>
</archetype-script>
`)
	qt.Assert(t, qt.HasLen(diags, 0))
}

func TestStepRules(t *testing.T) {
	t.Parallel()
	diags := run(t, `
-- main.xml --
<archetype-script>
  <step name="declared-optional" optional="true">
    <inputs>
      <input-text name="req" label="Required" default="x"/>
    </inputs>
  </step>
  <step name="not-declared">
    <inputs>
      <input-text name="opt" label="Optional" optional="true" default="x"/>
    </inputs>
  </step>
  <step name="empty"/>
</archetype-script>
`)
	qt.Assert(t, qt.DeepEquals(codes(diags), []validate.Code{
		validate.StepDeclaredOptional,
		validate.StepNotDeclaredOptional,
		validate.StepNoInput,
	}))
}

func TestInputNotInStep(t *testing.T) {
	t.Parallel()
	diags := run(t, `
-- main.xml --
<archetype-script>
  <inputs>
    <input-text name="loose" label="Loose" default="x"/>
  </inputs>
</archetype-script>
`)
	qt.Assert(t, qt.DeepEquals(codes(diags), []validate.Code{validate.InputNotInStep}))
}

func TestInputAlreadyDeclared(t *testing.T) {
	t.Parallel()
	diags := run(t, `
-- main.xml --
<archetype-script>
  <step name="s">
    <inputs>
      <input-text name="dup" label="One" default="x"/>
      <input-boolean name="dup" label="Two" default="false"/>
    </inputs>
  </step>
</archetype-script>
`)
	qt.Assert(t, qt.DeepEquals(codes(diags), []validate.Code{validate.InputAlreadyDeclared}))
}

func TestOptionValueAlreadyDeclared(t *testing.T) {
	t.Parallel()
	diags := run(t, `
-- main.xml --
<archetype-script>
  <step name="s">
    <inputs>
      <input-enum name="e" label="E" default="a">
        <option value="a"/>
        <option value="a"/>
      </input-enum>
    </inputs>
  </step>
</archetype-script>
`)
	qt.Assert(t, qt.DeepEquals(codes(diags), []validate.Code{validate.OptionValueAlreadyDeclared}))
}

func TestPresetRules(t *testing.T) {
	t.Parallel()
	diags := run(t, `
-- main.xml --
<archetype-script>
  <presets>
    <preset-text path="ghost" value="x"/>
    <preset-boolean path="flavor" value="true"/>
  </presets>
  <step name="s">
    <inputs>
      <input-enum name="flavor" label="Flavor" default="se">
        <option value="se"/>
      </input-enum>
    </inputs>
  </step>
</archetype-script>
`)
	qt.Assert(t, qt.DeepEquals(codes(diags), []validate.Code{
		validate.PresetUnresolved,
		validate.PresetTypeMismatch,
	}))
}

func TestExprDiagnostics(t *testing.T) {
	t.Parallel()
	diags := run(t, `
-- main.xml --
<archetype-script>
  <step name="s">
    <inputs>
      <input-boolean name="flag" label="Flag" default="false"/>
    </inputs>
  </step>
  <output>
    <condition expression="${missing} == 'x'">
      <file source="a" target="a"/>
    </condition>
    <condition expression="${flag} contains 'x'">
      <file source="b" target="b"/>
    </condition>
  </output>
</archetype-script>
`)
	qt.Assert(t, qt.DeepEquals(codes(diags), []validate.Code{
		validate.ExprUnresolvedVariable,
		validate.ExprEvalError,
	}))
}

func TestDiagnosticsAcrossInvocations(t *testing.T) {
	t.Parallel()
	diags := run(t, `
-- main.xml --
<archetype-script>
  <source src="nested/more.xml"/>
</archetype-script>
-- nested/more.xml --
<archetype-script>
  <step name="s" optional="true">
    <inputs>
      <input-text name="late" label="Late" optional="true"/>
    </inputs>
  </step>
</archetype-script>
`)
	qt.Assert(t, qt.DeepEquals(codes(diags), []validate.Code{validate.InputOptionalNoDefault}))
}
