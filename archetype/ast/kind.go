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

package ast

import "archetype.dev/go/archetype/value"

// Kind identifies a script element. The set is closed; the loader rejects
// elements outside it.
type Kind uint8

const (
	Invalid Kind = iota
	Script_
	Step
	Inputs
	InputBoolean
	InputText
	InputEnum
	InputList
	Option
	Presets
	PresetBoolean
	PresetText
	PresetEnum
	PresetList
	Variables
	VariableBoolean
	VariableText
	VariableEnum
	VariableList
	Output
	File
	Template
	Files
	Templates
	Model
	ModelValue
	ModelList
	ModelMap
	Includes
	Excludes
	Transformation
	Replace
	Regex
	Validations
	Validation
	Method
	Call
	Exec
	Source
	Condition
	Invoke
	InvokeDir
)

var kindNames = [...]string{
	Invalid:         "invalid",
	Script_:         "script",
	Step:            "step",
	Inputs:          "inputs",
	InputBoolean:    "input-boolean",
	InputText:       "input-text",
	InputEnum:       "input-enum",
	InputList:       "input-list",
	Option:          "option",
	Presets:         "presets",
	PresetBoolean:   "preset-boolean",
	PresetText:      "preset-text",
	PresetEnum:      "preset-enum",
	PresetList:      "preset-list",
	Variables:       "variables",
	VariableBoolean: "variable-boolean",
	VariableText:    "variable-text",
	VariableEnum:    "variable-enum",
	VariableList:    "variable-list",
	Output:          "output",
	File:            "file",
	Template:        "template",
	Files:           "files",
	Templates:       "templates",
	Model:           "model",
	ModelValue:      "model-value",
	ModelList:       "model-list",
	ModelMap:        "model-map",
	Includes:        "includes",
	Excludes:        "excludes",
	Transformation:  "transformation",
	Replace:         "replace",
	Regex:           "regex",
	Validations:     "validations",
	Validation:      "validation",
	Method:          "method",
	Call:            "call",
	Exec:            "exec",
	Source:          "source",
	Condition:       "condition",
	Invoke:          "invoke",
	InvokeDir:       "invoke-dir",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// KindOf returns the kind named by s, or Invalid when s names none.
func KindOf(s string) Kind {
	for k, name := range kindNames {
		if name == s && Kind(k) != Invalid {
			return Kind(k)
		}
	}
	return Invalid
}

// IsInput reports whether k is one of the input kinds.
func (k Kind) IsInput() bool {
	switch k {
	case InputBoolean, InputText, InputEnum, InputList:
		return true
	}
	return false
}

// IsPreset reports whether k is one of the preset kinds.
func (k Kind) IsPreset() bool {
	switch k {
	case PresetBoolean, PresetText, PresetEnum, PresetList:
		return true
	}
	return false
}

// IsVariable reports whether k is one of the variable kinds.
func (k Kind) IsVariable() bool {
	switch k {
	case VariableBoolean, VariableText, VariableEnum, VariableList:
		return true
	}
	return false
}

// ValueKind returns the value kind an input, preset, or variable of kind k
// binds into the context: boolean and list forms bind BOOLEAN and LIST,
// text and enum forms bind STRING.
func (k Kind) ValueKind() value.Kind {
	switch k {
	case InputBoolean, PresetBoolean, VariableBoolean:
		return value.BoolKind
	case InputText, InputEnum, PresetText, PresetEnum, VariableText, VariableEnum:
		return value.StringKind
	case InputList, PresetList, VariableList:
		return value.ListKind
	}
	return value.NullKind
}
