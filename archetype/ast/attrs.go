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

import (
	"archetype.dev/go/archetype/errors"
	"archetype.dev/go/archetype/expr"
	"archetype.dev/go/archetype/value"
)

// An attrDecl declares an attribute allowed on a node kind: its semantic
// value kind and whether the loader requires it.
type attrDecl struct {
	kind     value.Kind
	required bool
}

func str(required bool) attrDecl  { return attrDecl{value.StringKind, required} }
func boolean() attrDecl           { return attrDecl{value.BoolKind, false} }
func integer() attrDecl           { return attrDecl{value.IntKind, false} }
func list(required bool) attrDecl { return attrDecl{value.ListKind, required} }

// inputAttrs are shared by the four input kinds; the default attribute's
// semantic kind varies with the bound value kind.
func inputAttrs(def value.Kind) map[string]attrDecl {
	return map[string]attrDecl{
		"name":     str(true),
		"label":    str(false),
		"help":     str(false),
		"optional": boolean(),
		"global":   boolean(),
		"default":  {def, false},
	}
}

func bindingAttrs(val value.Kind) map[string]attrDecl {
	return map[string]attrDecl{
		"path":  str(true),
		"value": {val, false},
	}
}

// attrTable enumerates, per node kind, the allowed attributes and their
// semantic types. The loader validates every parsed node against it.
var attrTable = map[Kind]map[string]attrDecl{
	Script_: {},
	Step: {
		"name":     str(true),
		"optional": boolean(),
	},
	Inputs:       {},
	InputBoolean: inputAttrs(value.BoolKind),
	InputText:    inputAttrs(value.StringKind),
	InputEnum:    inputAttrs(value.StringKind),
	InputList:    inputAttrs(value.ListKind),
	Option: {
		"value": str(true),
		"label": str(false),
		"help":  str(false),
	},
	Presets:         {},
	PresetBoolean:   bindingAttrs(value.BoolKind),
	PresetText:      bindingAttrs(value.StringKind),
	PresetEnum:      bindingAttrs(value.StringKind),
	PresetList:      bindingAttrs(value.ListKind),
	Variables:       {},
	VariableBoolean: bindingAttrs(value.BoolKind),
	VariableText:    bindingAttrs(value.StringKind),
	VariableEnum:    bindingAttrs(value.StringKind),
	VariableList:    bindingAttrs(value.ListKind),
	Output:          {},
	File: {
		"source": str(true),
		"target": str(true),
	},
	Template: {
		"engine": str(true),
		"source": str(true),
		"target": str(true),
	},
	Files: {
		"directory":       str(true),
		"transformations": list(false),
	},
	Templates: {
		"directory":       str(true),
		"transformations": list(false),
		"engine":          str(true),
	},
	Model: {},
	ModelValue: {
		"key":   str(false),
		"order": integer(),
	},
	ModelList: {
		"key":   str(false),
		"order": integer(),
	},
	ModelMap: {
		"key":   str(false),
		"order": integer(),
	},
	Includes: {},
	Excludes: {},
	Transformation: {
		"id": str(true),
	},
	Replace: {
		"regex":       str(true),
		"replacement": str(true),
	},
	Regex:       {},
	Validations: {},
	Validation: {
		"name":        str(false),
		"description": str(false),
	},
	Method: {
		"name": str(true),
	},
	Call: {
		"method": str(true),
	},
	Exec: {
		"src": str(true),
	},
	Source: {
		"src": str(true),
	},
	Condition: {
		"expression": str(true),
	},
	Invoke:    {},
	InvokeDir: {},
}

// CheckAttrs validates the attribute map of n against the allowed set of
// its kind: no unknown keys, all required keys present, and every typed
// payload parseable.
func CheckAttrs(n *Node) error {
	decls, ok := attrTable[n.Kind]
	if !ok {
		return errors.Newf(errors.ParseError, n.Pos, "unknown element kind %q", n.Kind)
	}
	for key := range n.Attrs {
		if _, ok := decls[key]; !ok {
			return errors.Newf(errors.ParseError, n.Pos,
				"attribute %q is not allowed on %s", key, n.Kind)
		}
	}
	for key, decl := range decls {
		raw, ok := n.Attrs[key]
		if !ok {
			if decl.required {
				return errors.Newf(errors.ParseError, n.Pos,
					"%s requires attribute %q", n.Kind, key)
			}
			continue
		}
		if decl.kind != value.StringKind && expr.IsInterpolated(raw) {
			// Deferred: the payload resolves against the context at
			// traversal time.
			continue
		}
		if _, err := value.Parse(decl.kind, raw); err != nil {
			return errors.Wrapf(err, errors.ParseError, n.Pos,
				"attribute %q of %s", key, n.Kind)
		}
	}
	return nil
}

// AttrKind returns the declared semantic kind of an attribute on nodes of
// kind k, or NullKind when the attribute is not declared.
func AttrKind(k Kind, key string) value.Kind {
	if decl, ok := attrTable[k][key]; ok {
		return decl.kind
	}
	return value.NullKind
}
